// Package kvstore defines the admission-control primitives of spec §4.A-C
// and the durable queue of §4.J, all backed by the same shared key-value
// store per spec §9 ("Shared mutable state"). A Redis-backed implementation
// is the production backend; an in-memory implementation with the same
// semantics is used for tests and for single-instance runs configured
// without Redis. There is no automatic switch to it when Redis fails.
package kvstore

import (
	"context"
	"time"
)

// IdempotencyStore implements spec §4.A.
type IdempotencyStore interface {
	// Seen reports whether (transport, messageID) was already marked within
	// the retention window. A backing-store failure is surfaced via err;
	// callers must treat a failed Seen as "not seen" per spec §7.
	Seen(ctx context.Context, transport, messageID string) (bool, error)
	// Mark records (transport, messageID) as processed with a fixed 24-hour
	// TTL in both implementations; config.Config.IdempotencyTTL is not
	// passed to them. Failures are logged by the caller, not retried.
	Mark(ctx context.Context, transport, messageID string) error
}

// LockStore implements the fenced per-user mutex of spec §4.B.
type LockStore interface {
	// Acquire attempts a single compare-and-set of lock:user:{userID}. ok is
	// false (with no error) when the lock is already held by someone else.
	Acquire(ctx context.Context, userID string, ttl time.Duration) (token string, ok bool, err error)
	// Release deletes the lock iff its current value equals token (atomic
	// compare-and-delete), so an expired-and-reacquired lock can never be
	// released by a stale holder.
	Release(ctx context.Context, userID, token string) error
}

// CooldownStore implements spec §4.C.
type CooldownStore interface {
	InCooldown(ctx context.Context, userID string) (bool, error)
	SetCooldown(ctx context.Context, userID string, ttl time.Duration) error
}

// Queue implements the durable list operations spec §6 names
// (list_push/list_range/list_delete), used by the job dispatcher (§4.J).
type Queue interface {
	Push(ctx context.Context, queue string, payload []byte) error
	Range(ctx context.Context, queue string, start, stop int64) ([][]byte, error)
	Delete(ctx context.Context, queue string, payload []byte) error
}

// Store bundles every primitive the handler pipeline needs behind one
// injectable dependency.
type Store interface {
	IdempotencyStore
	LockStore
	CooldownStore
	Queue
}
