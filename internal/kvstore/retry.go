package kvstore

import (
	"context"
	"time"
)

// AcquireWithRetry implements spec §4.B's acquire_with_retry: up to
// maxAttempts attempts with linearly increasing backoff (100ms * attempt
// number). Returns ok=false once attempts are exhausted without error -
// callers translate that into coreerrors.ErrLockFailed. A backing-store
// failure (err != nil) is not genuine contention: per spec §7 the mutex
// degrades to permissive, best-effort behavior instead of retrying and
// ultimately rejecting the message, so it returns ok=true with an empty
// token immediately. An empty token never matches a real lock value, so
// the caller's deferred Release is a harmless no-op.
func AcquireWithRetry(ctx context.Context, locks LockStore, userID string, maxAttempts int, ttl time.Duration) (token string, ok bool) {
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		tok, acquired, err := locks.Acquire(ctx, userID, ttl)
		if err != nil {
			return "", true
		}
		if acquired {
			return tok, true
		}
		if attempt == maxAttempts {
			break
		}
		select {
		case <-ctx.Done():
			return "", false
		case <-time.After(time.Duration(attempt) * 100 * time.Millisecond):
		}
	}
	return "", false
}
