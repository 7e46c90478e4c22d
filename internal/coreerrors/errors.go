// Package coreerrors defines the error taxonomy shared by every layer of the
// inbound processing core. Handlers classify failures with errors.Is/As
// against these sentinels instead of string matching.
package coreerrors

import (
	"errors"
	"fmt"
)

// Kind classifies a core error for logging and for the HTTP envelope the
// transport layer returns to the webhook caller.
type Kind string

const (
	KindDuplicateMessage     Kind = "duplicate_message"
	KindInCooldown           Kind = "in_cooldown"
	KindLockFailed           Kind = "lock_failed"
	KindInvalidTransition    Kind = "invalid_transition"
	KindInvalidOption        Kind = "invalid_option"
	KindInvalidForm          Kind = "invalid_form"
	KindBackingStoreDown     Kind = "backing_store_unavailable"
	KindDatabaseFailure      Kind = "database_failure"
	KindQueueEnqueueFailure  Kind = "queue_enqueue_failure"
)

// CoreError wraps an underlying cause with a Kind so callers can branch on
// classification while still propagating the original error via Unwrap.
type CoreError struct {
	Kind Kind
	Op   string
	Err  error
}

func (e *CoreError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %s", e.Op, e.Kind)
	}
	return fmt.Sprintf("%s: %s: %v", e.Op, e.Kind, e.Err)
}

func (e *CoreError) Unwrap() error { return e.Err }

// Is supports errors.Is(err, coreerrors.ErrLockFailed) style sentinel checks
// by comparing Kind rather than identity, since every CoreError is a fresh
// allocation carrying its own Op/Err.
func (e *CoreError) Is(target error) bool {
	var other *CoreError
	if errors.As(target, &other) {
		return e.Kind == other.Kind
	}
	return false
}

func New(kind Kind, op string, err error) *CoreError {
	return &CoreError{Kind: kind, Op: op, Err: err}
}

// Sentinels used with errors.Is(err, coreerrors.ErrX). Only Kind is compared.
var (
	ErrDuplicateMessage    = &CoreError{Kind: KindDuplicateMessage}
	ErrInCooldown          = &CoreError{Kind: KindInCooldown}
	ErrLockFailed          = &CoreError{Kind: KindLockFailed}
	ErrInvalidTransition   = &CoreError{Kind: KindInvalidTransition}
	ErrInvalidOption       = &CoreError{Kind: KindInvalidOption}
	ErrInvalidForm         = &CoreError{Kind: KindInvalidForm}
	ErrBackingStoreDown    = &CoreError{Kind: KindBackingStoreDown}
	ErrDatabaseFailure     = &CoreError{Kind: KindDatabaseFailure}
	ErrQueueEnqueueFailure = &CoreError{Kind: KindQueueEnqueueFailure}
)

// InvalidTransition carries the offending pair for logging.
type InvalidTransition struct {
	From string
	To   string
}

func (e *InvalidTransition) Error() string {
	return fmt.Sprintf("invalid transition %s -> %s", e.From, e.To)
}

func NewInvalidTransition(from, to string) error {
	return New(KindInvalidTransition, "statemachine.AttemptTransition", &InvalidTransition{From: from, To: to})
}
