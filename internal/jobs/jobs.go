// Package jobs is the Job Dispatcher (spec component J): two named retry
// queues fed inside the handler's outer transaction, drained by workers
// with their own retry/backoff policy per queue.
package jobs

import (
	"context"
	"encoding/json"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/rs/zerolog"

	"github.com/startfranchiseid/chatbot-leads-startfranchise/internal/kvstore"
)

// QueueName is one of the two named queues spec §4.J defines.
type QueueName string

const (
	QueueSpreadsheetSync  QueueName = "spreadsheet-sync"
	QueueOperatorNotify   QueueName = "operator-notify"
)

// SpreadsheetSyncPayload is enqueued on FORM_COMPLETED (spec §4.I).
type SpreadsheetSyncPayload struct {
	LeadID    string            `json:"lead_id"`
	UserID    string            `json:"user_id"`
	Transport string            `json:"transport"`
	Form      map[string]string `json:"form"`
}

// NotificationKind enumerates the operator-notify payload kinds.
type NotificationKind string

const (
	NotifyEscalation        NotificationKind = "escalation"
	NotifyNewLead           NotificationKind = "new_lead"
	NotifyFormCompleted     NotificationKind = "form_completed"
	NotifyPartnership       NotificationKind = "partnership_interest"
	NotifyOtherNeeds        NotificationKind = "other_needs"
	NotifyGeneralInquiry    NotificationKind = "general_inquiry"
)

// OperatorNotifyPayload is enqueued whenever the handler needs to alert a
// human operator (spec §4.J).
type OperatorNotifyPayload struct {
	Kind NotificationKind `json:"kind"`
	Data map[string]any   `json:"data"`
}

// Dispatcher enqueues jobs onto the shared key-value backing store. Per
// SPEC_FULL.md §9 this repository follows the source's choice: enqueue
// inside the outer transaction, relying on the transaction rolling back the
// relational writes but not the enqueue itself, and on downstream worker
// idempotency for the at-least-once queue semantics this implies.
type Dispatcher struct {
	queue kvstore.Queue
	log   zerolog.Logger
}

func NewDispatcher(queue kvstore.Queue, log zerolog.Logger) *Dispatcher {
	return &Dispatcher{queue: queue, log: log}
}

// EnqueueSpreadsheetSync implements spec §4.J's spreadsheet-sync queue.
func (d *Dispatcher) EnqueueSpreadsheetSync(ctx context.Context, p SpreadsheetSyncPayload) error {
	return d.enqueue(ctx, QueueSpreadsheetSync, p)
}

// EnqueueOperatorNotify implements spec §4.J's operator-notify queue.
func (d *Dispatcher) EnqueueOperatorNotify(ctx context.Context, p OperatorNotifyPayload) error {
	return d.enqueue(ctx, QueueOperatorNotify, p)
}

func (d *Dispatcher) enqueue(ctx context.Context, queue QueueName, payload any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	if err := d.queue.Push(ctx, string(queue), data); err != nil {
		d.log.Warn().Err(err).Str("queue", string(queue)).Msg("enqueue failed")
		return err
	}
	return nil
}

// RetryPolicy names the exponential backoff shape for one queue, per spec
// §4.J.
type RetryPolicy struct {
	MaxAttempts     int
	InitialInterval time.Duration
}

var (
	SpreadsheetSyncPolicy = RetryPolicy{MaxAttempts: 5, InitialInterval: time.Second}
	OperatorNotifyPolicy  = RetryPolicy{MaxAttempts: 3, InitialInterval: 500 * time.Millisecond}
)

// NewBackOff builds the backoff.ExponentialBackOff a worker should use when
// retrying one job from this policy's queue.
func (p RetryPolicy) NewBackOff() *backoff.ExponentialBackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = p.InitialInterval
	b.Multiplier = 2.0
	b.RandomizationFactor = 0.2
	b.Reset()
	return b
}
