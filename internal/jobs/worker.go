package jobs

import (
	"context"
	"encoding/json"
	"time"

	"github.com/rs/zerolog"

	"github.com/startfranchiseid/chatbot-leads-startfranchise/internal/kvstore"
	"github.com/startfranchiseid/chatbot-leads-startfranchise/internal/metrics"
)

// SpreadsheetClient is the out-of-scope downstream API the spreadsheet-sync
// worker calls; spec §1 excludes its implementation, so it is injected.
type SpreadsheetClient interface {
	Sync(ctx context.Context, payload SpreadsheetSyncPayload) error
}

// NotifierClient is the out-of-scope downstream notification sender the
// operator-notify worker calls; spec §1 excludes its implementation too.
type NotifierClient interface {
	Notify(ctx context.Context, payload OperatorNotifyPayload) error
}

// Worker drains one named queue, retrying each job per its RetryPolicy
// before giving up and dropping it (logged at error, counted in metrics).
// Per SPEC_FULL.md §9 this worker is the idempotency boundary the handler's
// at-least-once enqueue semantics push onto: downstream clients must
// tolerate a re-delivered job.
type Worker struct {
	queue  kvstore.Queue
	name   QueueName
	policy RetryPolicy
	log    zerolog.Logger
	poll   time.Duration
}

func NewWorker(queue kvstore.Queue, name QueueName, policy RetryPolicy, log zerolog.Logger) *Worker {
	return &Worker{queue: queue, name: name, policy: policy, log: log, poll: time.Second}
}

// Run blocks, polling the queue until ctx is cancelled. handle is called
// once per job payload; it is retried per w.policy on error.
func (w *Worker) Run(ctx context.Context, handle func(ctx context.Context, payload []byte) error) {
	ticker := time.NewTicker(w.poll)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			w.drainOnce(ctx, handle)
		}
	}
}

func (w *Worker) drainOnce(ctx context.Context, handle func(ctx context.Context, payload []byte) error) {
	items, err := w.queue.Range(ctx, string(w.name), 0, -1)
	if err != nil {
		w.log.Warn().Err(err).Str("queue", string(w.name)).Msg("queue range failed")
		return
	}
	for _, item := range items {
		if err := w.processWithRetry(ctx, item, handle); err != nil {
			w.log.Error().Err(err).Str("queue", string(w.name)).Msg("job exhausted retries, dropping")
			metrics.JobsFailed.WithLabelValues(string(w.name)).Inc()
		} else {
			metrics.JobsProcessed.WithLabelValues(string(w.name)).Inc()
		}
		if err := w.queue.Delete(ctx, string(w.name), item); err != nil {
			w.log.Warn().Err(err).Str("queue", string(w.name)).Msg("queue delete failed")
		}
	}
}

func (w *Worker) processWithRetry(ctx context.Context, item []byte, handle func(ctx context.Context, payload []byte) error) error {
	b := w.policy.NewBackOff()
	var lastErr error
	for attempt := 1; attempt <= w.policy.MaxAttempts; attempt++ {
		if err := handle(ctx, item); err != nil {
			lastErr = err
			wait := b.NextBackOff()
			select {
			case <-time.After(wait):
			case <-ctx.Done():
				return ctx.Err()
			}
			continue
		}
		return nil
	}
	return lastErr
}

// DecodeSpreadsheetSync is the default handle func for the
// spreadsheet-sync queue.
func DecodeSpreadsheetSync(client SpreadsheetClient) func(ctx context.Context, payload []byte) error {
	return func(ctx context.Context, payload []byte) error {
		var p SpreadsheetSyncPayload
		if err := json.Unmarshal(payload, &p); err != nil {
			return err
		}
		return client.Sync(ctx, p)
	}
}

// DecodeOperatorNotify is the default handle func for the operator-notify
// queue.
func DecodeOperatorNotify(client NotifierClient) func(ctx context.Context, payload []byte) error {
	return func(ctx context.Context, payload []byte) error {
		var p OperatorNotifyPayload
		if err := json.Unmarshal(payload, &p); err != nil {
			return err
		}
		return client.Notify(ctx, p)
	}
}
