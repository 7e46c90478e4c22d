package jobs

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/startfranchiseid/chatbot-leads-startfranchise/internal/kvstore"
)

func TestDispatcher_EnqueueSpreadsheetSync(t *testing.T) {
	ctx := context.Background()
	kv := kvstore.NewMemoryStore()
	d := NewDispatcher(kv, zerolog.Nop())

	err := d.EnqueueSpreadsheetSync(ctx, SpreadsheetSyncPayload{LeadID: "lead-1", UserID: "u1", Transport: "whatsapp"})
	require.NoError(t, err)

	items, err := kv.Range(ctx, string(QueueSpreadsheetSync), 0, -1)
	require.NoError(t, err)
	require.Len(t, items, 1)

	var p SpreadsheetSyncPayload
	require.NoError(t, json.Unmarshal(items[0], &p))
	require.Equal(t, "lead-1", p.LeadID)
}

func TestWorker_RetriesThenDropsExhausted(t *testing.T) {
	ctx := context.Background()
	kv := kvstore.NewMemoryStore()
	d := NewDispatcher(kv, zerolog.Nop())
	require.NoError(t, d.EnqueueOperatorNotify(ctx, OperatorNotifyPayload{Kind: NotifyEscalation}))

	policy := RetryPolicy{MaxAttempts: 2, InitialInterval: 0}
	w := NewWorker(kv, QueueOperatorNotify, policy, zerolog.Nop())

	attempts := 0
	w.drainOnce(ctx, func(ctx context.Context, payload []byte) error {
		attempts++
		return context.DeadlineExceeded
	})
	require.Equal(t, 2, attempts)

	items, err := kv.Range(ctx, string(QueueOperatorNotify), 0, -1)
	require.NoError(t, err)
	require.Empty(t, items, "exhausted job must be removed from the queue")
}
