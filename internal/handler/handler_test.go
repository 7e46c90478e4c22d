package handler

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/startfranchiseid/chatbot-leads-startfranchise/internal/jobs"
	"github.com/startfranchiseid/chatbot-leads-startfranchise/internal/kvstore"
	"github.com/startfranchiseid/chatbot-leads-startfranchise/internal/leadstore"
	"github.com/startfranchiseid/chatbot-leads-startfranchise/internal/parser"
	"github.com/startfranchiseid/chatbot-leads-startfranchise/internal/statemachine"
	"github.com/startfranchiseid/chatbot-leads-startfranchise/internal/templates"
)

const testUserID = "628123456789@s.whatsapp.net"

func newTestHandler(t *testing.T) (*Handler, *leadstore.Store, *kvstore.MemoryStore) {
	t.Helper()
	ctx := context.Background()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared&_foreign_keys=on", t.Name())
	store, err := leadstore.Open(ctx, "sqlite3", dsn, zerolog.Nop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	kv := kvstore.NewMemoryStore()
	dispatcher := jobs.NewDispatcher(kv, zerolog.Nop())
	tpl, err := templates.Load("")
	require.NoError(t, err)

	h := New(store, kv, dispatcher, tpl, Config{
		LockTTL:                           time.Minute,
		UserCooldown:                      0, // disabled so scenarios 1-3 can run back to back without waiting out cooldown
		LockMaxAttempts:                   3,
		MaxWarnings:                       3,
		MarkBeforeCommit:                  true,
		IdentityMergeReparentInteractions: true,
	}, zerolog.Nop())
	return h, store, kv
}

func inbound(messageID, text string) parser.InboundMessage {
	return parser.InboundMessage{
		Transport: parser.TransportWhatsApp,
		MessageID: messageID,
		UserID:    testUserID,
		Text:      text,
	}
}

// Scenario 1: fresh greeting.
func TestScenario_FreshGreeting(t *testing.T) {
	h, store, _ := newTestHandler(t)
	ctx := context.Background()

	result := h.Handle(ctx, inbound("m1", "Halo"))
	require.True(t, result.Success)
	require.True(t, result.ShouldReply)
	require.Contains(t, result.ReplyText, "1.")
	require.Contains(t, result.ReplyText, "2.")
	require.Contains(t, result.ReplyText, "3.")
	require.Empty(t, result.SecondaryText)

	lead, err := store.GetByPrimary(ctx, testUserID)
	require.NoError(t, err)
	require.Equal(t, statemachine.StateChooseOption, lead.State)

	n, err := store.CountInteractions(ctx, lead.LeadID)
	require.NoError(t, err)
	require.Equal(t, 1, n)
}

// Scenario 2: option 1 selected.
func TestScenario_Option1(t *testing.T) {
	h, store, _ := newTestHandler(t)
	ctx := context.Background()

	h.Handle(ctx, inbound("m1", "Halo"))
	result := h.Handle(ctx, inbound("m2", "1"))

	require.True(t, result.Success)
	require.True(t, result.ShouldReply)
	require.NotEmpty(t, result.SecondaryText)

	lead, err := store.GetByPrimary(ctx, testUserID)
	require.NoError(t, err)
	require.Equal(t, statemachine.StateFormSent, lead.State)
}

// Scenario 3: complete form.
func TestScenario_CompleteForm(t *testing.T) {
	h, store, kv := newTestHandler(t)
	ctx := context.Background()

	h.Handle(ctx, inbound("m1", "Halo"))
	h.Handle(ctx, inbound("m2", "1"))

	formText := "Nama, Domisili: Budi, Jakarta\nSumber info: Instagram\nJenis bisnis: F&B\nBudget: 100 juta\nRencana mulai: 3 bulan lagi"
	result := h.Handle(ctx, inbound("m3", formText))

	require.True(t, result.Success)
	require.True(t, result.ShouldReply)

	lead, err := store.GetByPrimary(ctx, testUserID)
	require.NoError(t, err)
	require.Equal(t, statemachine.StateFormCompleted, lead.State)

	form, err := store.GetForm(ctx, lead.LeadID)
	require.NoError(t, err)
	require.True(t, form.Completed)
	require.Equal(t, "Budi, Jakarta", form.Biodata)
	require.Equal(t, "Instagram", form.SourceInfo)
	require.Equal(t, "F&B", form.BusinessType)
	require.Equal(t, "100 juta", form.Budget)
	require.Equal(t, "3 bulan lagi", form.StartPlan)

	items, err := kv.Range(ctx, string(jobs.QueueSpreadsheetSync), 0, -1)
	require.NoError(t, err)
	require.Len(t, items, 1)

	notifs, err := kv.Range(ctx, string(jobs.QueueOperatorNotify), 0, -1)
	require.NoError(t, err)
	require.Len(t, notifs, 1)
}

// Scenario 4: duplicate webhook replay.
func TestScenario_DuplicateWebhook(t *testing.T) {
	h, store, _ := newTestHandler(t)
	ctx := context.Background()

	h.Handle(ctx, inbound("m1", "Halo"))
	h.Handle(ctx, inbound("m2", "1"))

	lead, err := store.GetByPrimary(ctx, testUserID)
	require.NoError(t, err)
	n, err := store.CountInteractions(ctx, lead.LeadID)
	require.NoError(t, err)

	result := h.Handle(ctx, inbound("m2", "1"))
	require.True(t, result.Success)
	require.False(t, result.ShouldReply)

	leadAfter, err := store.GetByPrimary(ctx, testUserID)
	require.NoError(t, err)
	require.Equal(t, lead.State, leadAfter.State)

	nAfter, err := store.CountInteractions(ctx, lead.LeadID)
	require.NoError(t, err)
	require.Equal(t, n, nAfter)
}

// Scenario 5: invalid option thrice escalates.
func TestScenario_InvalidOptionEscalates(t *testing.T) {
	h, store, kv := newTestHandler(t)
	ctx := context.Background()

	h.Handle(ctx, inbound("m1", "Halo"))

	r1 := h.Handle(ctx, inbound("m2", "x"))
	require.True(t, r1.ShouldReply)
	lead, err := store.GetByPrimary(ctx, testUserID)
	require.NoError(t, err)
	require.Equal(t, 1, lead.WarningCount)

	h.Handle(ctx, inbound("m3", "y"))
	lead, err = store.GetByPrimary(ctx, testUserID)
	require.NoError(t, err)
	require.Equal(t, 2, lead.WarningCount)

	r3 := h.Handle(ctx, inbound("m4", "z"))
	require.True(t, r3.ShouldReply)
	lead, err = store.GetByPrimary(ctx, testUserID)
	require.NoError(t, err)
	require.Equal(t, 3, lead.WarningCount)
	require.Equal(t, statemachine.StateManualIntervention, lead.State)

	notifs, err := kv.Range(ctx, string(jobs.QueueOperatorNotify), 0, -1)
	require.NoError(t, err)
	require.Len(t, notifs, 1)
}

// Regression: GetOrCreate must not shadow a pre-existing alt-only lead
// before ResolveIdentity gets a chance to migrate it (spec §4.F case 2).
func TestHandle_MigratesPreexistingAltOnlyLead(t *testing.T) {
	h, store, _ := newTestHandler(t)
	ctx := context.Background()

	altLead, err := store.Create(ctx, "alt-device@lid", leadstore.TransportWhatsApp, statemachine.StateChooseOption, "", "")
	require.NoError(t, err)
	_, _, err = store.IncrementWarning(ctx, altLead.LeadID, 3)
	require.NoError(t, err)

	msg := inbound("m1", "1")
	msg.Metadata.AltID = "alt-device@lid"
	result := h.Handle(ctx, msg)
	require.True(t, result.Success)

	lead, err := store.GetByPrimary(ctx, testUserID)
	require.NoError(t, err)
	require.Equal(t, altLead.LeadID, lead.LeadID, "pre-existing alt-only lead must be migrated, not shadowed by a new row")
	require.Equal(t, 1, lead.WarningCount, "migrated lead must keep its prior warning_count")
}

// Scenario 6: group/broadcast ignored — covered at the parser layer since
// the handler pipeline is never invoked for these (spec §6); see
// parser.Validate tests for ReasonGroup/ReasonBroadcast.
func TestScenario_GroupIgnoredNeverReachesHandler(t *testing.T) {
	msg := inbound("m1", "Halo")
	msg.IsGroup = true
	require.Equal(t, parser.ReasonGroup, parser.Validate(msg))
}
