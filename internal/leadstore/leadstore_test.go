package leadstore

import (
	"context"
	"fmt"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/startfranchiseid/chatbot-leads-startfranchise/internal/statemachine"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	ctx := context.Background()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared&_foreign_keys=on", t.Name())
	store, err := Open(ctx, "sqlite3", dsn, zerolog.Nop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestGetOrCreate_CreatesThenUpdatesOnlyWhenDiffering(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	lead, isNew, err := store.GetOrCreate(ctx, "628123456789@s.whatsapp.net", TransportWhatsApp, GetOrCreateOptions{PushName: "Budi"})
	require.NoError(t, err)
	require.True(t, isNew)
	require.Equal(t, statemachine.StateNew, lead.State)
	require.Equal(t, "Budi", lead.PushName)

	lead2, isNew2, err := store.GetOrCreate(ctx, "628123456789@s.whatsapp.net", TransportWhatsApp, GetOrCreateOptions{PushName: "Budi"})
	require.NoError(t, err)
	require.False(t, isNew2)
	require.Equal(t, lead.LeadID, lead2.LeadID)

	lead3, isNew3, err := store.GetOrCreate(ctx, "628123456789@s.whatsapp.net", TransportWhatsApp, GetOrCreateOptions{PushName: "Budi Santoso", AltID: "abc@lid"})
	require.NoError(t, err)
	require.False(t, isNew3)
	require.Equal(t, "Budi Santoso", lead3.PushName)
	require.Equal(t, "abc@lid", lead3.AltID)
}

func TestUpdateState_RejectsInvalidTransition(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	lead, err := store.Create(ctx, "u1", TransportWhatsApp, statemachine.StateExisting, "", "")
	require.NoError(t, err)

	_, err = store.UpdateState(ctx, lead.LeadID, statemachine.StateFormSent)
	require.Error(t, err)

	unchanged, err := store.GetByLeadID(ctx, lead.LeadID)
	require.NoError(t, err)
	require.Equal(t, statemachine.StateExisting, unchanged.State)
}

func TestIncrementWarning_EscalatesAtMax(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	lead, err := store.Create(ctx, "u2", TransportWhatsApp, statemachine.StateChooseOption, "", "")
	require.NoError(t, err)

	for i := 1; i <= 2; i++ {
		l, escalate, err := store.IncrementWarning(ctx, lead.LeadID, 3)
		require.NoError(t, err)
		require.False(t, escalate)
		require.Equal(t, i, l.WarningCount)
	}

	l, escalate, err := store.IncrementWarning(ctx, lead.LeadID, 3)
	require.NoError(t, err)
	require.True(t, escalate)
	require.Equal(t, 3, l.WarningCount)
}

func TestUpsertForm_FieldWiseMerge(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	lead, err := store.Create(ctx, "u3", TransportWhatsApp, statemachine.StateFormSent, "", "")
	require.NoError(t, err)

	_, err = store.UpsertForm(ctx, lead.LeadID, FormFragment{Biodata: "Budi, Jakarta"})
	require.NoError(t, err)

	second, err := store.UpsertForm(ctx, lead.LeadID, FormFragment{SourceInfo: "Instagram"})
	require.NoError(t, err)
	require.Equal(t, "Budi, Jakarta", second.Biodata)
	require.Equal(t, "Instagram", second.SourceInfo)
	require.False(t, second.Completed)

	// A blank incoming value must never clobber a previously stored one.
	third, err := store.UpsertForm(ctx, lead.LeadID, FormFragment{Biodata: ""})
	require.NoError(t, err)
	require.Equal(t, "Budi, Jakarta", third.Biodata)
}

func TestResolveIdentity_SplitBrainMergesAndReparents(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	primaryLead, err := store.Create(ctx, "628111@s.whatsapp.net", TransportWhatsApp, statemachine.StateChooseOption, "", "")
	require.NoError(t, err)
	altLead, err := store.Create(ctx, "alt-device@lid", TransportWhatsApp, statemachine.StateNew, "", "")
	require.NoError(t, err)
	_, err = store.AddInteraction(ctx, altLead.LeadID, "m0", "hi from alt device", DirectionIn)
	require.NoError(t, err)

	merged, err := store.ResolveIdentity(ctx, "628111@s.whatsapp.net", "alt-device@lid", true)
	require.NoError(t, err)
	require.Equal(t, primaryLead.LeadID, merged.LeadID)
	require.Equal(t, "alt-device@lid", merged.AltID)

	gone, err := store.GetByLeadID(ctx, altLead.LeadID)
	require.NoError(t, err)
	require.Nil(t, gone)

	n, err := store.CountInteractions(ctx, primaryLead.LeadID)
	require.NoError(t, err)
	require.Equal(t, 1, n, "alt lead's interaction must have been reparented")
}

func TestResolveIdentity_MigratesAltOnlyLeadToNewPrimary(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	altLead, err := store.Create(ctx, "alt-device@lid", TransportWhatsApp, statemachine.StateNew, "", "")
	require.NoError(t, err)

	resolved, err := store.ResolveIdentity(ctx, "628222@s.whatsapp.net", "alt-device@lid", true)
	require.NoError(t, err)
	require.Equal(t, altLead.LeadID, resolved.LeadID)
	require.Equal(t, "628222@s.whatsapp.net", resolved.PrimaryID)
}
