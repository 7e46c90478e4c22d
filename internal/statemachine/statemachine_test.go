package statemachine

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/startfranchiseid/chatbot-leads-startfranchise/internal/coreerrors"
)

func TestValidTransition_MatchesTable(t *testing.T) {
	cases := []struct {
		from, to State
		want     bool
	}{
		{StateNew, StateChooseOption, true},
		{StateNew, StateManualIntervention, true},
		{StateNew, StateFormSent, false},
		{StateExisting, StateNew, false},
		{StateChooseOption, StateFormSent, true},
		{StateChooseOption, StatePartnership, true},
		{StateFormSent, StateFormInProgress, true},
		{StateFormInProgress, StateFormCompleted, true},
		{StateFormInProgress, StateFormSent, true},
		{StateFormCompleted, StatePartnership, true},
		{StateManualIntervention, StateNew, true},
		{StatePartnership, StateManualIntervention, true},
		{StatePartnership, StateNew, false},
	}
	for _, c := range cases {
		assert.Equal(t, c.want, ValidTransition(c.from, c.to), "%s -> %s", c.from, c.to)
	}
}

func TestAttemptTransition_InvalidLeavesFromUnchanged(t *testing.T) {
	got, err := AttemptTransition(StateExisting, StateFormSent)
	require.Error(t, err)
	assert.Equal(t, StateExisting, got)

	var invalid *coreerrors.InvalidTransition
	assert.True(t, errors.As(err, &invalid))
	assert.True(t, errors.Is(err, coreerrors.ErrInvalidTransition))
}

func TestReplyAllowed(t *testing.T) {
	allowed := []State{StateNew, StateChooseOption, StateFormSent, StateFormInProgress}
	for _, s := range allowed {
		assert.True(t, ReplyAllowed(s), s)
	}
	disallowed := []State{StateExisting, StateFormCompleted, StateManualIntervention, StatePartnership}
	for _, s := range disallowed {
		assert.False(t, ReplyAllowed(s), s)
	}
}
