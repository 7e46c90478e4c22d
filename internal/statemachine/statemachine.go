// Package statemachine implements the lead qualification state machine
// (spec §4.E): the allowed transition table, reply-eligibility rule, and the
// single entry point handlers use to attempt a transition.
package statemachine

import "github.com/startfranchiseid/chatbot-leads-startfranchise/internal/coreerrors"

// State is one of the lead lifecycle states.
type State string

const (
	StateNew                  State = "NEW"
	StateExisting             State = "EXISTING"
	StateChooseOption         State = "CHOOSE_OPTION"
	StateFormSent             State = "FORM_SENT"
	StateFormInProgress       State = "FORM_IN_PROGRESS"
	StateFormCompleted        State = "FORM_COMPLETED"
	StateManualIntervention   State = "MANUAL_INTERVENTION"
	StatePartnership          State = "PARTNERSHIP"
)

// Initial is the state a freshly created lead starts in.
const Initial = StateNew

// transitions enumerates every allowed From -> To edge in spec §4.E.
var transitions = map[State]map[State]bool{
	StateNew: {
		StateChooseOption:       true,
		StateManualIntervention: true,
	},
	StateExisting: {},
	StateChooseOption: {
		StateFormSent:           true,
		StatePartnership:        true,
		StateManualIntervention: true,
	},
	StateFormSent: {
		StateFormInProgress:     true,
		StateManualIntervention: true,
	},
	StateFormInProgress: {
		StateFormCompleted:      true,
		StateFormSent:           true,
		StateManualIntervention: true,
	},
	StateFormCompleted: {
		StateManualIntervention: true,
		StatePartnership:        true,
	},
	StateManualIntervention: {
		StateNew:          true,
		StateChooseOption: true,
		StateFormSent:     true,
		StatePartnership:  true,
	},
	StatePartnership: {
		StateManualIntervention: true,
	},
}

// replyEligible lists states in which the core is permitted to auto-reply.
var replyEligible = map[State]bool{
	StateNew:            true,
	StateChooseOption:   true,
	StateFormSent:       true,
	StateFormInProgress: true,
}

// Valid reports whether s is one of the enumerated states.
func Valid(s State) bool {
	_, ok := transitions[s]
	return ok
}

// ValidTransition reports whether from -> to is an allowed edge.
func ValidTransition(from, to State) bool {
	edges, ok := transitions[from]
	if !ok {
		return false
	}
	return edges[to]
}

// ReplyAllowed returns true only for NEW, CHOOSE_OPTION, FORM_SENT and
// FORM_IN_PROGRESS: the four states in which the core may emit a reply.
func ReplyAllowed(s State) bool {
	return replyEligible[s]
}

// AttemptTransition returns the new state on success, or a wrapped
// coreerrors.ErrInvalidTransition (checkable with errors.Is) on failure. The
// caller's `from` value is left untouched either way.
func AttemptTransition(from, to State) (State, error) {
	if !ValidTransition(from, to) {
		return from, coreerrors.NewInvalidTransition(string(from), string(to))
	}
	return to, nil
}
