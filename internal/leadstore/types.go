// Package leadstore implements the relational persistence layer of spec
// §4.D (Lead Store) and §4.F (Identity Resolver): leads, their append-only
// interaction log, and the accumulated form fragment, all behind one
// transactional boundary per spec §5/§9.
package leadstore

import (
	"time"

	"github.com/startfranchiseid/chatbot-leads-startfranchise/internal/statemachine"
)

// Transport identifies which external chat transport a lead was first seen
// on (spec §3).
type Transport string

const (
	TransportWhatsApp Transport = "whatsapp"
	TransportTelegram Transport = "telegram"
)

// Lead is the persistent record of one human contact (spec §3).
type Lead struct {
	LeadID        string
	PrimaryID     string
	AltID         string
	PushName      string
	Transport     Transport
	State         statemachine.State
	WarningCount  int
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// Interaction is one append-only log line against a Lead (spec §3).
type Interaction struct {
	InteractionID string
	LeadID        string
	MessageID     string
	Text          string
	Direction     Direction
	CreatedAt     time.Time
}

type Direction string

const (
	DirectionIn  Direction = "in"
	DirectionOut Direction = "out"
)

// FormFragment is the at-most-one-per-lead accumulated form (spec §3).
type FormFragment struct {
	LeadID       string
	Biodata      string
	SourceInfo   string
	BusinessType string
	Budget       string
	StartPlan    string
	Completed    bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Empty reports whether every field of the fragment is blank.
func (f FormFragment) Empty() bool {
	return f.Biodata == "" && f.SourceInfo == "" && f.BusinessType == "" && f.Budget == "" && f.StartPlan == ""
}

// Missing lists the empty fields of the fragment, in spec-field order.
func (f FormFragment) Missing() []string {
	var missing []string
	if f.Biodata == "" {
		missing = append(missing, "biodata")
	}
	if f.SourceInfo == "" {
		missing = append(missing, "source_info")
	}
	if f.BusinessType == "" {
		missing = append(missing, "business_type")
	}
	if f.Budget == "" {
		missing = append(missing, "budget")
	}
	if f.StartPlan == "" {
		missing = append(missing, "start_plan")
	}
	return missing
}

// Valid reports whether all five fields are populated (spec §3 invariant:
// completed=true implies all five non-empty).
func (f FormFragment) Valid() bool {
	return len(f.Missing()) == 0
}

// GetOrCreateOptions carries the optional metadata get_or_create may use to
// update an existing lead (spec §4.D).
type GetOrCreateOptions struct {
	PushName string
	AltID    string
}
