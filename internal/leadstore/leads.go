package leadstore

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/startfranchiseid/chatbot-leads-startfranchise/internal/coreerrors"
	"github.com/startfranchiseid/chatbot-leads-startfranchise/internal/statemachine"
)

const leadColumns = `lead_id, primary_id, alt_id, push_name, transport, state, warning_count, created_at, updated_at`

func scanLead(row interface{ Scan(...any) error }) (*Lead, error) {
	var l Lead
	var altID, pushName sql.NullString
	var state string
	if err := row.Scan(&l.LeadID, &l.PrimaryID, &altID, &pushName, &l.Transport, &state, &l.WarningCount, &l.CreatedAt, &l.UpdatedAt); err != nil {
		return nil, err
	}
	l.AltID = altID.String
	l.PushName = pushName.String
	l.State = statemachine.State(state)
	return &l, nil
}

// GetByPrimary implements spec §4.D get_by_primary. Returns (nil, nil) when
// no lead matches.
func (s *Store) GetByPrimary(ctx context.Context, primaryID string) (*Lead, error) {
	row := s.db.QueryRow(ctx, `SELECT `+leadColumns+` FROM leads WHERE primary_id = $1`, primaryID)
	lead, err := scanLead(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, coreerrors.New(coreerrors.KindDatabaseFailure, "leadstore.GetByPrimary", err)
	}
	return lead, nil
}

// GetByAlt implements spec §4.D get_by_alt.
func (s *Store) GetByAlt(ctx context.Context, altID string) (*Lead, error) {
	if altID == "" {
		return nil, nil
	}
	row := s.db.QueryRow(ctx, `SELECT `+leadColumns+` FROM leads WHERE alt_id = $1`, altID)
	lead, err := scanLead(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, coreerrors.New(coreerrors.KindDatabaseFailure, "leadstore.GetByAlt", err)
	}
	return lead, nil
}

// GetByLeadID implements spec §4.D get_by_lead_id.
func (s *Store) GetByLeadID(ctx context.Context, leadID string) (*Lead, error) {
	row := s.db.QueryRow(ctx, `SELECT `+leadColumns+` FROM leads WHERE lead_id = $1`, leadID)
	lead, err := scanLead(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, coreerrors.New(coreerrors.KindDatabaseFailure, "leadstore.GetByLeadID", err)
	}
	return lead, nil
}

// Create implements spec §4.D create.
func (s *Store) Create(ctx context.Context, primaryID string, transport Transport, state statemachine.State, pushName, altID string) (*Lead, error) {
	now := time.Now().UTC()
	lead := &Lead{
		LeadID:    uuid.NewString(),
		PrimaryID: primaryID,
		AltID:     altID,
		PushName:  pushName,
		Transport: transport,
		State:     state,
		CreatedAt: now,
		UpdatedAt: now,
	}
	_, err := s.db.Exec(ctx, `INSERT INTO leads (`+leadColumns+`) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)`,
		lead.LeadID, lead.PrimaryID, nullable(lead.AltID), nullable(lead.PushName), lead.Transport, lead.State, lead.WarningCount, lead.CreatedAt, lead.UpdatedAt)
	if err != nil {
		return nil, coreerrors.New(coreerrors.KindDatabaseFailure, "leadstore.Create", err)
	}
	return lead, nil
}

func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}

// GetOrCreate implements spec §4.D get_or_create: if found, refresh
// push_name/alt_id per the documented rule; otherwise create a NEW lead.
func (s *Store) GetOrCreate(ctx context.Context, primaryID string, transport Transport, opts GetOrCreateOptions) (*Lead, bool, error) {
	lead, err := s.GetByPrimary(ctx, primaryID)
	if err != nil {
		return nil, false, err
	}
	if lead == nil {
		lead, err = s.Create(ctx, primaryID, transport, statemachine.Initial, opts.PushName, opts.AltID)
		if err != nil {
			return nil, false, err
		}
		return lead, true, nil
	}

	needsUpdate := false
	newPushName := lead.PushName
	newAltID := lead.AltID
	if opts.PushName != "" && opts.PushName != lead.PushName {
		newPushName = opts.PushName
		needsUpdate = true
	}
	if opts.AltID != "" && lead.AltID == "" {
		newAltID = opts.AltID
		needsUpdate = true
	}
	if !needsUpdate {
		return lead, false, nil
	}
	now := time.Now().UTC()
	_, err = s.db.Exec(ctx, `UPDATE leads SET push_name = $1, alt_id = $2, updated_at = $3 WHERE lead_id = $4`,
		nullable(newPushName), nullable(newAltID), now, lead.LeadID)
	if err != nil {
		return nil, false, coreerrors.New(coreerrors.KindDatabaseFailure, "leadstore.GetOrCreate", err)
	}
	lead.PushName = newPushName
	lead.AltID = newAltID
	lead.UpdatedAt = now
	return lead, false, nil
}

// MarkExisting implements spec §4.D mark_existing, used when the transport
// tells us a message is one we sent ourselves (from_me).
func (s *Store) MarkExisting(ctx context.Context, primaryID string, transport Transport) (*Lead, error) {
	lead, err := s.GetByPrimary(ctx, primaryID)
	if err != nil {
		return nil, err
	}
	if lead == nil {
		return s.Create(ctx, primaryID, transport, statemachine.StateExisting, "", "")
	}
	if lead.State == statemachine.StateNew {
		return s.UpdateState(ctx, lead.LeadID, statemachine.StateExisting)
	}
	return lead, nil
}

// UpdateState implements spec §4.D update_state: validates the transition
// via the state machine and fails with coreerrors.ErrInvalidTransition
// otherwise, leaving the stored state untouched.
func (s *Store) UpdateState(ctx context.Context, leadID string, newState statemachine.State) (*Lead, error) {
	lead, err := s.GetByLeadID(ctx, leadID)
	if err != nil {
		return nil, err
	}
	if lead == nil {
		return nil, coreerrors.New(coreerrors.KindDatabaseFailure, "leadstore.UpdateState", sql.ErrNoRows)
	}
	if _, err := statemachine.AttemptTransition(lead.State, newState); err != nil {
		return nil, err
	}
	now := time.Now().UTC()
	_, err = s.db.Exec(ctx, `UPDATE leads SET state = $1, updated_at = $2 WHERE lead_id = $3`, newState, now, leadID)
	if err != nil {
		return nil, coreerrors.New(coreerrors.KindDatabaseFailure, "leadstore.UpdateState", err)
	}
	lead.State = newState
	lead.UpdatedAt = now
	return lead, nil
}

// IncrementWarning implements spec §4.D increment_warning: atomic +1,
// reporting shouldEscalate once warningCount reaches maxWarnings.
func (s *Store) IncrementWarning(ctx context.Context, leadID string, maxWarnings int) (*Lead, bool, error) {
	_, err := s.db.Exec(ctx, `UPDATE leads SET warning_count = warning_count + 1, updated_at = $1 WHERE lead_id = $2`, time.Now().UTC(), leadID)
	if err != nil {
		return nil, false, coreerrors.New(coreerrors.KindDatabaseFailure, "leadstore.IncrementWarning", err)
	}
	lead, err := s.GetByLeadID(ctx, leadID)
	if err != nil {
		return nil, false, err
	}
	return lead, lead.WarningCount >= maxWarnings, nil
}

// ResetWarning implements spec §4.D reset_warning.
func (s *Store) ResetWarning(ctx context.Context, leadID string) error {
	_, err := s.db.Exec(ctx, `UPDATE leads SET warning_count = 0, updated_at = $1 WHERE lead_id = $2`, time.Now().UTC(), leadID)
	if err != nil {
		return coreerrors.New(coreerrors.KindDatabaseFailure, "leadstore.ResetWarning", err)
	}
	return nil
}

// DeleteLead hard-deletes a lead row. Only used by the identity resolver's
// split-brain merge (spec §4.F case 3), after re-parenting its interactions
// when that option is enabled.
func (s *Store) DeleteLead(ctx context.Context, leadID string) error {
	_, err := s.db.Exec(ctx, `DELETE FROM leads WHERE lead_id = $1`, leadID)
	if err != nil {
		return coreerrors.New(coreerrors.KindDatabaseFailure, "leadstore.DeleteLead", err)
	}
	return nil
}
