package leadstore

import (
	"context"
	"time"

	"github.com/rs/xid"

	"github.com/startfranchiseid/chatbot-leads-startfranchise/internal/coreerrors"
)

// AddInteraction implements spec §4.D add_interaction: appends one
// immutable log line against the lead. Interaction IDs use xid rather than
// uuid since the log is append-only and benefits from xid's
// roughly-time-sortable ordering; lead IDs and lock tokens keep uuid.
func (s *Store) AddInteraction(ctx context.Context, leadID, messageID, text string, direction Direction) (*Interaction, error) {
	in := &Interaction{
		InteractionID: xid.New().String(),
		LeadID:        leadID,
		MessageID:     messageID,
		Text:          text,
		Direction:     direction,
		CreatedAt:     time.Now().UTC(),
	}
	_, err := s.db.Exec(ctx, `INSERT INTO lead_interactions (interaction_id, lead_id, message_id, text, direction, created_at)
		VALUES ($1,$2,$3,$4,$5,$6)`, in.InteractionID, in.LeadID, in.MessageID, in.Text, in.Direction, in.CreatedAt)
	if err != nil {
		return nil, coreerrors.New(coreerrors.KindDatabaseFailure, "leadstore.AddInteraction", err)
	}
	return in, nil
}

// ReparentInteractions moves every interaction row from one lead to
// another. Used by the identity resolver's split-brain merge (spec §4.F
// case 3) when config says interactions might exist on the alt-only lead.
func (s *Store) ReparentInteractions(ctx context.Context, fromLeadID, toLeadID string) error {
	_, err := s.db.Exec(ctx, `UPDATE lead_interactions SET lead_id = $1 WHERE lead_id = $2`, toLeadID, fromLeadID)
	if err != nil {
		return coreerrors.New(coreerrors.KindDatabaseFailure, "leadstore.ReparentInteractions", err)
	}
	return nil
}

// CountInteractions reports how many interaction rows a lead has.
func (s *Store) CountInteractions(ctx context.Context, leadID string) (int, error) {
	row := s.db.QueryRow(ctx, `SELECT COUNT(*) FROM lead_interactions WHERE lead_id = $1`, leadID)
	var n int
	if err := row.Scan(&n); err != nil {
		return 0, coreerrors.New(coreerrors.KindDatabaseFailure, "leadstore.CountInteractions", err)
	}
	return n, nil
}
