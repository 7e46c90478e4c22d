package leadstore

import (
	"context"

	"github.com/startfranchiseid/chatbot-leads-startfranchise/internal/coreerrors"
)

// ResolveIdentity implements spec §4.F: it guarantees at most one Lead per
// observed (primary, alt) pair. reparentInteractions controls the §9 open
// question on case 3 (split-brain merge) — when true, any interactions on
// the alt-only lead are moved to the primary lead before it is deleted,
// rather than assuming (as the source does) that it has none.
func (s *Store) ResolveIdentity(ctx context.Context, primaryID, altID string, reparentInteractions bool) (*Lead, error) {
	if altID == "" {
		// Case 1: only primary known (or case 4, caller will create).
		return s.GetByPrimary(ctx, primaryID)
	}

	byPrimary, err := s.GetByPrimary(ctx, primaryID)
	if err != nil {
		return nil, err
	}
	byAlt, err := s.GetByAlt(ctx, altID)
	if err != nil {
		return nil, err
	}
	if byAlt == nil {
		// A lead first created under the alternate identifier carries it
		// as its primary_id rather than its alt_id.
		if byAlt, err = s.GetByPrimary(ctx, altID); err != nil {
			return nil, err
		}
	}

	switch {
	case byPrimary == nil && byAlt == nil:
		// Case 4: neither known; caller creates.
		return nil, nil

	case byPrimary == nil && byAlt != nil:
		// Case 2: migrate the alt-matching lead to the new primary id.
		if _, err := s.db.Exec(ctx, `UPDATE leads SET primary_id = $1, alt_id = $2, updated_at = updated_at WHERE lead_id = $3`,
			primaryID, altID, byAlt.LeadID); err != nil {
			return nil, coreerrors.New(coreerrors.KindDatabaseFailure, "leadstore.ResolveIdentity", err)
		}
		byAlt.PrimaryID = primaryID
		byAlt.AltID = altID
		return byAlt, nil

	case byPrimary != nil && byAlt != nil && byPrimary.LeadID != byAlt.LeadID:
		// Case 3: split-brain. Attach alt_id to the primary lead, re-parent
		// interactions if configured to (or always, the safe default), then
		// delete the alt-only lead.
		if byPrimary.AltID == "" {
			if _, err := s.db.Exec(ctx, `UPDATE leads SET alt_id = $1 WHERE lead_id = $2`, altID, byPrimary.LeadID); err != nil {
				return nil, coreerrors.New(coreerrors.KindDatabaseFailure, "leadstore.ResolveIdentity", err)
			}
			byPrimary.AltID = altID
		}
		if reparentInteractions {
			if err := s.ReparentInteractions(ctx, byAlt.LeadID, byPrimary.LeadID); err != nil {
				return nil, err
			}
		}
		if err := s.DeleteLead(ctx, byAlt.LeadID); err != nil {
			return nil, err
		}
		return byPrimary, nil

	default:
		// byPrimary != nil && (byAlt == nil || byAlt.LeadID == byPrimary.LeadID): already unified.
		return byPrimary, nil
	}
}
