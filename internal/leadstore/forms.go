package leadstore

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/startfranchiseid/chatbot-leads-startfranchise/internal/coreerrors"
	"github.com/startfranchiseid/chatbot-leads-startfranchise/pkg/shared/stringutil"
)

// GetForm implements spec §4.D get_form. Returns (nil, nil) when the lead
// has no form row yet.
func (s *Store) GetForm(ctx context.Context, leadID string) (*FormFragment, error) {
	row := s.db.QueryRow(ctx, `SELECT lead_id, biodata, source_info, business_type, budget, start_plan, completed, created_at, updated_at
		FROM lead_form_data WHERE lead_id = $1`, leadID)
	var f FormFragment
	var biodata, source, biz, budget, plan sql.NullString
	err := row.Scan(&f.LeadID, &biodata, &source, &biz, &budget, &plan, &f.Completed, &f.CreatedAt, &f.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, coreerrors.New(coreerrors.KindDatabaseFailure, "leadstore.GetForm", err)
	}
	f.Biodata, f.SourceInfo, f.BusinessType, f.Budget, f.StartPlan = biodata.String, source.String, biz.String, budget.String, plan.String
	return &f, nil
}

// UpsertForm implements spec §4.D upsert_form: a field-wise merge where a
// non-null value in partial replaces any prior value (null or non-null),
// and a null/blank value in partial never clobbers an existing one.
func (s *Store) UpsertForm(ctx context.Context, leadID string, partial FormFragment) (*FormFragment, error) {
	existing, err := s.GetForm(ctx, leadID)
	if err != nil {
		return nil, err
	}
	now := time.Now().UTC()
	merged := FormFragment{LeadID: leadID, CreatedAt: now, UpdatedAt: now}
	if existing != nil {
		merged = *existing
		merged.UpdatedAt = now
	}
	merged.Biodata = stringutil.MergeNonEmpty(merged.Biodata, partial.Biodata)
	merged.SourceInfo = stringutil.MergeNonEmpty(merged.SourceInfo, partial.SourceInfo)
	merged.BusinessType = stringutil.MergeNonEmpty(merged.BusinessType, partial.BusinessType)
	merged.Budget = stringutil.MergeNonEmpty(merged.Budget, partial.Budget)
	merged.StartPlan = stringutil.MergeNonEmpty(merged.StartPlan, partial.StartPlan)
	if partial.Completed {
		merged.Completed = true
	}

	_, err = s.db.Exec(ctx, `INSERT INTO lead_form_data (lead_id, biodata, source_info, business_type, budget, start_plan, completed, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
		ON CONFLICT (lead_id) DO UPDATE SET
			biodata=excluded.biodata, source_info=excluded.source_info, business_type=excluded.business_type,
			budget=excluded.budget, start_plan=excluded.start_plan, completed=excluded.completed, updated_at=excluded.updated_at`,
		merged.LeadID, nullable(merged.Biodata), nullable(merged.SourceInfo), nullable(merged.BusinessType),
		nullable(merged.Budget), nullable(merged.StartPlan), merged.Completed, merged.CreatedAt, merged.UpdatedAt)
	if err != nil {
		return nil, coreerrors.New(coreerrors.KindDatabaseFailure, "leadstore.UpsertForm", err)
	}
	return &merged, nil
}
