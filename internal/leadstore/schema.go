package leadstore

import (
	"context"

	"go.mau.fi/util/dbutil"
)

// Upgrades mirrors the teacher's dbutil.NewUpgradeTable() migration pattern:
// numbered, forward-only steps applied once at startup and tracked in the
// database's own version table. The schema matches SPEC_FULL.md §3.
var Upgrades = dbutil.NewUpgradeTable()

func init() {
	Upgrades.Register(1, 0, "Initial lead qualification schema", false, func(ctx context.Context, db *dbutil.Database) error {
		_, err := db.Exec(ctx, `CREATE TABLE leads (
			lead_id        TEXT PRIMARY KEY,
			primary_id     TEXT NOT NULL UNIQUE,
			alt_id         TEXT,
			push_name      TEXT,
			transport      TEXT NOT NULL,
			state          TEXT NOT NULL,
			warning_count  INTEGER NOT NULL DEFAULT 0,
			created_at     TIMESTAMP NOT NULL,
			updated_at     TIMESTAMP NOT NULL
		)`)
		if err != nil {
			return err
		}
		if _, err := db.Exec(ctx, `CREATE INDEX leads_alt_id_idx ON leads(alt_id)`); err != nil {
			return err
		}
		if _, err := db.Exec(ctx, `CREATE TABLE lead_interactions (
			interaction_id TEXT PRIMARY KEY,
			lead_id        TEXT NOT NULL REFERENCES leads(lead_id),
			message_id     TEXT NOT NULL,
			text           TEXT NOT NULL,
			direction      TEXT NOT NULL,
			created_at     TIMESTAMP NOT NULL
		)`); err != nil {
			return err
		}
		if _, err := db.Exec(ctx, `CREATE INDEX lead_interactions_lead_id_idx ON lead_interactions(lead_id)`); err != nil {
			return err
		}
		if _, err := db.Exec(ctx, `CREATE TABLE lead_form_data (
			lead_id        TEXT PRIMARY KEY REFERENCES leads(lead_id),
			biodata        TEXT,
			source_info    TEXT,
			business_type  TEXT,
			budget         TEXT,
			start_plan     TEXT,
			completed      BOOLEAN NOT NULL DEFAULT FALSE,
			created_at     TIMESTAMP NOT NULL,
			updated_at     TIMESTAMP NOT NULL
		)`); err != nil {
			return err
		}
		_, err = db.Exec(ctx, `CREATE TABLE reply_templates (
			key        TEXT PRIMARY KEY,
			body       TEXT NOT NULL,
			updated_at TIMESTAMP NOT NULL
		)`)
		return err
	})

	Upgrades.Register(2, 0, "Non-unique index on interactions by (lead_id, message_id)", false, func(ctx context.Context, db *dbutil.Database) error {
		_, err := db.Exec(ctx, `CREATE INDEX lead_interactions_message_id_idx ON lead_interactions(lead_id, message_id)`)
		return err
	})
}
