package leadstore

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"
	"go.mau.fi/util/dbutil"

	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
)

// Store is the Lead Store of spec §4.D, backed by dbutil.Database the same
// way the teacher's memory manager and textfs store use it. The underlying
// driver is sqlite3 in development/tests and can be switched to postgres in
// production by configuration alone (component N of SPEC_FULL.md).
type Store struct {
	db  *dbutil.Database
	log zerolog.Logger
}

// Open connects to driverName/dsn, runs pending migrations, and returns a
// ready Store.
func Open(ctx context.Context, driverName, dsn string, log zerolog.Logger) (*Store, error) {
	db, err := dbutil.NewFromConfig("chatbot-leads", dbutil.Config{
		PoolConfig: dbutil.PoolConfig{
			Type:         driverName,
			URI:          dsn,
			MaxOpenConns: 10,
			MaxIdleConns: 5,
		},
	}, dbutil.ZeroLogger(log))
	if err != nil {
		return nil, fmt.Errorf("leadstore: open %s: %w", driverName, err)
	}
	db.UpgradeTable = Upgrades
	if err := db.Upgrade(ctx); err != nil {
		return nil, fmt.Errorf("leadstore: migrate: %w", err)
	}
	return &Store{db: db, log: log}, nil
}

// WithTransaction opens the single outer transaction spec §4.D/§5/§9
// requires: every state mutation and job enqueue for one inbound message
// happens inside it, committed once at the end of the handler pipeline.
func (s *Store) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	return s.db.DoTxn(ctx, nil, fn)
}

func (s *Store) Close() error {
	return s.db.RawDB.Close()
}
