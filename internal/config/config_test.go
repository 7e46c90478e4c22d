package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("LEADS_REDIS_ADDR", "127.0.0.1:6379")
	cfg, err := Load()
	require.NoError(t, err)
	require.Equal(t, 10*time.Second, cfg.LockTTL)
	require.Equal(t, 2*time.Second, cfg.UserCooldown)
	require.Equal(t, "before_commit", cfg.IdempotencyMarkTiming)
	require.True(t, cfg.IdentityMergeReparentInteractions)
	require.Equal(t, "sqlite3", cfg.DatabaseDriver)
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("LEADS_MAX_WARNINGS", "5")
	t.Setenv("LEADS_DATABASE_DRIVER", "postgres")
	cfg, err := Load()
	require.NoError(t, err)
	require.Equal(t, 5, cfg.MaxWarnings)
	require.Equal(t, "postgres", cfg.DatabaseDriver)
}

func TestLoad_RejectsInvalidDriver(t *testing.T) {
	t.Setenv("LEADS_DATABASE_DRIVER", "mysql")
	_, err := Load()
	require.Error(t, err)
}
