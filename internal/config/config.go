// Package config loads the process configuration described in spec §6 from
// environment variables, using koanf's env provider layered over a
// defaults map, and validates the result with struct tags.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/v2"
	"gopkg.in/yaml.v3"
)

// ConfigFileEnvVar names the environment variable pointing at an optional
// YAML file layered between defaults and the environment (file values
// override defaults, environment variables override the file). Most
// deployments only ever set environment variables; the file exists for
// local development where a checked-in config.yaml is more convenient than
// a long list of LEADS_* exports.
const ConfigFileEnvVar = "LEADS_CONFIG_FILE"

// EnvPrefix is the prefix every recognized environment variable carries,
// e.g. LEADS_LOCK_TTL_SECONDS.
const EnvPrefix = "LEADS_"

// Config is the fully-resolved process configuration.
type Config struct {
	// Admission control (spec §4.B, §4.C, §4.A)
	LockTTL               time.Duration `koanf:"lock_ttl_seconds" validate:"required"`
	UserCooldown          time.Duration `koanf:"user_cooldown_seconds" validate:"required"`
	IdempotencyTTL        time.Duration `koanf:"idempotency_ttl_seconds" validate:"required"`
	LockMaxAttempts       int           `koanf:"lock_max_attempts" validate:"min=1"`

	// Escalation (spec §4.E, §4.I)
	MaxWarnings int `koanf:"max_warnings" validate:"min=1"`

	// Job dispatcher retry policy (spec §4.J)
	SpreadsheetSyncMaxAttempts  int `koanf:"spreadsheet_sync_max_attempts" validate:"min=1"`
	OperatorNotifyMaxAttempts   int `koanf:"operator_notify_max_attempts" validate:"min=1"`

	// Open questions resolved as config, not hidden behavior (spec §9)
	IdempotencyMarkTiming             string `koanf:"idempotency_mark_timing" validate:"oneof=before_commit after_commit"`
	IdentityMergeReparentInteractions bool   `koanf:"identity_merge_reparent_interactions"`

	// Backing services
	RedisAddr   string `koanf:"redis_addr" validate:"required"`
	RedisDB     int    `koanf:"redis_db"`
	DatabaseDSN string `koanf:"database_dsn" validate:"required"`
	DatabaseDriver string `koanf:"database_driver" validate:"oneof=sqlite3 postgres"`

	// HTTP transport
	ListenAddr      string        `koanf:"listen_addr" validate:"required"`
	RequestDeadline time.Duration `koanf:"request_deadline_seconds" validate:"required"`
	BasePath        string        `koanf:"base_path"`

	// Templates
	TemplatesOverridePath string `koanf:"templates_override_path"`

	// Downstream notification target, opaque to the core (spec §6)
	OperatorNotifyChatID string `koanf:"operator_notify_chat_id"`

	LogLevel  string `koanf:"log_level" validate:"oneof=debug info warn error"`
	LogPretty bool   `koanf:"log_pretty"`
}

// defaults mirrors spec §6's documented default values.
func defaults() map[string]any {
	return map[string]any{
		"lock_ttl_seconds":                      "10s",
		"user_cooldown_seconds":                 "2s",
		"idempotency_ttl_seconds":                "86400s",
		"lock_max_attempts":                     3,
		"max_warnings":                          3,
		"spreadsheet_sync_max_attempts":         5,
		"operator_notify_max_attempts":          3,
		"idempotency_mark_timing":               "before_commit",
		"identity_merge_reparent_interactions":  true,
		"redis_addr":                            "127.0.0.1:6379",
		"redis_db":                              0,
		"database_dsn":                          "leads.db",
		"database_driver":                       "sqlite3",
		"listen_addr":                           ":8080",
		"request_deadline_seconds":              "30s",
		"base_path":                             "",
		"templates_override_path":               "",
		"operator_notify_chat_id":                "",
		"log_level":                             "info",
		"log_pretty":                            false,
	}
}

// Load reads configuration from the process environment, falling back to
// spec-documented defaults for anything unset, and validates the result.
func Load() (*Config, error) {
	k := koanf.New(".")
	if err := k.Load(confmap.Provider(defaults(), "."), nil); err != nil {
		return nil, fmt.Errorf("config: load defaults: %w", err)
	}

	if path := os.Getenv(ConfigFileEnvVar); path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("config: read %s: %w", path, err)
		}
		var fileValues map[string]any
		if err := yaml.Unmarshal(data, &fileValues); err != nil {
			return nil, fmt.Errorf("config: parse %s: %w", path, err)
		}
		if err := k.Load(confmap.Provider(fileValues, "."), nil); err != nil {
			return nil, fmt.Errorf("config: load %s: %w", path, err)
		}
	}

	envProvider := env.ProviderWithValue(EnvPrefix, ".", func(key, value string) (string, any) {
		key = strings.ToLower(strings.TrimPrefix(key, EnvPrefix))
		return key, value
	})
	if err := k.Load(envProvider, nil); err != nil {
		return nil, fmt.Errorf("config: load environment: %w", err)
	}

	cfg := &Config{}
	if err := k.UnmarshalWithConf("", cfg, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return nil, fmt.Errorf("config: unmarshal: %w", err)
	}
	// Durations are stored as Go duration strings (e.g. "10s"); koanf's
	// default unmarshaler handles time.Duration via mapstructure's duration
	// hook, but the *_seconds suffix is kept for readability of the env var
	// names documented in spec §6.
	if err := validator.New().Struct(cfg); err != nil {
		return nil, fmt.Errorf("config: validate: %w", err)
	}
	return cfg, nil
}
