// Package logging wires zerolog the way the teacher bridge does: one
// process-wide base logger, a console writer in development, and a helper
// for pulling a request-scoped logger back out of a context.
package logging

import (
	"context"
	"os"
	"time"

	"github.com/rs/zerolog"
)

// New builds the base logger for the process.
func New(level string, pretty bool) zerolog.Logger {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil {
		lvl = zerolog.InfoLevel
	}
	zerolog.TimeFieldFormat = time.RFC3339
	out := os.Stderr
	if pretty {
		return zerolog.New(zerolog.ConsoleWriter{Out: out, TimeFormat: time.RFC3339}).
			Level(lvl).With().Timestamp().Logger()
	}
	return zerolog.New(out).Level(lvl).With().Timestamp().Logger()
}

// FromContext returns the logger attached to ctx if present, otherwise
// falls back to the given logger. Mirrors the teacher's loggerFromContext.
func FromContext(ctx context.Context, fallback *zerolog.Logger) *zerolog.Logger {
	if ctx != nil {
		if l := zerolog.Ctx(ctx); l != nil && l.GetLevel() != zerolog.Disabled {
			return l
		}
	}
	return fallback
}
