// Package logger builds the application's zerolog logger.
//
// Development gets human-readable console output at DEBUG, staging and
// production get one JSON object per line (INFO in prod) so log
// aggregators can index the fields.
package logger

import (
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
)

// New returns a logger for env writing to stdout. A non-empty level
// overrides the per-environment default.
func New(env, level string) zerolog.Logger {
	return NewWithWriter(os.Stdout, env, level)
}

// NewWithWriter is New with an explicit destination.
func NewWithWriter(w io.Writer, env, level string) zerolog.Logger {
	var out io.Writer = w
	lvl := zerolog.DebugLevel

	switch env {
	case "prod":
		lvl = zerolog.InfoLevel
	case "staging":
	default:
		out = zerolog.ConsoleWriter{Out: w, TimeFormat: time.RFC3339}
	}

	if level != "" {
		if parsed, err := zerolog.ParseLevel(level); err == nil {
			lvl = parsed
		}
	}

	return zerolog.New(out).
		Level(lvl).
		With().
		Timestamp().
		Str("service", "records-api").
		Logger()
}
