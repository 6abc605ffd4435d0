// Package logger builds the zerolog logger used throughout the
// simulator. Every logger is built once by the driver and passed
// explicitly into the scenario builder, which hands it to the ledger; the
// dealer subsystem reuses the ledger's logger — there is no package-level
// global logger, matching spec.md §9's "no global
// mutable state" discipline.
package logger

import (
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
)

// Config holds logger configuration.
type Config struct {
	Level  string // debug, info, warn, error
	Pretty bool   // enable pretty console output (for interactive runs)
}

// New creates a structured logger per cfg. Callers that want a
// component-scoped sub-logger should call .With().Str("component",
// name).Logger() on the result rather than constructing a second root
// logger.
func New(cfg Config) zerolog.Logger {
	level := zerolog.InfoLevel
	switch cfg.Level {
	case "debug":
		level = zerolog.DebugLevel
	case "info":
		level = zerolog.InfoLevel
	case "warn":
		level = zerolog.WarnLevel
	case "error":
		level = zerolog.ErrorLevel
	}

	zerolog.TimeFieldFormat = time.RFC3339

	var output io.Writer = os.Stdout
	if cfg.Pretty {
		output = zerolog.ConsoleWriter{
			Out:        os.Stdout,
			TimeFormat: "15:04:05",
		}
	}

	return zerolog.New(output).
		Level(level).
		With().
		Timestamp().
		Logger()
}
