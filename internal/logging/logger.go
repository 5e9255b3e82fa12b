// Package logging builds the structured logger shared by every command.
package logging

import (
	"io"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Component is attached to every log line.
const Component = "impact"

// NewRunID returns a fresh identifier correlating the log lines of one invocation.
func NewRunID() string {
	return uuid.NewString()
}

// NewLogger creates a human-readable logger writing to stderr.
// An unknown level falls back to warn.
func NewLogger(level string, runID string) zerolog.Logger {
	writer := zerolog.ConsoleWriter{
		Out:        os.Stderr,
		TimeFormat: time.RFC3339,
	}
	return newLogger(writer, level, runID)
}

// NewJSONLogger creates a logger that writes one JSON object per line to w.
// serve uses it for the HTTP request log.
func NewJSONLogger(w io.Writer, level string, runID string) zerolog.Logger {
	return newLogger(w, level, runID)
}

func newLogger(w io.Writer, level string, runID string) zerolog.Logger {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil || lvl == zerolog.NoLevel {
		lvl = zerolog.WarnLevel
	}

	logger := zerolog.New(w).
		Level(lvl).
		With().
		Timestamp().
		Str("component", Component).
		Logger()

	if runID != "" {
		logger = logger.With().Str("run_id", runID).Logger()
	}
	return logger
}
