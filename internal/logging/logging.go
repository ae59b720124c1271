// Package logging provides the configured zerolog logger for the journal.
package logging

import (
	"io"
	"os"
	"strings"

	"github.com/rs/zerolog"
)

// ServiceName tags every log line.
const ServiceName = "journal"

// New returns a logger writing JSON lines to w at the given level.
// A nil writer means os.Stderr; stdout is reserved for command output.
func New(w io.Writer, level zerolog.Level) zerolog.Logger {
	if w == nil {
		w = os.Stderr
	}
	return zerolog.New(w).Level(level).With().
		Str("service", ServiceName).
		Timestamp().
		Logger()
}

// NewConsole returns a human-readable logger for interactive use.
func NewConsole(w io.Writer, level zerolog.Level) zerolog.Logger {
	if w == nil {
		w = os.Stderr
	}
	return New(zerolog.ConsoleWriter{Out: w, TimeFormat: "15:04:05"}, level)
}

// ParseLevel maps a level name to a zerolog level. Unknown or empty
// names resolve to info.
func ParseLevel(name string) zerolog.Level {
	lvl, err := zerolog.ParseLevel(strings.ToLower(strings.TrimSpace(name)))
	if err != nil || lvl == zerolog.NoLevel {
		return zerolog.InfoLevel
	}
	return lvl
}
