// Package logging configures the shared zerolog logger for utac.
//
// Commands call Setup once during startup; pipeline components receive the
// logger via L() or carry a child logger created with L().With(). User-facing
// output (tables, progress bars) goes through internal/output instead — the
// zerolog stream is for diagnostics only.
package logging

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
)

var logger zerolog.Logger = zerolog.New(io.Discard)

// Setup initializes the package logger. Diagnostics are written to stderr in
// console format so they never interleave with table output on stdout. When
// logFile is non-empty the same stream is appended there as well. debug
// lowers the level from warn to debug.
func Setup(debug bool, logFile string) error {
	level := zerolog.WarnLevel
	if debug {
		level = zerolog.DebugLevel
	}

	var out io.Writer = zerolog.ConsoleWriter{
		Out:        os.Stderr,
		TimeFormat: "15:04:05",
	}

	if logFile != "" {
		f, err := os.OpenFile(logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			return fmt.Errorf("failed to open log file: %w", err)
		}
		// The file gets plain JSON lines; the console keeps the pretty format.
		out = io.MultiWriter(out, f)
	}

	logger = zerolog.New(out).With().Timestamp().Logger().Level(level)
	return nil
}

// L returns the shared logger. Before Setup is called it discards everything,
// which keeps library code safe to use from tests without initialization.
func L() *zerolog.Logger {
	return &logger
}

// SetOutput replaces the logger output entirely. Used by tests to capture
// diagnostics.
func SetOutput(w io.Writer) {
	logger = zerolog.New(zerolog.ConsoleWriter{Out: w, TimeFormat: time.RFC3339, NoColor: true}).
		With().Timestamp().Logger().Level(zerolog.DebugLevel)
}
