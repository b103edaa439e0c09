// Package diag configures structured diagnostics for the CLI.
package diag

import (
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
)

// New returns a console logger on stderr. Debug mode lowers the level
// to include per-file and per-pair diagnostics.
func New(debug bool) zerolog.Logger {
	return NewWriter(os.Stderr, debug)
}

// NewWriter is New with an explicit sink, for tests.
func NewWriter(w io.Writer, debug bool) zerolog.Logger {
	level := zerolog.WarnLevel
	if debug {
		level = zerolog.DebugLevel
	}
	out := zerolog.ConsoleWriter{Out: w, TimeFormat: time.Kitchen}
	return zerolog.New(out).Level(level).With().Timestamp().Logger()
}
