// Package logging configures structured logging with zerolog.
package logging

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// Options holds logger configuration.
type Options struct {
	// Level is the minimum level emitted.
	Level zerolog.Level
	// Output defaults to os.Stderr.
	Output io.Writer
	// Pretty enables human-readable console output for interactive use.
	Pretty bool
}

// New builds a logger. Components receive it by value (or a child via
// With) rather than reaching for a package global.
func New(opts Options) zerolog.Logger {
	if opts.Output == nil {
		opts.Output = os.Stderr
	}
	out := opts.Output
	if opts.Pretty {
		out = zerolog.ConsoleWriter{Out: opts.Output, TimeFormat: time.RFC3339}
	}
	return zerolog.New(out).Level(opts.Level).With().Timestamp().Logger()
}

// ParseLevel maps a config string to a zerolog level, defaulting to
// info for anything unrecognized.
func ParseLevel(level string) zerolog.Level {
	switch strings.ToUpper(strings.TrimSpace(level)) {
	case "DEBUG":
		return zerolog.DebugLevel
	case "INFO":
		return zerolog.InfoLevel
	case "WARN", "WARNING":
		return zerolog.WarnLevel
	case "ERROR":
		return zerolog.ErrorLevel
	case "FATAL":
		return zerolog.FatalLevel
	default:
		return zerolog.InfoLevel
	}
}
