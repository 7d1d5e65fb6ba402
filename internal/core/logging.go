package core

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// ParseLevel maps a level name to a zerolog level.
// Unknown names fall back to info.
func ParseLevel(lvl string) zerolog.Level {
	switch strings.ToLower(strings.TrimSpace(lvl)) {
	case "debug":
		return zerolog.DebugLevel
	case "info", "":
		return zerolog.InfoLevel
	case "warn", "warning":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	case "disabled":
		return zerolog.Disabled
	default:
		return zerolog.InfoLevel
	}
}

// NewLogger builds the logger shared by the api, cache and queries layers.
//
// Production runs get a no-op logger unless debug was requested explicitly,
// so request/response tracing never reaches end users by accident.
// Everywhere else output goes to stderr in console format; verbose forces debug.
func NewLogger(cfg Config, verbose bool) zerolog.Logger {
	return newLogger(os.Stderr, cfg, verbose)
}

func newLogger(w io.Writer, cfg Config, verbose bool) zerolog.Logger {
	level := ParseLevel(cfg.LogLevel)
	if cfg.IsProduction() && level != zerolog.DebugLevel {
		return zerolog.Nop()
	}
	if verbose {
		level = zerolog.DebugLevel
	}
	out := zerolog.ConsoleWriter{Out: w, TimeFormat: time.TimeOnly, NoColor: true}
	return zerolog.New(out).Level(level).With().Timestamp().Logger()
}
