package cliconfig

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// Log output formats.
const (
	LogFormatConsole = "console"
	LogFormatJSON    = "json"
)

// ParseLogLevel maps a level name (debug, info, warn, error, ...) to zerolog.
func ParseLogLevel(s string) (zerolog.Level, error) {
	if s == "" {
		return zerolog.InfoLevel, nil
	}
	lvl, err := zerolog.ParseLevel(strings.ToLower(s))
	if err != nil {
		return zerolog.NoLevel, fmt.Errorf("invalid log level %q", s)
	}
	return lvl, nil
}

// NewLogger builds the process logger for cfg, writing to stderr.
func NewLogger(cfg Config) (zerolog.Logger, error) {
	return newLogger(cfg, os.Stderr)
}

func newLogger(cfg Config, out io.Writer) (zerolog.Logger, error) {
	lvl, err := ParseLogLevel(cfg.LogLevel)
	if err != nil {
		return zerolog.Nop(), err
	}

	w := out
	if cfg.LogFormat != LogFormatJSON {
		w = zerolog.ConsoleWriter{Out: out, TimeFormat: time.RFC3339}
	}
	return zerolog.New(w).Level(lvl).With().Timestamp().Logger(), nil
}
