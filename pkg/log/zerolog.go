package log

import (
	"github.com/rs/zerolog"

	logadapter "github.com/bft-labs/livestream/internal/adapters/log"
)

// NewZerologLogger returns a Logger writing through logger.
func NewZerologLogger(logger zerolog.Logger) Logger {
	return logadapter.NewZerologAdapterWithLogger(logger)
}

// NewConsoleLogger returns a human-readable Logger on stderr with RFC3339
// timestamps, filtered at level.
func NewConsoleLogger(level zerolog.Level) Logger {
	z := logadapter.NewZerologAdapter().Logger().Level(level)
	return logadapter.NewZerologAdapterWithLogger(z)
}
