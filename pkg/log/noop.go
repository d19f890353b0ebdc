package log

import logadapter "github.com/bft-labs/livestream/internal/adapters/log"

// NewNoopLogger returns a Logger that discards everything.
func NewNoopLogger() Logger {
	return logadapter.NewNoopLogger()
}
