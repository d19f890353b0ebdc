package log

import (
	"time"

	"github.com/bft-labs/livestream/internal/ports"
)

// Logger provides structured logging. It is the same interface the
// stream service logs through internally.
type Logger = ports.Logger

// Field is a key-value pair attached to a log message.
type Field = ports.Field

func String(key, value string) Field { return ports.String(key, value) }
func Int(key string, value int) Field { return ports.Int(key, value) }
func Int64(key string, value int64) Field { return ports.Int64(key, value) }
func Uint64(key string, value uint64) Field { return ports.Uint64(key, value) }
func Float64(key string, value float64) Field { return ports.Float64(key, value) }
func Bool(key string, value bool) Field { return ports.Bool(key, value) }
func Duration(key string, value time.Duration) Field { return ports.Duration(key, value) }
func Any(key string, value interface{}) Field { return ports.Any(key, value) }

// Err creates an error field with key "error".
func Err(err error) Field { return ports.Err(err) }
