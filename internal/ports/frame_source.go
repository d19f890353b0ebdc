package ports

import (
	"context"

	"github.com/bft-labs/livestream/internal/domain"
)

// FrameSource produces raw frames from a camera or camera-like device.
// Reads are blocking; a source is used by a single goroutine.
type FrameSource interface {
	// Open acquires the device and prepares it to emit frames in the given format.
	// Returns an error if the device cannot be opened.
	Open(ctx context.Context, format domain.FrameFormat) error

	// Read fills frame with the next captured frame.
	// Returns io.EOF when the device stops producing frames.
	Read(ctx context.Context, frame *domain.Frame) error

	// Close releases the device.
	Close() error
}
