package ports

import (
	"context"

	"github.com/bft-labs/livestream/internal/domain"
)

// Encoder turns a stream of raw frames into a segmented HLS stream on disk.
// The default implementation is an ffmpeg subprocess fed through its stdin.
type Encoder interface {
	// Start launches the encoder for frames of the given format.
	Start(ctx context.Context, format domain.FrameFormat) error

	// Write pushes raw frame bytes into the encoder. It blocks while the
	// encoder's input pipe is full.
	Write(p []byte) (int, error)

	// Close ends the input stream and waits for the encoder to flush and exit.
	Close() error

	// Running reports whether the encoder process is alive.
	Running() bool
}

// PlaylistSubscriber receives a notification each time the playlist is rewritten.
// Implementations must not block; they are called from the watcher goroutine.
type PlaylistSubscriber interface {
	OnPlaylistUpdate(update domain.PlaylistUpdate)
}

// PlaylistSubscriberFunc adapts a function to PlaylistSubscriber.
type PlaylistSubscriberFunc func(update domain.PlaylistUpdate)

// OnPlaylistUpdate calls f(update).
func (f PlaylistSubscriberFunc) OnPlaylistUpdate(update domain.PlaylistUpdate) {
	f(update)
}
