package livestream

import (
	"github.com/bft-labs/livestream/internal/app"
	"github.com/bft-labs/livestream/internal/domain"
	"github.com/bft-labs/livestream/internal/ports"
)

// Errors returned by the public API; check them with errors.Is.
var (
	ErrAlreadyRunning         = domain.ErrAlreadyRunning
	ErrNotRunning             = domain.ErrNotRunning
	ErrShutdownTimeout        = domain.ErrShutdownTimeout
	ErrInvalidConfig          = domain.ErrInvalidConfig
	ErrCameraOpen             = domain.ErrCameraOpen
	ErrEncoderNotRunning      = domain.ErrEncoderNotRunning
	ErrUnsupportedPixelFormat = domain.ErrUnsupportedPixelFormat
)

type (
	// FrameFormat describes the raw frames piped into the encoder.
	FrameFormat = domain.FrameFormat

	// Frame is one raw frame.
	Frame = domain.Frame

	// Playlist is a parsed HLS media playlist.
	Playlist = domain.Playlist

	// Segment is one playlist entry.
	Segment = domain.Segment

	// FrameSource produces raw frames; see WithFrameSource.
	FrameSource = ports.FrameSource

	// Encoder consumes raw frames and writes HLS output; see WithEncoder.
	Encoder = ports.Encoder

	// Logger is the structured logger used by the service.
	Logger = ports.Logger

	// LogField is a structured log field.
	LogField = ports.Field
)

// State is the lifecycle state of a Stream.
type State int

const (
	StateStopped State = iota
	StateStarting
	StateRunning
	StateStopping
	StateCrashed
)

func (s State) String() string {
	return app.State(s).String()
}

func convertState(s app.State) State {
	switch s {
	case app.StateStopped:
		return StateStopped
	case app.StateStarting:
		return StateStarting
	case app.StateRunning:
		return StateRunning
	case app.StateStopping:
		return StateStopping
	case app.StateCrashed:
		return StateCrashed
	default:
		return StateStopped
	}
}

// Stats is a snapshot of the capture side of a Stream.
type Stats struct {
	CaptureRunning bool
	EncoderRunning bool
	Frames         uint64
	Dropped        uint64
	BytesWritten   uint64
}
