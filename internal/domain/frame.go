package domain

import (
	"fmt"
	"time"
)

// Pixel formats understood by both the capture side and ffmpeg's rawvideo demuxer.
const (
	PixelFormatBGR24   = "bgr24"
	PixelFormatRGB24   = "rgb24"
	PixelFormatYUV420P = "yuv420p"
	PixelFormatYUYV422 = "yuyv422"
	PixelFormatGray    = "gray"
)

// FrameFormat describes the raw frames flowing from the camera into the encoder.
// Both sides must agree on it: ffmpeg cannot recover frame boundaries from a raw pipe.
type FrameFormat struct {
	Width       int
	Height      int
	FPS         float64
	PixelFormat string
}

// DefaultFrameFormat returns 640x480 BGR at 30 fps.
func DefaultFrameFormat() FrameFormat {
	return FrameFormat{
		Width:       640,
		Height:      480,
		FPS:         30,
		PixelFormat: PixelFormatBGR24,
	}
}

// FrameSize returns the exact byte length of one frame, or 0 if the pixel format is unknown.
func (f FrameFormat) FrameSize() int {
	pixels := f.Width * f.Height
	switch f.PixelFormat {
	case PixelFormatBGR24, PixelFormatRGB24:
		return pixels * 3
	case PixelFormatYUV420P:
		return pixels * 3 / 2
	case PixelFormatYUYV422:
		return pixels * 2
	case PixelFormatGray:
		return pixels
	default:
		return 0
	}
}

// Resolution returns the size in ffmpeg notation, e.g. "640x480".
func (f FrameFormat) Resolution() string {
	return fmt.Sprintf("%dx%d", f.Width, f.Height)
}

// FrameInterval returns the nominal time between two frames.
func (f FrameFormat) FrameInterval() time.Duration {
	if f.FPS <= 0 {
		return 0
	}
	return time.Duration(float64(time.Second) / f.FPS)
}

// Validate reports whether the format can be handed to the encoder.
func (f FrameFormat) Validate() error {
	if f.Width <= 0 || f.Height <= 0 {
		return fmt.Errorf("%w: frame size %dx%d", ErrInvalidConfig, f.Width, f.Height)
	}
	if f.FPS <= 0 {
		return fmt.Errorf("%w: fps must be positive", ErrInvalidConfig)
	}
	if f.FrameSize() == 0 {
		return fmt.Errorf("%w: %q", ErrUnsupportedPixelFormat, f.PixelFormat)
	}
	return nil
}

// Frame is one raw frame as read from the camera.
type Frame struct {
	// Seq is the capture sequence number, starting at 1 for each opened source.
	Seq uint64

	// Data holds exactly FrameSize() bytes for a well-formed frame.
	Data []byte

	// CapturedAt is the wall-clock time the frame was read.
	CapturedAt time.Time
}
