package domain

import "errors"

// Domain errors represent error conditions in the livestream domain.
// These errors are returned by the public API and can be checked with errors.Is.
var (
	// ErrAlreadyRunning is returned when Start() is called on a running instance.
	ErrAlreadyRunning = errors.New("livestream: already running")

	// ErrNotRunning is returned when Stop() is called on a stopped instance.
	ErrNotRunning = errors.New("livestream: not running")

	// ErrShutdownTimeout is returned when graceful shutdown times out.
	ErrShutdownTimeout = errors.New("livestream: shutdown timeout")

	// ErrInvalidConfig is returned when configuration validation fails.
	ErrInvalidConfig = errors.New("livestream: invalid configuration")

	// ErrCameraOpen is returned when the frame source cannot be opened.
	ErrCameraOpen = errors.New("livestream: could not open video device")

	// ErrEncoderNotRunning is returned when frames are written before the encoder starts
	// or after it has exited.
	ErrEncoderNotRunning = errors.New("livestream: encoder not running")

	// ErrUnsupportedPixelFormat is returned for pixel formats without a known frame size.
	ErrUnsupportedPixelFormat = errors.New("livestream: unsupported pixel format")
)
