package livestream

import (
	"fmt"
	"path/filepath"
	"time"

	"github.com/bft-labs/livestream/internal/adapters/ffmpeg"
	httpAdapter "github.com/bft-labs/livestream/internal/adapters/http"
	"github.com/bft-labs/livestream/internal/app"
	"github.com/bft-labs/livestream/internal/domain"
)

// Frame sources selectable through Config.Source.
const (
	// SourceCamera reads the camera through OpenCV. The library cannot
	// build it without cgo; pass the source with WithFrameSource (the
	// livestream command does this).
	SourceCamera = "camera"

	// SourceCommand reads raw frames from a capture command's stdout,
	// ffmpeg's v4l2 input by default.
	SourceCommand = "command"

	// SourceTest generates a moving test pattern.
	SourceTest = "testsrc"
)

// Config configures a Stream. Zero values are filled in by SetDefaults.
type Config struct {
	// Source selects the frame source when none is injected with
	// WithFrameSource.
	Source string

	// Device is the camera index; DevicePath overrides /dev/video<Device>
	// for the command source.
	Device     int
	DevicePath string

	// CaptureCommand replaces the default capture argv of the command source.
	CaptureCommand []string

	Width       int
	Height      int
	FPS         float64
	PixelFormat string

	// OutputDir receives the playlist and segments; created on Start.
	OutputDir      string
	PlaylistName   string
	SegmentPattern string

	// CleanStart removes segments and playlists left by a previous run.
	CleanStart bool

	FFmpegPath  string
	Codec       string
	Preset      string
	Tune        string
	SegmentTime time.Duration

	// ListSize is the number of segments kept in the playlist; negative
	// keeps every segment.
	ListSize int

	// KeepSegments disables deletion of segments that left the playlist.
	KeepSegments bool

	FFmpegLogLevel string

	// ListenAddr is the HTTP listen address.
	ListenAddr string

	// Reconnect reopens the frame source after it fails, backing off up
	// to MaxBackoff.
	Reconnect  bool
	MaxBackoff time.Duration
}

// DefaultConfig returns the configuration of the stock pipeline: camera 0
// at 640x480/30fps BGR, libx264 veryfast, 2s segments, a 3 segment window
// under ./hls_stream, served on 0.0.0.0:5000.
func DefaultConfig() Config {
	f := domain.DefaultFrameFormat()
	ff := ffmpeg.DefaultConfig()
	return Config{
		Source:         SourceCamera,
		Width:          f.Width,
		Height:         f.Height,
		FPS:            f.FPS,
		PixelFormat:    f.PixelFormat,
		OutputDir:      ff.OutputDir,
		PlaylistName:   ff.PlaylistName,
		SegmentPattern: ff.SegmentPattern,
		CleanStart:     true,
		FFmpegPath:     ff.Binary,
		Codec:          ff.Codec,
		Preset:         ff.Preset,
		Tune:           ff.Tune,
		SegmentTime:    ff.SegmentTime,
		ListSize:       ff.ListSize,
		FFmpegLogLevel: ff.LogLevel,
		ListenAddr:     httpAdapter.DefaultAddr,
		MaxBackoff:     app.DefaultBackoffMax,
	}
}

// SetDefaults fills zero fields from DefaultConfig. Booleans are left alone.
func (c *Config) SetDefaults() {
	d := DefaultConfig()
	if c.Source == "" {
		c.Source = d.Source
	}
	if c.Width == 0 {
		c.Width = d.Width
	}
	if c.Height == 0 {
		c.Height = d.Height
	}
	if c.FPS == 0 {
		c.FPS = d.FPS
	}
	if c.PixelFormat == "" {
		c.PixelFormat = d.PixelFormat
	}
	if c.OutputDir == "" {
		c.OutputDir = d.OutputDir
	}
	if c.PlaylistName == "" {
		c.PlaylistName = d.PlaylistName
	}
	if c.SegmentPattern == "" {
		c.SegmentPattern = d.SegmentPattern
	}
	if c.FFmpegPath == "" {
		c.FFmpegPath = d.FFmpegPath
	}
	if c.Codec == "" {
		c.Codec = d.Codec
	}
	if c.Preset == "" {
		c.Preset = d.Preset
	}
	if c.SegmentTime == 0 {
		c.SegmentTime = d.SegmentTime
	}
	if c.ListSize == 0 {
		c.ListSize = d.ListSize
	}
	if c.FFmpegLogLevel == "" {
		c.FFmpegLogLevel = d.FFmpegLogLevel
	}
	if c.ListenAddr == "" {
		c.ListenAddr = d.ListenAddr
	}
	if c.MaxBackoff == 0 {
		c.MaxBackoff = d.MaxBackoff
	}
}

// Validate checks the configuration. Errors wrap ErrInvalidConfig or
// ErrUnsupportedPixelFormat.
func (c Config) Validate() error {
	switch c.Source {
	case SourceCamera, SourceCommand, SourceTest:
	default:
		return fmt.Errorf("%w: unknown source %q", ErrInvalidConfig, c.Source)
	}
	if c.Device < 0 {
		return fmt.Errorf("%w: device index must not be negative", ErrInvalidConfig)
	}
	if err := c.Format().Validate(); err != nil {
		return err
	}
	if c.OutputDir == "" {
		return fmt.Errorf("%w: output directory is required", ErrInvalidConfig)
	}
	if c.PlaylistName != filepath.Base(c.PlaylistName) || filepath.Ext(c.PlaylistName) != ".m3u8" {
		return fmt.Errorf("%w: playlist name %q must be a plain .m3u8 file name", ErrInvalidConfig, c.PlaylistName)
	}
	if c.SegmentTime < 0 {
		return fmt.Errorf("%w: segment time must be positive", ErrInvalidConfig)
	}
	if c.MaxBackoff < 0 {
		return fmt.Errorf("%w: max backoff must not be negative", ErrInvalidConfig)
	}
	return nil
}

// Format returns the raw frame format shared by the source and the encoder.
func (c Config) Format() FrameFormat {
	return domain.FrameFormat{
		Width:       c.Width,
		Height:      c.Height,
		FPS:         c.FPS,
		PixelFormat: c.PixelFormat,
	}
}

// PlaylistPath returns the on-disk path of the playlist.
func (c Config) PlaylistPath() string {
	return filepath.Join(c.OutputDir, c.PlaylistName)
}

func (c Config) encoderConfig() ffmpeg.Config {
	listSize := c.ListSize
	if listSize < 0 {
		listSize = 0
	}
	return ffmpeg.Config{
		Binary:         c.FFmpegPath,
		OutputDir:      c.OutputDir,
		PlaylistName:   c.PlaylistName,
		SegmentPattern: c.SegmentPattern,
		Codec:          c.Codec,
		Preset:         c.Preset,
		Tune:           c.Tune,
		SegmentTime:    c.SegmentTime,
		ListSize:       listSize,
		DeleteSegments: !c.KeepSegments,
		LogLevel:       c.FFmpegLogLevel,
	}
}
