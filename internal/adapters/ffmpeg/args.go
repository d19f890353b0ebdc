package ffmpeg

import (
	"fmt"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/bft-labs/livestream/internal/domain"
)

// Config holds the encoder settings. Zero values are replaced by DefaultConfig values.
type Config struct {
	// Binary is the ffmpeg executable name or path.
	Binary string

	// OutputDir receives the playlist and the segment files.
	OutputDir string

	// PlaylistName is the playlist file name inside OutputDir.
	PlaylistName string

	// SegmentPattern is the printf-style segment file name inside OutputDir.
	SegmentPattern string

	Codec  string
	Preset string
	Tune   string

	// SegmentTime is the target segment duration (-hls_time).
	SegmentTime time.Duration

	// ListSize is the number of segments kept in the playlist (-hls_list_size).
	ListSize int

	// DeleteSegments removes segments that fell out of the playlist.
	DeleteSegments bool

	// LogLevel is passed to ffmpeg's -loglevel.
	LogLevel string
}

// DefaultConfig returns libx264/veryfast tuned for latency,
// 2 second segments, a 3 segment window, old segments deleted.
func DefaultConfig() Config {
	return Config{
		Binary:         "ffmpeg",
		OutputDir:      "hls_stream",
		PlaylistName:   "index.m3u8",
		SegmentPattern: "segment_%03d.ts",
		Codec:          "libx264",
		Preset:         "veryfast",
		Tune:           "zerolatency",
		SegmentTime:    2 * time.Second,
		ListSize:       3,
		DeleteSegments: true,
		LogLevel:       "warning",
	}
}

func (c *Config) setDefaults() {
	d := DefaultConfig()
	if c.Binary == "" {
		c.Binary = d.Binary
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
	if c.Codec == "" {
		c.Codec = d.Codec
	}
	if c.Preset == "" {
		c.Preset = d.Preset
	}
	if c.SegmentTime <= 0 {
		c.SegmentTime = d.SegmentTime
	}
	if c.ListSize < 0 {
		c.ListSize = d.ListSize
	}
	if c.LogLevel == "" {
		c.LogLevel = d.LogLevel
	}
}

// PlaylistPath returns the full path of the playlist file.
func (c Config) PlaylistPath() string {
	return filepath.Join(c.OutputDir, c.PlaylistName)
}

// Args builds the ffmpeg argument list reading raw frames of format f from stdin
// and writing an HLS playlist plus segments into cfg.OutputDir.
func Args(cfg Config, f domain.FrameFormat) []string {
	cfg.setDefaults()

	args := []string{
		"-hide_banner",
		"-loglevel", cfg.LogLevel,
		"-y",
		"-f", "rawvideo",
		"-pix_fmt", f.PixelFormat,
		"-s", f.Resolution(),
		"-r", formatFPS(f.FPS),
		"-i", "-",
		"-c:v", cfg.Codec,
		"-preset", cfg.Preset,
	}
	if cfg.Tune != "" {
		args = append(args, "-tune", cfg.Tune)
	}

	// One keyframe per second keeps every segment boundary cuttable.
	if gop := int(f.FPS + 0.5); gop > 0 {
		args = append(args,
			"-g", strconv.Itoa(gop),
			"-keyint_min", strconv.Itoa(gop),
			"-sc_threshold", "0",
		)
	}

	// libx264 refuses bgr24 input for most profiles; convert explicitly.
	args = append(args, "-pix_fmt", "yuv420p")

	args = append(args,
		"-f", "hls",
		"-hls_time", formatSeconds(cfg.SegmentTime),
		"-hls_list_size", strconv.Itoa(cfg.ListSize),
	)
	if flags := hlsFlags(cfg); flags != "" {
		args = append(args, "-hls_flags", flags)
	}
	args = append(args,
		"-hls_segment_filename", filepath.Join(cfg.OutputDir, cfg.SegmentPattern),
		cfg.PlaylistPath(),
	)
	return args
}

func hlsFlags(cfg Config) string {
	var flags []string
	if cfg.DeleteSegments {
		flags = append(flags, "delete_segments")
	}
	return strings.Join(flags, "+")
}

func formatFPS(fps float64) string {
	if fps == float64(int(fps)) {
		return strconv.Itoa(int(fps))
	}
	return strconv.FormatFloat(fps, 'f', 3, 64)
}

func formatSeconds(d time.Duration) string {
	if d%time.Second == 0 {
		return strconv.Itoa(int(d / time.Second))
	}
	return fmt.Sprintf("%.3f", d.Seconds())
}
