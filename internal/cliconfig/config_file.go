package cliconfig

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	toml "github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

// FileConfig mirrors Config but uses strings for durations to make TOML
// and YAML friendly. Pointers distinguish unset from zero.
type FileConfig struct {
	Source         string   `toml:"source" yaml:"source"`
	Device         *int     `toml:"device" yaml:"device"`
	DevicePath     string   `toml:"device_path" yaml:"device_path"`
	CaptureCommand []string `toml:"capture_command" yaml:"capture_command"`

	Width       int     `toml:"width" yaml:"width"`
	Height      int     `toml:"height" yaml:"height"`
	FPS         float64 `toml:"fps" yaml:"fps"`
	PixelFormat string  `toml:"pixel_format" yaml:"pixel_format"`

	OutputDir      string `toml:"output_dir" yaml:"output_dir"`
	PlaylistName   string `toml:"playlist_name" yaml:"playlist_name"`
	SegmentPattern string `toml:"segment_pattern" yaml:"segment_pattern"`
	CleanStart     *bool  `toml:"clean_start" yaml:"clean_start"`

	FFmpegPath     string `toml:"ffmpeg_path" yaml:"ffmpeg_path"`
	Codec          string `toml:"codec" yaml:"codec"`
	Preset         string `toml:"preset" yaml:"preset"`
	Tune           string `toml:"tune" yaml:"tune"`
	SegmentTime    string `toml:"segment_time" yaml:"segment_time"`
	ListSize       *int   `toml:"list_size" yaml:"list_size"`
	KeepSegments   *bool  `toml:"keep_segments" yaml:"keep_segments"`
	FFmpegLogLevel string `toml:"ffmpeg_log_level" yaml:"ffmpeg_log_level"`

	Listen string `toml:"listen" yaml:"listen"`

	Reconnect  *bool  `toml:"reconnect" yaml:"reconnect"`
	MaxBackoff string `toml:"max_backoff" yaml:"max_backoff"`

	LogLevel  string `toml:"log_level" yaml:"log_level"`
	LogFormat string `toml:"log_format" yaml:"log_format"`
}

// LoadFileConfig reads and parses a config file from the given path.
// Files ending in .yaml or .yml are parsed as YAML, anything else as TOML.
func LoadFileConfig(path string) (FileConfig, error) {
	var fc FileConfig
	b, err := os.ReadFile(path)
	if err != nil {
		return fc, err
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(b, &fc); err != nil {
			return fc, fmt.Errorf("parse %s: %w", path, err)
		}
	default:
		if err := toml.Unmarshal(b, &fc); err != nil {
			return fc, fmt.Errorf("parse %s: %w", path, err)
		}
	}
	return fc, nil
}

// DefaultConfigPath returns the default configuration file path.
// Returns ~/.livestream/config.toml if user home directory is accessible.
func DefaultConfigPath() string {
	if h, err := os.UserHomeDir(); err == nil {
		return filepath.Join(h, ".livestream", "config.toml")
	}
	return ""
}

// ApplyFileConfig applies configuration from a file to the Config struct.
// It respects flags that have been explicitly set (changed map).
func ApplyFileConfig(cfg *Config, fc FileConfig, changed map[string]bool) error {
	s := newConfigSetter(changed)

	s.setString("source", fc.Source, &cfg.Source)
	s.setString("device-path", fc.DevicePath, &cfg.DevicePath)
	s.setString("pixel-format", fc.PixelFormat, &cfg.PixelFormat)
	s.setString("output-dir", fc.OutputDir, &cfg.OutputDir)
	s.setString("playlist", fc.PlaylistName, &cfg.PlaylistName)
	s.setString("segment-pattern", fc.SegmentPattern, &cfg.SegmentPattern)
	s.setString("ffmpeg", fc.FFmpegPath, &cfg.FFmpegPath)
	s.setString("codec", fc.Codec, &cfg.Codec)
	s.setString("preset", fc.Preset, &cfg.Preset)
	s.setString("tune", fc.Tune, &cfg.Tune)
	s.setString("ffmpeg-log-level", fc.FFmpegLogLevel, &cfg.FFmpegLogLevel)
	s.setString("listen", fc.Listen, &cfg.Listen)
	s.setString("log-level", fc.LogLevel, &cfg.LogLevel)
	s.setString("log-format", fc.LogFormat, &cfg.LogFormat)

	if err := s.setDuration("segment-time", fc.SegmentTime, &cfg.SegmentTime); err != nil {
		return err
	}
	if err := s.setDuration("max-backoff", fc.MaxBackoff, &cfg.MaxBackoff); err != nil {
		return err
	}

	s.setArgv("capture-command", fc.CaptureCommand, &cfg.CaptureCommand)
	s.setIntPtr("device", fc.Device, &cfg.Device)
	s.setIntPtr("list-size", fc.ListSize, &cfg.ListSize)
	s.setInt("width", fc.Width, &cfg.Width)
	s.setInt("height", fc.Height, &cfg.Height)
	s.setFloat("fps", fc.FPS, &cfg.FPS)

	s.setBool("clean-start", fc.CleanStart, &cfg.CleanStart)
	s.setBool("keep-segments", fc.KeepSegments, &cfg.KeepSegments)
	s.setBool("reconnect", fc.Reconnect, &cfg.Reconnect)

	return nil
}

// FileExists checks if a file exists at the given path.
func FileExists(p string) bool {
	_, err := os.Stat(p)
	return err == nil
}
