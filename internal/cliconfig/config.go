package cliconfig

import (
	"fmt"
	"strconv"
	"time"

	"github.com/bft-labs/livestream/pkg/livestream"
)

// Config holds CLI configuration for livestream.
type Config struct {
	Source         string
	Device         int
	DevicePath     string
	CaptureCommand []string

	Width       int
	Height      int
	FPS         float64
	PixelFormat string

	OutputDir      string
	PlaylistName   string
	SegmentPattern string
	CleanStart     bool

	FFmpegPath     string
	Codec          string
	Preset         string
	Tune           string
	SegmentTime    time.Duration
	ListSize       int
	KeepSegments   bool
	FFmpegLogLevel string

	Listen string

	Reconnect  bool
	MaxBackoff time.Duration

	LogLevel  string
	LogFormat string
}

// DefaultConfig returns a Config with default values.
func DefaultConfig() Config {
	d := livestream.DefaultConfig()
	return Config{
		Source:         d.Source,
		Device:         d.Device,
		Width:          d.Width,
		Height:         d.Height,
		FPS:            d.FPS,
		PixelFormat:    d.PixelFormat,
		OutputDir:      d.OutputDir,
		PlaylistName:   d.PlaylistName,
		SegmentPattern: d.SegmentPattern,
		CleanStart:     d.CleanStart,
		FFmpegPath:     d.FFmpegPath,
		Codec:          d.Codec,
		Preset:         d.Preset,
		Tune:           d.Tune,
		SegmentTime:    d.SegmentTime,
		ListSize:       d.ListSize,
		FFmpegLogLevel: d.FFmpegLogLevel,
		Listen:         d.ListenAddr,
		MaxBackoff:     d.MaxBackoff,
		LogLevel:       "info",
		LogFormat:      LogFormatConsole,
	}
}

// Validate checks the CLI-only settings; stream settings are checked by
// livestream.New.
func (c *Config) Validate() error {
	if _, err := ParseLogLevel(c.LogLevel); err != nil {
		return err
	}
	switch c.LogFormat {
	case LogFormatConsole, LogFormatJSON:
	default:
		return fmt.Errorf("log format must be %q or %q, got %q", LogFormatConsole, LogFormatJSON, c.LogFormat)
	}
	if c.Listen == "" {
		return fmt.Errorf("listen address is required")
	}
	if c.SegmentTime <= 0 {
		return fmt.Errorf("segment time must be positive")
	}
	return c.Stream().Validate()
}

// Stream converts the CLI configuration into the library configuration.
func (c Config) Stream() livestream.Config {
	return livestream.Config{
		Source:         c.Source,
		Device:         c.Device,
		DevicePath:     c.DevicePath,
		CaptureCommand: captureArgv(c.CaptureCommand),
		Width:          c.Width,
		Height:         c.Height,
		FPS:            c.FPS,
		PixelFormat:    c.PixelFormat,
		OutputDir:      c.OutputDir,
		PlaylistName:   c.PlaylistName,
		SegmentPattern: c.SegmentPattern,
		CleanStart:     c.CleanStart,
		FFmpegPath:     c.FFmpegPath,
		Codec:          c.Codec,
		Preset:         c.Preset,
		Tune:           c.Tune,
		SegmentTime:    c.SegmentTime,
		ListSize:       c.ListSize,
		KeepSegments:   c.KeepSegments,
		FFmpegLogLevel: c.FFmpegLogLevel,
		ListenAddr:     c.Listen,
		Reconnect:      c.Reconnect,
		MaxBackoff:     c.MaxBackoff,
	}
}

// captureArgv copies argv, returning nil when it is empty.
func captureArgv(argv []string) []string {
	if len(argv) == 0 {
		return nil
	}
	return append([]string(nil), argv...)
}

// configSetter helps apply configuration values while respecting flag precedence.
// It only applies values if the corresponding flag hasn't been explicitly set.
type configSetter struct {
	changed map[string]bool
}

func newConfigSetter(changed map[string]bool) *configSetter {
	return &configSetter{changed: changed}
}

// setString sets a string value if not empty and flag not changed.
func (s *configSetter) setString(flag, value string, dst *string) {
	if value == "" || s.changed[flag] {
		return
	}
	*dst = value
}

// setInt sets an int value if positive and flag not changed.
func (s *configSetter) setInt(flag string, value int, dst *int) {
	if value <= 0 || s.changed[flag] {
		return
	}
	*dst = value
}

// setArgv sets an argv slice if not empty and flag not changed.
func (s *configSetter) setArgv(flag string, value []string, dst *[]string) {
	if len(value) == 0 || s.changed[flag] {
		return
	}
	*dst = append([]string(nil), value...)
}

// setIntPtr sets an int for settings where zero and negative values are
// meaningful (camera 0, unlimited playlist).
func (s *configSetter) setIntPtr(flag string, value *int, dst *int) {
	if value == nil || s.changed[flag] {
		return
	}
	*dst = *value
}

// setFloat sets a float64 value if positive and flag not changed.
func (s *configSetter) setFloat(flag string, value float64, dst *float64) {
	if value <= 0 || s.changed[flag] {
		return
	}
	*dst = value
}

// setDuration parses and sets a duration from string if valid and flag not changed.
func (s *configSetter) setDuration(flag, value string, dst *time.Duration) error {
	if value == "" || s.changed[flag] {
		return nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return fmt.Errorf("parse %s: %w", flag, err)
	}
	*dst = d
	return nil
}

// setBool sets a bool value from a pointer if not nil and flag not changed.
func (s *configSetter) setBool(flag string, value *bool, dst *bool) {
	if value == nil || s.changed[flag] {
		return
	}
	*dst = *value
}

// setIntFromString parses an environment value. Unlike setInt, zero and
// negative values are applied.
func (s *configSetter) setIntFromString(flag, value string, dst *int) error {
	if value == "" || s.changed[flag] {
		return nil
	}
	i, err := strconv.Atoi(value)
	if err != nil {
		return fmt.Errorf("parse %s: %w", flag, err)
	}
	*dst = i
	return nil
}

// setFloatFromString parses a string to float64 and sets the destination if valid.
func (s *configSetter) setFloatFromString(flag, value string, dst *float64) error {
	if value == "" || s.changed[flag] {
		return nil
	}
	f, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return fmt.Errorf("parse %s: %w", flag, err)
	}
	if f <= 0 {
		return nil
	}
	*dst = f
	return nil
}

// setBoolFromString accepts "true" and "1" as true, anything else as false.
func (s *configSetter) setBoolFromString(flag, value string, dst *bool) {
	if value == "" || s.changed[flag] {
		return
	}
	*dst = value == "true" || value == "1"
}
