package cliconfig

import (
	"os"
	"strings"
)

// EnvPrefix is the prefix of every environment variable read by ApplyEnvConfig.
const EnvPrefix = "LIVESTREAM_"

func getenv(name string) string {
	return os.Getenv(EnvPrefix + name)
}

// ApplyEnvConfig applies LIVESTREAM_* environment variables to the Config
// struct. It respects flags that have been explicitly set (changed map).
func ApplyEnvConfig(cfg *Config, changed map[string]bool) error {
	s := newConfigSetter(changed)

	s.setString("source", getenv("SOURCE"), &cfg.Source)
	s.setString("device-path", getenv("DEVICE_PATH"), &cfg.DevicePath)
	// Environment values have no argv boundaries; arguments split on whitespace.
	s.setArgv("capture-command", strings.Fields(getenv("CAPTURE_COMMAND")), &cfg.CaptureCommand)
	s.setString("pixel-format", getenv("PIXEL_FORMAT"), &cfg.PixelFormat)
	s.setString("output-dir", getenv("OUTPUT_DIR"), &cfg.OutputDir)
	s.setString("playlist", getenv("PLAYLIST_NAME"), &cfg.PlaylistName)
	s.setString("segment-pattern", getenv("SEGMENT_PATTERN"), &cfg.SegmentPattern)
	s.setString("ffmpeg", getenv("FFMPEG_PATH"), &cfg.FFmpegPath)
	s.setString("codec", getenv("CODEC"), &cfg.Codec)
	s.setString("preset", getenv("PRESET"), &cfg.Preset)
	s.setString("tune", getenv("TUNE"), &cfg.Tune)
	s.setString("ffmpeg-log-level", getenv("FFMPEG_LOG_LEVEL"), &cfg.FFmpegLogLevel)
	s.setString("listen", getenv("LISTEN"), &cfg.Listen)
	s.setString("log-level", getenv("LOG_LEVEL"), &cfg.LogLevel)
	s.setString("log-format", getenv("LOG_FORMAT"), &cfg.LogFormat)

	if err := s.setDuration("segment-time", getenv("SEGMENT_TIME"), &cfg.SegmentTime); err != nil {
		return err
	}
	if err := s.setDuration("max-backoff", getenv("MAX_BACKOFF"), &cfg.MaxBackoff); err != nil {
		return err
	}

	if err := s.setIntFromString("device", getenv("DEVICE"), &cfg.Device); err != nil {
		return err
	}
	if err := s.setIntFromString("list-size", getenv("LIST_SIZE"), &cfg.ListSize); err != nil {
		return err
	}
	if err := s.setIntFromString("width", getenv("WIDTH"), &cfg.Width); err != nil {
		return err
	}
	if err := s.setIntFromString("height", getenv("HEIGHT"), &cfg.Height); err != nil {
		return err
	}
	if err := s.setFloatFromString("fps", getenv("FPS"), &cfg.FPS); err != nil {
		return err
	}

	s.setBoolFromString("clean-start", getenv("CLEAN_START"), &cfg.CleanStart)
	s.setBoolFromString("keep-segments", getenv("KEEP_SEGMENTS"), &cfg.KeepSegments)
	s.setBoolFromString("reconnect", getenv("RECONNECT"), &cfg.Reconnect)

	return nil
}
