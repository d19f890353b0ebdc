package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"runtime"
	"runtime/debug"
	"strings"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	pflag "github.com/spf13/pflag"

	"github.com/bft-labs/livestream/internal/cliconfig"
	"github.com/bft-labs/livestream/pkg/livestream"
	pkglog "github.com/bft-labs/livestream/pkg/log"
)

const helpDescription = `
Capture frames from a local camera, encode them to H.264 with ffmpeg and
serve the HLS stream over HTTP.

Endpoints:
  /stream       browser player page
  /hls/<file>   playlist and segments
  /healthz      stream health as JSON
  /metrics      Prometheus metrics
  /events       playlist updates over websocket

Configure via file, env (LIVESTREAM_*), or flags; flags win.
`

var exampleUsage = strings.TrimSpace(`
  livestream
  livestream --device 1 --width 1280 --height 720 --listen :8080
  livestream --source command --device-path /dev/video2 --reconnect
  livestream --source command --capture-command cat --capture-command "/tmp/my frames.raw"
  livestream --config $HOME/.livestream/config.yaml --log-format json
`)

func getVersion() string {
	if info, ok := debug.ReadBuildInfo(); ok && info.Main.Version != "" {
		return info.Main.Version
	}
	return "dev"
}

func main() {
	cfg := cliconfig.DefaultConfig()
	var cfgPath string

	root := &cobra.Command{
		Use:           "livestream",
		Short:         "Serve a local camera as an HLS stream",
		Long:          strings.TrimSpace(helpDescription),
		Example:       exampleUsage,
		Version:       fmt.Sprintf("%s %s/%s", getVersion(), runtime.GOOS, runtime.GOARCH),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfgFile := cfgPath
			if cfgFile == "" {
				cfgFile = cliconfig.DefaultConfigPath()
			}

			changed := map[string]bool{}
			cmd.Flags().Visit(func(f *pflag.Flag) { changed[f.Name] = true })

			if cfgFile != "" && cliconfig.FileExists(cfgFile) {
				fc, err := cliconfig.LoadFileConfig(cfgFile)
				if err != nil {
					return fmt.Errorf("load config: %w", err)
				}
				if err := cliconfig.ApplyFileConfig(&cfg, fc, changed); err != nil {
					return err
				}
			} else if cfgPath != "" {
				return fmt.Errorf("config file %s not found", cfgPath)
			}

			// LIVESTREAM_* override the file but not explicit flags.
			if err := cliconfig.ApplyEnvConfig(&cfg, changed); err != nil {
				return err
			}

			if err := cfg.Validate(); err != nil {
				return err
			}

			zl, err := cliconfig.NewLogger(cfg)
			if err != nil {
				return err
			}
			log := pkglog.NewZerologLogger(zl)
			zl.Info().Interface("config", cfg).Msg("configuration")

			return run(cfg, zl, log)
		},
	}

	f := root.Flags()
	f.StringVar(&cfgPath, "config", "", "path to config file, TOML or YAML (default: $HOME/.livestream/config.toml)")

	f.StringVar(&cfg.Source, "source", cfg.Source, "frame source: camera (OpenCV), command (capture command stdout) or testsrc")
	f.IntVar(&cfg.Device, "device", cfg.Device, "camera index")
	f.StringVar(&cfg.DevicePath, "device-path", cfg.DevicePath, "video device for the command source (default: /dev/video<device>)")
	f.StringArrayVar(&cfg.CaptureCommand, "capture-command", cfg.CaptureCommand, "command writing raw frames to stdout, one argument per flag (command source)")

	f.IntVar(&cfg.Width, "width", cfg.Width, "frame width")
	f.IntVar(&cfg.Height, "height", cfg.Height, "frame height")
	f.Float64Var(&cfg.FPS, "fps", cfg.FPS, "frames per second")
	f.StringVar(&cfg.PixelFormat, "pixel-format", cfg.PixelFormat, "raw pixel format (bgr24, rgb24, yuv420p, yuyv422, gray)")

	f.StringVar(&cfg.OutputDir, "output-dir", cfg.OutputDir, "directory for the playlist and segments")
	f.StringVar(&cfg.PlaylistName, "playlist", cfg.PlaylistName, "playlist file name")
	f.StringVar(&cfg.SegmentPattern, "segment-pattern", cfg.SegmentPattern, "segment file name pattern")
	f.BoolVar(&cfg.CleanStart, "clean-start", cfg.CleanStart, "remove segments left by a previous run")

	f.StringVar(&cfg.FFmpegPath, "ffmpeg", cfg.FFmpegPath, "ffmpeg binary")
	f.StringVar(&cfg.Codec, "codec", cfg.Codec, "video codec")
	f.StringVar(&cfg.Preset, "preset", cfg.Preset, "encoder preset")
	f.StringVar(&cfg.Tune, "tune", cfg.Tune, "encoder tune (empty to disable)")
	f.DurationVar(&cfg.SegmentTime, "segment-time", cfg.SegmentTime, "target segment duration")
	f.IntVar(&cfg.ListSize, "list-size", cfg.ListSize, "segments kept in the playlist (negative keeps all)")
	f.BoolVar(&cfg.KeepSegments, "keep-segments", cfg.KeepSegments, "keep segments that left the playlist")
	f.StringVar(&cfg.FFmpegLogLevel, "ffmpeg-log-level", cfg.FFmpegLogLevel, "ffmpeg -loglevel")

	f.StringVar(&cfg.Listen, "listen", cfg.Listen, "HTTP listen address")

	f.BoolVar(&cfg.Reconnect, "reconnect", cfg.Reconnect, "reopen the camera after it fails")
	f.DurationVar(&cfg.MaxBackoff, "max-backoff", cfg.MaxBackoff, "maximum delay between reconnect attempts")

	f.StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "log level (debug, info, warn, error)")
	f.StringVar(&cfg.LogFormat, "log-format", cfg.LogFormat, "log format (console, json)")

	if err := root.Execute(); err != nil {
		zl := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).With().Timestamp().Logger()
		zl.Error().Err(err).Msg("livestream")
		os.Exit(1)
	}
}

func run(cfg cliconfig.Config, zl zerolog.Logger, log pkglog.Logger) error {
	opts := []livestream.Option{
		livestream.WithLogger(log),
		livestream.WithEventHandler(&logEvents{log: zl}),
	}
	if cfg.Source == livestream.SourceCamera {
		source, err := newCamera(cfg.Device, log)
		if err != nil {
			return err
		}
		opts = append(opts, livestream.WithFrameSource(source))
	}

	s, err := livestream.New(cfg.Stream(), opts...)
	if err != nil {
		return fmt.Errorf("create stream: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	if err := s.Start(ctx); err != nil {
		return fmt.Errorf("start stream: %w", err)
	}
	zl.Info().
		Str("player", "http://"+s.Addr()+"/stream").
		Str("session", s.SessionID()).
		Msg("serving")

	doneCh := make(chan struct{})
	go func() {
		ticker := time.NewTicker(100 * time.Millisecond)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if s.Status() == livestream.StateCrashed {
					close(doneCh)
					return
				}
			}
		}
	}()

	select {
	case sig := <-sigCh:
		zl.Info().Str("signal", sig.String()).Msg("received signal, stopping...")
	case <-doneCh:
		zl.Error().Msg("stream crashed, releasing resources")
		if err := s.Stop(); err != nil {
			zl.Warn().Err(err).Msg("cleanup after crash")
		}
		return fmt.Errorf("stream crashed")
	}

	if err := s.Stop(); err != nil {
		return fmt.Errorf("stop stream: %w", err)
	}
	st := s.Stats()
	zl.Info().
		Uint64("frames", st.Frames).
		Uint64("dropped", st.Dropped).
		Uint64("bytes", st.BytesWritten).
		Msg("stopped")
	return nil
}

// logEvents writes stream events to the process log.
type logEvents struct {
	livestream.BaseEventHandler
	log zerolog.Logger
}

func (l *logEvents) OnStateChange(e livestream.StateChangeEvent) {
	l.log.Debug().
		Str("from", e.Previous.String()).
		Str("to", e.Current.String()).
		Str("reason", e.Reason).
		Msg("state change")
}

func (l *logEvents) OnCaptureStarted(e livestream.CaptureStartedEvent) {
	l.log.Info().
		Int("width", e.Format.Width).
		Int("height", e.Format.Height).
		Float64("fps", e.Format.FPS).
		Str("pixel_format", e.Format.PixelFormat).
		Msg("capture started")
}

func (l *logEvents) OnPlaylistUpdate(e livestream.PlaylistEvent) {
	l.log.Debug().
		Str("playlist", e.Name).
		Uint64("media_sequence", e.Playlist.MediaSequence).
		Int("segments", len(e.Playlist.Segments)).
		Msg("playlist updated")
}
