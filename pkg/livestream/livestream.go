package livestream

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/bft-labs/livestream/internal/adapters/command"
	"github.com/bft-labs/livestream/internal/adapters/ffmpeg"
	"github.com/bft-labs/livestream/internal/adapters/fs"
	httpAdapter "github.com/bft-labs/livestream/internal/adapters/http"
	logAdapter "github.com/bft-labs/livestream/internal/adapters/log"
	"github.com/bft-labs/livestream/internal/adapters/synthetic"
	"github.com/bft-labs/livestream/internal/app"
	"github.com/bft-labs/livestream/internal/domain"
	"github.com/bft-labs/livestream/internal/ports"
)

// Stream captures camera frames, feeds them to the encoder and serves the
// resulting HLS stream over HTTP. Use New to create one, then Start.
type Stream struct {
	config    Config
	format    domain.FrameFormat
	lifecycle *app.Lifecycle
	emitter   *eventEmitterWrapper
	source    ports.FrameSource
	encoder   ports.Encoder
	logger    ports.Logger

	mu        sync.RWMutex
	sessionID string
	server    *httpAdapter.Server
	watcher   *fs.PlaylistWatcher
	pump      *app.Pump
	started   bool
}

// New creates a Stream in StateStopped.
// Returns an error if the configuration is invalid.
func New(cfg Config, opts ...Option) (*Stream, error) {
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	var o options
	for _, opt := range opts {
		opt(&o)
	}

	logger := o.logger
	if logger == nil {
		logger = logAdapter.NewNoopLogger()
	}

	source := o.source
	if source == nil {
		var err error
		if source, err = newFrameSource(cfg, logger); err != nil {
			return nil, err
		}
	}

	encoder := o.encoder
	if encoder == nil {
		encoder = ffmpeg.New(cfg.encoderConfig(), logger)
	}

	emitter := &eventEmitterWrapper{handler: o.eventHandler}

	s := &Stream{
		config:    cfg,
		format:    cfg.Format(),
		lifecycle: app.NewLifecycle(logger, emitter),
		emitter:   emitter,
		source:    source,
		encoder:   encoder,
		logger:    logger,
	}

	server, err := s.newServer()
	if err != nil {
		return nil, err
	}
	s.server = server
	return s, nil
}

func newFrameSource(cfg Config, logger ports.Logger) (ports.FrameSource, error) {
	switch cfg.Source {
	case SourceCommand:
		argv := cfg.CaptureCommand
		if len(argv) == 0 {
			device := cfg.DevicePath
			if device == "" {
				device = fmt.Sprintf("/dev/video%d", cfg.Device)
			}
			argv = command.DefaultArgv(cfg.FFmpegPath, device, cfg.Format())
		}
		return command.NewSource(argv, logger), nil
	case SourceTest:
		return synthetic.NewSource(), nil
	default:
		return nil, fmt.Errorf("%w: source %q must be provided with WithFrameSource", ErrInvalidConfig, cfg.Source)
	}
}

func (s *Stream) newServer() (*httpAdapter.Server, error) {
	return httpAdapter.NewServer(httpAdapter.ServerConfig{
		Addr:         s.config.ListenAddr,
		OutputDir:    s.config.OutputDir,
		PlaylistName: s.config.PlaylistName,
		Width:        s.config.Width,
		Height:       s.config.Height,
	}, s.health, s.logger)
}

// Start prepares the output directory, launches the encoder, and starts the
// capture loop and the HTTP server in the background.
// Returns ErrAlreadyRunning if the stream is not stopped. A camera that
// cannot be opened does not fail Start: the capture loop logs it and the
// HTTP server keeps serving.
func (s *Stream) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.lifecycle.CanStart() {
		return ErrAlreadyRunning
	}
	if err := s.lifecycle.TransitionTo(app.StateStarting, "Start() called"); err != nil {
		return err
	}

	fail := func(reason string, err error) error {
		_ = s.lifecycle.TransitionTo(app.StateCrashed, reason)
		return err
	}

	removed, err := fs.PrepareDir(s.config.OutputDir, s.config.CleanStart)
	if err != nil {
		return fail("output directory", err)
	}
	if removed > 0 {
		s.logger.Info("removed stale stream files",
			ports.String("dir", s.config.OutputDir),
			ports.Int("files", removed),
		)
	}

	// A stopped http.Server cannot serve again.
	if s.started {
		server, err := s.newServer()
		if err != nil {
			return fail("http server", err)
		}
		s.server = server
	}
	s.sessionID = uuid.NewString()
	s.server.SetSessionID(s.sessionID)

	if err := s.server.Listen(); err != nil {
		return fail("listen", err)
	}

	runCtx, cancel := context.WithCancel(ctx)
	s.lifecycle.SetCancel(cancel)
	s.started = true

	if err := s.encoder.Start(runCtx, s.format); err != nil {
		s.lifecycle.Cancel()
		_ = s.server.Shutdown(context.Background())
		return fail("encoder start failed", fmt.Errorf("start encoder: %w", err))
	}

	s.watcher = fs.NewPlaylistWatcher(s.config.OutputDir, s.config.PlaylistName, 0, s.logger)
	s.watcher.Subscribe(s.server.Hub())
	s.watcher.Subscribe(s.emitter)
	if err := s.watcher.Start(runCtx); err != nil {
		s.logger.Warn("playlist watcher unavailable", ports.Err(err))
	}

	s.pump = app.NewPump(app.PumpConfig{
		Format:     s.format,
		Reconnect:  s.config.Reconnect,
		BackoffMax: s.config.MaxBackoff,
	}, s.source, s.encoder, s.logger, s.emitter)

	server := s.server
	s.lifecycle.Go(func() {
		if err := server.Serve(); err != nil {
			s.logger.Error("http server failed", ports.Err(err))
			if terr := s.lifecycle.TransitionTo(app.StateCrashed, "http server: "+err.Error()); terr == nil {
				s.lifecycle.Cancel()
			}
		}
	})

	pump := s.pump
	s.lifecycle.Go(func() {
		err := pump.Run(runCtx)
		if err != nil && !errors.Is(err, context.Canceled) {
			// The page and any remaining segments stay available.
			s.logger.Warn("capture loop ended, still serving", ports.Err(err))
		}
	})

	s.logger.Info("stream started",
		ports.String("session", s.sessionID),
		ports.String("addr", server.Addr()),
		ports.String("playlist", s.config.PlaylistPath()),
	)
	return s.lifecycle.TransitionTo(app.StateRunning, "started")
}

// Stop cancels capture, lets the encoder finalize, shuts the HTTP server
// down and waits for the background goroutines. Stop also releases what
// a crashed stream still holds.
// Returns ErrNotRunning if stopped, ErrShutdownTimeout if the
// goroutines did not finish within 30 seconds.
func (s *Stream) Stop() error {
	s.mu.Lock()

	if !s.lifecycle.CanStop() {
		s.mu.Unlock()
		return ErrNotRunning
	}
	if err := s.lifecycle.TransitionTo(app.StateStopping, "Stop() called"); err != nil {
		s.mu.Unlock()
		return err
	}

	s.lifecycle.Cancel()
	watcher, server := s.watcher, s.server
	s.mu.Unlock()

	if watcher != nil {
		watcher.Stop()
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), app.ShutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		s.logger.Warn("http shutdown", ports.Err(err))
	}

	err := s.lifecycle.WaitWithTimeout(app.ShutdownTimeout)
	if err != nil {
		_ = s.lifecycle.TransitionTo(app.StateCrashed, "shutdown timeout")
	} else {
		_ = s.lifecycle.TransitionTo(app.StateStopped, "graceful shutdown")
	}
	return err
}

// Status returns the current lifecycle state.
func (s *Stream) Status() State {
	return convertState(s.lifecycle.State())
}

// SessionID returns the id of the current or last run; a new id is
// generated on every Start.
func (s *Stream) SessionID() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.sessionID
}

// Addr returns the HTTP listen address, resolved once Start bound it.
func (s *Stream) Addr() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.server.Addr()
}

// Handler returns the HTTP handler of the stream (/stream, /hls/, /healthz,
// /metrics, /events) for mounting in another server.
func (s *Stream) Handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.mu.RLock()
		h := s.server.Handler()
		s.mu.RUnlock()
		h.ServeHTTP(w, r)
	})
}

// Stats returns capture counters for the current or last run.
func (s *Stream) Stats() Stats {
	s.mu.RLock()
	pump := s.pump
	s.mu.RUnlock()

	st := Stats{EncoderRunning: s.encoder.Running()}
	if pump != nil {
		ps := pump.Stats()
		st.CaptureRunning = ps.Running
		st.Frames = ps.Frames
		st.Dropped = ps.Dropped
		st.BytesWritten = ps.Bytes
	}
	return st
}

// Playlist returns the last playlist observed on disk.
func (s *Stream) Playlist() (Playlist, bool) {
	s.mu.RLock()
	watcher := s.watcher
	s.mu.RUnlock()

	if watcher == nil {
		return Playlist{}, false
	}
	u, ok := watcher.Last()
	return u.Playlist, ok
}

func (s *Stream) health() httpAdapter.Health {
	st := s.Stats()
	h := httpAdapter.Health{
		State:          s.Status().String(),
		SessionID:      s.SessionID(),
		CaptureRunning: st.CaptureRunning,
		EncoderRunning: st.EncoderRunning,
		Frames:         st.Frames,
		Dropped:        st.Dropped,
	}

	s.mu.RLock()
	watcher := s.watcher
	s.mu.RUnlock()
	if watcher != nil {
		if u, ok := watcher.Last(); ok {
			pl := u.Playlist
			at := u.UpdatedAt.Truncate(time.Millisecond)
			h.Playlist = &pl
			h.UpdatedAt = &at
		}
	}
	return h
}
