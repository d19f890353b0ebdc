// Package http serves the player page, the HLS output directory and the
// operational endpoints (/healthz, /metrics, /events).
package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/bft-labs/livestream/internal/domain"
	"github.com/bft-labs/livestream/internal/metrics"
	"github.com/bft-labs/livestream/internal/ports"
)

// SessionHeader carries the id of the current streaming session.
const SessionHeader = "X-Stream-Session"

// DefaultAddr listens on every interface, port 5000.
const DefaultAddr = "0.0.0.0:5000"

// ServerConfig contains configuration for the HTTP layer.
type ServerConfig struct {
	Addr         string
	OutputDir    string
	PlaylistName string
	SessionID    string

	// Player page.
	Title  string
	Width  int
	Height int
	HlsJS  string
}

func (c *ServerConfig) setDefaults() {
	if c.Addr == "" {
		c.Addr = DefaultAddr
	}
	if c.PlaylistName == "" {
		c.PlaylistName = "index.m3u8"
	}
	if c.Title == "" {
		c.Title = "Livestream"
	}
	if c.Width <= 0 || c.Height <= 0 {
		f := domain.DefaultFrameFormat()
		c.Width, c.Height = f.Width, f.Height
	}
	if c.HlsJS == "" {
		c.HlsJS = DefaultHlsJS
	}
}

// Health is the /healthz body.
type Health struct {
	State          string           `json:"state"`
	SessionID      string           `json:"session_id"`
	CaptureRunning bool             `json:"capture_running"`
	EncoderRunning bool             `json:"encoder_running"`
	Frames         uint64           `json:"frames"`
	Dropped        uint64           `json:"dropped"`
	Playlist       *domain.Playlist `json:"playlist,omitempty"`
	UpdatedAt      *time.Time       `json:"updated_at,omitempty"`
}

// Healthy reports whether the stream is being produced.
func (h Health) Healthy() bool {
	return h.State == "Running" && h.EncoderRunning
}

// HealthFunc reports the current health of the stream.
type HealthFunc func() Health

// Server is the HTTP front of a stream.
type Server struct {
	cfg    ServerConfig
	health HealthFunc
	logger ports.Logger
	hub    *Hub
	page   []byte

	handler http.Handler
	srv     *http.Server

	mu        sync.Mutex
	ln        net.Listener
	sessionID string
}

func NewServer(cfg ServerConfig, health HealthFunc, logger ports.Logger) (*Server, error) {
	cfg.setDefaults()

	page, err := renderPage(cfg)
	if err != nil {
		return nil, fmt.Errorf("render player page: %w", err)
	}

	s := &Server{
		cfg:       cfg,
		health:    health,
		logger:    logger,
		hub:       NewHub(logger),
		page:      page,
		sessionID: cfg.SessionID,
	}
	s.handler = s.routes()
	s.srv = &http.Server{
		Handler:           s.handler,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s, nil
}

func (s *Server) routes() http.Handler {
	mux := http.NewServeMux()
	mux.Handle("GET /{$}", http.RedirectHandler("/stream", http.StatusFound))
	mux.Handle("GET /stream", metrics.Instrument("stream", http.HandlerFunc(s.handleStream)))
	mux.Handle("GET /hls/{filename...}", metrics.Instrument("hls", http.HandlerFunc(s.handleHLS)))
	mux.Handle("GET /healthz", metrics.Instrument("healthz", http.HandlerFunc(s.handleHealth)))
	mux.Handle("GET /metrics", metrics.Handler())
	mux.Handle("GET /events", s.hub)
	return s.withSession(mux)
}

func (s *Server) withSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if id := s.SessionID(); id != "" {
			w.Header().Set(SessionHeader, id)
		}
		next.ServeHTTP(w, r)
	})
}

// SetSessionID changes the id reported in SessionHeader and /healthz.
func (s *Server) SetSessionID(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessionID = id
}

func (s *Server) SessionID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sessionID
}

// Handler returns the routed handler, for embedding or tests.
func (s *Server) Handler() http.Handler {
	return s.handler
}

// Hub returns the /events hub; subscribe it to playlist updates.
func (s *Server) Hub() *Hub {
	return s.hub
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	var h Health
	if s.health != nil {
		h = s.health()
	}
	if h.SessionID == "" {
		h.SessionID = s.SessionID()
	}

	w.Header().Set("Content-Type", "application/json")
	if !h.Healthy() {
		w.WriteHeader(http.StatusServiceUnavailable)
	}
	if err := json.NewEncoder(w).Encode(h); err != nil {
		s.logger.Debug("failed to write health response", ports.Err(err))
	}
}

// Listen binds the listen address so that bind errors surface before
// the server goroutine starts.
func (s *Server) Listen() error {
	ln, err := net.Listen("tcp", s.cfg.Addr)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", s.cfg.Addr, err)
	}
	s.mu.Lock()
	s.ln = ln
	s.mu.Unlock()
	return nil
}

// Addr returns the bound address, or the configured one before Listen.
func (s *Server) Addr() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ln != nil {
		return s.ln.Addr().String()
	}
	return s.cfg.Addr
}

// Serve blocks serving on the listener from Listen (binding first if
// needed) until Shutdown.
func (s *Server) Serve() error {
	s.mu.Lock()
	ln := s.ln
	s.mu.Unlock()
	if ln == nil {
		if err := s.Listen(); err != nil {
			return err
		}
		return s.Serve()
	}

	s.logger.Info("http server listening",
		ports.String("addr", ln.Addr().String()),
		ports.String("player", "/stream"),
	)
	if err := s.srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown disconnects websocket clients and gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.hub.Close()

	err := s.srv.Shutdown(ctx)

	s.mu.Lock()
	ln := s.ln
	s.mu.Unlock()
	if ln != nil {
		// srv only tracks the listener once Serve ran.
		_ = ln.Close()
	}

	if err != nil {
		_ = s.srv.Close()
		return err
	}
	return nil
}

func logFields(r *http.Request, err error) []ports.Field {
	return []ports.Field{
		ports.String("path", r.URL.Path),
		ports.String("remote", r.RemoteAddr),
		ports.Err(err),
	}
}
