package livestream

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/bft-labs/livestream/internal/adapters/synthetic"
	"github.com/bft-labs/livestream/internal/app"
)

const testPlaylist = `#EXTM3U
#EXT-X-VERSION:3
#EXT-X-TARGETDURATION:2
#EXT-X-MEDIA-SEQUENCE:4
#EXTINF:2.000000,
segment_004.ts
#EXTINF:2.000000,
segment_005.ts
`

// fakeEncoder stands in for ffmpeg: Start writes a playlist and a
// segment, Write counts bytes.
type fakeEncoder struct {
	dir      string
	startErr error

	mu      sync.Mutex
	running bool
	starts  int
	closes  int
	bytes   int
}

func (e *fakeEncoder) Start(ctx context.Context, format FrameFormat) error {
	if e.startErr != nil {
		return e.startErr
	}
	if err := os.WriteFile(filepath.Join(e.dir, "index.m3u8"), []byte(testPlaylist), 0o644); err != nil {
		return err
	}
	if err := os.WriteFile(filepath.Join(e.dir, "segment_005.ts"), []byte("ts"), 0o644); err != nil {
		return err
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	e.running = true
	e.starts++
	return nil
}

func (e *fakeEncoder) Write(p []byte) (int, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.running {
		return 0, ErrEncoderNotRunning
	}
	e.bytes += len(p)
	return len(p), nil
}

func (e *fakeEncoder) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.running {
		e.closes++
	}
	e.running = false
	return nil
}

func (e *fakeEncoder) Running() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.running
}

type recordingHandler struct {
	BaseEventHandler

	mu        sync.Mutex
	states    []StateChangeEvent
	stopped   chan CaptureStoppedEvent
	playlists chan PlaylistEvent
}

func newRecordingHandler() *recordingHandler {
	return &recordingHandler{
		stopped:   make(chan CaptureStoppedEvent, 8),
		playlists: make(chan PlaylistEvent, 64),
	}
}

func (h *recordingHandler) OnStateChange(e StateChangeEvent) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.states = append(h.states, e)
}

func (h *recordingHandler) OnCaptureStopped(e CaptureStoppedEvent) {
	select {
	case h.stopped <- e:
	default:
	}
}

func (h *recordingHandler) OnPlaylistUpdate(e PlaylistEvent) {
	select {
	case h.playlists <- e:
	default:
	}
}

func testConfig(t *testing.T) Config {
	t.Helper()
	return Config{
		Source:      SourceTest,
		Width:       32,
		Height:      24,
		FPS:         30,
		PixelFormat: "bgr24",
		OutputDir:   filepath.Join(t.TempDir(), "hls"),
		CleanStart:  true,
		ListenAddr:  "127.0.0.1:0",
	}
}

func get(t *testing.T, url string) (*http.Response, []byte) {
	t.Helper()
	resp, err := http.Get(url)
	if err != nil {
		t.Fatalf("GET %s: %v", url, err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read %s: %v", url, err)
	}
	return resp, body
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for %s", what)
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestNew_InvalidConfig(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr error
	}{
		{"unknown source", func(c *Config) { c.Source = "screen" }, ErrInvalidConfig},
		{"negative device", func(c *Config) { c.Device = -1 }, ErrInvalidConfig},
		{"playlist in subdir", func(c *Config) { c.PlaylistName = "live/index.m3u8" }, ErrInvalidConfig},
		{"playlist extension", func(c *Config) { c.PlaylistName = "index.txt" }, ErrInvalidConfig},
		{"pixel format", func(c *Config) { c.PixelFormat = "nv12" }, ErrUnsupportedPixelFormat},
		{"negative fps", func(c *Config) { c.FPS = -1 }, ErrInvalidConfig},
		{"camera without source", func(c *Config) { c.Source = SourceCamera }, ErrInvalidConfig},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := testConfig(t)
			tt.mutate(&cfg)

			_, err := New(cfg)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("New() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestConfig_Defaults(t *testing.T) {
	var cfg Config
	cfg.SetDefaults()

	if cfg.Source != SourceCamera || cfg.Width != 640 || cfg.Height != 480 || cfg.FPS != 30 {
		t.Errorf("defaults = %+v", cfg)
	}
	if cfg.ListenAddr != "0.0.0.0:5000" {
		t.Errorf("ListenAddr = %q, want 0.0.0.0:5000", cfg.ListenAddr)
	}
	if cfg.PlaylistPath() != filepath.Join("hls_stream", "index.m3u8") {
		t.Errorf("PlaylistPath() = %q", cfg.PlaylistPath())
	}
	if cfg.Format().FrameSize() != 640*480*3 {
		t.Errorf("FrameSize() = %d", cfg.Format().FrameSize())
	}

	enc := cfg.encoderConfig()
	if !enc.DeleteSegments || enc.ListSize != 3 || enc.SegmentTime != 2*time.Second {
		t.Errorf("encoderConfig() = %+v", enc)
	}

	cfg.ListSize = -1
	cfg.KeepSegments = true
	enc = cfg.encoderConfig()
	if enc.DeleteSegments || enc.ListSize != 0 {
		t.Errorf("encoderConfig() with unlimited list = %+v", enc)
	}
}

func TestStream_StartServeStop(t *testing.T) {
	cfg := testConfig(t)
	if err := os.MkdirAll(cfg.OutputDir, 0o755); err != nil {
		t.Fatal(err)
	}
	stale := filepath.Join(cfg.OutputDir, "segment_999.ts")
	if err := os.WriteFile(stale, []byte("old"), 0o644); err != nil {
		t.Fatal(err)
	}

	enc := &fakeEncoder{dir: cfg.OutputDir}
	handler := newRecordingHandler()

	s, err := New(cfg, WithEncoder(enc), WithEventHandler(handler))
	if err != nil {
		t.Fatalf("New() = %v", err)
	}
	if s.Status() != StateStopped {
		t.Fatalf("Status() = %v, want Stopped", s.Status())
	}

	if err := s.Start(context.Background()); err != nil {
		t.Fatalf("Start() = %v", err)
	}
	if s.Status() != StateRunning {
		t.Errorf("Status() = %v, want Running", s.Status())
	}
	if _, err := os.Stat(stale); !os.IsNotExist(err) {
		t.Errorf("stale segment survived a clean start: %v", err)
	}

	session := s.SessionID()
	if session == "" {
		t.Fatal("SessionID() is empty after Start")
	}

	waitFor(t, "frames", func() bool { return s.Stats().Frames >= 3 })

	base := "http://" + s.Addr()

	resp, body := get(t, base+"/hls/index.m3u8")
	if resp.StatusCode != http.StatusOK || string(body) != testPlaylist {
		t.Errorf("GET playlist = %d %q", resp.StatusCode, body)
	}
	if got := resp.Header.Get("X-Stream-Session"); got != session {
		t.Errorf("session header = %q, want %q", got, session)
	}

	resp, _ = get(t, base+"/hls/segment_404.ts")
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("GET missing segment = %d, want 404", resp.StatusCode)
	}

	select {
	case ev := <-handler.playlists:
		if ev.Playlist.MediaSequence != 4 || len(ev.Playlist.Segments) != 2 {
			t.Errorf("playlist event = %+v", ev)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("no playlist event")
	}

	resp, body = get(t, base+"/healthz")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("GET /healthz = %d %s", resp.StatusCode, body)
	}
	var health struct {
		State     string `json:"state"`
		SessionID string `json:"session_id"`
		Frames    uint64 `json:"frames"`
		Playlist  *struct {
			MediaSequence uint64 `json:"media_sequence"`
		} `json:"playlist"`
	}
	if err := json.Unmarshal(body, &health); err != nil {
		t.Fatalf("decode health: %v", err)
	}
	if health.State != "Running" || health.SessionID != session || health.Frames == 0 {
		t.Errorf("health = %+v", health)
	}
	if health.Playlist == nil || health.Playlist.MediaSequence != 4 {
		t.Errorf("health playlist = %+v", health.Playlist)
	}

	if err := s.Stop(); err != nil {
		t.Fatalf("Stop() = %v", err)
	}
	if s.Status() != StateStopped {
		t.Errorf("Status() after Stop = %v, want Stopped", s.Status())
	}
	if enc.closes != 1 {
		t.Errorf("encoder closed %d times, want 1", enc.closes)
	}
	if enc.bytes == 0 || enc.bytes%cfg.Format().FrameSize() != 0 {
		t.Errorf("encoder received %d bytes, want whole frames", enc.bytes)
	}

	handler.mu.Lock()
	states := append([]StateChangeEvent(nil), handler.states...)
	handler.mu.Unlock()
	want := []State{StateStarting, StateRunning, StateStopping, StateStopped}
	if len(states) != len(want) {
		t.Fatalf("state events = %+v, want %v", states, want)
	}
	for i, st := range want {
		if states[i].Current != st {
			t.Errorf("state event %d = %v, want %v", i, states[i].Current, st)
		}
	}
}

func TestStream_Restart(t *testing.T) {
	cfg := testConfig(t)
	if err := os.MkdirAll(cfg.OutputDir, 0o755); err != nil {
		t.Fatal(err)
	}
	enc := &fakeEncoder{dir: cfg.OutputDir}

	s, err := New(cfg, WithEncoder(enc))
	if err != nil {
		t.Fatal(err)
	}

	var sessions []string
	for i := 0; i < 2; i++ {
		if err := s.Start(context.Background()); err != nil {
			t.Fatalf("Start() #%d = %v", i+1, err)
		}
		sessions = append(sessions, s.SessionID())

		resp, _ := get(t, "http://"+s.Addr()+"/stream")
		if resp.StatusCode != http.StatusOK {
			t.Errorf("GET /stream on run %d = %d", i+1, resp.StatusCode)
		}

		if err := s.Stop(); err != nil {
			t.Fatalf("Stop() #%d = %v", i+1, err)
		}
	}

	if sessions[0] == sessions[1] {
		t.Errorf("session id reused across runs: %s", sessions[0])
	}
	if enc.starts != 2 {
		t.Errorf("encoder started %d times, want 2", enc.starts)
	}
}

func TestStream_CaptureEndKeepsServing(t *testing.T) {
	cfg := testConfig(t)
	if err := os.MkdirAll(cfg.OutputDir, 0o755); err != nil {
		t.Fatal(err)
	}
	enc := &fakeEncoder{dir: cfg.OutputDir}
	handler := newRecordingHandler()

	src := &synthetic.Source{Limit: 5}
	s, err := New(cfg, WithEncoder(enc), WithFrameSource(src), WithEventHandler(handler))
	if err != nil {
		t.Fatal(err)
	}
	if err := s.Start(context.Background()); err != nil {
		t.Fatal(err)
	}
	defer s.Stop()

	select {
	case ev := <-handler.stopped:
		if !errors.Is(ev.Err, io.EOF) || ev.Frames != 5 {
			t.Errorf("capture stopped event = %+v, want io.EOF after 5 frames", ev)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("capture loop did not end")
	}

	waitFor(t, "encoder close", func() bool { return !enc.Running() })

	if s.Status() != StateRunning {
		t.Errorf("Status() after capture end = %v, want Running", s.Status())
	}

	resp, _ := get(t, "http://"+s.Addr()+"/stream")
	if resp.StatusCode != http.StatusOK {
		t.Errorf("GET /stream after capture end = %d, want 200", resp.StatusCode)
	}
	resp, _ = get(t, "http://"+s.Addr()+"/healthz")
	if resp.StatusCode != http.StatusServiceUnavailable {
		t.Errorf("GET /healthz with encoder down = %d, want 503", resp.StatusCode)
	}
}

func TestStream_StartStopErrors(t *testing.T) {
	cfg := testConfig(t)
	enc := &fakeEncoder{dir: cfg.OutputDir}

	s, err := New(cfg, WithEncoder(enc))
	if err != nil {
		t.Fatal(err)
	}

	if err := s.Stop(); !errors.Is(err, ErrNotRunning) {
		t.Errorf("Stop() before Start = %v, want ErrNotRunning", err)
	}

	if err := s.Start(context.Background()); err != nil {
		t.Fatal(err)
	}
	if err := s.Start(context.Background()); !errors.Is(err, ErrAlreadyRunning) {
		t.Errorf("second Start() = %v, want ErrAlreadyRunning", err)
	}
	if err := s.Stop(); err != nil {
		t.Fatal(err)
	}
	if err := s.Stop(); !errors.Is(err, ErrNotRunning) {
		t.Errorf("second Stop() = %v, want ErrNotRunning", err)
	}
}

func TestStream_EncoderStartFailure(t *testing.T) {
	cfg := testConfig(t)
	boom := errors.New("ffmpeg: not found")
	enc := &fakeEncoder{dir: cfg.OutputDir, startErr: boom}

	s, err := New(cfg, WithEncoder(enc))
	if err != nil {
		t.Fatal(err)
	}

	if err := s.Start(context.Background()); !errors.Is(err, boom) {
		t.Fatalf("Start() = %v, want %v", err, boom)
	}
	if s.Status() != StateCrashed {
		t.Errorf("Status() = %v, want Crashed", s.Status())
	}
	if _, err := os.Stat(cfg.OutputDir); err != nil {
		t.Errorf("output directory not created: %v", err)
	}

	enc.startErr = nil
	if err := s.Start(context.Background()); err != nil {
		t.Fatalf("Start() after crash = %v", err)
	}
	if err := s.Stop(); err != nil {
		t.Fatal(err)
	}
}

func TestStream_StopAfterCrashReleasesResources(t *testing.T) {
	cfg := testConfig(t)
	enc := &fakeEncoder{dir: cfg.OutputDir}

	s, err := New(cfg, WithEncoder(enc))
	if err != nil {
		t.Fatal(err)
	}
	if err := s.Start(context.Background()); err != nil {
		t.Fatal(err)
	}
	addr := s.Addr()

	if err := s.lifecycle.TransitionTo(app.StateCrashed, "http server: accept failed"); err != nil {
		t.Fatal(err)
	}

	if err := s.Stop(); err != nil {
		t.Fatalf("Stop() after crash = %v", err)
	}
	if s.Status() != StateStopped {
		t.Errorf("Status() = %v, want Stopped", s.Status())
	}
	if s.Stats().CaptureRunning {
		t.Error("capture loop still running after Stop")
	}
	client := &http.Client{Timeout: time.Second}
	if resp, err := client.Get("http://" + addr + "/healthz"); err == nil {
		resp.Body.Close()
		t.Error("server still accepting connections after Stop")
	}
	if err := s.Stop(); !errors.Is(err, ErrNotRunning) {
		t.Errorf("second Stop() = %v, want ErrNotRunning", err)
	}
}

func TestStream_Handler(t *testing.T) {
	cfg := testConfig(t)
	s, err := New(cfg, WithEncoder(&fakeEncoder{dir: cfg.OutputDir}))
	if err != nil {
		t.Fatal(err)
	}

	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("GET /healthz before Start = %d, want 503", rec.Code)
	}

	rec = httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/stream", nil))
	if rec.Code != http.StatusOK {
		t.Errorf("GET /stream = %d, want 200", rec.Code)
	}
}
