package http

import (
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/bft-labs/livestream/internal/domain"
)

func dialEvents(t *testing.T, ts *httptest.Server) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/events"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial %s: %v", url, err)
	}
	return conn
}

func waitClients(t *testing.T, h *Hub, n int) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for h.Clients() != n {
		if time.Now().After(deadline) {
			t.Fatalf("hub has %d clients, want %d", h.Clients(), n)
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestHub_BroadcastsPlaylistUpdates(t *testing.T) {
	s := newTestServer(t, t.TempDir(), nil)
	ts := httptest.NewServer(s.Handler())
	defer ts.Close()

	conn := dialEvents(t, ts)
	defer conn.Close()
	waitClients(t, s.Hub(), 1)

	s.Hub().OnPlaylistUpdate(domain.PlaylistUpdate{
		Name: "index.m3u8",
		Playlist: domain.Playlist{
			MediaSequence: 3,
			Segments:      []domain.Segment{{URI: "segment_003.ts", Duration: 2 * time.Second}},
		},
	})

	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var got domain.PlaylistUpdate
	if err := conn.ReadJSON(&got); err != nil {
		t.Fatalf("ReadJSON() = %v", err)
	}
	if got.Name != "index.m3u8" || got.Playlist.MediaSequence != 3 || len(got.Playlist.Segments) != 1 {
		t.Errorf("update = %+v", got)
	}
}

func TestHub_ReplaysLastUpdate(t *testing.T) {
	s := newTestServer(t, t.TempDir(), nil)
	ts := httptest.NewServer(s.Handler())
	defer ts.Close()

	s.Hub().OnPlaylistUpdate(domain.PlaylistUpdate{Name: "index.m3u8", Playlist: domain.Playlist{MediaSequence: 9}})

	conn := dialEvents(t, ts)
	defer conn.Close()

	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var got domain.PlaylistUpdate
	if err := conn.ReadJSON(&got); err != nil {
		t.Fatalf("ReadJSON() = %v", err)
	}
	if got.Playlist.MediaSequence != 9 {
		t.Errorf("replayed media sequence = %d, want 9", got.Playlist.MediaSequence)
	}
}

func TestHub_CloseDisconnectsClients(t *testing.T) {
	s := newTestServer(t, t.TempDir(), nil)
	ts := httptest.NewServer(s.Handler())
	defer ts.Close()

	conn := dialEvents(t, ts)
	defer conn.Close()
	waitClients(t, s.Hub(), 1)

	s.Hub().Close()
	if n := s.Hub().Clients(); n != 0 {
		t.Errorf("Clients() after Close = %d, want 0", n)
	}

	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	if _, _, err := conn.ReadMessage(); !websocket.IsCloseError(err, websocket.CloseGoingAway) {
		t.Errorf("ReadMessage() after Close = %v, want going-away close", err)
	}
}

func TestHub_ClientDisconnect(t *testing.T) {
	s := newTestServer(t, t.TempDir(), nil)
	ts := httptest.NewServer(s.Handler())
	defer ts.Close()

	conn := dialEvents(t, ts)
	waitClients(t, s.Hub(), 1)

	conn.Close()
	waitClients(t, s.Hub(), 0)
}
