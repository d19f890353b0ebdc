package http

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/bft-labs/livestream/internal/domain"
	"github.com/bft-labs/livestream/internal/metrics"
	"github.com/bft-labs/livestream/internal/ports"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = 54 * time.Second

	clientBuffer = 8
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 4096,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

type eventClient struct {
	conn *websocket.Conn
	send chan []byte
}

// Hub fans playlist updates out to /events websocket clients. A client
// that cannot keep up loses updates rather than stalling the watcher.
type Hub struct {
	mu      sync.Mutex
	clients map[*eventClient]struct{}
	last    []byte
	closed  bool
	logger  ports.Logger
}

var _ ports.PlaylistSubscriber = (*Hub)(nil)

func NewHub(logger ports.Logger) *Hub {
	return &Hub{
		clients: make(map[*eventClient]struct{}),
		logger:  logger,
	}
}

// OnPlaylistUpdate broadcasts update as JSON to every connected client.
func (h *Hub) OnPlaylistUpdate(update domain.PlaylistUpdate) {
	msg, err := json.Marshal(update)
	if err != nil {
		h.logger.Warn("failed to encode playlist update", ports.Err(err))
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	h.last = msg
	for c := range h.clients {
		select {
		case c.send <- msg:
		default:
		}
	}
}

// Clients returns the number of connected clients.
func (h *Hub) Clients() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// Close disconnects every client. http.Server.Shutdown does not track
// hijacked connections, so the server calls this on shutdown.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.closed = true
	for c := range h.clients {
		h.removeLocked(c)
	}
}

func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Debug("websocket upgrade failed", ports.Err(err))
		return
	}

	c := &eventClient{conn: conn, send: make(chan []byte, clientBuffer)}

	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		_ = conn.Close()
		return
	}
	h.clients[c] = struct{}{}
	if h.last != nil {
		c.send <- h.last
	}
	metrics.EventSubscribers.Set(float64(len(h.clients)))
	h.mu.Unlock()

	h.logger.Debug("events client connected", ports.String("remote", r.RemoteAddr))

	go h.writeLoop(c)
	h.readLoop(c)
}

func (h *Hub) remove(c *eventClient) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.removeLocked(c)
}

func (h *Hub) removeLocked(c *eventClient) {
	if _, ok := h.clients[c]; !ok {
		return
	}
	delete(h.clients, c)
	close(c.send)
	metrics.EventSubscribers.Set(float64(len(h.clients)))
}

// readLoop discards client messages and keeps the read deadline fresh
// via pongs. It returns once the peer goes away.
func (h *Hub) readLoop(c *eventClient) {
	defer func() {
		h.remove(c)
		_ = c.conn.Close()
	}()

	c.conn.SetReadLimit(512)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (h *Hub) writeLoop(c *eventClient) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case msg, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseGoingAway, ""))
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
