package notify

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
	CheckOrigin: func(r *http.Request) bool {
		// TODO: restrict origins once the UI host is pinned down.
		return true
	},
}

// client wraps a connection with a write lock: the hub broadcasts from
// multiple goroutines and gorilla/websocket allows only one concurrent
// writer per connection.
type client struct {
	wmu  sync.Mutex
	conn *websocket.Conn
}

func (c *client) write(data []byte) error {
	c.wmu.Lock()
	defer c.wmu.Unlock()
	return c.conn.WriteMessage(websocket.TextMessage, data)
}

// Hub fans events out to every connected WebSocket client.
type Hub struct {
	logger *slog.Logger

	mu      sync.RWMutex
	clients map[*client]struct{}
}

// NewHub creates a hub with no clients.
func NewHub(logger *slog.Logger) *Hub {
	return &Hub{
		logger:  logger,
		clients: make(map[*client]struct{}),
	}
}

// ServeHTTP upgrades the request to a WebSocket, registers the client and
// keeps the connection open until the peer goes away. Inbound messages are
// read and discarded; the hub is broadcast-only.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", slog.Any("error", err))
		return
	}

	// The server's read/write timeouts survive the hijack; a long-lived
	// stream must not inherit them.
	_ = conn.UnderlyingConn().SetDeadline(time.Time{})

	c := &client{conn: conn}
	h.mu.Lock()
	h.clients[c] = struct{}{}
	h.mu.Unlock()

	h.logger.Info("websocket client connected", slog.String("remote", conn.RemoteAddr().String()))

	welcome := Event{Type: "WELCOME", Timestamp: time.Now()}
	if data, err := json.Marshal(welcome); err == nil {
		_ = c.write(data)
	}

	go h.readLoop(c)
}

func (h *Hub) readLoop(c *client) {
	defer h.drop(c)
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (h *Hub) drop(c *client) {
	h.mu.Lock()
	delete(h.clients, c)
	h.mu.Unlock()
	c.conn.Close()
}

// Publish sends the event to every connected client. Clients that fail to
// write are dropped.
func (h *Hub) Publish(_ context.Context, ev Event) error {
	data, err := json.Marshal(ev)
	if err != nil {
		return err
	}

	h.mu.RLock()
	clients := make([]*client, 0, len(h.clients))
	for c := range h.clients {
		clients = append(clients, c)
	}
	h.mu.RUnlock()

	for _, c := range clients {
		if err := c.write(data); err != nil {
			h.logger.Warn("dropping websocket client", slog.Any("error", err))
			h.drop(c)
		}
	}
	return nil
}

// ClientCount reports the number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}
