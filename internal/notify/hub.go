package notify

import (
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"solana-kalshi-copier/internal/domain"
	"solana-kalshi-copier/internal/observability"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 512
	clientBuffer   = 16
)

// Hub fans emitted notifications out to websocket listeners, keyed by user.
// A slow listener loses messages instead of blocking the emitter.
type Hub struct {
	mu       sync.RWMutex
	clients  map[string]map[*client]struct{}
	upgrader websocket.Upgrader
	logger   *zap.Logger
}

type client struct {
	user string
	send chan *domain.Notification
}

// NewHub creates an empty hub.
func NewHub(logger *zap.Logger) *Hub {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Hub{
		clients: make(map[string]map[*client]struct{}),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
		logger: logger.Named("hub"),
	}
}

var _ Broadcaster = (*Hub)(nil)

// Broadcast delivers n to every listener of user.
func (h *Hub) Broadcast(user string, n *domain.Notification) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for c := range h.clients[user] {
		select {
		case c.send <- n:
		default:
			h.logger.Debug("listener buffer full, dropping notification",
				zap.String("user", user), zap.String("id", n.ID))
		}
	}
}

// Listeners returns the number of open listeners for user.
func (h *Hub) Listeners(user string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients[user])
}

func (h *Hub) register(user string) *client {
	c := &client{user: user, send: make(chan *domain.Notification, clientBuffer)}

	h.mu.Lock()
	if h.clients[user] == nil {
		h.clients[user] = make(map[*client]struct{})
	}
	h.clients[user][c] = struct{}{}
	h.mu.Unlock()

	observability.AddStreamClients(1)
	return c
}

func (h *Hub) unregister(c *client) {
	h.mu.Lock()
	if set, ok := h.clients[c.user]; ok {
		if _, ok := set[c]; ok {
			delete(set, c)
			close(c.send)
			observability.AddStreamClients(-1)
		}
		if len(set) == 0 {
			delete(h.clients, c.user)
		}
	}
	h.mu.Unlock()
}

// ServeWS upgrades the request and streams user's notifications until the peer goes away.
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request, user string) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", zap.Error(err))
		return
	}

	c := h.register(user)
	h.logger.Debug("listener connected", zap.String("user", user))

	go h.writePump(conn, c)
	h.readPump(conn, c)
}

// readPump discards inbound frames and detects a closed peer.
func (h *Hub) readPump(conn *websocket.Conn, c *client) {
	defer func() {
		h.unregister(c)
		conn.Close()
		h.logger.Debug("listener disconnected", zap.String("user", c.user))
	}()

	conn.SetReadLimit(maxMessageSize)
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (h *Hub) writePump(conn *websocket.Conn, c *client) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		conn.Close()
	}()

	for {
		select {
		case n, ok := <-c.send:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := conn.WriteJSON(n); err != nil {
				return
			}
		case <-ticker.C:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
