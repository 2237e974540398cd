package ordercontroller

import (
	"encoding/json"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	writeWait = 5 * time.Second
	// sendBuffer is how many events a client may fall behind before it is
	// dropped.
	sendBuffer = 32
)

type client struct {
	conn *websocket.Conn
	send chan []byte
}

// Hub fans order events out to connected admin dashboards. Each client has
// its own writer, so Broadcast never waits on the network.
type Hub struct {
	log     *zap.Logger
	mu      sync.Mutex
	clients map[*client]struct{}
}

func NewHub(log *zap.Logger) *Hub {
	return &Hub{log: log, clients: make(map[*client]struct{})}
}

func (h *Hub) add(conn *websocket.Conn) *client {
	cl := &client{conn: conn, send: make(chan []byte, sendBuffer)}
	h.mu.Lock()
	h.clients[cl] = struct{}{}
	h.mu.Unlock()
	go h.writePump(cl)
	return cl
}

// drop unregisters cl and stops its writer. Safe to call more than once.
func (h *Hub) drop(cl *client) {
	h.mu.Lock()
	h.dropLocked(cl)
	h.mu.Unlock()
}

func (h *Hub) dropLocked(cl *client) {
	if _, ok := h.clients[cl]; ok {
		delete(h.clients, cl)
		close(cl.send)
	}
}

// writePump is the only writer of cl.conn. It exits once the hub closes
// cl.send or a write fails, and closes the connection on the way out.
func (h *Hub) writePump(cl *client) {
	defer cl.conn.Close()
	for data := range cl.send {
		_ = cl.conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := cl.conn.WriteMessage(websocket.TextMessage, data); err != nil {
			h.log.Debug("dropping websocket client", zap.Error(err))
			h.drop(cl)
			return
		}
	}
	_ = cl.conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down"),
		time.Now().Add(writeWait))
}

// Len reports the number of connected clients.
func (h *Hub) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// Broadcast queues v as JSON for every client. A client whose queue is full
// is dropped.
func (h *Hub) Broadcast(v any) {
	data, err := json.Marshal(v)
	if err != nil {
		h.log.Error("failed to encode websocket event", zap.Error(err))
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	for cl := range h.clients {
		select {
		case cl.send <- data:
		default:
			h.log.Warn("dropping slow websocket client")
			h.dropLocked(cl)
		}
	}
}

// Close disconnects every client.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for cl := range h.clients {
		h.dropLocked(cl)
	}
}

// GET /api/admin/orders/ws
//
// Upgrades are accepted from the configured CORS origins only. Requests
// without an Origin header (non-browser clients) are allowed.
func ServeWS(hub *Hub, allowedOrigins []string) gin.HandlerFunc {
	upgrader := websocket.Upgrader{
		CheckOrigin: func(r *http.Request) bool {
			origin := r.Header.Get("Origin")
			if origin == "" {
				return true
			}
			for _, allowed := range allowedOrigins {
				if allowed == "*" || strings.EqualFold(allowed, origin) {
					return true
				}
			}
			return false
		},
	}

	return func(c *gin.Context) {
		conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
		if err != nil {
			hub.log.Debug("websocket upgrade failed", zap.Error(err))
			return
		}
		cl := hub.add(conn)
		defer hub.drop(cl)

		// Inbound messages are ignored; reading detects the disconnect.
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}
}
