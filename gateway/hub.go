package gateway

import (
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/benlarsendk/a320-checklist-companion/metrics"
)

const (
	// sendBufferSize bounds the per-client outbound queue. A client that
	// cannot keep up is dropped rather than stalling the broadcast path.
	sendBufferSize = 64

	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10

	maxMessageSize = 64 << 10
)

// wsClient is one connected WebSocket peer.
type wsClient struct {
	id   string
	conn *websocket.Conn
	send chan []byte

	// closed guards send against writes after unregister. Protected by the
	// hub mutex.
	closed bool
}

// Hub tracks connected clients and fans out broadcasts. Safe for concurrent
// use.
type Hub struct {
	logger *slog.Logger

	mu      sync.RWMutex
	clients map[*wsClient]struct{}
}

// NewHub creates an empty hub.
func NewHub(logger *slog.Logger) *Hub {
	if logger == nil {
		logger = slog.Default()
	}
	return &Hub{
		logger:  logger,
		clients: make(map[*wsClient]struct{}),
	}
}

// ClientCount returns the number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

func (h *Hub) register(conn *websocket.Conn) *wsClient {
	c := &wsClient{
		id:   uuid.New().String(),
		conn: conn,
		send: make(chan []byte, sendBufferSize),
	}
	h.mu.Lock()
	h.clients[c] = struct{}{}
	count := len(h.clients)
	h.mu.Unlock()

	metrics.ConnectedClients.Set(float64(count))
	h.logger.Info("Client connected", "client", c.id, "clients", count)
	return c
}

func (h *Hub) unregister(c *wsClient) {
	h.mu.Lock()
	_, present := h.clients[c]
	if present {
		delete(h.clients, c)
		c.closed = true
		close(c.send)
	}
	count := len(h.clients)
	h.mu.Unlock()

	if present {
		// Closing the connection unblocks the client's read pump so it
		// stops producing replies for a channel that no longer accepts them.
		c.conn.Close()
		metrics.ConnectedClients.Set(float64(count))
		h.logger.Info("Client disconnected", "client", c.id, "clients", count)
	}
}

// Broadcast queues a message for every client. Clients with a full send
// buffer are dropped.
func (h *Hub) Broadcast(msg []byte) {
	h.mu.RLock()
	var slow []*wsClient
	for c := range h.clients {
		select {
		case c.send <- msg:
		default:
			slow = append(slow, c)
		}
	}
	h.mu.RUnlock()

	for _, c := range slow {
		h.logger.Warn("Dropping slow client", "client", c.id)
		h.unregister(c)
	}
	metrics.Broadcasts.Inc()
}

// sendTo queues a message for a single client. A full buffer drops the
// message, not the client: direct replies are less critical than the state
// stream that follows them. The send happens under the read lock so it can
// never race unregister closing the channel.
func (h *Hub) sendTo(c *wsClient, msg []byte) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if c.closed {
		return
	}
	select {
	case c.send <- msg:
	default:
		h.logger.Warn("Dropping reply to slow client", "client", c.id)
	}
}

// closeAll disconnects every client.
func (h *Hub) closeAll() {
	h.mu.RLock()
	clients := make([]*wsClient, 0, len(h.clients))
	for c := range h.clients {
		clients = append(clients, c)
	}
	h.mu.RUnlock()

	for _, c := range clients {
		h.unregister(c)
	}
}

// writePump pushes queued messages to the peer and keeps the connection
// alive with pings. Runs as one goroutine per client.
func (c *wsClient) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case msg, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
