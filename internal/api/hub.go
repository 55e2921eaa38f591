package api

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
)

// Event is a progress notification pushed to WebSocket clients while a
// project is ingested or analyzed.
type Event struct {
	Type      string    `json:"type"` // "progress", "complete" or "error"
	ProjectID string    `json:"project_id,omitempty"`
	Stage     string    `json:"stage,omitempty"`
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
}

const (
	eventProgress = "progress"
	eventComplete = "complete"
	eventError    = "error"
)

const (
	clientSendBuffer = 64
	writeTimeout     = 10 * time.Second
	pingInterval     = 54 * time.Second
)

type wsClient struct {
	id   string
	conn *websocket.Conn
	send chan Event
}

// Hub fans events out to every connected WebSocket client. Slow clients are
// dropped rather than allowed to block a broadcast.
type Hub struct {
	mu         sync.RWMutex
	clients    map[*wsClient]bool
	register   chan *wsClient
	unregister chan *wsClient
	broadcast  chan Event
	done       chan struct{} // closed when Run returns

	upgrader websocket.Upgrader
}

// NewHub creates an idle hub; Run starts its event loop.
func NewHub() *Hub {
	return &Hub{
		clients:    make(map[*wsClient]bool),
		register:   make(chan *wsClient),
		unregister: make(chan *wsClient),
		broadcast:  make(chan Event, 256),
		done:       make(chan struct{}),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			// The API is served to local tooling; origin enforcement is
			// left to deployments that put the server behind a proxy.
			CheckOrigin: func(*http.Request) bool { return true },
		},
	}
}

// Run owns the client set until ctx is cancelled, then closes every
// remaining connection. Closing done releases any goroutine still trying to
// register or unregister.
func (h *Hub) Run(ctx context.Context) {
	defer func() {
		close(h.done)
		h.mu.Lock()
		for client := range h.clients {
			close(client.send)
			client.conn.Close()
			delete(h.clients, client)
		}
		h.mu.Unlock()
	}()

	for {
		select {
		case client := <-h.register:
			h.mu.Lock()
			h.clients[client] = true
			total := len(h.clients)
			h.mu.Unlock()
			logrus.Debugf("websocket client %s connected (total %d)", client.id, total)

		case client := <-h.unregister:
			h.drop(client)

		case event := <-h.broadcast:
			h.mu.Lock()
			for client := range h.clients {
				select {
				case client.send <- event:
				default:
					h.dropLocked(client)
				}
			}
			h.mu.Unlock()

		case <-ctx.Done():
			return
		}
	}
}

func (h *Hub) drop(client *wsClient) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.dropLocked(client)
}

func (h *Hub) dropLocked(client *wsClient) {
	if _, ok := h.clients[client]; !ok {
		return
	}
	delete(h.clients, client)
	close(client.send)
	client.conn.Close()
	logrus.Debugf("websocket client %s disconnected (total %d)", client.id, len(h.clients))
}

// ClientCount reports the number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Broadcast queues event for delivery to all clients. It never blocks; when
// the queue is full the event is dropped with a warning.
func (h *Hub) Broadcast(event Event) {
	event.Timestamp = time.Now().UTC()
	select {
	case h.broadcast <- event:
	default:
		logrus.Warnf("websocket broadcast queue full, dropping %s event", event.Type)
	}
}

// HandleUpgrade upgrades an HTTP request to a WebSocket connection and
// registers it with the hub.
func (h *Hub) HandleUpgrade(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		logrus.Warnf("websocket upgrade failed: %v", err)
		return
	}

	client := &wsClient{
		id:   uuid.NewString(),
		conn: conn,
		send: make(chan Event, clientSendBuffer),
	}
	select {
	case h.register <- client:
	case <-h.done:
		conn.Close()
		return
	}

	go client.writePump()
	go client.readPump(h)
}

// writePump delivers queued events and keepalive pings until the send
// channel closes.
func (c *wsClient) writePump() {
	ticker := time.NewTicker(pingInterval)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case event, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteJSON(event); err != nil {
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// readPump discards inbound messages; its job is noticing the close.
func (c *wsClient) readPump(h *Hub) {
	defer func() {
		select {
		case h.unregister <- c:
		case <-h.done:
		}
	}()

	c.conn.SetReadLimit(512)
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				logrus.Debugf("websocket client %s read error: %v", c.id, err)
			}
			return
		}
	}
}
