// Package websocket distributes live state and rating updates to connected
// clients over WebSocket and server-sent events.
package websocket

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/abrezinsky/pitchvote/internal/logger"
	"github.com/abrezinsky/pitchvote/internal/metrics"
	"github.com/abrezinsky/pitchvote/internal/models"
)

// Transports
const (
	TransportWS  = "ws"
	TransportSSE = "sse"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = 54 * time.Second
	sendBufferSize = 256
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // Audience devices connect from anywhere on the LAN
	},
}

// StateSource provides the state sent to a client when it connects
type StateSource interface {
	Get() models.LiveState
}

// Hub maintains the set of active clients and broadcasts messages to the clients
type Hub struct {
	log        logger.Logger
	metrics    *metrics.Metrics
	state      StateSource
	heartbeat  time.Duration
	clients    map[*Client]bool
	broadcast  chan models.Message
	register   chan *Client
	unregister chan *Client
	done       chan struct{}
	stopOnce   sync.Once
	mutex      sync.RWMutex
}

// Client is a middleman between one stream connection and the hub.
// conn is nil for server-sent-event clients.
type Client struct {
	hub       *Hub
	conn      *websocket.Conn
	transport string
	send      chan models.Message
}

// New creates a new Hub instance with injected dependencies.
// heartbeat is the keep-alive interval for server-sent-event streams.
func New(log logger.Logger, m *metrics.Metrics, state StateSource, heartbeat time.Duration) *Hub {
	if heartbeat <= 0 {
		heartbeat = 25 * time.Second
	}
	return &Hub{
		log:        log,
		metrics:    m,
		state:      state,
		heartbeat:  heartbeat,
		clients:    make(map[*Client]bool),
		broadcast:  make(chan models.Message, 64),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		done:       make(chan struct{}),
	}
}

// Start begins the hub's main loop in a goroutine
func (h *Hub) Start() {
	go h.run()
}

// Stop ends the main loop and closes every client stream
func (h *Hub) Stop() {
	h.stopOnce.Do(func() { close(h.done) })
}

// run handles client registration/unregistration and message broadcasting
func (h *Hub) run() {
	for {
		select {
		case client := <-h.register:
			h.mutex.Lock()
			h.clients[client] = true
			total := len(h.clients)
			// The buffer is empty, so this never blocks
			client.send <- models.Message{Type: models.MessageLiveState, Payload: h.state.Get()}
			h.mutex.Unlock()
			h.metrics.SubscriberAdded(client.transport)
			h.log.Debug("Client connected", "transport", client.transport, "total_clients", total)

		case client := <-h.unregister:
			h.mutex.Lock()
			h.removeLocked(client)
			total := len(h.clients)
			h.mutex.Unlock()
			h.log.Debug("Client disconnected", "transport", client.transport, "total_clients", total)

		case message := <-h.broadcast:
			h.mutex.Lock()
			for client := range h.clients {
				select {
				case client.send <- message:
				default:
					// Client's send channel is full; it reconnects and resyncs
					h.log.Warn("Dropping slow client", "transport", client.transport)
					h.removeLocked(client)
				}
			}
			h.mutex.Unlock()

		case <-h.done:
			h.mutex.Lock()
			for client := range h.clients {
				h.removeLocked(client)
			}
			h.mutex.Unlock()
			h.log.Info("Stream hub stopped")
			return
		}
	}
}

// removeLocked drops client and closes its send channel. Callers hold h.mutex.
func (h *Hub) removeLocked(client *Client) {
	if _, ok := h.clients[client]; ok {
		delete(h.clients, client)
		close(client.send)
		h.metrics.SubscriberRemoved(client.transport)
	}
}

// ClientCount returns the number of connected stream clients
func (h *Hub) ClientCount() int {
	h.mutex.RLock()
	defer h.mutex.RUnlock()
	return len(h.clients)
}

func (h *Hub) join(c *Client) bool {
	select {
	case <-h.done:
		return false
	default:
	}
	select {
	case h.register <- c:
		return true
	case <-h.done:
		return false
	}
}

func (h *Hub) leave(c *Client) {
	select {
	case h.unregister <- c:
	case <-h.done:
	}
}

// BroadcastMessage sends a message to all connected clients
func (h *Hub) BroadcastMessage(msgType string, payload interface{}) {
	select {
	case h.broadcast <- models.Message{Type: msgType, Payload: payload}:
	case <-h.done:
	}
}

// PublishLiveState implements livestate.Publisher
func (h *Hub) PublishLiveState(state models.LiveState) {
	h.BroadcastMessage(models.MessageLiveState, state)
}

// BroadcastPitchRated implements services.Broadcaster
func (h *Hub) BroadcastPitchRated(update models.PitchRated) {
	h.BroadcastMessage(models.MessagePitchRated, update)
}

// BroadcastRatingsReset implements services.Broadcaster
func (h *Hub) BroadcastRatingsReset() {
	h.BroadcastMessage(models.MessageReset, map[string]interface{}{})
}

// ==================== WebSocket ====================

// readPump pumps messages from the websocket connection to the hub
func (c *Client) readPump() {
	defer func() {
		c.hub.leave(c)
		c.conn.Close()
	}()

	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.hub.log.Debug("WebSocket error", "error", err)
			}
			break
		}

		// Clients only listen; anything they send is logged and ignored
		var msg models.Message
		if err := json.Unmarshal(message, &msg); err == nil {
			c.hub.log.Debug("Received message", "type", msg.Type)
		}
	}
}

// writePump pumps messages from the hub to the websocket connection
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				// Hub closed the channel
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteJSON(message); err != nil {
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

// ServeWs handles websocket requests from clients
func (h *Hub) ServeWs(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Error("WebSocket upgrade error", "error", err)
		return
	}

	client := &Client{
		hub:       h,
		conn:      conn,
		transport: TransportWS,
		send:      make(chan models.Message, sendBufferSize),
	}
	if !h.join(client) {
		conn.Close()
		return
	}

	// Allow collection of memory referenced by the caller by doing all work in new goroutines
	go client.writePump()
	go client.readPump()
}
