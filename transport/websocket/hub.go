package websocket

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
)

const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer. Entity payloads are opaque,
	// so this is generous.
	maxMessageSize = 64 * 1024

	// Outbound frames buffered per connection before it is dropped.
	sendBufferSize = 256
)

var ErrHubClosed = errors.New("hub is not running")

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		// Allow all origins; browsers load the client page from anywhere during playtests
		return true
	},
}

// Message is the envelope for every frame in both directions
type Message struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// Handler receives inbound events and close notifications
type Handler interface {
	HandleEvent(ctx context.Context, conn string, event string, payload json.RawMessage)
	Forget(ctx context.Context, conn string)
}

// Client represents one WebSocket connection
type Client struct {
	hub    *Hub
	conn   *websocket.Conn
	send   chan []byte
	id     string
	remote string
}

type outbound struct {
	conn string
	data []byte
}

// Hub maintains the set of active connections and routes outbound events
type Hub struct {
	// Registered clients by connection ID
	clients map[string]*Client

	// Outbound frames addressed by connection ID
	outbound chan outbound

	// Register requests from clients
	register chan *Client

	// Unregister requests from clients
	unregister chan *Client

	// Closed when Run returns
	done chan struct{}

	handler Handler
	log     *slog.Logger
	nextID  atomic.Uint64
	live    atomic.Int64
}

// NewHub creates a new WebSocket hub. SetHandler must be called before
// connections are served.
func NewHub(logger *slog.Logger) *Hub {
	if logger == nil {
		logger = slog.Default()
	}
	return &Hub{
		clients:    make(map[string]*Client),
		outbound:   make(chan outbound),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		done:       make(chan struct{}),
		log:        logger,
	}
}

// SetHandler installs the receiver of inbound events
func (h *Hub) SetHandler(handler Handler) {
	h.handler = handler
}

// Run starts the hub's event loop and blocks until ctx is cancelled
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)

	for {
		select {
		case client := <-h.register:
			h.registerClient(client)

		case client := <-h.unregister:
			h.unregisterClient(client)

		case out := <-h.outbound:
			h.deliver(out)

		case <-ctx.Done():
			for _, client := range h.clients {
				h.unregisterClient(client)
			}
			return
		}
	}
}

// Send queues event for the connection. Delivery is not confirmed; unknown
// or congested connections are dropped silently.
func (h *Hub) Send(conn string, event string, payload any) error {
	data, err := encode(event, payload)
	if err != nil {
		return err
	}

	select {
	case h.outbound <- outbound{conn: conn, data: data}:
		return nil
	case <-h.done:
		return ErrHubClosed
	}
}

// Connections returns the number of live connections
func (h *Hub) Connections() int {
	return int(h.live.Load())
}

// ServeWS handles WebSocket requests from clients
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Warn("WebSocket upgrade failed", "err", err)
		return
	}

	client := &Client{
		hub:    h,
		conn:   conn,
		send:   make(chan []byte, sendBufferSize),
		id:     fmt.Sprintf("conn-%d", h.nextID.Add(1)),
		remote: r.RemoteAddr,
	}

	select {
	case h.register <- client:
	case <-h.done:
		conn.Close()
		return
	}

	// Start client goroutines
	go client.writePump()
	go client.readPump()
}

func encode(event string, payload any) ([]byte, error) {
	msg := Message{Event: event}
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal %s payload: %w", event, err)
		}
		msg.Data = data
	}
	return json.Marshal(msg)
}

// registerClient adds a client to the hub
func (h *Hub) registerClient(client *Client) {
	h.clients[client.id] = client
	h.live.Add(1)

	h.log.Info("Client registered", "conn", client.id, "remote", client.remote, "total", len(h.clients))
}

// unregisterClient removes a client and closes its send channel
func (h *Hub) unregisterClient(client *Client) {
	if current, ok := h.clients[client.id]; ok && current == client {
		delete(h.clients, client.id)
		close(client.send)
		h.live.Add(-1)

		h.log.Info("Client unregistered", "conn", client.id, "remaining", len(h.clients))
	}
}

// deliver hands a frame to one client without blocking
func (h *Hub) deliver(out outbound) {
	client, ok := h.clients[out.conn]
	if !ok {
		h.log.Debug("Dropping frame for unknown connection", "conn", out.conn)
		return
	}

	select {
	case client.send <- out.data:
	default:
		// Client's send channel is full, close it
		h.log.Warn("Client send buffer full, disconnecting", "conn", client.id)
		h.unregisterClient(client)
	}
}

// readPump pumps events from the WebSocket connection to the handler
func (c *Client) readPump() {
	ctx := context.Background()
	defer func() {
		c.hub.handler.Forget(ctx, c.id)
		select {
		case c.hub.unregister <- c:
		case <-c.hub.done:
		}
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.hub.log.Warn("WebSocket error", "conn", c.id, "err", err)
			}
			break
		}

		var msg Message
		if err := json.Unmarshal(data, &msg); err != nil || msg.Event == "" {
			c.hub.log.Debug("Ignoring malformed frame", "conn", c.id, "remote", c.remote)
			continue
		}

		c.hub.log.Debug("> "+msg.Event, "conn", c.id, "remote", c.remote)
		c.hub.handler.HandleEvent(ctx, c.id, msg.Event, msg.Data)
	}
}

// writePump pumps frames from the hub to the WebSocket connection
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
				// The hub closed the channel
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
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
