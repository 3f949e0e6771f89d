package websocket

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/wricardo/mcp-training/roombroker/game/identity"
	"github.com/wricardo/mcp-training/roombroker/game/naming"
	"github.com/wricardo/mcp-training/roombroker/game/room"
	"github.com/wricardo/mcp-training/roombroker/game/service"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// recordingHandler records inbound events and optionally echoes them back
type recordingHandler struct {
	hub    *Hub
	echo   bool
	mu     sync.Mutex
	events []Message
	conns  []string
	gone   chan string
}

func newRecordingHandler(hub *Hub, echo bool) *recordingHandler {
	return &recordingHandler{hub: hub, echo: echo, gone: make(chan string, 8)}
}

func (h *recordingHandler) HandleEvent(ctx context.Context, conn string, event string, payload json.RawMessage) {
	h.mu.Lock()
	h.events = append(h.events, Message{Event: event, Data: payload})
	h.conns = append(h.conns, conn)
	h.mu.Unlock()

	if h.echo {
		h.hub.Send(conn, event+"-ok", payload)
	}
}

func (h *recordingHandler) Forget(ctx context.Context, conn string) {
	h.gone <- conn
}

func (h *recordingHandler) received() []Message {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]Message(nil), h.events...)
}

func startServer(t *testing.T, hub *Hub) string {
	t.Helper()

	ctx, cancel := context.WithCancel(context.Background())
	go hub.Run(ctx)

	server := httptest.NewServer(http.HandlerFunc(hub.ServeWS))
	t.Cleanup(func() {
		server.Close()
		cancel()
	})

	return "ws" + strings.TrimPrefix(server.URL, "http")
}

func dial(t *testing.T, url string) *websocket.Conn {
	t.Helper()
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("Failed to connect to WebSocket: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func writeEvent(t *testing.T, conn *websocket.Conn, event string, data any) {
	t.Helper()
	msg := map[string]any{"event": event}
	if data != nil {
		msg["data"] = data
	}
	if err := conn.WriteJSON(msg); err != nil {
		t.Fatalf("Failed to write %s: %v", event, err)
	}
}

func readEvent(t *testing.T, conn *websocket.Conn) Message {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, data, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("Failed to read WebSocket message: %v", err)
	}

	var msg Message
	if err := json.Unmarshal(data, &msg); err != nil {
		t.Fatalf("Failed to unmarshal message: %v", err)
	}
	return msg
}

func TestNewHub(t *testing.T) {
	hub := NewHub(nil)

	if hub == nil {
		t.Fatal("NewHub() returned nil")
	}

	if hub.clients == nil {
		t.Error("Hub clients map is nil")
	}

	if hub.outbound == nil {
		t.Error("Hub outbound channel is nil")
	}

	if hub.register == nil {
		t.Error("Hub register channel is nil")
	}

	if hub.unregister == nil {
		t.Error("Hub unregister channel is nil")
	}

	if hub.log == nil {
		t.Error("Hub logger is nil")
	}
}

func TestHubRegisterClient(t *testing.T) {
	hub := NewHub(quietLogger())

	client := &Client{
		hub:  hub,
		id:   "conn-test",
		send: make(chan []byte, sendBufferSize),
	}

	hub.registerClient(client)

	if hub.clients["conn-test"] != client {
		t.Error("Client was not registered")
	}

	if hub.Connections() != 1 {
		t.Errorf("Expected 1 connection, got %d", hub.Connections())
	}
}

func TestHubUnregisterClient(t *testing.T) {
	hub := NewHub(quietLogger())

	client := &Client{
		hub:  hub,
		id:   "conn-test",
		send: make(chan []byte, sendBufferSize),
	}

	hub.registerClient(client)
	hub.unregisterClient(client)

	if _, exists := hub.clients["conn-test"]; exists {
		t.Error("Client should have been removed")
	}

	if _, ok := <-client.send; ok {
		t.Error("Send channel should be closed")
	}

	// A second unregister must not close the channel twice
	hub.unregisterClient(client)

	if hub.Connections() != 0 {
		t.Errorf("Expected 0 connections, got %d", hub.Connections())
	}
}

func TestHubDeliver(t *testing.T) {
	hub := NewHub(quietLogger())

	client := &Client{
		hub:  hub,
		id:   "conn-a",
		send: make(chan []byte, 1),
	}
	hub.registerClient(client)

	data, err := encode("hello", "player-1")
	if err != nil {
		t.Fatalf("encode failed: %v", err)
	}

	hub.deliver(outbound{conn: "conn-a", data: data})

	select {
	case got := <-client.send:
		if string(got) != `{"event":"hello","data":"player-1"}` {
			t.Errorf("Unexpected frame: %s", got)
		}
	default:
		t.Fatal("Frame was not delivered")
	}

	// Unknown connections are dropped silently
	hub.deliver(outbound{conn: "conn-missing", data: data})

	// A full buffer disconnects the client
	hub.deliver(outbound{conn: "conn-a", data: data})
	hub.deliver(outbound{conn: "conn-a", data: data})

	if _, exists := hub.clients["conn-a"]; exists {
		t.Error("Slow client should have been dropped")
	}
}

func TestEncode(t *testing.T) {
	tests := []struct {
		name    string
		event   string
		payload any
		want    string
	}{
		{"no payload", "game-started", nil, `{"event":"game-started"}`},
		{"string payload", "hello", "abc", `{"event":"hello","data":"abc"}`},
		{"raw payload", "entity-sync", json.RawMessage(`{"x":1}`), `{"event":"entity-sync","data":{"x":1}}`},
		{"struct payload", "join-room-ok", map[string]int{"playerNum": 2}, `{"event":"join-room-ok","data":{"playerNum":2}}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := encode(tt.event, tt.payload)
			if err != nil {
				t.Fatalf("encode failed: %v", err)
			}
			if string(got) != tt.want {
				t.Errorf("encode() = %s, want %s", got, tt.want)
			}
		})
	}

	if _, err := encode("bad", make(chan int)); err == nil {
		t.Error("Expected error for unencodable payload")
	}
}

func TestHubSendAfterStop(t *testing.T) {
	hub := NewHub(quietLogger())

	ctx, cancel := context.WithCancel(context.Background())
	stopped := make(chan struct{})
	go func() {
		hub.Run(ctx)
		close(stopped)
	}()
	cancel()
	<-stopped

	if err := hub.Send("conn-1", "hello", "x"); err != ErrHubClosed {
		t.Errorf("Expected ErrHubClosed, got %v", err)
	}
}

func TestWebSocketRoundTrip(t *testing.T) {
	hub := NewHub(quietLogger())
	handler := newRecordingHandler(hub, true)
	hub.SetHandler(handler)

	conn := dial(t, startServer(t, hub))

	writeEvent(t, conn, "sync-entity", map[string]int{"x": 3})

	msg := readEvent(t, conn)
	if msg.Event != "sync-entity-ok" {
		t.Errorf("Expected sync-entity-ok, got %s", msg.Event)
	}
	if string(msg.Data) != `{"x":3}` {
		t.Errorf("Payload not echoed verbatim: %s", msg.Data)
	}

	got := handler.received()
	if len(got) != 1 || got[0].Event != "sync-entity" {
		t.Errorf("Handler saw %+v", got)
	}
}

func TestWebSocketIgnoresMalformedFrames(t *testing.T) {
	hub := NewHub(quietLogger())
	handler := newRecordingHandler(hub, true)
	hub.SetHandler(handler)

	conn := dial(t, startServer(t, hub))

	conn.WriteMessage(websocket.TextMessage, []byte("not json"))
	conn.WriteMessage(websocket.TextMessage, []byte(`{"data":1}`))
	writeEvent(t, conn, "hello", nil)

	// The connection survives and processes the next valid frame
	msg := readEvent(t, conn)
	if msg.Event != "hello-ok" {
		t.Errorf("Expected hello-ok, got %s", msg.Event)
	}

	if got := handler.received(); len(got) != 1 {
		t.Errorf("Expected only the valid frame to reach the handler, got %d", len(got))
	}
}

func TestWebSocketCloseNotifiesHandler(t *testing.T) {
	hub := NewHub(quietLogger())
	handler := newRecordingHandler(hub, false)
	hub.SetHandler(handler)

	conn := dial(t, startServer(t, hub))

	// Give some time for registration
	time.Sleep(50 * time.Millisecond)

	if hub.Connections() != 1 {
		t.Errorf("Expected 1 connection, got %d", hub.Connections())
	}

	conn.Close()

	select {
	case id := <-handler.gone:
		if !strings.HasPrefix(id, "conn-") {
			t.Errorf("Unexpected connection id %q", id)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Handler was not told about the closed connection")
	}

	deadline := time.Now().Add(time.Second)
	for hub.Connections() != 0 && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}
	if hub.Connections() != 0 {
		t.Errorf("Expected 0 connections after close, got %d", hub.Connections())
	}
}

func TestWebSocketRoomSession(t *testing.T) {
	hub := NewHub(quietLogger())
	rooms := room.NewRegistry(naming.NewGenerator(naming.DefaultWords()), room.WithInvariantChecks())
	svc := service.NewSessionService(identity.NewRegistry(), rooms, hub, service.WithLogger(quietLogger()))
	hub.SetHandler(svc)

	url := startServer(t, hub)
	alice := dial(t, url)
	bob := dial(t, url)

	writeEvent(t, alice, service.EventHello, nil)
	if msg := readEvent(t, alice); msg.Event != service.EventHelloOK {
		t.Fatalf("Expected hello-ok, got %s", msg.Event)
	}

	writeEvent(t, alice, service.EventCreateRoom, nil)
	created := readEvent(t, alice)
	if created.Event != service.EventCreateRoomOK {
		t.Fatalf("Expected create-room-ok, got %s", created.Event)
	}

	var result service.JoinResult
	if err := json.Unmarshal(created.Data, &result); err != nil {
		t.Fatalf("Failed to decode create-room-ok: %v", err)
	}
	if result.PlayerNum != 1 {
		t.Errorf("Expected playerNum 1, got %d", result.PlayerNum)
	}

	writeEvent(t, bob, service.EventHello, nil)
	readEvent(t, bob)

	writeEvent(t, bob, service.EventJoinRoom, map[string]string{"roomId": result.Room.ID})
	joined := readEvent(t, bob)
	if joined.Event != service.EventJoinRoomOK {
		t.Fatalf("Expected join-room-ok, got %s", joined.Event)
	}

	// Both occupants see the updated room
	for _, conn := range []*websocket.Conn{alice, bob} {
		msg := readEvent(t, conn)
		if msg.Event != service.EventRoomChanged {
			t.Fatalf("Expected room-changed, got %s", msg.Event)
		}
		var rm room.Room
		if err := json.Unmarshal(msg.Data, &rm); err != nil {
			t.Fatalf("Failed to decode room: %v", err)
		}
		if rm.PlayerCount() != 2 {
			t.Errorf("Expected 2 players, got %d", rm.PlayerCount())
		}
	}

	// Entity events reach everyone but the sender
	writeEvent(t, bob, service.EventSpawnEntity, map[string]string{"kind": "ship"})
	spawn := readEvent(t, alice)
	if spawn.Event != service.EventEntitySpawned || string(spawn.Data) != `{"kind":"ship"}` {
		t.Errorf("Unexpected relay %s %s", spawn.Event, spawn.Data)
	}

	// Closing bob's socket frees the slot
	bob.Close()
	left := readEvent(t, alice)
	if left.Event != service.EventRoomChanged {
		t.Fatalf("Expected room-changed after disconnect, got %s", left.Event)
	}
	var rm room.Room
	json.Unmarshal(left.Data, &rm)
	if rm.PlayerCount() != 1 {
		t.Errorf("Expected 1 player after disconnect, got %d", rm.PlayerCount())
	}
}
