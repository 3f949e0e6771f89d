package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/gorilla/websocket"
	"github.com/wricardo/mcp-training/roombroker/game/room"
	"github.com/wricardo/mcp-training/roombroker/game/service"
)

var (
	ErrRejected = errors.New("request rejected")
	ErrClosed   = errors.New("connection closed")
)

// envelope mirrors the broker's frame format
type envelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// Bot is one scripted player connection
type Bot struct {
	Name   string
	Player string
	Slot   int

	conn    *websocket.Conn
	inbox   chan envelope
	pending []envelope
	writeMu sync.Mutex
	log     *slog.Logger
}

// Dial connects a bot to the broker's WebSocket endpoint
func Dial(ctx context.Context, url, name string, logger *slog.Logger) (*Bot, error) {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, url, nil)
	if err != nil {
		return nil, fmt.Errorf("%s: dial %s: %w", name, url, err)
	}

	b := &Bot{
		Name:  name,
		conn:  conn,
		inbox: make(chan envelope, 1024),
		log:   logger.With("bot", name),
	}
	go b.readLoop()
	return b, nil
}

func (b *Bot) readLoop() {
	defer close(b.inbox)
	for {
		var env envelope
		if err := b.conn.ReadJSON(&env); err != nil {
			return
		}
		b.log.Debug("< "+env.Event, "bytes", len(env.Data))
		b.inbox <- env
	}
}

// Send writes one event
func (b *Bot) Send(event string, data any) error {
	b.writeMu.Lock()
	defer b.writeMu.Unlock()

	msg := map[string]any{"event": event}
	if data != nil {
		msg["data"] = data
	}
	b.log.Debug("> " + event)
	return b.conn.WriteJSON(msg)
}

// Expect returns the next event named in events. Other events received in the
// meantime are kept for later calls.
func (b *Bot) Expect(ctx context.Context, events ...string) (envelope, error) {
	for i, env := range b.pending {
		if matches(env.Event, events) {
			b.pending = append(b.pending[:i], b.pending[i+1:]...)
			return env, nil
		}
	}

	for {
		select {
		case env, ok := <-b.inbox:
			if !ok {
				return envelope{}, fmt.Errorf("%s: waiting for %v: %w", b.Name, events, ErrClosed)
			}
			if matches(env.Event, events) {
				return env, nil
			}
			b.pending = append(b.pending, env)
		case <-ctx.Done():
			return envelope{}, fmt.Errorf("%s: waiting for %v: %w", b.Name, events, ctx.Err())
		}
	}
}

func matches(event string, events []string) bool {
	for _, e := range events {
		if e == event {
			return true
		}
	}
	return false
}

// Hello requests an identity
func (b *Bot) Hello(ctx context.Context) error {
	if err := b.Send(service.EventHello, nil); err != nil {
		return err
	}
	env, err := b.Expect(ctx, service.EventHelloOK)
	if err != nil {
		return err
	}
	return json.Unmarshal(env.Data, &b.Player)
}

// CreateRoom opens a room owned by this bot
func (b *Bot) CreateRoom(ctx context.Context) (room.Room, error) {
	if err := b.Send(service.EventCreateRoom, nil); err != nil {
		return room.Room{}, err
	}
	env, err := b.Expect(ctx, service.EventCreateRoomOK)
	if err != nil {
		return room.Room{}, err
	}
	return b.seat(env)
}

// ListRooms fetches the joinable rooms
func (b *Bot) ListRooms(ctx context.Context) ([]room.Room, error) {
	if err := b.Send(service.EventListRooms, nil); err != nil {
		return nil, err
	}
	env, err := b.Expect(ctx, service.EventListRoomsOK)
	if err != nil {
		return nil, err
	}
	var rooms []room.Room
	if err := json.Unmarshal(env.Data, &rooms); err != nil {
		return nil, err
	}
	return rooms, nil
}

// JoinRoom takes a slot in roomID
func (b *Bot) JoinRoom(ctx context.Context, roomID string) (room.Room, error) {
	if err := b.Send(service.EventJoinRoom, map[string]string{"roomId": roomID}); err != nil {
		return room.Room{}, err
	}
	env, err := b.Expect(ctx, service.EventJoinRoomOK, service.EventJoinRoomKO)
	if err != nil {
		return room.Room{}, err
	}
	if env.Event == service.EventJoinRoomKO {
		return room.Room{}, fmt.Errorf("%s: join %s: %w", b.Name, roomID, ErrRejected)
	}
	return b.seat(env)
}

func (b *Bot) seat(env envelope) (room.Room, error) {
	var result service.JoinResult
	if err := json.Unmarshal(env.Data, &result); err != nil {
		return room.Room{}, err
	}
	b.Slot = result.PlayerNum
	return result.Room, nil
}

// WaitForPlayers blocks until a room-changed shows at least n players
func (b *Bot) WaitForPlayers(ctx context.Context, n int) (room.Room, error) {
	for {
		env, err := b.Expect(ctx, service.EventRoomChanged)
		if err != nil {
			return room.Room{}, err
		}
		var rm room.Room
		if err := json.Unmarshal(env.Data, &rm); err != nil {
			return room.Room{}, err
		}
		if rm.PlayerCount() >= n {
			return rm, nil
		}
	}
}

// StartGame asks the broker to start this bot's room
func (b *Bot) StartGame(ctx context.Context) error {
	if err := b.Send(service.EventStartGame, nil); err != nil {
		return err
	}
	env, err := b.Expect(ctx, service.EventGameStarted, service.EventStartGameKO)
	if err != nil {
		return err
	}
	if env.Event == service.EventStartGameKO {
		return fmt.Errorf("%s: start game: %w", b.Name, ErrRejected)
	}
	return nil
}

// Close ends the connection
func (b *Bot) Close() error {
	b.writeMu.Lock()
	defer b.writeMu.Unlock()
	return b.conn.Close()
}
