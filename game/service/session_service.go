package service

import (
	"context"
	"encoding/json"

	"github.com/wricardo/mcp-training/roombroker/game/room"
)

// SessionService coordinates identities, rooms and event relay
type SessionService interface {
	// Protocol entry points used by the transport
	HandleEvent(ctx context.Context, conn string, event string, payload json.RawMessage)
	Forget(ctx context.Context, conn string)

	// Player operations
	Identify(ctx context.Context, conn string) (string, error)
	CreateRoom(ctx context.Context, conn string) (*JoinResult, error)
	ListRooms(ctx context.Context, conn string) ([]room.Room, error)
	JoinRoom(ctx context.Context, conn string, roomID string) (*JoinResult, error)
	StartGame(ctx context.Context, conn string) (room.Room, error)
	RelayEntity(ctx context.Context, conn string, op EntityOp, payload json.RawMessage) (int, error)
	State(conn string) PlayerState

	// Introspection
	Rooms(ctx context.Context, joinableOnly bool) []room.Room
	Room(ctx context.Context, roomID string) (room.Room, error)
	Stats(ctx context.Context) Stats
}

// IdentityRegistry binds connections to player identities
type IdentityRegistry interface {
	Issue(conn string) (player, previous string)
	Release(conn string) (string, bool)
	PlayerFor(conn string) (string, bool)
	ConnFor(player string) (string, bool)
	Count() int
}

// RoomRegistry owns rooms and the membership index
type RoomRegistry interface {
	CreateRoom(ctx context.Context, owner string) (room.Room, *room.Departure, error)
	ListJoinable() []room.Room
	List() []room.Room
	JoinRoom(roomID, player string) (int, room.Room, *room.Departure, error)
	StartGame(player string) (room.Room, error)
	LeaveRoom(player string) *room.Departure
	Get(roomID string) (room.Room, error)
	RoomOf(player string) (room.Room, bool)
	Count() int
}
