package service

import (
	"errors"

	"github.com/wricardo/mcp-training/roombroker/game/room"
)

// Inbound events
const (
	EventHello         = "hello"
	EventCreateRoom    = "create-room"
	EventListRooms     = "list-rooms"
	EventJoinRoom      = "join-room"
	EventStartGame     = "start-game"
	EventSpawnEntity   = "spawn-entity"
	EventSyncEntity    = "sync-entity"
	EventDestroyEntity = "destroy-entity"
)

// Outbound events
const (
	EventHelloOK         = "hello-ok"
	EventCreateRoomOK    = "create-room-ok"
	EventListRoomsOK     = "list-rooms-ok"
	EventJoinRoomOK      = "join-room-ok"
	EventJoinRoomKO      = "join-room-ko"
	EventStartGameKO     = "start-game-ko"
	EventGameStarted     = "game-started"
	EventRoomChanged     = "room-changed"
	EventEntitySpawned   = "entity-spawned"
	EventEntitySynced    = "entity-synced"
	EventEntityDestroyed = "entity-destroyed"
)

var (
	ErrNotIdentified  = errors.New("connection has not said hello")
	ErrNotInRoom      = errors.New("player is not in a room")
	ErrInvalidPayload = errors.New("invalid payload")
	ErrUnknownEvent   = errors.New("unknown event")
)

// JoinResult is the body of create-room-ok and join-room-ok
type JoinResult struct {
	PlayerNum int       `json:"playerNum"`
	Room      room.Room `json:"room"`
}

// EntityOp selects which entity event is relayed
type EntityOp int

const (
	EntitySpawn EntityOp = iota
	EntitySync
	EntityDestroy
)

// Event returns the outbound event name for op
func (op EntityOp) Event() string {
	switch op {
	case EntitySpawn:
		return EventEntitySpawned
	case EntitySync:
		return EventEntitySynced
	case EntityDestroy:
		return EventEntityDestroyed
	default:
		return ""
	}
}

// PlayerState is where a connection sits in the protocol state machine
type PlayerState int

const (
	Anonymous PlayerState = iota
	Identified
	InRoom
)

func (s PlayerState) String() string {
	switch s {
	case Anonymous:
		return "anonymous"
	case Identified:
		return "identified"
	case InRoom:
		return "in_room"
	default:
		return "unknown"
	}
}

// Stats summarizes broker occupancy
type Stats struct {
	Identities    int `json:"identities"`
	Rooms         int `json:"rooms"`
	JoinableRooms int `json:"joinable_rooms"`
	StartedRooms  int `json:"started_rooms"`
	SeatedPlayers int `json:"seated_players"`
}
