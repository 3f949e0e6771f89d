package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/wricardo/mcp-training/roombroker/game/relay"
	"github.com/wricardo/mcp-training/roombroker/game/room"
	"github.com/wricardo/mcp-training/roombroker/metrics"
)

// sessionServiceImpl implements the SessionService interface
type sessionServiceImpl struct {
	identities IdentityRegistry
	rooms      RoomRegistry
	relay      *relay.Relay
	metrics    *metrics.Metrics
	log        *slog.Logger
}

// Option configures the session service
type Option func(*sessionServiceImpl)

// WithLogger sets the structured logger
func WithLogger(logger *slog.Logger) Option {
	return func(s *sessionServiceImpl) {
		s.log = logger
	}
}

// WithMetrics enables Prometheus instrumentation
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *sessionServiceImpl) {
		s.metrics = m
	}
}

// NewSessionService creates a coordinator that delivers through sender
func NewSessionService(identities IdentityRegistry, rooms RoomRegistry, sender relay.Sender, opts ...Option) SessionService {
	s := &sessionServiceImpl{
		identities: identities,
		rooms:      rooms,
		log:        slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.relay = relay.New(sender, identities, s.log, s.metrics)
	return s
}

// HandleEvent dispatches one inbound protocol event
func (s *sessionServiceImpl) HandleEvent(ctx context.Context, conn string, event string, payload json.RawMessage) {
	s.metrics.EventReceived(event)
	s.log.Debug("event.received", "conn", conn, "event", event)

	var err error
	switch event {
	case EventHello:
		_, err = s.Identify(ctx, conn)
	case EventCreateRoom:
		_, err = s.CreateRoom(ctx, conn)
	case EventListRooms:
		_, err = s.ListRooms(ctx, conn)
	case EventJoinRoom:
		err = s.handleJoin(ctx, conn, payload)
	case EventStartGame:
		_, err = s.StartGame(ctx, conn)
	case EventSpawnEntity:
		_, err = s.RelayEntity(ctx, conn, EntitySpawn, payload)
	case EventSyncEntity:
		_, err = s.RelayEntity(ctx, conn, EntitySync, payload)
	case EventDestroyEntity:
		_, err = s.RelayEntity(ctx, conn, EntityDestroy, payload)
	default:
		err = fmt.Errorf("%w: %q", ErrUnknownEvent, event)
	}

	s.logOutcome(conn, event, err)
}

func (s *sessionServiceImpl) handleJoin(ctx context.Context, conn string, payload json.RawMessage) error {
	roomID, err := decodeRoomID(payload)
	if err != nil {
		if _, ok := s.identities.PlayerFor(conn); !ok {
			return ErrNotIdentified
		}
		s.reject(conn, EventJoinRoomKO, err)
		return err
	}
	_, err = s.JoinRoom(ctx, conn, roomID)
	return err
}

// Identify issues a fresh identity to conn, tearing down any previous one
func (s *sessionServiceImpl) Identify(ctx context.Context, conn string) (string, error) {
	if previous, ok := s.identities.PlayerFor(conn); ok {
		s.teardown(conn, previous)
	}

	player, _ := s.identities.Issue(conn)
	s.log.Info("player.identified", "conn", conn, "player", player)

	s.relay.Deliver(conn, EventHelloOK, player)
	return player, nil
}

// Forget tears down the identity bound to a closed connection
func (s *sessionServiceImpl) Forget(ctx context.Context, conn string) {
	player, ok := s.identities.PlayerFor(conn)
	if !ok {
		return
	}
	s.teardown(conn, player)
}

// teardown leaves the room, releases the identity, then tells the survivors
func (s *sessionServiceImpl) teardown(conn, player string) {
	departure := s.rooms.LeaveRoom(player)
	s.identities.Release(conn)
	s.log.Info("player.released", "conn", conn, "player", player)
	s.announceDeparture(departure)
}

// CreateRoom creates a room owned by the player bound to conn
func (s *sessionServiceImpl) CreateRoom(ctx context.Context, conn string) (*JoinResult, error) {
	player, ok := s.identities.PlayerFor(conn)
	if !ok {
		return nil, ErrNotIdentified
	}

	created, departure, err := s.rooms.CreateRoom(ctx, player)
	if err != nil {
		return nil, fmt.Errorf("failed to create room: %w", err)
	}
	s.announceDeparture(departure)

	// The identity may have been torn down while the name was generated
	if current, ok := s.identities.PlayerFor(conn); !ok || current != player {
		s.announceDeparture(s.rooms.LeaveRoom(player))
		return nil, ErrNotIdentified
	}

	s.log.Info("room.created", "room", created.ID, "owner", player)
	result := &JoinResult{PlayerNum: 1, Room: created}
	s.relay.Deliver(conn, EventCreateRoomOK, result)
	return result, nil
}

// ListRooms replies with every joinable room
func (s *sessionServiceImpl) ListRooms(ctx context.Context, conn string) ([]room.Room, error) {
	if _, ok := s.identities.PlayerFor(conn); !ok {
		return nil, ErrNotIdentified
	}

	rooms := s.rooms.ListJoinable()
	s.relay.Deliver(conn, EventListRoomsOK, rooms)
	return rooms, nil
}

// JoinRoom seats the player bound to conn in roomID
func (s *sessionServiceImpl) JoinRoom(ctx context.Context, conn string, roomID string) (*JoinResult, error) {
	player, ok := s.identities.PlayerFor(conn)
	if !ok {
		return nil, ErrNotIdentified
	}

	slot, joined, departure, err := s.rooms.JoinRoom(roomID, player)
	if err != nil {
		s.reject(conn, EventJoinRoomKO, err)
		return nil, err
	}
	s.announceDeparture(departure)

	s.log.Info("room.joined", "room", joined.ID, "player", player, "slot", slot)
	result := &JoinResult{PlayerNum: slot, Room: joined}
	s.relay.Deliver(conn, EventJoinRoomOK, result)
	s.relay.BroadcastToRoom(joined, EventRoomChanged, joined)
	return result, nil
}

// StartGame starts the room owned by the player bound to conn
func (s *sessionServiceImpl) StartGame(ctx context.Context, conn string) (room.Room, error) {
	player, ok := s.identities.PlayerFor(conn)
	if !ok {
		return room.Room{}, ErrNotIdentified
	}
	if _, ok := s.rooms.RoomOf(player); !ok {
		return room.Room{}, ErrNotInRoom
	}

	started, err := s.rooms.StartGame(player)
	if err != nil {
		s.reject(conn, EventStartGameKO, err)
		return room.Room{}, err
	}

	s.log.Info("room.started", "room", started.ID, "players", started.PlayerCount())
	s.relay.BroadcastToRoom(started, EventGameStarted, nil)
	return started, nil
}

// RelayEntity forwards an opaque entity payload to the sender's room mates
func (s *sessionServiceImpl) RelayEntity(ctx context.Context, conn string, op EntityOp, payload json.RawMessage) (int, error) {
	player, ok := s.identities.PlayerFor(conn)
	if !ok {
		return 0, ErrNotIdentified
	}
	current, ok := s.rooms.RoomOf(player)
	if !ok {
		return 0, ErrNotInRoom
	}

	var body any
	if len(payload) > 0 {
		body = payload
	}
	return s.relay.RelayExcludingSender(current, player, op.Event(), body), nil
}

// State reports where conn sits in the protocol state machine
func (s *sessionServiceImpl) State(conn string) PlayerState {
	player, ok := s.identities.PlayerFor(conn)
	if !ok {
		return Anonymous
	}
	if _, ok := s.rooms.RoomOf(player); ok {
		return InRoom
	}
	return Identified
}

// Rooms returns all rooms, or only joinable ones
func (s *sessionServiceImpl) Rooms(ctx context.Context, joinableOnly bool) []room.Room {
	if joinableOnly {
		return s.rooms.ListJoinable()
	}
	return s.rooms.List()
}

// Room returns a single room
func (s *sessionServiceImpl) Room(ctx context.Context, roomID string) (room.Room, error) {
	return s.rooms.Get(roomID)
}

// Stats summarizes identities and rooms
func (s *sessionServiceImpl) Stats(ctx context.Context) Stats {
	stats := Stats{Identities: s.identities.Count()}
	for _, r := range s.rooms.List() {
		stats.Rooms++
		stats.SeatedPlayers += r.PlayerCount()
		if r.Started {
			stats.StartedRooms++
		}
		if r.Joinable() {
			stats.JoinableRooms++
		}
	}
	return stats
}

func (s *sessionServiceImpl) announceDeparture(d *room.Departure) {
	if d == nil {
		return
	}
	if d.Reaped {
		s.metrics.RoomReaped()
		s.log.Info("room.reaped", "room", d.Room.ID)
		return
	}
	s.log.Info("room.left", "room", d.Room.ID, "player", d.PlayerID, "slot", d.Slot)
	s.relay.BroadcastToRoom(d.Room, EventRoomChanged, d.Room)
}

func (s *sessionServiceImpl) reject(conn string, event string, err error) {
	s.metrics.RequestRejected(rejectReason(err))
	s.relay.Deliver(conn, event, nil)
}

func (s *sessionServiceImpl) logOutcome(conn, event string, err error) {
	switch {
	case err == nil:
	case errors.Is(err, ErrNotIdentified), errors.Is(err, ErrNotInRoom):
		s.log.Debug("event.ignored", "conn", conn, "event", event, "reason", err)
	case isRejection(err):
		s.log.Info("event.rejected", "conn", conn, "event", event, "reason", err)
	default:
		s.log.Warn("event.failed", "conn", conn, "event", event, "err", err)
	}
}

func isRejection(err error) bool {
	return rejectReason(err) != "other"
}

func rejectReason(err error) string {
	switch {
	case errors.Is(err, room.ErrRoomNotFound):
		return "room_not_found"
	case errors.Is(err, room.ErrRoomStarted):
		return "room_started"
	case errors.Is(err, room.ErrRoomFull):
		return "room_full"
	case errors.Is(err, room.ErrNoRoom):
		return "no_room"
	case errors.Is(err, room.ErrNotOwner):
		return "not_owner"
	case errors.Is(err, room.ErrAlreadyStarted):
		return "already_started"
	case errors.Is(err, ErrInvalidPayload):
		return "invalid_payload"
	default:
		return "other"
	}
}

// decodeRoomID accepts {"roomId": "..."} or a bare JSON string
func decodeRoomID(payload json.RawMessage) (string, error) {
	var roomID string
	if err := json.Unmarshal(payload, &roomID); err != nil {
		var body struct {
			RoomID string `json:"roomId"`
		}
		if err := json.Unmarshal(payload, &body); err != nil {
			return "", fmt.Errorf("%w: %v", ErrInvalidPayload, err)
		}
		roomID = body.RoomID
	}
	if strings.TrimSpace(roomID) == "" {
		return "", fmt.Errorf("%w: missing roomId", ErrInvalidPayload)
	}
	return roomID, nil
}
