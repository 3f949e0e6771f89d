package room

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"
)

var (
	ErrRoomNotFound   = errors.New("room not found")
	ErrRoomStarted    = errors.New("room already started")
	ErrRoomFull       = errors.New("room is full")
	ErrNoRoom         = errors.New("player is not in a room")
	ErrNotOwner       = errors.New("player does not own the room")
	ErrAlreadyStarted = errors.New("game already started")
	ErrNameCollision  = errors.New("room name already in use")
	ErrNamesExhausted = errors.New("could not allocate a unique room name")
)

// maxNameAttempts bounds how often CreateRoom asks for a new name after a collision
const maxNameAttempts = 32

// NameSource allocates candidate room identifiers. Candidates may collide
// with existing rooms; the registry retries.
type NameSource interface {
	Generate(ctx context.Context) (string, error)
}

// Option configures a Registry
type Option func(*Registry)

// WithInvariantChecks makes every mutation verify the room table against
// the membership index and panic on disagreement
func WithInvariantChecks() Option {
	return func(r *Registry) {
		r.checkInvariants = true
	}
}

type entry struct {
	id        string
	owner     string
	slots     [MaxPlayers]string
	started   bool
	createdAt time.Time
}

func (e *entry) snapshot() Room {
	return Room{
		ID:        e.id,
		OwnerID:   e.owner,
		Started:   e.started,
		Slots:     e.slots,
		CreatedAt: e.createdAt,
	}
}

func (e *entry) slotOf(player string) int {
	for i, id := range e.slots {
		if id == player {
			return i + 1
		}
	}
	return 0
}

func (e *entry) firstFree() int {
	for i, id := range e.slots {
		if id == "" {
			return i + 1
		}
	}
	return 0
}

func (e *entry) empty() bool {
	for _, id := range e.slots {
		if id != "" {
			return false
		}
	}
	return true
}

// Registry owns rooms and the player -> room membership index
type Registry struct {
	rooms           map[string]*entry // keyed by lower-cased room ID
	members         map[string]string // player -> room key
	names           NameSource
	checkInvariants bool
	mu              sync.RWMutex
}

// NewRegistry creates an empty registry that names rooms with names
func NewRegistry(names NameSource, opts ...Option) *Registry {
	r := &Registry{
		rooms:   make(map[string]*entry),
		members: make(map[string]string),
		names:   names,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// CreateRoom builds a new room owned by owner, seating the owner in slot 1.
// The owner is evicted from any room it occupied; that room is described
// by the returned Departure.
func (r *Registry) CreateRoom(ctx context.Context, owner string) (Room, *Departure, error) {
	for attempt := 0; attempt < maxNameAttempts; attempt++ {
		// No lock is held while the generator runs
		name, err := r.names.Generate(ctx)
		if err != nil {
			return Room{}, nil, fmt.Errorf("failed to generate room name: %w", err)
		}

		created, departure, err := r.commitRoom(name, owner)
		if errors.Is(err, ErrNameCollision) {
			continue
		}
		return created, departure, err
	}
	return Room{}, nil, ErrNamesExhausted
}

func (r *Registry) commitRoom(id, owner string) (Room, *Departure, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	k := key(id)
	if _, exists := r.rooms[k]; exists || k == "" {
		return Room{}, nil, ErrNameCollision
	}

	departure := r.leaveLocked(owner)

	e := &entry{id: id, owner: owner, createdAt: time.Now()}
	e.slots[0] = owner
	r.rooms[k] = e
	r.members[owner] = k

	r.verifyLocked()
	return e.snapshot(), departure, nil
}

// ListJoinable returns rooms that are not started and have a free slot
func (r *Registry) ListJoinable() []Room {
	return r.collect(Room.Joinable)
}

// List returns every room
func (r *Registry) List() []Room {
	return r.collect(func(Room) bool { return true })
}

func (r *Registry) collect(keep func(Room) bool) []Room {
	r.mu.RLock()
	result := make([]Room, 0, len(r.rooms))
	for _, e := range r.rooms {
		if snap := e.snapshot(); keep(snap) {
			result = append(result, snap)
		}
	}
	r.mu.RUnlock()

	sort.Slice(result, func(i, j int) bool {
		if result[i].CreatedAt.Equal(result[j].CreatedAt) {
			return result[i].ID < result[j].ID
		}
		return result[i].CreatedAt.Before(result[j].CreatedAt)
	})
	return result
}

// JoinRoom seats player in the lowest free slot of roomID and returns the
// 1-based slot number. Joining the room the player already occupies
// returns its current slot.
func (r *Registry) JoinRoom(roomID, player string) (int, Room, *Departure, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.rooms[key(roomID)]
	if !ok {
		return 0, Room{}, nil, ErrRoomNotFound
	}
	if e.started {
		return 0, Room{}, nil, ErrRoomStarted
	}
	if slot := e.slotOf(player); slot > 0 {
		return slot, e.snapshot(), nil, nil
	}
	slot := e.firstFree()
	if slot == 0 {
		return 0, Room{}, nil, ErrRoomFull
	}

	departure := r.leaveLocked(player)

	e.slots[slot-1] = player
	r.members[player] = key(e.id)

	r.verifyLocked()
	return slot, e.snapshot(), departure, nil
}

// StartGame marks the room owned by player as started
func (r *Registry) StartGame(player string) (Room, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	k, ok := r.members[player]
	if !ok {
		return Room{}, ErrNoRoom
	}
	e := r.rooms[k]
	if e == nil {
		r.violation("membership of %s points at missing room %s", player, k)
		return Room{}, ErrNoRoom
	}
	if e.owner != player {
		return Room{}, ErrNotOwner
	}
	if e.started {
		return Room{}, ErrAlreadyStarted
	}

	e.started = true
	return e.snapshot(), nil
}

// LeaveRoom removes player from its room, deleting the room once empty.
// It returns nil when the player was not in a room.
func (r *Registry) LeaveRoom(player string) *Departure {
	r.mu.Lock()
	defer r.mu.Unlock()

	departure := r.leaveLocked(player)
	r.verifyLocked()
	return departure
}

func (r *Registry) leaveLocked(player string) *Departure {
	k, ok := r.members[player]
	if !ok {
		return nil
	}
	delete(r.members, player)

	e := r.rooms[k]
	if e == nil {
		r.violation("membership of %s points at missing room %s", player, k)
		return nil
	}
	slot := e.slotOf(player)
	if slot == 0 {
		r.violation("room %s does not seat member %s", e.id, player)
		return nil
	}
	e.slots[slot-1] = ""

	departure := &Departure{PlayerID: player, Slot: slot, Room: e.snapshot()}
	if e.empty() {
		delete(r.rooms, k)
		departure.Reaped = true
	}
	return departure
}

// Get returns a room by ID (case-insensitive)
func (r *Registry) Get(roomID string) (Room, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	e, ok := r.rooms[key(roomID)]
	if !ok {
		return Room{}, ErrRoomNotFound
	}
	return e.snapshot(), nil
}

// RoomOf returns the room player currently occupies
func (r *Registry) RoomOf(player string) (Room, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	k, ok := r.members[player]
	if !ok {
		return Room{}, false
	}
	e, ok := r.rooms[k]
	if !ok {
		return Room{}, false
	}
	return e.snapshot(), true
}

// Count returns the number of rooms
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.rooms)
}

// CheckInvariants verifies that rooms and memberships agree
func (r *Registry) CheckInvariants() error {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.invariantsLocked()
}

func (r *Registry) invariantsLocked() error {
	seated := make(map[string]string)
	for k, e := range r.rooms {
		if k != key(e.id) {
			return fmt.Errorf("room %s stored under key %s", e.id, k)
		}
		if e.empty() {
			return fmt.Errorf("room %s is empty but retained", e.id)
		}
		for _, player := range e.slots {
			if player == "" {
				continue
			}
			if other, dup := seated[player]; dup {
				return fmt.Errorf("player %s seated in %s and %s", player, other, e.id)
			}
			seated[player] = k
			if r.members[player] != k {
				return fmt.Errorf("player %s seated in %s but indexed to %q", player, e.id, r.members[player])
			}
		}
	}
	for player, k := range r.members {
		if seated[player] != k {
			return fmt.Errorf("player %s indexed to %s but not seated there", player, k)
		}
	}
	return nil
}

func (r *Registry) verifyLocked() {
	if !r.checkInvariants {
		return
	}
	if err := r.invariantsLocked(); err != nil {
		panic("room: invariant violated: " + err.Error())
	}
}

func (r *Registry) violation(format string, args ...any) {
	if r.checkInvariants {
		panic("room: invariant violated: " + fmt.Sprintf(format, args...))
	}
}

func key(roomID string) string {
	return strings.ToLower(strings.TrimSpace(roomID))
}
