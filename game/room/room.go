package room

import (
	"encoding/json"
	"time"
)

// MaxPlayers is the number of slots in every room
const MaxPlayers = 4

// Room is a point-in-time copy of a room's state
type Room struct {
	ID        string
	OwnerID   string
	Started   bool
	Slots     [MaxPlayers]string // empty string means the seat is free
	CreatedAt time.Time
}

// Departure describes the room a player was removed from
type Departure struct {
	PlayerID string
	Slot     int
	Room     Room // state after the player left
	Reaped   bool // room was deleted because it became empty
}

// wireRoom is the JSON shape clients see
type wireRoom struct {
	RoomID    string    `json:"roomId"`
	OwnerID   string    `json:"ownerId"`
	Started   bool      `json:"started"`
	PlayerIDs []*string `json:"playerIds"`
}

// MarshalJSON renders empty slots as null
func (r Room) MarshalJSON() ([]byte, error) {
	ids := make([]*string, MaxPlayers)
	for i := range r.Slots {
		if r.Slots[i] != "" {
			id := r.Slots[i]
			ids[i] = &id
		}
	}
	return json.Marshal(wireRoom{
		RoomID:    r.ID,
		OwnerID:   r.OwnerID,
		Started:   r.Started,
		PlayerIDs: ids,
	})
}

// UnmarshalJSON accepts the wire shape produced by MarshalJSON
func (r *Room) UnmarshalJSON(data []byte) error {
	var w wireRoom
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	*r = Room{ID: w.RoomID, OwnerID: w.OwnerID, Started: w.Started}
	for i, id := range w.PlayerIDs {
		if i >= MaxPlayers {
			break
		}
		if id != nil {
			r.Slots[i] = *id
		}
	}
	return nil
}

// PlayerCount returns the number of occupied slots
func (r Room) PlayerCount() int {
	n := 0
	for _, id := range r.Slots {
		if id != "" {
			n++
		}
	}
	return n
}

// Occupants returns the seated players in slot order
func (r Room) Occupants() []string {
	players := make([]string, 0, MaxPlayers)
	for _, id := range r.Slots {
		if id != "" {
			players = append(players, id)
		}
	}
	return players
}

// SlotOf returns the 1-based slot held by player, or 0
func (r Room) SlotOf(player string) int {
	for i, id := range r.Slots {
		if id != "" && id == player {
			return i + 1
		}
	}
	return 0
}

// Joinable reports whether the room accepts new players
func (r Room) Joinable() bool {
	return !r.Started && r.PlayerCount() < MaxPlayers
}
