// Package relay fans room events out to the connections of a room's
// occupants.
//
// Delivery is fire-and-forget: the relay hands each payload to the
// transport once and moves on. A failed send (stale or closed connection)
// is logged and counted but never aborts delivery to the other occupants
// and never reaches the caller. The transport's close notification is what
// eventually removes the stale occupant.
package relay

import (
	"log/slog"

	"github.com/wricardo/mcp-training/roombroker/game/room"
	"github.com/wricardo/mcp-training/roombroker/metrics"
)

// Sender delivers one event to one connection without waiting for the peer
type Sender interface {
	Send(conn string, event string, payload any) error
}

// Directory resolves a player to the connection it is bound to
type Directory interface {
	ConnFor(player string) (string, bool)
}

// Relay computes recipient sets and hands payloads to the transport
type Relay struct {
	sender    Sender
	directory Directory
	metrics   *metrics.Metrics
	log       *slog.Logger
}

// New creates a relay. m may be nil.
func New(sender Sender, directory Directory, logger *slog.Logger, m *metrics.Metrics) *Relay {
	if logger == nil {
		logger = slog.Default()
	}
	return &Relay{
		sender:    sender,
		directory: directory,
		metrics:   m,
		log:       logger,
	}
}

// BroadcastToRoom sends to every occupant of rm and returns how many
// sends the transport accepted
func (r *Relay) BroadcastToRoom(rm room.Room, event string, payload any) int {
	return r.fanOut(rm, "", event, payload)
}

// RelayExcludingSender sends to every occupant of rm except sender
func (r *Relay) RelayExcludingSender(rm room.Room, sender string, event string, payload any) int {
	return r.fanOut(rm, sender, event, payload)
}

// Deliver sends a single event straight to a connection
func (r *Relay) Deliver(conn string, event string, payload any) bool {
	if err := r.sender.Send(conn, event, payload); err != nil {
		r.metrics.DeliveryFailed(event)
		r.log.Debug("relay.send_failed", "conn", conn, "event", event, "err", err)
		return false
	}
	r.metrics.EventDelivered(event)
	return true
}

func (r *Relay) fanOut(rm room.Room, exclude string, event string, payload any) int {
	delivered := 0
	for _, player := range rm.Occupants() {
		if exclude != "" && player == exclude {
			continue
		}
		conn, ok := r.directory.ConnFor(player)
		if !ok {
			r.metrics.DeliveryFailed(event)
			r.log.Debug("relay.no_connection", "room", rm.ID, "player", player, "event", event)
			continue
		}
		if r.Deliver(conn, event, payload) {
			delivered++
		}
	}
	return delivered
}
