// Package service provides the session coordinator for the room broker.
//
// The service package implements:
//   - The player state machine (anonymous, identified, in a room)
//   - The wire protocol: hello, create-room, list-rooms, join-room,
//     start-game and the three entity relay events
//   - Teardown on disconnect or repeated hello, with reaping of empty rooms
//   - Replies to the requesting connection and fan-out to room occupants
//
// Core Interfaces:
//
// SessionService is the coordinator used by the transport layer. It is
// built from an IdentityRegistry, a RoomRegistry and a relay.Sender (the
// transport's "send event E with payload P to connection C").
//
// State Machine:
//
// A connection starts anonymous. hello is valid from any state and always
// yields a fresh identity, discarding whatever the previous identity held.
// create-room, list-rooms and join-room need an identity; start-game and
// the entity events need a seat in a room. Requests from the wrong state
// are dropped without a reply.
//
// Teardown:
//
// A closed connection and a repeated hello run the same teardown: leave
// the room (reaping it if it became empty), release the identity, then
// send room-changed to whoever is still seated.
//
// Usage:
//
//	identities := identity.NewRegistry()
//	rooms := room.NewRegistry(naming.NewGenerator(naming.DefaultWords()))
//	svc := service.NewSessionService(identities, rooms, hub,
//		service.WithLogger(logger),
//		service.WithMetrics(m),
//	)
//
//	svc.HandleEvent(ctx, connID, "hello", nil)
//	svc.Forget(ctx, connID)
package service
