// Package room provides the room registry and membership index for the
// room broker.
//
// The room package implements:
//   - Room creation with generated human-readable identifiers
//   - Joinable room listing
//   - Slot allocation (first empty seat wins)
//   - Owner-only game start
//   - Leaving, with reaping of rooms whose last occupant departed
//
// Core Types:
//
// Registry owns the room table and the reverse player -> room index.
// Room is an immutable snapshot handed out to callers; mutating it has no
// effect on the registry. Departure describes the room a player was
// removed from, so the caller can notify whoever is still seated there.
//
// Rooms hold exactly MaxPlayers slots. A player occupies at most one slot
// across all rooms: creating or joining a room first evicts the player
// from wherever they were.
//
// Concurrency:
//
// All mutations of the room table and the membership index happen inside
// one critical section per operation, so two joins racing for the last
// seat are totally ordered. Room name generation is the only call that
// may block, and it runs before the registry lock is taken.
//
// Usage:
//
//	registry := room.NewRegistry(naming.NewGenerator(naming.DefaultWords()))
//
//	created, _, err := registry.CreateRoom(ctx, ownerID)
//	slot, joined, _, err := registry.JoinRoom(created.ID, otherID)
//	started, err := registry.StartGame(ownerID)
//	departure := registry.LeaveRoom(otherID)
package room
