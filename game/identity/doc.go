// Package identity issues ephemeral player identities for the room broker.
//
// The identity package implements:
//   - Random, collision-free player identifiers (UUIDv4 text)
//   - One-to-one binding between a live connection and a player
//   - Reverse lookup from player to connection for outbound delivery
//
// Lifecycle:
//
// An identity is created when a connection says "hello". A second hello on
// the same connection replaces the binding; the previous identity is
// returned so the caller can tear down whatever it held. Releasing the
// connection (socket closed) removes the binding entirely.
//
// The registry never touches rooms. Room cleanup is orchestrated by the
// service package, which calls Release only after the player has left
// its room.
//
// Concurrency:
//
// Registry is safe for concurrent use. Both directions of the binding are
// updated inside the same critical section.
package identity
