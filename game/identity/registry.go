package identity

import (
	"sync"

	"github.com/google/uuid"
)

// Registry binds connections to player identities
type Registry struct {
	byConn   map[string]string // connection -> player
	byPlayer map[string]string // player -> connection
	newID    func() string
	mu       sync.RWMutex
}

// NewRegistry creates an empty identity registry
func NewRegistry() *Registry {
	return &Registry{
		byConn:   make(map[string]string),
		byPlayer: make(map[string]string),
		newID:    uuid.NewString,
	}
}

// Issue binds a fresh identity to conn. If conn already had one, it is
// unbound and returned as previous.
func (r *Registry) Issue(conn string) (player, previous string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if old, ok := r.byConn[conn]; ok {
		delete(r.byPlayer, old)
		previous = old
	}

	for {
		player = r.newID()
		if _, taken := r.byPlayer[player]; !taken {
			break
		}
	}

	r.byConn[conn] = player
	r.byPlayer[player] = conn
	return player, previous
}

// Release removes the identity bound to conn, if any
func (r *Registry) Release(conn string) (string, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	player, ok := r.byConn[conn]
	if !ok {
		return "", false
	}
	delete(r.byConn, conn)
	delete(r.byPlayer, player)
	return player, true
}

// PlayerFor returns the identity bound to conn
func (r *Registry) PlayerFor(conn string) (string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	player, ok := r.byConn[conn]
	return player, ok
}

// ConnFor returns the connection a player is bound to
func (r *Registry) ConnFor(player string) (string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	conn, ok := r.byPlayer[player]
	return conn, ok
}

// Count returns the number of live identities
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.byPlayer)
}
