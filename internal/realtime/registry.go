package realtime

import (
	"sync"

	"github.com/google/uuid"
)

// Registry tracks which connection IDs belong to which user. A user may hold
// several connections at once (multiple tabs/devices); a connection belongs
// to exactly one user.
type Registry struct {
	mu    sync.RWMutex
	conns map[uuid.UUID]map[uuid.UUID]struct{}
	owner map[uuid.UUID]uuid.UUID
}

// NewRegistry returns an empty connection registry.
func NewRegistry() *Registry {
	return &Registry{
		conns: make(map[uuid.UUID]map[uuid.UUID]struct{}),
		owner: make(map[uuid.UUID]uuid.UUID),
	}
}

// Register binds a connection ID to a user. Registering the same pair twice
// is a no-op; re-registering a connection under a new user moves it.
func (r *Registry) Register(userID, connID uuid.UUID) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if prev, ok := r.owner[connID]; ok {
		if prev == userID {
			return
		}
		r.removeLocked(prev, connID)
	}

	if r.conns[userID] == nil {
		r.conns[userID] = make(map[uuid.UUID]struct{})
	}
	r.conns[userID][connID] = struct{}{}
	r.owner[connID] = userID
}

// Unregister removes a connection and reports which user owned it.
// Unknown connection IDs are a safe no-op.
func (r *Registry) Unregister(connID uuid.UUID) (uuid.UUID, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	userID, ok := r.owner[connID]
	if !ok {
		return uuid.Nil, false
	}
	r.removeLocked(userID, connID)
	return userID, true
}

func (r *Registry) removeLocked(userID, connID uuid.UUID) {
	delete(r.owner, connID)
	if set, ok := r.conns[userID]; ok {
		delete(set, connID)
		if len(set) == 0 {
			delete(r.conns, userID)
		}
	}
}

// ConnectionIDsFor returns the live connection IDs held by a user.
func (r *Registry) ConnectionIDsFor(userID uuid.UUID) []uuid.UUID {
	r.mu.RLock()
	defer r.mu.RUnlock()

	set, ok := r.conns[userID]
	if !ok {
		return nil
	}
	ids := make([]uuid.UUID, 0, len(set))
	for id := range set {
		ids = append(ids, id)
	}
	return ids
}

// IsOnline reports whether the user has at least one live connection.
func (r *Registry) IsOnline(userID uuid.UUID) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.conns[userID]) > 0
}

// Count returns the total number of live connections.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.owner)
}
