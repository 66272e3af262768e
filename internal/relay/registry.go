package relay

import (
	"log/slog"
	"sync"
)

// Registry is the single source of truth for who is online. It keeps a
// forward user→session map and a reverse session-id→user index so that
// disconnects resolve their owner without scanning. Both maps mutate
// together under one lock.
type Registry struct {
	mu     sync.RWMutex
	byUser map[int64]Session
	owner  map[string]int64
}

// NewRegistry creates an empty connection registry.
func NewRegistry() *Registry {
	return &Registry{
		byUser: make(map[int64]Session),
		owner:  make(map[string]int64),
	}
}

// Register binds a user to a session, overwriting any prior binding for
// that user. The prior session, if any, is left open but unreachable;
// see the design notes on reconnect semantics.
func (r *Registry) Register(userID int64, s Session) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if prev, ok := r.byUser[userID]; ok {
		delete(r.owner, prev.ID())
		slog.Info("Session replaced", "user_id", userID, "session_id", prev.ID())
	}
	r.byUser[userID] = s
	r.owner[s.ID()] = userID
}

// UnregisterBySession removes the binding owned by the given session and
// returns the freed user. A stale session (already replaced) is not
// found and frees nothing.
func (r *Registry) UnregisterBySession(sessionID string) (int64, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	userID, ok := r.owner[sessionID]
	if !ok {
		return 0, false
	}
	delete(r.owner, sessionID)
	delete(r.byUser, userID)
	return userID, true
}

// Lookup returns the active session for a user.
func (r *Registry) Lookup(userID int64) (Session, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.byUser[userID]
	return s, ok
}

// Users returns a snapshot of all online user IDs.
func (r *Registry) Users() []int64 {
	r.mu.RLock()
	defer r.mu.RUnlock()
	users := make([]int64, 0, len(r.byUser))
	for id := range r.byUser {
		users = append(users, id)
	}
	return users
}

// Snapshot returns all online users with their sessions, for fan-out.
func (r *Registry) Snapshot() map[int64]Session {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make(map[int64]Session, len(r.byUser))
	for id, s := range r.byUser {
		out[id] = s
	}
	return out
}

// Count returns the number of online users.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.byUser)
}
