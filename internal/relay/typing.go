package relay

import (
	"sync"
	"time"
)

// TypingTracker records who each user is currently typing to. Entries are
// transient: overwritten by a fresh typing_start, removed on typing_stop,
// and cleared without emission when the typer disconnects. Nothing is
// persisted.
type TypingTracker struct {
	mu     sync.Mutex
	active map[int64]typingEntry
}

type typingEntry struct {
	receiverID int64
	since      time.Time
}

// NewTypingTracker creates an empty tracker.
func NewTypingTracker() *TypingTracker {
	return &TypingTracker{active: make(map[int64]typingEntry)}
}

// Start records that userID is typing to receiverID, replacing any prior
// entry.
func (t *TypingTracker) Start(userID, receiverID int64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.active[userID] = typingEntry{receiverID: receiverID, since: time.Now()}
}

// Stop removes the entry for userID and returns the receiver it pointed
// at, if any.
func (t *TypingTracker) Stop(userID int64) (int64, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	entry, ok := t.active[userID]
	if ok {
		delete(t.active, userID)
	}
	return entry.receiverID, ok
}

// Clear removes the entry for userID without reporting it. Used on
// disconnect.
func (t *TypingTracker) Clear(userID int64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.active, userID)
}

// TypingTo returns who userID is typing to, for introspection.
func (t *TypingTracker) TypingTo(userID int64) (int64, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	entry, ok := t.active[userID]
	return entry.receiverID, ok
}
