// Package relay implements the presence-and-delivery engine: the
// connection registry, typing tracker, message delivery pipeline, and the
// background simulators that inject synthetic presence events.
package relay

import (
	"log/slog"

	"github.com/driftline/driftline/internal/metrics"
	"github.com/driftline/driftline/internal/mood"
	"github.com/driftline/driftline/internal/store"
)

// Hub coordinates the shared relay state. The registry and typing tracker
// are independent locks; no operation holds both at once, and neither
// lock is held across an emission to a slow peer beyond the per-write
// timeout.
type Hub struct {
	registry *Registry
	typing   *TypingTracker
	mood     *mood.Engine
	repo     store.Repository
}

// NewHub creates a hub over the given message store and mood engine.
func NewHub(repo store.Repository, engine *mood.Engine) *Hub {
	return &Hub{
		registry: NewRegistry(),
		typing:   NewTypingTracker(),
		mood:     engine,
		repo:     repo,
	}
}

// Registry exposes the connection registry for introspection.
func (h *Hub) Registry() *Registry {
	return h.registry
}

// Connect binds an authenticated user to a session and fans out
// presence: the new session learns its own identity, everyone else gets
// a refreshed roster.
func (h *Hub) Connect(userID int64, s Session) {
	h.registry.Register(userID, s)
	metrics.ConnectedUsers.Set(float64(h.registry.Count()))
	slog.Info("User connected", "user_id", userID, "session_id", s.ID())

	h.emit(s, EventUserConnected, userEvent{UserID: userID})
	h.broadcast(EventOnlineUsers, onlineUsersEvent{Users: h.registry.Users()}, s.ID())
}

// Disconnect releases whatever user the session was bound to, clears
// their typing state without emission, and refreshes presence for the
// remaining sessions. A stale session (already replaced by a reconnect)
// releases nothing.
func (h *Hub) Disconnect(sessionID string) {
	userID, ok := h.registry.UnregisterBySession(sessionID)
	if !ok {
		return
	}
	h.typing.Clear(userID)
	metrics.ConnectedUsers.Set(float64(h.registry.Count()))
	slog.Info("User disconnected", "user_id", userID, "session_id", sessionID)

	h.broadcast(EventUserDisconnected, userEvent{UserID: userID}, sessionID)
	h.broadcast(EventOnlineUsers, onlineUsersEvent{Users: h.registry.Users()})
}

// StartTyping records the typing state and notifies the receiver when
// online.
func (h *Hub) StartTyping(userID, receiverID int64) {
	h.typing.Start(userID, receiverID)
	if s, ok := h.registry.Lookup(receiverID); ok {
		h.emit(s, EventUserTyping, typingEvent{UserID: userID, IsTyping: true})
	}
}

// StopTyping drops the typing state and notifies the recorded receiver
// when online.
func (h *Hub) StopTyping(userID int64) {
	receiverID, ok := h.typing.Stop(userID)
	if !ok {
		return
	}
	if s, ok := h.registry.Lookup(receiverID); ok {
		h.emit(s, EventUserTyping, typingEvent{UserID: userID, IsTyping: false})
	}
}

// broadcast fans an event out to every online session except those
// listed in skip. Emission failures are logged and swallowed; a peer
// vanishing mid-broadcast must not affect the rest.
func (h *Hub) broadcast(event string, data any, skip ...string) {
	for userID, s := range h.registry.Snapshot() {
		if skipped(s.ID(), skip) {
			continue
		}
		if err := s.Emit(event, data); err != nil {
			slog.Debug("Broadcast emit failed", "event", event, "user_id", userID, "error", err)
		}
	}
}

func (h *Hub) emit(s Session, event string, data any) {
	if err := s.Emit(event, data); err != nil {
		slog.Debug("Emit failed", "event", event, "session_id", s.ID(), "error", err)
	}
}

func skipped(id string, skip []string) bool {
	for _, s := range skip {
		if s == id {
			return true
		}
	}
	return false
}
