package relay

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/coder/websocket"
	"github.com/driftline/driftline/internal/auth"
	"github.com/driftline/driftline/internal/store"
)

// Handler upgrades authenticated websocket connections and dispatches
// their event frames into the hub.
type Handler struct {
	hub           *Hub
	tokens        *auth.Tokens
	repo          store.Repository
	lifecycle     context.Context
	allowedOrigin string
	isDev         bool
}

// NewHandler creates a websocket handler. lifecycle bounds in-flight
// deliveries at process shutdown; it is not tied to any single
// connection.
func NewHandler(lifecycle context.Context, hub *Hub, tokens *auth.Tokens, repo store.Repository, allowedOrigin string, isDev bool) *Handler {
	return &Handler{
		hub:           hub,
		tokens:        tokens,
		repo:          repo,
		lifecycle:     lifecycle,
		allowedOrigin: allowedOrigin,
		isDev:         isDev,
	}
}

// ServeHTTP implements http.Handler for the websocket upgrade. The
// credential arrives as a token query parameter and is verified before
// the registry is touched; a failed connect never mutates state.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if !h.checkOrigin(r) {
		http.Error(w, "origin not allowed", http.StatusForbidden)
		return
	}

	claims, err := h.tokens.Verify(r.URL.Query().Get("token"))
	if err != nil {
		http.Error(w, "invalid credential", http.StatusUnauthorized)
		return
	}
	user, err := h.repo.GetUser(r.Context(), claims.UserID)
	if err != nil || user == nil || !user.IsActive {
		http.Error(w, "invalid credential", http.StatusUnauthorized)
		return
	}

	ws, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: []string{"*"},
	})
	if err != nil {
		slog.Error("Failed to accept WebSocket", "error", err, "user_id", claims.UserID)
		return
	}
	defer func() {
		if closeErr := ws.Close(websocket.StatusNormalClosure, "session ended"); closeErr != nil {
			slog.Debug("Failed to close websocket", "error", closeErr, "user_id", claims.UserID)
		}
	}()

	sess := newWSSession(ws)
	h.hub.Connect(claims.UserID, sess)
	defer h.hub.Disconnect(sess.ID())

	// Sends queue through one worker per connection so that persistence
	// order within a sender follows call order even though each delivery
	// sleeps independently.
	sends := make(chan sendMessageData, 64)
	done := make(chan struct{})
	go func() {
		defer close(done)
		h.sendWorker(sess, claims.UserID, sends)
	}()

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	h.readLoop(ctx, ws, sess, claims.UserID, sends)
	close(sends)
	<-done
	slog.Info("Relay session ended", "user_id", claims.UserID, "session_id", sess.ID())
}

func (h *Handler) checkOrigin(r *http.Request) bool {
	if h.isDev {
		return true
	}
	origin := r.Header.Get("Origin")
	if origin == "" || h.allowedOrigin == "*" || origin == h.allowedOrigin {
		return true
	}
	slog.Warn("WebSocket origin rejected", "origin", origin, "allowed", h.allowedOrigin)
	return false
}

func (h *Handler) readLoop(ctx context.Context, ws *websocket.Conn, sess Session, userID int64, sends chan<- sendMessageData) {
	for {
		_, frame, err := ws.Read(ctx)
		if err != nil {
			if websocket.CloseStatus(err) != -1 {
				slog.Debug("WebSocket closed by client", "user_id", userID)
			} else if ctx.Err() == nil {
				slog.Warn("WebSocket read error", "error", err, "user_id", userID)
			}
			return
		}

		var env Envelope
		if err := json.Unmarshal(frame, &env); err != nil {
			h.hub.emit(sess, EventError, errorEvent{Message: "Malformed frame"})
			continue
		}

		h.dispatch(ctx, sess, userID, env, sends)
	}
}

func (h *Handler) dispatch(ctx context.Context, sess Session, boundID int64, env Envelope, sends chan<- sendMessageData) {
	switch env.Event {
	case EventSendMessage:
		var d sendMessageData
		if err := json.Unmarshal(env.Data, &d); err != nil {
			h.hub.emit(sess, EventError, errorEvent{Message: "Invalid message data"})
			return
		}
		if _, err := h.resolveSender(d.Token, boundID); err != nil {
			h.hub.emit(sess, EventError, errorEvent{Message: "Unauthorized"})
			return
		}
		sends <- d

	case EventTypingStart:
		var d typingData
		if err := json.Unmarshal(env.Data, &d); err != nil {
			return
		}
		if _, err := h.resolveSender(d.Token, boundID); err != nil {
			return
		}
		if d.ReceiverID == 0 {
			return
		}
		h.hub.StartTyping(boundID, d.ReceiverID)

	case EventTypingStop:
		var d typingData
		if err := json.Unmarshal(env.Data, &d); err != nil {
			return
		}
		if _, err := h.resolveSender(d.Token, boundID); err != nil {
			return
		}
		h.hub.StopTyping(boundID)

	case EventMarkRead:
		var d markReadData
		if err := json.Unmarshal(env.Data, &d); err != nil {
			return
		}
		if _, err := h.resolveSender(d.Token, boundID); err != nil {
			return
		}
		if d.MessageID == "" {
			return
		}
		if err := h.hub.MarkRead(ctx, boundID, d.MessageID, d.SenderID); err != nil {
			slog.Error("Mark read failed", "error", err, "user_id", boundID, "message_id", d.MessageID)
		}

	case EventGetChatHistory:
		var d historyData
		if err := json.Unmarshal(env.Data, &d); err != nil {
			h.hub.emit(sess, EventError, errorEvent{Message: "Invalid user ID"})
			return
		}
		if _, err := h.resolveSender(d.Token, boundID); err != nil {
			h.hub.emit(sess, EventError, errorEvent{Message: "Unauthorized"})
			return
		}
		if d.OtherUserID == 0 {
			h.hub.emit(sess, EventError, errorEvent{Message: "Invalid user ID"})
			return
		}
		payloads, err := h.hub.History(ctx, boundID, d.OtherUserID, 0, -1)
		if err != nil {
			slog.Error("History failed", "error", err, "user_id", boundID, "other_user_id", d.OtherUserID)
			h.hub.emit(sess, EventError, errorEvent{Message: "Failed to load history"})
			return
		}
		h.hub.emit(sess, EventChatHistory, map[string]any{"messages": payloads})

	default:
		slog.Debug("Unknown event", "event", env.Event, "user_id", boundID)
	}
}

// sendWorker drains queued sends in order. It keeps running after the
// read loop exits so a delivery mid-jitter survives its connection; only
// process shutdown abandons it.
func (h *Handler) sendWorker(sess Session, senderID int64, sends <-chan sendMessageData) {
	for d := range sends {
		err := h.hub.Send(h.lifecycle, senderID, d.ReceiverID, d.Content, sess)
		switch {
		case err == nil:
		case errors.Is(err, ErrInvalidMessage):
			h.hub.emit(sess, EventError, errorEvent{Message: "Invalid message data"})
		case errors.Is(err, ErrUnauthorized):
			h.hub.emit(sess, EventError, errorEvent{Message: "Unauthorized"})
		case errors.Is(err, context.Canceled):
			return
		default:
			slog.Error("Message delivery failed", "error", err, "sender_id", senderID)
			h.hub.emit(sess, EventError, errorEvent{Message: "Message delivery failed"})
		}
	}
}

func (h *Handler) resolveSender(token string, boundID int64) (int64, error) {
	claims, err := h.tokens.Verify(token)
	if err != nil || claims.UserID != boundID {
		return 0, ErrUnauthorized
	}
	return claims.UserID, nil
}
