// Package api provides the HTTP handlers for auth, users, and message
// history.
package api

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/driftline/driftline/internal/auth"
	"github.com/driftline/driftline/internal/domain"
	"github.com/driftline/driftline/internal/relay"
	"github.com/driftline/driftline/internal/store"
	"github.com/go-chi/chi/v5"
)

// Handler provides the HTTP API surface.
type Handler struct {
	repo    store.Repository
	tokens  *auth.Tokens
	hub     *relay.Hub
	limiter *auth.LoginLimiter
}

// NewHandler creates a new Handler with common dependencies.
func NewHandler(repo store.Repository, tokens *auth.Tokens, hub *relay.Hub, limiter *auth.LoginLimiter) *Handler {
	return &Handler{
		repo:    repo,
		tokens:  tokens,
		hub:     hub,
		limiter: limiter,
	}
}

// RegisterRoutes mounts all API routes on the router.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/api/auth", func(r chi.Router) {
		r.Post("/register", h.Register)
		r.Post("/login", h.Login)
	})

	r.Group(func(r chi.Router) {
		r.Use(auth.Middleware(h.tokens, h.repo))
		r.Get("/api/users/me", h.Me)
		r.Get("/api/users", h.ListUsers)
		r.Get("/api/messages/history/{otherID}", h.History)
	})
}

// JSON writes a JSON response with the given status code.
func JSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		http.Error(w, `{"error": "failed to encode response"}`, http.StatusInternalServerError)
	}
}

// Error writes a JSON error response.
func Error(w http.ResponseWriter, status int, message string) {
	JSON(w, status, map[string]string{"error": message})
}

// userResponse is the public shape of an identity record. Identity
// stability stays internal.
type userResponse struct {
	ID           int64     `json:"id"`
	MobileNumber string    `json:"mobile_number"`
	Username     string    `json:"username"`
	CreatedAt    time.Time `json:"created_at"`
	IsActive     bool      `json:"is_active"`
}

func toUserResponse(u *domain.User) userResponse {
	return userResponse{
		ID:           u.ID,
		MobileNumber: u.MobileNumber,
		Username:     u.Username,
		CreatedAt:    u.CreatedAt,
		IsActive:     u.IsActive,
	}
}
