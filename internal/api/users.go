package api

import (
	"log/slog"
	"net/http"

	"github.com/driftline/driftline/internal/auth"
)

// Me returns the authenticated user's own profile.
func (h *Handler) Me(w http.ResponseWriter, r *http.Request) {
	user := auth.UserFromContext(r.Context())
	if user == nil {
		Error(w, http.StatusUnauthorized, "missing credentials")
		return
	}
	JSON(w, http.StatusOK, toUserResponse(user))
}

// ListUsers returns the full roster of registered users.
func (h *Handler) ListUsers(w http.ResponseWriter, r *http.Request) {
	users, err := h.repo.ListUsers(r.Context())
	if err != nil {
		slog.Error("Failed to list users", "error", err)
		Error(w, http.StatusInternalServerError, "failed to list users")
		return
	}

	out := make([]userResponse, 0, len(users))
	for _, u := range users {
		out = append(out, toUserResponse(u))
	}
	JSON(w, http.StatusOK, out)
}
