package api

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/driftline/driftline/internal/auth"
	"github.com/go-chi/chi/v5"
)

const defaultHistoryLimit = 100

// History returns the paginated conversation between the caller and
// another user. Fetching history marks the caller's unread messages in
// the pair as read; the returned page shows their state as fetched.
func (h *Handler) History(w http.ResponseWriter, r *http.Request) {
	user := auth.UserFromContext(r.Context())
	if user == nil {
		Error(w, http.StatusUnauthorized, "missing credentials")
		return
	}

	otherID, err := strconv.ParseInt(chi.URLParam(r, "otherID"), 10, 64)
	if err != nil || otherID <= 0 {
		Error(w, http.StatusUnprocessableEntity, "invalid user id")
		return
	}

	skip := queryInt(r, "skip", 0)
	limit := queryInt(r, "limit", defaultHistoryLimit)
	if skip < 0 {
		skip = 0
	}
	if limit <= 0 {
		limit = defaultHistoryLimit
	}

	messages, err := h.hub.History(r.Context(), user.ID, otherID, skip, limit)
	if err != nil {
		slog.Error("Failed to load history", "error", err, "user_id", user.ID, "other_id", otherID)
		Error(w, http.StatusInternalServerError, "failed to load history")
		return
	}

	JSON(w, http.StatusOK, messages)
}

func queryInt(r *http.Request, key string, fallback int) int {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return fallback
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return n
}
