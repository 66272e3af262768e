package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/driftline/driftline/internal/auth"
	"github.com/driftline/driftline/internal/domain"
	"github.com/driftline/driftline/internal/store"
)

type registerRequest struct {
	MobileNumber string `json:"mobile_number"`
	Username     string `json:"username"`
}

type loginRequest struct {
	MobileNumber string `json:"mobile_number"`
}

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
}

// Register creates a new account keyed by mobile number.
func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		Error(w, http.StatusBadRequest, "invalid request body")
		return
	}

	mobile, err := domain.NormalizeMobileNumber(req.MobileNumber)
	if err != nil {
		Error(w, http.StatusUnprocessableEntity, err.Error())
		return
	}

	username := req.Username
	if username == "" {
		username = domain.DefaultUsername(mobile)
	}

	user := &domain.User{
		MobileNumber: mobile,
		Username:     username,
		IsActive:     true,
	}
	user.ApplyIdentityDrift()

	created, err := h.repo.CreateUser(r.Context(), user)
	if err != nil {
		if errors.Is(err, store.ErrDuplicateMobile) {
			Error(w, http.StatusBadRequest, "Mobile number already registered")
			return
		}
		slog.Error("Failed to create user", "error", err)
		Error(w, http.StatusInternalServerError, "failed to register")
		return
	}

	slog.Info("User registered", "user_id", created.ID)
	JSON(w, http.StatusOK, toUserResponse(created))
}

// Login issues an access token for a known mobile number. Attempts are
// rate limited per client IP.
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	if !h.limiter.Allow(auth.IPFromRequest(r)) {
		Error(w, http.StatusTooManyRequests, "too many login attempts")
		return
	}

	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		Error(w, http.StatusBadRequest, "invalid request body")
		return
	}

	mobile, err := domain.NormalizeMobileNumber(req.MobileNumber)
	if err != nil {
		Error(w, http.StatusUnprocessableEntity, err.Error())
		return
	}

	user, err := h.repo.GetUserByMobile(r.Context(), mobile)
	if err != nil {
		slog.Error("Failed to look up user", "error", err)
		Error(w, http.StatusInternalServerError, "failed to log in")
		return
	}
	if user == nil {
		Error(w, http.StatusUnauthorized, "Invalid mobile number")
		return
	}
	if !user.IsActive {
		Error(w, http.StatusForbidden, "User account is inactive")
		return
	}

	user.ApplyIdentityDrift()
	if err := h.repo.UpdateIdentityStability(r.Context(), user.ID, user.IdentityStability); err != nil {
		slog.Warn("Failed to persist identity drift", "error", err, "user_id", user.ID)
	}

	token, err := h.tokens.Mint(user.ID, user.MobileNumber)
	if err != nil {
		slog.Error("Failed to mint token", "error", err, "user_id", user.ID)
		Error(w, http.StatusInternalServerError, "failed to log in")
		return
	}

	JSON(w, http.StatusOK, tokenResponse{AccessToken: token, TokenType: "bearer"})
}
