package auth

import (
	"context"
	"net"
	"net/http"
	"strings"

	"github.com/driftline/driftline/internal/domain"
	"github.com/driftline/driftline/internal/store"
)

type contextKey int

const userKey contextKey = iota

// UserFromContext extracts the authenticated user from the request
// context.
func UserFromContext(ctx context.Context) *domain.User {
	if u, ok := ctx.Value(userKey).(*domain.User); ok {
		return u
	}
	return nil
}

// Middleware authenticates requests carrying a bearer token, resolves the
// identity record, and injects it into the request context. Missing or
// invalid credentials get 401; inactive accounts get 403.
func Middleware(tokens *Tokens, repo store.Repository) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")
			token, ok := strings.CutPrefix(header, "Bearer ")
			if !ok || token == "" {
				http.Error(w, `{"error":"missing credentials"}`, http.StatusUnauthorized)
				return
			}

			claims, err := tokens.Verify(token)
			if err != nil {
				http.Error(w, `{"error":"invalid credentials"}`, http.StatusUnauthorized)
				return
			}

			user, err := repo.GetUser(r.Context(), claims.UserID)
			if err != nil {
				http.Error(w, `{"error":"failed to resolve identity"}`, http.StatusInternalServerError)
				return
			}
			if user == nil {
				http.Error(w, `{"error":"invalid credentials"}`, http.StatusUnauthorized)
				return
			}
			if !user.IsActive {
				http.Error(w, `{"error":"user account is inactive"}`, http.StatusForbidden)
				return
			}

			ctx := context.WithValue(r.Context(), userKey, user)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// IPFromRequest returns a normalized remote IP for rate limiting keys.
func IPFromRequest(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
