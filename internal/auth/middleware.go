package auth

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/nexusai/terminal-api/internal/models"
)

// contextKey is a custom type for context keys
type contextKey string

const (
	// UserContextKey is the key for storing session claims in context
	UserContextKey contextKey = "user"
)

// UserFetcher confirms an authenticated account still exists
type UserFetcher interface {
	GetByID(ctx context.Context, id string) (*models.User, error)
}

// Protect validates the session token and injects its claims into the
// request context. The token is taken from the "jwt" cookie (reset-view and
// SPA flow) or the Authorization header (API flow). Beyond the signature
// check, the account is re-fetched so a deleted account cannot keep using
// an old token.
func Protect(tm *TokenManager, users UserFetcher) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			tokenString := extractToken(r)
			if tokenString == "" {
				http.Error(w, "not authorized, no token", http.StatusUnauthorized)
				return
			}

			claims, err := tm.ValidateToken(tokenString)
			if err != nil {
				http.Error(w, "not authorized, token failed", http.StatusUnauthorized)
				return
			}

			if _, err := users.GetByID(r.Context(), claims.UserID); err != nil {
				if errors.Is(err, models.ErrNotFound) {
					http.Error(w, "not authorized, user not found", http.StatusUnauthorized)
					return
				}
				http.Error(w, "internal server error", http.StatusInternalServerError)
				return
			}

			ctx := context.WithValue(r.Context(), UserContextKey, claims)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// extractToken prefers the Authorization header, falling back to the cookie
func extractToken(r *http.Request) string {
	if authHeader := r.Header.Get("Authorization"); authHeader != "" {
		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) == 2 && parts[0] == "Bearer" {
			return parts[1]
		}
		return ""
	}

	if token, err := GetSessionCookie(r); err == nil {
		return token
	}
	return ""
}

// GetUserFromContext extracts session claims from the request context
func GetUserFromContext(r *http.Request) *models.SessionClaims {
	claims, ok := r.Context().Value(UserContextKey).(*models.SessionClaims)
	if !ok {
		return nil
	}
	return claims
}
