package middleware

import (
	"context"
	"net/http"
	"strings"

	"rupeeflow/internal/auth"
)

type contextKey string

const ownerRefKey contextKey = "ownerRef"

// Auth validates bearer tokens and stores the owner reference in the request
// context.
func Auth(tokens *auth.TokenService) func(http.HandlerFunc) http.HandlerFunc {
	return func(next http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				http.Error(w, "missing authorization header", http.StatusUnauthorized)
				return
			}
			parts := strings.SplitN(authHeader, " ", 2)
			if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
				http.Error(w, "invalid authorization header", http.StatusUnauthorized)
				return
			}

			claims, err := tokens.ValidateToken(strings.TrimSpace(parts[1]))
			if err != nil {
				http.Error(w, "invalid token", http.StatusUnauthorized)
				return
			}

			ctx := context.WithValue(r.Context(), ownerRefKey, claims.OwnerRef)
			next(w, r.WithContext(ctx))
		}
	}
}

// OwnerRefFromContext retrieves the authenticated owner reference.
func OwnerRefFromContext(ctx context.Context) (string, bool) {
	val := ctx.Value(ownerRefKey)
	if val == nil {
		return "", false
	}
	ref, ok := val.(string)
	return ref, ok
}
