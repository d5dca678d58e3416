package middleware

import (
	"context"
	"net/http"
	"strings"

	"shopdesk/internal/token"
)

// contextKey is an unexported type for context keys to prevent collisions.
type contextKey string

const (
	claimsKey contextKey = "claims"
	rawKey    contextKey = "raw_token"
)

// RequireAuth verifies the bearer token and stores the claims in the
// request context. Requests without a valid full-access token get 401.
func RequireAuth(tokens *token.Manager) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw := bearerToken(r)
			if raw == "" {
				unauthorized(w, "missing bearer token")
				return
			}

			claims, err := tokens.Verify(r.Context(), raw)
			if err != nil {
				unauthorized(w, "invalid or expired token")
				return
			}

			ctx := context.WithValue(r.Context(), claimsKey, claims)
			ctx = context.WithValue(ctx, rawKey, raw)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// ClaimsFromCtx extracts the verified token claims from the request
// context. Returns nil when the request is unauthenticated.
func ClaimsFromCtx(ctx context.Context) *token.Claims {
	claims, _ := ctx.Value(claimsKey).(*token.Claims)
	return claims
}

// UserIDFromCtx returns the authenticated user id, or false when the
// request carries no valid claims.
func UserIDFromCtx(ctx context.Context) (int, bool) {
	claims := ClaimsFromCtx(ctx)
	if claims == nil {
		return 0, false
	}
	id, err := claims.UserID()
	if err != nil {
		return 0, false
	}
	return id, true
}

// RawTokenFromCtx returns the raw bearer token string for the request.
// Used by logout to revoke the presented token.
func RawTokenFromCtx(ctx context.Context) string {
	raw, _ := ctx.Value(rawKey).(string)
	return raw
}

// bearerToken extracts the token from the Authorization header.
func bearerToken(r *http.Request) string {
	header := r.Header.Get("Authorization")
	if header == "" {
		return ""
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}

func unauthorized(w http.ResponseWriter, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	w.Write([]byte(`{"error":"` + msg + `"}`))
}
