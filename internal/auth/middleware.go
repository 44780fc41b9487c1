package auth

import (
	"context"
	"errors"
	"net/http"
	"strings"
)

// contextKey is an unexported type used for context keys in this package.
//
// WHY A CUSTOM TYPE FOR CONTEXT KEYS?
// context.WithValue uses any as the key type. If you use a plain string like
// context.WithValue(ctx, "userID", id), ANY package that knows the string
// "userID" can read or shadow your value. A package-private type prevents
// collisions: only THIS package can create a key of type contextKey.
type contextKey string

const userIDKey contextKey = "userID"

// RequireToken enforces JWT authentication on the machine-facing API routes.
//
// It reads the token from the "Authorization: Bearer <jwt>" header,
// validates it, and stores the userID in the request context. If the token
// is missing or invalid, it returns the standard JSON envelope with
// success=false and stops the request chain — API clients never see HTML.
//
// Browser pages don't use this: they carry a session cookie handled by the
// session middleware instead.
func RequireToken(tokens *TokenService) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			userID, err := extractBearerUserID(r, tokens)
			if err != nil {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusUnauthorized)
				w.Write([]byte(`{"success":false,"message":"valid authentication required"}`))
				return
			}

			// Store userID in context so handlers can read it
			ctx := context.WithValue(r.Context(), userIDKey, userID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// UserIDFromContext retrieves the authenticated user's ID from the request
// context.
//
// Returns ("", false) if the request carried no valid token, (id, true)
// otherwise. Handlers behind RequireToken can rely on ok being true.
func UserIDFromContext(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(userIDKey).(string)
	return id, ok && id != ""
}

// extractBearerUserID pulls the JWT out of the Authorization header and
// validates it.
func extractBearerUserID(r *http.Request, tokens *TokenService) (string, error) {
	header := r.Header.Get("Authorization")
	raw, ok := strings.CutPrefix(header, "Bearer ")
	if !ok || raw == "" {
		return "", errors.New("auth: missing bearer token")
	}

	return tokens.Validate(strings.TrimSpace(raw))
}
