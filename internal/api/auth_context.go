package api

import (
	"context"
	"net/http"
	"strings"

	"github.com/mindmapapp/mindmap/internal/auth"
	domainerrors "github.com/mindmapapp/mindmap/internal/errors"
	"github.com/mindmapapp/mindmap/internal/service"
)

// ctxKey is the type for context keys to avoid collisions.
type ctxKey string

const (
	userIDKey ctxKey = "userID"
	claimsKey ctxKey = "claims"
)

const msgInvalidToken = "Invalid or expired token"

// GetUserID returns the authenticated user ID from context.
// Returns a 401 error if the request carried no valid token.
func GetUserID(ctx context.Context) (string, error) {
	userID, ok := ctx.Value(userIDKey).(string)
	if !ok || userID == "" {
		return "", domainerrors.Unauthorized(msgInvalidToken)
	}
	return userID, nil
}

// userFromContext adapts GetUserID for the event stream handler.
func userFromContext(ctx context.Context) (string, bool) {
	userID, err := GetUserID(ctx)
	return userID, err == nil
}

func getClaims(ctx context.Context) *auth.AccessClaims {
	claims, _ := ctx.Value(claimsKey).(*auth.AccessClaims)
	return claims
}

// authMiddleware validates the bearer token, or the session cookie when no
// Authorization header is present, and stores the user in context.
// Requests without a valid token continue anonymously; handlers use
// GetUserID to reject them.
func authMiddleware(authSvc *service.AuthService, cookieName string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := extractToken(r, cookieName)
			if token == "" {
				next.ServeHTTP(w, r)
				return
			}

			user, claims, err := authSvc.VerifyToken(r.Context(), token)
			if err != nil {
				next.ServeHTTP(w, r)
				return
			}

			ctx := context.WithValue(r.Context(), userIDKey, user.ID)
			ctx = context.WithValue(ctx, claimsKey, claims)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func extractToken(r *http.Request, cookieName string) string {
	if header := r.Header.Get("Authorization"); header != "" {
		token, ok := strings.CutPrefix(header, "Bearer ")
		if !ok {
			return ""
		}
		return strings.TrimSpace(token)
	}
	if cookie, err := r.Cookie(cookieName); err == nil {
		return cookie.Value
	}
	return ""
}
