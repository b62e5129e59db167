package auth

import (
	"context"
	"net/http"
	"strings"

	"github.com/posrapor/posrapor/internal/platform/httpx"
	"github.com/posrapor/posrapor/internal/tenant"
)

// UserLoader loads a user by id for request authentication.
type UserLoader interface {
	UserByID(ctx context.Context, id int64) (*tenant.User, error)
}

// Middleware authenticates Bearer tokens and stores the loaded user in the
// request context. The user is loaded fresh per request so branch and
// permission changes apply without re-login.
func Middleware(tokens *TokenManager, users UserLoader) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")
			raw, found := strings.CutPrefix(header, "Bearer ")
			if !found || raw == "" {
				httpx.Problem(w, http.StatusUnauthorized, "Unauthorized", "missing bearer token")
				return
			}
			userID, err := tokens.Verify(raw)
			if err != nil {
				httpx.Problem(w, http.StatusUnauthorized, "Unauthorized", "invalid token")
				return
			}
			user, err := users.UserByID(r.Context(), userID)
			if err != nil {
				httpx.Problem(w, http.StatusUnauthorized, "Unauthorized", "unknown user")
				return
			}
			ctx := tenant.ContextWithUser(r.Context(), user)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
