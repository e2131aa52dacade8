package middleware

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/swipehire/swipehire-api/internal/auth"
)

// TokenValidator validates a bearer token and returns its claims.
// Satisfied by auth.JWTService.
type TokenValidator interface {
	ValidateToken(tokenString string) (*auth.Claims, error)
}

// OptionalAuth attaches the authenticated user's ID to the request context
// when a valid Bearer access token is present. Requests without a token, or
// with an invalid one, proceed anonymously; handlers that require identity
// fall back to their own checks. The feed serves anonymous viewers so auth
// is never a hard gate at the middleware layer.
func OptionalAuth(validator TokenValidator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")
			if header == "" || !strings.HasPrefix(header, "Bearer ") {
				next.ServeHTTP(w, r)
				return
			}

			token := strings.TrimPrefix(header, "Bearer ")
			claims, err := validator.ValidateToken(token)
			if err != nil {
				slog.DebugContext(r.Context(), "rejected bearer token", "error", err)
				next.ServeHTTP(w, r)
				return
			}

			if claims.Type != auth.TokenTypeAccess {
				next.ServeHTTP(w, r)
				return
			}

			ctx := SetUserID(r.Context(), claims.Subject)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
