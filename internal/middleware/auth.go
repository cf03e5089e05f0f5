package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/rookgm/marinapay/internal/auth"
)

type contextKey string

const authPayloadKey contextKey = "auth_payload"

// TokenVerifier verifies admin bearer tokens.
type TokenVerifier interface {
	VerifyToken(tokenString string) (*auth.TokenPayload, error)
}

// Auth guards the admin routes with a JWT bearer token.
func Auth(tv TokenVerifier) func(handler http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")
			tokenString, ok := strings.CutPrefix(header, "Bearer ")
			if !ok || tokenString == "" {
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}

			payload, err := tv.VerifyToken(tokenString)
			if err != nil {
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}

			ctx := context.WithValue(r.Context(), authPayloadKey, payload)

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// AuthPayload extracts the verified token payload from the context.
func AuthPayload(ctx context.Context) (*auth.TokenPayload, bool) {
	payload, ok := ctx.Value(authPayloadKey).(*auth.TokenPayload)
	return payload, ok
}
