package middleware

import (
	"context"
	"net/http"
	"spotbook/pkg/logger"
	"strings"

	"github.com/golang-jwt/jwt/v5"
)

const ActorKey contextKey = "actor_id"

// ActorFrom returns the authenticated user ID resolved by Authentication.
// Empty means the request never passed through the middleware.
func ActorFrom(ctx context.Context) string {
	if actor, ok := ctx.Value(ActorKey).(string); ok {
		return actor
	}
	return ""
}

// Authentication validates the Bearer token issued by the auth service and
// injects the subject claim as the actor ID. Tokens are HS256-signed with a
// shared secret; this service never issues them.
func Authentication(secret string, log *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			auth := r.Header.Get("Authorization")
			if !strings.HasPrefix(auth, "Bearer ") {
				rejectUnauthenticated(w, log, r, "missing bearer token")
				return
			}
			raw := strings.TrimPrefix(auth, "Bearer ")

			token, err := jwt.Parse(raw, func(t *jwt.Token) (any, error) {
				if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
					return nil, jwt.ErrSignatureInvalid
				}
				return []byte(secret), nil
			})
			if err != nil || !token.Valid {
				rejectUnauthenticated(w, log, r, "invalid token")
				return
			}

			subject, err := token.Claims.GetSubject()
			if err != nil || subject == "" {
				rejectUnauthenticated(w, log, r, "token has no subject")
				return
			}

			ctx := context.WithValue(r.Context(), ActorKey, subject)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func rejectUnauthenticated(w http.ResponseWriter, log *logger.Logger, r *http.Request, reason string) {
	log.Warn("Authentication failed",
		"request_id", requestIDFrom(r.Context()),
		"reason", reason,
		"path", r.URL.Path,
		"method", r.Method,
	)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	_, _ = w.Write([]byte(`{"error":"Authentication required"}`))
}
