package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"spotbook/pkg/logger"

	"github.com/golang-jwt/jwt/v5"
)

const testSecret = "test-secret"

func testLogger() *logger.Logger {
	return logger.New(logger.Config{
		Level:   "error",
		Format:  logger.JSON,
		Service: "test",
	})
}

func signToken(t *testing.T, secret, subject string) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   subject,
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	})
	signed, err := token.SignedString([]byte(secret))
	if err != nil {
		t.Fatalf("failed to sign token: %v", err)
	}
	return signed
}

func TestAuthentication(t *testing.T) {
	var gotActor string
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotActor = ActorFrom(r.Context())
		w.WriteHeader(http.StatusOK)
	})
	handler := Authentication(testSecret, testLogger())(next)

	tests := []struct {
		name       string
		authHeader string
		wantStatus int
		wantActor  string
	}{
		{
			name:       "valid token",
			authHeader: "Bearer " + signToken(t, testSecret, "user1"),
			wantStatus: http.StatusOK,
			wantActor:  "user1",
		},
		{
			name:       "missing header",
			wantStatus: http.StatusUnauthorized,
		},
		{
			name:       "not a bearer token",
			authHeader: "Basic dXNlcjpwYXNz",
			wantStatus: http.StatusUnauthorized,
		},
		{
			name:       "wrong secret",
			authHeader: "Bearer " + signToken(t, "other-secret", "user1"),
			wantStatus: http.StatusUnauthorized,
		},
		{
			name:       "no subject claim",
			authHeader: "Bearer " + signToken(t, testSecret, ""),
			wantStatus: http.StatusUnauthorized,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gotActor = ""
			req := httptest.NewRequest(http.MethodGet, "/api/bookings/current", nil)
			if tt.authHeader != "" {
				req.Header.Set("Authorization", tt.authHeader)
			}
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)

			if rec.Code != tt.wantStatus {
				t.Fatalf("expected %d, got %d", tt.wantStatus, rec.Code)
			}
			if gotActor != tt.wantActor {
				t.Errorf("expected actor %q, got %q", tt.wantActor, gotActor)
			}
		})
	}
}

func TestActorFromMissing(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if actor := ActorFrom(req.Context()); actor != "" {
		t.Errorf("expected empty actor, got %q", actor)
	}
}
