package middlewarectx

import (
	"context"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/preplyhq/entitlement-service/internal/lib/jwt"
)

type stubAuthService struct {
	maker jwt.Maker
}

func (s *stubAuthService) ValidateToken(_ context.Context, token string) (*jwt.CustomClaims, error) {
	return s.maker.ParseToken(token)
}

func newTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}))
}

func TestJWTMiddleware(t *testing.T) {
	maker := jwt.NewJWTMaker("test-secret", time.Hour)
	authService := &stubAuthService{maker: maker}
	logger := newTestLogger()

	var gotUID, gotUser any
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUID = r.Context().Value(UserUID)
		gotUser = r.Context().Value(User)
		w.WriteHeader(http.StatusOK)
	})

	handler := JWTMiddleware(authService, logger)(next)

	t.Run("valid token populates context", func(t *testing.T) {
		token, err := maker.GenerateToken("alice", "user", "uid-123")
		require.NoError(t, err)

		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		rr := httptest.NewRecorder()

		handler.ServeHTTP(rr, req)

		assert.Equal(t, http.StatusOK, rr.Code)
		assert.Equal(t, "uid-123", gotUID)
		assert.Equal(t, "alice", gotUser)
	})

	t.Run("missing header", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		rr := httptest.NewRecorder()

		handler.ServeHTTP(rr, req)

		assert.Equal(t, http.StatusUnauthorized, rr.Code)
	})

	t.Run("garbage token", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Authorization", "Bearer garbage")
		rr := httptest.NewRecorder()

		handler.ServeHTTP(rr, req)

		assert.Equal(t, http.StatusUnauthorized, rr.Code)
	})
}
