package login_test

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/preplyhq/entitlement-service/internal/http/handlers/auth/login"
	authservice "github.com/preplyhq/entitlement-service/internal/services/auth"
)

type MockService struct {
	mock.Mock
}

func (m *MockService) Login(ctx context.Context, username, password string) (string, string, error) {
	args := m.Called(ctx, username, password)
	return args.String(0), args.String(1), args.Error(2)
}

func newTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}))
}

func doRequest(h http.Handler, body []byte) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/login", bytes.NewReader(body))
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

func TestHandler_Success(t *testing.T) {
	service := new(MockService)
	service.On("Login", mock.Anything, "alice", "secret-pass").
		Return("token-123", "user", nil)

	handler := login.New(newTestLogger(), service)

	body, _ := json.Marshal(map[string]string{"username": "alice", "password": "secret-pass"})
	rr := doRequest(handler, body)

	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), "token-123")
	service.AssertExpectations(t)
}

func TestHandler_InvalidCredentials(t *testing.T) {
	service := new(MockService)
	service.On("Login", mock.Anything, "alice", "wrong").
		Return("", "", authservice.ErrInvalidCredentials)

	handler := login.New(newTestLogger(), service)

	body, _ := json.Marshal(map[string]string{"username": "alice", "password": "wrong"})
	rr := doRequest(handler, body)

	assert.Equal(t, http.StatusUnauthorized, rr.Code)
	assert.Contains(t, rr.Body.String(), "invalid credentials")
}

func TestHandler_MissingFields(t *testing.T) {
	service := new(MockService)
	handler := login.New(newTestLogger(), service)

	body, _ := json.Marshal(map[string]string{"username": "alice"})
	rr := doRequest(handler, body)

	assert.Equal(t, http.StatusUnprocessableEntity, rr.Code)
	service.AssertNotCalled(t, "Login", mock.Anything, mock.Anything, mock.Anything)
}
