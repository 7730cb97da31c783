package verify_test

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/preplyhq/entitlement-service/internal/http/handlers/payment/verify"
	"github.com/preplyhq/entitlement-service/internal/http/middlewarectx"
)

const testSecret = "test_key_secret"

type MockService struct {
	mock.Mock
}

func (m *MockService) ConfirmCapture(ctx context.Context, orderID, paymentID, sig, userUID, cycle string) (time.Time, error) {
	args := m.Called(ctx, orderID, paymentID, sig, userUID, cycle)
	return args.Get(0).(time.Time), args.Error(1)
}

func newTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}))
}

func sign(orderID, paymentID string) string {
	mac := hmac.New(sha256.New, []byte(testSecret))
	mac.Write([]byte(orderID + "|" + paymentID))
	return hex.EncodeToString(mac.Sum(nil))
}

func doRequest(h http.Handler, body []byte, userUID string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/api/v1/payments/verify", bytes.NewReader(body))
	if userUID != "" {
		req = req.WithContext(context.WithValue(req.Context(), middlewarectx.UserUID, userUID))
	}
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

func TestHandler_Success(t *testing.T) {
	expiry := time.Date(2026, 9, 30, 12, 0, 0, 0, time.UTC)
	sig := sign("order_1", "pay_1")

	service := new(MockService)
	service.On("ConfirmCapture", mock.Anything, "order_1", "pay_1", sig, "user-1", "monthly").
		Return(expiry, nil)

	handler := verify.New(newTestLogger(), service, testSecret)

	body, _ := json.Marshal(map[string]string{
		"razorpay_order_id":   "order_1",
		"razorpay_payment_id": "pay_1",
		"razorpay_signature":  sig,
		"billing_cycle":       "monthly",
	})
	rr := doRequest(handler, body, "user-1")

	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), "expires_at")
	service.AssertExpectations(t)
}

func TestHandler_BadSignature(t *testing.T) {
	service := new(MockService)
	handler := verify.New(newTestLogger(), service, testSecret)

	body, _ := json.Marshal(map[string]string{
		"razorpay_order_id":   "order_1",
		"razorpay_payment_id": "pay_1",
		"razorpay_signature":  "deadbeef",
		"billing_cycle":       "monthly",
	})
	rr := doRequest(handler, body, "user-1")

	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Contains(t, rr.Body.String(), "invalid payment signature")
	service.AssertNotCalled(t, "ConfirmCapture",
		mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestHandler_SwappedIDsRejected(t *testing.T) {
	service := new(MockService)
	handler := verify.New(newTestLogger(), service, testSecret)

	// Signature computed over the ids in the wrong order must not pass.
	sig := sign("pay_1", "order_1")
	body, _ := json.Marshal(map[string]string{
		"razorpay_order_id":   "order_1",
		"razorpay_payment_id": "pay_1",
		"razorpay_signature":  sig,
		"billing_cycle":       "monthly",
	})
	rr := doRequest(handler, body, "user-1")

	assert.Equal(t, http.StatusBadRequest, rr.Code)
	service.AssertNotCalled(t, "ConfirmCapture",
		mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestHandler_NoSecretConfigured(t *testing.T) {
	service := new(MockService)
	handler := verify.New(newTestLogger(), service, "")

	body, _ := json.Marshal(map[string]string{
		"razorpay_order_id":   "order_1",
		"razorpay_payment_id": "pay_1",
		"razorpay_signature":  "abc",
		"billing_cycle":       "monthly",
	})
	rr := doRequest(handler, body, "user-1")

	assert.Equal(t, http.StatusServiceUnavailable, rr.Code)
}

func TestHandler_NoUser(t *testing.T) {
	service := new(MockService)
	handler := verify.New(newTestLogger(), service, testSecret)

	body, _ := json.Marshal(map[string]string{
		"razorpay_order_id":   "order_1",
		"razorpay_payment_id": "pay_1",
		"razorpay_signature":  sign("order_1", "pay_1"),
		"billing_cycle":       "monthly",
	})
	rr := doRequest(handler, body, "")

	assert.Equal(t, http.StatusUnauthorized, rr.Code)
}

func TestHandler_StorageError(t *testing.T) {
	sig := sign("order_1", "pay_1")
	service := new(MockService)
	service.On("ConfirmCapture", mock.Anything, "order_1", "pay_1", sig, "user-1", "yearly").
		Return(time.Time{}, assert.AnError)

	handler := verify.New(newTestLogger(), service, testSecret)

	body, _ := json.Marshal(map[string]string{
		"razorpay_order_id":   "order_1",
		"razorpay_payment_id": "pay_1",
		"razorpay_signature":  sig,
		"billing_cycle":       "yearly",
	})
	rr := doRequest(handler, body, "user-1")

	assert.Equal(t, http.StatusInternalServerError, rr.Code)
}
