// Package verify implements the client-side payment confirmation endpoint.
// The handler checks the provider signature before any state is touched;
// a failed check mutates nothing.
package verify

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"
	"github.com/go-playground/validator"

	"github.com/preplyhq/entitlement-service/internal/http/middlewarectx"
	"github.com/preplyhq/entitlement-service/internal/http/response"
	"github.com/preplyhq/entitlement-service/internal/lib/signature"
	"github.com/preplyhq/entitlement-service/internal/lib/sl"
)

// Request mirrors the checkout callback payload handed to the client by
// the provider after a successful charge.
type Request struct {
	RazorpayOrderID   string `json:"razorpay_order_id" validate:"required"`
	RazorpayPaymentID string `json:"razorpay_payment_id" validate:"required"`
	RazorpaySignature string `json:"razorpay_signature" validate:"required"`
	BillingCycle      string `json:"billing_cycle" validate:"required"`
}

// Service confirms a captured payment and grants the entitlement.
type Service interface {
	ConfirmCapture(ctx context.Context, orderID, paymentID, sig, userUID, cycle string) (time.Time, error)
}

// Handler serves payment verification requests.
type Handler struct {
	log       *slog.Logger
	service   Service
	keySecret string
	validate  *validator.Validate
}

// New creates a Handler. keySecret is the provider API secret used to
// check checkout signatures.
func New(log *slog.Logger, service Service, keySecret string) *Handler {
	return &Handler{
		log:       log,
		service:   service,
		keySecret: keySecret,
		validate:  validator.New(),
	}
}

// ServeHTTP godoc
// @Summary Verify a payment
// @Description Verifies the checkout signature and activates the subscription on success.
// @Tags Payments
// @Accept  json
// @Produce  json
// @Param request body Request true "Checkout callback payload"
// @Success 200 {object} map[string]any "Subscription activated"
// @Failure 400 {object} response.ErrorResponse "Invalid payment signature"
// @Failure 401 {object} response.ErrorResponse "User not authenticated"
// @Failure 500 {object} response.ErrorResponse "Storage failure"
// @Failure 503 {object} response.ErrorResponse "Payment service not configured"
// @Router /payments/verify [post]
// @Security BearerAuth
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.payment.verify"
	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	if h.keySecret == "" {
		log.Error("payment provider secret not configured")
		w.WriteHeader(http.StatusServiceUnavailable)
		render.JSON(w, r, response.Error("payment service not configured"))
		return
	}

	var req Request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		log.Error("failed to decode request", sl.Err(err))
		w.WriteHeader(http.StatusBadRequest)
		render.JSON(w, r, response.Error("invalid request body"))
		return
	}

	if err := h.validate.Struct(req); err != nil {
		log.Error("validation failed", sl.Err(err))
		w.WriteHeader(http.StatusUnprocessableEntity)
		render.JSON(w, r, response.ValidationError(err.(validator.ValidationErrors)))
		return
	}

	userUID, ok := r.Context().Value(middlewarectx.UserUID).(string)
	if !ok || userUID == "" {
		log.Error("user UID not found in context")
		w.WriteHeader(http.StatusUnauthorized)
		render.JSON(w, r, response.Error("user not authenticated"))
		return
	}

	message := signature.PaymentMessage(req.RazorpayOrderID, req.RazorpayPaymentID)
	if !signature.Verify(h.keySecret, message, req.RazorpaySignature) {
		log.Warn("payment signature mismatch",
			slog.String("order_id", req.RazorpayOrderID),
			slog.String("payment_id", req.RazorpayPaymentID),
		)
		w.WriteHeader(http.StatusBadRequest)
		render.JSON(w, r, response.Error("invalid payment signature"))
		return
	}

	expiresAt, err := h.service.ConfirmCapture(r.Context(),
		req.RazorpayOrderID, req.RazorpayPaymentID, req.RazorpaySignature,
		userUID, req.BillingCycle)
	if err != nil {
		log.Error("failed to confirm payment", sl.Err(err))
		w.WriteHeader(http.StatusInternalServerError)
		render.JSON(w, r, response.Error("failed to activate subscription"))
		return
	}

	log.Info("payment verified",
		slog.String("order_id", req.RazorpayOrderID),
		slog.String("user_uid", userUID),
	)
	render.JSON(w, r, response.OKWithData(map[string]any{
		"expires_at": expiresAt,
	}))
}
