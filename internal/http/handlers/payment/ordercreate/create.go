// Package ordercreate implements the HTTP handler that opens a payment
// order for the authenticated user before any money moves.
package ordercreate

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"
	"github.com/go-playground/validator"

	"github.com/preplyhq/entitlement-service/internal/http/middlewarectx"
	"github.com/preplyhq/entitlement-service/internal/http/response"
	"github.com/preplyhq/entitlement-service/internal/lib/sl"
	"github.com/preplyhq/entitlement-service/internal/models"
	orderservice "github.com/preplyhq/entitlement-service/internal/services/order"
)

// Request carries the desired billing cycle. The user comes from the JWT
// context, never from the body.
type Request struct {
	BillingCycle string `json:"billing_cycle" validate:"required"`
}

// Service is the order-creation business logic.
type Service interface {
	Create(ctx context.Context, userUID, cycle string) (*models.Order, error)
	KeyID() string
}

// Handler serves order creation requests.
type Handler struct {
	log      *slog.Logger
	service  Service
	validate *validator.Validate
}

// New creates a Handler.
func New(log *slog.Logger, service Service) *Handler {
	return &Handler{
		log:      log,
		service:  service,
		validate: validator.New(),
	}
}

// ServeHTTP godoc
// @Summary Create a payment order
// @Description Creates a provider order for the selected billing cycle and records the charge intent.
// @Tags Payments
// @Accept  json
// @Produce  json
// @Param request body Request true "Billing cycle"
// @Success 200 {object} map[string]any "Order created"
// @Failure 400 {object} response.ErrorResponse "Invalid billing cycle"
// @Failure 401 {object} response.ErrorResponse "User not authenticated"
// @Failure 500 {object} response.ErrorResponse "Provider or storage failure"
// @Failure 503 {object} response.ErrorResponse "Payment service not configured"
// @Router /payments/order [post]
// @Security BearerAuth
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.payment.ordercreate"
	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

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

	entry, err := h.service.Create(r.Context(), userUID, req.BillingCycle)
	if err != nil {
		switch {
		case errors.Is(err, orderservice.ErrUnknownBillingCycle):
			log.Error("invalid billing cycle", slog.String("billing_cycle", req.BillingCycle))
			w.WriteHeader(http.StatusBadRequest)
			render.JSON(w, r, response.Error("invalid billing cycle"))
		case errors.Is(err, orderservice.ErrProviderNotConfigured):
			log.Error("payment provider not configured")
			w.WriteHeader(http.StatusServiceUnavailable)
			render.JSON(w, r, response.Error("payment service not configured"))
		default:
			log.Error("failed to create order", sl.Err(err))
			w.WriteHeader(http.StatusInternalServerError)
			render.JSON(w, r, response.Error("failed to create order"))
		}
		return
	}

	log.Info("order created", slog.String("order_id", entry.OrderID))
	render.JSON(w, r, response.OKWithData(map[string]any{
		"order_id": entry.OrderID,
		"amount":   entry.Amount,
		"currency": entry.Currency,
		"key_id":   h.service.KeyID(),
	}))
}
