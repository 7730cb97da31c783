// Package webhook implements the provider webhook endpoint. It is the
// source of truth for payment outcomes: the checkout callback can be lost
// when the user closes the tab, the webhook is always delivered.
//
// The signature here covers the raw request body, not the order/payment id
// pair, and arrives in the X-Razorpay-Signature header. User identity and
// billing cycle come from the order notes which the service itself wrote
// at order creation, so the payload cannot grant entitlements to an
// arbitrary user.
package webhook

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"

	"github.com/preplyhq/entitlement-service/internal/http/response"
	"github.com/preplyhq/entitlement-service/internal/lib/signature"
	"github.com/preplyhq/entitlement-service/internal/lib/sl"
)

const signatureHeader = "X-Razorpay-Signature"

const (
	eventPaymentCaptured = "payment.captured"
	eventPaymentFailed   = "payment.failed"
)

type paymentEntity struct {
	ID      string            `json:"id"`
	OrderID string            `json:"order_id"`
	Status  string            `json:"status"`
	Notes   map[string]string `json:"notes"`
}

type event struct {
	Event   string `json:"event"`
	Payload struct {
		Payment struct {
			Entity paymentEntity `json:"entity"`
		} `json:"payment"`
	} `json:"payload"`
}

// Service applies payment outcomes delivered by the provider.
type Service interface {
	ConfirmCapture(ctx context.Context, orderID, paymentID, sig, userUID, cycle string) (time.Time, error)
	RecordFailure(ctx context.Context, orderID, paymentID string) error
}

// Handler serves provider webhook deliveries.
type Handler struct {
	log           *slog.Logger
	service       Service
	webhookSecret string
}

// New creates a Handler. An empty webhookSecret disables signature checks,
// matching a provider account with no webhook secret configured.
func New(log *slog.Logger, service Service, webhookSecret string) *Handler {
	return &Handler{
		log:           log,
		service:       service,
		webhookSecret: webhookSecret,
	}
}

// ServeHTTP godoc
// @Summary Receive a payment provider webhook
// @Description Handles payment.captured and payment.failed events. Other events are acknowledged and ignored.
// @Tags Payments
// @Accept  json
// @Produce  json
// @Success 200 {object} map[string]any "Event received"
// @Failure 400 {object} response.ErrorResponse "Invalid signature or payload"
// @Failure 500 {object} response.ErrorResponse "Storage failure, provider should redeliver"
// @Router /payments/webhook [post]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.payment.webhook"
	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	body, err := io.ReadAll(r.Body)
	if err != nil {
		log.Error("failed to read request body", sl.Err(err))
		w.WriteHeader(http.StatusBadRequest)
		render.JSON(w, r, response.Error("failed to read request body"))
		return
	}

	if h.webhookSecret != "" {
		if !signature.Verify(h.webhookSecret, body, r.Header.Get(signatureHeader)) {
			log.Warn("webhook signature mismatch")
			w.WriteHeader(http.StatusBadRequest)
			render.JSON(w, r, response.Error("invalid webhook signature"))
			return
		}
	}

	var evt event
	if err := json.Unmarshal(body, &evt); err != nil {
		log.Error("failed to decode event", sl.Err(err))
		w.WriteHeader(http.StatusBadRequest)
		render.JSON(w, r, response.Error("invalid event payload"))
		return
	}

	log = log.With(slog.String("event", evt.Event))

	switch evt.Event {
	case eventPaymentCaptured:
		if err := h.handleCaptured(r.Context(), log, evt.Payload.Payment.Entity); err != nil {
			// Non-200 makes the provider redeliver; the grant is
			// idempotent so a retry is safe.
			w.WriteHeader(http.StatusInternalServerError)
			render.JSON(w, r, response.Error("failed to process event"))
			return
		}
	case eventPaymentFailed:
		entity := evt.Payload.Payment.Entity
		if err := h.service.RecordFailure(r.Context(), entity.OrderID, entity.ID); err != nil {
			log.Error("failed to record payment failure", sl.Err(err))
			w.WriteHeader(http.StatusInternalServerError)
			render.JSON(w, r, response.Error("failed to process event"))
			return
		}
		log.Info("payment failure recorded", slog.String("order_id", entity.OrderID))
	default:
		log.Info("event ignored")
	}

	render.JSON(w, r, map[string]any{"received": true})
}

func (h *Handler) handleCaptured(ctx context.Context, log *slog.Logger, entity paymentEntity) error {
	userUID := entity.Notes["user_uid"]
	if userUID == "" {
		// Order was not created by this service. Acknowledge and drop,
		// redelivery would never succeed.
		log.Warn("captured payment without user_uid note, dropping",
			slog.String("order_id", entity.OrderID),
			slog.String("payment_id", entity.ID),
		)
		return nil
	}

	cycle := entity.Notes["billing_cycle"]
	if cycle == "" {
		cycle = "monthly"
	}

	expiresAt, err := h.service.ConfirmCapture(ctx, entity.OrderID, entity.ID, "", userUID, cycle)
	if err != nil {
		log.Error("failed to confirm captured payment", sl.Err(err),
			slog.String("order_id", entity.OrderID))
		return err
	}

	log.Info("payment captured",
		slog.String("order_id", entity.OrderID),
		slog.String("user_uid", userUID),
		slog.Time("expires_at", expiresAt),
	)
	return nil
}
