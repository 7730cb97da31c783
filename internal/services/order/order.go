// Package order implements order creation: pricing lookup, provider order
// issuance and persistence of the order ledger entry with its payment record.
package order

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"github.com/preplyhq/entitlement-service/internal/lib/billing"
	"github.com/preplyhq/entitlement-service/internal/models"
	"github.com/preplyhq/entitlement-service/internal/paymentprovider"
)

// ErrUnknownBillingCycle is returned for billing cycle tags outside the
// pricing table. Rejected before any side effect.
var ErrUnknownBillingCycle = errors.New("unknown billing cycle")

// ErrProviderNotConfigured is returned when provider credentials are absent.
var ErrProviderNotConfigured = errors.New("payment provider not configured")

// Repository persists orders.
type Repository interface {
	SaveOrder(ctx context.Context, order models.Order) error
}

// ProviderClient issues orders at the payment provider.
type ProviderClient interface {
	CreateOrder(ctx context.Context, req paymentprovider.CreateOrderRequest) (*paymentprovider.CreateOrderResponse, error)
	Configured() bool
	KeyID() string
}

// Service implements order creation.
type Service struct {
	repo     Repository
	provider ProviderClient
	currency string
	log      *slog.Logger
}

// New creates a Service.
func New(repo Repository, provider ProviderClient, currency string, log *slog.Logger) *Service {
	return &Service{
		repo:     repo,
		provider: provider,
		currency: currency,
		log:      log,
	}
}

// Create resolves the price for the billing cycle, obtains a fresh order ID
// from the provider and persists the order together with a payment record in
// status created. The user UID and billing cycle are attached to the
// provider order as notes so webhook events can be reconciled without
// trusting request parameters.
func (s *Service) Create(ctx context.Context, userUID, cycle string) (*models.Order, error) {
	const op = "services.order.Create"

	if !s.provider.Configured() {
		return nil, ErrProviderNotConfigured
	}
	amount, ok := billing.PriceFor(cycle)
	if !ok {
		return nil, ErrUnknownBillingCycle
	}

	receipt := receiptFor(userUID)
	providerResp, err := s.provider.CreateOrder(ctx, paymentprovider.CreateOrderRequest{
		Amount:   amount,
		Currency: s.currency,
		Receipt:  receipt,
		Notes: map[string]string{
			"user_uid":      userUID,
			"billing_cycle": cycle,
			"plan":          models.PlanPro,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	entry := models.Order{
		OrderID:      providerResp.ID,
		UserUID:      userUID,
		Amount:       amount,
		Currency:     s.currency,
		BillingCycle: cycle,
		Receipt:      receipt,
	}
	if err := s.repo.SaveOrder(ctx, entry); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	s.log.Info("created order",
		slog.String("order_id", entry.OrderID),
		slog.String("user_uid", userUID),
		slog.String("billing_cycle", cycle),
		slog.Int64("amount", amount))

	return &entry, nil
}

// KeyID exposes the provider public key for checkout responses.
func (s *Service) KeyID() string {
	return s.provider.KeyID()
}

// receiptFor builds the receipt reference sent to the provider. The nonce
// distinguishes retried creations for the same user; the provider call
// itself carries no idempotency key yet, so a client retry after a timeout
// can still create a second order.
func receiptFor(userUID string) string {
	nonce := strings.ReplaceAll(uuid.NewString(), "-", "")[:12]
	return fmt.Sprintf("preply_%s_%s", userUID, nonce)
}
