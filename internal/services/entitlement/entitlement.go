// Package entitlement implements the state-transition authority that turns
// verified captured payments into the user's subscription state. Both the
// client verify path and the provider webhook path converge here; neither of
// them ever mutates the subscription directly.
package entitlement

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/preplyhq/entitlement-service/internal/lib/billing"
	"github.com/preplyhq/entitlement-service/internal/lib/month"
	"github.com/preplyhq/entitlement-service/internal/models"
)

// Repository persists payment records and subscriptions.
type Repository interface {
	MarkPaymentCaptured(ctx context.Context, orderID, paymentID, sig string) error
	MarkPaymentFailed(ctx context.Context, orderID, paymentID string) error
	UpsertSubscription(ctx context.Context, sub models.Subscription) error
	GetSubscriptionByUserUID(ctx context.Context, userUID string) (*models.Subscription, bool, error)
}

// Cache stores subscription rows for the status read path.
type Cache interface {
	Get(key string, result any) (bool, error)
	Set(key string, value any, expiration time.Duration) error
	Invalidate(key string) error
}

// Publisher emits notification events. May be nil when the broker is not
// configured.
type Publisher interface {
	Publish(routingKey string, message any) error
}

// ActivatedEvent is published after a successful entitlement grant.
type ActivatedEvent struct {
	UserUID      string    `json:"user_uid"`
	Plan         string    `json:"plan"`
	BillingCycle string    `json:"billing_cycle"`
	ExpiresAt    time.Time `json:"expires_at"`
}

// Status is the read model for a user's entitlement. IsPro is derived from
// the stored fields at read time, never stored or cached itself.
type Status struct {
	Plan         string     `json:"plan"`
	BillingCycle string     `json:"billing_cycle,omitempty"`
	Status       string     `json:"status"`
	StartedAt    *time.Time `json:"started_at,omitempty"`
	ExpiresAt    *time.Time `json:"expires_at,omitempty"`
	IsPro        bool       `json:"is_pro"`
}

// Service reconciles captured payments into subscription state.
type Service struct {
	repo      Repository
	cache     Cache
	publisher Publisher
	log       *slog.Logger

	now func() time.Time
}

// New creates a Service. publisher may be nil.
func New(repo Repository, cache Cache, publisher Publisher, log *slog.Logger) *Service {
	return &Service{
		repo:      repo,
		cache:     cache,
		publisher: publisher,
		log:       log,
		now:       time.Now,
	}
}

// ConfirmCapture applies a signature-verified capture event: it marks the
// payment record captured and grants the entitlement. Callers must have
// authenticated the event before calling; nothing here re-checks signatures.
// The whole operation is safe to repeat: the record update and the
// subscription upsert both converge on the same end state. If the upsert
// fails after the record update, any redelivery of the same capture event
// completes the grant.
func (s *Service) ConfirmCapture(ctx context.Context, orderID, paymentID, sig, userUID, cycle string) (time.Time, error) {
	const op = "services.entitlement.ConfirmCapture"

	if err := s.repo.MarkPaymentCaptured(ctx, orderID, paymentID, sig); err != nil {
		return time.Time{}, fmt.Errorf("%s: %w", op, err)
	}
	expiresAt, err := s.GrantEntitlement(ctx, userUID, cycle)
	if err != nil {
		return time.Time{}, fmt.Errorf("%s: %w", op, err)
	}

	s.log.Info("payment captured",
		slog.String("order_id", orderID),
		slog.String("payment_id", paymentID),
		slog.String("user_uid", userUID))
	return expiresAt, nil
}

// GrantEntitlement upserts the subscription row for the user with a window
// starting now. This is a full replace keyed by user UID: a renewal resets
// the window from now rather than extending the previous expiry, and a
// duplicate delivery recomputes a materially identical row instead of
// creating a second one.
func (s *Service) GrantEntitlement(ctx context.Context, userUID, cycle string) (time.Time, error) {
	const op = "services.entitlement.GrantEntitlement"

	now := s.now().UTC()
	expiresAt := month.Add(now, billing.DurationMonths(cycle))

	sub := models.Subscription{
		UserUID:      userUID,
		Plan:         models.PlanPro,
		BillingCycle: cycle,
		Status:       models.SubscriptionStatusActive,
		StartedAt:    now,
		ExpiresAt:    &expiresAt,
		UpdatedAt:    now,
	}
	if err := s.repo.UpsertSubscription(ctx, sub); err != nil {
		return time.Time{}, fmt.Errorf("%s: %w", op, err)
	}

	cacheKey := subscriptionCacheKey(userUID)
	if err := s.cache.Invalidate(cacheKey); err != nil {
		s.log.Warn("failed to invalidate subscription cache", slog.String("key", cacheKey), slog.Any("err", err))
	}

	if s.publisher != nil {
		event := ActivatedEvent{
			UserUID:      userUID,
			Plan:         models.PlanPro,
			BillingCycle: cycle,
			ExpiresAt:    expiresAt,
		}
		if err := s.publisher.Publish("entitlement.activated", event); err != nil {
			s.log.Warn("failed to publish entitlement event", slog.Any("err", err))
		}
	}

	s.log.Info("entitlement granted",
		slog.String("user_uid", userUID),
		slog.String("billing_cycle", cycle),
		slog.Time("expires_at", expiresAt))
	return expiresAt, nil
}

// RecordFailure marks the payment record failed. The subscription is left
// untouched: a failed attempt never revokes an existing entitlement.
func (s *Service) RecordFailure(ctx context.Context, orderID, paymentID string) error {
	const op = "services.entitlement.RecordFailure"

	if err := s.repo.MarkPaymentFailed(ctx, orderID, paymentID); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	s.log.Info("payment failed",
		slog.String("order_id", orderID),
		slog.String("payment_id", paymentID))
	return nil
}

// Status returns the user's entitlement, deriving IsPro at read time so an
// elapsed expiry is detected lazily without a background sweep. Users who
// never paid get the free plan.
func (s *Service) Status(ctx context.Context, userUID string) (*Status, error) {
	const op = "services.entitlement.Status"

	var sub *models.Subscription
	cacheKey := subscriptionCacheKey(userUID)
	found, err := s.cache.Get(cacheKey, &sub)
	if err != nil {
		s.log.Warn("failed to read subscription cache", slog.String("key", cacheKey), slog.Any("err", err))
		found = false
	}
	if !found || sub == nil {
		var exists bool
		sub, exists, err = s.repo.GetSubscriptionByUserUID(ctx, userUID)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		if !exists {
			return &Status{Plan: models.PlanFree, IsPro: false}, nil
		}
		if err := s.cache.Set(cacheKey, sub, time.Hour); err != nil {
			s.log.Warn("failed to cache subscription", slog.String("key", cacheKey), slog.Any("err", err))
		}
	}

	return &Status{
		Plan:         sub.Plan,
		BillingCycle: sub.BillingCycle,
		Status:       sub.Status,
		StartedAt:    &sub.StartedAt,
		ExpiresAt:    sub.ExpiresAt,
		IsPro:        sub.IsPro(s.now()),
	}, nil
}

func subscriptionCacheKey(userUID string) string {
	return fmt.Sprintf("subscription:%s", userUID)
}
