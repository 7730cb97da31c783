// Package storage implements the PostgreSQL persistence layer for orders,
// payment records, subscriptions and users.
package storage

import (
	"context"
	"database/sql"
	"fmt"

	// Registers the pgx driver for database/sql.
	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/preplyhq/entitlement-service/internal/models"
)

// Storage wraps the PostgreSQL connection and implements the repositories
// used by the order, entitlement and auth services.
type Storage struct {
	DB *sql.DB
}

// New opens a connection to PostgreSQL and verifies it with a ping.
func New(storageConnectionString string) (*Storage, error) {
	const op = "storage.New"

	db, err := sql.Open("pgx", storageConnectionString)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if err = db.PingContext(context.Background()); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return &Storage{
		DB: db,
	}, nil
}

// ===== ORDER METHODS =====

// SaveOrder persists a new order together with its payment record in status
// created, in one transaction. Orders are append-only.
func (s *Storage) SaveOrder(ctx context.Context, order models.Order) error {
	const op = "storage.SaveOrder"
	select {
	case <-ctx.Done():
		return fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	query := `INSERT INTO orders (order_id, user_uid, amount, currency, billing_cycle, receipt)
			  VALUES ($1, $2, $3, $4, $5, $6)`
	if _, err = tx.ExecContext(ctx, query,
		order.OrderID, order.UserUID, order.Amount, order.Currency,
		order.BillingCycle, order.Receipt); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	query = `INSERT INTO payments (order_id, status)
			 VALUES ($1, $2)`
	if _, err = tx.ExecContext(ctx, query, order.OrderID, models.PaymentStatusCreated); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// GetOrder returns an order by its provider-issued identifier.
func (s *Storage) GetOrder(ctx context.Context, orderID string) (*models.Order, bool, error) {
	const op = "storage.GetOrder"
	select {
	case <-ctx.Done():
		return nil, false, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `SELECT order_id, user_uid, amount, currency, billing_cycle, receipt, created_at
			  FROM orders WHERE order_id = $1`
	var o models.Order
	err := s.DB.QueryRowContext(ctx, query, orderID).Scan(&o.OrderID, &o.UserUID,
		&o.Amount, &o.Currency, &o.BillingCycle, &o.Receipt, &o.CreatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("%s: %w", op, err)
	}
	return &o, true, nil
}

// ===== PAYMENT METHODS =====

// MarkPaymentCaptured moves the payment record for the order to captured,
// storing the payment ID and, when present, the client-reported signature.
// The update is keyed by order ID and safe to apply more than once; both the
// verify path and the webhook path call it for the same capture event.
func (s *Storage) MarkPaymentCaptured(ctx context.Context, orderID, paymentID, sig string) error {
	const op = "storage.MarkPaymentCaptured"
	select {
	case <-ctx.Done():
		return fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `UPDATE payments
			  SET payment_id = $2,
			      signature = COALESCE(NULLIF($3, ''), signature),
			      status = $4,
			      updated_at = NOW()
			  WHERE order_id = $1`
	_, err := s.DB.ExecContext(ctx, query, orderID, paymentID, sig, models.PaymentStatusCaptured)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// MarkPaymentFailed moves the payment record for the order to failed,
// storing the failed payment ID when the provider reported one.
func (s *Storage) MarkPaymentFailed(ctx context.Context, orderID, paymentID string) error {
	const op = "storage.MarkPaymentFailed"
	select {
	case <-ctx.Done():
		return fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `UPDATE payments
			  SET payment_id = COALESCE(NULLIF($2, ''), payment_id),
			      status = $3,
			      updated_at = NOW()
			  WHERE order_id = $1`
	_, err := s.DB.ExecContext(ctx, query, orderID, paymentID, models.PaymentStatusFailed)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// GetPaymentRecord returns the payment record for an order.
func (s *Storage) GetPaymentRecord(ctx context.Context, orderID string) (*models.PaymentRecord, bool, error) {
	const op = "storage.GetPaymentRecord"
	select {
	case <-ctx.Done():
		return nil, false, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `SELECT id, order_id, payment_id, signature, status, updated_at
			  FROM payments WHERE order_id = $1`
	var p models.PaymentRecord
	var paymentID, sig sql.NullString
	err := s.DB.QueryRowContext(ctx, query, orderID).Scan(&p.ID, &p.OrderID,
		&paymentID, &sig, &p.Status, &p.UpdatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("%s: %w", op, err)
	}
	if paymentID.Valid {
		p.PaymentID = &paymentID.String
	}
	if sig.Valid {
		p.Signature = &sig.String
	}
	return &p, true, nil
}

// ===== SUBSCRIPTION METHODS =====

// UpsertSubscription replaces the subscription row for the user, inserting
// it if absent. The conflict target is the user UID, never the order: that
// is what makes repeated delivery of the same capture event converge on one
// row instead of stacking duplicates. The storage layer provides the mutual
// exclusion between the verify and webhook writers.
func (s *Storage) UpsertSubscription(ctx context.Context, sub models.Subscription) error {
	const op = "storage.UpsertSubscription"
	select {
	case <-ctx.Done():
		return fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `INSERT INTO subscriptions (user_uid, plan, billing_cycle, status, started_at, expires_at, updated_at)
			  VALUES ($1, $2, $3, $4, $5, $6, $7)
			  ON CONFLICT (user_uid) DO UPDATE
			  SET plan = EXCLUDED.plan,
			      billing_cycle = EXCLUDED.billing_cycle,
			      status = EXCLUDED.status,
			      started_at = EXCLUDED.started_at,
			      expires_at = EXCLUDED.expires_at,
			      updated_at = EXCLUDED.updated_at`
	_, err := s.DB.ExecContext(ctx, query,
		sub.UserUID, sub.Plan, sub.BillingCycle, sub.Status,
		sub.StartedAt, sub.ExpiresAt, sub.UpdatedAt)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// GetSubscriptionByUserUID returns the subscription row for a user. The
// found flag is false when the user never completed a payment.
func (s *Storage) GetSubscriptionByUserUID(ctx context.Context, userUID string) (*models.Subscription, bool, error) {
	const op = "storage.GetSubscriptionByUserUID"
	select {
	case <-ctx.Done():
		return nil, false, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `SELECT user_uid, plan, billing_cycle, status, started_at, expires_at, updated_at
			  FROM subscriptions WHERE user_uid = $1`
	var sub models.Subscription
	var expiresAt sql.NullTime
	err := s.DB.QueryRowContext(ctx, query, userUID).Scan(&sub.UserUID, &sub.Plan,
		&sub.BillingCycle, &sub.Status, &sub.StartedAt, &expiresAt, &sub.UpdatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("%s: %w", op, err)
	}
	if expiresAt.Valid {
		sub.ExpiresAt = &expiresAt.Time
	}
	return &sub, true, nil
}

// CountSubscriptions returns the number of subscription rows for a user.
// Used in tests to assert that repeated capture events never create a
// second row.
func (s *Storage) CountSubscriptions(ctx context.Context, userUID string) (int, error) {
	const op = "storage.CountSubscriptions"
	select {
	case <-ctx.Done():
		return 0, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	var count int
	err := s.DB.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM subscriptions WHERE user_uid = $1`, userUID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	return count, nil
}

// ===== USER METHODS =====

// RegisterUser saves a new user and returns the generated UID.
func (s *Storage) RegisterUser(ctx context.Context, user models.User) (string, error) {
	const op = "storage.RegisterUser"
	select {
	case <-ctx.Done():
		return "", fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	var newUID string
	query := `INSERT INTO users (email, username, password_hash, role)
			  VALUES ($1, $2, $3, $4)
			  RETURNING uid`
	if err := s.DB.QueryRowContext(ctx, query,
		user.Email, user.Username, user.PasswordHash, user.Role).Scan(&newUID); err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}
	return newUID, nil
}

// GetUserByUsername returns a user by login name.
func (s *Storage) GetUserByUsername(ctx context.Context, username string) (*models.User, error) {
	const op = "storage.GetUserByUsername"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `SELECT uid, email, username, password_hash, role, created_at
			  FROM users WHERE username = $1`
	u := &models.User{}
	if err := s.DB.QueryRowContext(ctx, query, username).Scan(&u.UID, &u.Email,
		&u.Username, &u.PasswordHash, &u.Role, &u.CreatedAt); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return u, nil
}
