package storage

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/preplyhq/entitlement-service/internal/migrations"
	"github.com/preplyhq/entitlement-service/internal/models"
)

func getTestStorage(t *testing.T) (*Storage, func()) {
	ctx := context.Background()

	pgContainer, err := postgres.Run(ctx,
		"postgres:15-alpine",
		postgres.WithDatabase("testdb"),
		postgres.WithUsername("user"),
		postgres.WithPassword("password"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(5*time.Second),
		),
	)
	require.NoError(t, err)

	dsn, err := pgContainer.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	st, err := New(dsn)
	require.NoError(t, err)

	migrationsPath, err := filepath.Abs("../../migrations")
	require.NoError(t, err)
	require.NoError(t, migrations.Run(st.DB, migrationsPath))

	cleanup := func() {
		st.DB.Close()
		if err := pgContainer.Terminate(ctx); err != nil {
			t.Logf("failed to terminate container: %s", err)
		}
	}

	return st, cleanup
}

func registerTestUser(t *testing.T, st *Storage, username string) string {
	uid, err := st.RegisterUser(context.Background(), models.User{
		Email:        username + "@example.com",
		Username:     username,
		PasswordHash: "x",
		Role:         "user",
	})
	require.NoError(t, err)
	return uid
}

func TestOrderLifecycle(t *testing.T) {
	st, cleanup := getTestStorage(t)
	defer cleanup()
	ctx := context.Background()

	uid := registerTestUser(t, st, "alice")

	order := models.Order{
		OrderID:      "order_test_1",
		UserUID:      uid,
		Amount:       9900,
		Currency:     "INR",
		BillingCycle: "monthly",
		Receipt:      "preply_" + uid + "_abc123",
	}
	require.NoError(t, st.SaveOrder(ctx, order))

	got, found, err := st.GetOrder(ctx, "order_test_1")
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, uid, got.UserUID)
	assert.Equal(t, int64(9900), got.Amount)

	rec, found, err := st.GetPaymentRecord(ctx, "order_test_1")
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, models.PaymentStatusCreated, rec.Status)
	assert.Nil(t, rec.PaymentID)

	_, found, err = st.GetOrder(ctx, "order_missing")
	require.NoError(t, err)
	assert.False(t, found)
}

func TestMarkPaymentCaptured_KeepsSignatureOnWebhookRetry(t *testing.T) {
	st, cleanup := getTestStorage(t)
	defer cleanup()
	ctx := context.Background()

	uid := registerTestUser(t, st, "bob")
	require.NoError(t, st.SaveOrder(ctx, models.Order{
		OrderID: "order_test_2", UserUID: uid, Amount: 39900,
		Currency: "INR", BillingCycle: "half_yearly", Receipt: "r",
	}))

	// Client verify path stores the signature.
	require.NoError(t, st.MarkPaymentCaptured(ctx, "order_test_2", "pay_1", "sig_abc"))

	// Webhook redelivery carries no signature and must not erase it.
	require.NoError(t, st.MarkPaymentCaptured(ctx, "order_test_2", "pay_1", ""))

	rec, found, err := st.GetPaymentRecord(ctx, "order_test_2")
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, models.PaymentStatusCaptured, rec.Status)
	require.NotNil(t, rec.PaymentID)
	assert.Equal(t, "pay_1", *rec.PaymentID)
	require.NotNil(t, rec.Signature)
	assert.Equal(t, "sig_abc", *rec.Signature)
}

func TestMarkPaymentFailed(t *testing.T) {
	st, cleanup := getTestStorage(t)
	defer cleanup()
	ctx := context.Background()

	uid := registerTestUser(t, st, "carol")
	require.NoError(t, st.SaveOrder(ctx, models.Order{
		OrderID: "order_test_3", UserUID: uid, Amount: 9900,
		Currency: "INR", BillingCycle: "monthly", Receipt: "r",
	}))

	require.NoError(t, st.MarkPaymentFailed(ctx, "order_test_3", "pay_failed_1"))

	rec, found, err := st.GetPaymentRecord(ctx, "order_test_3")
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, models.PaymentStatusFailed, rec.Status)
	require.NotNil(t, rec.PaymentID)
	assert.Equal(t, "pay_failed_1", *rec.PaymentID)
}

func TestUpsertSubscription_OneRowPerUser(t *testing.T) {
	st, cleanup := getTestStorage(t)
	defer cleanup()
	ctx := context.Background()

	uid := registerTestUser(t, st, "dave")

	now := time.Now().UTC().Truncate(time.Second)
	first := now.AddDate(0, 1, 0)
	sub := models.Subscription{
		UserUID:      uid,
		Plan:         models.PlanPro,
		BillingCycle: "monthly",
		Status:       models.SubscriptionStatusActive,
		StartedAt:    now,
		ExpiresAt:    &first,
		UpdatedAt:    now,
	}
	require.NoError(t, st.UpsertSubscription(ctx, sub))

	// Second upsert for the same user updates in place.
	renewed := now.AddDate(1, 0, 0)
	sub.BillingCycle = "yearly"
	sub.ExpiresAt = &renewed
	require.NoError(t, st.UpsertSubscription(ctx, sub))

	count, err := st.CountSubscriptions(ctx, uid)
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	got, found, err := st.GetSubscriptionByUserUID(ctx, uid)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, "yearly", got.BillingCycle)
	require.NotNil(t, got.ExpiresAt)
	assert.WithinDuration(t, renewed, *got.ExpiresAt, time.Second)
}

func TestGetSubscriptionByUserUID_Missing(t *testing.T) {
	st, cleanup := getTestStorage(t)
	defer cleanup()

	_, found, err := st.GetSubscriptionByUserUID(context.Background(), "00000000-0000-0000-0000-000000000000")
	require.NoError(t, err)
	assert.False(t, found)
}

func TestRegisterAndGetUser(t *testing.T) {
	st, cleanup := getTestStorage(t)
	defer cleanup()
	ctx := context.Background()

	uid := registerTestUser(t, st, "erin")
	require.NotEmpty(t, uid)

	u, err := st.GetUserByUsername(ctx, "erin")
	require.NoError(t, err)
	assert.Equal(t, uid, u.UID)
	assert.Equal(t, "erin@example.com", u.Email)
	assert.Equal(t, "user", u.Role)
}
