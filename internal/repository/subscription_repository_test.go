package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/pashagolub/pgxmock/v3"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Dhoini/fitness-billing/internal/domain"
	"github.com/Dhoini/fitness-billing/pkg/logger"
)

var subscriptionRowColumns = []string{
	"id", "user_id", "plan_id", "subscription_status", "razorpay_subscription_id",
	"current_billing_cycle_start", "current_billing_cycle_end", "auto_renewal_enabled",
	"cancelled_at", "created_at", "updated_at",
}

func newMockRepo(t *testing.T) (pgxmock.PgxPoolIface, *PostgresSubscriptionRepository) {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(mock.Close)
	return mock, NewPostgresSubscriptionRepository(mock, logger.NewNop())
}

func pendingRow(created time.Time) *pgxmock.Rows {
	ref := "plink_123"
	return pgxmock.NewRows(subscriptionRowColumns).AddRow(
		"sub-1", "user-1", "premium_monthly", "pending", &ref,
		(*time.Time)(nil), (*time.Time)(nil), true,
		(*time.Time)(nil), created, created,
	)
}

func TestGetByProviderReference_Found(t *testing.T) {
	mock, repo := newMockRepo(t)
	created := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	mock.ExpectQuery(`(?s)SELECT .*\s+FROM user_subscriptions\s+WHERE razorpay_subscription_id = \$1`).
		WithArgs("plink_123").
		WillReturnRows(pendingRow(created))

	sub, err := repo.GetByProviderReference(context.Background(), "plink_123")
	require.NoError(t, err)
	assert.Equal(t, "sub-1", sub.ID)
	assert.Equal(t, "user-1", sub.UserID)
	assert.Equal(t, domain.SubscriptionStatusPending, sub.Status)
	assert.Equal(t, "plink_123", sub.ProviderReference)
	assert.Nil(t, sub.CycleEnd)
	assert.Equal(t, created, sub.CreatedAt)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetByProviderReference_NotFound(t *testing.T) {
	mock, repo := newMockRepo(t)

	mock.ExpectQuery(`(?s)SELECT .*\s+FROM user_subscriptions`).
		WithArgs("plink_missing").
		WillReturnRows(pgxmock.NewRows(subscriptionRowColumns))

	sub, err := repo.GetByProviderReference(context.Background(), "plink_missing")
	assert.Nil(t, sub)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetByIDForUser_QueryError(t *testing.T) {
	mock, repo := newMockRepo(t)

	mock.ExpectQuery(`(?s)SELECT .*\s+WHERE id = \$1 AND user_id = \$2`).
		WithArgs("sub-1", "user-1").
		WillReturnError(errors.New("connection reset"))

	_, err := repo.GetByIDForUser(context.Background(), "sub-1", "user-1")
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func testActivation(now time.Time) domain.Activation {
	return domain.Activation{
		SubscriptionID: "sub-1",
		UserID:         "user-1",
		Cycle:          domain.NewBillingCycle(now, 30*24*time.Hour),
		At:             now,
		Transaction: domain.PaymentTransaction{
			ID:                "txn-1",
			UserID:            "user-1",
			SubscriptionID:    "sub-1",
			ProviderPaymentID: "pay_1",
			ProviderOrderID:   "plink_123",
			Amount:            decimal.NewFromInt(10),
			Currency:          "INR",
			Status:            domain.PaymentStatusCaptured,
			TransactionDate:   now,
		},
	}
}

func TestActivate_Success(t *testing.T) {
	mock, repo := newMockRepo(t)
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	a := testActivation(now)

	mock.ExpectBegin()
	mock.ExpectExec(`(?s)UPDATE user_subscriptions\s+SET subscription_status = 'active'.*subscription_status = 'pending'`).
		WithArgs("sub-1", a.Cycle.Start, a.Cycle.End, now).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	mock.ExpectExec(`INSERT INTO payment_transactions`).
		WithArgs("txn-1", "user-1", "sub-1", "pay_1", "plink_123", pgxmock.AnyArg(), "INR", "captured", now).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectCommit()

	require.NoError(t, repo.Activate(context.Background(), a))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestActivate_NotPendingRollsBack(t *testing.T) {
	mock, repo := newMockRepo(t)
	now := time.Now().UTC()

	mock.ExpectBegin()
	mock.ExpectExec(`(?s)UPDATE user_subscriptions`).
		WithArgs("sub-1", pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))
	mock.ExpectRollback()

	err := repo.Activate(context.Background(), testActivation(now))
	assert.ErrorIs(t, err, ErrStatusConflict)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestActivate_InsertFailureRollsBack(t *testing.T) {
	mock, repo := newMockRepo(t)
	now := time.Now().UTC()

	mock.ExpectBegin()
	mock.ExpectExec(`(?s)UPDATE user_subscriptions`).
		WithArgs("sub-1", pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	mock.ExpectExec(`INSERT INTO payment_transactions`).
		WithArgs(pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(),
			pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnError(errors.New("duplicate key"))
	mock.ExpectRollback()

	err := repo.Activate(context.Background(), testActivation(now))
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrStatusConflict)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCancel(t *testing.T) {
	now := time.Date(2026, 3, 5, 8, 0, 0, 0, time.UTC)
	c := domain.Cancellation{SubscriptionID: "sub-1", UserID: "user-1", At: now}

	t.Run("active subscription", func(t *testing.T) {
		mock, repo := newMockRepo(t)
		mock.ExpectExec(`(?s)SET subscription_status = 'cancelled'.*auto_renewal_enabled = false.*subscription_status = 'active'`).
			WithArgs("sub-1", "user-1", now).
			WillReturnResult(pgxmock.NewResult("UPDATE", 1))

		require.NoError(t, repo.Cancel(context.Background(), c))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("no longer active", func(t *testing.T) {
		mock, repo := newMockRepo(t)
		mock.ExpectExec(`(?s)SET subscription_status = 'cancelled'`).
			WithArgs("sub-1", "user-1", now).
			WillReturnResult(pgxmock.NewResult("UPDATE", 0))

		assert.ErrorIs(t, repo.Cancel(context.Background(), c), ErrStatusConflict)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}
