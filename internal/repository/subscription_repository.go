package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/Dhoini/fitness-billing/internal/domain"
	"github.com/Dhoini/fitness-billing/pkg/logger"
)

// SubscriptionRepository определяет методы для работы с хранилищем подписок.
type SubscriptionRepository interface {
	// GetByProviderReference возвращает подписку по идентификатору payment link провайдера.
	GetByProviderReference(ctx context.Context, reference string) (*domain.Subscription, error)

	// GetByIDForUser возвращает подписку по ID, только если она принадлежит пользователю.
	GetByIDForUser(ctx context.Context, subscriptionID, userID string) (*domain.Subscription, error)

	// GetCurrentByUser возвращает последнюю подписку пользователя.
	GetCurrentByUser(ctx context.Context, userID string) (*domain.Subscription, error)

	// Activate переводит pending -> active и добавляет запись о платеже в одной транзакции.
	// Возвращает ErrStatusConflict, если подписка уже не pending.
	Activate(ctx context.Context, activation domain.Activation) error

	// Cancel переводит active -> cancelled. Возвращает ErrStatusConflict, если подписка уже не active.
	Cancel(ctx context.Context, cancellation domain.Cancellation) error
}

// PgxPool is the subset of *pgxpool.Pool used by the repository.
type PgxPool interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Begin(ctx context.Context) (pgx.Tx, error)
	Ping(ctx context.Context) error
}

const subscriptionColumns = `id::text, user_id::text, plan_id, subscription_status, razorpay_subscription_id,
       current_billing_cycle_start, current_billing_cycle_end, auto_renewal_enabled,
       cancelled_at, created_at, updated_at`

const (
	getByProviderReferenceQuery = `SELECT ` + subscriptionColumns + `
FROM user_subscriptions
WHERE razorpay_subscription_id = $1`

	getByIDForUserQuery = `SELECT ` + subscriptionColumns + `
FROM user_subscriptions
WHERE id = $1 AND user_id = $2`

	getCurrentByUserQuery = `SELECT ` + subscriptionColumns + `
FROM user_subscriptions
WHERE user_id = $1
ORDER BY created_at DESC
LIMIT 1`

	activateSubscriptionQuery = `UPDATE user_subscriptions
SET subscription_status = 'active',
    current_billing_cycle_start = $2,
    current_billing_cycle_end = $3,
    updated_at = $4
WHERE id = $1 AND subscription_status = 'pending'`

	insertTransactionQuery = `INSERT INTO payment_transactions (
    id, user_id, subscription_id, razorpay_payment_id, razorpay_order_id,
    amount_paid, currency, payment_status, transaction_date
) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`

	cancelSubscriptionQuery = `UPDATE user_subscriptions
SET subscription_status = 'cancelled',
    cancelled_at = $3,
    auto_renewal_enabled = false,
    updated_at = $3
WHERE id = $1 AND user_id = $2 AND subscription_status = 'active'`
)

// PostgresSubscriptionRepository реализация репозитория подписок через PostgreSQL
type PostgresSubscriptionRepository struct {
	db  PgxPool
	log *logger.Logger
}

// NewPostgresSubscriptionRepository создает новый репозиторий подписок через PostgreSQL
func NewPostgresSubscriptionRepository(db PgxPool, log *logger.Logger) *PostgresSubscriptionRepository {
	return &PostgresSubscriptionRepository{
		db:  db,
		log: log,
	}
}

// Ping проверяет соединение с базой данных
func (r *PostgresSubscriptionRepository) Ping(ctx context.Context) error {
	return r.db.Ping(ctx)
}

// GetByProviderReference возвращает подписку по payment link ID
func (r *PostgresSubscriptionRepository) GetByProviderReference(ctx context.Context, reference string) (*domain.Subscription, error) {
	sub, err := scanSubscription(r.db.QueryRow(ctx, getByProviderReferenceQuery, reference))
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			r.log.Warnw("Subscription not found by provider reference", "reference", reference)
			return nil, err
		}
		r.log.Errorw("Failed to get subscription by provider reference", "error", err, "reference", reference)
		return nil, fmt.Errorf("repository: failed to get subscription by provider reference: %w", err)
	}
	return sub, nil
}

// GetByIDForUser возвращает подписку по ID и владельцу
func (r *PostgresSubscriptionRepository) GetByIDForUser(ctx context.Context, subscriptionID, userID string) (*domain.Subscription, error) {
	sub, err := scanSubscription(r.db.QueryRow(ctx, getByIDForUserQuery, subscriptionID, userID))
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			r.log.Warnw("Subscription not found for user", "subscriptionID", subscriptionID, "userID", userID)
			return nil, err
		}
		r.log.Errorw("Failed to get subscription by ID", "error", err, "subscriptionID", subscriptionID)
		return nil, fmt.Errorf("repository: failed to get subscription by ID: %w", err)
	}
	return sub, nil
}

// GetCurrentByUser возвращает самую свежую подписку пользователя
func (r *PostgresSubscriptionRepository) GetCurrentByUser(ctx context.Context, userID string) (*domain.Subscription, error) {
	sub, err := scanSubscription(r.db.QueryRow(ctx, getCurrentByUserQuery, userID))
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			r.log.Debugw("No subscriptions found for user", "userID", userID)
			return nil, err
		}
		r.log.Errorw("Failed to get current subscription", "error", err, "userID", userID)
		return nil, fmt.Errorf("repository: failed to get current subscription: %w", err)
	}
	return sub, nil
}

// Activate атомарно активирует подписку и сохраняет транзакцию платежа
func (r *PostgresSubscriptionRepository) Activate(ctx context.Context, a domain.Activation) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("repository: failed to begin transaction: %w", err)
	}

	tag, err := tx.Exec(ctx, activateSubscriptionQuery, a.SubscriptionID, a.Cycle.Start, a.Cycle.End, a.At)
	if err != nil {
		r.rollback(ctx, tx)
		r.log.Errorw("Failed to activate subscription", "error", err, "subscriptionID", a.SubscriptionID)
		return fmt.Errorf("repository: failed to activate subscription: %w", err)
	}
	if tag.RowsAffected() == 0 {
		r.rollback(ctx, tx)
		r.log.Warnw("Activation matched no pending subscription", "subscriptionID", a.SubscriptionID)
		return ErrStatusConflict
	}

	t := a.Transaction
	_, err = tx.Exec(ctx, insertTransactionQuery,
		t.ID, t.UserID, t.SubscriptionID, t.ProviderPaymentID, t.ProviderOrderID,
		t.Amount, t.Currency, string(t.Status), t.TransactionDate,
	)
	if err != nil {
		r.rollback(ctx, tx)
		r.log.Errorw("Failed to record payment transaction", "error", err, "subscriptionID", a.SubscriptionID)
		return fmt.Errorf("repository: failed to record payment transaction: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("repository: failed to commit activation: %w", err)
	}

	r.log.Debugw("Subscription activated", "subscriptionID", a.SubscriptionID, "transactionID", t.ID)
	return nil
}

// Cancel отменяет активную подписку пользователя
func (r *PostgresSubscriptionRepository) Cancel(ctx context.Context, c domain.Cancellation) error {
	tag, err := r.db.Exec(ctx, cancelSubscriptionQuery, c.SubscriptionID, c.UserID, c.At)
	if err != nil {
		r.log.Errorw("Failed to cancel subscription", "error", err, "subscriptionID", c.SubscriptionID)
		return fmt.Errorf("repository: failed to cancel subscription: %w", err)
	}
	if tag.RowsAffected() == 0 {
		r.log.Warnw("Cancellation matched no active subscription", "subscriptionID", c.SubscriptionID)
		return ErrStatusConflict
	}

	r.log.Debugw("Subscription cancelled", "subscriptionID", c.SubscriptionID)
	return nil
}

func (r *PostgresSubscriptionRepository) rollback(ctx context.Context, tx pgx.Tx) {
	if err := tx.Rollback(ctx); err != nil && !errors.Is(err, pgx.ErrTxClosed) {
		r.log.Errorw("Failed to rollback transaction", "error", err)
	}
}

func scanSubscription(row pgx.Row) (*domain.Subscription, error) {
	var (
		sub                            domain.Subscription
		status                         string
		reference                      *string
		cycleStart, cycleEnd, canceled *time.Time
		createdAt, updatedAt           time.Time
	)

	err := row.Scan(
		&sub.ID,
		&sub.UserID,
		&sub.PlanID,
		&status,
		&reference,
		&cycleStart,
		&cycleEnd,
		&sub.AutoRenewalEnabled,
		&canceled,
		&createdAt,
		&updatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	sub.Status = domain.SubscriptionStatus(status)
	if reference != nil {
		sub.ProviderReference = *reference
	}
	sub.CycleStart = cycleStart
	sub.CycleEnd = cycleEnd
	sub.CancelledAt = canceled
	sub.CreatedAt = createdAt
	sub.UpdatedAt = updatedAt

	return &sub, nil
}
