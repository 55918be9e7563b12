package repository

import (
	"context"

	"github.com/Dhoini/fitness-billing/internal/domain"
	"github.com/Dhoini/fitness-billing/pkg/logger"
)

// CachedSubscriptionRepository кеширует путь чтения текущей подписки.
// Поиски, предшествующие изменению статуса, всегда идут в хранилище.
type CachedSubscriptionRepository struct {
	repo  SubscriptionRepository
	cache SubscriptionCache
	log   *logger.Logger
}

// NewCachedSubscriptionRepository создает новый репозиторий с кешированием
func NewCachedSubscriptionRepository(repo SubscriptionRepository, cache SubscriptionCache, log *logger.Logger) *CachedSubscriptionRepository {
	return &CachedSubscriptionRepository{
		repo:  repo,
		cache: cache,
		log:   log,
	}
}

func (r *CachedSubscriptionRepository) GetByProviderReference(ctx context.Context, reference string) (*domain.Subscription, error) {
	return r.repo.GetByProviderReference(ctx, reference)
}

func (r *CachedSubscriptionRepository) GetByIDForUser(ctx context.Context, subscriptionID, userID string) (*domain.Subscription, error) {
	return r.repo.GetByIDForUser(ctx, subscriptionID, userID)
}

// GetCurrentByUser получает подписку сначала из кеша, потом из БД
func (r *CachedSubscriptionRepository) GetCurrentByUser(ctx context.Context, userID string) (*domain.Subscription, error) {
	cached, err := r.cache.GetCurrent(ctx, userID)
	if err != nil {
		// Продолжаем выполнение при ошибке кеша
		r.log.Warnw("Error getting subscription from cache", "error", err, "userID", userID)
	}
	if cached != nil {
		return cached, nil
	}

	sub, err := r.repo.GetCurrentByUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	// pending может стать active параллельно с этим чтением, и SetCurrent после
	// инвалидации оставил бы в кеше устаревшую запись
	if sub.Status == domain.SubscriptionStatusPending {
		return sub, nil
	}
	if err := r.cache.SetCurrent(ctx, sub); err != nil {
		r.log.Warnw("Failed to cache subscription after fetching", "error", err, "userID", userID)
	}
	return sub, nil
}

// Activate активирует подписку и инвалидирует кеш пользователя
func (r *CachedSubscriptionRepository) Activate(ctx context.Context, activation domain.Activation) error {
	if err := r.repo.Activate(ctx, activation); err != nil {
		return err
	}
	r.invalidate(ctx, activation.UserID)
	return nil
}

// Cancel отменяет подписку и инвалидирует кеш пользователя
func (r *CachedSubscriptionRepository) Cancel(ctx context.Context, cancellation domain.Cancellation) error {
	if err := r.repo.Cancel(ctx, cancellation); err != nil {
		return err
	}
	r.invalidate(ctx, cancellation.UserID)
	return nil
}

func (r *CachedSubscriptionRepository) invalidate(ctx context.Context, userID string) {
	if err := r.cache.InvalidateUser(ctx, userID); err != nil {
		r.log.Warnw("Failed to invalidate subscription cache", "error", err, "userID", userID)
	}
}
