package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/Dhoini/fitness-billing/internal/domain"
	"github.com/Dhoini/fitness-billing/pkg/logger"
)

const (
	// Префикс ключа текущей подписки пользователя
	currentSubscriptionKeyPrefix = "current_subscription:"

	defaultCacheTTL = 5 * time.Minute
)

// SubscriptionCache кеш пути чтения статуса подписки.
// GetCurrent возвращает (nil, nil) при промахе.
type SubscriptionCache interface {
	GetCurrent(ctx context.Context, userID string) (*domain.Subscription, error)
	SetCurrent(ctx context.Context, sub *domain.Subscription) error
	InvalidateUser(ctx context.Context, userID string) error
}

// RedisCacheRepository реализует кеширование подписок с использованием Redis
type RedisCacheRepository struct {
	client *redis.Client
	ttl    time.Duration
	log    *logger.Logger
}

// NewRedisCacheRepository создает новый экземпляр Redis репозитория
func NewRedisCacheRepository(addr, password string, db int, ttl time.Duration, log *logger.Logger) (*RedisCacheRepository, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	// Проверяем соединение с Redis
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		log.Errorw("Failed to connect to Redis", "error", err)
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	if ttl <= 0 {
		ttl = defaultCacheTTL
	}

	log.Infow("Connected to Redis successfully", "addr", addr)
	return &RedisCacheRepository{
		client: client,
		ttl:    ttl,
		log:    log,
	}, nil
}

// Close закрывает соединение с Redis
func (r *RedisCacheRepository) Close() error {
	return r.client.Close()
}

// GetCurrent получает текущую подписку пользователя из кеша
func (r *RedisCacheRepository) GetCurrent(ctx context.Context, userID string) (*domain.Subscription, error) {
	data, err := r.client.Get(ctx, currentSubscriptionKey(userID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			r.log.Debugw("Current subscription not found in cache", "userID", userID)
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get subscription from cache: %w", err)
	}

	var sub domain.Subscription
	if err := json.Unmarshal(data, &sub); err != nil {
		return nil, fmt.Errorf("failed to unmarshal cached subscription: %w", err)
	}
	return &sub, nil
}

// SetCurrent кеширует текущую подписку пользователя
func (r *RedisCacheRepository) SetCurrent(ctx context.Context, sub *domain.Subscription) error {
	data, err := json.Marshal(sub)
	if err != nil {
		return fmt.Errorf("failed to marshal subscription: %w", err)
	}

	if err := r.client.Set(ctx, currentSubscriptionKey(sub.UserID), data, r.ttl).Err(); err != nil {
		return fmt.Errorf("failed to cache subscription: %w", err)
	}
	return nil
}

// InvalidateUser удаляет кеш подписки пользователя
func (r *RedisCacheRepository) InvalidateUser(ctx context.Context, userID string) error {
	if err := r.client.Del(ctx, currentSubscriptionKey(userID)).Err(); err != nil {
		return fmt.Errorf("failed to invalidate subscription cache: %w", err)
	}
	return nil
}

func currentSubscriptionKey(userID string) string {
	return currentSubscriptionKeyPrefix + userID
}
