package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/Dhoini/fitness-billing/internal/domain"
	"github.com/Dhoini/fitness-billing/internal/metrics"
	"github.com/Dhoini/fitness-billing/internal/repository"
	"github.com/Dhoini/fitness-billing/pkg/logger"
)

// ErrUpdateFailed локальная запись не обновлена после отмены у провайдера
var ErrUpdateFailed = errors.New("failed to update subscription")

// CancellationService отменяет подписку пользователя
type CancellationService interface {
	// Cancel проверяет владельца и статус, отменяет списание у провайдера и
	// переводит запись в cancelled. Ошибки: ErrUnauthenticated, ErrMissingInput,
	// ErrSubscriptionNotFound, ErrInvalidState, ErrGatewayError или ошибка хранилища.
	Cancel(ctx context.Context, userID, subscriptionID string) (*domain.Subscription, error)
}

type cancellationService struct {
	repo      repository.SubscriptionRepository
	gateway   PaymentGateway
	publisher EventPublisher
	metrics   metrics.BillingMetrics
	log       *logger.Logger
	now       func() time.Time
}

// NewCancellationService создает сервис отмены подписок
func NewCancellationService(
	repo repository.SubscriptionRepository,
	gateway PaymentGateway,
	publisher EventPublisher,
	m metrics.BillingMetrics,
	log *logger.Logger,
) CancellationService {
	if m == nil {
		m = metrics.Nop{}
	}
	return &cancellationService{
		repo:      repo,
		gateway:   gateway,
		publisher: publisher,
		metrics:   m,
		log:       log,
		now:       time.Now,
	}
}

func (s *cancellationService) Cancel(ctx context.Context, userID, subscriptionID string) (*domain.Subscription, error) {
	if userID == "" {
		return nil, domain.ErrUnauthenticated
	}
	if subscriptionID == "" {
		return nil, fmt.Errorf("%w: subscription_id", domain.ErrMissingInput)
	}

	// id не в формате uuid не может существовать в таблице
	if _, err := uuid.Parse(subscriptionID); err != nil {
		s.log.Warn("Invalid UUID format for subscription ID: %s", subscriptionID)
		return nil, domain.ErrSubscriptionNotFound
	}

	// Владелец входит в условие поиска: чужая подписка неотличима от несуществующей
	sub, err := s.repo.GetByIDForUser(ctx, subscriptionID, userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, domain.ErrSubscriptionNotFound
		}
		return nil, fmt.Errorf("failed to load subscription: %w", err)
	}

	if !sub.Status.CanTransitionTo(domain.SubscriptionStatusCancelled) {
		return nil, &domain.StateError{SubscriptionID: sub.ID, Current: sub.Status, Wanted: domain.SubscriptionStatusCancelled}
	}

	// С этого момента отмена запроса клиентом не должна разводить провайдера и запись
	ctx = context.WithoutCancel(ctx)

	if sub.HasProviderReference() {
		started := time.Now()
		err := s.gateway.CancelSubscription(ctx, sub.ProviderReference)
		observeGateway(s.metrics, gatewayOpCancel, started, err)
		if err != nil {
			if !errors.Is(err, domain.ErrGatewayError) {
				err = domain.NewExternalServiceError("payment gateway", "cancel subscription", domain.ErrGatewayError, err)
			}
			return nil, err
		}
	} else {
		s.log.Debugw("Subscription has no provider reference, skipping gateway cancel", "subscriptionID", sub.ID)
	}

	now := s.now().UTC()
	err = s.repo.Cancel(ctx, domain.Cancellation{SubscriptionID: sub.ID, UserID: userID, At: now})
	if err != nil {
		if errors.Is(err, repository.ErrStatusConflict) {
			return nil, &domain.StateError{SubscriptionID: sub.ID, Current: sub.Status, Wanted: domain.SubscriptionStatusCancelled}
		}
		// Провайдер уже отменил списание, локальная запись не обновлена
		s.log.Errorw("Subscription cancelled upstream but local update failed",
			"error", err,
			"subscriptionID", sub.ID,
			"providerReference", sub.ProviderReference,
		)
		return nil, fmt.Errorf("%w: %w", ErrUpdateFailed, err)
	}

	sub.Status = domain.SubscriptionStatusCancelled
	sub.CancelledAt = &now
	sub.AutoRenewalEnabled = false
	sub.UpdatedAt = now

	s.log.Infow("Subscription cancelled", "subscriptionID", sub.ID, "userID", userID)

	publishEvent(ctx, s.publisher, s.log, domain.SubscriptionEvent{
		Type:           domain.SubscriptionEventCancelled,
		SubscriptionID: sub.ID,
		UserID:         userID,
		Status:         sub.Status,
		CycleEnd:       sub.CycleEnd,
		OccurredAt:     now,
	})

	return sub, nil
}
