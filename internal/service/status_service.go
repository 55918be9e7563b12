package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/Dhoini/fitness-billing/internal/domain"
	"github.com/Dhoini/fitness-billing/internal/repository"
	"github.com/Dhoini/fitness-billing/pkg/logger"
)

// StatusService путь чтения статуса подписки для клиента
type StatusService interface {
	Current(ctx context.Context, userID string) (*domain.Subscription, error)
}

type statusService struct {
	repo repository.SubscriptionRepository
	log  *logger.Logger
}

// NewStatusService создает сервис чтения статуса
func NewStatusService(repo repository.SubscriptionRepository, log *logger.Logger) StatusService {
	return &statusService{repo: repo, log: log}
}

// Current возвращает последнюю подписку пользователя
func (s *statusService) Current(ctx context.Context, userID string) (*domain.Subscription, error) {
	if userID == "" {
		return nil, domain.ErrUnauthenticated
	}

	s.log.Debug("Getting current subscription for user: %s", userID)

	sub, err := s.repo.GetCurrentByUser(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, domain.ErrSubscriptionNotFound
		}
		return nil, fmt.Errorf("failed to get current subscription: %w", err)
	}
	return sub, nil
}
