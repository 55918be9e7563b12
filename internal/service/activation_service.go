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

// ActivationOutcome результат сверки callback
type ActivationOutcome string

const (
	// ActivationPending провайдер еще не подтвердил оплату, состояние не менялось
	ActivationPending ActivationOutcome = "pending"
	// ActivationActivated подписка переведена в active, транзакция записана
	ActivationActivated ActivationOutcome = "activated"
	// ActivationAlreadyActive повторный callback для уже активной подписки
	ActivationAlreadyActive ActivationOutcome = "already_active"
)

// ActivationResult результат успешной обработки callback
type ActivationResult struct {
	Outcome      ActivationOutcome
	Subscription *domain.Subscription
	Transaction  *domain.PaymentTransaction
}

// Succeeded сообщает, надо ли показывать страницу успешной оплаты
func (r *ActivationResult) Succeeded() bool {
	return r.Outcome == ActivationActivated || r.Outcome == ActivationAlreadyActive
}

// BillingSettings параметры биллинга, приходящие из конфигурации
type BillingSettings struct {
	CycleLength   time.Duration
	AmountDivisor int64
	Currency      string
}

// ActivationService сверяет callback провайдера и активирует подписку
type ActivationService interface {
	// Reconcile обрабатывает callback. Ошибки: ErrPaymentNotPaid, ErrGatewayUnavailable,
	// ErrSubscriptionNotFound, ErrInvalidState или ошибка хранилища.
	Reconcile(ctx context.Context, callback domain.PaymentCallback) (*ActivationResult, error)
}

type activationService struct {
	repo      repository.SubscriptionRepository
	gateway   PaymentGateway
	publisher EventPublisher
	metrics   metrics.BillingMetrics
	settings  BillingSettings
	log       *logger.Logger
	now       func() time.Time
	newID     func() string
}

// NewActivationService создает сервис активации подписок
func NewActivationService(
	repo repository.SubscriptionRepository,
	gateway PaymentGateway,
	publisher EventPublisher,
	m metrics.BillingMetrics,
	settings BillingSettings,
	log *logger.Logger,
) ActivationService {
	if m == nil {
		m = metrics.Nop{}
	}
	return &activationService{
		repo:      repo,
		gateway:   gateway,
		publisher: publisher,
		metrics:   m,
		settings:  settings,
		log:       log,
		now:       time.Now,
		newID:     func() string { return uuid.NewString() },
	}
}

func (s *activationService) Reconcile(ctx context.Context, cb domain.PaymentCallback) (*ActivationResult, error) {
	// Статус из query строки только фильтр, решение принимается по ответу провайдера
	if !cb.ReportedPaid() {
		s.log.Infow("Callback rejected before verification",
			"linkID", cb.PaymentLinkID,
			"reportedStatus", cb.PaymentLinkStatus,
		)
		return nil, domain.ErrPaymentNotPaid
	}

	// Провайдер уже принял оплату: запрос браузера может оборваться, активация нет
	ctx = context.WithoutCancel(ctx)

	started := time.Now()
	link, err := s.gateway.FetchPaymentLink(ctx, cb.PaymentLinkID)
	observeGateway(s.metrics, gatewayOpFetchLink, started, err)
	if err != nil {
		if !errors.Is(err, domain.ErrGatewayUnavailable) {
			err = domain.NewExternalServiceError("payment gateway", "fetch payment link", domain.ErrGatewayUnavailable, err)
		}
		return nil, err
	}

	if !link.Paid() {
		s.log.Infow("Payment link is not paid yet", "linkID", cb.PaymentLinkID, "status", link.Status)
		return &ActivationResult{Outcome: ActivationPending}, nil
	}

	sub, err := s.repo.GetByProviderReference(ctx, cb.PaymentLinkID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, fmt.Errorf("%w: payment link %s", domain.ErrSubscriptionNotFound, cb.PaymentLinkID)
		}
		return nil, fmt.Errorf("failed to load subscription: %w", err)
	}

	switch sub.Status {
	case domain.SubscriptionStatusActive:
		s.log.Infow("Subscription already active, skipping activation",
			"subscriptionID", sub.ID,
			"linkID", cb.PaymentLinkID,
		)
		return &ActivationResult{Outcome: ActivationAlreadyActive, Subscription: sub}, nil
	case domain.SubscriptionStatusPending:
	default:
		return nil, &domain.StateError{SubscriptionID: sub.ID, Current: sub.Status, Wanted: domain.SubscriptionStatusActive}
	}

	now := s.now().UTC()
	activation := domain.Activation{
		SubscriptionID: sub.ID,
		UserID:         sub.UserID,
		Cycle:          domain.NewBillingCycle(now, s.settings.CycleLength),
		At:             now,
		Transaction: domain.PaymentTransaction{
			ID:                s.newID(),
			UserID:            sub.UserID,
			SubscriptionID:    sub.ID,
			ProviderPaymentID: cb.PaymentID,
			ProviderOrderID:   cb.PaymentLinkID,
			Amount:            domain.NormalizeAmount(link.Amount, s.settings.AmountDivisor),
			Currency:          s.settings.Currency,
			Status:            domain.PaymentStatusCaptured,
			TransactionDate:   now,
		},
	}

	if err := s.repo.Activate(ctx, activation); err != nil {
		if errors.Is(err, repository.ErrStatusConflict) {
			return s.resolveConflict(ctx, sub)
		}
		return nil, fmt.Errorf("failed to activate subscription: %w", err)
	}

	sub.Status = domain.SubscriptionStatusActive
	sub.CycleStart = &activation.Cycle.Start
	sub.CycleEnd = &activation.Cycle.End
	sub.UpdatedAt = now

	s.log.Infow("Subscription activated",
		"subscriptionID", sub.ID,
		"userID", sub.UserID,
		"transactionID", activation.Transaction.ID,
		"amount", activation.Transaction.Amount.String(),
		"currency", activation.Transaction.Currency,
	)

	amount, _ := activation.Transaction.Amount.Float64()
	s.metrics.ObserveActivationAmount(amount, activation.Transaction.Currency)

	publishEvent(ctx, s.publisher, s.log, domain.SubscriptionEvent{
		Type:           domain.SubscriptionEventActivated,
		SubscriptionID: sub.ID,
		UserID:         sub.UserID,
		Status:         sub.Status,
		CycleEnd:       sub.CycleEnd,
		TransactionID:  activation.Transaction.ID,
		Amount:         activation.Transaction.Amount.String(),
		Currency:       activation.Transaction.Currency,
		OccurredAt:     now,
	})

	txn := activation.Transaction
	return &ActivationResult{Outcome: ActivationActivated, Subscription: sub, Transaction: &txn}, nil
}

// resolveConflict вызывается, когда условное обновление не нашло pending запись:
// параллельный callback уже активировал подписку, либо ее отменили.
func (s *activationService) resolveConflict(ctx context.Context, sub *domain.Subscription) (*ActivationResult, error) {
	current, err := s.repo.GetByProviderReference(ctx, sub.ProviderReference)
	if err != nil {
		return nil, fmt.Errorf("failed to reload subscription after conflict: %w", err)
	}
	if current.Status == domain.SubscriptionStatusActive {
		s.log.Infow("Subscription activated concurrently", "subscriptionID", current.ID)
		return &ActivationResult{Outcome: ActivationAlreadyActive, Subscription: current}, nil
	}
	return nil, &domain.StateError{SubscriptionID: current.ID, Current: current.Status, Wanted: domain.SubscriptionStatusActive}
}
