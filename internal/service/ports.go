package service

import (
	"context"
	"time"

	"github.com/Dhoini/fitness-billing/internal/domain"
	"github.com/Dhoini/fitness-billing/internal/metrics"
	"github.com/Dhoini/fitness-billing/pkg/logger"
)

// PaymentGateway внешний платежный провайдер
type PaymentGateway interface {
	// FetchPaymentLink возвращает авторитетный статус ссылки на оплату
	FetchPaymentLink(ctx context.Context, linkID string) (*domain.PaymentLink, error)
	// CancelSubscription отменяет регулярное списание в конце текущего цикла
	CancelSubscription(ctx context.Context, providerSubscriptionID string) error
}

// EventPublisher публикует события подписки. Реализация может отсутствовать.
type EventPublisher interface {
	PublishSubscriptionEvent(ctx context.Context, event domain.SubscriptionEvent) error
}

// Названия операций шлюза для метрик
const (
	gatewayOpFetchLink = "fetch_payment_link"
	gatewayOpCancel    = "cancel_subscription"
)

// publishEvent отправляет событие, ошибки только логируются
func publishEvent(ctx context.Context, publisher EventPublisher, log *logger.Logger, event domain.SubscriptionEvent) {
	if publisher == nil {
		return
	}
	if err := publisher.PublishSubscriptionEvent(ctx, event); err != nil {
		log.Warnw("Failed to publish subscription event",
			"error", err,
			"type", event.Type,
			"subscriptionID", event.SubscriptionID,
		)
	}
}

// observeGateway замеряет вызов шлюза
func observeGateway(m metrics.BillingMetrics, op string, started time.Time, err error) {
	m.ObserveGatewayCall(op, err == nil, time.Since(started))
}
