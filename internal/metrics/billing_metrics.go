package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Исходы обработки callback
const (
	OutcomeActivated     = "activated"
	OutcomeAlreadyActive = "already_active"
	OutcomePending       = "pending"
	OutcomeFailed        = "failed"
	OutcomeNotFound      = "not_found"
	OutcomeError         = "error"
	OutcomeCancelled     = "cancelled"
	OutcomeRejected      = "rejected"
)

// BillingMetrics интерфейс для метрик биллинга
type BillingMetrics interface {
	IncCallback(outcome string)
	IncCancellation(outcome string)
	ObserveActivationAmount(amount float64, currency string)
	ObserveGatewayCall(operation string, success bool, duration time.Duration)
}

type billingMetrics struct {
	callbacks         *prometheus.CounterVec
	cancellations     *prometheus.CounterVec
	activationAmounts *prometheus.HistogramVec
	gatewayDuration   *prometheus.HistogramVec
}

// NewBillingMetrics регистрирует метрики биллинга в registry
func NewBillingMetrics(registry prometheus.Registerer) BillingMetrics {
	factory := promauto.With(registry)

	return &billingMetrics{
		callbacks: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "billing_payment_callbacks_total",
				Help: "The total number of payment callbacks by outcome",
			},
			[]string{"outcome"},
		),
		cancellations: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "billing_cancellations_total",
				Help: "The total number of cancellation requests by outcome",
			},
			[]string{"outcome"},
		),
		activationAmounts: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "billing_activation_amount",
				Help:    "Amounts recorded on subscription activation",
				Buckets: prometheus.ExponentialBuckets(1, 10, 5), // 1, 10, 100, 1000, 10000
			},
			[]string{"currency"},
		),
		gatewayDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "billing_gateway_request_duration_seconds",
				Help:    "Latency of payment gateway calls",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation", "result"},
		),
	}
}

// IncCallback увеличивает счетчик обработанных callback
func (m *billingMetrics) IncCallback(outcome string) {
	m.callbacks.WithLabelValues(outcome).Inc()
}

// IncCancellation увеличивает счетчик запросов на отмену
func (m *billingMetrics) IncCancellation(outcome string) {
	m.cancellations.WithLabelValues(outcome).Inc()
}

// ObserveActivationAmount записывает сумму активации
func (m *billingMetrics) ObserveActivationAmount(amount float64, currency string) {
	m.activationAmounts.WithLabelValues(currency).Observe(amount)
}

// ObserveGatewayCall записывает длительность вызова платежного шлюза
func (m *billingMetrics) ObserveGatewayCall(operation string, success bool, duration time.Duration) {
	result := "success"
	if !success {
		result = "error"
	}
	m.gatewayDuration.WithLabelValues(operation, result).Observe(duration.Seconds())
}

// Nop метрики, которые никуда не пишут
type Nop struct{}

func (Nop) IncCallback(string)                             {}
func (Nop) IncCancellation(string)                         {}
func (Nop) ObserveActivationAmount(float64, string)        {}
func (Nop) ObserveGatewayCall(string, bool, time.Duration) {}
