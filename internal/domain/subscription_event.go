package domain

import (
	"time"
)

// SubscriptionEventType тип события подписки
type SubscriptionEventType string

const (
	SubscriptionEventActivated SubscriptionEventType = "subscription.activated"
	SubscriptionEventCancelled SubscriptionEventType = "subscription.cancelled"
)

// SubscriptionEvent публикуется после успешного изменения статуса подписки
type SubscriptionEvent struct {
	Type           SubscriptionEventType `json:"type"`
	SubscriptionID string                `json:"subscription_id"`
	UserID         string                `json:"user_id"`
	Status         SubscriptionStatus    `json:"status"`
	CycleEnd       *time.Time            `json:"current_billing_cycle_end,omitempty"`
	TransactionID  string                `json:"transaction_id,omitempty"`
	Amount         string                `json:"amount,omitempty"`
	Currency       string                `json:"currency,omitempty"`
	OccurredAt     time.Time             `json:"occurred_at"`
}
