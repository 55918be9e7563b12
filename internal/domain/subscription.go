package domain

import (
	"time"
)

// SubscriptionStatus статус подписки
type SubscriptionStatus string

const (
	SubscriptionStatusPending   SubscriptionStatus = "pending"
	SubscriptionStatusActive    SubscriptionStatus = "active"
	SubscriptionStatusCancelled SubscriptionStatus = "cancelled"
)

// Valid reports whether s is one of the known statuses.
func (s SubscriptionStatus) Valid() bool {
	switch s {
	case SubscriptionStatusPending, SubscriptionStatusActive, SubscriptionStatusCancelled:
		return true
	}
	return false
}

// CanTransitionTo reports whether the lifecycle allows moving from s to next.
// pending -> active -> cancelled; cancelled is terminal.
func (s SubscriptionStatus) CanTransitionTo(next SubscriptionStatus) bool {
	switch s {
	case SubscriptionStatusPending:
		return next == SubscriptionStatusActive
	case SubscriptionStatusActive:
		return next == SubscriptionStatusCancelled
	}
	return false
}

// Subscription представляет запись о подписке пользователя
type Subscription struct {
	ID                 string             `json:"id"`
	UserID             string             `json:"user_id"`
	PlanID             string             `json:"plan_id"`
	Status             SubscriptionStatus `json:"subscription_status"`
	ProviderReference  string             `json:"razorpay_subscription_id,omitempty"` // payment link id у провайдера
	CycleStart         *time.Time         `json:"current_billing_cycle_start,omitempty"`
	CycleEnd           *time.Time         `json:"current_billing_cycle_end,omitempty"`
	AutoRenewalEnabled bool               `json:"auto_renewal_enabled"`
	CancelledAt        *time.Time         `json:"cancelled_at,omitempty"`
	CreatedAt          time.Time          `json:"created_at"`
	UpdatedAt          time.Time          `json:"updated_at"`
}

// HasProviderReference reports whether recurring billing exists upstream.
func (s *Subscription) HasProviderReference() bool {
	return s.ProviderReference != ""
}

// ActiveAt reports whether the subscription is active with a cycle covering t.
func (s *Subscription) ActiveAt(t time.Time) bool {
	if s.Status != SubscriptionStatusActive || s.CycleEnd == nil {
		return false
	}
	return t.Before(*s.CycleEnd)
}

// BillingCycle is the half-open interval [Start, End).
type BillingCycle struct {
	Start time.Time
	End   time.Time
}

// NewBillingCycle returns the cycle starting at start and lasting length.
func NewBillingCycle(start time.Time, length time.Duration) BillingCycle {
	return BillingCycle{Start: start, End: start.Add(length)}
}

// Activation is the pending -> active mutation together with the transaction it records.
type Activation struct {
	SubscriptionID string
	UserID         string
	Cycle          BillingCycle
	Transaction    PaymentTransaction
	At             time.Time
}

// Cancellation is the active -> cancelled mutation.
type Cancellation struct {
	SubscriptionID string
	UserID         string
	At             time.Time
}
