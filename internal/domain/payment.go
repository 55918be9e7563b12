package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// PaymentStatus статус платежа
type PaymentStatus string

const (
	PaymentStatusCaptured PaymentStatus = "captured"
)

// PaymentLinkStatusPaid is the provider's sentinel for a paid payment link.
const PaymentLinkStatusPaid = "paid"

// PaymentTransaction представляет запись о платеже. Создается один раз на активацию.
type PaymentTransaction struct {
	ID                string          `json:"id"`
	UserID            string          `json:"user_id"`
	SubscriptionID    string          `json:"subscription_id"`
	ProviderPaymentID string          `json:"razorpay_payment_id"`
	ProviderOrderID   string          `json:"razorpay_order_id"`
	Amount            decimal.Decimal `json:"amount_paid"`
	Currency          string          `json:"currency"`
	Status            PaymentStatus   `json:"payment_status"`
	TransactionDate   time.Time       `json:"transaction_date"`
}

// PaymentCallback is the untrusted query string of the provider redirect.
type PaymentCallback struct {
	PaymentLinkID     string
	PaymentID         string
	PaymentLinkStatus string
}

// ReportedPaid is the fast-path gate: a link id is present and the caller claims it is paid.
// It never replaces verification with the provider.
func (c PaymentCallback) ReportedPaid() bool {
	return c.PaymentLinkID != "" && c.PaymentLinkStatus == PaymentLinkStatusPaid
}

// PaymentLink is the provider's authoritative view of a payment link.
type PaymentLink struct {
	ID       string
	Status   string
	Amount   int64 // minor units
	Currency string
}

// Paid reports whether the provider considers the link paid.
func (l PaymentLink) Paid() bool {
	return l.Status == PaymentLinkStatusPaid
}

// NormalizeAmount converts a provider amount in minor units into the display unit
// by dividing with the configured divisor.
func NormalizeAmount(minorUnits int64, divisor int64) decimal.Decimal {
	if divisor <= 0 {
		return decimal.NewFromInt(minorUnits)
	}
	return decimal.NewFromInt(minorUnits).Div(decimal.NewFromInt(divisor))
}
