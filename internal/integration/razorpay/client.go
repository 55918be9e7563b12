package razorpay

import (
	"context"
	"errors"
	"fmt"
	"net/url"

	"github.com/razorpay/razorpay-go"

	"github.com/Dhoini/fitness-billing/internal/domain"
	"github.com/Dhoini/fitness-billing/pkg/logger"
)

const serviceName = "razorpay"

// errInvalidID id, который нельзя подставить в путь запроса
var errInvalidID = errors.New("invalid resource id")

// Config конфигурация для клиента Razorpay
type Config struct {
	KeyID     string
	KeySecret string
	BaseURL   string
}

// Client обертка над SDK Razorpay, возвращающая доменные типы
type Client struct {
	api *razorpay.Client
	log *logger.Logger
}

// NewClient создает новый клиент Razorpay
func NewClient(cfg Config, log *logger.Logger) *Client {
	api := razorpay.NewClient(cfg.KeyID, cfg.KeySecret)
	// Все ресурсы SDK делят один *requests.Request
	if cfg.BaseURL != "" {
		api.PaymentLink.Request.BaseURL = cfg.BaseURL
	}

	log.Infow("Razorpay client initialized", "baseURL", api.PaymentLink.Request.BaseURL)
	return &Client{
		api: api,
		log: log,
	}
}

// FetchPaymentLink получает авторитетный статус payment link. Один запрос, без повторов:
// любой сбой классифицируется как ErrGatewayUnavailable. Вызов не прерывается отменой
// контекста, время ограничено таймаутом HTTP клиента SDK.
func (c *Client) FetchPaymentLink(_ context.Context, linkID string) (*domain.PaymentLink, error) {
	if err := validateID(linkID); err != nil {
		c.log.Warnw("Refusing to fetch payment link", "error", err, "linkID", linkID)
		return nil, domain.NewExternalServiceError(serviceName, "fetch payment link", domain.ErrGatewayUnavailable, err)
	}

	body, err := c.api.PaymentLink.Fetch(linkID, nil, nil)
	if err != nil {
		c.log.Errorw("Failed to fetch payment link", "error", err, "linkID", linkID)
		return nil, domain.NewExternalServiceError(serviceName, "fetch payment link", domain.ErrGatewayUnavailable, err)
	}

	link := &domain.PaymentLink{
		ID:       stringField(body, "id"),
		Status:   stringField(body, "status"),
		Amount:   amountField(body, "amount"),
		Currency: stringField(body, "currency"),
	}
	if link.ID == "" {
		link.ID = linkID
	}

	c.log.Debugw("Payment link fetched", "linkID", link.ID, "status", link.Status, "amount", link.Amount)
	return link, nil
}

// CancelSubscription отменяет подписку у провайдера в конце текущего цикла.
// Как и FetchPaymentLink, не прерывается отменой контекста: результат провайдера
// должен дойти до локальной записи.
func (c *Client) CancelSubscription(_ context.Context, providerSubscriptionID string) error {
	if err := validateID(providerSubscriptionID); err != nil {
		return domain.NewExternalServiceError(serviceName, "cancel subscription", domain.ErrGatewayError, err)
	}

	data := map[string]interface{}{
		"cancel_at_cycle_end": 1,
	}

	_, err := c.api.Subscription.Cancel(providerSubscriptionID, data, nil)
	if err != nil {
		c.log.Errorw("Failed to cancel Razorpay subscription", "error", err, "providerSubscriptionID", providerSubscriptionID)
		return domain.NewExternalServiceError(serviceName, "cancel subscription", domain.ErrGatewayError, err)
	}

	c.log.Infow("Razorpay subscription cancelled", "providerSubscriptionID", providerSubscriptionID)
	return nil
}

// validateID отклоняет id, меняющие путь запроса ("/", "?", "#" и т.п.)
func validateID(id string) error {
	if id == "" || url.PathEscape(id) != id {
		return fmt.Errorf("%w: %q", errInvalidID, id)
	}
	return nil
}

func stringField(body map[string]interface{}, key string) string {
	if v, ok := body[key].(string); ok {
		return v
	}
	return ""
}

func amountField(body map[string]interface{}, key string) int64 {
	switch v := body[key].(type) {
	case float64:
		return int64(v)
	case int64:
		return v
	case int:
		return int64(v)
	case string:
		var n int64
		if _, err := fmt.Sscan(v, &n); err == nil {
			return n
		}
	}
	return 0
}
