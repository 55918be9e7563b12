package handlers

import (
	"embed"
	"errors"
	"html/template"
	"net/http"
	"net/url"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/render"

	"github.com/Dhoini/fitness-billing/internal/domain"
	"github.com/Dhoini/fitness-billing/internal/metrics"
	"github.com/Dhoini/fitness-billing/internal/service"
	"github.com/Dhoini/fitness-billing/pkg/logger"
)

//go:embed templates/payment_status.html
var templatesFS embed.FS

const paymentStatusTemplate = "payment_status.html"

var paymentStatusPage = template.Must(template.ParseFS(templatesFS, "templates/"+paymentStatusTemplate))

// Параметры callback от Razorpay
const (
	queryPaymentLinkID     = "razorpay_payment_link_id"
	queryPaymentID         = "razorpay_payment_id"
	queryPaymentLinkStatus = "razorpay_payment_link_status"
)

// statusPage данные HTML страницы результата оплаты
type statusPage struct {
	Title           string
	Message         string
	Success         bool
	UserID          string
	DeepLink        string
	FallbackMessage string
}

var (
	pageFailed   = statusPage{Title: "Payment Failed", Message: "Your payment was not successful. Please try again."}
	pagePending  = statusPage{Title: "Payment Pending", Message: "Your payment is still being processed. Please wait."}
	pageNotFound = statusPage{Title: "Error", Message: "Subscription not found. Please contact support."}
	pageError    = statusPage{Title: "Error", Message: "An error occurred. Please contact support."}
)

const (
	successTitle    = "Success"
	successMessage  = "Payment successful! Redirecting to app..."
	fallbackSuffix  = "\n\nIf the app doesn't open automatically, please return to the app manually."
	deepLinkUserKey = "user_id"
)

// CallbackHandler обрабатывает редирект браузера от платежного провайдера
type CallbackHandler struct {
	service  service.ActivationService
	metrics  metrics.BillingMetrics
	deepLink string
	log      *logger.Logger
}

// NewCallbackHandler создает обработчик payment callback
func NewCallbackHandler(svc service.ActivationService, m metrics.BillingMetrics, deepLink string, log *logger.Logger) *CallbackHandler {
	if m == nil {
		m = metrics.Nop{}
	}
	return &CallbackHandler{
		service:  svc,
		metrics:  m,
		deepLink: deepLink,
		log:      log,
	}
}

// HandlePaymentCallback всегда отвечает 200 text/html, ошибки отображаются на странице
func (h *CallbackHandler) HandlePaymentCallback(c *gin.Context) {
	callback := domain.PaymentCallback{
		PaymentLinkID:     c.Query(queryPaymentLinkID),
		PaymentID:         c.Query(queryPaymentID),
		PaymentLinkStatus: c.Query(queryPaymentLinkStatus),
	}

	h.log.Infow("Payment callback received",
		"linkID", callback.PaymentLinkID,
		"paymentID", callback.PaymentID,
		"status", callback.PaymentLinkStatus,
	)

	result, err := h.service.Reconcile(c.Request.Context(), callback)
	page, outcome := h.pageFor(result, err)
	if err != nil {
		_ = c.Error(err)
		h.log.Warnw("Payment callback not completed", "error", err, "outcome", outcome, "linkID", callback.PaymentLinkID)
	}
	h.metrics.IncCallback(outcome)

	c.Render(http.StatusOK, render.HTML{
		Template: paymentStatusPage,
		Name:     paymentStatusTemplate,
		Data:     page,
	})
}

func (h *CallbackHandler) pageFor(result *service.ActivationResult, err error) (statusPage, string) {
	switch {
	case errors.Is(err, domain.ErrPaymentNotPaid):
		return pageFailed, metrics.OutcomeFailed
	case errors.Is(err, domain.ErrSubscriptionNotFound):
		return pageNotFound, metrics.OutcomeNotFound
	case err != nil:
		return pageError, metrics.OutcomeError
	case result == nil:
		return pageError, metrics.OutcomeError
	case result.Outcome == service.ActivationPending:
		return pagePending, metrics.OutcomePending
	}

	outcome := metrics.OutcomeActivated
	if result.Outcome == service.ActivationAlreadyActive {
		outcome = metrics.OutcomeAlreadyActive
	}

	userID := ""
	if result.Subscription != nil {
		userID = result.Subscription.UserID
	}
	return statusPage{
		Title:           successTitle,
		Message:         successMessage,
		Success:         true,
		UserID:          userID,
		DeepLink:        h.deepLinkFor(userID),
		FallbackMessage: successMessage + fallbackSuffix,
	}, outcome
}

func (h *CallbackHandler) deepLinkFor(userID string) string {
	if userID == "" {
		return h.deepLink
	}
	u, err := url.Parse(h.deepLink)
	if err != nil {
		return h.deepLink
	}
	q := u.Query()
	q.Set(deepLinkUserKey, userID)
	u.RawQuery = q.Encode()
	return u.String()
}
