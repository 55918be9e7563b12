package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"

	"github.com/Dhoini/fitness-billing/internal/api/rest/middleware"
	"github.com/Dhoini/fitness-billing/internal/domain"
	"github.com/Dhoini/fitness-billing/internal/metrics"
	"github.com/Dhoini/fitness-billing/internal/service"
	"github.com/Dhoini/fitness-billing/pkg/logger"
	"github.com/Dhoini/fitness-billing/pkg/req"
	"github.com/Dhoini/fitness-billing/pkg/res"
)

// Сообщения, которые видит мобильный клиент
const (
	msgCancelled           = "Subscription cancelled successfully"
	msgMissingAuthHeader   = "Missing authorization header"
	msgMissingSubscription = "Missing subscription_id"
	msgInvalidBody         = "Invalid request body"
	msgUnauthorized        = "Unauthorized"
	msgNotFound            = "Subscription not found"
	msgNotActive           = "Subscription is not active"
	msgGatewayCancelFailed = "Failed to cancel subscription with Razorpay"
	msgCancelFailed        = "Failed to cancel subscription"
)

// CancelSubscriptionRequest тело запроса на отмену
type CancelSubscriptionRequest struct {
	SubscriptionID string `json:"subscription_id" validate:"required"`
}

// CancelHandler обрабатывает отмену подписки мобильным клиентом
type CancelHandler struct {
	service   service.CancellationService
	validator middleware.TokenValidator
	metrics   metrics.BillingMetrics
	log       *logger.Logger
}

// NewCancelHandler создает обработчик отмены подписки
func NewCancelHandler(svc service.CancellationService, validator middleware.TokenValidator, m metrics.BillingMetrics, log *logger.Logger) *CancelHandler {
	if m == nil {
		m = metrics.Nop{}
	}
	return &CancelHandler{
		service:   svc,
		validator: validator,
		metrics:   m,
		log:       log,
	}
}

// CancelSubscription отвечает 200 {success:true} либо 400 {success:false, error}
func (h *CancelHandler) CancelSubscription(c *gin.Context) {
	authHeader := c.GetHeader("Authorization")
	if authHeader == "" {
		h.fail(c, msgMissingAuthHeader, domain.ErrUnauthenticated)
		return
	}

	body, err := req.HandleBody[CancelSubscriptionRequest](c.Request.Body)
	if err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			h.fail(c, msgMissingSubscription, err)
			return
		}
		h.fail(c, msgInvalidBody, err)
		return
	}

	userID, err := middleware.ResolveUserID(h.validator, authHeader)
	if err != nil {
		h.fail(c, msgUnauthorized, err)
		return
	}

	if _, err := h.service.Cancel(c.Request.Context(), userID, body.SubscriptionID); err != nil {
		h.fail(c, cancelErrorMessage(err), err)
		return
	}

	h.metrics.IncCancellation(metrics.OutcomeCancelled)
	res.Success(c, http.StatusOK, msgCancelled)
}

func (h *CancelHandler) fail(c *gin.Context, message string, err error) {
	_ = c.Error(err)
	h.log.Warnw("Subscription cancellation rejected", "reason", message, "error", err)
	h.metrics.IncCancellation(metrics.OutcomeRejected)
	res.Failure(c, http.StatusBadRequest, message)
}

func cancelErrorMessage(err error) string {
	switch {
	case errors.Is(err, domain.ErrUnauthenticated):
		return msgUnauthorized
	case errors.Is(err, domain.ErrMissingInput):
		return msgMissingSubscription
	case errors.Is(err, domain.ErrSubscriptionNotFound):
		return msgNotFound
	case errors.Is(err, domain.ErrInvalidState):
		return msgNotActive
	case errors.Is(err, domain.ErrGatewayError):
		return msgGatewayCancelFailed
	case errors.Is(err, service.ErrUpdateFailed):
		cause := strings.TrimPrefix(err.Error(), service.ErrUpdateFailed.Error()+": ")
		return "Failed to update subscription: " + cause
	}
	return msgCancelFailed
}
