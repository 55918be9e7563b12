package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/Dhoini/fitness-billing/internal/api/rest/middleware"
	"github.com/Dhoini/fitness-billing/internal/domain"
	"github.com/Dhoini/fitness-billing/internal/service"
	"github.com/Dhoini/fitness-billing/pkg/logger"
	"github.com/Dhoini/fitness-billing/pkg/res"
)

// CurrentSubscriptionResponse статус подписки для экрана клиента
type CurrentSubscriptionResponse struct {
	Success      bool                 `json:"success"`
	Active       bool                 `json:"active"`
	Subscription *domain.Subscription `json:"subscription"`
}

// SubscriptionHandler путь чтения статуса подписки
type SubscriptionHandler struct {
	service service.StatusService
	log     *logger.Logger
	now     func() time.Time
}

// NewSubscriptionHandler создает обработчик статуса подписки
func NewSubscriptionHandler(svc service.StatusService, log *logger.Logger) *SubscriptionHandler {
	return &SubscriptionHandler{
		service: svc,
		log:     log,
		now:     time.Now,
	}
}

// GetCurrent возвращает последнюю подписку аутентифицированного пользователя
func (h *SubscriptionHandler) GetCurrent(c *gin.Context) {
	userID := middleware.UserID(c)

	sub, err := h.service.Current(c.Request.Context(), userID)
	if err != nil {
		_ = c.Error(err)
		switch {
		case errors.Is(err, domain.ErrUnauthenticated):
			res.Failure(c, http.StatusUnauthorized, msgUnauthorized)
		case errors.Is(err, domain.ErrSubscriptionNotFound):
			res.Failure(c, http.StatusNotFound, msgNotFound)
		default:
			h.log.Errorw("Failed to get current subscription", "error", err, "userID", userID)
			res.Failure(c, http.StatusInternalServerError, "Failed to get subscription")
		}
		return
	}

	res.JsonResponse(c, CurrentSubscriptionResponse{
		Success:      true,
		Active:       sub.ActiveAt(h.now()),
		Subscription: sub,
	}, http.StatusOK)
}
