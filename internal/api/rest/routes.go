package rest

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/Dhoini/fitness-billing/internal/api/rest/handlers"
	"github.com/Dhoini/fitness-billing/internal/api/rest/middleware"
	"github.com/Dhoini/fitness-billing/pkg/logger"
)

// Handlers обработчики, собранные в cmd/server
type Handlers struct {
	Callback     *handlers.CallbackHandler
	Cancel       *handlers.CancelHandler
	Subscription *handlers.SubscriptionHandler
	Health       *handlers.HealthHandler
	Auth         *middleware.JWTMiddleware
}

// SetupRouter настраивает маршрутизатор Gin с маршрутами и middleware
func SetupRouter(log *logger.Logger, registry *prometheus.Registry, h Handlers) *gin.Engine {
	r := gin.New()

	r.Use(middleware.LoggerMiddleware(log))
	r.Use(gin.Recovery())

	// Endpoint для проверки работоспособности сервиса
	r.GET("/health", h.Health.HealthCheck)

	// Prometheus метрики
	r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(registry, promhttp.HandlerOpts{Registry: registry})))

	v1 := r.Group("/api/v1")
	{
		// Редирект браузера от Razorpay
		callback := v1.Group("/payment-callback", middleware.CORS("GET, OPTIONS"))
		callback.GET("", h.Callback.HandlePaymentCallback)
		callback.OPTIONS("", preflight)

		// Отмена подписки из мобильного клиента
		cancel := v1.Group("/cancel-subscription", middleware.CORS("POST, OPTIONS"))
		cancel.POST("", h.Cancel.CancelSubscription)
		cancel.OPTIONS("", preflight)

		subscriptions := v1.Group("/subscriptions", h.Auth.RequireAuth())
		subscriptions.GET("/current", h.Subscription.GetCurrent)
	}

	return r
}

// preflight не вызывается: CORS middleware отвечает на OPTIONS раньше
func preflight(c *gin.Context) {
	c.String(http.StatusOK, "ok")
}
