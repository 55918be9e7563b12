package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/Dhoini/fitness-billing/config"
	grpcapi "github.com/Dhoini/fitness-billing/internal/api/grpc"
	"github.com/Dhoini/fitness-billing/internal/api/rest"
	"github.com/Dhoini/fitness-billing/internal/api/rest/handlers"
	"github.com/Dhoini/fitness-billing/internal/api/rest/middleware"
	"github.com/Dhoini/fitness-billing/internal/integration/razorpay"
	"github.com/Dhoini/fitness-billing/internal/kafka"
	"github.com/Dhoini/fitness-billing/internal/metrics"
	"github.com/Dhoini/fitness-billing/internal/repository"
	"github.com/Dhoini/fitness-billing/internal/repository/postgres"
	"github.com/Dhoini/fitness-billing/internal/service"
	"github.com/Dhoini/fitness-billing/pkg/logger"
)

const dependencyCheckInterval = 15 * time.Second

func main() {
	// Логгер до загрузки конфигурации
	log := logger.New(logger.INFO)

	cfg, err := config.Load()
	if err != nil {
		log.Fatal("Failed to load configuration: %v", err)
	}

	log = logger.New(logger.ParseLevel(cfg.Logging.Level))
	defer func() { _ = log.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Prometheus
	promRegistry := metrics.NewRegistry()
	billingMetrics := metrics.NewBillingMetrics(promRegistry)

	// База данных
	dbPool, err := postgres.NewConnection(ctx, cfg.Database.GetDSN(), log)
	if err != nil {
		log.Fatal("Failed to connect to database: %v", err)
	}
	defer dbPool.Close()

	if cfg.Database.Migrate {
		if err := postgres.Migrate(ctx, dbPool, log); err != nil {
			log.Fatal("Failed to apply migrations: %v", err)
		}
	}

	pgRepo := repository.NewPostgresSubscriptionRepository(dbPool, log)
	var subsRepo repository.SubscriptionRepository = pgRepo

	// Кеш текущей подписки (опционально)
	if cfg.Redis.Addr != "" {
		cache, err := repository.NewRedisCacheRepository(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB, cfg.Redis.CacheTTL, log)
		if err != nil {
			log.Warnw("Redis unavailable, continuing without cache", "error", err)
		} else {
			defer cache.Close()
			subsRepo = repository.NewCachedSubscriptionRepository(pgRepo, cache, log)
		}
	}

	// События подписок в Kafka (опционально)
	var publisher service.EventPublisher
	if len(cfg.Kafka.Brokers) > 0 {
		kafkaConfig := kafka.NewConfig(cfg.Kafka.Brokers, cfg.Kafka.TopicPrefix)
		if err := kafka.EnsureTopics(kafkaConfig, log); err != nil {
			log.Warnw("Failed to ensure Kafka topics", "error", err)
		}

		producer, err := kafka.NewSyncProducer(kafkaConfig, log)
		if err != nil {
			log.Warnw("Kafka unavailable, subscription events disabled", "error", err)
		} else {
			defer producer.Close()
			publisher = producer
		}
	}

	gateway := razorpay.NewClient(razorpay.Config{
		KeyID:     cfg.Razorpay.KeyID,
		KeySecret: cfg.Razorpay.KeySecret,
		BaseURL:   cfg.Razorpay.BaseURL,
	}, log)

	settings := service.BillingSettings{
		CycleLength:   cfg.Billing.CycleLength(),
		AmountDivisor: cfg.Billing.AmountDivisor,
		Currency:      cfg.Billing.Currency,
	}
	activationService := service.NewActivationService(subsRepo, gateway, publisher, billingMetrics, settings, log)
	cancellationService := service.NewCancellationService(subsRepo, gateway, publisher, billingMetrics, log)
	statusService := service.NewStatusService(subsRepo, log)

	tokenValidator := &middleware.DefaultTokenValidator{Secret: []byte(cfg.Auth.JWTSecret)}

	if cfg.Server.ReleaseMode {
		gin.SetMode(gin.ReleaseMode)
	}

	router := rest.SetupRouter(log, promRegistry, rest.Handlers{
		Callback:     handlers.NewCallbackHandler(activationService, billingMetrics, cfg.Billing.AppDeepLink, log),
		Cancel:       handlers.NewCancelHandler(cancellationService, tokenValidator, billingMetrics, log),
		Subscription: handlers.NewSubscriptionHandler(statusService, log),
		Health:       handlers.NewHealthHandler(pgRepo, log),
		Auth:         middleware.NewJWTMiddleware(log, tokenValidator),
	})

	server := rest.NewServer(router, cfg.Server, log)
	go func() {
		if err := server.Start(); err != nil {
			log.Errorw("HTTP server stopped", "error", err)
			stop()
		}
	}()

	// gRPC health для оркестратора (опционально)
	var grpcServer *grpcapi.Server
	if cfg.GRPC.Port != "" {
		grpcServer = grpcapi.NewServer(cfg.GRPC, log)
		go grpcServer.WatchDependency(ctx, pgRepo, dependencyCheckInterval)
		go func() {
			if err := grpcServer.Start(); err != nil {
				log.Errorw("gRPC server stopped", "error", err)
				stop()
			}
		}()
	}

	<-ctx.Done()
	log.Info("Shutdown signal received")

	shutdownTimeout := time.Duration(cfg.Server.ShutdownTimeout) * time.Second
	ctxShutdown, cancelShutdown := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancelShutdown()

	if grpcServer != nil {
		grpcServer.Stop()
	}
	if err := server.Shutdown(ctxShutdown); err != nil {
		log.Errorw("Server forced to shutdown", "error", err)
	}

	log.Info("Server stopped gracefully")
}
