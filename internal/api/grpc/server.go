package grpc

import (
	"context"
	"fmt"
	"net"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/keepalive"
	"google.golang.org/grpc/reflection"

	"github.com/Dhoini/fitness-billing/config"
	"github.com/Dhoini/fitness-billing/internal/interceptors"
	"github.com/Dhoini/fitness-billing/pkg/logger"
)

// ServiceName имя сервиса в gRPC health протоколе
const ServiceName = "fitness.billing.v1.Billing"

// Pinger проверяет доступность зависимости
type Pinger interface {
	Ping(ctx context.Context) error
}

// Server gRPC сервер со стандартным health сервисом для оркестратора
type Server struct {
	grpcServer *grpc.Server
	health     *health.Server
	addr       string
	log        *logger.Logger
	listener   net.Listener
}

// NewServer создает новый gRPC сервер
func NewServer(cfg config.GRPCConfig, log *logger.Logger) *Server {
	kaParams := keepalive.ServerParameters{
		MaxConnectionIdle:     time.Minute * 5,
		MaxConnectionAge:      time.Hour,
		MaxConnectionAgeGrace: time.Minute * 5,
		Time:                  time.Minute * 2,
		Timeout:               time.Second * 20,
	}

	grpcServer := grpc.NewServer(
		grpc.KeepaliveParams(kaParams),
		grpc.ChainUnaryInterceptor(interceptors.NewLoggingInterceptor(log).Unary()),
	)

	hs := health.NewServer()
	hs.SetServingStatus(ServiceName, healthpb.HealthCheckResponse_NOT_SERVING)
	healthpb.RegisterHealthServer(grpcServer, hs)

	// Включаем reflection для отладки (grpcurl)
	reflection.Register(grpcServer)

	return &Server{
		grpcServer: grpcServer,
		health:     hs,
		addr:       ":" + cfg.Port,
		log:        log,
	}
}

// Start запускает gRPC сервер и блокируется до его остановки
func (s *Server) Start() error {
	s.log.Info("Starting gRPC server on %s", s.addr)

	listener, err := net.Listen("tcp", s.addr)
	if err != nil {
		return fmt.Errorf("failed to listen: %w", err)
	}
	s.listener = listener

	if err := s.grpcServer.Serve(listener); err != nil {
		return fmt.Errorf("failed to serve: %w", err)
	}
	return nil
}

// WatchDependency периодически проверяет зависимость и обновляет health статус,
// пока не отменен ctx
func (s *Server) WatchDependency(ctx context.Context, dep Pinger, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	s.checkDependency(ctx, dep)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.checkDependency(ctx, dep)
		}
	}
}

func (s *Server) checkDependency(ctx context.Context, dep Pinger) {
	pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	status := healthpb.HealthCheckResponse_SERVING
	if err := dep.Ping(pingCtx); err != nil {
		s.log.Warnw("Dependency check failed", "error", err)
		status = healthpb.HealthCheckResponse_NOT_SERVING
	}
	s.health.SetServingStatus(ServiceName, status)
}

// Stop останавливает gRPC сервер
func (s *Server) Stop() {
	s.log.Info("Stopping gRPC server")
	s.health.Shutdown()
	s.grpcServer.GracefulStop()
	if s.listener != nil {
		_ = s.listener.Close()
	}
}
