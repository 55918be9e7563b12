package interceptors

import (
	"context"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/Dhoini/fitness-billing/pkg/logger"
)

type LoggingInterceptor struct {
	log *logger.Logger
}

func NewLoggingInterceptor(log *logger.Logger) *LoggingInterceptor {
	return &LoggingInterceptor{log: log}
}

// Unary логирует каждый вызов и превращает панику обработчика в codes.Internal.
func (i *LoggingInterceptor) Unary() grpc.UnaryServerInterceptor {
	return func(
		ctx context.Context,
		req interface{},
		info *grpc.UnaryServerInfo,
		handler grpc.UnaryHandler,
	) (resp interface{}, err error) {
		start := time.Now()

		defer func() {
			if r := recover(); r != nil {
				i.log.Errorw("gRPC handler panic", "method", info.FullMethod, "panic", r)
				resp, err = nil, status.Errorf(codes.Internal, "internal error")
			}

			code := status.Code(err)
			fields := []interface{}{
				"method", info.FullMethod,
				"code", code.String(),
				"latency", time.Since(start),
			}
			if err != nil && code != codes.NotFound {
				i.log.Warnw("gRPC request failed", append(fields, "error", err)...)
				return
			}
			i.log.Debugw("gRPC request", fields...)
		}()

		return handler(ctx, req)
	}
}
