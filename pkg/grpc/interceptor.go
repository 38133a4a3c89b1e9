package grpc

import (
	"context"
	"time"

	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"liyu1981.xyz/iwown-health-service/pkg/common"
	"liyu1981.xyz/iwown-health-service/pkg/observability"
)

// CreateLoggingInterceptor logs every call with its status code and counts
// Internal failures per method.
func CreateLoggingInterceptor() grpc.UnaryServerInterceptor {
	return func(
		ctx context.Context,
		req any,
		info *grpc.UnaryServerInfo,
		handler grpc.UnaryHandler,
	) (any, error) {
		logger := common.GetLoggerWith(common.LoggerNameGrpcServer)

		start := time.Now()
		resp, err := handler(ctx, req)
		code := status.Code(err)

		fields := []zap.Field{
			zap.String("method", info.FullMethod),
			zap.String("code", code.String()),
			zap.Duration("duration", time.Since(start)),
		}
		switch code {
		case codes.OK:
			logger.Info("Request handled", fields...)
		case codes.Internal:
			observability.DashboardFailuresTotal.WithLabelValues(info.FullMethod).Inc()
			logger.Error("Request failed", append(fields, zap.Error(err))...)
		default:
			logger.Warn("Request rejected", append(fields, zap.Error(err))...)
		}
		return resp, err
	}
}
