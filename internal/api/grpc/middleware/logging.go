package middleware

import (
	"context"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/dtroode/authcore/internal/logger"
	"github.com/dtroode/authcore/internal/metrics"
)

// Logging is a unary interceptor that logs gRPC requests and observes their
// latency.
type Logging struct {
	logger  *logger.Logger
	metrics *metrics.Metrics
}

func NewLogging(logger *logger.Logger, metrics *metrics.Metrics) *Logging {
	return &Logging{logger: logger, metrics: metrics}
}

// HandleGRPC logs method name, duration and status for each unary request.
// Request payloads are never logged since they carry credentials.
func (l *Logging) HandleGRPC(ctx context.Context, req interface{}, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (interface{}, error) {
	start := time.Now()
	l.logger.Debug("gRPC request started", "method", info.FullMethod)

	resp, err := handler(ctx, req)

	duration := time.Since(start)
	code := status.Code(err)
	l.metrics.RPC(info.FullMethod, code.String(), duration)

	switch code {
	case codes.OK:
		l.logger.Info("gRPC request completed",
			"method", info.FullMethod,
			"duration_ms", duration.Milliseconds(),
			"status", code.String())
	case codes.Internal, codes.Unavailable, codes.Unknown:
		l.logger.Error("gRPC request failed",
			"method", info.FullMethod,
			"duration_ms", duration.Milliseconds(),
			"status", code.String(),
			"error", err.Error())
	default:
		l.logger.Info("gRPC request rejected",
			"method", info.FullMethod,
			"duration_ms", duration.Milliseconds(),
			"status", code.String())
	}

	return resp, err
}
