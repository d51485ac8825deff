package server

import (
	"context"
	"log/slog"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"
	"google.golang.org/grpc/status"

	"github.com/joseph-ayodele/household-extractor/internal/common"
)

// GRPC is the gRPC side of the daemon: a health service plus reflection for grpcurl.
type GRPC struct {
	Server *grpc.Server
	Health *health.Server
}

// NewGRPCServer builds the gRPC server with every service marked NOT_SERVING
// until Run starts listening.
func NewGRPCServer(logger *slog.Logger) *GRPC {
	if logger == nil {
		logger = slog.Default()
	}
	srv := grpc.NewServer(grpc.ChainUnaryInterceptor(unaryLogger(logger), statusMapper()))

	hs := health.NewServer()
	healthpb.RegisterHealthServer(srv, hs)
	hs.SetServingStatus("", healthpb.HealthCheckResponse_NOT_SERVING)
	reflection.Register(srv)

	return &GRPC{Server: srv, Health: hs}
}

func unaryLogger(logger *slog.Logger) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		start := time.Now()
		resp, err := handler(ctx, req)
		st, _ := status.FromError(err)
		logger.Debug("grpc.request",
			"method", info.FullMethod,
			"code", st.Code().String(),
			"elapsed_ms", time.Since(start).Milliseconds())
		return resp, err
	}
}

// statusMapper turns plain application errors into gRPC statuses.
func statusMapper() grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, _ *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		resp, err := handler(ctx, req)
		if _, ok := status.FromError(err); !ok {
			err = common.GRPCStatus(err)
		}
		return resp, err
	}
}
