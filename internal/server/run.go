package server

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"time"

	"golang.org/x/sync/errgroup"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

const shutdownTimeout = 15 * time.Second

// Listeners are the sockets Run serves on. Either may be nil to disable that side.
type Listeners struct {
	HTTP net.Listener
	GRPC net.Listener
}

// NewHTTPServer wraps handler with the timeouts the daemon uses.
func NewHTTPServer(handler http.Handler, requestTimeout time.Duration) *http.Server {
	return &http.Server{
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       requestTimeout + 5*time.Second,
		WriteTimeout:      requestTimeout + 10*time.Second,
		IdleTimeout:       2 * time.Minute,
	}
}

// Run serves HTTP and gRPC until ctx is cancelled or either server fails, then
// marks the health service NOT_SERVING and shuts both down gracefully.
func Run(ctx context.Context, httpSrv *http.Server, grpcSrv *GRPC, lis Listeners, logger *slog.Logger) error {
	if logger == nil {
		logger = slog.Default()
	}
	g, gctx := errgroup.WithContext(ctx)

	if lis.HTTP != nil {
		g.Go(func() error {
			logger.Info("http.serving", "addr", lis.HTTP.Addr().String())
			if err := httpSrv.Serve(lis.HTTP); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		})
	}
	if lis.GRPC != nil {
		grpcSrv.Health.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)
		g.Go(func() error {
			logger.Info("grpc.serving", "addr", lis.GRPC.Addr().String())
			return grpcSrv.Server.Serve(lis.GRPC)
		})
	}

	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down...")
		if grpcSrv != nil {
			grpcSrv.Health.Shutdown()
		}

		sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		var err error
		if lis.HTTP != nil {
			if err = httpSrv.Shutdown(sctx); err != nil {
				logger.Error("http.shutdown_failed", "error", err)
			}
		}
		if lis.GRPC != nil {
			stopped := make(chan struct{})
			go func() {
				grpcSrv.Server.GracefulStop()
				close(stopped)
			}()
			select {
			case <-stopped:
			case <-sctx.Done():
				grpcSrv.Server.Stop()
			}
		}
		logger.Info("stopped")
		return err
	})

	return g.Wait()
}
