package server

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5/middleware"

	"github.com/joseph-ayodele/household-extractor/internal/common"
)

// requestLogger puts a request-scoped logger and the chi request id on the
// context and logs one line per request.
func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		reqID := middleware.GetReqID(r.Context())
		logger := s.logger.With("request_id", reqID)

		ctx := common.WithRequestID(r.Context(), reqID)
		ctx = common.WithLogger(ctx, logger)

		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r.WithContext(ctx))

		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		attrs := []any{
			"method", r.Method,
			"path", r.URL.Path,
			"status", status,
			"bytes", ww.BytesWritten(),
			"elapsed_ms", time.Since(start).Milliseconds(),
		}
		if status >= http.StatusInternalServerError {
			logger.Error("http.request", attrs...)
			return
		}
		logger.Info("http.request", attrs...)
	})
}

func (s *Server) rateLimit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !s.limiter.Allow() {
			common.LoggerFromContext(r.Context(), s.logger).Warn("http.rate_limited",
				"method", r.Method,
				"path", r.URL.Path,
				"remote_addr", r.RemoteAddr)
			writeError(w, r, s.logger, common.NewAppError("RATE_LIMITED", http.StatusText(http.StatusTooManyRequests), errRateLimited))
			return
		}
		next.ServeHTTP(w, r)
	})
}
