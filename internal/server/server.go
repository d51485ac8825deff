// Package server exposes the extractors over HTTP (chi) and a gRPC health endpoint.
package server

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"golang.org/x/time/rate"

	"github.com/joseph-ayodele/household-extractor/internal/common"
	"github.com/joseph-ayodele/household-extractor/internal/export"
	"github.com/joseph-ayodele/household-extractor/internal/pipeline"
	repo "github.com/joseph-ayodele/household-extractor/internal/repository"
	"github.com/joseph-ayodele/household-extractor/internal/statement"
	"github.com/joseph-ayodele/household-extractor/internal/survey"
	"github.com/joseph-ayodele/household-extractor/internal/valuation"
)

const (
	defaultMaxUploadBytes = 20 << 20
	defaultRequestTimeout = 60 * time.Second
)

// Deps are the services behind the handlers. Store may be nil, in which case
// runs are not persisted and the /v1/runs endpoints answer 503.
type Deps struct {
	Pipeline   *pipeline.Service
	Statements *statement.Parser
	Surveys    *survey.Parser
	Valuations *valuation.Service
	Exports    *export.Service
	Store      repo.RunStore
}

type Server struct {
	cfg     common.ServerConfig
	deps    Deps
	logger  *slog.Logger
	limiter *rate.Limiter
	now     func() time.Time
}

func New(cfg common.ServerConfig, deps Deps, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.MaxUploadBytes <= 0 {
		cfg.MaxUploadBytes = defaultMaxUploadBytes
	}
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = defaultRequestTimeout
	}
	if deps.Exports == nil {
		deps.Exports = export.NewService(logger)
	}
	s := &Server{cfg: cfg, deps: deps, logger: logger, now: time.Now}
	if cfg.RateLimitRPS > 0 {
		burst := cfg.RateLimitBurst
		if burst <= 0 {
			burst = 1
		}
		s.limiter = rate.NewLimiter(rate.Limit(cfg.RateLimitRPS), burst)
	}
	return s
}

// Router builds the HTTP handler.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.requestLogger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(s.cfg.RequestTimeout))
	if s.limiter != nil {
		r.Use(s.rateLimit)
	}

	r.Get("/health", s.health)

	r.Route("/v1", func(r chi.Router) {
		r.Post("/extract/email", s.extractEmail)
		r.Post("/extract/quote", s.extractQuote)

		r.Post("/statements", s.parseStatement)
		r.Post("/surveys", s.parseSurvey)
		r.Post("/receipts", s.extractReceipt)

		r.Post("/valuations", s.estimateValuation)

		r.Post("/budget/summary", s.budgetSummary)
		r.Post("/budget/recurring", s.budgetRecurring)

		r.Post("/redact", s.redactText)

		r.Get("/runs", s.listRuns)
		r.Get("/runs/{id}", s.getRun)

		r.Route("/exports", func(r chi.Router) {
			r.Post("/transactions.xlsx", s.exportTransactions)
			r.Post("/quote.xlsx", s.exportQuoteXLSX)
			r.Post("/quote.pdf", s.exportQuotePDF)
		})
	})

	return r
}
