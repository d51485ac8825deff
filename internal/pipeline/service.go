package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/joseph-ayodele/household-extractor/constants"
	"github.com/joseph-ayodele/household-extractor/internal/extract"
	"github.com/joseph-ayodele/household-extractor/internal/llm"
	"github.com/joseph-ayodele/household-extractor/internal/ocr"
	"github.com/joseph-ayodele/household-extractor/internal/quote"
)

// Config controls the AI/regex dispatch.
type Config struct {
	Mode      constants.Mode // used when a request leaves Mode empty
	AITimeout time.Duration  // default 20s
}

// Request is one piece of text to extract from.
type Request struct {
	Text    string
	Subject string
	Sender  string
	Mode    constants.Mode
	// Anchor is "today" for relative dates. Zero leaves them unresolved.
	Anchor time.Time
}

// Service picks the AI or the deterministic path per request and falls back to the
// deterministic one whenever the model produces nothing usable.
type Service struct {
	cfg       Config
	ai        llm.Completer
	extractor *extract.Extractor
	quotes    *quote.Parser
	text      TextExtractor
	logger    *slog.Logger
	now       func() time.Time
}

type Option func(*Service)

// WithCompleter enables the AI path.
func WithCompleter(c llm.Completer) Option {
	return func(s *Service) { s.ai = c }
}

func WithExtractor(e *extract.Extractor) Option {
	return func(s *Service) {
		if e != nil {
			s.extractor = e
		}
	}
}

func WithQuoteParser(p *quote.Parser) Option {
	return func(s *Service) {
		if p != nil {
			s.quotes = p
		}
	}
}

// TextExtractor turns an uploaded file into text; *ocr.Service implements it.
type TextExtractor interface {
	ExtractBytes(ctx context.Context, name string, data []byte) (ocr.ExtractionResult, error)
}

// WithOCR sets the text extraction service used for receipts.
func WithOCR(t TextExtractor) Option {
	return func(s *Service) { s.text = t }
}

func NewService(cfg Config, logger *slog.Logger, opts ...Option) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.AITimeout <= 0 {
		cfg.AITimeout = 20 * time.Second
	}
	if cfg.Mode == "" {
		cfg.Mode = constants.ModeAuto
	}
	s := &Service{
		cfg:       cfg,
		extractor: extract.New(logger),
		quotes:    quote.NewParser(),
		logger:    logger,
		now:       time.Now,
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// AIEnabled reports whether a model client is configured.
func (s *Service) AIEnabled() bool { return s.ai != nil }

// ExtractEmail returns contacts, prices, dates, follow-ups, topics and a summary.
// It never fails; an unusable AI answer degrades to the regex result with a warning.
func (s *Service) ExtractEmail(ctx context.Context, req Request) extract.EmailExtraction {
	opts := extract.Options{Subject: req.Subject, Sender: req.Sender, Anchor: req.Anchor}
	if strings.TrimSpace(req.Text) == "" {
		return s.extractor.Extract("", opts)
	}

	rid := uuid.NewString()
	useAI, warnings := s.route(req.Mode)
	if useAI {
		prompt := llm.BuildEmailPrompt(llm.EmailRequest{
			Text:    plainText(req.Text),
			Subject: req.Subject,
			Sender:  req.Sender,
			Anchor:  req.Anchor,
		})
		aiCtx, cancel := context.WithTimeout(ctx, s.cfg.AITimeout)
		res := llm.Extract[extract.ExtractedEmailData](aiCtx, s.ai, prompt, nil, s.logger)
		cancel()
		if res.OK() {
			out := emailFromAI(res.Value, req.Anchor)
			s.logger.Info("pipeline.email.done", "req_id", rid, "method", out.Method, "warnings", len(out.Warnings))
			return out
		}
		warnings = append(warnings, unavailable(res.Failure.Kind))
		s.logger.Warn("pipeline.fallback", "req_id", rid, "prompt", "email", "kind", res.Failure.Kind)
	}

	out := s.extractor.Extract(req.Text, opts)
	out.Warnings = append(warnings, out.Warnings...)
	s.logger.Info("pipeline.email.done", "req_id", rid, "method", out.Method, "warnings", len(out.Warnings))
	return out
}

// ExtractQuote returns the normalized quote. Both paths go through quote.Aggregate,
// so the category totals always add up to the subtotal.
func (s *Service) ExtractQuote(ctx context.Context, req Request) quote.ExtractedQuote {
	if strings.TrimSpace(req.Text) == "" {
		return s.quotes.Parse("", req.Anchor)
	}

	rid := uuid.NewString()
	useAI, warnings := s.route(req.Mode)
	if useAI {
		prompt := llm.BuildQuotePrompt(plainText(req.Text), req.Anchor)
		aiCtx, cancel := context.WithTimeout(ctx, s.cfg.AITimeout)
		res := llm.Extract[llm.QuoteFields](aiCtx, s.ai, prompt, QuoteNormalizers(), s.logger)
		cancel()
		if res.OK() {
			q := quoteFromAI(res.Value)
			s.logger.Info("pipeline.quote.done", "req_id", rid, "method", q.Method,
				"items", len(q.LineItems), "total", q.Total.String())
			return q
		}
		warnings = append(warnings, unavailable(res.Failure.Kind))
		s.logger.Warn("pipeline.fallback", "req_id", rid, "prompt", "quote", "kind", res.Failure.Kind)
	}

	q := s.quotes.Parse(req.Text, req.Anchor)
	q.Warnings = append(warnings, q.Warnings...)
	s.logger.Info("pipeline.quote.done", "req_id", rid, "method", q.Method,
		"items", len(q.LineItems), "total", q.Total.String())
	return q
}

// route decides whether to try the model. The returned warnings explain a forced
// fallback, which only happens when the caller asked for "ai" explicitly.
func (s *Service) route(mode constants.Mode) (bool, []string) {
	if mode == "" {
		mode = s.cfg.Mode
	}
	switch mode {
	case constants.ModeRegex:
		return false, []string{}
	case constants.ModeAI:
		if s.ai == nil {
			return false, []string{"ai extraction unavailable: no model configured"}
		}
		return true, []string{}
	default:
		return s.ai != nil, []string{}
	}
}

func unavailable(kind llm.FailureKind) string {
	return fmt.Sprintf("ai extraction unavailable: %s", kind)
}

func plainText(text string) string {
	if extract.LooksLikeHTML(text) {
		if plain, err := extract.HTMLToText(text); err == nil {
			return plain
		}
	}
	return text
}
