// Package app wires the configured services together for the daemon and the CLI.
package app

import (
	"context"
	"errors"
	"log/slog"
	"os"

	"github.com/joseph-ayodele/household-extractor/constants"
	"github.com/joseph-ayodele/household-extractor/internal/classify"
	"github.com/joseph-ayodele/household-extractor/internal/common"
	"github.com/joseph-ayodele/household-extractor/internal/export"
	"github.com/joseph-ayodele/household-extractor/internal/extract"
	"github.com/joseph-ayodele/household-extractor/internal/llm/openai"
	"github.com/joseph-ayodele/household-extractor/internal/ocr"
	"github.com/joseph-ayodele/household-extractor/internal/patterns"
	"github.com/joseph-ayodele/household-extractor/internal/pipeline"
	"github.com/joseph-ayodele/household-extractor/internal/quote"
	repo "github.com/joseph-ayodele/household-extractor/internal/repository"
	"github.com/joseph-ayodele/household-extractor/internal/server"
	"github.com/joseph-ayodele/household-extractor/internal/statement"
	"github.com/joseph-ayodele/household-extractor/internal/survey"
	"github.com/joseph-ayodele/household-extractor/internal/valuation"
)

// App holds the long-lived services. Store is nil when persistence is disabled.
type App struct {
	Config     *common.Config
	OCR        *ocr.Service
	Pipeline   *pipeline.Service
	Statements *statement.Parser
	Surveys    *survey.Parser
	Valuations *valuation.Service
	Exports    *export.Service
	Store      repo.RunStore

	logger *slog.Logger
}

type Options struct {
	// SkipStore leaves Store nil regardless of the configured driver.
	SkipStore bool
	// DetectLanguage loads the lingua models for email language detection.
	DetectLanguage bool
}

// NewLogger returns the JSON slog logger both binaries use and makes it the default.
func NewLogger(level slog.Level) *slog.Logger {
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)
	return logger
}

// New initialises every service from cfg. On error the services already
// started are shut down again.
func New(ctx context.Context, cfg *common.Config, logger *slog.Logger, opts Options) (_ *App, err error) {
	if logger == nil {
		logger = slog.Default()
	}
	a := &App{Config: cfg, logger: logger, Exports: export.NewService(logger)}
	defer func() {
		if err != nil {
			a.Close(context.Background())
		}
	}()

	lib := patterns.DefaultLibrary()
	if cfg.Extraction.KeywordsFile != "" {
		if lib, err = patterns.LoadLibrary(cfg.Extraction.KeywordsFile); err != nil {
			return nil, common.WrapError(err, "load keyword library")
		}
		logger.Info("app.keywords.loaded", "file", cfg.Extraction.KeywordsFile)
	}
	classifier := classify.New(lib)

	a.OCR = ocr.NewService(ocr.Config{
		Pdftotext:     cfg.OCR.Pdftotext,
		Tesseract:     cfg.OCR.Tesseract,
		TesseractLang: cfg.OCR.TesseractLang,
		TessdataDir:   cfg.OCR.TessdataDir,
		MaxPages:      cfg.OCR.MaxPages,
	}, logger)
	if err = a.OCR.Init(ctx); err != nil {
		return nil, common.WrapError(err, "init ocr")
	}

	a.Valuations = valuation.NewService(valuation.Config{ModelFile: cfg.Valuation.ModelFile}, logger)
	if err = a.Valuations.Init(ctx); err != nil {
		return nil, err
	}

	extractorOpts := []extract.Option{extract.WithClassifier(classifier)}
	if opts.DetectLanguage {
		extractorOpts = append(extractorOpts, extract.WithLanguageDetector(extract.NewLinguaDetector()))
	}
	quoteOpts := []quote.ParserOption{quote.WithClassifier(classifier)}
	if cfg.Extraction.DefaultVATRate > 0 {
		quoteOpts = append(quoteOpts, quote.WithDefaultVATRate(cfg.Extraction.DefaultVATRate))
	}

	mode, ok := constants.ParseMode(cfg.Extraction.Mode)
	if !ok {
		logger.Warn("app.mode.unknown", "mode", cfg.Extraction.Mode, "using", mode)
	}
	pipeOpts := []pipeline.Option{
		pipeline.WithExtractor(extract.New(logger, extractorOpts...)),
		pipeline.WithQuoteParser(quote.NewParser(quoteOpts...)),
		pipeline.WithOCR(a.OCR),
	}
	if cfg.AIEnabled() {
		client := openai.NewClient(openai.Config{
			APIKey:       cfg.LLM.APIKey,
			BaseURL:      cfg.LLM.BaseURL,
			Model:        cfg.LLM.Model,
			Temperature:  cfg.LLM.Temperature,
			Timeout:      cfg.LLM.Timeout,
			RateLimitRPS: cfg.LLM.RateLimitRPS,
			CacheTTL:     cfg.LLM.CacheTTL,
			Retries:      cfg.LLM.Retries,
		}, logger)
		pipeOpts = append(pipeOpts, pipeline.WithCompleter(client))
		logger.Info("app.ai.enabled", "model", client.Model())
	} else {
		logger.Info("app.ai.disabled")
	}
	a.Pipeline = pipeline.NewService(pipeline.Config{Mode: mode, AITimeout: cfg.Extraction.AITimeout}, logger, pipeOpts...)

	a.Statements = statement.NewParser(a.OCR, logger)
	a.Surveys = survey.NewParser(a.OCR, logger)

	if !opts.SkipStore {
		if a.Store, err = server.OpenStore(ctx, cfg.Database, logger); err != nil {
			return nil, err
		}
	}
	return a, nil
}

// Deps exposes the services to the HTTP server.
func (a *App) Deps() server.Deps {
	return server.Deps{
		Pipeline:   a.Pipeline,
		Statements: a.Statements,
		Surveys:    a.Surveys,
		Valuations: a.Valuations,
		Exports:    a.Exports,
		Store:      a.Store,
	}
}

// Close releases the store and shuts the OCR and valuation services down.
func (a *App) Close(ctx context.Context) error {
	server.CloseStore(a.Store, a.logger)
	a.Store = nil

	var errs []error
	if a.Valuations != nil {
		errs = append(errs, a.Valuations.Shutdown(ctx))
	}
	if a.OCR != nil {
		errs = append(errs, a.OCR.Shutdown(ctx))
	}
	return errors.Join(errs...)
}
