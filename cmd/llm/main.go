package main

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joseph-ayodele/household-extractor/constants"
	"github.com/joseph-ayodele/household-extractor/internal/app"
	"github.com/joseph-ayodele/household-extractor/internal/common"
	"github.com/joseph-ayodele/household-extractor/internal/pipeline"
)

// runllm sends the same quote or email through the model path N times so the
// answers can be compared run to run.
func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)

	if len(os.Args) < 3 {
		logger.Error("usage: runllm <quote|email> <file> [times]")
		os.Exit(2)
	}
	kind := os.Args[1]
	if kind != "quote" && kind != "email" {
		logger.Error("unknown kind", "kind", kind)
		os.Exit(2)
	}
	path := os.Args[2]
	times := 10
	if len(os.Args) >= 4 {
		if n, err := strconv.Atoi(os.Args[3]); err == nil && n > 0 {
			times = n
		}
	}

	cfg := common.LoadConfig()
	if cfg.LLM.APIKey == "" {
		logger.Error("OPENAI_API_KEY env var is required")
		os.Exit(2)
	}
	cfg.Extraction.Mode = string(constants.ModeAI)

	data, err := os.ReadFile(path)
	if err != nil {
		logger.Error("read input", "path", path, "error", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()
	a, err := app.New(ctx, cfg, logger, app.Options{SkipStore: true})
	if err != nil {
		logger.Error("wire services", "error", err)
		os.Exit(1)
	}
	defer a.Close(context.Background())

	base := filepath.Base(path)
	anchor := time.Now()
	for i := 1; i <= times; i++ {
		runCtx, cancelRun := context.WithTimeout(context.Background(), 2*time.Minute)
		start := time.Now()
		logger.Info("pipeline.run.start", "iter", i, "kind", kind, "basename", base)

		req := pipeline.Request{Text: string(data), Anchor: anchor}
		if kind == "quote" {
			q := a.Pipeline.ExtractQuote(runCtx, req)
			logger.Info("pipeline.run.ok", "iter", i,
				"method", q.Method,
				"total", q.Total.String(),
				"items", len(q.LineItems),
				"confidence", q.Confidence,
				"warnings", q.Warnings,
				"elapsed_ms", time.Since(start).Milliseconds())
		} else {
			e := a.Pipeline.ExtractEmail(runCtx, req)
			logger.Info("pipeline.run.ok", "iter", i,
				"method", e.Method,
				"contacts", len(e.Data.Contacts),
				"prices", len(e.Data.Prices),
				"dates", len(e.Data.Dates),
				"confidence", e.Confidence,
				"warnings", e.Warnings,
				"elapsed_ms", time.Since(start).Milliseconds())
		}
		cancelRun()

		time.Sleep(750 * time.Millisecond)
	}

	logger.Info("done", "basename", base, "times", times)
}
