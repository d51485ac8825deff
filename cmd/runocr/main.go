package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/joseph-ayodele/household-extractor/internal/common"
	"github.com/joseph-ayodele/household-extractor/internal/ocr"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	if len(os.Args) < 2 || len(os.Args) > 3 {
		logger.Error("usage", "cmd", "runocr <file> [--text]")
		os.Exit(2)
	}
	path := os.Args[1]
	printText := len(os.Args) == 3 && os.Args[2] == "--text"

	cfg := common.LoadConfig()
	svc := ocr.NewService(ocr.Config{
		Pdftotext:     cfg.OCR.Pdftotext,
		Tesseract:     cfg.OCR.Tesseract,
		TesseractLang: cfg.OCR.TesseractLang,
		TessdataDir:   cfg.OCR.TessdataDir,
		MaxPages:      cfg.OCR.MaxPages,
	}, logger)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	if err := svc.Init(ctx); err != nil {
		logger.Error("ocr init", "error", err)
		os.Exit(1)
	}
	defer func() {
		if err := svc.Shutdown(context.Background()); err != nil {
			logger.Warn("ocr shutdown", "error", err)
		}
	}()
	if missing := svc.MissingBinaries(); len(missing) > 0 {
		logger.Warn("ocr binaries missing", "missing", missing)
	}

	start := time.Now()
	res, err := svc.ExtractFile(ctx, path)
	dur := time.Since(start)
	if err != nil {
		logger.Error("text extraction failed", "file", path, "error", err, "duration_ms", dur.Milliseconds())
		os.Exit(1)
	}

	logger.Info("text extraction OK",
		"file", path,
		"method", res.Method,
		"pages", res.Pages,
		"confidence", res.Confidence,
		"warnings", len(res.Warnings),
		"bytes", len(res.Text),
		"duration_ms", dur.Milliseconds(),
	)
	if printText {
		fmt.Println(res.Text)
	}
}
