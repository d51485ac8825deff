package pipeline

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/joseph-ayodele/household-extractor/constants"
	"github.com/joseph-ayodele/household-extractor/internal/quote"
)

// below this OCR confidence the amounts on a receipt are flagged as suspect
const lowOCRConfidence = 0.5

var ErrNoOCR = errors.New("no text extractor configured")

// ExtractReceipt reads a receipt image, PDF or text file and returns it in quote shape.
func (s *Service) ExtractReceipt(ctx context.Context, path string, mode constants.Mode) (quote.ExtractedQuote, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return quote.ExtractedQuote{}, fmt.Errorf("read receipt: %w", err)
	}
	return s.ExtractReceiptBytes(ctx, filepath.Base(path), data, mode)
}

// ExtractReceiptBytes is ExtractReceipt over an upload. Errors are returned only when
// no text could be obtained; everything after OCR degrades to warnings.
func (s *Service) ExtractReceiptBytes(ctx context.Context, name string, data []byte, mode constants.Mode) (quote.ExtractedQuote, error) {
	if s.text == nil {
		return quote.ExtractedQuote{}, ErrNoOCR
	}
	start := time.Now()
	res, err := s.text.ExtractBytes(ctx, name, data)
	if err != nil {
		s.logger.Error("pipeline.receipt.ocr_failed", "file", name, "error", err)
		return quote.ExtractedQuote{}, fmt.Errorf("receipt text: %w", err)
	}

	q := s.ExtractQuote(ctx, Request{Text: res.Text, Mode: mode, Anchor: s.now()})
	q.Warnings = append(q.Warnings, res.Warnings...)
	if res.Confidence < lowOCRConfidence {
		q.Warnings = append(q.Warnings, fmt.Sprintf("low OCR confidence (%.2f); amounts may be misread", res.Confidence))
	}
	s.logger.Info("pipeline.receipt.done",
		"file", name,
		"ocr_method", res.Method,
		"ocr_confidence", res.Confidence,
		"method", q.Method,
		"total", q.Total.String(),
		"elapsed_ms", time.Since(start).Milliseconds())
	return q, nil
}
