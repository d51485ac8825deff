package ocr

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/ledongthuc/pdf"
	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"

	"github.com/joseph-ayodele/household-extractor/constants"
)

const (
	maxTextBytes = 2 << 20
	// below this many characters per page the text layer is treated as absent
	minCharsPerPage = 40
)

// extractPDF tries the embedded text layer first, then pdftotext -layout, then
// rasterises pages and runs tesseract.
func (s *Service) extractPDF(ctx context.Context, name string, data []byte) (ExtractionResult, error) {
	res := ExtractionResult{SourceType: constants.PDF}

	pages, err := validatePDF(data)
	if err != nil {
		res.Warnings = append(res.Warnings, "pdf structure check failed: "+err.Error())
	}
	res.Pages = pages

	text, n, err := pdfText(data)
	if err != nil {
		res.Warnings = append(res.Warnings, "text layer unreadable: "+err.Error())
	} else if res.Pages == 0 {
		res.Pages = n
	}
	if hasEnoughText(text, res.Pages) {
		res.Text = Normalize(text)
		res.Method = MethodPDFText
		res.Confidence = textLayerConfidence(res.Text)
		return res, nil
	}

	path, cleanup, err := s.writeScratch(name, data)
	if err != nil {
		return res, fmt.Errorf("stage pdf: %w", err)
	}
	defer cleanup()

	layout, n, w, err := s.pdfToText(ctx, path)
	res.Warnings = append(res.Warnings, w...)
	if err == nil && hasEnoughText(layout, n) {
		if res.Pages == 0 {
			res.Pages = n
		}
		res.Text = Normalize(layout)
		res.Method = MethodPDFLayout
		res.Confidence = textLayerConfidence(res.Text)
		return res, nil
	}
	if err != nil {
		res.Warnings = append(res.Warnings, "pdftotext failed: "+err.Error())
	}

	scanned, n, w, err := s.pdfToOCR(ctx, path)
	res.Warnings = append(res.Warnings, w...)
	if err != nil || strings.TrimSpace(scanned) == "" {
		if err != nil {
			res.Warnings = append(res.Warnings, "page ocr failed: "+err.Error())
		}
		return res, ErrUnreadablePDF
	}
	if res.Pages == 0 {
		res.Pages = n
	}
	res.Text = Normalize(scanned)
	res.Method = MethodPDFOCR
	res.Confidence = heuristicConfidence(res.Text)
	res.Warnings = append(res.Warnings, "pdf has no text layer; text was recovered by OCR")
	return res, nil
}

// validatePDF parses the document structure in relaxed mode and returns the page count.
func validatePDF(data []byte) (int, error) {
	conf := model.NewDefaultConfiguration()
	conf.ValidationMode = model.ValidationRelaxed

	ctx, err := api.ReadContext(bytes.NewReader(data), conf)
	if err != nil {
		return 0, fmt.Errorf("read pdf context: %w", err)
	}
	if err := ctx.EnsurePageCount(); err != nil {
		return 0, fmt.Errorf("page count: %w", err)
	}
	return ctx.PageCount, nil
}

// pdfText reads the embedded text layer. The reader panics on some malformed
// files, so panics come back as errors.
func pdfText(data []byte) (text string, pages int, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("pdf reader panic: %v", r)
		}
	}()

	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", 0, fmt.Errorf("open pdf reader: %w", err)
	}
	pages = reader.NumPage()

	plain, err := reader.GetPlainText()
	if err != nil {
		return "", pages, fmt.Errorf("extract plain text: %w", err)
	}
	b, err := io.ReadAll(io.LimitReader(plain, maxTextBytes))
	if err != nil {
		return "", pages, fmt.Errorf("read plain text: %w", err)
	}
	return string(b), pages, nil
}

func hasEnoughText(text string, pages int) bool {
	if pages < 1 {
		pages = 1
	}
	n := utf8.RuneCountInString(strings.Join(strings.Fields(text), ""))
	return n >= minCharsPerPage*pages
}

func (s *Service) pdfToText(ctx context.Context, path string) (text string, pages int, warnings []string, err error) {
	// pdftotext -layout -enc UTF-8 -eol unix [-l N] <path> -
	args := []string{"-layout", "-enc", "UTF-8", "-eol", "unix"}
	if s.cfg.MaxPages > 0 {
		args = append(args, "-l", strconv.Itoa(s.cfg.MaxPages))
	}
	args = append(args, path, "-")
	out, errb, err := s.runner.Run(ctx, s.cfg.Pdftotext, args...)
	if err != nil {
		return "", 0, stderrWarning(errb), err
	}
	text = string(out)
	// form feed separates pages; pdftotext also ends the last page with one
	pages = strings.Count(strings.TrimRight(text, "\f\n"), "\f") + 1
	return text, pages, nil, nil
}

func (s *Service) pdfToOCR(ctx context.Context, path string) (text string, pages int, warnings []string, err error) {
	dir, err := os.MkdirTemp(s.scratch, "pages-*")
	if err != nil {
		return "", 0, nil, err
	}
	defer func() {
		if rmErr := os.RemoveAll(dir); rmErr != nil {
			s.logger.Warn("ocr.pdf.cleanup_failed", "dir", dir, "error", rmErr)
		}
	}()

	prefix := filepath.Join(dir, "page")
	// pdftoppm -r 300 -png [-l N] <in.pdf> <dir/page>
	args := []string{"-r", strconv.Itoa(s.cfg.DPI), "-png"}
	if s.cfg.MaxPages > 0 {
		args = append(args, "-l", strconv.Itoa(s.cfg.MaxPages))
	}
	args = append(args, path, prefix)
	if _, errb, err := s.runner.Run(ctx, s.cfg.Pdftoppm, args...); err != nil {
		return "", 0, stderrWarning(errb), err
	}

	// prefix-1.png, prefix-2.png, ... (zero padded when there are 10+ pages)
	matches, _ := filepath.Glob(prefix + "-*.png")
	sort.Strings(matches)
	if len(matches) == 0 {
		return "", 0, []string{"pdftoppm produced no images"}, fmt.Errorf("no pages rendered")
	}

	var b strings.Builder
	for _, img := range matches {
		txt, w, err := s.tesseractOCR(ctx, img)
		warnings = append(warnings, w...)
		if err != nil {
			warnings = append(warnings, err.Error())
			continue
		}
		if b.Len() > 0 {
			b.WriteString("\n\f\n")
		}
		b.WriteString(txt)
	}
	return b.String(), len(matches), warnings, nil
}

func stderrWarning(errb []byte) []string {
	s := strings.TrimSpace(string(errb))
	if s == "" {
		return nil
	}
	return []string{truncate(s, 300)}
}
