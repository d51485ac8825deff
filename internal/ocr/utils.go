package ocr

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
)

var (
	// box-drawing and block characters tesseract emits for table rules
	reBoxNoise   = regexp.MustCompile(`[\x{2500}-\x{259F}]+`)
	reTrailingWS = regexp.MustCompile(`[ \t]+\n`)
	reBlankRuns  = regexp.MustCompile(`\n{3,}`)
)

// Normalize unifies line endings, strips trailing blanks on each line and collapses
// long runs of empty lines. Form feeds (page breaks) are kept.
func Normalize(s string) string {
	s = strings.ReplaceAll(s, "\r\n", "\n")
	s = strings.ReplaceAll(s, "\r", "\n")
	s = strings.ReplaceAll(s, "\u00a0", " ")
	s = reTrailingWS.ReplaceAllString(s, "\n")
	s = reBlankRuns.ReplaceAllString(s, "\n\n")
	return strings.TrimSpace(s)
}

// convertHEICtoPNG converts a HEIC/HEIF photo to PNG inside dir.
// converter: "heif-convert" | "magick" | "sips"
//
// Returns (outPath, warnings, cleanup, err). Call cleanup() to remove the PNG.
func convertHEICtoPNG(ctx context.Context, r Runner, converter, in, dir string) (string, []string, func(), error) {
	f, err := os.CreateTemp(dir, "heic-*.png")
	if err != nil {
		return "", nil, nil, err
	}
	out := f.Name()
	_ = f.Close()
	cleanup := func() { _ = os.Remove(out) }

	var args []string
	switch converter {
	case "heif-convert":
		args = []string{in, out}
	case "magick":
		args = []string{in, out}
	case "sips":
		args = []string{"-s", "format", "png", in, "--out", out}
	default:
		return "", nil, cleanup, fmt.Errorf("HEIC not supported: set OCR HeicConverter to one of heif-convert, magick or sips")
	}
	if _, errb, err := r.Run(ctx, converter, args...); err != nil {
		return "", stderrWarning(errb), cleanup, fmt.Errorf("heic conversion: %w", err)
	}
	if st, err := os.Stat(out); err != nil || st.Size() == 0 {
		return "", nil, cleanup, fmt.Errorf("HEIC conversion produced no output in %s", filepath.Base(out))
	}
	return out, nil, cleanup, nil
}
