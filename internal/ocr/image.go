package ocr

import (
	"context"
	"fmt"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/joseph-ayodele/household-extractor/constants"
)

func (s *Service) extractImage(ctx context.Context, name string, data []byte) (ExtractionResult, error) {
	res := ExtractionResult{SourceType: constants.IMAGE, Pages: 1, Method: MethodImageOCR}

	path, cleanup, err := s.writeScratch(name, data)
	if err != nil {
		return res, fmt.Errorf("stage image: %w", err)
	}
	defer cleanup()

	if constants.IsHEICExt(filepath.Ext(name)) {
		png, w, done, err := convertHEICtoPNG(ctx, s.runner, s.cfg.HeicConverter, path, s.scratch)
		res.Warnings = append(res.Warnings, w...)
		if done != nil {
			defer done()
		}
		if err != nil {
			return res, err
		}
		path = png
	}

	txt, w, err := s.tesseractOCR(ctx, path)
	res.Warnings = append(res.Warnings, w...)
	if err != nil {
		return res, err
	}
	res.Text = Normalize(txt)

	heur := heuristicConfidence(res.Text)
	res.Confidence = heur
	if s.cfg.EnableTSVConfidence {
		if c, err := s.tesseractTSVConfidence(ctx, path); err == nil && c > 0 {
			res.Confidence = min(0.7*c+0.3*heur, 1)
		} else if err != nil {
			res.Warnings = append(res.Warnings, err.Error())
		}
	}
	return res, nil
}

func (s *Service) tesseractArgs(path string, extra ...string) []string {
	// tesseract <file> stdout -l <lang> [--tessdata-dir d] [extra]
	args := []string{path, "stdout", "-l", s.cfg.TesseractLang}
	if s.cfg.TessdataDir != "" {
		args = append(args, "--tessdata-dir", s.cfg.TessdataDir)
	}
	return append(args, extra...)
}

func (s *Service) tesseractOCR(ctx context.Context, path string) (string, []string, error) {
	out, errb, err := s.runner.Run(ctx, s.cfg.Tesseract, s.tesseractArgs(path)...)
	if err != nil {
		return "", stderrWarning(errb), err
	}
	return reBoxNoise.ReplaceAllString(string(out), ""), nil, nil
}

// tesseractTSVConfidence runs tesseract in TSV mode and returns the mean word confidence in 0..1.
func (s *Service) tesseractTSVConfidence(ctx context.Context, path string) (float32, error) {
	out, _, err := s.runner.Run(ctx, s.cfg.Tesseract, s.tesseractArgs(path, "tsv")...)
	if err != nil {
		return 0, fmt.Errorf("tsv confidence: %w", err)
	}
	var sum, n float64
	for i, ln := range strings.Split(string(out), "\n") {
		if i == 0 || ln == "" {
			continue
		}
		cols := strings.Split(ln, "\t")
		if len(cols) < 12 {
			continue
		}
		conf := cols[10]
		if conf == "" || conf == "-1" {
			continue
		}
		if v, err := strconv.ParseFloat(conf, 64); err == nil && v >= 0 {
			sum += v
			n++
		}
	}
	if n == 0 {
		return 0, nil
	}
	return float32(sum / n / 100), nil
}
