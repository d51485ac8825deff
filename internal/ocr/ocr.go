package ocr

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"sync"
	"time"

	"github.com/joseph-ayodele/household-extractor/constants"
	"github.com/joseph-ayodele/household-extractor/internal/extract"
)

var (
	ErrNotReady      = errors.New("ocr service not initialised")
	ErrShutdown      = errors.New("ocr service shut down")
	ErrUnsupported   = errors.New("unsupported file type")
	ErrUnreadablePDF = errors.New("pdf has no readable text")
)

type Config struct {
	Pdftotext string // binary name or absolute path; if empty -> "pdftotext"
	Pdftoppm  string // binary name or absolute path; if empty -> "pdftoppm"
	Tesseract string // binary name or absolute path; if empty -> "tesseract"

	TesseractLang string // default "eng"
	TessdataDir   string
	DPI           int // rasterization DPI for scanned PDFs, default 300
	MaxPages      int // 0 = no limit

	HeicConverter       string // "heif-convert" | "magick" | "sips"
	EnableTSVConfidence bool
	MaxProcs            int // concurrent external tools, default runtime.NumCPU()

	ScratchDir string // parent of the per-service temp dir; "" = os.TempDir()
}

type ExtractionResult struct {
	Text       string        `json:"text"`
	Pages      int           `json:"pages"`
	SourceType string        `json:"sourceType"` // constants.PDF | IMAGE | TXT | HTML
	Method     string        `json:"method"`     // "pdf-text" | "pdf-layout" | "pdf-ocr" | "image-ocr" | "plain"
	Duration   time.Duration `json:"durationNs"`
	Warnings   []string      `json:"warnings"`
	Confidence float32       `json:"confidence"`
}

const (
	MethodPDFText   = "pdf-text"
	MethodPDFLayout = "pdf-layout"
	MethodPDFOCR    = "pdf-ocr"
	MethodImageOCR  = "image-ocr"
	MethodPlain     = "plain"
)

type state int

const (
	stateNew state = iota
	stateReady
	stateClosed
)

// Service turns documents into text. It owns a scratch directory between Init and
// Shutdown; calls outside that window fail with ErrNotReady or ErrShutdown.
type Service struct {
	cfg    Config
	runner Runner
	logger *slog.Logger

	mu      sync.RWMutex
	state   state
	scratch string
	missing []string
}

type Option func(*Service)

// WithRunner replaces the exec-based command runner, mainly for tests.
func WithRunner(r Runner) Option {
	return func(s *Service) { s.runner = r }
}

func NewService(cfg Config, logger *slog.Logger, opts ...Option) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Pdftotext == "" {
		cfg.Pdftotext = "pdftotext"
	}
	if cfg.Pdftoppm == "" {
		cfg.Pdftoppm = "pdftoppm"
	}
	if cfg.Tesseract == "" {
		cfg.Tesseract = "tesseract"
	}
	if cfg.TesseractLang == "" {
		cfg.TesseractLang = "eng"
	}
	if cfg.DPI <= 0 {
		cfg.DPI = 300
	}
	if cfg.MaxProcs <= 0 {
		cfg.MaxProcs = runtime.NumCPU()
	}
	s := &Service{cfg: cfg, runner: newExecRunner(cfg.MaxProcs, logger), logger: logger}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Init checks the external binaries and creates the scratch directory. Missing
// binaries are not fatal: PDFs with a text layer and plain text still work.
func (s *Service) Init(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	switch s.state {
	case stateReady:
		return nil
	case stateClosed:
		return ErrShutdown
	}

	s.missing = s.missing[:0]
	for _, bin := range []string{s.cfg.Pdftotext, s.cfg.Pdftoppm, s.cfg.Tesseract} {
		if _, err := exec.LookPath(bin); err != nil {
			s.missing = append(s.missing, bin)
			s.logger.Warn("ocr.init.binary_missing", "binary", bin, "error", err)
		}
	}

	dir, err := os.MkdirTemp(s.cfg.ScratchDir, "household-ocr-*")
	if err != nil {
		return fmt.Errorf("create scratch dir: %w", err)
	}
	s.scratch = dir
	s.state = stateReady
	s.logger.Info("ocr.init.ok", "scratch", dir, "missing", len(s.missing))
	return nil
}

// Shutdown waits for in-flight extractions, removes the scratch directory and
// rejects later calls.
func (s *Service) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == stateClosed {
		return nil
	}
	s.state = stateClosed
	if s.scratch == "" {
		return nil
	}
	err := os.RemoveAll(s.scratch)
	s.scratch = ""
	if err != nil {
		return fmt.Errorf("remove scratch dir: %w", err)
	}
	s.logger.Info("ocr.shutdown.ok")
	return nil
}

// MissingBinaries lists the external tools Init could not find.
func (s *Service) MissingBinaries() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]string(nil), s.missing...)
}

func (s *Service) acquire() error {
	s.mu.RLock()
	switch s.state {
	case stateReady:
		return nil
	case stateClosed:
		s.mu.RUnlock()
		return ErrShutdown
	default:
		s.mu.RUnlock()
		return ErrNotReady
	}
}

// ExtractFile reads path and extracts its text.
func (s *Service) ExtractFile(ctx context.Context, path string) (ExtractionResult, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return ExtractionResult{}, fmt.Errorf("read %s: %w", path, err)
	}
	return s.ExtractBytes(ctx, filepath.Base(path), data)
}

// ExtractBytes picks a strategy from the extension of name.
func (s *Service) ExtractBytes(ctx context.Context, name string, data []byte) (ExtractionResult, error) {
	if err := s.acquire(); err != nil {
		return ExtractionResult{}, err
	}
	defer s.mu.RUnlock()

	start := time.Now()
	ext := constants.NormalizeExt(filepath.Ext(name))
	s.logger.Debug("ocr.extract.start", "name", name, "ext", ext, "bytes", len(data))

	var (
		res ExtractionResult
		err error
	)
	switch constants.MapExtToFormat(ext) {
	case constants.PDF:
		res, err = s.extractPDF(ctx, name, data)
	case constants.IMAGE:
		res, err = s.extractImage(ctx, name, data)
	case constants.TXT:
		res = plainResult(constants.TXT, Normalize(string(data)))
	case constants.HTML:
		text, herr := extract.HTMLToText(string(data))
		if herr != nil {
			text = string(data)
		}
		res = plainResult(constants.HTML, Normalize(text))
	default:
		s.logger.Error("ocr.extract.unsupported", "name", name, "ext", ext)
		return ExtractionResult{}, fmt.Errorf("%w: %q", ErrUnsupported, ext)
	}
	res.Duration = time.Since(start)
	if err != nil {
		s.logger.Warn("ocr.extract.failed", "name", name, "error", err, "elapsed_ms", res.Duration.Milliseconds())
		return res, err
	}
	s.logger.Info("ocr.extract.ok",
		"name", name,
		"method", res.Method,
		"pages", res.Pages,
		"chars", len(res.Text),
		"confidence", res.Confidence,
		"elapsed_ms", res.Duration.Milliseconds(),
	)
	return res, nil
}

func plainResult(source, text string) ExtractionResult {
	return ExtractionResult{
		Text:       text,
		Pages:      1,
		SourceType: source,
		Method:     MethodPlain,
		Confidence: 1,
	}
}

// writeScratch stores data under the scratch dir so external tools can read it.
func (s *Service) writeScratch(name string, data []byte) (string, func(), error) {
	f, err := os.CreateTemp(s.scratch, "in-*-"+filepath.Base(name))
	if err != nil {
		return "", nil, err
	}
	path := f.Name()
	cleanup := func() { _ = os.Remove(path) }
	if _, err := f.Write(data); err != nil {
		_ = f.Close()
		cleanup()
		return "", nil, err
	}
	if err := f.Close(); err != nil {
		cleanup()
		return "", nil, err
	}
	return path, cleanup, nil
}
