package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/joseph-ayodele/household-extractor/constants"
	"github.com/joseph-ayodele/household-extractor/internal/async"
	"github.com/joseph-ayodele/household-extractor/internal/extract"
	"github.com/joseph-ayodele/household-extractor/internal/quote"
	"github.com/joseph-ayodele/household-extractor/internal/repository"
	"github.com/joseph-ayodele/household-extractor/internal/statement"
	"github.com/joseph-ayodele/household-extractor/internal/survey"
)

// FileResult is what one processed file produced. Exactly one of the payload
// pointers is set when Err is empty.
type FileResult struct {
	Path      string                          `json:"path"`
	Kind      async.Kind                      `json:"kind"`
	RunID     uuid.UUID                       `json:"runId,omitempty"`
	Success   bool                            `json:"success"`
	Warnings  int                             `json:"warnings"`
	Err       string                          `json:"error,omitempty"`
	Statement *statement.StatementParseResult `json:"statement,omitempty"`
	Survey    *survey.SurveyParseResult       `json:"survey,omitempty"`
	Quote     *quote.ExtractedQuote           `json:"quote,omitempty"`
	Email     *extract.EmailExtraction        `json:"email,omitempty"`
}

// FileHandler is the queue handler for batch and watch runs. It routes each file
// to a parser, optionally saves the run and keeps the results for reporting.
type FileHandler struct {
	svc        *Service
	statements *statement.Parser
	surveys    *survey.Parser
	store      repository.RunStore
	logger     *slog.Logger

	mu      sync.Mutex
	results []FileResult
}

// NewFileHandler wires the parsers together. store may be nil.
func NewFileHandler(svc *Service, statements *statement.Parser, surveys *survey.Parser, store repository.RunStore, logger *slog.Logger) *FileHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &FileHandler{svc: svc, statements: statements, surveys: surveys, store: store, logger: logger}
}

var _ async.Handler = (*FileHandler)(nil)

// KindFor resolves KindAuto from the file name. Spreadsheets are statements and
// photos are receipts; PDFs and text files are told apart by name.
func KindFor(path string, kind async.Kind) async.Kind {
	if kind != async.KindAuto {
		return kind
	}
	name := strings.ToLower(filepath.Base(path))
	named := func(words ...string) bool {
		for _, w := range words {
			if strings.Contains(name, w) {
				return true
			}
		}
		return false
	}
	switch constants.MapExtToFormat(filepath.Ext(path)) {
	case constants.CSV, constants.XLSX:
		return async.KindStatement
	case constants.IMAGE:
		return async.KindReceipt
	case constants.PDF:
		switch {
		case named("survey", "homebuyer", "condition report", "condition-report", "rics"):
			return async.KindSurvey
		case named("receipt", "invoice", "quote", "quotation", "estimate"):
			return async.KindReceipt
		}
		return async.KindStatement
	default:
		switch {
		case named("survey", "homebuyer"):
			return async.KindSurvey
		case named("quote", "quotation", "invoice", "estimate", "receipt"):
			return async.KindQuote
		}
		return async.KindEmail
	}
}

func (h *FileHandler) Handle(ctx context.Context, job async.Job) error {
	kind := KindFor(job.Path, job.Kind)
	res := FileResult{Path: job.Path, Kind: kind}
	name := filepath.Base(job.Path)

	data, err := os.ReadFile(job.Path)
	if err != nil {
		res.Err = err.Error()
		h.record(res)
		return fmt.Errorf("read %s: %w", job.Path, err)
	}

	var (
		method  = string(constants.MethodRegex)
		payload any
	)
	switch kind {
	case async.KindStatement:
		r := h.statements.Parse(ctx, statement.Input{FileName: name, Data: data})
		res.Statement, payload = &r, r
		res.Success, res.Warnings = r.Success, len(r.Warnings)+len(r.Errors)
		method = r.Metadata.Method
		if !r.Success {
			res.Err = strings.Join(r.Errors, "; ")
		}
	case async.KindSurvey:
		r := h.surveys.Parse(ctx, survey.Input{FileName: name, Data: data})
		res.Survey, payload = &r, r
		res.Success, res.Warnings = r.Success, len(r.Warnings)+len(r.Errors)
		method = r.Metadata.Method
		if !r.Success {
			res.Err = strings.Join(r.Errors, "; ")
		}
	case async.KindReceipt:
		q, err := h.svc.ExtractReceiptBytes(ctx, name, data, job.Mode)
		if err != nil {
			res.Err = err.Error()
			h.record(res)
			return err
		}
		res.Quote, payload = &q, q
		res.Success, res.Warnings = true, len(q.Warnings)
		method = string(q.Method)
	case async.KindQuote:
		q := h.svc.ExtractQuote(ctx, Request{Text: string(data), Mode: job.Mode, Anchor: h.svc.now()})
		res.Quote, payload = &q, q
		res.Success, res.Warnings = true, len(q.Warnings)
		method = string(q.Method)
	case async.KindEmail:
		e := h.svc.ExtractEmail(ctx, Request{Text: string(data), Mode: job.Mode, Anchor: h.svc.now()})
		res.Email, payload = &e, e
		res.Success, res.Warnings = true, len(e.Warnings)
		method = string(e.Method)
	default:
		res.Err = fmt.Sprintf("unknown kind %q", kind)
		h.record(res)
		return fmt.Errorf("%s: %s", job.Path, res.Err)
	}

	if h.store != nil {
		run, err := repository.NewRun(runKind(kind), name, method, res.Success, res.Warnings, payload)
		if err == nil {
			err = h.store.SaveRun(ctx, run)
		}
		if err != nil {
			h.logger.Error("pipeline.file.save_failed", "path", job.Path, "error", err)
		} else {
			res.RunID = run.ID
		}
	}
	h.record(res)
	h.logger.Info("pipeline.file.done", "path", job.Path, "kind", kind, "success", res.Success, "warnings", res.Warnings)
	if !res.Success {
		return fmt.Errorf("%s: %s", job.Path, res.Err)
	}
	return nil
}

func (h *FileHandler) record(r FileResult) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.results = append(h.results, r)
}

// Results returns everything handled so far, ordered by path.
func (h *FileHandler) Results() []FileResult {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := append([]FileResult(nil), h.results...)
	sort.Slice(out, func(i, j int) bool { return out[i].Path < out[j].Path })
	return out
}

// Transactions flattens the statement results, in path order.
func (h *FileHandler) Transactions() []statement.Transaction {
	var out []statement.Transaction
	for _, r := range h.Results() {
		if r.Statement != nil {
			out = append(out, r.Statement.Transactions...)
		}
	}
	return out
}

func runKind(k async.Kind) constants.RunKind {
	switch k {
	case async.KindStatement:
		return constants.RunStatement
	case async.KindSurvey:
		return constants.RunSurvey
	case async.KindReceipt:
		return constants.RunReceipt
	case async.KindQuote:
		return constants.RunQuote
	default:
		return constants.RunEmail
	}
}
