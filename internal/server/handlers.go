package server

import (
	"context"
	"errors"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/joseph-ayodele/household-extractor/constants"
	"github.com/joseph-ayodele/household-extractor/internal/budget"
	"github.com/joseph-ayodele/household-extractor/internal/common"
	"github.com/joseph-ayodele/household-extractor/internal/pipeline"
	"github.com/joseph-ayodele/household-extractor/internal/quote"
	"github.com/joseph-ayodele/household-extractor/internal/redact"
	repo "github.com/joseph-ayodele/household-extractor/internal/repository"
	"github.com/joseph-ayodele/household-extractor/internal/statement"
	"github.com/joseph-ayodele/household-extractor/internal/survey"
	"github.com/joseph-ayodele/household-extractor/internal/utils"
	"github.com/joseph-ayodele/household-extractor/internal/valuation"
)

const (
	maxTextLength = 200_000
	maxJSONBytes  = 4 << 20

	xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
)

var modes = []string{string(constants.ModeAuto), string(constants.ModeAI), string(constants.ModeRegex)}

func badRequest(msg string) error {
	return common.NewAppError("INVALID_ARGUMENT", msg, common.ErrInvalidInput)
}

type healthResponse struct {
	Status    string `json:"status"`
	AI        bool   `json:"ai"`
	Valuation bool   `json:"valuation"`
	Store     bool   `json:"store"`
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, healthResponse{
		Status:    "ok",
		AI:        s.deps.Pipeline != nil && s.deps.Pipeline.AIEnabled(),
		Valuation: s.deps.Valuations != nil && s.deps.Valuations.Ready(),
		Store:     s.deps.Store != nil,
	})
}

type textRequest struct {
	Text    string `json:"text"`
	Subject string `json:"subject,omitempty"`
	Sender  string `json:"sender,omitempty"`
	Mode    string `json:"mode,omitempty"`
	Anchor  string `json:"anchor,omitempty"`
}

// pipelineRequest validates body and resolves the mode and anchor date.
func (s *Server) pipelineRequest(body textRequest) (pipeline.Request, error) {
	err := common.NewValidator().
		Field("text", body.Text, common.Required, common.MaxLength(maxTextLength)).
		Field("subject", body.Subject, common.MaxLength(1000)).
		Field("sender", body.Sender, common.MaxLength(320)).
		Field("mode", body.Mode, common.OneOf(modes...)).
		Field("anchor", body.Anchor, common.DateYMD).
		Err()
	if err != nil {
		return pipeline.Request{}, err
	}
	mode, _ := constants.ParseMode(body.Mode)
	anchor := s.now()
	if body.Anchor != "" {
		anchor, _ = utils.ParseYMD(body.Anchor)
	}
	return pipeline.Request{
		Text:    body.Text,
		Subject: body.Subject,
		Sender:  body.Sender,
		Mode:    mode,
		Anchor:  anchor,
	}, nil
}

func (s *Server) extractEmail(w http.ResponseWriter, r *http.Request) {
	var body textRequest
	if err := decodeJSON(w, r, maxJSONBytes, &body); err != nil {
		writeError(w, r, s.logger, err)
		return
	}
	req, err := s.pipelineRequest(body)
	if err != nil {
		writeError(w, r, s.logger, err)
		return
	}
	out := s.deps.Pipeline.ExtractEmail(r.Context(), req)
	s.saveRun(r.Context(), w, constants.RunEmail, body.Sender, string(out.Method), true, len(out.Warnings), out)
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) extractQuote(w http.ResponseWriter, r *http.Request) {
	var body textRequest
	if err := decodeJSON(w, r, maxJSONBytes, &body); err != nil {
		writeError(w, r, s.logger, err)
		return
	}
	if body.Subject != "" || body.Sender != "" {
		writeError(w, r, s.logger, badRequest("subject and sender apply to emails only"))
		return
	}
	req, err := s.pipelineRequest(body)
	if err != nil {
		writeError(w, r, s.logger, err)
		return
	}
	q := s.deps.Pipeline.ExtractQuote(r.Context(), req)
	s.saveRun(r.Context(), w, constants.RunQuote, q.ContractorName, string(q.Method), true, len(q.Warnings), q)
	writeJSON(w, http.StatusOK, q)
}

func (s *Server) parseStatement(w http.ResponseWriter, r *http.Request) {
	name, data, err := readUpload(w, r, s.cfg.MaxUploadBytes)
	if err != nil {
		writeError(w, r, s.logger, err)
		return
	}
	bank := strings.TrimSpace(r.FormValue("bank"))
	if err := common.NewValidator().Field("bank", bank, common.MaxLength(64)).Err(); err != nil {
		writeError(w, r, s.logger, err)
		return
	}
	res := s.deps.Statements.Parse(r.Context(), statement.Input{FileName: name, Data: data, Bank: bank})
	s.saveRun(r.Context(), w, constants.RunStatement, name, res.Metadata.Method, res.Success, len(res.Warnings)+len(res.Errors), res)
	status := http.StatusOK
	if !res.Success {
		status = http.StatusUnprocessableEntity
	}
	writeJSON(w, status, res)
}

func (s *Server) parseSurvey(w http.ResponseWriter, r *http.Request) {
	name, data, err := readUpload(w, r, s.cfg.MaxUploadBytes)
	if err != nil {
		writeError(w, r, s.logger, err)
		return
	}
	res := s.deps.Surveys.Parse(r.Context(), survey.Input{FileName: name, Data: data})
	s.saveRun(r.Context(), w, constants.RunSurvey, name, res.Metadata.Method, res.Success, len(res.Warnings)+len(res.Errors), res)
	status := http.StatusOK
	if !res.Success {
		status = http.StatusUnprocessableEntity
	}
	writeJSON(w, status, res)
}

func (s *Server) extractReceipt(w http.ResponseWriter, r *http.Request) {
	name, data, err := readUpload(w, r, s.cfg.MaxUploadBytes)
	if err != nil {
		writeError(w, r, s.logger, err)
		return
	}
	if _, ok := constants.AllowedExtensions[constants.NormalizeExt(filepath.Ext(name))]; !ok {
		writeError(w, r, s.logger, common.NewAppError("UNSUPPORTED_FILE", "unsupported receipt file "+name, common.ErrUnsupported))
		return
	}
	modeStr := r.FormValue("mode")
	if err := common.NewValidator().Field("mode", modeStr, common.OneOf(modes...)).Err(); err != nil {
		writeError(w, r, s.logger, err)
		return
	}
	mode, _ := constants.ParseMode(modeStr)
	q, err := s.deps.Pipeline.ExtractReceiptBytes(r.Context(), name, data, mode)
	if err != nil {
		if errors.Is(err, pipeline.ErrNoOCR) {
			err = common.NewAppError("OCR_DISABLED", "receipt OCR is not configured", common.ErrNotReady)
		} else {
			err = common.NewAppError("OCR_FAILED", "could not read text from "+name, err)
		}
		writeError(w, r, s.logger, err)
		return
	}
	s.saveRun(r.Context(), w, constants.RunReceipt, name, string(q.Method), true, len(q.Warnings), q)
	writeJSON(w, http.StatusOK, q)
}

func (s *Server) estimateValuation(w http.ResponseWriter, r *http.Request) {
	var req valuation.Request
	if err := decodeJSON(w, r, maxJSONBytes, &req); err != nil {
		writeError(w, r, s.logger, err)
		return
	}
	v, err := s.deps.Valuations.Estimate(r.Context(), req)
	if err != nil {
		writeError(w, r, s.logger, err)
		return
	}
	s.saveRun(r.Context(), w, constants.RunValuation, req.Postcode, string(v.Match), true, len(v.Warnings), v)
	writeJSON(w, http.StatusOK, v)
}

type budgetRequest struct {
	Year         int                     `json:"year"`
	Month        int                     `json:"month"`
	Entries      []budget.Entry          `json:"entries"`
	Transactions []statement.Transaction `json:"transactions"`
	Dedupe       bool                    `json:"dedupe,omitempty"`
}

type budgetResponse struct {
	budget.Summary
	Dropped int `json:"duplicatesDropped,omitempty"`
}

func (s *Server) budgetSummary(w http.ResponseWriter, r *http.Request) {
	var body budgetRequest
	if err := decodeJSON(w, r, maxJSONBytes, &body); err != nil {
		writeError(w, r, s.logger, err)
		return
	}
	v := common.NewValidator().
		Field("year", body.Year, common.IntRange(1900, 2200)).
		Field("month", body.Month, common.IntRange(1, 12))
	for i, e := range body.Entries {
		field := "entries[" + strconv.Itoa(i) + "]"
		v.Field(field+".description", e.Description, common.Required, common.MaxLength(500)).
			Field(field+".direction", string(e.Direction), common.Required, common.OneOf(string(constants.Debit), string(constants.Credit))).
			Field(field+".recurrence", string(e.Recurrence), common.OneOf(budget.Recurrences()...)).
			Field(field+".startDate", e.StartDate, common.Required, common.DateYMD).
			Field(field+".endDate", e.EndDate, common.DateYMD)
	}
	if err := v.Err(); err != nil {
		writeError(w, r, s.logger, err)
		return
	}

	txs := body.Transactions
	var dropped []statement.Transaction
	if body.Dedupe {
		txs, dropped = budget.Dedupe(txs)
	}
	sum := budget.MonthSummary(body.Entries, txs, body.Year, time.Month(body.Month))
	common.LoggerFromContext(r.Context(), s.logger).Info("budget.summary",
		"year", body.Year, "month", body.Month, "planned", len(sum.Planned), "actual", len(sum.Actual),
		"net", sum.Net.String(), "dropped", len(dropped))
	writeJSON(w, http.StatusOK, budgetResponse{Summary: sum, Dropped: len(dropped)})
}

type recurringRequest struct {
	Transactions []statement.Transaction `json:"transactions"`
}

type recurringResponse struct {
	Entries []budget.Entry `json:"entries"`
}

func (s *Server) budgetRecurring(w http.ResponseWriter, r *http.Request) {
	var body recurringRequest
	if err := decodeJSON(w, r, maxJSONBytes, &body); err != nil {
		writeError(w, r, s.logger, err)
		return
	}
	entries := budget.DetectRecurring(body.Transactions)
	if entries == nil {
		entries = []budget.Entry{}
	}
	writeJSON(w, http.StatusOK, recurringResponse{Entries: entries})
}

type redactBody struct {
	Text string `json:"text"`
}

func (s *Server) redactText(w http.ResponseWriter, r *http.Request) {
	var body redactBody
	if err := decodeJSON(w, r, maxJSONBytes, &body); err != nil {
		writeError(w, r, s.logger, err)
		return
	}
	if err := common.NewValidator().Field("text", body.Text, common.MaxLength(maxTextLength)).Err(); err != nil {
		writeError(w, r, s.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, redactBody{Text: redact.Redact(body.Text)})
}

var runKinds = []string{
	string(constants.RunEmail),
	string(constants.RunQuote),
	string(constants.RunReceipt),
	string(constants.RunStatement),
	string(constants.RunSurvey),
	string(constants.RunValuation),
}

type runsResponse struct {
	Runs []repo.Run `json:"runs"`
}

func (s *Server) storeOrError() (repo.RunStore, error) {
	if s.deps.Store == nil {
		return nil, common.NewAppError("STORE_DISABLED", "run persistence is not configured", common.ErrNotReady)
	}
	return s.deps.Store, nil
}

func (s *Server) listRuns(w http.ResponseWriter, r *http.Request) {
	store, err := s.storeOrError()
	if err != nil {
		writeError(w, r, s.logger, err)
		return
	}
	kind := r.URL.Query().Get("kind")
	limit := 0
	if l := r.URL.Query().Get("limit"); l != "" {
		if limit, err = strconv.Atoi(l); err != nil {
			writeError(w, r, s.logger, badRequest("limit must be an integer"))
			return
		}
	}
	err = common.NewValidator().
		Field("kind", kind, common.OneOf(runKinds...)).
		Field("limit", limit, common.IntRange(0, 500)).
		Err()
	if err != nil {
		writeError(w, r, s.logger, err)
		return
	}
	runs, err := store.ListRuns(r.Context(), constants.RunKind(kind), limit)
	if err != nil {
		writeError(w, r, s.logger, err)
		return
	}
	if runs == nil {
		runs = []repo.Run{}
	}
	writeJSON(w, http.StatusOK, runsResponse{Runs: runs})
}

func (s *Server) getRun(w http.ResponseWriter, r *http.Request) {
	store, err := s.storeOrError()
	if err != nil {
		writeError(w, r, s.logger, err)
		return
	}
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, s.logger, badRequest("run id must be a UUID"))
		return
	}
	run, err := store.GetRun(r.Context(), id)
	if err != nil {
		writeError(w, r, s.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, run)
}

type transactionsExport struct {
	Transactions []statement.Transaction `json:"transactions"`
}

func (s *Server) exportTransactions(w http.ResponseWriter, r *http.Request) {
	var body transactionsExport
	if err := decodeJSON(w, r, maxJSONBytes, &body); err != nil {
		writeError(w, r, s.logger, err)
		return
	}
	b, err := s.deps.Exports.TransactionsXLSX(body.Transactions)
	if err != nil {
		writeError(w, r, s.logger, common.WrapError(err, "build transactions workbook"))
		return
	}
	writeFile(w, xlsxContentType, "transactions.xlsx", b)
}

func (s *Server) exportQuoteXLSX(w http.ResponseWriter, r *http.Request) {
	var q quote.ExtractedQuote
	if err := decodeJSON(w, r, maxJSONBytes, &q); err != nil {
		writeError(w, r, s.logger, err)
		return
	}
	b, err := s.deps.Exports.QuoteXLSX(q)
	if err != nil {
		writeError(w, r, s.logger, common.WrapError(err, "build quote workbook"))
		return
	}
	writeFile(w, xlsxContentType, "quote.xlsx", b)
}

func (s *Server) exportQuotePDF(w http.ResponseWriter, r *http.Request) {
	var q quote.ExtractedQuote
	if err := decodeJSON(w, r, maxJSONBytes, &q); err != nil {
		writeError(w, r, s.logger, err)
		return
	}
	b, err := s.deps.Exports.QuotePDF(q)
	if err != nil {
		writeError(w, r, s.logger, common.WrapError(err, "build quote pdf"))
		return
	}
	writeFile(w, "application/pdf", "quote.pdf", b)
}

// saveRun persists result when a store is configured and exposes the run id in
// the X-Run-ID header. Failures are logged and never fail the request.
func (s *Server) saveRun(ctx context.Context, w http.ResponseWriter, kind constants.RunKind, source, method string, success bool, warnings int, result any) {
	if s.deps.Store == nil {
		return
	}
	logger := common.LoggerFromContext(ctx, s.logger)
	run, err := repo.NewRun(kind, source, method, success, warnings, result)
	if err == nil {
		err = s.deps.Store.SaveRun(ctx, run)
	}
	if err != nil {
		logger.Error("http.run.save_failed", "kind", kind, "error", err)
		return
	}
	w.Header().Set("X-Run-ID", run.ID.String())
}
