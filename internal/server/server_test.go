package server

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	"github.com/joseph-ayodele/household-extractor/internal/common"
	"github.com/joseph-ayodele/household-extractor/internal/pipeline"
	repo "github.com/joseph-ayodele/household-extractor/internal/repository"
	"github.com/joseph-ayodele/household-extractor/internal/statement"
	"github.com/joseph-ayodele/household-extractor/internal/survey"
	"github.com/joseph-ayodele/household-extractor/internal/valuation"
)

const bathroomQuote = "Quote: bathroom refit. Labour: £450.00. Materials: £230.50. VAT (20%): £136.10. Total: £816.60"

const statementCSV = "Date,Description,Amount,Balance\n" +
	"03/03/2025,CARD PAYMENT TO TESCO STORES 3297,-45.20,1204.80\n" +
	"04/03/2025,ACME LTD SALARY,2500.00,3704.80\n"

func newTestServer(t *testing.T, withStore bool, cfg common.ServerConfig) (*Server, repo.RunStore) {
	t.Helper()
	vals := valuation.NewService(valuation.Config{}, nil)
	require.NoError(t, vals.Init(context.Background()))

	deps := Deps{
		Pipeline:   pipeline.NewService(pipeline.Config{}, nil),
		Statements: statement.NewParser(nil, nil),
		Surveys:    survey.NewParser(nil, nil),
		Valuations: vals,
	}
	if withStore {
		store, err := repo.OpenSQLite(filepath.Join(t.TempDir(), "runs.db"), nil)
		require.NoError(t, err)
		t.Cleanup(store.Close)
		deps.Store = store
	}
	s := New(cfg, deps, nil)
	s.now = func() time.Time { return time.Date(2025, 3, 5, 0, 0, 0, 0, time.UTC) }
	return s, deps.Store
}

func doJSON(t *testing.T, h http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if s, ok := body.(string); ok {
		buf.WriteString(s)
	} else if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func upload(t *testing.T, h http.Handler, path, name, content string, fields map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for k, v := range fields {
		require.NoError(t, mw.WriteField(k, v))
	}
	if name != "" {
		fw, err := mw.CreateFormFile("file", name)
		require.NoError(t, err)
		_, err = fw.Write([]byte(content))
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, path, &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func TestHealth(t *testing.T) {
	s, _ := newTestServer(t, false, common.ServerConfig{})
	rec := doJSON(t, s.Router(), http.MethodGet, "/health", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	body := decode[healthResponse](t, rec)
	assert.Equal(t, healthResponse{Status: "ok", Valuation: true}, body)
	assert.NotEmpty(t, rec.Header().Get("Content-Type"))
}

func TestExtractQuoteSavesRun(t *testing.T) {
	s, _ := newTestServer(t, true, common.ServerConfig{})
	h := s.Router()

	rec := doJSON(t, h, http.MethodPost, "/v1/extract/quote", textRequest{Text: bathroomQuote, Mode: "regex"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	runID := rec.Header().Get("X-Run-ID")
	require.NotEmpty(t, runID)

	var q struct {
		Total  json.Number `json:"total"`
		Method string      `json:"method"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &q))
	assert.Equal(t, "816.60", q.Total.String())
	assert.Equal(t, "regex", q.Method)

	rec = doJSON(t, h, http.MethodGet, "/v1/runs?kind=quote", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	runs := decode[runsResponse](t, rec)
	require.Len(t, runs.Runs, 1)
	assert.Equal(t, runID, runs.Runs[0].ID.String())

	rec = doJSON(t, h, http.MethodGet, "/v1/runs/"+runID, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	run := decode[repo.Run](t, rec)
	assert.Equal(t, "regex", run.Method)
	assert.Contains(t, string(run.Payload), `"total":816.60`)

	rec = doJSON(t, h, http.MethodGet, "/v1/runs?kind=statement", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, decode[runsResponse](t, rec).Runs)
}

func TestRunsErrors(t *testing.T) {
	s, _ := newTestServer(t, true, common.ServerConfig{})
	h := s.Router()

	tests := []struct {
		name string
		path string
		code int
	}{
		{"bad id", "/v1/runs/not-a-uuid", http.StatusBadRequest},
		{"unknown id", "/v1/runs/2b1f6c1e-7d7e-4a53-9d55-0d1f0c7a9a11", http.StatusNotFound},
		{"bad kind", "/v1/runs?kind=invoice", http.StatusBadRequest},
		{"bad limit", "/v1/runs?limit=ten", http.StatusBadRequest},
		{"limit too big", "/v1/runs?limit=5000", http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := doJSON(t, h, http.MethodGet, tt.path, nil)
			assert.Equal(t, tt.code, rec.Code, rec.Body.String())
		})
	}

	noStore, _ := newTestServer(t, false, common.ServerConfig{})
	rec := doJSON(t, noStore.Router(), http.MethodGet, "/v1/runs", nil)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Equal(t, "STORE_DISABLED", decode[errorBody](t, rec).Code)
}

func TestExtractEmail(t *testing.T) {
	s, _ := newTestServer(t, false, common.ServerConfig{})
	h := s.Router()

	rec := doJSON(t, h, http.MethodPost, "/v1/extract/email", textRequest{
		Text:   "Hi, call me on 07700 900123. The survey is £350.",
		Sender: "jo@example.com",
		Anchor: "2025-03-05",
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Empty(t, rec.Header().Get("X-Run-ID"))
	assert.Contains(t, rec.Body.String(), `"method":"regex"`)
}

func TestBadRequests(t *testing.T) {
	s, _ := newTestServer(t, false, common.ServerConfig{})
	h := s.Router()

	tests := []struct {
		name string
		path string
		body any
		code string
	}{
		{"blank email text", "/v1/extract/email", `{"text":"   \n "}`, "VALIDATION_ERROR"},
		{"blank quote text", "/v1/extract/quote", `{"text":"   \n "}`, "VALIDATION_ERROR"},
		{"missing text", "/v1/extract/quote", `{}`, "VALIDATION_ERROR"},
		{"bad mode", "/v1/extract/email", textRequest{Text: "x", Mode: "turbo"}, "VALIDATION_ERROR"},
		{"bad anchor", "/v1/extract/email", textRequest{Text: "x", Anchor: "05/03/2025"}, "VALIDATION_ERROR"},
		{"sender on quote", "/v1/extract/quote", textRequest{Text: "x", Sender: "a@b.c"}, "INVALID_ARGUMENT"},
		{"unknown field", "/v1/extract/quote", `{"text":"x","colour":"red"}`, "INVALID_JSON"},
		{"empty body", "/v1/redact", "", "INVALID_JSON"},
		{"bad postcode", "/v1/valuations", valuation.Request{Postcode: "not a postcode"}, "VALIDATION_ERROR"},
		{"bad month", "/v1/budget/summary", budgetRequest{Year: 2025, Month: 13}, "VALIDATION_ERROR"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := doJSON(t, h, http.MethodPost, tt.path, tt.body)
			require.Equal(t, http.StatusBadRequest, rec.Code, rec.Body.String())
			body := decode[errorBody](t, rec)
			assert.Equal(t, tt.code, body.Code)
			assert.NotEmpty(t, body.RequestID)
		})
	}
}

func TestParseStatementUpload(t *testing.T) {
	s, _ := newTestServer(t, true, common.ServerConfig{})
	h := s.Router()

	rec := upload(t, h, "/v1/statements", "march.csv", statementCSV, map[string]string{"bank": "Monzo"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.NotEmpty(t, rec.Header().Get("X-Run-ID"))
	res := decode[statement.StatementParseResult](t, rec)
	assert.True(t, res.Success)
	require.Len(t, res.Transactions, 2)
	assert.Equal(t, "45.20", res.Transactions[0].Amount.String())

	rec = upload(t, h, "/v1/statements", "junk.csv", "foo,bar\n1,2\n", nil)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.False(t, decode[statement.StatementParseResult](t, rec).Success)

	rec = upload(t, h, "/v1/statements", "", "", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "INVALID_UPLOAD", decode[errorBody](t, rec).Code)
}

func TestUploadTooLarge(t *testing.T) {
	s, _ := newTestServer(t, false, common.ServerConfig{MaxUploadBytes: 64})
	rec := upload(t, s.Router(), "/v1/statements", "big.csv", strings.Repeat(statementCSV, 10), nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestParseSurveyUpload(t *testing.T) {
	s, _ := newTestServer(t, false, common.ServerConfig{})
	rec := upload(t, s.Router(), "/v1/surveys", "survey.txt",
		"Roof\nCondition rating 3\nSeveral slipped slates. Replace slipped slates and repoint the ridge.\n", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.True(t, decode[survey.SurveyParseResult](t, rec).Success)
}

func TestReceiptWithoutOCR(t *testing.T) {
	s, _ := newTestServer(t, false, common.ServerConfig{})
	h := s.Router()

	rec := upload(t, h, "/v1/receipts", "till.png", "\x89PNG", nil)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Equal(t, "OCR_DISABLED", decode[errorBody](t, rec).Code)

	rec = upload(t, h, "/v1/receipts", "till.exe", "MZ", nil)
	assert.Equal(t, http.StatusUnsupportedMediaType, rec.Code)
}

func TestValuation(t *testing.T) {
	s, _ := newTestServer(t, true, common.ServerConfig{})
	rec := doJSON(t, s.Router(), http.MethodPost, "/v1/valuations", valuation.Request{Postcode: "SE20"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.NotEmpty(t, rec.Header().Get("X-Run-ID"))

	v := decode[valuation.Valuation](t, rec)
	assert.Equal(t, "362000.00", v.Estimate.String())
	assert.Equal(t, valuation.MatchExact, v.Match)

	require.NoError(t, s.deps.Valuations.Shutdown(context.Background()))
	rec = doJSON(t, s.Router(), http.MethodPost, "/v1/valuations", valuation.Request{Postcode: "SE20"})
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestBudgetSummary(t *testing.T) {
	s, _ := newTestServer(t, false, common.ServerConfig{})
	h := s.Router()

	body := `{
		"year": 2025, "month": 3,
		"entries": [
			{"id": "rent", "description": "Rent", "amount": 1200, "direction": "debit", "category": "housing", "recurrence": "monthly", "startDate": "2025-01-01"},
			{"id": "salary", "description": "Acme salary", "amount": 2500, "direction": "credit", "category": "income", "recurrence": "monthly", "startDate": "2025-01-28"}
		],
		"transactions": [
			{"id": "t1", "date": "2025-03-28", "description": "ACME SALARY", "amount": 2500, "direction": "credit", "category": "income", "source": "bank_csv"},
			{"id": "t2", "date": "2025-03-28", "description": "ACME SALARY", "amount": 2500, "direction": "credit", "category": "income", "source": "bank_csv"}
		],
		"dedupe": true
	}`
	rec := doJSON(t, h, http.MethodPost, "/v1/budget/summary", body)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var got struct {
		Income   json.Number `json:"income"`
		Expenses json.Number `json:"expenses"`
		Net      json.Number `json:"net"`
		Dropped  int         `json:"duplicatesDropped"`
		Planned  []struct {
			Matched bool `json:"matched"`
		} `json:"planned"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, "2500.00", got.Income.String())
	assert.Equal(t, "1200.00", got.Expenses.String())
	assert.Equal(t, "1300.00", got.Net.String())
	assert.Equal(t, 1, got.Dropped)
	require.Len(t, got.Planned, 2)

	rec = doJSON(t, h, http.MethodPost, "/v1/budget/summary",
		`{"year":2025,"month":3,"entries":[{"description":"Rent","amount":1,"direction":"sideways","startDate":"2025-01-01"}]}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, decode[errorBody](t, rec).Error, "entries[0].direction")
}

func TestBudgetRecurring(t *testing.T) {
	s, _ := newTestServer(t, false, common.ServerConfig{})
	rec := doJSON(t, s.Router(), http.MethodPost, "/v1/budget/recurring", recurringRequest{})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"entries":[]}`, rec.Body.String())
}

func TestRedact(t *testing.T) {
	s, _ := newTestServer(t, false, common.ServerConfig{})
	rec := doJSON(t, s.Router(), http.MethodPost, "/v1/redact", redactBody{Text: "write to jo@example.com today"})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "write to [EMAIL] today", decode[redactBody](t, rec).Text)
}

func TestExports(t *testing.T) {
	s, _ := newTestServer(t, false, common.ServerConfig{})
	h := s.Router()

	rec := doJSON(t, h, http.MethodPost, "/v1/exports/transactions.xlsx",
		`{"transactions":[{"id":"t1","date":"2025-03-03","description":"TESCO","amount":45.2,"direction":"debit","category":"groceries","source":"bank_csv"}]}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, xlsxContentType, rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Header().Get("Content-Disposition"), "transactions.xlsx")
	assert.True(t, bytes.HasPrefix(rec.Body.Bytes(), []byte("PK")))

	q := doJSON(t, h, http.MethodPost, "/v1/extract/quote", textRequest{Text: bathroomQuote})
	require.Equal(t, http.StatusOK, q.Code)

	rec = doJSON(t, h, http.MethodPost, "/v1/exports/quote.pdf", q.Body.String())
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "application/pdf", rec.Header().Get("Content-Type"))
	assert.True(t, bytes.HasPrefix(rec.Body.Bytes(), []byte("%PDF-")))

	rec = doJSON(t, h, http.MethodPost, "/v1/exports/quote.xlsx", q.Body.String())
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.True(t, bytes.HasPrefix(rec.Body.Bytes(), []byte("PK")))
}

func TestRateLimit(t *testing.T) {
	s, _ := newTestServer(t, false, common.ServerConfig{RateLimitRPS: 0.001, RateLimitBurst: 1})
	h := s.Router()

	assert.Equal(t, http.StatusOK, doJSON(t, h, http.MethodGet, "/health", nil).Code)
	rec := doJSON(t, h, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "RATE_LIMITED", decode[errorBody](t, rec).Code)
}

func TestRun(t *testing.T) {
	s, _ := newTestServer(t, false, common.ServerConfig{})
	httpLis, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	grpcLis, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	g := NewGRPCServer(nil)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- Run(ctx, NewHTTPServer(s.Router(), time.Second), g, Listeners{HTTP: httpLis, GRPC: grpcLis}, nil)
	}()

	require.Eventually(t, func() bool {
		resp, err := http.Get("http://" + httpLis.Addr().String() + "/health")
		if err != nil {
			return false
		}
		resp.Body.Close()
		return resp.StatusCode == http.StatusOK
	}, 5*time.Second, 20*time.Millisecond)

	conn, err := grpc.NewClient(grpcLis.Addr().String(), grpc.WithTransportCredentials(insecure.NewCredentials()))
	require.NoError(t, err)
	defer conn.Close()
	cctx, ccancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer ccancel()
	resp, err := healthpb.NewHealthClient(conn).Check(cctx, &healthpb.HealthCheckRequest{})
	require.NoError(t, err)
	assert.Equal(t, healthpb.HealthCheckResponse_SERVING, resp.Status)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(10 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
}
