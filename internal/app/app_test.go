package app

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/household-extractor/constants"
	"github.com/joseph-ayodele/household-extractor/internal/common"
	"github.com/joseph-ayodele/household-extractor/internal/pipeline"
)

func testConfig(t *testing.T) *common.Config {
	return &common.Config{
		Database:   common.DatabaseConfig{Driver: "sqlite", SQLitePath: filepath.Join(t.TempDir(), "runs.db")},
		Server:     common.ServerConfig{HTTPAddr: ":0"},
		Extraction: common.ExtractionConfig{Mode: "regex", DefaultVATRate: 0.2},
	}
}

func TestNewWiresServices(t *testing.T) {
	cfg := testConfig(t)
	cfg.LLM.APIKey = "sk-test"

	a, err := New(context.Background(), cfg, nil, Options{})
	require.NoError(t, err)

	deps := a.Deps()
	require.NotNil(t, deps.Store)
	assert.True(t, deps.Valuations.Ready())
	assert.False(t, deps.Pipeline.AIEnabled(), "regex mode never builds a model client")

	q := deps.Pipeline.ExtractQuote(context.Background(), pipeline.Request{
		Text:   "Labour: £450.00. Materials: £230.50. Total: £680.50",
		Anchor: time.Date(2025, 3, 5, 0, 0, 0, 0, time.UTC),
	})
	assert.Equal(t, constants.MethodRegex, q.Method)

	require.NoError(t, a.Close(context.Background()))
	assert.Nil(t, a.Store)
	assert.False(t, a.Valuations.Ready())
}

func TestNewWithoutStore(t *testing.T) {
	cfg := testConfig(t)
	a, err := New(context.Background(), cfg, nil, Options{SkipStore: true})
	require.NoError(t, err)
	defer a.Close(context.Background())
	assert.Nil(t, a.Store)
}

func TestNewRejectsBadInputs(t *testing.T) {
	cfg := testConfig(t)
	cfg.Extraction.KeywordsFile = filepath.Join(t.TempDir(), "missing.yaml")
	_, err := New(context.Background(), cfg, nil, Options{})
	assert.Error(t, err)

	cfg = testConfig(t)
	model := filepath.Join(t.TempDir(), "model.json")
	require.NoError(t, os.WriteFile(model, []byte(`{"features":[]}`), 0o644))
	cfg.Valuation.ModelFile = model
	_, err = New(context.Background(), cfg, nil, Options{})
	assert.Error(t, err)

	cfg = testConfig(t)
	cfg.Database.Driver = "mongo"
	_, err = New(context.Background(), cfg, nil, Options{})
	assert.Error(t, err)
}

const marchCSV = "Date,Description,Amount,Balance\n" +
	"03/03/2025,CARD PAYMENT TO TESCO STORES 3297,-45.20,1204.80\n" +
	"04/03/2025,ACME LTD SALARY,2500.00,3704.80\n"

func TestBatch(t *testing.T) {
	dir := t.TempDir()
	write := func(name, body string) {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(body), 0o644))
	}
	write("march.csv", marchCSV)
	write("march-copy.csv", marchCSV)
	write("overlap.csv", "Date,Description,Amount\n03/03/2025,CARD PAYMENT TO TESCO STORES 3297,-45.20\n")
	write("boiler-quote.txt", "Labour: £450.00. Materials: £230.50. Total: £680.50")
	write("notes.md", "ignored")

	a, err := New(context.Background(), testConfig(t), nil, Options{})
	require.NoError(t, err)
	defer a.Close(context.Background())

	out := filepath.Join(t.TempDir(), "transactions.xlsx")
	rep, err := a.Batch(context.Background(), BatchOptions{Dir: dir, Workers: 2, SkipHidden: true, Out: out})
	require.NoError(t, err)

	assert.Equal(t, uint32(1), rep.Stats.Deduplicated)
	require.Len(t, rep.Results, 3)
	assert.Zero(t, rep.Failed)
	assert.Equal(t, filepath.Join(dir, "boiler-quote.txt"), rep.Results[0].Path)
	require.NotNil(t, rep.Results[0].Quote)
	assert.Equal(t, "680.50", rep.Results[0].Quote.Total.String())
	assert.Equal(t, 2, rep.Transactions)
	assert.Equal(t, 1, rep.DuplicatesDropped)
	assert.Equal(t, out, rep.Workbook)

	info, err := os.Stat(out)
	require.NoError(t, err)
	assert.Positive(t, info.Size())

	runs, err := a.Store.ListRuns(context.Background(), constants.RunStatement, 0)
	require.NoError(t, err)
	assert.Len(t, runs, 2)
}

func TestBatchBadDir(t *testing.T) {
	a, err := New(context.Background(), testConfig(t), nil, Options{SkipStore: true})
	require.NoError(t, err)
	defer a.Close(context.Background())

	_, err = a.Batch(context.Background(), BatchOptions{Dir: filepath.Join(t.TempDir(), "nope")})
	assert.Error(t, err)
}

func TestWatch(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "march.csv"), []byte(marchCSV), 0o644))

	a, err := New(context.Background(), testConfig(t), nil, Options{SkipStore: true})
	require.NoError(t, err)
	defer a.Close(context.Background())

	ctx, cancel := context.WithTimeout(context.Background(), 500*time.Millisecond)
	defer cancel()
	results, err := a.Watch(ctx, WatchOptions{Dirs: []string{dir}, InitialScan: true, Debounce: 10 * time.Millisecond})
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.True(t, results[0].Success)
	require.NotNil(t, results[0].Statement)
	assert.Len(t, results[0].Statement.Transactions, 2)
}
