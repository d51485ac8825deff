package app

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"

	"github.com/joseph-ayodele/household-extractor/constants"
	"github.com/joseph-ayodele/household-extractor/internal/async"
	"github.com/joseph-ayodele/household-extractor/internal/budget"
	"github.com/joseph-ayodele/household-extractor/internal/ingest"
	"github.com/joseph-ayodele/household-extractor/internal/pipeline"
)

const drainTimeout = 5 * time.Minute

type BatchOptions struct {
	Dir        string
	Exts       []string   // empty -> constants.AllowedExtensions
	Kind       async.Kind // KindAuto routes by file name
	Mode       constants.Mode
	Workers    int
	SkipHidden bool
	Out        string // transactions workbook; "" skips it
}

// BatchReport summarises one batch run.
type BatchReport struct {
	Stats             ingest.DirStats       `json:"stats"`
	Results           []pipeline.FileResult `json:"results"`
	Failed            int                   `json:"failed"`
	Transactions      int                   `json:"transactions"`
	DuplicatesDropped int                   `json:"duplicatesDropped"`
	Recurring         []budget.Entry        `json:"recurring,omitempty"`
	Workbook          string                `json:"workbook,omitempty"`
}

// Batch scans Dir, parses every unique file on the worker queue and, when Out is
// set, writes the de-duplicated statement lines to a workbook.
func (a *App) Batch(ctx context.Context, opts BatchOptions) (BatchReport, error) {
	var rep BatchReport
	scanned, stats, err := ingest.Scan(ctx, opts.Dir, opts.Exts, opts.SkipHidden)
	if err != nil {
		return rep, err
	}
	rep.Stats = stats

	h := pipeline.NewFileHandler(a.Pipeline, a.Statements, a.Surveys, a.Store, a.logger)
	q := async.NewQueue(h, a.logger, async.WithWorkers(opts.Workers))
	paths := ingest.Unique(scanned)
	a.logger.Info("batch.start", "dir", opts.Dir, "files", len(paths), "duplicates", stats.Deduplicated)

	for _, p := range paths {
		job := async.Job{ID: uuid.New(), Path: p, Kind: opts.Kind, Mode: opts.Mode, SubmittedAt: time.Now()}
		if err := q.Enqueue(ctx, job); err != nil {
			a.logger.Error("batch.enqueue_failed", "path", p, "error", err)
			break
		}
	}
	dctx, cancel := context.WithTimeout(context.Background(), drainTimeout)
	defer cancel()
	if err := q.Shutdown(dctx); err != nil {
		return rep, fmt.Errorf("drain queue: %w", err)
	}

	rep.Results = h.Results()
	for _, r := range rep.Results {
		if !r.Success {
			rep.Failed++
		}
	}
	kept, dropped := budget.Dedupe(h.Transactions())
	rep.Transactions, rep.DuplicatesDropped = len(kept), len(dropped)
	rep.Recurring = budget.DetectRecurring(kept)

	if opts.Out != "" {
		b, err := a.Exports.TransactionsXLSX(kept)
		if err != nil {
			return rep, fmt.Errorf("build workbook: %w", err)
		}
		if err := os.WriteFile(opts.Out, b, 0o644); err != nil {
			return rep, fmt.Errorf("write workbook: %w", err)
		}
		rep.Workbook = opts.Out
	}
	a.logger.Info("batch.done", "files", len(rep.Results), "failed", rep.Failed,
		"transactions", rep.Transactions, "dropped", rep.DuplicatesDropped, "workbook", rep.Workbook)
	return rep, nil
}

type WatchOptions struct {
	Dirs        []string
	Exts        []string
	Kind        async.Kind
	Mode        constants.Mode
	Workers     int
	Debounce    time.Duration
	SkipHidden  bool
	InitialScan bool // also queue the files already present
}

// Watch queues every new or rewritten file under Dirs until ctx is done, then
// drains the queue and returns what was handled.
func (a *App) Watch(ctx context.Context, opts WatchOptions) ([]pipeline.FileResult, error) {
	events, errs, err := ingest.Watch(ctx, ingest.WatchConfig{
		Roots:       opts.Dirs,
		AllowedExts: ingest.ExtSet(opts.Exts),
		SkipHidden:  opts.SkipHidden,
		InitialScan: opts.InitialScan,
		Debounce:    opts.Debounce,
		Logger:      a.logger,
	})
	if err != nil {
		return nil, err
	}

	h := pipeline.NewFileHandler(a.Pipeline, a.Statements, a.Surveys, a.Store, a.logger)
	q := async.NewQueue(h, a.logger, async.WithWorkers(opts.Workers))
	seen := map[string]string{}

loop:
	for {
		select {
		case p, ok := <-events:
			if !ok {
				break loop
			}
			sum, _, err := ingest.HashFile(p)
			if err != nil {
				a.logger.Warn("watch.hash_failed", "path", p, "error", err)
				continue
			}
			if first, dup := seen[sum]; dup {
				a.logger.Info("watch.duplicate", "path", p, "duplicate_of", first)
				continue
			}
			seen[sum] = p
			if err := q.Enqueue(ctx, async.Job{Path: p, Kind: opts.Kind, Mode: opts.Mode}); err != nil {
				a.logger.Warn("watch.enqueue_failed", "path", p, "error", err)
			}
		case err, ok := <-errs:
			if !ok {
				errs = nil
				continue
			}
			a.logger.Warn("watch.error", "error", err)
		}
	}

	dctx, cancel := context.WithTimeout(context.Background(), drainTimeout)
	defer cancel()
	if err := q.Shutdown(dctx); err != nil {
		return h.Results(), fmt.Errorf("drain queue: %w", err)
	}
	return h.Results(), nil
}
