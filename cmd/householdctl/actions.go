package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/urfave/cli/v2"

	"github.com/joseph-ayodele/household-extractor/constants"
	"github.com/joseph-ayodele/household-extractor/internal/app"
	"github.com/joseph-ayodele/household-extractor/internal/async"
	"github.com/joseph-ayodele/household-extractor/internal/common"
	"github.com/joseph-ayodele/household-extractor/internal/pipeline"
	"github.com/joseph-ayodele/household-extractor/internal/redact"
	"github.com/joseph-ayodele/household-extractor/internal/statement"
	"github.com/joseph-ayodele/household-extractor/internal/survey"
	"github.com/joseph-ayodele/household-extractor/internal/utils"
	"github.com/joseph-ayodele/household-extractor/internal/valuation"
)

const defaultDebounce = 750 * time.Millisecond

var (
	anchorFlag  = &cli.StringFlag{Name: "anchor", Usage: "date relative phrases resolve against, YYYY-MM-DD (default today)"}
	kindFlag    = &cli.StringFlag{Name: "kind", Usage: "statement, survey, receipt, quote or email (default: by file name)"}
	workersFlag = &cli.IntFlag{Name: "workers", Value: 4}
)

// withApp loads the config, applies the global flags and runs fn against the wired services.
func withApp(c *cli.Context, needStore bool, fn func(ctx context.Context, a *app.App) error) error {
	cfg := common.LoadConfig()
	if m := c.String("mode"); m != "" {
		if _, ok := constants.ParseMode(m); !ok {
			return fmt.Errorf("invalid --mode %q", m)
		}
		cfg.Extraction.Mode = m
	}
	level := cfg.LogLevel
	if l := c.String("log-level"); l != "" {
		if err := level.UnmarshalText([]byte(l)); err != nil {
			return fmt.Errorf("invalid --log-level: %w", err)
		}
	}
	logger := app.NewLogger(level)
	if err := cfg.Validate(); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := app.New(ctx, cfg, logger, app.Options{SkipStore: !needStore})
	if err != nil {
		return err
	}
	defer func() {
		if err := a.Close(context.Background()); err != nil {
			logger.Warn("shutdown incomplete", "error", err)
		}
	}()
	return fn(ctx, a)
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// readInput reads the single FILE argument, or stdin for "-".
func readInput(c *cli.Context) (string, []byte, error) {
	if c.NArg() != 1 {
		return "", nil, fmt.Errorf("expected exactly one FILE argument")
	}
	path := c.Args().First()
	if path == "-" {
		b, err := io.ReadAll(os.Stdin)
		return "stdin", b, err
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return "", nil, fmt.Errorf("read %s: %w", path, err)
	}
	return filepath.Base(path), b, nil
}

func anchor(c *cli.Context) (time.Time, error) {
	s := c.String("anchor")
	if s == "" {
		return time.Now(), nil
	}
	t, err := utils.ParseYMD(s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid --anchor, use YYYY-MM-DD: %w", err)
	}
	return t, nil
}

func parseKind(c *cli.Context) (async.Kind, error) {
	k, ok := async.ParseKind(c.String("kind"))
	if !ok {
		return k, fmt.Errorf("invalid --kind %q", c.String("kind"))
	}
	return k, nil
}

func EmailAction(c *cli.Context) error {
	_, data, err := readInput(c)
	if err != nil {
		return err
	}
	at, err := anchor(c)
	if err != nil {
		return err
	}
	return withApp(c, false, func(ctx context.Context, a *app.App) error {
		return printJSON(a.Pipeline.ExtractEmail(ctx, pipeline.Request{
			Text:    string(data),
			Subject: c.String("subject"),
			Sender:  c.String("sender"),
			Anchor:  at,
		}))
	})
}

func QuoteAction(c *cli.Context) error {
	_, data, err := readInput(c)
	if err != nil {
		return err
	}
	at, err := anchor(c)
	if err != nil {
		return err
	}
	return withApp(c, false, func(ctx context.Context, a *app.App) error {
		q := a.Pipeline.ExtractQuote(ctx, pipeline.Request{Text: string(data), Anchor: at})
		if out := c.String("pdf"); out != "" {
			b, err := a.Exports.QuotePDF(q)
			if err != nil {
				return err
			}
			if err := os.WriteFile(out, b, 0o644); err != nil {
				return err
			}
		}
		if out := c.String("xlsx"); out != "" {
			b, err := a.Exports.QuoteXLSX(q)
			if err != nil {
				return err
			}
			if err := os.WriteFile(out, b, 0o644); err != nil {
				return err
			}
		}
		return printJSON(q)
	})
}

func StatementAction(c *cli.Context) error {
	name, data, err := readInput(c)
	if err != nil {
		return err
	}
	return withApp(c, false, func(ctx context.Context, a *app.App) error {
		res := a.Statements.Parse(ctx, statement.Input{FileName: name, Data: data, Bank: c.String("bank")})
		if out := c.String("out"); out != "" && res.Success {
			b, err := a.Exports.TransactionsXLSX(res.Transactions)
			if err != nil {
				return err
			}
			if err := os.WriteFile(out, b, 0o644); err != nil {
				return err
			}
		}
		if err := printJSON(res); err != nil {
			return err
		}
		if !res.Success {
			return cli.Exit(strings.Join(res.Errors, "; "), 2)
		}
		return nil
	})
}

func SurveyAction(c *cli.Context) error {
	name, data, err := readInput(c)
	if err != nil {
		return err
	}
	return withApp(c, false, func(ctx context.Context, a *app.App) error {
		res := a.Surveys.Parse(ctx, survey.Input{FileName: name, Data: data})
		if err := printJSON(res); err != nil {
			return err
		}
		if !res.Success {
			return cli.Exit(strings.Join(res.Errors, "; "), 2)
		}
		return nil
	})
}

func ReceiptAction(c *cli.Context) error {
	name, data, err := readInput(c)
	if err != nil {
		return err
	}
	return withApp(c, false, func(ctx context.Context, a *app.App) error {
		mode := constants.Mode(c.String("mode"))
		q, err := a.Pipeline.ExtractReceiptBytes(ctx, name, data, mode)
		if err != nil {
			return err
		}
		return printJSON(q)
	})
}

func ValuationAction(c *cli.Context) error {
	req := valuation.Request{
		Postcode:     c.String("postcode"),
		PropertyType: c.String("type"),
		Bedrooms:     c.Int("bedrooms"),
		Bathrooms:    c.Int("bathrooms"),
		FloorAreaSqm: c.Float64("floor-area"),
		YearBuilt:    c.Int("year-built"),
	}
	if c.IsSet("lat") || c.IsSet("lon") {
		lat, lon := c.Float64("lat"), c.Float64("lon")
		if c.IsSet("lat") {
			req.Lat = &lat
		}
		if c.IsSet("lon") {
			req.Lon = &lon
		}
	}
	return withApp(c, false, func(ctx context.Context, a *app.App) error {
		v, err := a.Valuations.Estimate(ctx, req)
		if err != nil {
			return err
		}
		return printJSON(v)
	})
}

func RedactAction(c *cli.Context) error {
	_, data, err := readInput(c)
	if err != nil {
		return err
	}
	_, err = fmt.Fprint(os.Stdout, redact.Redact(string(data)))
	return err
}

func BatchAction(c *cli.Context) error {
	kind, err := parseKind(c)
	if err != nil {
		return err
	}
	dir := c.String("dir")
	out := c.String("out")
	if out == "" {
		out = filepath.Join(filepath.Dir(filepath.Clean(dir)), "transactions.xlsx")
	}
	return withApp(c, true, func(ctx context.Context, a *app.App) error {
		mode := constants.Mode(c.String("mode"))
		rep, err := a.Batch(ctx, app.BatchOptions{
			Dir:        dir,
			Exts:       c.StringSlice("ext"),
			Kind:       kind,
			Mode:       mode,
			Workers:    c.Int("workers"),
			SkipHidden: !c.Bool("include-hidden"),
			Out:        out,
		})
		if err != nil {
			return err
		}
		printBatch(rep)
		if rep.Failed > 0 {
			return cli.Exit(fmt.Sprintf("%d file(s) failed", rep.Failed), 2)
		}
		return nil
	})
}

func printBatch(rep app.BatchReport) {
	fmt.Printf("%-10s %-8s %-9s %s\n", "Kind", "Status", "Warnings", "File")
	fmt.Println(strings.Repeat("-", 80))
	for _, r := range rep.Results {
		status := "ok"
		if !r.Success {
			status = "failed"
		}
		fmt.Printf("%-10s %-8s %-9d %s\n", r.Kind, status, r.Warnings, r.Path)
		if r.Err != "" {
			fmt.Printf("%-29s %s\n", "", r.Err)
		}
	}
	fmt.Printf("\nScanned %d, matched %d, skipped %d duplicate file(s).\n",
		rep.Stats.Scanned, rep.Stats.Matched, rep.Stats.Deduplicated)
	fmt.Printf("%d transaction(s), %d duplicate line(s) dropped.\n", rep.Transactions, rep.DuplicatesDropped)
	for _, e := range rep.Recurring {
		fmt.Printf("  recurring: %-30s %10s %s\n", e.Description, e.Amount.String(), e.Direction)
	}
	if rep.Workbook != "" {
		fmt.Printf("Workbook written to %s\n", rep.Workbook)
	}
}

func WatchAction(c *cli.Context) error {
	kind, err := parseKind(c)
	if err != nil {
		return err
	}
	return withApp(c, true, func(ctx context.Context, a *app.App) error {
		mode := constants.Mode(c.String("mode"))
		results, err := a.Watch(ctx, app.WatchOptions{
			Dirs:        c.StringSlice("dir"),
			Exts:        c.StringSlice("ext"),
			Kind:        kind,
			Mode:        mode,
			Workers:     c.Int("workers"),
			Debounce:    c.Duration("debounce"),
			SkipHidden:  true,
			InitialScan: c.Bool("initial-scan"),
		})
		fmt.Printf("Handled %d file(s).\n", len(results))
		return err
	})
}

func RunsAction(c *cli.Context) error {
	return withApp(c, true, func(ctx context.Context, a *app.App) error {
		if a.Store == nil {
			return fmt.Errorf("run persistence is disabled (DB_DRIVER=none)")
		}
		if c.NArg() == 1 {
			id, err := uuid.Parse(c.Args().First())
			if err != nil {
				return fmt.Errorf("invalid run id: %w", err)
			}
			run, err := a.Store.GetRun(ctx, id)
			if err != nil {
				return err
			}
			return printJSON(run)
		}

		runs, err := a.Store.ListRuns(ctx, constants.RunKind(c.String("kind")), c.Int("limit"))
		if err != nil {
			return err
		}
		if len(runs) == 0 {
			fmt.Println("No runs found")
			return nil
		}
		fmt.Printf("%-36s %-20s %-10s %-8s %-8s %s\n", "ID", "Created", "Kind", "Method", "Success", "Source")
		fmt.Println(strings.Repeat("-", 110))
		for _, r := range runs {
			fmt.Printf("%-36s %-20s %-10s %-8s %-8t %s\n",
				r.ID, r.CreatedAt.Format("2006-01-02 15:04:05"), r.Kind, r.Method, r.Success, r.Source)
		}
		fmt.Printf("\nTotal: %d runs\n", len(runs))
		return nil
	})
}
