package main

import (
	"fmt"
	"os"

	"github.com/urfave/cli/v2"
)

func main() {
	app := &cli.App{
		Name:  "householdctl",
		Usage: "extract structured data from household emails, quotes, statements, surveys and receipts",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "mode", Usage: "extraction mode: auto, ai or regex (default from EXTRACTION_MODE)"},
			&cli.StringFlag{Name: "log-level", Usage: "debug, info, warn or error (default from LOG_LEVEL)"},
		},
		Commands: []*cli.Command{
			{
				Name:      "email",
				Usage:     "extract contacts, prices, dates and follow-ups from an email",
				ArgsUsage: "FILE|-",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "subject"},
					&cli.StringFlag{Name: "sender"},
					anchorFlag,
				},
				Action: EmailAction,
			},
			{
				Name:      "quote",
				Usage:     "parse a contractor quote into line items and totals",
				ArgsUsage: "FILE|-",
				Flags: []cli.Flag{
					anchorFlag,
					&cli.StringFlag{Name: "pdf", Usage: "also write the quote as a PDF here"},
					&cli.StringFlag{Name: "xlsx", Usage: "also write the quote as a workbook here"},
				},
				Action: QuoteAction,
			},
			{
				Name:      "statement",
				Usage:     "parse a bank statement (CSV, XLSX or PDF)",
				ArgsUsage: "FILE",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "bank", Usage: "bank name hint"},
					&cli.StringFlag{Name: "out", Usage: "write the transactions workbook here"},
				},
				Action: StatementAction,
			},
			{
				Name:      "survey",
				Usage:     "turn a property survey into a task list",
				ArgsUsage: "FILE",
				Action:    SurveyAction,
			},
			{
				Name:      "receipt",
				Usage:     "OCR a receipt photo or PDF and parse it like a quote",
				ArgsUsage: "FILE",
				Action:    ReceiptAction,
			},
			{
				Name:  "valuation",
				Usage: "estimate a property price",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "postcode", Required: true},
					&cli.StringFlag{Name: "type", Usage: "detached, semi-detached, terraced, flat or bungalow"},
					&cli.IntFlag{Name: "bedrooms"},
					&cli.IntFlag{Name: "bathrooms"},
					&cli.Float64Flag{Name: "floor-area", Usage: "square metres"},
					&cli.IntFlag{Name: "year-built"},
					&cli.Float64Flag{Name: "lat"},
					&cli.Float64Flag{Name: "lon"},
				},
				Action: ValuationAction,
			},
			{
				Name:      "redact",
				Usage:     "mask emails, phone numbers, card and account numbers and postcodes",
				ArgsUsage: "FILE|-",
				Action:    RedactAction,
			},
			{
				Name:  "batch",
				Usage: "parse every supported file under a directory",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "dir", Required: true},
					&cli.StringFlag{Name: "out", Usage: "transactions workbook (default <dir>/../transactions.xlsx)"},
					&cli.StringSliceFlag{Name: "ext", Usage: "extensions to include (default: all supported)"},
					kindFlag,
					workersFlag,
					&cli.BoolFlag{Name: "include-hidden"},
				},
				Action: BatchAction,
			},
			{
				Name:  "watch",
				Usage: "parse files as they appear under one or more directories",
				Flags: []cli.Flag{
					&cli.StringSliceFlag{Name: "dir", Required: true},
					&cli.StringSliceFlag{Name: "ext"},
					kindFlag,
					workersFlag,
					&cli.DurationFlag{Name: "debounce", Value: defaultDebounce},
					&cli.BoolFlag{Name: "initial-scan", Usage: "also parse the files already present"},
				},
				Action: WatchAction,
			},
			{
				Name:      "runs",
				Usage:     "list saved runs, or show one",
				ArgsUsage: "[RUN_ID]",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "kind"},
					&cli.IntFlag{Name: "limit", Value: 20},
				},
				Action: RunsAction,
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		if _, werr := fmt.Fprintf(os.Stderr, "Error: %v\n", err); werr != nil {
			fmt.Printf("Error: %v\n", err)
		}
		os.Exit(1)
	}
}
