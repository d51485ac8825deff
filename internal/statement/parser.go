package statement

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"

	"github.com/joseph-ayodele/household-extractor/constants"
	"github.com/joseph-ayodele/household-extractor/internal/classify"
	"github.com/joseph-ayodele/household-extractor/internal/ocr"
	"github.com/joseph-ayodele/household-extractor/internal/utils"
)

// TextExtractor is the slice of the OCR service the PDF adapter needs.
type TextExtractor interface {
	ExtractBytes(ctx context.Context, name string, data []byte) (ocr.ExtractionResult, error)
}

type Parser struct {
	text   TextExtractor
	logger *slog.Logger
}

// NewParser returns a Parser. text may be nil, in which case PDFs are rejected.
func NewParser(text TextExtractor, logger *slog.Logger) *Parser {
	if logger == nil {
		logger = slog.Default()
	}
	return &Parser{text: text, logger: logger}
}

// Parse dispatches on the file extension.
func (p *Parser) Parse(ctx context.Context, in Input) StatementParseResult {
	start := time.Now()
	format := constants.MapExtToFormat(filepath.Ext(in.FileName))
	res := StatementParseResult{
		Transactions: []Transaction{},
		Warnings:     []string{},
		Errors:       []string{},
		Metadata:     Metadata{FileName: in.FileName, Format: format, Bank: in.Bank},
	}
	if len(bytes.TrimSpace(in.Data)) == 0 {
		res.Errors = append(res.Errors, "empty file")
		return res
	}

	switch format {
	case constants.CSV:
		p.parseCSV(in.Data, &res)
	case constants.XLSX:
		p.parseXLSX(in.Data, &res)
	case constants.PDF:
		p.parsePDF(ctx, in, &res)
	default:
		res.Errors = append(res.Errors, fmt.Sprintf("unsupported statement format %q", filepath.Ext(in.FileName)))
		return res
	}

	finish(&res)
	if res.Success && len(res.Transactions) == 0 {
		res.Warnings = append(res.Warnings, "no transactions found")
	}
	p.logger.Info("statement.parse.done",
		"file", in.FileName,
		"format", format,
		"bank", res.Metadata.Bank,
		"success", res.Success,
		"transactions", len(res.Transactions),
		"skipped", res.Metadata.Skipped,
		"warnings", len(res.Warnings),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return res
}

func (p *Parser) parseCSV(data []byte, res *StatementParseResult) {
	r := csv.NewReader(bytes.NewReader(bytes.TrimPrefix(data, []byte("\xef\xbb\xbf"))))
	r.FieldsPerRecord = -1
	r.LazyQuotes = true
	r.TrimLeadingSpace = true

	var rows [][]string
	for line := 1; ; line++ {
		rec, err := r.Read()
		if err != nil {
			var perr *csv.ParseError
			if errors.As(err, &perr) {
				res.Warnings = append(res.Warnings, fmt.Sprintf("line %d: %v; skipped", perr.StartLine, perr.Err))
				continue
			}
			break
		}
		rows = append(rows, rec)
	}
	if len(rows) == 0 {
		res.Errors = append(res.Errors, "no rows in csv")
		return
	}
	if res.Metadata.Bank == "" {
		res.Metadata.Bank = detectBank(string(data[:min(len(data), 4096)]))
	}
	p.mapRows(rows, constants.SourceBankCSV, res)
}

func (p *Parser) parseXLSX(data []byte, res *StatementParseResult) {
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		res.Errors = append(res.Errors, "unreadable xlsx: "+err.Error())
		return
	}
	defer func() {
		if err := f.Close(); err != nil {
			p.logger.Warn("statement.xlsx.close_failed", "error", err)
		}
	}()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		res.Errors = append(res.Errors, "xlsx has no sheets")
		return
	}
	// raw values keep dates as serial numbers instead of the locale-formatted text
	rows, err := f.GetRows(sheets[0], excelize.Options{RawCellValue: true})
	if err != nil {
		res.Errors = append(res.Errors, "read sheet: "+err.Error())
		return
	}
	if len(sheets) > 1 {
		res.Warnings = append(res.Warnings, fmt.Sprintf("only the first of %d sheets (%q) was read", len(sheets), sheets[0]))
	}
	if res.Metadata.Bank == "" {
		var head strings.Builder
		for i := 0; i < len(rows) && i < headerScanRows; i++ {
			head.WriteString(strings.Join(rows[i], " "))
			head.WriteByte('\n')
		}
		res.Metadata.Bank = detectBank(head.String())
	}
	p.mapRows(rows, constants.SourceBankXLSX, res)
}

func (p *Parser) newTransaction(date, desc string, amount decimal.Decimal, dir constants.Direction, source constants.Source) Transaction {
	cat, conf := classify.CategorizeTransaction(desc)
	if dir == constants.Credit && cat != constants.BudgetIncome && cat != constants.BudgetTransfers && conf == 0 {
		cat, conf = constants.BudgetIncome, 0.3
	}
	return Transaction{
		ID:                 uuid.New().String(),
		Date:               date,
		Description:        desc,
		Amount:             utils.NewMoney(amount),
		Direction:          dir,
		Category:           cat,
		CategoryConfidence: conf,
		Counterparty:       classify.NormalizeCounterparty(desc),
		Source:             source,
	}
}

// finish fills the metadata totals and period from the parsed transactions.
func finish(res *StatementParseResult) {
	in, out := decimal.Zero, decimal.Zero
	dates := make([]string, 0, len(res.Transactions))
	for _, t := range res.Transactions {
		if t.Direction == constants.Credit {
			in = in.Add(t.Amount.Decimal)
		} else {
			out = out.Add(t.Amount.Decimal)
		}
		dates = append(dates, t.Date)
	}
	res.Metadata.Parsed = len(res.Transactions)
	res.Metadata.TotalIn = utils.NewMoney(in)
	res.Metadata.TotalOut = utils.NewMoney(out)
	if len(dates) > 0 {
		sort.Strings(dates)
		res.Metadata.PeriodStart = dates[0]
		res.Metadata.PeriodEnd = dates[len(dates)-1]
	}
}

var banks = []struct{ key, name string }{
	{"barclays", "Barclays"},
	{"hsbc", "HSBC"},
	{"first direct", "first direct"},
	{"lloyds", "Lloyds"},
	{"natwest", "NatWest"},
	{"santander", "Santander"},
	{"nationwide", "Nationwide"},
	{"halifax", "Halifax"},
	{"monzo", "Monzo"},
	{"starling", "Starling"},
	{"tsb", "TSB"},
	{"metro bank", "Metro Bank"},
	{"co-operative bank", "Co-operative Bank"},
	{"virgin money", "Virgin Money"},
}

func detectBank(text string) string {
	lower := strings.ToLower(text)
	for _, b := range banks {
		if strings.Contains(lower, b.key) {
			return b.name
		}
	}
	return ""
}
