// Package export renders parsed statements and quotes as spreadsheets and PDFs.
package export

import (
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"

	"github.com/joseph-ayodele/household-extractor/constants"
	"github.com/joseph-ayodele/household-extractor/internal/statement"
	"github.com/joseph-ayodele/household-extractor/internal/utils"
)

const (
	transactionsSheet = "Transactions"
	summarySheet      = "Summary"
	quoteSheet        = "Quote"
	numFmtThousands   = 4 // #,##0.00
)

// Service produces export bytes. It holds no state besides the logger and clock.
type Service struct {
	logger *slog.Logger
	now    func() time.Time
}

func NewService(logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{logger: logger, now: time.Now}
}

// TransactionsXLSX writes one row per transaction, debits negative, and a
// Summary sheet with income, spending and net per budget category.
func (s *Service) TransactionsXLSX(txs []statement.Transaction) ([]byte, error) {
	start := s.now()
	f := excelize.NewFile()
	defer f.Close()
	if err := f.SetSheetName("Sheet1", transactionsSheet); err != nil {
		return nil, fmt.Errorf("rename sheet: %w", err)
	}

	headers := []any{"Date", "Description", "Counterparty", "Category", "Direction", "Amount", "Balance", "Source"}
	if err := f.SetSheetRow(transactionsSheet, "A1", &headers); err != nil {
		return nil, err
	}

	type totals struct {
		in, out decimal.Decimal
		count   int
	}
	byCat := map[constants.BudgetCategory]*totals{}

	row := 2
	for _, tx := range txs {
		var balance any
		if tx.Balance != nil {
			balance = tx.Balance.Float()
		}
		cells := []any{
			tx.Date,
			sanitizeCell(tx.Description),
			sanitizeCell(tx.Counterparty),
			string(tx.Category),
			string(tx.Direction),
			tx.Signed().Float(),
			balance,
			string(tx.Source),
		}
		cell, _ := excelize.CoordinatesToCellName(1, row)
		if err := f.SetSheetRow(transactionsSheet, cell, &cells); err != nil {
			return nil, err
		}

		cat := tx.Category
		if cat == "" {
			cat = constants.BudgetOther
		}
		t, ok := byCat[cat]
		if !ok {
			t = &totals{in: decimal.Zero, out: decimal.Zero}
			byCat[cat] = t
		}
		if tx.Direction == constants.Debit {
			t.out = t.out.Add(tx.Amount.Decimal)
		} else {
			t.in = t.in.Add(tx.Amount.Decimal)
		}
		t.count++
		row++
	}

	if err := styleSheet(f, transactionsSheet, "F", "G", row-1); err != nil {
		return nil, err
	}
	_ = f.SetColWidth(transactionsSheet, "A", "A", 12)
	_ = f.SetColWidth(transactionsSheet, "B", "B", 48)
	_ = f.SetColWidth(transactionsSheet, "C", "C", 28)
	_ = f.SetColWidth(transactionsSheet, "D", "E", 14)
	_ = f.SetColWidth(transactionsSheet, "F", "H", 12)

	if _, err := f.NewSheet(summarySheet); err != nil {
		return nil, err
	}
	sumHeaders := []any{"Category", "Income", "Spending", "Net", "Transactions"}
	if err := f.SetSheetRow(summarySheet, "A1", &sumHeaders); err != nil {
		return nil, err
	}
	cats := make([]string, 0, len(byCat))
	for c := range byCat {
		cats = append(cats, string(c))
	}
	sort.Strings(cats)
	allIn, allOut, allCount := decimal.Zero, decimal.Zero, 0
	srow := 2
	for _, c := range cats {
		t := byCat[constants.BudgetCategory(c)]
		cells := []any{c, money(t.in), money(t.out), money(t.in.Sub(t.out)), t.count}
		cell, _ := excelize.CoordinatesToCellName(1, srow)
		if err := f.SetSheetRow(summarySheet, cell, &cells); err != nil {
			return nil, err
		}
		allIn, allOut, allCount = allIn.Add(t.in), allOut.Add(t.out), allCount+t.count
		srow++
	}
	total := []any{"Total", money(allIn), money(allOut), money(allIn.Sub(allOut)), allCount}
	cell, _ := excelize.CoordinatesToCellName(1, srow)
	if err := f.SetSheetRow(summarySheet, cell, &total); err != nil {
		return nil, err
	}
	if err := styleSheet(f, summarySheet, "B", "D", srow); err != nil {
		return nil, err
	}
	_ = f.SetColWidth(summarySheet, "A", "A", 18)
	_ = f.SetColWidth(summarySheet, "B", "E", 14)

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("xlsx write: %w", err)
	}
	s.logger.Info("export.transactions.ok", "rows", len(txs), "categories", len(cats),
		"elapsed_ms", time.Since(start).Milliseconds())
	return buf.Bytes(), nil
}

// styleSheet bolds the header row and applies the money format to columns
// from..to in rows 2..lastRow.
func styleSheet(f *excelize.File, sheet, from, to string, lastRow int) error {
	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return err
	}
	if err := f.SetRowStyle(sheet, 1, 1, bold); err != nil {
		return err
	}
	if lastRow < 2 {
		return nil
	}
	num, err := f.NewStyle(&excelize.Style{NumFmt: numFmtThousands})
	if err != nil {
		return err
	}
	return f.SetCellStyle(sheet, fmt.Sprintf("%s2", from), fmt.Sprintf("%s%d", to, lastRow), num)
}

func money(d decimal.Decimal) float64 {
	return utils.NewMoney(d).Float()
}

// sanitizeCell stops spreadsheet apps from evaluating imported text as a formula.
func sanitizeCell(s string) string {
	if s == "" {
		return s
	}
	switch s[0] {
	case '=', '+', '-', '@', '\t', '\r':
		return "'" + s
	}
	return s
}

func truncate(s string, n int) string {
	r := []rune(s)
	if n <= 0 || len(r) <= n {
		return s
	}
	if n <= 1 {
		return string(r[:n])
	}
	return strings.TrimSpace(string(r[:n-1])) + "…"
}
