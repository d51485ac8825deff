package export

import (
	"bytes"
	"fmt"
	"math"
	"strconv"
	"time"

	"github.com/jung-kurt/gofpdf"
	"github.com/xuri/excelize/v2"

	"github.com/joseph-ayodele/household-extractor/internal/quote"
	"github.com/joseph-ayodele/household-extractor/internal/utils"
)

// QuoteXLSX writes the contractor block, the priced lines, the category
// totals and any warnings onto a single sheet.
func (s *Service) QuoteXLSX(q quote.ExtractedQuote) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()
	if err := f.SetSheetName("Sheet1", quoteSheet); err != nil {
		return nil, fmt.Errorf("rename sheet: %w", err)
	}

	rows := [][]any{
		{"Contractor", sanitizeCell(q.ContractorName)},
		{"Company", sanitizeCell(q.Company)},
		{"Phone", sanitizeCell(q.Phone)},
		{"Email", sanitizeCell(q.Email)},
		{"Address", sanitizeCell(q.Address)},
		{"Date", q.Date},
		{},
		{"Description", "Category", "Quantity", "Unit price", "Amount"},
	}
	itemsFrom := len(rows) + 1
	for _, it := range q.LineItems {
		var qty, unit any
		if it.Quantity != nil {
			qty = *it.Quantity
		}
		if it.UnitPrice != nil {
			unit = it.UnitPrice.Float()
		}
		rows = append(rows, []any{sanitizeCell(it.Description), string(it.Category), qty, unit, it.Amount.Float()})
	}
	itemsTo := len(rows)
	rows = append(rows,
		[]any{},
		[]any{"Labour", "", "", "", q.LabourTotal.Float()},
		[]any{"Materials", "", "", "", q.MaterialsTotal.Float()},
		[]any{"Fixtures", "", "", "", q.FixturesTotal.Float()},
		[]any{"Other", "", "", "", q.OtherTotal.Float()},
		[]any{"Subtotal", "", "", "", q.Subtotal.Float()},
		[]any{vatLabel(q.VATRate), "", "", "", q.VATAmount.Float()},
		[]any{"Total", "", "", "", q.Total.Float()},
	)
	totalsTo := len(rows)
	if len(q.Warnings) > 0 {
		rows = append(rows, []any{}, []any{"Warnings"})
		for _, w := range q.Warnings {
			rows = append(rows, []any{sanitizeCell(w)})
		}
	}

	for i, r := range rows {
		if len(r) == 0 {
			continue
		}
		cell, _ := excelize.CoordinatesToCellName(1, i+1)
		if err := f.SetSheetRow(quoteSheet, cell, &r); err != nil {
			return nil, err
		}
	}

	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return nil, err
	}
	num, err := f.NewStyle(&excelize.Style{NumFmt: numFmtThousands})
	if err != nil {
		return nil, err
	}
	_ = f.SetRowStyle(quoteSheet, itemsFrom-1, itemsFrom-1, bold)
	_ = f.SetCellStyle(quoteSheet, fmt.Sprintf("D%d", itemsFrom), fmt.Sprintf("E%d", totalsTo), num)
	_ = f.SetCellStyle(quoteSheet, fmt.Sprintf("A%d", totalsTo), fmt.Sprintf("A%d", totalsTo), bold)
	_ = f.SetColWidth(quoteSheet, "A", "A", 48)
	_ = f.SetColWidth(quoteSheet, "B", "E", 14)

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("xlsx write: %w", err)
	}
	s.logger.Info("export.quote_xlsx.ok", "items", itemsTo-itemsFrom+1, "total", q.Total.String())
	return buf.Bytes(), nil
}

// QuotePDF renders a one-page A4 summary in core Helvetica. Text is mapped to
// cp1252 so the pound sign survives.
func (s *Service) QuotePDF(q quote.ExtractedQuote) ([]byte, error) {
	pdf := gofpdf.New("P", "mm", "A4", "")
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	title := "Quote summary"
	if q.ContractorName != "" {
		title = "Quote from " + q.ContractorName
	}
	pdf.SetTitle(title, true)
	pdf.AddPage()

	pdf.SetFont("Helvetica", "B", 16)
	pdf.Cell(0, 10, tr(truncate(title, 60)))
	pdf.Ln(10)

	pdf.SetFont("Helvetica", "", 10)
	for _, kv := range [][2]string{
		{"Company", q.Company},
		{"Phone", q.Phone},
		{"Email", q.Email},
		{"Address", q.Address},
		{"Date", q.Date},
	} {
		if kv[1] == "" {
			continue
		}
		pdf.Cell(25, 6, kv[0]+":")
		pdf.Cell(0, 6, tr(truncate(kv[1], 90)))
		pdf.Ln(6)
	}

	pdf.Ln(4)
	pdf.SetFont("Helvetica", "B", 10)
	pdf.CellFormat(100, 7, "Description", "B", 0, "L", false, 0, "")
	pdf.CellFormat(25, 7, "Category", "B", 0, "L", false, 0, "")
	pdf.CellFormat(20, 7, "Qty", "B", 0, "R", false, 0, "")
	pdf.CellFormat(35, 7, "Amount", "B", 1, "R", false, 0, "")

	pdf.SetFont("Helvetica", "", 10)
	for _, it := range q.LineItems {
		qty := ""
		if it.Quantity != nil {
			qty = strconv.FormatFloat(*it.Quantity, 'f', -1, 64)
		}
		pdf.CellFormat(100, 6, tr(truncate(it.Description, 55)), "", 0, "L", false, 0, "")
		pdf.CellFormat(25, 6, string(it.Category), "", 0, "L", false, 0, "")
		pdf.CellFormat(20, 6, qty, "", 0, "R", false, 0, "")
		pdf.CellFormat(35, 6, tr(pounds(it.Amount)), "", 1, "R", false, 0, "")
	}

	pdf.Ln(4)
	for _, t := range []struct {
		label string
		value utils.Money
		bold  bool
	}{
		{"Labour", q.LabourTotal, false},
		{"Materials", q.MaterialsTotal, false},
		{"Fixtures", q.FixturesTotal, false},
		{"Other", q.OtherTotal, false},
		{"Subtotal", q.Subtotal, true},
		{vatLabel(q.VATRate), q.VATAmount, false},
		{"Total", q.Total, true},
	} {
		style := ""
		if t.bold {
			style = "B"
		}
		pdf.SetFont("Helvetica", style, 10)
		pdf.CellFormat(145, 6, t.label, "", 0, "R", false, 0, "")
		pdf.CellFormat(35, 6, tr(pounds(t.value)), "", 1, "R", false, 0, "")
	}

	if len(q.Warnings) > 0 {
		pdf.Ln(4)
		pdf.SetFont("Helvetica", "B", 10)
		pdf.Cell(0, 6, "Warnings")
		pdf.Ln(6)
		pdf.SetFont("Helvetica", "", 9)
		for _, w := range q.Warnings {
			pdf.MultiCell(0, 5, tr("- "+w), "", "L", false)
		}
	}

	pdf.Ln(6)
	pdf.SetFont("Helvetica", "", 8)
	pdf.Cell(0, 5, fmt.Sprintf("Extracted by %s (confidence %.2f). Generated %s", q.Method, q.Confidence, s.now().Format(time.RFC3339)))

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		s.logger.Error("export.quote_pdf.failed", "error", err)
		return nil, fmt.Errorf("pdf output: %w", err)
	}
	s.logger.Info("export.quote_pdf.ok", "items", len(q.LineItems), "bytes", buf.Len())
	return buf.Bytes(), nil
}

func vatLabel(rate *float64) string {
	if rate == nil {
		return "VAT"
	}
	pct := math.Round(*rate*10000) / 100
	return fmt.Sprintf("VAT (%s%%)", strconv.FormatFloat(pct, 'f', -1, 64))
}

func pounds(m utils.Money) string {
	return "£" + m.String()
}
