package statement

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/joseph-ayodele/household-extractor/constants"
	"github.com/joseph-ayodele/household-extractor/internal/utils"
)

type column int

const (
	colDate column = iota
	colDescription
	colAmount
	colDebit
	colCredit
	colBalance
	colType
	colReference
	colCategory
	numColumns
)

// header cells are compared after normalizeHeader
var headerSynonyms = map[column][]string{
	colDate:        {"date", "transaction date", "posting date", "posted date", "value date", "completed date", "date of transaction"},
	colDescription: {"description", "details", "narrative", "transaction description", "transaction details", "memo", "payee", "merchant", "name", "particulars"},
	colAmount:      {"amount", "amount gbp", "transaction amount", "value", "net amount"},
	colDebit:       {"debit", "debit amount", "paid out", "money out", "out", "withdrawals", "payments"},
	colCredit:      {"credit", "credit amount", "paid in", "money in", "in", "deposits", "receipts"},
	colBalance:     {"balance", "running balance", "balance gbp", "closing balance"},
	colType:        {"type", "transaction type", "tran type"},
	colReference:   {"reference", "ref", "transaction reference"},
	colCategory:    {"category", "spending category", "bank category"},
}

var headerNoise = regexp.MustCompile(`[^a-z ]+`)

func normalizeHeader(s string) string {
	s = headerNoise.ReplaceAllString(strings.ToLower(s), " ")
	return strings.Join(strings.Fields(s), " ")
}

type columnMap [numColumns]int

func (m columnMap) has(c column) bool { return m[c] >= 0 }

func (m columnMap) cell(row []string, c column) string {
	if i := m[c]; i >= 0 && i < len(row) {
		return strings.TrimSpace(row[i])
	}
	return ""
}

// mapHeader returns the column layout of row when it reads like a statement header:
// a date, a description and either an amount or a debit/credit pair.
func mapHeader(row []string) (columnMap, bool) {
	var m columnMap
	for i := range m {
		m[i] = -1
	}
	for i, cell := range row {
		h := normalizeHeader(cell)
		if h == "" {
			continue
		}
		for c := column(0); c < numColumns; c++ {
			if m[c] >= 0 {
				continue
			}
			for _, syn := range headerSynonyms[c] {
				if h == syn {
					m[c] = i
					break
				}
			}
			if m[c] == i {
				break
			}
		}
	}
	ok := m.has(colDate) && m.has(colDescription) && (m.has(colAmount) || m.has(colDebit) || m.has(colCredit))
	return m, ok
}

// headerScanRows bounds how far down a sheet the header row may sit.
const headerScanRows = 20

func findHeader(rows [][]string) (int, columnMap, bool) {
	for i := 0; i < len(rows) && i < headerScanRows; i++ {
		if m, ok := mapHeader(rows[i]); ok {
			return i, m, true
		}
	}
	return -1, columnMap{}, false
}

// mapRows converts the data rows of a CSV or sheet. Bad rows are skipped with a warning.
func (p *Parser) mapRows(rows [][]string, source constants.Source, res *StatementParseResult) {
	hdr, cols, ok := findHeader(rows)
	if !ok {
		res.Errors = append(res.Errors, "no header row found (need date, description and amount or paid in/paid out columns)")
		return
	}
	res.Success = true
	for i := hdr + 1; i < len(rows); i++ {
		row := rows[i]
		if blankRow(row) {
			continue
		}
		res.Metadata.RowsRead++
		tx, warn := p.mapRow(row, cols, source)
		if warn != "" {
			res.Warnings = append(res.Warnings, fmt.Sprintf("row %d: %s", i+1, warn))
			res.Metadata.Skipped++
			continue
		}
		res.Transactions = append(res.Transactions, tx)
	}
}

func (p *Parser) mapRow(row []string, cols columnMap, source constants.Source) (Transaction, string) {
	rawDate := cols.cell(row, colDate)
	date, ok := parseDate(rawDate, 0)
	if !ok {
		return Transaction{}, fmt.Sprintf("unparseable date %q; skipped", rawDate)
	}
	desc := strings.Join(strings.Fields(cols.cell(row, colDescription)), " ")
	if desc == "" {
		desc = cols.cell(row, colReference)
	}

	amount, dir, err := rowAmount(row, cols)
	if err != "" {
		return Transaction{}, err
	}

	tx := p.newTransaction(utils.FormatYMD(date), desc, amount, dir, source)
	tx.Confidence = 1
	tx.Type = cols.cell(row, colType)
	tx.Reference = cols.cell(row, colReference)
	tx.BankCategory = cols.cell(row, colCategory)
	if raw := cols.cell(row, colBalance); raw != "" {
		if b, _, ok := parseSignedAmount(raw); ok {
			m := utils.NewMoney(b)
			tx.Balance = &m
		}
	}
	if amount.IsZero() {
		tx.Warnings = append(tx.Warnings, "zero amount")
	}
	return tx, ""
}

func rowAmount(row []string, cols columnMap) (decimal.Decimal, constants.Direction, string) {
	if raw := cols.cell(row, colAmount); raw != "" {
		d, dir, ok := parseSignedAmount(raw)
		if !ok {
			return decimal.Zero, "", fmt.Sprintf("unparseable amount %q; skipped", raw)
		}
		if dir != "" {
			return d, dir, ""
		}
		// a type column of DR/CR qualifies an unsigned amount
		switch strings.ToUpper(cols.cell(row, colType)) {
		case "DR", "DEBIT":
			return d.Abs(), constants.Debit, ""
		case "CR", "CREDIT":
			return d.Abs(), constants.Credit, ""
		}
		amt, dir := directionFromSign(d)
		return amt, dir, ""
	}

	out, in := cols.cell(row, colDebit), cols.cell(row, colCredit)
	zeroDir := constants.Direction("")
	if out != "" {
		if d, _, ok := parseSignedAmount(out); ok {
			if !d.IsZero() {
				return d.Abs(), constants.Debit, ""
			}
			zeroDir = constants.Debit
		}
	}
	if in != "" {
		if d, _, ok := parseSignedAmount(in); ok {
			if !d.IsZero() {
				return d.Abs(), constants.Credit, ""
			}
			zeroDir = constants.Credit
		}
	}
	// "0.00" in the paid in or paid out cell is kept as a zero-amount row
	if zeroDir != "" {
		return decimal.Zero, zeroDir, ""
	}
	if out == "" && in == "" {
		return decimal.Zero, "", "no amount; skipped"
	}
	return decimal.Zero, "", fmt.Sprintf("unparseable amount (out %q, in %q); skipped", out, in)
}

func blankRow(row []string) bool {
	for _, c := range row {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}
