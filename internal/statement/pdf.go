package statement

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/joseph-ayodele/household-extractor/constants"
	"github.com/joseph-ayodele/household-extractor/internal/utils"
)

const (
	datePart   = `(\d{1,2}[/.\-]\d{1,2}[/.\-]\d{2,4}|\d{4}-\d{2}-\d{2}|\d{1,2}\s+[A-Za-z]{3,9}\.?(?:\s+\d{2,4})?)`
	amountPart = `(\(?-?£?\d{1,3}(?:,\d{3})*\.\d{2}\)?|-?£?\d+\.\d{2})(?:\s*(CR|DR)\b)?`
)

var (
	// 03/03/2025  CARD PAYMENT TO TESCO   45.20   1,204.80
	datedLineRe = regexp.MustCompile(`^\s*` + datePart + `\s+(.+?)\s+` + amountPart + `(?:\s+` + amountPart + `)?\s*$`)
	// continuation line under the previous date: description + amount [+ balance]
	undatedLineRe = regexp.MustCompile(`^\s*([A-Za-z].*?)\s+` + amountPart + `(?:\s+` + amountPart + `)?\s*$`)

	openingBalanceRe = regexp.MustCompile(`(?i)\b(opening\s+balance|balance\s+brought\s+forward|brought\s+forward|b/f|start\s+balance|previous\s+balance)\b`)
	closingBalanceRe = regexp.MustCompile(`(?i)\b(closing\s+balance|balance\s+carried\s+forward|carried\s+forward|c/f|end\s+balance)\b`)
	summaryLineRe    = regexp.MustCompile(`(?i)^\s*(total|payments?\s+in|payments?\s+out|money\s+in|money\s+out|paid\s+in|paid\s+out)\b`)
)

var errNoPDFSupport = errors.New("pdf statements need the ocr service")

func (p *Parser) parsePDF(ctx context.Context, in Input, res *StatementParseResult) {
	if p.text == nil {
		res.Errors = append(res.Errors, errNoPDFSupport.Error())
		return
	}
	ext, err := p.text.ExtractBytes(ctx, in.FileName, in.Data)
	res.Warnings = append(res.Warnings, ext.Warnings...)
	if err != nil {
		res.Errors = append(res.Errors, "unreadable pdf: "+err.Error())
		return
	}
	if strings.TrimSpace(ext.Text) == "" {
		res.Errors = append(res.Errors, "pdf contains no text")
		return
	}
	res.Success = true
	res.Metadata.Method = ext.Method
	if res.Metadata.Bank == "" {
		res.Metadata.Bank = detectBank(ext.Text)
	}
	parseStatementText(ext.Text, res, p)
}

type lineState struct {
	yearHint    int
	lastDate    string
	prevBalance *decimal.Decimal
}

// parseStatementText walks the text line by line. Direction comes from the running
// balance when it is printed, then CR/DR markers, then wording; failing all three
// the line is taken as a debit with a warning.
func parseStatementText(text string, res *StatementParseResult, p *Parser) {
	st := lineState{yearHint: yearHintFrom(text)}
	for n, raw := range strings.Split(strings.ReplaceAll(text, "\f", "\n"), "\n") {
		line := strings.TrimSpace(raw)
		if line == "" {
			continue
		}
		if openingBalanceRe.MatchString(line) {
			if amts := trailingAmounts(line); len(amts) > 0 {
				b := amts[len(amts)-1]
				st.prevBalance = &b
			}
			continue
		}
		if closingBalanceRe.MatchString(line) || summaryLineRe.MatchString(line) {
			continue
		}

		var (
			date, desc string
			amt, bal   []string
		)
		if m := datedLineRe.FindStringSubmatch(line); m != nil {
			t, ok := parseDate(m[1], st.yearHint)
			if !ok {
				if st.yearHint == 0 {
					res.Warnings = append(res.Warnings, fmt.Sprintf("line %d: date %q has no year; skipped", n+1, m[1]))
					res.Metadata.Skipped++
				}
				continue
			}
			date, desc = utils.FormatYMD(t), m[2]
			amt, bal = m[3:5], m[5:7]
		} else if m := undatedLineRe.FindStringSubmatch(line); m != nil && st.lastDate != "" {
			date, desc = st.lastDate, m[1]
			amt, bal = m[2:4], m[4:6]
		} else {
			continue
		}
		res.Metadata.RowsRead++
		st.lastDate = date

		tx, ok := st.transaction(p, date, desc, amt, bal)
		if !ok {
			res.Warnings = append(res.Warnings, fmt.Sprintf("line %d: unparseable amount; skipped", n+1))
			res.Metadata.Skipped++
			continue
		}
		res.Transactions = append(res.Transactions, tx)
	}
}

// trailingAmounts returns every decimal amount on the line.
var anyAmountRe = regexp.MustCompile(`-?£?\d{1,3}(?:,\d{3})*\.\d{2}|-?£?\d+\.\d{2}`)

func trailingAmounts(line string) []decimal.Decimal {
	var out []decimal.Decimal
	for _, s := range anyAmountRe.FindAllString(line, -1) {
		if d, _, ok := parseSignedAmount(s); ok {
			out = append(out, d)
		}
	}
	return out
}

func (st *lineState) transaction(p *Parser, date, desc string, amt, bal []string) (Transaction, bool) {
	value, marker, ok := parseSignedAmount(amt[0] + " " + amt[1])
	if !ok {
		return Transaction{}, false
	}
	var balance *decimal.Decimal
	if bal[0] != "" {
		if b, bm, ok := parseSignedAmount(bal[0] + " " + bal[1]); ok {
			if bm == constants.Debit {
				b = b.Neg() // overdrawn
			}
			balance = &b
		}
	}

	amount := value.Abs()
	var (
		dir  constants.Direction
		conf float64
		warn string
	)
	switch {
	case balance != nil && st.prevBalance != nil && balanceMatches(*st.prevBalance, *balance, amount):
		if balance.GreaterThan(*st.prevBalance) {
			dir = constants.Credit
		} else {
			dir = constants.Debit
		}
		conf = 0.95
	case marker != "":
		dir, conf = marker, 0.9
	case value.IsNegative():
		dir, conf = constants.Debit, 0.85
	default:
		if d, ok := directionFromCues(desc); ok {
			dir, conf = d, 0.7
		} else {
			dir, conf = constants.Debit, 0.4
			warn = "direction not evident; assumed debit"
		}
	}
	if balance != nil {
		st.prevBalance = balance
	}

	tx := p.newTransaction(date, strings.Join(strings.Fields(desc), " "), amount, dir, constants.SourceBankPDF)
	tx.Confidence = conf
	if balance != nil {
		m := utils.NewMoney(*balance)
		tx.Balance = &m
	}
	if warn != "" {
		tx.Warnings = append(tx.Warnings, warn)
	}
	return tx, true
}

func balanceMatches(prev, cur, amount decimal.Decimal) bool {
	return cur.Sub(prev).Abs().Sub(amount).Abs().LessThanOrEqual(decimal.NewFromFloat(0.01))
}
