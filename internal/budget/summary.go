package budget

import (
	"math"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/joseph-ayodele/household-extractor/constants"
	"github.com/joseph-ayodele/household-extractor/internal/statement"
	"github.com/joseph-ayodele/household-extractor/internal/utils"
)

const matchWindowDays = 3

var amountTolerance = decimal.RequireFromString("0.01")

// PlannedItem is one occurrence of an entry inside the summarised month. Matched
// items were paid by TransactionID and are counted through that transaction.
type PlannedItem struct {
	Entry         Entry  `json:"entry"`
	Date          string `json:"date"`
	Matched       bool   `json:"matched"`
	TransactionID string `json:"transactionId,omitempty"`
}

// Summary is a month of planned and actual money. ByCategory holds signed
// totals, so credits are positive and debits negative.
type Summary struct {
	Year       int                                      `json:"year"`
	Month      int                                      `json:"month"`
	Income     utils.Money                              `json:"income"`
	Expenses   utils.Money                              `json:"expenses"`
	Net        utils.Money                              `json:"net"`
	ByCategory map[constants.BudgetCategory]utils.Money `json:"byCategory"`
	Planned    []PlannedItem                            `json:"planned"`
	Actual     []statement.Transaction                  `json:"actual"`
}

// MonthSummary totals the month's statement lines plus every planned occurrence
// that no transaction paid. A transaction pays an occurrence when it has the same
// direction, an amount within 1%, a date within three days and a shared
// description word. Each transaction pays at most one occurrence.
func MonthSummary(entries []Entry, txs []statement.Transaction, year int, month time.Month) Summary {
	s := Summary{
		Year:       year,
		Month:      int(month),
		ByCategory: map[constants.BudgetCategory]utils.Money{},
		Planned:    []PlannedItem{},
		Actual:     []statement.Transaction{},
	}

	for _, e := range entries {
		for _, d := range Occurrences(e, year, month) {
			s.Planned = append(s.Planned, PlannedItem{Entry: e, Date: utils.FormatYMD(d)})
		}
	}
	sort.SliceStable(s.Planned, func(i, j int) bool { return s.Planned[i].Date < s.Planned[j].Date })

	dates := make([]time.Time, len(txs))
	for i, tx := range txs {
		d, err := utils.ParseYMD(tx.Date)
		if err != nil {
			continue
		}
		dates[i] = d
		if d.Year() == year && d.Month() == month {
			s.Actual = append(s.Actual, tx)
		}
	}

	used := make([]bool, len(txs))
	for i := range s.Planned {
		p := &s.Planned[i]
		due, _ := utils.ParseYMD(p.Date)
		best, bestGap := -1, math.MaxInt
		for j, tx := range txs {
			if used[j] || dates[j].IsZero() || !pays(tx, p.Entry) {
				continue
			}
			gap := int(math.Abs(dates[j].Sub(due).Hours() / 24))
			if gap <= matchWindowDays && gap < bestGap {
				best, bestGap = j, gap
			}
		}
		if best >= 0 {
			used[best] = true
			p.Matched = true
			p.TransactionID = txs[best].ID
		}
	}

	income, expenses := decimal.Zero, decimal.Zero
	add := func(dir constants.Direction, cat constants.BudgetCategory, amt decimal.Decimal) {
		if cat == "" {
			cat = constants.BudgetOther
		}
		signed := amt
		if dir == constants.Debit {
			expenses = expenses.Add(amt)
			signed = amt.Neg()
		} else {
			income = income.Add(amt)
		}
		s.ByCategory[cat] = utils.NewMoney(s.ByCategory[cat].Decimal.Add(signed))
	}
	for _, tx := range s.Actual {
		add(tx.Direction, tx.Category, tx.Amount.Decimal)
	}
	for _, p := range s.Planned {
		if !p.Matched {
			add(p.Entry.Direction, p.Entry.Category, p.Entry.Amount.Decimal)
		}
	}
	s.Income = utils.NewMoney(income)
	s.Expenses = utils.NewMoney(expenses)
	s.Net = utils.NewMoney(income.Sub(expenses))
	return s
}

func pays(tx statement.Transaction, e Entry) bool {
	if tx.Direction != e.Direction {
		return false
	}
	want := e.Amount.Decimal.Abs()
	diff := tx.Amount.Decimal.Abs().Sub(want).Abs()
	if diff.GreaterThan(want.Mul(amountTolerance)) {
		return false
	}
	planned := words(e.Description)
	if len(planned) == 0 {
		return true
	}
	for w := range words(tx.Description + " " + tx.Counterparty) {
		if planned[w] {
			return true
		}
	}
	return false
}

var wordRe = regexp.MustCompile(`[a-z]{3,}`)

var stopWords = map[string]bool{"the": true, "and": true, "payment": true, "direct": true, "debit": true, "ltd": true, "limited": true, "plc": true}

func words(s string) map[string]bool {
	out := map[string]bool{}
	for _, w := range wordRe.FindAllString(strings.ToLower(s), -1) {
		if !stopWords[w] {
			out[w] = true
		}
	}
	return out
}
