package budget

import (
	"sort"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/joseph-ayodele/household-extractor/constants"
	"github.com/joseph-ayodele/household-extractor/internal/classify"
	"github.com/joseph-ayodele/household-extractor/internal/statement"
	"github.com/joseph-ayodele/household-extractor/internal/utils"
)

// Dedupe drops statement rows that repeat an earlier row's date, amount,
// direction and normalized description. Rows that both carry a running balance
// and disagree on it are genuine repeats and are kept.
func Dedupe(txs []statement.Transaction) (kept, dropped []statement.Transaction) {
	seen := map[string][]int{}
	kept = []statement.Transaction{}
	for _, tx := range txs {
		key := strings.Join([]string{tx.Date, tx.Amount.String(), string(tx.Direction), normalizeDescription(tx.Description)}, "|")
		dup := false
		for _, i := range seen[key] {
			prev := kept[i]
			if prev.Balance == nil || tx.Balance == nil || prev.Balance.Equal(tx.Balance.Decimal) {
				dup = true
				break
			}
		}
		if dup {
			dropped = append(dropped, tx)
			continue
		}
		seen[key] = append(seen[key], len(kept))
		kept = append(kept, tx)
	}
	return kept, dropped
}

func normalizeDescription(s string) string {
	var b strings.Builder
	space := false
	for _, r := range strings.ToLower(s) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			if space && b.Len() > 0 {
				b.WriteByte(' ')
			}
			b.WriteRune(r)
			space = false
		default:
			space = true
		}
	}
	return b.String()
}

const minRecurringMonths = 3

var recurringTolerance = decimal.RequireFromString("0.05")

// DetectRecurring proposes monthly entries for counterparties paid (or paying)
// in at least three distinct months with amounts within 5% of their median.
// Entry IDs are derived from the counterparty so repeated runs agree.
func DetectRecurring(txs []statement.Transaction) []Entry {
	type group struct {
		name string
		dir  constants.Direction
		txs  []statement.Transaction
	}
	groups := map[string]*group{}
	var order []string
	for _, tx := range txs {
		if _, err := utils.ParseYMD(tx.Date); err != nil {
			continue
		}
		name := tx.Counterparty
		if name == "" {
			name = classify.NormalizeCounterparty(tx.Description)
		}
		if name == "" {
			continue
		}
		key := string(tx.Direction) + "|" + strings.ToLower(name)
		g, ok := groups[key]
		if !ok {
			g = &group{name: name, dir: tx.Direction}
			groups[key] = g
			order = append(order, key)
		}
		g.txs = append(g.txs, tx)
	}

	out := []Entry{}
	for _, key := range order {
		g := groups[key]
		median := medianAmount(g.txs)
		limit := median.Mul(recurringTolerance)
		months := map[string]bool{}
		var first, latest statement.Transaction
		for _, tx := range g.txs {
			if tx.Amount.Decimal.Abs().Sub(median).Abs().GreaterThan(limit) {
				continue
			}
			months[tx.Date[:7]] = true
			if first.Date == "" || tx.Date < first.Date {
				first = tx
			}
			if tx.Date >= latest.Date {
				latest = tx
			}
		}
		if len(months) < minRecurringMonths {
			continue
		}
		cat := latest.Category
		if cat == "" {
			cat = constants.BudgetOther
		}
		out = append(out, Entry{
			ID:          uuid.NewSHA1(uuid.NameSpaceOID, []byte(key)).String(),
			Description: g.name,
			Amount:      utils.NewMoney(median),
			Direction:   g.dir,
			Category:    cat,
			Recurrence:  Monthly,
			StartDate:   first.Date,
		})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Description < out[j].Description })
	return out
}

func medianAmount(txs []statement.Transaction) decimal.Decimal {
	amts := make([]decimal.Decimal, len(txs))
	for i, tx := range txs {
		amts[i] = tx.Amount.Decimal.Abs()
	}
	sort.Slice(amts, func(i, j int) bool { return amts[i].LessThan(amts[j]) })
	n := len(amts)
	if n%2 == 1 {
		return amts[n/2]
	}
	return amts[n/2-1].Add(amts[n/2]).Div(decimal.NewFromInt(2))
}
