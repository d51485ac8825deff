package statement

import (
	"regexp"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/joseph-ayodele/household-extractor/constants"
	"github.com/joseph-ayodele/household-extractor/internal/patterns"
)

var markerRe = regexp.MustCompile(`(?i)\s*(CR|DR)\.?\s*$`)

// parseSignedAmount reads "-45.20", "(45.20)", "£45.20 DR" or "12.00CR". The marker,
// when present, is returned as the direction and wins over the sign.
func parseSignedAmount(s string) (decimal.Decimal, constants.Direction, bool) {
	s = strings.TrimSpace(s)
	var dir constants.Direction
	if m := markerRe.FindStringSubmatch(s); m != nil {
		if strings.EqualFold(m[1], "CR") {
			dir = constants.Credit
		} else {
			dir = constants.Debit
		}
		s = strings.TrimSpace(s[:len(s)-len(m[0])])
	}
	// some exports print debits as "45.20-"
	s = strings.TrimSpace(s)
	trailingMinus := strings.HasSuffix(s, "-")
	d, ok := patterns.ParseAmount(strings.TrimSuffix(s, "-"))
	if !ok {
		return decimal.Zero, "", false
	}
	if trailingMinus {
		d = d.Neg()
	}
	if dir != "" {
		return d.Abs(), dir, true
	}
	return d, "", true
}

// directionFromSign maps a signed amount onto (positive amount, direction).
func directionFromSign(d decimal.Decimal) (decimal.Decimal, constants.Direction) {
	if d.IsNegative() {
		return d.Neg(), constants.Debit
	}
	return d, constants.Credit
}

var (
	creditCues = []string{
		"salary", "payroll", "refund", "interest paid", "interest credit", "transfer from",
		"paid in", "bgc", "bank giro credit", "fpi", "faster payments receipt", "deposit", "cash in",
		"child benefit", "hmrc", "dividend", "cashback",
	}
	debitCues = []string{
		"card payment", "card purchase", "contactless", "direct debit", " dd ", "standing order",
		" so ", "payment to", "bill payment", "withdrawal", "atm", "cash machine", " pos ",
		"fee", "charge", "transfer to", "fpo",
	}
)

// directionFromCues guesses the direction from description wording.
func directionFromCues(desc string) (constants.Direction, bool) {
	lower := " " + strings.ToLower(desc) + " "
	for _, c := range creditCues {
		if strings.Contains(lower, c) {
			return constants.Credit, true
		}
	}
	for _, c := range debitCues {
		if strings.Contains(lower, c) {
			return constants.Debit, true
		}
	}
	return "", false
}
