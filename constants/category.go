package constants

import (
	"strings"
)

// QuoteCategory is the bucket a priced line falls into.
type QuoteCategory string

const (
	Labour    QuoteCategory = "labour"
	Materials QuoteCategory = "materials"
	Fixtures  QuoteCategory = "fixtures"
	Sundries  QuoteCategory = "sundries"
	VAT       QuoteCategory = "vat"
	Other     QuoteCategory = "other"
)

// CategoryPriority is the tie-break order used when two categories score the same.
var CategoryPriority = []QuoteCategory{
	Fixtures,
	Materials,
	Labour,
	Sundries,
	VAT,
	Other,
}

func AsStringSlice() []string {
	result := make([]string, len(CategoryPriority))
	for i, cat := range CategoryPriority {
		result[i] = string(cat)
	}
	return result
}

// Rank returns the position of c in CategoryPriority; lower wins ties.
func Rank(c QuoteCategory) int {
	for i, cat := range CategoryPriority {
		if cat == c {
			return i
		}
	}
	return len(CategoryPriority)
}

func Canonicalize(input string) (QuoteCategory, bool) {
	if input == "" {
		return Other, false
	}

	normalized := strings.ToLower(strings.TrimSpace(input))

	synonyms := map[string]QuoteCategory{
		"labor":       Labour,
		"work":        Labour,
		"workmanship": Labour,
		"material":    Materials,
		"supplies":    Materials,
		"fixture":     Fixtures,
		"fittings":    Fixtures,
		"fitting":     Fixtures,
		"sundry":      Sundries,
		"misc":        Sundries,
		"tax":         VAT,
		"v.a.t.":      VAT,
	}

	if cat, ok := synonyms[normalized]; ok {
		return cat, true
	}

	for _, cat := range CategoryPriority {
		if normalized == string(cat) {
			return cat, true
		}
	}

	return Other, false
}

// BudgetCategory is the household budget bucket a bank line is filed under.
type BudgetCategory string

const (
	BudgetGroceries     BudgetCategory = "groceries"
	BudgetUtilities     BudgetCategory = "utilities"
	BudgetHousing       BudgetCategory = "housing"
	BudgetTransport     BudgetCategory = "transport"
	BudgetEatingOut     BudgetCategory = "eating_out"
	BudgetSubscriptions BudgetCategory = "subscriptions"
	BudgetIncome        BudgetCategory = "income"
	BudgetTransfers     BudgetCategory = "transfers"
	BudgetHome          BudgetCategory = "home"
	BudgetOther         BudgetCategory = "other"
)
