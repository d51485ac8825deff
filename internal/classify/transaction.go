package classify

import (
	"regexp"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/joseph-ayodele/household-extractor/constants"
)

type budgetRule struct {
	keyword  string
	category constants.BudgetCategory
}

// Ordered: the first matching rule wins, so more specific merchants sit above generic words.
var budgetRules = []budgetRule{
	{"salary", constants.BudgetIncome},
	{"payroll", constants.BudgetIncome},
	{"hmrc", constants.BudgetIncome},
	{"child benefit", constants.BudgetIncome},
	{"interest paid", constants.BudgetIncome},
	{"refund", constants.BudgetIncome},

	{"tesco", constants.BudgetGroceries},
	{"sainsbury", constants.BudgetGroceries},
	{"asda", constants.BudgetGroceries},
	{"morrisons", constants.BudgetGroceries},
	{"waitrose", constants.BudgetGroceries},
	{"aldi", constants.BudgetGroceries},
	{"lidl", constants.BudgetGroceries},
	{"ocado", constants.BudgetGroceries},
	{"co-op", constants.BudgetGroceries},
	{"m&s food", constants.BudgetGroceries},

	{"british gas", constants.BudgetUtilities},
	{"octopus energy", constants.BudgetUtilities},
	{"edf", constants.BudgetUtilities},
	{"e.on", constants.BudgetUtilities},
	{"thames water", constants.BudgetUtilities},
	{"water", constants.BudgetUtilities},
	{"council tax", constants.BudgetUtilities},
	{"bt group", constants.BudgetUtilities},
	{"virgin media", constants.BudgetUtilities},
	{"sky digital", constants.BudgetUtilities},
	{"tv licence", constants.BudgetUtilities},
	{"broadband", constants.BudgetUtilities},

	{"mortgage", constants.BudgetHousing},
	{" rent ", constants.BudgetHousing},
	{"home insurance", constants.BudgetHousing},
	{"ground rent", constants.BudgetHousing},
	{"service charge", constants.BudgetHousing},

	{"b&q", constants.BudgetHome},
	{"screwfix", constants.BudgetHome},
	{"toolstation", constants.BudgetHome},
	{"wickes", constants.BudgetHome},
	{"plumb", constants.BudgetHome},
	{"ikea", constants.BudgetHome},

	{"tfl", constants.BudgetTransport},
	{"trainline", constants.BudgetTransport},
	{"uber", constants.BudgetTransport},
	{"shell", constants.BudgetTransport},
	{"bp ", constants.BudgetTransport},
	{"esso", constants.BudgetTransport},
	{"petrol", constants.BudgetTransport},
	{"parking", constants.BudgetTransport},
	{"dvla", constants.BudgetTransport},

	{"netflix", constants.BudgetSubscriptions},
	{"spotify", constants.BudgetSubscriptions},
	{"disney", constants.BudgetSubscriptions},
	{"amazon prime", constants.BudgetSubscriptions},
	{"apple.com", constants.BudgetSubscriptions},
	{"gym", constants.BudgetSubscriptions},

	{"deliveroo", constants.BudgetEatingOut},
	{"just eat", constants.BudgetEatingOut},
	{"restaurant", constants.BudgetEatingOut},
	{"cafe", constants.BudgetEatingOut},
	{"costa", constants.BudgetEatingOut},
	{"starbucks", constants.BudgetEatingOut},
	{"pret a manger", constants.BudgetEatingOut},
	{"mcdonald", constants.BudgetEatingOut},
	{" pub ", constants.BudgetEatingOut},

	{"transfer", constants.BudgetTransfers},
	{"to savings", constants.BudgetTransfers},
	{"standing order", constants.BudgetTransfers},
}

// CategorizeTransaction maps a bank description onto a household budget category.
// Confidence is 0.9 for a merchant-specific hit, 0.6 for a generic word, 0 for no hit.
func CategorizeTransaction(description string) (constants.BudgetCategory, float64) {
	lower := " " + strings.ToLower(description) + " "
	for i, r := range budgetRules {
		if strings.Contains(lower, r.keyword) {
			if isGenericRule(i) {
				return r.category, 0.6
			}
			return r.category, 0.9
		}
	}
	return constants.BudgetOther, 0
}

var genericKeywords = map[string]struct{}{
	"water": {}, " rent ": {}, "refund": {}, "plumb": {}, "petrol": {}, "parking": {},
	"gym": {}, "restaurant": {}, "cafe": {}, " pub ": {}, "transfer": {}, "broadband": {},
}

func isGenericRule(i int) bool {
	_, ok := genericKeywords[budgetRules[i].keyword]
	return ok
}

var (
	// Card/payment rails that prefix the merchant on UK statements.
	counterpartyPrefix = regexp.MustCompile(`(?i)^(card payment to|card purchase|contactless|pos|visa|debit card|dd|direct debit to|direct debit|so|standing order to|fpo|fpi|faster payment to|faster payments? receipt from|bill payment to|bgc|tfr|paypal)\s+`)
	counterpartySuffix = regexp.MustCompile(`(?i)\s+(ltd|limited|plc|llp|uk|gb|gbr|london)\.?$`)
	longDigits         = regexp.MustCompile(`\d{5,}`)
	trailingDate       = regexp.MustCompile(`(?i)\s+(on\s+)?\d{1,2}[/\-]\d{1,2}([/\-]\d{2,4})?$`)
	refNoise           = regexp.MustCompile(`[*#]+`)
	multiSpace         = regexp.MustCompile(`\s{2,}`)
)

var titleCaser = cases.Title(language.BritishEnglish)

// NormalizeCounterparty cleans a raw statement description into a display name:
// payment-rail prefixes, reference numbers and company suffixes are removed.
func NormalizeCounterparty(raw string) string {
	s := strings.TrimSpace(raw)
	s = refNoise.ReplaceAllString(s, " ")
	s = longDigits.ReplaceAllString(s, "")
	s = trailingDate.ReplaceAllString(s, "")
	for i := 0; i < 2; i++ {
		s = counterpartyPrefix.ReplaceAllString(strings.TrimSpace(s), "")
	}
	s = multiSpace.ReplaceAllString(strings.TrimSpace(s), " ")
	for {
		trimmed := counterpartySuffix.ReplaceAllString(s, "")
		if trimmed == s {
			break
		}
		s = trimmed
	}
	s = strings.Trim(s, " ,.-")
	if s == "" {
		return ""
	}
	return titleCaser.String(strings.ToLower(s))
}
