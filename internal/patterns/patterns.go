// Package patterns holds the compiled regular expressions and keyword lists shared by
// every extractor: GBP amounts, UK dates, phones, emails, VAT rates, postcodes and
// the quote category vocabulary.
package patterns

import (
	"regexp"
	"strings"
	"time"
	"unicode"

	"github.com/shopspring/decimal"
)

var (
	// £1,234.56 | GBP 450 | £ 12.5
	AmountRe = regexp.MustCompile(`(?i)(?:£|\bGBP)\s?(\d{1,3}(?:,\d{3})+|\d+)(?:\.(\d{1,2}))?\b`)

	// 05/03/2025, 5-3-25, 05.03.2025 (day first)
	NumericDateRe = regexp.MustCompile(`\b(\d{1,2})[/.\-](\d{1,2})[/.\-](\d{4}|\d{2})\b`)

	// 5th March 2025, 5 Mar 2025, 05 March, 2025
	LongDateRe = regexp.MustCompile(`(?i)\b(\d{1,2})(?:st|nd|rd|th)?\s+(jan(?:uary)?|feb(?:ruary)?|mar(?:ch)?|apr(?:il)?|may|june?|july?|aug(?:ust)?|sep(?:t(?:ember)?)?|oct(?:ober)?|nov(?:ember)?|dec(?:ember)?)\.?,?\s+(\d{4})\b`)

	// next Wednesday | this Friday
	RelativeWeekdayRe = regexp.MustCompile(`(?i)\b(next|this|coming)\s+(monday|tuesday|wednesday|thursday|friday|saturday|sunday)\b`)

	// Wednesday 5th | Wednesday the 5th
	WeekdayOrdinalRe = regexp.MustCompile(`(?i)\b(monday|tuesday|wednesday|thursday|friday|saturday|sunday)\s+(?:the\s+)?(\d{1,2})(?:st|nd|rd|th)\b`)

	TodayTomorrowRe = regexp.MustCompile(`(?i)\b(today|tomorrow)\b`)

	EmailRe = regexp.MustCompile(`[A-Za-z0-9._%+\-]+@[A-Za-z0-9\-]+(?:\.[A-Za-z0-9\-]+)*\.[A-Za-z]{2,}`)

	// +44 7700 900123 | 0044 (0)20 7946 0958 | 07700-900-123 | (020) 7946 0958
	PhoneRe = regexp.MustCompile(`(?:\+44|0044)\s?(?:\(0\)\s?)?\d(?:[\s\-]?\d){8,9}|\(?0\d{2,4}\)?(?:[\s\-]?\d){6,8}`)

	// VAT (20%) | VAT @ 20% | 20% VAT | VAT at 5 %
	VATRateRe = regexp.MustCompile(`(?i)\bVAT\s*(?:@|at)?\s*\(?\s*(\d{1,2}(?:\.\d+)?)\s*%|(\d{1,2}(?:\.\d+)?)\s*%\s*VAT\b`)

	PostcodeRe = regexp.MustCompile(`(?i)\b([A-Z]{1,2}\d[A-Z\d]?)\s*(\d[A-Z]{2})\b`)

	TotalLabelRe    = regexp.MustCompile(`(?i)^\W*(?:grand\s+|quote\s+|quoted\s+|invoice\s+)?total\b`)
	SubtotalLabelRe = regexp.MustCompile(`(?i)\bsub[\s\-]?total\b|\btotal\s*(?:ex|excl|excluding|before|net\s+of)\.?\s*vat\b|\bnet\s+total\b`)
)

var monthNames = map[string]time.Month{
	"jan": time.January, "feb": time.February, "mar": time.March, "apr": time.April,
	"may": time.May, "jun": time.June, "jul": time.July, "aug": time.August,
	"sep": time.September, "oct": time.October, "nov": time.November, "dec": time.December,
}

// MonthFromName accepts full or abbreviated English month names.
func MonthFromName(s string) (time.Month, bool) {
	s = strings.ToLower(strings.TrimSpace(s))
	if len(s) < 3 {
		return 0, false
	}
	m, ok := monthNames[s[:3]]
	return m, ok
}

var weekdays = map[string]time.Weekday{
	"sunday": time.Sunday, "monday": time.Monday, "tuesday": time.Tuesday, "wednesday": time.Wednesday,
	"thursday": time.Thursday, "friday": time.Friday, "saturday": time.Saturday,
}

// WeekdayFromName accepts full English weekday names.
func WeekdayFromName(s string) (time.Weekday, bool) {
	d, ok := weekdays[strings.ToLower(strings.TrimSpace(s))]
	return d, ok
}

// AmountMatch is one GBP amount found in text.
type AmountMatch struct {
	Value decimal.Decimal
	Raw   string
	Start int
	End   int
}

// FindAmounts returns every GBP amount in text in order of appearance. "-£50" and
// "(£50)" come back negative; the dash of a range like "£450-£500" does not count.
func FindAmounts(text string) []AmountMatch {
	var out []AmountMatch
	for _, loc := range AmountRe.FindAllStringIndex(text, -1) {
		start, end := loc[0], loc[1]
		v, ok := ParseAmount(text[start:end])
		if !ok {
			continue
		}
		switch {
		case start > 0 && text[start-1] == '(' && end < len(text) && text[end] == ')':
			v, start, end = v.Neg(), start-1, end+1
		case strings.HasSuffix(text[:start], "−") && signPosition(text, start-len("−")):
			v, start = v.Neg(), start-len("−")
		case start > 0 && text[start-1] == '-' && signPosition(text, start-1):
			v, start = v.Neg(), start-1
		}
		out = append(out, AmountMatch{Value: v, Raw: text[start:end], Start: start, End: end})
	}
	return out
}

// signPosition reports whether a minus at i starts a number rather than joining
// two words or a range.
func signPosition(text string, i int) bool {
	if i == 0 {
		return true
	}
	c := text[i-1]
	return c == ' ' || c == '\t' || c == '(' || c == ':' || c == '='
}

// ParseAmount parses "£1,234.50", "GBP 12", "1234.5" or "(12.00)" into a decimal.
// Parenthesised values come back negative.
func ParseAmount(s string) (decimal.Decimal, bool) {
	s = strings.TrimSpace(s)
	neg := false
	if strings.HasPrefix(s, "(") && strings.HasSuffix(s, ")") {
		neg = true
		s = strings.TrimSuffix(strings.TrimPrefix(s, "("), ")")
	}
	s = strings.TrimPrefix(s, "£")
	if len(s) >= 3 && strings.EqualFold(s[:3], "GBP") {
		s = s[3:]
	}
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "-") {
		neg = !neg
		s = strings.TrimSpace(s[1:])
	}
	s = strings.TrimPrefix(s, "£")
	s = strings.ReplaceAll(s, ",", "")
	s = strings.ReplaceAll(s, " ", "")
	if s == "" {
		return decimal.Zero, false
	}
	for _, r := range s {
		if !unicode.IsDigit(r) && r != '.' {
			return decimal.Zero, false
		}
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, false
	}
	if neg {
		d = d.Neg()
	}
	return d, true
}

// FindVATRate returns the first VAT percentage in text as a fraction (20% -> 0.20).
func FindVATRate(text string) (decimal.Decimal, bool) {
	m := VATRateRe.FindStringSubmatch(text)
	if m == nil {
		return decimal.Zero, false
	}
	raw := m[1]
	if raw == "" {
		raw = m[2]
	}
	d, err := decimal.NewFromString(raw)
	if err != nil || d.IsZero() {
		return decimal.Zero, false
	}
	return d.Div(decimal.NewFromInt(100)), true
}

// FindPhones returns UK phone numbers in text. Candidates glued to other digits, or
// with an implausible digit count, are dropped.
func FindPhones(text string) []string {
	var out []string
	seen := map[string]struct{}{}
	for _, loc := range PhoneRe.FindAllStringIndex(text, -1) {
		if loc[0] > 0 && isDigitByte(text[loc[0]-1]) {
			continue
		}
		if loc[1] < len(text) && isDigitByte(text[loc[1]]) {
			continue
		}
		raw := strings.TrimSpace(text[loc[0]:loc[1]])
		digits := DigitsOnly(raw)
		if strings.HasPrefix(digits, "0044") {
			digits = digits[2:]
		}
		switch {
		case strings.HasPrefix(digits, "44"):
			rest := strings.TrimPrefix(digits, "44")
			rest = strings.TrimPrefix(rest, "0")
			if len(rest) < 9 || len(rest) > 10 {
				continue
			}
		case strings.HasPrefix(digits, "0"):
			if len(digits) < 10 || len(digits) > 11 {
				continue
			}
		default:
			continue
		}
		if _, dup := seen[digits]; dup {
			continue
		}
		seen[digits] = struct{}{}
		out = append(out, raw)
	}
	return out
}

// FindEmails returns distinct email addresses in order of appearance.
func FindEmails(text string) []string {
	var out []string
	seen := map[string]struct{}{}
	for _, e := range EmailRe.FindAllString(text, -1) {
		e = strings.TrimRight(e, ".")
		key := strings.ToLower(e)
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, e)
	}
	return out
}

// DigitsOnly strips everything but ASCII digits.
func DigitsOnly(s string) string {
	var b strings.Builder
	for i := 0; i < len(s); i++ {
		if isDigitByte(s[i]) {
			b.WriteByte(s[i])
		}
	}
	return b.String()
}

func isDigitByte(b byte) bool { return b >= '0' && b <= '9' }
