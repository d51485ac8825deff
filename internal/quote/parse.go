package quote

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
	"unicode"

	"github.com/shopspring/decimal"

	"github.com/joseph-ayodele/household-extractor/constants"
	"github.com/joseph-ayodele/household-extractor/internal/classify"
	"github.com/joseph-ayodele/household-extractor/internal/extract"
	"github.com/joseph-ayodele/household-extractor/internal/patterns"
	"github.com/joseph-ayodele/household-extractor/internal/utils"
)

var (
	qtyRe         = regexp.MustCompile(`(?i)^\W*(\d{1,3}(?:\.\d+)?)\s*(?:x|×|no\.?|off)\s`)
	paymentLineRe = regexp.MustCompile(`(?i)\b(?:deposit|already paid|amount paid|balance (?:due|remaining)|payment terms|paid to date)\b`)
	vatExcludedRe = regexp.MustCompile(`(?i)(?:\bplus|\+|\bexc(?:l|luding)?\.?)\s*vat\b`)
	letterheadRe  = regexp.MustCompile(`(?i)\b(?:ltd|limited|llp|services|and\s+sons)\b|&\s*sons\b`)
	discountRe    = regexp.MustCompile(`(?i)\b(?:discount|less|rebate|deduct(?:ion|ed)?|money\s+off|credit\s+note)\b`)
	vatWordRe     = regexp.MustCompile(`(?i)\bvat\b`)
	vatBaseRe     = regexp.MustCompile(`(?i)\b(?:on|of)\W*$`)
	descTrim      = " :;-–—.,@="
)

// Parser turns free quote or receipt text into an ExtractedQuote.
type Parser struct {
	classifier *classify.Classifier
	defaultVAT decimal.Decimal
}

type ParserOption func(*Parser)

// WithClassifier swaps the keyword classifier.
func WithClassifier(c *classify.Classifier) ParserOption {
	return func(p *Parser) {
		if c != nil {
			p.classifier = c
		}
	}
}

// WithDefaultVATRate is the rate assumed when a document says "plus VAT" without one.
func WithDefaultVATRate(rate float64) ParserOption {
	return func(p *Parser) { p.defaultVAT = decimal.NewFromFloat(rate) }
}

func NewParser(opts ...ParserOption) *Parser {
	p := &Parser{classifier: classify.New(nil)}
	for _, o := range opts {
		o(p)
	}
	return p
}

var defaultParser = NewParser()

// ParseQuote parses with the default keyword library and no assumed VAT rate.
func ParseQuote(text string, anchor time.Time) ExtractedQuote {
	return defaultParser.Parse(text, anchor)
}

// Parse never fails. Segments carrying a GBP amount become line items, "Total" and
// "Subtotal" segments become hints, and contractor details come from the contact
// extractor. Anything missing lowers Confidence.
func (p *Parser) Parse(text string, anchor time.Time) ExtractedQuote {
	if extract.LooksLikeHTML(text) {
		if plain, err := extract.HTMLToText(text); err == nil {
			text = plain
		}
	}
	if strings.TrimSpace(text) == "" {
		q := Aggregate(nil, Hints{})
		q.Confidence = 0
		return q
	}

	var (
		items     []QuoteLineItem
		hints     Hints
		warnings  []string
		lastTotal *decimal.Decimal
	)
	for _, seg := range extract.SplitSentences(text) {
		amounts := patterns.FindAmounts(seg)
		if len(amounts) == 0 {
			continue
		}
		last := amounts[len(amounts)-1].Value
		switch {
		case patterns.SubtotalLabelRe.MatchString(seg):
			hints.ExplicitSubtotal = &last
			continue
		case patterns.TotalLabelRe.MatchString(seg):
			lastTotal = &last
			continue
		case paymentLineRe.MatchString(seg):
			continue
		}
		items = append(items, p.segmentItems(seg, amounts)...)
	}
	hints.ExplicitTotal = lastTotal

	if rate, ok := patterns.FindVATRate(text); ok {
		hints.VATRate = &rate
	} else if vatExcludedRe.MatchString(text) && p.defaultVAT.IsPositive() && !hasCategory(items, constants.VAT) {
		rate := p.defaultVAT
		hints.VATRate = &rate
		warnings = append(warnings, fmt.Sprintf("VAT rate not stated; assumed %s%%", rate.Mul(decimal.NewFromInt(100)).String()))
	}

	q := Aggregate(items, hints)
	q.Warnings = append(q.Warnings, warnings...)
	if len(items) == 0 {
		q.Warnings = append(q.Warnings, "no priced line items found")
	}

	p.fillContractor(&q, text)

	dates, dateWarnings := extract.FindDates(text, anchor)
	if len(dates) > 0 {
		q.Date = dates[0].Date
	}
	q.Warnings = append(q.Warnings, dateWarnings...)

	q.Confidence = Confidence(hints.ExplicitTotal != nil, len(items) > 0, q.Date != "", q.HasContact())
	return q
}

// segmentItems turns one segment into line items. "2 x radiator @ £120 = £240" is a
// single item with quantity and unit price. Otherwise every amount is an item,
// labelled by the text before it ("Labour £450, materials £230") or, when the
// segment opens with an amount, by the text after it ("£450 labour, £230 materials").
func (p *Parser) segmentItems(seg string, amounts []patterns.AmountMatch) []QuoteLineItem {
	if m := qtyRe.FindStringSubmatch(seg); m != nil && len(amounts) >= 2 {
		qty, _ := strconv.ParseFloat(m[1], 64)
		unit := utils.NewMoney(amounts[0].Value)
		amount := utils.NewMoney(amounts[len(amounts)-1].Value)
		it := p.item(describe(seg, amounts), seg, amount)
		it.Quantity = &qty
		it.UnitPrice = &unit
		if unit.Mul(decimal.NewFromFloat(qty)).Sub(amount.Decimal).Abs().GreaterThan(Tolerance) {
			it.Notes = "quantity × unit price does not match the amount"
		}
		return []QuoteLineItem{it}
	}

	amounts = dropVATBase(seg, amounts)
	labelAfter := !hasLetters(seg[:amounts[0].Start])
	out := make([]QuoteLineItem, 0, len(amounts))
	for i, a := range amounts {
		var label string
		if labelAfter {
			end := len(seg)
			if i+1 < len(amounts) {
				end = amounts[i+1].Start
			}
			label = seg[a.End:end]
		} else {
			start := 0
			if i > 0 {
				start = amounts[i-1].End
			}
			label = seg[start:a.Start]
			if i == len(amounts)-1 {
				label += " " + seg[a.End:]
			}
		}
		v := a.Value
		if v.IsPositive() && discountRe.MatchString(label) {
			v = v.Neg()
		}
		out = append(out, p.item(cleanDescription(label), label, utils.NewMoney(v)))
	}
	return out
}

// dropVATBase removes the net amount a VAT line is worked out on: in "VAT 20% on
// £680.50: £136.10" only £136.10 is an item.
func dropVATBase(seg string, amounts []patterns.AmountMatch) []patterns.AmountMatch {
	if len(amounts) < 2 || !vatWordRe.MatchString(seg) {
		return amounts
	}
	kept := make([]patterns.AmountMatch, 0, len(amounts))
	prev := 0
	for i, a := range amounts {
		lead := seg[prev:a.Start]
		if i < len(amounts)-1 && vatBaseRe.MatchString(lead) && vatWordRe.MatchString(lead) {
			continue
		}
		kept = append(kept, a)
		prev = a.End
	}
	return kept
}

func (p *Parser) item(description, label string, amount utils.Money) QuoteLineItem {
	cat := p.classifier.ClassifyLine(label)
	if description == "" {
		description = string(cat)
	}
	return QuoteLineItem{Description: description, Category: cat, Amount: amount}
}

func describe(seg string, amounts []patterns.AmountMatch) string {
	var b strings.Builder
	prev := 0
	for _, a := range amounts {
		b.WriteString(seg[prev:a.Start])
		b.WriteByte(' ')
		prev = a.End
	}
	b.WriteString(seg[prev:])
	return cleanDescription(b.String())
}

func cleanDescription(s string) string {
	return strings.Trim(strings.Join(strings.Fields(s), " "), descTrim)
}

func hasLetters(s string) bool {
	for _, r := range s {
		if unicode.IsLetter(r) {
			return true
		}
	}
	return false
}

func (p *Parser) fillContractor(q *ExtractedQuote, text string) {
	contacts := extract.FindContacts(text, "")
	if len(contacts) > 0 {
		c := contacts[0]
		q.Contact = c.Name
		q.Company = c.Company
		q.Phone = c.Phone
		q.Email = c.Email
	}
	lines := strings.Split(text, "\n")
	for i, l := range lines {
		l = strings.TrimSpace(l)
		if l == "" {
			continue
		}
		if q.Company == "" && i < 5 && letterheadRe.MatchString(l) && len(strings.Fields(l)) <= 6 && len(patterns.FindAmounts(l)) == 0 {
			q.Company = l
		}
		if q.Address == "" && patterns.PostcodeRe.MatchString(l) && !strings.Contains(l, "@") {
			q.Address = strings.Trim(l, " ,")
		}
	}
	q.ContractorName = q.Company
	if q.ContractorName == "" {
		q.ContractorName = q.Contact
	}
}

func hasCategory(items []QuoteLineItem, cat constants.QuoteCategory) bool {
	for _, it := range items {
		if it.Category == cat {
			return true
		}
	}
	return false
}
