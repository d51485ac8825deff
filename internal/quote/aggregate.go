package quote

import (
	"fmt"
	"math"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/joseph-ayodele/household-extractor/constants"
	"github.com/joseph-ayodele/household-extractor/internal/utils"
)

// Tolerance is how far a stated total may drift from the computed one before
// the two are treated as disagreeing.
var Tolerance = decimal.NewFromFloat(0.01)

// Hints carries document-level facts found outside the line items.
type Hints struct {
	ExplicitTotal    *decimal.Decimal
	ExplicitSubtotal *decimal.Decimal
	VATRate          *decimal.Decimal
}

// Aggregate sums line items into an ExtractedQuote.
//
// VAT is the sum of VAT items when there are any, otherwise subtotal × rate when
// a rate is known, otherwise zero. A stated total that disagrees with
// subtotal + VAT wins and adds a warning.
func Aggregate(items []QuoteLineItem, hints Hints) ExtractedQuote {
	q := ExtractedQuote{
		LineItems: make([]QuoteLineItem, 0, len(items)),
		Warnings:  []string{},
		Method:    constants.MethodRegex,
	}

	var subtotal, vatItems, labour, materials, fixtures, other decimal.Decimal
	hasVATItem := false
	for _, it := range items {
		if it.ID == "" {
			it.ID = uuid.NewString()
		}
		if it.Category == "" {
			it.Category = constants.Other
		}
		it.Amount = utils.NewMoney(it.Amount.Decimal)
		q.LineItems = append(q.LineItems, it)

		a := it.Amount.Decimal
		switch it.Category {
		case constants.VAT:
			vatItems = vatItems.Add(a)
			hasVATItem = true
			continue
		case constants.Labour:
			labour = labour.Add(a)
		case constants.Materials:
			materials = materials.Add(a)
		case constants.Fixtures:
			fixtures = fixtures.Add(a)
		default:
			other = other.Add(a)
		}
		subtotal = subtotal.Add(a)
	}

	vat := decimal.Zero
	switch {
	case hasVATItem:
		vat = vatItems
	case hints.VATRate != nil:
		vat = subtotal.Mul(*hints.VATRate).Round(2)
	}
	if hints.VATRate != nil {
		r := hints.VATRate.InexactFloat64()
		q.VATRate = &r
	}

	computed := subtotal.Add(vat)
	total := computed
	if hints.ExplicitTotal != nil {
		stated := hints.ExplicitTotal.Round(2)
		if stated.Sub(computed).Abs().GreaterThan(Tolerance) {
			total = stated
			if len(items) == 0 {
				q.Warnings = append(q.Warnings, fmt.Sprintf("no line items found; using the stated total £%s", stated.StringFixed(2)))
			} else {
				q.Warnings = append(q.Warnings, fmt.Sprintf("stated total £%s differs from computed £%s; keeping the stated total",
					stated.StringFixed(2), computed.StringFixed(2)))
			}
		}
	}
	if hints.ExplicitSubtotal != nil && len(items) > 0 {
		stated := hints.ExplicitSubtotal.Round(2)
		if stated.Sub(subtotal).Abs().GreaterThan(Tolerance) {
			q.Warnings = append(q.Warnings, fmt.Sprintf("stated subtotal £%s differs from the sum of line items £%s",
				stated.StringFixed(2), subtotal.StringFixed(2)))
		}
	}

	q.Subtotal = utils.NewMoney(subtotal)
	q.VATAmount = utils.NewMoney(vat)
	q.Total = utils.NewMoney(total)
	q.LabourTotal = utils.NewMoney(labour)
	q.MaterialsTotal = utils.NewMoney(materials)
	q.FixturesTotal = utils.NewMoney(fixtures)
	q.OtherTotal = utils.NewMoney(other)
	q.Confidence = Confidence(hints.ExplicitTotal != nil, len(items) > 0, false, false)
	return q
}

// Confidence is advisory: it reflects which expected fields were found and never
// decides whether a result is returned.
func Confidence(explicitTotal, hasItems, hasDate, hasContact bool) float64 {
	c := 0.2
	if explicitTotal {
		c += 0.3
	}
	if hasItems {
		c += 0.2
	}
	if hasDate {
		c += 0.15
	}
	if hasContact {
		c += 0.15
	}
	return math.Min(math.Round(c*100)/100, 1)
}
