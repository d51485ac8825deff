package pipeline

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/joseph-ayodele/household-extractor/constants"
	"github.com/joseph-ayodele/household-extractor/internal/classify"
	"github.com/joseph-ayodele/household-extractor/internal/extract"
	"github.com/joseph-ayodele/household-extractor/internal/llm"
	"github.com/joseph-ayodele/household-extractor/internal/quote"
	"github.com/joseph-ayodele/household-extractor/internal/utils"
)

// QuoteNormalizers maps model spellings such as "Labor" or "Parts" onto the
// category enum before schema validation.
func QuoteNormalizers() llm.Normalizers {
	return llm.Normalizers{"category": func(s string) string {
		c, _ := constants.Canonicalize(s)
		return string(c)
	}}
}

func emailFromAI(d extract.ExtractedEmailData, anchor time.Time) extract.EmailExtraction {
	d = d.Normalize()
	for i := range d.Prices {
		if d.Prices[i].Currency == "" {
			d.Prices[i].Currency = "GBP"
		}
	}
	warnings := []string{}
	if anchor.IsZero() {
		warnings = append(warnings, "no anchor date supplied; relative dates left unresolved")
	}
	return extract.EmailExtraction{
		Data:       d,
		Method:     constants.MethodAI,
		Warnings:   warnings,
		Confidence: extract.Confidence(d),
	}
}

// quoteFromAI rebuilds the quote from model fields so that totals are always
// computed locally rather than trusted.
func quoteFromAI(f llm.QuoteFields) quote.ExtractedQuote {
	items := make([]quote.QuoteLineItem, 0, len(f.LineItems))
	for _, li := range f.LineItems {
		desc := strings.TrimSpace(li.Description)
		cat := constants.Other
		if li.Category != nil {
			if c, ok := constants.Canonicalize(*li.Category); ok {
				cat = c
			}
		} else {
			cat = classify.ClassifyLine(desc)
		}
		it := quote.QuoteLineItem{
			Description: desc,
			Category:    cat,
			Quantity:    li.Quantity,
			Amount:      utils.MoneyFromFloat(li.Amount),
		}
		if li.UnitPrice != nil {
			up := utils.MoneyFromFloat(*li.UnitPrice)
			it.UnitPrice = &up
		}
		items = append(items, it)
	}

	var hints quote.Hints
	if f.Total != nil {
		t := decimal.NewFromFloat(*f.Total)
		hints.ExplicitTotal = &t
	}
	if f.VATRate != nil {
		r := decimal.NewFromFloat(*f.VATRate)
		hints.VATRate = &r
	}

	q := quote.Aggregate(items, hints)
	q.Method = constants.MethodAI
	q.ContractorName = utils.StrOrEmpty(f.ContractorName)
	q.Company = utils.StrOrEmpty(f.Company)
	q.Contact = utils.StrOrEmpty(f.Contact)
	q.Phone = utils.StrOrEmpty(f.Phone)
	q.Email = utils.StrOrEmpty(f.Email)
	q.Address = utils.StrOrEmpty(f.Address)
	if q.ContractorName == "" && q.Company != "" {
		q.ContractorName = q.Company
	}
	if d := utils.StrOrEmpty(f.Date); d != "" {
		if _, err := utils.ParseYMD(d); err == nil {
			q.Date = d
		} else {
			q.Warnings = append(q.Warnings, "model returned an invalid date; dropped")
		}
	}
	if len(items) == 0 {
		q.Warnings = append(q.Warnings, "no priced line items found")
	}
	q.Confidence = quote.Confidence(hints.ExplicitTotal != nil, len(items) > 0, q.Date != "", q.HasContact())
	return q
}
