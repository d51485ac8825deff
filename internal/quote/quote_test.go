package quote

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/household-extractor/constants"
	"github.com/joseph-ayodele/household-extractor/internal/utils"
)

var anchor = time.Date(2025, 3, 5, 0, 0, 0, 0, time.UTC)

const bathroomQuote = "Quote: bathroom refit. Labour: £450.00. Materials: £230.50. VAT (20%): £136.10. Total: £816.60"

func assertBalanced(t *testing.T, q ExtractedQuote) {
	t.Helper()
	parts := q.LabourTotal.Add(q.MaterialsTotal.Decimal).Add(q.FixturesTotal.Decimal).Add(q.OtherTotal.Decimal)
	assert.True(t, parts.Sub(q.Subtotal.Decimal).Abs().LessThanOrEqual(Tolerance),
		"category totals %s do not sum to subtotal %s", parts, q.Subtotal)
}

func TestParseQuoteWorkedExample(t *testing.T) {
	q := ParseQuote(bathroomQuote, anchor)

	assert.Equal(t, "450.00", q.LabourTotal.String())
	assert.Equal(t, "230.50", q.MaterialsTotal.String())
	assert.Equal(t, "0.00", q.FixturesTotal.String())
	assert.Equal(t, "0.00", q.OtherTotal.String())
	assert.Equal(t, "136.10", q.VATAmount.String())
	assert.Equal(t, "680.50", q.Subtotal.String())
	assert.Equal(t, "816.60", q.Total.String())
	assert.Empty(t, q.Warnings)
	require.NotNil(t, q.VATRate)
	assert.InDelta(t, 0.2, *q.VATRate, 1e-9)
	assert.InDelta(t, 0.7, q.Confidence, 1e-9)
	assert.Equal(t, constants.MethodRegex, q.Method)

	require.Len(t, q.LineItems, 3)
	assert.Equal(t, constants.Labour, q.LineItems[0].Category)
	assert.Equal(t, "Labour", q.LineItems[0].Description)
	assert.Equal(t, constants.VAT, q.LineItems[2].Category)
	assert.Equal(t, "VAT (20%)", q.LineItems[2].Description)
	for _, it := range q.LineItems {
		assert.NotEmpty(t, it.ID)
	}
	assertBalanced(t, q)
}

func TestParseQuoteMissingTotal(t *testing.T) {
	withTotal := ParseQuote(bathroomQuote, anchor)
	q := ParseQuote("Quote: bathroom refit. Labour: £450.00. Materials: £230.50. VAT (20%): £136.10.", anchor)

	assert.Equal(t, "816.60", q.Total.String())
	assert.Empty(t, q.Warnings)
	assert.Less(t, q.Confidence, withTotal.Confidence)
}

func TestParseQuoteConflictingTotal(t *testing.T) {
	q := ParseQuote("Labour: £450.00. Materials: £230.50. VAT (20%): £136.10. Total: £900.00", anchor)

	assert.Equal(t, "900.00", q.Total.String())
	assert.Equal(t, "680.50", q.Subtotal.String())
	require.Len(t, q.Warnings, 1)
	assert.Contains(t, q.Warnings[0], "900.00")
	assert.Contains(t, q.Warnings[0], "816.60")
	assertBalanced(t, q)
}

func TestParseQuoteVATFromRate(t *testing.T) {
	q := ParseQuote("Labour £100. Materials £50. Plus VAT at 20%.", anchor)
	assert.Equal(t, "150.00", q.Subtotal.String())
	assert.Equal(t, "30.00", q.VATAmount.String())
	assert.Equal(t, "180.00", q.Total.String())
	assert.Empty(t, q.Warnings)
}

func TestParseQuoteDefaultVATRate(t *testing.T) {
	q := NewParser(WithDefaultVATRate(0.2)).Parse("Kitchen fitting £1,000 plus VAT", anchor)
	require.Len(t, q.LineItems, 1)
	assert.Equal(t, constants.Labour, q.LineItems[0].Category)
	assert.Equal(t, "200.00", q.VATAmount.String())
	assert.Equal(t, "1200.00", q.Total.String())
	require.Len(t, q.Warnings, 1)
	assert.Contains(t, q.Warnings[0], "VAT rate not stated")

	// without a configured default nothing is assumed
	q = ParseQuote("Kitchen fitting £1,000 plus VAT", anchor)
	assert.Equal(t, "0.00", q.VATAmount.String())
}

func TestParseQuoteQuantityLine(t *testing.T) {
	q := ParseQuote("2 x radiators @ £120.00 = £240.00", anchor)
	require.Len(t, q.LineItems, 1)
	it := q.LineItems[0]
	assert.Equal(t, "2 x radiators", it.Description)
	assert.Equal(t, constants.Fixtures, it.Category)
	require.NotNil(t, it.Quantity)
	assert.InDelta(t, 2, *it.Quantity, 1e-9)
	require.NotNil(t, it.UnitPrice)
	assert.Equal(t, "120.00", it.UnitPrice.String())
	assert.Equal(t, "240.00", it.Amount.String())
	assert.Empty(t, it.Notes)
	assert.Equal(t, "240.00", q.FixturesTotal.String())
}

func TestParseQuoteSeveralAmountsOnOneLine(t *testing.T) {
	q := ParseQuote("Labour £450, materials £230.50", anchor)
	require.Len(t, q.LineItems, 2)
	assert.Equal(t, constants.Labour, q.LineItems[0].Category)
	assert.Equal(t, constants.Materials, q.LineItems[1].Category)

	q = ParseQuote("£450 labour, £230 materials", anchor)
	require.Len(t, q.LineItems, 2)
	assert.Equal(t, constants.Labour, q.LineItems[0].Category)
	assert.Equal(t, constants.Materials, q.LineItems[1].Category)
	assert.Equal(t, "680.00", q.Subtotal.String())
}

func TestParseQuoteContractorDetails(t *testing.T) {
	text := `Smith & Sons Plumbing Ltd
12 High Street, Penge, SE20 7AB

Quotation date: 03/03/2025
Supply and fit new radiator £320.00
Total £320.00

Regards,
Dave Smith
07700 900123`

	q := ParseQuote(text, anchor)
	assert.Equal(t, "Smith & Sons Plumbing Ltd", q.ContractorName)
	assert.Equal(t, "Smith & Sons Plumbing Ltd", q.Company)
	assert.Equal(t, "Dave Smith", q.Contact)
	assert.Equal(t, "07700 900123", q.Phone)
	assert.Equal(t, "12 High Street, Penge, SE20 7AB", q.Address)
	assert.Equal(t, "2025-03-03", q.Date)
	assert.Equal(t, "320.00", q.FixturesTotal.String())
	assert.Empty(t, q.Warnings)
	assert.InDelta(t, 1.0, q.Confidence, 1e-9)
}

func TestParseQuoteSubtotalAndDeposit(t *testing.T) {
	q := ParseQuote("Labour £300. A deposit of £100 is required. Total £300.", anchor)
	require.Len(t, q.LineItems, 1)
	assert.Equal(t, "300.00", q.Total.String())
	assert.Empty(t, q.Warnings)

	q = ParseQuote("Labour £100. Materials £50. Subtotal £160. Total £160.", anchor)
	assert.Equal(t, "150.00", q.Subtotal.String())
	assert.Equal(t, "160.00", q.Total.String())
	assert.Len(t, q.Warnings, 2)
}

func TestParseQuoteVATOnStatedBase(t *testing.T) {
	for _, text := range []string{
		"Labour £450.00. Materials £230.50. VAT 20% on £680.50: £136.10. Total £816.60",
		"Labour £450.00. Materials £230.50. VAT @ 20% of £680.50 = £136.10. Total £816.60",
	} {
		q := ParseQuote(text, anchor)
		assert.Equal(t, "136.10", q.VATAmount.String(), text)
		assert.Equal(t, "680.50", q.Subtotal.String(), text)
		assert.Equal(t, "0.00", q.OtherTotal.String(), text)
		assert.Equal(t, "816.60", q.Total.String(), text)
		assert.Empty(t, q.Warnings, text)
		require.Len(t, q.LineItems, 3, text)
		assert.Equal(t, constants.VAT, q.LineItems[2].Category)
		assertBalanced(t, q)
	}

	// an amount after "of" is only a base when the VAT wording precedes it
	q := ParseQuote("Cost of £450.00 plus VAT £90.00", anchor)
	assert.Equal(t, "450.00", q.Subtotal.String())
	assert.Equal(t, "90.00", q.VATAmount.String())
}

func TestParseQuoteDiscounts(t *testing.T) {
	tests := []struct {
		name string
		text string
	}{
		{"signed", "Labour £450.00. Materials £230.50. Discount -£50.00. Total £630.50"},
		{"bracketed", "Labour £450.00. Materials £230.50. Discount (£50.00). Total £630.50"},
		{"worded", "Labour £450.00. Materials £230.50. Less discount £50.00. Total £630.50"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q := ParseQuote(tt.text, anchor)
			assert.Equal(t, "630.50", q.Subtotal.String())
			assert.Equal(t, "-50.00", q.OtherTotal.String())
			assert.Equal(t, "630.50", q.Total.String())
			assert.Empty(t, q.Warnings)
			assertBalanced(t, q)
		})
	}
}

func TestParseQuoteEmpty(t *testing.T) {
	q := ParseQuote(" \n ", anchor)
	assert.NotNil(t, q.LineItems)
	assert.Empty(t, q.LineItems)
	assert.NotNil(t, q.Warnings)
	assert.Zero(t, q.Confidence)
	assert.Equal(t, "0.00", q.Total.String())
}

func TestAggregateFoldsSundriesIntoOther(t *testing.T) {
	q := Aggregate([]QuoteLineItem{
		{Description: "labour", Category: constants.Labour, Amount: utils.MustMoney("100.10")},
		{Description: "skip", Category: constants.Sundries, Amount: utils.MustMoney("20.05")},
		{Description: "gnome", Category: constants.Other, Amount: utils.MustMoney("5")},
		{Description: "vat", Category: constants.VAT, Amount: utils.MustMoney("25.03")},
	}, Hints{})

	assert.Equal(t, "125.15", q.Subtotal.String())
	assert.Equal(t, "25.05", q.OtherTotal.String())
	assert.Equal(t, "25.03", q.VATAmount.String())
	assert.Equal(t, "150.18", q.Total.String())
	assertBalanced(t, q)
}

func TestAggregateRoundsRateVAT(t *testing.T) {
	rate := decimal.NewFromFloat(0.2)
	q := Aggregate([]QuoteLineItem{
		{Category: constants.Materials, Amount: utils.MustMoney("10.03")},
	}, Hints{VATRate: &rate})
	// 2.006 rounds half up
	assert.Equal(t, "2.01", q.VATAmount.String())
	assert.Equal(t, "12.04", q.Total.String())
}

func TestExtractedQuoteJSON(t *testing.T) {
	b, err := json.Marshal(ParseQuote(bathroomQuote, anchor))
	require.NoError(t, err)
	s := string(b)
	assert.Contains(t, s, `"total":816.60`)
	assert.Contains(t, s, `"materialsTotal":230.50`)
	assert.Contains(t, s, `"lineItems":[`)
	assert.NotContains(t, s, `"company"`)
}
