package extract

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/household-extractor/constants"
)

// Wednesday
var anchor = time.Date(2025, 3, 5, 15, 30, 0, 0, time.UTC)

const plumberEmail = `Hi Sam,

Thanks for having me round. I can do the job for £450 all in.
Please let me know by Friday 7th if you want to go ahead.

Kind regards,
Dave Smith
Smith & Sons Plumbing Ltd
Director
07700 900123
dave@smithandsons.co.uk`

func TestResolveDate(t *testing.T) {
	tests := []struct {
		text string
		want string
		ok   bool
	}{
		{"see you next Wednesday", "2025-03-12", true},
		{"this Wednesday works", "2025-03-05", true},
		{"next Friday", "2025-03-07", true},
		{"coming Monday", "2025-03-10", true},
		{"tomorrow morning", "2025-03-06", true},
		{"booked for 14/03/2025", "2025-03-14", true},
		{"on 2-4-25", "2025-04-02", true},
		{"12 April 2025", "2025-04-12", true},
		{"Friday 7th", "2025-03-07", true},
		{"Friday 4th", "2025-04-04", true},
		{"Wednesday 5th March 2025", "2025-03-05", true},
		{"31/02/2025", "", false},
		{"see you soon", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			got, ok := ResolveDate(tt.text, anchor)
			require.Equal(t, tt.ok, ok)
			if ok {
				assert.Equal(t, tt.want, got.Format(DateLayout))
			}
		})
	}
}

func TestResolveDateIsRepeatable(t *testing.T) {
	a, ok1 := ResolveDate("call me next Tuesday", anchor)
	b, ok2 := ResolveDate("call me next Tuesday", anchor)
	assert.True(t, ok1 && ok2)
	assert.Equal(t, a, b)
}

func TestResolveDateWithoutAnchor(t *testing.T) {
	_, ok := ResolveDate("next Wednesday", time.Time{})
	assert.False(t, ok)

	got, ok := ResolveDate("next Wednesday or 14/03/2025", time.Time{})
	require.True(t, ok)
	assert.Equal(t, "2025-03-14", got.Format(DateLayout))
}

func TestFindDatesWarnsOnWeekdayMismatch(t *testing.T) {
	dates, warnings := FindDates("Can you come Monday 7th?", anchor)
	require.Len(t, dates, 1)
	assert.Equal(t, "2025-03-07", dates[0].Date)
	assert.Equal(t, DateRelative, dates[0].Kind)
	require.Len(t, warnings, 1)
	assert.Contains(t, warnings[0], "Friday")
}

func TestFindPrices(t *testing.T) {
	got := FindPrices("The quote for the work is £1,200. Parking will be around £15 a day. We paid £40 last time.")
	require.Len(t, got, 3)
	assert.Equal(t, Price{Amount: 1200, Currency: "GBP", Type: PriceQuote, Context: "The quote for the work is £1,200."}, got[0])
	assert.Equal(t, PriceEstimate, got[1].Type)
	assert.InDelta(t, 15, got[1].Amount, 0.001)
	assert.Equal(t, PriceMention, got[2].Type)
}

func TestFindContactsFromSignature(t *testing.T) {
	got := FindContacts(plumberEmail, "")
	require.Len(t, got, 1)
	assert.Equal(t, Contact{
		Name:    "Dave Smith",
		Email:   "dave@smithandsons.co.uk",
		Phone:   "07700 900123",
		Company: "Smith & Sons Plumbing Ltd",
		Role:    "Director",
	}, got[0])
}

func TestFindContactsMergesSender(t *testing.T) {
	got := FindContacts("Can you call me on 020 7946 0958?", "Jo Bloggs <jo@example.com>")
	require.Len(t, got, 1)
	assert.Equal(t, Contact{Name: "Jo Bloggs", Email: "jo@example.com", Phone: "020 7946 0958"}, got[0])
}

func TestFindContactsUppercaseName(t *testing.T) {
	got := FindContacts("See attached.\n\nThanks\nMARY JONES\nmary@example.org", "")
	require.Len(t, got, 1)
	assert.Equal(t, "Mary Jones", got[0].Name)
	assert.Equal(t, "mary@example.org", got[0].Email)
}

func TestFindFollowUps(t *testing.T) {
	got := FindFollowUps(SplitSentences(plumberEmail), anchor)
	require.Len(t, got, 1)
	assert.Equal(t, "Please let me know by Friday 7th if you want to go ahead.", got[0].Action)
	assert.Equal(t, "2025-03-07", got[0].DueDate)
}

func TestSplitSentences(t *testing.T) {
	got := SplitSentences("Quote: bathroom refit. Labour: £450.00. Materials: £230.50. VAT (20%): £136.10. Total: £816.60")
	assert.Equal(t, []string{
		"Quote: bathroom refit.",
		"Labour: £450.00.",
		"Materials: £230.50.",
		"VAT (20%): £136.10.",
		"Total: £816.60",
	}, got)
}

func TestSummarize(t *testing.T) {
	assert.Equal(t, "Bathroom leak: Thanks for having me round.", Summarize("Re: Bathroom leak", SplitSentences(plumberEmail)))
	assert.Equal(t, "Boiler service", Summarize("FW: Boiler service", nil))
	assert.Equal(t, "", Summarize("", nil))
}

func TestHTMLToText(t *testing.T) {
	got, err := HTMLToText(`<html><body><p>Hello&nbsp;there</p><p>Total <b>£120</b></p><script>x()</script></body></html>`)
	require.NoError(t, err)
	assert.Equal(t, "Hello there\n\nTotal £120", got)

	assert.True(t, LooksLikeHTML("<p>hi</p>"))
	assert.False(t, LooksLikeHTML("price < 5 and > 3"))
}

func TestExtract(t *testing.T) {
	res := New(nil).Extract(plumberEmail, Options{Subject: "Re: Bathroom leak", Anchor: anchor})

	assert.Equal(t, constants.MethodRegex, res.Method)
	assert.Empty(t, res.Warnings)
	assert.InDelta(t, 1.0, res.Confidence, 1e-9)
	require.Len(t, res.Data.Contacts, 1)
	require.Len(t, res.Data.Prices, 1)
	assert.Equal(t, PriceMention, res.Data.Prices[0].Type)
	require.Len(t, res.Data.Dates, 1)
	assert.Equal(t, "2025-03-07", res.Data.Dates[0].Date)
	assert.Len(t, res.Data.FollowUps, 1)
	assert.Contains(t, res.Data.Topics, "plumbing")
	assert.Equal(t, "Bathroom leak: Thanks for having me round.", res.Data.Summary)
}

func TestExtractEmptyInput(t *testing.T) {
	res := New(nil).Extract("  \n\t ", Options{})
	assert.True(t, res.Data.IsEmpty())
	assert.NotNil(t, res.Data.Contacts)
	assert.NotNil(t, res.Data.Prices)
	assert.NotNil(t, res.Data.Dates)
	assert.NotNil(t, res.Data.FollowUps)
	assert.NotNil(t, res.Data.Topics)
	assert.Zero(t, res.Confidence)
	assert.Empty(t, res.Warnings)
}

func TestExtractWarnsWithoutAnchor(t *testing.T) {
	res := New(nil).Extract("Could you come next Wednesday? It'll be about £80.", Options{})
	assert.Contains(t, res.Warnings, "no anchor date supplied; relative dates left unresolved")
	assert.Empty(t, res.Data.Dates)
	require.Len(t, res.Data.Prices, 1)
	assert.Equal(t, PriceEstimate, res.Data.Prices[0].Type)
}

func TestExtractHTMLBody(t *testing.T) {
	res := New(nil).Extract(`<div>Our quotation is <b>£2,400.00</b> including VAT.</div>`, Options{Anchor: anchor})
	require.Len(t, res.Data.Prices, 1)
	assert.Equal(t, PriceQuote, res.Data.Prices[0].Type)
	assert.InDelta(t, 2400, res.Data.Prices[0].Amount, 0.001)
}

type stubDetector string

func (s stubDetector) Detect(string) (string, bool) { return string(s), true }

func TestExtractFlagsNonEnglish(t *testing.T) {
	res := New(nil, WithLanguageDetector(stubDetector("fr"))).Extract("Le devis est de £300.", Options{Anchor: anchor})
	assert.Equal(t, "fr", res.Language)
	require.NotEmpty(t, res.Warnings)
	assert.Contains(t, res.Warnings[0], "fr")
	assert.Len(t, res.Data.Prices, 1)
}

func TestLinguaDetector(t *testing.T) {
	if testing.Short() {
		t.Skip("loads language models")
	}
	d := NewLinguaDetector()
	code, ok := d.Detect("Please find attached the quotation for replacing the kitchen worktops and sink.")
	require.True(t, ok)
	assert.Equal(t, "en", code)
}
