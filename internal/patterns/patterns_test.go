package patterns

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/household-extractor/constants"
)

func TestParseAmount(t *testing.T) {
	tests := []struct {
		in   string
		want string
		ok   bool
	}{
		{"£1,234.50", "1234.5", true},
		{"GBP 450", "450", true},
		{"£ 12.5", "12.5", true},
		{"(12.00)", "-12", true},
		{"-£3.20", "-3.2", true},
		{"1 200.00", "1200", true},
		{"twelve", "0", false},
		{"", "0", false},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, ok := ParseAmount(tt.in)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got.String())
		})
	}
}

func TestFindAmounts(t *testing.T) {
	got := FindAmounts("Labour: £450.00. Materials: GBP 1,230.5 and 300 quid")
	require.Len(t, got, 2)
	assert.Equal(t, "450", got[0].Value.String())
	assert.Equal(t, "1230.5", got[1].Value.String())
	assert.Equal(t, "£450.00", got[0].Raw)
}

func TestFindAmountsSigns(t *testing.T) {
	tests := []struct {
		in   string
		want []string
	}{
		{"Discount -£50.00", []string{"-50"}},
		{"Discount: (£50.00)", []string{"-50"}},
		{"Discount −£12", []string{"-12"}},
		{"between £450-£500", []string{"450", "500"}},
		{"Labour - £450", []string{"450"}},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got := FindAmounts(tt.in)
			require.Len(t, got, len(tt.want))
			for i, w := range tt.want {
				assert.Equal(t, w, got[i].Value.String())
			}
		})
	}
	got := FindAmounts("Discount: (£50.00)")
	assert.Equal(t, "(£50.00)", got[0].Raw)
}

func TestFindVATRate(t *testing.T) {
	for _, in := range []string{"VAT (20%): £136.10", "plus 20% VAT", "VAT @ 20 %", "VAT at 20%"} {
		rate, ok := FindVATRate(in)
		require.True(t, ok, in)
		assert.Equal(t, "0.2", rate.String(), in)
	}
	_, ok := FindVATRate("no tax mentioned")
	assert.False(t, ok)
}

func TestFindPhones(t *testing.T) {
	text := "Call 07700 900123 or +44 (0)20 7946 0958, office (01632) 960 123. Ref 123456789012."
	got := FindPhones(text)
	assert.Equal(t, []string{"07700 900123", "+44 (0)20 7946 0958", "(01632) 960 123"}, got)
}

func TestFindEmails(t *testing.T) {
	got := FindEmails("mail jo.bloggs@example.co.uk or JO.BLOGGS@example.co.uk, or info@plumb-rite.com.")
	assert.Equal(t, []string{"jo.bloggs@example.co.uk", "info@plumb-rite.com"}, got)
}

func TestMonthAndWeekdayNames(t *testing.T) {
	m, ok := MonthFromName("Sept")
	require.True(t, ok)
	assert.Equal(t, time.September, m)
	d, ok := WeekdayFromName("Wednesday")
	require.True(t, ok)
	assert.Equal(t, time.Wednesday, d)
	_, ok = MonthFromName("xx")
	assert.False(t, ok)
}

func TestLabelRegexes(t *testing.T) {
	assert.True(t, TotalLabelRe.MatchString("Total: £816.60"))
	assert.True(t, TotalLabelRe.MatchString("Grand total £10"))
	assert.False(t, TotalLabelRe.MatchString("Labour: £450.00"))
	assert.True(t, SubtotalLabelRe.MatchString("Sub-total £680.50"))
	assert.True(t, SubtotalLabelRe.MatchString("Total ex VAT £680.50"))
}

func TestParseLibraryOverridesCategory(t *testing.T) {
	lib, err := ParseLibrary([]byte(`
categories:
  - name: fixtures
    keywords: [Jacuzzi, "  "]
  - name: labor
    keywords: [graft]
`))
	require.NoError(t, err)
	assert.Equal(t, []string{"jacuzzi"}, lib.Keywords(constants.Fixtures))
	assert.Equal(t, []string{"graft"}, lib.Keywords(constants.Labour))
	assert.Contains(t, lib.Keywords(constants.Materials), "timber")

	_, err = ParseLibrary([]byte("categories:\n  - name: gadgets\n    keywords: [x]\n"))
	assert.Error(t, err)
}
