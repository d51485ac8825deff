package utils

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Money is a GBP amount held exactly and encoded as a JSON number with two decimals.
type Money struct {
	decimal.Decimal
}

// NewMoney rounds d half away from zero to pence.
func NewMoney(d decimal.Decimal) Money {
	return Money{d.Round(2)}
}

func MoneyFromFloat(f float64) Money {
	return NewMoney(decimal.NewFromFloat(f))
}

// MustMoney parses s or panics; meant for literals.
func MustMoney(s string) Money {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(fmt.Sprintf("utils: bad money literal %q: %v", s, err))
	}
	return NewMoney(d)
}

func (m Money) String() string {
	return m.Decimal.StringFixed(2)
}

func (m Money) MarshalJSON() ([]byte, error) {
	return []byte(m.Decimal.StringFixed(2)), nil
}

// UnmarshalJSON accepts a JSON number, a numeric string or null.
func (m *Money) UnmarshalJSON(b []byte) error {
	s := strings.Trim(strings.TrimSpace(string(b)), `"`)
	s = strings.TrimPrefix(strings.ReplaceAll(s, ",", ""), "£")
	if s == "" || s == "null" {
		m.Decimal = decimal.Zero
		return nil
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return fmt.Errorf("money %q: %w", s, err)
	}
	m.Decimal = d.Round(2)
	return nil
}

// Float is for presentation layers that need a float64 (spreadsheets, PDFs).
func (m Money) Float() float64 {
	return m.Decimal.InexactFloat64()
}

func StrOrEmpty(p *string) string {
	if p == nil {
		return ""
	}
	return *p
}

func ParseYMD(s string) (time.Time, error) {
	t, err := time.ParseInLocation("2006-01-02", s, time.UTC)
	if err != nil {
		return time.Time{}, err
	}
	// strip time to midnight UTC to match DATE semantics
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC), nil
}

func FormatYMD(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format("2006-01-02")
}
