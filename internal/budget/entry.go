// Package budget answers "what happens in this month" for planned household
// entries and reconciles them with imported statement lines.
package budget

import (
	"time"

	"github.com/joseph-ayodele/household-extractor/constants"
	"github.com/joseph-ayodele/household-extractor/internal/utils"
)

// Recurrence is how often a budget entry repeats.
type Recurrence string

const (
	None        Recurrence = "none"
	Weekly      Recurrence = "weekly"
	Fortnightly Recurrence = "fortnightly"
	Monthly     Recurrence = "monthly"
	Quarterly   Recurrence = "quarterly"
	Yearly      Recurrence = "yearly"
)

// Recurrences lists the accepted Recurrence values.
func Recurrences() []string {
	return []string{string(None), string(Weekly), string(Fortnightly), string(Monthly), string(Quarterly), string(Yearly)}
}

// Entry is a planned income or outgoing. StartDate is the first occurrence;
// EndDate, when set, is the last day it may occur.
type Entry struct {
	ID          string                   `json:"id"`
	Description string                   `json:"description"`
	Amount      utils.Money              `json:"amount"`
	Direction   constants.Direction      `json:"direction"`
	Category    constants.BudgetCategory `json:"category"`
	Recurrence  Recurrence               `json:"recurrence"`
	StartDate   string                   `json:"startDate"`
	EndDate     string                   `json:"endDate,omitempty"`
}

// OccursIn reports whether e has at least one occurrence in the month.
func OccursIn(e Entry, year int, month time.Month) bool {
	return len(Occurrences(e, year, month)) > 0
}

// Occurrences lists the dates e falls on within the month. Monthly, quarterly and
// yearly entries that start on the 29th-31st land on the last day of shorter months.
// An entry with an unparseable StartDate never occurs.
func Occurrences(e Entry, year int, month time.Month) []time.Time {
	start, err := utils.ParseYMD(e.StartDate)
	if err != nil {
		return nil
	}
	first := time.Date(year, month, 1, 0, 0, 0, 0, time.UTC)
	last := first.AddDate(0, 1, -1)
	if e.EndDate != "" {
		if end, err := utils.ParseYMD(e.EndDate); err == nil && end.Before(last) {
			last = end
		}
	}
	if start.After(last) || last.Before(first) {
		return nil
	}

	switch e.Recurrence {
	case Weekly:
		return everyNDays(start, first, last, 7)
	case Fortnightly:
		return everyNDays(start, first, last, 14)
	case Monthly:
		return everyNMonths(start, first, last, 1)
	case Quarterly:
		return everyNMonths(start, first, last, 3)
	case Yearly:
		return everyNMonths(start, first, last, 12)
	default:
		if !start.Before(first) {
			return []time.Time{start}
		}
		return nil
	}
}

// FilterMonth keeps the entries that occur in the month, in input order.
func FilterMonth(entries []Entry, year int, month time.Month) []Entry {
	out := []Entry{}
	for _, e := range entries {
		if OccursIn(e, year, month) {
			out = append(out, e)
		}
	}
	return out
}

func everyNDays(start, first, last time.Time, n int) []time.Time {
	d := start
	if d.Before(first) {
		gap := int(first.Sub(start).Hours() / 24)
		steps := (gap + n - 1) / n
		d = start.AddDate(0, 0, steps*n)
	}
	var out []time.Time
	for ; !d.After(last); d = d.AddDate(0, 0, n) {
		out = append(out, d)
	}
	return out
}

func everyNMonths(start, first, last time.Time, n int) []time.Time {
	months := (first.Year()-start.Year())*12 + int(first.Month()-start.Month())
	if months < 0 || months%n != 0 {
		return nil
	}
	day := min(start.Day(), daysIn(first.Year(), first.Month()))
	d := time.Date(first.Year(), first.Month(), day, 0, 0, 0, 0, time.UTC)
	if d.Before(start) || d.After(last) {
		return nil
	}
	return []time.Time{d}
}

func daysIn(year int, month time.Month) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}
