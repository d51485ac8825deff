package extract

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/joseph-ayodele/household-extractor/internal/patterns"
)

// DateLayout is the wire format of every date this package emits.
const DateLayout = "2006-01-02"

type dateHit struct {
	date       time.Time
	text       string
	kind       DateKind
	start, end int
	warning    string
}

// ResolveDate returns the first date mentioned in text. Relative phrases ("next
// Wednesday", "Friday 5th", "tomorrow") are resolved against anchor; a zero anchor
// leaves them unresolved. The result depends only on its arguments.
func ResolveDate(text string, anchor time.Time) (time.Time, bool) {
	hits := findDates(text, anchor)
	if len(hits) == 0 {
		return time.Time{}, false
	}
	return hits[0].date, true
}

// FindDates returns every date mention in text, in order of appearance, plus
// warnings for mentions whose written weekday disagrees with the resolved date.
func FindDates(text string, anchor time.Time) ([]DateMention, []string) {
	hits := findDates(text, anchor)
	out := make([]DateMention, 0, len(hits))
	var warnings []string
	seen := map[string]struct{}{}
	for _, h := range hits {
		if h.warning != "" {
			warnings = append(warnings, h.warning)
		}
		key := h.date.Format(DateLayout) + "|" + strings.ToLower(h.text)
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, DateMention{
			Date:    h.date.Format(DateLayout),
			Text:    h.text,
			Kind:    h.kind,
			Context: contextAround(text, h.start, h.end),
		})
	}
	return out, warnings
}

func findDates(text string, anchor time.Time) []dateHit {
	loc := time.UTC
	if !anchor.IsZero() {
		loc = anchor.Location()
	}
	var hits []dateHit
	claimed := func(s, e int) bool {
		for _, h := range hits {
			if s < h.end && e > h.start {
				return true
			}
		}
		return false
	}
	add := func(t time.Time, kind DateKind, s, e int, warning string) {
		hits = append(hits, dateHit{date: t, text: text[s:e], kind: kind, start: s, end: e, warning: warning})
	}

	for _, m := range patterns.NumericDateRe.FindAllStringSubmatchIndex(text, -1) {
		day, _ := strconv.Atoi(text[m[2]:m[3]])
		month, _ := strconv.Atoi(text[m[4]:m[5]])
		yearStr := text[m[6]:m[7]]
		year, _ := strconv.Atoi(yearStr)
		if len(yearStr) == 2 {
			year += 2000
		}
		t, ok := validDate(year, time.Month(month), day, loc)
		if !ok || claimed(m[0], m[1]) {
			continue
		}
		add(t, DateAbsolute, m[0], m[1], "")
	}

	for _, m := range patterns.LongDateRe.FindAllStringSubmatchIndex(text, -1) {
		day, _ := strconv.Atoi(text[m[2]:m[3]])
		month, ok := patterns.MonthFromName(text[m[4]:m[5]])
		if !ok {
			continue
		}
		year, _ := strconv.Atoi(text[m[6]:m[7]])
		t, ok := validDate(year, month, day, loc)
		if !ok || claimed(m[0], m[1]) {
			continue
		}
		add(t, DateAbsolute, m[0], m[1], "")
	}

	if !anchor.IsZero() {
		today := dayOf(anchor)

		for _, m := range patterns.RelativeWeekdayRe.FindAllStringSubmatchIndex(text, -1) {
			if claimed(m[0], m[1]) {
				continue
			}
			wd, _ := patterns.WeekdayFromName(text[m[4]:m[5]])
			delta := (int(wd) - int(today.Weekday()) + 7) % 7
			if strings.EqualFold(text[m[2]:m[3]], "next") && delta == 0 {
				delta = 7
			}
			add(today.AddDate(0, 0, delta), DateRelative, m[0], m[1], "")
		}

		for _, m := range patterns.WeekdayOrdinalRe.FindAllStringSubmatchIndex(text, -1) {
			if claimed(m[0], m[1]) {
				continue
			}
			wd, _ := patterns.WeekdayFromName(text[m[2]:m[3]])
			day, _ := strconv.Atoi(text[m[4]:m[5]])
			t, ok := nextDayOfMonth(today, day)
			if !ok {
				continue
			}
			warning := ""
			if t.Weekday() != wd {
				warning = fmt.Sprintf("%q resolved to %s, which is a %s", text[m[0]:m[1]], t.Format(DateLayout), t.Weekday())
			}
			add(t, DateRelative, m[0], m[1], warning)
		}

		for _, m := range patterns.TodayTomorrowRe.FindAllStringSubmatchIndex(text, -1) {
			if claimed(m[0], m[1]) {
				continue
			}
			t := today
			if strings.EqualFold(text[m[2]:m[3]], "tomorrow") {
				t = today.AddDate(0, 0, 1)
			}
			add(t, DateRelative, m[0], m[1], "")
		}
	}

	sort.SliceStable(hits, func(i, j int) bool { return hits[i].start < hits[j].start })
	return hits
}

func dayOf(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

func validDate(year int, month time.Month, day int, loc *time.Location) (time.Time, bool) {
	if month < time.January || month > time.December || day < 1 || day > 31 {
		return time.Time{}, false
	}
	t := time.Date(year, month, day, 0, 0, 0, 0, loc)
	if t.Day() != day || t.Month() != month {
		return time.Time{}, false
	}
	return t, true
}

// nextDayOfMonth is the first date on or after from whose day-of-month is day,
// skipping months too short to have it.
func nextDayOfMonth(from time.Time, day int) (time.Time, bool) {
	for i := 0; i < 13; i++ {
		first := time.Date(from.Year(), from.Month()+time.Month(i), 1, 0, 0, 0, 0, from.Location())
		t, ok := validDate(first.Year(), first.Month(), day, from.Location())
		if ok && !t.Before(from) {
			return t, true
		}
	}
	return time.Time{}, false
}
