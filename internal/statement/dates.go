package statement

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"
)

var dateLayouts = []string{
	"02/01/2006", "2/1/2006", "02/01/06", "2/1/06",
	"02-01-2006", "2-1-2006", "02.01.2006", "02-01-06",
	"2006-01-02", "2006/01/02",
	"02 Jan 2006", "2 Jan 2006", "02 January 2006", "2 January 2006",
	"02-Jan-2006", "2-Jan-2006", "02-Jan-06", "02 Jan 06", "2 Jan 06",
	"Jan 2 2006", "January 2 2006",
}

var noYearLayouts = []string{"02 Jan", "2 Jan", "02 January", "2 January", "02/01", "2/1", "02-Jan"}

var (
	yearRe   = regexp.MustCompile(`\b(20\d{2})\b`)
	serialRe = regexp.MustCompile(`^\d{5}(?:\.\d+)?$`)
)

// parseDate reads UK day-first dates. yearHint fills in dates printed without a
// year; 0 means such dates are rejected.
func parseDate(s string, yearHint int) (time.Time, bool) {
	s = strings.Join(strings.Fields(strings.ReplaceAll(s, ",", " ")), " ")
	if s == "" {
		return time.Time{}, false
	}
	// spreadsheet serial day numbers
	if serialRe.MatchString(s) {
		f, err := strconv.ParseFloat(s, 64)
		if err == nil && f > 20000 && f < 80000 {
			if t, err := excelize.ExcelDateToTime(f, false); err == nil {
				return truncateDay(t), true
			}
		}
		return time.Time{}, false
	}
	if i := strings.IndexAny(s, "T "); i == 10 && s[4] == '-' {
		s = s[:10]
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	if yearHint > 0 {
		for _, layout := range noYearLayouts {
			if t, err := time.Parse(layout, s); err == nil {
				return time.Date(yearHint, t.Month(), t.Day(), 0, 0, 0, 0, time.UTC), true
			}
		}
	}
	return time.Time{}, false
}

func truncateDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// yearHintFrom returns the most frequent 20xx year in text, or 0.
func yearHintFrom(text string) int {
	counts := map[int]int{}
	best, bestN := 0, 0
	for _, m := range yearRe.FindAllStringSubmatch(text, -1) {
		y, _ := strconv.Atoi(m[1])
		counts[y]++
		if counts[y] > bestN || (counts[y] == bestN && y > best) {
			best, bestN = y, counts[y]
		}
	}
	return best
}
