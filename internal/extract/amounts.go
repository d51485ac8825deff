package extract

import (
	"strings"

	"github.com/joseph-ayodele/household-extractor/internal/patterns"
)

var (
	quoteCues    = []string{"quotation", "quoted", "quote", "fixed price", "our price"}
	estimateCues = []string{"estimated", "estimate", "approximately", "approx", "around", "about", "roughly", "ballpark", "in the region of", "est."}
)

// FindPrices returns every GBP amount in text. Its type comes from the nearest
// quote or estimate cue in the same sentence; no cue means a bare mention.
func FindPrices(text string) []Price {
	matches := patterns.FindAmounts(text)
	out := make([]Price, 0, len(matches))
	for _, m := range matches {
		s, e := sentenceAround(text, m.Start, m.End)
		before := strings.ToLower(text[s:m.Start])
		after := strings.ToLower(text[m.End:e])

		typ := PriceMention
		qd := cueDistance(before, after, quoteCues)
		ed := cueDistance(before, after, estimateCues)
		switch {
		case qd >= 0 && (ed < 0 || qd <= ed):
			typ = PriceQuote
		case ed >= 0:
			typ = PriceEstimate
		}

		out = append(out, Price{
			Amount:   m.Value.Round(2).InexactFloat64(),
			Currency: "GBP",
			Type:     typ,
			Context:  truncate(collapseSpace(text[s:e]), 160),
		})
	}
	return out
}

// cueDistance is the byte distance from the amount to the closest cue, or -1.
func cueDistance(before, after string, cues []string) int {
	best := -1
	for _, c := range cues {
		if i := strings.LastIndex(before, c); i >= 0 {
			if d := len(before) - (i + len(c)); best < 0 || d < best {
				best = d
			}
		}
		if i := strings.Index(after, c); i >= 0 {
			if best < 0 || i < best {
				best = i
			}
		}
	}
	return best
}
