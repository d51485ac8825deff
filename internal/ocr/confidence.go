package ocr

import (
	"strings"

	"github.com/joseph-ayodele/household-extractor/internal/patterns"
)

var gbpWords = []string{"£", "gbp", "vat", "total", "balance"}

// heuristicConfidence scores OCR output by how much it looks like a UK household
// document: dates, GBP amounts and money vocabulary.
func heuristicConfidence(txt string) float32 {
	score := float32(0.2)
	if patterns.NumericDateRe.MatchString(txt) || patterns.LongDateRe.MatchString(txt) {
		score += 0.2
	}
	lower := strings.ToLower(txt)
	for _, w := range gbpWords {
		if strings.Contains(lower, w) {
			score += 0.15
			break
		}
	}
	if len(patterns.FindAmounts(txt)) > 0 {
		score += 0.15
	}
	if len(txt) > 120 {
		score += 0.1
	}
	return min(score, 1)
}

// textLayerConfidence is for text read straight from the PDF: the characters are
// exact, so only the layout heuristics can lower it.
func textLayerConfidence(txt string) float32 {
	return min(0.6+0.5*heuristicConfidence(txt), 1)
}
