package classify

import (
	"strings"

	"github.com/joseph-ayodele/household-extractor/constants"
	"github.com/joseph-ayodele/household-extractor/internal/patterns"
)

// Classifier scores lines against a keyword library.
type Classifier struct {
	lib *patterns.Library
}

// New returns a Classifier over lib; a nil lib means the compiled-in defaults.
func New(lib *patterns.Library) *Classifier {
	if lib == nil {
		lib = patterns.DefaultLibrary()
	}
	return &Classifier{lib: lib}
}

var defaultClassifier = New(nil)

// punctuation that ends a word, turned into spaces so padded keywords match "tap," and "sink."
var wordBreaks = strings.NewReplacer(
	",", " ", ";", " ", ":", " ", "(", " ", ")", " ", "/", " ",
	"!", " ", "?", " ", "\"", " ", "\t", " ", "\n", " ", ". ", "  ",
)

// ClassifyLine classifies with the default keyword library.
func ClassifyLine(line string) constants.QuoteCategory {
	return defaultClassifier.ClassifyLine(line)
}

// ClassifyLine returns the category whose keywords occur most often in line.
// Ties go to the earlier entry of constants.CategoryPriority; no hit at all is Other.
func (c *Classifier) ClassifyLine(line string) constants.QuoteCategory {
	best := constants.Other
	bestScore := 0
	for cat, score := range c.Scores(line) {
		if score > bestScore || (score == bestScore && score > 0 && constants.Rank(cat) < constants.Rank(best)) {
			best, bestScore = cat, score
		}
	}
	return best
}

// Scores returns the keyword hit count per category. Categories with no hits are omitted.
func (c *Classifier) Scores(line string) map[constants.QuoteCategory]int {
	out := map[constants.QuoteCategory]int{}
	if strings.TrimSpace(line) == "" {
		return out
	}
	// padded so keywords carrying a leading or trailing space still match at either end
	lower := wordBreaks.Replace(" " + strings.ToLower(line) + " ")
	for _, cat := range constants.CategoryPriority {
		n := 0
		for _, kw := range c.lib.Keywords(cat) {
			if kw == "" {
				continue
			}
			n += strings.Count(lower, kw)
		}
		if n > 0 {
			out[cat] = n
		}
	}
	return out
}
