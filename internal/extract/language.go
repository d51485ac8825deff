package extract

import (
	"strings"

	"github.com/pemistahl/lingua-go"
)

// LanguageDetector guesses the language of a text as an ISO 639-1 code.
type LanguageDetector interface {
	Detect(text string) (string, bool)
}

var defaultLanguages = []lingua.Language{
	lingua.English, lingua.French, lingua.German, lingua.Spanish,
	lingua.Italian, lingua.Portuguese, lingua.Polish, lingua.Dutch,
}

// detection only needs a sample; long bodies make lingua slow
const languageSample = 1000

type LinguaDetector struct {
	detector lingua.LanguageDetector
}

// NewLinguaDetector builds a detector over langs, or a default set of European
// languages when fewer than two are given. Building is expensive; share the result.
func NewLinguaDetector(langs ...lingua.Language) *LinguaDetector {
	if len(langs) < 2 {
		langs = defaultLanguages
	}
	d := lingua.NewLanguageDetectorBuilder().
		FromLanguages(langs...).
		WithMinimumRelativeDistance(0.1).
		Build()
	return &LinguaDetector{detector: d}
}

func (l *LinguaDetector) Detect(text string) (string, bool) {
	if r := []rune(text); len(r) > languageSample {
		text = string(r[:languageSample])
	}
	lang, ok := l.detector.DetectLanguageOf(text)
	if !ok {
		return "", false
	}
	return strings.ToLower(lang.IsoCode639_1().String()), true
}
