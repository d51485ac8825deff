package extract

import (
	"fmt"
	"log/slog"
	"math"
	"strings"

	"github.com/joseph-ayodele/household-extractor/constants"
	"github.com/joseph-ayodele/household-extractor/internal/classify"
)

// Extractor is the deterministic, regex-based field extractor.
type Extractor struct {
	classifier *classify.Classifier
	language   LanguageDetector
	logger     *slog.Logger
}

type Option func(*Extractor)

// WithClassifier sets the classifier used for quote topics.
func WithClassifier(c *classify.Classifier) Option {
	return func(e *Extractor) {
		if c != nil {
			e.classifier = c
		}
	}
}

// WithLanguageDetector enables language detection.
func WithLanguageDetector(d LanguageDetector) Option {
	return func(e *Extractor) { e.language = d }
}

func New(logger *slog.Logger, opts ...Option) *Extractor {
	if logger == nil {
		logger = slog.Default()
	}
	e := &Extractor{classifier: classify.New(nil), logger: logger}
	for _, o := range opts {
		o(e)
	}
	return e
}

// Extract pulls contacts, prices, dates, follow-ups, topics and a summary out of text.
// It never fails: anything it cannot find is left empty and explained in Warnings.
func (e *Extractor) Extract(text string, opts Options) EmailExtraction {
	res := EmailExtraction{
		Data:     EmptyData(),
		Method:   constants.MethodRegex,
		Warnings: []string{},
	}

	if LooksLikeHTML(text) {
		plain, err := HTMLToText(text)
		if err != nil {
			res.Warnings = append(res.Warnings, fmt.Sprintf("html body left as-is: %v", err))
		} else {
			text = plain
		}
	}
	if strings.TrimSpace(text) == "" {
		return res
	}

	if opts.Anchor.IsZero() {
		res.Warnings = append(res.Warnings, "no anchor date supplied; relative dates left unresolved")
	}
	if e.language != nil {
		if code, ok := e.language.Detect(text); ok {
			res.Language = code
			if code != "en" {
				res.Warnings = append(res.Warnings, fmt.Sprintf("text looks like %q; keyword matching is tuned for English", code))
			}
		}
	}

	sentences := SplitSentences(text)
	dates, dateWarnings := FindDates(text, opts.Anchor)
	res.Warnings = append(res.Warnings, dateWarnings...)

	res.Data = ExtractedEmailData{
		Contacts:  FindContacts(text, opts.Sender),
		Prices:    FindPrices(text),
		Dates:     dates,
		FollowUps: FindFollowUps(sentences, opts.Anchor),
		Topics:    FindTopics(text, e.classifier),
		Summary:   Summarize(opts.Subject, sentences),
	}.Normalize()

	if len(res.Data.Contacts) == 0 {
		res.Warnings = append(res.Warnings, "no contact details found")
	}
	if len(res.Data.Prices) == 0 {
		res.Warnings = append(res.Warnings, "no GBP amounts found")
	}
	res.Confidence = Confidence(res.Data)

	e.logger.Debug("extract.email.done",
		"contacts", len(res.Data.Contacts),
		"prices", len(res.Data.Prices),
		"dates", len(res.Data.Dates),
		"follow_ups", len(res.Data.FollowUps),
		"warnings", len(res.Warnings))
	return res
}

// Confidence scores how much of the expected shape was filled in, from 0 to 1.
func Confidence(d ExtractedEmailData) float64 {
	if d.IsEmpty() {
		return 0
	}
	c := 0.2
	for _, found := range []bool{len(d.Contacts) > 0, len(d.Prices) > 0, len(d.Dates) > 0, len(d.FollowUps) > 0} {
		if found {
			c += 0.2
		}
	}
	return math.Min(math.Round(c*100)/100, 1)
}
