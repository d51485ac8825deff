package patterns

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/joseph-ayodele/household-extractor/constants"
)

// Library is the keyword vocabulary the line classifier scores against.
type Library struct {
	keywords map[constants.QuoteCategory][]string
}

// Keywords match as substrings of the lowercased line. Short words that turn up
// inside longer ones are padded with spaces so they only match whole words.
var defaultKeywords = map[constants.QuoteCategory][]string{
	constants.Fixtures: {
		"fixture", "fittings", "toilet", " wc ", "basin", " sink ", " sinks ", "bath ", "bathtub",
		"shower", " tap ", " taps ", "radiator", "boiler", "vanity", "cistern", "socket", "switch",
		"worktop", "cabinet", " unit ", " units ", "door", "window", "extractor fan", "thermostat",
		"light fitting",
	},
	constants.Materials: {
		"material", "timber", "plaster", "cement", " sand ", "tile", "grout", "adhesive",
		"paint", "pipe", "cable", "copper", "insulation", "screws", "sealant", "silicone",
		"board", "membrane", "mortar", "brick", "slate", "felt", "supplies",
	},
	constants.Labour: {
		"labour", "labor", "fitting", "install", "hour", "hrs", "day rate", "days work",
		"workmanship", "call out", "callout", "call-out", "removal", "strip out", "refit",
		"decorating", "tiling", "plumber", "electrician", "builder",
	},
	constants.Sundries: {
		"sundries", "sundry", "consumables", "skip", "waste", "disposal", "parking",
		"travel", "congestion", "delivery", "misc",
	},
	constants.VAT: {
		"vat", "v.a.t", "value added tax",
	},
}

// DefaultLibrary returns the compiled-in vocabulary.
func DefaultLibrary() *Library {
	kw := make(map[constants.QuoteCategory][]string, len(defaultKeywords))
	for cat, words := range defaultKeywords {
		kw[cat] = append([]string(nil), words...)
	}
	return &Library{keywords: kw}
}

// Keywords returns the lowercase keyword list for a category.
func (l *Library) Keywords(cat constants.QuoteCategory) []string {
	if l == nil {
		return defaultKeywords[cat]
	}
	return l.keywords[cat]
}

type keywordFile struct {
	Categories []struct {
		Name     string   `yaml:"name"`
		Keywords []string `yaml:"keywords"`
	} `yaml:"categories"`
}

// LoadLibrary reads a YAML keyword file and overlays it on the defaults. A category
// listed in the file replaces the default list for that category entirely.
//
//	categories:
//	  - name: fixtures
//	    keywords: [toilet, basin]
func LoadLibrary(path string) (*Library, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read keywords file: %w", err)
	}
	return ParseLibrary(b)
}

// ParseLibrary is LoadLibrary over an in-memory document.
func ParseLibrary(doc []byte) (*Library, error) {
	var kf keywordFile
	if err := yaml.Unmarshal(doc, &kf); err != nil {
		return nil, fmt.Errorf("decode keywords yaml: %w", err)
	}
	lib := DefaultLibrary()
	for _, c := range kf.Categories {
		cat, ok := constants.Canonicalize(c.Name)
		if !ok || cat == constants.Other {
			return nil, fmt.Errorf("unknown keyword category %q", c.Name)
		}
		var words []string
		for _, w := range c.Keywords {
			w = strings.ToLower(w)
			if strings.TrimSpace(w) != "" {
				words = append(words, w)
			}
		}
		lib.keywords[cat] = words
	}
	return lib, nil
}
