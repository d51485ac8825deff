package extract

import (
	"regexp"
	"sort"

	"github.com/joseph-ayodele/household-extractor/constants"
	"github.com/joseph-ayodele/household-extractor/internal/classify"
)

const maxTopics = 5

type topic struct {
	name     string
	keywords []*regexp.Regexp
}

var householdTopics = []topic{
	newTopic("plumbing", "plumb", "leak", "pipe", "drain", "tap", "toilet", "cistern", "stopcock"),
	newTopic("electrical", "electric", "socket", "wiring", "rewire", "fuse", "consumer unit", "eicr"),
	newTopic("roofing", "roof", "gutter", "chimney", "slate", "flashing", "fascia", "soffit"),
	newTopic("heating", "boiler", "radiator", "heating", "thermostat", "gas safe", "combi"),
	newTopic("garden", "garden", "lawn", "fence", "hedge", "patio", "decking", "tree surgeon"),
	newTopic("school", "school", "term time", "teacher", "homework", "pta", "inset day", "parents evening"),
	newTopic("medical", "doctor", "dentist", "hospital", "prescription", "nhs", "gp appointment"),
	newTopic("insurance", "insurance", "policy", "premium", "renewal", "claim"),
}

func newTopic(name string, keywords ...string) topic {
	t := topic{name: name}
	for _, k := range keywords {
		t.keywords = append(t.keywords, regexp.MustCompile(`(?i)\b`+regexp.QuoteMeta(k)))
	}
	return t
}

var quoteTopics = []constants.QuoteCategory{constants.Labour, constants.Materials, constants.Fixtures, constants.Sundries}

// FindTopics ranks household topics and quote categories by keyword hits, most hits first.
func FindTopics(text string, c *classify.Classifier) []string {
	type scored struct {
		name  string
		score int
	}
	var all []scored
	for _, t := range householdTopics {
		n := 0
		for _, re := range t.keywords {
			n += len(re.FindAllStringIndex(text, -1))
		}
		if n > 0 {
			all = append(all, scored{t.name, n})
		}
	}
	if c != nil {
		scores := c.Scores(text)
		for _, cat := range quoteTopics {
			if n := scores[cat]; n > 0 {
				all = append(all, scored{string(cat), n})
			}
		}
	}
	sort.SliceStable(all, func(i, j int) bool {
		if all[i].score != all[j].score {
			return all[i].score > all[j].score
		}
		return all[i].name < all[j].name
	})
	out := []string{}
	for i := 0; i < len(all) && i < maxTopics; i++ {
		out = append(out, all[i].name)
	}
	return out
}
