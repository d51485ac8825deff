package survey

import "strings"

type keywordSet struct {
	name     string
	keywords []string
}

// first matching set wins, so narrower trades sit above the generic "walls"/"structure"
var categoryKeywords = []keywordSet{
	{"damp", []string{"damp", "condensation", "mould", "mold", "dpc", "damp proof", "moisture"}},
	{"electrical", []string{"electric", "wiring", "smoke alarm", "consumer unit", "fuse", "socket", "eicr", "earthing", "rcd"}},
	{"heating", []string{"boiler", "heating", "radiator", "flue", " gas", "hot water cylinder", "fireplace"}},
	{"plumbing", []string{"plumbing", "pipe", "drain", "sewer", " tap", "leak", "toilet", " wc", "sanitary", "water supply", "stopcock", " bath", "shower"}},
	{"roof", []string{"roof", "chimney", "slate", "tile", "flashing", "gutter", "downpipe", "rainwater", "fascia", "soffit", "ridge", "valley", "loft"}},
	{"windows_doors", []string{"window", "door", "glazing", "glazed", "sill", "frame", "conservatory"}},
	{"structure", []string{"subsidence", "foundation", "structural", "lintel", "beam", "joist", "movement", "crack", "floor", "heave", "settlement"}},
	{"walls", []string{"wall", "render", "pointing", "brickwork", "cladding", "masonry", "plaster", "partition"}},
	{"garden", []string{"garden", "fence", " tree", "boundary", " path", "patio", "driveway", "garage", "outbuilding", "hedge"}},
}

var impactKeywords = []struct {
	impact   Impact
	keywords []string
}{
	{ImpactSafety, []string{"safety", "dangerous", "danger", "hazard", "fire risk", "fire door", "fire escape", "smoke alarm", "carbon monoxide", "asbestos", "electric shock", "falling", "unsafe", "injury", "gas leak"}},
	{ImpactStructural, []string{"structural", "subsidence", "foundation", "lintel", "movement", "bowing", "leaning", "crack", "collapse", " rot", "rotten", "beetle", "heave"}},
	{ImpactCompliance, []string{"building regulations", "building control", "certificate", "eicr", "gas safe", "fensa", "planning", "listed", "consent", "compliance", "warranty", "guarantee"}},
	{ImpactEfficiency, []string{"insulation", "insulated", "draught", "energy", "epc", "efficien", "heat loss", "double glazing", "thermostat"}},
}

var actionCues = []string{
	"repair", "replace", "renew", "recommend", "investigate", "check", "remove", "install",
	"treat", "clear", "service", "obtain", "upgrade", "monitor", "refix", "repoint", "rebuild",
	"test", "inspect", "seal", "fit ", "overhaul", "redecorate", "should be", "needs", "require",
}

func categoryOf(texts ...string) string {
	for _, t := range texts {
		lower := " " + strings.ToLower(t) + " "
		for _, set := range categoryKeywords {
			for _, kw := range set.keywords {
				if strings.Contains(lower, kw) {
					return set.name
				}
			}
		}
	}
	return "other"
}

func impactOf(text string) Impact {
	lower := " " + strings.ToLower(text) + " "
	for _, set := range impactKeywords {
		for _, kw := range set.keywords {
			if strings.Contains(lower, kw) {
				return set.impact
			}
		}
	}
	return ImpactCosmetic
}

func hasActionCue(text string) bool {
	lower := strings.ToLower(text) + " "
	for _, c := range actionCues {
		if strings.Contains(lower, c) {
			return true
		}
	}
	return false
}

// priorityFromWording is used for items outside any rated or prioritised section.
func priorityFromWording(text string) (Priority, Timeframe) {
	lower := strings.ToLower(text)
	switch {
	case containsAny(lower, "urgent", "immediately", "as soon as possible", "dangerous", "unsafe"):
		return PriorityHigh, TimeframeImmediate
	case containsAny(lower, "monitor", "long term", "in due course", "keep under review"):
		return PriorityLow, TimeframeMonitor
	default:
		return PriorityMedium, Timeframe12Months
	}
}

func containsAny(s string, subs ...string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}
