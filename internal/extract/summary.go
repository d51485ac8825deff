package extract

import (
	"regexp"
	"strings"
)

const maxSummary = 200

var (
	greetingRe    = regexp.MustCompile(`(?i)^(?:hi|hello|hey|dear|good\s+(?:morning|afternoon|evening)|morning|afternoon)\b`)
	replyPrefixRe = regexp.MustCompile(`(?i)^(?:(?:re|fw|fwd)\s*:\s*)+`)
)

// Summarize joins the subject with the first informative sentence of the body.
func Summarize(subject string, sentences []string) string {
	var first string
	for _, s := range sentences {
		if greetingRe.MatchString(s) && len(s) < 40 {
			continue
		}
		if signOffRe.MatchString(s) || len([]rune(s)) < 12 {
			continue
		}
		first = collapseSpace(s)
		break
	}
	subject = replyPrefixRe.ReplaceAllString(collapseSpace(subject), "")
	subject = strings.TrimSpace(subject)
	switch {
	case subject != "" && first != "":
		return truncate(subject+": "+first, maxSummary)
	case subject != "":
		return truncate(subject, maxSummary)
	default:
		return truncate(first, maxSummary)
	}
}
