package extract

import (
	"regexp"
	"strings"
	"time"
)

var actionCueRe = regexp.MustCompile(`(?i)\b(?:please|could you|can you|would you|let (?:me|us) know|follow[\s\-]?up|call|ring|give (?:me|us) a (?:call|ring)|book|confirm|arrange|get back to|send (?:me|us|over)|by (?:monday|tuesday|wednesday|thursday|friday|saturday|sunday|tomorrow|today|end of|the end|\d))\b`)

// FindFollowUps returns the sentences that ask for an action. A date inside the
// sentence, resolved against anchor, becomes the due date.
func FindFollowUps(sentences []string, anchor time.Time) []FollowUp {
	out := []FollowUp{}
	seen := map[string]struct{}{}
	for _, s := range sentences {
		if signOffRe.MatchString(s) || !actionCueRe.MatchString(s) {
			continue
		}
		action := truncate(collapseSpace(s), 160)
		key := strings.ToLower(action)
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		fu := FollowUp{Action: action}
		if t, ok := ResolveDate(s, anchor); ok {
			fu.DueDate = t.Format(DateLayout)
		}
		out = append(out, fu)
	}
	return out
}
