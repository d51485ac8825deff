package extract

import (
	"strings"
)

// SplitSentences breaks text into lines and then into sentences ending in . ! or ?
// followed by whitespace. Decimal points and email dots never split.
func SplitSentences(text string) []string {
	var out []string
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		start := 0
		for i := 0; i < len(line); i++ {
			if !isTerminator(line[i]) {
				continue
			}
			if i+1 == len(line) || isSpace(line[i+1]) {
				if s := strings.TrimSpace(line[start : i+1]); s != "" {
					out = append(out, s)
				}
				start = i + 1
			}
		}
		if s := strings.TrimSpace(line[start:]); s != "" {
			out = append(out, s)
		}
	}
	return out
}

// sentenceAround returns the sentence containing text[start:end].
func sentenceAround(text string, start, end int) (int, int) {
	s := start
	for s > 0 {
		c := text[s-1]
		if c == '\n' || (isTerminator(c) && isSpace(text[s])) {
			break
		}
		s--
	}
	e := end
	for e < len(text) {
		c := text[e]
		if c == '\n' {
			break
		}
		e++
		if isTerminator(c) && (e == len(text) || isSpace(text[e])) {
			break
		}
	}
	return s, e
}

func contextAround(text string, start, end int) string {
	s, e := sentenceAround(text, start, end)
	return truncate(collapseSpace(text[s:e]), 160)
}

func collapseSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// truncate cuts s to at most n runes. A word the cut would split is dropped
// whole, so no half email address or phone number is left behind.
func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	cut := string(r[:n-3])
	if r[n-3] != ' ' {
		if i := strings.LastIndexByte(cut, ' '); i > 0 {
			cut = cut[:i]
		}
	}
	return strings.TrimSpace(cut) + "..."
}

// nonEmptyLines returns the trimmed, non-blank lines of text.
func nonEmptyLines(text string) []string {
	var out []string
	for _, l := range strings.Split(text, "\n") {
		if l = strings.TrimSpace(l); l != "" {
			out = append(out, l)
		}
	}
	return out
}

func isTerminator(c byte) bool { return c == '.' || c == '!' || c == '?' }

func isSpace(c byte) bool { return c == ' ' || c == '\t' || c == '\n' || c == '\r' }
