package llm

import (
	"bytes"
	"encoding/json"
	"regexp"
)

var fenceRe = regexp.MustCompile("(?s)```[a-zA-Z]*\\s*(.*?)```")

// ExtractJSONObject pulls the outermost {...} object out of model output, tolerating
// markdown code fences and prose before or after it. Braces inside JSON strings
// are ignored when balancing.
func ExtractJSONObject(content []byte) ([]byte, error) {
	s := bytes.TrimSpace(content)
	if m := fenceRe.FindSubmatch(s); m != nil && bytes.IndexByte(m[1], '{') >= 0 {
		s = m[1]
	}
	for from := 0; from < len(s); {
		i := bytes.IndexByte(s[from:], '{')
		if i < 0 {
			break
		}
		start := from + i
		if end := balancedEnd(s, start); end > 0 && json.Valid(s[start:end]) {
			return s[start:end], nil
		}
		from = start + 1
	}
	return nil, ErrNoJSON
}

func balancedEnd(s []byte, start int) int {
	depth := 0
	inStr, esc := false, false
	for i := start; i < len(s); i++ {
		c := s[i]
		if inStr {
			switch {
			case esc:
				esc = false
			case c == '\\':
				esc = true
			case c == '"':
				inStr = false
			}
			continue
		}
		switch c {
		case '"':
			inStr = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return i + 1
			}
		}
	}
	return -1
}
