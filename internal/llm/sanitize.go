package llm

import (
	"encoding/json"
	"fmt"
	"regexp"
	"slices"
	"strconv"
	"strings"
)

// Normalizers rewrite string values of the named properties before checking, e.g.
// mapping "Labor" onto the "labour" enum value.
type Normalizers map[string]func(string) string

// Sanitize walks doc alongside schema and repairs what a model commonly gets wrong:
// nulls and empty strings are dropped, money strings ("£1,200.00") become numbers,
// numbers become strings where a string is expected, unknown keys are removed and
// array items that still miss required fields are discarded. It returns the
// repaired document and a list of what was dropped; validation stays the caller's job.
func Sanitize(schema map[string]any, doc []byte, norm Normalizers) ([]byte, []string, error) {
	var v any
	if err := json.Unmarshal(doc, &v); err != nil {
		return nil, nil, fmt.Errorf("sanitize: decode: %w", err)
	}
	var dropped []string
	out, ok := sanitizeValue(schema, v, "", norm, &dropped)
	if !ok {
		return nil, dropped, fmt.Errorf("sanitize: document does not fit the schema")
	}
	b, err := json.Marshal(out)
	if err != nil {
		return nil, dropped, fmt.Errorf("sanitize: encode: %w", err)
	}
	return b, dropped, nil
}

func sanitizeValue(schema map[string]any, v any, path string, norm Normalizers, dropped *[]string) (any, bool) {
	switch schema["type"] {
	case "object":
		m, ok := v.(map[string]any)
		if !ok {
			return nil, false
		}
		props, _ := schema["properties"].(map[string]any)
		strict, _ := schema["additionalProperties"].(bool)
		for k, val := range m {
			ps, known := props[k].(map[string]any)
			if !known {
				if !strict {
					continue
				}
				delete(m, k)
				*dropped = append(*dropped, path+k+"(unknown)")
				continue
			}
			if val == nil {
				if ps["type"] == "array" {
					m[k] = []any{}
					continue
				}
				delete(m, k)
				*dropped = append(*dropped, path+k+"(null)")
				continue
			}
			if f, ok := norm[k]; ok {
				if s, isStr := val.(string); isStr {
					val = f(s)
				}
			}
			nv, keep := sanitizeValue(ps, val, path+k+".", norm, dropped)
			if !keep {
				delete(m, k)
				*dropped = append(*dropped, path+k+"(invalid)")
				continue
			}
			m[k] = nv
		}
		for _, r := range requiredKeys(schema) {
			if _, ok := m[r]; ok {
				continue
			}
			ps, _ := props[r].(map[string]any)
			_, hasMin := ps["minLength"]
			switch {
			case ps["type"] == "array":
				m[r] = []any{}
			case ps["type"] == "string" && !hasMin:
				m[r] = ""
			default:
				return nil, false
			}
		}
		return m, true

	case "array":
		items, _ := schema["items"].(map[string]any)
		arr, ok := v.([]any)
		if !ok {
			arr = []any{v}
		}
		out := make([]any, 0, len(arr))
		for i, e := range arr {
			if e == nil {
				continue
			}
			nv, keep := sanitizeValue(items, e, fmt.Sprintf("%s%d.", path, i), norm, dropped)
			if !keep {
				*dropped = append(*dropped, fmt.Sprintf("%s%d(invalid)", path, i))
				continue
			}
			out = append(out, nv)
		}
		return out, true

	case "number":
		var f float64
		switch t := v.(type) {
		case float64:
			f = t
		case string:
			n, ok := parseLooseNumber(t)
			if !ok {
				return nil, false
			}
			f = n
			if strings.HasSuffix(strings.TrimSpace(t), "%") {
				f /= 100
			}
		default:
			return nil, false
		}
		return f, inRange(schema, f)

	case "string":
		var s string
		switch t := v.(type) {
		case string:
			s = strings.TrimSpace(t)
		case float64:
			s = strconv.FormatFloat(t, 'f', -1, 64)
		default:
			return nil, false
		}
		if _, hasMin := schema["minLength"]; hasMin && s == "" {
			return nil, false
		}
		if values, ok := enumValues(schema); ok {
			s = strings.ToLower(s)
			if !slices.Contains(values, s) {
				return nil, false
			}
		}
		if p, ok := schema["pattern"].(string); ok && !regexp.MustCompile(p).MatchString(s) {
			return nil, false
		}
		return s, true
	}
	return v, true
}

func inRange(schema map[string]any, f float64) bool {
	if m, ok := numAttr(schema, "minimum"); ok && f < m {
		return false
	}
	if m, ok := numAttr(schema, "maximum"); ok && f > m {
		return false
	}
	if m, ok := numAttr(schema, "exclusiveMinimum"); ok && f <= m {
		return false
	}
	if m, ok := numAttr(schema, "exclusiveMaximum"); ok && f >= m {
		return false
	}
	return true
}

func numAttr(schema map[string]any, key string) (float64, bool) {
	switch n := schema[key].(type) {
	case int:
		return float64(n), true
	case float64:
		return n, true
	}
	return 0, false
}

func requiredKeys(schema map[string]any) []string {
	switch r := schema["required"].(type) {
	case []string:
		return r
	case []any:
		out := make([]string, 0, len(r))
		for _, x := range r {
			if s, ok := x.(string); ok {
				out = append(out, s)
			}
		}
		return out
	}
	return nil
}

func enumValues(schema map[string]any) ([]string, bool) {
	switch e := schema["enum"].(type) {
	case []string:
		return e, true
	case []any:
		out := make([]string, 0, len(e))
		for _, x := range e {
			if s, ok := x.(string); ok {
				out = append(out, s)
			}
		}
		return out, true
	}
	return nil, false
}

func parseLooseNumber(s string) (float64, bool) {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "£")
	if len(s) >= 3 && strings.EqualFold(s[:3], "GBP") {
		s = s[3:]
	}
	s = strings.ReplaceAll(strings.TrimSpace(s), ",", "")
	s = strings.TrimSuffix(s, "%")
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false
	}
	return f, true
}
