// Package extract turns free-form model output into typed values.
// Nothing here returns an error: missing structure degrades to a deterministic default.
package extract

import (
	"encoding/json"
	"errors"
	"regexp"
	"strconv"
	"strings"
)

// MaxListLines caps the line-splitting fallback.
const MaxListLines = 12

// DefaultRoles is substituted whenever a role list comes back empty.
var DefaultRoles = []string{
	"Software Engineer",
	"Data Analyst",
	"Product Manager",
	"Business Analyst",
}

var (
	listMarker = regexp.MustCompile(`^(?:[-*•·]+|\d+\s*[.):-])\s*`)
	codeFence  = regexp.MustCompile("(?m)^\\s*```[a-zA-Z]*\\s*$")

	// ATSScorePatterns holds the labeled marker first and a looser "NN/100" form second.
	ATSScorePatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?i)ATS\s*SCORE[^0-9\n]{0,20}(\d{1,3})`),
		regexp.MustCompile(`(?i)(\d{1,3})\s*(?:/|out\s+of)\s*100`),
	}
)

// JSONArray returns the strings of a JSON array found in text. It tries a direct parse,
// then the outermost bracketed span, then line splitting. A parsed array with no usable
// entries yields DefaultRoles. It never returns an empty list.
func JSONArray(text string) []string {
	if items, ok := JSONList[json.RawMessage](text); ok {
		out := make([]string, 0, len(items))
		for _, raw := range items {
			if s := itemString(raw); s != "" {
				out = append(out, s)
			}
		}
		if len(out) > 0 {
			return out
		}
		return defaultRoles()
	}

	if lines := Lines(text, MaxListLines); len(lines) > 0 {
		return lines
	}

	return defaultRoles()
}

func defaultRoles() []string {
	out := make([]string, len(DefaultRoles))
	copy(out, DefaultRoles)
	return out
}

// JSONList decodes a JSON array of T from text, directly or from its outermost [...] span.
func JSONList[T any](text string) ([]T, bool) {
	text = stripFences(text)
	var out []T
	if err := json.Unmarshal([]byte(text), &out); err == nil && out != nil {
		return out, true
	}
	span, ok := outerSpan(text, '[', ']')
	if !ok {
		return nil, false
	}
	out = nil
	if err := json.Unmarshal([]byte(span), &out); err == nil && out != nil {
		return out, true
	}
	return nil, false
}

// JSONObject decodes the first {...} span of text over a copy of defaults.
// Fields the model omits, or sends with the wrong type, keep their default value.
func JSONObject[T any](text string, defaults T) T {
	span, ok := outerSpan(stripFences(text), '{', '}')
	if !ok {
		return defaults
	}
	out := defaults
	err := json.Unmarshal([]byte(span), &out)
	if err == nil {
		return out
	}
	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &typeErr) {
		return out
	}
	return defaults
}

// Lines splits text into list entries, dropping list markers, surrounding quotes,
// trailing commas and bare brackets. At most limit entries are returned.
func Lines(text string, limit int) []string {
	out := make([]string, 0, limit)
	for _, line := range strings.Split(stripFences(text), "\n") {
		if len(out) >= limit {
			break
		}
		line = strings.TrimSpace(line)
		line = strings.TrimSpace(listMarker.ReplaceAllString(line, ""))
		line = strings.TrimRight(line, ",")
		line = strings.Trim(line, `"'`+"`")
		line = strings.Trim(line, "*")
		line = strings.TrimSpace(line)
		if strings.Trim(line, "[]{} ") == "" {
			continue
		}
		out = append(out, line)
	}
	return out
}

// NumericScore returns the first integer captured by the patterns, tried in order.
// ATSScorePatterns are used when none are given. The bool is false when nothing matched.
func NumericScore(text string, patterns ...*regexp.Regexp) (int, bool) {
	if len(patterns) == 0 {
		patterns = ATSScorePatterns
	}
	for _, re := range patterns {
		m := re.FindStringSubmatch(text)
		if len(m) < 2 {
			continue
		}
		n, err := strconv.Atoi(m[1])
		if err != nil {
			continue
		}
		return n, true
	}
	return 0, false
}

func itemString(raw json.RawMessage) string {
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return strings.TrimSpace(s)
	}
	var obj map[string]any
	if err := json.Unmarshal(raw, &obj); err == nil {
		for _, key := range []string{"title", "name", "role"} {
			if v, ok := obj[key].(string); ok && strings.TrimSpace(v) != "" {
				return strings.TrimSpace(v)
			}
		}
	}
	return ""
}

func outerSpan(text string, open, close byte) (string, bool) {
	start := strings.IndexByte(text, open)
	if start < 0 {
		return "", false
	}
	end := strings.LastIndexByte(text, close)
	if end <= start {
		return "", false
	}
	return text[start : end+1], true
}

func stripFences(text string) string {
	return strings.TrimSpace(codeFence.ReplaceAllString(text, ""))
}
