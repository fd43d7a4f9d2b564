package providers

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"github.com/Hafiz-Al-Shams/news-nexus/internal/core/domain/apperr"
)

var punctuation = strings.NewReplacer(
	"“", `"`, "”", `"`, "„", `"`,
	"‘", "'", "’", "'",
	"—", "-", "–", "-",
	"…", "...",
	" ", " ",
)

var (
	fence      = regexp.MustCompile("(?m)^\\s*```[a-zA-Z]*\\s*$")
	listMarker = regexp.MustCompile(`^\s*(?:\d+[.)]|[-*\x{2022}])\s+`)
)

// Sanitize normalizes model output: code fences removed, smart quotes to ASCII,
// dashes to '-', ellipsis to "...".
func Sanitize(s string) string {
	s = fence.ReplaceAllString(s, "")
	s = strings.ReplaceAll(s, "```", "")
	return strings.TrimSpace(punctuation.Replace(s))
}

// extractJSON trims prose around the outermost JSON array or object.
func extractJSON(s string) string {
	start := strings.IndexAny(s, "[{")
	if start < 0 {
		return s
	}
	closer := byte('}')
	if s[start] == '[' {
		closer = ']'
	}
	end := strings.LastIndexByte(s, closer)
	if end <= start {
		return s
	}
	return s[start : end+1]
}

// DecodeStructured parses text as JSON into out, retrying once after Sanitize.
func DecodeStructured(provider, text string, out any) error {
	raw := strings.TrimSpace(text)
	if err := json.Unmarshal([]byte(raw), out); err == nil {
		return nil
	}
	clean := extractJSON(Sanitize(raw))
	if err := json.Unmarshal([]byte(clean), out); err != nil {
		return apperr.InvalidResponse(provider, fmt.Sprintf("output is not valid JSON after sanitization: %v", err))
	}
	return nil
}

// ParseList returns the first n lines of a line-per-item answer. The raw pass accepts
// plain lines; the sanitization pass strips fences, list markers and a trailing-colon
// preamble before counting again.
func ParseList(provider, text string, n int) ([]string, error) {
	var raw []string
	marked := false
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if listMarker.MatchString(line) || strings.HasPrefix(line, "```") || strings.HasSuffix(line, ":") {
			marked = true
		}
		raw = append(raw, line)
	}
	if !marked && len(raw) >= n {
		return raw[:n], nil
	}

	var clean []string
	for _, line := range strings.Split(Sanitize(text), "\n") {
		line = strings.TrimSpace(listMarker.ReplaceAllString(line, ""))
		if line == "" || strings.HasSuffix(line, ":") {
			continue
		}
		clean = append(clean, line)
	}
	if len(clean) < n {
		return nil, apperr.InvalidResponse(provider, fmt.Sprintf("expected %d lines, got %d", n, len(clean)))
	}
	return clean[:n], nil
}
