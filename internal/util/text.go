package util

import (
	"regexp"
	"strings"
)

var (
	reSpaces   = regexp.MustCompile(`\s+`)
	reFileName = regexp.MustCompile(`[<>:"/\\|?*\s]+`)
)

func NormalizeSpaces(input string) string {
	return strings.TrimSpace(reSpaces.ReplaceAllString(input, " "))
}

// SplitLines splits text on any line ending and drops surrounding
// whitespace. Blank lines are kept so callers can count them.
func SplitLines(text string) []string {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	text = strings.ReplaceAll(text, "\r", "\n")
	parts := strings.Split(text, "\n")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		out = append(out, strings.TrimSpace(p))
	}
	return out
}

// SafeFileName makes input usable as a single path element.
func SafeFileName(input string) string {
	out := strings.Trim(reFileName.ReplaceAllString(strings.TrimSpace(input), "_"), "_.")
	if out == "" {
		out = "order"
	}
	if len(out) > 120 {
		out = out[:120]
	}
	return out
}
