package utils

import (
	"strconv"
	"strings"
)

// ParseLines splits editor input into entries, one per line. Surrounding
// whitespace is trimmed and blank lines are dropped. The result is never nil.
func ParseLines(input string) []string {
	result := []string{}
	for _, line := range strings.FieldsFunc(input, func(r rune) bool { return r == '\n' || r == '\r' }) {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		result = append(result, line)
	}
	return result
}

// FormatLines joins entries for editing, one per line.
func FormatLines(entries []string) string {
	return strings.Join(entries, "\n")
}

// Summarize returns a short label for a list, e.g. "3 entries".
func Summarize(entries []string) string {
	switch len(entries) {
	case 0:
		return "none"
	case 1:
		return "1 entry"
	default:
		return strconv.Itoa(len(entries)) + " entries"
	}
}
