package utils

import "strings"

// Truncate shortens s to maxLen runes, appending "..." when cut.
func Truncate(s string, maxLen int) string {
	r := []rune(s)
	if len(r) <= maxLen {
		return s
	}
	return string(r[:maxLen]) + "..."
}

// OneLine collapses newlines and runs of whitespace into single spaces.
func OneLine(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
