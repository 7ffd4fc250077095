// Package utils provides shared utilities for text, math, and logging.
package utils

import "strings"

// Truncate returns s truncated to maxLen runes, with "..." appended if truncated.
// If maxLen is 0 or negative, returns s unchanged.
func Truncate(s string, maxLen int) string {
	if maxLen <= 0 {
		return s
	}
	r := []rune(s)
	if len(r) <= maxLen {
		return s
	}
	return string(r[:maxLen]) + "..."
}

// FirstWords keeps the first n whitespace-delimited tokens of s, joined by
// single spaces. The second result reports whether anything was dropped.
// Input with at most n tokens is returned unchanged.
func FirstWords(s string, n int) (string, bool) {
	if n <= 0 {
		return s, false
	}
	words := strings.Fields(s)
	if len(words) <= n {
		return s, false
	}
	return strings.Join(words[:n], " "), true
}
