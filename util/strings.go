package util

import (
	"strings"
	"unicode/utf8"
)

// Trunc truncates the input string to a specific length.
// It is UTF8-safe, but does not care for HTML.
func Trunc(s string, maxRunes int) string {
	s = strings.TrimSpace(s)
	var runes = 0
	for i := range s {
		if runes == maxRunes {
			return strings.TrimSpace(s[:i]) // trim spaces again
		}
		runes++
	}
	return s
}

// RuneLen returns the number of characters of s.
func RuneLen(s string) int {
	return utf8.RuneCountInString(s)
}
