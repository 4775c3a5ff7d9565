// Package normalize provides utilities for normalizing and sanitizing data.
package normalize

import (
	"regexp"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/unicode/norm"
)

// Matches runs of whitespace, including newlines and tabs.
var whitespaceRun = regexp.MustCompile(`\s+`)

// DisplayName canonicalizes a user-supplied display name:
// NFC composition, collapsed whitespace, trimmed, then cut to maxRunes.
// "  Ana   María " -> "Ana María".
func DisplayName(s string, maxRunes int) string {
	s = norm.NFC.String(s)
	s = whitespaceRun.ReplaceAllString(s, " ")
	s = strings.TrimSpace(s)

	if maxRunes > 0 && utf8.RuneCountInString(s) > maxRunes {
		runes := []rune(s)
		s = strings.TrimSpace(string(runes[:maxRunes]))
	}
	return s
}

// ID trims surrounding whitespace from an identifier taken from a path or token.
// It reports false when the result is empty or contains the key separator.
func ID(s string) (string, bool) {
	s = strings.TrimSpace(s)
	if s == "" || strings.ContainsRune(s, ':') {
		return "", false
	}
	return s, true
}
