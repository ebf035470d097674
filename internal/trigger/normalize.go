package trigger

import (
	"strings"
	"unicode"
)

// Normalize lowercases the text, replaces punctuation with spaces and
// collapses runs of whitespace, returning the cleaned string.
func Normalize(text string) string {
	var b strings.Builder
	b.Grow(len(text))
	for _, r := range strings.ToLower(text) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_' {
			b.WriteRune(r)
		} else {
			b.WriteRune(' ')
		}
	}
	return strings.Join(strings.Fields(b.String()), " ")
}

// Tokens returns the whitespace-separated tokens of a normalized string.
func Tokens(normalized string) []string {
	return strings.Fields(normalized)
}
