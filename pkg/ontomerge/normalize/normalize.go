// Package normalize turns free-text topic labels into comparable keys.
package normalize

import (
	"strings"
	"unicode"
)

// Normalize lowercases text, drops every rune that is not an ASCII letter,
// digit or whitespace, collapses whitespace runs to a single space and trims
// the result. Output only contains [a-z0-9 ], so Normalize is idempotent.
//
// Examples:
//   - Normalize("Goblin Queen's Journey!") -> "goblin queens journey"
//   - Normalize("  MK   is\ttoo strong ") -> "mk is too strong"
func Normalize(text string) string {
	var b strings.Builder
	b.Grow(len(text))

	pendingSpace := false
	for _, r := range strings.ToLower(text) {
		switch {
		case isKeyRune(r):
			if pendingSpace && b.Len() > 0 {
				b.WriteByte(' ')
			}
			pendingSpace = false
			b.WriteRune(r)
		case unicode.IsSpace(r):
			pendingSpace = true
		}
	}
	return b.String()
}

// Equal reports whether a and b normalize to the same key.
func Equal(a, b string) bool {
	return Normalize(a) == Normalize(b)
}

// Contains reports whether the normalized form of needle occurs in the
// normalized form of haystack. An empty needle never matches.
func Contains(haystack, needle string) bool {
	n := Normalize(needle)
	if n == "" {
		return false
	}
	return strings.Contains(Normalize(haystack), n)
}

func isKeyRune(r rune) bool {
	return (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9')
}
