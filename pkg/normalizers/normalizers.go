// Package normalizers canonicalizes contact field values before comparison.
// All functions are pure.
package normalizers

import (
	"strings"
	"unicode"
)

// NormalizeEmail lower-cases and trims an email address. Punctuation is
// significant and left alone.
func NormalizeEmail(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// NormalizePhone keeps only the digits of a phone number
func NormalizePhone(s string) string {
	var result strings.Builder
	for _, r := range s {
		if unicode.IsDigit(r) {
			result.WriteRune(r)
		}
	}
	return result.String()
}

// NormalizeText lower-cases, trims and collapses internal whitespace runs to
// a single space.
func NormalizeText(s string) string {
	return strings.Join(strings.Fields(strings.ToLower(s)), " ")
}
