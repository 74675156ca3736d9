package match

import (
	"regexp"
	"strings"
)

var (
	whitespaceRun = regexp.MustCompile(`\s+`)
	nonDigit      = regexp.MustCompile(`\D`)
)

// NormalizeName lowercases, trims and collapses internal whitespace runs so
// that extracted names compare independently of spacing and casing artifacts.
func NormalizeName(s string) string {
	lower := strings.ToLower(strings.TrimSpace(s))
	return whitespaceRun.ReplaceAllString(lower, " ")
}

// NormalizePhone strips every non-digit character.
func NormalizePhone(s string) string {
	return nonDigit.ReplaceAllString(s, "")
}

// NormalizeEmail lowercases and trims the address.
func NormalizeEmail(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
