package match

import "strings"

// CleanPhoneForImport turns an extracted phone field into digits safe to
// persist. Column labels that leaked through extraction ("Phone Number",
// "optional") come back empty, as does anything with fewer than seven digits.
// A leading country code 1 on an 11-digit number is dropped.
func CleanPhoneForImport(s string) string {
	lower := strings.ToLower(s)
	if strings.Contains(lower, "phone") || strings.Contains(lower, "number") || strings.Contains(lower, "optional") {
		return ""
	}
	digits := NormalizePhone(s)
	if len(digits) < 7 {
		return ""
	}
	if len(digits) == 11 && strings.HasPrefix(digits, "1") {
		digits = digits[1:]
	}
	return digits
}

// CleanEmailForImport lowercases and validates an extracted email field,
// returning "" for leaked column labels and anything not shaped like an
// address.
func CleanEmailForImport(s string) string {
	lower := strings.ToLower(s)
	if strings.Contains(lower, "optional") || strings.Contains(lower, "email") {
		return ""
	}
	email := NormalizeEmail(s)
	if !strings.Contains(email, "@") || !strings.Contains(email, ".") {
		return ""
	}
	return email
}
