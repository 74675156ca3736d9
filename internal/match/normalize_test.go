package match

import "testing"

func TestNormalizeName(t *testing.T) {
	testCases := []struct {
		name   string
		input  string
		expect string
	}{
		{"lowercases", "John Smith", "john smith"},
		{"trims", "  jane doe  ", "jane doe"},
		{"collapses runs", "john\t  smith", "john smith"},
		{"empty", "", ""},
		{"whitespace only", "   ", ""},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			if got := NormalizeName(tc.input); got != tc.expect {
				t.Fatalf("expected %q got %q", tc.expect, got)
			}
		})
	}
}

func TestNormalizePhone(t *testing.T) {
	testCases := []struct {
		name   string
		input  string
		expect string
	}{
		{"dashes", "555-123-4567", "5551234567"},
		{"parens and spaces", "(555) 123 4567", "5551234567"},
		{"country code kept", "+1 555 123 4567", "15551234567"},
		{"letters stripped", "ext. 12", "12"},
		{"empty", "", ""},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			if got := NormalizePhone(tc.input); got != tc.expect {
				t.Fatalf("expected %q got %q", tc.expect, got)
			}
		})
	}
}

func TestNormalizeEmail(t *testing.T) {
	if got := NormalizeEmail("  JOHN@Test.com "); got != "john@test.com" {
		t.Fatalf("expected john@test.com got %q", got)
	}
	if got := NormalizeEmail(""); got != "" {
		t.Fatalf("expected empty got %q", got)
	}
}
