package match

import "testing"

func TestCleanPhoneForImport(t *testing.T) {
	testCases := []struct {
		name   string
		input  string
		expect string
	}{
		{"country code stripped", "1-555-123-4567", "5551234567"},
		{"too few digits", "12345", ""},
		{"ten digits pass through", "(555) 123-4567", "5551234567"},
		{"eleven digits without country code kept", "25551234567", "25551234567"},
		{"column label phone", "Phone Number", ""},
		{"column label optional", "optional", ""},
		{"empty", "", ""},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			if got := CleanPhoneForImport(tc.input); got != tc.expect {
				t.Fatalf("expected %q got %q", tc.expect, got)
			}
		})
	}
}

func TestCleanEmailForImport(t *testing.T) {
	testCases := []struct {
		name   string
		input  string
		expect string
	}{
		{"lowercased and trimmed", " JOHN@Test.com ", "john@test.com"},
		{"column label optional", "optional", ""},
		{"column label email", "Email Address", ""},
		{"missing at sign", "john.test.com", ""},
		{"missing dot", "john@testcom", ""},
		{"empty", "", ""},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			if got := CleanEmailForImport(tc.input); got != tc.expect {
				t.Fatalf("expected %q got %q", tc.expect, got)
			}
		})
	}
}
