package match

import (
	"math"
	"testing"
)

func TestSimilarity(t *testing.T) {
	testCases := []struct {
		name   string
		a      string
		b      string
		expect float64
	}{
		{"identical", "john smith", "john smith", 1},
		{"identical after fold", "John Smith", "john smith", 1},
		{"both empty", "", "", 1},
		{"one empty", "a", "", 0},
		{"one empty reversed", "", "a", 0},
		{"containment", "john", "johnny", 0.9},
		{"containment reversed", "johnny", "john", 0.9},
		// charSim 9/10, orderSim 9/9 => 0.95
		{"dropped letter", "john smith", "jon smith", 0.95},
		// charSim 4/5, orderSim 2/4 => 0.65
		{"scrambled overlap", "abcde", "aebd", 0.65},
		// charSim 4/5, orderSim 1/4 => 0.525
		{"reversed overlap", "abcde", "dcba", 0.525},
		{"disjoint", "abc", "xyz", 0},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			got := Similarity(tc.a, tc.b)
			if math.Abs(got-tc.expect) > 1e-9 {
				t.Fatalf("similarity(%q, %q): expected %v got %v", tc.a, tc.b, tc.expect, got)
			}
			if got < 0 || got > 1 {
				t.Fatalf("similarity out of range: %v", got)
			}
		})
	}
}

func TestSimilaritySymmetricContainment(t *testing.T) {
	// Containment fires regardless of argument order even for very different
	// lengths.
	if got := Similarity("jo", "jonathan alexander"); got != 0.9 {
		t.Fatalf("expected 0.9 got %v", got)
	}
}
