package match

import "strings"

// Similarity scores how alike two strings are on a 0..1 scale. It is a
// deliberately cheap heuristic tuned for short human names coming out of OCR
// and spreadsheet extraction, not a general edit-distance metric: the 0.9
// containment short-circuit and the loose character overlap below feed
// thresholds elsewhere that were tuned against this exact output shape.
func Similarity(a, b string) float64 {
	s1 := strings.ToLower(a)
	s2 := strings.ToLower(b)
	if s1 == s2 {
		return 1
	}
	if len(s1) == 0 || len(s2) == 0 {
		return 0
	}

	longer, shorter := s1, s2
	if len(s2) > len(s1) {
		longer, shorter = s2, s1
	}
	if strings.Contains(longer, shorter) {
		return 0.9
	}

	// Character overlap. Each character of the shorter string counts every
	// time it occurs, as long as the longer string contains it at all, so
	// repeated letters are over-credited relative to a true bag match.
	overlap := 0
	for i := 0; i < len(shorter); i++ {
		if strings.IndexByte(longer, shorter[i]) >= 0 {
			overlap++
		}
	}
	charSim := float64(overlap) / float64(len(longer))

	// In-order matches with a two-pointer walk. On a mismatch the pointer
	// of the longer original string advances, skipping its extra characters.
	i, j, ordered := 0, 0, 0
	for i < len(s1) && j < len(s2) {
		if s1[i] == s2[j] {
			ordered++
			i++
			j++
			continue
		}
		if len(s1) > len(s2) {
			i++
		} else {
			j++
		}
	}
	orderSim := float64(ordered) / float64(len(shorter))

	return (charSim + orderSim) / 2
}
