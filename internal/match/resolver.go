package match

import "strings"

const (
	// minPhoneDigits is the shortest digit run treated as a usable phone signal.
	minPhoneDigits = 7
	// nameThreshold is the lowest fuzzy name similarity accepted as a match.
	nameThreshold = 0.65
)

// FindBestMatch resolves a freshly extracted candidate against an existing
// record set using a phone, then email, then fuzzy-name cascade. Each tier
// returns on its first qualifying hit; later entries are never preferred over
// earlier ones, so results depend on list order when signals collide.
func FindBestMatch(candidate Candidate, existing []Candidate) *Result {
	candPhone := NormalizePhone(candidate.Phone)
	if len(candPhone) >= minPhoneDigits {
		for i, rec := range existing {
			phone := NormalizePhone(rec.Phone)
			if phone == "" {
				continue
			}
			if phone == candPhone {
				return &Result{Index: i, Confidence: ConfidencePhone, Similarity: 1.0}
			}
			if len(phone) >= minPhoneDigits &&
				(strings.Contains(candPhone, phone) || strings.Contains(phone, candPhone)) {
				return &Result{Index: i, Confidence: ConfidencePhone, Similarity: 0.95}
			}
		}
	}

	candEmail := NormalizeEmail(candidate.Email)
	if strings.Contains(candEmail, "@") {
		for i, rec := range existing {
			if NormalizeEmail(rec.Email) == candEmail {
				return &Result{Index: i, Confidence: ConfidenceEmail, Similarity: 1.0}
			}
		}
	}

	candName := NormalizeName(candidate.Name)
	bestIndex := -1
	bestScore := 0.0
	for i, rec := range existing {
		score := Similarity(candName, NormalizeName(rec.Name))
		if score > bestScore {
			bestScore = score
			bestIndex = i
		}
	}
	if bestIndex >= 0 && bestScore >= nameThreshold {
		return &Result{Index: bestIndex, Confidence: ConfidenceName, Similarity: bestScore}
	}

	return nil
}
