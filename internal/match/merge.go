package match

import "strings"

// nameReplaceThreshold guards name replacement on identity-grade matches:
// below it two spaced names are treated as materially different observations
// rather than minor OCR variants of the same name.
const nameReplaceThreshold = 0.8

// Merge folds a matched candidate into an existing record and returns the
// merged copy. Phone and email are backfilled only when the existing record
// lacks them; a present value is never overwritten. The name is reconsidered
// only when the match was justified by phone or email, and the vehicle
// sub-record rides along from whichever side has one, existing first.
func Merge(existing, candidate Candidate, confidence Confidence) Candidate {
	merged := existing

	if merged.Phone == "" {
		merged.Phone = candidate.Phone
	}
	if merged.Email == "" {
		merged.Email = candidate.Email
	}
	if merged.Vehicle == nil {
		merged.Vehicle = candidate.Vehicle
	}

	if confidence == ConfidencePhone || confidence == ConfidenceEmail {
		existingSpaced := strings.Contains(existing.Name, " ")
		candidateSpaced := strings.Contains(candidate.Name, " ")
		switch {
		case !existingSpaced && candidateSpaced:
			merged.Name = candidate.Name
		case existingSpaced && candidateSpaced:
			if Similarity(existing.Name, candidate.Name) < nameReplaceThreshold &&
				len(candidate.Name) > len(existing.Name) {
				merged.Name = candidate.Name
			}
		}
	}

	return merged
}
