package normalize

import "strings"

// MatchStrategy decides whether two names refer to the same thing for the
// purpose of fuzzy lookups. It is a named type so callers can swap in a
// stricter rule without touching call sites.
type MatchStrategy func(a, b string) bool

// ContainsEitherDirection matches when either normalized name contains the
// other. Empty names never match.
func ContainsEitherDirection(a, b string) bool {
	na, nb := Normalize(a), Normalize(b)
	if na == "" || nb == "" {
		return false
	}
	return strings.Contains(na, nb) || strings.Contains(nb, na)
}

// SimilarAtLeast builds a strategy that matches when Similarity reaches threshold.
func SimilarAtLeast(threshold float64) MatchStrategy {
	return func(a, b string) bool {
		if Normalize(a) == "" || Normalize(b) == "" {
			return false
		}
		return Similarity(a, b) >= threshold
	}
}
