package validation

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	"ofertas/internal/normalize"
)

// SpamThreshold is the score above which text is considered spam.
const SpamThreshold = 60

// SpamResult is the advisory outcome of ClassifySpam.
type SpamResult struct {
	IsSpam     bool     `json:"isSpam"`
	Confidence int      `json:"confidence"`
	Reasons    []string `json:"reasons,omitempty"`
}

var (
	urlLike    = regexp.MustCompile(`(?i)(https?://|www\.|[a-z0-9-]+\.(com|net|org|br|io|ly)\b)`)
	digitRun   = regexp.MustCompile(`\d{4,}`)
	promoWords = []string{
		"gratis",
		"promocao",
		"desconto",
		"imperdivel",
		"clique",
		"ganhe",
		"urgente",
		"oferta",
		"brinde",
		"sorteio",
	}
)

// ClassifySpam scores free text:
//
//	+30  a run of 5 or more identical characters
//	+25  more than 70% uppercase letters in text longer than 10 characters
//	+40  a URL-like substring
//	+35  a run of 4 or more digits, or an "@"
//	+20  more than 2 distinct promotional words
//
// Text scoring above SpamThreshold is spam. Confidence is the score capped at 100.
func ClassifySpam(text string) SpamResult {
	score := 0
	var reasons []string

	if hasRepeatedRun(text, 5) {
		score += 30
		reasons = append(reasons, "repeated characters")
	}
	if utf8.RuneCountInString(text) > 10 && uppercaseRatio(text) > 0.7 {
		score += 25
		reasons = append(reasons, "excessive uppercase")
	}
	if urlLike.MatchString(text) {
		score += 40
		reasons = append(reasons, "contains link")
	}
	if digitRun.MatchString(text) || strings.Contains(text, "@") {
		score += 35
		reasons = append(reasons, "contains contact information")
	}
	if countPromoWords(text) > 2 {
		score += 20
		reasons = append(reasons, "promotional language")
	}

	return SpamResult{
		IsSpam:     score > SpamThreshold,
		Confidence: min(score, 100),
		Reasons:    reasons,
	}
}

func hasRepeatedRun(s string, n int) bool {
	var prev rune
	run := 0
	for i, r := range []rune(s) {
		if i > 0 && r == prev {
			run++
		} else {
			run = 1
		}
		if run >= n {
			return true
		}
		prev = r
	}
	return false
}

func uppercaseRatio(s string) float64 {
	letters, upper := 0, 0
	for _, r := range s {
		if !unicode.IsLetter(r) {
			continue
		}
		letters++
		if unicode.IsUpper(r) {
			upper++
		}
	}
	if letters == 0 {
		return 0
	}
	return float64(upper) / float64(letters)
}

func countPromoWords(s string) int {
	folded := normalize.Fold(s)
	n := 0
	for _, w := range promoWords {
		if strings.Contains(folded, w) {
			n++
		}
	}
	return n
}
