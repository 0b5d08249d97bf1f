// Package normalize canonicalizes product and store names so that display
// variants of the same thing ("Arroz Integral 5kg", "arroz integral 5 kg")
// compare equal. Every function here is pure and total.
package normalize

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/agnivade/levenshtein"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var (
	// trailingQuantity matches a number at the end of the name, optionally
	// followed by a unit, preceded by whitespace or the start of the string.
	trailingQuantity = regexp.MustCompile(
		`(^|\s)\d+(?:[.,]\d+)?\s*(?:kg|g|ml|l|un|unid|unidades|litros?|gramas?|quilos?|pacotes?|pct|cx|caixas?)?$`,
	)
	parenthetical = regexp.MustCompile(`\([^)]*\)`)
)

// Normalize lowercases, strips diacritics, removes trailing quantity/unit
// tokens and collapses whitespace. Normalize(Normalize(s)) == Normalize(s).
func Normalize(name string) string {
	return canonical(strings.ToLower(name))
}

// BaseName is Normalize that also drops parenthetical annotations such as
// "(500g)". It groups display variants and must not be used for identity.
func BaseName(name string) string {
	return canonical(parenthetical.ReplaceAllString(strings.ToLower(name), " "))
}

// Fold lowercases, strips diacritics and collapses whitespace but keeps
// quantities. Used for city names and free-text keyword scans.
func Fold(s string) string {
	return collapse(stripDiacritics(strings.ToLower(s)))
}

// Similarity returns 1 - levenshtein(longer, shorter)/len(longer) over the
// normalized inputs. Identical normalized strings (including two empty ones)
// score 1.0; an empty string against a non-empty one scores 0.0.
func Similarity(a, b string) float64 {
	na, nb := Normalize(a), Normalize(b)
	if na == nb {
		return 1.0
	}
	longer, shorter := na, nb
	if utf8.RuneCountInString(shorter) > utf8.RuneCountInString(longer) {
		longer, shorter = shorter, longer
	}
	distance := levenshtein.ComputeDistance(longer, shorter)
	return 1 - float64(distance)/float64(utf8.RuneCountInString(longer))
}

func canonical(s string) string {
	s = collapse(stripDiacritics(s))
	for {
		stripped := strings.TrimSpace(trailingQuantity.ReplaceAllString(s, ""))
		if stripped == s {
			return s
		}
		s = stripped
	}
}

func stripDiacritics(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, s)
	if err != nil {
		return s
	}
	return out
}

func collapse(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
