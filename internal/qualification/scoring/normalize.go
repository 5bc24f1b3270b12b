package scoring

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// foldText lowercases, strips accents and collapses whitespace:
// "  Núñez " -> "nunez".
func foldText(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	folded, _, err := transform.String(t, s)
	if err != nil {
		folded = s
	}
	return strings.Join(strings.Fields(strings.ToLower(folded)), " ")
}

// wordText folds s and replaces punctuation with spaces, padding the result
// so that " phrase " lookups only match whole words.
func wordText(s string) string {
	folded := foldText(s)
	mapped := strings.Map(func(r rune) rune {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			return r
		}
		return ' '
	}, folded)
	return " " + strings.Join(strings.Fields(mapped), " ") + " "
}

func containsPhrase(padded, phrase string) bool {
	return strings.Contains(padded, " "+phrase+" ")
}

// looselyMatches reports whether either folded text contains the other.
func looselyMatches(a, b string) bool {
	a, b = foldText(a), foldText(b)
	if a == "" || b == "" {
		return false
	}
	return strings.Contains(a, b) || strings.Contains(b, a)
}
