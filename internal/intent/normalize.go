package intent

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// edgePunct is trimmed from both ends of learner input before matching.
const edgePunct = "¿?¡!.,;:…\"' "

// Normalize lowercases s, folds accents (sí → si, más → mas), collapses
// whitespace and trims surrounding punctuation. All patterns in this package
// are written against normalized text.
func Normalize(s string) string {
	lower := strings.ToLower(strings.TrimSpace(s))
	if lower == "" {
		return ""
	}

	// transform.Chain keeps state, so a fresh chain is built per call.
	fold := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	folded, _, err := transform.String(fold, lower)
	if err != nil {
		folded = lower
	}

	folded = strings.Join(strings.Fields(folded), " ")
	return strings.Trim(folded, edgePunct)
}

// words splits normalized text into bare words, dropping inner punctuation.
func words(n string) []string {
	return strings.FieldsFunc(n, func(r rune) bool {
		return unicode.IsSpace(r) || unicode.IsPunct(r)
	})
}
