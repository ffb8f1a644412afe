package resolve

import (
	"strings"
	"unicode/utf8"

	"github.com/agext/levenshtein"
)

// AcceptanceThreshold is the maximum distance (0 = identical, 1 = unrelated)
// a fuzzy candidate may have and still be returned.
const AcceptanceThreshold = 0.4

// Matcher is a pluggable string-similarity strategy. Key derives the form a
// name is compared in; Distance scores two keys on a 0 (best) to 1 (worst)
// scale. Implementations must be safe for concurrent use.
type Matcher interface {
	Key(name string) string
	Distance(a, b string) float64
}

// Levenshtein is edit distance over NormalizeName keys, normalized by the
// longer key's length.
type Levenshtein struct{}

// Key implements Matcher.
func (Levenshtein) Key(name string) string { return NormalizeName(name) }

// Distance implements Matcher.
func (Levenshtein) Distance(a, b string) float64 {
	if a == b {
		return 0
	}
	longest := max(utf8.RuneCountInString(a), utf8.RuneCountInString(b))
	return float64(levenshtein.Distance(a, b, nil)) / float64(longest)
}

// TokenSet is one minus the Jaccard similarity of the names' word sets.
type TokenSet struct{}

// Key implements Matcher.
func (TokenSet) Key(name string) string { return strings.Join(Tokens(name), " ") }

// Distance implements Matcher.
func (TokenSet) Distance(a, b string) float64 {
	wa, wb := wordSet(a), wordSet(b)
	if len(wa) == 0 || len(wb) == 0 {
		return 1
	}

	intersection := 0
	for w := range wa {
		if wb[w] {
			intersection++
		}
	}
	union := len(wa) + len(wb) - intersection
	return 1 - float64(intersection)/float64(union)
}

func wordSet(key string) map[string]bool {
	words := strings.Fields(key)
	set := make(map[string]bool, len(words))
	for _, w := range words {
		set[w] = true
	}
	return set
}
