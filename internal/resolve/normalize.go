// Package resolve maps free-text company names onto Client Index entries.
package resolve

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// corporateSuffixes are trailing tokens stripped during normalization.
var corporateSuffixes = map[string]bool{
	"pvt":          true,
	"private":      true,
	"ltd":          true,
	"limited":      true,
	"inc":          true,
	"incorporated": true,
	"llp":          true,
	"llc":          true,
	"corp":         true,
	"corporation":  true,
	"co":           true,
	"plc":          true,
	"opc":          true,
	"gmbh":         true,
}

// Tokens folds accents, lower-cases, splits on anything that is not a letter
// or digit and strips trailing corporate suffixes. A name made only of
// suffixes keeps its first token.
//
// The dotted forms ("Pvt.", "L.L.C.") split into single letters, so they
// are rejoined before suffix matching.
func Tokens(name string) []string {
	folded, _, err := transform.String(foldAccents(), name)
	if err != nil {
		folded = name
	}
	folded = strings.ToLower(strings.ReplaceAll(folded, "&", " and "))

	raw := strings.FieldsFunc(folded, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '.'
	})

	tokens := make([]string, 0, len(raw))
	for _, t := range raw {
		t = strings.ReplaceAll(t, ".", "")
		if t != "" {
			tokens = append(tokens, t)
		}
	}

	for len(tokens) > 1 && corporateSuffixes[tokens[len(tokens)-1]] {
		tokens = tokens[:len(tokens)-1]
	}
	return tokens
}

// NormalizeName returns the canonical matching key for a company name:
// Tokens joined without separators, so "Swiggy Pvt. Ltd." and "swiggy"
// normalize identically.
func NormalizeName(name string) string {
	return strings.Join(Tokens(name), "")
}

func foldAccents() transform.Transformer {
	return transform.Chain(norm.NFKD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
}
