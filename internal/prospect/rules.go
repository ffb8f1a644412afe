package prospect

import (
	"os"
	"strings"
	"unicode"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"
)

// Rule maps free-text keywords onto a segment. Aliases are alternative
// segment names tried, in order, when the adoption map has no entry for
// Segment.
type Rule struct {
	Segment  string   `yaml:"segment"`
	Aliases  []string `yaml:"aliases,omitempty"`
	Keywords []string `yaml:"keywords"`
}

// Names returns the segment followed by its aliases.
func (r Rule) Names() []string {
	return append([]string{r.Segment}, r.Aliases...)
}

// Match returns the first keyword found in text, matched on whole words.
// A trailing plural "s" or "es" on the text's last matched word is accepted.
func (r Rule) Match(text string) (string, bool) {
	tokens := words(text)
	for _, kw := range r.Keywords {
		if containsPhrase(tokens, words(kw)) {
			return kw, true
		}
	}
	return "", false
}

// DefaultRules returns the built-in ordered rule list. Order matters: the
// first rule with a matching keyword wins.
func DefaultRules() []Rule {
	return []Rule{
		{Segment: "Lending", Aliases: []string{"Digital Lenders", "NBFC"},
			Keywords: []string{"lending", "lender", "loan", "payday", "credit line", "nbfc", "microfinance", "bnpl", "buy now pay later"}},
		{Segment: "Insurance", Aliases: []string{"Insurtech"},
			Keywords: []string{"insurance", "insurer", "insurtech", "policy", "claims", "underwriting"}},
		{Segment: "Payments", Aliases: []string{"Payment Gateway"},
			Keywords: []string{"payment", "payments", "gateway", "upi", "wallet", "remittance", "payout"}},
		{Segment: "Banking", Aliases: []string{"Bank"},
			Keywords: []string{"bank", "banking", "neobank", "deposit", "savings account"}},
		{Segment: "Brokerage", Aliases: []string{"Wealth", "Wealthtech"},
			Keywords: []string{"brokerage", "broker", "trading", "stock", "mutual fund", "wealth", "investment"}},
		{Segment: "E-commerce", Aliases: []string{"Ecommerce", "Marketplace"},
			Keywords: []string{"ecommerce", "e-commerce", "marketplace", "online store", "retail", "d2c"}},
		{Segment: "HR/Staffing", Aliases: []string{"HR Tech", "Staffing"},
			Keywords: []string{"hiring", "staffing", "recruitment", "payroll", "background check", "onboarding employees"}},
		{Segment: "Gaming", Aliases: []string{"Real Money Gaming"},
			Keywords: []string{"gaming", "game", "fantasy sports", "esports"}},
		{Segment: "Healthcare", Aliases: []string{"Healthtech"},
			Keywords: []string{"healthcare", "hospital", "clinic", "pharmacy", "telemedicine", "diagnostics"}},
	}
}

// LoadRules reads an ordered rule list from a YAML file with a top-level
// "rules" key.
func LoadRules(path string) ([]Rule, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "prospect: read rules %s", path)
	}

	var wrapper struct {
		Rules []Rule `yaml:"rules"`
	}
	if err := yaml.Unmarshal(data, &wrapper); err != nil {
		return nil, eris.Wrap(err, "prospect: parse rules")
	}

	for i, r := range wrapper.Rules {
		if strings.TrimSpace(r.Segment) == "" {
			return nil, eris.Errorf("prospect: rule %d has no segment", i)
		}
		if len(r.Keywords) == 0 {
			return nil, eris.Errorf("prospect: rule %d (%s) has no keywords", i, r.Segment)
		}
	}
	return wrapper.Rules, nil
}

func words(s string) []string {
	return strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}

func containsPhrase(text, phrase []string) bool {
	if len(phrase) == 0 {
		return false
	}
	for i := 0; i+len(phrase) <= len(text); i++ {
		if phraseAt(text[i:i+len(phrase)], phrase) {
			return true
		}
	}
	return false
}

func phraseAt(window, phrase []string) bool {
	last := len(phrase) - 1
	for i, w := range phrase {
		got := window[i]
		if got == w {
			continue
		}
		if i == last && (got == w+"s" || got == w+"es") {
			continue
		}
		return false
	}
	return true
}
