package index

import (
	"encoding/json"
	"math"
	"strings"

	"github.com/cockroachdb/apd/v3"
)

// currencyTokens are stripped before numeric parsing. Longer tokens first.
var currencyTokens = []string{"INR", "USD", "Rs.", "Rs", "₹", "$", "€", "£"}

// ParseAmount converts a currency-formatted string or bare number into a
// float. Anything non-numeric resolves to 0.
func ParseAmount(v any) float64 {
	switch t := v.(type) {
	case nil:
		return 0
	case float64:
		return finite(t)
	case float32:
		return finite(float64(t))
	case int:
		return float64(t)
	case int64:
		return float64(t)
	case json.Number:
		return parseDecimal(t.String())
	case string:
		return parseDecimal(t)
	default:
		return 0
	}
}

func parseDecimal(s string) float64 {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0
	}

	negative := false
	if strings.HasPrefix(s, "(") && strings.HasSuffix(s, ")") {
		negative = true
		s = strings.TrimSuffix(strings.TrimPrefix(s, "("), ")")
	}
	for _, tok := range currencyTokens {
		s = strings.ReplaceAll(s, tok, "")
	}
	s = strings.NewReplacer(",", "", " ", "", "_", "").Replace(s)
	if s == "" {
		return 0
	}

	d, _, err := apd.NewFromString(s)
	if err != nil || d.Form != apd.Finite {
		return 0
	}
	f, err := d.Float64()
	if err != nil {
		return 0
	}
	if negative {
		f = -math.Abs(f)
	}
	return finite(f)
}

func finite(f float64) float64 {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0
	}
	return f
}
