package index

import (
	"strings"
)

// ParseProducts accepts a product list as an array or a comma, semicolon or
// pipe delimited string and returns a deduplicated list in first-seen order.
// Array elements may themselves be delimited strings or objects with a
// product/name/api field.
func ParseProducts(v any) []string {
	var out []string
	seen := make(map[string]bool)
	add := func(s string) {
		for _, part := range splitProducts(s) {
			key := ProductKey(part)
			if key == "" || seen[key] {
				continue
			}
			seen[key] = true
			out = append(out, part)
		}
	}

	switch t := v.(type) {
	case string:
		add(t)
	case []string:
		for _, s := range t {
			add(s)
		}
	case []any:
		for _, item := range t {
			switch it := item.(type) {
			case string:
				add(it)
			case map[string]any:
				add(firstString(it, productKeys...))
			}
		}
	}
	return out
}

// ProductKey is the case- and whitespace-insensitive identity of a product name.
func ProductKey(name string) string {
	return strings.ToLower(CleanProductName(name))
}

// CleanProductName trims and collapses internal whitespace.
func CleanProductName(name string) string {
	return strings.Join(strings.Fields(name), " ")
}

func splitProducts(s string) []string {
	parts := strings.FieldsFunc(s, func(r rune) bool {
		return r == ',' || r == ';' || r == '|'
	})
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = CleanProductName(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func firstString(m map[string]any, keys ...string) string {
	for _, k := range keys {
		if v, ok := m[k]; ok && !isEmpty(v) {
			return strings.TrimSpace(asString(v))
		}
	}
	return ""
}
