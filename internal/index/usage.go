package index

import (
	"sort"
	"time"

	"github.com/sells-group/account-intel/internal/model"
)

var (
	monthKeys   = []string{"month", "period", "date", "billingMonth", "billing_month"}
	productKeys = []string{"product", "productName", "product_name", "api", "apiName", "api_name", "name"}
	revenueKeys = []string{"revenue", "amount", "billedAmount", "billed_amount"}
	callKeys    = []string{"calls", "callVolume", "call_volume", "volume", "hits"}
	tupleKeys   = []string{"products", "apis", "usage", "items"}
)

var monthLayouts = []string{"2006-01", "2006-01-02", "2006/01", "01/2006", "Jan 2006", "January 2006", "Jan-2006", "200601"}

// lifetimeMonth labels the synthesized month built from lifetime totals.
const lifetimeMonth = "lifetime"

// ParseUsage converts the upstream monthly usage value into month records
// ordered most-recent-first. Two shapes are accepted: a list of month
// objects each carrying product tuples, or a flat list of rows each carrying
// month, product and revenue. Tuples inside a month may be a list or a map
// keyed by product name. Duplicate products within a month are summed.
func ParseUsage(v any) []model.MonthUsage {
	entries, ok := v.([]any)
	if !ok {
		return nil
	}

	byMonth := make(map[string]*model.MonthUsage)
	var order []string
	month := func(label string) *model.MonthUsage {
		if m, ok := byMonth[label]; ok {
			return m
		}
		m := &model.MonthUsage{Month: label}
		byMonth[label] = m
		order = append(order, label)
		return m
	}

	for _, e := range entries {
		obj, ok := e.(map[string]any)
		if !ok {
			continue
		}
		label := firstString(obj, monthKeys...)

		// Flat row form.
		if name := firstString(obj, productKeys...); name != "" && !hasAny(obj, tupleKeys) {
			addTuple(month(label), name, obj)
			continue
		}

		m := month(label)
		for _, key := range tupleKeys {
			raw, ok := obj[key]
			if !ok {
				continue
			}
			switch tuples := raw.(type) {
			case []any:
				for _, item := range tuples {
					if t, ok := item.(map[string]any); ok {
						addTuple(m, firstString(t, productKeys...), t)
					}
				}
			case map[string]any:
				for name, val := range tuples {
					switch tv := val.(type) {
					case map[string]any:
						addTuple(m, name, tv)
					default:
						addTuple(m, name, map[string]any{"revenue": tv})
					}
				}
			}
			break
		}
	}

	out := make([]model.MonthUsage, 0, len(order))
	for _, label := range order {
		m := byMonth[label]
		sort.Slice(m.Products, func(i, j int) bool { return m.Products[i].Product < m.Products[j].Product })
		out = append(out, *m)
	}
	sortMonthsDesc(out)
	return out
}

func addTuple(m *model.MonthUsage, name string, obj map[string]any) {
	name = CleanProductName(name)
	if name == "" {
		return
	}
	rev := ParseAmount(firstValue(obj, revenueKeys...))
	calls := int64(ParseAmount(firstValue(obj, callKeys...)))
	for i := range m.Products {
		if ProductKey(m.Products[i].Product) == ProductKey(name) {
			m.Products[i].Revenue += rev
			m.Products[i].CallVolume += calls
			return
		}
	}
	m.Products = append(m.Products, model.ProductUsage{Product: name, Revenue: rev, CallVolume: calls})
}

// sortMonthsDesc orders months most-recent-first. Labels that do not parse
// keep their relative input order after every parseable month.
func sortMonthsDesc(months []model.MonthUsage) {
	parsed := make([]time.Time, len(months))
	for i, m := range months {
		parsed[i] = parseMonth(m.Month)
	}
	idx := make([]int, len(months))
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(a, b int) bool {
		return parsed[idx[a]].After(parsed[idx[b]])
	})
	sorted := make([]model.MonthUsage, len(months))
	for i, j := range idx {
		sorted[i] = months[j]
	}
	copy(months, sorted)
}

func parseMonth(label string) time.Time {
	for _, layout := range monthLayouts {
		if t, err := time.Parse(layout, label); err == nil {
			return t
		}
	}
	return time.Time{}
}

func firstValue(m map[string]any, keys ...string) any {
	for _, k := range keys {
		if v, ok := m[k]; ok && !isEmpty(v) {
			return v
		}
	}
	return nil
}

func hasAny(m map[string]any, keys []string) bool {
	for _, k := range keys {
		if _, ok := m[k]; ok {
			return true
		}
	}
	return false
}
