package resolve

import (
	"math"
	"sort"

	"github.com/sells-group/account-intel/internal/index"
	"github.com/sells-group/account-intel/internal/model"
)

// tieEpsilon treats two distances this close as equal.
const tieEpsilon = 1e-9

// Match is a resolved client with a confidence on a 0-100 scale.
type Match struct {
	Client     *model.Client `json:"client"`
	Confidence float64       `json:"confidence"`
	Exact      bool          `json:"exact"`
	MatchedOn  string        `json:"matched_on"` // the name or alias that matched
	Distance   float64       `json:"distance"`
}

// Resolver resolves names against a Table. It holds no mutable state.
type Resolver struct {
	matcher   Matcher
	threshold float64
}

// Option configures a Resolver.
type Option func(*Resolver)

// WithMatcher swaps the string-similarity strategy.
func WithMatcher(m Matcher) Option {
	return func(r *Resolver) { r.matcher = m }
}

// WithThreshold overrides AcceptanceThreshold.
func WithThreshold(t float64) Option {
	return func(r *Resolver) {
		if t > 0 && t <= 1 {
			r.threshold = t
		}
	}
}

// New creates a Resolver using Levenshtein and AcceptanceThreshold by default.
func New(opts ...Option) *Resolver {
	r := &Resolver{matcher: Levenshtein{}, threshold: AcceptanceThreshold}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Threshold returns the acceptance threshold in use.
func (r *Resolver) Threshold() float64 { return r.threshold }

// Table is the precomputed, read-only name lookup for one index snapshot.
type Table struct {
	exact   map[string][]candidate
	entries []candidate
}

type candidate struct {
	key    string
	label  string
	client *model.Client
}

// NewTable precomputes normalized names and aliases for every client.
func (r *Resolver) NewTable(idx *index.Index) *Table {
	t := &Table{exact: make(map[string][]candidate)}
	for _, c := range idx.Clients() {
		for _, label := range append([]string{c.Name}, c.Aliases...) {
			norm := NormalizeName(label)
			if norm == "" {
				continue
			}
			t.exact[norm] = append(t.exact[norm], candidate{key: norm, label: label, client: c})
			t.entries = append(t.entries, candidate{key: r.matcher.Key(label), label: label, client: c})
		}
	}
	return t
}

// Resolve returns the client best matching query. An exact normalized match
// always wins with confidence 100. Otherwise the closest fuzzy candidate is
// returned only when its distance is below the threshold. Equal distances
// are broken by higher total revenue; if the revenues are also equal the
// query is ambiguous and reported as not found.
func (r *Resolver) Resolve(query string, t *Table) (Match, bool) {
	norm := NormalizeName(query)
	if norm == "" || t == nil {
		return Match{}, false
	}

	if hits := t.exact[norm]; len(hits) > 0 {
		best := hits[0]
		for _, h := range hits[1:] {
			if preferClient(h.client, best.client) {
				best = h
			}
		}
		return Match{Client: best.client, Confidence: 100, Exact: true, MatchedOn: best.label}, true
	}

	ranked := r.rank(query, t)
	if len(ranked) == 0 || ranked[0].Distance >= r.threshold {
		return Match{}, false
	}
	if len(ranked) > 1 &&
		math.Abs(ranked[1].Distance-ranked[0].Distance) < tieEpsilon &&
		ranked[1].Client.TotalRevenue == ranked[0].Client.TotalRevenue {
		return Match{}, false
	}
	return ranked[0], true
}

// Suggest returns up to n fuzzy candidates under the threshold, best first.
func (r *Resolver) Suggest(query string, t *Table, n int) []Match {
	if n <= 0 || t == nil {
		return nil
	}
	var out []Match
	for _, m := range r.rank(query, t) {
		if m.Distance >= r.threshold || len(out) == n {
			break
		}
		out = append(out, m)
	}
	return out
}

// rank scores every client by its best name-or-alias distance, ordered by
// distance then revenue descending.
func (r *Resolver) rank(query string, t *Table) []Match {
	key := r.matcher.Key(query)
	if key == "" {
		return nil
	}

	best := make(map[*model.Client]Match)
	for _, e := range t.entries {
		d := r.matcher.Distance(key, e.key)
		if cur, ok := best[e.client]; ok && cur.Distance <= d {
			continue
		}
		best[e.client] = Match{
			Client:     e.client,
			Confidence: confidence(d),
			MatchedOn:  e.label,
			Distance:   d,
		}
	}

	out := make([]Match, 0, len(best))
	for _, m := range best {
		out = append(out, m)
	}
	sort.Slice(out, func(i, j int) bool {
		if math.Abs(out[i].Distance-out[j].Distance) >= tieEpsilon {
			return out[i].Distance < out[j].Distance
		}
		return preferClient(out[i].Client, out[j].Client)
	})
	return out
}

// preferClient reports whether a ranks ahead of b: larger account first,
// then id for a stable order.
func preferClient(a, b *model.Client) bool {
	if a.TotalRevenue != b.TotalRevenue {
		return a.TotalRevenue > b.TotalRevenue
	}
	return a.ID < b.ID
}

// confidence maps a distance to 0-100. Only exact matches reach 100.
func confidence(d float64) float64 {
	c := math.Round((1-d)*1000) / 10
	if d > 0 && c >= 100 {
		c = 99.9
	}
	return math.Max(c, 0)
}
