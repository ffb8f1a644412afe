package index

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/account-intel/internal/model"
)

// ErrMissingName marks a raw record with no usable name field.
var ErrMissingName = eris.New("index: record has no usable name")

// Index is the immutable client catalog for one refresh cycle.
type Index struct {
	clients  []*model.Client // sorted by name
	byID     map[string]*model.Client
	segments map[string][]*model.Client
	products []string
	builtAt  time.Time
	skipped  int
}

// Option configures Build.
type Option func(*buildOptions)

type buildOptions struct {
	now func() time.Time
}

// WithClock overrides the clock used to stamp BuiltAt.
func WithClock(now func() time.Time) Option {
	return func(o *buildOptions) { o.now = now }
}

// Build normalizes raw records into an Index. Records that cannot be
// normalized are skipped; Build never fails, and an empty Index is valid.
func Build(raws []RawClient, opts ...Option) *Index {
	o := buildOptions{now: time.Now}
	for _, opt := range opts {
		opt(&o)
	}

	idx := &Index{
		byID:     make(map[string]*model.Client),
		segments: make(map[string][]*model.Client),
		builtAt:  o.now().UTC(),
	}

	// First spelling seen for a product key is canonical across the index.
	spellings := make(map[string]string)

	for i, raw := range raws {
		c, err := normalizeSafe(raw, i)
		if err != nil {
			idx.skipped++
			zap.L().Debug("index: skipping record", zap.Int("position", i), zap.Error(err))
			continue
		}
		canonicalize(c, spellings)
		c.ComputeAggregates()

		if prev, ok := idx.byID[c.ID]; ok {
			zap.L().Debug("index: duplicate client id, later record wins",
				zap.String("client_id", c.ID),
				zap.String("previous", prev.Name),
				zap.String("current", c.Name),
			)
		}
		idx.byID[c.ID] = c
	}

	for _, c := range idx.byID {
		idx.clients = append(idx.clients, c)
		idx.segments[c.Segment] = append(idx.segments[c.Segment], c)
	}
	sortClients(idx.clients)
	for _, members := range idx.segments {
		sortClients(members)
	}

	for _, name := range spellings {
		idx.products = append(idx.products, name)
	}
	sort.Strings(idx.products)

	zap.L().Info("index: build complete",
		zap.Int("clients", len(idx.clients)),
		zap.Int("skipped", idx.skipped),
		zap.Int("segments", len(idx.segments)),
		zap.Int("products", len(idx.products)),
	)

	return idx
}

// normalizeSafe guards the build against panics from unexpected value shapes.
func normalizeSafe(raw RawClient, position int) (c *model.Client, err error) {
	defer func() {
		if r := recover(); r != nil {
			c = nil
			err = eris.Errorf("index: record %d: %v", position, r)
		}
	}()
	return Normalize(raw, position)
}

// Normalize converts one raw record into a Client without aggregates.
// position is used to mint an id when the record carries none.
func Normalize(raw RawClient, position int) (*model.Client, error) {
	name := raw.Name()
	if name == "" {
		return nil, ErrMissingName
	}

	revenue, _ := raw.lookup(fieldRevenue)
	c := &model.Client{
		ID:              raw.text(fieldID),
		Name:            name,
		Segment:         raw.text(fieldSegment),
		Geography:       raw.text(fieldGeography),
		PaymentModel:    raw.text(fieldPaymentModel),
		ReportedRevenue: ParseAmount(revenue),
	}
	if c.ID == "" {
		c.ID = fmt.Sprintf("auto-%d-%s", position, strings.ToLower(strings.Join(strings.Fields(name), "-")))
	}
	if c.Segment == "" {
		c.Segment = model.SegmentUnknown
	}

	// Aliases are the one field where every spelling contributes.
	for _, key := range fieldSpellings[fieldAliases] {
		v, ok := raw.fields[key]
		if !ok || isEmpty(v) {
			continue
		}
		for _, a := range ParseProducts(v) {
			if !strings.EqualFold(a, name) && !containsFold(c.Aliases, a) {
				c.Aliases = append(c.Aliases, a)
			}
		}
	}

	if v, ok := raw.lookup(fieldUsage); ok {
		c.MonthlyUsage = ParseUsage(v)
	}

	var listed []string
	if v, ok := raw.lookup(fieldProducts); ok {
		listed = ParseProducts(v)
	}

	if len(c.MonthlyUsage) == 0 && len(listed) > 0 && c.ReportedRevenue > 0 {
		// Lifetime-total fallback: spread the declared revenue over the listed products.
		share := c.ReportedRevenue / float64(len(listed))
		m := model.MonthUsage{Month: lifetimeMonth}
		for _, p := range listed {
			m.Products = append(m.Products, model.ProductUsage{Product: p, Revenue: share})
		}
		c.MonthlyUsage = []model.MonthUsage{m}
	} else {
		for _, p := range listed {
			if !usageMentions(c.MonthlyUsage, p) {
				c.ProductsListed = append(c.ProductsListed, p)
			}
		}
	}

	return c, nil
}

func canonicalize(c *model.Client, spellings map[string]string) {
	for mi := range c.MonthlyUsage {
		for pi := range c.MonthlyUsage[mi].Products {
			p := &c.MonthlyUsage[mi].Products[pi]
			key := ProductKey(p.Product)
			if canon, ok := spellings[key]; ok {
				p.Product = canon
			} else {
				spellings[key] = p.Product
			}
		}
	}
	for i, p := range c.ProductsListed {
		if canon, ok := spellings[ProductKey(p)]; ok {
			c.ProductsListed[i] = canon
		}
	}
}

func usageMentions(months []model.MonthUsage, product string) bool {
	for _, m := range months {
		if _, ok := m.Lookup(product); ok {
			return true
		}
	}
	return false
}

func containsFold(list []string, s string) bool {
	for _, v := range list {
		if strings.EqualFold(v, s) {
			return true
		}
	}
	return false
}

func sortClients(cs []*model.Client) {
	sort.Slice(cs, func(i, j int) bool {
		if cs[i].Name != cs[j].Name {
			return cs[i].Name < cs[j].Name
		}
		return cs[i].ID < cs[j].ID
	})
}

// BuiltAt is the refresh timestamp that keys every derived cache.
func (idx *Index) BuiltAt() time.Time { return idx.builtAt }

// Len returns the number of clients.
func (idx *Index) Len() int { return len(idx.clients) }

// Skipped returns how many raw records were excluded during build.
func (idx *Index) Skipped() int { return idx.skipped }

// Clients returns every client sorted by name. Callers must not mutate the
// returned clients.
func (idx *Index) Clients() []*model.Client { return idx.clients }

// ByID looks up a client by id.
func (idx *Index) ByID(id string) (*model.Client, bool) {
	c, ok := idx.byID[id]
	return c, ok
}

// Segment returns the clients in a segment.
func (idx *Index) Segment(name string) []*model.Client { return idx.segments[name] }

// Segments returns the segment names in sorted order.
func (idx *Index) Segments() []string {
	out := make([]string, 0, len(idx.segments))
	for s := range idx.segments {
		out = append(out, s)
	}
	sort.Strings(out)
	return out
}

// Products returns every product name observed in usage, sorted.
func (idx *Index) Products() []string { return idx.products }
