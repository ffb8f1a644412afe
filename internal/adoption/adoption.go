// Package adoption computes per-segment product adoption statistics from a
// Client Index.
package adoption

import (
	"sort"

	"go.uber.org/zap"

	"github.com/sells-group/account-intel/internal/index"
	"github.com/sells-group/account-intel/internal/model"
)

const (
	// TopAdopterLimit caps the adopters recorded per product.
	TopAdopterLimit = 5
	// TopClientLimit caps the reference clients recorded per segment.
	TopClientLimit = 3
)

// Compute builds one SegmentAdoptionProfile per segment in idx. The product
// universe is the catalog; an empty catalog falls back to every product
// observed in the index. Clients in the Unknown segment are not profiled.
//
// Compute reads idx without mutating it and is deterministic for a given
// index and catalog.
func Compute(idx *index.Index, catalog []model.ProductCatalogEntry) map[string]*model.SegmentAdoptionProfile {
	profiles := make(map[string]*model.SegmentAdoptionProfile)
	if idx == nil {
		return profiles
	}

	products := productUniverse(idx, catalog)
	if len(catalog) == 0 && len(products) > 0 {
		zap.L().Debug("adoption: empty catalog, using observed products",
			zap.Int("products", len(products)),
		)
	}

	for _, segment := range idx.Segments() {
		if segment == model.SegmentUnknown {
			continue
		}
		members := idx.Segment(segment)
		if len(members) == 0 {
			continue
		}
		profiles[segment] = profileSegment(segment, members, products, idx)
	}

	zap.L().Debug("adoption: profiles computed",
		zap.Int("segments", len(profiles)),
		zap.Int("products", len(products)),
	)
	return profiles
}

func profileSegment(segment string, members []*model.Client, products []string, idx *index.Index) *model.SegmentAdoptionProfile {
	p := &model.SegmentAdoptionProfile{
		Segment:     segment,
		ClientCount: len(members),
		Products:    make(map[string]model.ProductAdoption),
		ComputedAt:  idx.BuiltAt(),
	}

	for _, product := range products {
		pa, ok := productAdoption(product, members)
		if ok {
			p.Products[product] = pa
		}
	}

	monthly := make([]float64, 0, len(members))
	for _, c := range members {
		monthly = append(monthly, c.MonthlyAvgRevenue)
	}
	p.MeanMonthlyRevenue = mean(monthly)
	p.MedianMonthlyRevenue = median(monthly)
	p.TopClients = topClients(members, TopClientLimit)

	return p
}

type adopter struct {
	name    string
	revenue float64
}

// productAdoption counts the segment's adopters of product. It reports false
// when nobody in the segment has adopted it.
func productAdoption(product string, members []*model.Client) (model.ProductAdoption, bool) {
	var adopters []adopter
	var total float64
	for _, c := range members {
		if !IsAdopter(c, product) {
			continue
		}
		rev := c.MonthlyProductRevenue(product)
		adopters = append(adopters, adopter{name: c.Name, revenue: rev})
		total += rev
	}
	if len(adopters) == 0 {
		return model.ProductAdoption{}, false
	}

	sort.SliceStable(adopters, func(i, j int) bool {
		if adopters[i].revenue != adopters[j].revenue {
			return adopters[i].revenue > adopters[j].revenue
		}
		return adopters[i].name < adopters[j].name
	})
	top := make([]string, 0, min(len(adopters), TopAdopterLimit))
	for _, a := range adopters[:min(len(adopters), TopAdopterLimit)] {
		top = append(top, a.name)
	}

	return model.ProductAdoption{
		Product:              product,
		AdopterCount:         len(adopters),
		AdoptionRate:         float64(len(adopters)) / float64(len(members)),
		TotalRevenue:         total,
		AvgRevenuePerAdopter: total / float64(len(adopters)),
		TopAdopters:          top,
	}, true
}

// IsAdopter reports whether c has adopted product: nonzero revenue in the
// most recent month's record, or, when that month has no record for the
// product, a positive lifetime total.
func IsAdopter(c *model.Client, product string) bool {
	if u, ok := c.CurrentUsage(product); ok {
		return u.Revenue > 0
	}
	return c.LifetimeRevenue(product) > 0
}

// productUniverse returns the catalog's product names, deduplicated
// case-insensitively and sorted, or the index's observed products when the
// catalog is empty.
func productUniverse(idx *index.Index, catalog []model.ProductCatalogEntry) []string {
	if len(catalog) == 0 {
		return append([]string(nil), idx.Products()...)
	}

	seen := make(map[string]bool, len(catalog))
	out := make([]string, 0, len(catalog))
	for _, entry := range catalog {
		name := index.CleanProductName(entry.ProductName)
		key := index.ProductKey(name)
		if key == "" || seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

func topClients(members []*model.Client, n int) []string {
	sorted := append([]*model.Client(nil), members...)
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].TotalRevenue != sorted[j].TotalRevenue {
			return sorted[i].TotalRevenue > sorted[j].TotalRevenue
		}
		return sorted[i].Name < sorted[j].Name
	})

	var out []string
	for _, c := range sorted {
		if len(out) == n {
			break
		}
		if c.TotalRevenue > 0 {
			out = append(out, c.Name)
		}
	}
	return out
}

func mean(vals []float64) float64 {
	if len(vals) == 0 {
		return 0
	}
	var sum float64
	for _, v := range vals {
		sum += v
	}
	return sum / float64(len(vals))
}

func median(vals []float64) float64 {
	if len(vals) == 0 {
		return 0
	}
	sorted := append([]float64(nil), vals...)
	sort.Float64s(sorted)
	mid := len(sorted) / 2
	if len(sorted)%2 == 1 {
		return sorted[mid]
	}
	return (sorted[mid-1] + sorted[mid]) / 2
}
