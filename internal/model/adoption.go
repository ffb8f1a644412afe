package model

import (
	"sort"
	"strings"
	"time"
)

// ProductAdoption is the adoption record for one product within a segment.
type ProductAdoption struct {
	Product              string   `json:"product"`
	AdopterCount         int      `json:"adopter_count"`
	AdoptionRate         float64  `json:"adoption_rate"`
	TotalRevenue         float64  `json:"total_revenue"`
	AvgRevenuePerAdopter float64  `json:"avg_revenue_per_adopter"`
	TopAdopters          []string `json:"top_adopters,omitempty"` // highest-revenue adopters first
}

// SegmentAdoptionProfile holds per-product adoption statistics for a segment.
// Products with zero adopters are never present.
type SegmentAdoptionProfile struct {
	Segment     string                     `json:"segment"`
	ClientCount int                        `json:"client_count"`
	Products    map[string]ProductAdoption `json:"products"`

	// Segment-wide revenue statistics, used as Ideal Customer Profile inputs.
	MeanMonthlyRevenue   float64  `json:"mean_monthly_revenue"`
	MedianMonthlyRevenue float64  `json:"median_monthly_revenue"`
	TopClients           []string `json:"top_clients,omitempty"`

	// ComputedAt is the build time of the index the profile was derived from.
	ComputedAt time.Time `json:"computed_at"`
}

// Ranked returns the products ordered by adoption rate descending, then name.
func (p *SegmentAdoptionProfile) Ranked() []ProductAdoption {
	out := make([]ProductAdoption, 0, len(p.Products))
	for _, pa := range p.Products {
		out = append(out, pa)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].AdoptionRate != out[j].AdoptionRate {
			return out[i].AdoptionRate > out[j].AdoptionRate
		}
		return out[i].Product < out[j].Product
	})
	return out
}

// FindSegment returns the key of m that names segment, ignoring case and
// surrounding space. An exact match wins; among case-insensitive matches the
// lexically smallest key is chosen.
func FindSegment[V any](m map[string]V, segment string) (string, bool) {
	segment = strings.TrimSpace(segment)
	if segment == "" {
		return "", false
	}
	if _, ok := m[segment]; ok {
		return segment, true
	}
	best, found := "", false
	for key := range m {
		if strings.EqualFold(key, segment) && (!found || key < best) {
			best, found = key, true
		}
	}
	return best, found
}
