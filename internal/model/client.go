// Package model defines the account, catalog and recommendation types shared
// by the scoring core.
package model

import (
	"sort"
	"strings"
)

// SegmentUnknown is the segment assigned to clients with no usable segment label.
const SegmentUnknown = "Unknown"

// ProductUsage is one product's revenue and call volume within a month.
type ProductUsage struct {
	Product    string  `json:"product"`
	Revenue    float64 `json:"revenue"`
	CallVolume int64   `json:"call_volume"`
}

// MonthUsage holds every product tuple billed in a single month.
type MonthUsage struct {
	Month    string         `json:"month"` // "2024-05", or "lifetime" for synthesized totals
	Products []ProductUsage `json:"products"`
}

// Revenue returns the summed revenue for the month.
func (m MonthUsage) Revenue() float64 {
	var total float64
	for _, p := range m.Products {
		total += p.Revenue
	}
	return total
}

// Lookup returns the usage tuple for product, matched case-insensitively.
func (m MonthUsage) Lookup(product string) (ProductUsage, bool) {
	for _, p := range m.Products {
		if strings.EqualFold(p.Product, product) {
			return p, true
		}
	}
	return ProductUsage{}, false
}

// Client is the canonical account record for one refresh cycle.
// MonthlyUsage is ordered most-recent-first. The aggregate fields are derived
// from MonthlyUsage by ComputeAggregates and must not be edited independently.
type Client struct {
	ID           string   `json:"client_id"`
	Name         string   `json:"client_name"`
	Aliases      []string `json:"aliases,omitempty"`
	Segment      string   `json:"segment"`
	Geography    string   `json:"geography,omitempty"`
	PaymentModel string   `json:"payment_model,omitempty"`

	MonthlyUsage []MonthUsage `json:"monthly_usage,omitempty"`

	// Derived
	TotalRevenue      float64            `json:"total_revenue"`
	MonthlyAvgRevenue float64            `json:"monthly_avg_revenue"`
	ProductsUsed      []string           `json:"products_used"`
	PerProductRevenue map[string]float64 `json:"per_product_revenue"`

	// ReportedRevenue is the revenue figure declared by the upstream record.
	// It is informational only; TotalRevenue is always recomputed from usage.
	ReportedRevenue float64 `json:"reported_revenue,omitempty"`
	// ProductsListed are product names the upstream record declared without
	// any revenue attached.
	ProductsListed []string `json:"products_listed,omitempty"`
}

// ComputeAggregates recomputes TotalRevenue, MonthlyAvgRevenue,
// PerProductRevenue and ProductsUsed from MonthlyUsage.
func (c *Client) ComputeAggregates() {
	c.PerProductRevenue = make(map[string]float64)
	c.TotalRevenue = 0

	for _, m := range c.MonthlyUsage {
		for _, p := range m.Products {
			c.PerProductRevenue[p.Product] += p.Revenue
			c.TotalRevenue += p.Revenue
		}
	}

	c.ProductsUsed = make([]string, 0, len(c.PerProductRevenue))
	for product, rev := range c.PerProductRevenue {
		if rev > 0 {
			c.ProductsUsed = append(c.ProductsUsed, product)
		} else {
			// Keys without positive revenue would break the used/revenue invariant.
			delete(c.PerProductRevenue, product)
		}
	}
	sort.Strings(c.ProductsUsed)

	c.MonthlyAvgRevenue = 0
	if n := len(c.MonthlyUsage); n > 0 {
		c.MonthlyAvgRevenue = c.TotalRevenue / float64(n)
	}
}

// Uses reports whether the client has positive cumulative revenue for product.
func (c *Client) Uses(product string) bool {
	if c.PerProductRevenue[product] > 0 {
		return true
	}
	for p, rev := range c.PerProductRevenue {
		if rev > 0 && strings.EqualFold(p, product) {
			return true
		}
	}
	return false
}

// LifetimeRevenue returns the cumulative revenue for product.
func (c *Client) LifetimeRevenue(product string) float64 {
	if rev, ok := c.PerProductRevenue[product]; ok {
		return rev
	}
	for p, rev := range c.PerProductRevenue {
		if strings.EqualFold(p, product) {
			return rev
		}
	}
	return 0
}

// CurrentUsage returns the product's record in the most recent month, if any.
func (c *Client) CurrentUsage(product string) (ProductUsage, bool) {
	if len(c.MonthlyUsage) == 0 {
		return ProductUsage{}, false
	}
	return c.MonthlyUsage[0].Lookup(product)
}

// MonthlyProductRevenue returns the product's monthly revenue: the current
// month's figure when one is recorded, otherwise the lifetime total averaged
// over the observed months.
func (c *Client) MonthlyProductRevenue(product string) float64 {
	if u, ok := c.CurrentUsage(product); ok && u.Revenue > 0 {
		return u.Revenue
	}
	lifetime := c.LifetimeRevenue(product)
	if n := len(c.MonthlyUsage); n > 0 {
		return lifetime / float64(n)
	}
	return lifetime
}

// ProductSet returns ProductsUsed as a set.
func (c *Client) ProductSet() map[string]struct{} {
	set := make(map[string]struct{}, len(c.ProductsUsed))
	for _, p := range c.ProductsUsed {
		set[p] = struct{}{}
	}
	return set
}
