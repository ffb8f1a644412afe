package model

import (
	"encoding/json"
	"strings"

	"github.com/rotisserie/eris"
)

// Priority is the ordinal cross-sell priority bucket.
type Priority int

// Priority buckets, ordered so that a larger value ranks first.
const (
	PriorityLow Priority = iota + 1
	PriorityMedium
	PriorityHigh
)

func (p Priority) String() string {
	switch p {
	case PriorityHigh:
		return "high"
	case PriorityMedium:
		return "medium"
	case PriorityLow:
		return "low"
	default:
		return "unknown"
	}
}

// MarshalJSON encodes the priority as its lowercase name.
func (p Priority) MarshalJSON() ([]byte, error) {
	return json.Marshal(p.String())
}

// UnmarshalJSON decodes a lowercase priority name.
func (p *Priority) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return eris.Wrap(err, "model: decode priority")
	}
	switch strings.ToLower(s) {
	case "high":
		*p = PriorityHigh
	case "medium":
		*p = PriorityMedium
	case "low":
		*p = PriorityLow
	default:
		return eris.Errorf("model: unknown priority %q", s)
	}
	return nil
}

// RecommendationCandidate is a ranked cross-sell or upsell suggestion.
type RecommendationCandidate struct {
	Product                 string   `json:"product_name"`
	Priority                Priority `json:"priority"`
	AdoptionRate            float64  `json:"adoption_rate"`
	Reasoning               string   `json:"reasoning"`
	EstimatedMonthlyRevenue float64  `json:"estimated_monthly_revenue"`
	SupportingClients       []string `json:"supporting_clients,omitempty"`
}

// SimilarityResult describes how closely another client resembles the target.
type SimilarityResult struct {
	ClientID                 string   `json:"client_id"`
	ClientName               string   `json:"client_name"`
	Segment                  string   `json:"segment"`
	SimilarityScore          float64  `json:"similarity_score"`
	SharedProducts           []string `json:"shared_products"`
	ProductsOnlyInComparator []string `json:"products_only_in_comparator"`
}
