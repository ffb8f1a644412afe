package model

// IdealCustomerProfile summarizes the typical client of a segment.
type IdealCustomerProfile struct {
	Segment              string   `json:"segment"`
	ClientCount          int      `json:"client_count"`
	TypicalProducts      []string `json:"typical_products"`
	MeanMonthlyRevenue   float64  `json:"mean_monthly_revenue"`
	MedianMonthlyRevenue float64  `json:"median_monthly_revenue"`
	ReferenceClients     []string `json:"reference_clients,omitempty"`
	Size                 string   `json:"size,omitempty"`
	Geography            string   `json:"geography,omitempty"`
}

// ProspectProfile is the synthetic recommendation set for a company with no
// client record.
type ProspectProfile struct {
	Segment         string                    `json:"segment"`
	MatchedBy       string                    `json:"matched_by"` // "segment", "keyword:<kw>", or "default"
	ICP             IdealCustomerProfile      `json:"ideal_customer_profile"`
	Recommendations []RecommendationCandidate `json:"recommendations"`
}
