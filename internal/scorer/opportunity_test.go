package scorer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/account-intel/internal/model"
)

func fintechProfile() *model.SegmentAdoptionProfile {
	return &model.SegmentAdoptionProfile{
		Segment:     "Fintech",
		ClientCount: 10,
		Products: map[string]model.ProductAdoption{
			"PAN Verification": {
				Product: "PAN Verification", AdopterCount: 9, AdoptionRate: 0.9,
				TotalRevenue: 9000, AvgRevenuePerAdopter: 1000,
				TopAdopters: []string{"Acme Pvt Ltd", "Zeta", "Eta", "Theta"},
			},
			"Aadhaar OKYC": {
				Product: "Aadhaar OKYC", AdopterCount: 8, AdoptionRate: 0.8,
				TotalRevenue: 4000, AvgRevenuePerAdopter: 500,
				TopAdopters: []string{"Zeta", "Eta", "Theta", "Iota", "Kappa"},
			},
			"Bank Verification": {
				Product: "Bank Verification", AdopterCount: 6, AdoptionRate: 0.6,
				TotalRevenue: 1200, AvgRevenuePerAdopter: 200,
				TopAdopters: []string{"Acme Pvt Ltd", "Zeta"},
			},
			"GST Verification": {
				Product: "GST Verification", AdopterCount: 4, AdoptionRate: 0.4,
				TotalRevenue: 400, AvgRevenuePerAdopter: 100,
			},
			"Video KYC": {
				Product: "Video KYC", AdopterCount: 2, AdoptionRate: 0.2,
				TotalRevenue: 300, AvgRevenuePerAdopter: 150,
			},
		},
	}
}

func acme() *model.Client {
	c := &model.Client{
		ID:      "acme",
		Name:    "Acme Pvt Ltd",
		Segment: "Fintech",
		MonthlyUsage: []model.MonthUsage{
			{Month: "2024-06", Products: []model.ProductUsage{{Product: "PAN Verification", Revenue: 1000}}},
		},
	}
	c.ComputeAggregates()
	return c
}

func TestBucket(t *testing.T) {
	cfg := DefaultConfig()
	tests := []struct {
		rate float64
		want model.Priority
	}{
		{1.0, model.PriorityHigh},
		{0.7, model.PriorityHigh},
		{0.69, model.PriorityMedium},
		{0.5, model.PriorityMedium},
		{0.49, model.PriorityLow},
		{0, model.PriorityLow},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Bucket(tt.rate, cfg), "rate %v", tt.rate)
	}
}

func TestScoreOpportunities_RecommendsMissingHighAdoptionProduct(t *testing.T) {
	got := ScoreOpportunities(acme(), fintechProfile(), DefaultConfig())
	require.NotEmpty(t, got)

	first := got[0]
	assert.Equal(t, "Aadhaar OKYC", first.Product)
	assert.Equal(t, model.PriorityHigh, first.Priority)
	assert.InDelta(t, 500, first.EstimatedMonthlyRevenue, 0.01)
	assert.Equal(t, "80% of Fintech clients use Aadhaar OKYC (8 of 10)", first.Reasoning)
	assert.Equal(t, []string{"Zeta", "Eta", "Theta"}, first.SupportingClients)

	for _, c := range got {
		assert.NotEqual(t, "PAN Verification", c.Product)
	}
}

func TestScoreOpportunities_ThresholdAndOrdering(t *testing.T) {
	got := ScoreOpportunities(acme(), fintechProfile(), DefaultConfig())

	var names []string
	for _, c := range got {
		names = append(names, c.Product)
	}
	assert.Equal(t, []string{"Aadhaar OKYC", "Bank Verification", "GST Verification"}, names)
	assert.Equal(t, model.PriorityMedium, got[1].Priority)
	assert.Equal(t, model.PriorityLow, got[2].Priority)
	assert.Equal(t, []string{"Zeta"}, got[1].SupportingClients, "the client itself is never cited")
}

func TestScoreOpportunities_SelfExclusionAcrossThresholds(t *testing.T) {
	client := acme()
	profile := fintechProfile()

	for _, threshold := range []float64{0, 0.1, 0.4, 0.5, 0.8, 1} {
		cfg := DefaultConfig()
		cfg.AdoptionThreshold = threshold
		got := ScoreOpportunities(client, profile, cfg)

		for i, c := range got {
			assert.False(t, client.Uses(c.Product), "threshold %v: %s already used", threshold, c.Product)
			assert.GreaterOrEqual(t, c.AdoptionRate, threshold)
			if i > 0 {
				prev := got[i-1]
				assert.True(t, prev.Priority > c.Priority ||
					(prev.Priority == c.Priority && prev.AdoptionRate >= c.AdoptionRate),
					"threshold %v: order broken at %d", threshold, i)
			}
		}
	}
}

func TestScoreOpportunities_ZeroThresholdReturnsEveryMissingProduct(t *testing.T) {
	cfg := DefaultConfig()
	cfg.AdoptionThreshold = 0
	assert.Len(t, ScoreOpportunities(acme(), fintechProfile(), cfg), 4)
}

func TestScoreOpportunities_MissingProfile(t *testing.T) {
	assert.Empty(t, ScoreOpportunities(acme(), nil, DefaultConfig()))
	assert.Empty(t, ScoreOpportunities(nil, fintechProfile(), DefaultConfig()))
}

func TestScoreOpportunities_ClientUsingEverything(t *testing.T) {
	c := &model.Client{Name: "Everything Co"}
	for name := range fintechProfile().Products {
		c.MonthlyUsage = append(c.MonthlyUsage, model.MonthUsage{
			Month:    "2024-06",
			Products: []model.ProductUsage{{Product: name, Revenue: 1}},
		})
	}
	c.ComputeAggregates()

	assert.Empty(t, ScoreOpportunities(c, fintechProfile(), DefaultConfig()))
}

func TestScoreDefaults(t *testing.T) {
	got := ScoreDefaults(fintechProfile(), DefaultConfig())

	require.Len(t, got, 4)
	assert.Equal(t, "PAN Verification", got[0].Product)
	assert.Equal(t, []string{"Acme Pvt Ltd", "Zeta", "Eta"}, got[0].SupportingClients)
	assert.Equal(t, "Aadhaar OKYC", got[1].Product)
	assert.Nil(t, ScoreDefaults(nil, DefaultConfig()))
}

func TestSummarize(t *testing.T) {
	s := Summarize(ScoreDefaults(fintechProfile(), DefaultConfig()))

	assert.Equal(t, 4, s.Candidates)
	assert.Equal(t, 2, s.High)
	assert.Equal(t, 1, s.Medium)
	assert.Equal(t, 1, s.Low)
	assert.InDelta(t, 1800, s.EstimatedMonthlyRevenue, 0.001)

	assert.Equal(t, Summary{}, Summarize(nil))
}
