package scorer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/account-intel/internal/config"
)

func TestDefaultConfigIsValid(t *testing.T) {
	cfg := DefaultConfig()
	require.NoError(t, ValidateConfig(cfg))
	assert.InDelta(t, 1.0, WeightSum(cfg), 1e-9)
}

func TestValidateConfig(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*config.ScoringConfig)
		wantErr string
	}{
		{"threshold above one", func(c *config.ScoringConfig) { c.AdoptionThreshold = 1.5 }, "adoption_threshold"},
		{"negative threshold", func(c *config.ScoringConfig) { c.AdoptionThreshold = -0.1 }, "adoption_threshold"},
		{"zero threshold allowed", func(c *config.ScoringConfig) { c.AdoptionThreshold = 0 }, ""},
		{"cutoffs out of order", func(c *config.ScoringConfig) { c.MediumCutoff = 0.8 }, "medium_cutoff"},
		{"high cutoff zero", func(c *config.ScoringConfig) { c.HighCutoff = 0 }, "high_cutoff"},
		{"negative supporting", func(c *config.ScoringConfig) { c.MaxSupporting = -1 }, "max_supporting"},
		{"negative weight", func(c *config.ScoringConfig) {
			c.GeographyWeight = -0.1
			c.ProductWeight = 0.9
		}, "geography_weight must be >= 0"},
		{"weights do not sum to one", func(c *config.ScoringConfig) { c.ProductWeight = 0.9 }, "sum to 1"},
		{"product weight does not dominate", func(c *config.ScoringConfig) {
			c.ProductWeight = 0.4
			c.SegmentWeight = 0.4
			c.GeographyWeight = 0.2
		}, "product_weight must exceed"},
		{"resolver threshold zero", func(c *config.ScoringConfig) { c.ResolverThreshold = 0 }, "resolver_threshold"},
		{"unknown strategy", func(c *config.ScoringConfig) { c.ResolverStrategy = "soundex" }, "resolver_strategy"},
		{"token set strategy", func(c *config.ScoringConfig) { c.ResolverStrategy = "token_set" }, ""},
		{"missing default segment", func(c *config.ScoringConfig) { c.DefaultSegment = " " }, "default_segment"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(&cfg)
			err := ValidateConfig(cfg)
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}
