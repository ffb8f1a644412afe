// Package scorer ranks cross-sell and upsell candidates from segment
// adoption statistics.
package scorer

import (
	"fmt"
	"math"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/sells-group/account-intel/internal/config"
)

// DefaultConfig returns a config.ScoringConfig with sensible defaults.
// Similarity weights sum to 1.
func DefaultConfig() config.ScoringConfig {
	return config.ScoringConfig{
		// Candidate gating and buckets.
		AdoptionThreshold: 0.4,
		HighCutoff:        0.7,
		MediumCutoff:      0.5,
		MaxSupporting:     3,

		// Similarity weights (sum = 1).
		ProductWeight:   0.7,
		SegmentWeight:   0.2,
		GeographyWeight: 0.1,

		// Resolver.
		ResolverThreshold: 0.4,
		ResolverStrategy:  "levenshtein",

		DefaultSegment: "Fintech",
	}
}

// WeightSum returns the sum of the similarity weights.
func WeightSum(c config.ScoringConfig) float64 {
	return c.ProductWeight + c.SegmentWeight + c.GeographyWeight
}

// ValidateConfig checks that a ScoringConfig is internally consistent.
func ValidateConfig(c config.ScoringConfig) error {
	var errs []string

	// Adoption rates live in [0,1].
	if c.AdoptionThreshold < 0 || c.AdoptionThreshold > 1 {
		errs = append(errs, "adoption_threshold must be between 0 and 1")
	}
	if c.HighCutoff <= 0 || c.HighCutoff > 1 {
		errs = append(errs, "high_cutoff must be in (0, 1]")
	}
	if c.MediumCutoff <= 0 || c.MediumCutoff > c.HighCutoff {
		errs = append(errs, "medium_cutoff must be in (0, high_cutoff]")
	}
	if c.MaxSupporting < 0 {
		errs = append(errs, "max_supporting must be >= 0")
	}

	// All weights must be non-negative.
	weights := map[string]float64{
		"product_weight":   c.ProductWeight,
		"segment_weight":   c.SegmentWeight,
		"geography_weight": c.GeographyWeight,
	}
	for name, w := range weights {
		if w < 0 {
			errs = append(errs, fmt.Sprintf("%s must be >= 0", name))
		}
	}

	// Product overlap must dominate the blend.
	if c.ProductWeight <= c.SegmentWeight+c.GeographyWeight {
		errs = append(errs, "product_weight must exceed segment_weight + geography_weight")
	}

	// Weights should be close to 1 (allow tolerance for floating-point).
	if sum := WeightSum(c); math.Abs(sum-1) > 0.01 {
		errs = append(errs, fmt.Sprintf("similarity weights should sum to 1, got %.2f", sum))
	}

	if c.ResolverThreshold <= 0 || c.ResolverThreshold > 1 {
		errs = append(errs, "resolver_threshold must be in (0, 1]")
	}
	switch c.ResolverStrategy {
	case "", "levenshtein", "token_set":
	default:
		errs = append(errs, fmt.Sprintf("resolver_strategy %q is not supported", c.ResolverStrategy))
	}
	if strings.TrimSpace(c.DefaultSegment) == "" {
		errs = append(errs, "default_segment is required")
	}

	if len(errs) > 0 {
		return eris.Errorf("scorer: config validation failed: %s", strings.Join(errs, "; "))
	}
	return nil
}
