// Package similarity finds the clients most like a given client by shared
// product usage, segment and geography.
package similarity

import (
	"math"
	"sort"
	"strings"

	"github.com/sells-group/account-intel/internal/config"
	"github.com/sells-group/account-intel/internal/index"
	"github.com/sells-group/account-intel/internal/model"
)

// partialGeography is the geography credit when either side is unknown.
const partialGeography = 0.5

// Weights blends the similarity signals. Products should dominate.
type Weights struct {
	Products  float64
	Segment   float64
	Geography float64
}

// DefaultWeights returns the product-dominated default blend.
func DefaultWeights() Weights {
	return Weights{Products: 0.7, Segment: 0.2, Geography: 0.1}
}

// WeightsFrom reads the similarity weights from the scoring config, falling
// back to the defaults when they are unset.
func WeightsFrom(cfg config.ScoringConfig) Weights {
	w := Weights{Products: cfg.ProductWeight, Segment: cfg.SegmentWeight, Geography: cfg.GeographyWeight}
	if w.sum() <= 0 {
		return DefaultWeights()
	}
	return w
}

func (w Weights) sum() float64 { return w.Products + w.Segment + w.Geography }

// FindSimilar returns up to limit clients ranked by descending similarity to
// target. The target itself is never included, nor is any client that
// shares no product with it and sits in a different segment. A limit of
// zero or less returns nothing.
func FindSimilar(target *model.Client, idx *index.Index, limit int, w Weights) []model.SimilarityResult {
	if target == nil || idx == nil || limit <= 0 || w.sum() <= 0 {
		return nil
	}

	targetProducts := target.ProductSet()
	var out []model.SimilarityResult
	for _, other := range idx.Clients() {
		if other.ID == target.ID {
			continue
		}

		shared, only := compareProducts(targetProducts, other.ProductsUsed)
		sameSegment := strings.EqualFold(target.Segment, other.Segment)
		if len(shared) == 0 && !sameSegment {
			continue
		}

		score := w.Products*Jaccard(targetProducts, other.ProductsUsed) +
			w.Segment*boolScore(sameSegment) +
			w.Geography*geographyScore(target.Geography, other.Geography)

		out = append(out, model.SimilarityResult{
			ClientID:                 other.ID,
			ClientName:               other.Name,
			Segment:                  other.Segment,
			SimilarityScore:          round4(score / w.sum()),
			SharedProducts:           shared,
			ProductsOnlyInComparator: only,
		})
	}

	sort.SliceStable(out, func(i, j int) bool {
		if out[i].SimilarityScore != out[j].SimilarityScore {
			return out[i].SimilarityScore > out[j].SimilarityScore
		}
		return out[i].ClientName < out[j].ClientName
	})
	if len(out) > limit {
		out = out[:limit]
	}
	return out
}

// Jaccard is |a ∩ b| / |a ∪ b| over product names, or 0 when both are empty.
func Jaccard(a map[string]struct{}, b []string) float64 {
	if len(a) == 0 && len(b) == 0 {
		return 0
	}
	intersection := 0
	seen := make(map[string]bool, len(b))
	for _, p := range b {
		if seen[p] {
			continue
		}
		seen[p] = true
		if _, ok := a[p]; ok {
			intersection++
		}
	}
	union := len(a) + len(seen) - intersection
	return float64(intersection) / float64(union)
}

// compareProducts splits other's products into those shared with the target
// and those only the comparator uses, both sorted.
func compareProducts(target map[string]struct{}, other []string) (shared, only []string) {
	shared, only = []string{}, []string{}
	for _, p := range other {
		if _, ok := target[p]; ok {
			shared = append(shared, p)
		} else {
			only = append(only, p)
		}
	}
	sort.Strings(shared)
	sort.Strings(only)
	return shared, only
}

func geographyScore(a, b string) float64 {
	if unknownGeography(a) || unknownGeography(b) {
		return partialGeography
	}
	return boolScore(strings.EqualFold(strings.TrimSpace(a), strings.TrimSpace(b)))
}

func unknownGeography(g string) bool {
	g = strings.TrimSpace(g)
	return g == "" || strings.EqualFold(g, model.SegmentUnknown)
}

func boolScore(b bool) float64 {
	if b {
		return 1
	}
	return 0
}

func round4(f float64) float64 {
	return math.Round(f*10000) / 10000
}
