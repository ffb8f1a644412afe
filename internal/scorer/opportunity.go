package scorer

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/sells-group/account-intel/internal/config"
	"github.com/sells-group/account-intel/internal/model"
)

// Bucket maps an adoption rate onto a priority using the configured cutoffs.
func Bucket(rate float64, cfg config.ScoringConfig) model.Priority {
	switch {
	case rate >= cfg.HighCutoff:
		return model.PriorityHigh
	case rate >= cfg.MediumCutoff:
		return model.PriorityMedium
	default:
		return model.PriorityLow
	}
}

// ScoreOpportunities ranks the products in the client's segment profile that
// the client does not use and whose adoption rate is at least
// cfg.AdoptionThreshold. A threshold of 0 returns every product the client
// lacks. A nil profile yields no candidates.
func ScoreOpportunities(client *model.Client, profile *model.SegmentAdoptionProfile, cfg config.ScoringConfig) []model.RecommendationCandidate {
	if client == nil || profile == nil {
		return nil
	}
	out := score(profile, cfg, client.Uses, client.Name)

	zap.L().Debug("scorer: scored opportunities",
		zap.String("client_id", client.ID),
		zap.String("segment", profile.Segment),
		zap.Int("candidates", len(out)),
	)
	return out
}

// ScoreDefaults ranks a segment's products for a company with no usage
// history. It applies the same threshold, buckets and ordering as
// ScoreOpportunities and excludes nothing.
func ScoreDefaults(profile *model.SegmentAdoptionProfile, cfg config.ScoringConfig) []model.RecommendationCandidate {
	if profile == nil {
		return nil
	}
	return score(profile, cfg, func(string) bool { return false }, "")
}

func score(profile *model.SegmentAdoptionProfile, cfg config.ScoringConfig, uses func(string) bool, self string) []model.RecommendationCandidate {
	var out []model.RecommendationCandidate
	for _, pa := range profile.Ranked() {
		if pa.AdoptionRate < cfg.AdoptionThreshold || uses(pa.Product) {
			continue
		}
		out = append(out, model.RecommendationCandidate{
			Product:                 pa.Product,
			Priority:                Bucket(pa.AdoptionRate, cfg),
			AdoptionRate:            pa.AdoptionRate,
			Reasoning:               reasoning(pa, profile),
			EstimatedMonthlyRevenue: math.Round(pa.AvgRevenuePerAdopter*100) / 100,
			SupportingClients:       supporting(pa.TopAdopters, self, cfg.MaxSupporting),
		})
	}
	sortCandidates(out)
	return out
}

// sortCandidates orders by priority then adoption rate, both descending.
// Exact ties keep their input order.
func sortCandidates(cs []model.RecommendationCandidate) {
	sort.SliceStable(cs, func(i, j int) bool {
		if cs[i].Priority != cs[j].Priority {
			return cs[i].Priority > cs[j].Priority
		}
		return cs[i].AdoptionRate > cs[j].AdoptionRate
	})
}

func reasoning(pa model.ProductAdoption, profile *model.SegmentAdoptionProfile) string {
	return fmt.Sprintf("%.0f%% of %s clients use %s (%d of %d)",
		pa.AdoptionRate*100, profile.Segment, pa.Product, pa.AdopterCount, profile.ClientCount)
}

func supporting(adopters []string, self string, limit int) []string {
	var out []string
	for _, name := range adopters {
		if len(out) >= limit {
			break
		}
		if self != "" && strings.EqualFold(name, self) {
			continue
		}
		out = append(out, name)
	}
	return out
}

// Summary totals a candidate list.
type Summary struct {
	Candidates              int     `json:"candidates"`
	High                    int     `json:"high"`
	Medium                  int     `json:"medium"`
	Low                     int     `json:"low"`
	EstimatedMonthlyRevenue float64 `json:"estimated_monthly_revenue"`
}

// Summarize returns the bucket counts and the total estimated monthly revenue
// opportunity across cs.
func Summarize(cs []model.RecommendationCandidate) Summary {
	s := Summary{Candidates: len(cs)}
	for _, c := range cs {
		switch c.Priority {
		case model.PriorityHigh:
			s.High++
		case model.PriorityMedium:
			s.Medium++
		default:
			s.Low++
		}
		s.EstimatedMonthlyRevenue += c.EstimatedMonthlyRevenue
	}
	s.EstimatedMonthlyRevenue = math.Round(s.EstimatedMonthlyRevenue*100) / 100
	return s
}
