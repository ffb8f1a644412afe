// Package prospect profiles companies with no client record from segment
// adoption statistics alone.
package prospect

import (
	"strings"

	"go.uber.org/zap"

	"github.com/sells-group/account-intel/internal/config"
	"github.com/sells-group/account-intel/internal/model"
	"github.com/sells-group/account-intel/internal/scorer"
)

// How a prospect's segment was chosen.
const (
	MatchedBySegment = "segment"
	MatchedByDefault = "default"
	keywordPrefix    = "keyword:"
)

// Request describes a prospect. SegmentOrDescription is either a segment
// name or free text describing the business.
type Request struct {
	SegmentOrDescription string `json:"segment_or_description"`
	Size                 string `json:"size,omitempty"`
	Geography            string `json:"geography,omitempty"`
}

// Profiler resolves prospects to a segment and scores that segment's
// products. It is safe for concurrent use.
type Profiler struct {
	rules          []Rule
	defaultSegment string
	cfg            config.ScoringConfig
}

// New creates a Profiler. A nil rule list uses DefaultRules; an empty
// cfg.DefaultSegment falls back to scorer.DefaultConfig's.
func New(rules []Rule, cfg config.ScoringConfig) *Profiler {
	if rules == nil {
		rules = DefaultRules()
	}
	def := strings.TrimSpace(cfg.DefaultSegment)
	if def == "" {
		def = scorer.DefaultConfig().DefaultSegment
	}
	return &Profiler{rules: rules, defaultSegment: def, cfg: cfg}
}

// Profile picks the prospect's segment and returns its ideal customer
// profile with default recommendations. The segment is chosen by, in order:
// an exact (case-insensitive) segment name, the first keyword rule whose
// keywords appear in the text, then the default segment. Profile never
// fails; a segment missing from profiles yields an empty recommendation list.
func (p *Profiler) Profile(req Request, profiles map[string]*model.SegmentAdoptionProfile) model.ProspectProfile {
	segment, matchedBy := p.ResolveSegment(req.SegmentOrDescription, profiles)
	profile := profiles[segment]

	out := model.ProspectProfile{
		Segment:         segment,
		MatchedBy:       matchedBy,
		ICP:             p.idealCustomer(segment, profile, req),
		Recommendations: scorer.ScoreDefaults(profile, p.cfg),
	}
	if out.Recommendations == nil {
		out.Recommendations = []model.RecommendationCandidate{}
	}

	zap.L().Debug("prospect: profiled",
		zap.String("segment", segment),
		zap.String("matched_by", matchedBy),
		zap.Int("recommendations", len(out.Recommendations)),
	)
	return out
}

// ResolveSegment returns the adoption-map segment for input and how it was
// chosen.
func (p *Profiler) ResolveSegment(input string, profiles map[string]*model.SegmentAdoptionProfile) (string, string) {
	input = strings.TrimSpace(input)

	if seg, ok := model.FindSegment(profiles, input); ok {
		return seg, MatchedBySegment
	}
	// A rule's segment name or alias given verbatim counts as a segment guess.
	for _, r := range p.rules {
		if containsFold(r.Names(), input) {
			if seg, ok := p.ruleSegment(r, profiles); ok {
				return seg, MatchedBySegment
			}
		}
	}

	for _, r := range p.rules {
		kw, ok := r.Match(input)
		if !ok {
			continue
		}
		if seg, ok := p.ruleSegment(r, profiles); ok {
			return seg, keywordPrefix + kw
		}
		zap.L().Debug("prospect: keyword segment not profiled, using default",
			zap.String("rule", r.Segment),
			zap.String("keyword", kw),
		)
		break
	}

	if seg, ok := model.FindSegment(profiles, p.defaultSegment); ok {
		return seg, MatchedByDefault
	}
	return p.defaultSegment, MatchedByDefault
}

func (p *Profiler) ruleSegment(r Rule, profiles map[string]*model.SegmentAdoptionProfile) (string, bool) {
	for _, name := range r.Names() {
		if seg, ok := model.FindSegment(profiles, name); ok {
			return seg, true
		}
	}
	return "", false
}

// idealCustomer summarizes the segment from its profile only; it never reads
// client records.
func (p *Profiler) idealCustomer(segment string, profile *model.SegmentAdoptionProfile, req Request) model.IdealCustomerProfile {
	icp := model.IdealCustomerProfile{
		Segment:         segment,
		TypicalProducts: []string{},
		Size:            req.Size,
		Geography:       req.Geography,
	}
	if profile == nil {
		return icp
	}

	icp.ClientCount = profile.ClientCount
	icp.MeanMonthlyRevenue = profile.MeanMonthlyRevenue
	icp.MedianMonthlyRevenue = profile.MedianMonthlyRevenue
	icp.ReferenceClients = profile.TopClients
	for _, pa := range profile.Ranked() {
		if pa.AdoptionRate >= p.cfg.AdoptionThreshold {
			icp.TypicalProducts = append(icp.TypicalProducts, pa.Product)
		}
	}
	return icp
}

func containsFold(list []string, s string) bool {
	for _, v := range list {
		if strings.EqualFold(v, s) {
			return true
		}
	}
	return false
}
