package engine

import (
	"math"

	"go.uber.org/zap"

	"github.com/sells-group/account-intel/internal/model"
	"github.com/sells-group/account-intel/internal/prospect"
	"github.com/sells-group/account-intel/internal/resolve"
	"github.com/sells-group/account-intel/internal/scorer"
	"github.com/sells-group/account-intel/internal/similarity"
)

// DefaultThreshold asks GetRecommendations to use the configured adoption
// threshold. Any value outside [0,1] does the same.
const DefaultThreshold = -1.0

// Resolve maps a free-text name onto a client. ok is false when nothing
// clears the acceptance threshold.
func (e *Engine) Resolve(name string) (resolve.Match, bool, error) {
	s, err := e.snapshot()
	if err != nil {
		return resolve.Match{}, false, err
	}
	m, ok := e.resolver.Resolve(name, s.Names)
	return m, ok, nil
}

// Suggest returns up to n near matches for name, best first.
func (e *Engine) Suggest(name string, n int) ([]resolve.Match, error) {
	s, err := e.snapshot()
	if err != nil {
		return nil, err
	}
	return e.resolver.Suggest(name, s.Names, n), nil
}

// ComputeAdoption returns the per-segment adoption profiles of the active
// snapshot. They are computed once per refresh, so repeated calls return
// identical results. Callers must not modify the returned map.
func (e *Engine) ComputeAdoption() (map[string]*model.SegmentAdoptionProfile, error) {
	s, err := e.snapshot()
	if err != nil {
		return nil, err
	}
	return s.Profiles, nil
}

// Recommendations is the result of GetRecommendations.
type Recommendations struct {
	Query      string                          `json:"query"`
	Match      *resolve.Match                  `json:"match,omitempty"`
	Segment    string                          `json:"segment,omitempty"`
	Threshold  float64                         `json:"threshold"`
	Candidates []model.RecommendationCandidate `json:"candidates"`
	Summary    scorer.Summary                  `json:"summary"`
}

// GetRecommendations scores cross-sell candidates for query. A query that
// resolves to a client is scored against the client's segment; otherwise a
// query naming a profiled segment gets that segment's default
// recommendations. Anything else yields an empty candidate list.
func (e *Engine) GetRecommendations(query string, threshold float64) (Recommendations, error) {
	s, err := e.snapshot()
	if err != nil {
		return Recommendations{}, err
	}

	cfg := e.cfg
	if threshold >= 0 && threshold <= 1 && !math.IsNaN(threshold) {
		cfg.AdoptionThreshold = threshold
	}
	out := Recommendations{Query: query, Threshold: cfg.AdoptionThreshold}

	if m, ok := e.resolver.Resolve(query, s.Names); ok {
		out.Match = &m
		out.Segment = m.Client.Segment
		out.Candidates = scorer.ScoreOpportunities(m.Client, s.Profiles[m.Client.Segment], cfg)
	} else if seg, ok := model.FindSegment(s.Profiles, query); ok {
		out.Segment = seg
		out.Candidates = scorer.ScoreDefaults(s.Profiles[seg], cfg)
	} else {
		zap.L().Debug("engine: recommendation query matched nothing", zap.String("query", query))
	}

	if out.Candidates == nil {
		out.Candidates = []model.RecommendationCandidate{}
	}
	out.Summary = scorer.Summarize(out.Candidates)
	return out, nil
}

// Similar is the result of GetSimilar.
type Similar struct {
	Query   string                   `json:"query"`
	Match   *resolve.Match           `json:"match,omitempty"`
	Results []model.SimilarityResult `json:"results"`
}

// GetSimilar finds the clients most like the one name resolves to. An
// unresolved name or a non-positive limit yields no results.
func (e *Engine) GetSimilar(name string, limit int) (Similar, error) {
	s, err := e.snapshot()
	if err != nil {
		return Similar{}, err
	}

	out := Similar{Query: name, Results: []model.SimilarityResult{}}
	m, ok := e.resolver.Resolve(name, s.Names)
	if !ok {
		return out, nil
	}
	out.Match = &m
	if res := similarity.FindSimilar(m.Client, s.Index, limit, e.weights); res != nil {
		out.Results = res
	}
	return out, nil
}

// ProfileProspect builds an ideal customer profile and default
// recommendations for a company with no client record.
func (e *Engine) ProfileProspect(req prospect.Request) (model.ProspectProfile, error) {
	s, err := e.snapshot()
	if err != nil {
		return model.ProspectProfile{}, err
	}
	return e.profiler.Profile(req, s.Profiles), nil
}
