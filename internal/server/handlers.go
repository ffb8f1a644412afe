package server

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/sells-group/account-intel/internal/engine"
	"github.com/sells-group/account-intel/internal/intent"
	"github.com/sells-group/account-intel/internal/model"
	"github.com/sells-group/account-intel/internal/prospect"
	"github.com/sells-group/account-intel/internal/resolve"
)

type healthResponse struct {
	Status   string       `json:"status"`
	Snapshot engine.Stats `json:"snapshot"`
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, healthResponse{Status: "ok", Snapshot: s.engine.Stats()})
}

type resolveResponse struct {
	Query       string          `json:"query"`
	Found       bool            `json:"found"`
	Match       *resolve.Match  `json:"match,omitempty"`
	Suggestions []resolve.Match `json:"suggestions,omitempty"`
}

func (s *Server) handleResolve(w http.ResponseWriter, r *http.Request) {
	name := strings.TrimSpace(r.URL.Query().Get("name"))
	if name == "" {
		writeError(w, http.StatusBadRequest, "name is required")
		return
	}
	s.serveCached(w, r, func() (any, error) {
		return s.resolve(name)
	})
}

func (s *Server) resolve(name string) (resolveResponse, error) {
	m, ok, err := s.engine.Resolve(name)
	if err != nil {
		return resolveResponse{}, err
	}
	if ok {
		return resolveResponse{Query: name, Found: true, Match: &m}, nil
	}
	sugg, err := s.engine.Suggest(name, suggestionCount)
	if err != nil {
		return resolveResponse{}, err
	}
	return resolveResponse{Query: name, Suggestions: sugg}, nil
}

func (s *Server) handleAdoption(w http.ResponseWriter, r *http.Request) {
	segment := strings.TrimSpace(r.URL.Query().Get("segment"))
	if segment != "" && s.engine.Current() != nil {
		profiles, err := s.engine.ComputeAdoption()
		if err != nil {
			writeEngineError(w, err)
			return
		}
		if _, ok := model.FindSegment(profiles, segment); !ok {
			writeError(w, http.StatusNotFound, "segment not found")
			return
		}
	}
	s.serveCached(w, r, func() (any, error) {
		profiles, err := s.engine.ComputeAdoption()
		if err != nil || segment == "" {
			return profiles, err
		}
		key, _ := model.FindSegment(profiles, segment)
		return profiles[key], nil
	})
}

func (s *Server) handleRecommendations(w http.ResponseWriter, r *http.Request) {
	q := strings.TrimSpace(r.URL.Query().Get("q"))
	if q == "" {
		writeError(w, http.StatusBadRequest, "q is required")
		return
	}
	threshold, err := floatParam(r, "threshold", engine.DefaultThreshold)
	if err != nil {
		writeError(w, http.StatusBadRequest, "threshold must be a number")
		return
	}
	s.serveCached(w, r, func() (any, error) {
		return s.engine.GetRecommendations(q, threshold)
	})
}

func (s *Server) handleSimilar(w http.ResponseWriter, r *http.Request) {
	name := strings.TrimSpace(r.URL.Query().Get("name"))
	if name == "" {
		writeError(w, http.StatusBadRequest, "name is required")
		return
	}
	limit, err := intParam(r, "limit", defaultSimilarLimit)
	if err != nil {
		writeError(w, http.StatusBadRequest, "limit must be an integer")
		return
	}
	s.serveCached(w, r, func() (any, error) {
		return s.engine.GetSimilar(name, limit)
	})
}

func (s *Server) handleProspect(w http.ResponseWriter, r *http.Request) {
	var req prospect.Request
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	p, err := s.engine.ProfileProspect(req)
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

type queryRequest struct {
	Text string `json:"text"`
}

type queryResponse struct {
	Parsed intent.Query `json:"parsed"`
	Result any          `json:"result,omitempty"`
}

func (s *Server) handleQuery(w http.ResponseWriter, r *http.Request) {
	if s.parser == nil {
		writeError(w, http.StatusNotImplemented, "query parsing is not configured")
		return
	}
	var req queryRequest
	if err := decodeBody(r, &req); err != nil || strings.TrimSpace(req.Text) == "" {
		writeError(w, http.StatusBadRequest, "text is required")
		return
	}
	if s.engine.Current() == nil {
		writeError(w, http.StatusServiceUnavailable, "snapshot unavailable")
		return
	}

	q, err := s.parser.Parse(r.Context(), req.Text)
	if err != nil {
		zap.L().Warn("server: intent parse failed", zap.Error(err))
		writeError(w, http.StatusBadGateway, "could not parse query")
		return
	}

	result, err := s.dispatch(q)
	if err != nil {
		if errors.Is(err, errUnroutable) {
			writeJSON(w, http.StatusUnprocessableEntity, queryResponse{Parsed: q})
			return
		}
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, queryResponse{Parsed: q, Result: result})
}

var errUnroutable = errors.New("server: query has no usable intent")

// dispatch runs the engine operation a parsed query asks for.
func (s *Server) dispatch(q intent.Query) (any, error) {
	switch q.Intent {
	case intent.Recommend:
		if q.Company == "" {
			return nil, errUnroutable
		}
		return s.engine.GetRecommendations(q.Company, engine.DefaultThreshold)
	case intent.Similar:
		if q.Company == "" {
			return nil, errUnroutable
		}
		return s.engine.GetSimilar(q.Company, defaultSimilarLimit)
	case intent.Resolve:
		if q.Company == "" {
			return nil, errUnroutable
		}
		return s.resolve(q.Company)
	case intent.Adoption:
		profiles, err := s.engine.ComputeAdoption()
		if err != nil || q.Segment == "" {
			return profiles, err
		}
		key, ok := model.FindSegment(profiles, q.Segment)
		if !ok {
			return profiles, nil
		}
		return profiles[key], nil
	case intent.Prospect:
		desc := q.Segment
		if desc == "" {
			desc = q.Company
		}
		return s.engine.ProfileProspect(prospect.Request{SegmentOrDescription: desc})
	default:
		return nil, errUnroutable
	}
}

type refreshResponse struct {
	Status   string       `json:"status"`
	Snapshot engine.Stats `json:"snapshot"`
}

func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	if _, err := s.engine.Refresh(r.Context()); err != nil {
		zap.L().Warn("server: manual refresh failed", zap.Error(err))
		writeJSON(w, http.StatusBadGateway, map[string]any{
			"error":            "refresh failed",
			"serving_previous": s.engine.Current() != nil,
		})
		return
	}
	writeJSON(w, http.StatusOK, refreshResponse{Status: "refreshed", Snapshot: s.engine.Stats()})
}

func decodeBody(r *http.Request, v any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	return dec.Decode(v)
}
