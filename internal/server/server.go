// Package server is the HTTP request layer over the engine. It owns
// response caching, rate limiting and the JSON wire format.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/sells-group/account-intel/internal/cache"
	"github.com/sells-group/account-intel/internal/config"
	"github.com/sells-group/account-intel/internal/engine"
	"github.com/sells-group/account-intel/internal/intent"
	"github.com/sells-group/account-intel/internal/model"
	"github.com/sells-group/account-intel/internal/monitoring"
	"github.com/sells-group/account-intel/internal/prospect"
	"github.com/sells-group/account-intel/internal/resolve"
)

// Engine is the subset of *engine.Engine the server calls.
type Engine interface {
	Current() *engine.Snapshot
	Stats() engine.Stats
	Refresh(ctx context.Context) (*engine.Snapshot, error)
	Resolve(name string) (resolve.Match, bool, error)
	Suggest(name string, n int) ([]resolve.Match, error)
	ComputeAdoption() (map[string]*model.SegmentAdoptionProfile, error)
	GetRecommendations(query string, threshold float64) (engine.Recommendations, error)
	GetSimilar(name string, limit int) (engine.Similar, error)
	ProfileProspect(req prospect.Request) (model.ProspectProfile, error)
}

var _ Engine = (*engine.Engine)(nil)

const (
	defaultSimilarLimit = 5
	suggestionCount     = 3
	maxBodyBytes        = 1 << 20
)

// Option configures a Server.
type Option func(*Server)

// WithMetrics records request and cache metrics and serves them on /metrics.
func WithMetrics(m *monitoring.Metrics) Option {
	return func(s *Server) { s.metrics = m }
}

// WithParser enables POST /v1/query.
func WithParser(p intent.Parser) Option {
	return func(s *Server) { s.parser = p }
}

// Server serves the engine operations over HTTP.
type Server struct {
	engine  Engine
	cfg     config.ServerConfig
	parser  intent.Parser
	metrics *monitoring.Metrics
	cache   *cache.Store[[]byte]
	limiter *rate.Limiter
}

// New creates a Server. A zero rate limit disables limiting and a zero
// cache TTL disables response caching.
func New(eng Engine, cfg config.ServerConfig, opts ...Option) *Server {
	s := &Server{engine: eng, cfg: cfg}
	for _, opt := range opts {
		opt(s)
	}
	if cfg.CacheTTLSecs > 0 {
		s.cache = cache.NewStore[[]byte](time.Duration(cfg.CacheTTLSecs) * time.Second)
	}
	if cfg.RateLimit > 0 {
		burst := cfg.RateBurst
		if burst <= 0 {
			burst = 1
		}
		s.limiter = rate.NewLimiter(rate.Limit(cfg.RateLimit), burst)
	}
	return s
}

// Handler builds the route tree.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()

	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(chimw.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: s.cfg.CORSOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		MaxAge:         300,
	}))
	r.Use(s.observe)
	if s.cfg.RequestTimeout > 0 {
		r.Use(chimw.Timeout(time.Duration(s.cfg.RequestTimeout) * time.Second))
	}

	r.Get("/health", s.handleHealth)
	if s.metrics != nil {
		r.Handle("/metrics", s.metrics.Handler())
	}

	r.Route("/v1", func(api chi.Router) {
		api.Use(s.rateLimit)

		api.Get("/resolve", s.handleResolve)
		api.Get("/adoption", s.handleAdoption)
		api.Get("/recommendations", s.handleRecommendations)
		api.Get("/similar", s.handleSimilar)
		api.Post("/prospect", s.handleProspect)
		api.Post("/query", s.handleQuery)
		api.Post("/refresh", s.handleRefresh)
	})

	return r
}

// observe records per-route status and latency.
func (s *Server) observe(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		route := r.URL.Path
		if rc := chi.RouteContext(r.Context()); rc != nil && rc.RoutePattern() != "" {
			route = rc.RoutePattern()
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		s.metrics.ObserveRequest(route, status, time.Since(start))
		zap.L().Debug("server: request",
			zap.String("method", r.Method),
			zap.String("route", route),
			zap.Int("status", status),
			zap.Duration("took", time.Since(start)),
			zap.String("request_id", chimw.GetReqID(r.Context())),
		)
	})
}

func (s *Server) rateLimit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.limiter != nil && !s.limiter.Allow() {
			w.Header().Set("Retry-After", "1")
			writeError(w, http.StatusTooManyRequests, "rate limit exceeded")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// serveCached answers a GET from the response cache of the active snapshot,
// computing and storing the body on a miss.
func (s *Server) serveCached(w http.ResponseWriter, r *http.Request, compute func() (any, error)) {
	snap := s.engine.Current()
	if snap == nil {
		writeError(w, http.StatusServiceUnavailable, "snapshot unavailable")
		return
	}

	render := func() ([]byte, error) {
		v, err := compute()
		if err != nil {
			return nil, err
		}
		return json.Marshal(v)
	}

	if s.cache == nil {
		body, err := render()
		s.writeBody(w, body, err, "")
		return
	}

	key := r.URL.Path + "?" + r.URL.Query().Encode()
	body, status, err := s.cache.Fetch(key, snap.BuiltAt(), render)
	s.metrics.ObserveCache(status == cache.Hit)
	if status == cache.Stale {
		zap.L().Warn("server: serving stale response",
			zap.String("key", key),
			zap.Error(err),
		)
		err = nil
	}
	s.writeBody(w, body, err, status.String())
}

func (s *Server) writeBody(w http.ResponseWriter, body []byte, err error, cacheStatus string) {
	if err != nil {
		writeEngineError(w, err)
		return
	}
	if cacheStatus != "" {
		w.Header().Set("X-Cache", cacheStatus)
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(body)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		zap.L().Warn("server: encode response", zap.Error(err))
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func writeEngineError(w http.ResponseWriter, err error) {
	if errors.Is(err, engine.ErrSnapshotUnavailable) {
		writeError(w, http.StatusServiceUnavailable, "snapshot unavailable")
		return
	}
	zap.L().Error("server: request failed", zap.Error(err))
	writeError(w, http.StatusInternalServerError, "internal error")
}

// floatParam parses an optional float query parameter, returning def when
// it is absent.
func floatParam(r *http.Request, name string, def float64) (float64, error) {
	v := r.URL.Query().Get(name)
	if v == "" {
		return def, nil
	}
	return strconv.ParseFloat(v, 64)
}

func intParam(r *http.Request, name string, def int) (int, error) {
	v := r.URL.Query().Get(name)
	if v == "" {
		return def, nil
	}
	return strconv.Atoi(v)
}
