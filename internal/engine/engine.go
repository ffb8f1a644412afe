// Package engine holds the current account snapshot and exposes the scoring
// operations over it. A snapshot is rebuilt in full on refresh and swapped in
// atomically; readers always see one consistent snapshot.
package engine

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/sells-group/account-intel/internal/adoption"
	"github.com/sells-group/account-intel/internal/config"
	"github.com/sells-group/account-intel/internal/index"
	"github.com/sells-group/account-intel/internal/model"
	"github.com/sells-group/account-intel/internal/monitoring"
	"github.com/sells-group/account-intel/internal/prospect"
	"github.com/sells-group/account-intel/internal/resilience"
	"github.com/sells-group/account-intel/internal/resolve"
	"github.com/sells-group/account-intel/internal/scorer"
	"github.com/sells-group/account-intel/internal/similarity"
	"github.com/sells-group/account-intel/internal/snapshot"
)

// ErrSnapshotUnavailable is returned by every operation until the first
// snapshot has loaded.
var ErrSnapshotUnavailable = eris.New("engine: snapshot unavailable")

// Snapshot is one immutable generation of indexed data.
type Snapshot struct {
	Index    *index.Index
	Catalog  []model.ProductCatalogEntry
	Profiles map[string]*model.SegmentAdoptionProfile
	Names    *resolve.Table
	LoadedAt time.Time
}

// BuiltAt is the index build time, which identifies the generation.
func (s *Snapshot) BuiltAt() time.Time { return s.Index.BuiltAt() }

// Option configures an Engine.
type Option func(*Engine)

// WithScoring replaces the scoring configuration.
func WithScoring(cfg config.ScoringConfig) Option {
	return func(e *Engine) { e.cfg = cfg }
}

// WithRules replaces the prospect keyword rules.
func WithRules(rules []prospect.Rule) Option {
	return func(e *Engine) { e.rules = rules }
}

// WithRetry sets the retry policy for snapshot loads.
func WithRetry(p resilience.Policy) Option {
	return func(e *Engine) { e.retry = p }
}

// WithMetrics records refreshes to m.
func WithMetrics(m *monitoring.Metrics) Option {
	return func(e *Engine) { e.metrics = m }
}

// WithClock overrides the clock used to stamp snapshots.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

// Engine is safe for concurrent use.
type Engine struct {
	loader  snapshot.Loader
	cfg     config.ScoringConfig
	rules   []prospect.Rule
	retry   resilience.Policy
	metrics *monitoring.Metrics
	now     func() time.Time

	resolver *resolve.Resolver
	profiler *prospect.Profiler
	weights  similarity.Weights

	current atomic.Pointer[Snapshot]
	group   singleflight.Group
	mu      sync.Mutex // serializes rebuild-and-swap
}

// New creates an Engine that loads snapshots from loader. It holds no
// snapshot until Refresh succeeds.
func New(loader snapshot.Loader, opts ...Option) (*Engine, error) {
	if loader == nil {
		return nil, eris.New("engine: loader is required")
	}
	e := &Engine{
		loader: loader,
		cfg:    scorer.DefaultConfig(),
		retry:  resilience.DefaultPolicy(),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	if err := scorer.ValidateConfig(e.cfg); err != nil {
		return nil, eris.Wrap(err, "engine: invalid scoring config")
	}

	var matcher resolve.Matcher = resolve.Levenshtein{}
	if e.cfg.ResolverStrategy == "token_set" {
		matcher = resolve.TokenSet{}
	}
	e.resolver = resolve.New(resolve.WithMatcher(matcher), resolve.WithThreshold(e.cfg.ResolverThreshold))
	e.profiler = prospect.New(e.rules, e.cfg)
	e.weights = similarity.WeightsFrom(e.cfg)
	return e, nil
}

// Current returns the active snapshot, or nil before the first load.
func (e *Engine) Current() *Snapshot {
	return e.current.Load()
}

func (e *Engine) snapshot() (*Snapshot, error) {
	s := e.current.Load()
	if s == nil {
		return nil, ErrSnapshotUnavailable
	}
	return s, nil
}

// Refresh loads and indexes a new snapshot and swaps it in. Concurrent calls
// share one rebuild. The shared rebuild is detached from any single caller's
// cancellation; a cancelled caller stops waiting but the rebuild completes
// for the others. On failure the previous snapshot stays active.
func (e *Engine) Refresh(ctx context.Context) (*Snapshot, error) {
	work := context.WithoutCancel(ctx)
	ch := e.group.DoChan("refresh", func() (any, error) {
		return e.rebuild(work)
	})
	select {
	case <-ctx.Done():
		return nil, eris.Wrap(ctx.Err(), "engine: refresh")
	case res := <-ch:
		if res.Shared {
			e.metrics.ObserveCoalesced()
		}
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(*Snapshot), nil
	}
}

func (e *Engine) rebuild(ctx context.Context) (*Snapshot, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	start := time.Now()
	data, err := resilience.DoVal(ctx, e.retry, "snapshot load", e.loader.Load)
	if err != nil {
		e.metrics.ObserveRefresh(time.Since(start), err, 0, 0, time.Time{})
		zap.L().Warn("engine: refresh failed",
			zap.Bool("serving_previous", e.current.Load() != nil),
			zap.Error(err),
		)
		return nil, eris.Wrap(err, "engine: refresh")
	}

	snap := e.build(data)
	e.current.Store(snap)

	e.metrics.ObserveRefresh(time.Since(start), nil, snap.Index.Len(), snap.Index.Skipped(), snap.BuiltAt())
	zap.L().Info("engine: snapshot swapped",
		zap.Int("clients", snap.Index.Len()),
		zap.Int("skipped", snap.Index.Skipped()),
		zap.Int("segments", len(snap.Profiles)),
		zap.Duration("took", time.Since(start)),
	)
	return snap, nil
}

func (e *Engine) build(data *snapshot.Data) *Snapshot {
	idx := index.Build(data.Clients, index.WithClock(e.now))
	return &Snapshot{
		Index:    idx,
		Catalog:  data.Catalog,
		Profiles: adoption.Compute(idx, data.Catalog),
		Names:    e.resolver.NewTable(idx),
		LoadedAt: data.LoadedAt,
	}
}

// Run refreshes every interval until ctx is done. Failures are logged and
// the previous snapshot keeps serving.
func (e *Engine) Run(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := e.Refresh(ctx); err != nil && ctx.Err() == nil {
				zap.L().Debug("engine: scheduled refresh failed", zap.Error(err))
			}
		}
	}
}

// Stats describes the active snapshot.
type Stats struct {
	Loaded   bool      `json:"loaded"`
	BuiltAt  time.Time `json:"built_at,omitempty"`
	LoadedAt time.Time `json:"loaded_at,omitempty"`
	Clients  int       `json:"clients"`
	Skipped  int       `json:"skipped"`
	Segments int       `json:"segments"`
	Products int       `json:"products"`
	Catalog  int       `json:"catalog"`
}

// Stats never fails; before the first load it reports Loaded=false.
func (e *Engine) Stats() Stats {
	s := e.current.Load()
	if s == nil {
		return Stats{}
	}
	return Stats{
		Loaded:   true,
		BuiltAt:  s.BuiltAt(),
		LoadedAt: s.LoadedAt,
		Clients:  s.Index.Len(),
		Skipped:  s.Index.Skipped(),
		Segments: len(s.Profiles),
		Products: len(s.Index.Products()),
		Catalog:  len(s.Catalog),
	}
}
