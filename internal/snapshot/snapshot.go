// Package snapshot assembles the raw client records and product catalog the
// engine builds an index from. Sources are pluggable: files, Postgres and
// Notion provide data, Salesforce enriches it, and the override store has
// the last word.
package snapshot

import (
	"context"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/account-intel/internal/index"
	"github.com/sells-group/account-intel/internal/model"
)

// Data is one loaded snapshot, not yet indexed.
type Data struct {
	Clients  []index.RawClient
	Catalog  []model.ProductCatalogEntry
	LoadedAt time.Time
}

// Loader produces a complete snapshot.
type Loader interface {
	Load(ctx context.Context) (*Data, error)
}

// ClientSource yields raw client records.
type ClientSource interface {
	LoadClients(ctx context.Context) ([]index.RawClient, error)
}

// CatalogSource yields the product catalog.
type CatalogSource interface {
	LoadCatalog(ctx context.Context) ([]model.ProductCatalogEntry, error)
}

// Enricher fills gaps in raw records from a secondary system. Enrichment is
// best-effort; a failing enricher is logged and skipped.
type Enricher interface {
	Name() string
	Enrich(ctx context.Context, clients []index.RawClient) error
}

// OverrideLister lists user-entered overrides. store.Store satisfies it.
type OverrideLister interface {
	ListOverrides(ctx context.Context) ([]model.Override, error)
}

// Pipeline is the standard Loader: clients and catalog load in parallel,
// then enrichers run in order, then overrides are applied.
type Pipeline struct {
	Clients   ClientSource
	Catalog   CatalogSource  // optional
	Enrichers []Enricher     // optional
	Overrides OverrideLister // optional

	now func() time.Time
}

// Load implements Loader.
func (p *Pipeline) Load(ctx context.Context) (*Data, error) {
	if p.Clients == nil {
		return nil, eris.New("snapshot: no client source configured")
	}
	now := p.now
	if now == nil {
		now = time.Now
	}

	data := &Data{}
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		clients, err := p.Clients.LoadClients(gctx)
		if err != nil {
			return eris.Wrap(err, "snapshot: load clients")
		}
		data.Clients = clients
		return nil
	})
	if p.Catalog != nil {
		g.Go(func() error {
			catalog, err := p.Catalog.LoadCatalog(gctx)
			if err != nil {
				return eris.Wrap(err, "snapshot: load catalog")
			}
			data.Catalog = catalog
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	for _, e := range p.Enrichers {
		if err := e.Enrich(ctx, data.Clients); err != nil {
			zap.L().Warn("snapshot: enrichment failed, continuing without it",
				zap.String("enricher", e.Name()),
				zap.Error(err),
			)
		}
	}

	if p.Overrides != nil {
		overrides, err := p.Overrides.ListOverrides(ctx)
		if err != nil {
			return nil, eris.Wrap(err, "snapshot: list overrides")
		}
		applied := ApplyOverrides(data.Clients, overrides)
		zap.L().Debug("snapshot: overrides applied",
			zap.Int("overrides", len(overrides)),
			zap.Int("applied", applied),
		)
	}

	data.LoadedAt = now()
	zap.L().Info("snapshot: loaded",
		zap.Int("clients", len(data.Clients)),
		zap.Int("catalog", len(data.Catalog)),
	)
	return data, nil
}

// StaticCatalog is a CatalogSource over an in-memory list.
type StaticCatalog []model.ProductCatalogEntry

// LoadCatalog implements CatalogSource.
func (s StaticCatalog) LoadCatalog(context.Context) ([]model.ProductCatalogEntry, error) {
	return append([]model.ProductCatalogEntry(nil), s...), nil
}
