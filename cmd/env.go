package main

import (
	"context"
	"encoding/json"
	"io"
	"os"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/account-intel/internal/db"
	"github.com/sells-group/account-intel/internal/engine"
	"github.com/sells-group/account-intel/internal/fetcher"
	"github.com/sells-group/account-intel/internal/intent"
	"github.com/sells-group/account-intel/internal/monitoring"
	"github.com/sells-group/account-intel/internal/prospect"
	"github.com/sells-group/account-intel/internal/resilience"
	"github.com/sells-group/account-intel/internal/snapshot"
	"github.com/sells-group/account-intel/internal/store"
	anthropicpkg "github.com/sells-group/account-intel/pkg/anthropic"
	"github.com/sells-group/account-intel/pkg/notion"
	sfpkg "github.com/sells-group/account-intel/pkg/salesforce"
)

// appEnv bundles everything a command needs to run the engine.
type appEnv struct {
	Engine  *engine.Engine
	Store   store.Store
	Metrics *monitoring.Metrics

	closers []func()
}

// Close releases the store and database pool.
func (e *appEnv) Close() {
	for i := len(e.closers) - 1; i >= 0; i-- {
		e.closers[i]()
	}
}

func initStore(ctx context.Context) (store.Store, error) {
	path := cfg.Store.Path
	if path == "" {
		path = "overrides.db"
	}
	st, err := store.NewSQLite(path)
	if err != nil {
		return nil, err
	}
	if err := st.Migrate(ctx); err != nil {
		st.Close() //nolint:errcheck
		return nil, eris.Wrap(err, "migrate store")
	}
	return st, nil
}

func initSalesforce() (sfpkg.Client, error) {
	if cfg.Salesforce.ClientID == "" {
		return nil, eris.New("salesforce client ID is required (ACCOUNT_INTEL_SALESFORCE_CLIENT_ID)")
	}

	pemData, err := os.ReadFile(cfg.Salesforce.KeyPath)
	if err != nil {
		return nil, eris.Wrap(err, "read salesforce JWT private key")
	}

	return sfpkg.Connect(sfpkg.Credentials{
		LoginURL:    cfg.Salesforce.LoginURL,
		Username:    cfg.Salesforce.Username,
		ConsumerKey: cfg.Salesforce.ClientID,
		PrivateKey:  string(pemData),
	})
}

func initParser() intent.Parser {
	if cfg.Anthropic.Key == "" {
		return nil
	}
	return intent.NewLLMParser(anthropicpkg.NewClient(cfg.Anthropic.Key), cfg.Anthropic.Model)
}

// buildLoader assembles the snapshot pipeline from config. The returned
// closer releases the database pool when one was opened.
func buildLoader(ctx context.Context, overrides snapshot.OverrideLister) (*snapshot.Pipeline, func(), error) {
	p := &snapshot.Pipeline{Overrides: overrides}
	closer := func() {}

	switch cfg.Snapshot.Source {
	case "postgres":
		pool, err := db.Connect(ctx, cfg.Snapshot.DatabaseURL)
		if err != nil {
			return nil, nil, err
		}
		closer = pool.Close
		src := snapshot.PostgresSource{Pool: pool}
		p.Clients = src
		p.Catalog = src
	default:
		p.Clients = snapshot.FileClients{Path: cfg.Snapshot.ClientsPath}
		if path := cfg.Snapshot.CatalogPath; path != "" {
			if fetcher.IsURL(path) || fileExists(path) {
				p.Catalog = snapshot.FileCatalog{Path: path}
			} else {
				zap.L().Warn("catalog file not found, using observed products", zap.String("path", path))
			}
		}
	}

	if cfg.Notion.Token != "" && cfg.Notion.CatalogDB != "" {
		p.Catalog = snapshot.NotionCatalog{
			Client:     notion.NewClient(cfg.Notion.Token),
			DatabaseID: cfg.Notion.CatalogDB,
		}
	}

	if cfg.Salesforce.ClientID != "" {
		sf, err := initSalesforce()
		if err != nil {
			closer()
			return nil, nil, err
		}
		p.Enrichers = append(p.Enrichers, snapshot.SalesforceEnricher{Client: sf, AccountType: "Customer"})
	}

	return p, closer, nil
}

// initEnv opens the override store, builds the engine and loads the first
// snapshot. When requireSnapshot is false a failed first load is logged and
// the engine starts empty.
func initEnv(ctx context.Context, metrics *monitoring.Metrics, requireSnapshot bool) (*appEnv, error) {
	env := &appEnv{Metrics: metrics}

	st, err := initStore(ctx)
	if err != nil {
		return nil, err
	}
	env.Store = st
	env.closers = append(env.closers, func() { st.Close() }) //nolint:errcheck

	loader, closeLoader, err := buildLoader(ctx, st)
	if err != nil {
		env.Close()
		return nil, err
	}
	env.closers = append(env.closers, closeLoader)

	rules := prospect.DefaultRules()
	if cfg.Scoring.RulesFile != "" {
		rules, err = prospect.LoadRules(cfg.Scoring.RulesFile)
		if err != nil {
			env.Close()
			return nil, err
		}
	}

	eng, err := engine.New(loader,
		engine.WithScoring(cfg.Scoring),
		engine.WithRules(rules),
		engine.WithRetry(resilience.DefaultPolicy().WithAttempts(cfg.Snapshot.RetryAttempts)),
		engine.WithMetrics(metrics),
	)
	if err != nil {
		env.Close()
		return nil, err
	}
	env.Engine = eng

	if _, err := eng.Refresh(ctx); err != nil {
		if requireSnapshot {
			env.Close()
			return nil, eris.Wrap(err, "initial snapshot load")
		}
		zap.L().Warn("initial snapshot load failed, serving unavailable until refresh", zap.Error(err))
	}
	return env, nil
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
