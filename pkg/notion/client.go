// Package notion reads rows from Notion databases, throttled to the API's
// request budget.
package notion

import (
	"context"

	"github.com/jomei/notionapi"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// DefaultRPS is Notion's documented average request rate per integration.
const DefaultRPS = 3

// Client queries Notion databases.
type Client interface {
	QueryDatabase(ctx context.Context, dbID string, req *notionapi.DatabaseQueryRequest) (*notionapi.DatabaseQueryResponse, error)
}

// queryer is the one notionapi.DatabaseService method the client calls.
type queryer interface {
	Query(ctx context.Context, id notionapi.DatabaseID, req *notionapi.DatabaseQueryRequest) (*notionapi.DatabaseQueryResponse, error)
}

// Option configures NewClient.
type Option func(*dbClient)

// WithRPS sets the sustained request rate. Zero or less disables throttling.
func WithRPS(rps float64) Option {
	return func(c *dbClient) { c.rps = rps }
}

// WithBurst sets how many requests may run back to back before throttling.
func WithBurst(n int) Option {
	return func(c *dbClient) { c.burst = n }
}

type dbClient struct {
	db      queryer
	rps     float64
	burst   int
	limiter *rate.Limiter
}

// NewClient creates a Client for an integration token.
func NewClient(token string, opts ...Option) Client {
	return newClient(notionapi.NewClient(notionapi.Token(token)).Database, opts...)
}

func newClient(db queryer, opts ...Option) *dbClient {
	c := &dbClient{db: db, rps: DefaultRPS, burst: 1}
	for _, opt := range opts {
		opt(c)
	}
	if c.rps > 0 {
		c.limiter = rate.NewLimiter(rate.Limit(c.rps), max(c.burst, 1))
	}
	return c
}

// QueryDatabase implements Client.
func (c *dbClient) QueryDatabase(ctx context.Context, dbID string, req *notionapi.DatabaseQueryRequest) (*notionapi.DatabaseQueryResponse, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, eris.Wrap(err, "notion: rate limit")
		}
	}
	resp, err := c.db.Query(ctx, notionapi.DatabaseID(dbID), req)
	if err != nil {
		return nil, eris.Wrapf(err, "notion: query database %s", dbID)
	}
	zap.L().Debug("notion: queried database",
		zap.String("database_id", dbID),
		zap.Int("results", len(resp.Results)),
		zap.Bool("has_more", resp.HasMore),
	)
	return resp, nil
}
