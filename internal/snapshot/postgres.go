package snapshot

import (
	"context"

	"github.com/rotisserie/eris"

	"github.com/sells-group/account-intel/internal/db"
	"github.com/sells-group/account-intel/internal/index"
	"github.com/sells-group/account-intel/internal/model"
)

// Schema creates the tables PostgresSource reads.
const Schema = `
CREATE TABLE IF NOT EXISTS clients (
	id            TEXT PRIMARY KEY,
	name          TEXT NOT NULL,
	aliases       TEXT[] NOT NULL DEFAULT '{}',
	segment       TEXT NOT NULL DEFAULT '',
	geography     TEXT NOT NULL DEFAULT '',
	payment_model TEXT NOT NULL DEFAULT '',
	total_revenue DOUBLE PRECISION NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS client_usage (
	client_id TEXT NOT NULL REFERENCES clients(id) ON DELETE CASCADE,
	month     TEXT NOT NULL,
	product   TEXT NOT NULL,
	revenue   DOUBLE PRECISION NOT NULL DEFAULT 0,
	calls     BIGINT NOT NULL DEFAULT 0
);

CREATE INDEX IF NOT EXISTS idx_client_usage_client ON client_usage(client_id);

CREATE TABLE IF NOT EXISTS product_catalog (
	product_name TEXT PRIMARY KEY,
	billing_unit TEXT NOT NULL DEFAULT '',
	owner        TEXT NOT NULL DEFAULT ''
);
`

const (
	clientsQuery = `SELECT id, name, aliases, segment, geography, payment_model, total_revenue FROM clients ORDER BY id`
	usageQuery   = `SELECT client_id, month, product, revenue, calls FROM client_usage ORDER BY client_id, month DESC, product`
	catalogQuery = `SELECT product_name, billing_unit, owner FROM product_catalog ORDER BY product_name`
)

// PostgresSource reads clients, usage and the catalog from Postgres.
type PostgresSource struct {
	Pool db.Pool
}

// Migrate creates the snapshot tables if they do not exist.
func (s PostgresSource) Migrate(ctx context.Context) error {
	_, err := s.Pool.Exec(ctx, Schema)
	return eris.Wrap(err, "snapshot: migrate postgres")
}

// LoadClients implements ClientSource. Usage rows are attached to their
// client in the flat month/product/revenue shape the index accepts.
func (s PostgresSource) LoadClients(ctx context.Context) ([]index.RawClient, error) {
	rows, err := s.Pool.Query(ctx, clientsQuery)
	if err != nil {
		return nil, eris.Wrap(err, "snapshot: query clients")
	}
	defer rows.Close()

	var clients []index.RawClient
	pos := make(map[string]int)
	for rows.Next() {
		var (
			id, name, segment, geography, paymentModel string
			aliases                                    []string
			totalRevenue                               float64
		)
		if err := rows.Scan(&id, &name, &aliases, &segment, &geography, &paymentModel, &totalRevenue); err != nil {
			return nil, eris.Wrap(err, "snapshot: scan client")
		}
		fields := map[string]any{
			"id":           id,
			"name":         name,
			"segment":      segment,
			"geography":    geography,
			"paymentModel": paymentModel,
			"totalRevenue": totalRevenue,
		}
		if len(aliases) > 0 {
			list := make([]any, len(aliases))
			for i, a := range aliases {
				list[i] = a
			}
			fields["aliases"] = list
		}
		pos[id] = len(clients)
		clients = append(clients, index.NewRawClient(fields))
	}
	if err := rows.Err(); err != nil {
		return nil, eris.Wrap(err, "snapshot: iterate clients")
	}

	usage, err := s.Pool.Query(ctx, usageQuery)
	if err != nil {
		return nil, eris.Wrap(err, "snapshot: query usage")
	}
	defer usage.Close()

	byClient := make(map[string][]any)
	for usage.Next() {
		var (
			clientID, month, product string
			revenue                  float64
			calls                    int64
		)
		if err := usage.Scan(&clientID, &month, &product, &revenue, &calls); err != nil {
			return nil, eris.Wrap(err, "snapshot: scan usage")
		}
		byClient[clientID] = append(byClient[clientID], map[string]any{
			"month":   month,
			"product": product,
			"revenue": revenue,
			"calls":   calls,
		})
	}
	if err := usage.Err(); err != nil {
		return nil, eris.Wrap(err, "snapshot: iterate usage")
	}

	for id, rows := range byClient {
		if i, ok := pos[id]; ok {
			clients[i].Set("usage", rows)
		}
	}
	return clients, nil
}

// LoadCatalog implements CatalogSource.
func (s PostgresSource) LoadCatalog(ctx context.Context) ([]model.ProductCatalogEntry, error) {
	rows, err := s.Pool.Query(ctx, catalogQuery)
	if err != nil {
		return nil, eris.Wrap(err, "snapshot: query catalog")
	}
	defer rows.Close()

	var out []model.ProductCatalogEntry
	for rows.Next() {
		var e model.ProductCatalogEntry
		if err := rows.Scan(&e.ProductName, &e.BillingUnit, &e.Owner); err != nil {
			return nil, eris.Wrap(err, "snapshot: scan catalog")
		}
		out = append(out, e)
	}
	return out, eris.Wrap(rows.Err(), "snapshot: iterate catalog")
}

// Seed replaces the Postgres snapshot tables with data. Records are
// normalized through the index first, so whatever shape the input file
// used is stored in the canonical columns. Records without a name are
// dropped.
func (s PostgresSource) Seed(ctx context.Context, data *Data) (int64, error) {
	clients := db.Table{
		Name:    "clients",
		Columns: []string{"id", "name", "aliases", "segment", "geography", "payment_model", "total_revenue"},
	}
	usage := db.Table{
		Name:    "client_usage",
		Columns: []string{"client_id", "month", "product", "revenue", "calls"},
	}
	catalog := db.Table{
		Name:    "product_catalog",
		Columns: []string{"product_name", "billing_unit", "owner"},
	}

	idx := index.Build(data.Clients)
	for _, c := range idx.Clients() {
		aliases := c.Aliases
		if aliases == nil {
			aliases = []string{}
		}
		clients.Rows = append(clients.Rows, []any{
			c.ID, c.Name, aliases, c.Segment, c.Geography, c.PaymentModel, c.TotalRevenue,
		})
		for _, m := range c.MonthlyUsage {
			for _, p := range m.Products {
				usage.Rows = append(usage.Rows, []any{c.ID, m.Month, p.Product, p.Revenue, p.CallVolume})
			}
		}
	}

	seen := make(map[string]bool)
	for _, e := range data.Catalog {
		name := index.CleanProductName(e.ProductName)
		key := index.ProductKey(name)
		if key == "" || seen[key] {
			continue
		}
		seen[key] = true
		catalog.Rows = append(catalog.Rows, []any{name, e.BillingUnit, e.Owner})
	}

	n, err := db.ReplaceTables(ctx, s.Pool, clients, usage, catalog)
	if err != nil {
		return 0, eris.Wrap(err, "snapshot: seed postgres")
	}
	return n, nil
}
