package db

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/rotisserie/eris"
)

// Copier is implemented by both Pool and pgx.Tx.
type Copier interface {
	CopyFrom(ctx context.Context, table pgx.Identifier, columns []string, src pgx.CopyFromSource) (int64, error)
}

// CopyFrom bulk-inserts rows into table using the COPY protocol.
func CopyFrom(ctx context.Context, c Copier, table string, columns []string, rows [][]any) (int64, error) {
	if len(rows) == 0 {
		return 0, nil
	}

	n, err := c.CopyFrom(ctx, pgx.Identifier{table}, columns, pgx.CopyFromRows(rows))
	if err != nil {
		return 0, eris.Wrapf(err, "db: COPY INTO %s", table)
	}
	return n, nil
}

// Table is one table's replacement contents.
type Table struct {
	Name    string
	Columns []string
	Rows    [][]any
}

// ReplaceTables empties each table and copies its rows back in a single
// transaction, so readers never see a half-loaded snapshot. Tables are
// cleared in reverse order and filled in order, so parents come first.
func ReplaceTables(ctx context.Context, pool Pool, tables ...Table) (int64, error) {
	tx, err := pool.Begin(ctx)
	if err != nil {
		return 0, eris.Wrap(err, "db: begin")
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	for i := len(tables) - 1; i >= 0; i-- {
		if _, err := tx.Exec(ctx, "DELETE FROM "+pgx.Identifier{tables[i].Name}.Sanitize()); err != nil {
			return 0, eris.Wrapf(err, "db: clear %s", tables[i].Name)
		}
	}

	var total int64
	for _, t := range tables {
		n, err := CopyFrom(ctx, tx, t.Name, t.Columns, t.Rows)
		if err != nil {
			return 0, err
		}
		total += n
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, eris.Wrap(err, "db: commit")
	}
	return total, nil
}
