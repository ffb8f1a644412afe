package store

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/sells-group/account-intel/internal/model"
)

// SQLiteStore implements Store using modernc.org/sqlite.
type SQLiteStore struct {
	db  *sql.DB
	now func() time.Time
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close() //nolint:errcheck
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db, now: func() time.Time { return time.Now().UTC() }}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS overrides (
	id          TEXT PRIMARY KEY,
	client_name TEXT NOT NULL,
	field       TEXT NOT NULL,
	value       TEXT NOT NULL,
	created_at  DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE INDEX IF NOT EXISTS idx_overrides_client ON overrides(client_name);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) AddOverride(ctx context.Context, clientName, field, value string) (*model.Override, error) {
	clientName = strings.TrimSpace(clientName)
	value = strings.TrimSpace(value)
	if clientName == "" {
		return nil, eris.New("sqlite: override client name is required")
	}
	if !model.ValidOverrideField(field) {
		return nil, eris.Errorf("sqlite: field %q cannot be overridden", field)
	}
	if value == "" {
		return nil, eris.New("sqlite: override value is required")
	}

	o := &model.Override{
		ID:         uuid.New().String(),
		ClientName: clientName,
		Field:      field,
		Value:      value,
		CreatedAt:  s.now(),
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO overrides (id, client_name, field, value, created_at) VALUES (?, ?, ?, ?, ?)`,
		o.ID, o.ClientName, o.Field, o.Value, o.CreatedAt,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: insert override")
	}
	return o, nil
}

func (s *SQLiteStore) ListOverrides(ctx context.Context) ([]model.Override, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, client_name, field, value, created_at FROM overrides ORDER BY created_at, rowid`,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list overrides")
	}
	defer rows.Close() //nolint:errcheck

	var out []model.Override
	for rows.Next() {
		var o model.Override
		if err := rows.Scan(&o.ID, &o.ClientName, &o.Field, &o.Value, &o.CreatedAt); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan override")
		}
		out = append(out, o)
	}
	return out, eris.Wrap(rows.Err(), "sqlite: list overrides iterate")
}

func (s *SQLiteStore) DeleteOverride(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM overrides WHERE id = ?`, id)
	if err != nil {
		return eris.Wrapf(err, "sqlite: delete override %s", id)
	}
	return checkRowsAffected(res, "override", id)
}

func checkRowsAffected(res sql.Result, entity, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return eris.Wrap(err, "rows affected")
	}
	if n == 0 {
		return eris.Errorf("%s not found: %s", entity, id)
	}
	return nil
}
