package db

import (
	"context"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCopyFrom_EmptyRows(t *testing.T) {
	n, err := CopyFrom(context.TODO(), nil, "clients", []string{"a", "b"}, nil)
	assert.NoError(t, err)
	assert.Equal(t, int64(0), n)
}

func TestCopyFrom_Success(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectCopyFrom(pgx.Identifier{"clients"}, []string{"a", "b"}).WillReturnResult(3)

	rows := [][]any{{1, "x"}, {2, "y"}, {3, "z"}}
	n, err := CopyFrom(context.Background(), mock, "clients", []string{"a", "b"}, rows)
	assert.NoError(t, err)
	assert.Equal(t, int64(3), n)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCopyFrom_Error(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectCopyFrom(pgx.Identifier{"clients"}, []string{"a", "b"}).WillReturnError(fmt.Errorf("copy failed"))

	_, err = CopyFrom(context.Background(), mock, "clients", []string{"a", "b"}, [][]any{{1, "x"}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "COPY INTO clients")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestReplaceTables_Success(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectBegin()
	mock.ExpectExec(`DELETE FROM "client_usage"`).WillReturnResult(pgxmock.NewResult("DELETE", 4))
	mock.ExpectExec(`DELETE FROM "clients"`).WillReturnResult(pgxmock.NewResult("DELETE", 2))
	mock.ExpectCopyFrom(pgx.Identifier{"clients"}, []string{"id", "name"}).WillReturnResult(2)
	mock.ExpectCopyFrom(pgx.Identifier{"client_usage"}, []string{"client_id", "product"}).WillReturnResult(3)
	mock.ExpectCommit()

	n, err := ReplaceTables(context.Background(), mock,
		Table{Name: "clients", Columns: []string{"id", "name"}, Rows: [][]any{{"1", "A"}, {"2", "B"}}},
		Table{Name: "client_usage", Columns: []string{"client_id", "product"}, Rows: [][]any{{"1", "x"}, {"1", "y"}, {"2", "x"}}},
	)
	require.NoError(t, err)
	assert.Equal(t, int64(5), n)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestReplaceTables_RollsBackOnCopyError(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectBegin()
	mock.ExpectExec(`DELETE FROM "clients"`).WillReturnResult(pgxmock.NewResult("DELETE", 0))
	mock.ExpectCopyFrom(pgx.Identifier{"clients"}, []string{"id"}).WillReturnError(fmt.Errorf("disk full"))
	mock.ExpectRollback()

	_, err = ReplaceTables(context.Background(), mock,
		Table{Name: "clients", Columns: []string{"id"}, Rows: [][]any{{"1"}}},
	)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "COPY INTO clients")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestReplaceTables_BeginError(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectBegin().WillReturnError(fmt.Errorf("connection refused"))

	_, err = ReplaceTables(context.Background(), mock, Table{Name: "clients"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "db: begin")
}
