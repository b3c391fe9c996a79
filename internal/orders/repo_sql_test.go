package orders

import (
	"context"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/require"

	"github.com/comercio-app/comercio/internal/stock"
)

// captureTx records the SQL sent through the transaction without a database.
type captureTx struct {
	pgx.Tx
	sql []string
}

func (c *captureTx) QueryRow(_ context.Context, sql string, _ ...any) pgx.Row {
	c.sql = append(c.sql, sql)
	return noopRow{}
}

type noopRow struct{}

func (noopRow) Scan(...any) error { return nil }

func TestInsertExitCastsOrderReference(t *testing.T) {
	capture := &captureTx{}
	repo := &txRepository{tx: capture}

	_, err := repo.InsertExit(context.Background(), stock.Exit{ID: "e1"})
	require.NoError(t, err)
	require.Len(t, capture.sql, 1)
	// NULLIF over two text-typed params yields text; without the cast the
	// insert into the uuid column fails at the protocol level.
	require.Contains(t, capture.sql[0], `NULLIF($9,'')::uuid`)
}
