package recyclebin

import (
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/require"
)

func TestMapDeleteErrorForeignKeyViolation(t *testing.T) {
	// a converted order still points at its exit via orders.exit_id
	err := fmt.Errorf("exec: %w", &pgconn.PgError{Code: "23503"})
	require.ErrorIs(t, mapDeleteError(err), ErrReferenced)
}

func TestMapDeleteErrorPassesOthersThrough(t *testing.T) {
	unique := &pgconn.PgError{Code: "23505"}
	require.Equal(t, error(unique), mapDeleteError(unique))

	plain := errors.New("connection reset")
	require.Equal(t, plain, mapDeleteError(plain))
}
