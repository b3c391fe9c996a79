package recyclebin

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/comercio-app/comercio/internal/shared"
)

// Repository reads and mutates soft-deleted rows.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// List returns all soft-deleted rows across the bin tables, newest first.
func (r *Repository) List(ctx context.Context) ([]Item, error) {
	selects := make([]string, 0, len(binTables))
	for table, labelCol := range binTables {
		selects = append(selects, fmt.Sprintf(
			`SELECT '%s' AS table_name, id::text, %s AS label, deleted_at FROM %s WHERE deleted_at IS NOT NULL`,
			table, labelCol, table))
	}
	query := strings.Join(selects, "\nUNION ALL\n") + "\nORDER BY deleted_at DESC"

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := []Item{}
	for rows.Next() {
		var item Item
		if err := rows.Scan(&item.Table, &item.ID, &item.Label, &item.DeletedAt); err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

// Restore clears deleted_at so the record reappears unchanged.
func (r *Repository) Restore(ctx context.Context, table, id string) error {
	if !KnownTable(table) {
		return ErrUnknownTable
	}
	tag, err := r.pool.Exec(ctx,
		fmt.Sprintf(`UPDATE %s SET deleted_at = NULL WHERE id = $1 AND deleted_at IS NOT NULL`, table), id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

// Purge hard-deletes a binned record. Line items go with it via FK cascade.
func (r *Repository) Purge(ctx context.Context, table, id string) error {
	if !KnownTable(table) {
		return ErrUnknownTable
	}
	tag, err := r.pool.Exec(ctx,
		fmt.Sprintf(`DELETE FROM %s WHERE id = $1 AND deleted_at IS NOT NULL`, table), id)
	if err != nil {
		return mapDeleteError(err)
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

// PurgeExpired hard-deletes every binned record older than the cutoff and
// reports how many rows went away.
func (r *Repository) PurgeExpired(ctx context.Context, cutoff time.Time) (int64, error) {
	var total int64
	for table := range binTables {
		tag, err := r.pool.Exec(ctx,
			fmt.Sprintf(`DELETE FROM %s WHERE deleted_at IS NOT NULL AND deleted_at < $1`, table), cutoff)
		if err != nil {
			return total, fmt.Errorf("purge %s: %w", table, err)
		}
		total += tag.RowsAffected()
	}
	return total, nil
}

// mapDeleteError turns a foreign key violation into ErrReferenced so the
// handler can answer with a conflict instead of a server error.
func mapDeleteError(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23503" {
		return ErrReferenced
	}
	return err
}
