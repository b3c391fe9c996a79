package stock

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/comercio-app/comercio/internal/catalog"
	"github.com/comercio-app/comercio/internal/numbering"
	"github.com/comercio-app/comercio/internal/platform/db"
	"github.com/comercio-app/comercio/internal/shared"
)

// Repository persists stock documents in PostgreSQL.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// TxRepository exposes the transactional operations used by the service.
// Document insert, line items, number allocation and stock deltas all commit
// or roll back together.
type TxRepository interface {
	NextNumber(ctx context.Context, docType numbering.DocumentType, date time.Time) (string, error)
	LookupName(ctx context.Context, table, id string) (string, error)
	ProductName(ctx context.Context, id string) (string, error)
	AdjustStock(ctx context.Context, productID string, delta int) (int, error)

	InsertEntry(ctx context.Context, e Entry) (Entry, error)
	GetEntryForUpdate(ctx context.Context, id string) (Entry, error)
	UpdateEntryHeader(ctx context.Context, e Entry) (Entry, error)
	GetEntryItems(ctx context.Context, entryID string) ([]EntryItem, error)
	ReplaceEntryItems(ctx context.Context, entryID string, items []EntryItem) error

	InsertExit(ctx context.Context, e Exit) (Exit, error)
	GetExitForUpdate(ctx context.Context, id string) (Exit, error)
	UpdateExitHeader(ctx context.Context, e Exit) (Exit, error)
	GetExitItems(ctx context.Context, exitID string) ([]ExitItem, error)
	ReplaceExitItems(ctx context.Context, exitID string, items []ExitItem) error
}

type txRepository struct {
	tx pgx.Tx
}

// WithTx executes the callback inside a transaction.
func (r *Repository) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		return fn(ctx, &txRepository{tx: tx})
	})
}

func (r *txRepository) NextNumber(ctx context.Context, docType numbering.DocumentType, date time.Time) (string, error) {
	return numbering.Next(ctx, r.tx, docType, date)
}

func (r *txRepository) LookupName(ctx context.Context, table, id string) (string, error) {
	var name string
	err := r.tx.QueryRow(ctx, fmt.Sprintf(`SELECT name FROM %s WHERE id = $1 AND deleted_at IS NULL`, table), id).Scan(&name)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", fmt.Errorf("stock: %s %s: %w", table, id, shared.ErrNotFound)
		}
		return "", err
	}
	return name, nil
}

func (r *txRepository) ProductName(ctx context.Context, id string) (string, error) {
	return r.LookupName(ctx, "products", id)
}

func (r *txRepository) AdjustStock(ctx context.Context, productID string, delta int) (int, error) {
	return catalog.AdjustStock(ctx, r.tx, productID, delta)
}

func (r *txRepository) InsertEntry(ctx context.Context, e Entry) (Entry, error) {
	err := r.tx.QueryRow(ctx, `INSERT INTO stock_entries (id, number, supplier_id, supplier_name, entry_date, invoice_number, notes)
VALUES ($1,$2,$3,$4,$5,$6,$7)
RETURNING created_at, updated_at`,
		e.ID, e.Number, e.SupplierID, e.SupplierName, e.Date, e.InvoiceNumber, e.Notes).
		Scan(&e.CreatedAt, &e.UpdatedAt)
	if err != nil {
		return Entry{}, err
	}
	return e, nil
}

// GetEntryForUpdate loads the entry with a row lock so concurrent edits
// serialize and the reverse-then-apply stock math always starts from the
// committed items.
func (r *txRepository) GetEntryForUpdate(ctx context.Context, id string) (Entry, error) {
	row := r.tx.QueryRow(ctx, fmt.Sprintf(`SELECT %s FROM stock_entries WHERE id = $1 AND deleted_at IS NULL FOR UPDATE`, entryColumns), id)
	e, err := scanEntry(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Entry{}, shared.ErrNotFound
		}
		return Entry{}, err
	}
	e.Items, err = r.GetEntryItems(ctx, id)
	return e, err
}

func (r *txRepository) UpdateEntryHeader(ctx context.Context, e Entry) (Entry, error) {
	err := r.tx.QueryRow(ctx, `UPDATE stock_entries
SET entry_date=$2, invoice_number=$3, notes=$4, updated_at=NOW()
WHERE id=$1 AND deleted_at IS NULL
RETURNING created_at, updated_at`,
		e.ID, e.Date, e.InvoiceNumber, e.Notes).
		Scan(&e.CreatedAt, &e.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Entry{}, shared.ErrNotFound
		}
		return Entry{}, err
	}
	return e, nil
}

func (r *txRepository) GetEntryItems(ctx context.Context, entryID string) ([]EntryItem, error) {
	rows, err := r.tx.Query(ctx, `SELECT id, product_id, product_name, quantity, purchase_price FROM stock_entry_items WHERE entry_id = $1 ORDER BY id`, entryID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := []EntryItem{}
	for rows.Next() {
		var item EntryItem
		if err := rows.Scan(&item.ID, &item.ProductID, &item.ProductName, &item.Quantity, &item.PurchasePrice); err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

// ReplaceEntryItems deletes and re-inserts items wholesale, matching the edit
// semantics of the documents UI.
func (r *txRepository) ReplaceEntryItems(ctx context.Context, entryID string, items []EntryItem) error {
	if _, err := r.tx.Exec(ctx, `DELETE FROM stock_entry_items WHERE entry_id = $1`, entryID); err != nil {
		return err
	}
	for _, item := range items {
		if _, err := r.tx.Exec(ctx, `INSERT INTO stock_entry_items (id, entry_id, product_id, product_name, quantity, purchase_price)
VALUES ($1,$2,$3,$4,$5,$6)`,
			item.ID, entryID, item.ProductID, item.ProductName, item.Quantity, item.PurchasePrice); err != nil {
			return err
		}
	}
	return nil
}

func (r *txRepository) InsertExit(ctx context.Context, e Exit) (Exit, error) {
	err := r.tx.QueryRow(ctx, `INSERT INTO stock_exits (id, number, client_id, client_name, exit_date, invoice_number, notes, discount, from_order_id, from_order_number)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,NULLIF($9,'')::uuid,NULLIF($10,''))
RETURNING created_at, updated_at`,
		e.ID, e.Number, e.ClientID, e.ClientName, e.Date, e.InvoiceNumber, e.Notes, e.Discount, e.FromOrderID, e.FromOrderNumber).
		Scan(&e.CreatedAt, &e.UpdatedAt)
	if err != nil {
		return Exit{}, err
	}
	return e, nil
}

// GetExitForUpdate mirrors GetEntryForUpdate for exits.
func (r *txRepository) GetExitForUpdate(ctx context.Context, id string) (Exit, error) {
	row := r.tx.QueryRow(ctx, fmt.Sprintf(`SELECT %s FROM stock_exits WHERE id = $1 AND deleted_at IS NULL FOR UPDATE`, exitColumns), id)
	e, err := scanExit(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Exit{}, shared.ErrNotFound
		}
		return Exit{}, err
	}
	e.Items, err = r.GetExitItems(ctx, id)
	return e, err
}

func (r *txRepository) UpdateExitHeader(ctx context.Context, e Exit) (Exit, error) {
	err := r.tx.QueryRow(ctx, `UPDATE stock_exits
SET exit_date=$2, invoice_number=$3, notes=$4, discount=$5, updated_at=NOW()
WHERE id=$1 AND deleted_at IS NULL
RETURNING created_at, updated_at`,
		e.ID, e.Date, e.InvoiceNumber, e.Notes, e.Discount).
		Scan(&e.CreatedAt, &e.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Exit{}, shared.ErrNotFound
		}
		return Exit{}, err
	}
	return e, nil
}

func (r *txRepository) GetExitItems(ctx context.Context, exitID string) ([]ExitItem, error) {
	rows, err := r.tx.Query(ctx, `SELECT id, product_id, product_name, quantity, sale_price, discount_percent FROM stock_exit_items WHERE exit_id = $1 ORDER BY id`, exitID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := []ExitItem{}
	for rows.Next() {
		var item ExitItem
		if err := rows.Scan(&item.ID, &item.ProductID, &item.ProductName, &item.Quantity, &item.SalePrice, &item.DiscountPercent); err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

func (r *txRepository) ReplaceExitItems(ctx context.Context, exitID string, items []ExitItem) error {
	if _, err := r.tx.Exec(ctx, `DELETE FROM stock_exit_items WHERE exit_id = $1`, exitID); err != nil {
		return err
	}
	for _, item := range items {
		if _, err := r.tx.Exec(ctx, `INSERT INTO stock_exit_items (id, exit_id, product_id, product_name, quantity, sale_price, discount_percent)
VALUES ($1,$2,$3,$4,$5,$6,$7)`,
			item.ID, exitID, item.ProductID, item.ProductName, item.Quantity, item.SalePrice, item.DiscountPercent); err != nil {
			return err
		}
	}
	return nil
}

const entryColumns = `id, number, supplier_id, supplier_name, entry_date, invoice_number, notes, created_at, updated_at, deleted_at`
const exitColumns = `id, number, client_id, client_name, exit_date, invoice_number, notes, discount, COALESCE(from_order_id::text,''), COALESCE(from_order_number,''), created_at, updated_at, deleted_at`

func (r *Repository) ListEntries(ctx context.Context, f ListFilters) ([]Entry, int, error) {
	page := shared.NewPagination(f.Page, f.PerPage, 0)

	where := `deleted_at IS NULL`
	args := []any{}
	if f.Search != "" {
		args = append(args, "%"+f.Search+"%")
		where += fmt.Sprintf(` AND (number ILIKE $%d OR supplier_name ILIKE $%d OR invoice_number ILIKE $%d)`, len(args), len(args), len(args))
	}
	if !f.From.IsZero() {
		args = append(args, f.From)
		where += fmt.Sprintf(` AND entry_date >= $%d`, len(args))
	}
	if !f.To.IsZero() {
		args = append(args, f.To)
		where += fmt.Sprintf(` AND entry_date <= $%d`, len(args))
	}

	var total int
	if err := r.pool.QueryRow(ctx, `SELECT count(*) FROM stock_entries WHERE `+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	args = append(args, page.PerPage, page.Offset())
	rows, err := r.pool.Query(ctx, fmt.Sprintf(`SELECT %s FROM stock_entries WHERE %s ORDER BY entry_date DESC, number DESC LIMIT $%d OFFSET $%d`,
		entryColumns, where, len(args)-1, len(args)), args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	entries := []Entry{}
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, 0, err
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}

	for i := range entries {
		items, err := r.entryItems(ctx, entries[i].ID)
		if err != nil {
			return nil, 0, err
		}
		entries[i].Items = items
	}
	return entries, total, nil
}

func (r *Repository) GetEntry(ctx context.Context, id string) (Entry, error) {
	row := r.pool.QueryRow(ctx, fmt.Sprintf(`SELECT %s FROM stock_entries WHERE id = $1 AND deleted_at IS NULL`, entryColumns), id)
	e, err := scanEntry(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Entry{}, shared.ErrNotFound
		}
		return Entry{}, err
	}
	e.Items, err = r.entryItems(ctx, id)
	return e, err
}

func (r *Repository) SoftDeleteEntry(ctx context.Context, id string) error {
	return r.softDelete(ctx, "stock_entries", id)
}

func (r *Repository) ListExits(ctx context.Context, f ListFilters) ([]Exit, int, error) {
	page := shared.NewPagination(f.Page, f.PerPage, 0)

	where := `deleted_at IS NULL`
	args := []any{}
	if f.Search != "" {
		args = append(args, "%"+f.Search+"%")
		where += fmt.Sprintf(` AND (number ILIKE $%d OR client_name ILIKE $%d OR invoice_number ILIKE $%d)`, len(args), len(args), len(args))
	}
	if !f.From.IsZero() {
		args = append(args, f.From)
		where += fmt.Sprintf(` AND exit_date >= $%d`, len(args))
	}
	if !f.To.IsZero() {
		args = append(args, f.To)
		where += fmt.Sprintf(` AND exit_date <= $%d`, len(args))
	}

	var total int
	if err := r.pool.QueryRow(ctx, `SELECT count(*) FROM stock_exits WHERE `+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	args = append(args, page.PerPage, page.Offset())
	rows, err := r.pool.Query(ctx, fmt.Sprintf(`SELECT %s FROM stock_exits WHERE %s ORDER BY exit_date DESC, number DESC LIMIT $%d OFFSET $%d`,
		exitColumns, where, len(args)-1, len(args)), args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	exits := []Exit{}
	for rows.Next() {
		e, err := scanExit(rows)
		if err != nil {
			return nil, 0, err
		}
		exits = append(exits, e)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}

	for i := range exits {
		items, err := r.exitItems(ctx, exits[i].ID)
		if err != nil {
			return nil, 0, err
		}
		exits[i].Items = items
	}
	return exits, total, nil
}

func (r *Repository) GetExit(ctx context.Context, id string) (Exit, error) {
	row := r.pool.QueryRow(ctx, fmt.Sprintf(`SELECT %s FROM stock_exits WHERE id = $1 AND deleted_at IS NULL`, exitColumns), id)
	e, err := scanExit(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Exit{}, shared.ErrNotFound
		}
		return Exit{}, err
	}
	e.Items, err = r.exitItems(ctx, id)
	return e, err
}

func (r *Repository) SoftDeleteExit(ctx context.Context, id string) error {
	return r.softDelete(ctx, "stock_exits", id)
}

func (r *Repository) softDelete(ctx context.Context, table, id string) error {
	tag, err := r.pool.Exec(ctx, fmt.Sprintf(`UPDATE %s SET deleted_at = NOW() WHERE id = $1 AND deleted_at IS NULL`, table), id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

func (r *Repository) entryItems(ctx context.Context, entryID string) ([]EntryItem, error) {
	rows, err := r.pool.Query(ctx, `SELECT id, product_id, product_name, quantity, purchase_price FROM stock_entry_items WHERE entry_id = $1 ORDER BY id`, entryID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := []EntryItem{}
	for rows.Next() {
		var item EntryItem
		if err := rows.Scan(&item.ID, &item.ProductID, &item.ProductName, &item.Quantity, &item.PurchasePrice); err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

func (r *Repository) exitItems(ctx context.Context, exitID string) ([]ExitItem, error) {
	rows, err := r.pool.Query(ctx, `SELECT id, product_id, product_name, quantity, sale_price, discount_percent FROM stock_exit_items WHERE exit_id = $1 ORDER BY id`, exitID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := []ExitItem{}
	for rows.Next() {
		var item ExitItem
		if err := rows.Scan(&item.ID, &item.ProductID, &item.ProductName, &item.Quantity, &item.SalePrice, &item.DiscountPercent); err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

func scanEntry(row pgx.Row) (Entry, error) {
	var e Entry
	var deletedAt *time.Time
	err := row.Scan(&e.ID, &e.Number, &e.SupplierID, &e.SupplierName, &e.Date,
		&e.InvoiceNumber, &e.Notes, &e.CreatedAt, &e.UpdatedAt, &deletedAt)
	if err != nil {
		return Entry{}, err
	}
	e.DeletedAt = deletedAt
	return e, nil
}

func scanExit(row pgx.Row) (Exit, error) {
	var e Exit
	var deletedAt *time.Time
	err := row.Scan(&e.ID, &e.Number, &e.ClientID, &e.ClientName, &e.Date,
		&e.InvoiceNumber, &e.Notes, &e.Discount, &e.FromOrderID, &e.FromOrderNumber,
		&e.CreatedAt, &e.UpdatedAt, &deletedAt)
	if err != nil {
		return Exit{}, err
	}
	e.DeletedAt = deletedAt
	return e, nil
}
