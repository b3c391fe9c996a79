package orders

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
	"github.com/comercio-app/comercio/internal/stock"
)

// Repository persists orders in PostgreSQL.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// TxRepository exposes the transactional operations used by the service.
// Conversion locks the order row, materializes the exit, adjusts stock and
// flips the status in one transaction.
type TxRepository interface {
	NextNumber(ctx context.Context, docType numbering.DocumentType, date time.Time) (string, error)
	LookupName(ctx context.Context, table, id string) (string, error)
	ProductName(ctx context.Context, id string) (string, error)
	AdjustStock(ctx context.Context, productID string, delta int) (int, error)

	InsertOrder(ctx context.Context, o Order) (Order, error)
	UpdateOrderHeader(ctx context.Context, o Order) (Order, error)
	ReplaceOrderItems(ctx context.Context, orderID string, items []Item) error
	GetOrderForUpdate(ctx context.Context, id string) (Order, error)
	SetStatus(ctx context.Context, id string, status Status) error
	MarkConverted(ctx context.Context, id, exitID, exitNumber string) error
	SoftDeleteOrder(ctx context.Context, id string) error

	InsertExit(ctx context.Context, e stock.Exit) (stock.Exit, error)
	InsertExitItems(ctx context.Context, exitID string, items []stock.ExitItem) error
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
			return "", fmt.Errorf("orders: %s %s: %w", table, id, shared.ErrNotFound)
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

func (r *txRepository) InsertOrder(ctx context.Context, o Order) (Order, error) {
	err := r.tx.QueryRow(ctx, `INSERT INTO orders (id, number, client_id, client_name, order_date, notes, status, discount)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
RETURNING created_at, updated_at`,
		o.ID, o.Number, o.ClientID, o.ClientName, o.Date, o.Notes, o.Status, o.Discount).
		Scan(&o.CreatedAt, &o.UpdatedAt)
	if err != nil {
		return Order{}, err
	}
	return o, nil
}

func (r *txRepository) UpdateOrderHeader(ctx context.Context, o Order) (Order, error) {
	err := r.tx.QueryRow(ctx, `UPDATE orders
SET order_date=$2, notes=$3, discount=$4, updated_at=NOW()
WHERE id=$1 AND deleted_at IS NULL
RETURNING created_at, updated_at`,
		o.ID, o.Date, o.Notes, o.Discount).
		Scan(&o.CreatedAt, &o.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Order{}, shared.ErrNotFound
		}
		return Order{}, err
	}
	return o, nil
}

func (r *txRepository) ReplaceOrderItems(ctx context.Context, orderID string, items []Item) error {
	if _, err := r.tx.Exec(ctx, `DELETE FROM order_items WHERE order_id = $1`, orderID); err != nil {
		return err
	}
	for _, item := range items {
		if _, err := r.tx.Exec(ctx, `INSERT INTO order_items (id, order_id, product_id, product_name, quantity, sale_price, discount_percent)
VALUES ($1,$2,$3,$4,$5,$6,$7)`,
			item.ID, orderID, item.ProductID, item.ProductName, item.Quantity, item.SalePrice, item.DiscountPercent); err != nil {
			return err
		}
	}
	return nil
}

// GetOrderForUpdate loads the order with a row lock so concurrent conversions
// serialize on the same order.
func (r *txRepository) GetOrderForUpdate(ctx context.Context, id string) (Order, error) {
	row := r.tx.QueryRow(ctx, `SELECT `+orderColumns+` FROM orders WHERE id = $1 AND deleted_at IS NULL FOR UPDATE`, id)
	o, err := scanOrder(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Order{}, shared.ErrNotFound
		}
		return Order{}, err
	}
	o.Items, err = loadOrderItems(ctx, r.tx, id)
	return o, err
}

func (r *txRepository) SetStatus(ctx context.Context, id string, status Status) error {
	tag, err := r.tx.Exec(ctx, `UPDATE orders SET status=$2, updated_at=NOW() WHERE id=$1 AND deleted_at IS NULL`, id, status)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

func (r *txRepository) MarkConverted(ctx context.Context, id, exitID, exitNumber string) error {
	tag, err := r.tx.Exec(ctx, `UPDATE orders SET status=$2, exit_id=$3, exit_number=$4, updated_at=NOW() WHERE id=$1 AND deleted_at IS NULL`,
		id, StatusConverted, exitID, exitNumber)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

func (r *txRepository) SoftDeleteOrder(ctx context.Context, id string) error {
	tag, err := r.tx.Exec(ctx, `UPDATE orders SET deleted_at = NOW() WHERE id = $1 AND deleted_at IS NULL`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

func (r *txRepository) InsertExit(ctx context.Context, e stock.Exit) (stock.Exit, error) {
	err := r.tx.QueryRow(ctx, `INSERT INTO stock_exits (id, number, client_id, client_name, exit_date, invoice_number, notes, discount, from_order_id, from_order_number)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,NULLIF($9,'')::uuid,NULLIF($10,''))
RETURNING created_at, updated_at`,
		e.ID, e.Number, e.ClientID, e.ClientName, e.Date, e.InvoiceNumber, e.Notes, e.Discount, e.FromOrderID, e.FromOrderNumber).
		Scan(&e.CreatedAt, &e.UpdatedAt)
	if err != nil {
		return stock.Exit{}, err
	}
	return e, nil
}

func (r *txRepository) InsertExitItems(ctx context.Context, exitID string, items []stock.ExitItem) error {
	for _, item := range items {
		if _, err := r.tx.Exec(ctx, `INSERT INTO stock_exit_items (id, exit_id, product_id, product_name, quantity, sale_price, discount_percent)
VALUES ($1,$2,$3,$4,$5,$6,$7)`,
			item.ID, exitID, item.ProductID, item.ProductName, item.Quantity, item.SalePrice, item.DiscountPercent); err != nil {
			return err
		}
	}
	return nil
}

const orderColumns = `id, number, client_id, client_name, order_date, notes, status, discount, COALESCE(exit_id::text,''), COALESCE(exit_number,''), created_at, updated_at, deleted_at`

func scanOrder(row pgx.Row) (Order, error) {
	var o Order
	err := row.Scan(&o.ID, &o.Number, &o.ClientID, &o.ClientName, &o.Date, &o.Notes, &o.Status, &o.Discount,
		&o.ExitID, &o.ExitNumber, &o.CreatedAt, &o.UpdatedAt, &o.DeletedAt)
	return o, err
}

type querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

func loadOrderItems(ctx context.Context, q querier, orderID string) ([]Item, error) {
	rows, err := q.Query(ctx, `SELECT id, product_id, product_name, quantity, sale_price, discount_percent FROM order_items WHERE order_id = $1 ORDER BY id`, orderID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := []Item{}
	for rows.Next() {
		var item Item
		if err := rows.Scan(&item.ID, &item.ProductID, &item.ProductName, &item.Quantity, &item.SalePrice, &item.DiscountPercent); err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

// ListOrders returns a page of live orders, newest first.
func (r *Repository) ListOrders(ctx context.Context, f ListFilters) ([]Order, int, error) {
	page := shared.NewPagination(f.Page, f.PerPage, 0)

	where := `deleted_at IS NULL`
	args := []any{}
	n := 0
	if f.Search != "" {
		n++
		where += fmt.Sprintf(` AND (number ILIKE $%d OR client_name ILIKE $%d)`, n, n)
		args = append(args, "%"+f.Search+"%")
	}
	if f.Status != "" {
		n++
		where += fmt.Sprintf(` AND status = $%d`, n)
		args = append(args, f.Status)
	}
	if !f.From.IsZero() {
		n++
		where += fmt.Sprintf(` AND order_date >= $%d`, n)
		args = append(args, f.From)
	}
	if !f.To.IsZero() {
		n++
		where += fmt.Sprintf(` AND order_date <= $%d`, n)
		args = append(args, f.To)
	}

	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM orders WHERE `+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := fmt.Sprintf(`SELECT %s FROM orders WHERE %s ORDER BY created_at DESC LIMIT %d OFFSET %d`,
		orderColumns, where, page.PerPage, page.Offset())
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	orders := []Order{}
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, 0, err
		}
		orders = append(orders, o)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}
	for i := range orders {
		if orders[i].Items, err = loadOrderItems(ctx, r.pool, orders[i].ID); err != nil {
			return nil, 0, err
		}
	}
	return orders, total, nil
}

// GetOrder loads a single live order with its items.
func (r *Repository) GetOrder(ctx context.Context, id string) (Order, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+orderColumns+` FROM orders WHERE id = $1 AND deleted_at IS NULL`, id)
	o, err := scanOrder(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Order{}, shared.ErrNotFound
		}
		return Order{}, err
	}
	o.Items, err = loadOrderItems(ctx, r.pool, id)
	return o, err
}
