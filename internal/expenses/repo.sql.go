package expenses

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/comercio-app/comercio/internal/numbering"
	"github.com/comercio-app/comercio/internal/platform/db"
	"github.com/comercio-app/comercio/internal/shared"
)

// Repository persists expenses in PostgreSQL.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// TxRepository exposes the transactional operations used by the service.
type TxRepository interface {
	NextNumber(ctx context.Context, docType numbering.DocumentType, date time.Time) (string, error)
	LookupName(ctx context.Context, table, id string) (string, error)
	InsertExpense(ctx context.Context, e Expense) (Expense, error)
	UpdateExpenseHeader(ctx context.Context, e Expense) (Expense, error)
	ReplaceExpenseItems(ctx context.Context, expenseID string, items []Item) error
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
			return "", fmt.Errorf("expenses: %s %s: %w", table, id, shared.ErrNotFound)
		}
		return "", err
	}
	return name, nil
}

func (r *txRepository) InsertExpense(ctx context.Context, e Expense) (Expense, error) {
	err := r.tx.QueryRow(ctx, `INSERT INTO expenses (id, number, supplier_id, supplier_name, expense_date, notes, discount)
VALUES ($1,$2,$3,$4,$5,$6,$7)
RETURNING created_at, updated_at`,
		e.ID, e.Number, e.SupplierID, e.SupplierName, e.Date, e.Notes, e.Discount).
		Scan(&e.CreatedAt, &e.UpdatedAt)
	if err != nil {
		return Expense{}, err
	}
	return e, nil
}

func (r *txRepository) UpdateExpenseHeader(ctx context.Context, e Expense) (Expense, error) {
	err := r.tx.QueryRow(ctx, `UPDATE expenses
SET expense_date=$2, notes=$3, discount=$4, updated_at=NOW()
WHERE id=$1 AND deleted_at IS NULL
RETURNING created_at, updated_at`,
		e.ID, e.Date, e.Notes, e.Discount).
		Scan(&e.CreatedAt, &e.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Expense{}, shared.ErrNotFound
		}
		return Expense{}, err
	}
	return e, nil
}

func (r *txRepository) ReplaceExpenseItems(ctx context.Context, expenseID string, items []Item) error {
	if _, err := r.tx.Exec(ctx, `DELETE FROM expense_items WHERE expense_id = $1`, expenseID); err != nil {
		return err
	}
	for _, item := range items {
		if _, err := r.tx.Exec(ctx, `INSERT INTO expense_items (id, expense_id, product_name, quantity, unit_price, discount_percent)
VALUES ($1,$2,$3,$4,$5,$6)`,
			item.ID, expenseID, item.ProductName, item.Quantity, item.UnitPrice, item.DiscountPercent); err != nil {
			return err
		}
	}
	return nil
}

const expenseColumns = `id, number, supplier_id, supplier_name, expense_date, notes, discount, created_at, updated_at, deleted_at`

func scanExpense(row pgx.Row) (Expense, error) {
	var e Expense
	err := row.Scan(&e.ID, &e.Number, &e.SupplierID, &e.SupplierName, &e.Date, &e.Notes, &e.Discount,
		&e.CreatedAt, &e.UpdatedAt, &e.DeletedAt)
	return e, err
}

func (r *Repository) loadItems(ctx context.Context, expenseID string) ([]Item, error) {
	rows, err := r.pool.Query(ctx, `SELECT id, product_name, quantity, unit_price, discount_percent FROM expense_items WHERE expense_id = $1 ORDER BY id`, expenseID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := []Item{}
	for rows.Next() {
		var item Item
		if err := rows.Scan(&item.ID, &item.ProductName, &item.Quantity, &item.UnitPrice, &item.DiscountPercent); err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

// ListExpenses returns a page of live expenses, newest first.
func (r *Repository) ListExpenses(ctx context.Context, f ListFilters) ([]Expense, int, error) {
	page := shared.NewPagination(f.Page, f.PerPage, 0)

	where := `deleted_at IS NULL`
	args := []any{}
	n := 0
	if f.Search != "" {
		n++
		where += fmt.Sprintf(` AND (number ILIKE $%d OR supplier_name ILIKE $%d)`, n, n)
		args = append(args, "%"+f.Search+"%")
	}
	if !f.From.IsZero() {
		n++
		where += fmt.Sprintf(` AND expense_date >= $%d`, n)
		args = append(args, f.From)
	}
	if !f.To.IsZero() {
		n++
		where += fmt.Sprintf(` AND expense_date <= $%d`, n)
		args = append(args, f.To)
	}

	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM expenses WHERE `+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := fmt.Sprintf(`SELECT %s FROM expenses WHERE %s ORDER BY created_at DESC LIMIT %d OFFSET %d`,
		expenseColumns, where, page.PerPage, page.Offset())
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	expenses := []Expense{}
	for rows.Next() {
		e, err := scanExpense(rows)
		if err != nil {
			return nil, 0, err
		}
		expenses = append(expenses, e)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}
	for i := range expenses {
		if expenses[i].Items, err = r.loadItems(ctx, expenses[i].ID); err != nil {
			return nil, 0, err
		}
	}
	return expenses, total, nil
}

// GetExpense loads a single live expense with its items.
func (r *Repository) GetExpense(ctx context.Context, id string) (Expense, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+expenseColumns+` FROM expenses WHERE id = $1 AND deleted_at IS NULL`, id)
	e, err := scanExpense(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Expense{}, shared.ErrNotFound
		}
		return Expense{}, err
	}
	e.Items, err = r.loadItems(ctx, id)
	return e, err
}

// SoftDeleteExpense moves the expense to the recycle bin.
func (r *Repository) SoftDeleteExpense(ctx context.Context, id string) error {
	tag, err := r.pool.Exec(ctx, `UPDATE expenses SET deleted_at = NOW() WHERE id = $1 AND deleted_at IS NULL`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}
