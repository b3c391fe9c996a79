package dashboard

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository reads dashboard aggregates.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// Summary runs all aggregate queries. Sales and expenses are computed from
// line items net of both the line and the document discount.
func (r *Repository) Summary(ctx context.Context, monthStart, monthEnd time.Time) (Summary, error) {
	var s Summary

	err := r.pool.QueryRow(ctx, `
SELECT
  (SELECT COUNT(*) FROM products WHERE deleted_at IS NULL),
  (SELECT COUNT(*) FROM products WHERE deleted_at IS NULL AND current_stock < min_stock),
  (SELECT COUNT(*) FROM clients WHERE deleted_at IS NULL),
  (SELECT COUNT(*) FROM suppliers WHERE deleted_at IS NULL),
  (SELECT COUNT(*) FROM orders WHERE deleted_at IS NULL AND status = 'pending'),
  COALESCE((
    SELECT SUM(i.quantity * i.sale_price * (1 - i.discount_percent/100) * (1 - e.discount/100))
    FROM stock_exit_items i
    JOIN stock_exits e ON e.id = i.exit_id
    WHERE e.deleted_at IS NULL AND e.exit_date >= $1 AND e.exit_date < $2
  ), 0),
  COALESCE((
    SELECT SUM(i.quantity * i.unit_price * (1 - i.discount_percent/100) * (1 - x.discount/100))
    FROM expense_items i
    JOIN expenses x ON x.id = i.expense_id
    WHERE x.deleted_at IS NULL AND x.expense_date >= $1 AND x.expense_date < $2
  ), 0),
  COALESCE((
    SELECT SUM(current_stock * purchase_price) FROM products WHERE deleted_at IS NULL
  ), 0)`,
		monthStart, monthEnd).
		Scan(&s.Products, &s.LowStock, &s.Clients, &s.Suppliers, &s.PendingOrders,
			&s.MonthSales, &s.MonthExpenses, &s.StockValuation)
	if err != nil {
		return Summary{}, err
	}
	return s, nil
}
