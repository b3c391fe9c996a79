package catalog

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/comercio-app/comercio/internal/shared"
)

// Repository persists catalog data in PostgreSQL.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// DB is the query surface shared by *pgxpool.Pool and pgx.Tx. Stock
// adjustments are exposed on it so document workflows can fold them into
// their own transactions.
type DB interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

const productColumns = `id, code, name, description, category_name, purchase_price, sale_price, current_stock, min_stock, status, created_at, updated_at, deleted_at`

// AdjustStock applies a signed stock delta in a single statement, clamping the
// result at zero. One round trip, no intermediate read, so concurrent
// adjustments serialize on the row instead of losing updates.
func AdjustStock(ctx context.Context, db DB, productID string, delta int) (int, error) {
	var stock int
	err := db.QueryRow(ctx, `UPDATE products
SET current_stock = GREATEST(0, current_stock + $2), updated_at = NOW()
WHERE id = $1 AND deleted_at IS NULL
RETURNING current_stock`, productID, delta).Scan(&stock)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, fmt.Errorf("catalog: adjust stock %s: %w", productID, shared.ErrNotFound)
		}
		return 0, fmt.Errorf("catalog: adjust stock %s: %w", productID, err)
	}
	return stock, nil
}

func (r *Repository) ListProducts(ctx context.Context, f ListFilters) ([]Product, int, error) {
	page := shared.NewPagination(f.Page, f.PerPage, 0)

	where := `deleted_at IS NULL`
	args := []any{}
	if f.Search != "" {
		args = append(args, "%"+f.Search+"%")
		where += fmt.Sprintf(` AND (name ILIKE $%d OR code ILIKE $%d)`, len(args), len(args))
	}
	if f.Status != "" {
		args = append(args, string(f.Status))
		where += fmt.Sprintf(` AND status = $%d`, len(args))
	}

	var total int
	if err := r.pool.QueryRow(ctx, `SELECT count(*) FROM products WHERE `+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	args = append(args, page.PerPage, page.Offset())
	rows, err := r.pool.Query(ctx, fmt.Sprintf(`SELECT %s FROM products WHERE %s ORDER BY name ASC LIMIT $%d OFFSET $%d`,
		productColumns, where, len(args)-1, len(args)), args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	products := []Product{}
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, 0, err
		}
		products = append(products, p)
	}
	return products, total, rows.Err()
}

func (r *Repository) GetProduct(ctx context.Context, id string) (Product, error) {
	row := r.pool.QueryRow(ctx, fmt.Sprintf(`SELECT %s FROM products WHERE id = $1 AND deleted_at IS NULL`, productColumns), id)
	p, err := scanProduct(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Product{}, shared.ErrNotFound
		}
		return Product{}, err
	}
	return p, nil
}

func (r *Repository) CreateProduct(ctx context.Context, p Product) (Product, error) {
	err := r.pool.QueryRow(ctx, `INSERT INTO products (id, code, name, description, category_name, purchase_price, sale_price, current_stock, min_stock, status)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
RETURNING created_at, updated_at`,
		p.ID, p.Code, p.Name, p.Description, p.CategoryName, p.PurchasePrice, p.SalePrice, p.CurrentStock, p.MinStock, string(p.Status)).
		Scan(&p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return Product{}, mapPgError(err)
	}
	return p, nil
}

func (r *Repository) UpdateProduct(ctx context.Context, p Product) (Product, error) {
	// current_stock is deliberately absent: only movements change it.
	err := r.pool.QueryRow(ctx, `UPDATE products
SET code=$2, name=$3, description=$4, category_name=$5, purchase_price=$6, sale_price=$7, min_stock=$8, status=$9, updated_at=NOW()
WHERE id=$1 AND deleted_at IS NULL
RETURNING current_stock, created_at, updated_at`,
		p.ID, p.Code, p.Name, p.Description, p.CategoryName, p.PurchasePrice, p.SalePrice, p.MinStock, string(p.Status)).
		Scan(&p.CurrentStock, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Product{}, shared.ErrNotFound
		}
		return Product{}, mapPgError(err)
	}
	return p, nil
}

func (r *Repository) SoftDeleteProduct(ctx context.Context, id string) error {
	return softDelete(ctx, r.pool, "products", id)
}

// LowStockProducts returns active products at or below their reorder level.
func (r *Repository) LowStockProducts(ctx context.Context) ([]Product, error) {
	rows, err := r.pool.Query(ctx, fmt.Sprintf(`SELECT %s FROM products
WHERE deleted_at IS NULL AND status = 'active' AND min_stock > 0 AND current_stock < min_stock
ORDER BY name ASC`, productColumns))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	products := []Product{}
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, err
		}
		products = append(products, p)
	}
	return products, rows.Err()
}

const categoryColumns = `c.id, c.name, c.description, c.status, c.created_at, c.updated_at, c.deleted_at,
(SELECT count(*) FROM products p WHERE p.category_name = c.name AND p.deleted_at IS NULL) AS product_count`

func (r *Repository) ListCategories(ctx context.Context, f ListFilters) ([]Category, int, error) {
	page := shared.NewPagination(f.Page, f.PerPage, 0)

	where := `c.deleted_at IS NULL`
	args := []any{}
	if f.Search != "" {
		args = append(args, "%"+f.Search+"%")
		where += fmt.Sprintf(` AND c.name ILIKE $%d`, len(args))
	}

	var total int
	if err := r.pool.QueryRow(ctx, `SELECT count(*) FROM categories c WHERE `+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	args = append(args, page.PerPage, page.Offset())
	rows, err := r.pool.Query(ctx, fmt.Sprintf(`SELECT %s FROM categories c WHERE %s ORDER BY c.name ASC LIMIT $%d OFFSET $%d`,
		categoryColumns, where, len(args)-1, len(args)), args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	categories := []Category{}
	for rows.Next() {
		c, err := scanCategory(rows)
		if err != nil {
			return nil, 0, err
		}
		categories = append(categories, c)
	}
	return categories, total, rows.Err()
}

func (r *Repository) GetCategory(ctx context.Context, id string) (Category, error) {
	row := r.pool.QueryRow(ctx, fmt.Sprintf(`SELECT %s FROM categories c WHERE c.id = $1 AND c.deleted_at IS NULL`, categoryColumns), id)
	c, err := scanCategory(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Category{}, shared.ErrNotFound
		}
		return Category{}, err
	}
	return c, nil
}

func (r *Repository) CreateCategory(ctx context.Context, c Category) (Category, error) {
	err := r.pool.QueryRow(ctx, `INSERT INTO categories (id, name, description, status)
VALUES ($1,$2,$3,$4)
RETURNING created_at, updated_at`, c.ID, c.Name, c.Description, string(c.Status)).
		Scan(&c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return Category{}, mapPgError(err)
	}
	return c, nil
}

func (r *Repository) UpdateCategory(ctx context.Context, c Category) (Category, error) {
	err := r.pool.QueryRow(ctx, `UPDATE categories
SET name=$2, description=$3, status=$4, updated_at=NOW()
WHERE id=$1 AND deleted_at IS NULL
RETURNING created_at, updated_at`, c.ID, c.Name, c.Description, string(c.Status)).
		Scan(&c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Category{}, shared.ErrNotFound
		}
		return Category{}, mapPgError(err)
	}
	return c, nil
}

func (r *Repository) SoftDeleteCategory(ctx context.Context, id string) error {
	return softDelete(ctx, r.pool, "categories", id)
}

func softDelete(ctx context.Context, db DB, table, id string) error {
	tag, err := db.Exec(ctx, fmt.Sprintf(`UPDATE %s SET deleted_at = NOW() WHERE id = $1 AND deleted_at IS NULL`, table), id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

func scanProduct(row pgx.Row) (Product, error) {
	var p Product
	var deletedAt *time.Time
	err := row.Scan(&p.ID, &p.Code, &p.Name, &p.Description, &p.CategoryName,
		&p.PurchasePrice, &p.SalePrice, &p.CurrentStock, &p.MinStock, &p.Status,
		&p.CreatedAt, &p.UpdatedAt, &deletedAt)
	if err != nil {
		return Product{}, err
	}
	p.DeletedAt = deletedAt
	return p, nil
}

func scanCategory(row pgx.Row) (Category, error) {
	var c Category
	var deletedAt *time.Time
	err := row.Scan(&c.ID, &c.Name, &c.Description, &c.Status,
		&c.CreatedAt, &c.UpdatedAt, &deletedAt, &c.ProductCount)
	if err != nil {
		return Category{}, err
	}
	c.DeletedAt = deletedAt
	return c, nil
}

func mapPgError(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return ErrDuplicateCode
	}
	return err
}
