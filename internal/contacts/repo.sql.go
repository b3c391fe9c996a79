package contacts

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/comercio-app/comercio/internal/shared"
)

// Repository persists contacts in PostgreSQL. Clients and suppliers share a
// column layout, so every query is parameterised by table name via Kind.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const contactColumns = `id, name, email, phone, address, tax_id, notes, status, created_at, updated_at, deleted_at`

func (r *Repository) List(ctx context.Context, kind Kind, f ListFilters) ([]Contact, int, error) {
	page := shared.NewPagination(f.Page, f.PerPage, 0)

	where := `deleted_at IS NULL`
	args := []any{}
	if f.Search != "" {
		args = append(args, "%"+f.Search+"%")
		where += fmt.Sprintf(` AND (name ILIKE $%d OR email ILIKE $%d OR tax_id ILIKE $%d)`, len(args), len(args), len(args))
	}
	if f.Status != "" {
		args = append(args, f.Status)
		where += fmt.Sprintf(` AND status = $%d`, len(args))
	}

	var total int
	if err := r.pool.QueryRow(ctx, fmt.Sprintf(`SELECT count(*) FROM %s WHERE %s`, kind, where), args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	args = append(args, page.PerPage, page.Offset())
	rows, err := r.pool.Query(ctx, fmt.Sprintf(`SELECT %s FROM %s WHERE %s ORDER BY name ASC LIMIT $%d OFFSET $%d`,
		contactColumns, kind, where, len(args)-1, len(args)), args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	contacts := []Contact{}
	for rows.Next() {
		c, err := scanContact(rows)
		if err != nil {
			return nil, 0, err
		}
		contacts = append(contacts, c)
	}
	return contacts, total, rows.Err()
}

func (r *Repository) Get(ctx context.Context, kind Kind, id string) (Contact, error) {
	row := r.pool.QueryRow(ctx, fmt.Sprintf(`SELECT %s FROM %s WHERE id = $1 AND deleted_at IS NULL`, contactColumns, kind), id)
	c, err := scanContact(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Contact{}, shared.ErrNotFound
		}
		return Contact{}, err
	}
	return c, nil
}

func (r *Repository) Create(ctx context.Context, kind Kind, c Contact) (Contact, error) {
	err := r.pool.QueryRow(ctx, fmt.Sprintf(`INSERT INTO %s (id, name, email, phone, address, tax_id, notes, status)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
RETURNING created_at, updated_at`, kind),
		c.ID, c.Name, c.Email, c.Phone, c.Address, c.TaxID, c.Notes, c.Status).
		Scan(&c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return Contact{}, err
	}
	return c, nil
}

func (r *Repository) Update(ctx context.Context, kind Kind, c Contact) (Contact, error) {
	err := r.pool.QueryRow(ctx, fmt.Sprintf(`UPDATE %s
SET name=$2, email=$3, phone=$4, address=$5, tax_id=$6, notes=$7, status=$8, updated_at=NOW()
WHERE id=$1 AND deleted_at IS NULL
RETURNING created_at, updated_at`, kind),
		c.ID, c.Name, c.Email, c.Phone, c.Address, c.TaxID, c.Notes, c.Status).
		Scan(&c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Contact{}, shared.ErrNotFound
		}
		return Contact{}, err
	}
	return c, nil
}

func (r *Repository) SoftDelete(ctx context.Context, kind Kind, id string) error {
	tag, err := r.pool.Exec(ctx, fmt.Sprintf(`UPDATE %s SET deleted_at = NOW() WHERE id = $1 AND deleted_at IS NULL`, kind), id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

func scanContact(row pgx.Row) (Contact, error) {
	var c Contact
	var deletedAt *time.Time
	err := row.Scan(&c.ID, &c.Name, &c.Email, &c.Phone, &c.Address, &c.TaxID,
		&c.Notes, &c.Status, &c.CreatedAt, &c.UpdatedAt, &deletedAt)
	if err != nil {
		return Contact{}, err
	}
	c.DeletedAt = deletedAt
	return c, nil
}
