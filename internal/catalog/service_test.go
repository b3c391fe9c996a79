package catalog

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/comercio-app/comercio/internal/platform/httpx"
	"github.com/comercio-app/comercio/internal/shared"
)

type memoryRepo struct {
	products   map[string]Product
	categories map[string]Category
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{products: map[string]Product{}, categories: map[string]Category{}}
}

func (r *memoryRepo) ListProducts(_ context.Context, f ListFilters) ([]Product, int, error) {
	out := []Product{}
	for _, p := range r.products {
		if p.DeletedAt != nil {
			continue
		}
		if f.Search != "" && !strings.Contains(strings.ToLower(p.Name), strings.ToLower(f.Search)) {
			continue
		}
		out = append(out, p)
	}
	return out, len(out), nil
}

func (r *memoryRepo) GetProduct(_ context.Context, id string) (Product, error) {
	p, ok := r.products[id]
	if !ok || p.DeletedAt != nil {
		return Product{}, shared.ErrNotFound
	}
	return p, nil
}

func (r *memoryRepo) CreateProduct(_ context.Context, p Product) (Product, error) {
	for _, existing := range r.products {
		if existing.Code == p.Code && existing.DeletedAt == nil {
			return Product{}, ErrDuplicateCode
		}
	}
	p.CreatedAt = time.Now()
	p.UpdatedAt = p.CreatedAt
	r.products[p.ID] = p
	return p, nil
}

func (r *memoryRepo) UpdateProduct(_ context.Context, p Product) (Product, error) {
	existing, ok := r.products[p.ID]
	if !ok || existing.DeletedAt != nil {
		return Product{}, shared.ErrNotFound
	}
	p.CurrentStock = existing.CurrentStock
	p.UpdatedAt = time.Now()
	r.products[p.ID] = p
	return p, nil
}

func (r *memoryRepo) SoftDeleteProduct(_ context.Context, id string) error {
	p, ok := r.products[id]
	if !ok || p.DeletedAt != nil {
		return shared.ErrNotFound
	}
	now := time.Now()
	p.DeletedAt = &now
	r.products[id] = p
	return nil
}

func (r *memoryRepo) LowStockProducts(_ context.Context) ([]Product, error) {
	out := []Product{}
	for _, p := range r.products {
		if p.DeletedAt == nil && p.Status == StatusActive && p.LowOnStock() {
			out = append(out, p)
		}
	}
	return out, nil
}

func (r *memoryRepo) ListCategories(_ context.Context, _ ListFilters) ([]Category, int, error) {
	out := []Category{}
	for _, c := range r.categories {
		if c.DeletedAt == nil {
			out = append(out, c)
		}
	}
	return out, len(out), nil
}

func (r *memoryRepo) GetCategory(_ context.Context, id string) (Category, error) {
	c, ok := r.categories[id]
	if !ok || c.DeletedAt != nil {
		return Category{}, shared.ErrNotFound
	}
	return c, nil
}

func (r *memoryRepo) CreateCategory(_ context.Context, c Category) (Category, error) {
	c.CreatedAt = time.Now()
	c.UpdatedAt = c.CreatedAt
	r.categories[c.ID] = c
	return c, nil
}

func (r *memoryRepo) UpdateCategory(_ context.Context, c Category) (Category, error) {
	if _, ok := r.categories[c.ID]; !ok {
		return Category{}, shared.ErrNotFound
	}
	c.UpdatedAt = time.Now()
	r.categories[c.ID] = c
	return c, nil
}

func (r *memoryRepo) SoftDeleteCategory(_ context.Context, id string) error {
	c, ok := r.categories[id]
	if !ok || c.DeletedAt != nil {
		return shared.ErrNotFound
	}
	now := time.Now()
	c.DeletedAt = &now
	r.categories[id] = c
	return nil
}

func TestCreateCategoryDefaults(t *testing.T) {
	repo := newMemoryRepo()
	svc := NewService(repo, nil)
	ctx := context.Background()

	created, err := svc.CreateCategory(ctx, CreateCategoryRequest{Name: "Bebidas"})
	require.NoError(t, err)
	require.NotEmpty(t, created.ID)
	require.Equal(t, StatusActive, created.Status)
	require.False(t, created.CreatedAt.IsZero())
	require.Zero(t, created.ProductCount)
}

func TestCreateCategoryRequiresName(t *testing.T) {
	svc := NewService(newMemoryRepo(), nil)

	_, err := svc.CreateCategory(context.Background(), CreateCategoryRequest{Name: "   "})
	require.ErrorIs(t, err, httpx.ErrValidation)
}

func TestCreateProductDuplicateCode(t *testing.T) {
	svc := NewService(newMemoryRepo(), nil)
	ctx := context.Background()

	_, err := svc.CreateProduct(ctx, CreateProductRequest{Code: "P-001", Name: "Agua 1L"})
	require.NoError(t, err)

	_, err = svc.CreateProduct(ctx, CreateProductRequest{Code: "P-001", Name: "Agua 5L"})
	require.ErrorIs(t, err, ErrDuplicateCode)
}

func TestUpdateProductNeverWritesStock(t *testing.T) {
	repo := newMemoryRepo()
	svc := NewService(repo, nil)
	ctx := context.Background()

	created, err := svc.CreateProduct(ctx, CreateProductRequest{Code: "P-002", Name: "Sumo", OpeningStock: 7})
	require.NoError(t, err)
	require.Equal(t, 7, created.CurrentStock)

	name := "Sumo de Laranja"
	updated, err := svc.UpdateProduct(ctx, created.ID, UpdateProductRequest{Name: &name})
	require.NoError(t, err)
	require.Equal(t, "Sumo de Laranja", updated.Name)
	require.Equal(t, 7, updated.CurrentStock)
}

func TestDeleteProductHidesFromList(t *testing.T) {
	repo := newMemoryRepo()
	svc := NewService(repo, nil)
	ctx := context.Background()

	created, err := svc.CreateProduct(ctx, CreateProductRequest{Code: "P-003", Name: "Cerveja"})
	require.NoError(t, err)

	require.NoError(t, svc.DeleteProduct(ctx, created.ID))

	_, err = svc.GetProduct(ctx, created.ID)
	require.ErrorIs(t, err, shared.ErrNotFound)

	products, total, err := svc.ListProducts(ctx, ListFilters{})
	require.NoError(t, err)
	require.Empty(t, products)
	require.Zero(t, total)
}

func TestLowStockProducts(t *testing.T) {
	repo := newMemoryRepo()
	svc := NewService(repo, nil)
	ctx := context.Background()

	_, err := svc.CreateProduct(ctx, CreateProductRequest{Code: "A", Name: "Low", OpeningStock: 1, MinStock: 5})
	require.NoError(t, err)
	_, err = svc.CreateProduct(ctx, CreateProductRequest{Code: "B", Name: "OK", OpeningStock: 10, MinStock: 5})
	require.NoError(t, err)

	low, err := svc.LowStockProducts(ctx)
	require.NoError(t, err)
	require.Len(t, low, 1)
	require.Equal(t, "Low", low[0].Name)
}
