package catalog

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/comercio-app/comercio/internal/platform/httpx"
	"github.com/comercio-app/comercio/internal/realtime"
)

// RepositoryPort abstracts repository usage for service.
type RepositoryPort interface {
	ListProducts(ctx context.Context, f ListFilters) ([]Product, int, error)
	GetProduct(ctx context.Context, id string) (Product, error)
	CreateProduct(ctx context.Context, p Product) (Product, error)
	UpdateProduct(ctx context.Context, p Product) (Product, error)
	SoftDeleteProduct(ctx context.Context, id string) error
	LowStockProducts(ctx context.Context) ([]Product, error)

	ListCategories(ctx context.Context, f ListFilters) ([]Category, int, error)
	GetCategory(ctx context.Context, id string) (Category, error)
	CreateCategory(ctx context.Context, c Category) (Category, error)
	UpdateCategory(ctx context.Context, c Category) (Category, error)
	SoftDeleteCategory(ctx context.Context, id string) error
}

// Service coordinates catalog operations.
type Service struct {
	repo   RepositoryPort
	events realtime.Publisher
}

// NewService builds Service.
func NewService(repo RepositoryPort, events realtime.Publisher) *Service {
	if events == nil {
		events = realtime.NopPublisher{}
	}
	return &Service{repo: repo, events: events}
}

func (s *Service) ListProducts(ctx context.Context, f ListFilters) ([]Product, int, error) {
	return s.repo.ListProducts(ctx, f)
}

func (s *Service) GetProduct(ctx context.Context, id string) (Product, error) {
	return s.repo.GetProduct(ctx, id)
}

func (s *Service) CreateProduct(ctx context.Context, req CreateProductRequest) (Product, error) {
	if strings.TrimSpace(req.Code) == "" {
		return Product{}, fmt.Errorf("%w: product code is required", httpx.ErrValidation)
	}
	if strings.TrimSpace(req.Name) == "" {
		return Product{}, fmt.Errorf("%w: product name is required", httpx.ErrValidation)
	}

	p := Product{
		ID:            uuid.NewString(),
		Code:          strings.TrimSpace(req.Code),
		Name:          strings.TrimSpace(req.Name),
		Description:   req.Description,
		CategoryName:  strings.TrimSpace(req.CategoryName),
		PurchasePrice: req.PurchasePrice,
		SalePrice:     req.SalePrice,
		CurrentStock:  req.OpeningStock,
		MinStock:      req.MinStock,
		Status:        req.Status,
	}
	if p.Status == "" {
		p.Status = StatusActive
	}

	created, err := s.repo.CreateProduct(ctx, p)
	if err != nil {
		return Product{}, err
	}
	s.events.Publish(ctx, realtime.Event{Table: "products", Action: realtime.ActionInsert, ID: created.ID, Record: created})
	return created, nil
}

func (s *Service) UpdateProduct(ctx context.Context, id string, req UpdateProductRequest) (Product, error) {
	p, err := s.repo.GetProduct(ctx, id)
	if err != nil {
		return Product{}, err
	}

	if req.Code != nil {
		p.Code = strings.TrimSpace(*req.Code)
	}
	if req.Name != nil {
		p.Name = strings.TrimSpace(*req.Name)
	}
	if req.Description != nil {
		p.Description = *req.Description
	}
	if req.CategoryName != nil {
		p.CategoryName = strings.TrimSpace(*req.CategoryName)
	}
	if req.PurchasePrice != nil {
		p.PurchasePrice = *req.PurchasePrice
	}
	if req.SalePrice != nil {
		p.SalePrice = *req.SalePrice
	}
	if req.MinStock != nil {
		p.MinStock = *req.MinStock
	}
	if req.Status != nil {
		p.Status = *req.Status
	}
	if p.Code == "" {
		return Product{}, fmt.Errorf("%w: product code is required", httpx.ErrValidation)
	}
	if p.Name == "" {
		return Product{}, fmt.Errorf("%w: product name is required", httpx.ErrValidation)
	}

	updated, err := s.repo.UpdateProduct(ctx, p)
	if err != nil {
		return Product{}, err
	}
	s.events.Publish(ctx, realtime.Event{Table: "products", Action: realtime.ActionUpdate, ID: updated.ID, Record: updated})
	return updated, nil
}

func (s *Service) DeleteProduct(ctx context.Context, id string) error {
	if err := s.repo.SoftDeleteProduct(ctx, id); err != nil {
		return err
	}
	s.events.Publish(ctx, realtime.Event{Table: "products", Action: realtime.ActionDelete, ID: id})
	return nil
}

func (s *Service) LowStockProducts(ctx context.Context) ([]Product, error) {
	return s.repo.LowStockProducts(ctx)
}

func (s *Service) ListCategories(ctx context.Context, f ListFilters) ([]Category, int, error) {
	return s.repo.ListCategories(ctx, f)
}

func (s *Service) GetCategory(ctx context.Context, id string) (Category, error) {
	return s.repo.GetCategory(ctx, id)
}

func (s *Service) CreateCategory(ctx context.Context, req CreateCategoryRequest) (Category, error) {
	if strings.TrimSpace(req.Name) == "" {
		return Category{}, fmt.Errorf("%w: category name is required", httpx.ErrValidation)
	}

	c := Category{
		ID:          uuid.NewString(),
		Name:        strings.TrimSpace(req.Name),
		Description: req.Description,
		Status:      req.Status,
	}
	if c.Status == "" {
		c.Status = StatusActive
	}

	created, err := s.repo.CreateCategory(ctx, c)
	if err != nil {
		return Category{}, err
	}
	s.events.Publish(ctx, realtime.Event{Table: "categories", Action: realtime.ActionInsert, ID: created.ID, Record: created})
	return created, nil
}

func (s *Service) UpdateCategory(ctx context.Context, id string, req UpdateCategoryRequest) (Category, error) {
	c, err := s.repo.GetCategory(ctx, id)
	if err != nil {
		return Category{}, err
	}

	if req.Name != nil {
		c.Name = strings.TrimSpace(*req.Name)
	}
	if req.Description != nil {
		c.Description = *req.Description
	}
	if req.Status != nil {
		c.Status = *req.Status
	}
	if c.Name == "" {
		return Category{}, fmt.Errorf("%w: category name is required", httpx.ErrValidation)
	}

	updated, err := s.repo.UpdateCategory(ctx, c)
	if err != nil {
		return Category{}, err
	}
	s.events.Publish(ctx, realtime.Event{Table: "categories", Action: realtime.ActionUpdate, ID: updated.ID, Record: updated})
	return updated, nil
}

func (s *Service) DeleteCategory(ctx context.Context, id string) error {
	if err := s.repo.SoftDeleteCategory(ctx, id); err != nil {
		return err
	}
	s.events.Publish(ctx, realtime.Event{Table: "categories", Action: realtime.ActionDelete, ID: id})
	return nil
}
