package contacts

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
	List(ctx context.Context, kind Kind, f ListFilters) ([]Contact, int, error)
	Get(ctx context.Context, kind Kind, id string) (Contact, error)
	Create(ctx context.Context, kind Kind, c Contact) (Contact, error)
	Update(ctx context.Context, kind Kind, c Contact) (Contact, error)
	SoftDelete(ctx context.Context, kind Kind, id string) error
}

// Service coordinates client and supplier operations.
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

func (s *Service) List(ctx context.Context, kind Kind, f ListFilters) ([]Contact, int, error) {
	return s.repo.List(ctx, kind, f)
}

func (s *Service) Get(ctx context.Context, kind Kind, id string) (Contact, error) {
	return s.repo.Get(ctx, kind, id)
}

func (s *Service) Create(ctx context.Context, kind Kind, req UpsertContactRequest) (Contact, error) {
	if strings.TrimSpace(req.Name) == "" {
		return Contact{}, fmt.Errorf("%w: name is required", httpx.ErrValidation)
	}

	c := Contact{
		ID:      uuid.NewString(),
		Name:    strings.TrimSpace(req.Name),
		Email:   strings.TrimSpace(req.Email),
		Phone:   strings.TrimSpace(req.Phone),
		Address: req.Address,
		TaxID:   strings.TrimSpace(req.TaxID),
		Notes:   req.Notes,
		Status:  req.Status,
	}
	if c.Status == "" {
		c.Status = "active"
	}

	created, err := s.repo.Create(ctx, kind, c)
	if err != nil {
		return Contact{}, err
	}
	s.events.Publish(ctx, realtime.Event{Table: string(kind), Action: realtime.ActionInsert, ID: created.ID, Record: created})
	return created, nil
}

func (s *Service) Update(ctx context.Context, kind Kind, id string, req UpsertContactRequest) (Contact, error) {
	if strings.TrimSpace(req.Name) == "" {
		return Contact{}, fmt.Errorf("%w: name is required", httpx.ErrValidation)
	}

	c, err := s.repo.Get(ctx, kind, id)
	if err != nil {
		return Contact{}, err
	}
	c.Name = strings.TrimSpace(req.Name)
	c.Email = strings.TrimSpace(req.Email)
	c.Phone = strings.TrimSpace(req.Phone)
	c.Address = req.Address
	c.TaxID = strings.TrimSpace(req.TaxID)
	c.Notes = req.Notes
	if req.Status != "" {
		c.Status = req.Status
	}

	updated, err := s.repo.Update(ctx, kind, c)
	if err != nil {
		return Contact{}, err
	}
	s.events.Publish(ctx, realtime.Event{Table: string(kind), Action: realtime.ActionUpdate, ID: updated.ID, Record: updated})
	return updated, nil
}

func (s *Service) Delete(ctx context.Context, kind Kind, id string) error {
	if err := s.repo.SoftDelete(ctx, kind, id); err != nil {
		return err
	}
	s.events.Publish(ctx, realtime.Event{Table: string(kind), Action: realtime.ActionDelete, ID: id})
	return nil
}
