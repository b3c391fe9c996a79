package recyclebin

import (
	"context"
	"time"

	"github.com/comercio-app/comercio/internal/realtime"
	"github.com/comercio-app/comercio/internal/shared"
)

// RepositoryPort abstracts repository usage for service.
type RepositoryPort interface {
	List(ctx context.Context) ([]Item, error)
	Restore(ctx context.Context, table, id string) error
	Purge(ctx context.Context, table, id string) error
	PurgeExpired(ctx context.Context, cutoff time.Time) (int64, error)
}

// AuditPort abstracts audit logging functionality.
type AuditPort interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// Service coordinates recycle bin operations.
type Service struct {
	repo   RepositoryPort
	audit  AuditPort
	events realtime.Publisher
	now    func() time.Time
}

// NewService builds Service.
func NewService(repo RepositoryPort, audit AuditPort, events realtime.Publisher) *Service {
	if events == nil {
		events = realtime.NopPublisher{}
	}
	return &Service{repo: repo, audit: audit, events: events, now: time.Now}
}

// List returns binned records annotated with age and purge-eligibility date.
func (s *Service) List(ctx context.Context) ([]Item, error) {
	items, err := s.repo.List(ctx)
	if err != nil {
		return nil, err
	}
	now := s.now()
	for i := range items {
		items[i].DaysInBin = int(now.Sub(items[i].DeletedAt).Hours() / 24)
		items[i].PurgeAt = items[i].DeletedAt.AddDate(0, 0, RetentionDays)
	}
	return items, nil
}

// Restore brings a record back as it was before deletion.
func (s *Service) Restore(ctx context.Context, table, id string) error {
	if err := s.repo.Restore(ctx, table, id); err != nil {
		return err
	}
	s.recordAudit(ctx, "recyclebin.restore", table, id)
	s.events.Publish(ctx, realtime.Event{Table: table, Action: realtime.ActionInsert, ID: id})
	return nil
}

// Purge permanently removes a binned record.
func (s *Service) Purge(ctx context.Context, table, id string) error {
	if err := s.repo.Purge(ctx, table, id); err != nil {
		return err
	}
	s.recordAudit(ctx, "recyclebin.purge", table, id)
	return nil
}

// PurgeExpired removes everything past retention. Called from the worker cron.
func (s *Service) PurgeExpired(ctx context.Context) (int64, error) {
	cutoff := s.now().AddDate(0, 0, -RetentionDays)
	return s.repo.PurgeExpired(ctx, cutoff)
}

func (s *Service) recordAudit(ctx context.Context, action, table, id string) {
	if s.audit == nil {
		return
	}
	_ = s.audit.Record(ctx, shared.AuditLog{
		ActorID:  shared.UserIDFromContext(ctx),
		Action:   action,
		Entity:   table,
		EntityID: id,
		At:       time.Now().UTC(),
	})
}
