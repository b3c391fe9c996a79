package expenses

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/comercio-app/comercio/internal/numbering"
	"github.com/comercio-app/comercio/internal/realtime"
	"github.com/comercio-app/comercio/internal/shared"
)

// RepositoryPort abstracts repository usage for service.
type RepositoryPort interface {
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
	ListExpenses(ctx context.Context, f ListFilters) ([]Expense, int, error)
	GetExpense(ctx context.Context, id string) (Expense, error)
	SoftDeleteExpense(ctx context.Context, id string) error
}

// AuditPort abstracts audit logging functionality.
type AuditPort interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// Service coordinates expense operations.
type Service struct {
	repo   RepositoryPort
	audit  AuditPort
	events realtime.Publisher
}

// NewService builds Service.
func NewService(repo RepositoryPort, audit AuditPort, events realtime.Publisher) *Service {
	if events == nil {
		events = realtime.NopPublisher{}
	}
	return &Service{repo: repo, audit: audit, events: events}
}

func (s *Service) List(ctx context.Context, f ListFilters) ([]Expense, int, error) {
	return s.repo.ListExpenses(ctx, f)
}

func (s *Service) Get(ctx context.Context, id string) (Expense, error) {
	return s.repo.GetExpense(ctx, id)
}

// Create records an expense document. Product stock is never touched.
func (s *Service) Create(ctx context.Context, req CreateExpenseRequest) (Expense, error) {
	if len(req.Items) == 0 {
		return Expense{}, ErrNoItems
	}
	for _, item := range req.Items {
		if item.Quantity <= 0 {
			return Expense{}, ErrInvalidQuantity
		}
	}

	var expense Expense
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		number, err := tx.NextNumber(ctx, numbering.DocTypeExpense, req.Date)
		if err != nil {
			return err
		}
		supplierName, err := tx.LookupName(ctx, "suppliers", req.SupplierID)
		if err != nil {
			return err
		}

		expense = Expense{
			ID:           uuid.NewString(),
			Number:       number,
			SupplierID:   req.SupplierID,
			SupplierName: supplierName,
			Date:         req.Date,
			Notes:        req.Notes,
			Discount:     req.Discount,
		}
		expense, err = tx.InsertExpense(ctx, expense)
		if err != nil {
			return err
		}

		items := buildItems(req.Items)
		if err := tx.ReplaceExpenseItems(ctx, expense.ID, items); err != nil {
			return err
		}
		expense.Items = items
		return nil
	})
	if err != nil {
		return Expense{}, err
	}

	s.recordAudit(ctx, "expenses.create", expense.ID, map[string]any{"number": expense.Number})
	s.events.Publish(ctx, realtime.Event{Table: "expenses", Action: realtime.ActionInsert, ID: expense.ID, Record: expense})
	return expense, nil
}

// Update replaces the expense header and, when given, its items wholesale.
func (s *Service) Update(ctx context.Context, id string, req UpdateExpenseRequest) (Expense, error) {
	if req.Items != nil {
		for _, item := range *req.Items {
			if item.Quantity <= 0 {
				return Expense{}, ErrInvalidQuantity
			}
		}
	}

	var expense Expense
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		current, err := s.repo.GetExpense(ctx, id)
		if err != nil {
			return err
		}
		expense = current

		if req.Date != nil {
			expense.Date = *req.Date
		}
		if req.Notes != nil {
			expense.Notes = *req.Notes
		}
		if req.Discount != nil {
			expense.Discount = *req.Discount
		}
		expense, err = tx.UpdateExpenseHeader(ctx, expense)
		if err != nil {
			return err
		}
		expense.Items = current.Items

		if req.Items == nil {
			return nil
		}
		items := buildItems(*req.Items)
		if err := tx.ReplaceExpenseItems(ctx, id, items); err != nil {
			return err
		}
		expense.Items = items
		return nil
	})
	if err != nil {
		return Expense{}, err
	}

	s.recordAudit(ctx, "expenses.update", expense.ID, map[string]any{"number": expense.Number})
	s.events.Publish(ctx, realtime.Event{Table: "expenses", Action: realtime.ActionUpdate, ID: expense.ID, Record: expense})
	return expense, nil
}

// Delete soft-deletes the expense.
func (s *Service) Delete(ctx context.Context, id string) error {
	if err := s.repo.SoftDeleteExpense(ctx, id); err != nil {
		return err
	}
	s.recordAudit(ctx, "expenses.delete", id, nil)
	s.events.Publish(ctx, realtime.Event{Table: "expenses", Action: realtime.ActionDelete, ID: id})
	return nil
}

func buildItems(reqs []ItemRequest) []Item {
	items := make([]Item, 0, len(reqs))
	for _, req := range reqs {
		items = append(items, Item{
			ID:              uuid.NewString(),
			ProductName:     req.ProductName,
			Quantity:        req.Quantity,
			UnitPrice:       req.UnitPrice,
			DiscountPercent: req.DiscountPercent,
		})
	}
	return items
}

func (s *Service) recordAudit(ctx context.Context, action, entityID string, meta map[string]any) {
	if s.audit == nil {
		return
	}
	_ = s.audit.Record(ctx, shared.AuditLog{
		ActorID:  shared.UserIDFromContext(ctx),
		Action:   action,
		Entity:   "expenses",
		EntityID: entityID,
		Meta:     meta,
		At:       time.Now().UTC(),
	})
}
