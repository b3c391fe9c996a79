package orders

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/comercio-app/comercio/internal/numbering"
	"github.com/comercio-app/comercio/internal/realtime"
	"github.com/comercio-app/comercio/internal/shared"
	"github.com/comercio-app/comercio/internal/stock"
)

// RepositoryPort abstracts repository usage for service.
type RepositoryPort interface {
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
	ListOrders(ctx context.Context, f ListFilters) ([]Order, int, error)
	GetOrder(ctx context.Context, id string) (Order, error)
}

// AuditPort abstracts audit logging functionality.
type AuditPort interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// Service coordinates order operations.
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

func (s *Service) List(ctx context.Context, f ListFilters) ([]Order, int, error) {
	return s.repo.ListOrders(ctx, f)
}

func (s *Service) Get(ctx context.Context, id string) (Order, error) {
	return s.repo.GetOrder(ctx, id)
}

// Create records a pending order. Stock is not touched until conversion.
func (s *Service) Create(ctx context.Context, req CreateOrderRequest) (Order, error) {
	if len(req.Items) == 0 {
		return Order{}, ErrNoItems
	}
	for _, item := range req.Items {
		if item.Quantity <= 0 {
			return Order{}, ErrInvalidQuantity
		}
	}

	var order Order
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		number, err := tx.NextNumber(ctx, numbering.DocTypeOrder, req.Date)
		if err != nil {
			return err
		}
		clientName, err := tx.LookupName(ctx, "clients", req.ClientID)
		if err != nil {
			return err
		}

		order = Order{
			ID:         uuid.NewString(),
			Number:     number,
			ClientID:   req.ClientID,
			ClientName: clientName,
			Date:       req.Date,
			Notes:      req.Notes,
			Status:     StatusPending,
			Discount:   req.Discount,
		}
		order, err = tx.InsertOrder(ctx, order)
		if err != nil {
			return err
		}

		items, err := s.buildItems(ctx, tx, req.Items)
		if err != nil {
			return err
		}
		if err := tx.ReplaceOrderItems(ctx, order.ID, items); err != nil {
			return err
		}
		order.Items = items
		return nil
	})
	if err != nil {
		return Order{}, err
	}

	s.recordAudit(ctx, "orders.create", order.ID, map[string]any{"number": order.Number})
	s.events.Publish(ctx, realtime.Event{Table: "orders", Action: realtime.ActionInsert, ID: order.ID, Record: order})
	return order, nil
}

// Update edits a pending order. Cancelled and converted orders are frozen.
func (s *Service) Update(ctx context.Context, id string, req UpdateOrderRequest) (Order, error) {
	if req.Items != nil {
		for _, item := range *req.Items {
			if item.Quantity <= 0 {
				return Order{}, ErrInvalidQuantity
			}
		}
	}

	var order Order
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		current, err := tx.GetOrderForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if current.Status == StatusConverted {
			return ErrAlreadyConverted
		}
		if current.Status != StatusPending {
			return ErrNotPending
		}
		order = current

		if req.Date != nil {
			order.Date = *req.Date
		}
		if req.Notes != nil {
			order.Notes = *req.Notes
		}
		if req.Discount != nil {
			order.Discount = *req.Discount
		}
		order, err = tx.UpdateOrderHeader(ctx, order)
		if err != nil {
			return err
		}
		order.Items = current.Items

		if req.Items == nil {
			return nil
		}
		items, err := s.buildItems(ctx, tx, *req.Items)
		if err != nil {
			return err
		}
		if err := tx.ReplaceOrderItems(ctx, id, items); err != nil {
			return err
		}
		order.Items = items
		return nil
	})
	if err != nil {
		return Order{}, err
	}

	s.recordAudit(ctx, "orders.update", order.ID, map[string]any{"number": order.Number})
	s.events.Publish(ctx, realtime.Event{Table: "orders", Action: realtime.ActionUpdate, ID: order.ID, Record: order})
	return order, nil
}

// Cancel marks a pending order cancelled.
func (s *Service) Cancel(ctx context.Context, id string) (Order, error) {
	var order Order
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		current, err := tx.GetOrderForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if current.Status == StatusConverted {
			return ErrAlreadyConverted
		}
		if current.Status != StatusPending {
			return ErrNotPending
		}
		if err := tx.SetStatus(ctx, id, StatusCancelled); err != nil {
			return err
		}
		order = current
		order.Status = StatusCancelled
		return nil
	})
	if err != nil {
		return Order{}, err
	}

	s.recordAudit(ctx, "orders.cancel", order.ID, map[string]any{"number": order.Number})
	s.events.Publish(ctx, realtime.Event{Table: "orders", Action: realtime.ActionUpdate, ID: order.ID, Record: order})
	return order, nil
}

// Delete soft-deletes a non-converted order. Converted orders stay as the
// audit trail behind their exit document. The status check and the delete
// share one transaction under the row lock, so a conversion committing in
// between cannot slip a converted order into the bin.
func (s *Service) Delete(ctx context.Context, id string) error {
	var number string
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		order, err := tx.GetOrderForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if order.Status == StatusConverted {
			return ErrAlreadyConverted
		}
		number = order.Number
		return tx.SoftDeleteOrder(ctx, id)
	})
	if err != nil {
		return err
	}
	s.recordAudit(ctx, "orders.delete", id, map[string]any{"number": number})
	s.events.Publish(ctx, realtime.Event{Table: "orders", Action: realtime.ActionDelete, ID: id})
	return nil
}

// Convert materializes a pending order into a stock exit. The order row is
// locked first, so a concurrent second attempt blocks, then sees the
// converted status and fails; duplicate exits cannot be produced.
func (s *Service) Convert(ctx context.Context, id string, req ConvertRequest) (Order, stock.Exit, error) {
	var (
		order Order
		exit  stock.Exit
	)
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		current, err := tx.GetOrderForUpdate(ctx, id)
		if err != nil {
			return err
		}
		switch current.Status {
		case StatusConverted:
			return ErrAlreadyConverted
		case StatusCancelled:
			return ErrNotPending
		}
		if len(current.Items) == 0 {
			return ErrNoItems
		}

		date := req.Date
		if date.IsZero() {
			date = time.Now().UTC()
		}
		number, err := tx.NextNumber(ctx, numbering.DocTypeStockExit, date)
		if err != nil {
			return err
		}

		exit = stock.Exit{
			ID:              uuid.NewString(),
			Number:          number,
			ClientID:        current.ClientID,
			ClientName:      current.ClientName,
			Date:            date,
			InvoiceNumber:   req.InvoiceNumber,
			Notes:           current.Notes,
			Discount:        current.Discount,
			FromOrderID:     current.ID,
			FromOrderNumber: current.Number,
		}
		exit, err = tx.InsertExit(ctx, exit)
		if err != nil {
			return err
		}

		items := make([]stock.ExitItem, 0, len(current.Items))
		for _, item := range current.Items {
			items = append(items, stock.ExitItem{
				ID:              uuid.NewString(),
				ProductID:       item.ProductID,
				ProductName:     item.ProductName,
				Quantity:        item.Quantity,
				SalePrice:       item.SalePrice,
				DiscountPercent: item.DiscountPercent,
			})
		}
		if err := tx.InsertExitItems(ctx, exit.ID, items); err != nil {
			return err
		}
		exit.Items = items

		for _, item := range items {
			if _, err := tx.AdjustStock(ctx, item.ProductID, -item.Quantity); err != nil {
				return fmt.Errorf("apply exit item %s: %w", item.ProductID, err)
			}
		}

		if err := tx.MarkConverted(ctx, id, exit.ID, exit.Number); err != nil {
			return err
		}
		order = current
		order.Status = StatusConverted
		order.ExitID = exit.ID
		order.ExitNumber = exit.Number
		return nil
	})
	if err != nil {
		return Order{}, stock.Exit{}, err
	}

	s.recordAudit(ctx, "orders.convert", order.ID, map[string]any{
		"number":      order.Number,
		"exit_number": exit.Number,
	})
	s.events.Publish(ctx, realtime.Event{Table: "orders", Action: realtime.ActionUpdate, ID: order.ID, Record: order})
	s.events.Publish(ctx, realtime.Event{Table: "stock_exits", Action: realtime.ActionInsert, ID: exit.ID, Record: exit})
	for _, item := range exit.Items {
		s.events.Publish(ctx, realtime.Event{Table: "products", Action: realtime.ActionUpdate, ID: item.ProductID})
	}
	return order, exit, nil
}

func (s *Service) buildItems(ctx context.Context, tx TxRepository, reqs []ItemRequest) ([]Item, error) {
	items := make([]Item, 0, len(reqs))
	for _, req := range reqs {
		name, err := tx.ProductName(ctx, req.ProductID)
		if err != nil {
			return nil, err
		}
		items = append(items, Item{
			ID:              uuid.NewString(),
			ProductID:       req.ProductID,
			ProductName:     name,
			Quantity:        req.Quantity,
			SalePrice:       req.SalePrice,
			DiscountPercent: req.DiscountPercent,
		})
	}
	return items, nil
}

func (s *Service) recordAudit(ctx context.Context, action, entityID string, meta map[string]any) {
	if s.audit == nil {
		return
	}
	_ = s.audit.Record(ctx, shared.AuditLog{
		ActorID:  shared.UserIDFromContext(ctx),
		Action:   action,
		Entity:   "orders",
		EntityID: entityID,
		Meta:     meta,
		At:       time.Now().UTC(),
	})
}
