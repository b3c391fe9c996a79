package stock

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/comercio-app/comercio/internal/numbering"
	"github.com/comercio-app/comercio/internal/realtime"
	"github.com/comercio-app/comercio/internal/shared"
)

// RepositoryPort abstracts repository usage for service.
type RepositoryPort interface {
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
	ListEntries(ctx context.Context, f ListFilters) ([]Entry, int, error)
	GetEntry(ctx context.Context, id string) (Entry, error)
	SoftDeleteEntry(ctx context.Context, id string) error
	ListExits(ctx context.Context, f ListFilters) ([]Exit, int, error)
	GetExit(ctx context.Context, id string) (Exit, error)
	SoftDeleteExit(ctx context.Context, id string) error
}

// AuditPort abstracts audit logging functionality.
type AuditPort interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// Service coordinates stock entry and exit operations.
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

func (s *Service) ListEntries(ctx context.Context, f ListFilters) ([]Entry, int, error) {
	return s.repo.ListEntries(ctx, f)
}

func (s *Service) GetEntry(ctx context.Context, id string) (Entry, error) {
	return s.repo.GetEntry(ctx, id)
}

// CreateEntry records an inbound document and increments each product's stock
// by the item quantity. Number allocation, rows and stock deltas share one
// transaction: either the whole entry lands or none of it does.
func (s *Service) CreateEntry(ctx context.Context, req CreateEntryRequest) (Entry, error) {
	if len(req.Items) == 0 {
		return Entry{}, ErrNoItems
	}
	for _, item := range req.Items {
		if item.Quantity <= 0 {
			return Entry{}, ErrInvalidQuantity
		}
	}

	var entry Entry
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		number, err := tx.NextNumber(ctx, numbering.DocTypeStockEntry, req.Date)
		if err != nil {
			return err
		}
		supplierName, err := tx.LookupName(ctx, "suppliers", req.SupplierID)
		if err != nil {
			return err
		}

		entry = Entry{
			ID:            uuid.NewString(),
			Number:        number,
			SupplierID:    req.SupplierID,
			SupplierName:  supplierName,
			Date:          req.Date,
			InvoiceNumber: req.InvoiceNumber,
			Notes:         req.Notes,
		}
		entry, err = tx.InsertEntry(ctx, entry)
		if err != nil {
			return err
		}

		items, err := s.buildEntryItems(ctx, tx, req.Items)
		if err != nil {
			return err
		}
		if err := tx.ReplaceEntryItems(ctx, entry.ID, items); err != nil {
			return err
		}
		entry.Items = items

		for _, item := range items {
			if _, err := tx.AdjustStock(ctx, item.ProductID, item.Quantity); err != nil {
				return fmt.Errorf("apply entry item %s: %w", item.ProductID, err)
			}
		}
		return nil
	})
	if err != nil {
		return Entry{}, err
	}

	s.recordAudit(ctx, "stock.entry.create", "stock_entries", entry.ID, map[string]any{"number": entry.Number})
	s.publishEntry(ctx, realtime.ActionInsert, entry)
	return entry, nil
}

// UpdateEntry replaces the document wholesale: the row is locked, old stock
// deltas reversed, items re-inserted and new deltas applied in one
// transaction. The lock serializes concurrent edits of the same document so
// each reversal starts from committed items.
func (s *Service) UpdateEntry(ctx context.Context, id string, req UpdateEntryRequest) (Entry, error) {
	if req.Items != nil {
		for _, item := range *req.Items {
			if item.Quantity <= 0 {
				return Entry{}, ErrInvalidQuantity
			}
		}
	}

	var entry Entry
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		current, err := tx.GetEntryForUpdate(ctx, id)
		if err != nil {
			return err
		}
		entry = current

		if req.Date != nil {
			entry.Date = *req.Date
		}
		if req.InvoiceNumber != nil {
			entry.InvoiceNumber = *req.InvoiceNumber
		}
		if req.Notes != nil {
			entry.Notes = *req.Notes
		}
		entry, err = tx.UpdateEntryHeader(ctx, entry)
		if err != nil {
			return err
		}
		entry.Items = current.Items

		if req.Items == nil {
			return nil
		}

		oldItems, err := tx.GetEntryItems(ctx, id)
		if err != nil {
			return err
		}
		for _, item := range oldItems {
			if _, err := tx.AdjustStock(ctx, item.ProductID, -item.Quantity); err != nil {
				return fmt.Errorf("reverse entry item %s: %w", item.ProductID, err)
			}
		}

		items, err := s.buildEntryItems(ctx, tx, *req.Items)
		if err != nil {
			return err
		}
		if err := tx.ReplaceEntryItems(ctx, id, items); err != nil {
			return err
		}
		entry.Items = items

		for _, item := range items {
			if _, err := tx.AdjustStock(ctx, item.ProductID, item.Quantity); err != nil {
				return fmt.Errorf("apply entry item %s: %w", item.ProductID, err)
			}
		}
		return nil
	})
	if err != nil {
		return Entry{}, err
	}

	s.recordAudit(ctx, "stock.entry.update", "stock_entries", entry.ID, map[string]any{"number": entry.Number})
	s.publishEntry(ctx, realtime.ActionUpdate, entry)
	return entry, nil
}

// DeleteEntry soft-deletes the document. Stock is left untouched: the
// movement happened, the paper trail just moves to the recycle bin.
func (s *Service) DeleteEntry(ctx context.Context, id string) error {
	if err := s.repo.SoftDeleteEntry(ctx, id); err != nil {
		return err
	}
	s.recordAudit(ctx, "stock.entry.delete", "stock_entries", id, nil)
	s.events.Publish(ctx, realtime.Event{Table: "stock_entries", Action: realtime.ActionDelete, ID: id})
	return nil
}

func (s *Service) ListExits(ctx context.Context, f ListFilters) ([]Exit, int, error) {
	return s.repo.ListExits(ctx, f)
}

func (s *Service) GetExit(ctx context.Context, id string) (Exit, error) {
	return s.repo.GetExit(ctx, id)
}

// CreateExit records an outbound document and decrements each product's stock
// by the item quantity, clamped at zero.
func (s *Service) CreateExit(ctx context.Context, req CreateExitRequest) (Exit, error) {
	if len(req.Items) == 0 {
		return Exit{}, ErrNoItems
	}
	for _, item := range req.Items {
		if item.Quantity <= 0 {
			return Exit{}, ErrInvalidQuantity
		}
	}

	var exit Exit
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		number, err := tx.NextNumber(ctx, numbering.DocTypeStockExit, req.Date)
		if err != nil {
			return err
		}
		clientName, err := tx.LookupName(ctx, "clients", req.ClientID)
		if err != nil {
			return err
		}

		exit = Exit{
			ID:            uuid.NewString(),
			Number:        number,
			ClientID:      req.ClientID,
			ClientName:    clientName,
			Date:          req.Date,
			InvoiceNumber: req.InvoiceNumber,
			Notes:         req.Notes,
			Discount:      req.Discount,
		}
		exit, err = tx.InsertExit(ctx, exit)
		if err != nil {
			return err
		}

		items, err := s.buildExitItems(ctx, tx, req.Items)
		if err != nil {
			return err
		}
		if err := tx.ReplaceExitItems(ctx, exit.ID, items); err != nil {
			return err
		}
		exit.Items = items

		for _, item := range items {
			if _, err := tx.AdjustStock(ctx, item.ProductID, -item.Quantity); err != nil {
				return fmt.Errorf("apply exit item %s: %w", item.ProductID, err)
			}
		}
		return nil
	})
	if err != nil {
		return Exit{}, err
	}

	s.recordAudit(ctx, "stock.exit.create", "stock_exits", exit.ID, map[string]any{"number": exit.Number})
	s.publishExit(ctx, realtime.ActionInsert, exit)
	return exit, nil
}

// UpdateExit mirrors UpdateEntry with the signs flipped.
func (s *Service) UpdateExit(ctx context.Context, id string, req UpdateExitRequest) (Exit, error) {
	if req.Items != nil {
		for _, item := range *req.Items {
			if item.Quantity <= 0 {
				return Exit{}, ErrInvalidQuantity
			}
		}
	}

	var exit Exit
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		current, err := tx.GetExitForUpdate(ctx, id)
		if err != nil {
			return err
		}
		exit = current

		if req.Date != nil {
			exit.Date = *req.Date
		}
		if req.InvoiceNumber != nil {
			exit.InvoiceNumber = *req.InvoiceNumber
		}
		if req.Notes != nil {
			exit.Notes = *req.Notes
		}
		if req.Discount != nil {
			exit.Discount = *req.Discount
		}
		exit, err = tx.UpdateExitHeader(ctx, exit)
		if err != nil {
			return err
		}
		exit.Items = current.Items
		exit.FromOrderID = current.FromOrderID
		exit.FromOrderNumber = current.FromOrderNumber

		if req.Items == nil {
			return nil
		}

		oldItems, err := tx.GetExitItems(ctx, id)
		if err != nil {
			return err
		}
		for _, item := range oldItems {
			if _, err := tx.AdjustStock(ctx, item.ProductID, item.Quantity); err != nil {
				return fmt.Errorf("reverse exit item %s: %w", item.ProductID, err)
			}
		}

		items, err := s.buildExitItems(ctx, tx, *req.Items)
		if err != nil {
			return err
		}
		if err := tx.ReplaceExitItems(ctx, id, items); err != nil {
			return err
		}
		exit.Items = items

		for _, item := range items {
			if _, err := tx.AdjustStock(ctx, item.ProductID, -item.Quantity); err != nil {
				return fmt.Errorf("apply exit item %s: %w", item.ProductID, err)
			}
		}
		return nil
	})
	if err != nil {
		return Exit{}, err
	}

	s.recordAudit(ctx, "stock.exit.update", "stock_exits", exit.ID, map[string]any{"number": exit.Number})
	s.publishExit(ctx, realtime.ActionUpdate, exit)
	return exit, nil
}

// DeleteExit soft-deletes the document without touching stock.
func (s *Service) DeleteExit(ctx context.Context, id string) error {
	if err := s.repo.SoftDeleteExit(ctx, id); err != nil {
		return err
	}
	s.recordAudit(ctx, "stock.exit.delete", "stock_exits", id, nil)
	s.events.Publish(ctx, realtime.Event{Table: "stock_exits", Action: realtime.ActionDelete, ID: id})
	return nil
}

func (s *Service) buildEntryItems(ctx context.Context, tx TxRepository, reqs []EntryItemRequest) ([]EntryItem, error) {
	items := make([]EntryItem, 0, len(reqs))
	for _, req := range reqs {
		name, err := tx.ProductName(ctx, req.ProductID)
		if err != nil {
			return nil, err
		}
		items = append(items, EntryItem{
			ID:            uuid.NewString(),
			ProductID:     req.ProductID,
			ProductName:   name,
			Quantity:      req.Quantity,
			PurchasePrice: req.PurchasePrice,
		})
	}
	return items, nil
}

func (s *Service) buildExitItems(ctx context.Context, tx TxRepository, reqs []ExitItemRequest) ([]ExitItem, error) {
	items := make([]ExitItem, 0, len(reqs))
	for _, req := range reqs {
		name, err := tx.ProductName(ctx, req.ProductID)
		if err != nil {
			return nil, err
		}
		items = append(items, ExitItem{
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

func (s *Service) recordAudit(ctx context.Context, action, entity, entityID string, meta map[string]any) {
	if s.audit == nil {
		return
	}
	_ = s.audit.Record(ctx, shared.AuditLog{
		ActorID:  shared.UserIDFromContext(ctx),
		Action:   action,
		Entity:   entity,
		EntityID: entityID,
		Meta:     meta,
		At:       time.Now().UTC(),
	})
}

func (s *Service) publishEntry(ctx context.Context, action realtime.Action, e Entry) {
	s.events.Publish(ctx, realtime.Event{Table: "stock_entries", Action: action, ID: e.ID, Record: e})
	for _, item := range e.Items {
		s.events.Publish(ctx, realtime.Event{Table: "products", Action: realtime.ActionUpdate, ID: item.ProductID})
	}
}

func (s *Service) publishExit(ctx context.Context, action realtime.Action, e Exit) {
	s.events.Publish(ctx, realtime.Event{Table: "stock_exits", Action: action, ID: e.ID, Record: e})
	for _, item := range e.Items {
		s.events.Publish(ctx, realtime.Event{Table: "products", Action: realtime.ActionUpdate, ID: item.ProductID})
	}
}
