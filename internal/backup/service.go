// Package backup moves catalog and contact data in and out of the system as
// CSV files and combined JSON backups. Imports go through the entity services
// so the usual validation applies.
package backup

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strconv"

	"github.com/comercio-app/comercio/internal/catalog"
	"github.com/comercio-app/comercio/internal/contacts"
)

// Entity names an importable/exportable record type.
type Entity string

const (
	EntityProducts   Entity = "products"
	EntityCategories Entity = "categories"
	EntityClients    Entity = "clients"
	EntitySuppliers  Entity = "suppliers"
)

// ErrUnknownEntity indicates an entity outside the backup scope.
var ErrUnknownEntity = errors.New("backup: unknown entity")

const listPageSize = 500

// CatalogPort is the slice of the catalog service used by backup.
type CatalogPort interface {
	ListProducts(ctx context.Context, f catalog.ListFilters) ([]catalog.Product, int, error)
	ListCategories(ctx context.Context, f catalog.ListFilters) ([]catalog.Category, int, error)
	CreateProduct(ctx context.Context, req catalog.CreateProductRequest) (catalog.Product, error)
	CreateCategory(ctx context.Context, req catalog.CreateCategoryRequest) (catalog.Category, error)
}

// ContactsPort is the slice of the contacts service used by backup.
type ContactsPort interface {
	List(ctx context.Context, kind contacts.Kind, f contacts.ListFilters) ([]contacts.Contact, int, error)
	Create(ctx context.Context, kind contacts.Kind, req contacts.UpsertContactRequest) (contacts.Contact, error)
}

// Service implements import and export.
type Service struct {
	catalog  CatalogPort
	contacts ContactsPort
}

// NewService builds Service.
func NewService(catalogPort CatalogPort, contactsPort ContactsPort) *Service {
	return &Service{catalog: catalogPort, contacts: contactsPort}
}

// ImportReport summarizes an import run. Row errors do not abort the run;
// each failed row is reported and the rest continue.
type ImportReport struct {
	Imported int      `json:"imported"`
	Errors   []string `json:"errors"`
}

var csvHeaders = map[Entity][]string{
	EntityProducts:   {"code", "name", "description", "category_name", "purchase_price", "sale_price", "current_stock", "min_stock", "status"},
	EntityCategories: {"name", "description", "status"},
	EntityClients:    {"name", "email", "phone", "address", "tax_id", "notes", "status"},
	EntitySuppliers:  {"name", "email", "phone", "address", "tax_id", "notes", "status"},
}

var csvExamples = map[Entity][]string{
	EntityProducts:   {"PRD-001", "Aceite de girasol 1L", "Botella PET", "Almacen", "2.10", "3.50", "24", "6", "active"},
	EntityCategories: {"Bebidas", "Gaseosas, aguas y jugos", "active"},
	EntityClients:    {"Almacen Don Pedro", "pedro@example.com", "+54 11 5555-0001", "Av. Rivadavia 1234", "20-12345678-9", "", "active"},
	EntitySuppliers:  {"Distribuidora Norte", "ventas@norte.example.com", "+54 11 5555-0002", "Ruta 8 km 42", "30-98765432-1", "entrega martes", "active"},
}

// TemplateCSV writes the header plus one example row for the entity.
func (s *Service) TemplateCSV(entity Entity, w io.Writer) error {
	header, ok := csvHeaders[entity]
	if !ok {
		return ErrUnknownEntity
	}
	cw := csv.NewWriter(w)
	if err := cw.Write(header); err != nil {
		return err
	}
	if err := cw.Write(csvExamples[entity]); err != nil {
		return err
	}
	cw.Flush()
	return cw.Error()
}

// ExportCSV writes all live records for the entity.
func (s *Service) ExportCSV(ctx context.Context, entity Entity, w io.Writer) error {
	header, ok := csvHeaders[entity]
	if !ok {
		return ErrUnknownEntity
	}
	cw := csv.NewWriter(w)
	if err := cw.Write(header); err != nil {
		return err
	}

	var err error
	switch entity {
	case EntityProducts:
		err = s.exportProducts(ctx, cw)
	case EntityCategories:
		err = s.exportCategories(ctx, cw)
	case EntityClients:
		err = s.exportContacts(ctx, contacts.KindClient, cw)
	case EntitySuppliers:
		err = s.exportContacts(ctx, contacts.KindSupplier, cw)
	}
	if err != nil {
		return err
	}
	cw.Flush()
	return cw.Error()
}

func (s *Service) exportProducts(ctx context.Context, cw *csv.Writer) error {
	for page := 1; ; page++ {
		items, _, err := s.catalog.ListProducts(ctx, catalog.ListFilters{Page: page, PerPage: listPageSize})
		if err != nil {
			return err
		}
		for _, p := range items {
			row := []string{
				p.Code, p.Name, p.Description, p.CategoryName,
				formatFloat(p.PurchasePrice), formatFloat(p.SalePrice),
				strconv.Itoa(p.CurrentStock), strconv.Itoa(p.MinStock), string(p.Status),
			}
			if err := cw.Write(row); err != nil {
				return err
			}
		}
		if len(items) < listPageSize {
			return nil
		}
	}
}

func (s *Service) exportCategories(ctx context.Context, cw *csv.Writer) error {
	for page := 1; ; page++ {
		items, _, err := s.catalog.ListCategories(ctx, catalog.ListFilters{Page: page, PerPage: listPageSize})
		if err != nil {
			return err
		}
		for _, c := range items {
			if err := cw.Write([]string{c.Name, c.Description, string(c.Status)}); err != nil {
				return err
			}
		}
		if len(items) < listPageSize {
			return nil
		}
	}
}

func (s *Service) exportContacts(ctx context.Context, kind contacts.Kind, cw *csv.Writer) error {
	for page := 1; ; page++ {
		items, _, err := s.contacts.List(ctx, kind, contacts.ListFilters{Page: page, PerPage: listPageSize})
		if err != nil {
			return err
		}
		for _, c := range items {
			row := []string{c.Name, c.Email, c.Phone, c.Address, c.TaxID, c.Notes, c.Status}
			if err := cw.Write(row); err != nil {
				return err
			}
		}
		if len(items) < listPageSize {
			return nil
		}
	}
}

// ImportCSV reads header + rows and creates one record per row through the
// owning service.
func (s *Service) ImportCSV(ctx context.Context, entity Entity, r io.Reader) (ImportReport, error) {
	if _, ok := csvHeaders[entity]; !ok {
		return ImportReport{}, ErrUnknownEntity
	}
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err != nil {
		return ImportReport{}, fmt.Errorf("backup: read header: %w", err)
	}
	if len(header) != len(csvHeaders[entity]) {
		return ImportReport{}, fmt.Errorf("backup: expected %d columns, got %d", len(csvHeaders[entity]), len(header))
	}

	report := ImportReport{Errors: []string{}}
	for line := 2; ; line++ {
		record, err := cr.Read()
		if errors.Is(err, io.EOF) {
			return report, nil
		}
		if err != nil {
			report.Errors = append(report.Errors, fmt.Sprintf("line %d: %v", line, err))
			continue
		}
		if err := s.importRow(ctx, entity, record); err != nil {
			report.Errors = append(report.Errors, fmt.Sprintf("line %d: %v", line, err))
			continue
		}
		report.Imported++
	}
}

func (s *Service) importRow(ctx context.Context, entity Entity, record []string) error {
	switch entity {
	case EntityProducts:
		purchase, err := parseFloat(record[4], "purchase_price")
		if err != nil {
			return err
		}
		sale, err := parseFloat(record[5], "sale_price")
		if err != nil {
			return err
		}
		stock, err := parseInt(record[6], "current_stock")
		if err != nil {
			return err
		}
		minStock, err := parseInt(record[7], "min_stock")
		if err != nil {
			return err
		}
		_, err = s.catalog.CreateProduct(ctx, catalog.CreateProductRequest{
			Code:          record[0],
			Name:          record[1],
			Description:   record[2],
			CategoryName:  record[3],
			PurchasePrice: purchase,
			SalePrice:     sale,
			OpeningStock:  stock,
			MinStock:      minStock,
			Status:        catalog.Status(record[8]),
		})
		return err
	case EntityCategories:
		_, err := s.catalog.CreateCategory(ctx, catalog.CreateCategoryRequest{
			Name:        record[0],
			Description: record[1],
			Status:      catalog.Status(record[2]),
		})
		return err
	case EntityClients, EntitySuppliers:
		kind := contacts.KindClient
		if entity == EntitySuppliers {
			kind = contacts.KindSupplier
		}
		_, err := s.contacts.Create(ctx, kind, contacts.UpsertContactRequest{
			Name:    record[0],
			Email:   record[1],
			Phone:   record[2],
			Address: record[3],
			TaxID:   record[4],
			Notes:   record[5],
			Status:  record[6],
		})
		return err
	}
	return ErrUnknownEntity
}

// Snapshot is the combined JSON backup payload.
type Snapshot struct {
	Categories []catalog.Category `json:"categories"`
	Products   []catalog.Product  `json:"products"`
	Clients    []contacts.Contact `json:"clients"`
	Suppliers  []contacts.Contact `json:"suppliers"`
}

// ExportJSON writes one JSON document with every entity.
func (s *Service) ExportJSON(ctx context.Context, w io.Writer) error {
	var snap Snapshot
	var err error
	if snap.Categories, err = collect(ctx, func(page int) ([]catalog.Category, error) {
		items, _, err := s.catalog.ListCategories(ctx, catalog.ListFilters{Page: page, PerPage: listPageSize})
		return items, err
	}); err != nil {
		return err
	}
	if snap.Products, err = collect(ctx, func(page int) ([]catalog.Product, error) {
		items, _, err := s.catalog.ListProducts(ctx, catalog.ListFilters{Page: page, PerPage: listPageSize})
		return items, err
	}); err != nil {
		return err
	}
	if snap.Clients, err = collect(ctx, func(page int) ([]contacts.Contact, error) {
		items, _, err := s.contacts.List(ctx, contacts.KindClient, contacts.ListFilters{Page: page, PerPage: listPageSize})
		return items, err
	}); err != nil {
		return err
	}
	if snap.Suppliers, err = collect(ctx, func(page int) ([]contacts.Contact, error) {
		items, _, err := s.contacts.List(ctx, contacts.KindSupplier, contacts.ListFilters{Page: page, PerPage: listPageSize})
		return items, err
	}); err != nil {
		return err
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(snap)
}

// ImportJSON restores a combined backup. Categories come first so products
// can reference them by name.
func (s *Service) ImportJSON(ctx context.Context, r io.Reader) (ImportReport, error) {
	var snap Snapshot
	if err := json.NewDecoder(r).Decode(&snap); err != nil {
		return ImportReport{}, fmt.Errorf("backup: decode snapshot: %w", err)
	}

	report := ImportReport{Errors: []string{}}
	for _, c := range snap.Categories {
		_, err := s.catalog.CreateCategory(ctx, catalog.CreateCategoryRequest{
			Name: c.Name, Description: c.Description, Status: c.Status,
		})
		reportResult(&report, "category", c.Name, err)
	}
	for _, p := range snap.Products {
		_, err := s.catalog.CreateProduct(ctx, catalog.CreateProductRequest{
			Code:          p.Code,
			Name:          p.Name,
			Description:   p.Description,
			CategoryName:  p.CategoryName,
			PurchasePrice: p.PurchasePrice,
			SalePrice:     p.SalePrice,
			OpeningStock:  p.CurrentStock,
			MinStock:      p.MinStock,
			Status:        p.Status,
		})
		reportResult(&report, "product", p.Code, err)
	}
	for _, c := range snap.Clients {
		_, err := s.contacts.Create(ctx, contacts.KindClient, contactRequest(c))
		reportResult(&report, "client", c.Name, err)
	}
	for _, c := range snap.Suppliers {
		_, err := s.contacts.Create(ctx, contacts.KindSupplier, contactRequest(c))
		reportResult(&report, "supplier", c.Name, err)
	}
	return report, nil
}

func contactRequest(c contacts.Contact) contacts.UpsertContactRequest {
	return contacts.UpsertContactRequest{
		Name:    c.Name,
		Email:   c.Email,
		Phone:   c.Phone,
		Address: c.Address,
		TaxID:   c.TaxID,
		Notes:   c.Notes,
		Status:  c.Status,
	}
}

func reportResult(report *ImportReport, kind, key string, err error) {
	if err != nil {
		report.Errors = append(report.Errors, fmt.Sprintf("%s %q: %v", kind, key, err))
		return
	}
	report.Imported++
}

func collect[T any](_ context.Context, fetch func(page int) ([]T, error)) ([]T, error) {
	all := []T{}
	for page := 1; ; page++ {
		items, err := fetch(page)
		if err != nil {
			return nil, err
		}
		all = append(all, items...)
		if len(items) < listPageSize {
			return all, nil
		}
	}
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func parseFloat(s, field string) (float64, error) {
	if s == "" {
		return 0, nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q", field, s)
	}
	return v, nil
}

func parseInt(s, field string) (int, error) {
	if s == "" {
		return 0, nil
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q", field, s)
	}
	return v, nil
}
