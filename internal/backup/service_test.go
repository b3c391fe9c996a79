package backup

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/comercio-app/comercio/internal/catalog"
	"github.com/comercio-app/comercio/internal/contacts"
	"github.com/comercio-app/comercio/internal/shared"
)

type fakeCatalog struct {
	products   []catalog.Product
	categories []catalog.Category
}

func (f *fakeCatalog) ListProducts(_ context.Context, fl catalog.ListFilters) ([]catalog.Product, int, error) {
	if fl.Page > 1 {
		return nil, len(f.products), nil
	}
	return f.products, len(f.products), nil
}

func (f *fakeCatalog) ListCategories(_ context.Context, fl catalog.ListFilters) ([]catalog.Category, int, error) {
	if fl.Page > 1 {
		return nil, len(f.categories), nil
	}
	return f.categories, len(f.categories), nil
}

func (f *fakeCatalog) CreateProduct(_ context.Context, req catalog.CreateProductRequest) (catalog.Product, error) {
	for _, p := range f.products {
		if p.Code == req.Code {
			return catalog.Product{}, catalog.ErrDuplicateCode
		}
	}
	p := catalog.Product{
		Code:          req.Code,
		Name:          req.Name,
		Description:   req.Description,
		CategoryName:  req.CategoryName,
		PurchasePrice: req.PurchasePrice,
		SalePrice:     req.SalePrice,
		CurrentStock:  req.OpeningStock,
		MinStock:      req.MinStock,
		Status:        req.Status,
	}
	f.products = append(f.products, p)
	return p, nil
}

func (f *fakeCatalog) CreateCategory(_ context.Context, req catalog.CreateCategoryRequest) (catalog.Category, error) {
	c := catalog.Category{Name: req.Name, Description: req.Description, Status: req.Status}
	f.categories = append(f.categories, c)
	return c, nil
}

type fakeContacts struct {
	byKind map[contacts.Kind][]contacts.Contact
}

func (f *fakeContacts) List(_ context.Context, kind contacts.Kind, fl contacts.ListFilters) ([]contacts.Contact, int, error) {
	if fl.Page > 1 {
		return nil, 0, nil
	}
	return f.byKind[kind], len(f.byKind[kind]), nil
}

func (f *fakeContacts) Create(_ context.Context, kind contacts.Kind, req contacts.UpsertContactRequest) (contacts.Contact, error) {
	if strings.TrimSpace(req.Name) == "" {
		return contacts.Contact{}, shared.ErrNotFound
	}
	c := contacts.Contact{Name: req.Name, Email: req.Email, Phone: req.Phone, TaxID: req.TaxID, Status: req.Status}
	if f.byKind == nil {
		f.byKind = map[contacts.Kind][]contacts.Contact{}
	}
	f.byKind[kind] = append(f.byKind[kind], c)
	return c, nil
}

func newTestService() (*Service, *fakeCatalog, *fakeContacts) {
	cat := &fakeCatalog{}
	con := &fakeContacts{byKind: map[contacts.Kind][]contacts.Contact{}}
	return NewService(cat, con), cat, con
}

func TestExportProductsCSV(t *testing.T) {
	svc, cat, _ := newTestService()
	cat.products = []catalog.Product{
		{Code: "PRD-001", Name: "Aceite 1L", CategoryName: "Almacen", PurchasePrice: 2.1, SalePrice: 3.5, CurrentStock: 24, MinStock: 6, Status: catalog.StatusActive},
	}

	var buf bytes.Buffer
	require.NoError(t, svc.ExportCSV(context.Background(), EntityProducts, &buf))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 2)
	require.Equal(t, "code,name,description,category_name,purchase_price,sale_price,current_stock,min_stock,status", lines[0])
	require.Equal(t, "PRD-001,Aceite 1L,,Almacen,2.1,3.5,24,6,active", lines[1])
}

func TestTemplateCSVHasHeaderAndExample(t *testing.T) {
	svc, _, _ := newTestService()

	var buf bytes.Buffer
	require.NoError(t, svc.TemplateCSV(EntityClients, &buf))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 2)
	require.Equal(t, "name,email,phone,address,tax_id,notes,status", lines[0])
}

func TestTemplateCSVUnknownEntity(t *testing.T) {
	svc, _, _ := newTestService()
	require.ErrorIs(t, svc.TemplateCSV(Entity("invoices"), &bytes.Buffer{}), ErrUnknownEntity)
}

func TestImportProductsCSV(t *testing.T) {
	svc, cat, _ := newTestService()

	input := strings.Join([]string{
		"code,name,description,category_name,purchase_price,sale_price,current_stock,min_stock,status",
		"PRD-001,Aceite 1L,,Almacen,2.10,3.50,24,6,active",
		"PRD-002,Harina 1kg,,Almacen,0.80,1.20,50,10,active",
	}, "\n")

	report, err := svc.ImportCSV(context.Background(), EntityProducts, strings.NewReader(input))
	require.NoError(t, err)
	require.Equal(t, 2, report.Imported)
	require.Empty(t, report.Errors)
	require.Len(t, cat.products, 2)
	require.Equal(t, 24, cat.products[0].CurrentStock)
}

func TestImportCSVKeepsGoingAfterRowError(t *testing.T) {
	svc, cat, _ := newTestService()

	input := strings.Join([]string{
		"code,name,description,category_name,purchase_price,sale_price,current_stock,min_stock,status",
		"PRD-001,Aceite 1L,,Almacen,no-es-numero,3.50,24,6,active",
		"PRD-002,Harina 1kg,,Almacen,0.80,1.20,50,10,active",
	}, "\n")

	report, err := svc.ImportCSV(context.Background(), EntityProducts, strings.NewReader(input))
	require.NoError(t, err)
	require.Equal(t, 1, report.Imported)
	require.Len(t, report.Errors, 1)
	require.Contains(t, report.Errors[0], "line 2")
	require.Len(t, cat.products, 1)
	require.Equal(t, "PRD-002", cat.products[0].Code)
}

func TestImportCSVRejectsWrongColumnCount(t *testing.T) {
	svc, _, _ := newTestService()

	_, err := svc.ImportCSV(context.Background(), EntityCategories, strings.NewReader("name,description\n"))
	require.Error(t, err)
}

func TestJSONBackupRoundTrip(t *testing.T) {
	src, cat, con := newTestService()
	cat.categories = []catalog.Category{{Name: "Bebidas", Status: catalog.StatusActive}}
	cat.products = []catalog.Product{{Code: "PRD-001", Name: "Agua 2L", CategoryName: "Bebidas", CurrentStock: 12, Status: catalog.StatusActive}}
	con.byKind[contacts.KindClient] = []contacts.Contact{{Name: "Almacen Don Pedro", Status: "active"}}
	con.byKind[contacts.KindSupplier] = []contacts.Contact{{Name: "Distribuidora Norte", Status: "active"}}

	var buf bytes.Buffer
	require.NoError(t, src.ExportJSON(context.Background(), &buf))

	dst, dstCat, dstCon := newTestService()
	report, err := dst.ImportJSON(context.Background(), &buf)
	require.NoError(t, err)
	require.Equal(t, 4, report.Imported)
	require.Empty(t, report.Errors)

	require.Len(t, dstCat.categories, 1)
	require.Len(t, dstCat.products, 1)
	require.Equal(t, 12, dstCat.products[0].CurrentStock)
	require.Len(t, dstCon.byKind[contacts.KindClient], 1)
	require.Len(t, dstCon.byKind[contacts.KindSupplier], 1)
}
