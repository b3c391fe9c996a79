package expenses

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/comercio-app/comercio/internal/numbering"
	"github.com/comercio-app/comercio/internal/realtime"
	"github.com/comercio-app/comercio/internal/shared"
)

type memoryRepo struct {
	names    map[string]string
	expenses map[string]Expense
	counters map[string]int
	deleted  map[string]bool
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{
		names:    map[string]string{},
		expenses: map[string]Expense{},
		counters: map[string]int{},
		deleted:  map[string]bool{},
	}
}

func (m *memoryRepo) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	return fn(ctx, m)
}

func (m *memoryRepo) NextNumber(_ context.Context, docType numbering.DocumentType, date time.Time) (string, error) {
	key := fmt.Sprintf("%s-%d", docType, date.Year())
	m.counters[key]++
	return numbering.Format(docType, date.Year(), m.counters[key]), nil
}

func (m *memoryRepo) LookupName(_ context.Context, table, id string) (string, error) {
	name, ok := m.names[table+"/"+id]
	if !ok {
		return "", shared.ErrNotFound
	}
	return name, nil
}

func (m *memoryRepo) InsertExpense(_ context.Context, e Expense) (Expense, error) {
	e.CreatedAt = time.Now()
	e.UpdatedAt = e.CreatedAt
	m.expenses[e.ID] = e
	return e, nil
}

func (m *memoryRepo) UpdateExpenseHeader(_ context.Context, e Expense) (Expense, error) {
	if _, ok := m.expenses[e.ID]; !ok {
		return Expense{}, shared.ErrNotFound
	}
	e.UpdatedAt = time.Now()
	m.expenses[e.ID] = e
	return e, nil
}

func (m *memoryRepo) ReplaceExpenseItems(_ context.Context, expenseID string, items []Item) error {
	e := m.expenses[expenseID]
	e.Items = items
	m.expenses[expenseID] = e
	return nil
}

func (m *memoryRepo) ListExpenses(_ context.Context, _ ListFilters) ([]Expense, int, error) {
	out := []Expense{}
	for id, e := range m.expenses {
		if !m.deleted[id] {
			out = append(out, e)
		}
	}
	return out, len(out), nil
}

func (m *memoryRepo) GetExpense(_ context.Context, id string) (Expense, error) {
	e, ok := m.expenses[id]
	if !ok || m.deleted[id] {
		return Expense{}, shared.ErrNotFound
	}
	return e, nil
}

func (m *memoryRepo) SoftDeleteExpense(_ context.Context, id string) error {
	if _, ok := m.expenses[id]; !ok {
		return shared.ErrNotFound
	}
	m.deleted[id] = true
	return nil
}

func newTestService(repo *memoryRepo) *Service {
	return NewService(repo, nil, realtime.NopPublisher{})
}

func TestCreateExpenseNumbersWithDES(t *testing.T) {
	repo := newMemoryRepo()
	repo.names["suppliers/sup-1"] = "Electricidad SA"
	svc := newTestService(repo)

	expense, err := svc.Create(context.Background(), CreateExpenseRequest{
		SupplierID: "sup-1",
		Date:       time.Date(2025, 5, 20, 0, 0, 0, 0, time.UTC),
		Items:      []ItemRequest{{ProductName: "Factura de luz", Quantity: 1, UnitPrice: 230.5}},
	})
	require.NoError(t, err)
	require.Equal(t, "DES-2025/001", expense.Number)
	require.Equal(t, "Electricidad SA", expense.SupplierName)
	require.InDelta(t, 230.5, expense.Total(), 0.0001)
}

func TestCreateExpenseRequiresItems(t *testing.T) {
	svc := newTestService(newMemoryRepo())

	_, err := svc.Create(context.Background(), CreateExpenseRequest{SupplierID: "sup-1", Date: time.Now()})
	require.ErrorIs(t, err, ErrNoItems)
}

func TestUpdateExpenseReplacesItems(t *testing.T) {
	repo := newMemoryRepo()
	repo.names["suppliers/sup-1"] = "Proveedor"
	svc := newTestService(repo)

	expense, err := svc.Create(context.Background(), CreateExpenseRequest{
		SupplierID: "sup-1",
		Date:       time.Now(),
		Items:      []ItemRequest{{ProductName: "Alquiler", Quantity: 1, UnitPrice: 1000}},
	})
	require.NoError(t, err)

	items := []ItemRequest{
		{ProductName: "Alquiler", Quantity: 1, UnitPrice: 1000},
		{ProductName: "Expensas", Quantity: 1, UnitPrice: 150},
	}
	updated, err := svc.Update(context.Background(), expense.ID, UpdateExpenseRequest{Items: &items})
	require.NoError(t, err)
	require.Len(t, updated.Items, 2)
	require.InDelta(t, 1150.0, updated.Total(), 0.0001)
}

func TestDeleteExpenseHidesIt(t *testing.T) {
	repo := newMemoryRepo()
	repo.names["suppliers/sup-1"] = "Proveedor"
	svc := newTestService(repo)

	expense, err := svc.Create(context.Background(), CreateExpenseRequest{
		SupplierID: "sup-1",
		Date:       time.Now(),
		Items:      []ItemRequest{{ProductName: "Seguro", Quantity: 1, UnitPrice: 80}},
	})
	require.NoError(t, err)

	require.NoError(t, svc.Delete(context.Background(), expense.ID))
	_, err = svc.Get(context.Background(), expense.ID)
	require.ErrorIs(t, err, shared.ErrNotFound)
}

func TestExpenseTotalAppliesDiscounts(t *testing.T) {
	e := Expense{
		Discount: 10,
		Items: []Item{
			{Quantity: 2, UnitPrice: 100, DiscountPercent: 50},
		},
	}
	require.InDelta(t, 90.0, e.Total(), 0.0001)
}
