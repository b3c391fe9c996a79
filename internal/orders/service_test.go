package orders

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/comercio-app/comercio/internal/numbering"
	"github.com/comercio-app/comercio/internal/realtime"
	"github.com/comercio-app/comercio/internal/shared"
	"github.com/comercio-app/comercio/internal/stock"
)

type memoryRepo struct {
	stocks    map[string]int
	products  map[string]string
	names     map[string]string
	orders    map[string]Order
	exits     map[string]stock.Exit
	exitItems map[string][]stock.ExitItem
	counters  map[string]int
	deleted   map[string]bool

	failInsertExitItems bool

	// runs while the locked read waits on the row, standing in for a
	// concurrent transaction committing first
	lockWait func(id string)
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{
		stocks:    map[string]int{},
		products:  map[string]string{},
		names:     map[string]string{},
		orders:    map[string]Order{},
		exits:     map[string]stock.Exit{},
		exitItems: map[string][]stock.ExitItem{},
		counters:  map[string]int{},
		deleted:   map[string]bool{},
	}
}

// txState snapshots the mutable maps so WithTx can roll back on error, the
// way the real transaction does.
func (m *memoryRepo) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	snapStocks := map[string]int{}
	for k, v := range m.stocks {
		snapStocks[k] = v
	}
	snapOrders := map[string]Order{}
	for k, v := range m.orders {
		snapOrders[k] = v
	}
	snapExits := map[string]stock.Exit{}
	for k, v := range m.exits {
		snapExits[k] = v
	}
	snapCounters := map[string]int{}
	for k, v := range m.counters {
		snapCounters[k] = v
	}

	if err := fn(ctx, m); err != nil {
		m.stocks = snapStocks
		m.orders = snapOrders
		m.exits = snapExits
		m.counters = snapCounters
		return err
	}
	return nil
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

func (m *memoryRepo) ProductName(_ context.Context, id string) (string, error) {
	name, ok := m.products[id]
	if !ok {
		return "", shared.ErrNotFound
	}
	return name, nil
}

func (m *memoryRepo) AdjustStock(_ context.Context, productID string, delta int) (int, error) {
	next := m.stocks[productID] + delta
	if next < 0 {
		next = 0
	}
	m.stocks[productID] = next
	return next, nil
}

func (m *memoryRepo) InsertOrder(_ context.Context, o Order) (Order, error) {
	o.CreatedAt = time.Now()
	o.UpdatedAt = o.CreatedAt
	m.orders[o.ID] = o
	return o, nil
}

func (m *memoryRepo) UpdateOrderHeader(_ context.Context, o Order) (Order, error) {
	stored, ok := m.orders[o.ID]
	if !ok {
		return Order{}, shared.ErrNotFound
	}
	o.Items = stored.Items
	o.UpdatedAt = time.Now()
	m.orders[o.ID] = o
	return o, nil
}

func (m *memoryRepo) ReplaceOrderItems(_ context.Context, orderID string, items []Item) error {
	o := m.orders[orderID]
	o.Items = items
	m.orders[orderID] = o
	return nil
}

func (m *memoryRepo) GetOrderForUpdate(_ context.Context, id string) (Order, error) {
	if m.lockWait != nil {
		m.lockWait(id)
	}
	o, ok := m.orders[id]
	if !ok || m.deleted[id] {
		return Order{}, shared.ErrNotFound
	}
	return o, nil
}

func (m *memoryRepo) SetStatus(_ context.Context, id string, status Status) error {
	o, ok := m.orders[id]
	if !ok {
		return shared.ErrNotFound
	}
	o.Status = status
	m.orders[id] = o
	return nil
}

func (m *memoryRepo) MarkConverted(_ context.Context, id, exitID, exitNumber string) error {
	o, ok := m.orders[id]
	if !ok {
		return shared.ErrNotFound
	}
	o.Status = StatusConverted
	o.ExitID = exitID
	o.ExitNumber = exitNumber
	m.orders[id] = o
	return nil
}

func (m *memoryRepo) InsertExit(_ context.Context, e stock.Exit) (stock.Exit, error) {
	e.CreatedAt = time.Now()
	e.UpdatedAt = e.CreatedAt
	m.exits[e.ID] = e
	return e, nil
}

func (m *memoryRepo) InsertExitItems(_ context.Context, exitID string, items []stock.ExitItem) error {
	if m.failInsertExitItems {
		return errors.New("boom")
	}
	m.exitItems[exitID] = items
	return nil
}

func (m *memoryRepo) ListOrders(_ context.Context, _ ListFilters) ([]Order, int, error) {
	out := []Order{}
	for id, o := range m.orders {
		if !m.deleted[id] {
			out = append(out, o)
		}
	}
	return out, len(out), nil
}

func (m *memoryRepo) GetOrder(_ context.Context, id string) (Order, error) {
	o, ok := m.orders[id]
	if !ok || m.deleted[id] {
		return Order{}, shared.ErrNotFound
	}
	return o, nil
}

func (m *memoryRepo) SoftDeleteOrder(_ context.Context, id string) error {
	if _, ok := m.orders[id]; !ok {
		return shared.ErrNotFound
	}
	m.deleted[id] = true
	return nil
}

type recordingPublisher struct {
	events []realtime.Event
}

func (p *recordingPublisher) Publish(_ context.Context, e realtime.Event) {
	p.events = append(p.events, e)
}

func newTestService(repo *memoryRepo) (*Service, *recordingPublisher) {
	pub := &recordingPublisher{}
	return NewService(repo, nil, pub), pub
}

func seedPendingOrder(t *testing.T, svc *Service, repo *memoryRepo) Order {
	t.Helper()
	repo.names["clients/cli-1"] = "Almacen Central"
	repo.products["prod-1"] = "Aceite 1L"
	if _, ok := repo.stocks["prod-1"]; !ok {
		repo.stocks["prod-1"] = 10
	}

	order, err := svc.Create(context.Background(), CreateOrderRequest{
		ClientID: "cli-1",
		Date:     time.Date(2025, 4, 2, 0, 0, 0, 0, time.UTC),
		Items:    []ItemRequest{{ProductID: "prod-1", Quantity: 4, SalePrice: 3.5}},
	})
	require.NoError(t, err)
	return order
}

func TestCreateOrderLeavesStockAlone(t *testing.T) {
	repo := newMemoryRepo()
	svc, _ := newTestService(repo)

	order := seedPendingOrder(t, svc, repo)
	require.Equal(t, "ENC-2025/001", order.Number)
	require.Equal(t, StatusPending, order.Status)
	require.Equal(t, "Almacen Central", order.ClientName)
	require.Equal(t, 10, repo.stocks["prod-1"])
}

func TestCreateOrderRequiresItems(t *testing.T) {
	svc, _ := newTestService(newMemoryRepo())

	_, err := svc.Create(context.Background(), CreateOrderRequest{ClientID: "cli-1", Date: time.Now()})
	require.ErrorIs(t, err, ErrNoItems)
}

func TestConvertDecrementsStockAndLinksExit(t *testing.T) {
	repo := newMemoryRepo()
	svc, _ := newTestService(repo)
	order := seedPendingOrder(t, svc, repo)

	converted, exit, err := svc.Convert(context.Background(), order.ID, ConvertRequest{
		Date: time.Date(2025, 4, 3, 0, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)
	require.Equal(t, StatusConverted, converted.Status)
	require.Equal(t, "SAI-2025/001", exit.Number)
	require.Equal(t, exit.ID, converted.ExitID)
	require.Equal(t, order.ID, exit.FromOrderID)
	require.Equal(t, order.Number, exit.FromOrderNumber)
	require.Equal(t, 6, repo.stocks["prod-1"])
	require.Len(t, repo.exitItems[exit.ID], 1)
}

func TestConvertTwiceFails(t *testing.T) {
	repo := newMemoryRepo()
	svc, _ := newTestService(repo)
	order := seedPendingOrder(t, svc, repo)

	_, _, err := svc.Convert(context.Background(), order.ID, ConvertRequest{})
	require.NoError(t, err)

	_, _, err = svc.Convert(context.Background(), order.ID, ConvertRequest{})
	require.ErrorIs(t, err, ErrAlreadyConverted)

	// stock moved exactly once
	require.Equal(t, 6, repo.stocks["prod-1"])
	require.Len(t, repo.exits, 1)
}

func TestConvertRollsBackOnFailure(t *testing.T) {
	repo := newMemoryRepo()
	svc, _ := newTestService(repo)
	order := seedPendingOrder(t, svc, repo)
	repo.failInsertExitItems = true

	_, _, err := svc.Convert(context.Background(), order.ID, ConvertRequest{})
	require.Error(t, err)

	// no orphan exit, no stock movement, order still pending
	require.Empty(t, repo.exits)
	require.Equal(t, 10, repo.stocks["prod-1"])
	current, err := svc.Get(context.Background(), order.ID)
	require.NoError(t, err)
	require.Equal(t, StatusPending, current.Status)
}

func TestConvertCancelledOrderFails(t *testing.T) {
	repo := newMemoryRepo()
	svc, _ := newTestService(repo)
	order := seedPendingOrder(t, svc, repo)

	_, err := svc.Cancel(context.Background(), order.ID)
	require.NoError(t, err)

	_, _, err = svc.Convert(context.Background(), order.ID, ConvertRequest{})
	require.ErrorIs(t, err, ErrNotPending)
	require.Equal(t, 10, repo.stocks["prod-1"])
}

func TestUpdateConvertedOrderFails(t *testing.T) {
	repo := newMemoryRepo()
	svc, _ := newTestService(repo)
	order := seedPendingOrder(t, svc, repo)

	_, _, err := svc.Convert(context.Background(), order.ID, ConvertRequest{})
	require.NoError(t, err)

	notes := "cambio"
	_, err = svc.Update(context.Background(), order.ID, UpdateOrderRequest{Notes: &notes})
	require.ErrorIs(t, err, ErrAlreadyConverted)
}

func TestCancelConvertedOrderFails(t *testing.T) {
	repo := newMemoryRepo()
	svc, _ := newTestService(repo)
	order := seedPendingOrder(t, svc, repo)

	_, _, err := svc.Convert(context.Background(), order.ID, ConvertRequest{})
	require.NoError(t, err)

	_, err = svc.Cancel(context.Background(), order.ID)
	require.ErrorIs(t, err, ErrAlreadyConverted)
}

func TestDeleteConvertedOrderFails(t *testing.T) {
	repo := newMemoryRepo()
	svc, _ := newTestService(repo)
	order := seedPendingOrder(t, svc, repo)

	_, _, err := svc.Convert(context.Background(), order.ID, ConvertRequest{})
	require.NoError(t, err)

	err = svc.Delete(context.Background(), order.ID)
	require.ErrorIs(t, err, ErrAlreadyConverted)
}

func TestDeletePendingOrder(t *testing.T) {
	repo := newMemoryRepo()
	svc, pub := newTestService(repo)
	order := seedPendingOrder(t, svc, repo)

	require.NoError(t, svc.Delete(context.Background(), order.ID))
	_, err := svc.Get(context.Background(), order.ID)
	require.ErrorIs(t, err, shared.ErrNotFound)

	last := pub.events[len(pub.events)-1]
	require.Equal(t, "orders", last.Table)
	require.Equal(t, realtime.ActionDelete, last.Action)
}

func TestDeleteRefusesOrderConvertedUnderLock(t *testing.T) {
	repo := newMemoryRepo()
	svc, _ := newTestService(repo)
	order := seedPendingOrder(t, svc, repo)

	// a conversion commits while the delete waits on the row lock; the status
	// check runs against the converted row, not the earlier snapshot
	repo.lockWait = func(id string) {
		repo.lockWait = nil
		o := repo.orders[id]
		o.Status = StatusConverted
		o.ExitID = "ex-1"
		o.ExitNumber = "SAI-2025/001"
		repo.orders[id] = o
	}

	err := svc.Delete(context.Background(), order.ID)
	require.ErrorIs(t, err, ErrAlreadyConverted)
	require.False(t, repo.deleted[order.ID])
}

func TestUpdatePendingOrderReplacesItems(t *testing.T) {
	repo := newMemoryRepo()
	svc, _ := newTestService(repo)
	order := seedPendingOrder(t, svc, repo)
	repo.products["prod-2"] = "Harina"
	repo.stocks["prod-2"] = 5

	items := []ItemRequest{{ProductID: "prod-2", Quantity: 2, SalePrice: 1.0}}
	updated, err := svc.Update(context.Background(), order.ID, UpdateOrderRequest{Items: &items})
	require.NoError(t, err)
	require.Len(t, updated.Items, 1)
	require.Equal(t, "prod-2", updated.Items[0].ProductID)
	require.Equal(t, "Harina", updated.Items[0].ProductName)

	// pending edits never touch stock
	require.Equal(t, 10, repo.stocks["prod-1"])
	require.Equal(t, 5, repo.stocks["prod-2"])
}

func TestOrderTotalAppliesDiscounts(t *testing.T) {
	o := Order{
		Discount: 10,
		Items: []Item{
			{Quantity: 2, SalePrice: 50, DiscountPercent: 0},
			{Quantity: 1, SalePrice: 100, DiscountPercent: 50},
		},
	}
	require.InDelta(t, 135.0, o.Total(), 0.0001)
}
