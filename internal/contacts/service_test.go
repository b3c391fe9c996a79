package contacts

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/comercio-app/comercio/internal/platform/httpx"
	"github.com/comercio-app/comercio/internal/realtime"
	"github.com/comercio-app/comercio/internal/shared"
)

type memoryRepo struct {
	contacts map[Kind]map[string]Contact
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{contacts: map[Kind]map[string]Contact{
		KindClient:   {},
		KindSupplier: {},
	}}
}

func (r *memoryRepo) List(_ context.Context, kind Kind, _ ListFilters) ([]Contact, int, error) {
	out := []Contact{}
	for _, c := range r.contacts[kind] {
		if c.DeletedAt == nil {
			out = append(out, c)
		}
	}
	return out, len(out), nil
}

func (r *memoryRepo) Get(_ context.Context, kind Kind, id string) (Contact, error) {
	c, ok := r.contacts[kind][id]
	if !ok || c.DeletedAt != nil {
		return Contact{}, shared.ErrNotFound
	}
	return c, nil
}

func (r *memoryRepo) Create(_ context.Context, kind Kind, c Contact) (Contact, error) {
	c.CreatedAt = time.Now()
	c.UpdatedAt = c.CreatedAt
	r.contacts[kind][c.ID] = c
	return c, nil
}

func (r *memoryRepo) Update(_ context.Context, kind Kind, c Contact) (Contact, error) {
	existing, ok := r.contacts[kind][c.ID]
	if !ok || existing.DeletedAt != nil {
		return Contact{}, shared.ErrNotFound
	}
	c.UpdatedAt = time.Now()
	r.contacts[kind][c.ID] = c
	return c, nil
}

func (r *memoryRepo) SoftDelete(_ context.Context, kind Kind, id string) error {
	c, ok := r.contacts[kind][id]
	if !ok || c.DeletedAt != nil {
		return shared.ErrNotFound
	}
	now := time.Now()
	c.DeletedAt = &now
	r.contacts[kind][id] = c
	return nil
}

type capturePublisher struct {
	events []realtime.Event
}

func (p *capturePublisher) Publish(_ context.Context, evt realtime.Event) {
	p.events = append(p.events, evt)
}

func TestCreateClientDefaultsToActive(t *testing.T) {
	svc := NewService(newMemoryRepo(), nil)

	created, err := svc.Create(context.Background(), KindClient, UpsertContactRequest{Name: "  Kiosco El Sol  "})
	require.NoError(t, err)
	require.NotEmpty(t, created.ID)
	require.Equal(t, "Kiosco El Sol", created.Name)
	require.Equal(t, "active", created.Status)
}

func TestCreateContactRequiresName(t *testing.T) {
	svc := NewService(newMemoryRepo(), nil)

	_, err := svc.Create(context.Background(), KindSupplier, UpsertContactRequest{Name: "   "})
	require.ErrorIs(t, err, httpx.ErrValidation)
}

func TestClientsAndSuppliersAreSeparate(t *testing.T) {
	svc := NewService(newMemoryRepo(), nil)
	ctx := context.Background()

	client, err := svc.Create(ctx, KindClient, UpsertContactRequest{Name: "Cliente"})
	require.NoError(t, err)
	_, err = svc.Create(ctx, KindSupplier, UpsertContactRequest{Name: "Proveedor"})
	require.NoError(t, err)

	_, err = svc.Get(ctx, KindSupplier, client.ID)
	require.ErrorIs(t, err, shared.ErrNotFound)

	clients, total, err := svc.List(ctx, KindClient, ListFilters{})
	require.NoError(t, err)
	require.Equal(t, 1, total)
	require.Equal(t, "Cliente", clients[0].Name)
}

func TestUpdateKeepsStatusWhenOmitted(t *testing.T) {
	svc := NewService(newMemoryRepo(), nil)
	ctx := context.Background()

	created, err := svc.Create(ctx, KindClient, UpsertContactRequest{Name: "Rosa", Status: "inactive"})
	require.NoError(t, err)

	updated, err := svc.Update(ctx, KindClient, created.ID, UpsertContactRequest{Name: "Rosa M."})
	require.NoError(t, err)
	require.Equal(t, "Rosa M.", updated.Name)
	require.Equal(t, "inactive", updated.Status)
}

func TestDeleteHidesContact(t *testing.T) {
	svc := NewService(newMemoryRepo(), nil)
	ctx := context.Background()

	created, err := svc.Create(ctx, KindSupplier, UpsertContactRequest{Name: "Distribuidora"})
	require.NoError(t, err)

	require.NoError(t, svc.Delete(ctx, KindSupplier, created.ID))

	_, err = svc.Get(ctx, KindSupplier, created.ID)
	require.ErrorIs(t, err, shared.ErrNotFound)
}

func TestContactEventsCarryTableName(t *testing.T) {
	pub := &capturePublisher{}
	svc := NewService(newMemoryRepo(), pub)
	ctx := context.Background()

	created, err := svc.Create(ctx, KindClient, UpsertContactRequest{Name: "Cliente"})
	require.NoError(t, err)
	require.NoError(t, svc.Delete(ctx, KindClient, created.ID))

	require.Len(t, pub.events, 2)
	require.Equal(t, "clients", pub.events[0].Table)
	require.Equal(t, realtime.ActionInsert, pub.events[0].Action)
	require.Equal(t, realtime.ActionDelete, pub.events[1].Action)
}
