package dashboard

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type fakeRepo struct {
	calls   atomic.Int64
	entered chan struct{}
	release chan struct{}

	gotStart time.Time
	gotEnd   time.Time
}

func (f *fakeRepo) Summary(_ context.Context, monthStart, monthEnd time.Time) (Summary, error) {
	f.calls.Add(1)
	f.gotStart = monthStart
	f.gotEnd = monthEnd
	if f.entered != nil {
		f.entered <- struct{}{}
		<-f.release
	}
	return Summary{Products: 12, PendingOrders: 3, MonthSales: 1500.5}, nil
}

func TestSummaryUsesCurrentMonthWindow(t *testing.T) {
	repo := &fakeRepo{}
	svc := NewService(repo)
	svc.now = func() time.Time { return time.Date(2025, 2, 14, 9, 30, 0, 0, time.UTC) }

	got, err := svc.Summary(context.Background())
	require.NoError(t, err)
	require.Equal(t, 12, got.Products)
	require.Equal(t, time.Date(2025, 2, 1, 0, 0, 0, 0, time.UTC), repo.gotStart)
	require.Equal(t, time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC), repo.gotEnd)
}

func TestSummaryDedupesConcurrentCallers(t *testing.T) {
	repo := &fakeRepo{entered: make(chan struct{}, 1), release: make(chan struct{})}
	svc := NewService(repo)

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		_, err := svc.Summary(context.Background())
		require.NoError(t, err)
	}()
	<-repo.entered

	go func() {
		defer wg.Done()
		_, err := svc.Summary(context.Background())
		require.NoError(t, err)
	}()
	// give the second caller time to join the in-flight call
	time.Sleep(20 * time.Millisecond)
	close(repo.release)
	wg.Wait()

	require.EqualValues(t, 1, repo.calls.Load())
}
