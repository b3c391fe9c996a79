package realtime

import (
	"context"
	"log/slog"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

func newTestBroker(t *testing.T) *Broker {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewBroker(client, slog.New(slog.NewTextHandler(testWriter{t}, nil)))
}

type testWriter struct{ t *testing.T }

func (w testWriter) Write(p []byte) (int, error) {
	w.t.Log(strings.TrimSpace(string(p)))
	return len(p), nil
}

// publishUntil retries Publish until the subscriber channel yields an event,
// covering the window before the Redis pattern subscription is live.
func publishUntil(t *testing.T, ctx context.Context, b *Broker, evt Event, ch <-chan Event) Event {
	t.Helper()
	deadline := time.After(3 * time.Second)
	for {
		b.Publish(ctx, evt)
		select {
		case got := <-ch:
			return got
		case <-time.After(25 * time.Millisecond):
		case <-deadline:
			t.Fatal("timed out waiting for event")
		}
	}
}

func TestBrokerDeliversToWildcardSubscriber(t *testing.T) {
	broker := newTestBroker(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = broker.Run(ctx) }()

	ch, unsubscribe := broker.Subscribe("*")
	defer unsubscribe()

	got := publishUntil(t, ctx, broker, Event{Table: "products", Action: ActionUpdate, ID: "p1"}, ch)
	require.Equal(t, "products", got.Table)
	require.Equal(t, ActionUpdate, got.Action)
	require.Equal(t, "p1", got.ID)
}

func TestBrokerFiltersByTable(t *testing.T) {
	broker := newTestBroker(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = broker.Run(ctx) }()

	ordersCh, cancelOrders := broker.Subscribe("orders")
	defer cancelOrders()
	productsCh, cancelProducts := broker.Subscribe("products")
	defer cancelProducts()

	got := publishUntil(t, ctx, broker, Event{Table: "orders", Action: ActionInsert, ID: "o1"}, ordersCh)
	require.Equal(t, "orders", got.Table)

	select {
	case evt := <-productsCh:
		t.Fatalf("products subscriber got event for %s", evt.Table)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestBrokerUnsubscribeClosesChannel(t *testing.T) {
	broker := newTestBroker(t)

	ch, unsubscribe := broker.Subscribe("products")
	unsubscribe()
	unsubscribe() // safe to call twice

	_, open := <-ch
	require.False(t, open)
}

func TestBrokerDropsEventsForSlowSubscriber(t *testing.T) {
	broker := newTestBroker(t)

	ch, unsubscribe := broker.Subscribe("*")
	defer unsubscribe()

	// Fill the buffer without draining; dispatch must never block.
	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 200; i++ {
			broker.dispatch(Event{Table: "products", Action: ActionUpdate, ID: "p"})
		}
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("dispatch blocked on a slow subscriber")
	}
	require.Equal(t, 64, len(ch))
}

func TestStreamWritesServerSentEvents(t *testing.T) {
	broker := newTestBroker(t)
	handler := NewHandler(slog.New(slog.NewTextHandler(testWriter{t}, nil)), broker)

	ctx, cancel := context.WithCancel(context.Background())
	req := httptest.NewRequest("GET", "/events?table=products", nil).WithContext(ctx)
	rec := httptest.NewRecorder()

	done := make(chan struct{})
	go func() {
		defer close(done)
		handler.Stream()(rec, req)
	}()

	// Wait for the subscription to register, then push one event through
	// the local dispatcher and close the stream.
	require.Eventually(t, func() bool {
		broker.mu.Lock()
		defer broker.mu.Unlock()
		return len(broker.subs) == 1
	}, time.Second, 10*time.Millisecond)

	broker.dispatch(Event{Table: "products", Action: ActionDelete, ID: "p9"})
	time.Sleep(50 * time.Millisecond)
	cancel()
	<-done

	require.Equal(t, "text/event-stream", rec.Header().Get("Content-Type"))
	body := rec.Body.String()
	require.Contains(t, body, "event: delete")
	require.Contains(t, body, `"table":"products"`)
	require.Contains(t, body, `"id":"p9"`)
}
