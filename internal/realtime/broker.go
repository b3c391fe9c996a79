package realtime

import (
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"sync"

	"github.com/redis/go-redis/v9"
)

const channelPrefix = "changes:"

// Broker publishes change events through Redis pub/sub and fans them out to
// local subscribers. Running the feed over Redis keeps every API instance
// consistent when more than one serves the same database.
type Broker struct {
	client *redis.Client
	logger *slog.Logger

	mu   sync.Mutex
	subs map[*subscriber]struct{}
}

type subscriber struct {
	table string
	ch    chan Event
}

// NewBroker constructs a Broker.
func NewBroker(client *redis.Client, logger *slog.Logger) *Broker {
	return &Broker{
		client: client,
		logger: logger,
		subs:   make(map[*subscriber]struct{}),
	}
}

// Publish implements Publisher. Failures are logged and swallowed: the change
// feed is advisory and must never fail the write that produced the event.
func (b *Broker) Publish(ctx context.Context, evt Event) {
	payload, err := json.Marshal(evt)
	if err != nil {
		b.logger.Error("marshal change event", slog.Any("error", err))
		return
	}
	if err := b.client.Publish(ctx, channelPrefix+evt.Table, payload).Err(); err != nil {
		b.logger.Warn("publish change event",
			slog.String("table", evt.Table),
			slog.Any("error", err))
	}
}

// Run consumes the Redis pattern subscription until ctx is cancelled. It must
// be running for Subscribe channels to receive events.
func (b *Broker) Run(ctx context.Context) error {
	pubsub := b.client.PSubscribe(ctx, channelPrefix+"*")
	defer pubsub.Close()

	ch := pubsub.Channel()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case msg, ok := <-ch:
			if !ok {
				return nil
			}
			var evt Event
			if err := json.Unmarshal([]byte(msg.Payload), &evt); err != nil {
				b.logger.Warn("decode change event", slog.Any("error", err))
				continue
			}
			if evt.Table == "" {
				evt.Table = strings.TrimPrefix(msg.Channel, channelPrefix)
			}
			b.dispatch(evt)
		}
	}
}

// Subscribe registers interest in one table, or every table when table is "*".
// The returned cancel func must be called when the consumer goes away. Events
// for slow consumers are dropped rather than blocking the feed.
func (b *Broker) Subscribe(table string) (<-chan Event, func()) {
	sub := &subscriber{table: table, ch: make(chan Event, 64)}

	b.mu.Lock()
	b.subs[sub] = struct{}{}
	b.mu.Unlock()

	cancel := func() {
		b.mu.Lock()
		if _, ok := b.subs[sub]; ok {
			delete(b.subs, sub)
			close(sub.ch)
		}
		b.mu.Unlock()
	}
	return sub.ch, cancel
}

func (b *Broker) dispatch(evt Event) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for sub := range b.subs {
		if sub.table != "*" && sub.table != evt.Table {
			continue
		}
		select {
		case sub.ch <- evt:
		default:
			b.logger.Warn("subscriber lagging, dropping event",
				slog.String("table", evt.Table))
		}
	}
}
