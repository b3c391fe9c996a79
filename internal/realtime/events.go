// Package realtime distributes per-table change events to subscribed clients.
package realtime

import "context"

// Action enumerates change event kinds.
type Action string

const (
	ActionInsert Action = "insert"
	ActionUpdate Action = "update"
	ActionDelete Action = "delete"
)

// Event describes a single record change. Record carries the full row for
// inserts and updates so subscribers can patch their caches incrementally
// instead of re-fetching whole tables.
type Event struct {
	Table  string `json:"table"`
	Action Action `json:"action"`
	ID     string `json:"id"`
	Record any    `json:"record,omitempty"`
}

// Publisher emits change events. Services call it after a successful write;
// a publish failure never fails the write itself.
type Publisher interface {
	Publish(ctx context.Context, evt Event)
}

// NopPublisher discards events, useful in tests and the seed tool.
type NopPublisher struct{}

// Publish implements Publisher.
func (NopPublisher) Publish(context.Context, Event) {}
