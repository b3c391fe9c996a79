// Package recyclebin aggregates soft-deleted records across all entity tables
// and restores or permanently removes them.
package recyclebin

import (
	"errors"
	"time"
)

// RetentionDays is how long a record stays in the bin before it becomes
// purge-eligible.
const RetentionDays = 30

// Item is one soft-deleted record, regardless of source table.
type Item struct {
	Table     string    `json:"table"`
	ID        string    `json:"id"`
	Label     string    `json:"label"`
	DeletedAt time.Time `json:"deleted_at"`
	DaysInBin int       `json:"days_in_bin"`
	PurgeAt   time.Time `json:"purge_at"`
}

// ErrUnknownTable indicates a table outside the recycle bin's scope.
var ErrUnknownTable = errors.New("recyclebin: unknown table")

// ErrReferenced indicates a live document still points at the binned record,
// so it cannot be hard-deleted. Converted orders keep a reference to their
// exit, for example.
var ErrReferenced = errors.New("recyclebin: record still referenced")

// binTables maps the bin's table names to the column used as display label.
var binTables = map[string]string{
	"products":      "name",
	"categories":    "name",
	"clients":       "name",
	"suppliers":     "name",
	"orders":        "number",
	"stock_entries": "number",
	"stock_exits":   "number",
	"expenses":      "number",
}

// KnownTable reports whether the bin manages the given table.
func KnownTable(table string) bool {
	_, ok := binTables[table]
	return ok
}
