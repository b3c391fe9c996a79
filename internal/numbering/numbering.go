// Package numbering allocates per-year sequential document numbers.
package numbering

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
)

// DocumentType identifies a numbered document series.
type DocumentType string

const (
	// DocTypeOrder numbers customer orders.
	DocTypeOrder DocumentType = "ENC"
	// DocTypeStockEntry numbers inbound stock documents.
	DocTypeStockEntry DocumentType = "ENT"
	// DocTypeStockExit numbers outbound stock documents.
	DocTypeStockExit DocumentType = "SAI"
	// DocTypeExpense numbers expense documents.
	DocTypeExpense DocumentType = "DES"
)

// DB is the minimal query surface needed to allocate a number. Both
// *pgxpool.Pool and pgx.Tx satisfy it, so allocation can join the
// caller's transaction and roll back with it.
type DB interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Next atomically increments the counter for (docType, year of date) and
// returns the formatted document number. A failure here must abort the
// document creation; there is no local fallback sequence.
func Next(ctx context.Context, db DB, docType DocumentType, date time.Time) (string, error) {
	year := date.Year()
	var seq int
	err := db.QueryRow(ctx, `INSERT INTO document_counters (doc_type, year, value)
VALUES ($1, $2, 1)
ON CONFLICT (doc_type, year) DO UPDATE SET value = document_counters.value + 1
RETURNING value`, string(docType), year).Scan(&seq)
	if err != nil {
		return "", fmt.Errorf("numbering: next %s/%d: %w", docType, year, err)
	}
	return Format(docType, year, seq), nil
}

// Format renders a document number as PREFIX-YYYY/NNN with at least
// three sequence digits.
func Format(docType DocumentType, year, seq int) string {
	return fmt.Sprintf("%s-%d/%03d", docType, year, seq)
}
