package numbering

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestFormat(t *testing.T) {
	require.Equal(t, "ENC-2025/003", Format(DocTypeOrder, 2025, 3))
	require.Equal(t, "ENT-2025/014", Format(DocTypeStockEntry, 2025, 14))
	require.Equal(t, "SAI-2024/120", Format(DocTypeStockExit, 2024, 120))
	require.Equal(t, "DES-2025/001", Format(DocTypeExpense, 2025, 1))
}

func TestFormatWideSequence(t *testing.T) {
	// Sequences beyond 999 keep all digits instead of truncating.
	require.Equal(t, "SAI-2025/1042", Format(DocTypeStockExit, 2025, 1042))
}

func TestFormatYearBoundary(t *testing.T) {
	date := time.Date(2025, time.December, 31, 23, 59, 0, 0, time.UTC)
	require.Equal(t, "ENC-2025/001", Format(DocTypeOrder, date.Year(), 1))
}
