package storage

import (
	"context"

	"goaltrack/internal/core"
)

// Ports for ledger persistence backends.
type (
	// LedgerReader loads the whole ledger, one record per month, sorted by month.
	LedgerReader interface {
		Load(ctx context.Context) ([]core.MonthlyRecord, error)
	}

	// LedgerWriter replaces the whole stored ledger with records. Backends
	// write all rows or none.
	LedgerWriter interface {
		Save(ctx context.Context, records []core.MonthlyRecord) error
	}

	LedgerStore interface {
		LedgerReader
		LedgerWriter
	}
)
