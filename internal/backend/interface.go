package backend

import (
	"context"

	"goaltrack/internal/storage"
)

// CleanupFunc releases resources held by a backend.
type CleanupFunc func() error

// Result holds the ledger store and its lifecycle hooks.
type Result struct {
	Store   storage.LedgerStore
	Cleanup CleanupFunc
	// Ready reports whether the store can serve requests. Nil means always.
	Ready func(ctx context.Context) error
}

// Close runs Cleanup if the backend has one.
func (r *Result) Close() error {
	if r == nil || r.Cleanup == nil {
		return nil
	}
	return r.Cleanup()
}

// Factory creates ledger stores based on configuration.
type Factory interface {
	CreateBackend(ctx context.Context, config Config) (*Result, error)
}

// Config holds everything needed to open a ledger store.
type Config struct {
	Type BackendType

	CSVPath      string
	SQLiteDBPath string

	GoogleSpreadsheetID string
	GoogleSheetName     string
}

type BackendType string

const (
	CSVBackend    BackendType = "csv"
	SQLiteBackend BackendType = "sqlite"
	SheetsBackend BackendType = "sheets"
	MemoryBackend BackendType = "memory"
)

func (bt BackendType) String() string {
	return string(bt)
}

func (bt BackendType) IsValid() bool {
	switch bt {
	case CSVBackend, SQLiteBackend, SheetsBackend, MemoryBackend:
		return true
	default:
		return false
	}
}
