package memory

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"sync"

	"goaltrack/internal/core"
	"goaltrack/internal/ledger"
	"goaltrack/internal/storage"
)

// Store is a process-local ledger used for demos and tests.
type Store struct {
	mu      sync.Mutex
	records []core.MonthlyRecord
}

func New(records ...core.MonthlyRecord) *Store {
	return &Store{records: ledger.NewLedger(records).Records()}
}

// NewFromFile seeds the store from a ledger CSV. A missing file yields an
// empty store.
func NewFromFile(ctx context.Context, path string) (*Store, error) {
	f, err := os.Open(path)
	if errors.Is(err, fs.ErrNotExist) {
		return New(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("open seed ledger: %w", err)
	}
	defer f.Close()

	records, err := storage.ReadLedgerCSV(ctx, f)
	if err != nil {
		return nil, err
	}
	return New(records...), nil
}

func (s *Store) Load(_ context.Context) ([]core.MonthlyRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]core.MonthlyRecord{}, s.records...), nil
}

func (s *Store) Save(ctx context.Context, records []core.MonthlyRecord) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	merged := ledger.NewLedger(records).Records()
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records = merged
	return nil
}
