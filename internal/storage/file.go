package storage

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"goaltrack/internal/core"
)

// FileStore keeps the ledger in a CSV file. Saves go to a temporary file in
// the same directory which is then renamed over the target, so readers
// never observe a partially written ledger.
type FileStore struct {
	mu   sync.Mutex
	path string
}

func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

func (s *FileStore) Path() string { return s.path }

// Load reads the ledger file. A missing file is an empty ledger.
func (s *FileStore) Load(ctx context.Context) ([]core.MonthlyRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	f, err := os.Open(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return []core.MonthlyRecord{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("open ledger: %w", err)
	}
	defer f.Close()
	return ReadLedgerCSV(ctx, f)
}

func (s *FileStore) Save(ctx context.Context, records []core.MonthlyRecord) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create ledger directory: %w", err)
	}
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(s.path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if err := WriteLedgerCSV(tmp, records); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("sync temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Rename(tmp.Name(), s.path); err != nil {
		return fmt.Errorf("replace ledger: %w", err)
	}
	return nil
}

// ReadLedgerCSV decodes a ledger CSV with a header row.
func ReadLedgerCSV(ctx context.Context, r io.Reader) ([]core.MonthlyRecord, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	all, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("parse ledger CSV: %w", err)
	}
	if len(all) == 0 {
		return []core.MonthlyRecord{}, nil
	}
	return DecodeLedger(ctx, all[0], all[1:]), nil
}

func WriteLedgerCSV(w io.Writer, records []core.MonthlyRecord) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(Header()); err != nil {
		return fmt.Errorf("write ledger header: %w", err)
	}
	if err := cw.WriteAll(EncodeLedger(records)); err != nil {
		return fmt.Errorf("write ledger rows: %w", err)
	}
	return nil
}
