package backend

import (
	"context"
	"fmt"
	"log/slog"

	applog "goaltrack/internal/log"
	gsheet "goaltrack/internal/sheets/google"
	"goaltrack/internal/storage"
	"goaltrack/internal/storage/memory"
)

type DefaultFactory struct {
	logger *slog.Logger
}

func NewFactory(logger *slog.Logger) Factory {
	if logger == nil {
		logger = slog.Default()
	}
	return &DefaultFactory{logger: logger.With(applog.FieldComponent, applog.ComponentBackend)}
}

func (f *DefaultFactory) CreateBackend(ctx context.Context, config Config) (*Result, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	switch config.Type {
	case CSVBackend:
		f.logger.InfoContext(ctx, "Initialized CSV ledger backend", "path", config.CSVPath)
		return &Result{Store: storage.NewFileStore(config.CSVPath)}, nil
	case SQLiteBackend:
		return f.createSQLiteBackend(ctx, config)
	case SheetsBackend:
		return f.createSheetsBackend(ctx, config)
	case MemoryBackend:
		return f.createMemoryBackend(ctx, config)
	default:
		return nil, fmt.Errorf("unsupported backend type: %s", config.Type)
	}
}

func (f *DefaultFactory) createSQLiteBackend(ctx context.Context, config Config) (*Result, error) {
	store, err := storage.NewSQLiteStore(config.SQLiteDBPath)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize SQLite store: %w", err)
	}
	f.logger.InfoContext(ctx, "Initialized SQLite ledger backend", "db_path", config.SQLiteDBPath)
	return &Result{Store: store, Cleanup: store.Close, Ready: store.Ping}, nil
}

func (f *DefaultFactory) createSheetsBackend(ctx context.Context, config Config) (*Result, error) {
	cli, err := gsheet.NewWithEnvCredentials(ctx, config.GoogleSpreadsheetID, config.GoogleSheetName)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize Google Sheets client: %w", err)
	}
	f.logger.InfoContext(ctx, "Initialized Google Sheets ledger backend", "sheet", cli.SheetName())
	return &Result{Store: cli}, nil
}

// createMemoryBackend seeds from the CSV ledger when one exists.
func (f *DefaultFactory) createMemoryBackend(ctx context.Context, config Config) (*Result, error) {
	if config.CSVPath == "" {
		return &Result{Store: memory.New()}, nil
	}
	store, err := memory.NewFromFile(ctx, config.CSVPath)
	if err != nil {
		return nil, fmt.Errorf("failed to seed memory backend: %w", err)
	}
	f.logger.InfoContext(ctx, "Initialized memory ledger backend", "seed", config.CSVPath)
	return &Result{Store: store}, nil
}
