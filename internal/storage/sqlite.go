package storage

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	_ "modernc.org/sqlite"

	"goaltrack/internal/core"
	"goaltrack/internal/ledger"
)

const (
	selectRecordsSQL = `SELECT month, income, expenses, installments, autoloan, savings, debt_return, comment
FROM monthly_records ORDER BY month`
	deleteRecordsSQL = `DELETE FROM monthly_records`
	insertRecordSQL  = `INSERT INTO monthly_records
(month, income, expenses, installments, autoloan, savings, debt_return, comment, updated_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, CURRENT_TIMESTAMP)`
)

// SQLiteStore keeps the ledger in a single monthly_records table. Amounts
// are stored as decimal text so nothing is lost to float rounding.
type SQLiteStore struct {
	db *sql.DB
}

func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	version, err := migrateLedgerSchema(dbPath)
	if err != nil {
		return nil, fmt.Errorf("migrations: %w", err)
	}
	slog.Debug("Ledger schema ready", "path", dbPath, "version", version)
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	// A single writer avoids SQLITE_BUSY between Save transactions.
	db.SetMaxOpenConns(1)
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enable WAL: %w", err)
	}
	return &SQLiteStore{db: db}, nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *SQLiteStore) Load(ctx context.Context) ([]core.MonthlyRecord, error) {
	rows, err := s.db.QueryContext(ctx, selectRecordsSQL)
	if err != nil {
		return nil, fmt.Errorf("query records: %w", err)
	}
	defer rows.Close()

	var records []core.MonthlyRecord
	for rows.Next() {
		var (
			month   string
			amounts = make([]string, len(core.Categories()))
			comment string
		)
		dest := []any{&month}
		for i := range amounts {
			dest = append(dest, &amounts[i])
		}
		dest = append(dest, &comment)
		if err := rows.Scan(dest...); err != nil {
			return nil, fmt.Errorf("scan record: %w", err)
		}

		m, err := core.ParseMonth(month)
		if err != nil {
			slog.WarnContext(ctx, "Skipping stored record with invalid month", "month", month, "error", err)
			continue
		}
		rec := core.MonthlyRecord{Month: m, Comment: comment}
		for i, c := range core.Categories() {
			v, ok := core.ParseStoredAmount(amounts[i])
			if !ok {
				slog.WarnContext(ctx, "Malformed stored amount, using 0", "month", month, "column", string(c), "value", amounts[i])
			}
			rec.SetAmount(c, v)
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate records: %w", err)
	}
	return ledger.Recalc(records), nil
}

// Save replaces the table contents in one transaction.
func (s *SQLiteStore) Save(ctx context.Context, records []core.MonthlyRecord) error {
	merged := ledger.NewLedger(records).Records()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, deleteRecordsSQL); err != nil {
		return fmt.Errorf("clear records: %w", err)
	}
	stmt, err := tx.PrepareContext(ctx, insertRecordSQL)
	if err != nil {
		return fmt.Errorf("prepare insert: %w", err)
	}
	defer stmt.Close()

	for _, r := range merged {
		args := []any{r.Month.String()}
		for _, c := range core.Categories() {
			args = append(args, r.Amount(c).String())
		}
		args = append(args, r.Comment)
		if _, err := stmt.ExecContext(ctx, args...); err != nil {
			return fmt.Errorf("insert %s: %w", r.Month, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}
