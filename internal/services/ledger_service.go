package services

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"goaltrack/internal/amqp"
	"goaltrack/internal/core"
	"goaltrack/internal/ledger"
	applog "goaltrack/internal/log"
	"goaltrack/internal/storage"
)

// Publisher announces ledger changes to other processes.
type Publisher interface {
	PublishLedgerUpdated(ctx context.Context, msg *amqp.LedgerUpdatedMessage) error
}

// LedgerSnapshot is everything a ledger view needs in one read.
type LedgerSnapshot struct {
	Records      []core.MonthlyRecord
	Summary      core.GoalSummary
	Years        []core.YearGroup
	MonthOptions []string
}

// LedgerService applies transactions to the stored ledger. Load, apply and
// save run under one mutex, so concurrent requests in this process never
// lose each other's updates. Separate processes writing the same store
// still race, the last save wins.
type LedgerService struct {
	store     storage.LedgerStore
	publisher Publisher
	goal      ledger.Goal
	now       func() time.Time

	mu sync.Mutex
}

// NewLedgerService wires a store and goal. publisher may be nil.
func NewLedgerService(store storage.LedgerStore, publisher Publisher, goal ledger.Goal) *LedgerService {
	return &LedgerService{store: store, publisher: publisher, goal: goal, now: time.Now}
}

func (s *LedgerService) Goal() ledger.Goal { return s.goal }

func (s *LedgerService) Snapshot(ctx context.Context) (LedgerSnapshot, error) {
	records, err := s.store.Load(ctx)
	if err != nil {
		return LedgerSnapshot{}, fmt.Errorf("load ledger: %w", err)
	}
	return s.snapshot(ledger.Recalc(records)), nil
}

// AddTransaction applies tx to its month, saves the whole ledger and
// publishes a notification. A failed publish is logged, the transaction
// stays saved.
func (s *LedgerService) AddTransaction(ctx context.Context, tx core.Transaction) (LedgerSnapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	records, err := s.store.Load(ctx)
	if err != nil {
		return LedgerSnapshot{}, fmt.Errorf("load ledger: %w", err)
	}
	updated, err := ledger.AppendTransaction(records, tx)
	if err != nil {
		return LedgerSnapshot{}, err
	}
	if err := s.store.Save(ctx, updated); err != nil {
		return LedgerSnapshot{}, fmt.Errorf("save ledger: %w", err)
	}

	month := core.MonthOf(tx.Month.Time)
	slog.InfoContext(ctx, "Transaction applied",
		applog.NewFields().
			WithComponent(applog.ComponentLedger).
			WithOperation(applog.OpAppend).
			WithTransaction(month.String(), string(tx.Category), tx.Amount.String()).
			ToSlice()...)

	tx.Month = month
	s.publish(ctx, tx)
	return s.snapshot(updated), nil
}

func (s *LedgerService) publish(ctx context.Context, tx core.Transaction) {
	if s.publisher == nil {
		slog.DebugContext(ctx, "No publisher configured, skipping ledger notification")
		return
	}
	msg := amqp.NewLedgerUpdatedMessage(tx)
	if err := s.publisher.PublishLedgerUpdated(ctx, msg); err != nil {
		slog.ErrorContext(ctx, "Failed to publish ledger update",
			applog.FieldMessage, msg.ID, applog.FieldError, err)
	}
}

func (s *LedgerService) snapshot(records []core.MonthlyRecord) LedgerSnapshot {
	return LedgerSnapshot{
		Records:      records,
		Summary:      ledger.Summarize(records, s.goal, core.MonthOf(s.now())),
		Years:        ledger.YearGroups(records),
		MonthOptions: ledger.MonthOptions(records),
	}
}
