package services

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"goaltrack/internal/amqp"
	"goaltrack/internal/core"
	"goaltrack/internal/ledger"
	"goaltrack/internal/storage/memory"
)

type recordingPublisher struct {
	mu   sync.Mutex
	msgs []*amqp.LedgerUpdatedMessage
	err  error
}

func (p *recordingPublisher) PublishLedgerUpdated(_ context.Context, msg *amqp.LedgerUpdatedMessage) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.msgs = append(p.msgs, msg)
	return p.err
}

type failingStore struct {
	loadErr, saveErr error
}

func (f failingStore) Load(context.Context) ([]core.MonthlyRecord, error) { return nil, f.loadErr }
func (f failingStore) Save(context.Context, []core.MonthlyRecord) error   { return f.saveErr }

func testGoal() ledger.Goal {
	return ledger.Goal{Title: "Car", Amount: decimal.NewFromInt(1000), Deadline: core.NewMonth(2025, 12)}
}

func newTestLedgerService(pub Publisher, records ...core.MonthlyRecord) *LedgerService {
	s := NewLedgerService(memory.New(records...), pub, testGoal())
	s.now = func() time.Time { return time.Date(2025, 3, 20, 0, 0, 0, 0, time.UTC) }
	return s
}

func TestLedgerServiceSnapshot(t *testing.T) {
	s := newTestLedgerService(nil,
		core.MonthlyRecord{Month: core.NewMonth(2025, 1), Savings: decimal.NewFromInt(100)},
		core.MonthlyRecord{Month: core.NewMonth(2025, 6), Savings: decimal.NewFromInt(200)},
	)
	snap, err := s.Snapshot(context.Background())
	if err != nil {
		t.Fatalf("snapshot: %v", err)
	}
	if len(snap.Records) != 2 || len(snap.Years) != 1 || len(snap.MonthOptions) != 2 {
		t.Fatalf("unexpected snapshot %+v", snap)
	}
	if !snap.Summary.Accumulated.Equal(decimal.NewFromInt(100)) || !snap.Summary.PlannedFuture.Equal(decimal.NewFromInt(200)) {
		t.Fatalf("unexpected summary %+v", snap.Summary)
	}
	if !snap.Summary.Shortfall.Equal(decimal.NewFromInt(700)) || !snap.Summary.Warning() {
		t.Fatalf("expected shortfall warning, got %+v", snap.Summary)
	}
}

func TestLedgerServiceAddTransaction(t *testing.T) {
	pub := &recordingPublisher{}
	s := newTestLedgerService(pub)
	ctx := context.Background()

	tx := core.Transaction{Month: core.Month{Time: time.Date(2025, 2, 17, 0, 0, 0, 0, time.UTC)}, Category: core.Savings, Amount: decimal.NewFromInt(300), Comment: "bonus"}
	snap, err := s.AddTransaction(ctx, tx)
	if err != nil {
		t.Fatalf("add: %v", err)
	}
	if len(snap.Records) != 1 || !snap.Records[0].Month.Equal(core.NewMonth(2025, 2).Time) {
		t.Fatalf("unexpected records %+v", snap.Records)
	}
	if !snap.Summary.Accumulated.Equal(decimal.NewFromInt(300)) {
		t.Fatalf("accumulated = %s", snap.Summary.Accumulated)
	}

	stored, _ := s.Snapshot(ctx)
	if len(stored.Records) != 1 {
		t.Fatal("transaction should be persisted")
	}
	if len(pub.msgs) != 1 || pub.msgs[0].Month != "2025-02-01" || pub.msgs[0].Amount != "300" {
		t.Fatalf("unexpected published messages %+v", pub.msgs)
	}
}

func TestLedgerServiceRejectsInvalidTransaction(t *testing.T) {
	pub := &recordingPublisher{}
	s := newTestLedgerService(pub)
	_, err := s.AddTransaction(context.Background(), core.Transaction{Month: core.NewMonth(2025, 1), Category: core.Income, Amount: decimal.NewFromInt(-1)})
	if !errors.Is(err, core.ErrNegativeAmount) {
		t.Fatalf("expected ErrNegativeAmount, got %v", err)
	}
	if len(pub.msgs) != 0 {
		t.Fatal("rejected transactions must not be published")
	}
}

func TestLedgerServicePublishFailureKeepsTransaction(t *testing.T) {
	s := newTestLedgerService(&recordingPublisher{err: errors.New("broker down")})
	tx := core.Transaction{Month: core.NewMonth(2025, 1), Category: core.Income, Amount: decimal.NewFromInt(10)}
	if _, err := s.AddTransaction(context.Background(), tx); err != nil {
		t.Fatalf("publish failure should not fail the request: %v", err)
	}
}

func TestLedgerServiceStoreErrors(t *testing.T) {
	boom := errors.New("disk full")
	tx := core.Transaction{Month: core.NewMonth(2025, 1), Category: core.Income, Amount: decimal.NewFromInt(10)}

	s := NewLedgerService(failingStore{loadErr: boom}, nil, testGoal())
	if _, err := s.Snapshot(context.Background()); !errors.Is(err, boom) {
		t.Fatalf("expected load error, got %v", err)
	}
	s = NewLedgerService(failingStore{saveErr: boom}, nil, testGoal())
	if _, err := s.AddTransaction(context.Background(), tx); !errors.Is(err, boom) {
		t.Fatalf("expected save error, got %v", err)
	}
}

func TestLedgerServiceConcurrentAdds(t *testing.T) {
	s := newTestLedgerService(nil)
	ctx := context.Background()
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			tx := core.Transaction{Month: core.NewMonth(2025, 1), Category: core.Savings, Amount: decimal.NewFromInt(5)}
			if _, err := s.AddTransaction(ctx, tx); err != nil {
				t.Errorf("add: %v", err)
			}
		}()
	}
	wg.Wait()

	snap, _ := s.Snapshot(ctx)
	if !snap.Records[0].Savings.Equal(decimal.NewFromInt(100)) {
		t.Fatalf("lost updates: savings = %s", snap.Records[0].Savings)
	}
}
