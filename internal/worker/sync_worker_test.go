package worker

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"goaltrack/internal/amqp"
	"goaltrack/internal/core"
	"goaltrack/internal/storage/memory"
)

type failingWriter struct{ err error }

func (f failingWriter) Save(context.Context, []core.MonthlyRecord) error { return f.err }

func primary() *memory.Store {
	return memory.New(
		core.MonthlyRecord{Month: core.NewMonth(2025, 1), Savings: decimal.NewFromInt(10)},
		core.MonthlyRecord{Month: core.NewMonth(2025, 2), Savings: decimal.NewFromInt(20)},
	)
}

func TestSyncNowMirrorsLedger(t *testing.T) {
	mirror := memory.New()
	w := NewSyncWorker(primary(), mirror, time.Minute)

	if err := w.SyncNow(context.Background()); err != nil {
		t.Fatalf("sync: %v", err)
	}
	got, _ := mirror.Load(context.Background())
	if len(got) != 2 || !got[1].TotalSaved.Equal(decimal.NewFromInt(30)) {
		t.Fatalf("unexpected mirror %+v", got)
	}
	if st := w.Status(); st.Syncs != 1 || st.LastErr != nil || st.LastSync.IsZero() {
		t.Fatalf("unexpected status %+v", st)
	}
}

func TestHandleLedgerUpdatedReportsFailure(t *testing.T) {
	boom := errors.New("quota exceeded")
	w := NewSyncWorker(primary(), failingWriter{err: boom}, time.Minute)
	msg := amqp.NewLedgerUpdatedMessage(core.Transaction{Month: core.NewMonth(2025, 1), Category: core.Savings, Amount: decimal.NewFromInt(1)})

	if err := w.HandleLedgerUpdated(context.Background(), msg); !errors.Is(err, boom) {
		t.Fatalf("expected mirror error so the message is requeued, got %v", err)
	}
	if st := w.Status(); st.Syncs != 0 || !errors.Is(st.LastErr, boom) {
		t.Fatalf("unexpected status %+v", st)
	}
}

func TestStartStop(t *testing.T) {
	mirror := memory.New()
	w := NewSyncWorker(primary(), mirror, 10*time.Millisecond)
	ctx := context.Background()

	if err := w.Start(ctx); err != nil {
		t.Fatalf("start: %v", err)
	}
	if err := w.Start(ctx); err == nil {
		t.Fatal("second start should fail")
	}
	deadline := time.Now().Add(2 * time.Second)
	for w.Status().Syncs < 2 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	if w.Status().Syncs < 2 {
		t.Fatalf("expected periodic syncs, got %d", w.Status().Syncs)
	}

	stopCtx, cancel := context.WithTimeout(ctx, time.Second)
	defer cancel()
	if err := w.Stop(stopCtx); err != nil {
		t.Fatalf("stop: %v", err)
	}
	if w.IsRunning() {
		t.Fatal("worker should not be running after stop")
	}
	if err := w.Stop(stopCtx); err != nil {
		t.Fatalf("second stop should be a no-op: %v", err)
	}
}

func TestStartRequiresInterval(t *testing.T) {
	if err := NewSyncWorker(primary(), memory.New(), 0).Start(context.Background()); err == nil {
		t.Fatal("expected error for zero interval")
	}
}
