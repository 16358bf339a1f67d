package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"goaltrack/internal/amqp"
	applog "goaltrack/internal/log"
	"goaltrack/internal/storage"
)

// Status describes the outcome of the most recent mirror run.
type Status struct {
	LastSync time.Time
	Syncs    int
	LastErr  error
}

// SyncWorker copies the whole ledger from the primary store into a mirror,
// typically a Google Sheets tab. It runs on every ledger notification and
// on a fixed interval so a missed message is eventually repaired.
type SyncWorker struct {
	source   storage.LedgerReader
	mirror   storage.LedgerWriter
	interval time.Duration

	syncMu sync.Mutex
	status Status

	mu      sync.Mutex
	running bool
	stopCh  chan struct{}
	doneCh  chan struct{}
}

func NewSyncWorker(source storage.LedgerReader, mirror storage.LedgerWriter, interval time.Duration) *SyncWorker {
	return &SyncWorker{source: source, mirror: mirror, interval: interval}
}

// SyncNow mirrors the current ledger once. Concurrent calls run one after
// another.
func (w *SyncWorker) SyncNow(ctx context.Context) error {
	w.syncMu.Lock()
	defer w.syncMu.Unlock()

	err := w.sync(ctx)
	w.status.LastErr = err
	if err == nil {
		w.status.LastSync = time.Now()
		w.status.Syncs++
	}
	return err
}

func (w *SyncWorker) sync(ctx context.Context) error {
	records, err := w.source.Load(ctx)
	if err != nil {
		return fmt.Errorf("load primary ledger: %w", err)
	}
	if err := w.mirror.Save(ctx, records); err != nil {
		return fmt.Errorf("write mirror: %w", err)
	}
	slog.InfoContext(ctx, "Ledger mirrored",
		applog.FieldComponent, applog.ComponentWorker,
		applog.FieldOperation, applog.OpSync,
		applog.FieldRecords, len(records))
	return nil
}

// HandleLedgerUpdated is the AMQP handler. The message only triggers a
// full mirror, its contents are logged.
func (w *SyncWorker) HandleLedgerUpdated(ctx context.Context, msg *amqp.LedgerUpdatedMessage) error {
	slog.InfoContext(ctx, "Ledger update received",
		applog.FieldMessage, msg.ID,
		applog.FieldMonth, msg.Month,
		applog.FieldCategory, msg.Category)
	return w.SyncNow(ctx)
}

func (w *SyncWorker) Status() Status {
	w.syncMu.Lock()
	defer w.syncMu.Unlock()
	return w.status
}

// Start runs an immediate mirror and then one per interval until Stop is
// called or ctx is done.
func (w *SyncWorker) Start(ctx context.Context) error {
	if w.interval <= 0 {
		return errors.New("sync interval must be positive")
	}
	w.mu.Lock()
	if w.running {
		w.mu.Unlock()
		return errors.New("sync worker is already running")
	}
	w.running = true
	w.stopCh = make(chan struct{})
	w.doneCh = make(chan struct{})
	w.mu.Unlock()

	go w.runLoop(ctx)
	slog.InfoContext(ctx, "Sync worker started", "interval", w.interval)
	return nil
}

func (w *SyncWorker) runLoop(ctx context.Context) {
	defer close(w.doneCh)

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	w.syncLogged(ctx)
	for {
		select {
		case <-w.stopCh:
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
			w.syncLogged(ctx)
		}
	}
}

func (w *SyncWorker) syncLogged(ctx context.Context) {
	if err := w.SyncNow(ctx); err != nil && ctx.Err() == nil {
		slog.ErrorContext(ctx, "Periodic ledger mirror failed", applog.FieldError, err)
	}
}

// Stop signals the loop and waits for it to finish or ctx to expire.
func (w *SyncWorker) Stop(ctx context.Context) error {
	w.mu.Lock()
	if !w.running {
		w.mu.Unlock()
		return nil
	}
	stopCh, doneCh := w.stopCh, w.doneCh
	w.running = false
	w.mu.Unlock()

	close(stopCh)
	select {
	case <-doneCh:
		slog.InfoContext(ctx, "Sync worker stopped")
		return nil
	case <-ctx.Done():
		slog.WarnContext(ctx, "Sync worker stop timed out")
		return ctx.Err()
	}
}

func (w *SyncWorker) IsRunning() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.running
}
