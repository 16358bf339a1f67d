// Command ledger-sync mirrors the primary ledger store into a Google Sheets
// tab, periodically and whenever a ledger update arrives over AMQP.
package main

import (
	"context"
	"os"
	"time"

	"golang.org/x/sync/errgroup"

	"goaltrack/internal/amqp"
	"goaltrack/internal/cli"
	"goaltrack/internal/config"
	applog "goaltrack/internal/log"
	gsheet "goaltrack/internal/sheets/google"
	"goaltrack/internal/worker"
)

func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger(applog.ComponentWorker)
	logger.Info("Starting ledger-sync")

	cfg := cli.LoadAndValidateConfig(logger)
	if cfg.LedgerBackend == config.BackendSheets {
		logger.Error("Primary ledger backend is already Google Sheets, nothing to mirror")
		os.Exit(1)
	}

	ctx, stop := cli.SignalContext(logger)
	defer stop()

	res := cli.OpenLedgerBackend(ctx, logger, cfg)
	defer res.Close()

	mirror, err := gsheet.NewWithEnvCredentials(ctx, cfg.GoogleSpreadsheetID, cfg.GoogleSheetName)
	if err != nil {
		logger.Error("Failed to initialize Google Sheets client", applog.FieldError, err)
		os.Exit(1)
	}
	logger.Info("Google Sheets mirror ready", "spreadsheet_id", cfg.GoogleSpreadsheetID, "sheet", mirror.SheetName())

	syncWorker := worker.NewSyncWorker(res.Store, mirror, cfg.SyncInterval)
	if err := syncWorker.Start(ctx); err != nil {
		logger.Error("Failed to start sync worker", applog.FieldError, err)
		os.Exit(1)
	}

	g, gctx := errgroup.WithContext(ctx)
	if cfg.AMQPURL != "" {
		client, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
		if err != nil {
			logger.Warn("AMQP unavailable, relying on periodic sync only", applog.FieldError, err)
		} else {
			defer client.Close()
			g.Go(func() error {
				err := client.ConsumeLedgerUpdates(gctx, syncWorker.HandleLedgerUpdated)
				if gctx.Err() != nil {
					return nil
				}
				return err
			})
		}
	} else {
		logger.Info("AMQP disabled, relying on periodic sync only", "interval", cfg.SyncInterval)
	}
	g.Go(func() error {
		<-gctx.Done()
		return nil
	})

	waitErr := g.Wait()

	stopCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := syncWorker.Stop(stopCtx); err != nil {
		logger.Error("Error stopping sync worker", applog.FieldError, err)
	}
	if waitErr != nil {
		logger.Error("Consumer failed", applog.FieldError, waitErr)
		os.Exit(1)
	}
	st := syncWorker.Status()
	logger.Info("ledger-sync stopped", "syncs", st.Syncs, "last_sync", st.LastSync)
}
