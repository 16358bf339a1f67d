package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"time"

	"golang.org/x/sync/errgroup"

	"goaltrack/internal/amqp"
	"goaltrack/internal/cache"
	"goaltrack/internal/cli"
	apphttp "goaltrack/internal/http"
	applog "goaltrack/internal/log"
	"goaltrack/internal/metrics"
	"goaltrack/internal/services"
)

const shutdownTimeout = 30 * time.Second

func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger(applog.ComponentApp)
	cfg := cli.LoadAndValidateConfig(logger)

	goal, err := cfg.Goal()
	if err != nil {
		logger.Error("Invalid savings goal", applog.FieldError, err)
		os.Exit(1)
	}

	ctx, stop := cli.SignalContext(logger)
	defer stop()

	res := cli.OpenLedgerBackend(ctx, logger, cfg)
	defer func() {
		if err := res.Close(); err != nil {
			logger.Error("Failed to close ledger backend", applog.FieldError, err)
		}
	}()

	// Publishing is optional. A nil *amqp.Client must not end up inside the
	// Publisher interface.
	var publisher services.Publisher
	if cfg.AMQPURL != "" {
		client, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
		if err != nil {
			logger.Warn("AMQP unavailable, ledger updates will not be published", applog.FieldError, err)
		} else {
			defer client.Close()
			publisher = client
			logger.Info("AMQP publisher connected", "exchange", cfg.AMQPExchange)
		}
	}
	ledgerSvc := services.NewLedgerService(res.Store, publisher, goal)

	datasets := cache.NewLRUCache[[]metrics.Record](cfg.MetricsCacheSize, cfg.MetricsCacheTTL)
	cacheManager := cache.NewManager()
	cacheManager.Register(datasets)
	cacheManager.StartCleanup(ctx, time.Minute)
	defer cacheManager.Stop()
	metricsSvc := services.NewMetricsService(cfg.MetricsDataDir, cache.NewLoader[[]metrics.Record](datasets))

	srv := apphttp.NewServer(apphttp.Config{
		Addr:               ":" + cfg.Port,
		RateLimitPerMinute: cfg.RateLimitPerMinute,
		Logger:             logger.WithComponent(applog.ComponentHTTP),
		Ready:              res.Ready,
	}, ledgerSvc, metricsSvc)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("Starting goaltrack server",
			"port", cfg.Port,
			applog.FieldBackend, cfg.LedgerBackend,
			"goal", goal.Amount.String(),
			"deadline", goal.Deadline.String())
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		logger.Error("Server error", applog.FieldError, err, "port", cfg.Port)
		os.Exit(1)
	}
	logger.Info("Server stopped gracefully")
}
