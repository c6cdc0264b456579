package main

import (
	"context"
	"errors"
	"time"

	"valuta/internal/amqp"
	"valuta/internal/cli"
	applog "valuta/internal/log"
	"valuta/internal/services"
	"valuta/internal/worker"
)

func main() {
	cli.LoadEnvFile()

	boot := cli.SetupLogger(applog.ComponentWorker, "info")
	cfg := cli.LoadAndValidateConfig(boot)
	logger := cli.SetupLogger(applog.ComponentWorker, cfg.LogLevel)

	logger.Info("Starting valuta-worker")

	ctx := context.Background()
	if cfg.AMQPURL == "" {
		logger.Fatal(ctx, "AMQP_URL is required for the worker")
	}

	store := cli.OpenBackend(ctx, logger, cfg)
	engine := cli.NewEngine(cfg, store.Backend, logger)

	amqpClient, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue, cfg.AMQPResultsQueue)
	if err != nil {
		logger.Fatal(ctx, "Failed to initialize AMQP client", applog.FieldError, err)
	}

	var syncer *services.RateSyncer
	runCtx, done := cli.GracefulShutdown(logger, 30*time.Second, func(shutdownCtx context.Context) {
		if syncer != nil {
			if err := syncer.Stop(shutdownCtx); err != nil {
				logger.Warn("Rate syncer stop error", applog.FieldError, err)
			}
		}
		engine.Caches.Stop()
		if err := amqpClient.Close(); err != nil {
			logger.Warn("AMQP close error", applog.FieldError, err)
		}
		if err := store.Close(); err != nil {
			logger.Warn("Backend close error", applog.FieldError, err)
		}
	})

	engine.Caches.StartCleanup(runCtx, time.Minute)

	// Rates are refreshed here too so a worker-only deployment stays current
	syncer, err = cli.NewRateSyncer(runCtx, cfg, store.Backend, engine.InvalidateRates, logger)
	switch {
	case errors.Is(err, cli.ErrRatesNotConfigured):
		logger.Info("Rates spreadsheet not configured, skipping rate sync")
	case err != nil:
		logger.Warn("Failed to initialize rates spreadsheet, skipping rate sync", applog.FieldError, err)
		syncer = nil
	default:
		if err := syncer.Start(runCtx); err != nil {
			logger.Warn("Failed to start rate syncer", applog.FieldError, err)
		}
	}

	recompute := worker.NewRecomputeWorker(engine.Dashboard, amqpClient, logger.Slog())

	go func() {
		if err := amqpClient.ConsumeRecompute(runCtx, recompute.HandleRecompute); err != nil && !errors.Is(err, context.Canceled) {
			logger.Error("Message consumption failed", applog.FieldError, err)
		}
	}()

	logger.Info("Worker consuming recompute requests",
		"queue", cfg.AMQPQueue,
		"results_queue", cfg.AMQPResultsQueue,
		"backend", cfg.DataBackend)

	cli.WaitForShutdown(runCtx, done)
	logger.Info("Worker stopped gracefully")
}
