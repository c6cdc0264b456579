// Command rates-sync copies exchange rates from the rates spreadsheet into the
// configured store. With -loop it keeps syncing on RATES_SYNC_INTERVAL.
package main

import (
	"context"
	"flag"
	"time"

	"valuta/internal/cli"
	applog "valuta/internal/log"
)

func main() {
	loop := flag.Bool("loop", false, "keep syncing on RATES_SYNC_INTERVAL until interrupted")
	timeout := flag.Duration("timeout", 2*time.Minute, "timeout for a one-shot sync")
	flag.Parse()

	cli.LoadEnvFile()

	boot := cli.SetupLogger(applog.ComponentRatesSync, "info")
	cfg := cli.LoadAndValidateConfig(boot)
	logger := cli.SetupLogger(applog.ComponentRatesSync, cfg.LogLevel)

	ctx := context.Background()
	store := cli.OpenBackend(ctx, logger, cfg)
	defer store.Close()

	syncer, err := cli.NewRateSyncer(ctx, cfg, store.Backend, nil, logger)
	if err != nil {
		logger.Fatal(ctx, "Failed to initialize rate syncer", applog.FieldError, err)
	}

	if !*loop {
		syncCtx, cancel := context.WithTimeout(ctx, *timeout)
		defer cancel()
		n, err := syncer.SyncOnce(syncCtx)
		if err != nil {
			logger.LogError(syncCtx, "Rate sync failed", err, applog.ErrorTypeNetwork, applog.OpSync, nil)
			store.Close()
			logger.Fatal(ctx, "Exiting")
		}
		logger.Info("Rate sync complete", "count", n, "backend", cfg.DataBackend)
		return
	}

	runCtx, done := cli.GracefulShutdown(logger, 30*time.Second, func(shutdownCtx context.Context) {
		if err := syncer.Stop(shutdownCtx); err != nil {
			logger.Warn("Rate syncer stop error", applog.FieldError, err)
		}
	})
	if err := syncer.Start(runCtx); err != nil {
		logger.Fatal(ctx, "Failed to start rate syncer", applog.FieldError, err)
	}
	logger.Info("Rate sync loop started", "interval", cfg.RatesSyncInterval.String())

	cli.WaitForShutdown(runCtx, done)
}
