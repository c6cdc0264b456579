// Package cli provides common CLI initialization utilities.
// This package consolidates repeated initialization patterns across
// cmd/valuta, cmd/valuta-worker, and cmd/rates-sync.
package cli

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"valuta/internal/backend"
	"valuta/internal/cache"
	"valuta/internal/config"
	"valuta/internal/currency"
	applog "valuta/internal/log"
	"valuta/internal/rates"
	"valuta/internal/rates/sheets"
	"valuta/internal/services"
)

// ErrRatesNotConfigured is returned when no rates spreadsheet is set.
var ErrRatesNotConfigured = errors.New("rates spreadsheet not configured")

// SetupLogger initializes structured logging for a binary and sets it as the
// default logger.
func SetupLogger(component, level string) *applog.Logger {
	return applog.Setup(component, level)
}

// LoadEnvFile loads the .env file for local development.
// Errors are ignored silently as this is optional in production.
func LoadEnvFile() {
	_ = godotenv.Load()
}

// LoadAndValidateConfig loads configuration and validates it.
// Returns the config or exits the process on validation failure.
func LoadAndValidateConfig(logger *applog.Logger) *config.Config {
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		logger.Fatal(context.Background(), "Configuration validation failed", applog.FieldError, err)
	}
	return cfg
}

// OpenBackend builds the configured ledger store or exits the process.
func OpenBackend(ctx context.Context, logger *applog.Logger, cfg *config.Config) *backend.BackendResult {
	bcfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		logger.Fatal(ctx, "Invalid backend configuration", applog.FieldError, err)
	}
	res, err := backend.NewFactory(logger.Slog()).CreateBackend(ctx, bcfg)
	if err != nil {
		logger.Fatal(ctx, "Failed to initialize backend", applog.FieldError, err, "backend", cfg.DataBackend)
	}
	return res
}

// Engine is the dashboard service together with the rate snapshot cache
// feeding it.
type Engine struct {
	Dashboard *services.Dashboard
	Rates     *rates.Service
	Snapshots *cache.LRUCache[*currency.Snapshot]
	Caches    *cache.Manager
}

// NewEngine wires the rate service and dashboard over store.
func NewEngine(cfg *config.Config, store backend.Backend, logger *applog.Logger) *Engine {
	snapshots := cache.NewLRUCache[*currency.Snapshot](cfg.RateCacheSize, cfg.RateCacheTTL)
	rs := rates.NewService(store, cfg.ReportingCurrency, snapshots, logger.Slog())
	dash := services.NewDashboard(store, rs, nil, logger.Slog(), services.DashboardOptions{
		DisplayCurrency: cfg.DisplayCurrency,
		StrictReplay:    cfg.StrictReplay,
	})
	m := cache.NewManager()
	m.Register(snapshots)
	return &Engine{Dashboard: dash, Rates: rs, Snapshots: snapshots, Caches: m}
}

// InvalidateRates drops every cached snapshot after new rates land.
func (e *Engine) InvalidateRates() {
	e.Snapshots.Purge()
}

// NewRateSyncer builds a syncer from the rates spreadsheet into store.
// It returns ErrRatesNotConfigured when no spreadsheet is set.
func NewRateSyncer(ctx context.Context, cfg *config.Config, store backend.Backend, onSync func(), logger *applog.Logger) (*services.RateSyncer, error) {
	if cfg.RatesSpreadsheetID == "" {
		return nil, ErrRatesNotConfigured
	}
	client, err := sheets.New(ctx, sheets.Config{
		SpreadsheetID:   cfg.RatesSpreadsheetID,
		SheetName:       cfg.RatesSheetName,
		CredentialsJSON: cfg.GoogleCredentialsJSON,
		CredentialsFile: cfg.GoogleCredentialsFile,
	})
	if err != nil {
		return nil, err
	}
	return services.NewRateSyncer(client, store, onSync,
		services.RateSyncerConfig{Interval: cfg.RatesSyncInterval}, logger.Slog()), nil
}

// GracefulShutdown sets up signal handling for graceful shutdown.
// Returns a context that will be cancelled on shutdown signals,
// and a channel that signals when shutdown is complete.
func GracefulShutdown(logger *applog.Logger, timeout time.Duration, cleanup func(ctx context.Context)) (context.Context, <-chan struct{}) {
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})

	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		sig := <-sigChan
		logger.Info("Shutdown signal received", "signal", sig.String())

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), timeout)
		defer shutdownCancel()

		cancel()
		if cleanup != nil {
			cleanup(shutdownCtx)
		}

		if shutdownCtx.Err() != nil {
			logger.Warn("Shutdown timeout reached")
		} else {
			logger.Info("Shutdown complete")
		}
		close(done)
	}()

	return ctx, done
}

// WaitForShutdown blocks until the context is cancelled.
func WaitForShutdown(ctx context.Context, done <-chan struct{}) {
	<-ctx.Done()
	<-done
}
