package cli

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"valuta/internal/config"
	"valuta/internal/core"
	applog "valuta/internal/log"
	"valuta/internal/ledger/memory"
)

func testConfig() *config.Config {
	return &config.Config{
		DataBackend:       "memory",
		ReportingCurrency: "EUR",
		RateCacheSize:     8,
		RateCacheTTL:      time.Minute,
	}
}

func testLogger() *applog.Logger {
	return applog.New(applog.Config{Level: slog.LevelError, Output: &bytes.Buffer{}})
}

func TestNewEngineCachesAndInvalidates(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	if err := store.PutRates(ctx, []core.ExchangeRate{
		{Date: "2025-01-01", CurrencyCode: "USD", RateToReporting: decimal.RequireFromString("0.9")},
	}); err != nil {
		t.Fatal(err)
	}

	e := NewEngine(testConfig(), store, testLogger())
	if _, err := e.Rates.Snapshot(ctx, core.NewDate(2025, 2, 1), []string{"USD"}); err != nil {
		t.Fatalf("snapshot: %v", err)
	}
	if e.Snapshots.Size() != 1 {
		t.Fatalf("expected one cached snapshot, got %d", e.Snapshots.Size())
	}
	e.InvalidateRates()
	if e.Snapshots.Size() != 0 {
		t.Errorf("cache should be empty after invalidation, got %d", e.Snapshots.Size())
	}
	if e.Dashboard == nil {
		t.Error("dashboard not wired")
	}
}

func TestNewRateSyncerRequiresSpreadsheet(t *testing.T) {
	_, err := NewRateSyncer(context.Background(), testConfig(), memory.New(), nil, testLogger())
	if !errors.Is(err, ErrRatesNotConfigured) {
		t.Errorf("error = %v, want ErrRatesNotConfigured", err)
	}
}

func TestOpenBackendMemory(t *testing.T) {
	cfg := testConfig()
	cfg.DataDirectory = t.TempDir()
	res := OpenBackend(context.Background(), testLogger(), cfg)
	defer res.Close()
	if res.Type != "memory" {
		t.Errorf("backend type = %s", res.Type)
	}
}
