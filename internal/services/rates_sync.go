package services

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"valuta/internal/core"
	"valuta/internal/ledger"
	applog "valuta/internal/log"
)

// RateSource supplies exchange rates, e.g. a spreadsheet.
type RateSource interface {
	FetchRates(ctx context.Context) ([]core.ExchangeRate, error)
}

// RateSyncerConfig holds configuration for the rate syncer
type RateSyncerConfig struct {
	// Interval is how often rates are pulled from the source (default: 1h)
	Interval time.Duration
}

// DefaultRateSyncerConfig returns sensible defaults
func DefaultRateSyncerConfig() RateSyncerConfig {
	return RateSyncerConfig{Interval: time.Hour}
}

// RateSyncer copies rates from a source into the rate store.
type RateSyncer struct {
	source RateSource
	writer ledger.RateWriter
	// onSync runs after every successful write, e.g. to drop cached snapshots.
	onSync func()
	config RateSyncerConfig
	log    *slog.Logger

	mu      sync.Mutex
	running bool
	stopCh  chan struct{}
	doneCh  chan struct{}
}

func NewRateSyncer(source RateSource, writer ledger.RateWriter, onSync func(), config RateSyncerConfig, logger *slog.Logger) *RateSyncer {
	if logger == nil {
		logger = slog.Default()
	}
	if config.Interval <= 0 {
		config.Interval = DefaultRateSyncerConfig().Interval
	}
	return &RateSyncer{
		source: source,
		writer: writer,
		onSync: onSync,
		config: config,
		log:    logger.With(applog.FieldComponent, applog.ComponentRatesSync),
	}
}

// SyncOnce pulls every rate from the source and upserts it. It returns the
// number of rates written.
func (s *RateSyncer) SyncOnce(ctx context.Context) (int, error) {
	start := time.Now()
	rates, err := s.source.FetchRates(ctx)
	if err != nil {
		return 0, fmt.Errorf("fetch rates: %w", err)
	}
	if len(rates) == 0 {
		s.log.WarnContext(ctx, "Rate source returned no rates")
		return 0, nil
	}
	if err := s.writer.PutRates(ctx, rates); err != nil {
		return 0, fmt.Errorf("store rates: %w", err)
	}
	if s.onSync != nil {
		s.onSync()
	}
	s.log.InfoContext(ctx, "Synced exchange rates",
		"count", len(rates),
		"duration_ms", time.Since(start).Milliseconds())
	return len(rates), nil
}

// Start begins the sync loop. Returns an error if already running.
func (s *RateSyncer) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return fmt.Errorf("rate syncer is already running")
	}
	s.running = true
	s.stopCh = make(chan struct{})
	s.doneCh = make(chan struct{})
	s.mu.Unlock()

	go s.runLoop(ctx)

	s.log.InfoContext(ctx, "Rate syncer started", "interval", s.config.Interval)
	return nil
}

// Stop signals the loop and waits for it to exit or ctx to end.
func (s *RateSyncer) Stop(ctx context.Context) error {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return nil
	}
	s.mu.Unlock()

	close(s.stopCh)

	select {
	case <-s.doneCh:
		s.log.InfoContext(ctx, "Rate syncer stopped gracefully")
	case <-ctx.Done():
		s.log.WarnContext(ctx, "Rate syncer stop timed out")
		return ctx.Err()
	}

	s.mu.Lock()
	s.running = false
	s.mu.Unlock()
	return nil
}

func (s *RateSyncer) IsRunning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

func (s *RateSyncer) runLoop(ctx context.Context) {
	defer close(s.doneCh)

	ticker := time.NewTicker(s.config.Interval)
	defer ticker.Stop()

	s.syncAndLog(ctx)
	for {
		select {
		case <-s.stopCh:
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.syncAndLog(ctx)
		}
	}
}

func (s *RateSyncer) syncAndLog(ctx context.Context) {
	if _, err := s.SyncOnce(ctx); err != nil {
		s.log.ErrorContext(ctx, "Rate sync failed", "error", err)
	}
}
