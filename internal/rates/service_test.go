package rates

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"valuta/internal/cache"
	"valuta/internal/core"
	"valuta/internal/currency"
	"valuta/internal/ledger/memory"
)

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

type countingReader struct {
	*memory.Store
	calls int
	err   error
}

func (c *countingReader) GetRates(ctx context.Context, on core.Date, codes []string) (map[string]decimal.Decimal, error) {
	c.calls++
	if c.err != nil {
		return nil, c.err
	}
	return c.Store.GetRates(ctx, on, codes)
}

func newReader(t *testing.T) *countingReader {
	t.Helper()
	s := memory.New()
	if err := s.PutRates(context.Background(), []core.ExchangeRate{
		{Date: "2025-01-01", CurrencyCode: "USD", RateToReporting: d("0.9")},
		{Date: "2025-01-01", CurrencyCode: "GBP", RateToReporting: d("1.2")},
	}); err != nil {
		t.Fatalf("seed rates: %v", err)
	}
	return &countingReader{Store: s}
}

func TestSnapshotCachesPerDayAndCodes(t *testing.T) {
	r := newReader(t)
	svc := NewService(r, "eur", cache.NewLRUCache[*currency.Snapshot](8, time.Hour), nil)
	ctx := context.Background()
	on := core.NewDate(2025, 1, 5)

	snap, err := svc.Snapshot(ctx, on, []string{"usd", "GBP", "USD", "JPY"})
	if err != nil {
		t.Fatalf("snapshot: %v", err)
	}
	if rate, ok := snap.Rate("USD"); !ok || !rate.Equal(d("0.9")) {
		t.Fatalf("unexpected USD rate %s %v", rate, ok)
	}
	if _, ok := snap.Rate("JPY"); ok {
		t.Fatalf("JPY has no rate")
	}
	if rate, _ := snap.Rate("EUR"); !rate.Equal(decimal.NewFromInt(1)) {
		t.Fatalf("reporting rate must be 1")
	}

	if _, err := svc.Snapshot(ctx, on, []string{"JPY", "GBP", "USD"}); err != nil {
		t.Fatalf("snapshot: %v", err)
	}
	if r.calls != 1 {
		t.Fatalf("expected cached second lookup, got %d calls", r.calls)
	}

	if _, err := svc.Snapshot(ctx, on.AddDays(1), []string{"USD"}); err != nil {
		t.Fatalf("snapshot: %v", err)
	}
	if r.calls != 2 {
		t.Fatalf("a new day should hit the store, got %d calls", r.calls)
	}
}

func TestSnapshotReportingOnlySkipsStore(t *testing.T) {
	r := newReader(t)
	svc := NewService(r, "EUR", nil, nil)
	if _, err := svc.Snapshot(context.Background(), core.NewDate(2025, 1, 5), []string{"EUR"}); err != nil {
		t.Fatalf("snapshot: %v", err)
	}
	if r.calls != 0 {
		t.Fatalf("reporting-only snapshot should not query rates")
	}
}

func TestSnapshotError(t *testing.T) {
	r := newReader(t)
	r.err = errors.New("boom")
	svc := NewService(r, "EUR", nil, nil)
	if _, err := svc.Snapshot(context.Background(), core.NewDate(2025, 1, 5), []string{"USD"}); err == nil {
		t.Fatalf("expected store error")
	}
}
