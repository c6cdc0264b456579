// Package rates assembles dated currency snapshots from a rate store.
package rates

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/shopspring/decimal"

	"valuta/internal/cache"
	"valuta/internal/core"
	"valuta/internal/currency"
	"valuta/internal/ledger"
	applog "valuta/internal/log"
)

// Service builds snapshots for a reporting currency, caching them per day
// and currency set.
type Service struct {
	reader    ledger.RateReader
	reporting string
	cache     cache.Cache[*currency.Snapshot]
	log       *slog.Logger
}

// NewService returns a service over reader. A nil cache disables caching.
func NewService(reader ledger.RateReader, reporting string, c cache.Cache[*currency.Snapshot], logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		reader:    reader,
		reporting: core.NormalizeCode(reporting),
		cache:     c,
		log:       logger.With(applog.FieldComponent, applog.ComponentRates),
	}
}

// Reporting is the reporting currency code.
func (s *Service) Reporting() string { return s.reporting }

// Snapshot returns the rates to the reporting currency for codes as of on.
// Codes without a recorded rate are absent from the snapshot.
func (s *Service) Snapshot(ctx context.Context, on core.Date, codes []string) (*currency.Snapshot, error) {
	want := normalize(codes, s.reporting)
	key := on.String() + "|" + strings.Join(want, ",")
	if s.cache != nil {
		if snap, ok := s.cache.Get(key); ok {
			return snap, nil
		}
	}

	lookup := make([]string, 0, len(want))
	for _, c := range want {
		if c != s.reporting {
			lookup = append(lookup, c)
		}
	}
	found := map[string]decimal.Decimal{}
	if len(lookup) > 0 {
		var err error
		found, err = s.reader.GetRates(ctx, on, lookup)
		if err != nil {
			return nil, fmt.Errorf("load rates for %s: %w", on, err)
		}
	}
	for _, c := range lookup {
		if _, ok := found[c]; !ok {
			s.log.WarnContext(ctx, "Exchange rate unavailable", "currency", c, "date", on.String())
		}
	}

	snap := currency.NewSnapshotFromMap(s.reporting, on, found)
	if s.cache != nil {
		s.cache.Set(key, snap)
	}
	return snap, nil
}

func normalize(codes []string, reporting string) []string {
	seen := map[string]struct{}{reporting: {}}
	out := []string{reporting}
	for _, c := range codes {
		c = core.NormalizeCode(c)
		if c == "" {
			continue
		}
		if _, ok := seen[c]; ok {
			continue
		}
		seen[c] = struct{}{}
		out = append(out, c)
	}
	sort.Strings(out)
	return out
}
