// Package currency converts amounts between currencies by pivoting through
// the reporting currency, and resolves currency metadata for display.
package currency

import (
	"github.com/shopspring/decimal"

	"valuta/internal/core"
)

// Snapshot is the set of rates to the reporting currency as of one day.
// A nil Snapshot is valid and knows only the identity conversion.
type Snapshot struct {
	date      core.Date
	reporting string
	rates     map[string]decimal.Decimal
}

// NewSnapshotFromMap builds a snapshot from a code -> rate map. Non-positive
// rates are dropped, and the reporting currency always maps to exactly 1.
func NewSnapshotFromMap(reporting string, on core.Date, rates map[string]decimal.Decimal) *Snapshot {
	reporting = core.NormalizeCode(reporting)
	s := &Snapshot{
		date:      on,
		reporting: reporting,
		rates:     make(map[string]decimal.Decimal, len(rates)+1),
	}
	for code, rate := range rates {
		if !rate.IsPositive() {
			continue
		}
		s.rates[core.NormalizeCode(code)] = rate
	}
	if reporting != "" {
		s.rates[reporting] = decimal.NewFromInt(1)
	}
	return s
}

// Rate returns the units of reporting currency per unit of code.
func (s *Snapshot) Rate(code string) (decimal.Decimal, bool) {
	if s == nil {
		return decimal.Zero, false
	}
	r, ok := s.rates[core.NormalizeCode(code)]
	return r, ok
}

// Reporting returns the reporting currency code.
func (s *Snapshot) Reporting() string {
	if s == nil {
		return ""
	}
	return s.reporting
}

// Date returns the day the snapshot is "as of".
func (s *Snapshot) Date() core.Date {
	if s == nil {
		return core.Date{}
	}
	return s.date
}
