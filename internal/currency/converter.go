package currency

import (
	"github.com/shopspring/decimal"

	"valuta/internal/core"
)

// Convert expresses amount, given in source, in target.
//
// The value is routed through the reporting currency:
// amount * rate(source) / rate(target). Converting a currency to itself
// returns amount unchanged regardless of the snapshot. If either rate is
// missing, ok is false and the caller must fall back to the native amount.
func Convert(amount decimal.Decimal, source, target string, snap *Snapshot) (decimal.Decimal, bool) {
	source, target = core.NormalizeCode(source), core.NormalizeCode(target)
	if source == target {
		return amount, true
	}
	sourceRate, ok := snap.Rate(source)
	if !ok {
		return decimal.Zero, false
	}
	targetRate, ok := snap.Rate(target)
	if !ok {
		return decimal.Zero, false
	}
	return amount.Mul(sourceRate).Div(targetRate), true
}

// ToReporting converts amount from code into the snapshot's reporting currency.
func ToReporting(amount decimal.Decimal, code string, snap *Snapshot) (decimal.Decimal, bool) {
	return Convert(amount, code, snap.Reporting(), snap)
}

// FromReporting converts a reporting-currency amount into code.
func FromReporting(amount decimal.Decimal, code string, snap *Snapshot) (decimal.Decimal, bool) {
	return Convert(amount, snap.Reporting(), code, snap)
}
