// Package investment replays investment transactions into a running
// average-cost basis and values the resulting position.
package investment

import (
	"fmt"

	"github.com/shopspring/decimal"

	"valuta/internal/core"
)

// State is the position after some prefix of the transaction history.
// States are values; Apply returns a new one.
type State struct {
	Quantity      decimal.Decimal `json:"quantity"`
	CostReporting decimal.Decimal `json:"cost_reporting"`
}

// Zero is the empty position.
var Zero = State{Quantity: decimal.Zero, CostReporting: decimal.Zero}

// AvgCost is the cost per unit, or 0 when no units are held.
func (s State) AvgCost() decimal.Decimal {
	if s.Quantity.IsZero() {
		return decimal.Zero
	}
	return s.CostReporting.Div(s.Quantity)
}

// Value is the market value of the position at price per unit.
func (s State) Value(price decimal.Decimal) decimal.Decimal {
	return s.Quantity.Mul(price)
}

// Priced is a transaction with its reporting-currency figures resolved.
type Priced struct {
	Tx                    core.InvestmentTransaction
	Date                  core.Date
	PricePerUnitReporting decimal.Decimal
	FeesReporting         decimal.Decimal
}

// Cash is the reporting value of a dividend: units times price when units
// are given, otherwise the price field carries the whole amount. Fees are
// deducted.
func (p Priced) Cash() decimal.Decimal {
	gross := p.PricePerUnitReporting
	if p.Tx.Quantity.IsPositive() {
		gross = p.Tx.Quantity.Mul(p.PricePerUnitReporting)
	}
	return gross.Sub(p.FeesReporting)
}

// Apply folds one transaction into s.
//
// Buys and reinvestments add units at their price plus fees. Sells remove
// cost at the average cost per unit; a position sold down to zero or below
// is reset to Zero. With strict set, a sell of more units than held returns
// ErrQuantityUnderflow and s unchanged. Dividends leave the position as is.
func Apply(s State, p Priced, strict bool) (State, error) {
	qty := p.Tx.Quantity
	switch p.Tx.Type {
	case core.Buy, core.Reinvest:
		return State{
			Quantity:      s.Quantity.Add(qty),
			CostReporting: s.CostReporting.Add(qty.Mul(p.PricePerUnitReporting)).Add(p.FeesReporting),
		}, nil
	case core.Sell:
		if strict && qty.GreaterThan(s.Quantity) {
			return s, fmt.Errorf("sell %s of %s held: %w", qty, s.Quantity, core.ErrQuantityUnderflow)
		}
		next := State{
			Quantity:      s.Quantity.Sub(qty),
			CostReporting: s.CostReporting.Sub(s.AvgCost().Mul(qty)),
		}
		if !next.Quantity.IsPositive() {
			return Zero, nil
		}
		return next, nil
	case core.Dividend:
		return s, nil
	default:
		return s, &core.ValidationError{Field: "type", Reason: fmt.Sprintf("unknown transaction type %q", p.Tx.Type)}
	}
}
