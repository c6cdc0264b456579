// Package budget computes per-category budget consumption for a calendar
// month and aggregates it against income.
package budget

import (
	"log/slog"
	"strings"

	"github.com/shopspring/decimal"

	"valuta/internal/core"
	"valuta/internal/currency"
	applog "valuta/internal/log"
)

var hundred = decimal.NewFromInt(100)

// Actuals is the consumption of one budget over its month.
type Actuals struct {
	ActualReporting    decimal.Decimal `json:"actual_reporting"`
	RemainingReporting decimal.Decimal `json:"remaining_reporting"`
	ProgressPercent    decimal.Decimal `json:"progress_percent"`
}

// Processed pairs a budget with its computed actuals.
type Processed struct {
	Budget core.Budget `json:"budget"`
	Actuals
}

// Calculator matches expenses to budgets.
type Calculator struct {
	log *slog.Logger
}

// NewCalculator returns a calculator logging to logger (slog.Default when nil).
func NewCalculator(logger *slog.Logger) *Calculator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Calculator{log: logger.With(applog.FieldComponent, applog.ComponentBudget)}
}

// ComputeActuals sums the reporting amounts of expenses whose category
// matches case-insensitively and whose date falls within the budget month.
//
// An unparseable period start yields zero actual, the full limit remaining
// and zero progress. Expenses with unparseable dates are skipped.
func (c *Calculator) ComputeActuals(b core.Budget, expenses []core.Expense) Actuals {
	start, err := core.ParseDate(b.PeriodStartDate)
	if err != nil {
		c.log.Warn("Skipping budget with invalid period start",
			"budget_id", b.ID, "period_start", b.PeriodStartDate, "error", err)
		return Actuals{
			ActualReporting:    decimal.Zero,
			RemainingReporting: b.LimitReporting,
			ProgressPercent:    decimal.Zero,
		}
	}
	end := start.EndOfMonth()

	actual := decimal.Zero
	for _, e := range expenses {
		if !strings.EqualFold(strings.TrimSpace(e.Category), strings.TrimSpace(b.Category)) {
			continue
		}
		d, err := core.ParseDate(e.Date)
		if err != nil {
			c.log.Warn("Skipping expense with invalid date",
				"expense_id", e.ID, "date", e.Date, "error", err)
			continue
		}
		if !d.Between(start, end) {
			continue
		}
		actual = actual.Add(e.AmountReporting)
	}

	return Actuals{
		ActualReporting:    actual,
		RemainingReporting: b.LimitReporting.Sub(actual),
		ProgressPercent:    progress(actual, b.LimitReporting),
	}
}

func progress(actual, limit decimal.Decimal) decimal.Decimal {
	switch {
	case limit.IsPositive():
		return core.Clamp(actual.Div(limit).Mul(hundred), decimal.Zero, hundred)
	case actual.IsPositive():
		return hundred
	default:
		return decimal.Zero
	}
}

// Process computes actuals for every budget against the same expense list.
func (c *Calculator) Process(budgets []core.Budget, expenses []core.Expense) []Processed {
	out := make([]Processed, 0, len(budgets))
	for _, b := range budgets {
		out = append(out, Processed{Budget: b, Actuals: c.ComputeActuals(b, expenses)})
	}
	return out
}

// View is a processed budget expressed in a display currency.
type View struct {
	ID              string          `json:"id"`
	Category        string          `json:"category"`
	PeriodStartDate string          `json:"period_start_date"`
	Currency        string          `json:"currency"`
	Converted       bool            `json:"converted"`
	Limit           decimal.Decimal `json:"limit"`
	Actual          decimal.Decimal `json:"actual"`
	Remaining       decimal.Decimal `json:"remaining"`
	ProgressPercent decimal.Decimal `json:"progress_percent"`
}

// InCurrency re-expresses the reporting figures in target. When a rate is
// missing the reporting figures are returned with Converted false.
func (p Processed) InCurrency(target string, snap *currency.Snapshot) View {
	v := View{
		ID:              p.Budget.ID,
		Category:        p.Budget.Category,
		PeriodStartDate: p.Budget.PeriodStartDate,
		Currency:        snap.Reporting(),
		Limit:           p.Budget.LimitReporting,
		Actual:          p.ActualReporting,
		Remaining:       p.RemainingReporting,
		ProgressPercent: p.ProgressPercent,
	}
	limit, ok1 := currency.FromReporting(p.Budget.LimitReporting, target, snap)
	actual, ok2 := currency.FromReporting(p.ActualReporting, target, snap)
	if !ok1 || !ok2 {
		return v
	}
	v.Currency = core.NormalizeCode(target)
	v.Converted = true
	v.Limit = limit
	v.Actual = actual
	v.Remaining = limit.Sub(actual)
	return v
}
