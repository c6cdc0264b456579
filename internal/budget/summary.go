package budget

import (
	"github.com/shopspring/decimal"

	"valuta/internal/core"
)

// Summary totals processed budgets against the month's income.
type Summary struct {
	TotalLimit             decimal.Decimal `json:"total_limit"`
	TotalActual            decimal.Decimal `json:"total_actual"`
	IncomeDivisor          decimal.Decimal `json:"income_divisor"`
	TotalRemainingVsIncome decimal.Decimal `json:"total_remaining_vs_income"`
	PercentOfIncomeSpent   decimal.Decimal `json:"percent_of_income_spent"`
	// IncomeAvailable is false when income was not positive and the total
	// limit was used as the divisor instead.
	IncomeAvailable bool `json:"income_available"`
}

// Aggregate sums limits and actuals and relates spending to income.
func Aggregate(processed []Processed, incomeReporting decimal.Decimal) Summary {
	s := Summary{
		TotalLimit:  decimal.Zero,
		TotalActual: decimal.Zero,
	}
	for _, p := range processed {
		s.TotalLimit = s.TotalLimit.Add(p.Budget.LimitReporting)
		s.TotalActual = s.TotalActual.Add(p.ActualReporting)
	}

	if incomeReporting.IsPositive() {
		s.IncomeDivisor = incomeReporting
		s.IncomeAvailable = true
	} else {
		s.IncomeDivisor = s.TotalLimit
	}

	s.TotalRemainingVsIncome = s.IncomeDivisor.Sub(s.TotalActual)
	if s.IncomeDivisor.IsZero() {
		s.PercentOfIncomeSpent = decimal.Zero
	} else {
		s.PercentOfIncomeSpent = s.TotalActual.Div(s.IncomeDivisor).Mul(hundred)
	}
	return s
}

// MonthIncome sums the reporting amounts of incomes dated within the
// calendar month containing month. Incomes with unparseable dates are skipped.
func (c *Calculator) MonthIncome(month core.Date, incomes []core.Income) decimal.Decimal {
	start, end := month.StartOfMonth(), month.EndOfMonth()
	total := decimal.Zero
	for _, in := range incomes {
		d, err := core.ParseDate(in.Date)
		if err != nil {
			c.log.Warn("Skipping income with invalid date",
				"income_id", in.ID, "date", in.Date, "error", err)
			continue
		}
		if d.Between(start, end) {
			total = total.Add(in.AmountReporting)
		}
	}
	return total
}
