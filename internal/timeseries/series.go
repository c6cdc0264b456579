// Package timeseries reconstructs historical balances from the current
// total by reversing cash-flow events that happened after each bucket.
package timeseries

import (
	"log/slog"

	"github.com/shopspring/decimal"

	"valuta/internal/core"
	"valuta/internal/currency"
	applog "valuta/internal/log"
)

// Request is the input of Reconstruct.
type Request struct {
	CurrentTotalReporting decimal.Decimal
	Incomes               []core.Income
	Expenses              []core.Expense
	From                  core.Date
	To                    core.Date
	// Today bounds the series. Zero means core.Today().
	Today       core.Date
	HasAccounts bool
}

// Point is one bucket of the series.
type Point struct {
	Label       string          `json:"label"`
	Start       core.Date       `json:"start"`
	End         core.Date       `json:"end"`
	Balance     decimal.Decimal `json:"balance"`
	PeriodSpend decimal.Decimal `json:"period_spend"`
}

// Series is a reconstructed series with its chosen granularity.
type Series struct {
	Granularity Granularity `json:"granularity"`
	Points      []Point     `json:"points"`
}

type event struct {
	date   core.Date
	amount decimal.Decimal
	linked bool
}

// Reconstructor builds balance series.
type Reconstructor struct {
	log *slog.Logger
}

// NewReconstructor returns a reconstructor logging to logger (slog.Default when nil).
func NewReconstructor(logger *slog.Logger) *Reconstructor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Reconstructor{log: logger.With(applog.FieldComponent, applog.ComponentTimeseries)}
}

// Reconstruct returns one point per bucket of req's range. The balance at
// bucket end t is the current total minus linked incomes in (t, today] plus
// linked expenses in (t, today]. PeriodSpend counts every expense inside the
// bucket, linked or not. A missing or inverted range, or a user without
// accounts, yields an empty series.
func (r *Reconstructor) Reconstruct(req Request) Series {
	today := req.Today
	if today.IsEmpty() {
		today = core.Today()
	}
	if !req.HasAccounts || req.From.IsEmpty() || req.To.IsEmpty() || req.To.Before(req.From) {
		return Series{Points: []Point{}}
	}

	g := GranularityFor(req.From.DaysUntil(req.To) + 1)
	incomes := r.incomeEvents(req.Incomes)
	expenses := r.expenseEvents(req.Expenses)

	bs := buckets(g, req.From, req.To, today)
	points := make([]Point, 0, len(bs))
	for _, b := range bs {
		balance := req.CurrentTotalReporting
		for _, in := range incomes {
			if in.linked && in.date.After(b.end) && !in.date.After(today) {
				balance = balance.Sub(in.amount)
			}
		}
		spend := decimal.Zero
		for _, ex := range expenses {
			if ex.linked && ex.date.After(b.end) && !ex.date.After(today) {
				balance = balance.Add(ex.amount)
			}
			if ex.date.Between(b.start, b.end) {
				spend = spend.Add(ex.amount)
			}
		}
		points = append(points, Point{
			Label:       b.label,
			Start:       b.start,
			End:         b.end,
			Balance:     balance,
			PeriodSpend: spend,
		})
	}
	return Series{Granularity: g, Points: points}
}

func (r *Reconstructor) incomeEvents(incomes []core.Income) []event {
	out := make([]event, 0, len(incomes))
	for _, in := range incomes {
		d, err := core.ParseDate(in.Date)
		if err != nil {
			r.log.Warn("Skipping income with invalid date", "income_id", in.ID, "date", in.Date, "error", err)
			continue
		}
		out = append(out, event{date: d, amount: in.AmountReporting, linked: in.Linked()})
	}
	return out
}

func (r *Reconstructor) expenseEvents(expenses []core.Expense) []event {
	out := make([]event, 0, len(expenses))
	for _, ex := range expenses {
		d, err := core.ParseDate(ex.Date)
		if err != nil {
			r.log.Warn("Skipping expense with invalid date", "expense_id", ex.ID, "date", ex.Date, "error", err)
			continue
		}
		out = append(out, event{date: d, amount: ex.AmountReporting, linked: ex.Linked()})
	}
	return out
}

// PointView is a point expressed in a display currency.
type PointView struct {
	Label       string          `json:"label"`
	Currency    string          `json:"currency"`
	Converted   bool            `json:"converted"`
	Balance     decimal.Decimal `json:"balance"`
	PeriodSpend decimal.Decimal `json:"period_spend"`
}

// InCurrency re-expresses p in target, falling back to the reporting figures
// when the rate is missing.
func (p Point) InCurrency(target string, snap *currency.Snapshot) PointView {
	v := PointView{Label: p.Label, Currency: snap.Reporting(), Balance: p.Balance, PeriodSpend: p.PeriodSpend}
	balance, ok1 := currency.FromReporting(p.Balance, target, snap)
	spend, ok2 := currency.FromReporting(p.PeriodSpend, target, snap)
	if ok1 && ok2 {
		v.Currency = core.NormalizeCode(target)
		v.Converted = true
		v.Balance = balance
		v.PeriodSpend = spend
	}
	return v
}

// InCurrency converts every point of s.
func (s Series) InCurrency(target string, snap *currency.Snapshot) []PointView {
	out := make([]PointView, 0, len(s.Points))
	for _, p := range s.Points {
		out = append(out, p.InCurrency(target, snap))
	}
	return out
}
