package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"valuta/internal/budget"
	"valuta/internal/core"
	"valuta/internal/currency"
	"valuta/internal/investment"
	"valuta/internal/ledger"
	applog "valuta/internal/log"
	"valuta/internal/rates"
	"valuta/internal/timeseries"
)

// Kind names a dashboard computation.
type Kind string

const (
	KindBudgets     Kind = "budgets"
	KindInvestments Kind = "investments"
	KindBalance     Kind = "balance"
)

func (k Kind) IsValid() bool {
	switch k {
	case KindBudgets, KindInvestments, KindBalance:
		return true
	}
	return false
}

// DashboardOptions configure a Dashboard.
type DashboardOptions struct {
	// DisplayCurrency is used when a request names none. Empty means the
	// reporting currency.
	DisplayCurrency string
	StrictReplay    bool
	// Today overrides the clock.
	Today func() core.Date
}

// Dashboard fetches ledger data in parallel and runs the valuation engines.
type Dashboard struct {
	reader   ledger.Reader
	rates    *rates.Service
	registry *currency.Registry
	budgets  *budget.Calculator
	series   *timeseries.Reconstructor
	opts     DashboardOptions
	logger   *slog.Logger
	log      *slog.Logger
}

func NewDashboard(reader ledger.Reader, rs *rates.Service, registry *currency.Registry, logger *slog.Logger, opts DashboardOptions) *Dashboard {
	if logger == nil {
		logger = slog.Default()
	}
	if registry == nil {
		registry = currency.NewRegistry(currency.DefaultExtras...)
	}
	if opts.Today == nil {
		opts.Today = core.Today
	}
	return &Dashboard{
		reader:   reader,
		rates:    rs,
		registry: registry,
		budgets:  budget.NewCalculator(logger),
		series:   timeseries.NewReconstructor(logger),
		opts:     opts,
		logger:   logger,
		log:      logger.With(applog.FieldComponent, applog.ComponentDashboard),
	}
}

// Registry is the currency registry used for presentation.
func (d *Dashboard) Registry() *currency.Registry { return d.registry }

func (d *Dashboard) display(code string) string {
	if c := core.NormalizeCode(code); c != "" {
		return c
	}
	if c := core.NormalizeCode(d.opts.DisplayCurrency); c != "" {
		return c
	}
	return d.rates.Reporting()
}

// BudgetsView is the month's budgets in a display currency.
type BudgetsView struct {
	Month     string           `json:"month"`
	Reporting string           `json:"reporting_currency"`
	Currency  string           `json:"currency"`
	Budgets   []budget.View    `json:"budgets"`
	Summary   budget.Summary   `json:"summary"`
	Totals    BudgetTotalsView `json:"totals"`
}

// BudgetTotalsView presents the reporting summary figures for display.
type BudgetTotalsView struct {
	Limit     currency.Presentation `json:"limit"`
	Actual    currency.Presentation `json:"actual"`
	Remaining currency.Presentation `json:"remaining"`
}

// Budgets processes every budget of the month containing month.
func (d *Dashboard) Budgets(ctx context.Context, userID string, month core.Date, display string) (BudgetsView, error) {
	start := time.Now()
	r := ledger.Month(month)

	var (
		budgets  []core.Budget
		expenses []core.Expense
		incomes  []core.Income
	)
	g, gctx := errgroup.WithContext(ctx)
	fetchInto(gctx, g, d.log, "budgets", &budgets, func(ctx context.Context) ([]core.Budget, error) {
		return d.reader.ListBudgets(ctx, userID, r)
	})
	fetchInto(gctx, g, d.log, "expenses", &expenses, func(ctx context.Context) ([]core.Expense, error) {
		return d.reader.ListExpenses(ctx, userID, r)
	})
	fetchInto(gctx, g, d.log, "incomes", &incomes, func(ctx context.Context) ([]core.Income, error) {
		return d.reader.ListIncomes(ctx, userID, r)
	})
	if err := g.Wait(); err != nil {
		return BudgetsView{}, err
	}

	target := d.display(display)
	snap, err := d.rates.Snapshot(ctx, core.MinDate(r.To, d.opts.Today()), []string{target})
	if err != nil {
		return BudgetsView{}, err
	}

	processed := d.budgets.Process(budgets, expenses)
	summary := budget.Aggregate(processed, d.budgets.MonthIncome(r.From, incomes))

	view := BudgetsView{
		Month:     r.From.String()[:7],
		Reporting: snap.Reporting(),
		Currency:  target,
		Budgets:   make([]budget.View, 0, len(processed)),
		Summary:   summary,
		Totals: BudgetTotalsView{
			Limit:     d.registry.Present(summary.TotalLimit, snap.Reporting(), target, snap),
			Actual:    d.registry.Present(summary.TotalActual, snap.Reporting(), target, snap),
			Remaining: d.registry.Present(summary.TotalRemainingVsIncome, snap.Reporting(), target, snap),
		},
	}
	for _, p := range processed {
		view.Budgets = append(view.Budgets, p.InCurrency(target, snap))
	}

	d.log.InfoContext(ctx, "Computed budgets",
		"user_id", userID,
		"month", view.Month,
		"budgets", len(view.Budgets),
		"duration_ms", time.Since(start).Milliseconds())
	return view, nil
}

// InvestmentsView is the replayed portfolio with display totals.
type InvestmentsView struct {
	Reporting      string                `json:"reporting_currency"`
	Currency       string                `json:"currency"`
	Portfolio      investment.Portfolio  `json:"portfolio"`
	BookValue      currency.Presentation `json:"book_value"`
	MarketValue    currency.Presentation `json:"market_value"`
	UnrealizedGain currency.Presentation `json:"unrealized_gain"`
	Dividends      currency.Presentation `json:"dividends"`
}

// Investments replays every investment of userID.
func (d *Dashboard) Investments(ctx context.Context, userID, display string) (InvestmentsView, error) {
	start := time.Now()
	var (
		investments []core.Investment
		txs         []core.InvestmentTransaction
	)
	g, gctx := errgroup.WithContext(ctx)
	fetchInto(gctx, g, d.log, "investments", &investments, func(ctx context.Context) ([]core.Investment, error) {
		return d.reader.ListInvestments(ctx, userID)
	})
	fetchInto(gctx, g, d.log, "investment_transactions", &txs, func(ctx context.Context) ([]core.InvestmentTransaction, error) {
		return d.reader.ListInvestmentTransactions(ctx, userID)
	})
	if err := g.Wait(); err != nil {
		return InvestmentsView{}, err
	}

	target := d.display(display)
	codes := []string{target}
	for _, tx := range txs {
		codes = append(codes, tx.CurrencyCode)
	}
	today := d.opts.Today()
	snap, err := d.rates.Snapshot(ctx, today, codes)
	if err != nil {
		return InvestmentsView{}, err
	}

	engine := investment.NewEngine(d.logger, investment.Options{Strict: d.opts.StrictReplay, Today: today})
	p := engine.Portfolio(investments, txs, snap)
	rep := snap.Reporting()

	d.log.InfoContext(ctx, "Computed investments",
		"user_id", userID,
		"holdings", len(p.Holdings),
		"duration_ms", time.Since(start).Milliseconds())
	return InvestmentsView{
		Reporting:      rep,
		Currency:       target,
		Portfolio:      p,
		BookValue:      d.registry.Present(p.BookValue, rep, target, snap),
		MarketValue:    d.registry.Present(p.MarketValue, rep, target, snap),
		UnrealizedGain: d.registry.Present(p.UnrealizedGain, rep, target, snap),
		Dividends:      d.registry.Present(p.DividendsReporting, rep, target, snap),
	}, nil
}

// BalanceView is the reconstructed balance series in a display currency.
type BalanceView struct {
	Reporting   string                      `json:"reporting_currency"`
	Currency    string                      `json:"currency"`
	Current     core.AccountBalanceSnapshot `json:"current"`
	Granularity timeseries.Granularity      `json:"granularity"`
	Points      []timeseries.PointView      `json:"points"`
}

// Balance reconstructs historical balances over [from, to].
func (d *Dashboard) Balance(ctx context.Context, userID string, from, to core.Date, display string) (BalanceView, error) {
	start := time.Now()
	today := d.opts.Today()
	// Add-back needs every event up to today, not only up to the range end.
	r := ledger.DateRange{From: from, To: today}

	var (
		accounts []core.Account
		incomes  []core.Income
		expenses []core.Expense
	)
	g, gctx := errgroup.WithContext(ctx)
	fetchInto(gctx, g, d.log, "accounts", &accounts, func(ctx context.Context) ([]core.Account, error) {
		return d.reader.ListAccounts(ctx, userID)
	})
	fetchInto(gctx, g, d.log, "incomes", &incomes, func(ctx context.Context) ([]core.Income, error) {
		return d.reader.ListIncomes(ctx, userID, r)
	})
	fetchInto(gctx, g, d.log, "expenses", &expenses, func(ctx context.Context) ([]core.Expense, error) {
		return d.reader.ListExpenses(ctx, userID, r)
	})
	if err := g.Wait(); err != nil {
		return BalanceView{}, err
	}

	current := core.SnapshotAccounts(accounts)
	series := d.series.Reconstruct(timeseries.Request{
		CurrentTotalReporting: current.TotalReportingBalance,
		Incomes:               incomes,
		Expenses:              expenses,
		From:                  from,
		To:                    to,
		Today:                 today,
		HasAccounts:           current.Accounts > 0,
	})

	target := d.display(display)
	snap, err := d.rates.Snapshot(ctx, today, []string{target})
	if err != nil {
		return BalanceView{}, err
	}

	d.log.InfoContext(ctx, "Computed balance series",
		"user_id", userID,
		"granularity", string(series.Granularity),
		"points", len(series.Points),
		"duration_ms", time.Since(start).Milliseconds())
	return BalanceView{
		Reporting:   snap.Reporting(),
		Currency:    target,
		Current:     current,
		Granularity: series.Granularity,
		Points:      series.InCurrency(target, snap),
	}, nil
}

// Convert presents amount of from in to using the rates as of on. When a rate
// is missing the native amount is returned with Converted false.
func (d *Dashboard) Convert(ctx context.Context, amount decimal.Decimal, from, to string, on core.Date) (currency.Presentation, error) {
	for _, code := range []string{from, to} {
		if len(core.NormalizeCode(code)) != 3 {
			return currency.Presentation{}, fmt.Errorf("%w: %q", core.ErrInvalidCurrency, code)
		}
	}
	if on.IsEmpty() {
		on = d.opts.Today()
	}
	snap, err := d.rates.Snapshot(ctx, on, []string{from, to})
	if err != nil {
		return currency.Presentation{}, err
	}
	p := d.registry.Present(amount, core.NormalizeCode(from), core.NormalizeCode(to), snap)
	if !p.Converted {
		d.log.WarnContext(ctx, "Conversion unavailable, showing native amount",
			"from", from, "to", to, "date", snap.Date().String())
	}
	return p, nil
}

// Request describes one dashboard computation.
type Request struct {
	Kind     Kind
	UserID   string
	Month    core.Date
	From     core.Date
	To       core.Date
	Currency string
}

// Compute runs the computation named by req.Kind.
func (d *Dashboard) Compute(ctx context.Context, req Request) (any, error) {
	switch req.Kind {
	case KindBudgets:
		month := req.Month
		if month.IsEmpty() {
			month = d.opts.Today()
		}
		return d.Budgets(ctx, req.UserID, month, req.Currency)
	case KindInvestments:
		return d.Investments(ctx, req.UserID, req.Currency)
	case KindBalance:
		to := req.To
		if to.IsEmpty() {
			to = d.opts.Today()
		}
		from := req.From
		if from.IsEmpty() {
			from = to.StartOfMonth()
		}
		return d.Balance(ctx, req.UserID, from, to, req.Currency)
	default:
		return nil, &core.ValidationError{Field: "kind", Reason: fmt.Sprintf("unknown kind %q", req.Kind)}
	}
}
