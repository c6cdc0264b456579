package investment

import (
	"errors"
	"fmt"
	"log/slog"
	"sort"

	"github.com/shopspring/decimal"

	"valuta/internal/core"
	"valuta/internal/currency"
	applog "valuta/internal/log"
)

// Options tune the replay.
type Options struct {
	// Strict rejects sells exceeding the held quantity instead of clamping
	// the position to zero.
	Strict bool
	// Today dates the closing point. Zero means core.Today().
	Today core.Date
}

// Point is the position right after a transaction, valued at the
// investment's current price.
type Point struct {
	Date           core.Date            `json:"date"`
	TransactionID  string               `json:"transaction_id,omitempty"`
	Type           core.TransactionType `json:"type,omitempty"`
	Quantity       decimal.Decimal      `json:"quantity"`
	CostReporting  decimal.Decimal      `json:"cost_reporting"`
	AvgCost        decimal.Decimal      `json:"avg_cost"`
	ValueReporting decimal.Decimal      `json:"value_reporting"`
	// Closing marks the "as of today" point built from stored totals.
	Closing bool `json:"closing,omitempty"`
}

// Anomaly is a transaction the replay could not apply as recorded.
type Anomaly struct {
	TransactionID string `json:"transaction_id"`
	Date          string `json:"date"`
	Reason        string `json:"reason"`
	Err           error  `json:"-"`
}

// Result is the outcome of replaying one investment.
type Result struct {
	Investment         core.Investment `json:"investment"`
	Final              State           `json:"final"`
	Points             []Point         `json:"points"`
	DividendsReporting decimal.Decimal `json:"dividends_reporting"`
	Anomalies          []Anomaly       `json:"anomalies,omitempty"`
}

// BookValue is the replayed cost basis.
func (r Result) BookValue() decimal.Decimal { return r.Final.CostReporting }

// MarketValue is the replayed quantity at the current price.
func (r Result) MarketValue() decimal.Decimal {
	return r.Final.Value(r.Investment.CurrentPricePerUnitReporting)
}

// UnrealizedGain is market value minus book value.
func (r Result) UnrealizedGain() decimal.Decimal { return r.MarketValue().Sub(r.BookValue()) }

// Engine replays investment transactions.
type Engine struct {
	log  *slog.Logger
	opts Options
}

// NewEngine returns an engine logging to logger (slog.Default when nil).
func NewEngine(logger *slog.Logger, opts Options) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{log: logger.With(applog.FieldComponent, applog.ComponentInvestment), opts: opts}
}

func (e *Engine) today() core.Date {
	if e.opts.Today.IsEmpty() {
		return core.Today()
	}
	return e.opts.Today
}

// Replay folds txs into a position for inv. Transactions for other
// investments are ignored. Transactions with unparseable dates are skipped
// and logged, as are buys, reinvestments and dividends whose reporting price
// is absent and cannot be derived from snap. Sells never need a price.
func (e *Engine) Replay(inv core.Investment, txs []core.InvestmentTransaction, snap *currency.Snapshot) Result {
	res := Result{
		Investment:         inv,
		Final:              Zero,
		DividendsReporting: decimal.Zero,
	}

	priced := make([]Priced, 0, len(txs))
	for _, tx := range txs {
		if tx.InvestmentID != "" && inv.ID != "" && tx.InvestmentID != inv.ID {
			continue
		}
		p, err := e.price(tx, snap)
		if err != nil {
			e.log.Warn("Skipping investment transaction",
				"investment_id", inv.ID, "transaction_id", tx.ID, "date", tx.Date, "error", err)
			continue
		}
		priced = append(priced, p)
	}
	sort.SliceStable(priced, func(i, j int) bool { return priced[i].Date.Before(priced[j].Date) })

	state := Zero
	for _, p := range priced {
		next, err := Apply(state, p, e.opts.Strict)
		if err != nil {
			reason := "rejected"
			if errors.Is(err, core.ErrQuantityUnderflow) {
				reason = "quantity_underflow"
			}
			e.log.Warn("Investment transaction not applied",
				"investment_id", inv.ID, "transaction_id", p.Tx.ID, "error", err)
			res.Anomalies = append(res.Anomalies, Anomaly{
				TransactionID: p.Tx.ID, Date: p.Tx.Date, Reason: reason, Err: err,
			})
			continue
		}
		if p.Tx.Type == core.Dividend {
			res.DividendsReporting = res.DividendsReporting.Add(p.Cash())
		}
		state = next
		res.Points = append(res.Points, e.point(p.Date, state, inv, p.Tx))
	}
	res.Final = state

	today := e.today()
	if len(res.Points) == 0 || today.After(res.Points[len(res.Points)-1].Date) {
		closing := State{Quantity: inv.RunningQuantity, CostReporting: inv.RunningCostReporting}
		pt := e.point(today, closing, inv, core.InvestmentTransaction{})
		pt.Closing = true
		res.Points = append(res.Points, pt)
	}
	return res
}

func (e *Engine) point(on core.Date, s State, inv core.Investment, tx core.InvestmentTransaction) Point {
	return Point{
		Date:           on,
		TransactionID:  tx.ID,
		Type:           tx.Type,
		Quantity:       s.Quantity,
		CostReporting:  s.CostReporting,
		AvgCost:        s.AvgCost(),
		ValueReporting: s.Value(inv.CurrentPricePerUnitReporting),
	}
}

// price resolves the reporting figures of tx, trusting stored values and
// converting native ones otherwise.
func (e *Engine) price(tx core.InvestmentTransaction, snap *currency.Snapshot) (Priced, error) {
	on, err := core.ParseDate(tx.Date)
	if err != nil {
		return Priced{}, err
	}
	p := Priced{Tx: tx, Date: on}

	// Sells remove cost at the running average.
	if tx.Type == core.Sell {
		p.PricePerUnitReporting, _ = e.reportingPrice(tx, snap)
		p.FeesReporting, _ = e.reportingFees(tx, snap)
		return p, nil
	}
	if p.PricePerUnitReporting, err = e.reportingPrice(tx, snap); err != nil {
		return Priced{}, err
	}
	if p.FeesReporting, err = e.reportingFees(tx, snap); err != nil {
		return Priced{}, err
	}
	return p, nil
}

// reportingPrice returns the stored reporting price of tx or converts the
// native one. On failure it returns zero and ErrRateUnavailable.
func (e *Engine) reportingPrice(tx core.InvestmentTransaction, snap *currency.Snapshot) (decimal.Decimal, error) {
	if tx.PricePerUnitReporting.Valid {
		return tx.PricePerUnitReporting.Decimal, nil
	}
	v, ok := currency.ToReporting(tx.PricePerUnitNative, tx.CurrencyCode, snap)
	if !ok {
		return decimal.Zero, fmt.Errorf("price in %s: %w", tx.CurrencyCode, core.ErrRateUnavailable)
	}
	return v, nil
}

func (e *Engine) reportingFees(tx core.InvestmentTransaction, snap *currency.Snapshot) (decimal.Decimal, error) {
	switch {
	case tx.FeesReporting.Valid:
		return tx.FeesReporting.Decimal, nil
	case tx.FeesNative.IsZero():
		return decimal.Zero, nil
	}
	v, ok := currency.ToReporting(tx.FeesNative, tx.CurrencyCode, snap)
	if !ok {
		return decimal.Zero, fmt.Errorf("fees in %s: %w", tx.CurrencyCode, core.ErrRateUnavailable)
	}
	return v, nil
}
