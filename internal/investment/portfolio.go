package investment

import (
	"github.com/shopspring/decimal"

	"valuta/internal/core"
	"valuta/internal/currency"
)

// Portfolio is the replay of every investment of a user plus totals.
type Portfolio struct {
	Holdings           []Result        `json:"holdings"`
	BookValue          decimal.Decimal `json:"book_value"`
	MarketValue        decimal.Decimal `json:"market_value"`
	UnrealizedGain     decimal.Decimal `json:"unrealized_gain"`
	DividendsReporting decimal.Decimal `json:"dividends_reporting"`
}

// Portfolio replays each investment against its own transactions.
// Investments are independent; the engine holds no per-call state.
func (e *Engine) Portfolio(investments []core.Investment, txs []core.InvestmentTransaction, snap *currency.Snapshot) Portfolio {
	byInvestment := make(map[string][]core.InvestmentTransaction, len(investments))
	for _, tx := range txs {
		byInvestment[tx.InvestmentID] = append(byInvestment[tx.InvestmentID], tx)
	}

	p := Portfolio{
		Holdings:           make([]Result, 0, len(investments)),
		BookValue:          decimal.Zero,
		MarketValue:        decimal.Zero,
		UnrealizedGain:     decimal.Zero,
		DividendsReporting: decimal.Zero,
	}
	for _, inv := range investments {
		r := e.Replay(inv, byInvestment[inv.ID], snap)
		p.Holdings = append(p.Holdings, r)
		p.BookValue = p.BookValue.Add(r.BookValue())
		p.MarketValue = p.MarketValue.Add(r.MarketValue())
		p.DividendsReporting = p.DividendsReporting.Add(r.DividendsReporting)
	}
	p.UnrealizedGain = p.MarketValue.Sub(p.BookValue)
	return p
}
