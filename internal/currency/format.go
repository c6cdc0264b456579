package currency

import (
	"github.com/Rhymond/go-money"
	"github.com/shopspring/decimal"
)

// Format renders amount in code using the registry's metadata.
// Unknown codes render as "<amount> <CODE>" with two decimals.
func (r *Registry) Format(amount decimal.Decimal, code string) string {
	l := r.Lookup(code)
	if !l.Found() {
		return amount.StringFixed(2) + " " + l.Code
	}
	digits := int32(l.Currency.DecimalDigits)
	if l.builtin {
		minor := amount.Shift(digits).Round(0).IntPart()
		return money.New(minor, l.Code).Display()
	}
	s := amount.Abs().StringFixed(digits)
	if amount.IsNegative() {
		return "-" + l.Currency.Symbol + s
	}
	return l.Currency.Symbol + s
}

// Presentation is a display-ready amount. Converted is false when the
// requested currency was unavailable and the native figure is shown instead.
type Presentation struct {
	Amount    decimal.Decimal `json:"amount"`
	Currency  string          `json:"currency"`
	Converted bool            `json:"converted"`
	Text      string          `json:"text"`
}

// Present converts amount from source to target for display. When the rate is
// missing it falls back to the native amount and code.
func (r *Registry) Present(amount decimal.Decimal, source, target string, snap *Snapshot) Presentation {
	if v, ok := Convert(amount, source, target, snap); ok {
		l := r.Lookup(target)
		if l.Found() {
			v = v.Round(int32(l.Currency.DecimalDigits))
		}
		return Presentation{Amount: v, Currency: l.Code, Converted: true, Text: r.Format(v, l.Code)}
	}
	l := r.Lookup(source)
	return Presentation{Amount: amount, Currency: l.Code, Converted: false, Text: r.Format(amount, l.Code)}
}
