package currency

import (
	"github.com/Rhymond/go-money"

	"valuta/internal/core"
)

// Lookup is the result of resolving a currency code: either a known
// Currency or an unknown code.
type Lookup struct {
	Code     string
	Currency core.Currency
	found    bool
	builtin  bool
}

// Found reports whether metadata exists for the code.
func (l Lookup) Found() bool { return l.found }

// Registry resolves currency metadata. ISO currencies come from the
// go-money tables; additional codes (e.g. crypto assets) can be registered.
type Registry struct {
	extra map[string]core.Currency
}

// DefaultExtras are non-ISO codes commonly held in investment accounts.
var DefaultExtras = []core.Currency{
	{Code: "BTC", DecimalDigits: 8, Symbol: "₿"},
	{Code: "ETH", DecimalDigits: 8, Symbol: "Ξ"},
}

// NewRegistry returns a registry with the ISO tables plus extra codes.
func NewRegistry(extra ...core.Currency) *Registry {
	r := &Registry{extra: make(map[string]core.Currency, len(extra))}
	for _, c := range extra {
		c.Code = core.NormalizeCode(c.Code)
		r.extra[c.Code] = c
	}
	return r
}

// Lookup resolves code. It never fails; unknown codes return a Lookup whose
// Found reports false.
func (r *Registry) Lookup(code string) Lookup {
	code = core.NormalizeCode(code)
	if r != nil {
		if c, ok := r.extra[code]; ok {
			return Lookup{Code: code, Currency: c, found: true}
		}
	}
	if code == "" {
		return Lookup{Code: code}
	}
	mc := money.GetCurrency(code)
	if mc == nil {
		return Lookup{Code: code}
	}
	return Lookup{
		Code: code,
		Currency: core.Currency{
			Code:          mc.Code,
			DecimalDigits: mc.Fraction,
			Symbol:        mc.Grapheme,
		},
		found:   true,
		builtin: true,
	}
}
