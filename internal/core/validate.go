package core

import (
	"strings"

	"github.com/shopspring/decimal"
)

func validateDateString(s string) error {
	d, err := ParseDate(s)
	if err != nil {
		return &ValidationError{Field: "date", Reason: err.Error()}
	}
	return d.Validate()
}

func validateCurrency(code string) error {
	code = strings.TrimSpace(code)
	if code == "" {
		return ErrEmptyCurrency
	}
	if len(code) != 3 {
		return ErrInvalidCurrency
	}
	return nil
}

func validatePositive(v decimal.Decimal, err error) error {
	if !v.IsPositive() {
		return err
	}
	return nil
}

func (r ExchangeRate) Validate() error {
	if err := validateDateString(r.Date); err != nil {
		return err
	}
	if err := validateCurrency(r.CurrencyCode); err != nil {
		return err
	}
	return validatePositive(r.RateToReporting, ErrInvalidRate)
}

func (e Expense) Validate() error {
	if err := validateDateString(e.Date); err != nil {
		return err
	}
	if strings.TrimSpace(e.Category) == "" {
		return ErrEmptyCategory
	}
	if len(e.Description) > 200 {
		return ErrDescriptionLimit
	}
	if err := validatePositive(e.AmountNative, ErrInvalidAmount); err != nil {
		return err
	}
	return validateCurrency(e.CurrencyCode)
}

func (i Income) Validate() error {
	if err := validateDateString(i.Date); err != nil {
		return err
	}
	if err := validatePositive(i.AmountNative, ErrInvalidAmount); err != nil {
		return err
	}
	return validateCurrency(i.CurrencyCode)
}

func (b Budget) Validate() error {
	if err := validateDateString(b.PeriodStartDate); err != nil {
		return err
	}
	if strings.TrimSpace(b.Category) == "" {
		return ErrEmptyCategory
	}
	if err := validatePositive(b.LimitNative, ErrInvalidAmount); err != nil {
		return err
	}
	return validateCurrency(b.LimitCurrency)
}

func (t InvestmentTransaction) Validate() error {
	if strings.TrimSpace(t.InvestmentID) == "" {
		return ErrEmptyInvestment
	}
	if err := validateDateString(t.Date); err != nil {
		return err
	}
	if !t.Type.IsValid() {
		return ErrInvalidTxType
	}
	// Dividends may omit units; the cash amount is then PricePerUnitNative.
	if t.Type != Dividend {
		if err := validatePositive(t.Quantity, ErrInvalidQuantity); err != nil {
			return err
		}
	}
	if t.PricePerUnitNative.IsNegative() || t.FeesNative.IsNegative() {
		return ErrInvalidAmount
	}
	return validateCurrency(t.CurrencyCode)
}
