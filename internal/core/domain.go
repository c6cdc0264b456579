package core

import (
	"strings"

	"github.com/shopspring/decimal"
)

const (
	Buy      TransactionType = "buy"
	Sell     TransactionType = "sell"
	Dividend TransactionType = "dividend"
	Reinvest TransactionType = "reinvest"
)

type (
	TransactionType string

	// Currency is immutable reference data used for display formatting.
	Currency struct {
		Code          string `json:"code"`
		DecimalDigits int    `json:"decimal_digits"`
		Symbol        string `json:"symbol"`
	}

	// ExchangeRate gives how many units of the reporting currency equal one
	// unit of CurrencyCode on Date.
	ExchangeRate struct {
		Date            string          `json:"date"`
		CurrencyCode    string          `json:"currency_code"`
		RateToReporting decimal.Decimal `json:"rate_to_reporting"`
	}

	Account struct {
		ID               string          `json:"id"`
		UserID           string          `json:"user_id"`
		Name             string          `json:"name"`
		CurrencyCode     string          `json:"currency_code"`
		BalanceReporting decimal.Decimal `json:"balance_reporting"`
	}

	Expense struct {
		ID              string          `json:"id"`
		UserID          string          `json:"user_id"`
		AccountID       string          `json:"account_id,omitempty"` // empty for cash-only entries
		Date            string          `json:"date"`
		Category        string          `json:"category"`
		Description     string          `json:"description"`
		AmountNative    decimal.Decimal `json:"amount_native"`
		CurrencyCode    string          `json:"currency_code"`
		AmountReporting decimal.Decimal `json:"amount_reporting"`
	}

	Income struct {
		ID              string          `json:"id"`
		UserID          string          `json:"user_id"`
		AccountID       string          `json:"account_id,omitempty"`
		Date            string          `json:"date"`
		Source          string          `json:"source"`
		AmountNative    decimal.Decimal `json:"amount_native"`
		CurrencyCode    string          `json:"currency_code"`
		AmountReporting decimal.Decimal `json:"amount_reporting"`
	}

	// Budget limits spending in Category over the calendar month starting at PeriodStartDate.
	Budget struct {
		ID              string          `json:"id"`
		UserID          string          `json:"user_id"`
		Category        string          `json:"category"`
		PeriodStartDate string          `json:"period_start_date"`
		LimitNative     decimal.Decimal `json:"limit_native"`
		LimitCurrency   string          `json:"limit_currency"`
		LimitReporting  decimal.Decimal `json:"limit_reporting"`
	}

	// Investment running totals are derived by replaying its transactions.
	Investment struct {
		ID                           string          `json:"id"`
		UserID                       string          `json:"user_id"`
		Name                         string          `json:"name"`
		CurrencyCode                 string          `json:"currency_code"`
		RunningQuantity              decimal.Decimal `json:"running_quantity"`
		RunningCostReporting         decimal.Decimal `json:"running_cost_reporting"`
		CurrentPricePerUnitReporting decimal.Decimal `json:"current_price_per_unit_reporting"`
		UpdatedAt                    string          `json:"updated_at,omitempty"`
	}

	InvestmentTransaction struct {
		ID                    string              `json:"id"`
		InvestmentID          string              `json:"investment_id"`
		Date                  string              `json:"date"`
		Type                  TransactionType     `json:"type"`
		Quantity              decimal.Decimal     `json:"quantity"`
		PricePerUnitNative    decimal.Decimal     `json:"price_per_unit_native"`
		FeesNative            decimal.Decimal     `json:"fees_native"`
		CurrencyCode          string              `json:"currency_code"`
		PricePerUnitReporting decimal.NullDecimal `json:"price_per_unit_reporting"`
		FeesReporting         decimal.NullDecimal `json:"fees_reporting"`
	}

	// AccountBalanceSnapshot is the present total across all accounts.
	AccountBalanceSnapshot struct {
		TotalReportingBalance decimal.Decimal `json:"total_reporting_balance"`
		Accounts              int             `json:"accounts"`
	}
)

// SnapshotAccounts totals the reporting balance of accounts.
func SnapshotAccounts(accounts []Account) AccountBalanceSnapshot {
	total := decimal.Zero
	for _, a := range accounts {
		total = total.Add(a.BalanceReporting)
	}
	return AccountBalanceSnapshot{TotalReportingBalance: total, Accounts: len(accounts)}
}

// NormalizeCode upper-cases and trims a currency code.
func NormalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// IsValid reports whether t is a known transaction type.
func (t TransactionType) IsValid() bool {
	switch t {
	case Buy, Sell, Dividend, Reinvest:
		return true
	default:
		return false
	}
}

// Linked reports whether the expense belongs to an account.
func (e Expense) Linked() bool { return strings.TrimSpace(e.AccountID) != "" }

// Linked reports whether the income belongs to an account.
func (i Income) Linked() bool { return strings.TrimSpace(i.AccountID) != "" }
