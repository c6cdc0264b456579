// Package ledger defines the read and write ports the valuation engine is
// fed through. Implementations live in ledger/memory and storage.
package ledger

import (
	"context"

	"github.com/shopspring/decimal"

	"valuta/internal/core"
)

// DateRange is an inclusive range of days. A zero bound is open.
type DateRange struct {
	From core.Date
	To   core.Date
}

// Month returns the range covering the calendar month containing d.
func Month(d core.Date) DateRange {
	return DateRange{From: d.StartOfMonth(), To: d.EndOfMonth()}
}

// Contains reports whether a YYYY-MM-DD date string lies in r. Dates are
// compared lexically so malformed strings are never silently coerced.
func (r DateRange) Contains(date string) bool {
	if !r.From.IsEmpty() && date < r.From.String() {
		return false
	}
	if !r.To.IsEmpty() && date > r.To.String() {
		return false
	}
	return true
}

// Ports for outbound adapters.
type (
	BudgetReader interface {
		// ListBudgets returns budgets whose period starts within r.
		ListBudgets(ctx context.Context, userID string, r DateRange) ([]core.Budget, error)
	}

	ExpenseReader interface {
		ListExpenses(ctx context.Context, userID string, r DateRange) ([]core.Expense, error)
	}

	IncomeReader interface {
		ListIncomes(ctx context.Context, userID string, r DateRange) ([]core.Income, error)
	}

	InvestmentReader interface {
		ListInvestments(ctx context.Context, userID string) ([]core.Investment, error)
	}

	InvestmentTransactionReader interface {
		ListInvestmentTransactions(ctx context.Context, userID string) ([]core.InvestmentTransaction, error)
	}

	AccountReader interface {
		ListAccounts(ctx context.Context, userID string) ([]core.Account, error)
	}

	// RateReader looks up rates to the reporting currency. The rate for a
	// date is the latest one recorded on or before it.
	RateReader interface {
		GetRate(ctx context.Context, date core.Date, code string) (rate decimal.Decimal, found bool, err error)
		GetRates(ctx context.Context, date core.Date, codes []string) (map[string]decimal.Decimal, error)
	}

	RateWriter interface {
		PutRates(ctx context.Context, rates []core.ExchangeRate) error
	}

	// Writer is the validated write side used for seeding and imports.
	Writer interface {
		AddAccount(ctx context.Context, a core.Account) (string, error)
		AddExpense(ctx context.Context, e core.Expense) (string, error)
		AddIncome(ctx context.Context, i core.Income) (string, error)
		AddBudget(ctx context.Context, b core.Budget) (string, error)
		AddInvestment(ctx context.Context, inv core.Investment) (string, error)
		AddInvestmentTransaction(ctx context.Context, tx core.InvestmentTransaction) (string, error)
	}

	// Reader bundles every read port.
	Reader interface {
		BudgetReader
		ExpenseReader
		IncomeReader
		InvestmentReader
		InvestmentTransactionReader
		AccountReader
	}
)
