package storage

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/shopspring/decimal"

	"valuta/internal/core"
	"valuta/internal/ledger"
)

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func newTestRepo(t *testing.T) *SQLiteRepository {
	t.Helper()
	repo, err := NewSQLiteRepository(filepath.Join(t.TempDir(), "db", "valuta.db"))
	if err != nil {
		t.Fatalf("open repository: %v", err)
	}
	t.Cleanup(func() { repo.Close() })
	return repo
}

func TestMigrationsApplied(t *testing.T) {
	repo := newTestRepo(t)
	if repo.SchemaVersion() != 2 {
		t.Fatalf("expected schema version 2, got %d", repo.SchemaVersion())
	}
	if err := repo.Ping(context.Background()); err != nil {
		t.Fatalf("ping: %v", err)
	}
}

func TestReopenIsIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "valuta.db")
	first, err := NewSQLiteRepository(path)
	if err != nil {
		t.Fatalf("first open: %v", err)
	}
	first.Close()
	second, err := NewSQLiteRepository(path)
	if err != nil {
		t.Fatalf("second open: %v", err)
	}
	second.Close()
}

func TestExpensesRoundTrip(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)

	for _, e := range []core.Expense{
		{UserID: "u", AccountID: "a1", Date: "2025-02-03", Category: "Food", AmountNative: d("12.34"), CurrencyCode: "usd", AmountReporting: d("11.1060")},
		{UserID: "u", Date: "2025-03-01", Category: "Food", AmountNative: d("1"), CurrencyCode: "EUR", AmountReporting: d("1")},
		{UserID: "v", Date: "2025-02-03", Category: "Food", AmountNative: d("1"), CurrencyCode: "EUR", AmountReporting: d("1")},
	} {
		if _, err := repo.AddExpense(ctx, e); err != nil {
			t.Fatalf("add expense: %v", err)
		}
	}

	got, err := repo.ListExpenses(ctx, "u", ledger.Month(core.NewDate(2025, 2, 1)))
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("expected 1 expense, got %d", len(got))
	}
	e := got[0]
	if e.ID == "" || e.CurrencyCode != "USD" || !e.AmountReporting.Equal(d("11.106")) || !e.Linked() {
		t.Fatalf("unexpected expense: %+v", e)
	}

	if _, err := repo.AddExpense(ctx, core.Expense{UserID: "u", Date: "bad"}); !errors.Is(err, core.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestInvestmentTransactionsNullableReporting(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)

	invID, err := repo.AddInvestment(ctx, core.Investment{UserID: "u", Name: "ETF", CurrencyCode: "USD", CurrentPricePerUnitReporting: d("90")})
	if err != nil {
		t.Fatalf("add investment: %v", err)
	}
	txs := []core.InvestmentTransaction{
		{InvestmentID: invID, Date: "2025-01-02", Type: core.Buy, Quantity: d("2"), PricePerUnitNative: d("100"), CurrencyCode: "USD",
			PricePerUnitReporting: decimal.NewNullDecimal(d("91"))},
		{InvestmentID: invID, Date: "2025-01-01", Type: core.Buy, Quantity: d("1"), PricePerUnitNative: d("100"), CurrencyCode: "USD"},
	}
	for _, tx := range txs {
		if _, err := repo.AddInvestmentTransaction(ctx, tx); err != nil {
			t.Fatalf("add tx: %v", err)
		}
	}

	got, err := repo.ListInvestmentTransactions(ctx, "u")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(got) != 2 || got[0].Date != "2025-01-01" {
		t.Fatalf("expected date-ordered transactions, got %+v", got)
	}
	if got[0].PricePerUnitReporting.Valid {
		t.Fatalf("missing reporting price should stay null")
	}
	if !got[1].PricePerUnitReporting.Valid || !got[1].PricePerUnitReporting.Decimal.Equal(d("91")) {
		t.Fatalf("unexpected reporting price: %+v", got[1].PricePerUnitReporting)
	}
	if got[1].Type != core.Buy {
		t.Fatalf("unexpected type %q", got[1].Type)
	}

	if others, _ := repo.ListInvestmentTransactions(ctx, "v"); len(others) != 0 {
		t.Fatalf("transactions leaked across users")
	}
}

func TestRatesUpsertAndAsOf(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)

	if err := repo.PutRates(ctx, []core.ExchangeRate{
		{Date: "2025-01-01", CurrencyCode: "USD", RateToReporting: d("0.9")},
		{Date: "2025-01-10", CurrencyCode: "USD", RateToReporting: d("0.91")},
		{Date: "2025-01-01", CurrencyCode: "GBP", RateToReporting: d("1.2")},
	}); err != nil {
		t.Fatalf("put rates: %v", err)
	}
	if err := repo.PutRates(ctx, []core.ExchangeRate{{Date: "2025-01-10", CurrencyCode: "usd", RateToReporting: d("0.92")}}); err != nil {
		t.Fatalf("upsert: %v", err)
	}

	r, found, err := repo.GetRate(ctx, core.NewDate(2025, 1, 15), "USD")
	if err != nil || !found || !r.Equal(d("0.92")) {
		t.Fatalf("unexpected rate: %s %v %v", r, found, err)
	}
	if _, found, _ := repo.GetRate(ctx, core.NewDate(2024, 12, 31), "USD"); found {
		t.Fatalf("no rate should exist before the first record")
	}

	rates, err := repo.GetRates(ctx, core.NewDate(2025, 1, 5), []string{"USD", "GBP", "JPY"})
	if err != nil || len(rates) != 2 || !rates["USD"].Equal(d("0.9")) {
		t.Fatalf("unexpected batch: %v %v", rates, err)
	}

	codes, _ := repo.Codes(ctx)
	if len(codes) != 2 || codes[0] != "GBP" {
		t.Fatalf("unexpected codes: %v", codes)
	}

	if err := repo.PutRates(ctx, []core.ExchangeRate{{Date: "2025-01-01", CurrencyCode: "USD", RateToReporting: d("-1")}}); !errors.Is(err, core.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestBudgetsAndIncomes(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)

	if _, err := repo.AddBudget(ctx, core.Budget{UserID: "u", Category: "Food", PeriodStartDate: "2025-02-01",
		LimitNative: d("300"), LimitCurrency: "EUR", LimitReporting: d("300")}); err != nil {
		t.Fatalf("add budget: %v", err)
	}
	if _, err := repo.AddIncome(ctx, core.Income{UserID: "u", AccountID: "a", Date: "2025-02-25", Source: "Salary",
		AmountNative: d("2000"), CurrencyCode: "EUR", AmountReporting: d("2000")}); err != nil {
		t.Fatalf("add income: %v", err)
	}
	if _, err := repo.AddAccount(ctx, core.Account{UserID: "u", Name: "Checking", CurrencyCode: "EUR", BalanceReporting: d("500")}); err != nil {
		t.Fatalf("add account: %v", err)
	}

	month := ledger.Month(core.NewDate(2025, 2, 1))
	budgets, _ := repo.ListBudgets(ctx, "u", month)
	incomes, _ := repo.ListIncomes(ctx, "u", month)
	accounts, _ := repo.ListAccounts(ctx, "u")
	if len(budgets) != 1 || len(incomes) != 1 || len(accounts) != 1 {
		t.Fatalf("unexpected counts: %d %d %d", len(budgets), len(incomes), len(accounts))
	}
	if !accounts[0].BalanceReporting.Equal(d("500")) || !incomes[0].Linked() {
		t.Fatalf("unexpected records: %+v %+v", accounts[0], incomes[0])
	}
}
