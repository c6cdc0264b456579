// Package storage is the SQLite ledger and exchange-rate store.
package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"valuta/internal/core"
	"valuta/internal/ledger"

	_ "modernc.org/sqlite"
)

type SQLiteRepository struct {
	db            *sql.DB
	schemaVersion uint
}

var (
	_ ledger.Reader     = (*SQLiteRepository)(nil)
	_ ledger.Writer     = (*SQLiteRepository)(nil)
	_ ledger.RateReader = (*SQLiteRepository)(nil)
	_ ledger.RateWriter = (*SQLiteRepository)(nil)
)

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	version, err := Migrate(dbPath)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteRepository{db: db, schemaVersion: version}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// SchemaVersion is the migration version applied at open.
func (r *SQLiteRepository) SchemaVersion() uint { return r.schemaVersion }

// Ping reports whether the database is reachable.
func (r *SQLiteRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

func newID(id string) string {
	if strings.TrimSpace(id) != "" {
		return id
	}
	return uuid.NewString()
}

// rangeClause renders the optional bounds of rg on column col.
func rangeClause(col string, rg ledger.DateRange) (string, []any) {
	var (
		sb   strings.Builder
		args []any
	)
	if !rg.From.IsEmpty() {
		sb.WriteString(" AND " + col + " >= ?")
		args = append(args, rg.From.String())
	}
	if !rg.To.IsEmpty() {
		sb.WriteString(" AND " + col + " <= ?")
		args = append(args, rg.To.String())
	}
	return sb.String(), args
}

func (r *SQLiteRepository) AddAccount(ctx context.Context, a core.Account) (string, error) {
	if strings.TrimSpace(a.Name) == "" {
		return "", &core.ValidationError{Field: "name", Reason: "required"}
	}
	a.ID = newID(a.ID)
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO accounts (id, user_id, name, currency_code, balance_reporting) VALUES (?, ?, ?, ?, ?)`,
		a.ID, a.UserID, a.Name, core.NormalizeCode(a.CurrencyCode), a.BalanceReporting)
	if err != nil {
		return "", fmt.Errorf("create account: %w", err)
	}
	slog.InfoContext(ctx, "Account saved to SQLite", "id", a.ID, "user_id", a.UserID)
	return a.ID, nil
}

func (r *SQLiteRepository) AddExpense(ctx context.Context, e core.Expense) (string, error) {
	if err := e.Validate(); err != nil {
		return "", err
	}
	e.ID = newID(e.ID)
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO expenses (id, user_id, account_id, date, category, description, amount_native, currency_code, amount_reporting)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		e.ID, e.UserID, e.AccountID, e.Date, e.Category, e.Description,
		e.AmountNative, core.NormalizeCode(e.CurrencyCode), e.AmountReporting)
	if err != nil {
		return "", fmt.Errorf("create expense: %w", err)
	}
	slog.InfoContext(ctx, "Expense saved to SQLite",
		"id", e.ID,
		"date", e.Date,
		"category", e.Category,
		"amount_native", e.AmountNative.String(),
		"currency", e.CurrencyCode)
	return e.ID, nil
}

func (r *SQLiteRepository) AddIncome(ctx context.Context, i core.Income) (string, error) {
	if err := i.Validate(); err != nil {
		return "", err
	}
	i.ID = newID(i.ID)
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO incomes (id, user_id, account_id, date, source, amount_native, currency_code, amount_reporting)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		i.ID, i.UserID, i.AccountID, i.Date, i.Source,
		i.AmountNative, core.NormalizeCode(i.CurrencyCode), i.AmountReporting)
	if err != nil {
		return "", fmt.Errorf("create income: %w", err)
	}
	slog.InfoContext(ctx, "Income saved to SQLite", "id", i.ID, "date", i.Date)
	return i.ID, nil
}

func (r *SQLiteRepository) AddBudget(ctx context.Context, b core.Budget) (string, error) {
	if err := b.Validate(); err != nil {
		return "", err
	}
	b.ID = newID(b.ID)
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO budgets (id, user_id, category, period_start_date, limit_native, limit_currency, limit_reporting)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		b.ID, b.UserID, b.Category, b.PeriodStartDate,
		b.LimitNative, core.NormalizeCode(b.LimitCurrency), b.LimitReporting)
	if err != nil {
		return "", fmt.Errorf("create budget: %w", err)
	}
	slog.InfoContext(ctx, "Budget saved to SQLite", "id", b.ID, "category", b.Category, "period_start", b.PeriodStartDate)
	return b.ID, nil
}

func (r *SQLiteRepository) AddInvestment(ctx context.Context, inv core.Investment) (string, error) {
	if strings.TrimSpace(inv.Name) == "" {
		return "", &core.ValidationError{Field: "name", Reason: "required"}
	}
	inv.ID = newID(inv.ID)
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO investments (id, user_id, name, currency_code, running_quantity, running_cost_reporting, current_price_per_unit_reporting, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		inv.ID, inv.UserID, inv.Name, core.NormalizeCode(inv.CurrencyCode),
		inv.RunningQuantity, inv.RunningCostReporting, inv.CurrentPricePerUnitReporting, inv.UpdatedAt)
	if err != nil {
		return "", fmt.Errorf("create investment: %w", err)
	}
	slog.InfoContext(ctx, "Investment saved to SQLite", "id", inv.ID, "name", inv.Name)
	return inv.ID, nil
}

func (r *SQLiteRepository) AddInvestmentTransaction(ctx context.Context, tx core.InvestmentTransaction) (string, error) {
	if err := tx.Validate(); err != nil {
		return "", err
	}
	tx.ID = newID(tx.ID)
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO investment_transactions (id, investment_id, date, type, quantity, price_per_unit_native, fees_native, currency_code, price_per_unit_reporting, fees_reporting)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		tx.ID, tx.InvestmentID, tx.Date, string(tx.Type), tx.Quantity,
		tx.PricePerUnitNative, tx.FeesNative, core.NormalizeCode(tx.CurrencyCode),
		tx.PricePerUnitReporting, tx.FeesReporting)
	if err != nil {
		return "", fmt.Errorf("create investment transaction: %w", err)
	}
	slog.InfoContext(ctx, "Investment transaction saved to SQLite",
		"id", tx.ID, "investment_id", tx.InvestmentID, "type", tx.Type, "date", tx.Date)
	return tx.ID, nil
}

func (r *SQLiteRepository) ListAccounts(ctx context.Context, userID string) ([]core.Account, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, user_id, name, currency_code, balance_reporting FROM accounts WHERE user_id = ? ORDER BY name`, userID)
	if err != nil {
		return nil, fmt.Errorf("list accounts: %w", err)
	}
	defer rows.Close()

	var out []core.Account
	for rows.Next() {
		var a core.Account
		if err := rows.Scan(&a.ID, &a.UserID, &a.Name, &a.CurrencyCode, &a.BalanceReporting); err != nil {
			return nil, fmt.Errorf("scan account: %w", err)
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

func (r *SQLiteRepository) ListExpenses(ctx context.Context, userID string, rg ledger.DateRange) ([]core.Expense, error) {
	where, args := rangeClause("date", rg)
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, user_id, account_id, date, category, description, amount_native, currency_code, amount_reporting
		 FROM expenses WHERE user_id = ?`+where+` ORDER BY date, created_at`,
		append([]any{userID}, args...)...)
	if err != nil {
		return nil, fmt.Errorf("list expenses: %w", err)
	}
	defer rows.Close()

	var out []core.Expense
	for rows.Next() {
		var e core.Expense
		if err := rows.Scan(&e.ID, &e.UserID, &e.AccountID, &e.Date, &e.Category, &e.Description,
			&e.AmountNative, &e.CurrencyCode, &e.AmountReporting); err != nil {
			return nil, fmt.Errorf("scan expense: %w", err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func (r *SQLiteRepository) ListIncomes(ctx context.Context, userID string, rg ledger.DateRange) ([]core.Income, error) {
	where, args := rangeClause("date", rg)
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, user_id, account_id, date, source, amount_native, currency_code, amount_reporting
		 FROM incomes WHERE user_id = ?`+where+` ORDER BY date, created_at`,
		append([]any{userID}, args...)...)
	if err != nil {
		return nil, fmt.Errorf("list incomes: %w", err)
	}
	defer rows.Close()

	var out []core.Income
	for rows.Next() {
		var i core.Income
		if err := rows.Scan(&i.ID, &i.UserID, &i.AccountID, &i.Date, &i.Source,
			&i.AmountNative, &i.CurrencyCode, &i.AmountReporting); err != nil {
			return nil, fmt.Errorf("scan income: %w", err)
		}
		out = append(out, i)
	}
	return out, rows.Err()
}

func (r *SQLiteRepository) ListBudgets(ctx context.Context, userID string, rg ledger.DateRange) ([]core.Budget, error) {
	where, args := rangeClause("period_start_date", rg)
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, user_id, category, period_start_date, limit_native, limit_currency, limit_reporting
		 FROM budgets WHERE user_id = ?`+where+` ORDER BY period_start_date, category`,
		append([]any{userID}, args...)...)
	if err != nil {
		return nil, fmt.Errorf("list budgets: %w", err)
	}
	defer rows.Close()

	var out []core.Budget
	for rows.Next() {
		var b core.Budget
		if err := rows.Scan(&b.ID, &b.UserID, &b.Category, &b.PeriodStartDate,
			&b.LimitNative, &b.LimitCurrency, &b.LimitReporting); err != nil {
			return nil, fmt.Errorf("scan budget: %w", err)
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

func (r *SQLiteRepository) ListInvestments(ctx context.Context, userID string) ([]core.Investment, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, user_id, name, currency_code, running_quantity, running_cost_reporting, current_price_per_unit_reporting, updated_at
		 FROM investments WHERE user_id = ? ORDER BY name`, userID)
	if err != nil {
		return nil, fmt.Errorf("list investments: %w", err)
	}
	defer rows.Close()

	var out []core.Investment
	for rows.Next() {
		var inv core.Investment
		if err := rows.Scan(&inv.ID, &inv.UserID, &inv.Name, &inv.CurrencyCode, &inv.RunningQuantity,
			&inv.RunningCostReporting, &inv.CurrentPricePerUnitReporting, &inv.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan investment: %w", err)
		}
		out = append(out, inv)
	}
	return out, rows.Err()
}

func (r *SQLiteRepository) ListInvestmentTransactions(ctx context.Context, userID string) ([]core.InvestmentTransaction, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT t.id, t.investment_id, t.date, t.type, t.quantity, t.price_per_unit_native, t.fees_native,
		        t.currency_code, t.price_per_unit_reporting, t.fees_reporting
		 FROM investment_transactions t
		 JOIN investments i ON i.id = t.investment_id
		 WHERE i.user_id = ?
		 ORDER BY t.investment_id, t.date, t.rowid`, userID)
	if err != nil {
		return nil, fmt.Errorf("list investment transactions: %w", err)
	}
	defer rows.Close()

	var out []core.InvestmentTransaction
	for rows.Next() {
		var (
			tx  core.InvestmentTransaction
			typ string
		)
		if err := rows.Scan(&tx.ID, &tx.InvestmentID, &tx.Date, &typ, &tx.Quantity, &tx.PricePerUnitNative,
			&tx.FeesNative, &tx.CurrencyCode, &tx.PricePerUnitReporting, &tx.FeesReporting); err != nil {
			return nil, fmt.Errorf("scan investment transaction: %w", err)
		}
		tx.Type = core.TransactionType(typ)
		out = append(out, tx)
	}
	return out, rows.Err()
}

// PutRates upserts rates by (currency, date) in one transaction.
func (r *SQLiteRepository) PutRates(ctx context.Context, rates []core.ExchangeRate) error {
	for _, rate := range rates {
		if err := rate.Validate(); err != nil {
			return err
		}
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin rates transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO exchange_rates (date, currency_code, rate_to_reporting) VALUES (?, ?, ?)
		 ON CONFLICT (currency_code, date) DO UPDATE SET
		   rate_to_reporting = excluded.rate_to_reporting,
		   updated_at = CURRENT_TIMESTAMP`)
	if err != nil {
		return fmt.Errorf("prepare rate upsert: %w", err)
	}
	defer stmt.Close()

	for _, rate := range rates {
		if _, err := stmt.ExecContext(ctx, rate.Date, core.NormalizeCode(rate.CurrencyCode), rate.RateToReporting); err != nil {
			return fmt.Errorf("upsert rate %s %s: %w", rate.CurrencyCode, rate.Date, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit rates: %w", err)
	}

	slog.InfoContext(ctx, "Exchange rates saved to SQLite", "count", len(rates))
	return nil
}

func (r *SQLiteRepository) GetRate(ctx context.Context, date core.Date, code string) (decimal.Decimal, bool, error) {
	var rate decimal.Decimal
	err := r.db.QueryRowContext(ctx,
		`SELECT rate_to_reporting FROM exchange_rates
		 WHERE currency_code = ? AND date <= ?
		 ORDER BY date DESC LIMIT 1`,
		core.NormalizeCode(code), date.String()).Scan(&rate)
	if errors.Is(err, sql.ErrNoRows) {
		return decimal.Zero, false, nil
	}
	if err != nil {
		return decimal.Zero, false, fmt.Errorf("get rate %s: %w", code, err)
	}
	return rate, true, nil
}

func (r *SQLiteRepository) GetRates(ctx context.Context, date core.Date, codes []string) (map[string]decimal.Decimal, error) {
	out := make(map[string]decimal.Decimal, len(codes))
	for _, c := range codes {
		rate, found, err := r.GetRate(ctx, date, c)
		if err != nil {
			return nil, err
		}
		if found {
			out[core.NormalizeCode(c)] = rate
		}
	}
	return out, nil
}

// Codes returns every currency with at least one recorded rate.
func (r *SQLiteRepository) Codes(ctx context.Context) ([]string, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT DISTINCT currency_code FROM exchange_rates ORDER BY currency_code`)
	if err != nil {
		return nil, fmt.Errorf("list rate currencies: %w", err)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var c string
		if err := rows.Scan(&c); err != nil {
			return nil, fmt.Errorf("scan rate currency: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}
