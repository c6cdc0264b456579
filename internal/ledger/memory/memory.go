// Package memory is an in-process ledger and rate store, optionally seeded
// from a JSON file.
package memory

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"valuta/internal/core"
	"valuta/internal/ledger"
)

// SeedFile is the file NewFromFiles looks for in the data directory.
const SeedFile = "ledger.json"

// Seed is the on-disk layout of a seeded ledger.
type Seed struct {
	Accounts               []core.Account               `json:"accounts"`
	Expenses               []core.Expense               `json:"expenses"`
	Incomes                []core.Income                `json:"incomes"`
	Budgets                []core.Budget                `json:"budgets"`
	Investments            []core.Investment            `json:"investments"`
	InvestmentTransactions []core.InvestmentTransaction `json:"investment_transactions"`
	Rates                  []core.ExchangeRate          `json:"rates"`
}

type Store struct {
	mu          sync.RWMutex
	accounts    []core.Account
	expenses    []core.Expense
	incomes     []core.Income
	budgets     []core.Budget
	investments []core.Investment
	txs         []core.InvestmentTransaction
	// rates per currency, ascending by date
	rates map[string][]core.ExchangeRate
}

var (
	_ ledger.Reader     = (*Store)(nil)
	_ ledger.Writer     = (*Store)(nil)
	_ ledger.RateReader = (*Store)(nil)
	_ ledger.RateWriter = (*Store)(nil)
)

func New() *Store {
	return &Store{rates: make(map[string][]core.ExchangeRate)}
}

// NewFromFiles loads base/ledger.json when present. A missing file yields an
// empty store; a malformed one is an error.
func NewFromFiles(base string) (*Store, error) {
	s := New()
	b, err := os.ReadFile(filepath.Join(base, SeedFile))
	if err != nil {
		if os.IsNotExist(err) {
			return s, nil
		}
		return nil, fmt.Errorf("read seed: %w", err)
	}
	var seed Seed
	if err := json.Unmarshal(b, &seed); err != nil {
		return nil, fmt.Errorf("decode seed: %w", err)
	}
	if err := s.Load(context.Background(), seed); err != nil {
		return nil, err
	}
	return s, nil
}

// Load inserts every record of seed through the validated write path.
func (s *Store) Load(ctx context.Context, seed Seed) error {
	for _, a := range seed.Accounts {
		if _, err := s.AddAccount(ctx, a); err != nil {
			return fmt.Errorf("seed account %s: %w", a.ID, err)
		}
	}
	for _, e := range seed.Expenses {
		if _, err := s.AddExpense(ctx, e); err != nil {
			return fmt.Errorf("seed expense %s: %w", e.ID, err)
		}
	}
	for _, i := range seed.Incomes {
		if _, err := s.AddIncome(ctx, i); err != nil {
			return fmt.Errorf("seed income %s: %w", i.ID, err)
		}
	}
	for _, b := range seed.Budgets {
		if _, err := s.AddBudget(ctx, b); err != nil {
			return fmt.Errorf("seed budget %s: %w", b.ID, err)
		}
	}
	for _, inv := range seed.Investments {
		if _, err := s.AddInvestment(ctx, inv); err != nil {
			return fmt.Errorf("seed investment %s: %w", inv.ID, err)
		}
	}
	for _, tx := range seed.InvestmentTransactions {
		if _, err := s.AddInvestmentTransaction(ctx, tx); err != nil {
			return fmt.Errorf("seed investment transaction %s: %w", tx.ID, err)
		}
	}
	if err := s.PutRates(ctx, seed.Rates); err != nil {
		return fmt.Errorf("seed rates: %w", err)
	}
	return nil
}

func newID(id string) string {
	if strings.TrimSpace(id) != "" {
		return id
	}
	return uuid.NewString()
}

func (s *Store) AddAccount(_ context.Context, a core.Account) (string, error) {
	if strings.TrimSpace(a.Name) == "" {
		return "", &core.ValidationError{Field: "name", Reason: "required"}
	}
	a.ID = newID(a.ID)
	a.CurrencyCode = core.NormalizeCode(a.CurrencyCode)
	s.mu.Lock()
	defer s.mu.Unlock()
	s.accounts = append(s.accounts, a)
	return a.ID, nil
}

func (s *Store) AddExpense(_ context.Context, e core.Expense) (string, error) {
	if err := e.Validate(); err != nil {
		return "", err
	}
	e.ID = newID(e.ID)
	e.CurrencyCode = core.NormalizeCode(e.CurrencyCode)
	s.mu.Lock()
	defer s.mu.Unlock()
	s.expenses = append(s.expenses, e)
	return e.ID, nil
}

func (s *Store) AddIncome(_ context.Context, i core.Income) (string, error) {
	if err := i.Validate(); err != nil {
		return "", err
	}
	i.ID = newID(i.ID)
	i.CurrencyCode = core.NormalizeCode(i.CurrencyCode)
	s.mu.Lock()
	defer s.mu.Unlock()
	s.incomes = append(s.incomes, i)
	return i.ID, nil
}

func (s *Store) AddBudget(_ context.Context, b core.Budget) (string, error) {
	if err := b.Validate(); err != nil {
		return "", err
	}
	b.ID = newID(b.ID)
	b.LimitCurrency = core.NormalizeCode(b.LimitCurrency)
	s.mu.Lock()
	defer s.mu.Unlock()
	s.budgets = append(s.budgets, b)
	return b.ID, nil
}

func (s *Store) AddInvestment(_ context.Context, inv core.Investment) (string, error) {
	if strings.TrimSpace(inv.Name) == "" {
		return "", &core.ValidationError{Field: "name", Reason: "required"}
	}
	inv.ID = newID(inv.ID)
	inv.CurrencyCode = core.NormalizeCode(inv.CurrencyCode)
	s.mu.Lock()
	defer s.mu.Unlock()
	s.investments = append(s.investments, inv)
	return inv.ID, nil
}

func (s *Store) AddInvestmentTransaction(_ context.Context, tx core.InvestmentTransaction) (string, error) {
	if err := tx.Validate(); err != nil {
		return "", err
	}
	tx.ID = newID(tx.ID)
	tx.CurrencyCode = core.NormalizeCode(tx.CurrencyCode)
	s.mu.Lock()
	defer s.mu.Unlock()
	s.txs = append(s.txs, tx)
	return tx.ID, nil
}

func (s *Store) ListAccounts(_ context.Context, userID string) ([]core.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []core.Account
	for _, a := range s.accounts {
		if a.UserID == userID {
			out = append(out, a)
		}
	}
	return out, nil
}

func (s *Store) ListExpenses(_ context.Context, userID string, r ledger.DateRange) ([]core.Expense, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []core.Expense
	for _, e := range s.expenses {
		if e.UserID == userID && r.Contains(e.Date) {
			out = append(out, e)
		}
	}
	return out, nil
}

func (s *Store) ListIncomes(_ context.Context, userID string, r ledger.DateRange) ([]core.Income, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []core.Income
	for _, i := range s.incomes {
		if i.UserID == userID && r.Contains(i.Date) {
			out = append(out, i)
		}
	}
	return out, nil
}

func (s *Store) ListBudgets(_ context.Context, userID string, r ledger.DateRange) ([]core.Budget, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []core.Budget
	for _, b := range s.budgets {
		if b.UserID == userID && r.Contains(b.PeriodStartDate) {
			out = append(out, b)
		}
	}
	return out, nil
}

func (s *Store) ListInvestments(_ context.Context, userID string) ([]core.Investment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []core.Investment
	for _, inv := range s.investments {
		if inv.UserID == userID {
			out = append(out, inv)
		}
	}
	return out, nil
}

// ListInvestmentTransactions returns transactions of investments owned by userID.
func (s *Store) ListInvestmentTransactions(_ context.Context, userID string) ([]core.InvestmentTransaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	owned := make(map[string]struct{})
	for _, inv := range s.investments {
		if inv.UserID == userID {
			owned[inv.ID] = struct{}{}
		}
	}
	var out []core.InvestmentTransaction
	for _, tx := range s.txs {
		if _, ok := owned[tx.InvestmentID]; ok {
			out = append(out, tx)
		}
	}
	return out, nil
}

// PutRates upserts rates by (date, currency).
func (s *Store) PutRates(_ context.Context, rates []core.ExchangeRate) error {
	for _, r := range rates {
		if err := r.Validate(); err != nil {
			return err
		}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, r := range rates {
		code := core.NormalizeCode(r.CurrencyCode)
		r.CurrencyCode = code
		list := s.rates[code]
		i := sort.Search(len(list), func(i int) bool { return list[i].Date >= r.Date })
		if i < len(list) && list[i].Date == r.Date {
			list[i] = r
			continue
		}
		list = append(list, core.ExchangeRate{})
		copy(list[i+1:], list[i:])
		list[i] = r
		s.rates[code] = list
	}
	return nil
}

func (s *Store) GetRate(_ context.Context, date core.Date, code string) (decimal.Decimal, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.rateOn(date.String(), core.NormalizeCode(code))
	return r, ok, nil
}

func (s *Store) GetRates(_ context.Context, date core.Date, codes []string) (map[string]decimal.Decimal, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string]decimal.Decimal, len(codes))
	day := date.String()
	for _, c := range codes {
		c = core.NormalizeCode(c)
		if r, ok := s.rateOn(day, c); ok {
			out[c] = r
		}
	}
	return out, nil
}

// Codes returns every currency with at least one recorded rate.
func (s *Store) Codes(_ context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]string, 0, len(s.rates))
	for c := range s.rates {
		out = append(out, c)
	}
	sort.Strings(out)
	return out, nil
}

func (s *Store) rateOn(day, code string) (decimal.Decimal, bool) {
	list := s.rates[code]
	i := sort.Search(len(list), func(i int) bool { return list[i].Date > day })
	if i == 0 {
		return decimal.Zero, false
	}
	return list[i-1].RateToReporting, true
}
