package core

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"
)

func TestParseDate(t *testing.T) {
	d, err := ParseDate("2025-02-28")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if d.Year() != 2025 || d.Month() != 2 || d.Day() != 28 {
		t.Fatalf("unexpected date: %v", d)
	}
	if _, err := ParseDate("28/02/2025"); !errors.Is(err, ErrParse) {
		t.Fatalf("expected ErrParse, got %v", err)
	}
}

func TestDateCalendarHelpers(t *testing.T) {
	cases := []struct {
		name string
		got  Date
		want Date
	}{
		{"end of february leap year", NewDate(2024, 2, 10).EndOfMonth(), NewDate(2024, 2, 29)},
		{"end of december", NewDate(2025, 12, 1).EndOfMonth(), NewDate(2025, 12, 31)},
		{"start of month", NewDate(2025, 7, 19).StartOfMonth(), NewDate(2025, 7, 1)},
		{"iso week of sunday", NewDate(2025, 3, 16).StartOfISOWeek(), NewDate(2025, 3, 10)},
		{"iso week of monday", NewDate(2025, 3, 10).StartOfISOWeek(), NewDate(2025, 3, 10)},
		{"iso week across year", NewDate(2025, 1, 1).StartOfISOWeek(), NewDate(2024, 12, 30)},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if !tc.got.Equal(tc.want) {
				t.Fatalf("got %s, want %s", tc.got, tc.want)
			}
		})
	}
	if n := NewDate(2025, 1, 1).DaysUntil(NewDate(2025, 2, 1)); n != 31 {
		t.Fatalf("DaysUntil: got %d", n)
	}
	if !NewDate(2025, 1, 31).Between(NewDate(2025, 1, 1), NewDate(2025, 1, 31)) {
		t.Fatalf("Between should be inclusive")
	}
}

func TestDateJSON(t *testing.T) {
	b, err := NewDate(2025, 4, 5).MarshalJSON()
	if err != nil || string(b) != `"2025-04-05"` {
		t.Fatalf("marshal: %s %v", b, err)
	}
	var d Date
	if err := d.UnmarshalJSON([]byte(`"2025-04-05"`)); err != nil || !d.Equal(NewDate(2025, 4, 5)) {
		t.Fatalf("unmarshal: %v %v", d, err)
	}
}

func TestExpenseValidate(t *testing.T) {
	good := Expense{
		Date:         "2025-01-01",
		Category:     "Groceries",
		AmountNative: decimal.NewFromInt(10),
		CurrencyCode: "EUR",
	}
	if err := good.Validate(); err != nil {
		t.Fatalf("expected ok, got %v", err)
	}

	bads := []Expense{
		{Date: "", Category: "c", AmountNative: decimal.NewFromInt(1), CurrencyCode: "EUR"},
		{Date: "2025-01-01", Category: "", AmountNative: decimal.NewFromInt(1), CurrencyCode: "EUR"},
		{Date: "2025-01-01", Category: "c", AmountNative: decimal.Zero, CurrencyCode: "EUR"},
		{Date: "2025-01-01", Category: "c", AmountNative: decimal.NewFromInt(-1), CurrencyCode: "EUR"},
		{Date: "2025-01-01", Category: "c", AmountNative: decimal.NewFromInt(1), CurrencyCode: ""},
		{Date: "2025-01-01", Category: "c", AmountNative: decimal.NewFromInt(1), CurrencyCode: "EURO"},
	}
	for i, e := range bads {
		err := e.Validate()
		if err == nil {
			t.Fatalf("case %d expected error", i)
		}
		if !errors.Is(err, ErrValidation) {
			t.Fatalf("case %d expected ErrValidation, got %v", i, err)
		}
	}
}

func TestInvestmentTransactionValidate(t *testing.T) {
	base := InvestmentTransaction{
		InvestmentID:       "inv-1",
		Date:               "2025-01-02",
		Type:               Buy,
		Quantity:           decimal.NewFromInt(1),
		PricePerUnitNative: decimal.NewFromInt(10),
		CurrencyCode:       "USD",
	}
	if err := base.Validate(); err != nil {
		t.Fatalf("expected ok, got %v", err)
	}

	div := base
	div.Type = Dividend
	div.Quantity = decimal.Zero
	if err := div.Validate(); err != nil {
		t.Fatalf("dividend without units should be valid, got %v", err)
	}

	bad := base
	bad.Type = "transfer"
	if err := bad.Validate(); !errors.Is(err, ErrValidation) {
		t.Fatalf("expected invalid type, got %v", err)
	}

	bad = base
	bad.Quantity = decimal.Zero
	if err := bad.Validate(); err == nil {
		t.Fatalf("expected error for zero quantity buy")
	}
}

func TestSnapshotAccounts(t *testing.T) {
	snap := SnapshotAccounts([]Account{
		{ID: "a", BalanceReporting: decimal.NewFromInt(700)},
		{ID: "b", BalanceReporting: decimal.NewFromInt(300)},
	})
	if snap.Accounts != 2 || !snap.TotalReportingBalance.Equal(decimal.NewFromInt(1000)) {
		t.Fatalf("unexpected snapshot: %+v", snap)
	}
}
