package timeseries

import (
	"testing"

	"github.com/shopspring/decimal"

	"valuta/internal/core"
	"valuta/internal/currency"
)

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

var today = core.NewDate(2025, 3, 15)

func linkedExpense(date, amount string) core.Expense {
	return core.Expense{ID: date, AccountID: "acc", Date: date, AmountReporting: d(amount)}
}

func linkedIncome(date, amount string) core.Income {
	return core.Income{ID: date, AccountID: "acc", Date: date, AmountReporting: d(amount)}
}

func TestGranularityFor(t *testing.T) {
	cases := []struct {
		days int
		want Granularity
	}{
		{1, Daily}, {31, Daily}, {32, Weekly}, {90, Weekly}, {91, Monthly}, {365, Monthly},
	}
	for _, tc := range cases {
		if got := GranularityFor(tc.days); got != tc.want {
			t.Fatalf("%d days: got %s, want %s", tc.days, got, tc.want)
		}
	}
}

func TestReconstructAddsBackLaterExpense(t *testing.T) {
	r := NewReconstructor(nil)
	s := r.Reconstruct(Request{
		CurrentTotalReporting: d("1000"),
		Expenses:              []core.Expense{linkedExpense(today.AddDays(-1).String(), "100")},
		From:                  today.AddDays(-2),
		To:                    today,
		Today:                 today,
		HasAccounts:           true,
	})
	if s.Granularity != Daily || len(s.Points) != 3 {
		t.Fatalf("unexpected series: %+v", s)
	}
	want := []string{"1100", "1000", "1000"}
	for i, w := range want {
		if !s.Points[i].Balance.Equal(d(w)) {
			t.Fatalf("point %d (%s): got %s, want %s", i, s.Points[i].Label, s.Points[i].Balance, w)
		}
	}
	if !s.Points[1].PeriodSpend.Equal(d("100")) || !s.Points[0].PeriodSpend.IsZero() {
		t.Fatalf("unexpected spend: %+v", s.Points)
	}
}

func TestReconstructIncomesAndUnlinked(t *testing.T) {
	unlinked := linkedExpense("2025-03-14", "40")
	unlinked.AccountID = ""
	r := NewReconstructor(nil)
	s := r.Reconstruct(Request{
		CurrentTotalReporting: d("500"),
		Incomes:               []core.Income{linkedIncome("2025-03-14", "200"), linkedIncome("2025-03-20", "999")},
		Expenses:              []core.Expense{unlinked, linkedExpense("bad", "999")},
		From:                  core.NewDate(2025, 3, 13),
		To:                    core.NewDate(2025, 3, 15),
		Today:                 today,
		HasAccounts:           true,
	})
	if len(s.Points) != 3 {
		t.Fatalf("expected 3 points, got %d", len(s.Points))
	}
	if !s.Points[0].Balance.Equal(d("300")) {
		t.Fatalf("income after t should be reversed, got %s", s.Points[0].Balance)
	}
	if !s.Points[1].Balance.Equal(d("500")) {
		t.Fatalf("unlinked expense must not affect balance, got %s", s.Points[1].Balance)
	}
	if !s.Points[1].PeriodSpend.Equal(d("40")) {
		t.Fatalf("unlinked expense still counts as spend, got %s", s.Points[1].PeriodSpend)
	}
}

func TestReconstructClampsToToday(t *testing.T) {
	s := NewReconstructor(nil).Reconstruct(Request{
		CurrentTotalReporting: d("10"),
		From:                  core.NewDate(2025, 3, 10),
		To:                    core.NewDate(2025, 3, 25),
		Today:                 today,
		HasAccounts:           true,
	})
	if len(s.Points) != 6 {
		t.Fatalf("expected buckets up to today only, got %d", len(s.Points))
	}
	if last := s.Points[len(s.Points)-1]; !last.End.Equal(today) {
		t.Fatalf("last bucket should end today, got %s", last.End)
	}
}

func TestReconstructWeekly(t *testing.T) {
	s := NewReconstructor(nil).Reconstruct(Request{
		CurrentTotalReporting: d("0"),
		Expenses:              []core.Expense{linkedExpense("2025-01-01", "10"), linkedExpense("2025-01-06", "5")},
		From:                  core.NewDate(2025, 1, 1),
		To:                    core.NewDate(2025, 2, 28),
		Today:                 today,
		HasAccounts:           true,
	})
	if s.Granularity != Weekly {
		t.Fatalf("expected weekly, got %s", s.Granularity)
	}
	p := s.Points[0]
	if p.Label != "2025-W01" || !p.Start.Equal(core.NewDate(2025, 1, 1)) || !p.End.Equal(core.NewDate(2025, 1, 5)) {
		t.Fatalf("unexpected first week: %+v", p)
	}
	if !p.PeriodSpend.Equal(d("10")) || !s.Points[1].PeriodSpend.Equal(d("5")) {
		t.Fatalf("unexpected weekly spend: %s %s", p.PeriodSpend, s.Points[1].PeriodSpend)
	}
	if !p.Balance.Equal(d("5")) {
		t.Fatalf("later expense should be added back, got %s", p.Balance)
	}
}

func TestReconstructMonthly(t *testing.T) {
	s := NewReconstructor(nil).Reconstruct(Request{
		CurrentTotalReporting: d("100"),
		From:                  core.NewDate(2024, 11, 15),
		To:                    core.NewDate(2025, 6, 30),
		Today:                 today,
		HasAccounts:           true,
	})
	if s.Granularity != Monthly {
		t.Fatalf("expected monthly, got %s", s.Granularity)
	}
	labels := []string{"2024-11", "2024-12", "2025-01", "2025-02", "2025-03"}
	if len(s.Points) != len(labels) {
		t.Fatalf("expected %d months, got %d", len(labels), len(s.Points))
	}
	for i, l := range labels {
		if s.Points[i].Label != l {
			t.Fatalf("point %d: got %s, want %s", i, s.Points[i].Label, l)
		}
	}
	if !s.Points[0].Start.Equal(core.NewDate(2024, 11, 15)) {
		t.Fatalf("first bucket should start at range start")
	}
}

func TestReconstructEmpty(t *testing.T) {
	r := NewReconstructor(nil)
	cases := []struct {
		name string
		req  Request
	}{
		{"no accounts", Request{From: core.NewDate(2025, 3, 1), To: today, Today: today}},
		{"no range", Request{Today: today, HasAccounts: true}},
		{"inverted", Request{From: today, To: core.NewDate(2025, 3, 1), Today: today, HasAccounts: true}},
		{"future range", Request{From: core.NewDate(2025, 4, 1), To: core.NewDate(2025, 4, 5), Today: today, HasAccounts: true}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			s := r.Reconstruct(tc.req)
			if len(s.Points) != 0 {
				t.Fatalf("expected empty series, got %d points", len(s.Points))
			}
		})
	}
}

func TestPointInCurrency(t *testing.T) {
	snap := currency.NewSnapshotFromMap("EUR", today, map[string]decimal.Decimal{"USD": d("0.8")})
	p := Point{Label: "x", Balance: d("80"), PeriodSpend: d("8")}

	v := p.InCurrency("USD", snap)
	if !v.Converted || !v.Balance.Equal(d("100")) || !v.PeriodSpend.Equal(d("10")) {
		t.Fatalf("unexpected conversion: %+v", v)
	}
	v = p.InCurrency("JPY", snap)
	if v.Converted || v.Currency != "EUR" || !v.Balance.Equal(d("80")) {
		t.Fatalf("expected reporting fallback, got %+v", v)
	}
}
