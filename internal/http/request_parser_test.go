package http

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"valuta/internal/core"
)

func TestParseMonthParam(t *testing.T) {
	today := core.NewDate(2025, 3, 15)
	tests := []struct {
		name    string
		query   url.Values
		want    string
		wantErr error
	}{
		{"defaults to current month", url.Values{}, "2025-03-01", nil},
		{"iso month", url.Values{"month": {"2024-11"}}, "2024-11-01", nil},
		{"year and month numbers", url.Values{"year": {"2023"}, "month": {"6"}}, "2023-06-01", nil},
		{"month number keeps year", url.Values{"month": {"1"}}, "2025-01-01", nil},
		{"bad iso month", url.Values{"month": {"2024-13"}}, "", core.ErrParse},
		{"bad year", url.Values{"year": {"twenty"}}, "", core.ErrParse},
		{"month out of range", url.Values{"month": {"0"}}, "", core.ErrValidation},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseMonthParam(tt.query, today)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("error = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got.String() != tt.want {
				t.Errorf("month = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestParseRangeParams(t *testing.T) {
	today := core.NewDate(2025, 3, 15)

	from, to, err := ParseRangeParams(url.Values{}, today)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if from.String() != "2025-03-01" || to.String() != "2025-03-15" {
		t.Errorf("defaults = %s..%s", from, to)
	}

	from, to, err = ParseRangeParams(url.Values{"to": {"2025-02-10"}}, today)
	if err != nil || from.String() != "2025-02-01" || to.String() != "2025-02-10" {
		t.Errorf("from should default to start of to's month: %s..%s err=%v", from, to, err)
	}

	_, _, err = ParseRangeParams(url.Values{"from": {"2025-03-20"}, "to": {"2025-03-01"}}, today)
	if !errors.Is(err, core.ErrValidation) {
		t.Errorf("inverted range error = %v", err)
	}

	_, _, err = ParseRangeParams(url.Values{"from": {"yesterday"}}, today)
	if !errors.Is(err, core.ErrParse) || !strings.HasPrefix(err.Error(), "from:") {
		t.Errorf("bad from error = %v", err)
	}
}

func TestParseCurrencyParam(t *testing.T) {
	tests := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{"", "", false},
		{"usd", "USD", false},
		{" chf ", "CHF", false},
		{"EURO", "", true},
		{"U$D", "", true},
	}
	for _, tt := range tests {
		got, err := ParseCurrencyParam(url.Values{"currency": {tt.in}}, "currency")
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseCurrencyParam(%q) error = %v", tt.in, err)
			continue
		}
		if tt.wantErr && !errors.Is(err, core.ErrValidation) {
			t.Errorf("ParseCurrencyParam(%q) should be a validation error: %v", tt.in, err)
		}
		if got != tt.want {
			t.Errorf("ParseCurrencyParam(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}

	if _, err := ParseRequiredCurrency(url.Values{}, "from"); !errors.Is(err, core.ErrValidation) {
		t.Errorf("missing required currency error = %v", err)
	}
}

func TestParseAmountParam(t *testing.T) {
	got, err := ParseAmountParam(url.Values{"amount": {" 12,50 "}}, "amount")
	if err != nil || got.String() != "12.5" {
		t.Errorf("amount = %s err=%v", got, err)
	}
	if _, err := ParseAmountParam(url.Values{}, "amount"); !errors.Is(err, core.ErrValidation) {
		t.Errorf("missing amount error = %v", err)
	}
	if _, err := ParseAmountParam(url.Values{"amount": {"1e3"}}, "amount"); !errors.Is(err, core.ErrParse) {
		t.Errorf("exponent amount error = %v", err)
	}
}

func TestParseUserParam(t *testing.T) {
	if u, err := ParseUserParam(url.Values{}, "default"); err != nil || u != "default" {
		t.Errorf("default user = %q err=%v", u, err)
	}
	if u, err := ParseUserParam(url.Values{"user": {" alice\x00 "}}, "default"); err != nil || u != "alice" {
		t.Errorf("sanitized user = %q err=%v", u, err)
	}
	if _, err := ParseUserParam(url.Values{}, ""); !errors.Is(err, core.ErrValidation) {
		t.Errorf("missing user error = %v", err)
	}
	if _, err := ParseUserParam(url.Values{"user": {strings.Repeat("x", 129)}}, ""); !errors.Is(err, core.ErrValidation) {
		t.Errorf("long user error = %v", err)
	}
}

func TestRequireMethod(t *testing.T) {
	tests := []struct {
		name    string
		method  string
		allowed []string
		wantNil bool
	}{
		{"GET allowed", http.MethodGet, []string{http.MethodGet}, true},
		{"POST not allowed for GET", http.MethodPost, []string{http.MethodGet}, false},
		{"multiple allowed", http.MethodHead, []string{http.MethodGet, http.MethodHead}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, "/", nil)
			resp := RequireMethod(req, tt.allowed...)
			if (resp == nil) != tt.wantNil {
				t.Errorf("RequireMethod() nil = %v, want %v", resp == nil, tt.wantNil)
			}
		})
	}
}
