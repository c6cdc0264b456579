// Package http provides HTTP server and handler implementations.
//
// This file implements utilities for parsing and validating query parameters.
// Every parser returns errors wrapping core.ErrParse or core.ErrValidation so
// handlers can hand them straight to writeError.

package http

import (
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"valuta/internal/core"
)

const maxUserIDLength = 128

// ParseMonthParam reads month=YYYY-MM, or the year=&month=N pair, defaulting
// to the month containing today.
func ParseMonthParam(query url.Values, today core.Date) (core.Date, error) {
	raw := strings.TrimSpace(query.Get("month"))
	if strings.Contains(raw, "-") {
		return core.ParseMonth(raw)
	}

	year, month := today.Year(), today.Month()
	if v := strings.TrimSpace(query.Get("year")); v != "" {
		y, err := strconv.Atoi(v)
		if err != nil {
			return core.Date{}, fmt.Errorf("%w: year %q", core.ErrParse, v)
		}
		year = y
	}
	if raw != "" {
		m, err := strconv.Atoi(raw)
		if err != nil {
			return core.Date{}, fmt.Errorf("%w: month %q", core.ErrParse, raw)
		}
		month = m
	}
	if month < 1 || month > 12 {
		return core.Date{}, &core.ValidationError{Field: "month", Reason: "must be between 1 and 12"}
	}
	return core.NewDate(year, month, 1), nil
}

// ParseDateParam reads an optional YYYY-MM-DD parameter. A missing value is
// the zero date.
func ParseDateParam(query url.Values, key string) (core.Date, error) {
	raw := strings.TrimSpace(query.Get(key))
	if raw == "" {
		return core.Date{}, nil
	}
	d, err := core.ParseDate(raw)
	if err != nil {
		return core.Date{}, fmt.Errorf("%s: %w", key, err)
	}
	return d, nil
}

// ParseRangeParams reads from and to. to defaults to today and from to the
// first day of to's month.
func ParseRangeParams(query url.Values, today core.Date) (from, to core.Date, err error) {
	if from, err = ParseDateParam(query, "from"); err != nil {
		return
	}
	if to, err = ParseDateParam(query, "to"); err != nil {
		return
	}
	if to.IsEmpty() {
		to = today
	}
	if from.IsEmpty() {
		from = to.StartOfMonth()
	}
	if from.After(to) {
		err = &core.ValidationError{Field: "from", Reason: "must not be after to"}
	}
	return
}

// ParseCurrencyParam reads an optional currency code, upper-cased.
func ParseCurrencyParam(query url.Values, key string) (string, error) {
	raw := core.NormalizeCode(query.Get(key))
	if raw == "" {
		return "", nil
	}
	if len(raw) != 3 {
		return "", fmt.Errorf("%w: %q", core.ErrInvalidCurrency, raw)
	}
	for _, r := range raw {
		if r < 'A' || r > 'Z' {
			return "", fmt.Errorf("%w: %q", core.ErrInvalidCurrency, raw)
		}
	}
	return raw, nil
}

// ParseRequiredCurrency is ParseCurrencyParam that rejects a missing code.
func ParseRequiredCurrency(query url.Values, key string) (string, error) {
	code, err := ParseCurrencyParam(query, key)
	if err != nil {
		return "", err
	}
	if code == "" {
		return "", &core.ValidationError{Field: key, Reason: "is required"}
	}
	return code, nil
}

// ParseAmountParam reads a decimal amount, accepting a decimal comma.
func ParseAmountParam(query url.Values, key string) (decimal.Decimal, error) {
	raw := sanitizeInput(query.Get(key))
	if raw == "" {
		return decimal.Zero, &core.ValidationError{Field: key, Reason: "is required"}
	}
	return core.ParseAmount(raw)
}

// ParseUserParam reads user, falling back to def.
func ParseUserParam(query url.Values, def string) (string, error) {
	user := sanitizeInput(query.Get("user"))
	if user == "" {
		user = def
	}
	if user == "" {
		return "", &core.ValidationError{Field: "user", Reason: "is required"}
	}
	if len(user) > maxUserIDLength {
		return "", &core.ValidationError{Field: "user", Reason: "too long"}
	}
	return user, nil
}

// sanitizeInput removes control characters and trims whitespace.
func sanitizeInput(s string) string {
	s = strings.TrimSpace(s)
	return strings.Map(func(r rune) rune {
		if r < 32 && r != 9 && r != 10 && r != 13 {
			return -1
		}
		return r
	}, s)
}

// RequireMethod checks if the request method matches the expected method(s).
// Returns an error response builder if the method doesn't match.
func RequireMethod(r *http.Request, methods ...string) *JSONResponseBuilder {
	for _, m := range methods {
		if r.Method == m {
			return nil
		}
	}
	return MethodNotAllowedError(strings.Join(methods, ", "))
}

// RequireGET is a convenience function for read-only handlers.
func RequireGET(r *http.Request) *JSONResponseBuilder {
	return RequireMethod(r, http.MethodGet, http.MethodHead)
}
