package sheets

import (
	"fmt"
	"strconv"
	"strings"

	"valuta/internal/core"
)

// parseRates converts a values matrix into rate records. Two layouts are
// accepted, both with a header row:
//
//	Date | Currency | Rate          (one rate per row)
//	Date | USD | GBP | ...         (one column per currency)
//
// Rows with an unparseable date or amount are skipped and counted; empty
// cells are ignored.
func parseRates(values [][]interface{}) ([]core.ExchangeRate, int, error) {
	if len(values) == 0 {
		return nil, 0, nil
	}
	headers := toStrings(values[0])
	colDate := indexOf(headers, "Date")
	if colDate == -1 {
		return nil, 0, fmt.Errorf("unexpected rates header: missing Date; got headers=%v", headers)
	}

	colCurrency := indexOf(headers, "Currency")
	colRate := indexOf(headers, "Rate")
	if colCurrency != -1 && colRate != -1 {
		return parseLong(values[1:], colDate, colCurrency, colRate)
	}
	return parseWide(values[1:], headers, colDate)
}

func parseLong(rows [][]interface{}, colDate, colCurrency, colRate int) ([]core.ExchangeRate, int, error) {
	var (
		out     []core.ExchangeRate
		skipped int
	)
	for _, raw := range rows {
		row := toStrings(raw)
		date, code, value := safeGet(row, colDate), safeGet(row, colCurrency), safeGet(row, colRate)
		if date == "" && code == "" && value == "" {
			continue
		}
		r, ok := toRate(date, code, value)
		if !ok {
			skipped++
			continue
		}
		out = append(out, r)
	}
	return out, skipped, nil
}

func parseWide(rows [][]interface{}, headers []string, colDate int) ([]core.ExchangeRate, int, error) {
	codes := make(map[int]string)
	for i, h := range headers {
		if i == colDate {
			continue
		}
		if code := core.NormalizeCode(h); len(code) == 3 {
			codes[i] = code
		}
	}
	if len(codes) == 0 {
		return nil, 0, fmt.Errorf("unexpected rates header: no currency columns; got headers=%v", headers)
	}

	var (
		out     []core.ExchangeRate
		skipped int
	)
	for _, raw := range rows {
		row := toStrings(raw)
		date := safeGet(row, colDate)
		if date == "" {
			continue
		}
		for i := range headers {
			code, ok := codes[i]
			if !ok {
				continue
			}
			value := safeGet(row, i)
			if value == "" {
				continue
			}
			r, ok := toRate(date, code, value)
			if !ok {
				skipped++
				continue
			}
			out = append(out, r)
		}
	}
	return out, skipped, nil
}

func toRate(date, code, value string) (core.ExchangeRate, bool) {
	d, err := core.ParseDate(date)
	if err != nil {
		return core.ExchangeRate{}, false
	}
	amount, err := core.ParseAmount(value)
	if err != nil {
		return core.ExchangeRate{}, false
	}
	r := core.ExchangeRate{Date: d.String(), CurrencyCode: core.NormalizeCode(code), RateToReporting: amount}
	if r.Validate() != nil {
		return core.ExchangeRate{}, false
	}
	return r, true
}

func toStrings(in []interface{}) []string {
	out := make([]string, len(in))
	for i, v := range in {
		if f, ok := v.(float64); ok {
			out[i] = strconv.FormatFloat(f, 'f', -1, 64)
			continue
		}
		out[i] = strings.TrimSpace(fmt.Sprint(v))
	}
	return out
}

func indexOf(arr []string, target string) int {
	for i, v := range arr {
		if strings.EqualFold(strings.TrimSpace(v), target) {
			return i
		}
	}
	return -1
}

func safeGet(arr []string, idx int) string {
	if idx >= 0 && idx < len(arr) {
		return arr[idx]
	}
	return ""
}
