// Package sheets reads exchange rates from a Google Sheets spreadsheet.
package sheets

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/time/rate"

	"valuta/internal/cache"
	"valuta/internal/core"
	"valuta/internal/ledger"

	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"
)

const (
	DefaultSheetName = "Rates"
	// Sheets read quota is per minute; one call per second stays well under it.
	DefaultRateLimit = 1
	rowsCacheKey     = "rows"
)

// Config selects the spreadsheet and credentials.
type Config struct {
	SpreadsheetID   string
	SheetName       string
	CredentialsJSON string
	CredentialsFile string
	// RowsTTL bounds how long fetched rows serve GetRate lookups.
	RowsTTL time.Duration
}

// valuesGetter is the slice of the Sheets API the client uses.
type valuesGetter interface {
	Get(ctx context.Context, spreadsheetID, rng string) ([][]interface{}, error)
}

type apiValues struct{ svc *gsheet.Service }

func (a apiValues) Get(ctx context.Context, spreadsheetID, rng string) ([][]interface{}, error) {
	resp, err := a.svc.Spreadsheets.Values.Get(spreadsheetID, rng).
		ValueRenderOption("UNFORMATTED_VALUE").
		DateTimeRenderOption("FORMATTED_STRING").
		Context(ctx).Do()
	if err != nil {
		return nil, err
	}
	return resp.Values, nil
}

type Client struct {
	values        valuesGetter
	spreadsheetID string
	sheetName     string
	limiter       *rate.Limiter
	rows          *cache.LRUCache[map[string][]core.ExchangeRate]
}

var _ ledger.RateReader = (*Client)(nil)

// New creates a Sheets client authenticated with a service account.
func New(ctx context.Context, cfg Config) (*Client, error) {
	if strings.TrimSpace(cfg.SpreadsheetID) == "" {
		return nil, errors.New("missing rates spreadsheet id")
	}
	svc, err := newSheetsService(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("sheets service: %w", err)
	}
	return newClient(apiValues{svc: svc}, cfg), nil
}

func newClient(values valuesGetter, cfg Config) *Client {
	name := strings.TrimSpace(cfg.SheetName)
	if name == "" {
		name = DefaultSheetName
	}
	ttl := cfg.RowsTTL
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	return &Client{
		values:        values,
		spreadsheetID: cfg.SpreadsheetID,
		sheetName:     name,
		limiter:       rate.NewLimiter(rate.Limit(DefaultRateLimit), 1),
		rows:          cache.NewLRUCache[map[string][]core.ExchangeRate](1, ttl),
	}
}

func newSheetsService(ctx context.Context, cfg Config) (*gsheet.Service, error) {
	var credentialsJSON []byte
	switch {
	case strings.TrimSpace(cfg.CredentialsJSON) != "":
		slog.InfoContext(ctx, "Using inline JSON credentials")
		credentialsJSON = []byte(cfg.CredentialsJSON)
	case strings.TrimSpace(cfg.CredentialsFile) != "":
		slog.InfoContext(ctx, "Reading credentials from file", "path", cfg.CredentialsFile)
		b, err := os.ReadFile(cfg.CredentialsFile)
		if err != nil {
			return nil, fmt.Errorf("read service account file: %w", err)
		}
		credentialsJSON = b
	default:
		return nil, errors.New("missing service account credentials (set GOOGLE_SERVICE_ACCOUNT_JSON or GOOGLE_APPLICATION_CREDENTIALS)")
	}

	service, err := gsheet.NewService(ctx,
		goption.WithCredentialsJSON(credentialsJSON),
		goption.WithScopes(gsheet.SpreadsheetsReadonlyScope),
		goption.WithHTTPClient(newHTTPClient()))
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}
	return service, nil
}

func newHTTPClient() *http.Client {
	dialer := &net.Dialer{Timeout: 30 * time.Second, KeepAlive: 30 * time.Second}
	return &http.Client{
		Transport: &http.Transport{
			DialContext:           dialer.DialContext,
			MaxIdleConnsPerHost:   4,
			IdleConnTimeout:       90 * time.Second,
			TLSHandshakeTimeout:   10 * time.Second,
			ResponseHeaderTimeout: 30 * time.Second,
			ForceAttemptHTTP2:     true,
		},
		Timeout: 60 * time.Second,
	}
}

// FetchRates reads every rate in the sheet.
func (c *Client) FetchRates(ctx context.Context) ([]core.ExchangeRate, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limiter: %w", err)
	}
	rng := fmt.Sprintf("%s!A:Z", c.sheetName)
	values, err := c.values.Get(ctx, c.spreadsheetID, rng)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", rng, err)
	}
	rates, skipped, err := parseRates(values)
	if err != nil {
		return nil, err
	}
	if skipped > 0 {
		slog.WarnContext(ctx, "Skipped malformed rate cells", "sheet", c.sheetName, "skipped", skipped)
	}
	return rates, nil
}

// byCurrency returns fetched rates grouped by code, ascending by date,
// refreshing from the sheet when the cached rows have expired.
func (c *Client) byCurrency(ctx context.Context) (map[string][]core.ExchangeRate, error) {
	if m, ok := c.rows.Get(rowsCacheKey); ok {
		return m, nil
	}
	rates, err := c.FetchRates(ctx)
	if err != nil {
		return nil, err
	}
	m := make(map[string][]core.ExchangeRate)
	for _, r := range rates {
		m[r.CurrencyCode] = append(m[r.CurrencyCode], r)
	}
	for code := range m {
		list := m[code]
		sort.SliceStable(list, func(i, j int) bool { return list[i].Date < list[j].Date })
	}
	c.rows.Set(rowsCacheKey, m)
	return m, nil
}

func (c *Client) GetRate(ctx context.Context, date core.Date, code string) (decimal.Decimal, bool, error) {
	m, err := c.byCurrency(ctx)
	if err != nil {
		return decimal.Zero, false, err
	}
	r, ok := latestOnOrBefore(m[core.NormalizeCode(code)], date.String())
	return r, ok, nil
}

func (c *Client) GetRates(ctx context.Context, date core.Date, codes []string) (map[string]decimal.Decimal, error) {
	m, err := c.byCurrency(ctx)
	if err != nil {
		return nil, err
	}
	out := make(map[string]decimal.Decimal, len(codes))
	for _, code := range codes {
		code = core.NormalizeCode(code)
		if r, ok := latestOnOrBefore(m[code], date.String()); ok {
			out[code] = r
		}
	}
	return out, nil
}

func latestOnOrBefore(list []core.ExchangeRate, day string) (decimal.Decimal, bool) {
	i := sort.Search(len(list), func(i int) bool { return list[i].Date > day })
	if i == 0 {
		return decimal.Zero, false
	}
	return list[i-1].RateToReporting, true
}
