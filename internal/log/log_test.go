package log

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestParseLevel(t *testing.T) {
	tests := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		"INFO":    slog.LevelInfo,
		"warn":    slog.LevelWarn,
		"warning": slog.LevelWarn,
		"error":   slog.LevelError,
		"":        slog.LevelInfo,
		"loud":    slog.LevelInfo,
	}
	for in, want := range tests {
		if got := ParseLevel(in); got != want {
			t.Errorf("ParseLevel(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestLoggerComponentAndLevel(t *testing.T) {
	var buf bytes.Buffer
	l := New(Config{Level: slog.LevelWarn, Component: ComponentRates, Output: &buf})

	l.Info("hidden")
	l.Warn("shown", FieldCurrency, "USD")

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Errorf("info record should be filtered: %s", out)
	}
	if !strings.Contains(out, "component=rates") || !strings.Contains(out, "currency=USD") {
		t.Errorf("expected component and field in output: %s", out)
	}
	if l.Component() != ComponentRates {
		t.Errorf("Component() = %q", l.Component())
	}
}

func TestLogFields(t *testing.T) {
	f := NewFields().
		WithComputation("u1", "budgets", 7).
		WithError(errors.New("boom"), ErrorTypeDatabase).
		WithRequestID("")

	if _, ok := f[FieldRequestID]; ok {
		t.Error("empty request id should be omitted")
	}
	if f[FieldToken] != uint64(7) || f[FieldErrorType] != ErrorTypeDatabase {
		t.Errorf("unexpected fields: %v", f)
	}

	slice := f.ToSlice()
	if len(slice) != len(f)*2 {
		t.Fatalf("ToSlice length = %d, want %d", len(slice), len(f)*2)
	}
	if slice[0] != FieldError {
		t.Errorf("expected keys sorted, first key %v", slice[0])
	}

	if g := NewFields().WithError(nil, ErrorTypeInternal); len(g) != 0 {
		t.Errorf("nil error should add nothing: %v", g)
	}
}

func TestMiddlewareCarriesLogger(t *testing.T) {
	var buf bytes.Buffer
	base := New(Config{Level: slog.LevelInfo, Component: ComponentHTTP, Output: &buf})

	var seen *Logger
	h := Middleware(base)(RequestIDMiddleware(func(*http.Request) string { return "req_1" })(
		http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			seen = FromContext(r.Context())
			seen.InfoContext(r.Context(), "inside")
		})))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))

	if seen == nil || seen.Component() != ComponentHTTP {
		t.Fatalf("expected request logger, got %+v", seen)
	}
	if !strings.Contains(buf.String(), "request_id=req_1") {
		t.Errorf("expected request id in output: %s", buf.String())
	}

	if FromContext(context.Background()).Component() != "unknown" {
		t.Error("missing logger should fall back to default")
	}
}

func TestLogComputed(t *testing.T) {
	var buf bytes.Buffer
	l := New(Config{Level: slog.LevelInfo, Component: ComponentWorker, Output: &buf})
	l.LogComputed(context.Background(), "u1", "balance", 3, 12)
	for _, want := range []string{"user_id=u1", "kind=balance", "token=3", "duration_ms=12", "operation=compute"} {
		if !strings.Contains(buf.String(), want) {
			t.Errorf("missing %q in %s", want, buf.String())
		}
	}
}
