package http

import (
	"context"
	"fmt"
	"net/http"
	"sort"
	"strings"
	"time"

	"valuta/internal/amqp"
	"valuta/internal/core"
	applog "valuta/internal/log"
	"valuta/internal/services"
)

// handleHealth performs basic liveness check
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	NewJSONResponse().Data(map[string]any{
		"status":    "ok",
		"timestamp": time.Now().Format(time.RFC3339),
		"uptime":    time.Since(s.startedAt).Round(time.Second).String(),
	}).Write(w)
}

// handleReady performs readiness check with dependency verification
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	status := "ready"
	httpStatus := http.StatusOK
	checks := make(map[string]any)

	if s.dashboard == nil {
		checks["dashboard"] = "not_configured"
		status, httpStatus = "not_ready", http.StatusServiceUnavailable
	} else {
		checks["dashboard"] = "ok"
	}

	names := make([]string, 0, len(s.ready))
	for name := range s.ready {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		if err := s.ready[name].Ping(ctx); err != nil {
			checks[name] = fmt.Sprintf("failed: %v", err)
			status, httpStatus = "not_ready", http.StatusServiceUnavailable
			continue
		}
		checks[name] = "ok"
	}

	checks["rate_limiter"] = map[string]any{
		"active_clients": s.rateLimiter.ActiveClients(),
		"status":         "ok",
	}

	NewJSONResponse().Status(httpStatus).Data(map[string]any{
		"status":    status,
		"timestamp": time.Now().Format(time.RFC3339),
		"checks":    checks,
	}).Write(w)
}

// handleMetrics provides request and rate limit counters in plain text format
func (s *Server) handleMetrics(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")

	traceMetrics := s.traceMiddleware.GetMetrics()
	rateLimitMetrics := s.rateLimiter.GetMetrics()
	uptime := time.Since(s.startedAt)

	w.WriteHeader(http.StatusOK)

	fmt.Fprintf(w, "# HELP http_requests_total Total number of HTTP requests\n")
	fmt.Fprintf(w, "# TYPE http_requests_total counter\n")
	fmt.Fprintf(w, "http_requests_total %d\n\n", traceMetrics.TotalRequests)

	fmt.Fprintf(w, "# HELP http_requests_failed_total Requests answered with a 5xx status\n")
	fmt.Fprintf(w, "# TYPE http_requests_failed_total counter\n")
	fmt.Fprintf(w, "http_requests_failed_total %d\n\n", traceMetrics.FailedRequests)

	fmt.Fprintf(w, "# HELP http_request_duration_avg_ms Average request duration\n")
	fmt.Fprintf(w, "# TYPE http_request_duration_avg_ms gauge\n")
	fmt.Fprintf(w, "http_request_duration_avg_ms %d\n\n", traceMetrics.AverageResponseTime().Milliseconds())

	fmt.Fprintf(w, "# HELP rate_limit_rejected_total Requests rejected by the rate limiter\n")
	fmt.Fprintf(w, "# TYPE rate_limit_rejected_total counter\n")
	fmt.Fprintf(w, "rate_limit_rejected_total %d\n\n", rateLimitMetrics.Rejected)

	fmt.Fprintf(w, "# HELP active_rate_limit_clients Currently tracked rate limit clients\n")
	fmt.Fprintf(w, "# TYPE active_rate_limit_clients gauge\n")
	fmt.Fprintf(w, "active_rate_limit_clients %d\n\n", rateLimitMetrics.ClientCount)

	fmt.Fprintf(w, "# HELP uptime_seconds Application uptime in seconds\n")
	fmt.Fprintf(w, "# TYPE uptime_seconds gauge\n")
	fmt.Fprintf(w, "uptime_seconds %.0f\n", uptime.Seconds())
}

func (s *Server) handleBudgets(w http.ResponseWriter, r *http.Request) {
	if resp := RequireGET(r); resp != nil {
		resp.Write(w)
		return
	}
	q := r.URL.Query()
	user, err := ParseUserParam(q, s.defaultUser)
	if err != nil {
		writeError(w, r, applog.OpValidate, err)
		return
	}
	month, err := ParseMonthParam(q, s.today())
	if err != nil {
		writeError(w, r, applog.OpParse, err)
		return
	}
	display, err := ParseCurrencyParam(q, "currency")
	if err != nil {
		writeError(w, r, applog.OpParse, err)
		return
	}

	view, err := s.dashboard.Budgets(r.Context(), user, month, display)
	if err != nil {
		writeError(w, r, applog.OpCompute, err)
		return
	}
	NewJSONResponse().Data(view).Write(w)
}

func (s *Server) handleInvestments(w http.ResponseWriter, r *http.Request) {
	if resp := RequireGET(r); resp != nil {
		resp.Write(w)
		return
	}
	q := r.URL.Query()
	user, err := ParseUserParam(q, s.defaultUser)
	if err != nil {
		writeError(w, r, applog.OpValidate, err)
		return
	}
	display, err := ParseCurrencyParam(q, "currency")
	if err != nil {
		writeError(w, r, applog.OpParse, err)
		return
	}

	view, err := s.dashboard.Investments(r.Context(), user, display)
	if err != nil {
		writeError(w, r, applog.OpCompute, err)
		return
	}
	NewJSONResponse().Data(view).Write(w)
}

func (s *Server) handleBalance(w http.ResponseWriter, r *http.Request) {
	if resp := RequireGET(r); resp != nil {
		resp.Write(w)
		return
	}
	q := r.URL.Query()
	user, err := ParseUserParam(q, s.defaultUser)
	if err != nil {
		writeError(w, r, applog.OpValidate, err)
		return
	}
	from, to, err := ParseRangeParams(q, s.today())
	if err != nil {
		writeError(w, r, applog.OpParse, err)
		return
	}
	display, err := ParseCurrencyParam(q, "currency")
	if err != nil {
		writeError(w, r, applog.OpParse, err)
		return
	}

	view, err := s.dashboard.Balance(r.Context(), user, from, to, display)
	if err != nil {
		writeError(w, r, applog.OpCompute, err)
		return
	}
	NewJSONResponse().Data(view).Write(w)
}

func (s *Server) handleConvert(w http.ResponseWriter, r *http.Request) {
	if resp := RequireGET(r); resp != nil {
		resp.Write(w)
		return
	}
	q := r.URL.Query()
	amount, err := ParseAmountParam(q, "amount")
	if err != nil {
		writeError(w, r, applog.OpParse, err)
		return
	}
	from, err := ParseRequiredCurrency(q, "from")
	if err != nil {
		writeError(w, r, applog.OpParse, err)
		return
	}
	to, err := ParseRequiredCurrency(q, "to")
	if err != nil {
		writeError(w, r, applog.OpParse, err)
		return
	}
	on, err := ParseDateParam(q, "date")
	if err != nil {
		writeError(w, r, applog.OpParse, err)
		return
	}

	p, err := s.dashboard.Convert(r.Context(), amount, from, to, on)
	if err != nil {
		writeError(w, r, applog.OpConvert, err)
		return
	}
	NewJSONResponse().Data(p).Write(w)
}

// handleRecompute queues an asynchronous recompute and answers with the token
// the computed result will carry.
func (s *Server) handleRecompute(w http.ResponseWriter, r *http.Request) {
	if resp := RequireMethod(r, http.MethodPost); resp != nil {
		resp.Write(w)
		return
	}
	if s.queue == nil {
		ErrorResponse(http.StatusServiceUnavailable, applog.ErrorTypeConfiguration, "recompute queue not configured").Write(w)
		return
	}

	q := r.URL.Query()
	user, err := ParseUserParam(q, s.defaultUser)
	if err != nil {
		writeError(w, r, applog.OpValidate, err)
		return
	}
	kind := services.Kind(strings.ToLower(sanitizeInput(q.Get("kind"))))
	if !kind.IsValid() {
		writeError(w, r, applog.OpValidate, &core.ValidationError{Field: "kind", Reason: "must be budgets, investments or balance"})
		return
	}
	display, err := ParseCurrencyParam(q, "currency")
	if err != nil {
		writeError(w, r, applog.OpParse, err)
		return
	}

	msg := &amqp.RecomputeRequest{
		UserID:    user,
		Kind:      string(kind),
		Currency:  display,
		Token:     s.tokens.Next(),
		Timestamp: time.Now(),
	}
	switch kind {
	case services.KindBudgets:
		month, err := ParseMonthParam(q, s.today())
		if err != nil {
			writeError(w, r, applog.OpParse, err)
			return
		}
		msg.Month = month.String()[:7]
	case services.KindBalance:
		from, to, err := ParseRangeParams(q, s.today())
		if err != nil {
			writeError(w, r, applog.OpParse, err)
			return
		}
		msg.From, msg.To = from.String(), to.String()
	}

	if err := s.queue.PublishRecompute(r.Context(), msg); err != nil {
		applog.FromContext(r.Context()).LogError(r.Context(), "Failed to queue recompute", err,
			applog.ErrorTypeNetwork, applog.OpPublish, applog.NewFields().WithComputation(user, msg.Kind, msg.Token))
		ErrorResponse(http.StatusServiceUnavailable, applog.ErrorTypeNetwork, "recompute queue unavailable").Write(w)
		return
	}

	applog.FromContext(r.Context()).InfoContext(r.Context(), "Recompute queued",
		applog.NewFields().WithComputation(user, msg.Kind, msg.Token).ToSlice()...)
	NewJSONResponse().Status(http.StatusAccepted).Data(map[string]any{
		"kind":  msg.Kind,
		"user":  user,
		"token": msg.Token,
	}).Write(w)
}
