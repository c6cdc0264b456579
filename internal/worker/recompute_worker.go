package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"valuta/internal/amqp"
	"valuta/internal/core"
	applog "valuta/internal/log"
	"valuta/internal/services"
)

// Computer runs one dashboard computation.
type Computer interface {
	Compute(ctx context.Context, req services.Request) (any, error)
}

// Publisher delivers computed dashboards.
type Publisher interface {
	PublishComputed(ctx context.Context, msg *amqp.DashboardComputed) error
}

// RecomputeWorker turns recompute requests into published dashboards,
// discarding results overtaken by a newer request for the same user and kind.
type RecomputeWorker struct {
	computer  Computer
	publisher Publisher
	latest    *services.Latest[time.Time]
	log       *applog.Logger
}

func NewRecomputeWorker(computer Computer, publisher Publisher, logger *slog.Logger) *RecomputeWorker {
	return &RecomputeWorker{
		computer:  computer,
		publisher: publisher,
		latest:    services.NewLatest[time.Time](),
		log:       applog.FromSlog(logger, applog.ComponentWorker),
	}
}

// HandleRecompute processes a single recompute message from AMQP. Invalid
// requests are dropped; computation and publish failures are returned so the
// message is requeued.
func (w *RecomputeWorker) HandleRecompute(ctx context.Context, msg *amqp.RecomputeRequest) error {
	fields := applog.NewFields().WithComputation(msg.UserID, msg.Kind, msg.Token)
	w.log.InfoContext(ctx, "Processing recompute request", fields.ToSlice()...)

	req, err := toRequest(msg)
	if err != nil {
		w.log.WarnContext(ctx, "Dropping invalid recompute request",
			applog.NewFields().WithComputation(msg.UserID, msg.Kind, msg.Token).
				WithError(err, applog.ErrorTypeValidation).ToSlice()...)
		return nil
	}

	key := msg.Key()
	if _, published, ok := w.latest.Load(key); ok && msg.Token <= published {
		w.log.InfoContext(ctx, "Skipping already published request", applog.FieldKey, key, applog.FieldToken, msg.Token)
		return nil
	}
	if !w.latest.Observe(key, msg.Token) {
		w.log.InfoContext(ctx, "Skipping superseded recompute request", applog.FieldKey, key, applog.FieldToken, msg.Token)
		return nil
	}

	start := time.Now()
	payload, err := w.computer.Compute(ctx, req)
	if err != nil {
		if errors.Is(err, core.ErrValidation) {
			w.log.WarnContext(ctx, "Dropping recompute request", applog.FieldKey, key, applog.FieldError, err)
			return nil
		}
		return fmt.Errorf("compute %s: %w", key, err)
	}
	w.log.LogComputed(ctx, msg.UserID, string(req.Kind), msg.Token, time.Since(start).Milliseconds())

	out, err := amqp.NewDashboardComputed(msg, payload)
	if err != nil {
		return fmt.Errorf("encode %s: %w", key, err)
	}
	// A newer request may have arrived while computing.
	if !w.latest.Observe(key, msg.Token) {
		w.log.InfoContext(ctx, "Discarding stale dashboard", applog.FieldKey, key, applog.FieldToken, msg.Token)
		return nil
	}
	if err := w.publisher.PublishComputed(ctx, out); err != nil {
		return fmt.Errorf("publish %s: %w", key, err)
	}
	w.latest.Offer(key, msg.Token, out.ComputedAt)

	w.log.InfoContext(ctx, "Published recomputed dashboard", applog.FieldKey, key, applog.FieldToken, msg.Token)
	return nil
}

func toRequest(msg *amqp.RecomputeRequest) (services.Request, error) {
	if strings.TrimSpace(msg.UserID) == "" {
		return services.Request{}, &core.ValidationError{Field: "user_id", Reason: "cannot be empty"}
	}
	kind := services.Kind(strings.ToLower(strings.TrimSpace(msg.Kind)))
	if !kind.IsValid() {
		return services.Request{}, &core.ValidationError{Field: "kind", Reason: fmt.Sprintf("unknown kind %q", msg.Kind)}
	}
	req := services.Request{Kind: kind, UserID: msg.UserID, Currency: msg.Currency}

	var err error
	if msg.Month != "" {
		if req.Month, err = core.ParseMonth(msg.Month); err != nil {
			return services.Request{}, err
		}
	}
	if msg.From != "" {
		if req.From, err = core.ParseDate(msg.From); err != nil {
			return services.Request{}, err
		}
	}
	if msg.To != "" {
		if req.To, err = core.ParseDate(msg.To); err != nil {
			return services.Request{}, err
		}
	}
	return req, nil
}
