package services

import (
	"context"
	"log/slog"

	"golang.org/x/sync/errgroup"
)

// fetchInto runs fn on g and stores its result in dst. A failed fetch is
// logged and leaves dst empty so the computation can continue with what is
// available; only cancellation of ctx fails the group.
func fetchInto[T any](ctx context.Context, g *errgroup.Group, log *slog.Logger, name string, dst *[]T, fn func(context.Context) ([]T, error)) {
	g.Go(func() error {
		items, err := fn(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			log.WarnContext(ctx, "Fetch failed, continuing with empty data", "collection", name, "error", err)
			*dst = nil
			return nil
		}
		*dst = items
		return nil
	})
}
