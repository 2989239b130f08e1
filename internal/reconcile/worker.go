package reconcile

import (
	"context"
	"log/slog"
	"time"
)

// Worker runs the sweep on a fixed interval.
type Worker struct {
	service  *Service
	interval time.Duration
	logger   *slog.Logger
}

func NewWorker(service *Service, interval time.Duration, logger *slog.Logger) *Worker {
	return &Worker{service: service, interval: interval, logger: logger}
}

// Run sweeps until the context is cancelled. The first sweep happens
// immediately so the report endpoint has data soon after boot.
func (w *Worker) Run(ctx context.Context) {
	if _, err := w.service.Sweep(ctx); err != nil {
		w.logger.ErrorContext(ctx, "reconciliation sweep", "error", err)
	}

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := w.service.Sweep(ctx); err != nil {
				w.logger.ErrorContext(ctx, "reconciliation sweep", "error", err)
			}
		}
	}
}
