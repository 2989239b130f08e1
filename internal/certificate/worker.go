package certificate

import (
	"context"
	"log/slog"
	"time"
)

// MissingCertificateSource reports promoted equations that have no
// certificate yet, so the worker can issue them before publishing.
type MissingCertificateSource interface {
	MissingCertificates(ctx context.Context) ([]string, error)
}

const (
	initialBackoff = 30 * time.Second
	maxBackoff     = 30 * time.Minute
)

// Worker retries unmined certificate publishes in the background with
// exponential backoff, and issues certificates the reconciler flags as
// missing. One worker runs per process; the store's compare-and-swap
// makes extra replicas harmless.
type Worker struct {
	service  *Service
	missing  MissingCertificateSource
	interval time.Duration
	logger   *slog.Logger
}

func NewWorker(service *Service, missing MissingCertificateSource, interval time.Duration, logger *slog.Logger) *Worker {
	return &Worker{service: service, missing: missing, interval: interval, logger: logger}
}

// Run sweeps until the context is cancelled.
func (w *Worker) Run(ctx context.Context) {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			w.Sweep(ctx)
		}
	}
}

// Sweep performs one pass: issue certificates for newly flagged equations,
// then retry every unmined certificate that is due.
func (w *Worker) Sweep(ctx context.Context) {
	w.issueMissing(ctx)

	unmined, err := w.service.certs.ListUnmined(ctx)
	if err != nil {
		w.logger.ErrorContext(ctx, "list unmined certificates", "error", err)
		return
	}

	now := time.Now()
	for _, cert := range unmined {
		if cert.Attempts >= w.service.retryBudget {
			continue
		}
		if !due(cert, now) {
			continue
		}
		// The probe flag lets exactly one call through an open circuit per
		// sweep, which is what eventually closes it again.
		if _, err := w.service.publish(ctx, cert, true); err != nil {
			w.logger.WarnContext(ctx, "retry certificate publish",
				"equation_id", cert.EquationID, "attempts", cert.Attempts+1, "error", err)
		}
		if w.service.breaker.IsOpen() {
			return
		}
	}
}

func (w *Worker) issueMissing(ctx context.Context) {
	if w.missing == nil {
		return
	}
	equationIDs, err := w.missing.MissingCertificates(ctx)
	if err != nil {
		w.logger.ErrorContext(ctx, "list equations missing certificates", "error", err)
		return
	}
	for _, equationID := range equationIDs {
		if _, err := w.service.Issue(ctx, equationID); err != nil {
			w.logger.WarnContext(ctx, "issue missing certificate",
				"equation_id", equationID, "error", err)
		}
	}
}

// due reports whether the backoff window since the last attempt has elapsed.
// The window doubles per attempt from initialBackoff up to maxBackoff.
func due(cert Certificate, now time.Time) bool {
	if cert.Attempts == 0 || cert.LastAttemptAt == nil {
		return true
	}
	shift := cert.Attempts - 1
	if shift > 6 {
		shift = 6
	}
	backoff := initialBackoff << shift
	if backoff > maxBackoff {
		backoff = maxBackoff
	}
	return now.Sub(*cert.LastAttemptAt) >= backoff
}
