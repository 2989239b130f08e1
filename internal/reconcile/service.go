// Package reconcile sweeps the three stores for drift. It reads everything
// and writes nothing; every finding is a flag in a report for someone else
// to act on.
package reconcile

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"eqboard/internal/certificate"
	"eqboard/internal/platform/metrics"
	"eqboard/internal/registry"
	"eqboard/internal/submission"
	"eqboard/pkg/platform/sentinel"
	"eqboard/pkg/requestcontext"
)

// Service runs consistency sweeps and retains the latest report.
type Service struct {
	submissions submission.Store
	equations   registry.Store
	certs       certificate.Store
	threshold   int
	grace       time.Duration
	metrics     *metrics.Metrics
	logger      *slog.Logger

	mu     sync.RWMutex
	latest *Report
}

type Option func(*Service)

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

func NewService(submissions submission.Store, equations registry.Store, certs certificate.Store, threshold int, grace time.Duration, logger *slog.Logger, opts ...Option) *Service {
	s := &Service{
		submissions: submissions,
		equations:   equations,
		certs:       certs,
		threshold:   threshold,
		grace:       grace,
		logger:      logger,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Sweep produces a fresh discrepancy report and retains it as the latest.
func (s *Service) Sweep(ctx context.Context) (Report, error) {
	now := requestcontext.Now(ctx)

	board, err := s.equations.List(ctx)
	if err != nil {
		return Report{}, fmt.Errorf("list equations: %w", err)
	}
	certs, err := s.certs.List(ctx)
	if err != nil {
		return Report{}, fmt.Errorf("list certificates: %w", err)
	}
	subs, err := s.submissions.List(ctx)
	if err != nil {
		return Report{}, fmt.Errorf("list submissions: %w", err)
	}

	report := Report{GeneratedAt: now, Equations: len(board), Flags: []Flag{}}

	registered := make(map[string]bool, len(board))
	for _, eq := range board {
		registered[eq.EquationID] = true
		if _, err := s.certs.Get(ctx, eq.EquationID); err != nil {
			if !errors.Is(err, sentinel.ErrNotFound) {
				return Report{}, fmt.Errorf("get certificate for %s: %w", eq.EquationID, err)
			}
			report.Flags = append(report.Flags, Flag{
				Type:         FlagNeedsCertificate,
				EquationID:   eq.EquationID,
				SubmissionID: eq.SubmissionID,
				Detail:       "promoted equation has no certificate",
			})
		}
	}

	for _, cert := range certs {
		if !registered[cert.EquationID] {
			report.Flags = append(report.Flags, Flag{
				Type:       FlagOrphanCertificate,
				EquationID: cert.EquationID,
				Detail:     "certificate references an equation absent from the registry",
			})
		}
	}

	for _, sub := range subs {
		if stalled(sub, s.threshold, s.grace, now) {
			report.Flags = append(report.Flags, Flag{
				Type:         FlagStalledPromotion,
				SubmissionID: sub.ID,
				Detail: fmt.Sprintf("scored %d >= threshold %d but unpromoted past the grace period",
					*sub.BlendedScore, s.threshold),
			})
		}
	}

	for _, flag := range report.Flags {
		if s.metrics != nil {
			s.metrics.ReconcileFlags.WithLabelValues(string(flag.Type)).Inc()
		}
		s.logger.WarnContext(ctx, "reconciliation flag",
			"type", flag.Type,
			"equation_id", flag.EquationID,
			"submission_id", flag.SubmissionID,
			"detail", flag.Detail,
		)
	}

	s.mu.Lock()
	s.latest = &report
	s.mu.Unlock()
	return report, nil
}

// Latest returns the most recent report, if any sweep has run.
func (s *Service) Latest() (Report, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.latest == nil {
		return Report{}, false
	}
	return *s.latest, true
}

// MissingCertificates feeds the certificate worker from the latest report.
// An empty result before the first sweep is deliberate: the worker acts only
// on observed drift.
func (s *Service) MissingCertificates(_ context.Context) ([]string, error) {
	report, ok := s.Latest()
	if !ok {
		return nil, nil
	}
	var out []string
	for _, flag := range report.Flags {
		if flag.Type == FlagNeedsCertificate {
			out = append(out, flag.EquationID)
		}
	}
	return out, nil
}

func stalled(sub submission.Submission, threshold int, grace time.Duration, now time.Time) bool {
	if sub.Status != submission.StatusScored {
		return false
	}
	if sub.BlendedScore == nil || *sub.BlendedScore < threshold {
		return false
	}
	if sub.ScoredAt == nil {
		return false
	}
	return now.Sub(*sub.ScoredAt) > grace
}
