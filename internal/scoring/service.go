// Package scoring runs the two-layer rubric: the deterministic heuristic
// scorer and the advisory judge, blended into the score that gates promotion.
package scoring

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"eqboard/internal/audit"
	"eqboard/internal/platform/metrics"
	"eqboard/internal/submission"
	dErrors "eqboard/pkg/domain-errors"
	"eqboard/pkg/platform/sentinel"
	"eqboard/pkg/requestcontext"
)

// Result is the outcome of one scoring cycle.
type Result struct {
	SubmissionID string          `json:"submission_id"`
	Heuristic    Breakdown       `json:"heuristic"`
	Advisory     *AdvisoryResult `json:"advisory,omitempty"`
	Blended      int             `json:"blended"`
	Degraded     bool            `json:"degraded"`
	Eligible     bool            `json:"eligible"`
	Threshold    int             `json:"threshold"`
}

// Service orchestrates scoring cycles against the submission store.
type Service struct {
	store     submission.Store
	judge     Judge
	weights   Weights
	threshold int
	audit     *audit.Publisher
	metrics   *metrics.Metrics
	logger    *slog.Logger
	tracer    trace.Tracer
}

// Option configures optional service collaborators.
type Option func(*Service)

// WithJudge attaches the advisory judge. Without one every cycle is degraded.
func WithJudge(judge Judge) Option {
	return func(s *Service) { s.judge = judge }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

func NewService(store submission.Store, weights Weights, threshold int, auditPub *audit.Publisher, logger *slog.Logger, opts ...Option) *Service {
	s := &Service{
		store:     store,
		weights:   weights,
		threshold: threshold,
		audit:     auditPub,
		logger:    logger,
		tracer:    otel.Tracer("eqboard/scoring"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Score runs one cycle for the submission: heuristic and advisory layers in
// parallel, blend, gate, compare-and-swap write. A submission that was
// rejected while the cycle was in flight fails the swap and the result is
// discarded.
func (s *Service) Score(ctx context.Context, id string) (Result, error) {
	ctx, span := s.tracer.Start(ctx, "scoring.Score")
	defer span.End()

	sub, err := s.store.Get(ctx, id)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return Result{}, dErrors.New(dErrors.CodeNotFound, "submission not found")
		}
		return Result{}, fmt.Errorf("get submission: %w", err)
	}
	if sub.Status != submission.StatusNeedsReview {
		return Result{}, dErrors.Newf(dErrors.CodeConflict, "cannot score a %s submission", sub.Status)
	}
	expected := sub.Status

	var (
		breakdown Breakdown
		advisory  *AdvisoryResult
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		_, hspan := s.tracer.Start(gctx, "scoring.heuristic")
		defer hspan.End()
		b, err := ScoreHeuristic(sub)
		if err != nil {
			return err
		}
		breakdown = b
		return nil
	})
	g.Go(func() error {
		advisory = s.adviseScore(gctx, sub)
		return nil
	})
	if err := g.Wait(); err != nil {
		return Result{}, err
	}

	var advisoryTotal *int
	if advisory != nil {
		advisoryTotal = &advisory.Total
	}
	blended, degraded := Blend(breakdown.Total, advisoryTotal, s.weights)
	eligible := blended >= s.threshold

	now := requestcontext.Now(ctx)
	sub.HeuristicScore = breakdown.Total
	sub.AdvisoryScore = advisoryTotal
	sub.BlendedScore = &blended
	sub.ScoringDegraded = degraded
	sub.ScoredAt = &now
	if advisory != nil {
		sub.AdvisoryRationale = advisory.Rationale
	}
	if eligible {
		sub.Status = submission.StatusScored
	}

	if err := s.store.Update(ctx, sub, expected); err != nil {
		if errors.Is(err, sentinel.ErrConflict) {
			s.logger.InfoContext(ctx, "scoring result discarded, submission state changed",
				"submission_id", id)
			return Result{}, dErrors.New(dErrors.CodeConflict, "submission state changed during scoring")
		}
		return Result{}, fmt.Errorf("store scoring result: %w", err)
	}

	if s.metrics != nil {
		s.metrics.SubmissionsScored.Inc()
		if degraded {
			s.metrics.ScoringDegraded.Inc()
		}
	}
	s.emit(ctx, audit.Event{
		Action:       audit.ActionSubmissionScored,
		SubmissionID: id,
		Decision:     gateDecision(eligible),
		Reason:       "blended " + strconv.Itoa(blended) + " against threshold " + strconv.Itoa(s.threshold),
	})

	return Result{
		SubmissionID: id,
		Heuristic:    breakdown,
		Advisory:     advisory,
		Blended:      blended,
		Degraded:     degraded,
		Eligible:     eligible,
		Threshold:    s.threshold,
	}, nil
}

// adviseScore consults the judge. Every failure mode degrades to a nil
// advisory score; none of them is an error for the cycle.
func (s *Service) adviseScore(ctx context.Context, sub submission.Submission) *AdvisoryResult {
	if s.judge == nil {
		return nil
	}
	ctx, span := s.tracer.Start(ctx, "scoring.advisory")
	defer span.End()

	start := time.Now()
	result, err := s.judge.Score(ctx, sub)
	if s.metrics != nil {
		s.metrics.ObserveJudgeLatency(time.Since(start))
	}
	if err != nil {
		kind := "unavailable"
		switch {
		case errors.Is(err, context.DeadlineExceeded):
			kind = "timeout"
		case errors.Is(err, ErrMalformedOutput):
			kind = "malformed"
		}
		if s.metrics != nil {
			s.metrics.JudgeFailures.WithLabelValues(kind).Inc()
		}
		s.logger.WarnContext(ctx, "advisory judge unavailable",
			"submission_id", sub.ID, "kind", kind, "error", err)
		return nil
	}
	return result
}

func gateDecision(eligible bool) string {
	if eligible {
		return "eligible"
	}
	return "held"
}

func (s *Service) emit(ctx context.Context, event audit.Event) {
	if s.audit == nil {
		return
	}
	if err := s.audit.Emit(ctx, event); err != nil {
		s.logger.WarnContext(ctx, "emit audit event", "error", err, "action", event.Action)
	}
}
