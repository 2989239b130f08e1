// Package registry owns the public ranked board: the equations store and the
// promotion engine that moves eligible submissions onto it.
package registry

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"eqboard/internal/audit"
	"eqboard/internal/platform/metrics"
	"eqboard/internal/submission"
	dErrors "eqboard/pkg/domain-errors"
	"eqboard/pkg/platform/sentinel"
	pstrings "eqboard/pkg/platform/strings"
	"eqboard/pkg/requestcontext"
)

// Policy holds the promotion gate configuration.
type Policy struct {
	// Threshold is T: the blended score a submission needs to promote
	// organically. Deployment-configured, never hardcoded.
	Threshold int
	// AllowDegraded lets heuristic-only scores promote organically. When
	// false a degraded submission needs an operator override.
	AllowDegraded bool
	// Retries bounds transparent compare-and-swap retries before a
	// PromotionConflict surfaces.
	Retries int
}

// PromoteResult identifies the registry entry a promotion produced (or found,
// when the call was a repeat).
type PromoteResult struct {
	EquationID   string `json:"equation_id"`
	Rank         int    `json:"rank"`
	BlendedScore int    `json:"blended_score"`
}

// Service is the promotion engine: the only writer of registry entries.
type Service struct {
	submissions submission.Store
	equations   Store
	policy      Policy
	audit       *audit.Publisher
	metrics     *metrics.Metrics
	logger      *slog.Logger
}

type Option func(*Service)

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

func NewService(submissions submission.Store, equations Store, policy Policy, auditPub *audit.Publisher, logger *slog.Logger, opts ...Option) *Service {
	if policy.Retries < 1 {
		policy.Retries = 1
	}
	s := &Service{
		submissions: submissions,
		equations:   equations,
		policy:      policy,
		audit:       auditPub,
		logger:      logger,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Promote moves a scored submission onto the ranked board. Repeat calls for a
// promoted submission return the existing entry unchanged. Typed failures:
// not_found, not_scored, below_threshold, already_rejected.
func (s *Service) Promote(ctx context.Context, submissionID string, override bool) (PromoteResult, error) {
	for attempt := 0; attempt < s.policy.Retries; attempt++ {
		result, retry, err := s.promoteOnce(ctx, submissionID, override)
		if retry {
			if s.metrics != nil {
				s.metrics.PromotionConflicts.Inc()
			}
			continue
		}
		return result, err
	}
	return PromoteResult{}, dErrors.New(dErrors.CodeConflict, "promotion retries exhausted")
}

func (s *Service) promoteOnce(ctx context.Context, submissionID string, override bool) (PromoteResult, bool, error) {
	sub, err := s.submissions.Get(ctx, submissionID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return PromoteResult{}, false, dErrors.New(dErrors.CodeNotFound, "submission not found")
		}
		return PromoteResult{}, false, fmt.Errorf("get submission: %w", err)
	}

	switch sub.Status {
	case submission.StatusPromoted:
		existing, err := s.equations.GetBySubmission(ctx, submissionID)
		if err != nil {
			return PromoteResult{}, false, fmt.Errorf("get promoted equation: %w", err)
		}
		return PromoteResult{
			EquationID:   existing.EquationID,
			Rank:         existing.Rank,
			BlendedScore: existing.BlendedScore,
		}, false, nil
	case submission.StatusRejected:
		return PromoteResult{}, false, dErrors.New(dErrors.CodeAlreadyRejected,
			"submission was rejected; a new scoring cycle is required")
	case submission.StatusNeedsReview:
		return PromoteResult{}, false, dErrors.New(dErrors.CodeNotScored,
			"submission has not completed scoring")
	}

	if sub.BlendedScore == nil {
		return PromoteResult{}, false, dErrors.New(dErrors.CodeNotScored,
			"submission has no blended score")
	}
	blended := *sub.BlendedScore

	if !override {
		if blended < s.policy.Threshold {
			return PromoteResult{}, false, dErrors.Newf(dErrors.CodeBelowThreshold,
				"blended score %d is below the promotion threshold %d", blended, s.policy.Threshold)
		}
		if sub.ScoringDegraded && !s.policy.AllowDegraded {
			return PromoteResult{}, false, dErrors.New(dErrors.CodeBelowThreshold,
				"heuristic-only score cannot promote organically; an operator override is required")
		}
	}

	now := requestcontext.Now(ctx)
	mode := ModeOrganic
	if override {
		mode = ModeOverride
	}
	entry := Equation{
		EquationID:   equationID(sub),
		SubmissionID: sub.ID,
		Name:         sub.Name,
		BlendedScore: blended,
		Mode:         mode,
		CreatedAt:    sub.CreatedAt,
		PromotedAt:   now,
	}

	baseID := entry.EquationID
	for n := 2; ; n++ {
		err := s.equations.Insert(ctx, entry)
		if err == nil {
			break
		}
		if !errors.Is(err, sentinel.ErrConflict) {
			return PromoteResult{}, false, fmt.Errorf("insert equation: %w", err)
		}
		holder, getErr := s.equations.Get(ctx, entry.EquationID)
		if getErr != nil || holder.SubmissionID == sub.ID {
			// Another worker is promoting this submission; re-read and settle
			// on whatever it produced.
			return PromoteResult{}, true, nil
		}
		// The id is held by a same-slug promotion from another day. Suffix
		// until a free id turns up, the way submission ids are deduped.
		entry.EquationID = fmt.Sprintf("%s-%d", baseID, n)
	}

	expected := sub.Status
	sub.Status = submission.StatusPromoted
	sub.PromotedAt = &now
	sub.EquationID = entry.EquationID
	sub.PromotionOverride = override

	if err := s.submissions.Update(ctx, sub, expected); err != nil {
		// The submission moved under us (a racing rejection or promotion).
		// Unwind our entry and settle against the fresh state.
		if deleteErr := s.equations.Delete(ctx, entry.EquationID); deleteErr != nil {
			s.logger.ErrorContext(ctx, "unwind promoted equation",
				"equation_id", entry.EquationID, "error", deleteErr)
		}
		if errors.Is(err, sentinel.ErrConflict) {
			return PromoteResult{}, true, nil
		}
		return PromoteResult{}, false, fmt.Errorf("promote submission: %w", err)
	}

	if err := s.equations.Rerank(ctx); err != nil {
		return PromoteResult{}, false, fmt.Errorf("rerank equations: %w", err)
	}
	ranked, err := s.equations.Get(ctx, entry.EquationID)
	if err != nil {
		return PromoteResult{}, false, fmt.Errorf("get ranked equation: %w", err)
	}

	if s.metrics != nil {
		s.metrics.Promotions.WithLabelValues(string(mode)).Inc()
	}
	s.emit(ctx, audit.Event{
		Action:       audit.ActionEquationPromoted,
		SubmissionID: sub.ID,
		EquationID:   ranked.EquationID,
		Actor:        requestcontext.Operator(ctx),
		Decision:     string(mode),
		Reason:       fmt.Sprintf("blended %d, rank %d", blended, ranked.Rank),
	})

	return PromoteResult{
		EquationID:   ranked.EquationID,
		Rank:         ranked.Rank,
		BlendedScore: ranked.BlendedScore,
	}, false, nil
}

// List returns the board in rank order.
func (s *Service) List(ctx context.Context) ([]Equation, error) {
	return s.equations.List(ctx)
}

// Get returns one registry entry.
func (s *Service) Get(ctx context.Context, equationID string) (Equation, error) {
	eq, err := s.equations.Get(ctx, equationID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return Equation{}, dErrors.New(dErrors.CodeNotFound, "equation not found")
		}
		return Equation{}, fmt.Errorf("get equation: %w", err)
	}
	return eq, nil
}

// equationID derives the registry id from the submission id, dropping the
// date so the board reads eq-<slug>. The suffix only disambiguates within a
// single day; cross-day collisions are resolved at insert time.
func equationID(sub submission.Submission) string {
	const prefixLen = len("sub-2006-01-02-")
	if strings.HasPrefix(sub.ID, "sub-") && len(sub.ID) > prefixLen {
		return "eq-" + sub.ID[prefixLen:]
	}
	return "eq-" + pstrings.Slug(sub.Name)
}

func (s *Service) emit(ctx context.Context, event audit.Event) {
	if s.audit == nil {
		return
	}
	if err := s.audit.Emit(ctx, event); err != nil {
		s.logger.WarnContext(ctx, "emit audit event", "error", err, "action", event.Action)
	}
}
