// Package submission owns intake: validation, moderation, identifier
// allocation, and the submission store that every later pipeline stage
// coordinates through.
package submission

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"eqboard/internal/audit"
	"eqboard/internal/platform/metrics"
	dErrors "eqboard/pkg/domain-errors"
	"eqboard/pkg/platform/sentinel"
	pstrings "eqboard/pkg/platform/strings"
	"eqboard/pkg/requestcontext"
)

const (
	maxNameLen        = 200
	maxEquationLen    = 2000
	maxDescriptionLen = 4000

	// Attempts at allocating a dedupe-suffixed id before giving up.
	maxIDAttempts = 25

	// Compare-and-swap retries before a conflict is surfaced.
	casRetries = 3
)

// IntakeRequest is the external submission schema. Artifact fields carry a
// link, the literal "planned", or nothing.
type IntakeRequest struct {
	Name        string   `json:"name"`
	Equation    string   `json:"equation"`
	Description string   `json:"description"`
	Source      string   `json:"source"`
	Submitter   string   `json:"submitter"`
	Units       string   `json:"units"`
	Theory      string   `json:"theory"`
	Assumptions []string `json:"assumptions"`
	Evidence    []string `json:"evidence"`
	Animation   string   `json:"animation"`
	Image       string   `json:"image"`
}

// Service handles intake and the operator-facing submission operations.
type Service struct {
	store   Store
	audit   *audit.Publisher
	metrics *metrics.Metrics
	logger  *slog.Logger
}

func NewService(store Store, auditPub *audit.Publisher, m *metrics.Metrics, logger *slog.Logger) *Service {
	return &Service{store: store, audit: auditPub, metrics: m, logger: logger}
}

// Submit validates, moderates, and persists a new submission. Validation
// failures are terminal and user-visible; a moderation hit stores the
// submission as rejected and still returns the ModerationBlocked error.
func (s *Service) Submit(ctx context.Context, req IntakeRequest) (Submission, error) {
	now := requestcontext.Now(ctx)

	sub, err := s.prepare(req, now)
	if err != nil {
		s.countRejected("validation")
		return Submission{}, err
	}

	if modErr := CheckModeration(sub); modErr != nil {
		sub.Status = StatusRejected
		sub.RejectReason = moderationReason(modErr)
		if err := s.allocateAndCreate(ctx, &sub, now); err != nil {
			return Submission{}, err
		}
		s.countRejected("moderation")
		s.emit(ctx, audit.Event{
			Action:       audit.ActionSubmissionRejected,
			SubmissionID: sub.ID,
			Decision:     "blocked",
			Reason:       sub.RejectReason,
		})
		return Submission{}, modErr
	}

	if err := s.allocateAndCreate(ctx, &sub, now); err != nil {
		return Submission{}, err
	}
	if s.metrics != nil {
		s.metrics.SubmissionsReceived.Inc()
	}
	s.emit(ctx, audit.Event{
		Action:       audit.ActionSubmissionReceived,
		SubmissionID: sub.ID,
		Actor:        sub.Submitter,
	})
	return sub, nil
}

// Get returns a submission by id.
func (s *Service) Get(ctx context.Context, id string) (Submission, error) {
	sub, err := s.store.Get(ctx, id)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return Submission{}, dErrors.New(dErrors.CodeNotFound, "submission not found")
		}
		return Submission{}, fmt.Errorf("get submission: %w", err)
	}
	return sub, nil
}

// List returns all submissions in creation order.
func (s *Service) List(ctx context.Context) ([]Submission, error) {
	return s.store.List(ctx)
}

// Reject marks a submission rejected. Rejection is terminal; a promoted
// submission cannot be rejected and re-rejecting is a no-op. The write is a
// compare-and-swap, so a rejection racing a scoring cycle wins or retries
// against the fresh state.
func (s *Service) Reject(ctx context.Context, id, reason string) (Submission, error) {
	for attempt := 0; attempt < casRetries; attempt++ {
		sub, err := s.Get(ctx, id)
		if err != nil {
			return Submission{}, err
		}
		if sub.Status == StatusRejected {
			return sub, nil
		}
		if !sub.Status.CanTransition(StatusRejected) {
			return Submission{}, dErrors.New(dErrors.CodeConflict,
				fmt.Sprintf("cannot reject a %s submission", sub.Status))
		}

		expected := sub.Status
		sub.Status = StatusRejected
		sub.RejectReason = reason

		err = s.store.Update(ctx, sub, expected)
		if errors.Is(err, sentinel.ErrConflict) {
			continue
		}
		if err != nil {
			return Submission{}, fmt.Errorf("reject submission: %w", err)
		}

		s.countRejected("operator")
		s.emit(ctx, audit.Event{
			Action:       audit.ActionSubmissionRejected,
			SubmissionID: sub.ID,
			Actor:        requestcontext.Operator(ctx),
			Decision:     "rejected",
			Reason:       reason,
		})
		return sub, nil
	}
	return Submission{}, dErrors.New(dErrors.CodeConflict, "rejection retries exhausted")
}

func (s *Service) prepare(req IntakeRequest, now time.Time) (Submission, error) {
	name := strings.TrimSpace(req.Name)
	equation := strings.TrimSpace(req.Equation)
	description := strings.TrimSpace(req.Description)

	switch {
	case name == "":
		return Submission{}, dErrors.New(dErrors.CodeInvalidInput, "name is required")
	case len(name) > maxNameLen:
		return Submission{}, dErrors.Newf(dErrors.CodeInvalidInput, "name exceeds %d characters", maxNameLen)
	case equation == "":
		return Submission{}, dErrors.New(dErrors.CodeInvalidInput, "equation is required")
	case len(equation) > maxEquationLen:
		return Submission{}, dErrors.Newf(dErrors.CodeInvalidInput, "equation exceeds %d characters", maxEquationLen)
	case description == "":
		return Submission{}, dErrors.New(dErrors.CodeInvalidInput, "description is required")
	case len(description) > maxDescriptionLen:
		return Submission{}, dErrors.Newf(dErrors.CodeInvalidInput, "description exceeds %d characters", maxDescriptionLen)
	}

	units := UnitsVerdict(strings.ToUpper(strings.TrimSpace(req.Units)))
	if units == "" {
		units = UnitsTBD
	}
	if !units.Valid() {
		return Submission{}, dErrors.Newf(dErrors.CodeInvalidInput, "invalid units verdict %q", req.Units)
	}

	theory := TheoryVerdict(strings.ToUpper(strings.TrimSpace(req.Theory)))
	if theory == "" {
		theory = TheoryTBD
	}
	if !theory.Valid() {
		return Submission{}, dErrors.Newf(dErrors.CodeInvalidInput, "invalid theory verdict %q", req.Theory)
	}

	source := strings.TrimSpace(req.Source)
	if source == "" {
		source = "unknown"
	}
	submitter := strings.TrimSpace(req.Submitter)
	if submitter == "" {
		submitter = "anonymous"
	}

	return Submission{
		Name:        name,
		Equation:    equation,
		Description: description,
		Source:      source,
		Submitter:   submitter,
		Units:       units,
		Theory:      theory,
		Assumptions: pstrings.DedupeAndTrim(req.Assumptions),
		Evidence:    pstrings.DedupeAndTrim(req.Evidence),
		Animation:   artifactRef(req.Animation),
		Image:       artifactRef(req.Image),
		Status:      StatusNeedsReview,
		CreatedAt:   now,
	}, nil
}

// allocateAndCreate assigns a date+slug id, appending -2, -3 and so on when a
// same-day submission already claimed the slug.
func (s *Service) allocateAndCreate(ctx context.Context, sub *Submission, now time.Time) error {
	base := fmt.Sprintf("sub-%s-%s", now.UTC().Format("2006-01-02"), pstrings.Slug(sub.Name))
	for attempt := 1; attempt <= maxIDAttempts; attempt++ {
		sub.ID = base
		if attempt > 1 {
			sub.ID = fmt.Sprintf("%s-%d", base, attempt)
		}
		err := s.store.Create(ctx, *sub)
		if errors.Is(err, sentinel.ErrConflict) {
			continue
		}
		if err != nil {
			return fmt.Errorf("create submission: %w", err)
		}
		return nil
	}
	return dErrors.New(dErrors.CodeInternal, "could not allocate a unique submission id")
}

func artifactRef(link string) ArtifactRef {
	link = strings.TrimSpace(link)
	if link == "" || strings.EqualFold(link, "planned") {
		return ArtifactRef{Status: ArtifactPlanned}
	}
	return ArtifactRef{Status: ArtifactLinked, Path: link}
}

func (s *Service) countRejected(reason string) {
	if s.metrics != nil {
		s.metrics.SubmissionsRejected.WithLabelValues(reason).Inc()
	}
}

func (s *Service) emit(ctx context.Context, event audit.Event) {
	if s.audit == nil {
		return
	}
	if err := s.audit.Emit(ctx, event); err != nil {
		s.logger.WarnContext(ctx, "emit audit event", "error", err, "action", event.Action)
	}
}
