package submission

import (
	"context"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"eqboard/internal/audit"
	dErrors "eqboard/pkg/domain-errors"
	"eqboard/pkg/requestcontext"
)

func newTestService(store Store) (*Service, *audit.MemorySink) {
	logger := slog.New(slog.DiscardHandler)
	sink := audit.NewMemorySink()
	return NewService(store, audit.NewPublisher(sink, logger), nil, logger), sink
}

func validIntake() IntakeRequest {
	return IntakeRequest{
		Name:        "Saturating Growth Law",
		Equation:    `z(t)=z_0*(1-e^{-\gamma t})`,
		Description: "Relaxation toward a saturation value at rate gamma.",
		Units:       "OK",
		Theory:      "PASS-WITH-ASSUMPTIONS",
		Assumptions: []string{"gamma constant", "no external forcing"},
		Evidence:    []string{"fit against cooling-curve data"},
	}
}

func TestSubmit(t *testing.T) {
	frozen := time.Date(2026, 9, 1, 12, 0, 0, 0, time.UTC)
	ctx := requestcontext.WithTime(context.Background(), frozen)

	t.Run("accepts a valid submission with date+slug id", func(t *testing.T) {
		svc, sink := newTestService(NewInMemoryStore())

		sub, err := svc.Submit(ctx, validIntake())
		require.NoError(t, err)

		assert.Equal(t, "sub-2026-09-01-saturating-growth-law", sub.ID)
		assert.Equal(t, StatusNeedsReview, sub.Status)
		assert.Equal(t, UnitsOK, sub.Units)
		assert.Equal(t, TheoryPassWithAssumptions, sub.Theory)
		assert.Equal(t, frozen, sub.CreatedAt)

		events := sink.Events()
		require.Len(t, events, 1)
		assert.Equal(t, audit.ActionSubmissionReceived, events[0].Action)
	})

	t.Run("applies defaults for optional fields", func(t *testing.T) {
		svc, _ := newTestService(NewInMemoryStore())

		req := IntakeRequest{
			Name:        "Minimal",
			Equation:    "a=b",
			Description: "Nothing else supplied.",
		}
		sub, err := svc.Submit(ctx, req)
		require.NoError(t, err)

		assert.Equal(t, "unknown", sub.Source)
		assert.Equal(t, "anonymous", sub.Submitter)
		assert.Equal(t, UnitsTBD, sub.Units)
		assert.Equal(t, TheoryTBD, sub.Theory)
		assert.False(t, sub.Animation.Present())
		assert.False(t, sub.Image.Present())
	})

	t.Run("suffixes colliding same-day ids", func(t *testing.T) {
		svc, _ := newTestService(NewInMemoryStore())

		first, err := svc.Submit(ctx, validIntake())
		require.NoError(t, err)
		second, err := svc.Submit(ctx, validIntake())
		require.NoError(t, err)
		third, err := svc.Submit(ctx, validIntake())
		require.NoError(t, err)

		assert.Equal(t, "sub-2026-09-01-saturating-growth-law", first.ID)
		assert.Equal(t, "sub-2026-09-01-saturating-growth-law-2", second.ID)
		assert.Equal(t, "sub-2026-09-01-saturating-growth-law-3", third.ID)
	})

	t.Run("dedupes assumptions and evidence", func(t *testing.T) {
		svc, _ := newTestService(NewInMemoryStore())

		req := validIntake()
		req.Assumptions = []string{"gamma constant", " gamma constant ", "isolated system"}
		req.Evidence = []string{"dataset A", "dataset A"}

		sub, err := svc.Submit(ctx, req)
		require.NoError(t, err)
		assert.Equal(t, []string{"gamma constant", "isolated system"}, sub.Assumptions)
		assert.Equal(t, []string{"dataset A"}, sub.Evidence)
	})

	t.Run("treats planned artifacts as absent", func(t *testing.T) {
		svc, _ := newTestService(NewInMemoryStore())

		req := validIntake()
		req.Animation = "planned"
		req.Image = "diagrams/growth.png"

		sub, err := svc.Submit(ctx, req)
		require.NoError(t, err)
		assert.False(t, sub.Animation.Present())
		assert.True(t, sub.Image.Present())
	})

	t.Run("validation failures never reach the store", func(t *testing.T) {
		tests := []struct {
			name   string
			mutate func(*IntakeRequest)
		}{
			{"missing name", func(r *IntakeRequest) { r.Name = "  " }},
			{"missing equation", func(r *IntakeRequest) { r.Equation = "" }},
			{"missing description", func(r *IntakeRequest) { r.Description = "" }},
			{"name too long", func(r *IntakeRequest) { r.Name = strings.Repeat("x", 201) }},
			{"equation too long", func(r *IntakeRequest) { r.Equation = strings.Repeat("x", 2001) }},
			{"description too long", func(r *IntakeRequest) { r.Description = strings.Repeat("x", 4001) }},
			{"invalid units verdict", func(r *IntakeRequest) { r.Units = "MAYBE" }},
			{"invalid theory verdict", func(r *IntakeRequest) { r.Theory = "PROBABLY" }},
		}

		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				store := NewInMemoryStore()
				svc, _ := newTestService(store)

				req := validIntake()
				tt.mutate(&req)

				_, err := svc.Submit(ctx, req)
				require.Error(t, err)
				assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))

				stored, err := store.List(ctx)
				require.NoError(t, err)
				assert.Empty(t, stored)
			})
		}
	})

	t.Run("moderation hit stores a rejected record and returns the error", func(t *testing.T) {
		store := NewInMemoryStore()
		svc, sink := newTestService(store)

		req := validIntake()
		req.Description = "See <script>alert(1)</script> for details."

		_, err := svc.Submit(ctx, req)
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeModerationBlocked))

		stored, err := store.List(ctx)
		require.NoError(t, err)
		require.Len(t, stored, 1)
		assert.Equal(t, StatusRejected, stored[0].Status)
		assert.Equal(t, "script-injection", stored[0].RejectReason)

		events := sink.Events()
		require.Len(t, events, 1)
		assert.Equal(t, audit.ActionSubmissionRejected, events[0].Action)
		assert.Equal(t, "blocked", events[0].Decision)
	})
}

func TestReject(t *testing.T) {
	ctx := context.Background()

	seed := func(t *testing.T, store Store, status Status) Submission {
		t.Helper()
		sub := Submission{
			ID:        "sub-2026-09-01-seed",
			Name:      "Seed",
			Equation:  "a=b",
			Status:    status,
			CreatedAt: time.Now().UTC(),
		}
		require.NoError(t, store.Create(ctx, sub))
		return sub
	}

	t.Run("rejects a needs-review submission", func(t *testing.T) {
		store := NewInMemoryStore()
		svc, sink := newTestService(store)
		seed(t, store, StatusNeedsReview)

		sub, err := svc.Reject(ctx, "sub-2026-09-01-seed", "duplicate of an existing entry")
		require.NoError(t, err)
		assert.Equal(t, StatusRejected, sub.Status)
		assert.Equal(t, "duplicate of an existing entry", sub.RejectReason)

		events := sink.Events()
		require.Len(t, events, 1)
		assert.Equal(t, audit.ActionSubmissionRejected, events[0].Action)
	})

	t.Run("rejects a scored submission", func(t *testing.T) {
		store := NewInMemoryStore()
		svc, _ := newTestService(store)
		seed(t, store, StatusScored)

		sub, err := svc.Reject(ctx, "sub-2026-09-01-seed", "evidence withdrawn")
		require.NoError(t, err)
		assert.Equal(t, StatusRejected, sub.Status)
	})

	t.Run("re-rejecting is a no-op", func(t *testing.T) {
		store := NewInMemoryStore()
		svc, sink := newTestService(store)
		seed(t, store, StatusRejected)

		sub, err := svc.Reject(ctx, "sub-2026-09-01-seed", "again")
		require.NoError(t, err)
		assert.Equal(t, StatusRejected, sub.Status)
		assert.Empty(t, sink.Events())
	})

	t.Run("promoted submissions cannot be rejected", func(t *testing.T) {
		store := NewInMemoryStore()
		svc, _ := newTestService(store)
		seed(t, store, StatusPromoted)

		_, err := svc.Reject(ctx, "sub-2026-09-01-seed", "too late")
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeConflict))
	})

	t.Run("unknown id", func(t *testing.T) {
		svc, _ := newTestService(NewInMemoryStore())

		_, err := svc.Reject(ctx, "sub-missing", "whatever")
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeNotFound))
	})
}

func TestStatusTransitions(t *testing.T) {
	tests := []struct {
		from    Status
		to      Status
		allowed bool
	}{
		{StatusNeedsReview, StatusNeedsReview, true},
		{StatusNeedsReview, StatusScored, true},
		{StatusNeedsReview, StatusRejected, true},
		{StatusNeedsReview, StatusPromoted, false},
		{StatusScored, StatusPromoted, true},
		{StatusScored, StatusRejected, true},
		{StatusScored, StatusNeedsReview, false},
		{StatusPromoted, StatusRejected, false},
		{StatusPromoted, StatusScored, false},
		{StatusRejected, StatusScored, false},
		{StatusRejected, StatusPromoted, false},
	}

	for _, tt := range tests {
		t.Run(string(tt.from)+"_to_"+string(tt.to), func(t *testing.T) {
			assert.Equal(t, tt.allowed, tt.from.CanTransition(tt.to))
		})
	}
}
