package scoring

import (
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"eqboard/internal/audit"
	"eqboard/internal/submission"
	dErrors "eqboard/pkg/domain-errors"
)

type fakeJudge struct {
	score func(ctx context.Context, sub submission.Submission) (*AdvisoryResult, error)
}

func (f *fakeJudge) Score(ctx context.Context, sub submission.Submission) (*AdvisoryResult, error) {
	return f.score(ctx, sub)
}

func fixedJudge(total int) *fakeJudge {
	per := total / 5
	return &fakeJudge{score: func(context.Context, submission.Submission) (*AdvisoryResult, error) {
		return &AdvisoryResult{
			Tractability: per, Plausibility: per, Validation: per,
			Artifacts: per, Novelty: per,
			Total:     per * 5,
			Rationale: "steady verdict",
		}, nil
	}}
}

func seedSubmission(t *testing.T, store submission.Store, status submission.Status) submission.Submission {
	t.Helper()
	sub := referenceSubmission()
	sub.Status = status
	sub.CreatedAt = time.Date(2026, 9, 1, 8, 0, 0, 0, time.UTC)
	require.NoError(t, store.Create(context.Background(), sub))
	return sub
}

func newScoringService(store submission.Store, threshold int, opts ...Option) *Service {
	logger := slog.New(slog.DiscardHandler)
	publisher := audit.NewPublisher(audit.NewMemorySink(), logger)
	return NewService(store, DefaultWeights, threshold, publisher, logger, opts...)
}

func TestScore(t *testing.T) {
	ctx := context.Background()

	t.Run("eligible submission transitions to scored", func(t *testing.T) {
		store := submission.NewInMemoryStore()
		sub := seedSubmission(t, store, submission.StatusNeedsReview)
		svc := newScoringService(store, 65, WithJudge(fixedJudge(90)))

		result, err := svc.Score(ctx, sub.ID)
		require.NoError(t, err)

		assert.Equal(t, 69, result.Heuristic.Total)
		require.NotNil(t, result.Advisory)
		assert.Equal(t, 90, result.Advisory.Total)
		assert.Equal(t, 82, result.Blended) // 0.4*69 + 0.6*90 = 81.6
		assert.False(t, result.Degraded)
		assert.True(t, result.Eligible)

		stored, err := store.Get(ctx, sub.ID)
		require.NoError(t, err)
		assert.Equal(t, submission.StatusScored, stored.Status)
		require.NotNil(t, stored.BlendedScore)
		assert.Equal(t, 82, *stored.BlendedScore)
		assert.NotNil(t, stored.ScoredAt)
		assert.Equal(t, "steady verdict", stored.AdvisoryRationale)
	})

	t.Run("below threshold stays in needs-review with scores recorded", func(t *testing.T) {
		store := submission.NewInMemoryStore()
		sub := seedSubmission(t, store, submission.StatusNeedsReview)
		svc := newScoringService(store, 95, WithJudge(fixedJudge(90)))

		result, err := svc.Score(ctx, sub.ID)
		require.NoError(t, err)
		assert.False(t, result.Eligible)

		stored, err := store.Get(ctx, sub.ID)
		require.NoError(t, err)
		assert.Equal(t, submission.StatusNeedsReview, stored.Status)
		require.NotNil(t, stored.BlendedScore)
	})

	t.Run("held submission can be re-scored after evidence is added", func(t *testing.T) {
		store := submission.NewInMemoryStore()
		sub := seedSubmission(t, store, submission.StatusNeedsReview)
		svc := newScoringService(store, 75, WithJudge(fixedJudge(75)))

		first, err := svc.Score(ctx, sub.ID)
		require.NoError(t, err)
		require.False(t, first.Eligible) // 0.4*69 + 0.6*75 = 72.6 → 73

		stored, err := store.Get(ctx, sub.ID)
		require.NoError(t, err)
		stored.Evidence = append(stored.Evidence, "replication dataset", "independent fit")
		require.NoError(t, store.Update(ctx, stored, submission.StatusNeedsReview))

		second, err := svc.Score(ctx, sub.ID)
		require.NoError(t, err)
		assert.Greater(t, second.Blended, first.Blended)
	})

	t.Run("no judge degrades to heuristic-only", func(t *testing.T) {
		store := submission.NewInMemoryStore()
		sub := seedSubmission(t, store, submission.StatusNeedsReview)
		svc := newScoringService(store, 65)

		result, err := svc.Score(ctx, sub.ID)
		require.NoError(t, err)

		assert.Nil(t, result.Advisory)
		assert.Equal(t, result.Heuristic.Total, result.Blended)
		assert.True(t, result.Degraded)
		assert.True(t, result.Eligible)

		stored, err := store.Get(ctx, sub.ID)
		require.NoError(t, err)
		assert.True(t, stored.ScoringDegraded)
		assert.Nil(t, stored.AdvisoryScore)
	})

	t.Run("judge failure degrades instead of erroring", func(t *testing.T) {
		store := submission.NewInMemoryStore()
		sub := seedSubmission(t, store, submission.StatusNeedsReview)
		failing := &fakeJudge{score: func(context.Context, submission.Submission) (*AdvisoryResult, error) {
			return nil, errors.New("upstream 503")
		}}
		svc := newScoringService(store, 65, WithJudge(failing))

		result, err := svc.Score(ctx, sub.ID)
		require.NoError(t, err)
		assert.True(t, result.Degraded)
		assert.Equal(t, result.Heuristic.Total, result.Blended)
	})

	t.Run("rejection landing mid-flight discards the result", func(t *testing.T) {
		store := submission.NewInMemoryStore()
		sub := seedSubmission(t, store, submission.StatusNeedsReview)

		// The judge call is the suspension point; reject during it.
		racing := &fakeJudge{score: func(ctx context.Context, judged submission.Submission) (*AdvisoryResult, error) {
			current, err := store.Get(ctx, judged.ID)
			if err != nil {
				return nil, err
			}
			current.Status = submission.StatusRejected
			current.RejectReason = "withdrawn by submitter"
			if err := store.Update(ctx, current, submission.StatusNeedsReview); err != nil {
				return nil, err
			}
			return &AdvisoryResult{Tractability: 18, Plausibility: 18, Validation: 18, Artifacts: 18, Novelty: 18, Total: 90}, nil
		}}
		svc := newScoringService(store, 65, WithJudge(racing))

		_, err := svc.Score(ctx, sub.ID)
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeConflict))

		stored, err := store.Get(ctx, sub.ID)
		require.NoError(t, err)
		assert.Equal(t, submission.StatusRejected, stored.Status)
		assert.Nil(t, stored.BlendedScore)
	})

	t.Run("unknown submission", func(t *testing.T) {
		svc := newScoringService(submission.NewInMemoryStore(), 65)

		_, err := svc.Score(ctx, "sub-missing")
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeNotFound))
	})

	t.Run("terminal statuses cannot be scored", func(t *testing.T) {
		for _, status := range []submission.Status{submission.StatusScored, submission.StatusPromoted, submission.StatusRejected} {
			t.Run(string(status), func(t *testing.T) {
				store := submission.NewInMemoryStore()
				sub := seedSubmission(t, store, status)
				svc := newScoringService(store, 65)

				_, err := svc.Score(ctx, sub.ID)
				require.Error(t, err)
				assert.True(t, dErrors.HasCode(err, dErrors.CodeConflict))
			})
		}
	})
}
