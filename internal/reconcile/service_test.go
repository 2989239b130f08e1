package reconcile

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"eqboard/internal/certificate"
	"eqboard/internal/registry"
	"eqboard/internal/submission"
	"eqboard/pkg/requestcontext"
)

type fixture struct {
	service *Service
	subs    *submission.InMemoryStore
	eqs     *registry.InMemoryStore
	certs   *certificate.InMemoryStore
}

func newFixture() *fixture {
	f := &fixture{
		subs:  submission.NewInMemoryStore(),
		eqs:   registry.NewInMemoryStore(),
		certs: certificate.NewInMemoryStore(),
	}
	f.service = NewService(f.subs, f.eqs, f.certs, 65, time.Hour,
		slog.New(slog.DiscardHandler))
	return f
}

func (f *fixture) seedPromoted(t *testing.T, equationID string, withCert bool) {
	t.Helper()
	ctx := context.Background()
	blended := 82
	submissionID := "sub-2026-09-01-" + equationID
	now := time.Date(2026, 9, 1, 9, 0, 0, 0, time.UTC)
	require.NoError(t, f.subs.Create(ctx, submission.Submission{
		ID:           submissionID,
		Name:         equationID,
		Equation:     "a=b",
		Status:       submission.StatusPromoted,
		BlendedScore: &blended,
		EquationID:   equationID,
		CreatedAt:    now,
		PromotedAt:   &now,
	}))
	require.NoError(t, f.eqs.Insert(ctx, registry.Equation{
		EquationID:   equationID,
		SubmissionID: submissionID,
		Name:         equationID,
		BlendedScore: blended,
		Mode:         registry.ModeOrganic,
		CreatedAt:    now,
		PromotedAt:   now,
	}))
	if withCert {
		require.NoError(t, f.certs.Create(ctx, certificate.Certificate{
			EquationID:   equationID,
			ContentHash:  "hash-" + equationID,
			Signature:    "sig",
			PublishState: certificate.StatePending,
			IssuedAt:     now,
		}))
	}
}

func TestSweep(t *testing.T) {
	ctx := context.Background()

	t.Run("clean stores produce an empty report", func(t *testing.T) {
		f := newFixture()
		f.seedPromoted(t, "eq-certified", true)

		report, err := f.service.Sweep(ctx)
		require.NoError(t, err)

		assert.Equal(t, 1, report.Equations)
		assert.Empty(t, report.Flags)
	})

	t.Run("promoted equation without certificate gets exactly one flag", func(t *testing.T) {
		f := newFixture()
		f.seedPromoted(t, "eq-uncertified", false)

		report, err := f.service.Sweep(ctx)
		require.NoError(t, err)

		require.Len(t, report.Flags, 1)
		assert.Equal(t, FlagNeedsCertificate, report.Flags[0].Type)
		assert.Equal(t, "eq-uncertified", report.Flags[0].EquationID)

		// The sweep observed, it did not fix.
		_, err = f.certs.Get(ctx, "eq-uncertified")
		require.Error(t, err)
		board, err := f.eqs.List(ctx)
		require.NoError(t, err)
		assert.Len(t, board, 1)
	})

	t.Run("certificate without registry entry is an orphan", func(t *testing.T) {
		f := newFixture()
		require.NoError(t, f.certs.Create(ctx, certificate.Certificate{
			EquationID:   "eq-ghost",
			ContentHash:  "hash",
			Signature:    "sig",
			PublishState: certificate.StateMined,
			IssuedAt:     time.Now(),
		}))

		report, err := f.service.Sweep(ctx)
		require.NoError(t, err)

		require.Len(t, report.Flags, 1)
		assert.Equal(t, FlagOrphanCertificate, report.Flags[0].Type)
		assert.Equal(t, "eq-ghost", report.Flags[0].EquationID)
	})

	t.Run("eligible scored submission past the grace period has stalled", func(t *testing.T) {
		f := newFixture()
		blended := 70
		scoredAt := time.Date(2026, 9, 1, 6, 0, 0, 0, time.UTC)
		require.NoError(t, f.subs.Create(ctx, submission.Submission{
			ID:           "sub-2026-09-01-stuck",
			Name:         "Stuck",
			Equation:     "a=b",
			Status:       submission.StatusScored,
			BlendedScore: &blended,
			CreatedAt:    scoredAt,
			ScoredAt:     &scoredAt,
		}))

		now := scoredAt.Add(2 * time.Hour)
		report, err := f.service.Sweep(requestcontext.WithTime(ctx, now))
		require.NoError(t, err)

		require.Len(t, report.Flags, 1)
		assert.Equal(t, FlagStalledPromotion, report.Flags[0].Type)
		assert.Equal(t, "sub-2026-09-01-stuck", report.Flags[0].SubmissionID)
	})

	t.Run("submissions inside the grace period or below threshold are fine", func(t *testing.T) {
		f := newFixture()
		scoredAt := time.Date(2026, 9, 1, 6, 0, 0, 0, time.UTC)
		fresh := 70
		weak := 50
		require.NoError(t, f.subs.Create(ctx, submission.Submission{
			ID: "sub-2026-09-01-fresh", Name: "Fresh", Equation: "a=b",
			Status: submission.StatusScored, BlendedScore: &fresh,
			CreatedAt: scoredAt, ScoredAt: &scoredAt,
		}))
		require.NoError(t, f.subs.Create(ctx, submission.Submission{
			ID: "sub-2026-09-01-weak", Name: "Weak", Equation: "a=b",
			Status: submission.StatusScored, BlendedScore: &weak,
			CreatedAt: scoredAt, ScoredAt: &scoredAt,
		}))

		report, err := f.service.Sweep(requestcontext.WithTime(ctx, scoredAt.Add(30*time.Minute)))
		require.NoError(t, err)
		assert.Empty(t, report.Flags)
	})

	t.Run("latest report is retained", func(t *testing.T) {
		f := newFixture()

		_, ok := f.service.Latest()
		assert.False(t, ok)

		swept, err := f.service.Sweep(ctx)
		require.NoError(t, err)

		latest, ok := f.service.Latest()
		require.True(t, ok)
		assert.Equal(t, swept, latest)
	})
}

func TestMissingCertificates(t *testing.T) {
	ctx := context.Background()

	t.Run("empty before the first sweep", func(t *testing.T) {
		f := newFixture()
		ids, err := f.service.MissingCertificates(ctx)
		require.NoError(t, err)
		assert.Empty(t, ids)
	})

	t.Run("lists flagged equations from the latest report", func(t *testing.T) {
		f := newFixture()
		f.seedPromoted(t, "eq-certified", true)
		f.seedPromoted(t, "eq-uncertified", false)

		_, err := f.service.Sweep(ctx)
		require.NoError(t, err)

		ids, err := f.service.MissingCertificates(ctx)
		require.NoError(t, err)
		assert.Equal(t, []string{"eq-uncertified"}, ids)
	})
}
