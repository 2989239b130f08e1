//go:build integration

package registry

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"eqboard/pkg/platform/sentinel"
	"eqboard/pkg/testutil/containers"
)

func TestPostgresStore_Integration(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	pg := containers.NewPostgresContainer(t, Schema)
	store := NewPostgres(pg.DB)
	ctx := context.Background()
	base := time.Date(2026, 9, 1, 8, 0, 0, 0, time.UTC)

	entry := func(id, subID string, blended int, created time.Time) Equation {
		return Equation{
			EquationID:   id,
			SubmissionID: subID,
			Name:         id,
			BlendedScore: blended,
			Mode:         ModeOrganic,
			CreatedAt:    created,
			PromotedAt:   created.Add(time.Hour),
		}
	}

	t.Run("insert and read back", func(t *testing.T) {
		t.Cleanup(func() { containers.TruncateTables(t, pg.DB, "equations") })
		seeded := entry("eq-a", "sub-a", 82, base)
		seeded.Mode = ModeOverride
		require.NoError(t, store.Insert(ctx, seeded))

		got, err := store.Get(ctx, "eq-a")
		require.NoError(t, err)
		assert.Equal(t, "sub-a", got.SubmissionID)
		assert.Equal(t, 82, got.BlendedScore)
		assert.Equal(t, ModeOverride, got.Mode)
		assert.True(t, seeded.PromotedAt.Equal(got.PromotedAt))

		bySub, err := store.GetBySubmission(ctx, "sub-a")
		require.NoError(t, err)
		assert.Equal(t, "eq-a", bySub.EquationID)
	})

	t.Run("duplicate submission id conflicts", func(t *testing.T) {
		t.Cleanup(func() { containers.TruncateTables(t, pg.DB, "equations") })
		require.NoError(t, store.Insert(ctx, entry("eq-a", "sub-a", 82, base)))
		assert.ErrorIs(t, store.Insert(ctx, entry("eq-b", "sub-a", 70, base)), sentinel.ErrConflict)
	})

	t.Run("rerank orders by blended score then creation time", func(t *testing.T) {
		t.Cleanup(func() { containers.TruncateTables(t, pg.DB, "equations") })
		require.NoError(t, store.Insert(ctx, entry("eq-low", "sub-low", 70, base)))
		require.NoError(t, store.Insert(ctx, entry("eq-high", "sub-high", 90, base)))
		require.NoError(t, store.Insert(ctx, entry("eq-tie-late", "sub-tie-late", 80, base.Add(time.Minute))))
		require.NoError(t, store.Insert(ctx, entry("eq-tie-early", "sub-tie-early", 80, base)))
		require.NoError(t, store.Rerank(ctx))

		board, err := store.List(ctx)
		require.NoError(t, err)
		require.Len(t, board, 4)
		ids := []string{board[0].EquationID, board[1].EquationID, board[2].EquationID, board[3].EquationID}
		assert.Equal(t, []string{"eq-high", "eq-tie-early", "eq-tie-late", "eq-low"}, ids)
		assert.Equal(t, 1, board[0].Rank)
		assert.Equal(t, 4, board[3].Rank)
	})

	t.Run("certificate hash update", func(t *testing.T) {
		t.Cleanup(func() { containers.TruncateTables(t, pg.DB, "equations") })
		require.NoError(t, store.Insert(ctx, entry("eq-a", "sub-a", 82, base)))
		require.NoError(t, store.SetCertificateHash(ctx, "eq-a", "deadbeef"))

		got, err := store.Get(ctx, "eq-a")
		require.NoError(t, err)
		assert.Equal(t, "deadbeef", got.CertificateHash)
	})

	t.Run("delete", func(t *testing.T) {
		t.Cleanup(func() { containers.TruncateTables(t, pg.DB, "equations") })
		require.NoError(t, store.Insert(ctx, entry("eq-a", "sub-a", 82, base)))
		require.NoError(t, store.Delete(ctx, "eq-a"))
		assert.ErrorIs(t, store.Delete(ctx, "eq-a"), sentinel.ErrNotFound)
	})
}
