package certificate

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"eqboard/internal/submission"
)

func promotedFixture() submission.Submission {
	blended := 82
	advisory := 88
	return submission.Submission{
		ID:             "sub-2026-09-01-growth-law",
		Name:           "Cell Growth Saturation",
		Equation:       `z(t)=z_0*(1-e^{-\gamma t})`,
		Submitter:      "ada",
		Status:         submission.StatusPromoted,
		HeuristicScore: 70,
		AdvisoryScore:  &advisory,
		BlendedScore:   &blended,
		EquationID:     "eq-growth-law",
	}
}

func TestCanonicalize(t *testing.T) {
	t.Run("deterministic for logically identical content", func(t *testing.T) {
		a := promotedFixture()
		b := promotedFixture()
		b.Name = "  Cell   Growth\tSaturation "
		b.Equation = ` z(t)=z_0*(1-e^{-\gamma t})` + "\n"

		canonA, err := Canonicalize(a)
		require.NoError(t, err)
		canonB, err := Canonicalize(b)
		require.NoError(t, err)

		assert.Equal(t, canonA, canonB)
		assert.Equal(t, ContentHash(canonA), ContentHash(canonB))
	})

	t.Run("different content hashes differently", func(t *testing.T) {
		a := promotedFixture()
		b := promotedFixture()
		b.Equation = `z(t)=z_0*e^{-\gamma t}`

		canonA, err := Canonicalize(a)
		require.NoError(t, err)
		canonB, err := Canonicalize(b)
		require.NoError(t, err)

		assert.NotEqual(t, ContentHash(canonA), ContentHash(canonB))
	})

	t.Run("score changes the hash", func(t *testing.T) {
		a := promotedFixture()
		b := promotedFixture()
		other := 90
		b.BlendedScore = &other

		canonA, err := Canonicalize(a)
		require.NoError(t, err)
		canonB, err := Canonicalize(b)
		require.NoError(t, err)

		assert.NotEqual(t, ContentHash(canonA), ContentHash(canonB))
	})

	t.Run("unscored submission refused", func(t *testing.T) {
		sub := promotedFixture()
		sub.BlendedScore = nil
		_, err := Canonicalize(sub)
		require.Error(t, err)
	})
}

func TestSubmitterHash(t *testing.T) {
	hash := SubmitterHash("ada")

	assert.Len(t, hash, 64)
	assert.NotContains(t, hash, "ada")
	assert.Equal(t, hash, SubmitterHash("ada"))
	assert.NotEqual(t, hash, SubmitterHash("grace"))
}
