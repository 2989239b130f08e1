package operator

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"eqboard/internal/audit"
	dErrors "eqboard/pkg/domain-errors"
	"eqboard/pkg/platform/secrets"
)

func TestLogin(t *testing.T) {
	ctx := context.Background()
	logger := slog.New(slog.DiscardHandler)
	tokens := NewTokenService("test-signing-key", time.Hour)

	hash, err := secrets.Hash("correct-horse")
	require.NoError(t, err)

	t.Run("valid secret issues a token and audits it", func(t *testing.T) {
		sink := audit.NewMemorySink()
		svc := NewService(tokens, hash, audit.NewPublisher(sink, logger), logger)

		resp, err := svc.Login(ctx, "ada", "correct-horse")
		require.NoError(t, err)

		claims, err := tokens.Validate(resp.Token)
		require.NoError(t, err)
		assert.Equal(t, "ada", claims.Operator)

		events := sink.Events()
		require.Len(t, events, 1)
		assert.Equal(t, audit.ActionOperatorTokenIssued, events[0].Action)
		assert.Equal(t, "ada", events[0].Actor)
	})

	t.Run("wrong secret", func(t *testing.T) {
		svc := NewService(tokens, hash, nil, logger)
		_, err := svc.Login(ctx, "ada", "wrong")
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeUnauthorized))
	})

	t.Run("missing operator name", func(t *testing.T) {
		svc := NewService(tokens, hash, nil, logger)
		_, err := svc.Login(ctx, "", "correct-horse")
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})

	t.Run("unconfigured deployment has no operator surface", func(t *testing.T) {
		svc := NewService(tokens, "", nil, logger)
		_, err := svc.Login(ctx, "ada", "anything")
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeUnauthorized))
	})
}
