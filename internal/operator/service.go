package operator

import (
	"context"
	"log/slog"
	"time"

	"eqboard/internal/audit"
	dErrors "eqboard/pkg/domain-errors"
	"eqboard/pkg/platform/secrets"
	"eqboard/pkg/requestcontext"
)

// Service exchanges the shared operator secret for a short-lived token.
// The secret itself is stored only as a bcrypt hash.
type Service struct {
	tokens     *TokenService
	secretHash string
	audit      *audit.Publisher
	logger     *slog.Logger
}

func NewService(tokens *TokenService, secretHash string, auditPub *audit.Publisher, logger *slog.Logger) *Service {
	return &Service{tokens: tokens, secretHash: secretHash, audit: auditPub, logger: logger}
}

// TokenResponse is the issued credential.
type TokenResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}

// Login verifies the operator secret and issues a token. A deployment with no
// secret hash configured has no operator surface at all.
func (s *Service) Login(ctx context.Context, operator, secret string) (TokenResponse, error) {
	if operator == "" {
		return TokenResponse{}, dErrors.New(dErrors.CodeInvalidInput, "operator name is required")
	}
	if s.secretHash == "" {
		return TokenResponse{}, dErrors.New(dErrors.CodeUnauthorized, "operator access is not configured")
	}
	if err := secrets.Verify(secret, s.secretHash); err != nil {
		s.logger.WarnContext(ctx, "operator login rejected", "operator", operator)
		return TokenResponse{}, err
	}

	token, expiresAt, err := s.tokens.Generate(operator, requestcontext.Now(ctx))
	if err != nil {
		return TokenResponse{}, err
	}

	if s.audit != nil {
		if err := s.audit.Emit(ctx, audit.Event{
			Action: audit.ActionOperatorTokenIssued,
			Actor:  operator,
		}); err != nil {
			s.logger.WarnContext(ctx, "emit audit event", "error", err)
		}
	}
	return TokenResponse{Token: token, ExpiresAt: expiresAt}, nil
}
