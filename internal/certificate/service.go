// Package certificate issues tamper-evident attestations for promoted
// equations and shepherds them onto the external ledger.
package certificate

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"eqboard/internal/audit"
	"eqboard/internal/ledger"
	"eqboard/internal/platform/metrics"
	"eqboard/internal/registry"
	"eqboard/internal/submission"
	dErrors "eqboard/pkg/domain-errors"
	"eqboard/pkg/platform/circuit"
	"eqboard/pkg/platform/sentinel"
	"eqboard/pkg/requestcontext"
)

// LedgerPublisher is the publish/confirm contract of the external ledger.
type LedgerPublisher interface {
	Publish(ctx context.Context, tx ledger.Transaction) (string, error)
}

// Service is the only writer of certificates.
type Service struct {
	certs       Store
	submissions submission.Store
	equations   registry.Store
	ledger      LedgerPublisher
	signer      *Signer
	breaker     *circuit.Breaker
	retryBudget int
	audit       *audit.Publisher
	metrics     *metrics.Metrics
	logger      *slog.Logger
}

type Option func(*Service)

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

// WithLedger attaches the external ledger. Without one certificates stay
// pending and export is the only way out.
func WithLedger(publisher LedgerPublisher) Option {
	return func(s *Service) { s.ledger = publisher }
}

func NewService(certs Store, submissions submission.Store, equations registry.Store, signer *Signer, retryBudget int, auditPub *audit.Publisher, logger *slog.Logger, opts ...Option) *Service {
	s := &Service{
		certs:       certs,
		submissions: submissions,
		equations:   equations,
		signer:      signer,
		breaker:     circuit.New("ledger"),
		retryBudget: retryBudget,
		audit:       auditPub,
		logger:      logger,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Issue builds, signs, and persists the certificate for a promoted equation.
// Re-issuing for identical content is a no-op returning the existing
// certificate; publishing happens separately.
func (s *Service) Issue(ctx context.Context, equationID string) (Certificate, error) {
	eq, err := s.equations.Get(ctx, equationID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return Certificate{}, dErrors.New(dErrors.CodeNotFound, "equation not found")
		}
		return Certificate{}, fmt.Errorf("get equation: %w", err)
	}
	sub, err := s.submissions.Get(ctx, eq.SubmissionID)
	if err != nil {
		return Certificate{}, fmt.Errorf("get promoted submission: %w", err)
	}

	canonical, err := Canonicalize(sub)
	if err != nil {
		return Certificate{}, err
	}
	hash := ContentHash(canonical)

	if existing, err := s.certs.Get(ctx, equationID); err == nil {
		if existing.ContentHash == hash {
			return existing, nil
		}
		return Certificate{}, dErrors.New(dErrors.CodeConflict,
			"a certificate with different content already exists for this equation")
	} else if !errors.Is(err, sentinel.ErrNotFound) {
		return Certificate{}, fmt.Errorf("get certificate: %w", err)
	}

	signature, err := s.signer.Sign(canonical)
	if err != nil {
		return Certificate{}, fmt.Errorf("sign certificate: %w", err)
	}

	cert := Certificate{
		EquationID:    equationID,
		ContentHash:   hash,
		SubmitterHash: SubmitterHash(sub.Submitter),
		Signature:     signature,
		PublishState:  StatePending,
		IssuedAt:      requestcontext.Now(ctx),
	}
	if err := s.certs.Create(ctx, cert); err != nil {
		if errors.Is(err, sentinel.ErrConflict) {
			// A concurrent issuer won; identical content means identical
			// certificate, so hand theirs back.
			return s.certs.Get(ctx, equationID)
		}
		return Certificate{}, fmt.Errorf("store certificate: %w", err)
	}
	if err := s.equations.SetCertificateHash(ctx, equationID, hash); err != nil {
		s.logger.WarnContext(ctx, "record certificate hash on registry entry",
			"equation_id", equationID, "error", err)
	}

	if s.metrics != nil {
		s.metrics.CertificatesIssued.Inc()
	}
	s.emit(ctx, audit.Event{
		Action:       audit.ActionCertificateIssued,
		EquationID:   equationID,
		SubmissionID: sub.ID,
		Reason:       hash,
	})
	return cert, nil
}

// Publish pushes one certificate to the ledger, once. ContentHash rides along
// as the idempotency key, so a replay of an already-accepted transaction
// cannot double-enter the chain. Mined certificates are left untouched.
func (s *Service) Publish(ctx context.Context, cert Certificate) (Certificate, error) {
	return s.publish(ctx, cert, false)
}

// publish does the work for Publish. A probe call bypasses the open-circuit
// gate; the worker sends one probe per sweep so an open circuit can close
// again once the ledger recovers.
func (s *Service) publish(ctx context.Context, cert Certificate, probe bool) (Certificate, error) {
	if cert.PublishState == StateMined {
		return cert, nil
	}
	if s.ledger == nil {
		return cert, dErrors.New(dErrors.CodeUnavailable, "no ledger configured")
	}
	if !probe && s.breaker.IsOpen() {
		return cert, dErrors.New(dErrors.CodeUnavailable, "ledger circuit open")
	}

	now := requestcontext.Now(ctx)
	expected := cert.PublishState
	cert.Attempts++
	cert.LastAttemptAt = &now

	start := time.Now()
	reference, err := s.ledger.Publish(ctx, ledger.Transaction{
		EquationID:    cert.EquationID,
		ContentHash:   cert.ContentHash,
		Signature:     cert.Signature,
		SubmitterHash: cert.SubmitterHash,
		Nonce:         cert.ContentHash,
	})
	if s.metrics != nil {
		s.metrics.ObserveLedgerLatency(time.Since(start))
	}

	if err != nil {
		if _, change := s.breaker.RecordFailure(); change.Opened {
			s.logger.WarnContext(ctx, "ledger circuit opened", "equation_id", cert.EquationID)
		}
		cert.PublishState = StateFailed
		s.countPublish("retryable")
		if updateErr := s.certs.Update(ctx, cert, expected); updateErr != nil {
			s.logger.ErrorContext(ctx, "record failed publish attempt",
				"equation_id", cert.EquationID, "error", updateErr)
		}
		if cert.Attempts >= s.retryBudget {
			s.countPublish("exhausted")
			return cert, dErrors.Wrap(err, dErrors.CodeUnavailable,
				fmt.Sprintf("ledger publish retry budget exhausted after %d attempts", cert.Attempts))
		}
		return cert, fmt.Errorf("publish certificate: %w", err)
	}

	if _, change := s.breaker.RecordSuccess(); change.Closed {
		s.logger.InfoContext(ctx, "ledger circuit closed")
	}
	cert.PublishState = StateMined
	cert.LedgerReference = reference
	if err := s.certs.Update(ctx, cert, expected); err != nil {
		return cert, fmt.Errorf("record mined certificate: %w", err)
	}
	s.countPublish("mined")
	s.emit(ctx, audit.Event{
		Action:     audit.ActionCertificatePublished,
		EquationID: cert.EquationID,
		Reason:     reference,
	})
	return cert, nil
}

// PublishBatch publishes every unmined certificate now. Used by the explicit
// registration endpoint; the background worker handles paced retries.
func (s *Service) PublishBatch(ctx context.Context) ([]Certificate, error) {
	unmined, err := s.certs.ListUnmined(ctx)
	if err != nil {
		return nil, fmt.Errorf("list unmined certificates: %w", err)
	}

	out := make([]Certificate, 0, len(unmined))
	for _, cert := range unmined {
		published, err := s.Publish(ctx, cert)
		if err != nil {
			s.logger.WarnContext(ctx, "batch publish attempt failed",
				"equation_id", cert.EquationID, "error", err)
		}
		out = append(out, published)
	}
	return out, nil
}

// Export lists {equation_id, content_hash, signature, submitter_hash} for
// every promoted equation lacking a mined certificate, issuing certificates
// on the way for equations that have none yet.
func (s *Service) Export(ctx context.Context) ([]ExportEntry, error) {
	board, err := s.equations.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list equations: %w", err)
	}

	entries := make([]ExportEntry, 0, len(board))
	for _, eq := range board {
		cert, err := s.certs.Get(ctx, eq.EquationID)
		if errors.Is(err, sentinel.ErrNotFound) {
			cert, err = s.Issue(ctx, eq.EquationID)
		}
		if err != nil {
			return nil, fmt.Errorf("export certificate for %s: %w", eq.EquationID, err)
		}
		if cert.PublishState == StateMined {
			continue
		}
		entries = append(entries, ExportEntry{
			EquationID:    cert.EquationID,
			ContentHash:   cert.ContentHash,
			Signature:     cert.Signature,
			SubmitterHash: cert.SubmitterHash,
		})
	}
	return entries, nil
}

// Receipt builds the signed submitter receipt for a promoted submission.
func (s *Service) Receipt(ctx context.Context, submissionID string) (Receipt, error) {
	sub, err := s.submissions.Get(ctx, submissionID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return Receipt{}, dErrors.New(dErrors.CodeNotFound, "submission not found")
		}
		return Receipt{}, fmt.Errorf("get submission: %w", err)
	}
	if sub.Status != submission.StatusPromoted {
		return Receipt{}, dErrors.New(dErrors.CodeConflict,
			"receipts are issued for promoted submissions only")
	}

	cert, err := s.Issue(ctx, sub.EquationID)
	if err != nil {
		return Receipt{}, err
	}

	publicKey, err := s.signer.PublicKeyPEM()
	if err != nil {
		return Receipt{}, err
	}
	receipt := Receipt{
		SubmissionID:  sub.ID,
		EquationID:    sub.EquationID,
		SubmitterHash: cert.SubmitterHash,
		ContentHash:   cert.ContentHash,
		BlendedScore:  derefOrZero(sub.BlendedScore),
		IssuedAt:      requestcontext.Now(ctx),
	}
	payload, err := receiptPayload(receipt)
	if err != nil {
		return Receipt{}, err
	}
	signature, err := s.signer.Sign(payload)
	if err != nil {
		return Receipt{}, fmt.Errorf("sign receipt: %w", err)
	}
	receipt.IssuerPublicKey = publicKey
	receipt.Signature = signature
	return receipt, nil
}

// ReceiptPayload is the exact byte sequence a receipt signature covers.
// Exposed so holders can verify independently.
func ReceiptPayload(r Receipt) ([]byte, error) {
	return receiptPayload(r)
}

func receiptPayload(r Receipt) ([]byte, error) {
	r.IssuerPublicKey = ""
	r.Signature = ""
	payload, err := json.Marshal(r)
	if err != nil {
		return nil, fmt.Errorf("marshal receipt payload: %w", err)
	}
	return payload, nil
}

func (s *Service) countPublish(outcome string) {
	if s.metrics != nil {
		s.metrics.LedgerPublishes.WithLabelValues(outcome).Inc()
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

func derefOrZero(v *int) int {
	if v == nil {
		return 0
	}
	return *v
}
