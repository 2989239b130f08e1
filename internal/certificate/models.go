package certificate

import "time"

// PublishState tracks the certificate's journey to the ledger.
type PublishState string

const (
	StatePending PublishState = "pending"
	StateMined   PublishState = "mined"
	StateFailed  PublishState = "failed"
)

// Certificate is a signed, hashed attestation of a promoted equation's
// content. ContentHash and Signature never change once issued; only the
// publish bookkeeping moves.
type Certificate struct {
	EquationID      string       `json:"equation_id"`
	ContentHash     string       `json:"content_hash"`
	SubmitterHash   string       `json:"submitter_hash"`
	Signature       string       `json:"signature"`
	LedgerReference string       `json:"ledger_reference,omitempty"`
	PublishState    PublishState `json:"publish_state"`
	Attempts        int          `json:"attempts"`
	IssuedAt        time.Time    `json:"issued_at"`
	LastAttemptAt   *time.Time   `json:"last_attempt_at,omitempty"`
}

// ExportEntry is the public shape of an unmined certificate.
type ExportEntry struct {
	EquationID    string `json:"equation_id"`
	ContentHash   string `json:"content_hash"`
	Signature     string `json:"signature"`
	SubmitterHash string `json:"submitter_hash"`
}

// Receipt is a signed pseudonymous attribution a submitter can hold on to:
// proof that the content behind ContentHash was promoted, without the board
// storing who they are in the clear.
type Receipt struct {
	SubmissionID    string    `json:"submission_id"`
	EquationID      string    `json:"equation_id"`
	SubmitterHash   string    `json:"submitter_hash"`
	ContentHash     string    `json:"content_hash"`
	BlendedScore    int       `json:"blended_score"`
	IssuedAt        time.Time `json:"issued_at"`
	IssuerPublicKey string    `json:"issuer_public_key"`
	Signature       string    `json:"signature"`
}
