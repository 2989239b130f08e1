package audit

import "time"

// Action labels what happened. Values are stable identifiers consumed by the
// downstream audit topic, so renaming one is a breaking change.
type Action string

const (
	ActionSubmissionReceived   Action = "submission.received"
	ActionSubmissionRejected   Action = "submission.rejected"
	ActionSubmissionScored     Action = "submission.scored"
	ActionEquationPromoted     Action = "equation.promoted"
	ActionCertificateIssued    Action = "certificate.issued"
	ActionCertificatePublished Action = "certificate.published"
	ActionOperatorTokenIssued  Action = "operator.token_issued"
)

// Event is emitted from domain logic to capture key pipeline actions. Keep it
// transport-agnostic so stores and sinks can fan out.
type Event struct {
	Timestamp    time.Time `json:"timestamp"`
	RequestID    string    `json:"request_id,omitempty"`
	Actor        string    `json:"actor,omitempty"`
	Action       Action    `json:"action"`
	SubmissionID string    `json:"submission_id,omitempty"`
	EquationID   string    `json:"equation_id,omitempty"`
	Decision     string    `json:"decision,omitempty"`
	Reason       string    `json:"reason,omitempty"`
}
