package reconcile

import "time"

// FlagType classifies a discrepancy found by the sweep.
type FlagType string

const (
	// FlagNeedsCertificate marks a promoted equation with no certificate.
	FlagNeedsCertificate FlagType = "needs-certificate"
	// FlagOrphanCertificate marks a certificate whose equation left the registry.
	FlagOrphanCertificate FlagType = "orphan-certificate"
	// FlagStalledPromotion marks a scored submission above the threshold that
	// has sat unpromoted past the grace period.
	FlagStalledPromotion FlagType = "stalled-promotion"
)

// Flag is one discrepancy. Exactly one of EquationID and SubmissionID may be
// empty depending on the type.
type Flag struct {
	Type         FlagType `json:"type"`
	EquationID   string   `json:"equation_id,omitempty"`
	SubmissionID string   `json:"submission_id,omitempty"`
	Detail       string   `json:"detail"`
}

// Report is the outcome of one sweep. It describes drift; fixing it is the
// certificate worker's and the operators' job.
type Report struct {
	GeneratedAt time.Time `json:"generated_at"`
	Equations   int       `json:"equations"`
	Flags       []Flag    `json:"flags"`
}
