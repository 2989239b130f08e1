package registry

import "time"

// PromotionMode records how an equation got in: past the threshold on its own
// or through an operator override. The distinction is permanent.
type PromotionMode string

const (
	ModeOrganic  PromotionMode = "organic"
	ModeOverride PromotionMode = "override"
)

// Equation is a ranked registry entry. Rank is dense with no gaps and is
// recomputed on every promotion, never hand-edited. CertificateHash stays
// empty until the certificate issuer has run.
type Equation struct {
	EquationID      string        `json:"equation_id"`
	SubmissionID    string        `json:"submission_id"`
	Name            string        `json:"name"`
	Rank            int           `json:"rank"`
	BlendedScore    int           `json:"blended_score"`
	Mode            PromotionMode `json:"mode"`
	CertificateHash string        `json:"certificate_hash,omitempty"`
	CreatedAt       time.Time     `json:"created_at"`
	PromotedAt      time.Time     `json:"promoted_at"`
}
