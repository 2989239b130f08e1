package submission

import "time"

// Status tracks a submission through its one-way lifecycle:
// needs-review → scored → {promoted | rejected}. No reverse transition exists.
type Status string

const (
	StatusNeedsReview Status = "needs-review"
	StatusScored      Status = "scored"
	StatusPromoted    Status = "promoted"
	StatusRejected    Status = "rejected"
)

// CanTransition reports whether moving to next respects the lifecycle.
// A re-score of a held submission stays at needs-review, so that self
// transition is permitted; promoted and rejected are terminal.
func (s Status) CanTransition(next Status) bool {
	switch s {
	case StatusNeedsReview:
		return next == StatusNeedsReview || next == StatusScored || next == StatusRejected
	case StatusScored:
		return next == StatusPromoted || next == StatusRejected
	default:
		return false
	}
}

// UnitsVerdict records the dimensional-analysis check outcome.
type UnitsVerdict string

const (
	UnitsOK   UnitsVerdict = "OK"
	UnitsWarn UnitsVerdict = "WARN"
	UnitsTBD  UnitsVerdict = "TBD"
)

func (v UnitsVerdict) Valid() bool {
	switch v {
	case UnitsOK, UnitsWarn, UnitsTBD:
		return true
	}
	return false
}

// TheoryVerdict records the theoretical-consistency check outcome.
type TheoryVerdict string

const (
	TheoryPass                TheoryVerdict = "PASS"
	TheoryPassWithAssumptions TheoryVerdict = "PASS-WITH-ASSUMPTIONS"
	TheoryFail                TheoryVerdict = "FAIL"
	TheoryTBD                 TheoryVerdict = "TBD"
)

func (v TheoryVerdict) Valid() bool {
	switch v {
	case TheoryPass, TheoryPassWithAssumptions, TheoryFail, TheoryTBD:
		return true
	}
	return false
}

// ArtifactStatus distinguishes a real link from a promised one.
type ArtifactStatus string

const (
	ArtifactPlanned ArtifactStatus = "planned"
	ArtifactLinked  ArtifactStatus = "linked"
)

// ArtifactRef points at a supporting artifact such as an animation or diagram.
type ArtifactRef struct {
	Status ArtifactStatus `json:"status"`
	Path   string         `json:"path,omitempty"`
}

// Present reports whether the artifact actually exists. Planned placeholders
// count for nothing.
func (a ArtifactRef) Present() bool {
	return a.Status == ArtifactLinked && a.Path != ""
}

// Submission is an untrusted candidate record awaiting scoring.
type Submission struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Equation    string `json:"equation"`
	Description string `json:"description"`
	Source      string `json:"source"`
	Submitter   string `json:"submitter"`

	Units       UnitsVerdict  `json:"units"`
	Theory      TheoryVerdict `json:"theory"`
	Assumptions []string      `json:"assumptions,omitempty"`
	Evidence    []string      `json:"evidence,omitempty"`
	Animation   ArtifactRef   `json:"animation"`
	Image       ArtifactRef   `json:"image"`

	Status            Status `json:"status"`
	HeuristicScore    int    `json:"heuristic_score"`
	AdvisoryScore     *int   `json:"advisory_score,omitempty"`
	AdvisoryRationale string `json:"advisory_rationale,omitempty"`
	BlendedScore      *int   `json:"blended_score,omitempty"`
	ScoringDegraded   bool   `json:"scoring_degraded,omitempty"`
	PromotionOverride bool   `json:"promotion_override,omitempty"`
	EquationID        string `json:"equation_id,omitempty"`
	RejectReason      string `json:"reject_reason,omitempty"`

	CreatedAt  time.Time  `json:"created_at"`
	ScoredAt   *time.Time `json:"scored_at,omitempty"`
	PromotedAt *time.Time `json:"promoted_at,omitempty"`
}
