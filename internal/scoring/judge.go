package scoring

import (
	"context"
	"errors"

	"eqboard/internal/submission"
)

// ErrMalformedOutput marks judge responses that failed to parse or fell
// outside the rubric's ranges. The caller treats the judge as unavailable
// rather than trusting the output partially.
var ErrMalformedOutput = errors.New("malformed judge output")

// AdvisoryResult is the judge's verdict: five axis subscores of 0-20 each
// plus a rationale. Total is the clamped sum.
type AdvisoryResult struct {
	Tractability int    `json:"tractability"`
	Plausibility int    `json:"plausibility"`
	Validation   int    `json:"validation"`
	Artifacts    int    `json:"artifacts"`
	Novelty      int    `json:"novelty"`
	Total        int    `json:"total"`
	Rationale    string `json:"rationale"`
}

// Judge scores a submission against a fixed rubric. The rubric and its
// calibration anchors are part of the implementation, never assembled from
// submission content. Any failure returns an error and the pipeline degrades
// to heuristic-only scoring.
type Judge interface {
	Score(ctx context.Context, sub submission.Submission) (*AdvisoryResult, error)
}

// normalizeAdvisory validates axis ranges and recomputes the total. Out-of-
// range axes are a malformed response, not something to clamp into shape.
func normalizeAdvisory(result AdvisoryResult) (*AdvisoryResult, error) {
	axes := []int{result.Tractability, result.Plausibility, result.Validation, result.Artifacts, result.Novelty}
	total := 0
	for _, axis := range axes {
		if axis < 0 || axis > 20 {
			return nil, ErrMalformedOutput
		}
		total += axis
	}
	result.Total = clamp(total, 0, 100)
	return &result, nil
}
