package certificate

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strings"

	"eqboard/internal/submission"
)

// canonicalContent is the logical content a certificate attests to. Fields
// marshal in sorted key order and text is whitespace-normalized, so byte-
// identical serialization follows from logically identical content.
type canonicalContent struct {
	AdvisoryScore  *int   `json:"advisory_score"`
	BlendedScore   int    `json:"blended_score"`
	Equation       string `json:"equation"`
	HeuristicScore int    `json:"heuristic_score"`
	Name           string `json:"name"`
	SubmitterHash  string `json:"submitter_hash"`
}

// Canonicalize produces the canonical serialization of a promoted
// submission's attested content.
func Canonicalize(sub submission.Submission) ([]byte, error) {
	if sub.BlendedScore == nil {
		return nil, fmt.Errorf("submission %s has no blended score", sub.ID)
	}
	content := canonicalContent{
		AdvisoryScore:  sub.AdvisoryScore,
		BlendedScore:   *sub.BlendedScore,
		Equation:       normalizeWhitespace(sub.Equation),
		HeuristicScore: sub.HeuristicScore,
		Name:           normalizeWhitespace(sub.Name),
		SubmitterHash:  SubmitterHash(sub.Submitter),
	}
	payload, err := json.Marshal(content)
	if err != nil {
		return nil, fmt.Errorf("marshal canonical content: %w", err)
	}
	return payload, nil
}

// ContentHash hashes the canonical serialization.
func ContentHash(canonical []byte) string {
	sum := sha256.Sum256(canonical)
	return hex.EncodeToString(sum[:])
}

// SubmitterHash is the one-way pseudonymous hash of a submitter identity.
func SubmitterHash(submitter string) string {
	sum := sha256.Sum256([]byte(submitter))
	return hex.EncodeToString(sum[:])
}

// normalizeWhitespace collapses every whitespace run to a single space and
// trims the ends.
func normalizeWhitespace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
