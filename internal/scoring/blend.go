package scoring

import "math"

// Weights control how the two score layers combine. The defaults favor the
// advisory judge but never let it decide alone.
type Weights struct {
	Heuristic float64
	Advisory  float64
}

// DefaultWeights matches the deployed blend: 0.4 heuristic, 0.6 advisory.
var DefaultWeights = Weights{Heuristic: 0.4, Advisory: 0.6}

// Blend combines the heuristic total with an optional advisory total. With an
// advisory score present the result is round-half-up of the weighted sum; with
// none the heuristic stands alone and the cycle is flagged degraded. Pure
// function of its inputs so re-computation is reproducible for audit.
func Blend(heuristic int, advisory *int, weights Weights) (blended int, degraded bool) {
	if advisory == nil {
		return heuristic, true
	}
	raw := weights.Heuristic*float64(heuristic) + weights.Advisory*float64(*advisory)
	return int(math.Floor(raw + 0.5)), false
}
