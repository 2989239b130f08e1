package scoring

import (
	"regexp"
	"strings"

	"eqboard/internal/submission"
	dErrors "eqboard/pkg/domain-errors"
)

// Breakdown carries the per-axis heuristic scores. Axis caps: tractability
// 0-20, plausibility 0-20, validation 0-20, artifacts 0-10, novelty 0-30.
type Breakdown struct {
	Tractability int `json:"tractability"`
	Plausibility int `json:"plausibility"`
	Validation   int `json:"validation"`
	Artifacts    int `json:"artifacts"`
	Novelty      int `json:"novelty"`
	Total        int `json:"total"`
}

// markerClass groups equivalent mathematical-structure tokens. Distinct
// classes contribute to plausibility; repeats within a class do not, which is
// what makes the axis stuffing-resistant.
type markerClass struct {
	name    string
	pattern *regexp.Regexp
}

var markerClasses = []markerClass{
	{"derivative", regexp.MustCompile(`\\frac\{d|\\partial|\\dot|\\ddot|\bd[a-z]/d[a-z]\b`)},
	{"operator", regexp.MustCompile(`\^|\\nabla|\\Delta|\\hat|\\times|\\cdot`)},
	{"summation", regexp.MustCompile(`\\sum|\\prod`)},
	{"integral", regexp.MustCompile(`\\int|\\oint`)},
	{"elementary", regexp.MustCompile(`\\?(sin|cos|tan|exp|log|ln|sinh|cosh|tanh)\b|e\^`)},
}

// lineagePatterns recognize phrasing that claims derivation from an existing
// board entry. Match count saturates; repeating the phrase buys nothing.
var lineagePatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)builds\s+on\s+(lb\s*)?#?\d+`),
	regexp.MustCompile(`(?i)derived\s+from\s+(lb\s*)?#?\d+`),
	regexp.MustCompile(`(?i)extends\s+(lb\s*)?#?\d+`),
	regexp.MustCompile(`(?i)generalizes\s+(lb\s*)?#?\d+`),
}

var latexCommand = regexp.MustCompile(`\\[a-zA-Z]+`)

// countedBonus is one row of the novelty rule table: a per-item weight and a
// hard cap so no list can contribute past its stated ceiling.
type countedBonus struct {
	name   string
	weight int
	cap    int
	count  func(sub submission.Submission) int
}

var noveltyBonuses = []countedBonus{
	{"latex-variety", 2, 10, func(sub submission.Submission) int {
		return len(distinctMatches(latexCommand, sub.Equation))
	}},
	{"assumptions", 2, 4, func(sub submission.Submission) int {
		return len(sub.Assumptions)
	}},
	{"evidence", 2, 6, func(sub submission.Submission) int {
		return len(sub.Evidence)
	}},
}

const (
	tractabilityBase = 12
	equalityBonus    = 4
	concisionBonus   = 2
	concisionLimit   = 120
	lengthPenalty    = 3
	lengthLimit      = 300

	plausibilityBase  = 8
	markerFullWeight  = 3
	markerFullClasses = 3

	unitsBonus         = 10
	theoryPassBonus    = 10
	theoryPartialBonus = 6

	artifactBonus = 5

	noveltyBase    = 8
	lineageWeight  = 2
	lineageFloor   = 2
	lineageCeiling = 8
)

// ScoreHeuristic evaluates the deterministic rubric over submission content.
// An empty equation scores zero across the board; a submission missing its
// other required fields is a validation failure, not a zero.
func ScoreHeuristic(sub submission.Submission) (Breakdown, error) {
	if strings.TrimSpace(sub.Name) == "" {
		return Breakdown{}, dErrors.New(dErrors.CodeInvalidInput, "name is required for scoring")
	}
	if strings.TrimSpace(sub.Description) == "" {
		return Breakdown{}, dErrors.New(dErrors.CodeInvalidInput, "description is required for scoring")
	}
	equation := strings.TrimSpace(sub.Equation)
	if equation == "" {
		return Breakdown{}, nil
	}

	b := Breakdown{
		Tractability: tractability(equation),
		Plausibility: plausibility(equation),
		Validation:   validation(sub),
		Artifacts:    artifacts(sub),
		Novelty:      novelty(sub),
	}
	b.Total = b.Tractability + b.Plausibility + b.Validation + b.Artifacts + b.Novelty
	return b, nil
}

func tractability(equation string) int {
	score := tractabilityBase
	if strings.Contains(equation, "=") {
		score += equalityBonus
	}
	if len(equation) <= concisionLimit {
		score += concisionBonus
	}
	if len(equation) > lengthLimit {
		score -= lengthPenalty
	}
	return clamp(score, 0, 20)
}

func plausibility(equation string) int {
	classes := 0
	for _, mc := range markerClasses {
		if mc.pattern.MatchString(equation) {
			classes++
		}
	}
	bonus := markerFullWeight * min(classes, markerFullClasses)
	if classes > markerFullClasses {
		bonus += classes - markerFullClasses
	}
	return clamp(plausibilityBase+bonus, 0, 20)
}

func validation(sub submission.Submission) int {
	score := 0
	if sub.Units == submission.UnitsOK {
		score += unitsBonus
	}
	switch sub.Theory {
	case submission.TheoryPass:
		score += theoryPassBonus
	case submission.TheoryPassWithAssumptions:
		score += theoryPartialBonus
	}
	return clamp(score, 0, 20)
}

func artifacts(sub submission.Submission) int {
	score := 0
	if sub.Animation.Present() {
		score += artifactBonus
	}
	if sub.Image.Present() {
		score += artifactBonus
	}
	return clamp(score, 0, 10)
}

func novelty(sub submission.Submission) int {
	score := noveltyBase
	for _, bonus := range noveltyBonuses {
		score += min(bonus.weight*bonus.count(sub), bonus.cap)
	}
	if matches := lineageMatches(sub.Description); matches > 0 {
		score += clamp(lineageWeight*matches, lineageFloor, lineageCeiling)
	}
	return clamp(score, 0, 30)
}

// lineageMatches counts the distinct lineage phrasings present. Repeating a
// phrase does not raise the count.
func lineageMatches(description string) int {
	matched := 0
	for _, pattern := range lineagePatterns {
		if pattern.MatchString(description) {
			matched++
		}
	}
	return matched
}

func distinctMatches(pattern *regexp.Regexp, text string) map[string]struct{} {
	found := make(map[string]struct{})
	for _, m := range pattern.FindAllString(text, -1) {
		found[m] = struct{}{}
	}
	return found
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
