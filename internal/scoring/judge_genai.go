package scoring

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"google.golang.org/genai"

	"eqboard/internal/submission"
)

// judgeRubric is the fixed scoring instruction sent on every call. It is
// compiled into the binary; submission content is appended as data below it
// and never alters the rubric or the calibration anchors.
const judgeRubric = `You are scoring an equation submission for a public ranked board.
Score five axes, each an integer from 0 to 20:
- tractability: is the relationship explicit and workable (an actual equation, reasonable length)?
- plausibility: does the mathematical structure fit the claimed phenomenon?
- validation: are units and theoretical grounding addressed credibly?
- artifacts: do the referenced supporting artifacts add verification value?
- novelty: is this a non-trivial contribution relative to textbook forms?

Calibration anchors:
- "F=ma, no description, no evidence" scores around {"tractability":14,"plausibility":8,"validation":2,"artifacts":0,"novelty":2}.
- "a well-documented logistic growth fit with units checked and two datasets" scores around {"tractability":17,"plausibility":15,"validation":16,"artifacts":10,"novelty":11}.

Respond with exactly one JSON object:
{"tractability":n,"plausibility":n,"validation":n,"artifacts":n,"novelty":n,"rationale":"one sentence"}`

// GenAIJudge scores submissions through the Gemini API, pinned to
// deterministic output (temperature zero, fixed seed).
type GenAIJudge struct {
	client  *genai.Client
	model   string
	timeout time.Duration
}

func NewGenAIJudge(ctx context.Context, apiKey, model string, timeout time.Duration) (*GenAIJudge, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("judge API key is required")
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{APIKey: apiKey})
	if err != nil {
		return nil, fmt.Errorf("create genai client: %w", err)
	}
	return &GenAIJudge{client: client, model: model, timeout: timeout}, nil
}

func (j *GenAIJudge) Score(ctx context.Context, sub submission.Submission) (*AdvisoryResult, error) {
	ctx, cancel := context.WithTimeout(ctx, j.timeout)
	defer cancel()

	contents := []*genai.Content{
		genai.NewContentFromText(judgePrompt(sub), genai.RoleUser),
	}
	response, err := j.client.Models.GenerateContent(ctx, j.model, contents, &genai.GenerateContentConfig{
		Temperature:      genai.Ptr[float32](0),
		Seed:             genai.Ptr[int32](1),
		ResponseMIMEType: "application/json",
	})
	if err != nil {
		return nil, fmt.Errorf("judge call failed: %w", err)
	}

	return parseAdvisory(response.Text())
}

func parseAdvisory(raw string) (*AdvisoryResult, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, ErrMalformedOutput
	}
	var result AdvisoryResult
	if err := json.Unmarshal([]byte(raw), &result); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedOutput, err)
	}
	return normalizeAdvisory(result)
}

func judgePrompt(sub submission.Submission) string {
	var b strings.Builder
	b.WriteString(judgeRubric)
	b.WriteString("\n\nSubmission to score:\n")
	fmt.Fprintf(&b, "name: %s\n", sub.Name)
	fmt.Fprintf(&b, "equation: %s\n", sub.Equation)
	fmt.Fprintf(&b, "description: %s\n", sub.Description)
	fmt.Fprintf(&b, "units verdict: %s\n", sub.Units)
	fmt.Fprintf(&b, "theory verdict: %s\n", sub.Theory)
	fmt.Fprintf(&b, "assumptions: %s\n", strings.Join(sub.Assumptions, "; "))
	fmt.Fprintf(&b, "evidence: %s\n", strings.Join(sub.Evidence, "; "))
	fmt.Fprintf(&b, "animation artifact: %v\n", sub.Animation.Present())
	fmt.Fprintf(&b, "image artifact: %v\n", sub.Image.Present())
	return b.String()
}
