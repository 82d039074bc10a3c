package pipeline

import (
	"context"
	"fmt"
	"strings"

	"supportflow/internal/llm"
)

const escalationPromptTemplate = `You are an escalation decision agent. Decide if this ticket needs human review.

Average Confidence: %.2f
Threshold: %.2f
Response Requires Review: %t
Priority: %s

Consider:
- Low confidence scores (< %.2f)
- High priority or urgent tickets
- Complex situations requiring judgment
- Response agent flagged for review

Provide escalation decision with clear reasons.`

// aggregateConfidence computes the arithmetic mean of the confidences of
// every populated upstream slot, in stage order. An empty set yields 0.0.
func aggregateConfidence(st State) float64 {
	var scores []float64
	if st.Triage != nil {
		scores = append(scores, st.Triage.Confidence)
	}
	if st.Research != nil {
		scores = append(scores, st.Research.Confidence)
	}
	if st.Policy != nil {
		scores = append(scores, st.Policy.Confidence)
	}
	if st.Response != nil {
		scores = append(scores, st.Response.Confidence)
	}

	if len(scores) == 0 {
		return 0.0
	}
	var sum float64
	for _, s := range scores {
		sum += s
	}
	return sum / float64(len(scores))
}

// escalate produces the terminal verdict. The overall confidence stored on
// the state is always the deterministic mean from aggregateConfidence; the
// generation call contributes only the boolean verdict and the reasons.
func (r *Runner) escalate(ctx context.Context, st State) (State, *TraceRecord, error) {
	avg := aggregateConfidence(st)

	requiresReview := false
	if st.Response != nil {
		requiresReview = st.Response.RequiresHumanReview
	}

	priority := "unknown"
	if st.Triage != nil {
		priority = string(st.Triage.Priority)
	}

	prompt := fmt.Sprintf(escalationPromptTemplate,
		avg, r.threshold, requiresReview, priority, r.threshold)

	out, err := llm.GenerateAs[EscalationResult](ctx, r.gen, escalationSchema, prompt)
	if err != nil {
		return st, nil, err
	}

	out.OverallConfidence = avg

	st.Escalation = out
	st.RequiresHuman = out.ShouldEscalate
	st.OverallConfidence = avg

	trace := &TraceRecord{
		Input: map[string]any{
			"avg_confidence": avg,
			"threshold":      r.threshold,
		},
		Output:     out,
		Reasoning:  strings.Join(out.Reasons, ", "),
		Confidence: avg,
	}
	return st, trace, nil
}
