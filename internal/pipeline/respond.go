package pipeline

import (
	"context"
	"fmt"

	"supportflow/internal/llm"
)

const responsePromptTemplate = `You are a customer support response agent. Draft a professional, empathetic response to the customer.

Customer: %s
Intent: %s
Priority: %s

Research Findings:
%s

Policy Check:
%s
Eligible: %s

Draft a response that:
1. Addresses the customer's concern directly
2. Provides relevant information from research
3. Explains any policy decisions clearly
4. Offers next steps or solutions
5. Maintains a professional and empathetic tone

Determine if human review is needed (complex cases, angry customers, edge cases).`

// respond drafts the customer-facing reply. This is the only stage that
// tolerates every upstream gap: missing triage, research, or policy slots
// are replaced by explicit markers so a response is always produced.
func (r *Runner) respond(ctx context.Context, st State) (State, *TraceRecord, error) {
	intent := "unknown"
	priority := string(PriorityMedium)
	if st.Triage != nil {
		intent = st.Triage.Intent
		priority = string(st.Triage.Priority)
	}

	researchSummary := "No research available"
	if st.Research != nil {
		researchSummary = st.Research.Summary
	}

	policyReason := "No policy check performed"
	eligible := "N/A"
	if st.Policy != nil {
		policyReason = st.Policy.Reason
		eligible = fmt.Sprintf("%t", st.Policy.IsEligible)
	}

	prompt := fmt.Sprintf(responsePromptTemplate,
		st.Ticket.CustomerName, intent, priority, researchSummary, policyReason, eligible)

	out, err := llm.GenerateAs[ResponseResult](ctx, r.gen, responseSchema, prompt)
	if err != nil {
		return st, nil, err
	}

	st.Response = out
	st.FinalResponse = out.ResponseText

	input := map[string]any{
		"research_available": st.Research != nil,
	}
	if st.Triage != nil {
		input["intent"] = st.Triage.Intent
	} else {
		input["intent"] = nil
	}
	if st.Policy != nil {
		input["policy_decision"] = st.Policy.IsEligible
	} else {
		input["policy_decision"] = nil
	}

	trace := &TraceRecord{
		Input:      input,
		Output:     out,
		Reasoning:  fmt.Sprintf("Tone: %s, Requires review: %t", out.Tone, out.RequiresHumanReview),
		Confidence: out.Confidence,
	}
	return st, trace, nil
}
