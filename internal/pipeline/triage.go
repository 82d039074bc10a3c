package pipeline

import (
	"context"
	"fmt"

	"supportflow/internal/llm"
)

const triagePromptTemplate = `You are a customer support triage agent. Analyze the following support ticket and classify it.

Customer: %s (%s)
Subject: %s
Message: %s
Order ID: %s

Classify this ticket's intent, priority, and determine if order lookup is needed.
Be specific with intent (e.g., 'refund_request', 'shipping_inquiry', 'product_question', 'account_issue').`

// triage classifies the ticket's intent and priority. Every downstream
// stage depends on the classification, so a generation failure is fatal;
// no default triage is fabricated.
func (r *Runner) triage(ctx context.Context, st State) (State, *TraceRecord, error) {
	orderID := st.Ticket.OrderID
	if orderID == "" {
		orderID = "Not provided"
	}

	prompt := fmt.Sprintf(triagePromptTemplate,
		st.Ticket.CustomerName,
		st.Ticket.CustomerEmail,
		st.Ticket.Subject,
		st.Ticket.Message,
		orderID)

	out, err := llm.GenerateAs[TriageResult](ctx, r.gen, triageSchema, prompt)
	if err != nil {
		return st, nil, err
	}

	st.Triage = out

	trace := &TraceRecord{
		Input: map[string]any{
			"subject": st.Ticket.Subject,
			"message": truncate(st.Ticket.Message, 200),
		},
		Output:     out,
		Reasoning:  out.Reasoning,
		Confidence: out.Confidence,
	}
	return st, trace, nil
}

// truncate clips s to at most n bytes.
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
