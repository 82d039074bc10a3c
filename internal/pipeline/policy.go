package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"supportflow/internal/llm"
	"supportflow/internal/tools"
)

const policyPromptTemplate = `You are a policy enforcement agent. Determine if the customer's request is eligible.

Intent: %s
Order Details: %s
Refund Check: %s

Provide eligibility decision and clear reasoning.`

// policy checks order status and refund eligibility where relevant and
// decides whether the request is eligible. Tool calls are conditional: the
// order is looked up only when the ticket carries an order id and triage
// flagged requires_order_lookup; refund eligibility is checked only when
// the intent mentions a refund. No-ops when triage never ran.
func (r *Runner) policy(ctx context.Context, st State) (State, *TraceRecord, error) {
	if st.Triage == nil {
		return st, nil, nil
	}

	var (
		order       *tools.Order
		orderFound  bool
		refundCheck *tools.RefundEligibility
	)
	actions := []string{}

	if st.Ticket.OrderID != "" && st.Triage.RequiresOrderLookup {
		var err error
		order, orderFound, err = r.orders.GetOrder(ctx, st.Ticket.OrderID)
		if err != nil {
			return st, nil, &tools.ToolError{Tool: tools.ToolGetOrderDetails, Err: err}
		}
		actions = append(actions, tools.ToolGetOrderDetails)

		if strings.Contains(strings.ToLower(st.Triage.Intent), "refund") {
			refundCheck, err = r.orders.CheckRefundEligibility(ctx, st.Ticket.OrderID)
			if err != nil {
				return st, nil, &tools.ToolError{Tool: tools.ToolCheckRefundEligibility, Err: err}
			}
			actions = append(actions, tools.ToolCheckRefundEligibility)
		}
	}

	orderDesc := "No order provided"
	switch {
	case orderFound:
		if b, err := json.Marshal(order); err == nil {
			orderDesc = string(b)
		}
	case st.Ticket.OrderID != "" && len(actions) > 0:
		orderDesc = fmt.Sprintf("Order not found (%s)", st.Ticket.OrderID)
	}

	refundDesc := "N/A"
	if refundCheck != nil {
		if b, err := json.Marshal(refundCheck); err == nil {
			refundDesc = string(b)
		}
	}

	prompt := fmt.Sprintf(policyPromptTemplate, st.Triage.Intent, orderDesc, refundDesc)

	out, err := llm.GenerateAs[PolicyResult](ctx, r.gen, policySchema, prompt)
	if err != nil {
		return st, nil, err
	}

	// Overwrite generated fields with the locally observed tool results.
	if orderFound {
		out.OrderDetails = order
	} else {
		out.OrderDetails = nil
	}
	out.ActionsTaken = actions
	out.RefundAmount = nil
	if refundCheck != nil && refundCheck.Eligible && refundCheck.RefundAmount != nil {
		amount := *refundCheck.RefundAmount
		out.RefundAmount = &amount
	}

	st.Policy = out

	trace := &TraceRecord{
		Input: map[string]any{
			"intent":    st.Triage.Intent,
			"has_order": orderFound,
		},
		Output:     out,
		Reasoning:  out.Reason,
		Confidence: out.Confidence,
		ToolsUsed:  actions,
	}
	return st, trace, nil
}
