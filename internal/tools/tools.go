// Package tools defines the contracts for the external capabilities the
// pipeline invokes by name: knowledge-base search and the order service
// (lookup, refund eligibility, refund execution).
package tools

import (
	"context"
	"fmt"
	"time"
)

// Tool names as recorded in stage traces, in invocation order.
const (
	ToolSearchKnowledgeBase    = "search_knowledge_base"
	ToolGetOrderDetails        = "get_order_details"
	ToolCheckRefundEligibility = "check_refund_eligibility"
	ToolProcessRefund          = "process_refund"
)

// Article is one knowledge-base search hit.
type Article struct {
	Content        string  `json:"content"`
	Source         string  `json:"source"`
	RelevanceScore float64 `json:"relevance_score"`
}

// KnowledgeSearcher searches the knowledge base. Results are ordered by
// relevance descending and may be empty; emptiness is not an error.
type KnowledgeSearcher interface {
	Search(ctx context.Context, query string, maxResults int) ([]Article, error)
}

// OrderItem is a line item on an order.
type OrderItem struct {
	Name     string  `json:"name"`
	Price    float64 `json:"price"`
	Quantity int     `json:"quantity"`
}

// Order is the order record returned by the order service.
type Order struct {
	OrderID          string      `json:"order_id"`
	CustomerEmail    string      `json:"customer_email"`
	OrderDate        time.Time   `json:"order_date"`
	Total            float64     `json:"total"`
	Status           string      `json:"status"`
	Items            []OrderItem `json:"items"`
	RefundEligible   bool        `json:"refund_eligible"`
	RefundWindowDays int         `json:"refund_window_days"`
}

// RefundEligibility is the result of a refund-eligibility check.
// RefundAmount is set only when Eligible is true.
type RefundEligibility struct {
	Eligible     bool     `json:"eligible"`
	Reason       string   `json:"reason"`
	OrderExists  bool     `json:"order_exists"`
	Order        *Order   `json:"order,omitempty"`
	RefundAmount *float64 `json:"refund_amount,omitempty"`
}

// RefundOutcome is the result of executing a refund.
type RefundOutcome struct {
	Success       bool    `json:"success"`
	Message       string  `json:"message"`
	RefundID      string  `json:"refund_id,omitempty"`
	RefundAmount  float64 `json:"refund_amount,omitempty"`
	OrderID       string  `json:"order_id,omitempty"`
	EstimatedDays int     `json:"estimated_days,omitempty"`
}

// OrderService provides order lookup and refund operations.
//
// GetOrder reports absence through the found flag; a missing order is a
// normal outcome, not an error. Errors are transport-level failures.
// ProcessRefund exists as a capability for operators and future stages;
// no pipeline stage invokes it automatically.
type OrderService interface {
	GetOrder(ctx context.Context, orderID string) (order *Order, found bool, err error)
	CheckRefundEligibility(ctx context.Context, orderID string) (*RefundEligibility, error)
	ProcessRefund(ctx context.Context, orderID string, amount *float64) (*RefundOutcome, error)
}

// ToolError reports a transport-level failure of a tool collaborator.
type ToolError struct {
	Tool string
	Err  error
}

func (e *ToolError) Error() string {
	return fmt.Sprintf("tool %s: %v", e.Tool, e.Err)
}

func (e *ToolError) Unwrap() error {
	return e.Err
}
