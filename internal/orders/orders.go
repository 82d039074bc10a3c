// Package orders implements the order-service collaborator consumed by
// the policy stage: order lookup, refund-eligibility checks, and refund
// execution, backed by a seeded in-memory order book.
package orders

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"supportflow/internal/tools"
)

// Book is an in-memory order store implementing tools.OrderService.
// Safe for concurrent use.
type Book struct {
	mu     sync.RWMutex
	orders map[string]tools.Order
	now    func() time.Time
}

// Option configures a Book.
type Option func(*Book)

// WithClock overrides the time source, for deterministic eligibility tests.
func WithClock(now func() time.Time) Option {
	return func(b *Book) {
		b.now = now
	}
}

// NewBook creates an order book seeded with the demo orders.
func NewBook(opts ...Option) *Book {
	b := &Book{
		orders: make(map[string]tools.Order),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(b)
	}
	b.seed()
	return b
}

// seed loads the demo order fixtures: one delivered order inside its
// refund window, one outside it, and one still in transit.
func (b *Book) seed() {
	now := b.now()
	for _, o := range []tools.Order{
		{
			OrderID:       "ORD-001",
			CustomerEmail: "john@example.com",
			OrderDate:     now.AddDate(0, 0, -5),
			Total:         149.99,
			Status:        "delivered",
			Items: []tools.OrderItem{
				{Name: "Wireless Mouse", Price: 29.99, Quantity: 1},
				{Name: "Mechanical Keyboard", Price: 119.99, Quantity: 1},
			},
			RefundEligible:   true,
			RefundWindowDays: 30,
		},
		{
			OrderID:       "ORD-002",
			CustomerEmail: "jane@example.com",
			OrderDate:     now.AddDate(0, 0, -45),
			Total:         299.99,
			Status:        "delivered",
			Items: []tools.OrderItem{
				{Name: "4K Monitor", Price: 299.99, Quantity: 1},
			},
			RefundEligible:   false,
			RefundWindowDays: 30,
		},
		{
			OrderID:       "ORD-003",
			CustomerEmail: "bob@example.com",
			OrderDate:     now.AddDate(0, 0, -2),
			Total:         79.99,
			Status:        "shipped",
			Items: []tools.OrderItem{
				{Name: "USB-C Cable Pack", Price: 79.99, Quantity: 1},
			},
			RefundEligible:   true,
			RefundWindowDays: 30,
		},
	} {
		b.orders[o.OrderID] = o
	}
}

// GetOrder looks up an order by id. A missing order reports found=false
// with a nil error.
func (b *Book) GetOrder(_ context.Context, orderID string) (*tools.Order, bool, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	o, ok := b.orders[orderID]
	if !ok {
		return nil, false, nil
	}
	cp := o
	return &cp, true, nil
}

// CheckRefundEligibility decides whether an order can be refunded: it must
// exist, be inside its refund window, and be delivered or shipped.
func (b *Book) CheckRefundEligibility(ctx context.Context, orderID string) (*tools.RefundEligibility, error) {
	order, found, err := b.GetOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if !found {
		return &tools.RefundEligibility{
			Eligible:    false,
			Reason:      "Order not found",
			OrderExists: false,
		}, nil
	}

	daysSince := int(b.now().Sub(order.OrderDate).Hours() / 24)
	if daysSince > order.RefundWindowDays {
		return &tools.RefundEligibility{
			Eligible: false,
			Reason: fmt.Sprintf("Order is %d days old, outside %d-day refund window",
				daysSince, order.RefundWindowDays),
			OrderExists: true,
			Order:       order,
		}, nil
	}

	if order.Status != "delivered" && order.Status != "shipped" {
		return &tools.RefundEligibility{
			Eligible:    false,
			Reason:      fmt.Sprintf("Order status is %s, not eligible for refund", order.Status),
			OrderExists: true,
			Order:       order,
		}, nil
	}

	amount := order.Total
	return &tools.RefundEligibility{
		Eligible:     true,
		Reason:       "Order is within refund window and eligible",
		OrderExists:  true,
		Order:        order,
		RefundAmount: &amount,
	}, nil
}

// ProcessRefund executes a refund for an eligible order. When amount is
// nil the full order total is refunded. No pipeline stage calls this; it
// exists for operators and future policy logic.
func (b *Book) ProcessRefund(ctx context.Context, orderID string, amount *float64) (*tools.RefundOutcome, error) {
	eligibility, err := b.CheckRefundEligibility(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if !eligibility.Eligible {
		return &tools.RefundOutcome{
			Success: false,
			Message: eligibility.Reason,
		}, nil
	}

	refundAmount := eligibility.Order.Total
	if amount != nil {
		refundAmount = *amount
	}

	refundID := "REF-" + strings.ToUpper(uuid.NewString()[:8])

	return &tools.RefundOutcome{
		Success:       true,
		Message:       "Refund processed successfully",
		RefundID:      refundID,
		RefundAmount:  refundAmount,
		OrderID:       orderID,
		EstimatedDays: 7,
	}, nil
}
