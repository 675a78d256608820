// Package payment simulates payment authorization. No money ever moves.
package payment

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/shopspring/decimal"
)

// DefaultDelay stands in for the latency of a real authorization call.
const DefaultDelay = 2 * time.Second

// DefaultRetained is how many recent charges stay refundable.
const DefaultRetained = 1024

var ErrDeclined = errors.New("payment declined")

type charge struct {
	amount decimal.Decimal
	method string
}

// Settler records simulated charges per order. Only the most recent
// charges are kept; older ones can no longer be refunded.
type Settler struct {
	delay    time.Duration
	limit    decimal.Decimal
	retained int

	mu       sync.Mutex
	payments map[string]charge
	order    []string
}

// NewSettler returns a Settler that waits delay before answering and
// declines amounts above limit. A zero limit never declines.
func NewSettler(delay time.Duration, limit decimal.Decimal) *Settler {
	return &Settler{
		delay:    delay,
		limit:    limit,
		retained: DefaultRetained,
		payments: make(map[string]charge),
	}
}

func (s *Settler) Charge(ctx context.Context, orderID string, amount decimal.Decimal, method string) error {
	slog.InfoContext(ctx, "processing charge", "order_id", orderID, "amount", amount.StringFixed(2), "method", method)

	if s.delay > 0 {
		t := time.NewTimer(s.delay)
		defer t.Stop()
		select {
		case <-t.C:
		case <-ctx.Done():
			return fmt.Errorf("charge %s: %w", orderID, ctx.Err())
		}
	}

	if s.limit.IsPositive() && amount.GreaterThan(s.limit) {
		slog.WarnContext(ctx, "charge declined, amount exceeds limit", "order_id", orderID, "amount", amount.StringFixed(2), "limit", s.limit.StringFixed(2))
		return fmt.Errorf("order %s: %w", orderID, ErrDeclined)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.payments[orderID]; !ok {
		s.order = append(s.order, orderID)
	}
	s.payments[orderID] = charge{amount: amount, method: method}
	for len(s.order) > s.retained {
		delete(s.payments, s.order[0])
		s.order = s.order[1:]
	}

	slog.InfoContext(ctx, "charge successful", "order_id", orderID)
	return nil
}

func (s *Settler) Refund(ctx context.Context, orderID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, exists := s.payments[orderID]
	if !exists {
		slog.WarnContext(ctx, "no payment found to refund", "order_id", orderID)
		return nil
	}

	slog.InfoContext(ctx, "refunding charge", "order_id", orderID, "amount", c.amount.StringFixed(2))
	delete(s.payments, orderID)
	s.order = slices.DeleteFunc(s.order, func(id string) bool { return id == orderID })
	return nil
}

// Charged reports the amount recorded for an order.
func (s *Settler) Charged(orderID string) (decimal.Decimal, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.payments[orderID]
	return c.amount, ok
}
