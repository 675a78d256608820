package coordinator

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/jcmexdev/foodie-storefront/internal/cart"
)

// Charger authorizes and voids payments for an order.
type Charger interface {
	Charge(ctx context.Context, orderID string, amount decimal.Decimal, method string) error
	Refund(ctx context.Context, orderID string) error
}

// Basket is the part of the cart store the settlement saga mutates.
type Basket interface {
	Deduct(ctx context.Context, lines []cart.Item)
	Restore(ctx context.Context, lines []cart.Item)
}

// --- PaymentStep ---

type PaymentStep struct {
	charger Charger
	orderID string
	amount  decimal.Decimal
	method  string
}

func NewPaymentStep(charger Charger, orderID string, amount decimal.Decimal, method string) *PaymentStep {
	return &PaymentStep{
		charger: charger,
		orderID: orderID,
		amount:  amount,
		method:  method,
	}
}

func (s *PaymentStep) Name() string { return "Payment_Settlement_Step" }

func (s *PaymentStep) Execute(ctx context.Context) error {
	if err := s.charger.Charge(ctx, s.orderID, s.amount, s.method); err != nil {
		return fmt.Errorf("payment settlement for order %s: %w", s.orderID, err)
	}
	return nil
}

func (s *PaymentStep) Compensate(ctx context.Context) error {
	return s.charger.Refund(ctx, s.orderID)
}

// --- ClearCartStep ---

type ClearCartStep struct {
	basket  Basket
	lines   []cart.Item
	cleared bool
}

// NewClearCartStep removes exactly the paid-for lines from basket. Items
// added while the payment was running are left in place.
func NewClearCartStep(basket Basket, lines []cart.Item) *ClearCartStep {
	return &ClearCartStep{basket: basket, lines: lines}
}

func (s *ClearCartStep) Name() string { return "Clear_Cart_Step" }

func (s *ClearCartStep) Execute(ctx context.Context) error {
	s.basket.Deduct(ctx, s.lines)
	s.cleared = true
	return nil
}

func (s *ClearCartStep) Compensate(ctx context.Context) error {
	if s.cleared {
		s.basket.Restore(ctx, s.lines)
	}
	return nil
}
