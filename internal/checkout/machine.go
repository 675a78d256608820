// Package checkout implements the guarded cart → address → payment →
// confirmation flow on top of a session basket.
package checkout

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/jcmexdev/foodie-storefront/internal/cart"
	"github.com/jcmexdev/foodie-storefront/internal/coordinator"
	"github.com/jcmexdev/foodie-storefront/internal/coordinator/sagalog"
)

var (
	ErrEmptyCart            = errors.New("cart is empty")
	ErrInvalidAddress       = errors.New("flat, street and postal code are required")
	ErrInvalidPayment       = errors.New("payment selection incomplete")
	ErrSettlementInProgress = errors.New("payment is being processed")
	ErrSettlementFailed     = errors.New("payment settlement failed")
	ErrCheckoutClosed       = errors.New("checkout already finished")
)

// Basket is what the machine needs from the session cart.
type Basket interface {
	coordinator.Basket
	Items() []cart.Item
	IsEmpty() bool
	TotalItems() int
	TotalPrice() decimal.Decimal
}

type Option func(*Machine)

// WithSagaLog records every settlement transition to repo.
func WithSagaLog(repo sagalog.Repository) Option {
	return func(m *Machine) { m.sagaLog = repo }
}

// WithClock overrides the clock used for order ids and timestamps.
func WithClock(now func() time.Time) Option {
	return func(m *Machine) { m.now = now }
}

// Machine is one checkout attempt. It is safe for concurrent use; while a
// settlement runs, the machine reports Processing and refuses transitions.
type Machine struct {
	basket  Basket
	charger coordinator.Charger
	sagaLog sagalog.Repository
	now     func() time.Time
	tracer  trace.Tracer

	mu         sync.Mutex
	stage      Stage
	processing bool
	address    Address
	payment    PaymentSelection
	order      *Order
	lastErr    error
}

// New starts a checkout at the cart stage. An empty basket never enters
// the flow: ErrEmptyCart is returned and the caller shows the empty state.
func New(basket Basket, charger coordinator.Charger, opts ...Option) (*Machine, error) {
	if basket.IsEmpty() {
		return nil, ErrEmptyCart
	}
	m := &Machine{
		basket:  basket,
		charger: charger,
		now:     time.Now,
		tracer:  otel.Tracer("github.com/jcmexdev/foodie-storefront/internal/checkout"),
		stage:   StageCart,
		address: Address{Type: "home"},
		payment: PaymentSelection{Mode: PaymentCOD},
	}
	for _, opt := range opts {
		opt(m)
	}
	return m, nil
}

// Stage returns the current stage.
func (m *Machine) Stage() Stage {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.stage
}

// Closed reports whether the machine reached confirmation or was exited.
func (m *Machine) Closed() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.stage.terminal()
}

// SetAddress replaces the draft delivery address.
func (m *Machine) SetAddress(a Address) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.editable(); err != nil {
		return err
	}
	m.address = a
	return nil
}

// SetPayment replaces the draft payment selection. Card details are dropped
// for modes other than card.
func (m *Machine) SetPayment(p PaymentSelection) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.editable(); err != nil {
		return err
	}
	if p.Mode != PaymentCard {
		p.Card = nil
	}
	m.payment = p
	return nil
}

func (m *Machine) editable() error {
	if m.stage.terminal() {
		return ErrCheckoutClosed
	}
	if m.processing {
		return ErrSettlementInProgress
	}
	return nil
}

// Advance attempts the forward transition out of the current stage. A
// refused guard leaves the stage unchanged and returns the reason. Leaving
// the payment stage settles the order; on failure the machine stays in
// payment and Advance can simply be called again.
func (m *Machine) Advance(ctx context.Context) (Stage, error) {
	m.mu.Lock()
	if err := m.editable(); err != nil {
		defer m.mu.Unlock()
		return m.stage, err
	}

	switch m.stage {
	case StageCart:
		defer m.mu.Unlock()
		if m.basket.IsEmpty() {
			return m.stage, ErrEmptyCart
		}
		m.stage = StageAddress
		return m.stage, nil

	case StageAddress:
		defer m.mu.Unlock()
		if !m.address.Valid() {
			return m.stage, ErrInvalidAddress
		}
		m.stage = StagePayment
		return m.stage, nil
	}

	// StagePayment
	if !m.payment.Valid() {
		defer m.mu.Unlock()
		return m.stage, ErrInvalidPayment
	}
	if m.basket.IsEmpty() {
		defer m.mu.Unlock()
		return m.stage, ErrEmptyCart
	}

	m.processing = true
	m.lastErr = nil
	lines := m.basket.Items()
	subtotal, count := decimal.Zero, 0
	for _, l := range lines {
		subtotal = subtotal.Add(l.Subtotal())
		count += l.Quantity
	}
	now := m.now()
	order := &Order{
		ID:          NewOrderID(now),
		Breakdown:   Quote(subtotal),
		PaymentMode: m.payment.Mode,
		Address:     m.address,
		ItemCount:   count,
		CreatedAt:   now.UTC(),
	}
	order.Total = order.Breakdown.Total
	m.mu.Unlock()

	err := m.settle(ctx, order, lines)

	m.mu.Lock()
	defer m.mu.Unlock()
	m.processing = false
	if err != nil {
		m.lastErr = err
		slog.ErrorContext(ctx, "checkout settlement failed", "order_id", order.ID, "error", err)
		return m.stage, fmt.Errorf("%w: %w", ErrSettlementFailed, err)
	}
	m.order = order
	m.stage = StageConfirmation
	slog.InfoContext(ctx, "checkout confirmed", "order_id", order.ID, "total", order.Breakdown.TotalDisplay)
	return m.stage, nil
}

// settle runs the settlement saga detached from ctx's cancellation: once
// started, payment cannot be abandoned halfway by a dropped request. Only
// lines, the basket as priced into order, is removed from the cart.
func (m *Machine) settle(ctx context.Context, order *Order, lines []cart.Item) error {
	ctx, span := m.tracer.Start(context.WithoutCancel(ctx), "checkout.settle",
		trace.WithAttributes(
			attribute.String("order.id", order.ID),
			attribute.String("order.total", order.Total.StringFixed(2)),
			attribute.String("payment.mode", string(order.PaymentMode)),
		))
	defer span.End()

	steps := []coordinator.Step{
		coordinator.NewPaymentStep(m.charger, order.ID, order.Total, string(order.PaymentMode)),
		coordinator.NewClearCartStep(m.basket, lines),
	}
	payload := struct {
		OrderID string          `json:"orderId"`
		Amount  decimal.Decimal `json:"amount"`
		Mode    PaymentMode     `json:"mode"`
		Items   []cart.Item     `json:"items"`
	}{order.ID, order.Total, order.PaymentMode, lines}

	if err := coordinator.NewOrchestrator(uuid.NewString(), payload, steps, m.sagaLog).Start(ctx); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "settlement failed")
		return err
	}
	return nil
}

// Back steps one stage backward. Going back from the cart stage exits the flow.
func (m *Machine) Back() (Stage, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.editable(); err != nil {
		return m.stage, err
	}
	switch m.stage {
	case StageCart:
		m.stage = StageExited
	case StageAddress:
		m.stage = StageCart
	case StagePayment:
		m.stage = StageAddress
	}
	return m.stage, nil
}

// View is a consistent snapshot of the machine for rendering.
type View struct {
	Stage      Stage            `json:"stage"`
	Processing bool             `json:"processing"`
	CanAdvance bool             `json:"canAdvance"`
	Address    Address          `json:"address"`
	Payment    PaymentSelection `json:"payment"`
	Items      []cart.Item      `json:"items"`
	TotalItems int              `json:"totalItems"`
	Breakdown  Breakdown        `json:"breakdown"`
	Order      *Order           `json:"order,omitempty"`
	LastError  string           `json:"lastError,omitempty"`
}

func (m *Machine) View() View {
	m.mu.Lock()
	defer m.mu.Unlock()

	v := View{
		Stage:      m.stage,
		Processing: m.processing,
		CanAdvance: m.canAdvance(),
		Address:    m.address,
		Payment:    m.payment.masked(),
		Items:      m.basket.Items(),
		TotalItems: m.basket.TotalItems(),
		Breakdown:  Quote(m.basket.TotalPrice()),
		Order:      m.order,
	}
	if m.order != nil {
		v.Breakdown = m.order.Breakdown
		v.TotalItems = m.order.ItemCount
	}
	if m.lastErr != nil {
		v.LastError = m.lastErr.Error()
	}
	return v
}

// LastError is the most recent settlement failure, nil after a success or
// while a new attempt runs.
func (m *Machine) LastError() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lastErr
}

func (m *Machine) canAdvance() bool {
	if m.processing {
		return false
	}
	switch m.stage {
	case StageCart:
		return !m.basket.IsEmpty()
	case StageAddress:
		return m.address.Valid()
	case StagePayment:
		return m.payment.Valid() && !m.basket.IsEmpty()
	default:
		return false
	}
}
