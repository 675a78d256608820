package checkout_test

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jcmexdev/foodie-storefront/internal/cart"
	"github.com/jcmexdev/foodie-storefront/internal/checkout"
	"github.com/jcmexdev/foodie-storefront/internal/coordinator/sagalog"
	"github.com/jcmexdev/foodie-storefront/internal/payment"
	"github.com/jcmexdev/foodie-storefront/internal/pkg/cache"
)

var butterChicken = cart.Candidate{
	ID:             "3",
	Name:           "Butter Chicken",
	Price:          decimal.RequireFromString("14.99"),
	RestaurantID:   "1",
	RestaurantName: "Spice Garden",
}

var validAddress = checkout.Address{Type: "home", FlatNo: "4B", Street: "Park Street", Pincode: "700016"}

func newBasket(t *testing.T, qty int) *cart.Store {
	t.Helper()
	ctx := context.Background()
	s := cart.NewStore(ctx, cache.NewMemoryCache("test"), cart.StorageKey)
	for range qty {
		s.AddItem(ctx, butterChicken)
	}
	return s
}

// blockingCharger holds every charge until release is closed.
type blockingCharger struct {
	started chan struct{}
	release chan struct{}
}

func (b *blockingCharger) Charge(ctx context.Context, _ string, _ decimal.Decimal, _ string) error {
	close(b.started)
	<-b.release
	return nil
}

func (b *blockingCharger) Refund(context.Context, string) error { return nil }

func TestNew_EmptyCart(t *testing.T) {
	_, err := checkout.New(newBasket(t, 0), payment.NewSettler(0, decimal.Zero))
	assert.ErrorIs(t, err, checkout.ErrEmptyCart)
}

func TestCheckout_HappyPath(t *testing.T) {
	ctx := context.Background()
	basket := newBasket(t, 2)
	settler := payment.NewSettler(0, decimal.Zero)
	repo := sagalog.NewMemoryRepository()
	clock := func() time.Time { return time.UnixMilli(1718000123456) }

	m, err := checkout.New(basket, settler, checkout.WithSagaLog(repo), checkout.WithClock(clock))
	require.NoError(t, err)

	v := m.View()
	assert.Equal(t, checkout.StageCart, v.Stage)
	assert.True(t, v.CanAdvance)
	assert.Equal(t, "41.36", v.Breakdown.TotalDisplay)
	assert.True(t, v.Breakdown.Total.Equal(decimal.RequireFromString("41.3564")))

	stage, err := m.Advance(ctx)
	require.NoError(t, err)
	assert.Equal(t, checkout.StageAddress, stage)

	require.NoError(t, m.SetAddress(validAddress))
	stage, err = m.Advance(ctx)
	require.NoError(t, err)
	assert.Equal(t, checkout.StagePayment, stage)

	stage, err = m.Advance(ctx)
	require.NoError(t, err)
	assert.Equal(t, checkout.StageConfirmation, stage)

	v = m.View()
	require.NotNil(t, v.Order)
	assert.Equal(t, "FD00123456", v.Order.ID)
	assert.Equal(t, checkout.PaymentCOD, v.Order.PaymentMode)
	assert.Equal(t, 2, v.Order.ItemCount)
	assert.Equal(t, "41.36", v.Breakdown.TotalDisplay)
	assert.True(t, basket.IsEmpty())
	assert.True(t, m.Closed())

	charged, ok := settler.Charged("FD00123456")
	require.True(t, ok)
	assert.True(t, charged.Equal(decimal.RequireFromString("41.3564")))

	_, err = m.Advance(ctx)
	assert.ErrorIs(t, err, checkout.ErrCheckoutClosed)
	_, err = m.Back()
	assert.ErrorIs(t, err, checkout.ErrCheckoutClosed)
}

func TestCheckout_AddressGate(t *testing.T) {
	ctx := context.Background()
	m, err := checkout.New(newBasket(t, 1), payment.NewSettler(0, decimal.Zero))
	require.NoError(t, err)
	_, err = m.Advance(ctx)
	require.NoError(t, err)

	require.NoError(t, m.SetAddress(checkout.Address{FlatNo: "4B", Street: "Park Street"}))
	assert.False(t, m.View().CanAdvance)

	stage, err := m.Advance(ctx)
	assert.ErrorIs(t, err, checkout.ErrInvalidAddress)
	assert.Equal(t, checkout.StageAddress, stage)
}

func TestCheckout_CardGate(t *testing.T) {
	ctx := context.Background()
	m, err := checkout.New(newBasket(t, 1), payment.NewSettler(0, decimal.Zero))
	require.NoError(t, err)
	_, _ = m.Advance(ctx)
	require.NoError(t, m.SetAddress(validAddress))
	_, _ = m.Advance(ctx)

	require.NoError(t, m.SetPayment(checkout.PaymentSelection{
		Mode: checkout.PaymentCard,
		Card: &checkout.CardDetails{Name: "R K", Number: "4111111111111111", Expiry: "09/29"},
	}))
	stage, err := m.Advance(ctx)
	assert.ErrorIs(t, err, checkout.ErrInvalidPayment)
	assert.Equal(t, checkout.StagePayment, stage)

	require.NoError(t, m.SetPayment(checkout.PaymentSelection{
		Mode: checkout.PaymentCard,
		Card: &checkout.CardDetails{Name: "R K", Number: "4111111111111111", Expiry: "09/29", CVV: "321"},
	}))
	v := m.View()
	assert.True(t, v.CanAdvance)
	assert.Equal(t, "************1111", v.Payment.Card.Number)
	assert.Empty(t, v.Payment.Card.CVV)

	stage, err = m.Advance(ctx)
	require.NoError(t, err)
	assert.Equal(t, checkout.StageConfirmation, stage)
}

func TestCheckout_WalletDropsCard(t *testing.T) {
	m, err := checkout.New(newBasket(t, 1), payment.NewSettler(0, decimal.Zero))
	require.NoError(t, err)
	require.NoError(t, m.SetPayment(checkout.PaymentSelection{
		Mode: checkout.PaymentWallet,
		Card: &checkout.CardDetails{Number: "4111"},
	}))
	assert.Nil(t, m.View().Payment.Card)
}

func TestCheckout_SettlementFailureKeepsCart(t *testing.T) {
	ctx := context.Background()
	basket := newBasket(t, 2)
	repo := sagalog.NewMemoryRepository()
	m, err := checkout.New(basket, payment.NewSettler(0, decimal.NewFromInt(10)), checkout.WithSagaLog(repo))
	require.NoError(t, err)
	_, _ = m.Advance(ctx)
	require.NoError(t, m.SetAddress(validAddress))
	_, _ = m.Advance(ctx)

	stage, err := m.Advance(ctx)
	assert.ErrorIs(t, err, checkout.ErrSettlementFailed)
	assert.ErrorIs(t, err, payment.ErrDeclined)
	assert.Equal(t, checkout.StagePayment, stage)
	assert.Equal(t, 2, basket.TotalItems())

	v := m.View()
	assert.Nil(t, v.Order)
	assert.NotEmpty(t, v.LastError)
	assert.False(t, v.Processing)
	assert.True(t, v.CanAdvance)
}

func TestCheckout_InProgressRefusesTransitions(t *testing.T) {
	ctx := context.Background()
	charger := &blockingCharger{started: make(chan struct{}), release: make(chan struct{})}
	m, err := checkout.New(newBasket(t, 1), charger)
	require.NoError(t, err)
	_, _ = m.Advance(ctx)
	require.NoError(t, m.SetAddress(validAddress))
	_, _ = m.Advance(ctx)

	done := make(chan error, 1)
	go func() {
		_, err := m.Advance(ctx)
		done <- err
	}()
	<-charger.started

	assert.True(t, m.View().Processing)
	_, err = m.Advance(ctx)
	assert.ErrorIs(t, err, checkout.ErrSettlementInProgress)
	_, err = m.Back()
	assert.ErrorIs(t, err, checkout.ErrSettlementInProgress)
	assert.ErrorIs(t, m.SetAddress(validAddress), checkout.ErrSettlementInProgress)

	close(charger.release)
	require.NoError(t, <-done)
	assert.Equal(t, checkout.StageConfirmation, m.Stage())
}

func TestCheckout_ItemsAddedDuringSettlementStayInCart(t *testing.T) {
	ctx := context.Background()
	basket := newBasket(t, 1)
	charger := &blockingCharger{started: make(chan struct{}), release: make(chan struct{})}
	m, err := checkout.New(basket, charger)
	require.NoError(t, err)
	_, _ = m.Advance(ctx)
	require.NoError(t, m.SetAddress(validAddress))
	_, _ = m.Advance(ctx)

	done := make(chan error, 1)
	go func() {
		_, err := m.Advance(ctx)
		done <- err
	}()
	<-charger.started

	basket.AddItem(ctx, cart.Candidate{
		ID:             "9",
		Name:           "Family Feast",
		Price:          decimal.NewFromInt(100),
		RestaurantID:   "1",
		RestaurantName: "Spice Garden",
	})
	close(charger.release)
	require.NoError(t, <-done)

	v := m.View()
	require.NotNil(t, v.Order)
	assert.Equal(t, "23.67", v.Order.Breakdown.TotalDisplay)
	assert.Equal(t, 1, v.Order.ItemCount)

	items := basket.Items()
	require.Len(t, items, 1)
	assert.Equal(t, "9", items[0].ID)
	assert.Equal(t, 1, items[0].Quantity)
}

func TestCheckout_SettlementSurvivesCanceledRequest(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	m, err := checkout.New(newBasket(t, 1), payment.NewSettler(20*time.Millisecond, decimal.Zero))
	require.NoError(t, err)
	_, _ = m.Advance(ctx)
	require.NoError(t, m.SetAddress(validAddress))
	_, _ = m.Advance(ctx)

	cancel()
	stage, err := m.Advance(ctx)
	require.NoError(t, err)
	assert.Equal(t, checkout.StageConfirmation, stage)
}

func TestCheckout_Back(t *testing.T) {
	ctx := context.Background()
	m, err := checkout.New(newBasket(t, 1), payment.NewSettler(0, decimal.Zero))
	require.NoError(t, err)
	_, _ = m.Advance(ctx)
	require.NoError(t, m.SetAddress(validAddress))
	_, _ = m.Advance(ctx)

	for _, want := range []checkout.Stage{checkout.StageAddress, checkout.StageCart, checkout.StageExited} {
		stage, err := m.Back()
		require.NoError(t, err)
		assert.Equal(t, want, stage)
	}
	assert.True(t, m.Closed())
	assert.Equal(t, validAddress, m.View().Address)
}

func TestCheckout_CartEmptiedMidFlow(t *testing.T) {
	ctx := context.Background()
	basket := newBasket(t, 1)
	m, err := checkout.New(basket, payment.NewSettler(0, decimal.Zero))
	require.NoError(t, err)
	_, _ = m.Advance(ctx)
	require.NoError(t, m.SetAddress(validAddress))
	_, _ = m.Advance(ctx)

	basket.Clear(ctx)
	stage, err := m.Advance(ctx)
	assert.ErrorIs(t, err, checkout.ErrEmptyCart)
	assert.Equal(t, checkout.StagePayment, stage)
}
