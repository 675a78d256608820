package httpx_test

import (
	"net/http"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jcmexdev/foodie-storefront/internal/checkout"
	"github.com/jcmexdev/foodie-storefront/internal/storefront/httpx"
)

type checkoutError struct {
	httpx.ErrorResponse
	Checkout checkout.View `json:"checkout"`
}

const validAddress = `{"type":"home","flatNo":"4B","street":"Park Street","pincode":"700016"}`

func TestCheckout_EmptyCartRendersEmptyState(t *testing.T) {
	f := newFixture(t, options{})

	rec := f.do(t, http.MethodPost, "/api/checkout", "s1", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"stage":"empty"}`, rec.Body.String())

	rec = f.do(t, http.MethodGet, "/api/checkout", "s1", "")
	assert.JSONEq(t, `{"stage":"empty"}`, rec.Body.String())

	rec = f.do(t, http.MethodPost, "/api/checkout/advance", "s1", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestCheckout_PricingOfTwoButterChicken(t *testing.T) {
	f := newFixture(t, options{})
	f.do(t, http.MethodPost, "/api/cart/items", "s1", `{"restaurantId":"1","itemId":"3"}`)
	f.do(t, http.MethodPost, "/api/cart/items", "s1", `{"restaurantId":"1","itemId":"3"}`)

	rec := f.do(t, http.MethodPost, "/api/checkout", "s1", "")
	require.Equal(t, http.StatusOK, rec.Code)
	v := decode[checkout.View](t, rec)

	assert.Equal(t, checkout.StageCart, v.Stage)
	assert.True(t, v.Breakdown.Subtotal.Equal(decimal.RequireFromString("29.98")))
	assert.True(t, v.Breakdown.Tax.Equal(decimal.RequireFromString("5.3964")))
	assert.True(t, v.Breakdown.Total.Equal(decimal.RequireFromString("41.3564")))
	assert.Equal(t, "41.36", v.Breakdown.TotalDisplay)
}

func TestCheckout_FullFlow(t *testing.T) {
	f := newFixture(t, options{})
	f.do(t, http.MethodPost, "/api/cart/items", "s1", `{"restaurantId":"1","itemId":"5"}`)
	f.do(t, http.MethodPost, "/api/checkout", "s1", "")

	rec := f.do(t, http.MethodPost, "/api/checkout/advance", "s1", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, checkout.StageAddress, decode[checkout.View](t, rec).Stage)

	// postal code missing
	f.do(t, http.MethodPut, "/api/checkout/address", "s1", `{"flatNo":"4B","street":"Park Street"}`)
	rec = f.do(t, http.MethodPost, "/api/checkout/advance", "s1", "")
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	ce := decode[checkoutError](t, rec)
	assert.Equal(t, "invalid_address", ce.Error)
	assert.Equal(t, checkout.StageAddress, ce.Checkout.Stage)

	f.do(t, http.MethodPut, "/api/checkout/address", "s1", validAddress)
	rec = f.do(t, http.MethodPost, "/api/checkout/advance", "s1", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, checkout.StagePayment, decode[checkout.View](t, rec).Stage)

	// card without cvv blocks progression
	rec = f.do(t, http.MethodPut, "/api/checkout/payment", "s1", `{"mode":"card","card":{"name":"R K","number":"4111111111111111","expiry":"09/29"}}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.False(t, decode[checkout.View](t, rec).CanAdvance)
	rec = f.do(t, http.MethodPost, "/api/checkout/advance", "s1", "")
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	rec = f.do(t, http.MethodPut, "/api/checkout/payment", "s1", `{"mode":"bitcoin"}`)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	f.do(t, http.MethodPut, "/api/checkout/payment", "s1", `{"mode":"wallet"}`)
	rec = f.do(t, http.MethodPost, "/api/checkout/advance", "s1", "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	v := decode[checkout.View](t, rec)
	assert.Equal(t, checkout.StageConfirmation, v.Stage)
	require.NotNil(t, v.Order)
	assert.Regexp(t, `^FD\d{8}$`, v.Order.ID)
	assert.Equal(t, checkout.PaymentWallet, v.Order.PaymentMode)

	cart := decode[httpx.CartResponse](t, f.do(t, http.MethodGet, "/api/cart", "s1", ""))
	assert.Empty(t, cart.Items)

	rec = f.do(t, http.MethodPost, "/api/checkout/back", "s1", "")
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "checkout_closed", decode[checkoutError](t, rec).Error)

	rec = f.do(t, http.MethodGet, "/metrics", "", "")
	assert.Contains(t, rec.Body.String(), `foodie_storefront_checkout_settlements_total{outcome="confirmed"} 1`)
}

func TestCheckout_SettlementFailureIsSurfaced(t *testing.T) {
	f := newFixture(t, options{settlementLimit: decimal.NewFromInt(10)})
	f.do(t, http.MethodPost, "/api/cart/items", "s1", `{"restaurantId":"1","itemId":"5"}`)
	f.do(t, http.MethodPost, "/api/checkout", "s1", "")
	f.do(t, http.MethodPost, "/api/checkout/advance", "s1", "")
	f.do(t, http.MethodPut, "/api/checkout/address", "s1", validAddress)
	f.do(t, http.MethodPost, "/api/checkout/advance", "s1", "")

	rec := f.do(t, http.MethodPost, "/api/checkout/advance", "s1", "")
	require.Equal(t, http.StatusPaymentRequired, rec.Code)
	ce := decode[checkoutError](t, rec)
	assert.Equal(t, "settlement_failed", ce.Error)
	assert.Equal(t, checkout.StagePayment, ce.Checkout.Stage)
	assert.NotEmpty(t, ce.Checkout.LastError)

	cart := decode[httpx.CartResponse](t, f.do(t, http.MethodGet, "/api/cart", "s1", ""))
	assert.Equal(t, 1, cart.TotalItems)
}

func TestCheckout_BackFromCartExits(t *testing.T) {
	f := newFixture(t, options{})
	f.do(t, http.MethodPost, "/api/cart/items", "s1", `{"restaurantId":"1","itemId":"1"}`)
	f.do(t, http.MethodPost, "/api/checkout", "s1", "")

	rec := f.do(t, http.MethodPost, "/api/checkout/back", "s1", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, checkout.StageExited, decode[checkout.View](t, rec).Stage)

	// starting again opens a fresh flow at the cart stage
	rec = f.do(t, http.MethodPost, "/api/checkout", "s1", "")
	assert.Equal(t, checkout.StageCart, decode[checkout.View](t, rec).Stage)
}
