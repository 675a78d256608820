package httpx

import (
	"encoding/json"

	"github.com/shopspring/decimal"

	"github.com/jcmexdev/foodie-storefront/internal/cart"
	"github.com/jcmexdev/foodie-storefront/internal/checkout"
)

type AddItemRequest struct {
	RestaurantID string `json:"restaurantId"`
	ItemID       string `json:"itemId"`
}

type UpdateQuantityRequest struct {
	Quantity *int `json:"quantity"`
}

type CartResponse struct {
	Items        []cart.Item     `json:"items"`
	TotalItems   int             `json:"totalItems"`
	TotalPrice   decimal.Decimal `json:"totalPrice"`
	TotalDisplay string          `json:"totalDisplay"`
}

type PaymentRequest struct {
	Mode checkout.PaymentMode  `json:"mode"`
	Card *checkout.CardDetails `json:"card,omitempty"`
}

// EmptyCheckoutResponse is rendered instead of a checkout when the cart
// has nothing in it.
type EmptyCheckoutResponse struct {
	Stage string `json:"stage"`
}

// ChatRequest keeps messages raw so a value that is not an array can be
// rejected like a missing one.
type ChatRequest struct {
	Messages json.RawMessage `json:"messages"`
}

type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}

// CheckoutErrorResponse carries the refused transition's reason together
// with the machine state it left behind.
type CheckoutErrorResponse struct {
	ErrorResponse
	Checkout checkout.View `json:"checkout"`
}

func mapCart(s *cart.Store) CartResponse {
	total := s.TotalPrice()
	return CartResponse{
		Items:        s.Items(),
		TotalItems:   s.TotalItems(),
		TotalPrice:   total,
		TotalDisplay: total.StringFixed(2),
	}
}
