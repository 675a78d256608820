package checkout

import (
	"strconv"
	"time"

	"github.com/shopspring/decimal"
)

var (
	TaxRate     = decimal.RequireFromString("0.18")
	PlatformFee = decimal.RequireFromString("2.99")
	DeliveryFee = decimal.RequireFromString("2.99")
)

// Breakdown is the price summary shown on every checkout stage.
// Total is exact; TotalDisplay is rounded to cents.
type Breakdown struct {
	Subtotal     decimal.Decimal `json:"subtotal"`
	Tax          decimal.Decimal `json:"tax"`
	PlatformFee  decimal.Decimal `json:"platformFee"`
	DeliveryFee  decimal.Decimal `json:"deliveryFee"`
	Total        decimal.Decimal `json:"total"`
	TotalDisplay string          `json:"totalDisplay"`
}

// Quote prices a basket subtotal.
func Quote(subtotal decimal.Decimal) Breakdown {
	tax := subtotal.Mul(TaxRate)
	total := subtotal.Add(tax).Add(PlatformFee).Add(DeliveryFee)
	return Breakdown{
		Subtotal:     subtotal,
		Tax:          tax,
		PlatformFee:  PlatformFee,
		DeliveryFee:  DeliveryFee,
		Total:        total,
		TotalDisplay: total.StringFixed(2),
	}
}

// Order is the result of a successful checkout. It lives only as long as
// the confirmed machine that produced it.
type Order struct {
	ID          string          `json:"orderId"`
	Total       decimal.Decimal `json:"total"`
	Breakdown   Breakdown       `json:"breakdown"`
	PaymentMode PaymentMode     `json:"paymentMode"`
	Address     Address         `json:"address"`
	ItemCount   int             `json:"itemCount"`
	CreatedAt   time.Time       `json:"createdAt"`
}

// NewOrderID derives an order id from the wall clock: "FD" followed by the
// last eight digits of the Unix millisecond timestamp. Two sessions settling
// in the same millisecond collide; acceptable only while orders are not stored.
func NewOrderID(now time.Time) string {
	ms := strconv.FormatInt(now.UnixMilli(), 10)
	if len(ms) > 8 {
		ms = ms[len(ms)-8:]
	}
	return "FD" + ms
}
