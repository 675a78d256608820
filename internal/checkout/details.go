package checkout

import "strings"

// Stage is a step of the checkout flow.
type Stage string

const (
	StageCart         Stage = "cart"
	StageAddress      Stage = "address"
	StagePayment      Stage = "payment"
	StageConfirmation Stage = "confirmation"
	// StageExited is reached by going back from the cart stage.
	StageExited Stage = "exited"
)

func (s Stage) terminal() bool {
	return s == StageConfirmation || s == StageExited
}

// Address is the delivery destination captured during checkout.
type Address struct {
	Type     string `json:"type"`
	FlatNo   string `json:"flatNo"`
	Street   string `json:"street"`
	Pincode  string `json:"pincode"`
	Landmark string `json:"landmark,omitempty"`
}

// Valid reports whether flat, street and postal code are filled in.
// The landmark is optional.
func (a Address) Valid() bool {
	return notBlank(a.FlatNo) && notBlank(a.Street) && notBlank(a.Pincode)
}

// PaymentMode selects how the order is paid.
type PaymentMode string

const (
	PaymentCOD    PaymentMode = "cod"
	PaymentCard   PaymentMode = "card"
	PaymentWallet PaymentMode = "wallet"
)

// CardDetails are opaque strings; no checksum or expiry validation happens.
type CardDetails struct {
	Name   string `json:"name"`
	Number string `json:"number"`
	Expiry string `json:"expiry"`
	CVV    string `json:"cvv"`
}

// Valid reports whether all four fields are non-empty.
func (c CardDetails) Valid() bool {
	return notBlank(c.Name) && notBlank(c.Number) && notBlank(c.Expiry) && notBlank(c.CVV)
}

// Masked hides everything but the last four digits of the number and drops the CVV.
func (c CardDetails) Masked() CardDetails {
	n := strings.TrimSpace(c.Number)
	if len(n) > 4 {
		n = strings.Repeat("*", len(n)-4) + n[len(n)-4:]
	}
	return CardDetails{Name: c.Name, Number: n, Expiry: c.Expiry}
}

// PaymentSelection is one of three mutually exclusive modes. Card details
// are only required, and only kept, when the mode is card.
type PaymentSelection struct {
	Mode PaymentMode  `json:"mode"`
	Card *CardDetails `json:"card,omitempty"`
}

func (p PaymentSelection) Valid() bool {
	switch p.Mode {
	case PaymentCOD, PaymentWallet:
		return true
	case PaymentCard:
		return p.Card != nil && p.Card.Valid()
	default:
		return false
	}
}

func (p PaymentSelection) masked() PaymentSelection {
	if p.Card == nil {
		return p
	}
	c := p.Card.Masked()
	return PaymentSelection{Mode: p.Mode, Card: &c}
}

// notBlank only checks for the empty string; whitespace counts as content.
func notBlank(s string) bool {
	return s != ""
}
