package cart

import "github.com/shopspring/decimal"

// StorageKey is the fixed key the basket snapshot is persisted under.
const StorageKey = "foodie-cart"

// Item is a purchasable menu item bound to one restaurant, as held in the basket.
type Item struct {
	ID             string          `json:"id"`
	Name           string          `json:"name"`
	Price          decimal.Decimal `json:"price"`
	Quantity       int             `json:"quantity"`
	IsVeg          bool            `json:"isVeg"`
	Image          string          `json:"image"`
	RestaurantID   string          `json:"restaurantId"`
	RestaurantName string          `json:"restaurantName"`
}

// Subtotal is the unit price multiplied by the quantity.
func (i Item) Subtotal() decimal.Decimal {
	return i.Price.Mul(decimal.NewFromInt(int64(i.Quantity)))
}

// Candidate is what a menu view hands to AddItem: an Item without a quantity.
type Candidate struct {
	ID             string
	Name           string
	Price          decimal.Decimal
	IsVeg          bool
	Image          string
	RestaurantID   string
	RestaurantName string
}

func (c Candidate) toItem() Item {
	return Item{
		ID:             c.ID,
		Name:           c.Name,
		Price:          c.Price,
		Quantity:       1,
		IsVeg:          c.IsVeg,
		Image:          c.Image,
		RestaurantID:   c.RestaurantID,
		RestaurantName: c.RestaurantName,
	}
}
