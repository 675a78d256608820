// Package catalog serves the read-only restaurant and menu data the cart
// draws its items from.
package catalog

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"slices"
	"strings"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"

	"github.com/jcmexdev/foodie-storefront/internal/cart"
)

//go:embed seed.yaml
var seed []byte

var (
	ErrRestaurantNotFound = errors.New("restaurant not found")
	ErrItemNotFound       = errors.New("menu item not found")
)

type MenuItem struct {
	ID          string          `json:"id"`
	Name        string          `json:"name"`
	Price       decimal.Decimal `json:"price"`
	Description string          `json:"description"`
	IsVeg       bool            `json:"isVeg"`
	Image       string          `json:"image"`
}

type Category struct {
	Name  string     `json:"name"`
	Items []MenuItem `json:"items"`
}

type Restaurant struct {
	ID           string          `json:"id"`
	Name         string          `json:"name"`
	Cuisine      string          `json:"cuisine"`
	Rating       float64         `json:"rating"`
	Reviews      int             `json:"reviews"`
	DeliveryTime string          `json:"deliveryTime"`
	DeliveryFee  decimal.Decimal `json:"deliveryFee"`
	Address      string          `json:"address"`
	Image        string          `json:"image"`
	Description  string          `json:"description"`
	IsVeg        bool            `json:"isVeg"`
	Tags         []string        `json:"tags"`
	Menu         []Category      `json:"menu,omitempty"`
}

// Catalog is immutable after Load and safe for concurrent reads.
type Catalog struct {
	restaurants []Restaurant
	byID        map[string]int
}

// Load reads the catalog from path, or the embedded seed when path is empty.
func Load(path string) (*Catalog, error) {
	if path == "" {
		return Parse(seed)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read catalog %s: %w", path, err)
	}
	return Parse(data)
}

type rawItem struct {
	ID          string `yaml:"id"`
	Name        string `yaml:"name"`
	Price       string `yaml:"price"`
	Description string `yaml:"description"`
	IsVeg       bool   `yaml:"isVeg"`
	Image       string `yaml:"image"`
}

type rawRestaurant struct {
	ID           string   `yaml:"id"`
	Name         string   `yaml:"name"`
	Cuisine      string   `yaml:"cuisine"`
	Rating       float64  `yaml:"rating"`
	Reviews      int      `yaml:"reviews"`
	DeliveryTime string   `yaml:"deliveryTime"`
	DeliveryFee  string   `yaml:"deliveryFee"`
	Address      string   `yaml:"address"`
	Image        string   `yaml:"image"`
	Description  string   `yaml:"description"`
	IsVeg        bool     `yaml:"isVeg"`
	Tags         []string `yaml:"tags"`
	Menu         []struct {
		Name  string    `yaml:"name"`
		Items []rawItem `yaml:"items"`
	} `yaml:"menu"`
}

// Parse decodes catalog YAML. Restaurant ids and item ids must be unique
// across the whole catalog, since the cart keys entries by item id alone.
func Parse(data []byte) (*Catalog, error) {
	var doc struct {
		Restaurants []rawRestaurant `yaml:"restaurants"`
	}
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("decode catalog: %w", err)
	}

	c := &Catalog{byID: make(map[string]int, len(doc.Restaurants))}
	itemIDs := make(map[string]string)
	for _, rr := range doc.Restaurants {
		if rr.ID == "" {
			return nil, fmt.Errorf("restaurant %q has no id", rr.Name)
		}
		if _, dup := c.byID[rr.ID]; dup {
			return nil, fmt.Errorf("duplicate restaurant id %q", rr.ID)
		}
		fee, err := parseMoney(rr.DeliveryFee)
		if err != nil {
			return nil, fmt.Errorf("restaurant %s delivery fee: %w", rr.ID, err)
		}
		r := Restaurant{
			ID:           rr.ID,
			Name:         rr.Name,
			Cuisine:      rr.Cuisine,
			Rating:       rr.Rating,
			Reviews:      rr.Reviews,
			DeliveryTime: rr.DeliveryTime,
			DeliveryFee:  fee,
			Address:      rr.Address,
			Image:        rr.Image,
			Description:  rr.Description,
			IsVeg:        rr.IsVeg,
			Tags:         rr.Tags,
		}
		for _, rc := range rr.Menu {
			cat := Category{Name: rc.Name}
			for _, ri := range rc.Items {
				if owner, dup := itemIDs[ri.ID]; dup {
					return nil, fmt.Errorf("item id %q used by restaurants %s and %s", ri.ID, owner, rr.ID)
				}
				itemIDs[ri.ID] = rr.ID
				price, err := parseMoney(ri.Price)
				if err != nil {
					return nil, fmt.Errorf("item %s price: %w", ri.ID, err)
				}
				cat.Items = append(cat.Items, MenuItem{
					ID:          ri.ID,
					Name:        ri.Name,
					Price:       price,
					Description: ri.Description,
					IsVeg:       ri.IsVeg,
					Image:       ri.Image,
				})
			}
			r.Menu = append(r.Menu, cat)
		}
		c.byID[r.ID] = len(c.restaurants)
		c.restaurants = append(c.restaurants, r)
	}
	return c, nil
}

func parseMoney(s string) (decimal.Decimal, error) {
	if s == "" {
		return decimal.Zero, nil
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, err
	}
	if d.IsNegative() {
		return decimal.Zero, fmt.Errorf("negative amount %s", s)
	}
	return d, nil
}

// Sort orders for Query.
const (
	SortRating       = "rating"
	SortDeliveryTime = "deliveryTime"
	SortDeliveryFee  = "deliveryFee"
)

// Query filters the restaurant listing. Zero value lists everything in
// catalog order.
type Query struct {
	Search  string
	Cuisine string
	SortBy  string
}

// Restaurants lists restaurants matching q, without their menus.
func (c *Catalog) Restaurants(q Query) []Restaurant {
	search := strings.ToLower(strings.TrimSpace(q.Search))
	cuisine := strings.ToLower(strings.TrimSpace(q.Cuisine))

	out := make([]Restaurant, 0, len(c.restaurants))
	for _, r := range c.restaurants {
		if search != "" &&
			!strings.Contains(strings.ToLower(r.Name), search) &&
			!strings.Contains(strings.ToLower(r.Cuisine), search) {
			continue
		}
		if cuisine != "" && cuisine != "all" && strings.ToLower(r.Cuisine) != cuisine {
			continue
		}
		r.Menu = nil
		out = append(out, r)
	}

	switch q.SortBy {
	case SortRating:
		slices.SortStableFunc(out, func(a, b Restaurant) int {
			switch {
			case a.Rating > b.Rating:
				return -1
			case a.Rating < b.Rating:
				return 1
			}
			return 0
		})
	case SortDeliveryTime:
		slices.SortStableFunc(out, func(a, b Restaurant) int {
			return minMinutes(a.DeliveryTime) - minMinutes(b.DeliveryTime)
		})
	case SortDeliveryFee:
		slices.SortStableFunc(out, func(a, b Restaurant) int {
			return a.DeliveryFee.Cmp(b.DeliveryFee)
		})
	}
	return out
}

// minMinutes reads the leading number of a "25-35 min" window.
func minMinutes(window string) int {
	n := 0
	for _, r := range window {
		if r < '0' || r > '9' {
			break
		}
		n = n*10 + int(r-'0')
	}
	return n
}

// Restaurant returns one restaurant with its menu.
func (c *Catalog) Restaurant(id string) (Restaurant, error) {
	i, ok := c.byID[id]
	if !ok {
		return Restaurant{}, fmt.Errorf("%w: %s", ErrRestaurantNotFound, id)
	}
	return c.restaurants[i], nil
}

// Candidate builds the cart candidate for a menu item of a restaurant.
func (c *Catalog) Candidate(restaurantID, itemID string) (cart.Candidate, error) {
	r, err := c.Restaurant(restaurantID)
	if err != nil {
		return cart.Candidate{}, err
	}
	for _, cat := range r.Menu {
		for _, it := range cat.Items {
			if it.ID != itemID {
				continue
			}
			return cart.Candidate{
				ID:             it.ID,
				Name:           it.Name,
				Price:          it.Price,
				IsVeg:          it.IsVeg,
				Image:          it.Image,
				RestaurantID:   r.ID,
				RestaurantName: r.Name,
			}, nil
		}
	}
	return cart.Candidate{}, fmt.Errorf("%w: %s in restaurant %s", ErrItemNotFound, itemID, restaurantID)
}
