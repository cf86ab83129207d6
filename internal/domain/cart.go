package domain

import "time"

// CartStatus is the lifecycle state of a cart. A cart is created active and
// transitions to purchased exactly once; once a ticket exists the transition
// is never reversed.
type CartStatus string

const (
	CartStatusActive    CartStatus = "active"
	CartStatusPurchased CartStatus = "purchased"
)

func (s CartStatus) String() string {
	return string(s)
}

// CanPurchase reports whether a checkout may claim the cart.
func (s CartStatus) CanPurchase() bool {
	return s == CartStatusActive
}

type Cart struct {
	ID        string     `bson:"_id,omitempty"`
	UserID    string     `bson:"user_id"`
	Items     []CartItem `bson:"items"`
	Status    CartStatus `bson:"status"`
	CreatedAt time.Time  `bson:"created_at"`
	UpdatedAt time.Time  `bson:"updated_at"`
}

type CartItem struct {
	ProductID string    `bson:"product_id"`
	Quantity  int       `bson:"quantity"`
	AddedAt   time.Time `bson:"added_at"`
}

// ProductIDs returns the distinct product references in cart order.
func (c *Cart) ProductIDs() []string {
	seen := make(map[string]struct{}, len(c.Items))
	ids := make([]string, 0, len(c.Items))
	for _, item := range c.Items {
		if _, ok := seen[item.ProductID]; ok {
			continue
		}
		seen[item.ProductID] = struct{}{}
		ids = append(ids, item.ProductID)
	}
	return ids
}
