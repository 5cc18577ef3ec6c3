package models

import "time"

// CartItem represents a single item in the user's cart.
type CartItem struct {
	ProductID string    `json:"productId" bson:"productId"`
	Name      string    `json:"name" bson:"name"`
	Price     float64   `json:"price" bson:"price"` // unit price at the time it was added
	Quantity  int       `json:"quantity" bson:"quantity"`
	Image     string    `json:"image,omitempty" bson:"image,omitempty"`
	ShopID    string    `json:"shopId,omitempty" bson:"shopId,omitempty"`
	AddedAt   time.Time `json:"addedAt" bson:"addedAt"`
}

// User is the profile document; the cart is embedded.
type User struct {
	ID        string     `json:"id" bson:"_id"`
	Email     string     `json:"email" bson:"email"`
	Name      string     `json:"name,omitempty" bson:"name,omitempty"`
	Phone     string     `json:"phone,omitempty" bson:"phone,omitempty"`
	Role      string     `json:"role,omitempty" bson:"role,omitempty"`
	Cart      []CartItem `json:"cart" bson:"cart"`
	CreatedAt time.Time  `json:"createdAt" bson:"createdAt"`
	UpdatedAt time.Time  `json:"updatedAt" bson:"updatedAt"`
}

// CartTotal sums price*quantity over the cart.
func CartTotal(items []CartItem) float64 {
	var total float64
	for _, it := range items {
		total += it.Price * float64(it.Quantity)
	}
	return total
}
