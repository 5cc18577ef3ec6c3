package models

import "time"

// Product is a catalogue entry. Deleting a product only clears IsActive.
type Product struct {
	ID            string    `json:"id" bson:"_id"`
	Name          string    `json:"name" bson:"name"`
	Description   string    `json:"description" bson:"description"`
	Category      string    `json:"category" bson:"category"`
	Price         float64   `json:"price" bson:"price"`
	Unit          string    `json:"unit,omitempty" bson:"unit,omitempty"` // e.g. "loaf", "dozen"
	Images        []string  `json:"images" bson:"images"`
	Thumbnail     string    `json:"thumbnail,omitempty" bson:"thumbnail,omitempty"`
	ShopID        string    `json:"shopId" bson:"shopId"`
	Tags          []string  `json:"tags,omitempty" bson:"tags,omitempty"`
	Allergens     []string  `json:"allergens,omitempty" bson:"allergens,omitempty"`
	Featured      bool      `json:"featured" bson:"featured"`
	InStock       bool      `json:"inStock" bson:"inStock"`
	IsActive      bool      `json:"isActive" bson:"isActive"`
	AverageRating float64   `json:"averageRating" bson:"averageRating"`
	ReviewCount   int       `json:"reviewCount" bson:"reviewCount"`
	CreatedAt     time.Time `json:"createdAt" bson:"createdAt"`
	UpdatedAt     time.Time `json:"updatedAt" bson:"updatedAt"`
}

// Review is a user's rating of a product.
type Review struct {
	ID        string    `json:"id" bson:"_id"`
	ProductID string    `json:"productId" bson:"productId"`
	UserID    string    `json:"userId" bson:"userId"`
	UserName  string    `json:"userName,omitempty" bson:"userName,omitempty"`
	Rating    int       `json:"rating" bson:"rating"` // 1..5
	Comment   string    `json:"comment" bson:"comment"`
	IsActive  bool      `json:"isActive" bson:"isActive"`
	CreatedAt time.Time `json:"createdAt" bson:"createdAt"`
}

// Category groups products in the storefront navigation.
type Category struct {
	ID        string `json:"id" bson:"_id"`
	Slug      string `json:"slug" bson:"slug"`
	Name      string `json:"name" bson:"name"`
	SortOrder int    `json:"sortOrder" bson:"sortOrder"`
	IsActive  bool   `json:"isActive" bson:"isActive"`
}

// StoreSettings is the single settings document used for order totals.
type StoreSettings struct {
	ID                    string    `json:"id" bson:"_id"`
	StoreName             string    `json:"storeName" bson:"storeName"`
	Currency              string    `json:"currency" bson:"currency"`
	DeliveryFee           float64   `json:"deliveryFee" bson:"deliveryFee"`
	FreeDeliveryThreshold float64   `json:"freeDeliveryThreshold" bson:"freeDeliveryThreshold"`
	TaxRate               float64   `json:"taxRate" bson:"taxRate"`
	UpdatedAt             time.Time `json:"updatedAt" bson:"updatedAt"`
}

// IdempotencyRecord represents an idempotency key record.
type IdempotencyRecord struct {
	Key         string    `bson:"_id" json:"key"`
	Method      string    `bson:"method" json:"method"`
	Path        string    `bson:"path" json:"path"`
	UserID      string    `bson:"userid" json:"userid"`
	RequestHash string    `bson:"request_hash" json:"request_hash"`
	Status      int       `bson:"status,omitempty" json:"status,omitempty"`
	Body        []byte    `bson:"body,omitempty" json:"-"`
	Done        bool      `bson:"done" json:"done"`
	CreatedAt   time.Time `bson:"created_at" json:"created_at"`
	ExpiresAt   time.Time `bson:"expires_at" json:"expires_at"`
}
