package models

import "time"

// OrderStatus values. delivered and cancelled are terminal.
const (
	StatusPending        = "pending"
	StatusConfirmed      = "confirmed"
	StatusPreparing      = "preparing"
	StatusReady          = "ready"
	StatusOutForDelivery = "out_for_delivery"
	StatusDelivered      = "delivered"
	StatusCancelled      = "cancelled"
)

// IsTerminal reports whether no further transition is expected from status.
func IsTerminal(status string) bool {
	return status == StatusDelivered || status == StatusCancelled
}

// TimelineEntry is one append-only step in an order's history.
type TimelineEntry struct {
	Step        string    `json:"step" bson:"step"`
	Status      string    `json:"status" bson:"status"`
	Timestamp   time.Time `json:"timestamp" bson:"timestamp"`
	Description string    `json:"description" bson:"description"`
	UpdatedBy   string    `json:"updatedBy" bson:"updatedBy"`
}

// OrderSummary holds the money side of an order.
type OrderSummary struct {
	Subtotal    float64 `json:"subtotal" bson:"subtotal"`
	DeliveryFee float64 `json:"deliveryFee" bson:"deliveryFee"`
	Tax         float64 `json:"tax" bson:"tax"`
	Total       float64 `json:"total" bson:"total"`
	Currency    string  `json:"currency" bson:"currency"`
}

// Order is the header document in the orders collection. Address, payment
// and line items live in their own collections and are joined on read.
type Order struct {
	ID             string          `json:"id" bson:"_id"`
	OrderNumber    string          `json:"orderNumber,omitempty" bson:"orderNumber,omitempty"`
	UserID         string          `json:"userId" bson:"userId"`
	ShopID         string          `json:"shopId" bson:"shopId"`
	TrackingID     string          `json:"trackingId" bson:"trackingId"`
	Status         string          `json:"status" bson:"status"`
	OrderStatus    string          `json:"orderStatus" bson:"orderStatus"`
	DeliveryStatus string          `json:"deliveryStatus" bson:"deliveryStatus"`
	OrderSummary   OrderSummary    `json:"orderSummary" bson:"orderSummary"`
	AddressID      string          `json:"addressId" bson:"addressId"`
	PaymentID      string          `json:"paymentId" bson:"paymentId"`
	ItemsCount     int             `json:"itemsCount" bson:"itemsCount"`
	Notes          string          `json:"notes,omitempty" bson:"notes,omitempty"`
	Timeline       []TimelineEntry `json:"timeline" bson:"timeline"`
	CreatedAt      time.Time       `json:"createdAt" bson:"createdAt"`
	UpdatedAt      time.Time       `json:"updatedAt" bson:"updatedAt"`

	// Filled by enrichment, never stored on the header.
	Address *Address    `json:"address,omitempty" bson:"-"`
	Payment *Payment    `json:"payment,omitempty" bson:"-"`
	Items   []OrderItem `json:"items,omitempty" bson:"-"`
}

// ShopOrder is the denormalised mirror of an Order kept for shop-side
// queries. It has its own document id; OrderID points at the header.
type ShopOrder struct {
	ID             string          `json:"id" bson:"_id"`
	OrderID        string          `json:"orderId" bson:"orderId"`
	OrderNumber    string          `json:"orderNumber,omitempty" bson:"orderNumber,omitempty"`
	UserID         string          `json:"userId" bson:"userId"`
	ShopID         string          `json:"shopId" bson:"shopId"`
	TrackingID     string          `json:"trackingId" bson:"trackingId"`
	Status         string          `json:"status" bson:"status"`
	OrderStatus    string          `json:"orderStatus" bson:"orderStatus"`
	DeliveryStatus string          `json:"deliveryStatus" bson:"deliveryStatus"`
	OrderSummary   OrderSummary    `json:"orderSummary" bson:"orderSummary"`
	AddressID      string          `json:"addressId" bson:"addressId"`
	PaymentID      string          `json:"paymentId" bson:"paymentId"`
	ItemsCount     int             `json:"itemsCount" bson:"itemsCount"`
	Items          []OrderItem     `json:"items" bson:"items"`
	Timeline       []TimelineEntry `json:"timeline" bson:"timeline"`
	CreatedAt      time.Time       `json:"createdAt" bson:"createdAt"`
	UpdatedAt      time.Time       `json:"updatedAt" bson:"updatedAt"`
}

// NewShopOrder copies the header fields of o into a mirror document.
func NewShopOrder(id string, o Order, items []OrderItem) ShopOrder {
	return ShopOrder{
		ID:             id,
		OrderID:        o.ID,
		OrderNumber:    o.OrderNumber,
		UserID:         o.UserID,
		ShopID:         o.ShopID,
		TrackingID:     o.TrackingID,
		Status:         o.Status,
		OrderStatus:    o.OrderStatus,
		DeliveryStatus: o.DeliveryStatus,
		OrderSummary:   o.OrderSummary,
		AddressID:      o.AddressID,
		PaymentID:      o.PaymentID,
		ItemsCount:     o.ItemsCount,
		Items:          items,
		Timeline:       o.Timeline,
		CreatedAt:      o.CreatedAt,
		UpdatedAt:      o.UpdatedAt,
	}
}

// AsOrder turns a mirror back into an Order keyed by the header id.
// Mirrors written before the orderId field existed fall back to their own id.
func (s ShopOrder) AsOrder() Order {
	id := s.OrderID
	if id == "" {
		id = s.ID
	}
	return Order{
		ID:             id,
		OrderNumber:    s.OrderNumber,
		UserID:         s.UserID,
		ShopID:         s.ShopID,
		TrackingID:     s.TrackingID,
		Status:         s.Status,
		OrderStatus:    s.OrderStatus,
		DeliveryStatus: s.DeliveryStatus,
		OrderSummary:   s.OrderSummary,
		AddressID:      s.AddressID,
		PaymentID:      s.PaymentID,
		ItemsCount:     s.ItemsCount,
		Timeline:       s.Timeline,
		CreatedAt:      s.CreatedAt,
		UpdatedAt:      s.UpdatedAt,
		Items:          s.Items,
	}
}

// OrderItem is one line of an order, stored one document per line.
type OrderItem struct {
	ID        string  `json:"id" bson:"_id"`
	OrderID   string  `json:"orderId" bson:"orderId"`
	ProductID string  `json:"productId" bson:"productId"`
	Name      string  `json:"name" bson:"name"`
	Price     float64 `json:"price" bson:"price"`
	Quantity  int     `json:"quantity" bson:"quantity"`
	Image     string  `json:"image,omitempty" bson:"image,omitempty"`
	LineTotal float64 `json:"lineTotal" bson:"lineTotal"`
}

// Address holds shipping and contact details for one order.
type Address struct {
	ID         string    `json:"id" bson:"_id"`
	OrderID    string    `json:"orderId" bson:"orderId"`
	UserID     string    `json:"userId" bson:"userId"`
	FullName   string    `json:"fullName" bson:"fullName"`
	Email      string    `json:"email" bson:"email"`
	Phone      string    `json:"phone" bson:"phone"`
	Line1      string    `json:"line1" bson:"line1"`
	Line2      string    `json:"line2,omitempty" bson:"line2,omitempty"`
	City       string    `json:"city" bson:"city"`
	State      string    `json:"state" bson:"state"`
	PostalCode string    `json:"postalCode" bson:"postalCode"`
	Country    string    `json:"country" bson:"country"`
	CreatedAt  time.Time `json:"createdAt" bson:"createdAt"`
}

// Payment holds masked card metadata; the full card number is never stored.
type Payment struct {
	ID         string  `json:"id" bson:"_id"`
	OrderID    string  `json:"orderId" bson:"orderId"`
	UserID     string  `json:"userId" bson:"userId"`
	Method     string  `json:"method" bson:"method"` // card, cod
	CardBrand  string  `json:"cardBrand,omitempty" bson:"cardBrand,omitempty"`
	CardLast4  string  `json:"cardLast4,omitempty" bson:"cardLast4,omitempty"`
	CardHolder string  `json:"cardHolder,omitempty" bson:"cardHolder,omitempty"`
	Amount     float64 `json:"amount" bson:"amount"`
	Currency   string  `json:"currency" bson:"currency"`
	Status     string  `json:"status" bson:"status"` // pending, authorized, failed
	GatewayRef string  `json:"gatewayRef,omitempty" bson:"gatewayRef,omitempty"`
	// set once the client proves the gateway captured the payment
	GatewayPaymentID string    `json:"gatewayPaymentId,omitempty" bson:"gatewayPaymentId,omitempty"`
	CreatedAt        time.Time `json:"createdAt" bson:"createdAt"`
}

// DeliveryUpdate is one append-only entry in a tracking record.
type DeliveryUpdate struct {
	Status    string    `json:"status" bson:"status"`
	Location  string    `json:"location,omitempty" bson:"location,omitempty"`
	Note      string    `json:"note,omitempty" bson:"note,omitempty"`
	Timestamp time.Time `json:"timestamp" bson:"timestamp"`
	UpdatedBy string    `json:"updatedBy,omitempty" bson:"updatedBy,omitempty"`
}

// DeliveryTracking is the per-order delivery side table.
type DeliveryTracking struct {
	ID                string           `json:"id" bson:"_id"`
	OrderID           string           `json:"orderId" bson:"orderId"`
	TrackingID        string           `json:"trackingId" bson:"trackingId"`
	UserID            string           `json:"userId" bson:"userId"`
	CurrentStatus     string           `json:"currentStatus" bson:"currentStatus"`
	CurrentLocation   string           `json:"currentLocation" bson:"currentLocation"`
	EstimatedDelivery time.Time        `json:"estimatedDelivery" bson:"estimatedDelivery"`
	DeliveryUpdates   []DeliveryUpdate `json:"deliveryUpdates" bson:"deliveryUpdates"`
	CreatedAt         time.Time        `json:"createdAt" bson:"createdAt"`
	UpdatedAt         time.Time        `json:"updatedAt" bson:"updatedAt"`
}
