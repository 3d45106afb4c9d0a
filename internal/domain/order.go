package domain

import (
	"time"

	"github.com/google/uuid"
)

// OrderStatus is the lifecycle state of an order. Orders are created as
// Pending and advanced by admin action; they are never deleted in normal flow.
type OrderStatus string

const (
	OrderStatusPending    OrderStatus = "Pending"
	OrderStatusProcessing OrderStatus = "Processing"
	OrderStatusShipped    OrderStatus = "Shipped"
	OrderStatusDelivered  OrderStatus = "Delivered"
	OrderStatusCancelled  OrderStatus = "Cancelled"
)

// Valid reports whether the status is one of the known lifecycle states.
func (s OrderStatus) Valid() bool {
	switch s {
	case OrderStatusPending, OrderStatusProcessing, OrderStatusShipped,
		OrderStatusDelivered, OrderStatusCancelled:
		return true
	}
	return false
}

// ShippingAddress is the structured delivery destination serialized onto
// the order at write time.
type ShippingAddress struct {
	FullName   string `json:"full_name"`
	Email      string `json:"email"`
	Phone      string `json:"phone"`
	Address    string `json:"address"`
	City       string `json:"city"`
	State      string `json:"state"`
	Country    string `json:"country"`
	PostalCode string `json:"postal_code"`
}

// Order is the durable financial record of a checkout. Once created it is
// never lost, even when stock decrements for individual items fail later.
type Order struct {
	ID               uuid.UUID       `json:"id" db:"id"`
	UserID           *uuid.UUID      `json:"user_id" db:"user_id"` // nil for guest checkout
	Status           OrderStatus     `json:"status" db:"status"`
	Total            float64         `json:"total" db:"total"`
	ShippingCost     float64         `json:"shipping_cost" db:"shipping_cost"`
	ShippingAddress  ShippingAddress `json:"shipping_address" db:"shipping_address"`
	PaymentReference string          `json:"payment_reference,omitempty" db:"payment_reference"`
	CreatedAt        time.Time       `json:"created_at" db:"created_at"`
	UpdatedAt        time.Time       `json:"updated_at" db:"updated_at"`
}

// OrderItem is one cart line persisted against an order. Immutable after
// creation except for StockApplied, which records whether the inventory
// decrement for this line has been carried out.
type OrderItem struct {
	ID           uuid.UUID `json:"id" db:"id"`
	OrderID      uuid.UUID `json:"order_id" db:"order_id"`
	ProductID    uuid.UUID `json:"product_id" db:"product_id"`
	Quantity     int       `json:"quantity" db:"quantity"`
	Price        float64   `json:"price" db:"price"`
	Color        string    `json:"color,omitempty" db:"color"`
	Size         string    `json:"size,omitempty" db:"size"`
	StockApplied bool      `json:"-" db:"stock_applied"`
	CreatedAt    time.Time `json:"created_at" db:"created_at"`
}

// CartLine is a single checkout input line. It exists only as request state
// and is consumed once an Order/OrderItem set is durably written.
type CartLine struct {
	ProductID uuid.UUID
	Quantity  int
	Price     float64
	Color     string
	Size      string
}

// OrderLine pairs a persisted order item with its product snapshot.
type OrderLine struct {
	Item    OrderItem       `json:"item"`
	Product ProductSnapshot `json:"product"`
}

// OrderView is the fully reconstructed order returned by the read path.
type OrderView struct {
	Order Order       `json:"order"`
	Lines []OrderLine `json:"lines"`
}
