package domain

import (
	"time"

	"github.com/google/uuid"
)

// OrderStatus is the lifecycle state of an order.
type OrderStatus string

const (
	OrderStatusPending   OrderStatus = "pending"
	OrderStatusPaid      OrderStatus = "paid"
	OrderStatusFulfilled OrderStatus = "fulfilled"
	OrderStatusCanceled  OrderStatus = "canceled"
)

// ValidOrderStatus reports whether s is a known order status.
func ValidOrderStatus(s OrderStatus) bool {
	switch s {
	case OrderStatusPending, OrderStatusPaid, OrderStatusFulfilled, OrderStatusCanceled:
		return true
	}
	return false
}

// CanTransition reports whether an admin-driven status change from -> to is
// allowed. Orders never move backward from paid, and paid itself is only
// ever set by the payment confirmation listener.
func CanTransition(from, to OrderStatus) bool {
	if from == to {
		return false
	}
	switch from {
	case OrderStatusPending:
		return to == OrderStatusFulfilled || to == OrderStatusCanceled
	case OrderStatusPaid:
		return to == OrderStatusFulfilled || to == OrderStatusCanceled
	case OrderStatusFulfilled:
		return to == OrderStatusCanceled
	}
	return false
}

// Address is the structured shipping address captured at checkout.
type Address struct {
	Street string `json:"street"`
	City   string `json:"city"`
	State  string `json:"state"`
	Zip    string `json:"zip"`
}

// Order is an order header. Items live in OrderItem rows and are written in
// the same transaction as the header.
type Order struct {
	ID           uuid.UUID   `json:"id" db:"id"`
	CustomerName string      `json:"customer_name" db:"customer_name"`
	Email        string      `json:"email" db:"email"`
	Phone        string      `json:"phone" db:"phone"`
	Address      Address     `json:"address" db:"address"`
	Total        float64     `json:"total" db:"total"`
	Status       OrderStatus `json:"status" db:"status"`
	Notes        string      `json:"notes" db:"notes"`
	AdminNotes   string      `json:"admin_notes" db:"admin_notes"`
	CreatedAt    time.Time   `json:"created_at" db:"created_at"`
	FulfilledAt  *time.Time  `json:"fulfilled_at,omitempty" db:"fulfilled_at"`

	Items []*OrderItem `json:"items,omitempty"`
}

// OrderItem snapshots a product at submission time so historical orders stay
// accurate when catalog prices change later.
type OrderItem struct {
	ID        uuid.UUID `json:"id" db:"id"`
	OrderID   uuid.UUID `json:"order_id" db:"order_id"`
	ProductID uuid.UUID `json:"product_id" db:"product_id"`
	Name      string    `json:"name" db:"name"`
	Price     float64   `json:"price" db:"price"`
	Quantity  int       `json:"quantity" db:"quantity"`
	ImageURL  string    `json:"image_url" db:"image_url"`
}
