package models

import (
	"fmt"
	"time"
)

// OrderKind is the execution type of an order.
type OrderKind string

const (
	OrderKindMarket OrderKind = "market"
	OrderKindLimit  OrderKind = "limit"
)

// Valid reports whether k is a known order kind.
func (k OrderKind) Valid() bool {
	return k == OrderKindMarket || k == OrderKindLimit
}

// OrderStatus is the lifecycle state of an order.
type OrderStatus string

const (
	// OrderStatusPending indicates the order is created but not yet accepted.
	OrderStatusPending OrderStatus = "pending"
	// OrderStatusOpen indicates the order rests and waits to be filled.
	OrderStatusOpen OrderStatus = "open"
	// OrderStatusFulfilled indicates the order was completely filled.
	OrderStatusFulfilled OrderStatus = "fulfilled"
	// OrderStatusCancelled indicates the order was cancelled before being filled.
	OrderStatusCancelled OrderStatus = "cancelled"
)

// Terminal reports whether no further transition is allowed from s.
func (s OrderStatus) Terminal() bool {
	return s == OrderStatusFulfilled || s == OrderStatusCancelled
}

// Order represents a synthetic or user-placed order.
type Order struct {
	ID           string      `json:"id" gorm:"primaryKey"`
	InstrumentID string      `json:"instrument_id" gorm:"index;not null"`
	UserID       string      `json:"user_id" gorm:"not null"`
	Side         Side        `json:"side"`
	Kind         OrderKind   `json:"kind"`
	Price        float64     `json:"price"`
	Quantity     float64     `json:"quantity"`
	Status       OrderStatus `json:"status" gorm:"index"`
	CreatedAt    time.Time   `json:"created_at"`
}

// Open moves a pending order to open.
func (o *Order) Open() error {
	return o.transition(OrderStatusOpen)
}

// Fulfill marks the order as filled.
func (o *Order) Fulfill() error {
	return o.transition(OrderStatusFulfilled)
}

// Cancel marks the order as cancelled.
func (o *Order) Cancel() error {
	return o.transition(OrderStatusCancelled)
}

// transition enforces pending -> open -> {fulfilled, cancelled}, with pending also allowed
// to jump straight to a terminal state.
func (o *Order) transition(to OrderStatus) error {
	if o.Status.Terminal() {
		return fmt.Errorf("order %s is %s: %w", o.ID, o.Status, ErrInvalidTransition)
	}
	if to == OrderStatusOpen && o.Status != OrderStatusPending {
		return fmt.Errorf("order %s is %s, cannot reopen: %w", o.ID, o.Status, ErrInvalidTransition)
	}
	o.Status = to
	return nil
}

// Crosses reports whether a resting limit order would fill at the given market price.
func (o *Order) Crosses(price float64) bool {
	if o.Kind != OrderKindLimit || o.Status != OrderStatusOpen {
		return false
	}
	if o.Side == SideBuy {
		return price <= o.Price
	}
	return price >= o.Price
}
