package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type OrderStatus string

const (
	StatusPending   OrderStatus = "pending"
	StatusPreparing OrderStatus = "preparing"
	StatusReady     OrderStatus = "ready"
	StatusCompleted OrderStatus = "completed"
	StatusCancelled OrderStatus = "cancelled"
)

// Terminal reports whether no further transitions are expected.
func (s OrderStatus) Terminal() bool {
	return s == StatusCompleted || s == StatusCancelled
}

type PaymentStatus string

const (
	PaymentPending PaymentStatus = "pending"
	PaymentPaid    PaymentStatus = "paid"
)

// Origin tags whether an order's fields come from the server or from a local
// optimistic update that the server has not confirmed yet. Confirmed data
// always overwrites optimistic data, never the other way around.
type Origin int

const (
	OriginConfirmed Origin = iota
	OriginOptimistic
)

// Order is the canonical in-memory shape every transport is normalized into.
// The client never creates orders on its own; it only mirrors server state.
type Order struct {
	ID            int64
	OrderNumber   string
	Status        OrderStatus
	PaymentStatus PaymentStatus
	CustomerName  string
	CustomerPhone string
	OrderType     string
	TotalAmount   decimal.Decimal
	CreatedAt     time.Time
	Notes         string
	Items         []OrderItem
	Origin        Origin
}

type OrderItem struct {
	ID                  int64
	Name                string
	Quantity            int
	Price               decimal.Decimal
	SpecialInstructions string
}

// Incomplete reports whether the order carries no line items. Incomplete
// payloads are merged field-wise onto known orders but never inserted alone.
func (o Order) Incomplete() bool {
	return len(o.Items) == 0
}

// Clone returns a deep copy so snapshots handed to consumers cannot alias
// cache-internal state.
func (o Order) Clone() Order {
	out := o
	out.Items = make([]OrderItem, len(o.Items))
	copy(out.Items, o.Items)
	return out
}
