package dto

import "time"

// Frame type values delivered by the websocket endpoint. Only the first three
// feed the order cache; the rest are side-channel signals routed elsewhere.
const (
	TypeNewOrder          = "new_order"
	TypeOrderUpdate       = "order_update"
	TypeOrderStatusChange = "order_status_change"
	TypeMenuItemUpdate    = "menu_item_update"
	TypeKitchenStatus     = "kitchen_status"
	TypeOrderCancelled    = "order_cancelled_notification"
)

// Frame is one websocket text frame. Fields beyond Type are populated
// depending on the frame type; a status change may carry only orderId plus
// the new status, without a full order payload.
type Frame struct {
	Type          string        `json:"type"`
	Order         *OrderPayload `json:"order,omitempty"`
	OrderID       int64         `json:"orderId,omitempty"`
	OrderNumber   string        `json:"orderNumber,omitempty"`
	Status        string        `json:"status,omitempty"`
	PaymentStatus string        `json:"paymentStatus,omitempty"`
	Message       string        `json:"message,omitempty"`
	MenuItemID    int64         `json:"menuItemId,omitempty"`
	Available     *bool         `json:"available,omitempty"`
}

// OrderPayload is the wire shape shared by the websocket frames and the REST
// list endpoints, so one normalizer serves both transports.
type OrderPayload struct {
	ID            int64              `json:"id"`
	OrderNumber   string             `json:"orderNumber"`
	Status        string             `json:"status"`
	PaymentStatus string             `json:"paymentStatus"`
	CustomerName  string             `json:"customerName"`
	CustomerPhone string             `json:"customerPhone"`
	OrderType     string             `json:"orderType"`
	TotalAmount   float64            `json:"totalAmount"`
	CreatedAt     time.Time          `json:"createdAt"`
	Notes         string             `json:"notes"`
	OrderItems    []OrderItemPayload `json:"orderItems"`
}

type OrderItemPayload struct {
	ID                  int64     `json:"id"`
	Quantity            int       `json:"quantity"`
	Price               float64   `json:"price"`
	SpecialInstructions string    `json:"specialInstructions,omitempty"`
	MenuItemName        string    `json:"menuItemName,omitempty"`
	MenuItem            *MenuItem `json:"menuItem,omitempty"`
}

type MenuItem struct {
	Name string `json:"name"`
}

// CreateOrderRequest is the walk-in order submission body.
type CreateOrderRequest struct {
	CustomerName  string                   `json:"customerName"`
	CustomerPhone string                   `json:"customerPhone"`
	OrderType     string                   `json:"orderType"`
	Notes         string                   `json:"notes,omitempty"`
	Items         []CreateOrderItemRequest `json:"items"`
}

type CreateOrderItemRequest struct {
	MenuItemName string  `json:"menuItemName"`
	Quantity     int     `json:"quantity"`
	Price        float64 `json:"price"`
}

// StatusChangeRequest is the user-triggered transition body ("Start
// Preparing" and friends).
type StatusChangeRequest struct {
	Status string `json:"status"`
}
