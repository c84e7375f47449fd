package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Event types
const (
	EventTypeOrderPlaced        = "ORDER_PLACED"
	EventTypeOrderStatusChanged = "ORDER_STATUS_CHANGED"
	EventTypePaymentSucceeded   = "PAYMENT_SUCCEEDED"
	EventTypePaymentFailed      = "PAYMENT_FAILED"
)

// BaseEvent contains common fields for all events
type BaseEvent struct {
	EventID   string    `json:"event_id"`
	EventType string    `json:"event_type"`
	Timestamp time.Time `json:"timestamp"`
}

// OrderPlacedEvent published when checkout commits
type OrderPlacedEvent struct {
	BaseEvent
	OrderID     int64           `json:"order_id"`
	OrderNumber string          `json:"order_number"`
	UserID      int64           `json:"user_id"`
	GrandTotal  decimal.Decimal `json:"grand_total"`
	Items       []OrderItemData `json:"items"`
}

// OrderStatusChangedEvent published after every status transition
type OrderStatusChangedEvent struct {
	BaseEvent
	OrderID     int64       `json:"order_id"`
	OrderNumber string      `json:"order_number"`
	UserID      int64       `json:"user_id"`
	RiderID     *int64      `json:"rider_id,omitempty"`
	From        OrderStatus `json:"from"`
	To          OrderStatus `json:"to"`
	Description string      `json:"description"`
}

// PaymentSucceededEvent published when the provider confirms a payment
type PaymentSucceededEvent struct {
	BaseEvent
	OrderID         int64  `json:"order_id"`
	UserID          int64  `json:"user_id"`
	PaymentIntentID string `json:"payment_intent_id"`
}

// PaymentFailedEvent published when the provider reports a failed payment
type PaymentFailedEvent struct {
	BaseEvent
	OrderID         int64  `json:"order_id"`
	UserID          int64  `json:"user_id"`
	PaymentIntentID string `json:"payment_intent_id"`
}

// OrderItemData represents item data in events
type OrderItemData struct {
	FoodItemID int64           `json:"food_item_id"`
	Quantity   int             `json:"quantity"`
	UnitPrice  decimal.Decimal `json:"unit_price"`
}
