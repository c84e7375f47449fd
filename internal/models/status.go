package models

// OrderStatus is a step of the order lifecycle
type OrderStatus string

// Order statuses, in pipeline order
const (
	OrderStatusPending        OrderStatus = "pending"
	OrderStatusConfirmed      OrderStatus = "confirmed"
	OrderStatusPreparing      OrderStatus = "preparing"
	OrderStatusReady          OrderStatus = "ready"
	OrderStatusOutForDelivery OrderStatus = "out_for_delivery"
	OrderStatusDelivered      OrderStatus = "delivered"
	OrderStatusCancelled      OrderStatus = "cancelled"
)

// PaymentStatus tracks the money side of an order
type PaymentStatus string

// Payment statuses
const (
	PaymentStatusPending  PaymentStatus = "pending"
	PaymentStatusPaid     PaymentStatus = "paid"
	PaymentStatusFailed   PaymentStatus = "failed"
	PaymentStatusRefunded PaymentStatus = "refunded"
)

var pipeline = map[OrderStatus]int{
	OrderStatusPending:        0,
	OrderStatusConfirmed:      1,
	OrderStatusPreparing:      2,
	OrderStatusReady:          3,
	OrderStatusOutForDelivery: 4,
	OrderStatusDelivered:      5,
}

var statusDescriptions = map[OrderStatus]string{
	OrderStatusPending:        "Order placed successfully",
	OrderStatusConfirmed:      "Order confirmed by the restaurant",
	OrderStatusPreparing:      "Your food is being prepared",
	OrderStatusReady:          "Order is ready for pickup",
	OrderStatusOutForDelivery: "Rider is on the way",
	OrderStatusDelivered:      "Order delivered",
	OrderStatusCancelled:      "Order cancelled",
}

// Valid reports whether s is a known status
func (s OrderStatus) Valid() bool {
	if s == OrderStatusCancelled {
		return true
	}
	_, ok := pipeline[s]
	return ok
}

// Terminal reports whether no further transition is possible
func (s OrderStatus) Terminal() bool {
	return s == OrderStatusDelivered || s == OrderStatusCancelled
}

// Cancellable reports whether an order in s may be cancelled
func (s OrderStatus) Cancellable() bool {
	return s == OrderStatusPending || s == OrderStatusConfirmed
}

// CanTransitionTo reports whether s -> next is legal. Pipeline statuses only
// move forward (steps may be skipped); cancelled is reachable from pending
// and confirmed only.
func (s OrderStatus) CanTransitionTo(next OrderStatus) bool {
	if s.Terminal() || !next.Valid() {
		return false
	}
	if next == OrderStatusCancelled {
		return s.Cancellable()
	}
	cur, ok := pipeline[s]
	if !ok {
		return false
	}
	return pipeline[next] > cur
}

// Description is the default human-readable text for a status entry
func (s OrderStatus) Description() string {
	if d, ok := statusDescriptions[s]; ok {
		return d
	}
	return string(s)
}

// Valid reports whether p is a known payment status
func (p PaymentStatus) Valid() bool {
	switch p {
	case PaymentStatusPending, PaymentStatusPaid, PaymentStatusFailed, PaymentStatusRefunded:
		return true
	}
	return false
}

// StatusAllowedForRole reports whether a caller with role may move an order
// to status through the status update operation. Customers cancel through
// the dedicated cancel operation instead.
func StatusAllowedForRole(role Role, status OrderStatus) bool {
	switch role {
	case RoleAdmin:
		return true
	case RoleRestaurant:
		return status == OrderStatusConfirmed ||
			status == OrderStatusPreparing ||
			status == OrderStatusReady
	case RoleRider:
		return status == OrderStatusOutForDelivery || status == OrderStatusDelivered
	}
	return false
}
