package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Role identifies what a user is allowed to do
type Role string

const (
	RoleCustomer   Role = "customer"
	RoleRider      Role = "rider"
	RoleRestaurant Role = "restaurant"
	RoleAdmin      Role = "admin"
)

// Valid reports whether r is a known role
func (r Role) Valid() bool {
	switch r {
	case RoleCustomer, RoleRider, RoleRestaurant, RoleAdmin:
		return true
	}
	return false
}

// Identity is the authenticated caller of an operation
type Identity struct {
	UserID int64
	Role   Role
}

func (i Identity) IsAdmin() bool { return i.Role == RoleAdmin }
func (i Identity) IsRider() bool { return i.Role == RoleRider }

// User represents an account of any role
type User struct {
	ID           int64     `db:"id" json:"id"`
	Email        string    `db:"email" json:"email"`
	Username     string    `db:"username" json:"username"`
	FirstName    string    `db:"first_name" json:"first_name"`
	LastName     string    `db:"last_name" json:"last_name"`
	Phone        string    `db:"phone" json:"phone"`
	Role         Role      `db:"role" json:"role"`
	PasswordHash string    `db:"password_hash" json:"-"`
	OTPSecret    string    `db:"otp_secret" json:"-"`
	OTPVerified  bool      `db:"otp_verified" json:"otp_verified"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time `db:"updated_at" json:"updated_at"`
}

// Identity returns the caller identity for this user
func (u *User) Identity() Identity {
	return Identity{UserID: u.ID, Role: u.Role}
}

// RiderProfile holds rider-specific data, including the last known position
type RiderProfile struct {
	UserID                 int64            `db:"user_id" json:"user_id"`
	VehicleType            string           `db:"vehicle_type" json:"vehicle_type"`
	VehicleNumber          string           `db:"vehicle_number" json:"vehicle_number"`
	LicenseNumber          string           `db:"license_number" json:"license_number"`
	IsAvailableForDelivery bool             `db:"is_available_for_delivery" json:"is_available_for_delivery"`
	CurrentLatitude        *decimal.Decimal `db:"current_latitude" json:"current_latitude,omitempty"`
	CurrentLongitude       *decimal.Decimal `db:"current_longitude" json:"current_longitude,omitempty"`
	CreatedAt              time.Time        `db:"created_at" json:"created_at"`
}

// CustomerProfile holds default delivery details for a customer
type CustomerProfile struct {
	UserID    int64     `db:"user_id" json:"user_id"`
	Phone     string    `db:"phone" json:"phone"`
	Address   string    `db:"address" json:"address"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// Category groups food items
type Category struct {
	ID          int64     `db:"id" json:"id"`
	Name        string    `db:"name" json:"name"`
	Description string    `db:"description" json:"description"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
}

// FoodItem is a sellable catalog entry
type FoodItem struct {
	ID           int64           `db:"id" json:"id"`
	Name         string          `db:"name" json:"name"`
	Description  string          `db:"description" json:"description"`
	Price        decimal.Decimal `db:"price" json:"price"`
	CategoryID   int64           `db:"category_id" json:"category"`
	CategoryName string          `db:"category_name" json:"category_name"`
	RestaurantID *int64          `db:"restaurant_id" json:"restaurant,omitempty"`
	IsAvailable  bool            `db:"is_available" json:"is_available"`
	Stock        int             `db:"stock" json:"stock"`
	CreatedAt    time.Time       `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time       `db:"updated_at" json:"updated_at"`
}

// ItemRating is the aggregate over approved reviews of one item
type ItemRating struct {
	Average float64 `db:"average" json:"average_rating"`
	Count   int     `db:"count" json:"review_count"`
}

// CartLine is one (user, item) entry of a cart
type CartLine struct {
	ID         int64           `db:"id" json:"id"`
	UserID     int64           `db:"user_id" json:"-"`
	FoodItemID int64           `db:"food_item_id" json:"food_item"`
	ItemName   string          `db:"item_name" json:"food_item_name"`
	ItemPrice  decimal.Decimal `db:"item_price" json:"price"`
	Quantity   int             `db:"quantity" json:"quantity"`
	CreatedAt  time.Time       `db:"created_at" json:"created_at"`
}

// Subtotal returns quantity x current item price
func (l CartLine) Subtotal() decimal.Decimal {
	return l.ItemPrice.Mul(decimal.NewFromInt(int64(l.Quantity)))
}

// Order is a placed order. Line items are an immutable snapshot; status,
// payment and rider fields change over its lifetime.
type Order struct {
	ID                    int64            `db:"id" json:"id"`
	OrderNumber           string           `db:"order_number" json:"order_number"`
	UserID                int64            `db:"user_id" json:"user"`
	Subtotal              decimal.Decimal  `db:"subtotal" json:"total_price"`
	Tax                   decimal.Decimal  `db:"tax" json:"tax"`
	DeliveryFee           decimal.Decimal  `db:"delivery_fee" json:"delivery_fee"`
	GrandTotal            decimal.Decimal  `db:"grand_total" json:"grand_total"`
	DeliveryAddress       string           `db:"delivery_address" json:"delivery_address"`
	Phone                 string           `db:"phone" json:"phone"`
	Notes                 string           `db:"notes" json:"notes"`
	Status                OrderStatus      `db:"status" json:"status"`
	PaymentStatus         PaymentStatus    `db:"payment_status" json:"payment_status"`
	PaymentMethod         string           `db:"payment_method" json:"payment_method"`
	PaymentIntentID       string           `db:"payment_intent_id" json:"-"`
	RiderID               *int64           `db:"rider_id" json:"rider,omitempty"`
	DeliveryLatitude      *decimal.Decimal `db:"delivery_latitude" json:"delivery_latitude,omitempty"`
	DeliveryLongitude     *decimal.Decimal `db:"delivery_longitude" json:"delivery_longitude,omitempty"`
	EstimatedDeliveryTime *time.Time       `db:"estimated_delivery_time" json:"estimated_delivery_time,omitempty"`
	IsDeleted             bool             `db:"is_deleted" json:"-"`
	DeletedAt             *time.Time       `db:"deleted_at" json:"-"`
	CreatedAt             time.Time        `db:"created_at" json:"created_at"`
	UpdatedAt             time.Time        `db:"updated_at" json:"updated_at"`

	Items []OrderItem `db:"-" json:"items,omitempty"`
}

// CanCancel reports whether the order may still be cancelled
func (o *Order) CanCancel() bool {
	return o.Status.Cancellable()
}

// IsActive reports whether the order is still moving through the pipeline
func (o *Order) IsActive() bool {
	return !o.Status.Terminal()
}

// OwnedBy reports whether userID placed this order
func (o *Order) OwnedBy(userID int64) bool {
	return o.UserID == userID
}

// AssignedTo reports whether riderID is the order's rider
func (o *Order) AssignedTo(riderID int64) bool {
	return o.RiderID != nil && *o.RiderID == riderID
}

// OrderItem is a line of a placed order, priced at checkout time
type OrderItem struct {
	ID         int64           `db:"id" json:"id"`
	OrderID    int64           `db:"order_id" json:"order"`
	FoodItemID int64           `db:"food_item_id" json:"food_item"`
	ItemName   string          `db:"item_name" json:"food_item_name"`
	Quantity   int             `db:"quantity" json:"quantity"`
	Price      decimal.Decimal `db:"price" json:"price"`
}

// Subtotal returns quantity x snapshot price
func (i OrderItem) Subtotal() decimal.Decimal {
	return i.Price.Mul(decimal.NewFromInt(int64(i.Quantity)))
}

// DeliveryStatusEntry is one append-only record of an order's status history
type DeliveryStatusEntry struct {
	ID          int64            `db:"id" json:"id"`
	OrderID     int64            `db:"order_id" json:"order"`
	Status      OrderStatus      `db:"status" json:"status"`
	Description string           `db:"description" json:"description"`
	Latitude    *decimal.Decimal `db:"latitude" json:"latitude,omitempty"`
	Longitude   *decimal.Decimal `db:"longitude" json:"longitude,omitempty"`
	Timestamp   time.Time        `db:"timestamp" json:"timestamp"`
	UpdatedBy   *int64           `db:"updated_by" json:"updated_by,omitempty"`
}

// RiderLocation is one GPS sample of a rider
type RiderLocation struct {
	ID        int64           `db:"id" json:"id"`
	RiderID   int64           `db:"rider_id" json:"rider"`
	Latitude  decimal.Decimal `db:"latitude" json:"latitude"`
	Longitude decimal.Decimal `db:"longitude" json:"longitude"`
	Accuracy  float64         `db:"accuracy" json:"accuracy"`
	Speed     float64         `db:"speed" json:"speed"`
	Heading   float64         `db:"heading" json:"heading"`
	Timestamp time.Time       `db:"timestamp" json:"timestamp"`
	OrderID   *int64          `db:"order_id" json:"order,omitempty"`
}

// Review is a customer's rating of a food item, visible once approved
type Review struct {
	ID         int64     `db:"id" json:"id"`
	UserID     int64     `db:"user_id" json:"user"`
	FoodItemID int64     `db:"food_item_id" json:"food_item"`
	Rating     int       `db:"rating" json:"rating"`
	Comment    string    `db:"comment" json:"comment"`
	Approved   bool      `db:"approved" json:"approved"`
	CreatedAt  time.Time `db:"created_at" json:"created_at"`
}

// Feedback is free-text feedback with a sentiment computed at write time
type Feedback struct {
	ID           int64     `db:"id" json:"id"`
	UserID       int64     `db:"user_id" json:"user"`
	OrderID      *int64    `db:"order_id" json:"order,omitempty"`
	Name         string    `db:"name" json:"name"`
	Rating       int       `db:"rating" json:"rating"`
	FeedbackText string    `db:"feedback_text" json:"feedback_text"`
	Sentiment    Sentiment `db:"sentiment" json:"sentiment"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
}

// DashboardStats is the admin overview
type DashboardStats struct {
	TotalOrders    int             `json:"total_orders"`
	PendingOrders  int             `json:"pending_orders"`
	TotalRevenue   decimal.Decimal `json:"total_revenue"`
	TotalCustomers int             `json:"total_customers"`
	TotalRiders    int             `json:"total_riders"`
	RecentOrders   []Order         `json:"recent_orders"`
}

// ActiveDelivery pairs an in-flight order with its rider's latest position
type ActiveDelivery struct {
	Order         Order          `json:"order"`
	RiderLocation *RiderLocation `json:"rider_location"`
}
