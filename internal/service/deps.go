package service

import (
	"context"
	"time"

	"food-delivery/internal/auth"
	"food-delivery/internal/models"
	"food-delivery/internal/payment"
	"food-delivery/internal/store"
)

// OrderStore is the persistence the order lifecycle needs
type OrderStore interface {
	Checkout(ctx context.Context, userID int64, build store.BuildOrderFunc) (*store.OrderDraft, error)
	TransitionOrder(ctx context.Context, orderID int64, decide store.DecideTransitionFunc) (*models.Order, *models.DeliveryStatusEntry, error)
	GetOrder(ctx context.Context, id int64) (*models.Order, error)
	ListOrders(ctx context.Context, userID *int64) ([]models.Order, error)
	ListRiderOrders(ctx context.Context, riderID int64) ([]models.Order, error)
	AssignRider(ctx context.Context, orderID, riderID int64) error
	ListDeliveryStatuses(ctx context.Context, orderID int64) ([]models.DeliveryStatusEntry, error)
	LatestRiderLocation(ctx context.Context, riderID int64, orderID *int64) (*models.RiderLocation, error)
	SoftDeleteOrder(ctx context.Context, id int64) error
	RestoreOrder(ctx context.Context, id int64) error
}

// TrackingStore persists rider GPS samples
type TrackingStore interface {
	GetOrder(ctx context.Context, id int64) (*models.Order, error)
	RecordRiderLocation(ctx context.Context, loc *models.RiderLocation) error
	ListRiderLocations(ctx context.Context, riderID *int64) ([]models.RiderLocation, error)
}

// PaymentStore updates the money side of orders
type PaymentStore interface {
	GetOrder(ctx context.Context, id int64) (*models.Order, error)
	SetPaymentIntent(ctx context.Context, orderID int64, intentID string) error
	SetPaymentStatus(ctx context.Context, orderID int64, status models.PaymentStatus) (bool, error)
}

// UserStore persists accounts
type UserStore interface {
	CreateUser(ctx context.Context, user *models.User) error
	GetUserByID(ctx context.Context, id int64) (*models.User, error)
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
	UpdateOTP(ctx context.Context, userID int64, secret string, verified bool) error
}

// CatalogStore persists categories and food items
type CatalogStore interface {
	ListCategories(ctx context.Context) ([]models.Category, error)
	GetCategory(ctx context.Context, id int64) (*models.Category, error)
	CreateCategory(ctx context.Context, category *models.Category) error
	UpdateCategory(ctx context.Context, category *models.Category) error
	DeleteCategory(ctx context.Context, id int64) error
	ListFoodItems(ctx context.Context, filter store.ItemFilter) ([]models.FoodItem, error)
	GetFoodItem(ctx context.Context, id int64) (*models.FoodItem, error)
	CreateFoodItem(ctx context.Context, item *models.FoodItem) error
	UpdateFoodItem(ctx context.Context, item *models.FoodItem) error
	DeleteFoodItem(ctx context.Context, id int64) error
	GetItemRating(ctx context.Context, itemID int64) (*models.ItemRating, error)
}

// CartStore persists cart lines
type CartStore interface {
	GetFoodItem(ctx context.Context, id int64) (*models.FoodItem, error)
	ListCart(ctx context.Context, userID int64) ([]models.CartLine, error)
	AddToCart(ctx context.Context, userID, itemID int64, quantity int) (int64, error)
	SetCartQuantity(ctx context.Context, userID, itemID int64, quantity int) error
	RemoveFromCart(ctx context.Context, userID, itemID int64) error
	ClearCart(ctx context.Context, userID int64) error
}

// ReviewStore persists reviews and feedback
type ReviewStore interface {
	GetFoodItem(ctx context.Context, id int64) (*models.FoodItem, error)
	GetOrder(ctx context.Context, id int64) (*models.Order, error)
	CreateReview(ctx context.Context, review *models.Review) error
	ListReviews(ctx context.Context, itemID int64, includeUnapproved bool) ([]models.Review, error)
	ApproveReview(ctx context.Context, id int64) error
	CreateFeedback(ctx context.Context, fb *models.Feedback) error
	ListFeedback(ctx context.Context, userID *int64) ([]models.Feedback, error)
}

// DashboardStore serves the admin overview
type DashboardStore interface {
	DashboardStats(ctx context.Context, since time.Time) (*models.DashboardStats, error)
	ListActiveOrders(ctx context.Context) ([]models.Order, error)
	LatestRiderLocations(ctx context.Context, riderIDs []int64) (map[int64]models.RiderLocation, error)
}

// LocationCache holds the newest sample per rider
type LocationCache interface {
	CacheRiderLocation(ctx context.Context, loc *models.RiderLocation) (bool, error)
	GetRiderLocation(ctx context.Context, riderID int64) (*models.RiderLocation, error)
}

// IdempotencyGuard remembers which provider events were already handled
type IdempotencyGuard interface {
	ClaimIdempotencyKey(ctx context.Context, key string, ttl time.Duration) (bool, error)
	ReleaseIdempotencyKey(ctx context.Context, key string) error
}

// OrderEvents publishes order lifecycle events
type OrderEvents interface {
	PublishOrderPlaced(ctx context.Context, event *models.OrderPlacedEvent) error
	PublishOrderStatusChanged(ctx context.Context, event *models.OrderStatusChangedEvent) error
}

// PaymentEvents publishes payment outcome events
type PaymentEvents interface {
	PublishPaymentSucceeded(ctx context.Context, event *models.PaymentSucceededEvent) error
	PublishPaymentFailed(ctx context.Context, event *models.PaymentFailedEvent) error
}

// PaymentGateway talks to the payment provider
type PaymentGateway interface {
	CreatePaymentIntent(ctx context.Context, amountCents int64, orderID int64) (*payment.Intent, error)
	ParseWebhook(payload []byte, signature string) (*payment.WebhookEvent, error)
}

// TokenIssuer signs and checks session tokens
type TokenIssuer interface {
	GenerateTokenPair(id models.Identity) (*auth.TokenPair, error)
	ValidateRefreshToken(token string) (*auth.Claims, error)
}
