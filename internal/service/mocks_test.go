package service

import (
	"context"
	"sync"
	"time"

	"food-delivery/internal/auth"
	"food-delivery/internal/models"
	"food-delivery/internal/payment"
	"food-delivery/internal/relay"
	"food-delivery/internal/store"

	"github.com/stretchr/testify/mock"
)

// mockStore implements every store interface of this package
type mockStore struct {
	mock.Mock

	// transitions records the entries TransitionOrder appended
	transitions []models.DeliveryStatusEntry
	onRecord    func()
}

func orderArg(args mock.Arguments, i int) *models.Order {
	if o, ok := args.Get(i).(*models.Order); ok {
		return o
	}
	return nil
}

// Checkout hands the configured cart lines to build, like the real
// transaction does, and stamps ids on the result
func (m *mockStore) Checkout(ctx context.Context, userID int64, build store.BuildOrderFunc) (*store.OrderDraft, error) {
	args := m.Called(ctx, userID)
	if err := args.Error(1); err != nil {
		return nil, err
	}
	draft, err := build(args.Get(0).([]models.CartLine))
	if err != nil {
		return nil, err
	}
	draft.Order.ID = 100
	for i := range draft.Order.Items {
		draft.Order.Items[i].ID = int64(i + 1)
		draft.Order.Items[i].OrderID = draft.Order.ID
	}
	draft.InitialStatus.OrderID = draft.Order.ID
	draft.InitialStatus.Timestamp = time.Now()
	return draft, nil
}

// TransitionOrder runs decide against a copy of the configured order
func (m *mockStore) TransitionOrder(ctx context.Context, orderID int64, decide store.DecideTransitionFunc) (*models.Order, *models.DeliveryStatusEntry, error) {
	args := m.Called(ctx, orderID)
	if err := args.Error(1); err != nil {
		return nil, nil, err
	}
	current := *orderArg(args, 0)
	entry, err := decide(&current)
	if err != nil {
		return nil, nil, err
	}
	entry.OrderID = orderID
	entry.ID = int64(len(m.transitions) + 1)
	entry.Timestamp = time.Now()
	current.Status = entry.Status
	m.transitions = append(m.transitions, *entry)
	return &current, entry, nil
}

func (m *mockStore) GetOrder(ctx context.Context, id int64) (*models.Order, error) {
	args := m.Called(ctx, id)
	return orderArg(args, 0), args.Error(1)
}

func (m *mockStore) ListOrders(ctx context.Context, userID *int64) ([]models.Order, error) {
	args := m.Called(ctx, userID)
	return args.Get(0).([]models.Order), args.Error(1)
}

func (m *mockStore) ListRiderOrders(ctx context.Context, riderID int64) ([]models.Order, error) {
	args := m.Called(ctx, riderID)
	return args.Get(0).([]models.Order), args.Error(1)
}

func (m *mockStore) ListActiveOrders(ctx context.Context) ([]models.Order, error) {
	args := m.Called(ctx)
	return args.Get(0).([]models.Order), args.Error(1)
}

func (m *mockStore) AssignRider(ctx context.Context, orderID, riderID int64) error {
	return m.Called(ctx, orderID, riderID).Error(0)
}

func (m *mockStore) ListDeliveryStatuses(ctx context.Context, orderID int64) ([]models.DeliveryStatusEntry, error) {
	args := m.Called(ctx, orderID)
	return args.Get(0).([]models.DeliveryStatusEntry), args.Error(1)
}

func (m *mockStore) LatestRiderLocation(ctx context.Context, riderID int64, orderID *int64) (*models.RiderLocation, error) {
	args := m.Called(ctx, riderID, orderID)
	loc, _ := args.Get(0).(*models.RiderLocation)
	return loc, args.Error(1)
}

func (m *mockStore) LatestRiderLocations(ctx context.Context, riderIDs []int64) (map[int64]models.RiderLocation, error) {
	args := m.Called(ctx, riderIDs)
	return args.Get(0).(map[int64]models.RiderLocation), args.Error(1)
}

func (m *mockStore) SoftDeleteOrder(ctx context.Context, id int64) error {
	return m.Called(ctx, id).Error(0)
}

func (m *mockStore) RestoreOrder(ctx context.Context, id int64) error {
	return m.Called(ctx, id).Error(0)
}

func (m *mockStore) RecordRiderLocation(ctx context.Context, loc *models.RiderLocation) error {
	args := m.Called(ctx, loc)
	if args.Error(0) == nil {
		loc.ID = 1
		if m.onRecord != nil {
			m.onRecord()
		}
	}
	return args.Error(0)
}

func (m *mockStore) ListRiderLocations(ctx context.Context, riderID *int64) ([]models.RiderLocation, error) {
	args := m.Called(ctx, riderID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.RiderLocation), args.Error(1)
}

func (m *mockStore) SetPaymentIntent(ctx context.Context, orderID int64, intentID string) error {
	return m.Called(ctx, orderID, intentID).Error(0)
}

func (m *mockStore) SetPaymentStatus(ctx context.Context, orderID int64, status models.PaymentStatus) (bool, error) {
	args := m.Called(ctx, orderID, status)
	return args.Bool(0), args.Error(1)
}

func (m *mockStore) CreateUser(ctx context.Context, user *models.User) error {
	args := m.Called(ctx, user)
	if args.Error(0) == nil {
		user.ID = 7
	}
	return args.Error(0)
}

func (m *mockStore) GetUserByID(ctx context.Context, id int64) (*models.User, error) {
	args := m.Called(ctx, id)
	u, _ := args.Get(0).(*models.User)
	return u, args.Error(1)
}

func (m *mockStore) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	args := m.Called(ctx, email)
	u, _ := args.Get(0).(*models.User)
	return u, args.Error(1)
}

func (m *mockStore) UpdateOTP(ctx context.Context, userID int64, secret string, verified bool) error {
	return m.Called(ctx, userID, secret, verified).Error(0)
}

func (m *mockStore) ListCategories(ctx context.Context) ([]models.Category, error) {
	args := m.Called(ctx)
	return args.Get(0).([]models.Category), args.Error(1)
}

func (m *mockStore) GetCategory(ctx context.Context, id int64) (*models.Category, error) {
	args := m.Called(ctx, id)
	c, _ := args.Get(0).(*models.Category)
	return c, args.Error(1)
}

func (m *mockStore) CreateCategory(ctx context.Context, category *models.Category) error {
	return m.Called(ctx, category).Error(0)
}

func (m *mockStore) UpdateCategory(ctx context.Context, category *models.Category) error {
	return m.Called(ctx, category).Error(0)
}

func (m *mockStore) DeleteCategory(ctx context.Context, id int64) error {
	return m.Called(ctx, id).Error(0)
}

func (m *mockStore) ListFoodItems(ctx context.Context, filter store.ItemFilter) ([]models.FoodItem, error) {
	args := m.Called(ctx, filter)
	return args.Get(0).([]models.FoodItem), args.Error(1)
}

func (m *mockStore) GetFoodItem(ctx context.Context, id int64) (*models.FoodItem, error) {
	args := m.Called(ctx, id)
	item, _ := args.Get(0).(*models.FoodItem)
	return item, args.Error(1)
}

func (m *mockStore) CreateFoodItem(ctx context.Context, item *models.FoodItem) error {
	return m.Called(ctx, item).Error(0)
}

func (m *mockStore) UpdateFoodItem(ctx context.Context, item *models.FoodItem) error {
	return m.Called(ctx, item).Error(0)
}

func (m *mockStore) DeleteFoodItem(ctx context.Context, id int64) error {
	return m.Called(ctx, id).Error(0)
}

func (m *mockStore) GetItemRating(ctx context.Context, itemID int64) (*models.ItemRating, error) {
	args := m.Called(ctx, itemID)
	r, _ := args.Get(0).(*models.ItemRating)
	return r, args.Error(1)
}

func (m *mockStore) ListCart(ctx context.Context, userID int64) ([]models.CartLine, error) {
	args := m.Called(ctx, userID)
	return args.Get(0).([]models.CartLine), args.Error(1)
}

func (m *mockStore) AddToCart(ctx context.Context, userID, itemID int64, quantity int) (int64, error) {
	args := m.Called(ctx, userID, itemID, quantity)
	return int64(args.Int(0)), args.Error(1)
}

func (m *mockStore) SetCartQuantity(ctx context.Context, userID, itemID int64, quantity int) error {
	return m.Called(ctx, userID, itemID, quantity).Error(0)
}

func (m *mockStore) RemoveFromCart(ctx context.Context, userID, itemID int64) error {
	return m.Called(ctx, userID, itemID).Error(0)
}

func (m *mockStore) ClearCart(ctx context.Context, userID int64) error {
	return m.Called(ctx, userID).Error(0)
}

func (m *mockStore) CreateReview(ctx context.Context, review *models.Review) error {
	return m.Called(ctx, review).Error(0)
}

func (m *mockStore) ListReviews(ctx context.Context, itemID int64, includeUnapproved bool) ([]models.Review, error) {
	args := m.Called(ctx, itemID, includeUnapproved)
	return args.Get(0).([]models.Review), args.Error(1)
}

func (m *mockStore) ApproveReview(ctx context.Context, id int64) error {
	return m.Called(ctx, id).Error(0)
}

func (m *mockStore) CreateFeedback(ctx context.Context, fb *models.Feedback) error {
	return m.Called(ctx, fb).Error(0)
}

func (m *mockStore) ListFeedback(ctx context.Context, userID *int64) ([]models.Feedback, error) {
	args := m.Called(ctx, userID)
	return args.Get(0).([]models.Feedback), args.Error(1)
}

func (m *mockStore) DashboardStats(ctx context.Context, since time.Time) (*models.DashboardStats, error) {
	args := m.Called(ctx, since)
	s, _ := args.Get(0).(*models.DashboardStats)
	return s, args.Error(1)
}

// mockEvents implements OrderEvents and PaymentEvents
type mockEvents struct {
	mock.Mock
}

func (m *mockEvents) PublishOrderPlaced(ctx context.Context, event *models.OrderPlacedEvent) error {
	return m.Called(ctx, event).Error(0)
}

func (m *mockEvents) PublishOrderStatusChanged(ctx context.Context, event *models.OrderStatusChangedEvent) error {
	return m.Called(ctx, event).Error(0)
}

func (m *mockEvents) PublishPaymentSucceeded(ctx context.Context, event *models.PaymentSucceededEvent) error {
	return m.Called(ctx, event).Error(0)
}

func (m *mockEvents) PublishPaymentFailed(ctx context.Context, event *models.PaymentFailedEvent) error {
	return m.Called(ctx, event).Error(0)
}

// mockCache implements LocationCache and IdempotencyGuard
type mockCache struct {
	mock.Mock
}

func (m *mockCache) CacheRiderLocation(ctx context.Context, loc *models.RiderLocation) (bool, error) {
	args := m.Called(ctx, loc)
	return args.Bool(0), args.Error(1)
}

func (m *mockCache) GetRiderLocation(ctx context.Context, riderID int64) (*models.RiderLocation, error) {
	args := m.Called(ctx, riderID)
	loc, _ := args.Get(0).(*models.RiderLocation)
	return loc, args.Error(1)
}

func (m *mockCache) ClaimIdempotencyKey(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	args := m.Called(ctx, key, ttl)
	return args.Bool(0), args.Error(1)
}

func (m *mockCache) ReleaseIdempotencyKey(ctx context.Context, key string) error {
	return m.Called(ctx, key).Error(0)
}

type mockGateway struct {
	mock.Mock
}

func (m *mockGateway) CreatePaymentIntent(ctx context.Context, amountCents int64, orderID int64) (*payment.Intent, error) {
	args := m.Called(ctx, amountCents, orderID)
	intent, _ := args.Get(0).(*payment.Intent)
	return intent, args.Error(1)
}

func (m *mockGateway) ParseWebhook(payload []byte, signature string) (*payment.WebhookEvent, error) {
	args := m.Called(payload, signature)
	event, _ := args.Get(0).(*payment.WebhookEvent)
	return event, args.Error(1)
}

type mockTokens struct {
	mock.Mock
}

func (m *mockTokens) GenerateTokenPair(id models.Identity) (*auth.TokenPair, error) {
	args := m.Called(id)
	pair, _ := args.Get(0).(*auth.TokenPair)
	return pair, args.Error(1)
}

func (m *mockTokens) ValidateRefreshToken(token string) (*auth.Claims, error) {
	args := m.Called(token)
	claims, _ := args.Get(0).(*auth.Claims)
	return claims, args.Error(1)
}

type publishedMessage struct {
	topic relay.Topic
	msg   relay.Outbound
}

// recordingPublisher keeps every relay publish in call order
type recordingPublisher struct {
	mu        sync.Mutex
	messages  []publishedMessage
	onPublish func(topic relay.Topic)
}

func (p *recordingPublisher) Publish(_ context.Context, topic relay.Topic, msg relay.Outbound) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.messages = append(p.messages, publishedMessage{topic: topic, msg: msg})
	if p.onPublish != nil {
		p.onPublish(topic)
	}
	return nil
}

func (p *recordingPublisher) topics() []relay.Topic {
	p.mu.Lock()
	defer p.mu.Unlock()
	topics := make([]relay.Topic, 0, len(p.messages))
	for _, m := range p.messages {
		topics = append(topics, m.topic)
	}
	return topics
}
