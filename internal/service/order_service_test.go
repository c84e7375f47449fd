package service

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"food-delivery/config"
	"food-delivery/internal/models"
	"food-delivery/internal/relay"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

var (
	customer   = models.Identity{UserID: 1, Role: models.RoleCustomer}
	stranger   = models.Identity{UserID: 2, Role: models.RoleCustomer}
	rider      = models.Identity{UserID: 3, Role: models.RoleRider}
	admin      = models.Identity{UserID: 4, Role: models.RoleAdmin}
	restaurant = models.Identity{UserID: 5, Role: models.RoleRestaurant}
)

func testPricing() config.BusinessConfig {
	return config.BusinessConfig{
		TaxRate:     decimal.RequireFromString("0.10"),
		DeliveryFee: decimal.RequireFromString("2.00"),
	}
}

func newOrderService(t *testing.T) (*OrderService, *mockStore, *recordingPublisher, *mockEvents) {
	t.Helper()
	st := &mockStore{}
	pub := &recordingPublisher{}
	events := &mockEvents{}
	return NewOrderService(st, pub, events, testPricing()), st, pub, events
}

func placedOrder(status models.OrderStatus) *models.Order {
	riderID := rider.UserID
	return &models.Order{
		ID:          100,
		OrderNumber: "ORD-ABCDEF12",
		UserID:      customer.UserID,
		Status:      status,
		RiderID:     &riderID,
	}
}

func TestPlaceOrder_ComputesTotalsAndPublishes(t *testing.T) {
	svc, st, pub, events := newOrderService(t)
	lines := []models.CartLine{
		{FoodItemID: 10, ItemName: "Burger", ItemPrice: decimal.RequireFromString("12.50"), Quantity: 2},
		{FoodItemID: 11, ItemName: "Soda", ItemPrice: decimal.RequireFromString("3.99"), Quantity: 1},
	}
	st.On("Checkout", mock.Anything, customer.UserID).Return(lines, nil)
	events.On("PublishOrderPlaced", mock.Anything, mock.MatchedBy(func(e *models.OrderPlacedEvent) bool {
		return e.OrderID == 100 && e.UserID == customer.UserID && len(e.Items) == 2
	})).Return(nil)

	order, err := svc.PlaceOrder(context.Background(), customer, &PlaceOrderRequest{
		DeliveryAddress: "1 Main St",
		Phone:           "555-0100",
	})
	require.NoError(t, err)

	itemsTotal := decimal.Zero
	for _, item := range order.Items {
		itemsTotal = itemsTotal.Add(item.Price.Mul(decimal.NewFromInt(int64(item.Quantity))))
	}
	assert.True(t, itemsTotal.Equal(order.Subtotal))
	assert.Equal(t, "28.99", order.Subtotal.StringFixed(2))
	assert.Equal(t, "2.90", order.Tax.StringFixed(2))
	assert.Equal(t, "2.00", order.DeliveryFee.StringFixed(2))
	assert.True(t, order.GrandTotal.Equal(order.Subtotal.Add(order.Tax).Add(order.DeliveryFee)))
	assert.Equal(t, "33.89", order.GrandTotal.StringFixed(2))

	assert.Equal(t, models.OrderStatusPending, order.Status)
	assert.Equal(t, models.PaymentStatusPending, order.PaymentStatus)
	assert.Equal(t, defaultPaymentMethod, order.PaymentMethod)
	assert.Regexp(t, `^ORD-[0-9A-F]{8}$`, order.OrderNumber)

	assert.Equal(t, []relay.Topic{relay.DeliveryTopic(100), relay.AdminTracking}, pub.topics())
	update := pub.messages[0].msg.(relay.DeliveryUpdate)
	assert.Equal(t, models.OrderStatusPending, update.Status)
	assert.Equal(t, "Order placed successfully", update.Description)

	events.AssertExpectations(t)
}

func TestPlaceOrder_EmptyCartRejected(t *testing.T) {
	svc, st, pub, events := newOrderService(t)
	st.On("Checkout", mock.Anything, customer.UserID).Return([]models.CartLine{}, nil)

	order, err := svc.PlaceOrder(context.Background(), customer, &PlaceOrderRequest{DeliveryAddress: "x", Phone: "y"})
	assert.Nil(t, order)
	assert.ErrorIs(t, err, models.ErrEmptyCart)
	assert.Empty(t, pub.topics())
	events.AssertNotCalled(t, "PublishOrderPlaced", mock.Anything, mock.Anything)
}

func TestPlaceOrder_InsufficientStock(t *testing.T) {
	svc, st, pub, _ := newOrderService(t)
	st.On("Checkout", mock.Anything, customer.UserID).Return(nil, models.ErrInsufficientStock)

	_, err := svc.PlaceOrder(context.Background(), customer, &PlaceOrderRequest{DeliveryAddress: "x", Phone: "y"})
	assert.ErrorIs(t, err, models.ErrInsufficientStock)
	assert.Empty(t, pub.topics())
}

func TestPlaceOrder_EventFailureDoesNotFailOrder(t *testing.T) {
	svc, st, _, events := newOrderService(t)
	lines := []models.CartLine{{FoodItemID: 10, ItemPrice: decimal.NewFromInt(5), Quantity: 1}}
	st.On("Checkout", mock.Anything, customer.UserID).Return(lines, nil)
	events.On("PublishOrderPlaced", mock.Anything, mock.Anything).Return(errors.New("kafka down"))

	order, err := svc.PlaceOrder(context.Background(), customer, &PlaceOrderRequest{DeliveryAddress: "x", Phone: "y", PaymentMethod: "card"})
	require.NoError(t, err)
	assert.Equal(t, "card", order.PaymentMethod)
}

func TestCancelOrder_OnlyFromPendingOrConfirmed(t *testing.T) {
	tests := []struct {
		status  models.OrderStatus
		wantErr error
	}{
		{models.OrderStatusPending, nil},
		{models.OrderStatusConfirmed, nil},
		{models.OrderStatusPreparing, models.ErrCannotCancel},
		{models.OrderStatusReady, models.ErrCannotCancel},
		{models.OrderStatusOutForDelivery, models.ErrCannotCancel},
		{models.OrderStatusDelivered, models.ErrCannotCancel},
		{models.OrderStatusCancelled, models.ErrCannotCancel},
	}

	for _, tt := range tests {
		t.Run(string(tt.status), func(t *testing.T) {
			svc, st, pub, events := newOrderService(t)
			st.On("TransitionOrder", mock.Anything, int64(100)).Return(placedOrder(tt.status), nil)
			events.On("PublishOrderStatusChanged", mock.Anything, mock.Anything).Return(nil)

			order, err := svc.CancelOrder(context.Background(), customer, 100)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				assert.Empty(t, st.transitions)
				assert.Empty(t, pub.topics())
				return
			}

			require.NoError(t, err)
			assert.Equal(t, models.OrderStatusCancelled, order.Status)
			require.Len(t, st.transitions, 1)
			assert.Equal(t, models.OrderStatusCancelled, st.transitions[0].Status)
			assert.Equal(t, []relay.Topic{relay.DeliveryTopic(100), relay.AdminTracking}, pub.topics())
		})
	}
}

func TestCancelOrder_OtherCustomerSeesNotFound(t *testing.T) {
	svc, st, _, _ := newOrderService(t)
	st.On("TransitionOrder", mock.Anything, int64(100)).Return(placedOrder(models.OrderStatusPending), nil)

	_, err := svc.CancelOrder(context.Background(), stranger, 100)
	assert.ErrorIs(t, err, models.ErrNotFound)
	assert.Empty(t, st.transitions)
}

func TestUpdateStatus_RulesByRole(t *testing.T) {
	tests := []struct {
		name    string
		caller  models.Identity
		from    models.OrderStatus
		to      models.OrderStatus
		wantErr error
	}{
		{"restaurant confirms", restaurant, models.OrderStatusPending, models.OrderStatusConfirmed, nil},
		{"restaurant skips ahead", restaurant, models.OrderStatusPending, models.OrderStatusReady, nil},
		{"restaurant cannot deliver", restaurant, models.OrderStatusReady, models.OrderStatusDelivered, models.ErrForbidden},
		{"rider picks up", rider, models.OrderStatusReady, models.OrderStatusOutForDelivery, nil},
		{"customer cannot update", customer, models.OrderStatusPending, models.OrderStatusConfirmed, models.ErrForbidden},
		{"no going back", admin, models.OrderStatusPreparing, models.OrderStatusConfirmed, models.ErrInvalidTransition},
		{"terminal stays terminal", admin, models.OrderStatusDelivered, models.OrderStatusOutForDelivery, models.ErrInvalidTransition},
		{"admin late cancel", admin, models.OrderStatusPreparing, models.OrderStatusCancelled, models.ErrCannotCancel},
		{"admin early cancel", admin, models.OrderStatusConfirmed, models.OrderStatusCancelled, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, st, _, events := newOrderService(t)
			st.On("TransitionOrder", mock.Anything, int64(100)).Return(placedOrder(tt.from), nil)
			events.On("PublishOrderStatusChanged", mock.Anything, mock.Anything).Return(nil)

			order, err := svc.UpdateStatus(context.Background(), tt.caller, 100, &UpdateStatusRequest{Status: tt.to})
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				assert.Empty(t, st.transitions)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.to, order.Status)
			require.Len(t, st.transitions, 1)
			assert.Equal(t, tt.to.Description(), st.transitions[0].Description)
			assert.Equal(t, tt.caller.UserID, *st.transitions[0].UpdatedBy)
		})
	}
}

func TestUpdateStatus_RiderMustBeAssigned(t *testing.T) {
	svc, st, _, _ := newOrderService(t)
	order := placedOrder(models.OrderStatusReady)
	other := int64(99)
	order.RiderID = &other
	st.On("TransitionOrder", mock.Anything, int64(100)).Return(order, nil)

	_, err := svc.UpdateStatus(context.Background(), rider, 100, &UpdateStatusRequest{Status: models.OrderStatusOutForDelivery})
	assert.ErrorIs(t, err, models.ErrForbidden)
}

func TestUpdateStatus_InvalidStatus(t *testing.T) {
	svc, _, _, _ := newOrderService(t)

	_, err := svc.UpdateStatus(context.Background(), admin, 100, &UpdateStatusRequest{Status: "teleported"})
	var vErr *models.ValidationError
	require.ErrorAs(t, err, &vErr)
	assert.Contains(t, vErr.Fields, "status")
}

func TestUpdateStatus_SequentialUpdatesReachObserverInOrder(t *testing.T) {
	st := &mockStore{}
	events := &mockEvents{}
	hub := relay.NewHub(8)
	svc := NewOrderService(st, hub, events, testPricing())

	sub := hub.Subscribe(relay.DeliveryTopic(100))
	defer sub.Close()

	st.On("TransitionOrder", mock.Anything, int64(100)).Return(placedOrder(models.OrderStatusPending), nil).Once()
	st.On("TransitionOrder", mock.Anything, int64(100)).Return(placedOrder(models.OrderStatusConfirmed), nil).Once()
	events.On("PublishOrderStatusChanged", mock.Anything, mock.Anything).Return(nil)

	ctx := context.Background()
	_, err := svc.UpdateStatus(ctx, restaurant, 100, &UpdateStatusRequest{Status: models.OrderStatusConfirmed})
	require.NoError(t, err)
	_, err = svc.UpdateStatus(ctx, restaurant, 100, &UpdateStatusRequest{Status: models.OrderStatusPreparing, Description: "On the grill"})
	require.NoError(t, err)

	var got []relay.DeliveryUpdate
	for i := 0; i < 2; i++ {
		select {
		case data := <-sub.Messages():
			var m relay.DeliveryUpdate
			require.NoError(t, json.Unmarshal(data, &m))
			got = append(got, m)
		case <-time.After(time.Second):
			t.Fatal("timed out waiting for delivery update")
		}
	}

	assert.Equal(t, models.OrderStatusConfirmed, got[0].Status)
	assert.Equal(t, models.OrderStatusPreparing, got[1].Status)
	assert.Equal(t, "On the grill", got[1].Description)
	assert.Len(t, st.transitions, 2)
	assert.Less(t, st.transitions[0].ID, st.transitions[1].ID)
}

func TestAssignRider(t *testing.T) {
	svc, st, pub, _ := newOrderService(t)

	_, err := svc.AssignRider(context.Background(), restaurant, 100, rider.UserID)
	assert.ErrorIs(t, err, models.ErrForbidden)

	st.On("AssignRider", mock.Anything, int64(100), rider.UserID).Return(nil)
	st.On("GetOrder", mock.Anything, int64(100)).Return(placedOrder(models.OrderStatusReady), nil)

	order, err := svc.AssignRider(context.Background(), admin, 100, rider.UserID)
	require.NoError(t, err)
	assert.True(t, order.AssignedTo(rider.UserID))
	assert.Equal(t, []relay.Topic{relay.RiderTopic(rider.UserID), relay.AdminTracking}, pub.topics())
	note := pub.messages[0].msg.(relay.Notification)
	assert.Equal(t, "order_assigned", note.NotificationType)
}

func TestGetOrder_Visibility(t *testing.T) {
	svc, st, _, _ := newOrderService(t)
	st.On("GetOrder", mock.Anything, int64(100)).Return(placedOrder(models.OrderStatusReady), nil)
	ctx := context.Background()

	for _, caller := range []models.Identity{customer, rider, admin, restaurant} {
		_, err := svc.GetOrder(ctx, caller, 100)
		assert.NoError(t, err, caller.Role)
	}

	_, err := svc.GetOrder(ctx, stranger, 100)
	assert.ErrorIs(t, err, models.ErrNotFound)

	otherRider := models.Identity{UserID: 42, Role: models.RoleRider}
	_, err = svc.GetOrder(ctx, otherRider, 100)
	assert.ErrorIs(t, err, models.ErrNotFound)
}

func TestListOrders_ScopedByRole(t *testing.T) {
	svc, st, _, _ := newOrderService(t)
	all := []models.Order{*placedOrder(models.OrderStatusPending)}
	st.On("ListOrders", mock.Anything, (*int64)(nil)).Return(all, nil)
	st.On("ListOrders", mock.Anything, mock.MatchedBy(func(id *int64) bool { return id != nil && *id == customer.UserID })).Return(all, nil)
	st.On("ListRiderOrders", mock.Anything, rider.UserID).Return(all, nil)
	ctx := context.Background()

	for _, caller := range []models.Identity{admin, customer, rider} {
		orders, err := svc.ListOrders(ctx, caller)
		require.NoError(t, err)
		assert.Len(t, orders, 1)
	}
	st.AssertNumberOfCalls(t, "ListOrders", 2)
	st.AssertNumberOfCalls(t, "ListRiderOrders", 1)
}

func TestTrackOrder(t *testing.T) {
	svc, st, _, _ := newOrderService(t)
	history := []models.DeliveryStatusEntry{
		{ID: 2, Status: models.OrderStatusOutForDelivery},
		{ID: 1, Status: models.OrderStatusPending},
	}
	loc := &models.RiderLocation{RiderID: rider.UserID, Latitude: decimal.RequireFromString("51.5"), Longitude: decimal.RequireFromString("-0.12")}
	st.On("GetOrder", mock.Anything, int64(100)).Return(placedOrder(models.OrderStatusOutForDelivery), nil)
	st.On("ListDeliveryStatuses", mock.Anything, int64(100)).Return(history, nil)
	st.On("LatestRiderLocation", mock.Anything, rider.UserID, mock.Anything).Return(loc, nil)

	info, err := svc.TrackOrder(context.Background(), customer, 100)
	require.NoError(t, err)
	assert.Equal(t, history, info.History)
	assert.Equal(t, loc, info.RiderLocation)
}

func TestTrackOrder_NoLocationBeforePickup(t *testing.T) {
	svc, st, _, _ := newOrderService(t)
	st.On("GetOrder", mock.Anything, int64(100)).Return(placedOrder(models.OrderStatusPreparing), nil)
	st.On("ListDeliveryStatuses", mock.Anything, int64(100)).Return([]models.DeliveryStatusEntry{}, nil)

	info, err := svc.TrackOrder(context.Background(), customer, 100)
	require.NoError(t, err)
	assert.Nil(t, info.RiderLocation)
	st.AssertNotCalled(t, "LatestRiderLocation", mock.Anything, mock.Anything, mock.Anything)
}

func TestSoftDeleteAndRestore_AdminOnly(t *testing.T) {
	svc, st, _, _ := newOrderService(t)
	ctx := context.Background()

	assert.ErrorIs(t, svc.SoftDeleteOrder(ctx, customer, 100), models.ErrForbidden)
	assert.ErrorIs(t, svc.RestoreOrder(ctx, customer, 100), models.ErrForbidden)

	st.On("SoftDeleteOrder", mock.Anything, int64(100)).Return(nil)
	st.On("RestoreOrder", mock.Anything, int64(100)).Return(nil)
	assert.NoError(t, svc.SoftDeleteOrder(ctx, admin, 100))
	assert.NoError(t, svc.RestoreOrder(ctx, admin, 100))
}
