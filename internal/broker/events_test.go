package broker

import (
	"context"
	"encoding/json"
	"testing"

	"food-delivery/internal/models"

	"github.com/segmentio/kafka-go"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordedEvent struct {
	key   string
	value []byte
}

type recordingSink struct {
	events []recordedEvent
}

func (s *recordingSink) PublishEvent(_ context.Context, key string, event interface{}) error {
	b, err := json.Marshal(event)
	if err != nil {
		return err
	}
	s.events = append(s.events, recordedEvent{key: key, value: b})
	return nil
}

func TestEventPublisher_KeysByOrder(t *testing.T) {
	sink := &recordingSink{}
	pub := NewEventPublisher(sink)
	ctx := context.Background()

	require.NoError(t, pub.PublishOrderPlaced(ctx, &models.OrderPlacedEvent{
		BaseEvent:  NewBaseEvent(models.EventTypeOrderPlaced),
		OrderID:    5,
		GrandTotal: decimal.RequireFromString("42.67"),
	}))
	require.NoError(t, pub.PublishPaymentFailed(ctx, &models.PaymentFailedEvent{
		BaseEvent: NewBaseEvent(models.EventTypePaymentFailed),
		OrderID:   5,
	}))

	require.Len(t, sink.events, 2)
	assert.Equal(t, "order-5", sink.events[0].key)
	assert.Equal(t, "order-5", sink.events[1].key)

	var placed models.OrderPlacedEvent
	require.NoError(t, json.Unmarshal(sink.events[0].value, &placed))
	assert.Equal(t, models.EventTypeOrderPlaced, placed.EventType)
	assert.NotEmpty(t, placed.EventID)
	assert.True(t, decimal.RequireFromString("42.67").Equal(placed.GrandTotal))
}

func TestEventHandler_RoutesByType(t *testing.T) {
	sink := &recordingSink{}
	pub := NewEventPublisher(sink)
	ctx := context.Background()
	rider := int64(3)

	require.NoError(t, pub.PublishOrderStatusChanged(ctx, &models.OrderStatusChangedEvent{
		BaseEvent: NewBaseEvent(models.EventTypeOrderStatusChanged),
		OrderID:   5,
		UserID:    7,
		RiderID:   &rider,
		From:      models.OrderStatusReady,
		To:        models.OrderStatusOutForDelivery,
	}))
	require.NoError(t, pub.PublishPaymentSucceeded(ctx, &models.PaymentSucceededEvent{
		BaseEvent: NewBaseEvent(models.EventTypePaymentSucceeded),
		OrderID:   5,
		UserID:    7,
	}))

	var (
		changed   *models.OrderStatusChangedEvent
		succeeded *models.PaymentSucceededEvent
	)
	h := NewEventHandler()
	h.OnOrderStatusChanged(func(_ context.Context, e *models.OrderStatusChangedEvent) error {
		changed = e
		return nil
	})
	h.OnPaymentSucceeded(func(_ context.Context, e *models.PaymentSucceededEvent) error {
		succeeded = e
		return nil
	})

	for _, e := range sink.events {
		require.NoError(t, h.HandleMessage(ctx, kafka.Message{Key: []byte(e.key), Value: e.value}))
	}

	require.NotNil(t, changed)
	assert.Equal(t, models.OrderStatusOutForDelivery, changed.To)
	assert.Equal(t, int64(3), *changed.RiderID)
	require.NotNil(t, succeeded)
	assert.Equal(t, int64(7), succeeded.UserID)
}

func TestEventHandler_IgnoresUnregisteredAndUnknown(t *testing.T) {
	h := NewEventHandler()
	ctx := context.Background()

	assert.NoError(t, h.HandleMessage(ctx, kafka.Message{Value: []byte(`{"event_type":"ORDER_PLACED","order_id":1}`)}))
	assert.NoError(t, h.HandleMessage(ctx, kafka.Message{Value: []byte(`{"event_type":"SOMETHING_ELSE"}`)}))
	assert.Error(t, h.HandleMessage(ctx, kafka.Message{Value: []byte(`not json`)}))
}
