package worker

import (
	"context"
	"fmt"
	"time"

	"food-delivery/internal/broker"
	"food-delivery/internal/models"
	"food-delivery/internal/relay"
	"food-delivery/internal/util"

	"go.uber.org/zap"
)

// EventSource feeds raw events to a handler until its context ends
type EventSource interface {
	StartConsuming(ctx context.Context, handler broker.MessageHandler) error
	Close() error
}

// NotificationWorker turns order and payment events into user notifications
type NotificationWorker struct {
	source       EventSource
	eventHandler *broker.EventHandler
	publisher    relay.Publisher
	logger       *zap.Logger
}

// NewNotificationWorker creates a new notification worker
func NewNotificationWorker(source EventSource, publisher relay.Publisher) *NotificationWorker {
	w := &NotificationWorker{
		source:       source,
		eventHandler: broker.NewEventHandler(),
		publisher:    publisher,
		logger:       util.GetLogger(),
	}

	w.eventHandler.OnOrderPlaced(w.handleOrderPlaced)
	w.eventHandler.OnOrderStatusChanged(w.handleOrderStatusChanged)
	w.eventHandler.OnPaymentSucceeded(w.handlePaymentSucceeded)
	w.eventHandler.OnPaymentFailed(w.handlePaymentFailed)

	return w
}

// Handler exposes the event router, mainly for tests
func (w *NotificationWorker) Handler() broker.MessageHandler {
	return w.eventHandler.HandleMessage
}

// Start starts the worker
func (w *NotificationWorker) Start(ctx context.Context) error {
	w.logger.Info("Starting notification worker")
	return w.source.StartConsuming(ctx, w.eventHandler.HandleMessage)
}

// Stop stops the worker
func (w *NotificationWorker) Stop() error {
	w.logger.Info("Stopping notification worker")
	return w.source.Close()
}

func (w *NotificationWorker) notify(ctx context.Context, userID int64, n relay.Notification) error {
	if n.Timestamp.IsZero() {
		n.Timestamp = time.Now()
	}
	if err := w.publisher.Publish(ctx, relay.NotificationTopic(userID), n); err != nil {
		return fmt.Errorf("failed to publish notification: %w", err)
	}
	w.logger.Debug("Notification sent",
		zap.Int64("user_id", userID),
		zap.String("notification_type", n.NotificationType))
	return nil
}

func (w *NotificationWorker) handleOrderPlaced(ctx context.Context, event *models.OrderPlacedEvent) error {
	orderID := event.OrderID
	return w.notify(ctx, event.UserID, relay.Notification{
		NotificationType: "order_placed",
		Title:            "Order placed",
		Message:          fmt.Sprintf("Your order %s has been placed. Total: %s", event.OrderNumber, event.GrandTotal.StringFixed(2)),
		OrderID:          &orderID,
		Timestamp:        event.Timestamp,
	})
}

func (w *NotificationWorker) handleOrderStatusChanged(ctx context.Context, event *models.OrderStatusChangedEvent) error {
	orderID := event.OrderID
	message := event.Description
	if message == "" {
		message = event.To.Description()
	}
	return w.notify(ctx, event.UserID, relay.Notification{
		NotificationType: "order_status",
		Title:            fmt.Sprintf("Order %s", event.OrderNumber),
		Message:          message,
		OrderID:          &orderID,
		Timestamp:        event.Timestamp,
	})
}

func (w *NotificationWorker) handlePaymentSucceeded(ctx context.Context, event *models.PaymentSucceededEvent) error {
	orderID := event.OrderID
	return w.notify(ctx, event.UserID, relay.Notification{
		NotificationType: "payment_succeeded",
		Title:            "Payment received",
		Message:          fmt.Sprintf("Payment for order #%d was successful", event.OrderID),
		OrderID:          &orderID,
		Timestamp:        event.Timestamp,
	})
}

func (w *NotificationWorker) handlePaymentFailed(ctx context.Context, event *models.PaymentFailedEvent) error {
	orderID := event.OrderID
	return w.notify(ctx, event.UserID, relay.Notification{
		NotificationType: "payment_failed",
		Title:            "Payment failed",
		Message:          fmt.Sprintf("Payment for order #%d failed. Please try again", event.OrderID),
		OrderID:          &orderID,
		Timestamp:        event.Timestamp,
	})
}
