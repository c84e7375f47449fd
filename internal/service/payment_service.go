package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"food-delivery/internal/broker"
	"food-delivery/internal/models"
	"food-delivery/internal/payment"
	"food-delivery/internal/util"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

const webhookDedupTTL = 24 * time.Hour

// PaymentService creates payment intents and applies provider webhooks
type PaymentService struct {
	store   PaymentStore
	gateway PaymentGateway
	dedup   IdempotencyGuard
	events  PaymentEvents
	logger  *zap.Logger
}

// NewPaymentService creates a new payment service
func NewPaymentService(store PaymentStore, gateway PaymentGateway, dedup IdempotencyGuard, events PaymentEvents) *PaymentService {
	return &PaymentService{
		store:   store,
		gateway: gateway,
		dedup:   dedup,
		events:  events,
		logger:  util.GetLogger(),
	}
}

// CreatePaymentIntent starts a card payment for the caller's order
func (ps *PaymentService) CreatePaymentIntent(ctx context.Context, caller models.Identity, orderID int64) (*payment.Intent, error) {
	ctx, span := util.StartSpan(ctx, "PaymentService.CreatePaymentIntent", attribute.Int64("order_id", orderID))
	defer span.End()

	order, err := ps.store.GetOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if !order.OwnedBy(caller.UserID) {
		return nil, fmt.Errorf("order %d: %w", orderID, models.ErrNotFound)
	}
	if order.PaymentStatus == models.PaymentStatusPaid {
		return nil, fmt.Errorf("order %d is already paid: %w", orderID, models.ErrConflict)
	}
	if order.Status == models.OrderStatusCancelled {
		return nil, models.NewValidationError("order_id", "order is cancelled")
	}

	amount := models.AmountInCents(order.GrandTotal)
	intent, err := ps.gateway.CreatePaymentIntent(ctx, amount, order.ID)
	if err != nil {
		util.PaymentIntentsTotal.WithLabelValues("error").Inc()
		return nil, err
	}

	if err := ps.store.SetPaymentIntent(ctx, order.ID, intent.ID); err != nil {
		util.PaymentIntentsTotal.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("failed to store payment intent: %w", err)
	}

	util.PaymentIntentsTotal.WithLabelValues("created").Inc()
	ps.logger.Info("Payment intent created",
		zap.Int64("order_id", order.ID),
		zap.Int64("amount_cents", amount),
		zap.String("intent_id", intent.ID))

	return intent, nil
}

// HandleWebhook verifies and applies a provider callback. Only an
// unauthenticated payload is an error for the caller; events for unknown
// orders and repeated deliveries are acknowledged without effect.
func (ps *PaymentService) HandleWebhook(ctx context.Context, payload []byte, signature string) error {
	ctx, span := util.StartSpan(ctx, "PaymentService.HandleWebhook")
	defer span.End()

	event, err := ps.gateway.ParseWebhook(payload, signature)
	if err != nil {
		util.PaymentWebhooksTotal.WithLabelValues("rejected").Inc()
		return err
	}
	span.SetAttributes(attribute.String("event_type", event.Type), attribute.String("event_id", event.ID))

	var status models.PaymentStatus
	switch event.Type {
	case payment.EventPaymentSucceeded:
		status = models.PaymentStatusPaid
	case payment.EventPaymentFailed:
		status = models.PaymentStatusFailed
	default:
		util.PaymentWebhooksTotal.WithLabelValues("ignored").Inc()
		return nil
	}

	if event.OrderID == 0 {
		ps.logger.Warn("Payment webhook without order reference", zap.String("event_id", event.ID))
		util.PaymentWebhooksTotal.WithLabelValues("unknown_order").Inc()
		return nil
	}

	key := "webhook:stripe:" + event.ID
	claimed, err := ps.dedup.ClaimIdempotencyKey(ctx, key, webhookDedupTTL)
	if err != nil {
		ps.logger.Warn("Failed to claim webhook idempotency key", zap.String("event_id", event.ID), zap.Error(err))
		claimed = true
	}
	if !claimed {
		ps.logger.Info("Duplicate payment webhook skipped", zap.String("event_id", event.ID))
		util.PaymentWebhooksTotal.WithLabelValues("duplicate").Inc()
		return nil
	}

	result, err := ps.applyPaymentStatus(ctx, event, status)
	if err != nil {
		// A failed update is answered with an error and the key is freed so the
		// provider's redelivery is applied. Any other verified event is
		// acknowledged even when it changed nothing.
		if relErr := ps.dedup.ReleaseIdempotencyKey(ctx, key); relErr != nil {
			ps.logger.Warn("Failed to release webhook idempotency key", zap.String("event_id", event.ID), zap.Error(relErr))
		}
		util.PaymentWebhooksTotal.WithLabelValues("error").Inc()
		return err
	}

	util.PaymentWebhooksTotal.WithLabelValues(result).Inc()
	return nil
}

func (ps *PaymentService) applyPaymentStatus(ctx context.Context, event *payment.WebhookEvent, status models.PaymentStatus) (string, error) {
	order, err := ps.store.GetOrder(ctx, event.OrderID)
	if errors.Is(err, models.ErrNotFound) {
		ps.logger.Warn("Payment webhook for unknown order",
			zap.String("event_id", event.ID),
			zap.Int64("order_id", event.OrderID))
		return "unknown_order", nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to load order: %w", err)
	}

	changed, err := ps.store.SetPaymentStatus(ctx, order.ID, status)
	if err != nil {
		return "", fmt.Errorf("failed to update payment status: %w", err)
	}
	if !changed {
		return "unchanged", nil
	}

	ps.logger.Info("Payment status updated",
		zap.Int64("order_id", order.ID),
		zap.String("payment_status", string(status)),
		zap.String("intent_id", event.PaymentIntentID))

	if status == models.PaymentStatusPaid {
		err = ps.events.PublishPaymentSucceeded(ctx, &models.PaymentSucceededEvent{
			BaseEvent:       broker.NewBaseEvent(models.EventTypePaymentSucceeded),
			OrderID:         order.ID,
			UserID:          order.UserID,
			PaymentIntentID: event.PaymentIntentID,
		})
	} else {
		err = ps.events.PublishPaymentFailed(ctx, &models.PaymentFailedEvent{
			BaseEvent:       broker.NewBaseEvent(models.EventTypePaymentFailed),
			OrderID:         order.ID,
			UserID:          order.UserID,
			PaymentIntentID: event.PaymentIntentID,
		})
	}
	if err != nil {
		ps.logger.Error("Failed to publish payment event", zap.Int64("order_id", order.ID), zap.Error(err))
	}

	return string(status), nil
}
