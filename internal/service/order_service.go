package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"food-delivery/config"
	"food-delivery/internal/broker"
	"food-delivery/internal/models"
	"food-delivery/internal/relay"
	"food-delivery/internal/store"
	"food-delivery/internal/util"

	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

const defaultPaymentMethod = "cash"

// OrderService handles order business logic
type OrderService struct {
	store   OrderStore
	relay   relay.Publisher
	events  OrderEvents
	pricing config.BusinessConfig
	logger  *zap.Logger
}

// NewOrderService creates a new order service
func NewOrderService(
	store OrderStore,
	publisher relay.Publisher,
	events OrderEvents,
	pricing config.BusinessConfig,
) *OrderService {
	return &OrderService{
		store:   store,
		relay:   publisher,
		events:  events,
		pricing: pricing,
		logger:  util.GetLogger(),
	}
}

// PlaceOrderRequest carries the delivery details of a checkout
type PlaceOrderRequest struct {
	DeliveryAddress string `json:"delivery_address" binding:"required"`
	Phone           string `json:"phone" binding:"required"`
	Notes           string `json:"notes"`
	PaymentMethod   string `json:"payment_method"`
}

// UpdateStatusRequest moves an order along its lifecycle
type UpdateStatusRequest struct {
	Status      models.OrderStatus `json:"status" binding:"required"`
	Description string             `json:"description"`
	Latitude    *decimal.Decimal   `json:"latitude"`
	Longitude   *decimal.Decimal   `json:"longitude"`
}

// TrackingInfo is the customer view of a delivery
type TrackingInfo struct {
	Order         *models.Order                `json:"order"`
	History       []models.DeliveryStatusEntry `json:"status_history"`
	RiderLocation *models.RiderLocation        `json:"rider_location"`
}

// PlaceOrder converts the caller's cart into an order
func (s *OrderService) PlaceOrder(ctx context.Context, caller models.Identity, req *PlaceOrderRequest) (*models.Order, error) {
	ctx, span := util.StartSpan(ctx, "OrderService.PlaceOrder", attribute.Int64("user_id", caller.UserID))
	defer span.End()

	start := time.Now()
	draft, err := s.store.Checkout(ctx, caller.UserID, func(lines []models.CartLine) (*store.OrderDraft, error) {
		return s.buildOrder(caller, req, lines)
	})
	util.CheckoutLatency.Observe(time.Since(start).Seconds())
	if err != nil {
		util.OrdersFailedTotal.WithLabelValues(checkoutFailureReason(err)).Inc()
		return nil, fmt.Errorf("failed to place order: %w", err)
	}

	order := draft.Order
	util.OrdersPlacedTotal.Inc()
	s.logger.Info("Order placed",
		zap.Int64("order_id", order.ID),
		zap.String("order_number", order.OrderNumber),
		zap.String("grand_total", order.GrandTotal.StringFixed(2)))

	s.publishStatus(ctx, order, draft.InitialStatus)

	items := make([]models.OrderItemData, 0, len(order.Items))
	for _, item := range order.Items {
		items = append(items, models.OrderItemData{
			FoodItemID: item.FoodItemID,
			Quantity:   item.Quantity,
			UnitPrice:  item.Price,
		})
	}
	event := &models.OrderPlacedEvent{
		BaseEvent:   broker.NewBaseEvent(models.EventTypeOrderPlaced),
		OrderID:     order.ID,
		OrderNumber: order.OrderNumber,
		UserID:      order.UserID,
		GrandTotal:  order.GrandTotal,
		Items:       items,
	}
	if err := s.events.PublishOrderPlaced(ctx, event); err != nil {
		s.logger.Error("Failed to publish OrderPlaced event", zap.Int64("order_id", order.ID), zap.Error(err))
	}

	return order, nil
}

func (s *OrderService) buildOrder(caller models.Identity, req *PlaceOrderRequest, lines []models.CartLine) (*store.OrderDraft, error) {
	if len(lines) == 0 {
		return nil, models.ErrEmptyCart
	}

	totals := models.ComputeTotals(lines, s.pricing.TaxRate, s.pricing.DeliveryFee)

	items := make([]models.OrderItem, 0, len(lines))
	for _, l := range lines {
		items = append(items, models.OrderItem{
			FoodItemID: l.FoodItemID,
			ItemName:   l.ItemName,
			Quantity:   l.Quantity,
			Price:      l.ItemPrice,
		})
	}

	paymentMethod := req.PaymentMethod
	if paymentMethod == "" {
		paymentMethod = defaultPaymentMethod
	}

	userID := caller.UserID
	return &store.OrderDraft{
		Order: &models.Order{
			OrderNumber:     models.GenerateOrderNumber(),
			UserID:          caller.UserID,
			Subtotal:        totals.Subtotal,
			Tax:             totals.Tax,
			DeliveryFee:     totals.DeliveryFee,
			GrandTotal:      totals.GrandTotal,
			DeliveryAddress: req.DeliveryAddress,
			Phone:           req.Phone,
			Notes:           req.Notes,
			Status:          models.OrderStatusPending,
			PaymentStatus:   models.PaymentStatusPending,
			PaymentMethod:   paymentMethod,
			Items:           items,
		},
		InitialStatus: &models.DeliveryStatusEntry{
			Status:      models.OrderStatusPending,
			Description: models.OrderStatusPending.Description(),
			UpdatedBy:   &userID,
		},
	}, nil
}

func checkoutFailureReason(err error) string {
	switch {
	case errors.Is(err, models.ErrEmptyCart):
		return "empty_cart"
	case errors.Is(err, models.ErrInsufficientStock):
		return "insufficient_stock"
	default:
		return "db_error"
	}
}

// CancelOrder cancels an order the caller owns while it is still pending or
// confirmed
func (s *OrderService) CancelOrder(ctx context.Context, caller models.Identity, orderID int64) (*models.Order, error) {
	ctx, span := util.StartSpan(ctx, "OrderService.CancelOrder", attribute.Int64("order_id", orderID))
	defer span.End()

	var from models.OrderStatus
	order, entry, err := s.store.TransitionOrder(ctx, orderID, func(o *models.Order) (*models.DeliveryStatusEntry, error) {
		if !o.OwnedBy(caller.UserID) && !caller.IsAdmin() {
			return nil, fmt.Errorf("order %d: %w", orderID, models.ErrNotFound)
		}
		if !o.CanCancel() {
			return nil, fmt.Errorf("order %d is %s: %w", orderID, o.Status, models.ErrCannotCancel)
		}
		from = o.Status
		return &models.DeliveryStatusEntry{
			Status:      models.OrderStatusCancelled,
			Description: models.OrderStatusCancelled.Description(),
			UpdatedBy:   &caller.UserID,
		}, nil
	})
	if err != nil {
		return nil, err
	}

	s.afterTransition(ctx, order, entry, from)
	return order, nil
}

// UpdateStatus applies a staff status change subject to the caller's role
// and the lifecycle rules
func (s *OrderService) UpdateStatus(ctx context.Context, caller models.Identity, orderID int64, req *UpdateStatusRequest) (*models.Order, error) {
	ctx, span := util.StartSpan(ctx, "OrderService.UpdateStatus",
		attribute.Int64("order_id", orderID),
		attribute.String("status", string(req.Status)))
	defer span.End()

	if !req.Status.Valid() {
		return nil, models.NewValidationError("status", fmt.Sprintf("%q is not a valid status", req.Status))
	}
	if !models.StatusAllowedForRole(caller.Role, req.Status) {
		return nil, fmt.Errorf("role %s cannot set status %s: %w", caller.Role, req.Status, models.ErrForbidden)
	}

	description := req.Description
	if description == "" {
		description = req.Status.Description()
	}

	var from models.OrderStatus
	order, entry, err := s.store.TransitionOrder(ctx, orderID, func(o *models.Order) (*models.DeliveryStatusEntry, error) {
		if caller.IsRider() && !o.AssignedTo(caller.UserID) {
			return nil, fmt.Errorf("order %d is not assigned to rider %d: %w", orderID, caller.UserID, models.ErrForbidden)
		}
		if !o.Status.CanTransitionTo(req.Status) {
			if req.Status == models.OrderStatusCancelled {
				return nil, fmt.Errorf("order %d is %s: %w", orderID, o.Status, models.ErrCannotCancel)
			}
			return nil, fmt.Errorf("%s -> %s: %w", o.Status, req.Status, models.ErrInvalidTransition)
		}
		from = o.Status
		return &models.DeliveryStatusEntry{
			Status:      req.Status,
			Description: description,
			Latitude:    req.Latitude,
			Longitude:   req.Longitude,
			UpdatedBy:   &caller.UserID,
		}, nil
	})
	if err != nil {
		return nil, err
	}

	s.afterTransition(ctx, order, entry, from)
	return order, nil
}

func (s *OrderService) afterTransition(ctx context.Context, order *models.Order, entry *models.DeliveryStatusEntry, from models.OrderStatus) {
	util.OrderTransitionsTotal.WithLabelValues(string(entry.Status)).Inc()
	if entry.Status == models.OrderStatusCancelled {
		util.OrdersCancelledTotal.Inc()
	}

	s.logger.Info("Order status changed",
		zap.Int64("order_id", order.ID),
		zap.String("from", string(from)),
		zap.String("to", string(entry.Status)))

	s.publishStatus(ctx, order, entry)

	event := &models.OrderStatusChangedEvent{
		BaseEvent:   broker.NewBaseEvent(models.EventTypeOrderStatusChanged),
		OrderID:     order.ID,
		OrderNumber: order.OrderNumber,
		UserID:      order.UserID,
		RiderID:     order.RiderID,
		From:        from,
		To:          entry.Status,
		Description: entry.Description,
	}
	if err := s.events.PublishOrderStatusChanged(ctx, event); err != nil {
		s.logger.Error("Failed to publish OrderStatusChanged event", zap.Int64("order_id", order.ID), zap.Error(err))
	}
}

// publishStatus tells the order's observers first, then the admin room
func (s *OrderService) publishStatus(ctx context.Context, order *models.Order, entry *models.DeliveryStatusEntry) {
	s.publish(ctx, relay.DeliveryTopic(order.ID), relay.DeliveryUpdate{
		OrderID:     order.ID,
		Status:      entry.Status,
		Description: entry.Description,
		Latitude:    entry.Latitude,
		Longitude:   entry.Longitude,
		Timestamp:   entry.Timestamp,
	})
	s.publish(ctx, relay.AdminTracking, relay.OrderStatusUpdate{
		OrderID:     order.ID,
		OrderNumber: order.OrderNumber,
		Status:      entry.Status,
		RiderID:     order.RiderID,
		Timestamp:   entry.Timestamp,
	})
}

func (s *OrderService) publish(ctx context.Context, topic relay.Topic, msg relay.Outbound) {
	if err := s.relay.Publish(ctx, topic, msg); err != nil {
		s.logger.Warn("Failed to publish relay message",
			zap.String("topic", string(topic)),
			zap.String("type", msg.MessageType()),
			zap.Error(err))
	}
}

// AssignRider sets the rider of an order and notifies them
func (s *OrderService) AssignRider(ctx context.Context, caller models.Identity, orderID, riderID int64) (*models.Order, error) {
	ctx, span := util.StartSpan(ctx, "OrderService.AssignRider",
		attribute.Int64("order_id", orderID),
		attribute.Int64("rider_id", riderID))
	defer span.End()

	if !caller.IsAdmin() {
		return nil, fmt.Errorf("assign rider: %w", models.ErrForbidden)
	}

	if err := s.store.AssignRider(ctx, orderID, riderID); err != nil {
		return nil, fmt.Errorf("failed to assign rider: %w", err)
	}

	order, err := s.store.GetOrder(ctx, orderID)
	if err != nil {
		return nil, fmt.Errorf("failed to get order: %w", err)
	}

	s.logger.Info("Rider assigned", zap.Int64("order_id", orderID), zap.Int64("rider_id", riderID))

	now := time.Now()
	s.publish(ctx, relay.RiderTopic(riderID), relay.Notification{
		NotificationType: "order_assigned",
		Title:            "New delivery",
		Message:          fmt.Sprintf("Order %s has been assigned to you", order.OrderNumber),
		OrderID:          &order.ID,
		Timestamp:        now,
	})
	s.publish(ctx, relay.AdminTracking, relay.OrderStatusUpdate{
		OrderID:     order.ID,
		OrderNumber: order.OrderNumber,
		Status:      order.Status,
		RiderID:     order.RiderID,
		Timestamp:   now,
	})

	return order, nil
}

// canView reports whether caller may see order. Callers that may not see an
// order are told it does not exist.
func canView(caller models.Identity, order *models.Order) bool {
	switch caller.Role {
	case models.RoleAdmin, models.RoleRestaurant:
		return true
	case models.RoleRider:
		return order.AssignedTo(caller.UserID)
	default:
		return order.OwnedBy(caller.UserID)
	}
}

// GetOrder retrieves an order visible to the caller
func (s *OrderService) GetOrder(ctx context.Context, caller models.Identity, orderID int64) (*models.Order, error) {
	ctx, span := util.StartSpan(ctx, "OrderService.GetOrder", attribute.Int64("order_id", orderID))
	defer span.End()

	order, err := s.store.GetOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if !canView(caller, order) {
		return nil, fmt.Errorf("order %d: %w", orderID, models.ErrNotFound)
	}
	return order, nil
}

// ListOrders lists the orders the caller can see, newest first
func (s *OrderService) ListOrders(ctx context.Context, caller models.Identity) ([]models.Order, error) {
	ctx, span := util.StartSpan(ctx, "OrderService.ListOrders")
	defer span.End()

	switch caller.Role {
	case models.RoleAdmin, models.RoleRestaurant:
		return s.store.ListOrders(ctx, nil)
	case models.RoleRider:
		return s.store.ListRiderOrders(ctx, caller.UserID)
	default:
		return s.store.ListOrders(ctx, &caller.UserID)
	}
}

// TrackOrder returns the status history newest first and, while the order is
// out for delivery, the rider's latest position
func (s *OrderService) TrackOrder(ctx context.Context, caller models.Identity, orderID int64) (*TrackingInfo, error) {
	ctx, span := util.StartSpan(ctx, "OrderService.TrackOrder", attribute.Int64("order_id", orderID))
	defer span.End()

	order, err := s.GetOrder(ctx, caller, orderID)
	if err != nil {
		return nil, err
	}

	history, err := s.store.ListDeliveryStatuses(ctx, orderID)
	if err != nil {
		return nil, fmt.Errorf("failed to load status history: %w", err)
	}

	info := &TrackingInfo{Order: order, History: history}
	if order.Status == models.OrderStatusOutForDelivery && order.RiderID != nil {
		loc, err := s.store.LatestRiderLocation(ctx, *order.RiderID, &order.ID)
		if err != nil {
			return nil, fmt.Errorf("failed to load rider location: %w", err)
		}
		info.RiderLocation = loc
	}
	return info, nil
}

// SoftDeleteOrder hides an order from every listing
func (s *OrderService) SoftDeleteOrder(ctx context.Context, caller models.Identity, orderID int64) error {
	ctx, span := util.StartSpan(ctx, "OrderService.SoftDeleteOrder", attribute.Int64("order_id", orderID))
	defer span.End()

	if !caller.IsAdmin() {
		return fmt.Errorf("delete order: %w", models.ErrForbidden)
	}
	if err := s.store.SoftDeleteOrder(ctx, orderID); err != nil {
		return err
	}
	s.logger.Info("Order soft deleted", zap.Int64("order_id", orderID), zap.Int64("by", caller.UserID))
	return nil
}

// RestoreOrder brings back a soft deleted order
func (s *OrderService) RestoreOrder(ctx context.Context, caller models.Identity, orderID int64) error {
	ctx, span := util.StartSpan(ctx, "OrderService.RestoreOrder", attribute.Int64("order_id", orderID))
	defer span.End()

	if !caller.IsAdmin() {
		return fmt.Errorf("restore order: %w", models.ErrForbidden)
	}
	if err := s.store.RestoreOrder(ctx, orderID); err != nil {
		return err
	}
	s.logger.Info("Order restored", zap.Int64("order_id", orderID), zap.Int64("by", caller.UserID))
	return nil
}
