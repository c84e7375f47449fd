package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"food-delivery/internal/models"
	"food-delivery/internal/relay"
	"food-delivery/internal/util"

	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

// Sources of rider location samples
const (
	SourceHTTP      = "http"
	SourceWebSocket = "websocket"
)

var (
	maxLatitude  = decimal.NewFromInt(90)
	maxLongitude = decimal.NewFromInt(180)
)

// TrackingService records rider positions and guards relay subscriptions
type TrackingService struct {
	store  TrackingStore
	cache  LocationCache
	relay  relay.Publisher
	logger *zap.Logger
}

// NewTrackingService creates a new tracking service
func NewTrackingService(store TrackingStore, cache LocationCache, publisher relay.Publisher) *TrackingService {
	return &TrackingService{
		store:  store,
		cache:  cache,
		relay:  publisher,
		logger: util.GetLogger(),
	}
}

// LocationRequest is one GPS sample sent by a rider
type LocationRequest struct {
	OrderID   *int64           `json:"order_id"`
	Latitude  *decimal.Decimal `json:"latitude"`
	Longitude *decimal.Decimal `json:"longitude"`
	Accuracy  float64          `json:"accuracy"`
	Speed     float64          `json:"speed"`
	Heading   float64          `json:"heading"`
}

func (r *LocationRequest) validate() error {
	fields := map[string]string{}
	switch {
	case r.Latitude == nil:
		fields["latitude"] = "is required"
	case r.Latitude.Abs().GreaterThan(maxLatitude):
		fields["latitude"] = "must be between -90 and 90"
	}
	switch {
	case r.Longitude == nil:
		fields["longitude"] = "is required"
	case r.Longitude.Abs().GreaterThan(maxLongitude):
		fields["longitude"] = "must be between -180 and 180"
	}
	if r.Accuracy < 0 {
		fields["accuracy"] = "must not be negative"
	}
	if len(fields) > 0 {
		return &models.ValidationError{Fields: fields}
	}
	return nil
}

// RecordLocation stores a rider sample and then republishes it to the
// order's observers and the admin room, in that order
func (s *TrackingService) RecordLocation(ctx context.Context, caller models.Identity, riderID int64, req *LocationRequest, source string) (*models.RiderLocation, error) {
	ctx, span := util.StartSpan(ctx, "TrackingService.RecordLocation",
		attribute.Int64("rider_id", riderID),
		attribute.String("source", source))
	defer span.End()

	if !caller.IsRider() || caller.UserID != riderID {
		return nil, fmt.Errorf("location for rider %d: %w", riderID, models.ErrForbidden)
	}
	if err := req.validate(); err != nil {
		return nil, err
	}

	if req.OrderID != nil {
		order, err := s.store.GetOrder(ctx, *req.OrderID)
		if err != nil {
			return nil, err
		}
		if !order.AssignedTo(riderID) {
			return nil, fmt.Errorf("order %d is not assigned to rider %d: %w", order.ID, riderID, models.ErrForbidden)
		}
	}

	loc := &models.RiderLocation{
		RiderID:   riderID,
		Latitude:  *req.Latitude,
		Longitude: *req.Longitude,
		Accuracy:  req.Accuracy,
		Speed:     req.Speed,
		Heading:   req.Heading,
		Timestamp: time.Now().UTC(),
		OrderID:   req.OrderID,
	}
	if err := s.store.RecordRiderLocation(ctx, loc); err != nil {
		return nil, fmt.Errorf("failed to record location: %w", err)
	}

	if _, err := s.cache.CacheRiderLocation(ctx, loc); err != nil {
		s.logger.Warn("Failed to cache rider location", zap.Int64("rider_id", riderID), zap.Error(err))
	}

	msg := relay.RiderLocationUpdate{
		RiderID:   riderID,
		OrderID:   loc.OrderID,
		Latitude:  loc.Latitude,
		Longitude: loc.Longitude,
		Accuracy:  loc.Accuracy,
		Speed:     loc.Speed,
		Heading:   loc.Heading,
		Timestamp: loc.Timestamp,
	}
	if loc.OrderID != nil {
		s.publish(ctx, relay.DeliveryTopic(*loc.OrderID), msg)
	}
	s.publish(ctx, relay.AdminTracking, msg)

	util.RiderLocationUpdatesTotal.WithLabelValues(source).Inc()
	s.logger.Debug("Rider location recorded",
		zap.Int64("rider_id", riderID),
		zap.String("lat", loc.Latitude.String()),
		zap.String("lon", loc.Longitude.String()))

	return loc, nil
}

// ListLocations returns stored rider samples, newest first. Riders see their
// own history and admins see every rider's.
func (s *TrackingService) ListLocations(ctx context.Context, caller models.Identity) ([]models.RiderLocation, error) {
	ctx, span := util.StartSpan(ctx, "TrackingService.ListLocations", attribute.Int64("user_id", caller.UserID))
	defer span.End()

	var riderID *int64
	switch {
	case caller.IsAdmin():
	case caller.IsRider():
		riderID = &caller.UserID
	default:
		return nil, fmt.Errorf("rider locations: %w", models.ErrForbidden)
	}

	locations, err := s.store.ListRiderLocations(ctx, riderID)
	if err != nil {
		return nil, fmt.Errorf("failed to list rider locations: %w", err)
	}
	return locations, nil
}

func (s *TrackingService) publish(ctx context.Context, topic relay.Topic, msg relay.Outbound) {
	if err := s.relay.Publish(ctx, topic, msg); err != nil {
		s.logger.Warn("Failed to publish relay message", zap.String("topic", string(topic)), zap.Error(err))
	}
}

// AuthorizeSubscription checks that caller may observe topic. Delivery
// topics are open to the order's customer, its rider and admins.
func (s *TrackingService) AuthorizeSubscription(ctx context.Context, caller models.Identity, topic relay.Topic) error {
	ctx, span := util.StartSpan(ctx, "TrackingService.AuthorizeSubscription", attribute.String("topic", string(topic)))
	defer span.End()

	kind, id, err := relay.ParseTopic(string(topic))
	if err != nil {
		return models.NewValidationError("topic", err.Error())
	}

	switch kind {
	case relay.KindDelivery:
		if caller.IsAdmin() {
			return nil
		}
		order, err := s.store.GetOrder(ctx, id)
		if errors.Is(err, models.ErrNotFound) {
			return fmt.Errorf("subscribe %s: %w", topic, models.ErrForbidden)
		}
		if err != nil {
			return err
		}
		if order.OwnedBy(caller.UserID) || (caller.IsRider() && order.AssignedTo(caller.UserID)) {
			return nil
		}
	case relay.KindRider:
		if caller.IsRider() && caller.UserID == id {
			return nil
		}
	case relay.KindAdmin:
		if caller.IsAdmin() {
			return nil
		}
	case relay.KindNotifications:
		if caller.UserID == id {
			return nil
		}
	}
	return fmt.Errorf("subscribe %s: %w", topic, models.ErrForbidden)
}
