package api

import (
	"context"

	"food-delivery/internal/models"
	"food-delivery/internal/relay"
	"food-delivery/internal/service"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// riderSocketHandler accepts GPS pings from the rider who owns the socket
type riderSocketHandler struct {
	relay.BaseHandler
	tracking *service.TrackingService
	caller   models.Identity
	riderID  int64
}

func (s *riderSocketHandler) OnLocationUpdate(ctx context.Context, m relay.LocationUpdate) (relay.Outbound, error) {
	loc, err := s.tracking.RecordLocation(ctx, s.caller, s.riderID, &service.LocationRequest{
		OrderID:   m.OrderID,
		Latitude:  m.Latitude,
		Longitude: m.Longitude,
		Accuracy:  m.Accuracy,
		Speed:     m.Speed,
		Heading:   m.Heading,
	}, service.SourceWebSocket)
	if err != nil {
		return nil, err
	}
	return relay.LocationReceived{Timestamp: loc.Timestamp}, nil
}

// adminSocketHandler answers snapshot requests on the admin room
type adminSocketHandler struct {
	relay.BaseHandler
	dashboard *service.DashboardService
	caller    models.Identity
}

func (s *adminSocketHandler) OnActiveDeliveriesRequest(ctx context.Context, _ relay.ActiveDeliveriesRequest) (relay.Outbound, error) {
	deliveries, err := s.dashboard.ActiveDeliveries(ctx, s.caller)
	if err != nil {
		return nil, err
	}
	return relay.ActiveDeliveries{Deliveries: deliveries}, nil
}

// serveSocket authorizes topic for the caller, upgrades the connection and
// runs the session until the peer leaves or the handler's base context ends
func (h *Handler) serveSocket(c *gin.Context, topic relay.Topic, handler relay.InboundHandler, greeting string) {
	ctx, cancel := context.WithCancel(c.Request.Context())
	defer cancel()
	stop := context.AfterFunc(h.base, cancel)
	defer stop()

	if err := h.svc.Tracking.AuthorizeSubscription(ctx, caller(c), topic); err != nil {
		respondError(c, err)
		return
	}

	ws, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Warn("WebSocket upgrade failed", zap.String("topic", string(topic)), zap.Error(err))
		return
	}

	sub := h.hub.Subscribe(topic)
	h.logger.Info("WebSocket connected",
		zap.String("topic", string(topic)),
		zap.Int64("user_id", caller(c).UserID))

	relay.NewConn(ws, sub, handler).Serve(ctx, relay.Connected{Topic: topic, Message: greeting})

	h.logger.Info("WebSocket disconnected", zap.String("topic", string(topic)))
}

// deliverySocket streams one order's status and rider position
func (h *Handler) deliverySocket(c *gin.Context) {
	orderID, ok := idParam(c, "order_id")
	if !ok {
		return
	}
	h.serveSocket(c, relay.DeliveryTopic(orderID), relay.BaseHandler{}, "Connected to delivery tracking")
}

// riderSocket lets a rider stream locations and receive assignments
func (h *Handler) riderSocket(c *gin.Context) {
	riderID, ok := idParam(c, "rider_id")
	if !ok {
		return
	}
	handler := &riderSocketHandler{
		tracking: h.svc.Tracking,
		caller:   caller(c),
		riderID:  riderID,
	}
	h.serveSocket(c, relay.RiderTopic(riderID), handler, "Connected to rider channel")
}

// adminSocket streams every delivery to admins
func (h *Handler) adminSocket(c *gin.Context) {
	handler := &adminSocketHandler{
		dashboard: h.svc.Dashboard,
		caller:    caller(c),
	}
	h.serveSocket(c, relay.AdminTracking, handler, "Connected to admin tracking")
}

// notificationSocket streams the caller's personal notifications
func (h *Handler) notificationSocket(c *gin.Context) {
	h.serveSocket(c, relay.NotificationTopic(caller(c).UserID), relay.BaseHandler{}, "Connected to notifications")
}
