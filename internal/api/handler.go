package api

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"food-delivery/internal/relay"
	"food-delivery/internal/service"
	"food-delivery/internal/util"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.uber.org/zap"
)

// Services groups the application services the handlers call
type Services struct {
	Auth      *service.AuthService
	Catalog   *service.CatalogService
	Cart      *service.CartService
	Orders    *service.OrderService
	Tracking  *service.TrackingService
	Payments  *service.PaymentService
	Reviews   *service.ReviewService
	Dashboard *service.DashboardService
}

// HealthChecker is a dependency probed by the readiness check
type HealthChecker interface {
	Ping(ctx context.Context) error
}

// Handler contains HTTP handlers
type Handler struct {
	base     context.Context
	svc      Services
	tokens   TokenValidator
	hub      *relay.Hub
	checks   map[string]HealthChecker
	upgrader websocket.Upgrader
	logger   *zap.Logger
}

// NewHandler creates a new HTTP handler. Sockets subscribe on hub and are
// closed with "going away" once base is cancelled; checks are probed by /ready.
func NewHandler(base context.Context, svc Services, tokens TokenValidator, hub *relay.Hub, checks map[string]HealthChecker) *Handler {
	setupValidator()
	return &Handler{
		base:   base,
		svc:    svc,
		tokens: tokens,
		hub:    hub,
		checks: checks,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
		logger: util.GetLogger(),
	}
}

// SetupRoutes sets up HTTP routes
func (h *Handler) SetupRoutes(router *gin.Engine) {
	router.Use(gin.Recovery())
	router.Use(otelgin.Middleware(util.ServiceName))
	router.Use(prometheusMiddleware())
	router.Use(requestLogger(h.logger))

	router.GET("/health", h.healthCheck)
	router.GET("/ready", h.readinessCheck)

	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	optional := authMiddleware(h.tokens, false)
	required := authMiddleware(h.tokens, true)

	v1 := router.Group("/api/v1")
	{
		authGroup := v1.Group("/auth")
		authGroup.POST("/register", h.register)
		authGroup.POST("/login", h.login)
		authGroup.POST("/otp-verify", h.verifyOTP)
		authGroup.POST("/refresh", h.refreshToken)

		v1.POST("/payments/webhook", h.paymentWebhook)

		public := v1.Group("", optional)
		public.GET("/categories", h.listCategories)
		public.GET("/categories/:id", h.getCategory)
		public.GET("/food-items", h.listFoodItems)
		public.GET("/food-items/:id", h.getFoodItem)
		public.GET("/reviews", h.listReviews)

		authed := v1.Group("", required)

		authed.POST("/categories", h.createCategory)
		authed.PUT("/categories/:id", h.updateCategory)
		authed.DELETE("/categories/:id", h.deleteCategory)
		authed.POST("/food-items", h.createFoodItem)
		authed.PUT("/food-items/:id", h.updateFoodItem)
		authed.DELETE("/food-items/:id", h.deleteFoodItem)

		authed.GET("/cart", h.getCart)
		authed.POST("/cart", h.addToCart)
		authed.DELETE("/cart", h.clearCart)
		authed.PUT("/cart/:item_id", h.setCartQuantity)
		authed.DELETE("/cart/:item_id", h.removeFromCart)

		authed.GET("/orders", h.listOrders)
		authed.POST("/orders", h.createOrder)
		authed.GET("/orders/:id", h.getOrder)
		authed.DELETE("/orders/:id", h.deleteOrder)
		authed.POST("/orders/:id/cancel", h.cancelOrder)
		authed.POST("/orders/:id/restore", h.restoreOrder)
		authed.GET("/orders/:id/track", h.trackOrder)
		authed.PUT("/orders/:id/status", h.updateOrderStatus)
		authed.PUT("/orders/:id/rider", h.assignRider)

		authed.POST("/rider/location", h.postRiderLocation)
		authed.GET("/rider/locations", h.listRiderLocations)

		authed.POST("/reviews", h.createReview)
		authed.POST("/reviews/:id/approve", h.approveReview)
		authed.GET("/feedback", h.listFeedback)
		authed.POST("/feedback", h.submitFeedback)

		authed.POST("/payments/create-intent", h.createPaymentIntent)

		authed.GET("/analytics/dashboard", h.dashboard)
		authed.GET("/analytics/active-deliveries", h.activeDeliveries)
	}

	ws := router.Group("/ws", required)
	{
		ws.GET("/delivery/:order_id", h.deliverySocket)
		ws.GET("/rider/:rider_id", h.riderSocket)
		ws.GET("/admin/tracking", h.adminSocket)
		ws.GET("/notifications", h.notificationSocket)
	}
}

// healthCheck handles health check requests
func (h *Handler) healthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "healthy",
		"time":   time.Now().Unix(),
	})
}

// readinessCheck reports ready only when every dependency answers
func (h *Handler) readinessCheck(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	failed := gin.H{}
	for name, check := range h.checks {
		if err := check.Ping(ctx); err != nil {
			h.logger.Warn("Readiness check failed", zap.String("dependency", name), zap.Error(err))
			failed[name] = err.Error()
		}
	}

	if len(failed) > 0 {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"status": "not ready",
			"failed": failed,
			"time":   time.Now().Unix(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status": "ready",
		"time":   time.Now().Unix(),
	})
}

// idParam parses a positive numeric path parameter
func idParam(c *gin.Context, name string) (int64, bool) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid " + name})
		return 0, false
	}
	return id, true
}

// optionalIDQuery parses a numeric query parameter when present
func optionalIDQuery(c *gin.Context, name string) (*int64, bool) {
	raw := c.Query(name)
	if raw == "" {
		return nil, true
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid " + name})
		return nil, false
	}
	return &id, true
}
