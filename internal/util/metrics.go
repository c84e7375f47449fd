package util

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	OrdersPlacedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "orders_placed_total",
		Help: "Total number of orders placed from carts",
	})

	OrdersFailedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "orders_failed_total",
		Help: "Total number of rejected checkouts",
	}, []string{"reason"})

	OrderTransitionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "order_status_transitions_total",
		Help: "Total number of order status transitions by target status",
	}, []string{"status"})

	OrdersCancelledTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "orders_cancelled_total",
		Help: "Total number of cancelled orders",
	})

	CheckoutLatency = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "checkout_latency_seconds",
		Help:    "Latency of the checkout transaction",
		Buckets: prometheus.DefBuckets,
	})

	RiderLocationUpdatesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "rider_location_updates_total",
		Help: "Total number of rider GPS samples recorded",
	}, []string{"source"})

	RelayMessagesPublished = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "relay_messages_published_total",
		Help: "Total number of messages published to relay topics",
	}, []string{"type"})

	RelayMessagesDropped = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "relay_messages_dropped_total",
		Help: "Total number of relay deliveries dropped",
	}, []string{"reason"})

	RelaySubscribers = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "relay_subscribers",
		Help: "Number of currently connected relay subscribers",
	})

	PaymentIntentsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "payment_intents_total",
		Help: "Total number of payment intent creations",
	}, []string{"result"})

	PaymentWebhooksTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "payment_webhooks_total",
		Help: "Total number of payment webhooks received",
	}, []string{"result"})

	HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "HTTP request latency",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path", "status"})

	HTTPRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "http_requests_total",
		Help: "Total number of HTTP requests",
	}, []string{"method", "path", "status"})
)
