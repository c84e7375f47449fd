package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"food-delivery/config"
	"food-delivery/internal/api"
	"food-delivery/internal/auth"
	"food-delivery/internal/broker"
	"food-delivery/internal/payment"
	"food-delivery/internal/redisclient"
	"food-delivery/internal/relay"
	"food-delivery/internal/service"
	"food-delivery/internal/store"
	"food-delivery/internal/util"
	"food-delivery/internal/worker"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

func main() {

	cfg := config.Load()

	if err := util.InitLogger(cfg.Server.Env); err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer util.SyncLogger()

	logger := util.GetLogger()
	logger.Info("Starting food delivery service")

	tp, err := util.InitTracer(util.ServiceName, cfg.Observ.JaegerEndpoint)
	if err != nil {
		logger.Fatal("Failed to initialize tracer", zap.Error(err))
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := tp.Shutdown(ctx); err != nil {
			logger.Warn("Error shutting down tracer", zap.Error(err))
		}
	}()

	db, err := store.NewStore(cfg.Database.URL)
	if err != nil {
		logger.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer db.Close()
	logger.Info("Database connected")

	if cfg.Database.AutoMigrate {
		if err := db.MigrateUp(); err != nil {
			logger.Fatal("Failed to run migrations", zap.Error(err))
		}
		logger.Info("Database migrations applied")
	}

	redisClient, err := redisclient.NewClient(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
	if err != nil {
		logger.Fatal("Failed to connect to Redis", zap.Error(err))
	}
	defer redisClient.Close()
	logger.Info("Redis connected")

	producer := broker.NewProducer(cfg.Kafka.Brokers, cfg.Kafka.TopicOrder)
	defer producer.Close()
	logger.Info("Kafka producer initialized")

	eventPublisher := broker.NewEventPublisher(producer)

	backgroundCtx, backgroundCancel := context.WithCancel(context.Background())
	defer backgroundCancel()

	hub := relay.NewHub(cfg.Relay.SubscriberBuffer)
	var publisher relay.Publisher = hub
	if cfg.Relay.Mode == "redis" {
		bridge := relay.NewRedisBridge(hub, redisClient, redisclient.RelayChannelPrefix)
		ready := make(chan struct{})
		go func() {
			if err := bridge.Run(backgroundCtx, ready); err != nil {
				logger.Error("Relay bridge error", zap.Error(err))
			}
		}()
		select {
		case <-ready:
		case <-time.After(5 * time.Second):
			logger.Fatal("Relay bridge did not subscribe in time")
		}
		publisher = bridge
	}
	logger.Info("Relay initialized", zap.String("mode", cfg.Relay.Mode))

	jwtService := auth.NewJWTService(cfg.Auth)
	gateway := payment.NewStripeGateway(cfg.Stripe)

	services := api.Services{
		Auth:      service.NewAuthService(db, jwtService, cfg.Auth.Issuer),
		Catalog:   service.NewCatalogService(db),
		Cart:      service.NewCartService(db, cfg.Business),
		Orders:    service.NewOrderService(db, publisher, eventPublisher, cfg.Business),
		Tracking:  service.NewTrackingService(db, redisClient, publisher),
		Payments:  service.NewPaymentService(db, gateway, redisClient, eventPublisher),
		Reviews:   service.NewReviewService(db),
		Dashboard: service.NewDashboardService(db, redisClient),
	}

	consumer := broker.NewConsumer(cfg.Kafka.Brokers, cfg.Kafka.TopicOrder, cfg.Kafka.ConsumerGroup)
	notificationWorker := worker.NewNotificationWorker(consumer, publisher)
	go func() {
		if err := notificationWorker.Start(backgroundCtx); err != nil && !errors.Is(err, context.Canceled) {
			logger.Error("Notification worker error", zap.Error(err))
		}
	}()

	if cfg.Server.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	// Sockets are hijacked and outlive srv.Shutdown; this context ends them
	socketCtx, socketCancel := context.WithCancel(backgroundCtx)
	defer socketCancel()

	router := gin.New()
	handler := api.NewHandler(socketCtx, services, jwtService, hub, map[string]api.HealthChecker{
		"database": db,
		"redis":    redisClient,
	})
	handler.SetupRoutes(router)

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%s", cfg.Server.Port),
		Handler: router,
	}
	srv.RegisterOnShutdown(socketCancel)

	go func() {
		logger.Info("Starting HTTP server", zap.String("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Warn("Server forced to shutdown", zap.Error(err))
	}

	backgroundCancel()
	if err := notificationWorker.Stop(); err != nil {
		logger.Warn("Error stopping notification worker", zap.Error(err))
	}

	logger.Info("Server exited")
}
