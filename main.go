// main.go
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"go-freshmart/config"
	"go-freshmart/controllers"
	"go-freshmart/events"
	"go-freshmart/gateway/paystack"
	"go-freshmart/notifier"
	"go-freshmart/routes"
	"go-freshmart/service"
	"go-freshmart/store"
	"go-freshmart/utils"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	logger, err := zap.NewProduction()
	if err != nil {
		panic(err)
	}
	defer logger.Sync()

	// Set the JWT secret key
	utils.JwtKey = []byte(cfg.JWTSecret)

	ctx := context.Background()

	// Connect to MongoDB
	mongoDB, err := store.ConnectMongo(ctx, cfg.MongoURI, cfg.MongoDatabase)
	if err != nil {
		logger.Fatal("Failed to connect to MongoDB", zap.Error(err))
	}
	defer func() {
		if err := mongoDB.Close(context.Background()); err != nil {
			logger.Error("MongoDB disconnect failed", zap.Error(err))
		}
	}()

	orderStore := store.NewMongoOrderStore(mongoDB)
	productStore := store.NewMongoProductStore(mongoDB)

	// Real-time fan-out: local websocket hub, optionally bridged across
	// instances through Redis and mirrored to Kafka for downstream
	// consumers.
	hub := notifier.NewHub(logger)
	fanout := events.Fanout{}

	if cfg.RedisAddr != "" {
		redisClient := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		bridge := notifier.NewRedisBridge(redisClient, cfg.RedisChannel, hub, logger)
		if err := bridge.Start(ctx); err != nil {
			logger.Fatal("Failed to start Redis bridge", zap.Error(err))
		}
		defer bridge.Close()
		fanout = append(fanout, bridge)
		logger.Info("Redis event bridge enabled", zap.String("addr", cfg.RedisAddr))
	} else {
		fanout = append(fanout, hub)
	}

	if len(cfg.KafkaBrokers) > 0 {
		producer, err := events.NewKafkaPublisher(cfg.KafkaBrokers, cfg.KafkaTopic, logger)
		if err != nil {
			logger.Fatal("Failed to create Kafka publisher", zap.Error(err))
		}
		defer producer.Close()
		fanout = append(fanout, producer)
		logger.Info("Kafka event publisher enabled",
			zap.Strings("brokers", cfg.KafkaBrokers),
			zap.String("topic", cfg.KafkaTopic))
	}

	// Initialize EmailService
	var mailer service.Mailer
	if cfg.PostmarkAPIToken != "" {
		mailer = utils.NewEmailService(cfg.PostmarkAPIToken, cfg.EmailSender)
	} else {
		logger.Warn("POSTMARK_API_TOKEN not set, email notifications disabled")
	}

	orderService := service.NewOrderService(orderStore, productStore, fanout, mailer, logger)
	paystackClient := paystack.NewClient(cfg.PaystackSecretKey)

	orderController := controllers.NewOrderController(orderService, logger)
	paystackController := controllers.NewPaystackController(orderService, paystackClient, cfg.FrontendURL, logger)

	// Set up the router
	router := mux.NewRouter()
	routes.RegisterRoutes(router, orderController, paystackController, hub)

	server := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: router,
	}

	serverErr := make(chan error, 1)
	go func() {
		logger.Info("Server is running", zap.String("port", cfg.Port))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErr <- err
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-serverErr:
		logger.Fatal("Server failed", zap.Error(err))
	case sig := <-sigCh:
		logger.Info("Shutting down", zap.String("signal", sig.String()))
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("Graceful shutdown failed", zap.Error(err))
	}
}
