package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/alx-travel-payments/internal/config"
	"github.com/alx-travel-payments/internal/data/mongo"
	"github.com/alx-travel-payments/internal/data/postgres"
	"github.com/alx-travel-payments/internal/logger"
	"github.com/alx-travel-payments/internal/payment_api"
	"github.com/alx-travel-payments/internal/payment_api/handler"
	"github.com/alx-travel-payments/internal/payment_api/service"
	"github.com/alx-travel-payments/internal/platform/gateway/chapa"
	"github.com/alx-travel-payments/internal/platform/messaging/producers"
	"github.com/alx-travel-payments/internal/platform/persistence"
	"github.com/alx-travel-payments/internal/workflow"
)

func main() {
	appCtx, cancelAppCtx := context.WithCancel(context.Background())
	defer cancelAppCtx()

	cfg, err := config.LoadConfig("payment_api")
	if err != nil {
		// logger is not initialized yet, so we use fmt
		fmt.Printf("Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	log := logger.NewLogger(cfg)

	postgresDB, err := persistence.NewPostgresDB(appCtx, log, &cfg.Postgres)
	if err != nil {
		log.Error("Failed to initialize PostgreSQL", "error", err)
		os.Exit(1)
	}

	mongoDB, err := persistence.NewMongoDB(appCtx, log, &cfg.MongoDB)
	if err != nil {
		log.Error("Failed to initialize MongoDB", "error", err)
		os.Exit(1)
	}

	notificationProducer, err := producers.NewNotificationProducer(appCtx, log, &cfg.Kafka)
	if err != nil {
		log.Error("Failed to initialize notification Kafka producer", "error", err)
		os.Exit(1)
	}

	// Repositories
	bookingRepo := postgres.NewBookingRepository(log, postgresDB)
	transactionRepo := postgres.NewTransactionRepository(log, postgresDB)
	outboxRepo := postgres.NewOutboxRepository(log, postgresDB)
	eventRepo := mongo.NewGatewayEventRepository(log, mongoDB.Database())

	// Payment workflow
	gateway := chapa.NewClient(logger.Component(log, "chapa"), cfg.Gateway)
	dispatcher := workflow.NewQueueDispatcher(logger.Component(log, "dispatcher"), notificationProducer, outboxRepo)
	controller := workflow.NewController(
		logger.Component(log, "workflow"),
		postgresDB,
		transactionRepo,
		bookingRepo,
		gateway,
		eventRepo,
		dispatcher,
	)

	paymentService := service.NewPaymentService(controller, transactionRepo, bookingRepo, eventRepo)
	bookingService := service.NewBookingService(bookingRepo)

	server := payment_api.NewServer(log, cfg, paymentService, bookingService, map[string]handler.Pinger{
		"postgres": postgresDB,
		"mongodb":  mongoDB,
	})
	log.Info("REST server initialized", "callback_url", gateway.CallbackURL())

	errChan := make(chan error, 1)
	go func() {
		if err := server.Start(); err != nil {
			errChan <- fmt.Errorf("HTTP server error: %w", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	var serverErr error
	select {
	case <-quit:
		log.Info("Shutdown signal received")
	case err := <-errChan:
		log.Error("Server error occurred", "error", err)
		serverErr = err
	}

	cancelAppCtx()

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancelShutdown()

	log.Info("Starting graceful shutdown...")

	// Stop accepting requests before closing what the handlers depend on
	var shutdownErr error
	if err := server.Stop(shutdownCtx); err != nil {
		log.Error("Error during server shutdown", "error", err)
		shutdownErr = err
	}

	if err := notificationProducer.Close(); err != nil {
		log.Error("Error closing Kafka producer", "error", err)
		shutdownErr = err
	}

	postgresDB.Close()

	if err := mongoDB.Close(shutdownCtx); err != nil {
		log.Error("Error closing MongoDB connection", "error", err)
		shutdownErr = err
	}

	if serverErr != nil {
		log.Error("HTTP server shutdown with errors", "error", serverErr)
	}
	if shutdownErr != nil {
		log.Error("Server shutdown completed with errors")
		os.Exit(1)
	}
	log.Info("Server shutdown completed successfully")
}
