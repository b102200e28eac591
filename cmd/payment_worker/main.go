package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/alx-travel-payments/internal/config"
	"github.com/alx-travel-payments/internal/data/mongo"
	"github.com/alx-travel-payments/internal/data/postgres"
	"github.com/alx-travel-payments/internal/logger"
	"github.com/alx-travel-payments/internal/payment_worker/consumer"
	"github.com/alx-travel-payments/internal/payment_worker/janitor"
	"github.com/alx-travel-payments/internal/payment_worker/mailer"
	"github.com/alx-travel-payments/internal/payment_worker/outbox_poller"
	"github.com/alx-travel-payments/internal/payment_worker/service"
	"github.com/alx-travel-payments/internal/platform/gateway/chapa"
	"github.com/alx-travel-payments/internal/platform/messaging/consumers"
	"github.com/alx-travel-payments/internal/platform/messaging/producers"
	"github.com/alx-travel-payments/internal/platform/persistence"
	"github.com/alx-travel-payments/internal/workflow"
)

func main() {
	appCtx, cancelAppCtx := context.WithCancel(context.Background())
	defer cancelAppCtx()

	cfg, err := config.LoadConfig("payment_worker")
	if err != nil {
		// logger is not initialized yet, so we use fmt
		fmt.Printf("Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	log := logger.NewLogger(cfg)

	log.Info("Starting Payment Worker",
		"app_name", cfg.Application.Name,
		"env", cfg.Application.Env,
	)

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

	// Repositories
	bookingRepo := postgres.NewBookingRepository(log, postgresDB)
	transactionRepo := postgres.NewTransactionRepository(log, postgresDB)
	outboxRepo := postgres.NewOutboxRepository(log, postgresDB)
	eventRepo := mongo.NewGatewayEventRepository(log, mongoDB.Database())
	deliveryRepo := mongo.NewDeliveryRepository(log, mongoDB.Database())

	// Kafka
	kafkaConsumer := consumers.NewKafkaConsumer(appCtx, log, &cfg.Kafka)

	notificationProducer, err := producers.NewNotificationProducer(appCtx, log, &cfg.Kafka)
	if err != nil {
		log.Error("Failed to initialize notification Kafka producer", "error", err)
		os.Exit(1)
	}

	dlqProducer, err := producers.NewDLQProducer(appCtx, log, &cfg.Kafka)
	if err != nil {
		log.Error("Failed to initialize DLQ Kafka producer", "error", err)
		os.Exit(1)
	}
	// A nil *DLQProducer must not reach the handler as a non-nil interface
	var deadLetters producers.DeadLetterPublisher
	if dlqProducer != nil {
		deadLetters = dlqProducer
	}

	// Notification delivery
	m, err := mailer.New(log, cfg.Mailer)
	if err != nil {
		log.Error("Failed to initialize mailer", "error", err)
		os.Exit(1)
	}
	notificationService := service.NewNotificationService(
		logger.Component(log, "notification"),
		bookingRepo,
		transactionRepo,
		deliveryRepo,
		m,
	)
	pooledService, err := service.NewWorkerPoolNotificationService(
		notificationService,
		service.WorkerPoolConfig{Size: cfg.WorkerPool.Size},
		log,
	)
	if err != nil {
		log.Error("Failed to initialize worker pool", "error", err)
		os.Exit(1)
	}
	eventHandler := consumer.NewNotificationEventHandler(log, pooledService, deadLetters)

	// Outbox relay
	relay := outbox_poller.NewNotificationRelay(outboxRepo, notificationProducer, log)
	poller := outbox_poller.NewPoller(&cfg.Outbox, outboxRepo, relay, log)

	// Janitor drives the same workflow the API uses
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
	sweeper := janitor.NewSweeper(&cfg.Janitor, transactionRepo, controller, log)

	errChan := make(chan error, 1)
	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		log.Info("Starting Kafka consumer",
			"topic", cfg.Kafka.NotificationTopic,
			"group", cfg.Kafka.ConsumerGroup,
		)
		if err := kafkaConsumer.Subscribe(appCtx, cfg.Kafka.NotificationTopic, cfg.Kafka.ConsumerGroup, eventHandler.HandleMessage); err != nil {
			errChan <- fmt.Errorf("kafka consumer error: %w", err)
		}
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		poller.Start(appCtx)
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		sweeper.Start(appCtx)
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	var serviceErr error
	select {
	case <-quit:
		log.Info("Shutdown signal received")
	case err := <-errChan:
		log.Error("Service error occurred", "error", err)
		serviceErr = err
	}

	cancelAppCtx()

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancelShutdown()

	log.Info("Starting graceful shutdown...")

	wgChan := make(chan struct{})
	go func() {
		wg.Wait()
		close(wgChan)
	}()

	select {
	case <-wgChan:
		log.Info("All services stopped successfully")
	case <-shutdownCtx.Done():
		log.Warn("Shutdown timeout reached, forcing exit")
	}

	pooledService.Shutdown()

	var shutdownErr error
	if err := kafkaConsumer.Close(); err != nil {
		log.Error("Error closing Kafka consumer", "error", err)
		shutdownErr = err
	}
	if err := notificationProducer.Close(); err != nil {
		log.Error("Error closing notification Kafka producer", "error", err)
		shutdownErr = err
	}
	if dlqProducer != nil {
		if err := dlqProducer.Close(); err != nil {
			log.Error("Error closing DLQ Kafka producer", "error", err)
			shutdownErr = err
		}
	}

	postgresDB.Close()

	if err := mongoDB.Close(shutdownCtx); err != nil {
		log.Error("Error closing MongoDB connection", "error", err)
		shutdownErr = err
	}

	if serviceErr != nil {
		log.Error("Payment Worker shutdown with errors", "error", serviceErr)
	}
	if shutdownErr != nil || serviceErr != nil {
		log.Error("Payment Worker shutdown completed with errors")
		os.Exit(1)
	}
	log.Info("Payment Worker shutdown completed successfully")
}
