package service

import (
	"context"
	"log/slog"

	"github.com/alx-travel-payments/internal/domain/notification"
	"github.com/panjf2000/ants/v2"
)

// WorkerPoolNotificationService runs a NotificationService on an ants pool
type WorkerPoolNotificationService struct {
	baseService NotificationService
	pool        *ants.Pool
	logger      *slog.Logger
}

type WorkerPoolConfig struct {
	Size int
}

func NewWorkerPoolNotificationService(
	baseService NotificationService,
	config WorkerPoolConfig,
	logger *slog.Logger,
) (*WorkerPoolNotificationService, error) {
	pool, err := ants.NewPool(config.Size)
	if err != nil {
		return nil, err
	}

	return &WorkerPoolNotificationService{
		baseService: baseService,
		pool:        pool,
		logger:      logger,
	}, nil
}

// SendConfirmation submits the message to the pool and waits for the result
// so the caller can decide whether to commit the queue offset.
func (s *WorkerPoolNotificationService) SendConfirmation(ctx context.Context, msg *notification.Message) error {
	logger := s.logger
	if msg.CorrelationID != "" {
		logger = s.logger.With("correlation_id", msg.CorrelationID)
	}

	logger.Info("Submitting notification to worker pool",
		"transaction_id", msg.TransactionID.String(),
		"booking_id", msg.BookingID.String(),
	)

	resultChan := make(chan error, 1)
	msgCopy := *msg

	err := s.pool.Submit(func() {
		resultChan <- s.baseService.SendConfirmation(ctx, &msgCopy)
	})
	if err != nil {
		logger.Error("Failed to submit notification to worker pool",
			"transaction_id", msg.TransactionID.String(),
			"error", err,
		)
		return err
	}

	select {
	case err := <-resultChan:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Shutdown gracefully shuts down the worker pool.
func (s *WorkerPoolNotificationService) Shutdown() {
	s.logger.Info("Shutting down worker pool", "running_workers", s.pool.Running())
	s.pool.Release()
}

// Running returns the number of running workers in the pool.
func (s *WorkerPoolNotificationService) Running() int {
	return s.pool.Running()
}

// Capacity returns the capacity of the worker pool.
func (s *WorkerPoolNotificationService) Capacity() int {
	return s.pool.Cap()
}
