package outbox_poller

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/alx-travel-payments/internal/domain/outbox"
	"github.com/alx-travel-payments/internal/domain/shared"
	"github.com/alx-travel-payments/internal/platform/messaging/producers"
)

// ErrUndecodablePayload is returned for outbox rows whose payload is not a
// notification message. Such rows are parked as FAILED_TO_PUBLISH at once.
var ErrUndecodablePayload = errors.New("undecodable outbox payload")

// NotificationRelay moves outbox messages onto the notification queue
type NotificationRelay interface {
	Relay(ctx context.Context, message *outbox.Message) error
}

// NotificationRelayImpl implements NotificationRelay
type NotificationRelayImpl struct {
	outboxRepo outbox.Repository
	publisher  producers.NotificationPublisher
	logger     *slog.Logger
}

// NewNotificationRelay creates a new relay
func NewNotificationRelay(
	outboxRepo outbox.Repository,
	publisher producers.NotificationPublisher,
	logger *slog.Logger,
) NotificationRelay {
	return &NotificationRelayImpl{
		outboxRepo: outboxRepo,
		publisher:  publisher,
		logger:     logger,
	}
}

// Relay publishes the stored notification and marks the row PROCESSED
func (r *NotificationRelayImpl) Relay(ctx context.Context, message *outbox.Message) error {
	n, err := message.Notification()
	if err != nil {
		r.logger.Error("Failed to unmarshal notification from outbox payload",
			"outbox_id", message.ID, "transaction_id", message.TransactionID, "error", err,
		)
		if updateErr := r.outboxRepo.UpdateStatus(ctx, message.ID, shared.OutboxStatusFailedToPublish); updateErr != nil {
			r.logger.Error("Also failed to update outbox status to FAILED_TO_PUBLISH after unmarshal error", "outbox_id", message.ID, "update_error", updateErr)
		}
		return fmt.Errorf("%w: outbox %d: %v", ErrUndecodablePayload, message.ID, err)
	}

	logger := r.logger
	if n.CorrelationID != "" {
		logger = r.logger.With("correlation_id", n.CorrelationID)
	}

	if err := r.publisher.PublishNotification(ctx, n); err != nil {
		logger.Error("Failed to publish notification from outbox",
			"outbox_id", message.ID, "transaction_id", message.TransactionID, "error", err,
		)
		return fmt.Errorf("failed to publish notification for %s: %w", message.TransactionID, err)
	}

	if err := r.outboxRepo.UpdateStatus(ctx, message.ID, shared.OutboxStatusProcessed); err != nil {
		// Redelivery is harmless: the worker skips transactions it already notified.
		logger.Error("Failed to update outbox message status to PROCESSED",
			"outbox_id", message.ID, "transaction_id", message.TransactionID, "error", err,
		)
		return fmt.Errorf("notification for %s published, but failed to mark outbox %d as PROCESSED: %w", message.TransactionID, message.ID, err)
	}

	logger.Info("Outbox notification published and marked as PROCESSED", "outbox_id", message.ID, "transaction_id", message.TransactionID)
	return nil
}
