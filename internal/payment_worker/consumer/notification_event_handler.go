package consumer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/alx-travel-payments/internal/domain/notification"
	"github.com/alx-travel-payments/internal/payment_worker/service"
	"github.com/alx-travel-payments/internal/platform/correlation"
	"github.com/alx-travel-payments/internal/platform/messaging/producers"
	"github.com/google/uuid"
)

// NotificationEventHandler handles payment confirmation messages from Kafka
type NotificationEventHandler struct {
	notificationService service.NotificationService
	producer            producers.DeadLetterPublisher
	logger              *slog.Logger
}

// NewNotificationEventHandler creates a new handler
func NewNotificationEventHandler(
	logger *slog.Logger,
	notificationService service.NotificationService,
	producer producers.DeadLetterPublisher,
) *NotificationEventHandler {
	return &NotificationEventHandler{
		notificationService: notificationService,
		producer:            producer,
		logger:              logger,
	}
}

// HandleMessage processes Kafka messages. A nil return commits the offset.
func (h *NotificationEventHandler) HandleMessage(ctx context.Context, key []byte, value []byte) error {
	var msg notification.Message
	if err := json.Unmarshal(value, &msg); err != nil {
		return h.deadLetter(ctx, key, value, "Failed to unmarshal notification message", err)
	}
	if msg.TransactionID == uuid.Nil {
		return h.deadLetter(ctx, key, value, "Notification message has no transaction id", errors.New("missing transaction_id"))
	}

	if msg.CorrelationID == "" {
		msg.CorrelationID = correlation.FromContext(ctx)
	}
	logger := h.logger
	if msg.CorrelationID != "" {
		logger = h.logger.With("correlation_id", msg.CorrelationID)
	}

	logger.Info("Received notification message",
		"transaction_id", msg.TransactionID.String(),
		"booking_id", msg.BookingID.String(),
	)

	if err := h.notificationService.SendConfirmation(ctx, &msg); err != nil {
		if errors.Is(err, service.ErrNotDeliverable) {
			return h.deadLetter(ctx, key, value, "Notification cannot be delivered", err)
		}
		logger.Error("Failed to send booking confirmation",
			"transaction_id", msg.TransactionID.String(),
			"error", err,
		)
		return fmt.Errorf("sending confirmation for %s failed: %w", msg.TransactionID.String(), err)
	}

	logger.Info("Successfully handled notification message", "transaction_id", msg.TransactionID.String())
	return nil
}

// deadLetter parks a message that will never succeed. The offset is only
// committed when the DLQ accepted it; otherwise the original error is returned
// so Kafka redelivers.
func (h *NotificationEventHandler) deadLetter(ctx context.Context, key, value []byte, reason string, cause error) error {
	h.logger.Error(reason, "error", cause, "message_key", string(key))

	if h.producer != nil {
		dlqReason := fmt.Sprintf("%s: %s", reason, cause.Error())
		if dlqErr := h.producer.PublishToDLQ(ctx, string(key), value, dlqReason); dlqErr != nil {
			h.logger.Error("Failed to publish message to DLQ",
				"dlq_error", dlqErr,
				"original_error", cause,
				"message_key", string(key),
			)
		} else {
			h.logger.Info("Published unprocessable message to DLQ", "message_key", string(key), "reason", dlqReason)
			return nil
		}
	}
	return fmt.Errorf("%s: %w", reason, cause)
}
