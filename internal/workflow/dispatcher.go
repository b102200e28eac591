package workflow

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/alx-travel-payments/internal/domain/notification"
	"github.com/alx-travel-payments/internal/domain/outbox"
	"github.com/alx-travel-payments/internal/platform/correlation"
	"github.com/alx-travel-payments/internal/platform/messaging/producers"
	"github.com/google/uuid"
)

// dispatchTimeout bounds the enqueue and the outbox fallback together. The
// dispatch runs after the payment committed, so it must not inherit the
// request's cancellation.
const dispatchTimeout = 10 * time.Second

// QueueDispatcher enqueues booking confirmations on Kafka. When the broker
// refuses the message it is written to the notification outbox, which the
// worker's relay publishes later.
type QueueDispatcher struct {
	publisher producers.NotificationPublisher
	outbox    outbox.Repository
	logger    *slog.Logger
}

func NewQueueDispatcher(logger *slog.Logger, publisher producers.NotificationPublisher, outboxRepo outbox.Repository) *QueueDispatcher {
	return &QueueDispatcher{
		publisher: publisher,
		outbox:    outboxRepo,
		logger:    logger,
	}
}

// Dispatch returns quickly; the email itself is sent by the worker.
func (d *QueueDispatcher) Dispatch(ctx context.Context, bookingID, transactionID uuid.UUID) error {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), dispatchTimeout)
	defer cancel()

	msg := notification.NewMessage(bookingID, transactionID, correlation.FromContext(ctx))

	publishErr := d.publisher.PublishNotification(ctx, msg)
	if publishErr == nil {
		d.logger.Debug("Booking confirmation enqueued", "booking_id", bookingID.String(), "transaction_id", transactionID.String())
		return nil
	}

	d.logger.Warn("Failed to enqueue booking confirmation, falling back to outbox",
		"booking_id", bookingID.String(),
		"transaction_id", transactionID.String(),
		"error", publishErr,
	)

	entry, err := outbox.NewMessage(msg)
	if err != nil {
		return fmt.Errorf("failed to build outbox message: %w", err)
	}
	if err := d.outbox.Create(ctx, entry); err != nil {
		var dup outbox.ErrDuplicateMessage
		if errors.As(err, &dup) {
			return nil
		}
		return fmt.Errorf("failed to enqueue confirmation for booking %s: %w", bookingID, errors.Join(publishErr, err))
	}

	d.logger.Info("Booking confirmation stored in outbox", "booking_id", bookingID.String(), "outbox_id", entry.ID)
	return nil
}

var _ notification.Dispatcher = (*QueueDispatcher)(nil)
