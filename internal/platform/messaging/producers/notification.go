package producers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/alx-travel-payments/internal/config"
	"github.com/alx-travel-payments/internal/domain/notification"
	"github.com/alx-travel-payments/internal/platform/correlation"
	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"
)

// ErrIncompleteNotification rejects messages the worker could not act on
var ErrIncompleteNotification = errors.New("notification message needs booking and transaction IDs")

// NotificationProducer publishes booking confirmation requests. Writes are
// synchronous so the caller learns whether the broker accepted the message
// and can fall back to the outbox when it did not.
type NotificationProducer struct {
	logger *slog.Logger
	writer KafkaWriter
	topic  string
}

func NewNotificationProducer(ctx context.Context, logger *slog.Logger, cfg *config.KafkaConfig) (*NotificationProducer, error) {
	if cfg.NotificationTopic == "" {
		return nil, fmt.Errorf("kafka notification topic is not configured")
	}

	if err := ensureTopic(cfg, cfg.NotificationTopic, logger); err != nil {
		return nil, fmt.Errorf("failed to ensure notification topic %s exists: %w", cfg.NotificationTopic, err)
	}

	writer := &kafka.Writer{
		Addr:         kafka.TCP(cfg.Brokers),
		Topic:        cfg.NotificationTopic,
		Balancer:     &kafka.Hash{}, // same booking always lands on the same partition
		RequiredAcks: kafka.RequireAll,
		Async:        false,
		WriteTimeout: cfg.MaxWait,
	}

	return &NotificationProducer{
		logger: logger,
		writer: writer,
		topic:  cfg.NotificationTopic,
	}, nil
}

// PublishNotification writes msg keyed by its booking ID. The correlation ID
// travels both in the payload and as a message header.
func (p *NotificationProducer) PublishNotification(ctx context.Context, msg *notification.Message) error {
	if msg == nil || msg.BookingID == uuid.Nil || msg.TransactionID == uuid.Nil {
		return ErrIncompleteNotification
	}

	value, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("failed to marshal notification message: %w", err)
	}

	key := msg.BookingID.String()
	record := kafka.Message{
		Key:   []byte(key),
		Value: value,
	}
	if msg.CorrelationID != "" {
		record.Headers = []kafka.Header{{Key: correlation.KafkaHeader, Value: []byte(msg.CorrelationID)}}
	}

	if err := p.writer.WriteMessages(ctx, record); err != nil {
		p.logger.Error("Failed to publish notification message",
			"topic", p.topic,
			"booking_id", key,
			"transaction_id", msg.TransactionID.String(),
			"error", err,
		)
		return fmt.Errorf("failed to publish message to %s: %w", p.topic, err)
	}

	p.logger.Debug("Published notification message",
		"topic", p.topic,
		"booking_id", key,
		"transaction_id", msg.TransactionID.String(),
	)
	return nil
}

func (p *NotificationProducer) Close() error {
	p.logger.Info("Closing notification Kafka producer", "topic", p.topic)
	if err := p.writer.Close(); err != nil {
		return fmt.Errorf("failed to close kafka writer for topic %s: %w", p.topic, err)
	}
	return nil
}

var _ NotificationPublisher = (*NotificationProducer)(nil)
