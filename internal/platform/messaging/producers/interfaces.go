package producers

import (
	"context"

	"github.com/alx-travel-payments/internal/domain/notification"
	"github.com/segmentio/kafka-go"
)

// NotificationPublisher enqueues booking confirmation requests. Messages for
// one booking share a partition, so the worker sees them in order.
type NotificationPublisher interface {
	PublishNotification(ctx context.Context, msg *notification.Message) error
	Close() error
}

// DeadLetterPublisher parks raw messages the worker gave up on
type DeadLetterPublisher interface {
	PublishToDLQ(ctx context.Context, key string, originalMessageValue []byte, reason string) error
	Close() error
}

// KafkaWriter is the part of kafka.Writer the producers use
type KafkaWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}
