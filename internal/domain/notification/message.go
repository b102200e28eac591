package notification

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Message is the queue payload asking the worker to send a booking confirmation
type Message struct {
	BookingID     uuid.UUID `json:"booking_id"`
	TransactionID uuid.UUID `json:"transaction_id"`
	CorrelationID string    `json:"correlation_id,omitempty"`
	Timestamp     time.Time `json:"timestamp"`
}

// NewMessage builds a confirmation request for a completed payment
func NewMessage(bookingID, transactionID uuid.UUID, correlationID string) *Message {
	return &Message{
		BookingID:     bookingID,
		TransactionID: transactionID,
		CorrelationID: correlationID,
		Timestamp:     time.Now().UTC(),
	}
}

// Dispatcher hands a confirmation request to the asynchronous worker
type Dispatcher interface {
	Dispatch(ctx context.Context, bookingID, transactionID uuid.UUID) error
}
