package notification

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Delivery records a confirmation that has been sent for a transaction
type Delivery struct {
	TransactionID uuid.UUID `json:"transaction_id" bson:"transaction_id"`
	BookingID     uuid.UUID `json:"booking_id" bson:"booking_id"`
	Recipient     string    `json:"recipient" bson:"recipient"`
	Subject       string    `json:"subject" bson:"subject"`
	CorrelationID string    `json:"correlation_id,omitempty" bson:"correlation_id,omitempty"`
	SentAt        time.Time `json:"sent_at" bson:"sent_at"`
}

// DeliveryRepository keeps one delivery per transaction
type DeliveryRepository interface {
	Create(ctx context.Context, delivery *Delivery) error
	GetByTransactionID(ctx context.Context, transactionID uuid.UUID) (*Delivery, error)
}

// ErrDeliveryNotFound indicates no confirmation was sent for the transaction yet
type ErrDeliveryNotFound struct {
	TransactionID uuid.UUID
}

func (e ErrDeliveryNotFound) Error() string {
	return "notification delivery not found: " + e.TransactionID.String()
}

// Is implements the errors.Is interface for ErrDeliveryNotFound
func (e ErrDeliveryNotFound) Is(target error) bool {
	t, ok := target.(ErrDeliveryNotFound)
	if !ok {
		return false
	}
	// If the target TransactionID is empty, consider it a match for any ErrDeliveryNotFound
	if t.TransactionID == uuid.Nil {
		return true
	}
	return e.TransactionID == t.TransactionID
}

// ErrDuplicateDelivery indicates a confirmation was already recorded
type ErrDuplicateDelivery struct {
	TransactionID uuid.UUID
}

func (e ErrDuplicateDelivery) Error() string {
	return "duplicate notification delivery: " + e.TransactionID.String()
}

// Is implements the errors.Is interface for ErrDuplicateDelivery
func (e ErrDuplicateDelivery) Is(target error) bool {
	t, ok := target.(ErrDuplicateDelivery)
	if !ok {
		return false
	}
	if t.TransactionID == uuid.Nil {
		return true
	}
	return e.TransactionID == t.TransactionID
}
