package audit

import (
	"time"

	"github.com/google/uuid"
)

// Operation names the gateway call that produced an event
type Operation string

const (
	OperationInitiate Operation = "initiate"
	OperationVerify   Operation = "verify"
)

// GatewayEvent is an audit record of one call to the payment gateway
type GatewayEvent struct {
	ID               uuid.UUID              `json:"id" bson:"_id"`
	TransactionID    uuid.UUID              `json:"transaction_id" bson:"transaction_id"`
	BookingID        uuid.UUID              `json:"booking_id" bson:"booking_id"`
	GatewayReference string                 `json:"gateway_reference,omitempty" bson:"gateway_reference,omitempty"`
	Operation        Operation              `json:"operation" bson:"operation"`
	Outcome          string                 `json:"outcome,omitempty" bson:"outcome,omitempty"`
	RawPayload       map[string]interface{} `json:"raw_payload,omitempty" bson:"raw_payload,omitempty"`
	Error            string                 `json:"error,omitempty" bson:"error,omitempty"`
	CorrelationID    string                 `json:"correlation_id,omitempty" bson:"correlation_id,omitempty"`
	Timestamp        time.Time              `json:"timestamp" bson:"timestamp"`
}

// NewGatewayEvent stamps a new audit event
func NewGatewayEvent(transactionID, bookingID uuid.UUID, reference string, op Operation) *GatewayEvent {
	return &GatewayEvent{
		ID:               uuid.New(),
		TransactionID:    transactionID,
		BookingID:        bookingID,
		GatewayReference: reference,
		Operation:        op,
		Timestamp:        time.Now().UTC(),
	}
}
