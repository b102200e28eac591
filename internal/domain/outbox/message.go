package outbox

import (
	"encoding/json"
	"time"

	"github.com/alx-travel-payments/internal/domain/notification"
	"github.com/alx-travel-payments/internal/domain/shared"
	"github.com/google/uuid"
)

// Message holds a notification that could not be enqueued directly,
// waiting for the relay to publish it.
type Message struct {
	ID            int64               `json:"id"`
	TransactionID uuid.UUID           `json:"transaction_id"`
	BookingID     uuid.UUID           `json:"booking_id"`
	Payload       json.RawMessage     `json:"payload"`
	Status        shared.OutboxStatus `json:"status"`
	Attempts      int                 `json:"attempts"`
	CreatedAt     time.Time           `json:"created_at"`
	LastAttemptAt *time.Time          `json:"last_attempt_at,omitempty"`
}

func NewMessage(n *notification.Message) (*Message, error) {
	payload, err := json.Marshal(n)
	if err != nil {
		return nil, err
	}

	return &Message{
		TransactionID: n.TransactionID,
		BookingID:     n.BookingID,
		Payload:       payload,
		Status:        shared.OutboxStatusPending,
		CreatedAt:     time.Now().UTC(),
	}, nil
}

func (m *Message) IncrementAttempts() {
	m.Attempts++
	now := time.Now()
	m.LastAttemptAt = &now
}

func (m *Message) MarkAsProcessed() {
	m.Status = shared.OutboxStatusProcessed
	now := time.Now()
	m.LastAttemptAt = &now
}

func (m *Message) MarkAsFailed() {
	m.Status = shared.OutboxStatusFailedToPublish
	now := time.Now()
	m.LastAttemptAt = &now
}

// Notification decodes the stored notification payload
func (m *Message) Notification() (*notification.Message, error) {
	var n notification.Message
	if err := json.Unmarshal(m.Payload, &n); err != nil {
		return nil, err
	}
	return &n, nil
}
