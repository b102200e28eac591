package payment

import (
	"time"

	"github.com/alx-travel-payments/internal/domain/shared"
	"github.com/google/uuid"
)

// Status defines the lifecycle states of a payment transaction
type Status string

const (
	StatusPending   Status = "PENDING"
	StatusCompleted Status = "COMPLETED"
	StatusFailed    Status = "FAILED"
	StatusCancelled Status = "CANCELLED"
)

// IsTerminal reports whether no further automatic transition can leave this status.
func (s Status) IsTerminal() bool {
	return s != StatusPending
}

// Valid reports whether s is one of the known statuses.
func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusCompleted, StatusFailed, StatusCancelled:
		return true
	}
	return false
}

// Transaction is one payment attempt for a booking
type Transaction struct {
	ID               uuid.UUID `json:"id"`
	BookingID        uuid.UUID `json:"booking_id"`
	Amount           int64     `json:"amount"` // Stored in minor units
	Currency         string    `json:"currency"`
	GatewayReference *string   `json:"gateway_reference,omitempty"`
	CheckoutURL      *string   `json:"checkout_url,omitempty"`
	Status           Status    `json:"status"`
	FailureReason    *string   `json:"failure_reason,omitempty"`
	Version          int       `json:"version"` // For optimistic locking
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}

// NewTransaction creates a pending transaction for the given booking
func NewTransaction(bookingID uuid.UUID, amount int64, currency string) (*Transaction, error) {
	if amount <= 0 {
		return nil, shared.ErrInvalidAmount
	}
	normalized, err := shared.NormalizeCurrency(currency)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	return &Transaction{
		ID:        uuid.New(),
		BookingID: bookingID,
		Amount:    amount,
		Currency:  normalized,
		Status:    StatusPending,
		Version:   1,
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

// AttachGatewayReference records the outcome of a successful initiation.
func (t *Transaction) AttachGatewayReference(reference, checkoutURL string) error {
	if t.Status != StatusPending {
		return ErrInvalidTransactionState{ID: t.ID, From: t.Status, To: StatusPending}
	}
	t.GatewayReference = &reference
	if checkoutURL != "" {
		t.CheckoutURL = &checkoutURL
	}
	t.touch()
	return nil
}

// Transition moves a pending transaction into a terminal status.
func (t *Transaction) Transition(to Status, reason string) error {
	if t.Status != StatusPending || !to.IsTerminal() || !to.Valid() {
		return ErrInvalidTransactionState{ID: t.ID, From: t.Status, To: to}
	}
	t.Status = to
	if reason != "" {
		t.FailureReason = &reason
	}
	t.touch()
	return nil
}

// Reference returns the gateway reference or an empty string before initiation.
func (t *Transaction) Reference() string {
	if t.GatewayReference == nil {
		return ""
	}
	return *t.GatewayReference
}

func (t *Transaction) touch() {
	t.UpdatedAt = time.Now().UTC()
	t.Version++
}
