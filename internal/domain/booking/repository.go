package booking

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// Repository defines booking persistence operations
type Repository interface {
	Create(ctx context.Context, booking *Booking) error
	GetByID(ctx context.Context, id uuid.UUID) (*Booking, error)

	// LockForUpdate acquires a row lock inside the surrounding transaction
	LockForUpdate(ctx context.Context, id uuid.UUID) (*Booking, error)

	// UpdateStatus uses optimistic locking on the version column
	UpdateStatus(ctx context.Context, booking *Booking, expectedVersion int) error
	WithTx(tx pgx.Tx) Repository
}

// ErrBookingNotFound indicates missing booking
type ErrBookingNotFound struct {
	BookingID uuid.UUID
}

func (e ErrBookingNotFound) Error() string {
	return "booking not found: " + e.BookingID.String()
}

// Is matches any ErrBookingNotFound when the target BookingID is empty
func (e ErrBookingNotFound) Is(target error) bool {
	t, ok := target.(ErrBookingNotFound)
	if !ok {
		return false
	}
	return t.BookingID == uuid.Nil || e.BookingID == t.BookingID
}

// ErrBookingNotPayable indicates the booking is not in a state that accepts payment
type ErrBookingNotPayable struct {
	BookingID     uuid.UUID
	Status        Status
	PaymentStatus PaymentStatus
}

func (e ErrBookingNotPayable) Error() string {
	return fmt.Sprintf("booking %s cannot be paid (status %s, payment status %s)", e.BookingID, e.Status, e.PaymentStatus)
}

// Is matches any ErrBookingNotPayable when the target BookingID is empty
func (e ErrBookingNotPayable) Is(target error) bool {
	t, ok := target.(ErrBookingNotPayable)
	if !ok {
		return false
	}
	return t.BookingID == uuid.Nil || e.BookingID == t.BookingID
}

// ErrConcurrentModification indicates optimistic lock failure
type ErrConcurrentModification struct {
	BookingID uuid.UUID
}

func (e ErrConcurrentModification) Error() string {
	return "concurrent modification detected for booking: " + e.BookingID.String()
}

// Is matches any ErrConcurrentModification when the target BookingID is empty
func (e ErrConcurrentModification) Is(target error) bool {
	t, ok := target.(ErrConcurrentModification)
	if !ok {
		return false
	}
	return t.BookingID == uuid.Nil || e.BookingID == t.BookingID
}
