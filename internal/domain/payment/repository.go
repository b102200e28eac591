package payment

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// Repository defines payment transaction persistence operations
type Repository interface {
	// Create inserts a pending transaction. It fails with ErrDuplicateActiveTransaction
	// when the booking already has a pending one.
	Create(ctx context.Context, tx *Transaction) error
	GetByID(ctx context.Context, id uuid.UUID) (*Transaction, error)
	GetByReference(ctx context.Context, reference string) (*Transaction, error)
	GetActiveByBookingID(ctx context.Context, bookingID uuid.UUID) (*Transaction, error)
	ListByBookingID(ctx context.Context, bookingID uuid.UUID, limit, offset int) ([]*Transaction, error)
	CountByBookingID(ctx context.Context, bookingID uuid.UUID) (int64, error)
	ListStalePending(ctx context.Context, olderThan time.Time, limit int) ([]*Transaction, error)

	// Update persists the mutable fields of tx. expectedVersion is the version
	// the caller read; a mismatch returns ErrConcurrentModification.
	Update(ctx context.Context, tx *Transaction, expectedVersion int) error
	WithTx(tx pgx.Tx) Repository
}

// ErrTransactionNotFound indicates a missing payment transaction
type ErrTransactionNotFound struct {
	ID        uuid.UUID
	Reference string
}

func (e ErrTransactionNotFound) Error() string {
	if e.Reference != "" {
		return "payment transaction not found for reference: " + e.Reference
	}
	return "payment transaction not found: " + e.ID.String()
}

// Is matches any ErrTransactionNotFound when the target carries no identifiers
func (e ErrTransactionNotFound) Is(target error) bool {
	t, ok := target.(ErrTransactionNotFound)
	if !ok {
		return false
	}
	if t.ID == uuid.Nil && t.Reference == "" {
		return true
	}
	return e.ID == t.ID && e.Reference == t.Reference
}

// ErrDuplicateActiveTransaction indicates the booking already has a pending payment
type ErrDuplicateActiveTransaction struct {
	BookingID uuid.UUID
}

func (e ErrDuplicateActiveTransaction) Error() string {
	return "booking already has an active payment transaction: " + e.BookingID.String()
}

// Is matches any ErrDuplicateActiveTransaction when the target BookingID is empty
func (e ErrDuplicateActiveTransaction) Is(target error) bool {
	t, ok := target.(ErrDuplicateActiveTransaction)
	if !ok {
		return false
	}
	if t.BookingID == uuid.Nil {
		return true
	}
	return e.BookingID == t.BookingID
}

// ErrInvalidTransactionState indicates an operation on a transaction in the wrong state
type ErrInvalidTransactionState struct {
	ID   uuid.UUID
	From Status
	To   Status
}

func (e ErrInvalidTransactionState) Error() string {
	return fmt.Sprintf("invalid transaction state for %s: cannot move from %s to %s", e.ID, e.From, e.To)
}

// Is matches any ErrInvalidTransactionState when the target ID is empty
func (e ErrInvalidTransactionState) Is(target error) bool {
	t, ok := target.(ErrInvalidTransactionState)
	if !ok {
		return false
	}
	if t.ID == uuid.Nil {
		return true
	}
	return e.ID == t.ID
}

// ErrConcurrentModification indicates optimistic lock failure
type ErrConcurrentModification struct {
	ID uuid.UUID
}

func (e ErrConcurrentModification) Error() string {
	return "concurrent modification detected for payment transaction: " + e.ID.String()
}

// Is matches any ErrConcurrentModification when the target ID is empty
func (e ErrConcurrentModification) Is(target error) bool {
	t, ok := target.(ErrConcurrentModification)
	if !ok {
		return false
	}
	return t.ID == uuid.Nil || e.ID == t.ID
}
