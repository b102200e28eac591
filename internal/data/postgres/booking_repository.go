package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/alx-travel-payments/internal/domain/booking"
	"github.com/alx-travel-payments/internal/platform/persistence"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

const bookingColumns = `id, guest_name, guest_email, listing_title, check_in, check_out, total_price, currency, status, payment_status, version, created_at, updated_at`

// BookingRepository implements the booking.Repository interface for PostgreSQL
type BookingRepository struct {
	querier persistence.Querier
	logger  *slog.Logger
}

// NewBookingRepository creates a new PostgreSQL booking repository
func NewBookingRepository(logger *slog.Logger, db *persistence.PostgresDB) booking.Repository {
	return &BookingRepository{
		querier: db.Pool(),
		logger:  logger,
	}
}

// WithTx returns a repository bound to the given transaction
func (r *BookingRepository) WithTx(tx pgx.Tx) booking.Repository {
	return &BookingRepository{
		querier: tx,
		logger:  r.logger,
	}
}

// Create stores a new booking
func (r *BookingRepository) Create(ctx context.Context, b *booking.Booking) error {
	query := `
		INSERT INTO bookings (` + bookingColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
	`

	_, err := r.querier.Exec(ctx, query,
		b.ID,
		b.GuestName,
		b.GuestEmail,
		b.ListingTitle,
		b.CheckIn,
		b.CheckOut,
		b.TotalPrice,
		b.Currency,
		b.Status,
		b.PaymentStatus,
		b.Version,
		b.CreatedAt,
		b.UpdatedAt,
	)
	if err != nil {
		r.logger.Error("Failed to create booking", "error", err)
		return fmt.Errorf("failed to create booking: %w", err)
	}

	return nil
}

// GetByID retrieves a booking by its ID
func (r *BookingRepository) GetByID(ctx context.Context, id uuid.UUID) (*booking.Booking, error) {
	query := `SELECT ` + bookingColumns + ` FROM bookings WHERE id = $1`

	b, err := scanBooking(r.querier.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, booking.ErrBookingNotFound{BookingID: id}
		}
		r.logger.Error("Failed to get booking", "id", id.String(), "error", err)
		return nil, fmt.Errorf("failed to get booking: %w", err)
	}

	return b, nil
}

// LockForUpdate obtains a row lock on the booking and returns its current state.
// It must be called within a transaction.
func (r *BookingRepository) LockForUpdate(ctx context.Context, id uuid.UUID) (*booking.Booking, error) {
	query := `SELECT ` + bookingColumns + ` FROM bookings WHERE id = $1 FOR UPDATE`

	b, err := scanBooking(r.querier.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, booking.ErrBookingNotFound{BookingID: id}
		}
		r.logger.Error("Failed to lock booking for update", "id", id.String(), "error", err)
		return nil, fmt.Errorf("failed to lock booking for update: %w", err)
	}

	return b, nil
}

// UpdateStatus persists status and payment status using optimistic locking.
// Returns ErrConcurrentModification if the booking changed since it was read.
func (r *BookingRepository) UpdateStatus(ctx context.Context, b *booking.Booking, expectedVersion int) error {
	query := `
		UPDATE bookings
		SET status = $1, payment_status = $2, version = $3, updated_at = $4
		WHERE id = $5 AND version = $6
	`

	result, err := r.querier.Exec(ctx, query,
		b.Status,
		b.PaymentStatus,
		b.Version,
		b.UpdatedAt,
		b.ID,
		expectedVersion,
	)
	if err != nil {
		r.logger.Error("Failed to update booking status", "id", b.ID.String(), "error", err)
		return fmt.Errorf("failed to update booking status: %w", err)
	}

	if result.RowsAffected() == 0 {
		return booking.ErrConcurrentModification{BookingID: b.ID}
	}

	return nil
}

func scanBooking(row pgx.Row) (*booking.Booking, error) {
	var b booking.Booking
	err := row.Scan(
		&b.ID,
		&b.GuestName,
		&b.GuestEmail,
		&b.ListingTitle,
		&b.CheckIn,
		&b.CheckOut,
		&b.TotalPrice,
		&b.Currency,
		&b.Status,
		&b.PaymentStatus,
		&b.Version,
		&b.CreatedAt,
		&b.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &b, nil
}
