// Package postgres provides PostgreSQL implementations of the domain repositories.
// Writes that take part in the payment workflow run through WithTx so that
// transaction and booking updates commit together.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/alx-travel-payments/internal/domain/payment"
	"github.com/alx-travel-payments/internal/platform/persistence"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// activeTransactionIndex is the partial unique index allowing one PENDING row per booking.
const activeTransactionIndex = "payment_transactions_one_active_per_booking"

const transactionColumns = `id, booking_id, amount, currency, gateway_reference, checkout_url, status, failure_reason, version, created_at, updated_at`

// TransactionRepository implements the payment.Repository interface for PostgreSQL
type TransactionRepository struct {
	querier persistence.Querier // Can be *pgxpool.Pool or pgx.Tx
	logger  *slog.Logger
}

// NewTransactionRepository creates a new PostgreSQL payment transaction repository
func NewTransactionRepository(logger *slog.Logger, db *persistence.PostgresDB) payment.Repository {
	return &TransactionRepository{
		querier: db.Pool(),
		logger:  logger,
	}
}

// WithTx returns a repository bound to the given transaction
func (r *TransactionRepository) WithTx(tx pgx.Tx) payment.Repository {
	return &TransactionRepository{
		querier: tx,
		logger:  r.logger,
	}
}

// Create inserts a new transaction. The partial unique index rejects a second
// PENDING row for the same booking, which surfaces as ErrDuplicateActiveTransaction.
func (r *TransactionRepository) Create(ctx context.Context, tx *payment.Transaction) error {
	query := `
		INSERT INTO payment_transactions (` + transactionColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`

	_, err := r.querier.Exec(ctx, query,
		tx.ID,
		tx.BookingID,
		tx.Amount,
		tx.Currency,
		tx.GatewayReference,
		tx.CheckoutURL,
		tx.Status,
		tx.FailureReason,
		tx.Version,
		tx.CreatedAt,
		tx.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err, activeTransactionIndex) {
			return payment.ErrDuplicateActiveTransaction{BookingID: tx.BookingID}
		}
		r.logger.Error("Failed to create payment transaction", "booking_id", tx.BookingID.String(), "error", err)
		return fmt.Errorf("failed to create payment transaction: %w", err)
	}

	return nil
}

// GetByID retrieves a transaction by its ID
func (r *TransactionRepository) GetByID(ctx context.Context, id uuid.UUID) (*payment.Transaction, error) {
	query := `SELECT ` + transactionColumns + ` FROM payment_transactions WHERE id = $1`

	tx, err := scanTransaction(r.querier.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, payment.ErrTransactionNotFound{ID: id}
		}
		r.logger.Error("Failed to get payment transaction", "id", id.String(), "error", err)
		return nil, fmt.Errorf("failed to get payment transaction: %w", err)
	}

	return tx, nil
}

// GetByReference retrieves a transaction by its gateway reference
func (r *TransactionRepository) GetByReference(ctx context.Context, reference string) (*payment.Transaction, error) {
	query := `SELECT ` + transactionColumns + ` FROM payment_transactions WHERE gateway_reference = $1`

	tx, err := scanTransaction(r.querier.QueryRow(ctx, query, reference))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, payment.ErrTransactionNotFound{Reference: reference}
		}
		r.logger.Error("Failed to get payment transaction by reference", "reference", reference, "error", err)
		return nil, fmt.Errorf("failed to get payment transaction by reference: %w", err)
	}

	return tx, nil
}

// GetActiveByBookingID returns the booking's PENDING transaction, if any
func (r *TransactionRepository) GetActiveByBookingID(ctx context.Context, bookingID uuid.UUID) (*payment.Transaction, error) {
	query := `SELECT ` + transactionColumns + ` FROM payment_transactions WHERE booking_id = $1 AND status = $2`

	tx, err := scanTransaction(r.querier.QueryRow(ctx, query, bookingID, payment.StatusPending))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, payment.ErrTransactionNotFound{}
		}
		r.logger.Error("Failed to get active payment transaction", "booking_id", bookingID.String(), "error", err)
		return nil, fmt.Errorf("failed to get active payment transaction: %w", err)
	}

	return tx, nil
}

// ListByBookingID returns the booking's payment history, newest first
func (r *TransactionRepository) ListByBookingID(ctx context.Context, bookingID uuid.UUID, limit, offset int) ([]*payment.Transaction, error) {
	query := `
		SELECT ` + transactionColumns + `
		FROM payment_transactions
		WHERE booking_id = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3
	`

	rows, err := r.querier.Query(ctx, query, bookingID, limit, offset)
	if err != nil {
		r.logger.Error("Failed to list payment transactions", "booking_id", bookingID.String(), "error", err)
		return nil, fmt.Errorf("failed to list payment transactions: %w", err)
	}
	defer rows.Close()

	return r.collect(rows)
}

// CountByBookingID counts every transaction recorded for a booking
func (r *TransactionRepository) CountByBookingID(ctx context.Context, bookingID uuid.UUID) (int64, error) {
	query := `SELECT COUNT(*) FROM payment_transactions WHERE booking_id = $1`

	var count int64
	if err := r.querier.QueryRow(ctx, query, bookingID).Scan(&count); err != nil {
		r.logger.Error("Failed to count payment transactions", "booking_id", bookingID.String(), "error", err)
		return 0, fmt.Errorf("failed to count payment transactions: %w", err)
	}

	return count, nil
}

// ListStalePending returns PENDING transactions created before olderThan, oldest first
func (r *TransactionRepository) ListStalePending(ctx context.Context, olderThan time.Time, limit int) ([]*payment.Transaction, error) {
	query := `
		SELECT ` + transactionColumns + `
		FROM payment_transactions
		WHERE status = $1 AND created_at < $2
		ORDER BY created_at ASC
		LIMIT $3
	`

	rows, err := r.querier.Query(ctx, query, payment.StatusPending, olderThan, limit)
	if err != nil {
		r.logger.Error("Failed to list stale payment transactions", "error", err)
		return nil, fmt.Errorf("failed to list stale payment transactions: %w", err)
	}
	defer rows.Close()

	return r.collect(rows)
}

// Update writes the mutable fields using optimistic locking on version.
// Returns ErrConcurrentModification if another writer got there first.
func (r *TransactionRepository) Update(ctx context.Context, tx *payment.Transaction, expectedVersion int) error {
	query := `
		UPDATE payment_transactions
		SET gateway_reference = $1, checkout_url = $2, status = $3, failure_reason = $4, version = $5, updated_at = $6
		WHERE id = $7 AND version = $8
	`

	result, err := r.querier.Exec(ctx, query,
		tx.GatewayReference,
		tx.CheckoutURL,
		tx.Status,
		tx.FailureReason,
		tx.Version,
		tx.UpdatedAt,
		tx.ID,
		expectedVersion,
	)
	if err != nil {
		r.logger.Error("Failed to update payment transaction", "id", tx.ID.String(), "error", err)
		return fmt.Errorf("failed to update payment transaction: %w", err)
	}

	if result.RowsAffected() == 0 {
		return payment.ErrConcurrentModification{ID: tx.ID}
	}

	return nil
}

func (r *TransactionRepository) collect(rows pgx.Rows) ([]*payment.Transaction, error) {
	var transactions []*payment.Transaction
	for rows.Next() {
		tx, err := scanTransaction(rows)
		if err != nil {
			r.logger.Error("Failed to scan payment transaction", "error", err)
			return nil, fmt.Errorf("failed to scan payment transaction: %w", err)
		}
		transactions = append(transactions, tx)
	}

	if err := rows.Err(); err != nil {
		r.logger.Error("Error iterating over payment transactions", "error", err)
		return nil, fmt.Errorf("error iterating over payment transactions: %w", err)
	}

	return transactions, nil
}

func scanTransaction(row pgx.Row) (*payment.Transaction, error) {
	var tx payment.Transaction
	err := row.Scan(
		&tx.ID,
		&tx.BookingID,
		&tx.Amount,
		&tx.Currency,
		&tx.GatewayReference,
		&tx.CheckoutURL,
		&tx.Status,
		&tx.FailureReason,
		&tx.Version,
		&tx.CreatedAt,
		&tx.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &tx, nil
}
