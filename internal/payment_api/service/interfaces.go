package service

import (
	"context"
	"time"

	"github.com/alx-travel-payments/internal/domain/audit"
	"github.com/alx-travel-payments/internal/domain/booking"
	"github.com/alx-travel-payments/internal/domain/payment"
	"github.com/alx-travel-payments/internal/workflow"
	"github.com/google/uuid"
)

// PaymentWorkflow is the part of workflow.Controller the API drives
type PaymentWorkflow interface {
	StartPayment(ctx context.Context, in workflow.StartPaymentInput) (*payment.Transaction, error)
	ConfirmPayment(ctx context.Context, reference string) (*payment.Transaction, error)
	CancelPayment(ctx context.Context, id uuid.UUID) (*payment.Transaction, error)
}

// PaymentService defines the interface for payment operations
type PaymentService interface {
	// InitiatePayment starts a payment for a booking and returns the pending
	// transaction with its checkout URL.
	// Returns ErrDuplicateActiveTransaction while another payment is pending.
	InitiatePayment(ctx context.Context, in workflow.StartPaymentInput) (*payment.Transaction, error)

	// ConfirmPayment verifies the payment behind a gateway reference.
	// A PENDING result means the gateway has not settled the payment yet.
	ConfirmPayment(ctx context.Context, reference string) (*payment.Transaction, error)

	// CancelPayment abandons a pending payment
	CancelPayment(ctx context.Context, id uuid.UUID) (*payment.Transaction, error)

	// GetPayment returns ErrTransactionNotFound if the payment doesn't exist
	GetPayment(ctx context.Context, id uuid.UUID) (*payment.Transaction, error)

	// ListBookingPayments returns one page of payment attempts and the total count
	ListBookingPayments(ctx context.Context, bookingID uuid.UUID, page, perPage int) ([]*payment.Transaction, int64, error)

	// ListGatewayEvents returns one page of gateway audit events for a payment
	ListGatewayEvents(ctx context.Context, transactionID uuid.UUID, page, perPage int) ([]*audit.GatewayEvent, int64, error)
}

// CreateBookingInput carries the fields of a new booking
type CreateBookingInput struct {
	GuestName    string
	GuestEmail   string
	ListingTitle string
	CheckIn      time.Time
	CheckOut     time.Time
	TotalPrice   int64 // minor units
	Currency     string
}

// BookingService defines the interface for booking operations
type BookingService interface {
	CreateBooking(ctx context.Context, in CreateBookingInput) (*booking.Booking, error)

	// GetBooking returns ErrBookingNotFound if the booking doesn't exist
	GetBooking(ctx context.Context, id uuid.UUID) (*booking.Booking, error)
}
