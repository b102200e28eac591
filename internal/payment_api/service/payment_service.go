package service

import (
	"context"

	"github.com/alx-travel-payments/internal/domain/audit"
	"github.com/alx-travel-payments/internal/domain/booking"
	"github.com/alx-travel-payments/internal/domain/payment"
	"github.com/alx-travel-payments/internal/workflow"
	"github.com/google/uuid"
)

// PaymentServiceImpl implements the PaymentService interface. State changes
// go through the workflow; reads hit the repositories directly.
type PaymentServiceImpl struct {
	workflow     PaymentWorkflow
	transactions payment.Repository
	bookings     booking.Repository
	events       audit.Repository
}

// NewPaymentService creates a new payment service
func NewPaymentService(wf PaymentWorkflow, transactions payment.Repository, bookings booking.Repository, events audit.Repository) PaymentService {
	return &PaymentServiceImpl{
		workflow:     wf,
		transactions: transactions,
		bookings:     bookings,
		events:       events,
	}
}

func (s *PaymentServiceImpl) InitiatePayment(ctx context.Context, in workflow.StartPaymentInput) (*payment.Transaction, error) {
	return s.workflow.StartPayment(ctx, in)
}

func (s *PaymentServiceImpl) ConfirmPayment(ctx context.Context, reference string) (*payment.Transaction, error) {
	return s.workflow.ConfirmPayment(ctx, reference)
}

func (s *PaymentServiceImpl) CancelPayment(ctx context.Context, id uuid.UUID) (*payment.Transaction, error) {
	return s.workflow.CancelPayment(ctx, id)
}

func (s *PaymentServiceImpl) GetPayment(ctx context.Context, id uuid.UUID) (*payment.Transaction, error) {
	return s.transactions.GetByID(ctx, id)
}

// ListBookingPayments returns ErrBookingNotFound for an unknown booking rather than an empty page
func (s *PaymentServiceImpl) ListBookingPayments(ctx context.Context, bookingID uuid.UUID, page, perPage int) ([]*payment.Transaction, int64, error) {
	if _, err := s.bookings.GetByID(ctx, bookingID); err != nil {
		return nil, 0, err
	}

	total, err := s.transactions.CountByBookingID(ctx, bookingID)
	if err != nil {
		return nil, 0, err
	}
	if total == 0 {
		return []*payment.Transaction{}, 0, nil
	}

	txs, err := s.transactions.ListByBookingID(ctx, bookingID, perPage, (page-1)*perPage)
	if err != nil {
		return nil, 0, err
	}
	return txs, total, nil
}

// ListGatewayEvents returns ErrTransactionNotFound for an unknown payment
func (s *PaymentServiceImpl) ListGatewayEvents(ctx context.Context, transactionID uuid.UUID, page, perPage int) ([]*audit.GatewayEvent, int64, error) {
	if _, err := s.transactions.GetByID(ctx, transactionID); err != nil {
		return nil, 0, err
	}

	total, err := s.events.CountByTransactionID(ctx, transactionID)
	if err != nil {
		return nil, 0, err
	}
	if total == 0 {
		return []*audit.GatewayEvent{}, 0, nil
	}

	events, err := s.events.ListByTransactionID(ctx, transactionID, perPage, (page-1)*perPage)
	if err != nil {
		return nil, 0, err
	}
	return events, total, nil
}
