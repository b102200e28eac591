package service

import (
	"context"
	"time"

	"github.com/alx-travel-payments/internal/domain/audit"
	"github.com/alx-travel-payments/internal/domain/booking"
	"github.com/alx-travel-payments/internal/domain/payment"
	"github.com/alx-travel-payments/internal/workflow"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/mock"
)

type MockBookingRepository struct {
	mock.Mock
}

func (m *MockBookingRepository) Create(ctx context.Context, b *booking.Booking) error {
	args := m.Called(ctx, b)
	return args.Error(0)
}

func (m *MockBookingRepository) GetByID(ctx context.Context, id uuid.UUID) (*booking.Booking, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*booking.Booking), args.Error(1)
}

func (m *MockBookingRepository) LockForUpdate(ctx context.Context, id uuid.UUID) (*booking.Booking, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*booking.Booking), args.Error(1)
}

func (m *MockBookingRepository) UpdateStatus(ctx context.Context, b *booking.Booking, expectedVersion int) error {
	args := m.Called(ctx, b, expectedVersion)
	return args.Error(0)
}

func (m *MockBookingRepository) WithTx(tx pgx.Tx) booking.Repository {
	return m
}

type MockTransactionRepository struct {
	mock.Mock
}

func (m *MockTransactionRepository) Create(ctx context.Context, tx *payment.Transaction) error {
	args := m.Called(ctx, tx)
	return args.Error(0)
}

func (m *MockTransactionRepository) GetByID(ctx context.Context, id uuid.UUID) (*payment.Transaction, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*payment.Transaction), args.Error(1)
}

func (m *MockTransactionRepository) GetByReference(ctx context.Context, reference string) (*payment.Transaction, error) {
	args := m.Called(ctx, reference)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*payment.Transaction), args.Error(1)
}

func (m *MockTransactionRepository) GetActiveByBookingID(ctx context.Context, bookingID uuid.UUID) (*payment.Transaction, error) {
	args := m.Called(ctx, bookingID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*payment.Transaction), args.Error(1)
}

func (m *MockTransactionRepository) ListByBookingID(ctx context.Context, bookingID uuid.UUID, limit, offset int) ([]*payment.Transaction, error) {
	args := m.Called(ctx, bookingID, limit, offset)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*payment.Transaction), args.Error(1)
}

func (m *MockTransactionRepository) CountByBookingID(ctx context.Context, bookingID uuid.UUID) (int64, error) {
	args := m.Called(ctx, bookingID)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockTransactionRepository) ListStalePending(ctx context.Context, olderThan time.Time, limit int) ([]*payment.Transaction, error) {
	args := m.Called(ctx, olderThan, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*payment.Transaction), args.Error(1)
}

func (m *MockTransactionRepository) Update(ctx context.Context, tx *payment.Transaction, expectedVersion int) error {
	args := m.Called(ctx, tx, expectedVersion)
	return args.Error(0)
}

func (m *MockTransactionRepository) WithTx(tx pgx.Tx) payment.Repository {
	return m
}

type MockAuditRepository struct {
	mock.Mock
}

func (m *MockAuditRepository) Create(ctx context.Context, event *audit.GatewayEvent) error {
	args := m.Called(ctx, event)
	return args.Error(0)
}

func (m *MockAuditRepository) ListByTransactionID(ctx context.Context, transactionID uuid.UUID, limit, offset int) ([]*audit.GatewayEvent, error) {
	args := m.Called(ctx, transactionID, limit, offset)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*audit.GatewayEvent), args.Error(1)
}

func (m *MockAuditRepository) CountByTransactionID(ctx context.Context, transactionID uuid.UUID) (int64, error) {
	args := m.Called(ctx, transactionID)
	return args.Get(0).(int64), args.Error(1)
}

type MockPaymentWorkflow struct {
	mock.Mock
}

func (m *MockPaymentWorkflow) StartPayment(ctx context.Context, in workflow.StartPaymentInput) (*payment.Transaction, error) {
	args := m.Called(ctx, in)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*payment.Transaction), args.Error(1)
}

func (m *MockPaymentWorkflow) ConfirmPayment(ctx context.Context, reference string) (*payment.Transaction, error) {
	args := m.Called(ctx, reference)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*payment.Transaction), args.Error(1)
}

func (m *MockPaymentWorkflow) CancelPayment(ctx context.Context, id uuid.UUID) (*payment.Transaction, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*payment.Transaction), args.Error(1)
}

var (
	_ booking.Repository = (*MockBookingRepository)(nil)
	_ payment.Repository = (*MockTransactionRepository)(nil)
	_ audit.Repository   = (*MockAuditRepository)(nil)
	_ PaymentWorkflow    = (*MockPaymentWorkflow)(nil)
	_ PaymentWorkflow    = (*workflow.Controller)(nil)
)
