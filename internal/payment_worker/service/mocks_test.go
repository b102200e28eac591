package service

import (
	"context"
	"io"
	"log/slog"
	"time"

	"github.com/alx-travel-payments/internal/domain/booking"
	"github.com/alx-travel-payments/internal/domain/notification"
	"github.com/alx-travel-payments/internal/domain/payment"
	"github.com/alx-travel-payments/internal/payment_worker/mailer"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/mock"
)

type MockBookingRepository struct {
	mock.Mock
}

func (m *MockBookingRepository) Create(ctx context.Context, b *booking.Booking) error {
	return m.Called(ctx, b).Error(0)
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
	return m.Called(ctx, b, expectedVersion).Error(0)
}

func (m *MockBookingRepository) WithTx(tx pgx.Tx) booking.Repository {
	return m
}

type MockTransactionRepository struct {
	mock.Mock
}

func (m *MockTransactionRepository) Create(ctx context.Context, tx *payment.Transaction) error {
	return m.Called(ctx, tx).Error(0)
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
	return m.Called(ctx, tx, expectedVersion).Error(0)
}

func (m *MockTransactionRepository) WithTx(tx pgx.Tx) payment.Repository {
	return m
}

type MockDeliveryRepository struct {
	mock.Mock
}

func (m *MockDeliveryRepository) Create(ctx context.Context, delivery *notification.Delivery) error {
	return m.Called(ctx, delivery).Error(0)
}

func (m *MockDeliveryRepository) GetByTransactionID(ctx context.Context, transactionID uuid.UUID) (*notification.Delivery, error) {
	args := m.Called(ctx, transactionID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*notification.Delivery), args.Error(1)
}

type MockMailer struct {
	mock.Mock
}

func (m *MockMailer) Send(ctx context.Context, email mailer.Email) error {
	return m.Called(ctx, email).Error(0)
}

type MockNotificationService struct {
	mock.Mock
}

func (m *MockNotificationService) SendConfirmation(ctx context.Context, msg *notification.Message) error {
	return m.Called(ctx, msg).Error(0)
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
