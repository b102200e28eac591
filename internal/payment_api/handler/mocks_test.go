package handler

import (
	"context"
	"io"
	"log/slog"

	"github.com/alx-travel-payments/internal/domain/audit"
	"github.com/alx-travel-payments/internal/domain/booking"
	"github.com/alx-travel-payments/internal/domain/payment"
	"github.com/alx-travel-payments/internal/payment_api/service"
	"github.com/alx-travel-payments/internal/workflow"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
)

type MockPaymentService struct {
	mock.Mock
}

func (m *MockPaymentService) InitiatePayment(ctx context.Context, in workflow.StartPaymentInput) (*payment.Transaction, error) {
	args := m.Called(ctx, in)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*payment.Transaction), args.Error(1)
}

func (m *MockPaymentService) ConfirmPayment(ctx context.Context, reference string) (*payment.Transaction, error) {
	args := m.Called(ctx, reference)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*payment.Transaction), args.Error(1)
}

func (m *MockPaymentService) CancelPayment(ctx context.Context, id uuid.UUID) (*payment.Transaction, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*payment.Transaction), args.Error(1)
}

func (m *MockPaymentService) GetPayment(ctx context.Context, id uuid.UUID) (*payment.Transaction, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*payment.Transaction), args.Error(1)
}

func (m *MockPaymentService) ListBookingPayments(ctx context.Context, bookingID uuid.UUID, page, perPage int) ([]*payment.Transaction, int64, error) {
	args := m.Called(ctx, bookingID, page, perPage)
	if args.Get(0) == nil {
		return nil, args.Get(1).(int64), args.Error(2)
	}
	return args.Get(0).([]*payment.Transaction), args.Get(1).(int64), args.Error(2)
}

func (m *MockPaymentService) ListGatewayEvents(ctx context.Context, transactionID uuid.UUID, page, perPage int) ([]*audit.GatewayEvent, int64, error) {
	args := m.Called(ctx, transactionID, page, perPage)
	if args.Get(0) == nil {
		return nil, args.Get(1).(int64), args.Error(2)
	}
	return args.Get(0).([]*audit.GatewayEvent), args.Get(1).(int64), args.Error(2)
}

type MockBookingService struct {
	mock.Mock
}

func (m *MockBookingService) CreateBooking(ctx context.Context, in service.CreateBookingInput) (*booking.Booking, error) {
	args := m.Called(ctx, in)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*booking.Booking), args.Error(1)
}

func (m *MockBookingService) GetBooking(ctx context.Context, id uuid.UUID) (*booking.Booking, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*booking.Booking), args.Error(1)
}

var (
	_ service.PaymentService = (*MockPaymentService)(nil)
	_ service.BookingService = (*MockBookingService)(nil)
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func setupTestRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)
	return gin.New()
}
