package outbox_poller

import (
	"context"
	"io"
	"log/slog"

	"github.com/alx-travel-payments/internal/domain/notification"
	"github.com/alx-travel-payments/internal/domain/outbox"
	"github.com/alx-travel-payments/internal/domain/shared"
	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/mock"
)

type MockOutboxRepo struct {
	mock.Mock
}

func (m *MockOutboxRepo) Create(ctx context.Context, message *outbox.Message) error {
	return m.Called(ctx, message).Error(0)
}

func (m *MockOutboxRepo) GetPending(ctx context.Context, limit int) ([]*outbox.Message, error) {
	args := m.Called(ctx, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*outbox.Message), args.Error(1)
}

func (m *MockOutboxRepo) UpdateStatus(ctx context.Context, id int64, status shared.OutboxStatus) error {
	return m.Called(ctx, id, status).Error(0)
}

func (m *MockOutboxRepo) IncrementAttempts(ctx context.Context, id int64) error {
	return m.Called(ctx, id).Error(0)
}

func (m *MockOutboxRepo) WithTx(tx pgx.Tx) outbox.Repository {
	return m
}

type MockPublisher struct {
	mock.Mock
}

func (m *MockPublisher) PublishNotification(ctx context.Context, msg *notification.Message) error {
	return m.Called(ctx, msg).Error(0)
}

func (m *MockPublisher) Close() error {
	return m.Called().Error(0)
}

type MockRelay struct {
	mock.Mock
}

func (m *MockRelay) Relay(ctx context.Context, message *outbox.Message) error {
	return m.Called(ctx, message).Error(0)
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
