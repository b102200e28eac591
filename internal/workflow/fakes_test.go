package workflow

import (
	"context"
	"io"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/alx-travel-payments/internal/domain/audit"
	"github.com/alx-travel-payments/internal/domain/booking"
	"github.com/alx-travel-payments/internal/domain/payment"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/mock"
)

const testCallbackURL = "https://travel.example.com/api/v1/payments/callback"

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// inlineTx runs the unit of work directly; the in-memory repositories
// ignore the pgx.Tx they are bound to.
type inlineTx struct{}

func (inlineTx) ExecuteTx(_ context.Context, fn func(tx pgx.Tx) error) error {
	return fn(nil)
}

// memTransactions mimics the Postgres repository, including the one pending
// transaction per booking constraint and the optimistic version check.
type memTransactions struct {
	mu   sync.Mutex
	rows map[uuid.UUID]payment.Transaction
}

func newMemTransactions() *memTransactions {
	return &memTransactions{rows: make(map[uuid.UUID]payment.Transaction)}
}

func (r *memTransactions) Create(_ context.Context, tx *payment.Transaction) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, row := range r.rows {
		if row.BookingID == tx.BookingID && row.Status == payment.StatusPending {
			return payment.ErrDuplicateActiveTransaction{BookingID: tx.BookingID}
		}
	}
	r.rows[tx.ID] = *tx
	return nil
}

func (r *memTransactions) GetByID(_ context.Context, id uuid.UUID) (*payment.Transaction, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	row, ok := r.rows[id]
	if !ok {
		return nil, payment.ErrTransactionNotFound{ID: id}
	}
	return &row, nil
}

func (r *memTransactions) GetByReference(_ context.Context, reference string) (*payment.Transaction, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, row := range r.rows {
		if row.Reference() == reference {
			found := row
			return &found, nil
		}
	}
	return nil, payment.ErrTransactionNotFound{Reference: reference}
}

func (r *memTransactions) GetActiveByBookingID(_ context.Context, bookingID uuid.UUID) (*payment.Transaction, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, row := range r.rows {
		if row.BookingID == bookingID && row.Status == payment.StatusPending {
			found := row
			return &found, nil
		}
	}
	return nil, payment.ErrTransactionNotFound{}
}

func (r *memTransactions) ListByBookingID(_ context.Context, bookingID uuid.UUID, limit, offset int) ([]*payment.Transaction, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*payment.Transaction
	for _, row := range r.rows {
		if row.BookingID == bookingID {
			found := row
			out = append(out, &found)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if offset >= len(out) {
		return nil, nil
	}
	out = out[offset:]
	if limit < len(out) {
		out = out[:limit]
	}
	return out, nil
}

func (r *memTransactions) CountByBookingID(ctx context.Context, bookingID uuid.UUID) (int64, error) {
	rows, _ := r.ListByBookingID(ctx, bookingID, 1<<30, 0)
	return int64(len(rows)), nil
}

func (r *memTransactions) ListStalePending(_ context.Context, olderThan time.Time, limit int) ([]*payment.Transaction, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*payment.Transaction
	for _, row := range r.rows {
		if row.Status == payment.StatusPending && row.CreatedAt.Before(olderThan) && len(out) < limit {
			found := row
			out = append(out, &found)
		}
	}
	return out, nil
}

func (r *memTransactions) Update(_ context.Context, tx *payment.Transaction, expectedVersion int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	row, ok := r.rows[tx.ID]
	if !ok {
		return payment.ErrTransactionNotFound{ID: tx.ID}
	}
	if row.Version != expectedVersion {
		return payment.ErrConcurrentModification{ID: tx.ID}
	}
	r.rows[tx.ID] = *tx
	return nil
}

func (r *memTransactions) WithTx(pgx.Tx) payment.Repository {
	return r
}

func (r *memTransactions) all() []payment.Transaction {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]payment.Transaction, 0, len(r.rows))
	for _, row := range r.rows {
		out = append(out, row)
	}
	return out
}

// cancellableTransactions fails writes once the caller's context is done,
// the way a pgx query on a cancelled context does.
type cancellableTransactions struct {
	*memTransactions
}

func (r cancellableTransactions) Update(ctx context.Context, tx *payment.Transaction, expectedVersion int) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return r.memTransactions.Update(ctx, tx, expectedVersion)
}

func (r cancellableTransactions) WithTx(pgx.Tx) payment.Repository {
	return r
}

type memBookings struct {
	mu   sync.Mutex
	rows map[uuid.UUID]booking.Booking
}

func newMemBookings(bookings ...*booking.Booking) *memBookings {
	r := &memBookings{rows: make(map[uuid.UUID]booking.Booking)}
	for _, b := range bookings {
		r.rows[b.ID] = *b
	}
	return r
}

func (r *memBookings) Create(_ context.Context, b *booking.Booking) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rows[b.ID] = *b
	return nil
}

func (r *memBookings) GetByID(_ context.Context, id uuid.UUID) (*booking.Booking, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	row, ok := r.rows[id]
	if !ok {
		return nil, booking.ErrBookingNotFound{BookingID: id}
	}
	return &row, nil
}

func (r *memBookings) LockForUpdate(ctx context.Context, id uuid.UUID) (*booking.Booking, error) {
	return r.GetByID(ctx, id)
}

func (r *memBookings) UpdateStatus(_ context.Context, b *booking.Booking, expectedVersion int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	row, ok := r.rows[b.ID]
	if !ok {
		return booking.ErrBookingNotFound{BookingID: b.ID}
	}
	if row.Version != expectedVersion {
		return booking.ErrConcurrentModification{BookingID: b.ID}
	}
	r.rows[b.ID] = *b
	return nil
}

func (r *memBookings) WithTx(pgx.Tx) booking.Repository {
	return r
}

type memEvents struct {
	mu     sync.Mutex
	events []audit.GatewayEvent
}

func (r *memEvents) Create(_ context.Context, event *audit.GatewayEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, *event)
	return nil
}

func (r *memEvents) ListByTransactionID(_ context.Context, transactionID uuid.UUID, _, _ int) ([]*audit.GatewayEvent, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*audit.GatewayEvent
	for i := range r.events {
		if r.events[i].TransactionID == transactionID {
			e := r.events[i]
			out = append(out, &e)
		}
	}
	return out, nil
}

func (r *memEvents) CountByTransactionID(ctx context.Context, transactionID uuid.UUID) (int64, error) {
	events, _ := r.ListByTransactionID(ctx, transactionID, 0, 0)
	return int64(len(events)), nil
}

// MockGateway mocks payment.Gateway
type MockGateway struct {
	mock.Mock
}

func (m *MockGateway) Initiate(ctx context.Context, req payment.InitiateRequest) (*payment.InitiateResult, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*payment.InitiateResult), args.Error(1)
}

func (m *MockGateway) Verify(ctx context.Context, reference string) (*payment.VerifyResult, error) {
	args := m.Called(ctx, reference)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*payment.VerifyResult), args.Error(1)
}

func (m *MockGateway) CallbackURL() string {
	return testCallbackURL
}

func (m *MockGateway) SupportsCurrency(currency string) bool {
	return currency == "ETB" || currency == "USD"
}

// MockDispatcher mocks notification.Dispatcher
type MockDispatcher struct {
	mock.Mock
}

func (m *MockDispatcher) Dispatch(ctx context.Context, bookingID, transactionID uuid.UUID) error {
	args := m.Called(ctx, bookingID, transactionID)
	return args.Error(0)
}

var (
	_ payment.Repository = (*memTransactions)(nil)
	_ payment.Repository = cancellableTransactions{}
	_ booking.Repository = (*memBookings)(nil)
	_ audit.Repository   = (*memEvents)(nil)
	_ payment.Gateway    = (*MockGateway)(nil)
)
