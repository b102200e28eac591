// Package workflow drives a payment from initiation to a terminal state.
//
// The controller owns every status change of a payment transaction. It
// creates the pending record, talks to the gateway, and on success commits
// the transaction and the booking together before handing the booking
// confirmation to the dispatcher. Every path is safe to repeat: a second
// confirmation of a settled payment returns the stored record and never
// dispatches again.
package workflow

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/alx-travel-payments/internal/domain/audit"
	"github.com/alx-travel-payments/internal/domain/booking"
	"github.com/alx-travel-payments/internal/domain/notification"
	"github.com/alx-travel-payments/internal/domain/payment"
	"github.com/alx-travel-payments/internal/platform/correlation"
	"github.com/alx-travel-payments/internal/platform/persistence"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

const (
	reasonCancelled      = "cancelled by client"
	reasonGatewayFailure = "gateway reported payment failure"

	// Bounds the bookkeeping done after the caller's context is gone.
	detachedTimeout = 5 * time.Second
)

// StartPaymentInput describes a new payment attempt. Zero Amount and empty
// Currency fall back to the booking's total price and currency.
type StartPaymentInput struct {
	BookingID uuid.UUID
	Amount    int64
	Currency  string
	Email     string // overrides the booking's guest email for the checkout
}

// Controller implements the payment workflow
type Controller struct {
	db           persistence.TxExecutor
	transactions payment.Repository
	bookings     booking.Repository
	gateway      payment.Gateway
	events       audit.Repository
	dispatcher   notification.Dispatcher
	logger       *slog.Logger
}

// NewController wires the workflow. events may be nil to disable gateway auditing.
func NewController(
	logger *slog.Logger,
	db persistence.TxExecutor,
	transactions payment.Repository,
	bookings booking.Repository,
	gateway payment.Gateway,
	events audit.Repository,
	dispatcher notification.Dispatcher,
) *Controller {
	return &Controller{
		db:           db,
		transactions: transactions,
		bookings:     bookings,
		gateway:      gateway,
		events:       events,
		dispatcher:   dispatcher,
		logger:       logger,
	}
}

// StartPayment records a pending transaction and opens a checkout with the
// gateway. Only one pending transaction may exist per booking; a second
// concurrent attempt fails with ErrDuplicateActiveTransaction. Any gateway
// error marks the new transaction FAILED and is returned to the caller.
func (c *Controller) StartPayment(ctx context.Context, in StartPaymentInput) (*payment.Transaction, error) {
	logger := c.loggerFor(ctx).With("booking_id", in.BookingID.String())

	b, err := c.bookings.GetByID(ctx, in.BookingID)
	if err != nil {
		return nil, err
	}
	if !b.CanBePaid() {
		return nil, booking.ErrBookingNotPayable{BookingID: b.ID, Status: b.Status, PaymentStatus: b.PaymentStatus}
	}

	amount := in.Amount
	if amount == 0 {
		amount = b.TotalPrice
	}
	currency := in.Currency
	if currency == "" {
		currency = b.Currency
	}

	tx, err := payment.NewTransaction(b.ID, amount, currency)
	if err != nil {
		return nil, err
	}
	if !c.gateway.SupportsCurrency(tx.Currency) {
		return nil, fmt.Errorf("%w: %s", payment.ErrUnsupportedCurrency, tx.Currency)
	}

	if err := c.transactions.Create(ctx, tx); err != nil {
		if errors.Is(err, payment.ErrDuplicateActiveTransaction{}) {
			logger.Info("Payment already in progress for booking")
		}
		return nil, err
	}
	logger = logger.With("transaction_id", tx.ID.String())
	logger.Info("Payment transaction created", "amount", tx.Amount, "currency", tx.Currency)

	email := in.Email
	if email == "" {
		email = b.GuestEmail
	}

	result, initErr := c.gateway.Initiate(ctx, payment.InitiateRequest{
		BookingID:   b.ID,
		Amount:      tx.Amount,
		Currency:    tx.Currency,
		CallbackURL: c.gateway.CallbackURL(),
		Customer: payment.Customer{
			Email:     email,
			FirstName: b.GuestFirstName(),
			LastName:  b.GuestLastName(),
		},
		Description: fmt.Sprintf("Payment for booking %s on %s", b.ID, b.ListingTitle),
	})

	event := audit.NewGatewayEvent(tx.ID, b.ID, "", audit.OperationInitiate)
	if initErr != nil {
		// The caller may have gone away mid-call. The record must still leave
		// PENDING or the booking stays blocked for new attempts.
		failCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), detachedTimeout)
		defer cancel()

		event.Error = initErr.Error()
		c.recordEvent(failCtx, event)

		logger.Warn("Gateway initiation failed", "error", initErr)
		if err := c.fail(failCtx, tx, initErr.Error()); err != nil {
			logger.Error("Failed to mark transaction as failed after initiation error", "error", err)
		}
		return nil, initErr
	}

	event.GatewayReference = result.GatewayReference
	event.Outcome = "initiated"
	event.RawPayload = result.RawPayload
	c.recordEvent(ctx, event)

	expected := tx.Version
	if err := tx.AttachGatewayReference(result.GatewayReference, result.CheckoutURL); err != nil {
		return nil, err
	}
	if err := c.transactions.Update(ctx, tx, expected); err != nil {
		if errors.Is(err, payment.ErrConcurrentModification{}) {
			// The payment was cancelled while the checkout was being opened.
			current, getErr := c.transactions.GetByID(ctx, tx.ID)
			if getErr == nil && current.Status.IsTerminal() {
				return nil, payment.ErrInvalidTransactionState{ID: tx.ID, From: current.Status, To: payment.StatusPending}
			}
		}
		return nil, fmt.Errorf("failed to store gateway reference for transaction %s: %w", tx.ID, err)
	}

	logger.Info("Payment initiated", "gateway_reference", result.GatewayReference)
	return tx, nil
}

// ConfirmPayment verifies the payment behind reference with the gateway and
// applies the outcome. A transaction already in a terminal state is returned
// as stored without calling the gateway. A pending outcome, or a gateway
// error, leaves the transaction unchanged. A PENDING status on the returned
// transaction therefore means the payment is not settled yet.
func (c *Controller) ConfirmPayment(ctx context.Context, reference string) (*payment.Transaction, error) {
	logger := c.loggerFor(ctx).With("gateway_reference", reference)

	tx, err := c.transactions.GetByReference(ctx, reference)
	if err != nil {
		return nil, err
	}
	if tx.Status.IsTerminal() {
		logger.Debug("Transaction already settled, nothing to confirm", "status", tx.Status)
		return tx, nil
	}

	result, verifyErr := c.gateway.Verify(ctx, reference)

	event := audit.NewGatewayEvent(tx.ID, tx.BookingID, reference, audit.OperationVerify)
	if verifyErr != nil {
		event.Error = verifyErr.Error()
		c.recordEvent(ctx, event)
		logger.Warn("Gateway verification failed, transaction left pending", "error", verifyErr)
		return nil, verifyErr
	}
	event.Outcome = string(result.Outcome)
	event.RawPayload = result.RawPayload
	c.recordEvent(ctx, event)

	switch result.Outcome {
	case payment.OutcomeSuccess:
		settled, won, err := c.settle(ctx, tx, payment.StatusCompleted, "")
		if err != nil {
			return nil, err
		}
		if won {
			logger.Info("Payment completed", "transaction_id", tx.ID.String(), "booking_id", tx.BookingID.String())
			c.dispatch(ctx, settled)
		}
		return settled, nil

	case payment.OutcomeFailure:
		reason := result.Message
		if reason == "" {
			reason = reasonGatewayFailure
		}
		settled, _, err := c.settle(ctx, tx, payment.StatusFailed, reason)
		if err != nil {
			return nil, err
		}
		logger.Info("Payment failed at gateway", "transaction_id", tx.ID.String(), "reason", reason)
		return settled, nil

	default:
		logger.Debug("Payment still pending at gateway", "transaction_id", tx.ID.String())
		return tx, nil
	}
}

// CancelPayment abandons a pending transaction so the booking can be paid again.
func (c *Controller) CancelPayment(ctx context.Context, id uuid.UUID) (*payment.Transaction, error) {
	tx, err := c.transactions.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if tx.Status.IsTerminal() {
		return nil, payment.ErrInvalidTransactionState{ID: tx.ID, From: tx.Status, To: payment.StatusCancelled}
	}

	settled, won, err := c.settle(ctx, tx, payment.StatusCancelled, reasonCancelled)
	if err != nil {
		return nil, err
	}
	if !won {
		return nil, payment.ErrInvalidTransactionState{ID: tx.ID, From: settled.Status, To: payment.StatusCancelled}
	}

	c.loggerFor(ctx).Info("Payment cancelled", "transaction_id", tx.ID.String(), "booking_id", tx.BookingID.String())
	return settled, nil
}

// ExpirePayment fails a pending transaction that was abandoned. Terminal
// transactions are returned unchanged.
func (c *Controller) ExpirePayment(ctx context.Context, id uuid.UUID, reason string) (*payment.Transaction, error) {
	tx, err := c.transactions.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if tx.Status.IsTerminal() {
		return tx, nil
	}

	settled, won, err := c.settle(ctx, tx, payment.StatusFailed, reason)
	if err != nil {
		return nil, err
	}
	if won {
		c.loggerFor(ctx).Info("Payment expired", "transaction_id", tx.ID.String(), "reason", reason)
	}
	return settled, nil
}

// settle moves tx into a terminal status under the optimistic version check.
// A COMPLETED transition also marks the booking paid in the same database
// transaction. won is false when another writer settled tx first; the
// returned transaction is then the stored one.
func (c *Controller) settle(ctx context.Context, tx *payment.Transaction, to payment.Status, reason string) (*payment.Transaction, bool, error) {
	next := *tx
	expected := next.Version
	if err := next.Transition(to, reason); err != nil {
		return nil, false, err
	}

	err := c.db.ExecuteTx(ctx, func(dbTx pgx.Tx) error {
		if err := c.transactions.WithTx(dbTx).Update(ctx, &next, expected); err != nil {
			return err
		}
		if to == payment.StatusCompleted {
			return c.markBookingPaid(ctx, dbTx, next.BookingID)
		}
		return nil
	})
	if err == nil {
		return &next, true, nil
	}
	if !errors.Is(err, payment.ErrConcurrentModification{}) {
		return nil, false, fmt.Errorf("failed to settle transaction %s as %s: %w", tx.ID, to, err)
	}

	current, getErr := c.transactions.GetByID(ctx, tx.ID)
	if getErr != nil {
		return nil, false, fmt.Errorf("failed to reload transaction %s after concurrent update: %w", tx.ID, getErr)
	}
	return current, false, nil
}

func (c *Controller) markBookingPaid(ctx context.Context, dbTx pgx.Tx, bookingID uuid.UUID) error {
	bookings := c.bookings.WithTx(dbTx)

	b, err := bookings.LockForUpdate(ctx, bookingID)
	if err != nil {
		return err
	}
	expected := b.Version
	if err := b.MarkPaid(); err != nil {
		// The gateway already captured the money; record the payment and leave
		// the booking for manual follow-up.
		c.logger.Warn("Completed payment for a booking that no longer accepts payment",
			"booking_id", bookingID.String(),
			"booking_status", b.Status,
		)
		return nil
	}
	if b.Version == expected {
		return nil
	}
	return bookings.UpdateStatus(ctx, b, expected)
}

func (c *Controller) fail(ctx context.Context, tx *payment.Transaction, reason string) error {
	_, _, err := c.settle(ctx, tx, payment.StatusFailed, reason)
	return err
}

// dispatch hands the confirmation to the dispatcher. The payment is already
// committed, so a dispatch failure is logged and never surfaces to the caller.
func (c *Controller) dispatch(ctx context.Context, tx *payment.Transaction) {
	if c.dispatcher == nil {
		return
	}
	if err := c.dispatcher.Dispatch(ctx, tx.BookingID, tx.ID); err != nil {
		c.loggerFor(ctx).Error("Failed to dispatch booking confirmation",
			"transaction_id", tx.ID.String(),
			"booking_id", tx.BookingID.String(),
			"error", err,
		)
	}
}

func (c *Controller) recordEvent(ctx context.Context, event *audit.GatewayEvent) {
	if c.events == nil {
		return
	}
	event.CorrelationID = correlation.FromContext(ctx)
	if err := c.events.Create(ctx, event); err != nil {
		c.logger.Warn("Failed to record gateway audit event",
			"transaction_id", event.TransactionID.String(),
			"operation", event.Operation,
			"error", err,
		)
	}
}

func (c *Controller) loggerFor(ctx context.Context) *slog.Logger {
	if id := correlation.FromContext(ctx); id != "" {
		return c.logger.With("correlation_id", id)
	}
	return c.logger
}
