package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"text/template"
	"time"

	"github.com/alx-travel-payments/internal/domain/booking"
	"github.com/alx-travel-payments/internal/domain/notification"
	"github.com/alx-travel-payments/internal/domain/payment"
	"github.com/alx-travel-payments/internal/domain/shared"
	"github.com/alx-travel-payments/internal/payment_worker/mailer"
)

const confirmationSubject = "Booking Confirmed!"

var confirmationTemplate = template.Must(template.New("confirmation").Parse(`Hi {{.GuestName}},

Your payment was received and your booking is confirmed.

Listing:   {{.ListingTitle}}
Check-in:  {{.CheckIn}}
Check-out: {{.CheckOut}}
Total:     {{.Total}} {{.Currency}}
Reference: {{.Reference}}

Thank you for booking with us.
`))

type confirmationData struct {
	GuestName    string
	ListingTitle string
	CheckIn      string
	CheckOut     string
	Total        string
	Currency     string
	Reference    string
}

// NotificationServiceImpl implements NotificationService
type NotificationServiceImpl struct {
	bookings     booking.Repository
	transactions payment.Repository
	deliveries   notification.DeliveryRepository
	mailer       mailer.Mailer
	logger       *slog.Logger
}

func NewNotificationService(
	logger *slog.Logger,
	bookings booking.Repository,
	transactions payment.Repository,
	deliveries notification.DeliveryRepository,
	m mailer.Mailer,
) *NotificationServiceImpl {
	return &NotificationServiceImpl{
		bookings:     bookings,
		transactions: transactions,
		deliveries:   deliveries,
		mailer:       m,
		logger:       logger,
	}
}

// SendConfirmation emails the guest once per completed transaction. A
// delivery record already present for the transaction makes the call a no-op.
func (s *NotificationServiceImpl) SendConfirmation(ctx context.Context, msg *notification.Message) error {
	logger := s.logger.With("transaction_id", msg.TransactionID.String(), "booking_id", msg.BookingID.String())
	if msg.CorrelationID != "" {
		logger = logger.With("correlation_id", msg.CorrelationID)
	}

	existing, err := s.deliveries.GetByTransactionID(ctx, msg.TransactionID)
	if err != nil && !errors.Is(err, notification.ErrDeliveryNotFound{}) {
		return fmt.Errorf("failed to check notification delivery: %w", err)
	}
	if existing != nil {
		logger.Info("Confirmation already sent, skipping", "sent_at", existing.SentAt)
		return nil
	}

	tx, err := s.transactions.GetByID(ctx, msg.TransactionID)
	if err != nil {
		if errors.Is(err, payment.ErrTransactionNotFound{}) {
			return fmt.Errorf("%w: %v", ErrNotDeliverable, err)
		}
		return fmt.Errorf("failed to load payment transaction: %w", err)
	}
	if tx.Status != payment.StatusCompleted {
		return fmt.Errorf("%w: transaction %s is %s", ErrNotDeliverable, tx.ID, tx.Status)
	}

	b, err := s.bookings.GetByID(ctx, tx.BookingID)
	if err != nil {
		if errors.Is(err, booking.ErrBookingNotFound{}) {
			return fmt.Errorf("%w: %v", ErrNotDeliverable, err)
		}
		return fmt.Errorf("failed to load booking: %w", err)
	}

	body, err := renderConfirmation(b, tx)
	if err != nil {
		return fmt.Errorf("failed to render confirmation email: %w", err)
	}

	if err := s.mailer.Send(ctx, mailer.Email{To: b.GuestEmail, Subject: confirmationSubject, Body: body}); err != nil {
		return fmt.Errorf("failed to send confirmation email: %w", err)
	}

	delivery := &notification.Delivery{
		TransactionID: tx.ID,
		BookingID:     b.ID,
		Recipient:     b.GuestEmail,
		Subject:       confirmationSubject,
		CorrelationID: msg.CorrelationID,
		SentAt:        time.Now().UTC(),
	}
	if err := s.deliveries.Create(ctx, delivery); err != nil {
		if errors.Is(err, notification.ErrDuplicateDelivery{}) {
			logger.Warn("Confirmation recorded concurrently by another worker")
			return nil
		}
		// The email is out; failing here would only cause a resend.
		logger.Error("Failed to record notification delivery", "error", err)
		return nil
	}

	logger.Info("Booking confirmation sent", "recipient", b.GuestEmail)
	return nil
}

func renderConfirmation(b *booking.Booking, tx *payment.Transaction) (string, error) {
	name := b.GuestFirstName()
	if name == "" {
		name = "there"
	}

	var buf bytes.Buffer
	err := confirmationTemplate.Execute(&buf, confirmationData{
		GuestName:    name,
		ListingTitle: b.ListingTitle,
		CheckIn:      b.CheckIn.Format("Mon, 02 Jan 2006"),
		CheckOut:     b.CheckOut.Format("Mon, 02 Jan 2006"),
		Total:        shared.FormatMinorUnits(tx.Amount),
		Currency:     tx.Currency,
		Reference:    tx.Reference(),
	})
	if err != nil {
		return "", err
	}
	return buf.String(), nil
}
