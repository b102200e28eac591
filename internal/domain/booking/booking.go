package booking

import (
	"errors"
	"strings"
	"time"

	"github.com/alx-travel-payments/internal/domain/shared"
	"github.com/google/uuid"
)

// Common errors
var (
	ErrEmptyGuestEmail   = errors.New("guest email cannot be empty")
	ErrEmptyListingTitle = errors.New("listing title cannot be empty")
	ErrInvalidStayDates  = errors.New("check-out must be after check-in")
)

// Status is the reservation state of a booking
type Status string

const (
	StatusPending   Status = "PENDING"
	StatusConfirmed Status = "CONFIRMED"
	StatusCanceled  Status = "CANCELED"
	StatusDeclined  Status = "DECLINED"
)

// PaymentStatus is the payment state derived from the booking's transactions
type PaymentStatus string

const (
	PaymentStatusUnpaid PaymentStatus = "UNPAID"
	PaymentStatusPaid   PaymentStatus = "PAID"
)

// Booking is a guest reservation that payments are made against
type Booking struct {
	ID            uuid.UUID     `json:"id"`
	GuestName     string        `json:"guest_name"`
	GuestEmail    string        `json:"guest_email"`
	ListingTitle  string        `json:"listing_title"`
	CheckIn       time.Time     `json:"check_in"`
	CheckOut      time.Time     `json:"check_out"`
	TotalPrice    int64         `json:"total_price"` // Stored in minor units
	Currency      string        `json:"currency"`
	Status        Status        `json:"status"`
	PaymentStatus PaymentStatus `json:"payment_status"`
	Version       int           `json:"version"` // For optimistic locking
	CreatedAt     time.Time     `json:"created_at"`
	UpdatedAt     time.Time     `json:"updated_at"`
}

// NewBooking creates a pending, unpaid booking
func NewBooking(guestName, guestEmail, listingTitle string, checkIn, checkOut time.Time, totalPrice int64, currency string) (*Booking, error) {
	if strings.TrimSpace(guestEmail) == "" {
		return nil, ErrEmptyGuestEmail
	}
	if strings.TrimSpace(listingTitle) == "" {
		return nil, ErrEmptyListingTitle
	}
	if !checkOut.After(checkIn) {
		return nil, ErrInvalidStayDates
	}
	if totalPrice <= 0 {
		return nil, shared.ErrInvalidAmount
	}
	normalized, err := shared.NormalizeCurrency(currency)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	return &Booking{
		ID:            uuid.New(),
		GuestName:     guestName,
		GuestEmail:    guestEmail,
		ListingTitle:  listingTitle,
		CheckIn:       checkIn,
		CheckOut:      checkOut,
		TotalPrice:    totalPrice,
		Currency:      normalized,
		Status:        StatusPending,
		PaymentStatus: PaymentStatusUnpaid,
		Version:       1,
		CreatedAt:     now,
		UpdatedAt:     now,
	}, nil
}

// CanBePaid reports whether a new payment may be started for the booking
func (b *Booking) CanBePaid() bool {
	return b.Status == StatusPending && b.PaymentStatus == PaymentStatusUnpaid
}

// MarkPaid records a successful payment and confirms the reservation
func (b *Booking) MarkPaid() error {
	if b.PaymentStatus == PaymentStatusPaid {
		return nil
	}
	if b.Status != StatusPending {
		return ErrBookingNotPayable{BookingID: b.ID, Status: b.Status, PaymentStatus: b.PaymentStatus}
	}
	b.PaymentStatus = PaymentStatusPaid
	b.Status = StatusConfirmed
	b.UpdatedAt = time.Now().UTC()
	b.Version++
	return nil
}

// GuestFirstName and GuestLastName split the guest name for payment providers
// that want them separately.
func (b *Booking) GuestFirstName() string {
	first, _, _ := strings.Cut(strings.TrimSpace(b.GuestName), " ")
	return first
}

func (b *Booking) GuestLastName() string {
	_, last, _ := strings.Cut(strings.TrimSpace(b.GuestName), " ")
	return strings.TrimSpace(last)
}
