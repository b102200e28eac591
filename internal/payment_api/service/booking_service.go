package service

import (
	"context"

	"github.com/alx-travel-payments/internal/domain/booking"
	"github.com/google/uuid"
)

// BookingServiceImpl implements the BookingService interface
type BookingServiceImpl struct {
	bookingRepo booking.Repository
}

// NewBookingService creates a new booking service
func NewBookingService(bookingRepo booking.Repository) BookingService {
	return &BookingServiceImpl{
		bookingRepo: bookingRepo,
	}
}

// CreateBooking validates and stores a pending, unpaid booking
func (s *BookingServiceImpl) CreateBooking(ctx context.Context, in CreateBookingInput) (*booking.Booking, error) {
	b, err := booking.NewBooking(in.GuestName, in.GuestEmail, in.ListingTitle, in.CheckIn, in.CheckOut, in.TotalPrice, in.Currency)
	if err != nil {
		return nil, err
	}

	if err := s.bookingRepo.Create(ctx, b); err != nil {
		return nil, err
	}
	return b, nil
}

func (s *BookingServiceImpl) GetBooking(ctx context.Context, id uuid.UUID) (*booking.Booking, error) {
	return s.bookingRepo.GetByID(ctx, id)
}
