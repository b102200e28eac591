package handler

import (
	"log/slog"
	"time"

	"github.com/alx-travel-payments/internal/domain/booking"
	"github.com/alx-travel-payments/internal/domain/shared"
	"github.com/alx-travel-payments/internal/payment_api/service"
	"github.com/gin-gonic/gin"
)

const dateLayout = "2006-01-02"

// BookingHandler handles HTTP requests for booking operations
type BookingHandler struct {
	bookingService service.BookingService
	logger         *slog.Logger
}

// NewBookingHandler creates a new booking handler
func NewBookingHandler(logger *slog.Logger, bookingService service.BookingService) *BookingHandler {
	return &BookingHandler{
		bookingService: bookingService,
		logger:         logger,
	}
}

// Create handles the creation of a new booking
func (h *BookingHandler) Create(c *gin.Context) {
	var req CreateBookingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warn("Invalid request body", "error", err)
		RespondBadRequest(c, "Invalid request body: "+err.Error())
		return
	}

	checkIn, err := time.Parse(dateLayout, req.CheckIn)
	if err != nil {
		RespondBadRequest(c, "check_in must use the YYYY-MM-DD format")
		return
	}
	checkOut, err := time.Parse(dateLayout, req.CheckOut)
	if err != nil {
		RespondBadRequest(c, "check_out must use the YYYY-MM-DD format")
		return
	}
	totalPrice, err := shared.ParseMajorUnits(req.TotalPrice)
	if err != nil {
		RespondBadRequest(c, "Invalid total_price")
		return
	}

	b, err := h.bookingService.CreateBooking(c.Request.Context(), service.CreateBookingInput{
		GuestName:    req.GuestName,
		GuestEmail:   req.GuestEmail,
		ListingTitle: req.ListingTitle,
		CheckIn:      checkIn,
		CheckOut:     checkOut,
		TotalPrice:   totalPrice,
		Currency:     req.Currency,
	})
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	RespondCreated(c, mapBookingToResponse(b))
}

// GetByID returns a booking with its payment status
func (h *BookingHandler) GetByID(c *gin.Context) {
	id, ok := parseUUIDParam(c, "id", "Invalid booking ID")
	if !ok {
		return
	}

	b, err := h.bookingService.GetBooking(c.Request.Context(), id)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	RespondOK(c, mapBookingToResponse(b))
}

func mapBookingToResponse(b *booking.Booking) BookingResponse {
	return BookingResponse{
		ID:            b.ID.String(),
		GuestName:     b.GuestName,
		GuestEmail:    b.GuestEmail,
		ListingTitle:  b.ListingTitle,
		CheckIn:       b.CheckIn.Format(dateLayout),
		CheckOut:      b.CheckOut.Format(dateLayout),
		TotalPrice:    shared.FormatMinorUnits(b.TotalPrice),
		Currency:      b.Currency,
		Status:        string(b.Status),
		PaymentStatus: string(b.PaymentStatus),
		CreatedAt:     b.CreatedAt.Format(time.RFC3339),
		UpdatedAt:     b.UpdatedAt.Format(time.RFC3339),
	}
}
