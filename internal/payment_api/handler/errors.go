package handler

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/alx-travel-payments/internal/domain/booking"
	"github.com/alx-travel-payments/internal/domain/payment"
	"github.com/alx-travel-payments/internal/domain/shared"
	"github.com/gin-gonic/gin"
)

// respondError maps domain and gateway errors onto HTTP responses. Anything
// unrecognised is logged and answered with 500.
func respondError(c *gin.Context, logger *slog.Logger, err error) {
	var (
		notPayable   booking.ErrBookingNotPayable
		invalidState payment.ErrInvalidTransactionState
		gatewayErr   *payment.GatewayError
	)

	switch {
	case errors.Is(err, booking.ErrBookingNotFound{}):
		RespondNotFound(c, "Booking not found")

	case errors.Is(err, payment.ErrTransactionNotFound{}):
		RespondNotFound(c, "Payment not found")

	case errors.Is(err, payment.ErrDuplicateActiveTransaction{}):
		RespondConflict(c, CodeDuplicateActiveTransaction, "A payment for this booking is already in progress")

	case errors.As(err, &notPayable):
		RespondConflict(c, CodeBookingNotPayable, notPayable.Error())

	case errors.As(err, &invalidState):
		RespondConflict(c, CodeInvalidTransactionState, invalidState.Error())

	case errors.Is(err, payment.ErrConcurrentModification{}), errors.Is(err, booking.ErrConcurrentModification{}):
		RespondConflict(c, CodeConflict, "The resource was modified concurrently, retry the request")

	case errors.Is(err, shared.ErrInvalidAmount),
		errors.Is(err, shared.ErrInvalidCurrencyFormat),
		errors.Is(err, payment.ErrUnsupportedCurrency),
		errors.Is(err, booking.ErrEmptyGuestEmail),
		errors.Is(err, booking.ErrEmptyListingTitle),
		errors.Is(err, booking.ErrInvalidStayDates):
		RespondBadRequest(c, err.Error())

	case errors.Is(err, payment.ErrGatewayRejected):
		message := "The payment gateway rejected the request"
		if errors.As(err, &gatewayErr) && gatewayErr.Message != "" {
			message = message + ": " + gatewayErr.Message
		}
		RespondWithError(c, http.StatusUnprocessableEntity, CodeGatewayRejected, message)

	case errors.Is(err, payment.ErrGatewayUnreachable), errors.Is(err, payment.ErrGatewayServerError):
		logger.Warn("Payment gateway unavailable", "error", err)
		RespondWithError(c, http.StatusServiceUnavailable, CodeGatewayUnavailable, "The payment gateway is temporarily unavailable, retry later")

	default:
		logger.Error("Unhandled request error", "path", c.FullPath(), "error", err)
		RespondInternalError(c)
	}
}
