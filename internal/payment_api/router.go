package payment_api

import (
	"log/slog"

	"github.com/alx-travel-payments/internal/payment_api/handler"
	"github.com/alx-travel-payments/internal/payment_api/middleware"
	"github.com/gin-gonic/gin"
)

// setupRouter configures API routes and middleware for the application
func setupRouter(
	logger *slog.Logger,
	r *gin.Engine,
	paymentHandler *handler.PaymentHandler,
	bookingHandler *handler.BookingHandler,
	healthHandler *handler.HealthHandler,
) {
	// Correlation first so recovery and request logs can see the ID
	r.Use(middleware.CorrelationID())
	r.Use(middleware.Recovery(logger))
	r.Use(middleware.Logger(logger, "/health"))

	// API v1 endpoints
	v1 := r.Group("/api/v1")
	{
		payments := v1.Group("/payments")
		{
			payments.POST("", paymentHandler.Initiate)
			payments.GET("/callback", paymentHandler.Callback)
			payments.POST("/webhook", paymentHandler.Webhook)
			payments.GET("/verify/:reference", paymentHandler.Verify)
			payments.GET("/:id", paymentHandler.GetByID)
			payments.POST("/:id/cancel", paymentHandler.Cancel)
			payments.GET("/:id/events", paymentHandler.ListEvents)
		}

		bookings := v1.Group("/bookings")
		{
			bookings.POST("", bookingHandler.Create)
			bookings.GET("/:id", bookingHandler.GetByID)
			bookings.GET("/:id/payments", paymentHandler.ListByBooking)
		}
	}

	r.GET("/health", healthHandler.Check)
}
