package handler

import (
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/alx-travel-payments/internal/domain/audit"
	"github.com/alx-travel-payments/internal/domain/payment"
	"github.com/alx-travel-payments/internal/domain/shared"
	"github.com/alx-travel-payments/internal/payment_api/service"
	"github.com/alx-travel-payments/internal/workflow"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// PaymentHandler handles HTTP requests for payment operations
type PaymentHandler struct {
	paymentService service.PaymentService
	logger         *slog.Logger
}

// NewPaymentHandler creates a new payment handler
func NewPaymentHandler(logger *slog.Logger, paymentService service.PaymentService) *PaymentHandler {
	return &PaymentHandler{
		paymentService: paymentService,
		logger:         logger,
	}
}

// Initiate starts a payment for a booking and returns the checkout URL
func (h *PaymentHandler) Initiate(c *gin.Context) {
	var req InitiatePaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warn("Invalid request body", "error", err)
		RespondBadRequest(c, "Invalid request body: "+err.Error())
		return
	}

	bookingID, err := uuid.Parse(req.BookingID)
	if err != nil {
		RespondBadRequest(c, "Invalid booking ID")
		return
	}

	in := workflow.StartPaymentInput{
		BookingID: bookingID,
		Currency:  req.Currency,
		Email:     req.Email,
	}
	if req.Amount != "" {
		amount, err := shared.ParseMajorUnits(req.Amount)
		if err != nil || amount <= 0 {
			RespondBadRequest(c, "Invalid amount")
			return
		}
		in.Amount = amount
	}

	tx, err := h.paymentService.InitiatePayment(c.Request.Context(), in)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	RespondCreated(c, mapTransactionToResponse(tx))
}

// GetByID returns a payment transaction
func (h *PaymentHandler) GetByID(c *gin.Context) {
	id, ok := parseUUIDParam(c, "id", "Invalid payment ID")
	if !ok {
		return
	}

	tx, err := h.paymentService.GetPayment(c.Request.Context(), id)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	RespondOK(c, mapTransactionToResponse(tx))
}

// Cancel abandons a pending payment
func (h *PaymentHandler) Cancel(c *gin.Context) {
	id, ok := parseUUIDParam(c, "id", "Invalid payment ID")
	if !ok {
		return
	}

	tx, err := h.paymentService.CancelPayment(c.Request.Context(), id)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	RespondOK(c, mapTransactionToResponse(tx))
}

// Verify lets a client poll the outcome of a payment by gateway reference
func (h *PaymentHandler) Verify(c *gin.Context) {
	h.confirm(c, c.Param("reference"))
}

// Callback handles the payer being redirected back from the gateway
func (h *PaymentHandler) Callback(c *gin.Context) {
	var q CallbackQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		RespondBadRequest(c, "Invalid callback parameters")
		return
	}
	h.confirm(c, firstNonEmpty(q.TrxRef, q.TxRef))
}

// Webhook handles the gateway's server-to-server notification. The body is
// only trusted for the reference; the outcome always comes from Verify.
func (h *PaymentHandler) Webhook(c *gin.Context) {
	var req WebhookRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondBadRequest(c, "Invalid webhook body")
		return
	}
	h.confirm(c, firstNonEmpty(req.TxRef, req.TrxRef))
}

func (h *PaymentHandler) confirm(c *gin.Context, reference string) {
	reference = strings.TrimSpace(reference)
	if reference == "" {
		RespondBadRequest(c, "Transaction reference is required")
		return
	}

	tx, err := h.paymentService.ConfirmPayment(c.Request.Context(), reference)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	if tx.Status == payment.StatusPending {
		RespondAccepted(c, mapTransactionToResponse(tx))
		return
	}
	RespondOK(c, mapTransactionToResponse(tx))
}

// ListEvents returns the gateway audit trail of a payment
func (h *PaymentHandler) ListEvents(c *gin.Context) {
	id, ok := parseUUIDParam(c, "id", "Invalid payment ID")
	if !ok {
		return
	}

	var pagination PaginationParams
	if err := c.ShouldBindQuery(&pagination); err != nil {
		RespondBadRequest(c, "Invalid pagination parameters")
		return
	}

	events, total, err := h.paymentService.ListGatewayEvents(c.Request.Context(), id, pagination.Page, pagination.PerPage)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	responses := make([]GatewayEventResponse, 0, len(events))
	for _, e := range events {
		responses = append(responses, mapEventToResponse(e))
	}
	RespondWithPaginatedData(c, http.StatusOK, responses, pagination.Page, pagination.PerPage, int(total))
}

// ListByBooking returns the paginated payment history of a booking
func (h *PaymentHandler) ListByBooking(c *gin.Context) {
	bookingID, ok := parseUUIDParam(c, "id", "Invalid booking ID")
	if !ok {
		return
	}

	var pagination PaginationParams
	if err := c.ShouldBindQuery(&pagination); err != nil {
		RespondBadRequest(c, "Invalid pagination parameters")
		return
	}

	txs, total, err := h.paymentService.ListBookingPayments(c.Request.Context(), bookingID, pagination.Page, pagination.PerPage)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	responses := make([]PaymentResponse, 0, len(txs))
	for _, tx := range txs {
		responses = append(responses, mapTransactionToResponse(tx))
	}
	RespondWithPaginatedData(c, http.StatusOK, responses, pagination.Page, pagination.PerPage, int(total))
}

func parseUUIDParam(c *gin.Context, name, message string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		RespondBadRequest(c, message)
		return uuid.Nil, false
	}
	return id, true
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}

func mapTransactionToResponse(tx *payment.Transaction) PaymentResponse {
	response := PaymentResponse{
		ID:               tx.ID.String(),
		BookingID:        tx.BookingID.String(),
		Amount:           shared.FormatMinorUnits(tx.Amount),
		AmountMinor:      tx.Amount,
		Currency:         tx.Currency,
		Status:           string(tx.Status),
		GatewayReference: tx.Reference(),
		CreatedAt:        tx.CreatedAt.Format(time.RFC3339),
		UpdatedAt:        tx.UpdatedAt.Format(time.RFC3339),
	}
	if tx.CheckoutURL != nil {
		response.CheckoutURL = *tx.CheckoutURL
	}
	if tx.FailureReason != nil {
		response.FailureReason = *tx.FailureReason
	}
	return response
}

func mapEventToResponse(e *audit.GatewayEvent) GatewayEventResponse {
	return GatewayEventResponse{
		ID:               e.ID.String(),
		Operation:        string(e.Operation),
		GatewayReference: e.GatewayReference,
		Outcome:          e.Outcome,
		Error:            e.Error,
		CorrelationID:    e.CorrelationID,
		Timestamp:        e.Timestamp.Format(time.RFC3339Nano),
	}
}
