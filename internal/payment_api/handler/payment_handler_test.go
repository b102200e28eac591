package handler

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alx-travel-payments/internal/domain/audit"
	"github.com/alx-travel-payments/internal/domain/booking"
	"github.com/alx-travel-payments/internal/domain/payment"
	"github.com/alx-travel-payments/internal/workflow"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func samplePayment(status payment.Status) *payment.Transaction {
	ref := "alx-abc-12345678"
	checkout := "https://checkout.chapa.co/checkout/payment/abc"
	now := time.Now().UTC()
	return &payment.Transaction{
		ID:               uuid.New(),
		BookingID:        uuid.New(),
		Amount:           25000,
		Currency:         "ETB",
		GatewayReference: &ref,
		CheckoutURL:      &checkout,
		Status:           status,
		Version:          2,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
}

func decodeData(t *testing.T, body []byte, out interface{}) Response {
	t.Helper()
	var resp Response
	require.NoError(t, json.Unmarshal(body, &resp))
	if out != nil {
		require.NotNil(t, resp.Data)
		raw, err := json.Marshal(resp.Data)
		require.NoError(t, err)
		require.NoError(t, json.Unmarshal(raw, out))
	}
	return resp
}

func postJSON(path string, body interface{}) *http.Request {
	var buf bytes.Buffer
	switch v := body.(type) {
	case string:
		buf.WriteString(v)
	default:
		_ = json.NewEncoder(&buf).Encode(v)
	}
	req := httptest.NewRequest(http.MethodPost, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	return req
}

func TestPaymentHandler_Initiate(t *testing.T) {
	logger := discardLogger()

	t.Run("Success", func(t *testing.T) {
		mockService := new(MockPaymentService)
		h := NewPaymentHandler(logger, mockService)
		tx := samplePayment(payment.StatusPending)

		mockService.On("InitiatePayment", mock.Anything, workflow.StartPaymentInput{
			BookingID: tx.BookingID,
			Amount:    25050,
			Currency:  "ETB",
			Email:     "guest@example.com",
		}).Return(tx, nil)

		router := setupTestRouter()
		router.POST("/payments", h.Initiate)

		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, postJSON("/payments", InitiatePaymentRequest{
			BookingID: tx.BookingID.String(),
			Amount:    "250.50",
			Currency:  "ETB",
			Email:     "guest@example.com",
		}))

		assert.Equal(t, http.StatusCreated, rr.Code)
		var body PaymentResponse
		decodeData(t, rr.Body.Bytes(), &body)
		assert.Equal(t, tx.ID.String(), body.ID)
		assert.Equal(t, "PENDING", body.Status)
		assert.Equal(t, "250.00", body.Amount)
		assert.Equal(t, int64(25000), body.AmountMinor)
		assert.Equal(t, *tx.CheckoutURL, body.CheckoutURL)
		assert.Equal(t, *tx.GatewayReference, body.GatewayReference)
		mockService.AssertExpectations(t)
	})

	t.Run("AmountOmittedUsesBookingTotal", func(t *testing.T) {
		mockService := new(MockPaymentService)
		h := NewPaymentHandler(logger, mockService)
		tx := samplePayment(payment.StatusPending)

		mockService.On("InitiatePayment", mock.Anything, workflow.StartPaymentInput{BookingID: tx.BookingID}).Return(tx, nil)

		router := setupTestRouter()
		router.POST("/payments", h.Initiate)

		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, postJSON("/payments", map[string]string{"booking_id": tx.BookingID.String()}))

		assert.Equal(t, http.StatusCreated, rr.Code)
		mockService.AssertExpectations(t)
	})

	t.Run("InvalidRequestBody", func(t *testing.T) {
		mockService := new(MockPaymentService)
		h := NewPaymentHandler(logger, mockService)
		router := setupTestRouter()
		router.POST("/payments", h.Initiate)

		for _, body := range []interface{}{
			`{"invalid`,
			map[string]string{"booking_id": "not-a-uuid"},
			map[string]string{"booking_id": uuid.NewString(), "email": "nope"},
			map[string]string{"booking_id": uuid.NewString(), "currency": "EURO"},
			map[string]string{"booking_id": uuid.NewString(), "amount": "abc"},
			map[string]string{"booking_id": uuid.NewString(), "amount": "-5"},
		} {
			rr := httptest.NewRecorder()
			router.ServeHTTP(rr, postJSON("/payments", body))
			assert.Equal(t, http.StatusBadRequest, rr.Code, "body %v", body)
		}
		mockService.AssertNotCalled(t, "InitiatePayment", mock.Anything, mock.Anything)
	})

	t.Run("MalformedBookingIDIsBadRequest", func(t *testing.T) {
		mockService := new(MockPaymentService)
		h := NewPaymentHandler(logger, mockService)
		router := setupTestRouter()
		router.POST("/payments", h.Initiate)

		id := uuid.NewString()
		for _, bookingID := range []string{"", "{" + id + "}", "urn:uuid:" + id, id + "0", "00000000-0000-0000-0000-00000000000g"} {
			rr := httptest.NewRecorder()
			assert.NotPanics(t, func() {
				router.ServeHTTP(rr, postJSON("/payments", map[string]string{"booking_id": bookingID}))
			})
			assert.Equal(t, http.StatusBadRequest, rr.Code, "booking_id %q", bookingID)
		}
		mockService.AssertNotCalled(t, "InitiatePayment", mock.Anything, mock.Anything)
	})

	errorCases := []struct {
		name   string
		err    error
		status int
		code   string
	}{
		{"BookingNotFound", booking.ErrBookingNotFound{BookingID: uuid.New()}, http.StatusNotFound, CodeNotFound},
		{"DuplicateActive", payment.ErrDuplicateActiveTransaction{BookingID: uuid.New()}, http.StatusConflict, CodeDuplicateActiveTransaction},
		{"NotPayable", booking.ErrBookingNotPayable{BookingID: uuid.New(), Status: booking.StatusConfirmed}, http.StatusConflict, CodeBookingNotPayable},
		{"UnsupportedCurrency", payment.ErrUnsupportedCurrency, http.StatusBadRequest, CodeInvalidRequest},
		{"GatewayRejected", &payment.GatewayError{Kind: payment.ErrGatewayRejected, Op: "initiate", StatusCode: 400, Message: "invalid email"}, http.StatusUnprocessableEntity, CodeGatewayRejected},
		{"GatewayUnreachable", &payment.GatewayError{Kind: payment.ErrGatewayUnreachable, Op: "initiate"}, http.StatusServiceUnavailable, CodeGatewayUnavailable},
		{"GatewayServerError", &payment.GatewayError{Kind: payment.ErrGatewayServerError, Op: "initiate", StatusCode: 502}, http.StatusServiceUnavailable, CodeGatewayUnavailable},
		{"Unexpected", errors.New("db down"), http.StatusInternalServerError, CodeInternal},
	}
	for _, tc := range errorCases {
		t.Run(tc.name, func(t *testing.T) {
			mockService := new(MockPaymentService)
			h := NewPaymentHandler(logger, mockService)
			bookingID := uuid.New()
			mockService.On("InitiatePayment", mock.Anything, mock.Anything).Return(nil, tc.err)

			router := setupTestRouter()
			router.POST("/payments", h.Initiate)

			rr := httptest.NewRecorder()
			router.ServeHTTP(rr, postJSON("/payments", map[string]string{"booking_id": bookingID.String()}))

			assert.Equal(t, tc.status, rr.Code)
			resp := decodeData(t, rr.Body.Bytes(), nil)
			require.NotNil(t, resp.Error)
			assert.Equal(t, tc.code, resp.Error.Code)
			assert.Equal(t, tc.status == http.StatusServiceUnavailable, resp.Error.Retryable)
		})
	}
}

func TestPaymentHandler_GetByID(t *testing.T) {
	logger := discardLogger()

	t.Run("Success", func(t *testing.T) {
		mockService := new(MockPaymentService)
		h := NewPaymentHandler(logger, mockService)
		tx := samplePayment(payment.StatusFailed)
		reason := "insufficient funds"
		tx.FailureReason = &reason
		mockService.On("GetPayment", mock.Anything, tx.ID).Return(tx, nil)

		router := setupTestRouter()
		router.GET("/payments/:id", h.GetByID)

		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/payments/"+tx.ID.String(), nil))

		assert.Equal(t, http.StatusOK, rr.Code)
		var body PaymentResponse
		decodeData(t, rr.Body.Bytes(), &body)
		assert.Equal(t, "FAILED", body.Status)
		assert.Equal(t, reason, body.FailureReason)
		assert.Equal(t, tx.CreatedAt.Format(time.RFC3339), body.CreatedAt)
	})

	t.Run("InvalidUUID", func(t *testing.T) {
		mockService := new(MockPaymentService)
		h := NewPaymentHandler(logger, mockService)
		router := setupTestRouter()
		router.GET("/payments/:id", h.GetByID)

		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/payments/not-a-uuid", nil))
		assert.Equal(t, http.StatusBadRequest, rr.Code)
	})

	t.Run("NotFound", func(t *testing.T) {
		mockService := new(MockPaymentService)
		h := NewPaymentHandler(logger, mockService)
		id := uuid.New()
		mockService.On("GetPayment", mock.Anything, id).Return(nil, payment.ErrTransactionNotFound{ID: id})

		router := setupTestRouter()
		router.GET("/payments/:id", h.GetByID)

		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/payments/"+id.String(), nil))
		assert.Equal(t, http.StatusNotFound, rr.Code)
	})
}

func TestPaymentHandler_Cancel(t *testing.T) {
	logger := discardLogger()

	t.Run("Success", func(t *testing.T) {
		mockService := new(MockPaymentService)
		h := NewPaymentHandler(logger, mockService)
		tx := samplePayment(payment.StatusCancelled)
		mockService.On("CancelPayment", mock.Anything, tx.ID).Return(tx, nil)

		router := setupTestRouter()
		router.POST("/payments/:id/cancel", h.Cancel)

		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/payments/"+tx.ID.String()+"/cancel", nil))
		assert.Equal(t, http.StatusOK, rr.Code)
		var body PaymentResponse
		decodeData(t, rr.Body.Bytes(), &body)
		assert.Equal(t, "CANCELLED", body.Status)
	})

	t.Run("AlreadyTerminal", func(t *testing.T) {
		mockService := new(MockPaymentService)
		h := NewPaymentHandler(logger, mockService)
		id := uuid.New()
		mockService.On("CancelPayment", mock.Anything, id).Return(nil, payment.ErrInvalidTransactionState{
			ID: id, From: payment.StatusCompleted, To: payment.StatusCancelled,
		})

		router := setupTestRouter()
		router.POST("/payments/:id/cancel", h.Cancel)

		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/payments/"+id.String()+"/cancel", nil))
		assert.Equal(t, http.StatusConflict, rr.Code)
		resp := decodeData(t, rr.Body.Bytes(), nil)
		require.NotNil(t, resp.Error)
		assert.Equal(t, CodeInvalidTransactionState, resp.Error.Code)
	})
}

func TestPaymentHandler_Confirm(t *testing.T) {
	logger := discardLogger()

	t.Run("VerifyCompleted", func(t *testing.T) {
		mockService := new(MockPaymentService)
		h := NewPaymentHandler(logger, mockService)
		tx := samplePayment(payment.StatusCompleted)
		mockService.On("ConfirmPayment", mock.Anything, "alx-abc-12345678").Return(tx, nil)

		router := setupTestRouter()
		router.GET("/payments/verify/:reference", h.Verify)

		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/payments/verify/alx-abc-12345678", nil))
		assert.Equal(t, http.StatusOK, rr.Code)
		var body PaymentResponse
		decodeData(t, rr.Body.Bytes(), &body)
		assert.Equal(t, "COMPLETED", body.Status)
	})

	t.Run("VerifyPendingIsAccepted", func(t *testing.T) {
		mockService := new(MockPaymentService)
		h := NewPaymentHandler(logger, mockService)
		mockService.On("ConfirmPayment", mock.Anything, "ref-1").Return(samplePayment(payment.StatusPending), nil)

		router := setupTestRouter()
		router.GET("/payments/verify/:reference", h.Verify)

		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/payments/verify/ref-1", nil))
		assert.Equal(t, http.StatusAccepted, rr.Code)
	})

	t.Run("VerifyGatewayUnavailable", func(t *testing.T) {
		mockService := new(MockPaymentService)
		h := NewPaymentHandler(logger, mockService)
		mockService.On("ConfirmPayment", mock.Anything, "ref-1").Return(nil,
			&payment.GatewayError{Kind: payment.ErrGatewayUnreachable, Op: "verify", Err: errors.New("timeout")})

		router := setupTestRouter()
		router.GET("/payments/verify/:reference", h.Verify)

		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/payments/verify/ref-1", nil))
		assert.Equal(t, http.StatusServiceUnavailable, rr.Code)
	})

	t.Run("CallbackAcceptsEitherQueryName", func(t *testing.T) {
		for _, query := range []string{"trx_ref=ref-2&status=success", "tx_ref=ref-2"} {
			mockService := new(MockPaymentService)
			h := NewPaymentHandler(logger, mockService)
			mockService.On("ConfirmPayment", mock.Anything, "ref-2").Return(samplePayment(payment.StatusCompleted), nil)

			router := setupTestRouter()
			router.GET("/payments/callback", h.Callback)

			rr := httptest.NewRecorder()
			router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/payments/callback?"+query, nil))
			assert.Equal(t, http.StatusOK, rr.Code, query)
			mockService.AssertExpectations(t)
		}
	})

	t.Run("CallbackWithoutReference", func(t *testing.T) {
		mockService := new(MockPaymentService)
		h := NewPaymentHandler(logger, mockService)
		router := setupTestRouter()
		router.GET("/payments/callback", h.Callback)

		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/payments/callback?status=success", nil))
		assert.Equal(t, http.StatusBadRequest, rr.Code)
		mockService.AssertNotCalled(t, "ConfirmPayment", mock.Anything, mock.Anything)
	})

	t.Run("WebhookUsesReferenceNotStatus", func(t *testing.T) {
		mockService := new(MockPaymentService)
		h := NewPaymentHandler(logger, mockService)
		tx := samplePayment(payment.StatusFailed)
		mockService.On("ConfirmPayment", mock.Anything, "ref-3").Return(tx, nil)

		router := setupTestRouter()
		router.POST("/payments/webhook", h.Webhook)

		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, postJSON("/payments/webhook", WebhookRequest{TrxRef: "ref-3", Status: "success"}))
		assert.Equal(t, http.StatusOK, rr.Code)
		var body PaymentResponse
		decodeData(t, rr.Body.Bytes(), &body)
		assert.Equal(t, "FAILED", body.Status)
	})

	t.Run("WebhookUnknownReference", func(t *testing.T) {
		mockService := new(MockPaymentService)
		h := NewPaymentHandler(logger, mockService)
		mockService.On("ConfirmPayment", mock.Anything, "ghost").Return(nil, payment.ErrTransactionNotFound{Reference: "ghost"})

		router := setupTestRouter()
		router.POST("/payments/webhook", h.Webhook)

		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, postJSON("/payments/webhook", WebhookRequest{TxRef: "ghost"}))
		assert.Equal(t, http.StatusNotFound, rr.Code)
	})
}

func TestPaymentHandler_ListByBooking(t *testing.T) {
	logger := discardLogger()

	t.Run("Success", func(t *testing.T) {
		mockService := new(MockPaymentService)
		h := NewPaymentHandler(logger, mockService)
		bookingID := uuid.New()
		txs := []*payment.Transaction{samplePayment(payment.StatusFailed), samplePayment(payment.StatusCompleted)}
		mockService.On("ListBookingPayments", mock.Anything, bookingID, 2, 2).Return(txs, int64(5), nil)

		router := setupTestRouter()
		router.GET("/bookings/:id/payments", h.ListByBooking)

		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, fmt.Sprintf("/bookings/%s/payments?page=2&per_page=2", bookingID), nil))

		assert.Equal(t, http.StatusOK, rr.Code)
		var body []PaymentResponse
		resp := decodeData(t, rr.Body.Bytes(), &body)
		require.NotNil(t, resp.Meta)
		assert.Equal(t, 2, resp.Meta.Page)
		assert.Equal(t, 3, resp.Meta.TotalPages)
		assert.Equal(t, 5, resp.Meta.TotalItems)
		assert.Len(t, body, 2)
	})

	t.Run("DefaultsPagination", func(t *testing.T) {
		mockService := new(MockPaymentService)
		h := NewPaymentHandler(logger, mockService)
		bookingID := uuid.New()
		mockService.On("ListBookingPayments", mock.Anything, bookingID, 1, 10).Return([]*payment.Transaction{}, int64(0), nil)

		router := setupTestRouter()
		router.GET("/bookings/:id/payments", h.ListByBooking)

		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/bookings/"+bookingID.String()+"/payments", nil))
		assert.Equal(t, http.StatusOK, rr.Code)
		mockService.AssertExpectations(t)
	})

	t.Run("InvalidPaginationParams", func(t *testing.T) {
		mockService := new(MockPaymentService)
		h := NewPaymentHandler(logger, mockService)
		router := setupTestRouter()
		router.GET("/bookings/:id/payments", h.ListByBooking)

		for _, q := range []string{"page=invalid", "page=0", "per_page=500"} {
			rr := httptest.NewRecorder()
			router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/bookings/"+uuid.NewString()+"/payments?"+q, nil))
			assert.Equal(t, http.StatusBadRequest, rr.Code, q)
		}
	})

	t.Run("BookingNotFound", func(t *testing.T) {
		mockService := new(MockPaymentService)
		h := NewPaymentHandler(logger, mockService)
		bookingID := uuid.New()
		mockService.On("ListBookingPayments", mock.Anything, bookingID, 1, 10).Return(nil, int64(0), booking.ErrBookingNotFound{BookingID: bookingID})

		router := setupTestRouter()
		router.GET("/bookings/:id/payments", h.ListByBooking)

		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/bookings/"+bookingID.String()+"/payments", nil))
		assert.Equal(t, http.StatusNotFound, rr.Code)
	})
}

func TestPaymentHandler_ListEvents(t *testing.T) {
	mockService := new(MockPaymentService)
	h := NewPaymentHandler(discardLogger(), mockService)
	txID := uuid.New()
	event := audit.NewGatewayEvent(txID, uuid.New(), "ref-1", audit.OperationVerify)
	event.Outcome = "success"
	event.CorrelationID = "corr-1"
	mockService.On("ListGatewayEvents", mock.Anything, txID, 1, 10).Return([]*audit.GatewayEvent{event}, int64(1), nil)

	router := setupTestRouter()
	router.GET("/payments/:id/events", h.ListEvents)

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/payments/"+txID.String()+"/events", nil))

	assert.Equal(t, http.StatusOK, rr.Code)
	var body []GatewayEventResponse
	decodeData(t, rr.Body.Bytes(), &body)
	require.Len(t, body, 1)
	assert.Equal(t, "verify", body[0].Operation)
	assert.Equal(t, "success", body[0].Outcome)
	assert.Equal(t, "corr-1", body[0].CorrelationID)
}
