package handler

// InitiatePaymentRequest starts a payment. Amount is a decimal string in major
// units ("250.00"); when omitted the booking total is charged.
type InitiatePaymentRequest struct {
	BookingID string `json:"booking_id" binding:"required,uuid"`
	Amount    string `json:"amount,omitempty"`
	Currency  string `json:"currency,omitempty" binding:"omitempty,len=3"`
	Email     string `json:"email,omitempty" binding:"omitempty,email"`
}

// PaymentResponse represents a payment transaction in API responses
type PaymentResponse struct {
	ID               string `json:"id"`
	BookingID        string `json:"booking_id"`
	Amount           string `json:"amount"`
	AmountMinor      int64  `json:"amount_minor"`
	Currency         string `json:"currency"`
	Status           string `json:"status"`
	GatewayReference string `json:"gateway_reference,omitempty"`
	CheckoutURL      string `json:"checkout_url,omitempty"`
	FailureReason    string `json:"failure_reason,omitempty"`
	CreatedAt        string `json:"created_at"`
	UpdatedAt        string `json:"updated_at"`
}

// CallbackQuery is the redirect Chapa sends the payer back with. Chapa has
// used both trx_ref and tx_ref for the reference.
type CallbackQuery struct {
	TrxRef string `form:"trx_ref"`
	TxRef  string `form:"tx_ref"`
	Status string `form:"status"`
}

// WebhookRequest is the server-to-server notification body
type WebhookRequest struct {
	TxRef  string `json:"tx_ref"`
	TrxRef string `json:"trx_ref"`
	Status string `json:"status"`
}

// GatewayEventResponse represents a gateway audit event in API responses
type GatewayEventResponse struct {
	ID               string `json:"id"`
	Operation        string `json:"operation"`
	GatewayReference string `json:"gateway_reference,omitempty"`
	Outcome          string `json:"outcome,omitempty"`
	Error            string `json:"error,omitempty"`
	CorrelationID    string `json:"correlation_id,omitempty"`
	Timestamp        string `json:"timestamp"`
}

// CreateBookingRequest represents a request to create a booking. Dates use
// the YYYY-MM-DD layout and TotalPrice is a decimal string in major units.
type CreateBookingRequest struct {
	GuestName    string `json:"guest_name" binding:"required"`
	GuestEmail   string `json:"guest_email" binding:"required,email"`
	ListingTitle string `json:"listing_title" binding:"required"`
	CheckIn      string `json:"check_in" binding:"required"`
	CheckOut     string `json:"check_out" binding:"required"`
	TotalPrice   string `json:"total_price" binding:"required"`
	Currency     string `json:"currency" binding:"required,len=3"`
}

// BookingResponse represents a booking in API responses
type BookingResponse struct {
	ID            string `json:"id"`
	GuestName     string `json:"guest_name"`
	GuestEmail    string `json:"guest_email"`
	ListingTitle  string `json:"listing_title"`
	CheckIn       string `json:"check_in"`
	CheckOut      string `json:"check_out"`
	TotalPrice    string `json:"total_price"`
	Currency      string `json:"currency"`
	Status        string `json:"status"`
	PaymentStatus string `json:"payment_status"`
	CreatedAt     string `json:"created_at"`
	UpdatedAt     string `json:"updated_at"`
}

// PaginationParams represents pagination parameters for list endpoints
type PaginationParams struct {
	Page    int `form:"page,default=1" binding:"min=1"`
	PerPage int `form:"per_page,default=10" binding:"min=1,max=100"`
}
