// Package chapa is a payment.Gateway backed by the Chapa HTTP API.
package chapa

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/alx-travel-payments/internal/config"
	"github.com/alx-travel-payments/internal/domain/payment"
	"github.com/alx-travel-payments/internal/domain/shared"
	"github.com/google/uuid"
)

const (
	initializePath = "/transaction/initialize"
	verifyPath     = "/transaction/verify/"
	callbackPath   = "/api/v1/payments/callback"

	checkoutTitle = "Booking Payment"

	// Error bodies are truncated before they end up in logs and errors.
	maxErrorBody = 512
)

// Client talks to the Chapa REST API
type Client struct {
	logger      *slog.Logger
	httpClient  *http.Client
	baseURL     string
	secretKey   string
	callbackURL string
	prefix      string
	timeout     time.Duration
	currencies  map[string]struct{}
}

type initializeRequest struct {
	Amount        string        `json:"amount"`
	Currency      string        `json:"currency"`
	Email         string        `json:"email"`
	FirstName     string        `json:"first_name"`
	LastName      string        `json:"last_name"`
	TxRef         string        `json:"tx_ref"`
	CallbackURL   string        `json:"callback_url"`
	Customization customization `json:"customization"`
}

type customization struct {
	Title       string `json:"title"`
	Description string `json:"description"`
}

type apiResponse struct {
	Message string `json:"message"`
	Status  string `json:"status"`
	Data    struct {
		CheckoutURL string `json:"checkout_url"`
		Status      string `json:"status"`
		TxRef       string `json:"tx_ref"`
	} `json:"data"`
}

// NewClient builds a client from cfg. The http.Client timeout bounds every call.
func NewClient(logger *slog.Logger, cfg config.GatewayConfig) *Client {
	return newClient(logger, cfg, &http.Client{Timeout: cfg.Timeout})
}

func newClient(logger *slog.Logger, cfg config.GatewayConfig, httpClient *http.Client) *Client {
	currencies := make(map[string]struct{}, len(cfg.SupportedCurrencies))
	for _, c := range cfg.SupportedCurrencies {
		currencies[strings.ToUpper(strings.TrimSpace(c))] = struct{}{}
	}

	return &Client{
		logger:      logger,
		httpClient:  httpClient,
		baseURL:     strings.TrimRight(cfg.BaseURL, "/"),
		secretKey:   cfg.SecretKey,
		callbackURL: strings.TrimRight(cfg.CallbackBaseURL, "/") + callbackPath,
		prefix:      cfg.ReferencePrefix,
		timeout:     cfg.Timeout,
		currencies:  currencies,
	}
}

// CallbackURL is where Chapa redirects the payer once checkout finishes
func (c *Client) CallbackURL() string {
	return c.callbackURL
}

// SupportsCurrency reports whether currency is in the configured set
func (c *Client) SupportsCurrency(currency string) bool {
	_, ok := c.currencies[strings.ToUpper(strings.TrimSpace(currency))]
	return ok
}

// Initiate opens a checkout session. Invalid amounts and unsupported
// currencies are rejected before any network call.
func (c *Client) Initiate(ctx context.Context, req payment.InitiateRequest) (*payment.InitiateResult, error) {
	if req.Amount <= 0 {
		return nil, shared.ErrInvalidAmount
	}
	currency := strings.ToUpper(req.Currency)
	if !c.SupportsCurrency(currency) {
		return nil, fmt.Errorf("%w: %s", payment.ErrUnsupportedCurrency, req.Currency)
	}

	callbackURL := req.CallbackURL
	if callbackURL == "" {
		callbackURL = c.callbackURL
	}

	txRef := c.newReference(req.BookingID)
	body := initializeRequest{
		Amount:      shared.FormatMinorUnits(req.Amount),
		Currency:    currency,
		Email:       req.Customer.Email,
		FirstName:   req.Customer.FirstName,
		LastName:    req.Customer.LastName,
		TxRef:       txRef,
		CallbackURL: callbackURL,
		Customization: customization{
			Title:       checkoutTitle,
			Description: req.Description,
		},
	}

	resp, raw, err := c.do(ctx, "initiate", http.MethodPost, c.baseURL+initializePath, body)
	if err != nil {
		return nil, err
	}

	if !strings.EqualFold(resp.Status, "success") || resp.Data.CheckoutURL == "" {
		return nil, &payment.GatewayError{
			Kind:    payment.ErrGatewayRejected,
			Op:      "initiate",
			Message: resp.Message,
		}
	}

	c.logger.Debug("Chapa checkout initialized", "tx_ref", txRef, "booking_id", req.BookingID)

	return &payment.InitiateResult{
		GatewayReference: txRef,
		CheckoutURL:      resp.Data.CheckoutURL,
		RawPayload:       raw,
	}, nil
}

// Verify asks Chapa for the current state of reference
func (c *Client) Verify(ctx context.Context, reference string) (*payment.VerifyResult, error) {
	if strings.TrimSpace(reference) == "" {
		return nil, &payment.GatewayError{Kind: payment.ErrGatewayRejected, Op: "verify", Message: "empty reference"}
	}

	resp, raw, err := c.do(ctx, "verify", http.MethodGet, c.baseURL+verifyPath+url.PathEscape(reference), nil)
	if err != nil {
		return nil, err
	}

	return &payment.VerifyResult{
		Outcome:    outcomeOf(resp),
		Message:    resp.Message,
		RawPayload: raw,
	}, nil
}

// outcomeOf reads the payment status from data.status only. The top-level
// status reports whether the API call worked, not whether the payer paid.
func outcomeOf(resp *apiResponse) payment.Outcome {
	switch strings.ToLower(resp.Data.Status) {
	case "success":
		return payment.OutcomeSuccess
	case "pending":
		return payment.OutcomePending
	default:
		return payment.OutcomeFailure
	}
}

// do performs one call and maps every failure onto a gateway error kind:
// transport problems are Unreachable, 4xx is Rejected, 5xx and undecodable
// bodies are ServerError.
func (c *Client) do(ctx context.Context, op, method, endpoint string, payload interface{}) (*apiResponse, map[string]interface{}, error) {
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	var reqBody io.Reader
	if payload != nil {
		encoded, err := json.Marshal(payload)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to marshal %s request: %w", op, err)
		}
		reqBody = bytes.NewReader(encoded)
	}

	httpReq, err := http.NewRequestWithContext(ctx, method, endpoint, reqBody)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create %s request: %w", op, err)
	}
	httpReq.Header.Set("Authorization", "Bearer "+c.secretKey)
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/json")

	httpResp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, nil, &payment.GatewayError{Kind: payment.ErrGatewayUnreachable, Op: op, Err: err}
	}
	defer httpResp.Body.Close()

	respBody, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return nil, nil, &payment.GatewayError{Kind: payment.ErrGatewayUnreachable, Op: op, StatusCode: httpResp.StatusCode, Err: err}
	}

	var decoded apiResponse
	decodeErr := json.Unmarshal(respBody, &decoded)

	switch {
	case httpResp.StatusCode >= 500:
		return nil, nil, &payment.GatewayError{
			Kind:       payment.ErrGatewayServerError,
			Op:         op,
			StatusCode: httpResp.StatusCode,
			Message:    errorMessage(decoded, respBody),
		}
	case httpResp.StatusCode >= 400:
		return nil, nil, &payment.GatewayError{
			Kind:       payment.ErrGatewayRejected,
			Op:         op,
			StatusCode: httpResp.StatusCode,
			Message:    errorMessage(decoded, respBody),
		}
	case decodeErr != nil:
		return nil, nil, &payment.GatewayError{
			Kind:       payment.ErrGatewayServerError,
			Op:         op,
			StatusCode: httpResp.StatusCode,
			Message:    "undecodable response body",
			Err:        decodeErr,
		}
	}

	var raw map[string]interface{}
	if err := json.Unmarshal(respBody, &raw); err != nil {
		// A JSON array or scalar decodes into apiResponse only by accident.
		return nil, nil, &payment.GatewayError{Kind: payment.ErrGatewayServerError, Op: op, StatusCode: httpResp.StatusCode, Err: err}
	}

	return &decoded, raw, nil
}

func (c *Client) newReference(bookingID uuid.UUID) string {
	suffix := strings.ReplaceAll(uuid.NewString(), "-", "")[:8]
	if c.prefix == "" {
		return fmt.Sprintf("%s-%s", bookingID, suffix)
	}
	return fmt.Sprintf("%s-%s-%s", c.prefix, bookingID, suffix)
}

func errorMessage(decoded apiResponse, body []byte) string {
	if decoded.Message != "" {
		return decoded.Message
	}
	msg := strings.TrimSpace(string(body))
	if len(msg) > maxErrorBody {
		msg = msg[:maxErrorBody]
	}
	return msg
}

var _ payment.Gateway = (*Client)(nil)
