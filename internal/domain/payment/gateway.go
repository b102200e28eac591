package payment

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
)

// Error kinds returned by a Gateway. Match them with errors.Is.
var (
	ErrGatewayUnreachable  = errors.New("payment gateway unreachable")
	ErrGatewayRejected     = errors.New("payment gateway rejected the request")
	ErrGatewayServerError  = errors.New("payment gateway server error")
	ErrUnsupportedCurrency = errors.New("currency not supported by payment gateway")
)

// Outcome is the normalized verification result
type Outcome string

const (
	OutcomeSuccess Outcome = "success"
	OutcomeFailure Outcome = "failure"
	OutcomePending Outcome = "pending"
)

// Customer identifies the payer sent along with an initiation
type Customer struct {
	Email     string
	FirstName string
	LastName  string
}

// InitiateRequest carries everything the gateway needs to open a checkout
type InitiateRequest struct {
	BookingID   uuid.UUID
	Amount      int64 // minor units
	Currency    string
	CallbackURL string
	Customer    Customer
	Description string
}

// InitiateResult is the normalized initiation response
type InitiateResult struct {
	GatewayReference string
	CheckoutURL      string
	RawPayload       map[string]interface{}
}

// VerifyResult is the normalized verification response
type VerifyResult struct {
	Outcome    Outcome
	Message    string
	RawPayload map[string]interface{}
}

// Gateway issues initiate/verify calls to the external payment provider
type Gateway interface {
	Initiate(ctx context.Context, req InitiateRequest) (*InitiateResult, error)
	// Verify is a read against the provider and is safe to repeat.
	Verify(ctx context.Context, reference string) (*VerifyResult, error)
	// CallbackURL is where the provider redirects the payer after checkout.
	CallbackURL() string
	// SupportsCurrency reports whether checkouts may be opened in currency.
	SupportsCurrency(currency string) bool
}

// GatewayError carries the provider response details behind an error kind
type GatewayError struct {
	Kind       error
	Op         string
	StatusCode int
	Message    string
	Err        error
}

func (e *GatewayError) Error() string {
	msg := fmt.Sprintf("%s: %s", e.Op, e.Kind)
	if e.StatusCode != 0 {
		msg = fmt.Sprintf("%s (status %d)", msg, e.StatusCode)
	}
	if e.Message != "" {
		msg += ": " + e.Message
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Is makes errors.Is(err, ErrGatewayUnreachable) and friends work on wrapped errors.
func (e *GatewayError) Is(target error) bool {
	return target == e.Kind
}

func (e *GatewayError) Unwrap() error {
	return e.Err
}

// IsRetryable reports whether the caller may retry after err.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrGatewayUnreachable) || errors.Is(err, ErrGatewayServerError)
}
