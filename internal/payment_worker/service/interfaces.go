package service

import (
	"context"
	"errors"

	"github.com/alx-travel-payments/internal/domain/notification"
)

// ErrNotDeliverable marks a notification that can never be sent, such as one
// referring to a missing or unsettled payment. Retrying it is pointless.
var ErrNotDeliverable = errors.New("notification not deliverable")

// NotificationService sends booking confirmations for settled payments
type NotificationService interface {
	SendConfirmation(ctx context.Context, msg *notification.Message) error
}
