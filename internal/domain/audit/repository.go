package audit

import (
	"context"

	"github.com/google/uuid"
)

// Repository stores gateway audit events with pagination support
type Repository interface {
	Create(ctx context.Context, event *GatewayEvent) error
	ListByTransactionID(ctx context.Context, transactionID uuid.UUID, limit, offset int) ([]*GatewayEvent, error)
	CountByTransactionID(ctx context.Context, transactionID uuid.UUID) (int64, error)
}
