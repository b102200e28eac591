// Package mongo provides MongoDB implementations of the audit and notification repositories.
package mongo

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/alx-travel-payments/internal/domain/audit"
	"github.com/alx-travel-payments/internal/platform/persistence"
)

// GatewayEventRepository implements the audit.Repository interface for MongoDB
type GatewayEventRepository struct {
	db     *mongo.Database
	logger *slog.Logger
}

// NewGatewayEventRepository creates a new MongoDB gateway audit repository
func NewGatewayEventRepository(logger *slog.Logger, db *mongo.Database) audit.Repository {
	return &GatewayEventRepository{
		db:     db,
		logger: logger,
	}
}

// Create appends an audit event. Events are immutable and never updated.
func (r *GatewayEventRepository) Create(ctx context.Context, event *audit.GatewayEvent) error {
	collection := r.db.Collection(persistence.GatewayEventsCollection)

	if _, err := collection.InsertOne(ctx, event); err != nil {
		r.logger.Error("Failed to create gateway event",
			"transaction_id", event.TransactionID.String(),
			"operation", string(event.Operation),
			"error", err)
		return fmt.Errorf("failed to create gateway event: %w", err)
	}

	return nil
}

// ListByTransactionID returns a page of audit events for a transaction, newest first
func (r *GatewayEventRepository) ListByTransactionID(ctx context.Context, transactionID uuid.UUID, limit, offset int) ([]*audit.GatewayEvent, error) {
	collection := r.db.Collection(persistence.GatewayEventsCollection)

	filter := bson.M{"transaction_id": transactionID}
	opts := options.Find().
		SetSort(bson.M{"timestamp": -1}).
		SetSkip(int64(offset)).
		SetLimit(int64(limit))

	cursor, err := collection.Find(ctx, filter, opts)
	if err != nil {
		r.logger.Error("Failed to get gateway events",
			"transaction_id", transactionID.String(),
			"error", err)
		return nil, fmt.Errorf("failed to get gateway events: %w", err)
	}
	defer cursor.Close(ctx)

	var events []*audit.GatewayEvent
	if err := cursor.All(ctx, &events); err != nil {
		r.logger.Error("Failed to decode gateway events",
			"transaction_id", transactionID.String(),
			"error", err)
		return nil, fmt.Errorf("failed to decode gateway events: %w", err)
	}

	return events, nil
}

// CountByTransactionID counts the audit events recorded for a transaction
func (r *GatewayEventRepository) CountByTransactionID(ctx context.Context, transactionID uuid.UUID) (int64, error) {
	collection := r.db.Collection(persistence.GatewayEventsCollection)

	count, err := collection.CountDocuments(ctx, bson.M{"transaction_id": transactionID})
	if err != nil {
		r.logger.Error("Failed to count gateway events",
			"transaction_id", transactionID.String(),
			"error", err)
		return 0, fmt.Errorf("failed to count gateway events: %w", err)
	}

	return count, nil
}
