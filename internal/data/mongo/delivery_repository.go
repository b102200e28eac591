package mongo

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/alx-travel-payments/internal/domain/notification"
	"github.com/alx-travel-payments/internal/platform/persistence"
)

// DeliveryRepository implements the notification.DeliveryRepository interface for MongoDB
type DeliveryRepository struct {
	db     *mongo.Database
	logger *slog.Logger
}

// NewDeliveryRepository creates a new MongoDB notification delivery repository
func NewDeliveryRepository(logger *slog.Logger, db *mongo.Database) notification.DeliveryRepository {
	return &DeliveryRepository{
		db:     db,
		logger: logger,
	}
}

// Create records a sent confirmation. The unique index on transaction_id turns a
// second insert for the same transaction into ErrDuplicateDelivery.
func (r *DeliveryRepository) Create(ctx context.Context, delivery *notification.Delivery) error {
	collection := r.db.Collection(persistence.NotificationDeliveriesCollection)

	if _, err := collection.InsertOne(ctx, delivery); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return notification.ErrDuplicateDelivery{TransactionID: delivery.TransactionID}
		}
		r.logger.Error("Failed to create notification delivery",
			"transaction_id", delivery.TransactionID.String(),
			"error", err)
		return fmt.Errorf("failed to create notification delivery: %w", err)
	}

	return nil
}

// GetByTransactionID returns the delivery for a transaction.
// Returns ErrDeliveryNotFound if no confirmation was sent yet.
func (r *DeliveryRepository) GetByTransactionID(ctx context.Context, transactionID uuid.UUID) (*notification.Delivery, error) {
	collection := r.db.Collection(persistence.NotificationDeliveriesCollection)

	var delivery notification.Delivery
	err := collection.FindOne(ctx, bson.M{"transaction_id": transactionID}).Decode(&delivery)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, notification.ErrDeliveryNotFound{TransactionID: transactionID}
		}
		r.logger.Error("Failed to get notification delivery",
			"transaction_id", transactionID.String(),
			"error", err)
		return nil, fmt.Errorf("failed to get notification delivery: %w", err)
	}

	return &delivery, nil
}
