// Package mongo provides the MongoDB implementation of the payment timeline
// store. The timeline is strictly append-only: events are inserted and read,
// never updated or deleted.
package mongo

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/payroll-settlement-service/internal/domain/payment"
)

const (
	// TimelineCollectionName is the name of the timeline collection in MongoDB
	TimelineCollectionName = "payment_timeline_events"
)

// TimelineRepository implements the payment.TimelineRepository interface for MongoDB
type TimelineRepository struct {
	db     *mongo.Database
	logger *slog.Logger
}

// NewTimelineRepository creates a new MongoDB timeline repository
func NewTimelineRepository(logger *slog.Logger, db *mongo.Database) payment.TimelineRepository {
	return &TimelineRepository{
		db:     db,
		logger: logger,
	}
}

// Append stores a new timeline event
func (r *TimelineRepository) Append(ctx context.Context, event *payment.TimelineEvent) error {
	collection := r.db.Collection(TimelineCollectionName)

	_, err := collection.InsertOne(ctx, event)
	if err != nil {
		r.logger.Error("Failed to append timeline event",
			"payment_id", event.PaymentID.String(),
			"event_type", event.EventType,
			"error", err)
		return fmt.Errorf("failed to append timeline event: %w", err)
	}

	return nil
}

// GetByPaymentID retrieves a payment's timeline in chronological order
func (r *TimelineRepository) GetByPaymentID(ctx context.Context, paymentID uuid.UUID) ([]*payment.TimelineEvent, error) {
	collection := r.db.Collection(TimelineCollectionName)

	filter := bson.M{"payment_id": paymentID}
	opts := options.Find().SetSort(bson.M{"occurred_at": 1})

	cursor, err := collection.Find(ctx, filter, opts)
	if err != nil {
		r.logger.Error("Failed to get timeline events",
			"payment_id", paymentID.String(),
			"error", err)
		return nil, fmt.Errorf("failed to get timeline events: %w", err)
	}
	defer cursor.Close(ctx)

	var events []*payment.TimelineEvent
	if err := cursor.All(ctx, &events); err != nil {
		r.logger.Error("Failed to decode timeline events",
			"payment_id", paymentID.String(),
			"error", err)
		return nil, fmt.Errorf("failed to decode timeline events: %w", err)
	}

	return events, nil
}
