package mongo

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/jwalitptl/wellness-api/internal/model"
	"github.com/jwalitptl/wellness-api/internal/repository"
)

type outboxRepository struct {
	db   *DB
	coll *mongo.Collection
}

func NewOutboxRepository(db *DB) repository.OutboxRepository {
	return &outboxRepository{db: db, coll: db.collection(collectionOutbox)}
}

func (r *outboxRepository) Create(ctx context.Context, event *model.OutboxEvent) (err error) {
	defer r.db.timed("outbox.create", time.Now(), &err)

	now := time.Now().UTC()
	event.Status = model.OutboxStatusPending
	event.CreatedAt = now
	event.UpdatedAt = now

	result, err := r.coll.InsertOne(ctx, event)
	if err != nil {
		return fmt.Errorf("failed to insert outbox event: %w", err)
	}
	event.ID = result.InsertedID.(primitive.ObjectID)
	return nil
}

func (r *outboxRepository) GetPendingEvents(ctx context.Context, limit int) (events []*model.OutboxEvent, err error) {
	defer r.db.timed("outbox.get_pending", time.Now(), &err)

	opts := options.Find().
		SetSort(bson.D{{Key: "createdAt", Value: 1}}).
		SetLimit(int64(limit))
	cursor, err := r.coll.Find(ctx, bson.M{"status": model.OutboxStatusPending}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to get pending events: %w", err)
	}
	defer cursor.Close(ctx)

	events = []*model.OutboxEvent{}
	if err = cursor.All(ctx, &events); err != nil {
		return nil, fmt.Errorf("failed to decode outbox events: %w", err)
	}
	return events, nil
}

func (r *outboxRepository) MarkProcessed(ctx context.Context, id primitive.ObjectID) (err error) {
	defer r.db.timed("outbox.mark_processed", time.Now(), &err)

	now := time.Now().UTC()
	_, err = r.coll.UpdateByID(ctx, id, bson.M{
		"$set":   bson.M{"status": model.OutboxStatusProcessed, "processedAt": now, "updatedAt": now},
		"$unset": bson.M{"errorMessage": ""},
	})
	if err != nil {
		return fmt.Errorf("failed to mark event processed: %w", err)
	}
	return nil
}

// MarkFailed records a failed attempt. The event stays pending for another
// round unless final is set.
func (r *outboxRepository) MarkFailed(ctx context.Context, id primitive.ObjectID, errMsg string, final bool) (err error) {
	defer r.db.timed("outbox.mark_failed", time.Now(), &err)

	set := bson.M{"errorMessage": errMsg, "updatedAt": time.Now().UTC()}
	if final {
		set["status"] = model.OutboxStatusFailed
	}
	_, err = r.coll.UpdateByID(ctx, id, bson.M{
		"$set": set,
		"$inc": bson.M{"attempts": 1},
	})
	if err != nil {
		return fmt.Errorf("failed to mark event failed: %w", err)
	}
	return nil
}
