package mongo

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/jwalitptl/wellness-api/internal/model"
	"github.com/jwalitptl/wellness-api/internal/repository"
)

type auditRepository struct {
	db   *DB
	coll *mongo.Collection
}

func NewAuditRepository(db *DB) repository.AuditRepository {
	return &auditRepository{db: db, coll: db.collection(collectionAudit)}
}

func (r *auditRepository) Create(ctx context.Context, log *model.AuditLog) (err error) {
	defer r.db.timed("audit.create", time.Now(), &err)

	if _, err = r.coll.InsertOne(ctx, log); err != nil {
		return fmt.Errorf("failed to insert audit log: %w", err)
	}
	return nil
}

func (r *auditRepository) List(ctx context.Context, f model.AuditFilter) (logs []*model.AuditLog, total int64, err error) {
	defer r.db.timed("audit.list", time.Now(), &err)

	opts := model.ListOptions{Page: f.Page, Limit: f.Limit, From: f.From, To: f.To}
	opts.Normalize()

	filter := bson.M{}
	if f.UserID != "" {
		filter["userId"] = f.UserID
	}
	if f.EntityType != "" {
		filter["entityType"] = f.EntityType
	}
	if f.EntityID != "" {
		filter["entityId"] = f.EntityID
	}
	if f.Action != "" {
		filter["action"] = f.Action
	}
	applyDateRange(filter, "createdAt", opts)

	total, err = r.coll.CountDocuments(ctx, filter)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to count audit logs: %w", err)
	}

	findOpts := options.Find().
		SetSort(bson.D{{Key: "createdAt", Value: -1}}).
		SetSkip(opts.Skip()).
		SetLimit(int64(opts.Limit))
	cursor, err := r.coll.Find(ctx, filter, findOpts)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list audit logs: %w", err)
	}
	defer cursor.Close(ctx)

	logs = []*model.AuditLog{}
	if err = cursor.All(ctx, &logs); err != nil {
		return nil, 0, fmt.Errorf("failed to decode audit logs: %w", err)
	}
	return logs, total, nil
}

func (r *auditRepository) Cleanup(ctx context.Context, before time.Time) (n int64, err error) {
	defer r.db.timed("audit.cleanup", time.Now(), &err)

	result, err := r.coll.DeleteMany(ctx, bson.M{"createdAt": bson.M{"$lt": before}})
	if err != nil {
		return 0, fmt.Errorf("failed to cleanup audit logs: %w", err)
	}
	return result.DeletedCount, nil
}
