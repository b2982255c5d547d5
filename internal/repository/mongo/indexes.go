package mongo

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// indexModels lists the indexes every collection needs.
func indexModels() map[string][]mongo.IndexModel {
	return map[string][]mongo.IndexModel{
		collectionUsers: {
			{Keys: bson.D{{Key: "email", Value: 1}}, Options: options.Index().SetUnique(true).SetName("uniq_email")},
			{
				Keys: bson.D{{Key: "externalId", Value: 1}},
				Options: options.Index().SetUnique(true).SetName("uniq_external_id").
					SetPartialFilterExpression(bson.M{"externalId": bson.M{"$type": "string"}}),
			},
		},
		collectionPatients: {
			{Keys: bson.D{{Key: "lastName", Value: 1}, {Key: "firstName", Value: 1}}},
			{Keys: bson.D{{Key: "email", Value: 1}}},
		},
		collectionVisits: {
			{Keys: bson.D{{Key: "patient", Value: 1}, {Key: "scheduledDate", Value: -1}}},
			{Keys: bson.D{{Key: "scheduledDate", Value: -1}}},
			{Keys: bson.D{{Key: "status", Value: 1}, {Key: "scheduledDate", Value: -1}}},
			{Keys: bson.D{{Key: "templateId", Value: 1}}},
		},
		collectionTemplates: {
			{Keys: bson.D{{Key: "active", Value: 1}, {Key: "name", Value: 1}}},
		},
		collectionAudit: {
			{Keys: bson.D{{Key: "createdAt", Value: -1}}},
			{Keys: bson.D{{Key: "entityType", Value: 1}, {Key: "entityId", Value: 1}}},
		},
		collectionOutbox: {
			{Keys: bson.D{{Key: "status", Value: 1}, {Key: "createdAt", Value: 1}}},
		},
	}
}

// EnsureIndexes creates any missing indexes. Existing ones are left alone.
func (d *DB) EnsureIndexes(ctx context.Context) error {
	for coll, models := range indexModels() {
		names, err := d.collection(coll).Indexes().CreateMany(ctx, models)
		if err != nil {
			return fmt.Errorf("failed to create indexes on %s: %w", coll, err)
		}
		log.Info().Str("collection", coll).Strs("indexes", names).Msg("indexes ensured")
	}
	return nil
}
