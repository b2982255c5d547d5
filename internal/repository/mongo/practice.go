package mongo

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/jwalitptl/wellness-api/internal/model"
	"github.com/jwalitptl/wellness-api/internal/repository"
)

type practiceRepository struct {
	db   *DB
	coll *mongo.Collection
}

func NewPracticeRepository(db *DB) repository.PracticeRepository {
	return &practiceRepository{db: db, coll: db.collection(collectionPractice)}
}

func (r *practiceRepository) Get(ctx context.Context) (s *model.PracticeSettings, err error) {
	defer r.db.timed("practice.get", time.Now(), &err)

	var settings model.PracticeSettings
	if err = r.coll.FindOne(ctx, bson.M{"_id": model.PracticeSettingsID}).Decode(&settings); err != nil {
		return nil, translateError(err, "practice settings")
	}
	return &settings, nil
}

func (r *practiceRepository) Upsert(ctx context.Context, settings *model.PracticeSettings) (err error) {
	defer r.db.timed("practice.upsert", time.Now(), &err)

	settings.ID = model.PracticeSettingsID
	settings.UpdatedAt = time.Now().UTC()
	_, err = r.coll.ReplaceOne(ctx, bson.M{"_id": model.PracticeSettingsID}, settings, options.Replace().SetUpsert(true))
	return translateError(err, "practice settings")
}
