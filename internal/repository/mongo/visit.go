package mongo

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/jwalitptl/wellness-api/internal/model"
	"github.com/jwalitptl/wellness-api/internal/repository"
	apperrors "github.com/jwalitptl/wellness-api/pkg/errors"
)

type visitRepository struct {
	db   *DB
	coll *mongo.Collection
}

func NewVisitRepository(db *DB) repository.VisitRepository {
	return &visitRepository{db: db, coll: db.collection(collectionVisits)}
}

func (r *visitRepository) Create(ctx context.Context, visit *model.Visit) (err error) {
	defer r.db.timed("visits.create", time.Now(), &err)

	visit.Touch(time.Now().UTC())
	result, err := r.coll.InsertOne(ctx, visit)
	if err != nil {
		return translateError(err, "visit")
	}
	visit.ID = result.InsertedID.(primitive.ObjectID)
	return nil
}

func (r *visitRepository) Get(ctx context.Context, id primitive.ObjectID) (v *model.Visit, err error) {
	defer r.db.timed("visits.get", time.Now(), &err)

	var visit model.Visit
	if err = r.coll.FindOne(ctx, bson.M{"_id": id}).Decode(&visit); err != nil {
		return nil, translateError(err, "visit")
	}
	return &visit, nil
}

// Update replaces the stored visit. Concurrent writers are last-write-wins.
func (r *visitRepository) Update(ctx context.Context, visit *model.Visit) (err error) {
	defer r.db.timed("visits.update", time.Now(), &err)

	visit.Touch(time.Now().UTC())
	result, err := r.coll.ReplaceOne(ctx, bson.M{"_id": visit.ID}, visit)
	if err != nil {
		return translateError(err, "visit")
	}
	if result.MatchedCount == 0 {
		return apperrors.NotFound("visit", nil)
	}
	return nil
}

func (r *visitRepository) Delete(ctx context.Context, id primitive.ObjectID) (err error) {
	defer r.db.timed("visits.delete", time.Now(), &err)

	result, err := r.coll.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return fmt.Errorf("failed to delete visit: %w", err)
	}
	if result.DeletedCount == 0 {
		return apperrors.NotFound("visit", nil)
	}
	return nil
}

// visitFilter builds the query document for a visit listing.
func visitFilter(f repository.VisitFilter) bson.M {
	filter := bson.M{}
	if f.PatientIDs != nil {
		filter["patient"] = bson.M{"$in": f.PatientIDs}
	}
	if f.ProviderID != nil {
		filter["provider"] = *f.ProviderID
	}
	if f.Status != "" {
		filter["status"] = f.Status
	}
	applyDateRange(filter, "scheduledDate", f.ListOptions)
	return filter
}

func (r *visitRepository) List(ctx context.Context, f repository.VisitFilter) (page *model.Page[*model.Visit], err error) {
	defer r.db.timed("visits.list", time.Now(), &err)

	f.Normalize()
	sort, err := visitSorts.build(f.Sort, f.Order)
	if err != nil {
		return nil, err
	}

	filter := visitFilter(f)

	total, err := r.coll.CountDocuments(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to count visits: %w", err)
	}

	cursor, err := r.coll.Find(ctx, filter, pageOptions(f.ListOptions, sort))
	if err != nil {
		return nil, fmt.Errorf("failed to list visits: %w", err)
	}
	defer cursor.Close(ctx)

	visits := []*model.Visit{}
	if err = cursor.All(ctx, &visits); err != nil {
		return nil, fmt.Errorf("failed to decode visits: %w", err)
	}

	return &model.Page[*model.Visit]{Items: visits, Total: total, Page: f.Page, Limit: f.Limit}, nil
}

func (r *visitRepository) CountByPatient(ctx context.Context, patientID primitive.ObjectID) (n int64, err error) {
	defer r.db.timed("visits.count_by_patient", time.Now(), &err)

	n, err = r.coll.CountDocuments(ctx, bson.M{"patient": patientID})
	if err != nil {
		return 0, fmt.Errorf("failed to count visits: %w", err)
	}
	return n, nil
}

func (r *visitRepository) CountByTemplate(ctx context.Context, templateID primitive.ObjectID) (n int64, err error) {
	defer r.db.timed("visits.count_by_template", time.Now(), &err)

	n, err = r.coll.CountDocuments(ctx, bson.M{"templateId": templateID})
	if err != nil {
		return 0, fmt.Errorf("failed to count visits: %w", err)
	}
	return n, nil
}
