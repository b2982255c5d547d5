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
	apperrors "github.com/jwalitptl/wellness-api/pkg/errors"
)

type patientRepository struct {
	db   *DB
	coll *mongo.Collection
}

func NewPatientRepository(db *DB) repository.PatientRepository {
	return &patientRepository{db: db, coll: db.collection(collectionPatients)}
}

func (r *patientRepository) Create(ctx context.Context, patient *model.Patient) (err error) {
	defer r.db.timed("patients.create", time.Now(), &err)

	patient.Touch(time.Now().UTC())
	result, err := r.coll.InsertOne(ctx, patient)
	if err != nil {
		return translateError(err, "patient")
	}
	patient.ID = result.InsertedID.(primitive.ObjectID)
	return nil
}

func (r *patientRepository) Get(ctx context.Context, id primitive.ObjectID) (p *model.Patient, err error) {
	defer r.db.timed("patients.get", time.Now(), &err)

	var patient model.Patient
	if err = r.coll.FindOne(ctx, bson.M{"_id": id}).Decode(&patient); err != nil {
		return nil, translateError(err, "patient")
	}
	return &patient, nil
}

func (r *patientRepository) Update(ctx context.Context, patient *model.Patient) (err error) {
	defer r.db.timed("patients.update", time.Now(), &err)

	patient.Touch(time.Now().UTC())
	result, err := r.coll.ReplaceOne(ctx, bson.M{"_id": patient.ID}, patient)
	if err != nil {
		return translateError(err, "patient")
	}
	if result.MatchedCount == 0 {
		return apperrors.NotFound("patient", nil)
	}
	return nil
}

func (r *patientRepository) Delete(ctx context.Context, id primitive.ObjectID) (err error) {
	defer r.db.timed("patients.delete", time.Now(), &err)

	result, err := r.coll.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return fmt.Errorf("failed to delete patient: %w", err)
	}
	if result.DeletedCount == 0 {
		return apperrors.NotFound("patient", nil)
	}
	return nil
}

func (r *patientRepository) List(ctx context.Context, opts model.ListOptions) (page *model.Page[*model.Patient], err error) {
	defer r.db.timed("patients.list", time.Now(), &err)

	opts.Normalize()
	sort, err := patientSorts.build(opts.Sort, opts.Order)
	if err != nil {
		return nil, err
	}

	filter := textSearchFilter(opts.Search, patientSearchFields)

	total, err := r.coll.CountDocuments(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to count patients: %w", err)
	}

	cursor, err := r.coll.Find(ctx, filter, pageOptions(opts, sort))
	if err != nil {
		return nil, fmt.Errorf("failed to list patients: %w", err)
	}
	defer cursor.Close(ctx)

	patients := []*model.Patient{}
	if err = cursor.All(ctx, &patients); err != nil {
		return nil, fmt.Errorf("failed to decode patients: %w", err)
	}

	return &model.Page[*model.Patient]{Items: patients, Total: total, Page: opts.Page, Limit: opts.Limit}, nil
}

func (r *patientRepository) FindIDsBySearch(ctx context.Context, search string) (ids []primitive.ObjectID, err error) {
	defer r.db.timed("patients.search_ids", time.Now(), &err)

	filter := textSearchFilter(search, patientSearchFields)
	cursor, err := r.coll.Find(ctx, filter, options.Find().SetProjection(bson.M{"_id": 1}))
	if err != nil {
		return nil, fmt.Errorf("failed to search patients: %w", err)
	}
	defer cursor.Close(ctx)

	var docs []struct {
		ID primitive.ObjectID `bson:"_id"`
	}
	if err = cursor.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("failed to decode patient ids: %w", err)
	}

	ids = make([]primitive.ObjectID, 0, len(docs))
	for _, d := range docs {
		ids = append(ids, d.ID)
	}
	return ids, nil
}

func (r *patientRepository) GetMany(ctx context.Context, ids []primitive.ObjectID) (patients []*model.Patient, err error) {
	defer r.db.timed("patients.get_many", time.Now(), &err)

	patients = []*model.Patient{}
	if len(ids) == 0 {
		return patients, nil
	}

	cursor, err := r.coll.Find(ctx, bson.M{"_id": bson.M{"$in": ids}})
	if err != nil {
		return nil, fmt.Errorf("failed to load patients: %w", err)
	}
	defer cursor.Close(ctx)

	if err = cursor.All(ctx, &patients); err != nil {
		return nil, fmt.Errorf("failed to decode patients: %w", err)
	}
	return patients, nil
}

func (r *patientRepository) Exists(ctx context.Context, id primitive.ObjectID) (ok bool, err error) {
	defer r.db.timed("patients.exists", time.Now(), &err)

	n, err := r.coll.CountDocuments(ctx, bson.M{"_id": id}, options.Count().SetLimit(1))
	if err != nil {
		return false, fmt.Errorf("failed to check patient: %w", err)
	}
	return n > 0, nil
}
