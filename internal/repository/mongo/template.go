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

type templateRepository struct {
	db   *DB
	coll *mongo.Collection
}

func NewTemplateRepository(db *DB) repository.TemplateRepository {
	return &templateRepository{db: db, coll: db.collection(collectionTemplates)}
}

func (r *templateRepository) Create(ctx context.Context, tpl *model.Template) (err error) {
	defer r.db.timed("templates.create", time.Now(), &err)

	tpl.Touch(time.Now().UTC())
	result, err := r.coll.InsertOne(ctx, tpl)
	if err != nil {
		return translateError(err, "template")
	}
	tpl.ID = result.InsertedID.(primitive.ObjectID)
	return nil
}

func (r *templateRepository) Get(ctx context.Context, id primitive.ObjectID) (t *model.Template, err error) {
	defer r.db.timed("templates.get", time.Now(), &err)

	var tpl model.Template
	if err = r.coll.FindOne(ctx, bson.M{"_id": id}).Decode(&tpl); err != nil {
		return nil, translateError(err, "template")
	}
	return &tpl, nil
}

// Replace stores tpl only if the stored copy is still at the previous
// version, so two concurrent edits cannot silently overwrite each other.
func (r *templateRepository) Replace(ctx context.Context, tpl *model.Template) (err error) {
	defer r.db.timed("templates.replace", time.Now(), &err)

	tpl.Touch(time.Now().UTC())
	filter := bson.M{"_id": tpl.ID, "version": tpl.Version - 1}
	result, err := r.coll.ReplaceOne(ctx, filter, tpl)
	if err != nil {
		return translateError(err, "template")
	}
	if result.MatchedCount > 0 {
		return nil
	}

	n, err := r.coll.CountDocuments(ctx, bson.M{"_id": tpl.ID})
	if err != nil {
		return fmt.Errorf("failed to check template: %w", err)
	}
	if n == 0 {
		return apperrors.NotFound("template", nil)
	}
	return apperrors.Conflict("template was modified by another request", nil)
}

func (r *templateRepository) Delete(ctx context.Context, id primitive.ObjectID) (err error) {
	defer r.db.timed("templates.delete", time.Now(), &err)

	result, err := r.coll.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return fmt.Errorf("failed to delete template: %w", err)
	}
	if result.DeletedCount == 0 {
		return apperrors.NotFound("template", nil)
	}
	return nil
}

func (r *templateRepository) List(ctx context.Context, opts model.ListOptions) (page *model.Page[*model.Template], err error) {
	defer r.db.timed("templates.list", time.Now(), &err)

	opts.Normalize()
	sort, err := templateSorts.build(opts.Sort, opts.Order)
	if err != nil {
		return nil, err
	}

	filter := textSearchFilter(opts.Search, []string{"name", "description"})
	if opts.Active != nil {
		filter["active"] = *opts.Active
	}

	total, err := r.coll.CountDocuments(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to count templates: %w", err)
	}

	cursor, err := r.coll.Find(ctx, filter, pageOptions(opts, sort))
	if err != nil {
		return nil, fmt.Errorf("failed to list templates: %w", err)
	}
	defer cursor.Close(ctx)

	templates := []*model.Template{}
	if err = cursor.All(ctx, &templates); err != nil {
		return nil, fmt.Errorf("failed to decode templates: %w", err)
	}

	return &model.Page[*model.Template]{Items: templates, Total: total, Page: opts.Page, Limit: opts.Limit}, nil
}
