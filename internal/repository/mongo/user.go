package mongo

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/jwalitptl/wellness-api/internal/model"
	"github.com/jwalitptl/wellness-api/internal/repository"
	apperrors "github.com/jwalitptl/wellness-api/pkg/errors"
)

type userRepository struct {
	db   *DB
	coll *mongo.Collection
}

func NewUserRepository(db *DB) repository.UserRepository {
	return &userRepository{db: db, coll: db.collection(collectionUsers)}
}

func (r *userRepository) Create(ctx context.Context, user *model.User) (err error) {
	defer r.db.timed("users.create", time.Now(), &err)

	user.Email = strings.ToLower(strings.TrimSpace(user.Email))
	user.Touch(time.Now().UTC())
	result, err := r.coll.InsertOne(ctx, user)
	if err != nil {
		return translateError(err, "user")
	}
	user.ID = result.InsertedID.(primitive.ObjectID)
	return nil
}

func (r *userRepository) findOne(ctx context.Context, filter bson.M) (*model.User, error) {
	var user model.User
	if err := r.coll.FindOne(ctx, filter).Decode(&user); err != nil {
		return nil, translateError(err, "user")
	}
	return &user, nil
}

func (r *userRepository) Get(ctx context.Context, id primitive.ObjectID) (u *model.User, err error) {
	defer r.db.timed("users.get", time.Now(), &err)
	return r.findOne(ctx, bson.M{"_id": id})
}

func (r *userRepository) GetByEmail(ctx context.Context, email string) (u *model.User, err error) {
	defer r.db.timed("users.get_by_email", time.Now(), &err)
	return r.findOne(ctx, bson.M{"email": strings.ToLower(strings.TrimSpace(email))})
}

func (r *userRepository) GetByExternalID(ctx context.Context, externalID string) (u *model.User, err error) {
	defer r.db.timed("users.get_by_external_id", time.Now(), &err)
	if externalID == "" {
		return nil, apperrors.NotFound("user", nil)
	}
	return r.findOne(ctx, bson.M{"externalId": externalID})
}

func (r *userRepository) Update(ctx context.Context, user *model.User) (err error) {
	defer r.db.timed("users.update", time.Now(), &err)

	user.Touch(time.Now().UTC())
	result, err := r.coll.ReplaceOne(ctx, bson.M{"_id": user.ID}, user)
	if err != nil {
		return translateError(err, "user")
	}
	if result.MatchedCount == 0 {
		return apperrors.NotFound("user", nil)
	}
	return nil
}

func (r *userRepository) Delete(ctx context.Context, id primitive.ObjectID) (err error) {
	defer r.db.timed("users.delete", time.Now(), &err)

	result, err := r.coll.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return fmt.Errorf("failed to delete user: %w", err)
	}
	if result.DeletedCount == 0 {
		return apperrors.NotFound("user", nil)
	}
	return nil
}

func (r *userRepository) List(ctx context.Context, opts model.ListOptions) (page *model.Page[*model.User], err error) {
	defer r.db.timed("users.list", time.Now(), &err)

	opts.Normalize()
	sort, err := userSorts.build(opts.Sort, opts.Order)
	if err != nil {
		return nil, err
	}

	filter := textSearchFilter(opts.Search, []string{"name", "email"})
	if opts.Status != "" {
		filter["status"] = opts.Status
	}
	if opts.Role != "" {
		filter["role"] = opts.Role
	}

	total, err := r.coll.CountDocuments(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to count users: %w", err)
	}

	cursor, err := r.coll.Find(ctx, filter, pageOptions(opts, sort))
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	defer cursor.Close(ctx)

	users := []*model.User{}
	if err = cursor.All(ctx, &users); err != nil {
		return nil, fmt.Errorf("failed to decode users: %w", err)
	}

	return &model.Page[*model.User]{Items: users, Total: total, Page: opts.Page, Limit: opts.Limit}, nil
}

func (r *userRepository) CountByRole(ctx context.Context, role model.Role, status model.UserStatus) (n int64, err error) {
	defer r.db.timed("users.count_by_role", time.Now(), &err)

	n, err = r.coll.CountDocuments(ctx, bson.M{"role": role, "status": status})
	if err != nil {
		return 0, fmt.Errorf("failed to count users: %w", err)
	}
	return n, nil
}
