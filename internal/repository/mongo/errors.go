package mongo

import (
	"errors"

	"go.mongodb.org/mongo-driver/mongo"

	apperrors "github.com/jwalitptl/wellness-api/pkg/errors"
)

// translateError maps driver errors onto the application taxonomy.
func translateError(err error, resource string) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, mongo.ErrNoDocuments) {
		return apperrors.NotFound(resource, err)
	}
	if mongo.IsDuplicateKeyError(err) {
		return apperrors.Conflict(resource+" already exists", err)
	}
	return err
}
