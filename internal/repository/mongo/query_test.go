package mongo

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/jwalitptl/wellness-api/internal/model"
	"github.com/jwalitptl/wellness-api/internal/repository"
	apperrors "github.com/jwalitptl/wellness-api/pkg/errors"
)

func TestSortSpecBuild(t *testing.T) {
	tests := []struct {
		name  string
		field string
		order model.SortDirection
		want  bson.D
	}{
		{"default", "", "", bson.D{{Key: "scheduledDate", Value: -1}, {Key: "_id", Value: -1}}},
		{"default field with order", "scheduledDate", model.SortAsc, bson.D{{Key: "scheduledDate", Value: 1}, {Key: "_id", Value: 1}}},
		{"other field defaults asc", "status", "", bson.D{{Key: "status", Value: 1}, {Key: "_id", Value: 1}}},
		{"other field desc", "createdAt", model.SortDesc, bson.D{{Key: "createdAt", Value: -1}, {Key: "_id", Value: -1}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := visitSorts.build(tt.field, tt.order)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestSortSpecRejectsUnknown(t *testing.T) {
	_, err := patientSorts.build("ssn", "")
	assert.True(t, apperrors.IsBadRequest(err))

	_, err = patientSorts.build("lastName", "sideways")
	assert.True(t, apperrors.IsBadRequest(err))
}

func TestTextSearchFilter(t *testing.T) {
	assert.Empty(t, textSearchFilter("   ", patientSearchFields))

	single := textSearchFilter("smi", []string{"firstName", "lastName"})
	or, ok := single["$or"].(bson.A)
	require.True(t, ok)
	assert.Len(t, or, 2)
	assert.Equal(t, bson.M{"firstName": primitive.Regex{Pattern: "smi", Options: "i"}}, or[0])

	multi := textSearchFilter("jane smith", []string{"firstName", "lastName"})
	and, ok := multi["$and"].(bson.A)
	require.True(t, ok)
	assert.Len(t, and, 2)
}

func TestSearchRegexEscapesInput(t *testing.T) {
	re := searchRegex("a.b*(c)")
	assert.Equal(t, `a\.b\*\(c\)`, re.Pattern)
	assert.Equal(t, "i", re.Options)
}

func TestApplyDateRange(t *testing.T) {
	from := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(2024, 1, 31, 23, 59, 59, 0, time.UTC)

	filter := bson.M{}
	applyDateRange(filter, "scheduledDate", model.ListOptions{})
	assert.Empty(t, filter)

	applyDateRange(filter, "scheduledDate", model.ListOptions{From: &from, To: &to})
	assert.Equal(t, bson.M{"$gte": from, "$lte": to}, filter["scheduledDate"])

	filter = bson.M{}
	applyDateRange(filter, "scheduledDate", model.ListOptions{To: &to})
	assert.Equal(t, bson.M{"$lte": to}, filter["scheduledDate"])
}

func TestVisitFilter(t *testing.T) {
	assert.Empty(t, visitFilter(repository.VisitFilter{}))

	pid := primitive.NewObjectID()
	provider := primitive.NewObjectID()
	f := visitFilter(repository.VisitFilter{
		ListOptions: model.ListOptions{Status: "completed"},
		PatientIDs:  []primitive.ObjectID{pid},
		ProviderID:  &provider,
	})
	assert.Equal(t, bson.M{"$in": []primitive.ObjectID{pid}}, f["patient"])
	assert.Equal(t, provider, f["provider"])
	assert.Equal(t, "completed", f["status"])

	none := visitFilter(repository.VisitFilter{PatientIDs: []primitive.ObjectID{}})
	assert.Equal(t, bson.M{"$in": []primitive.ObjectID{}}, none["patient"])
}
