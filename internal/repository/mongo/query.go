package mongo

import (
	"regexp"
	"strings"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/jwalitptl/wellness-api/internal/model"
	apperrors "github.com/jwalitptl/wellness-api/pkg/errors"
)

var patientSearchFields = []string{"firstName", "lastName", "email", "phone"}

// sortSpec describes the sortable fields of a collection.
type sortSpec struct {
	allowed      map[string]string
	defaultField string
	defaultOrder model.SortDirection
}

var (
	visitSorts = sortSpec{
		allowed: map[string]string{
			"scheduledDate": "scheduledDate",
			"createdAt":     "createdAt",
			"updatedAt":     "updatedAt",
			"status":        "status",
		},
		defaultField: "scheduledDate",
		defaultOrder: model.SortDesc,
	}
	patientSorts = sortSpec{
		allowed: map[string]string{
			"lastName":    "lastName",
			"firstName":   "firstName",
			"email":       "email",
			"dateOfBirth": "dateOfBirth",
			"createdAt":   "createdAt",
			"updatedAt":   "updatedAt",
		},
		defaultField: "lastName",
		defaultOrder: model.SortAsc,
	}
	templateSorts = sortSpec{
		allowed: map[string]string{
			"name":      "name",
			"version":   "version",
			"createdAt": "createdAt",
			"updatedAt": "updatedAt",
		},
		defaultField: "name",
		defaultOrder: model.SortAsc,
	}
	userSorts = sortSpec{
		allowed: map[string]string{
			"name":      "name",
			"email":     "email",
			"role":      "role",
			"status":    "status",
			"createdAt": "createdAt",
		},
		defaultField: "name",
		defaultOrder: model.SortAsc,
	}
)

// build resolves the requested sort into a driver sort document. _id is
// always the tie-breaker so pages are stable.
func (s sortSpec) build(field string, order model.SortDirection) (bson.D, error) {
	column := s.allowed[s.defaultField]
	if field != "" {
		c, ok := s.allowed[field]
		if !ok {
			return nil, apperrors.Validation("cannot sort by %q", field)
		}
		column = c
	}

	if order == "" {
		order = s.defaultOrder
		if field != "" && field != s.defaultField {
			order = model.SortAsc
		}
	}

	dir := 1
	switch order {
	case model.SortAsc:
	case model.SortDesc:
		dir = -1
	default:
		return nil, apperrors.Validation("order must be asc or desc")
	}

	return bson.D{{Key: column, Value: dir}, {Key: "_id", Value: dir}}, nil
}

// searchRegex matches text case-insensitively as a literal substring.
func searchRegex(text string) primitive.Regex {
	return primitive.Regex{Pattern: regexp.QuoteMeta(text), Options: "i"}
}

// textSearchFilter requires every whitespace-separated term to match at
// least one of the fields.
func textSearchFilter(search string, fields []string) bson.M {
	terms := strings.Fields(search)
	if len(terms) == 0 {
		return bson.M{}
	}

	clauses := make(bson.A, 0, len(terms))
	for _, term := range terms {
		re := searchRegex(term)
		or := make(bson.A, 0, len(fields))
		for _, f := range fields {
			or = append(or, bson.M{f: re})
		}
		clauses = append(clauses, bson.M{"$or": or})
	}
	if len(clauses) == 1 {
		return clauses[0].(bson.M)
	}
	return bson.M{"$and": clauses}
}

// applyDateRange adds an inclusive range on field to filter.
func applyDateRange(filter bson.M, field string, opts model.ListOptions) {
	if opts.From == nil && opts.To == nil {
		return
	}
	rng := bson.M{}
	if opts.From != nil {
		rng["$gte"] = *opts.From
	}
	if opts.To != nil {
		rng["$lte"] = *opts.To
	}
	filter[field] = rng
}

func pageOptions(opts model.ListOptions, sort bson.D) *options.FindOptions {
	return options.Find().
		SetSort(sort).
		SetSkip(opts.Skip()).
		SetLimit(int64(opts.Limit))
}
