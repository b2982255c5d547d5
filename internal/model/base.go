package model

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	apperrors "github.com/jwalitptl/wellness-api/pkg/errors"
)

// Base contains common fields for all stored records
type Base struct {
	ID        primitive.ObjectID `json:"id" bson:"_id,omitempty"`
	CreatedAt time.Time          `json:"createdAt" bson:"createdAt"`
	UpdatedAt time.Time          `json:"updatedAt" bson:"updatedAt"`
}

// Touch stamps the record for insert or update.
func (b *Base) Touch(now time.Time) {
	if b.CreatedAt.IsZero() {
		b.CreatedAt = now
	}
	b.UpdatedAt = now
}

// ParseID parses a hex record identifier. Malformed input is a validation
// error naming the resource.
func ParseID(s, resource string) (primitive.ObjectID, error) {
	id, err := primitive.ObjectIDFromHex(strings.TrimSpace(s))
	if err != nil {
		return primitive.NilObjectID, apperrors.Validation("invalid %s id %q", resource, s)
	}
	return id, nil
}

const (
	DefaultPageSize = 20
	MaxPageSize     = 100
)

type SortDirection string

const (
	SortAsc  SortDirection = "asc"
	SortDesc SortDirection = "desc"
)

// ListOptions carries list, filter, sort and pagination parameters.
type ListOptions struct {
	Page   int
	Limit  int
	Search string
	Status string
	Role   string
	From   *time.Time
	To     *time.Time
	Sort   string
	Order  SortDirection
	Active *bool
}

// Normalize applies paging defaults and bounds.
func (o *ListOptions) Normalize() {
	if o.Page < 1 {
		o.Page = 1
	}
	if o.Limit < 1 {
		o.Limit = DefaultPageSize
	}
	if o.Limit > MaxPageSize {
		o.Limit = MaxPageSize
	}
	o.Search = strings.TrimSpace(o.Search)
	o.Order = SortDirection(strings.ToLower(string(o.Order)))
}

func (o ListOptions) Skip() int64 {
	if o.Page < 1 {
		return 0
	}
	return int64(o.Page-1) * int64(o.Limit)
}

// Page is one page of a list result.
type Page[T any] struct {
	Items []T
	Total int64
	Page  int
	Limit int
}

// JSONMap represents a generic JSON object
type JSONMap map[string]interface{}

func (m JSONMap) Value() (driver.Value, error) {
	if m == nil {
		return nil, nil
	}
	return json.Marshal(m)
}

func (m *JSONMap) Scan(src interface{}) error {
	if src == nil {
		*m = nil
		return nil
	}
	var b []byte
	switch v := src.(type) {
	case []byte:
		b = v
	case string:
		b = []byte(v)
	default:
		return errors.New("unsupported JSONMap source type")
	}
	return json.Unmarshal(b, m)
}

// ToJSONMap converts any JSON-encodable value into a JSONMap.
func ToJSONMap(v interface{}) (JSONMap, error) {
	if v == nil {
		return nil, nil
	}
	b, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var m JSONMap
	if err := json.Unmarshal(b, &m); err != nil {
		return JSONMap{"value": json.RawMessage(b)}, nil
	}
	return m, nil
}
