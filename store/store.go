// Package store is the persistence boundary. Handlers receive a Store at
// startup and never see which implementation backs it.
package store

import (
	"context"
	"errors"

	"go.mongodb.org/mongo-driver/bson"
)

const (
	Properties    = "properties"
	Leads         = "leads"
	Appointments  = "appointments"
	Conversations = "conversations"
	Messages      = "messages"
	Contacts      = "contacts"
	Users         = "users"
	Favorites     = "favorites"
)

var (
	ErrNotFound  = errors.New("document not found")
	ErrDuplicate = errors.New("duplicate document id")
)

type FindOptions struct {
	Sort       bson.D
	Skip       int64
	Limit      int64
	Projection bson.M
}

// Group is one row of a group-by-field aggregation.
type Group struct {
	Key   interface{} `json:"_id" bson:"_id"`
	Count int64       `json:"count" bson:"count"`
	Sum   float64     `json:"sum,omitempty" bson:"sum"`
}

// Month is one row of a year+month aggregation.
type Month struct {
	Year  int     `json:"year"`
	Month int     `json:"month"`
	Count int64   `json:"count"`
	Sum   float64 `json:"sum,omitempty"`
}

// Bucket counts documents whose value falls in [Min, Max). Max is nil for
// the open-ended top bucket.
type Bucket struct {
	Min   float64  `json:"min"`
	Max   *float64 `json:"max,omitempty"`
	Count int64    `json:"count"`
}

type Collection interface {
	// Find decodes every match into results, which must point to a slice.
	Find(ctx context.Context, filter bson.M, opts FindOptions, results interface{}) error
	FindOne(ctx context.Context, filter bson.M, result interface{}) error
	Count(ctx context.Context, filter bson.M) (int64, error)
	Insert(ctx context.Context, doc interface{}) error
	// Replace overwrites the first match, returning ErrNotFound if none.
	Replace(ctx context.Context, filter bson.M, doc interface{}) error
	// Update applies $set/$inc/$push/$unset to the first match and returns
	// the number of documents matched.
	Update(ctx context.Context, filter bson.M, update bson.M) (int64, error)
	UpdateMany(ctx context.Context, filter bson.M, update bson.M) (int64, error)
	Delete(ctx context.Context, filter bson.M) (int64, error)

	GroupBy(ctx context.Context, filter bson.M, field, sumField string) ([]Group, error)
	Monthly(ctx context.Context, filter bson.M, dateField, sumField string, limit int) ([]Month, error)
	Buckets(ctx context.Context, filter bson.M, field string, boundaries []float64) ([]Bucket, error)
	Sum(ctx context.Context, filter bson.M, field string) (float64, error)
}

type Store interface {
	Collection(name string) Collection
	Ping(ctx context.Context) error
	Mode() string
	Close(ctx context.Context) error
}

// ByID is the filter for a single document id.
func ByID(id interface{}) bson.M {
	return bson.M{"_id": id}
}

// upperBound returns the boundary after lower, or nil when lower is the last
// finite boundary.
func upperBound(boundaries []float64, lower float64) *float64 {
	for i := 0; i < len(boundaries)-1; i++ {
		if boundaries[i] == lower {
			upper := boundaries[i+1]
			if upper > 1e300 {
				return nil
			}
			return &upper
		}
	}
	return nil
}

func orEmpty(filter bson.M) bson.M {
	if filter == nil {
		return bson.M{}
	}
	return filter
}
