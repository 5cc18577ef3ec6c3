package db

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
)

// Collection names.
const (
	Products         = "products"
	Reviews          = "reviews"
	Orders           = "orders"
	OrderItems       = "orderItems"
	ShopOrders       = "shopOrders"
	Addresses        = "addresses"
	Payments         = "payments"
	DeliveryTracking = "deliveryTracking"
	Users            = "users"
	Categories       = "categories"
	Settings         = "settings"
	Test             = "test"
	Idempotency      = "idempotency"
)

var (
	ErrNotFound  = errors.New("document not found")
	ErrDuplicate = errors.New("duplicate key")
)

// FindOptions narrows a Find call. Zero values mean "no sort / no limit".
type FindOptions struct {
	SortField string
	SortDesc  bool
	Skip      int64
	Limit     int64
}

// Store is the document store used by every service. Filters and updates
// use bson.M in the MongoDB query dialect; updates support $set, $push and
// $inc. Documents carry their own string "_id".
type Store interface {
	InsertOne(ctx context.Context, coll string, doc any) error
	// InsertMany writes all docs or none.
	InsertMany(ctx context.Context, coll string, docs []any) error
	FindOne(ctx context.Context, coll string, filter bson.M, out any) error
	// Find decodes every match into out, which must point to a slice.
	Find(ctx context.Context, coll string, filter bson.M, opts FindOptions, out any) error
	// UpdateOne applies update to the first match and reports how many
	// documents matched (0 or 1).
	UpdateOne(ctx context.Context, coll string, filter bson.M, update bson.M) (int64, error)
	DeleteOne(ctx context.Context, coll string, filter bson.M) (int64, error)
	Ping(ctx context.Context) error
}

// ByID is the filter for a document id.
func ByID(id string) bson.M {
	return bson.M{"_id": id}
}

// Probe writes and reads back a document in the test collection.
func Probe(ctx context.Context, s Store, id string) error {
	doc := bson.M{"_id": id, "at": time.Now().UTC()}
	if err := s.InsertOne(ctx, Test, doc); err != nil {
		return err
	}
	var back bson.M
	if err := s.FindOne(ctx, Test, ByID(id), &back); err != nil {
		return err
	}
	_, err := s.DeleteOne(ctx, Test, ByID(id))
	return err
}
