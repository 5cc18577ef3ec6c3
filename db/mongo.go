package db

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Mongo is the Store backed by a MongoDB database.
type Mongo struct {
	client   *mongo.Client
	database *mongo.Database
}

// Connect dials MongoDB and pings it. The caller owns the returned handle
// and must Close it on shutdown.
func Connect(ctx context.Context, uri, dbName string) (*Mongo, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("connect mongo: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("ping mongo: %w", err)
	}
	return &Mongo{client: client, database: client.Database(dbName)}, nil
}

// Close disconnects the client.
func (m *Mongo) Close(ctx context.Context) error {
	return m.client.Disconnect(ctx)
}

func (m *Mongo) col(name string) *mongo.Collection {
	return m.database.Collection(name)
}

// EnsureIndexes creates the lookup indexes the services query on. Tracking
// ids are indexed but deliberately not unique.
func (m *Mongo) EnsureIndexes(ctx context.Context) error {
	plan := map[string][]mongo.IndexModel{
		Orders: {
			{Keys: bson.D{{Key: "userId", Value: 1}, {Key: "createdAt", Value: -1}}},
			{Keys: bson.M{"trackingId": 1}},
		},
		ShopOrders: {
			{Keys: bson.M{"userId": 1}},
			{Keys: bson.D{{Key: "shopId", Value: 1}, {Key: "createdAt", Value: -1}}},
		},
		OrderItems:       {{Keys: bson.M{"orderId": 1}}},
		DeliveryTracking: {{Keys: bson.M{"orderId": 1}}, {Keys: bson.M{"trackingId": 1}}},
		Reviews:          {{Keys: bson.D{{Key: "productId", Value: 1}, {Key: "userId", Value: 1}}}},
		Users:            {{Keys: bson.M{"email": 1}}},
		Idempotency: {
			{Keys: bson.M{"expires_at": 1}, Options: options.Index().SetExpireAfterSeconds(0).SetName("ttl_expires_at")},
		},
	}
	for coll, idxs := range plan {
		if _, err := m.col(coll).Indexes().CreateMany(ctx, idxs); err != nil {
			return fmt.Errorf("create indexes on %s: %w", coll, err)
		}
	}
	return nil
}

func translate(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, mongo.ErrNoDocuments):
		return ErrNotFound
	case mongo.IsDuplicateKeyError(err):
		return fmt.Errorf("%w: %v", ErrDuplicate, err)
	}
	return err
}

func (m *Mongo) InsertOne(ctx context.Context, coll string, doc any) error {
	_, err := m.col(coll).InsertOne(ctx, doc)
	return translate(err)
}

// InsertMany issues one ordered insert. A standalone server has no
// multi-document transactions, so a failed batch is rolled back by deleting
// whatever made it in before the failing document.
func (m *Mongo) InsertMany(ctx context.Context, coll string, docs []any) error {
	if len(docs) == 0 {
		return nil
	}
	res, err := m.col(coll).InsertMany(ctx, docs)
	if err == nil {
		return nil
	}
	var bwe mongo.BulkWriteException
	if res != nil && errors.As(err, &bwe) && len(bwe.WriteErrors) > 0 {
		n := bwe.WriteErrors[0].Index
		if n > len(res.InsertedIDs) {
			n = len(res.InsertedIDs)
		}
		if n > 0 {
			_, _ = m.col(coll).DeleteMany(ctx, bson.M{"_id": bson.M{"$in": res.InsertedIDs[:n]}})
		}
	}
	return translate(err)
}

func (m *Mongo) FindOne(ctx context.Context, coll string, filter bson.M, out any) error {
	return translate(m.col(coll).FindOne(ctx, filter).Decode(out))
}

func (m *Mongo) Find(ctx context.Context, coll string, filter bson.M, opts FindOptions, out any) error {
	fo := options.Find()
	if opts.SortField != "" {
		dir := 1
		if opts.SortDesc {
			dir = -1
		}
		fo.SetSort(bson.D{{Key: opts.SortField, Value: dir}})
	}
	if opts.Skip > 0 {
		fo.SetSkip(opts.Skip)
	}
	if opts.Limit > 0 {
		fo.SetLimit(opts.Limit)
	}
	cursor, err := m.col(coll).Find(ctx, filter, fo)
	if err != nil {
		return translate(err)
	}
	defer cursor.Close(ctx)
	return translate(cursor.All(ctx, out))
}

func (m *Mongo) UpdateOne(ctx context.Context, coll string, filter bson.M, update bson.M) (int64, error) {
	res, err := m.col(coll).UpdateOne(ctx, filter, update)
	if err != nil {
		return 0, translate(err)
	}
	return res.MatchedCount, nil
}

func (m *Mongo) DeleteOne(ctx context.Context, coll string, filter bson.M) (int64, error) {
	res, err := m.col(coll).DeleteOne(ctx, filter)
	if err != nil {
		return 0, translate(err)
	}
	return res.DeletedCount, nil
}

func (m *Mongo) Ping(ctx context.Context) error {
	return m.client.Ping(ctx, nil)
}
