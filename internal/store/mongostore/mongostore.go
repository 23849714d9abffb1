// Package mongostore implements the application repositories on MongoDB.
// Documents use hex ObjectID strings as _id so records keep the same opaque
// string ids as the SQLite backend.
package mongostore

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const connectTimeout = 10 * time.Second

// DB holds the MongoDB client and database.
type DB struct {
	client   *mongo.Client
	database *mongo.Database
}

// Connect opens a client, verifies it with a ping and ensures indexes.
func Connect(ctx context.Context, uri, dbName string) (*DB, error) {
	ctx, cancel := context.WithTimeout(ctx, connectTimeout)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("connect mongodb: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		client.Disconnect(context.Background())
		return nil, fmt.Errorf("ping mongodb: %w", err)
	}

	db := &DB{client: client, database: client.Database(dbName)}
	if err := db.ensureIndexes(ctx); err != nil {
		client.Disconnect(context.Background())
		return nil, err
	}
	return db, nil
}

func (d *DB) Ping(ctx context.Context) error {
	return d.client.Ping(ctx, nil)
}

func (d *DB) Close(ctx context.Context) error {
	return d.client.Disconnect(ctx)
}

func (d *DB) Users() *UserStore {
	return &UserStore{coll: d.database.Collection("users")}
}

func (d *DB) Listings() *ListingStore {
	return &ListingStore{coll: d.database.Collection("listings"), reviews: d.database.Collection("reviews")}
}

func (d *DB) Reviews() *ReviewStore {
	return &ReviewStore{coll: d.database.Collection("reviews"), users: d.database.Collection("users")}
}

func (d *DB) Sessions() *SessionStore {
	return &SessionStore{coll: d.database.Collection("sessions")}
}

func (d *DB) Journeys() *JourneyStore {
	return &JourneyStore{coll: d.database.Collection("journeys")}
}

func (d *DB) ensureIndexes(ctx context.Context) error {
	indexes := map[string][]mongo.IndexModel{
		"users": {
			{Keys: bson.D{{Key: "username", Value: 1}}, Options: options.Index().SetUnique(true)},
			{Keys: bson.D{{Key: "email", Value: 1}}, Options: options.Index().SetUnique(true)},
		},
		"listings": {
			{Keys: bson.D{{Key: "owner_id", Value: 1}}},
			{Keys: bson.D{{Key: "country", Value: 1}}},
		},
		"reviews": {
			{Keys: bson.D{{Key: "listing_id", Value: 1}}},
		},
		// expired sessions are reaped by the server even without DeleteExpired
		"sessions": {
			{Keys: bson.D{{Key: "expires_at", Value: 1}}, Options: options.Index().SetExpireAfterSeconds(0)},
		},
	}
	for coll, models := range indexes {
		if _, err := d.database.Collection(coll).Indexes().CreateMany(ctx, models); err != nil {
			return fmt.Errorf("ensure %s indexes: %w", coll, err)
		}
	}
	return nil
}

func newID() string {
	return primitive.NewObjectID().Hex()
}

// now truncates to milliseconds, the resolution BSON dates keep.
func now() time.Time {
	return time.Now().UTC().Truncate(time.Millisecond)
}

func newestFirst(limit int) *options.FindOptions {
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}, {Key: "_id", Value: -1}})
	if limit > 0 {
		opts.SetLimit(int64(limit))
	}
	return opts
}
