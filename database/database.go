package database

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	UsersCollection     = "users"
	ListingsCollection  = "listings"
	LocationsCollection = "locations"
)

type DB struct {
	Client    *mongo.Client
	Database  *mongo.Database
	Users     *mongo.Collection
	Listings  *mongo.Collection
	Locations *mongo.Collection
}

func Connect(ctx context.Context, uri, name string) (*DB, error) {
	ctx, cancel := context.WithTimeout(ctx, 15*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, err
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, err
	}

	db := client.Database(name)
	return &DB{
		Client:    client,
		Database:  db,
		Users:     db.Collection(UsersCollection),
		Listings:  db.Collection(ListingsCollection),
		Locations: db.Collection(LocationsCollection),
	}, nil
}

// ConnectWithRetry tries Connect up to attempts times, pausing between tries.
func ConnectWithRetry(ctx context.Context, log *slog.Logger, uri, name string, attempts int) (*DB, error) {
	var lastErr error
	for i := 1; i <= attempts; i++ {
		db, err := Connect(ctx, uri, name)
		if err == nil {
			log.Info("connected to MongoDB", "database", name)
			return db, nil
		}
		lastErr = err
		log.Warn("MongoDB connection attempt failed", "attempt", i, "error", err)

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(2 * time.Second):
		}
	}
	return nil, fmt.Errorf("connect to MongoDB: %w", lastErr)
}

func (d *DB) Disconnect(ctx context.Context) error {
	if d == nil || d.Client == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	return d.Client.Disconnect(ctx)
}

// listingIndexes covers only documents that carry a titleKey in the unique
// index; listings written before titleKey existed would otherwise collide
// as (owner, null).
func listingIndexes() []mongo.IndexModel {
	return []mongo.IndexModel{
		{
			Keys: bson.D{{Key: "createdBy", Value: 1}, {Key: "titleKey", Value: 1}},
			Options: options.Index().SetUnique(true).SetName("owner_title_unique").
				SetPartialFilterExpression(bson.M{"titleKey": bson.M{"$type": "string"}}),
		},
		{
			Keys:    bson.D{{Key: "status", Value: 1}, {Key: "address.district", Value: 1}, {Key: "createdAt", Value: -1}},
			Options: options.Index().SetName("visibility"),
		},
		{
			Keys:    bson.D{{Key: "createdBy", Value: 1}, {Key: "createdAt", Value: -1}},
			Options: options.Index().SetName("owner_recent"),
		},
	}
}

// EnsureIndexes creates the indexes the application relies on. The unique
// (createdBy, titleKey) index backs the per-owner duplicate title rule.
func (d *DB) EnsureIndexes(ctx context.Context) error {
	specs := map[*mongo.Collection][]mongo.IndexModel{
		d.Users: {
			{Keys: bson.D{{Key: "email", Value: 1}}, Options: options.Index().SetUnique(true).SetName("email_unique")},
			{Keys: bson.D{{Key: "phoneNumber", Value: 1}}, Options: options.Index().SetUnique(true).SetName("phone_unique")},
		},
		d.Listings: listingIndexes(),
		d.Locations: {
			{Keys: bson.D{{Key: "pincode", Value: 1}}, Options: options.Index().SetName("pincode")},
			{Keys: bson.D{{Key: "statename", Value: 1}, {Key: "Districtname", Value: 1}}, Options: options.Index().SetName("state_district")},
		},
	}

	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()
	for coll, models := range specs {
		if _, err := coll.Indexes().CreateMany(ctx, models); err != nil {
			return fmt.Errorf("create indexes on %s: %w", coll.Name(), err)
		}
	}
	return nil
}
