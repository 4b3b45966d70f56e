// Package database holds the MongoDB repositories behind the services.
package database

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"driver-punch-api-server/config"
	"driver-punch-api-server/internal/models"
)

// Collection names.
const (
	UsersCollection         = "users"
	DriversCollection       = "drivers"
	PunchLogsCollection     = "punchLogs"
	ReturnFormsCollection   = "returnForms"
	RevokedTokensCollection = "revokedTokens"
)

const connectTimeout = 10 * time.Second

// Connect opens a client and pings the primary.
func Connect(ctx context.Context, cfg config.MongoConfig) (*mongo.Client, *mongo.Database, error) {
	ctx, cancel := context.WithTimeout(ctx, connectTimeout)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.URI))
	if err != nil {
		return nil, nil, fmt.Errorf("connect mongo: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, nil, fmt.Errorf("ping mongo: %w", err)
	}
	return client, client.Database(cfg.DBName), nil
}

// EnsureIndexes creates the indexes the repositories rely on. It is idempotent.
func EnsureIndexes(ctx context.Context, db *mongo.Database) error {
	indexes := map[string][]mongo.IndexModel{
		UsersCollection: {
			{Keys: bson.D{{Key: "email", Value: 1}}, Options: options.Index().SetUnique(true)},
			{
				Keys: bson.D{{Key: "driverId", Value: 1}},
				Options: options.Index().SetUnique(true).
					SetPartialFilterExpression(bson.M{"driverId": bson.M{"$type": "string"}}),
			},
		},
		DriversCollection: {
			{Keys: bson.D{{Key: "driverId", Value: 1}}, Options: options.Index().SetUnique(true)},
			{Keys: bson.D{{Key: "name", Value: 1}}},
		},
		PunchLogsCollection: {
			{Keys: bson.D{{Key: "driverId", Value: 1}, {Key: "timestamp", Value: -1}}},
			{Keys: bson.D{{Key: "timestamp", Value: -1}}},
			// Conditional append: one successor per observed latest punch.
			{
				Keys:    bson.D{{Key: "driverId", Value: 1}, {Key: "previousId", Value: 1}},
				Options: options.Index().SetUnique(true),
			},
		},
		ReturnFormsCollection: {
			{Keys: bson.D{{Key: "status", Value: 1}, {Key: "submittedAt", Value: -1}}},
			{Keys: bson.D{{Key: "driverId", Value: 1}, {Key: "submittedAt", Value: -1}}},
		},
		RevokedTokensCollection: {
			{Keys: bson.D{{Key: "jti", Value: 1}}, Options: options.Index().SetUnique(true)},
			{Keys: bson.D{{Key: "expiresAt", Value: 1}}, Options: options.Index().SetExpireAfterSeconds(0)},
		},
	}
	for name, idx := range indexes {
		if _, err := db.Collection(name).Indexes().CreateMany(ctx, idx); err != nil {
			return fmt.Errorf("create indexes on %s: %w", name, err)
		}
	}
	return nil
}

// storeErr maps driver errors onto the shared sentinels.
func storeErr(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, mongo.ErrNoDocuments):
		return models.ErrNotFound
	case mongo.IsDuplicateKeyError(err):
		return fmt.Errorf("%w: %v", models.ErrConflict, err)
	default:
		return err
	}
}

// objectID parses a hex id; malformed ids cannot exist and read as not found.
func objectID(id string) (primitive.ObjectID, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return primitive.NilObjectID, models.ErrNotFound
	}
	return oid, nil
}

func decodeAll[T any](ctx context.Context, cur *mongo.Cursor) ([]T, error) {
	defer cur.Close(ctx)
	out := []T{}
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}
