package database

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// RevokedTokenRepository is the sign-out denylist used when Redis is not configured.
// Documents expire through the TTL index on expiresAt.
type RevokedTokenRepository struct {
	coll *mongo.Collection
	now  func() time.Time
}

func NewRevokedTokenRepository(db *mongo.Database) *RevokedTokenRepository {
	return &RevokedTokenRepository{coll: db.Collection(RevokedTokensCollection), now: time.Now}
}

func (r *RevokedTokenRepository) Revoke(ctx context.Context, jti string, expiresAt time.Time) error {
	_, err := r.coll.UpdateOne(ctx,
		bson.M{"jti": jti},
		bson.M{"$set": bson.M{"jti": jti, "expiresAt": expiresAt}},
		options.Update().SetUpsert(true),
	)
	return storeErr(err)
}

// IsRevoked ignores entries past expiry; the TTL monitor only runs once a minute.
func (r *RevokedTokenRepository) IsRevoked(ctx context.Context, jti string) (bool, error) {
	n, err := r.coll.CountDocuments(ctx, bson.M{"jti": jti, "expiresAt": bson.M{"$gt": r.now()}})
	if err != nil {
		return false, err
	}
	return n > 0, nil
}
