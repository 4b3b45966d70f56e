package database

import (
	"context"
	"strings"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"driver-punch-api-server/internal/models"
)

type UserRepository struct {
	coll *mongo.Collection
}

func NewUserRepository(db *mongo.Database) *UserRepository {
	return &UserRepository{coll: db.Collection(UsersCollection)}
}

func (r *UserRepository) Insert(ctx context.Context, u *models.User) error {
	u.Email = strings.ToLower(u.Email)
	res, err := r.coll.InsertOne(ctx, u)
	if err != nil {
		return storeErr(err)
	}
	u.ID = res.InsertedID.(primitive.ObjectID)
	return nil
}

func (r *UserRepository) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	return r.findOne(ctx, bson.M{"email": strings.ToLower(email)})
}

func (r *UserRepository) FindByID(ctx context.Context, id string) (*models.User, error) {
	oid, err := objectID(id)
	if err != nil {
		return nil, err
	}
	return r.findOne(ctx, bson.M{"_id": oid})
}

func (r *UserRepository) FindByDriverID(ctx context.Context, driverID string) (*models.User, error) {
	return r.findOne(ctx, bson.M{"driverId": driverID})
}

// DeleteByDriverID removes the account linked to a driver and reports how many were removed.
func (r *UserRepository) DeleteByDriverID(ctx context.Context, driverID string) (int64, error) {
	res, err := r.coll.DeleteMany(ctx, bson.M{"driverId": driverID})
	if err != nil {
		return 0, storeErr(err)
	}
	return res.DeletedCount, nil
}

// CountByEmail is used by the seeder.
func (r *UserRepository) CountByEmail(ctx context.Context, email string) (int64, error) {
	return r.coll.CountDocuments(ctx, bson.M{"email": strings.ToLower(email)})
}

func (r *UserRepository) findOne(ctx context.Context, filter bson.M) (*models.User, error) {
	var u models.User
	if err := r.coll.FindOne(ctx, filter).Decode(&u); err != nil {
		return nil, storeErr(err)
	}
	return &u, nil
}
