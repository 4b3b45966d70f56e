package database

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"driver-punch-api-server/internal/models"
)

type DriverRepository struct {
	coll *mongo.Collection
}

func NewDriverRepository(db *mongo.Database) *DriverRepository {
	return &DriverRepository{coll: db.Collection(DriversCollection)}
}

func (r *DriverRepository) Insert(ctx context.Context, d *models.Driver) error {
	res, err := r.coll.InsertOne(ctx, d)
	if err != nil {
		return storeErr(err)
	}
	d.ID = res.InsertedID.(primitive.ObjectID)
	return nil
}

func (r *DriverRepository) FindByDriverID(ctx context.Context, driverID string) (*models.Driver, error) {
	var d models.Driver
	if err := r.coll.FindOne(ctx, bson.M{"driverId": driverID}).Decode(&d); err != nil {
		return nil, storeErr(err)
	}
	return &d, nil
}

func (r *DriverRepository) List(ctx context.Context, activeOnly bool) ([]models.Driver, error) {
	filter := bson.M{}
	if activeOnly {
		filter["active"] = true
	}
	opts := options.Find().SetSort(bson.D{{Key: "name", Value: 1}})
	cur, err := r.coll.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	return decodeAll[models.Driver](ctx, cur)
}

func (r *DriverRepository) Update(ctx context.Context, driverID string, upd models.DriverUpdate) error {
	set := bson.M{"updatedAt": upd.UpdatedAt}
	if upd.Name != nil {
		set["name"] = *upd.Name
	}
	if upd.Email != nil {
		set["email"] = *upd.Email
	}
	if upd.Phone != nil {
		set["phone"] = *upd.Phone
	}
	if upd.PIN != nil {
		set["pin"] = *upd.PIN
	}
	if upd.Active != nil {
		set["active"] = *upd.Active
	}
	return r.updateOne(ctx, driverID, bson.M{"$set": set})
}

func (r *DriverRepository) SetFace(ctx context.Context, driverID string, descriptor []float64, at time.Time) error {
	return r.updateOne(ctx, driverID, bson.M{"$set": bson.M{
		"faceDescriptor": descriptor,
		"faceEnrolledAt": at,
		"updatedAt":      at,
	}})
}

func (r *DriverRepository) Delete(ctx context.Context, driverID string) error {
	res, err := r.coll.DeleteOne(ctx, bson.M{"driverId": driverID})
	if err != nil {
		return storeErr(err)
	}
	if res.DeletedCount == 0 {
		return models.ErrNotFound
	}
	return nil
}

func (r *DriverRepository) updateOne(ctx context.Context, driverID string, update bson.M) error {
	res, err := r.coll.UpdateOne(ctx, bson.M{"driverId": driverID}, update)
	if err != nil {
		return storeErr(err)
	}
	if res.MatchedCount == 0 {
		return models.ErrNotFound
	}
	return nil
}
