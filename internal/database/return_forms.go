package database

import (
	"context"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"driver-punch-api-server/internal/models"
)

type ReturnFormRepository struct {
	coll *mongo.Collection
}

func NewReturnFormRepository(db *mongo.Database) *ReturnFormRepository {
	return &ReturnFormRepository{coll: db.Collection(ReturnFormsCollection)}
}

func (r *ReturnFormRepository) Insert(ctx context.Context, f *models.ReturnForm) error {
	res, err := r.coll.InsertOne(ctx, f)
	if err != nil {
		return storeErr(err)
	}
	f.ID = res.InsertedID.(primitive.ObjectID)
	return nil
}

func (r *ReturnFormRepository) FindByID(ctx context.Context, id string) (*models.ReturnForm, error) {
	oid, err := objectID(id)
	if err != nil {
		return nil, err
	}
	var f models.ReturnForm
	if err := r.coll.FindOne(ctx, bson.M{"_id": oid}).Decode(&f); err != nil {
		return nil, storeErr(err)
	}
	return &f, nil
}

// List returns forms newest first.
func (r *ReturnFormRepository) List(ctx context.Context, filter models.FormFilter, limit int64) ([]models.ReturnForm, error) {
	q := bson.M{}
	if filter.Status != "" {
		q["status"] = filter.Status
	}
	if filter.DriverID != "" {
		q["driverId"] = filter.DriverID
	}
	opts := options.Find().SetSort(bson.D{{Key: "submittedAt", Value: -1}, {Key: "_id", Value: -1}})
	if limit > 0 {
		opts.SetLimit(limit)
	}
	cur, err := r.coll.Find(ctx, q, opts)
	if err != nil {
		return nil, err
	}
	return decodeAll[models.ReturnForm](ctx, cur)
}

// SetStatus changes only the status field.
func (r *ReturnFormRepository) SetStatus(ctx context.Context, id string, status models.FormStatus) error {
	oid, err := objectID(id)
	if err != nil {
		return err
	}
	res, err := r.coll.UpdateOne(ctx, bson.M{"_id": oid}, bson.M{"$set": bson.M{"status": status}})
	if err != nil {
		return storeErr(err)
	}
	if res.MatchedCount == 0 {
		return models.ErrNotFound
	}
	return nil
}
