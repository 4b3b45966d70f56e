package database

import (
	"context"
	"errors"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"driver-punch-api-server/internal/models"
)

// PunchLogRepository is the append-only ledger. Entries are never updated or deleted.
type PunchLogRepository struct {
	coll *mongo.Collection
}

func NewPunchLogRepository(db *mongo.Database) *PunchLogRepository {
	return &PunchLogRepository{coll: db.Collection(PunchLogsCollection)}
}

var newestFirst = bson.D{{Key: "timestamp", Value: -1}, {Key: "_id", Value: -1}}

// Latest returns the driver's newest entry, or nil when there is none.
func (r *PunchLogRepository) Latest(ctx context.Context, driverID string) (*models.PunchLog, error) {
	var p models.PunchLog
	err := r.coll.FindOne(ctx, bson.M{"driverId": driverID}, options.FindOne().SetSort(newestFirst)).Decode(&p)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// Append inserts the entry. A second successor of the same previous entry violates the
// {driverId, previousId} index and is reported as models.ErrConflict.
func (r *PunchLogRepository) Append(ctx context.Context, entry *models.PunchLog) error {
	res, err := r.coll.InsertOne(ctx, entry)
	if err != nil {
		return storeErr(err)
	}
	entry.ID = res.InsertedID.(primitive.ObjectID)
	return nil
}

func (r *PunchLogRepository) FindByID(ctx context.Context, id string) (*models.PunchLog, error) {
	oid, err := objectID(id)
	if err != nil {
		return nil, err
	}
	var p models.PunchLog
	if err := r.coll.FindOne(ctx, bson.M{"_id": oid}).Decode(&p); err != nil {
		return nil, storeErr(err)
	}
	return &p, nil
}

// List returns entries newest first.
func (r *PunchLogRepository) List(ctx context.Context, filter models.PunchFilter, limit int64) ([]models.PunchLog, error) {
	q := bson.M{}
	if filter.DriverID != "" {
		q["driverId"] = filter.DriverID
	}
	ts := bson.M{}
	if !filter.From.IsZero() {
		ts["$gte"] = filter.From
	}
	if !filter.To.IsZero() {
		ts["$lt"] = filter.To
	}
	if len(ts) > 0 {
		q["timestamp"] = ts
	}
	opts := options.Find().SetSort(newestFirst)
	if limit > 0 {
		opts.SetLimit(limit)
	}
	cur, err := r.coll.Find(ctx, q, opts)
	if err != nil {
		return nil, err
	}
	return decodeAll[models.PunchLog](ctx, cur)
}
