package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Direction of a punch.
type Direction string

const (
	PunchIn  Direction = "in"
	PunchOut Direction = "out"
)

// PunchMethod records how a punch was authorized.
type PunchMethod string

const (
	MethodPIN  PunchMethod = "pin"
	MethodFace PunchMethod = "face"
)

// PunchLog is one immutable ledger entry.
type PunchLog struct {
	ID         primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	DriverID   string             `bson:"driverId" json:"driverId"`
	DriverName string             `bson:"driverName" json:"driverName"`
	Type       Direction          `bson:"type" json:"type"`
	Timestamp  time.Time          `bson:"timestamp" json:"timestamp"`
	Method     PunchMethod        `bson:"method" json:"method"`
	Location   *Location          `bson:"location,omitempty" json:"location,omitempty"`
	// PreviousID is the latest entry observed when this punch was decided ("" for the first).
	PreviousID string `bson:"previousId" json:"previousId,omitempty"`
}

// PunchFilter narrows ledger queries. Zero values are ignored.
type PunchFilter struct {
	DriverID string
	From     time.Time
	To       time.Time
}
