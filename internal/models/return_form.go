package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// ItemCondition of a returned item.
type ItemCondition string

const (
	ConditionGood    ItemCondition = "good"
	ConditionDamaged ItemCondition = "damaged"
	ConditionMissing ItemCondition = "missing"
)

// FormStatus is the approval state of a return form.
type FormStatus string

const (
	StatusPending  FormStatus = "pending"
	StatusApproved FormStatus = "approved"
	StatusRejected FormStatus = "rejected"
)

// Decided reports whether s is one of the terminal decisions.
func (s FormStatus) Decided() bool {
	return s == StatusApproved || s == StatusRejected
}

type ReturnItem struct {
	Name      string        `bson:"name" json:"name" validate:"required"`
	Quantity  int           `bson:"quantity" json:"quantity" validate:"min=1,max=100000"`
	Condition ItemCondition `bson:"condition" json:"condition" validate:"oneof=good damaged missing"`
	Notes     string        `bson:"notes,omitempty" json:"notes,omitempty"`
}

type ReturnForm struct {
	ID          primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	DriverID    string             `bson:"driverId" json:"driverId"`
	DriverName  string             `bson:"driverName" json:"driverName"`
	PunchLogID  string             `bson:"punchLogId" json:"punchLogId"`
	Items       []ReturnItem       `bson:"items" json:"items"`
	TotalItems  int                `bson:"totalItems" json:"totalItems"`
	SubmittedAt time.Time          `bson:"submittedAt" json:"submittedAt"`
	Status      FormStatus         `bson:"status" json:"status"`
}

// FormFilter narrows return-form queries. Zero values are ignored.
type FormFilter struct {
	Status   FormStatus
	DriverID string
}
