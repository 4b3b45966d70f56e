package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type Driver struct {
	ID             primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	DriverID       string             `bson:"driverId" json:"driverId"` // external id, e.g. "DRV-1a2b3c4d"
	Name           string             `bson:"name" json:"name"`
	Email          string             `bson:"email,omitempty" json:"email,omitempty"`
	Phone          string             `bson:"phone,omitempty" json:"phone,omitempty"`
	PIN            string             `bson:"pin" json:"-"` // bcrypt hash
	FaceDescriptor []float64          `bson:"faceDescriptor,omitempty" json:"-"`
	FaceEnrolledAt *time.Time         `bson:"faceEnrolledAt,omitempty" json:"faceEnrolledAt,omitempty"`
	Active         bool               `bson:"active" json:"active"`
	CreatedAt      time.Time          `bson:"createdAt" json:"createdAt"`
	UpdatedAt      time.Time          `bson:"updatedAt" json:"updatedAt"`
}

// FaceEnrolled reports whether a descriptor has been captured for the driver.
func (d Driver) FaceEnrolled() bool {
	return len(d.FaceDescriptor) > 0
}

// DriverView is the JSON shape returned to clients.
type DriverView struct {
	Driver
	FaceEnrolled bool `json:"faceEnrolled"`
}

func (d Driver) View() DriverView {
	return DriverView{Driver: d, FaceEnrolled: d.FaceEnrolled()}
}

// DriverUpdate is a partial update; nil fields are left unchanged.
type DriverUpdate struct {
	Name      *string
	Email     *string
	Phone     *string
	PIN       *string
	Active    *bool
	UpdatedAt time.Time
}
