package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// User is an application account. Its ID is the identity carried in tokens.
type User struct {
	ID        primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Email     string             `bson:"email" json:"email"`
	Password  string             `bson:"password" json:"-"`
	Role      Role               `bson:"role" json:"role"`
	DriverID  string             `bson:"driverId,omitempty" json:"driverId,omitempty"`
	CreatedAt time.Time          `bson:"createdAt" json:"createdAt"`
}
