package models

// Location is an optional position reported by the device at punch time.
type Location struct {
	Latitude  float64 `bson:"latitude" json:"latitude" binding:"min=-90,max=90"`
	Longitude float64 `bson:"longitude" json:"longitude" binding:"min=-180,max=180"`
	Accuracy  float64 `bson:"accuracy,omitempty" json:"accuracy,omitempty"`
}

// Role of an application user.
type Role string

const (
	RoleAdmin  Role = "admin"
	RoleDriver Role = "driver"
)

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	return r == RoleAdmin || r == RoleDriver
}
