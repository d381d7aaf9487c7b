package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// VehicleDirection marks a gate movement as inbound or outbound.
type VehicleDirection string

const (
	VehicleIn  VehicleDirection = "in"
	VehicleOut VehicleDirection = "out"
)

// VehicleLog records one vehicle movement through the society gate,
// written by a security guard.
type VehicleLog struct {
	Base        `bson:",inline"`
	Plate       string             `bson:"plate" json:"plate"`
	Direction   VehicleDirection   `bson:"direction" json:"direction"`
	VisitorName string             `bson:"visitor_name,omitempty" json:"visitor_name,omitempty"`
	HouseID     string             `bson:"house_id,omitempty" json:"house_id,omitempty"` // Visited house, if known
	GuardID     primitive.ObjectID `bson:"guard_id" json:"guard_id"`
	LoggedAt    time.Time          `bson:"logged_at" json:"logged_at"`
}
