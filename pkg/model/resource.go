package model

import "time"

const (
	ResourceWorkspace   = "workspace"
	ResourceMeetingRoom = "meeting_room"
	ResourceEquipment   = "equipment"
)

const (
	Occupied         = "occupied"
	NotOccupied      = "not_occupied"
	UnderMaintenance = "under_maintenance"
)

// MaxPricePerHour caps the hourly rate in minor units.
const MaxPricePerHour = 100_000_000

// ResourceTypes lists every bookable kind, in display order.
var ResourceTypes = []string{ResourceWorkspace, ResourceMeetingRoom, ResourceEquipment}

// Resource is a bookable entity. (Type, ID) is its identity and never changes.
// Occupied is a denormalized hint and is never consulted for conflict checks.
type Resource struct {
	ID           string    `json:"id" bson:"_id" validate:"required,min=1,max=64"`
	Type         string    `json:"type" bson:"type" validate:"required,oneof=workspace meeting_room equipment"`
	Name         string    `json:"name" bson:"name" validate:"required,min=2,max=100"`
	Location     string    `json:"location" bson:"location" validate:"required,min=2,max=100"`
	Capacity     int       `json:"capacity" bson:"capacity" validate:"omitempty,min=1,max=500"`
	AreaSqft     int       `json:"area_sqft,omitempty" bson:"area_sqft,omitempty" validate:"omitempty,min=1"`
	PricePerHour int64     `json:"price_per_hour" bson:"price_per_hour" validate:"min=0,max=100000000"`
	Features     []string  `json:"features,omitempty" bson:"features,omitempty" validate:"omitempty,max=20,dive,required"`
	Occupied     string    `json:"occupied" bson:"occupied" validate:"omitempty,oneof=occupied not_occupied under_maintenance"`
	CreatedAt    time.Time `json:"created_at" bson:"created_at"`
}

type ResourceStatusUpdate struct {
	Occupied string `json:"occupied" validate:"required,oneof=occupied not_occupied under_maintenance"`
}

// ResourceFilter narrows catalog listings. Empty fields match everything.
type ResourceFilter struct {
	Type     string
	Location string
	Occupied string
}

func IsResourceType(t string) bool {
	for _, rt := range ResourceTypes {
		if rt == t {
			return true
		}
	}
	return false
}
