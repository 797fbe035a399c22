package model

import "time"

const (
	EntryIn  = "entry"
	EntryOut = "exit"
)

type AccessLog struct {
	ID        string    `json:"id" bson:"_id"`
	MemberID  string    `json:"member_id" bson:"member_id" validate:"required,max=64"`
	DeviceID  string    `json:"device_id" bson:"device_id" validate:"required,max=64"`
	Location  string    `json:"location" bson:"location" validate:"required,max=100"`
	EntryType string    `json:"entry_type" bson:"entry_type" validate:"required,oneof=entry exit"`
	Timestamp time.Time `json:"timestamp" bson:"timestamp"`
}

type LocationAccessStats struct {
	Location string `json:"location" bson:"_id"`
	Entries  int64  `json:"entries" bson:"entries"`
	Exits    int64  `json:"exits" bson:"exits"`
	Members  int64  `json:"unique_members" bson:"unique_members"`
}
