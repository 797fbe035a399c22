package model

import "time"

// LockLease is the stored form of an advisory lock on a reservation key.
// At most one document exists per key; a duplicate _id means the key is held.
type LockLease struct {
	Key       string    `bson:"_id" json:"key"`
	Token     string    `bson:"token" json:"token"`
	ExpiresAt time.Time `bson:"expires_at" json:"expires_at"`
	CreatedAt time.Time `bson:"created_at" json:"created_at"`
}
