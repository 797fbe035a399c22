package model

import "time"

const (
	ReservationConfirmed = "confirmed"
	ReservationCancelled = "cancelled"
)

const EventReservationCreated = "reservation.created"

// Interval is a half-open time range [Start, End).
type Interval struct {
	Start time.Time `json:"start_time" bson:"start_time"`
	End   time.Time `json:"end_time" bson:"end_time"`
}

// Valid reports whether both bounds are set and Start is strictly before End.
func (i Interval) Valid() bool {
	return !i.Start.IsZero() && !i.End.IsZero() && i.Start.Before(i.End)
}

// Overlaps reports whether two half-open intervals share any instant.
// Intervals that only touch at an endpoint do not overlap.
func (i Interval) Overlaps(o Interval) bool {
	return i.Start.Before(o.End) && o.Start.Before(i.End)
}

func (i Interval) Duration() time.Duration {
	return i.End.Sub(i.Start)
}

type Reservation struct {
	ID           string     `json:"id" bson:"_id" gorm:"primaryKey;type:text"`
	ResourceType string     `json:"resource_type" bson:"resource_type" gorm:"not null;index:idx_reservations_resource"`
	ResourceID   string     `json:"resource_id" bson:"resource_id" gorm:"not null;index:idx_reservations_resource"`
	MemberID     string     `json:"member_id" bson:"member_id" gorm:"not null;index"`
	StartTime    time.Time  `json:"start_time" bson:"start_time" gorm:"not null"`
	EndTime      time.Time  `json:"end_time" bson:"end_time" gorm:"not null"`
	TotalPrice   int64      `json:"total_price" bson:"total_price" gorm:"not null"`
	Status       string     `json:"status" bson:"status" gorm:"not null"`
	InvoiceID    string     `json:"invoice_id,omitempty" bson:"invoice_id,omitempty" gorm:"type:text"`
	CreatedAt    time.Time  `json:"created_at" bson:"created_at" gorm:"not null"`
	CancelledAt  *time.Time `json:"cancelled_at,omitempty" bson:"cancelled_at,omitempty"`
}

func (r *Reservation) Interval() Interval {
	return Interval{Start: r.StartTime, End: r.EndTime}
}

func (r *Reservation) IsCancelled() bool {
	return r.Status == ReservationCancelled
}

// ReservationRequest is the caller input to Reserve. Interval ordering is
// checked by the guard, not the validator, so it reports INVALID_INTERVAL.
type ReservationRequest struct {
	ResourceType string    `json:"resource_type" validate:"required,oneof=workspace meeting_room equipment"`
	ResourceID   string    `json:"resource_id" validate:"required,max=64"`
	MemberID     string    `json:"member_id" validate:"required,max=64"`
	StartTime    time.Time `json:"start_time"`
	EndTime      time.Time `json:"end_time"`
}

// ReservationConflict names one existing reservation that collides with a request.
type ReservationConflict struct {
	ReservationID string    `json:"reservation_id"`
	StartTime     time.Time `json:"start_time"`
	EndTime       time.Time `json:"end_time"`
}

// ReservationEvent is published after a reservation commits.
type ReservationEvent struct {
	ReservationID string    `json:"reservation_id"`
	MemberID      string    `json:"member_id"`
	ResourceType  string    `json:"resource_type"`
	ResourceID    string    `json:"resource_id"`
	TotalPrice    int64     `json:"total_price"`
	StartTime     time.Time `json:"start_time"`
	EndTime       time.Time `json:"end_time"`
	CreatedAt     time.Time `json:"created_at"`
}

type ReservationSearch struct {
	ResourceType string
	ResourceID   string
	From         time.Time
	To           time.Time
}
