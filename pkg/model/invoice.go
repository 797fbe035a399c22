package model

import "time"

const (
	InvoicePending = "pending"
	InvoicePaid    = "paid"
)

type Invoice struct {
	ID             string     `json:"id" bson:"_id"`
	MemberID       string     `json:"member_id" bson:"member_id" validate:"required,max=64"`
	TotalAmount    int64      `json:"total_amount" bson:"total_amount" validate:"min=0"`
	Status         string     `json:"status" bson:"status"`
	InvoiceDate    time.Time  `json:"invoice_date" bson:"invoice_date"`
	DueDate        time.Time  `json:"due_date" bson:"due_date"`
	ReservationIDs []string   `json:"reservation_ids,omitempty" bson:"reservation_ids,omitempty"`
	UsageIDs       []string   `json:"usage_ids,omitempty" bson:"usage_ids,omitempty"`
	PaidAt         *time.Time `json:"paid_at,omitempty" bson:"paid_at,omitempty"`
}

func (i *Invoice) IsOverdue(now time.Time) bool {
	return i.Status == InvoicePending && i.DueDate.Before(now)
}

// InvoiceRequest bills a member for reservations and usages not yet invoiced.
// At least one id must be given.
type InvoiceRequest struct {
	MemberID       string   `json:"member_id" validate:"required,max=64"`
	ReservationIDs []string `json:"reservation_ids" validate:"omitempty,max=100,dive,required"`
	UsageIDs       []string `json:"usage_ids" validate:"omitempty,max=100,dive,required"`
}
