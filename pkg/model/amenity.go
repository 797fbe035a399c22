package model

import "time"

type StockedItem struct {
	ID                string    `json:"id" bson:"_id"`
	Name              string    `json:"name" bson:"name" validate:"required,min=2,max=100"`
	Category          string    `json:"category" bson:"category" validate:"required,max=50"`
	Vendor            string    `json:"vendor,omitempty" bson:"vendor,omitempty" validate:"omitempty,max=100"`
	UnitPrice         int64     `json:"unit_price" bson:"unit_price" validate:"min=0"`
	AvailableQuantity int64     `json:"available_quantity" bson:"available_quantity" validate:"min=0"`
	Location          string    `json:"location" bson:"location" validate:"required,max=100"`
	CreatedAt         time.Time `json:"created_at" bson:"created_at"`
}

type ServiceUsage struct {
	ID          string    `json:"id" bson:"_id"`
	ItemID      string    `json:"item_id" bson:"item_id"`
	MemberID    string    `json:"member_id" bson:"member_id"`
	Quantity    int64     `json:"quantity" bson:"quantity"`
	TotalPrice  int64     `json:"total_price" bson:"total_price"`
	PurchasedAt time.Time `json:"purchased_at" bson:"purchased_at"`
	InvoiceID   string    `json:"invoice_id,omitempty" bson:"invoice_id,omitempty"`
}

type PurchaseRequest struct {
	ItemID   string `json:"item_id" validate:"required,max=64"`
	MemberID string `json:"member_id" validate:"required,max=64"`
	Quantity int64  `json:"quantity" validate:"required,min=1,max=1000"`
}
