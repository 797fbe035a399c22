package model

import "time"

const (
	MemberActive    = "active"
	MemberInactive  = "inactive"
	MemberSuspended = "suspended"
)

const (
	PlanDayPass   = "day_pass"
	PlanHotDesk   = "hot_desk"
	PlanDedicated = "dedicated"
	PlanPrivate   = "private_office"
)

type Member struct {
	ID             string    `json:"id" bson:"_id"`
	Name           string    `json:"name" bson:"name" validate:"required,min=2,max=100"`
	Email          string    `json:"email" bson:"email" validate:"required,email,max=254"`
	Phone          string    `json:"phone" bson:"phone" validate:"required,e164"`
	MembershipPlan string    `json:"membership_plan" bson:"membership_plan" validate:"required,oneof=day_pass hot_desk dedicated private_office"`
	Status         string    `json:"status" bson:"status" validate:"omitempty,oneof=active inactive suspended"`
	JoinedAt       time.Time `json:"joined_at" bson:"joined_at"`
}

func (m *Member) IsActive() bool {
	return m.Status == MemberActive
}

type MemberStatusUpdate struct {
	Status string `json:"status" validate:"required,oneof=active inactive suspended"`
}

const (
	AccessStandard = "standard"
	AccessAllHours = "all_hours"
)

type AccessCard struct {
	ID         string    `json:"id" bson:"_id"`
	MemberID   string    `json:"member_id" bson:"member_id"`
	AccessType string    `json:"access_type" bson:"access_type" validate:"required,oneof=standard all_hours"`
	Active     bool      `json:"active" bson:"active"`
	IssuedAt   time.Time `json:"issued_at" bson:"issued_at"`
}

// MemberRegistration is returned by Register: the member and the card issued with it.
type MemberRegistration struct {
	Member *Member     `json:"member"`
	Card   *AccessCard `json:"access_card"`
}

// RegisterMemberRequest is a new member plus the kind of card to issue.
// AccessType defaults to standard.
type RegisterMemberRequest struct {
	Member
	AccessType string `json:"access_type,omitempty" validate:"omitempty,oneof=standard all_hours"`
}
