package testutil

import (
	"time"

	"cowork/pkg/model"

	"github.com/google/uuid"
)

type ResourceBuilder struct {
	r model.Resource
}

func NewResourceBuilder() *ResourceBuilder {
	return &ResourceBuilder{
		r: model.Resource{
			ID:           "mr-" + uuid.NewString()[:8],
			Type:         model.ResourceMeetingRoom,
			Name:         "Test Room",
			Location:     "Floor 2",
			Capacity:     8,
			PricePerHour: 1000,
			Features:     []string{"whiteboard"},
		},
	}
}

func (b *ResourceBuilder) WithType(resourceType string) *ResourceBuilder {
	b.r.Type = resourceType
	return b
}

func (b *ResourceBuilder) WithPricePerHour(price int64) *ResourceBuilder {
	b.r.PricePerHour = price
	return b
}

func (b *ResourceBuilder) Build() model.Resource {
	return b.r
}

type MemberBuilder struct {
	m model.Member
}

func NewMemberBuilder() *MemberBuilder {
	id := uuid.NewString()
	return &MemberBuilder{
		m: model.Member{
			ID:             id,
			Name:           "Test Member",
			Email:          id[:8] + "@example.com",
			Phone:          "+14155550100",
			MembershipPlan: model.PlanHotDesk,
			Status:         model.MemberActive,
			JoinedAt:       time.Now().UTC(),
		},
	}
}

func (b *MemberBuilder) WithStatus(status string) *MemberBuilder {
	b.m.Status = status
	return b
}

func (b *MemberBuilder) Build() model.Member {
	return b.m
}

// Slot returns an hour-aligned interval starting offset hours from the next
// full hour.
func Slot(offset, hours int) (time.Time, time.Time) {
	start := time.Now().UTC().Truncate(time.Hour).Add(time.Duration(offset+1) * time.Hour)
	return start, start.Add(time.Duration(hours) * time.Hour)
}
