package sanitizer

import "cowork/pkg/model"

// Member normalizes the free-text fields of a member in place.
func Member(m *model.Member) {
	m.Name = NormalizeName(m.Name)
	m.Email = NormalizeEmail(m.Email)
	m.Phone = NormalizePhone(m.Phone)
}

// Resource normalizes the free-text fields of a resource in place.
func Resource(r *model.Resource) {
	r.Name = NormalizeName(r.Name)
	r.Location = NormalizeLocation(r.Location)
	r.Features = NormalizeFeatures(r.Features)
}

// StockedItem normalizes the free-text fields of an amenity item in place.
func StockedItem(item *model.StockedItem) {
	item.Name = NormalizeName(item.Name)
	item.Category = NormalizeLocation(item.Category)
	item.Vendor = NormalizeName(item.Vendor)
	item.Location = NormalizeLocation(item.Location)
}
