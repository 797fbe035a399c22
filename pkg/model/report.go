package model

import "time"

const (
	ReportUtilization  = "utilization"
	ReportMeetingRooms = "meeting-rooms"
	ReportPeakHours    = "peak-hours"
	ReportRevenue      = "revenue"
	ReportAmenities    = "amenities"
	ReportRetention    = "retention"
	ReportAccess       = "access"
	ReportDashboard    = "dashboard"
)

// LocationUtilization counts the resources of one type at a location by
// occupancy. UtilizationRate is the occupied share in percent.
type LocationUtilization struct {
	Location        string  `json:"location" bson:"_id"`
	ResourceType    string  `json:"resource_type" bson:"resource_type"`
	Total           int64   `json:"total" bson:"total"`
	Occupied        int64   `json:"occupied" bson:"occupied"`
	Available       int64   `json:"available" bson:"available"`
	Maintenance     int64   `json:"maintenance" bson:"maintenance"`
	UtilizationRate float64 `json:"utilization_rate" bson:"utilization_rate"`
}

type MeetingRoomPattern struct {
	RoomID           string  `json:"room_id" bson:"_id"`
	Name             string  `json:"name" bson:"name"`
	Location         string  `json:"location" bson:"location"`
	TotalBookings    int64   `json:"total_bookings" bson:"total_bookings"`
	AvgDurationHours float64 `json:"avg_duration_hours" bson:"avg_duration_hours"`
	TotalRevenue     int64   `json:"total_revenue" bson:"total_revenue"`
}

type HourUsage struct {
	Hour     int     `json:"hour_of_day" bson:"_id"`
	Bookings int64   `json:"booking_count" bson:"booking_count"`
	AvgPrice float64 `json:"avg_price" bson:"avg_price"`
}

// RevenueSummary splits invoice totals by state. Overdue invoices are
// pending ones past their due date and are not counted as pending.
type RevenueSummary struct {
	PaidRevenue     int64   `json:"paid_revenue" bson:"paid_revenue"`
	PendingRevenue  int64   `json:"pending_revenue" bson:"pending_revenue"`
	OverdueRevenue  int64   `json:"overdue_revenue" bson:"overdue_revenue"`
	PaidInvoices    int64   `json:"paid_invoices" bson:"paid_invoices"`
	PendingInvoices int64   `json:"pending_invoices" bson:"pending_invoices"`
	OverdueInvoices int64   `json:"overdue_invoices" bson:"overdue_invoices"`
	AvgPaidInvoice  float64 `json:"avg_paid_invoice" bson:"avg_paid_invoice"`
}

type AmenityPopularity struct {
	ItemID       string `json:"item_id" bson:"_id"`
	Name         string `json:"name" bson:"name"`
	Category     string `json:"category" bson:"category"`
	UsageCount   int64  `json:"usage_count" bson:"usage_count"`
	QuantityUsed int64  `json:"quantity_used" bson:"quantity_used"`
	Revenue      int64  `json:"revenue" bson:"revenue"`
}

type MemberRetention struct {
	Total         int64   `json:"total_members" bson:"total"`
	Active        int64   `json:"active_members" bson:"active"`
	Inactive      int64   `json:"inactive_members" bson:"inactive"`
	Suspended     int64   `json:"suspended_members" bson:"suspended"`
	RetentionRate float64 `json:"retention_rate" bson:"-"`
}

type Dashboard struct {
	GeneratedAt          time.Time        `json:"generated_at"`
	TodayAccessLogs      []*AccessLog     `json:"today_access_logs"`
	UpcomingReservations []*Reservation   `json:"upcoming_reservations"`
	Members              *MemberRetention `json:"member_stats"`
	Revenue              *RevenueSummary  `json:"revenue_stats"`
	LowStock             []*StockedItem   `json:"low_stock_items"`
	OverdueInvoices      int              `json:"overdue_invoices_count"`
}
