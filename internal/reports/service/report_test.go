package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"cowork/pkg/config"
	apperrors "cowork/pkg/errors"
	"cowork/pkg/logger"
	"cowork/pkg/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testNow = time.Date(2026, 3, 2, 15, 30, 0, 0, time.UTC)

type fakeReportRepository struct {
	since     time.Time
	limit     int
	revenueAt time.Time
	err       error
}

func (f *fakeReportRepository) Utilization(context.Context) ([]*model.LocationUtilization, error) {
	return []*model.LocationUtilization{{Location: "Floor 1", ResourceType: model.ResourceWorkspace, Total: 4, Occupied: 1, UtilizationRate: 25}}, f.err
}

func (f *fakeReportRepository) MeetingRoomPatterns(context.Context) ([]*model.MeetingRoomPattern, error) {
	return []*model.MeetingRoomPattern{{RoomID: "room-1", TotalBookings: 3}}, f.err
}

func (f *fakeReportRepository) PeakHours(_ context.Context, since time.Time) ([]*model.HourUsage, error) {
	f.since = since
	return []*model.HourUsage{{Hour: 10, Bookings: 5}}, f.err
}

func (f *fakeReportRepository) Revenue(_ context.Context, since, now time.Time) (*model.RevenueSummary, error) {
	f.since, f.revenueAt = since, now
	if f.err != nil {
		return nil, f.err
	}
	return &model.RevenueSummary{PaidRevenue: 5000, PaidInvoices: 2}, nil
}

func (f *fakeReportRepository) PopularAmenities(_ context.Context, since time.Time, limit int) ([]*model.AmenityPopularity, error) {
	f.since, f.limit = since, limit
	return []*model.AmenityPopularity{{ItemID: "coffee", UsageCount: 40}}, f.err
}

func (f *fakeReportRepository) Retention(context.Context) (*model.MemberRetention, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &model.MemberRetention{Total: 8, Active: 6, Inactive: 1, Suspended: 1}, nil
}

type fakeSources struct {
	accessSince time.Time
	err         error
}

func (f *fakeSources) FindSince(_ context.Context, since time.Time) ([]*model.AccessLog, error) {
	f.accessSince = since
	return []*model.AccessLog{{ID: "a-1"}, {ID: "a-2"}}, nil
}

func (f *fakeSources) StatsByLocation(_ context.Context, since time.Time) ([]*model.LocationAccessStats, error) {
	f.accessSince = since
	return []*model.LocationAccessStats{{Location: "Lobby", Entries: 4}}, nil
}

func (f *fakeSources) FindUpcoming(_ context.Context, from time.Time, limit int) ([]*model.Reservation, error) {
	return []*model.Reservation{{ID: "r-1", StartTime: from.Add(time.Hour)}}, nil
}

func (f *fakeSources) FindLowStock(_ context.Context, threshold int64) ([]*model.StockedItem, error) {
	return []*model.StockedItem{{ID: "coffee", AvailableQuantity: threshold}}, nil
}

func (f *fakeSources) FindOverdue(context.Context, time.Time) ([]*model.Invoice, error) {
	if f.err != nil {
		return nil, f.err
	}
	return []*model.Invoice{{ID: "inv-1"}, {ID: "inv-2"}, {ID: "inv-3"}}, nil
}

func newTestService(repo *fakeReportRepository, src *fakeSources) *reportService {
	cfg := &config.Config{Log: logger.Discard(), AccessHistoryDays: 30, LowStockThreshold: 5}
	svc := NewReportService(repo, Sources{Access: src, Reservations: src, Stock: src, Invoices: src}, cfg).(*reportService)
	svc.now = func() time.Time { return testNow }
	return svc
}

func TestReportService_Lookbacks(t *testing.T) {
	repo := &fakeReportRepository{}
	src := &fakeSources{}
	svc := newTestService(repo, src)
	ctx := context.Background()

	_, err := svc.PeakHours(ctx, 0)
	require.NoError(t, err)
	assert.Equal(t, testNow.AddDate(0, 0, -DefaultPeakHoursDays), repo.since)

	_, err = svc.PeakHours(ctx, 7)
	require.NoError(t, err)
	assert.Equal(t, testNow.AddDate(0, 0, -7), repo.since)

	_, err = svc.Revenue(ctx, 0)
	require.NoError(t, err)
	assert.Equal(t, testNow.AddDate(0, 0, -DefaultRevenueDays), repo.since)
	assert.Equal(t, testNow, repo.revenueAt)

	_, err = svc.Amenities(ctx, 0, 0)
	require.NoError(t, err)
	assert.Equal(t, DefaultAmenitiesLimit, repo.limit)

	_, err = svc.Access(ctx, 0)
	require.NoError(t, err)
	assert.Equal(t, testNow.AddDate(0, 0, -30), src.accessSince)

	_, err = svc.PeakHours(ctx, -1)
	assert.True(t, apperrors.HasCode(err, apperrors.CodeInvalidInput))
	_, err = svc.Amenities(ctx, 1, -5)
	assert.True(t, apperrors.HasCode(err, apperrors.CodeInvalidInput))
}

func TestReportService_RetentionRate(t *testing.T) {
	svc := newTestService(&fakeReportRepository{}, &fakeSources{})

	stats, err := svc.Retention(context.Background())
	require.NoError(t, err)
	assert.InDelta(t, 75.0, stats.RetentionRate, 0.001)
}

func TestReportService_Dashboard(t *testing.T) {
	src := &fakeSources{}
	svc := newTestService(&fakeReportRepository{}, src)

	dashboard, err := svc.Dashboard(context.Background())
	require.NoError(t, err)

	assert.Equal(t, testNow, dashboard.GeneratedAt)
	assert.Len(t, dashboard.TodayAccessLogs, 2)
	assert.Equal(t, time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC), src.accessSince)
	assert.Len(t, dashboard.UpcomingReservations, 1)
	assert.Equal(t, int64(6), dashboard.Members.Active)
	assert.Equal(t, int64(5000), dashboard.Revenue.PaidRevenue)
	require.Len(t, dashboard.LowStock, 1)
	assert.Equal(t, int64(5), dashboard.LowStock[0].AvailableQuantity)
	assert.Equal(t, 3, dashboard.OverdueInvoices)
}

func TestReportService_DashboardFailure(t *testing.T) {
	svc := newTestService(&fakeReportRepository{}, &fakeSources{err: errors.New("connection reset")})

	_, err := svc.Dashboard(context.Background())
	assert.True(t, apperrors.HasCode(err, apperrors.CodeStorageFailure))
}

func TestReportService_Run(t *testing.T) {
	svc := newTestService(&fakeReportRepository{}, &fakeSources{})
	ctx := context.Background()

	for _, name := range []string{
		model.ReportUtilization, model.ReportMeetingRooms, model.ReportPeakHours, model.ReportRevenue,
		model.ReportAmenities, model.ReportRetention, model.ReportAccess, model.ReportDashboard,
	} {
		t.Run(name, func(t *testing.T) {
			report, err := svc.Run(ctx, name, 0, 0)
			require.NoError(t, err)
			assert.NotNil(t, report)
		})
	}

	_, err := svc.Run(ctx, "weather", 0, 0)
	assert.True(t, apperrors.HasCode(err, apperrors.CodeNotFound))
}

func TestReportService_StorageFailure(t *testing.T) {
	svc := newTestService(&fakeReportRepository{err: errors.New("timeout")}, &fakeSources{})

	_, err := svc.Utilization(context.Background())
	assert.True(t, apperrors.HasCode(err, apperrors.CodeStorageFailure))
	_, err = svc.Revenue(context.Background(), 0)
	assert.True(t, apperrors.HasCode(err, apperrors.CodeStorageFailure))
}
