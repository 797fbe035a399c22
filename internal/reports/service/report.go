package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"cowork/internal/reports/repository"
	"cowork/pkg/config"
	apperrors "cowork/pkg/errors"
	"cowork/pkg/model"
)

const (
	DefaultPeakHoursDays  = 30
	DefaultRevenueDays    = 365
	DefaultAmenitiesDays  = 30
	DefaultAmenitiesLimit = 10
	DashboardUpcoming     = 10
)

type AccessSource interface {
	FindSince(ctx context.Context, since time.Time) ([]*model.AccessLog, error)
	StatsByLocation(ctx context.Context, since time.Time) ([]*model.LocationAccessStats, error)
}

type ReservationSource interface {
	FindUpcoming(ctx context.Context, from time.Time, limit int) ([]*model.Reservation, error)
}

type StockSource interface {
	FindLowStock(ctx context.Context, threshold int64) ([]*model.StockedItem, error)
}

type InvoiceSource interface {
	FindOverdue(ctx context.Context, now time.Time) ([]*model.Invoice, error)
}

// Sources are the stores the dashboard reads besides the aggregations.
type Sources struct {
	Access       AccessSource
	Reservations ReservationSource
	Stock        StockSource
	Invoices     InvoiceSource
}

type ReportService interface {
	Utilization(ctx context.Context) ([]*model.LocationUtilization, error)
	MeetingRooms(ctx context.Context) ([]*model.MeetingRoomPattern, error)
	PeakHours(ctx context.Context, days int) ([]*model.HourUsage, error)
	Revenue(ctx context.Context, days int) (*model.RevenueSummary, error)
	Amenities(ctx context.Context, days, limit int) ([]*model.AmenityPopularity, error)
	Retention(ctx context.Context) (*model.MemberRetention, error)
	Access(ctx context.Context, days int) ([]*model.LocationAccessStats, error)
	Dashboard(ctx context.Context) (*model.Dashboard, error)
	// Run builds the named report. days and limit of zero use each report's default.
	Run(ctx context.Context, name string, days, limit int) (any, error)
}

type reportService struct {
	repo    repository.ReportRepository
	sources Sources
	cfg     *config.Config
	now     func() time.Time
}

func NewReportService(repo repository.ReportRepository, sources Sources, cfg *config.Config) ReportService {
	return &reportService{
		repo:    repo,
		sources: sources,
		cfg:     cfg,
		now:     time.Now,
	}
}

func (s *reportService) Utilization(ctx context.Context) ([]*model.LocationUtilization, error) {
	rows, err := s.repo.Utilization(ctx)
	if err != nil {
		return nil, s.storageFailure(model.ReportUtilization, err)
	}
	return rows, nil
}

func (s *reportService) MeetingRooms(ctx context.Context) ([]*model.MeetingRoomPattern, error) {
	rows, err := s.repo.MeetingRoomPatterns(ctx)
	if err != nil {
		return nil, s.storageFailure(model.ReportMeetingRooms, err)
	}
	return rows, nil
}

func (s *reportService) PeakHours(ctx context.Context, days int) ([]*model.HourUsage, error) {
	since, err := s.since(days, DefaultPeakHoursDays)
	if err != nil {
		return nil, err
	}

	rows, err := s.repo.PeakHours(ctx, since)
	if err != nil {
		return nil, s.storageFailure(model.ReportPeakHours, err)
	}
	return rows, nil
}

func (s *reportService) Revenue(ctx context.Context, days int) (*model.RevenueSummary, error) {
	since, err := s.since(days, DefaultRevenueDays)
	if err != nil {
		return nil, err
	}

	summary, err := s.repo.Revenue(ctx, since, s.now().UTC())
	if err != nil {
		return nil, s.storageFailure(model.ReportRevenue, err)
	}
	return summary, nil
}

func (s *reportService) Amenities(ctx context.Context, days, limit int) ([]*model.AmenityPopularity, error) {
	since, err := s.since(days, DefaultAmenitiesDays)
	if err != nil {
		return nil, err
	}
	if limit < 0 {
		return nil, apperrors.InvalidInput("limit must not be negative")
	}
	if limit == 0 {
		limit = DefaultAmenitiesLimit
	}

	rows, err := s.repo.PopularAmenities(ctx, since, limit)
	if err != nil {
		return nil, s.storageFailure(model.ReportAmenities, err)
	}
	return rows, nil
}

func (s *reportService) Retention(ctx context.Context) (*model.MemberRetention, error) {
	stats, err := s.repo.Retention(ctx)
	if err != nil {
		return nil, s.storageFailure(model.ReportRetention, err)
	}
	if stats.Total > 0 {
		stats.RetentionRate = float64(stats.Active) * 100 / float64(stats.Total)
	}
	return stats, nil
}

func (s *reportService) Access(ctx context.Context, days int) ([]*model.LocationAccessStats, error) {
	since, err := s.since(days, s.cfg.AccessHistoryDays)
	if err != nil {
		return nil, err
	}

	stats, err := s.sources.Access.StatsByLocation(ctx, since)
	if err != nil {
		return nil, s.storageFailure(model.ReportAccess, err)
	}
	return stats, nil
}

func (s *reportService) Dashboard(ctx context.Context) (*model.Dashboard, error) {
	now := s.now().UTC()
	midnight := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	dashboard := &model.Dashboard{GeneratedAt: now}

	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		firstErr error
	)
	run := func(part string, fn func() error) {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := fn(); err != nil {
				mu.Lock()
				if firstErr == nil {
					firstErr = fmt.Errorf("%s: %w", part, err)
				}
				mu.Unlock()
			}
		}()
	}

	run("today_access_logs", func() (err error) {
		dashboard.TodayAccessLogs, err = s.sources.Access.FindSince(ctx, midnight)
		return err
	})
	run("upcoming_reservations", func() (err error) {
		dashboard.UpcomingReservations, err = s.sources.Reservations.FindUpcoming(ctx, now, DashboardUpcoming)
		return err
	})
	run("member_stats", func() (err error) {
		dashboard.Members, err = s.Retention(ctx)
		return err
	})
	run("revenue_stats", func() (err error) {
		dashboard.Revenue, err = s.Revenue(ctx, 0)
		return err
	})
	run("low_stock_items", func() (err error) {
		dashboard.LowStock, err = s.sources.Stock.FindLowStock(ctx, int64(s.cfg.LowStockThreshold))
		return err
	})
	run("overdue_invoices", func() error {
		overdue, err := s.sources.Invoices.FindOverdue(ctx, now)
		dashboard.OverdueInvoices = len(overdue)
		return err
	})
	wg.Wait()

	if firstErr != nil {
		if apperrors.IsAppError(firstErr) {
			return nil, apperrors.AsAppError(firstErr)
		}
		return nil, s.storageFailure(model.ReportDashboard, firstErr)
	}
	return dashboard, nil
}

func (s *reportService) Run(ctx context.Context, name string, days, limit int) (any, error) {
	switch name {
	case model.ReportUtilization:
		return s.Utilization(ctx)
	case model.ReportMeetingRooms:
		return s.MeetingRooms(ctx)
	case model.ReportPeakHours:
		return s.PeakHours(ctx, days)
	case model.ReportRevenue:
		return s.Revenue(ctx, days)
	case model.ReportAmenities:
		return s.Amenities(ctx, days, limit)
	case model.ReportRetention:
		return s.Retention(ctx)
	case model.ReportAccess:
		return s.Access(ctx, days)
	case model.ReportDashboard:
		return s.Dashboard(ctx)
	default:
		return nil, apperrors.NotFoundWithID("Report", name)
	}
}

func (s *reportService) since(days, fallback int) (time.Time, error) {
	if days < 0 {
		return time.Time{}, apperrors.InvalidInput("days must not be negative")
	}
	if days == 0 {
		days = fallback
	}
	return s.now().UTC().AddDate(0, 0, -days), nil
}

func (s *reportService) storageFailure(report string, err error) *apperrors.AppError {
	s.cfg.Log.Error("Failed to build report", "report", report, "error", err)
	return apperrors.StorageFailure(fmt.Sprintf("Failed to build %s report", report), err)
}
