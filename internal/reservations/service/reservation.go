package service

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sync"
	"time"

	memberserrors "cowork/internal/members/errors"
	reservationserrors "cowork/internal/reservations/errors"
	"cowork/internal/reservations/events"
	"cowork/internal/reservations/repository"
	"cowork/internal/reservations/validator"
	resourceserrors "cowork/internal/resources/errors"
	"cowork/pkg/config"
	apperrors "cowork/pkg/errors"
	"cowork/pkg/lock"
	"cowork/pkg/model"
	"cowork/pkg/validation"

	"github.com/google/uuid"
)

// Catalog is the guard's read view of bookable resources, plus the
// best-effort occupancy flag it maintains.
type Catalog interface {
	FindByTypeAndID(ctx context.Context, resourceType, id string) (*model.Resource, error)
	SetOccupancy(ctx context.Context, resourceType, id, status string) error
}

type MemberDirectory interface {
	FindByID(ctx context.Context, id string) (*model.Member, error)
}

type ReservationService interface {
	Reserve(ctx context.Context, req *model.ReservationRequest) (*model.Reservation, error)
	Cancel(ctx context.Context, id string) (*model.Reservation, error)
	GetByID(ctx context.Context, id string) (*model.Reservation, error)
	GetByMember(ctx context.Context, memberID string, limit int, offset int64) ([]*model.Reservation, int64, error)
	Upcoming(ctx context.Context, limit int) ([]*model.Reservation, error)
	Search(ctx context.Context, search model.ReservationSearch, limit int, offset int64) ([]*model.Reservation, int64, error)
}

type reservationService struct {
	repo      repository.ReservationRepository
	catalog   Catalog
	members   MemberDirectory
	locker    lock.Locker
	publisher events.Publisher
	validator *validator.ReservationValidator
	cfg       *config.Config

	now   func() time.Time
	newID func() string
}

func NewReservationService(
	repo repository.ReservationRepository,
	catalog Catalog,
	members MemberDirectory,
	locker lock.Locker,
	publisher events.Publisher,
	validator *validator.ReservationValidator,
	cfg *config.Config,
) ReservationService {
	return &reservationService{
		repo:      repo,
		catalog:   catalog,
		members:   members,
		locker:    locker,
		publisher: publisher,
		validator: validator,
		cfg:       cfg,
		now:       time.Now,
		newID:     uuid.NewString,
	}
}

// Price charges whole started minutes at pricePerHour, rounded up to the
// next minor unit. A product that would overflow int64 saturates.
func Price(pricePerHour int64, d time.Duration) int64 {
	if d <= 0 || pricePerHour <= 0 {
		return 0
	}
	minutes := int64(d / time.Minute)
	if d%time.Minute != 0 {
		minutes++
	}
	if minutes > (math.MaxInt64-59)/pricePerHour {
		return math.MaxInt64
	}
	return (minutes*pricePerHour + 59) / 60
}

func (s *reservationService) Reserve(ctx context.Context, req *model.ReservationRequest) (*model.Reservation, error) {
	if err := s.validator.Validate(req); err != nil {
		s.cfg.Log.Warn("Reservation validation failed", "error", err)
		return nil, validationError("Reservation validation failed", err)
	}

	interval := model.Interval{
		Start: req.StartTime.UTC().Truncate(time.Millisecond),
		End:   req.EndTime.UTC().Truncate(time.Millisecond),
	}
	if !interval.Valid() {
		s.cfg.Log.Info("Rejected invalid interval",
			"resource_type", req.ResourceType,
			"resource_id", req.ResourceID,
			"start_time", req.StartTime,
			"end_time", req.EndTime,
		)
		if interval.Start.IsZero() || interval.End.IsZero() {
			return nil, apperrors.InvalidInterval("start_time and end_time are required")
		}
		return nil, apperrors.InvalidInterval("start_time must be before end_time")
	}

	resource, err := s.lookupResource(ctx, req.ResourceType, req.ResourceID)
	if err != nil {
		return nil, err
	}
	if err := s.checkMember(ctx, req.MemberID); err != nil {
		return nil, err
	}

	key := lock.ReservationKey(req.ResourceType, req.ResourceID)
	heldCtx, release, err := s.acquire(ctx, key)
	if err != nil {
		return nil, err
	}
	defer release()

	reservation := &model.Reservation{
		ID:           s.newID(),
		ResourceType: req.ResourceType,
		ResourceID:   req.ResourceID,
		MemberID:     req.MemberID,
		StartTime:    interval.Start,
		EndTime:      interval.End,
		TotalPrice:   Price(resource.PricePerHour, interval.Duration()),
		Status:       model.ReservationConfirmed,
		CreatedAt:    s.now().UTC().Truncate(time.Millisecond),
	}

	err = s.repo.ExecuteTransaction(heldCtx, key, func(txCtx context.Context) error {
		existing, err := s.repo.FindOverlapping(txCtx, req.ResourceType, req.ResourceID, interval, s.cfg.MaxConflictsReported)
		if err != nil {
			return apperrors.StorageFailure("Failed to check existing reservations", err)
		}
		if len(existing) > 0 {
			return conflictError(req.ResourceType, req.ResourceID, existing)
		}

		if err := s.repo.Create(txCtx, reservation); err != nil {
			if errors.Is(err, reservationserrors.ErrOverlap) {
				return apperrors.Conflict(fmt.Sprintf("%s %s is already reserved for an overlapping interval", req.ResourceType, req.ResourceID)).
					WithDetails(map[string]any{"resource_type": req.ResourceType, "resource_id": req.ResourceID})
			}
			return apperrors.StorageFailure("Failed to persist reservation", err)
		}
		return nil
	})
	if err != nil {
		err = s.transactionError(ctx, key, err, "Reservation transaction failed")
		if apperrors.HasCode(err, apperrors.CodeConflict) {
			s.cfg.Log.Info("Reservation rejected: overlap",
				"resource_type", req.ResourceType,
				"resource_id", req.ResourceID,
				"start_time", interval.Start,
				"end_time", interval.End,
			)
		} else {
			s.cfg.Log.Error("Failed to create reservation", "key", key, "error", err)
		}
		return nil, err
	}

	s.cfg.Log.Info("Reservation created successfully",
		"id", reservation.ID,
		"resource_type", reservation.ResourceType,
		"resource_id", reservation.ResourceID,
		"member_id", reservation.MemberID,
		"start_time", reservation.StartTime,
		"end_time", reservation.EndTime,
		"total_price", reservation.TotalPrice,
	)

	s.afterCommit(ctx, resource, reservation)
	return reservation, nil
}

func (s *reservationService) Cancel(ctx context.Context, id string) (*model.Reservation, error) {
	existing, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if existing.IsCancelled() {
		return existing, nil
	}

	key := lock.ReservationKey(existing.ResourceType, existing.ResourceID)
	heldCtx, release, err := s.acquire(ctx, key)
	if err != nil {
		return nil, err
	}
	defer release()

	var cancelled *model.Reservation
	err = s.repo.ExecuteTransaction(heldCtx, key, func(txCtx context.Context) error {
		current, err := s.repo.FindByID(txCtx, id)
		if err != nil {
			return s.mapFindError(id, err)
		}
		if current.IsCancelled() {
			cancelled = current
			return nil
		}

		at := s.now().UTC().Truncate(time.Millisecond)
		if err := s.repo.MarkCancelled(txCtx, id, at); err != nil {
			return s.mapFindError(id, err)
		}
		current.Status = model.ReservationCancelled
		current.CancelledAt = &at
		cancelled = current
		return nil
	})
	if err != nil {
		err = s.transactionError(ctx, key, err, "Cancel transaction failed")
		s.cfg.Log.Error("Failed to cancel reservation", "id", id, "error", err)
		return nil, err
	}

	s.cfg.Log.Info("Reservation cancelled", "id", id, "resource_type", cancelled.ResourceType, "resource_id", cancelled.ResourceID)
	return cancelled, nil
}

func (s *reservationService) GetByID(ctx context.Context, id string) (*model.Reservation, error) {
	if id == "" {
		return nil, apperrors.InvalidInput("Reservation ID cannot be empty")
	}

	reservation, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, s.mapFindError(id, err)
	}
	return reservation, nil
}

func (s *reservationService) GetByMember(ctx context.Context, memberID string, limit int, offset int64) ([]*model.Reservation, int64, error) {
	if memberID == "" {
		return nil, 0, apperrors.InvalidInput("Member ID cannot be empty")
	}
	limit = config.NormalizePaginationLimit(limit)
	offset = config.NormalizeOffset(offset)

	var count int64
	var reservations []*model.Reservation
	var errCount, errFind error
	var wg sync.WaitGroup
	wg.Add(2)

	go func() {
		defer wg.Done()
		var err error
		count, err = s.repo.CountByMember(ctx, memberID)
		if err != nil {
			s.cfg.Log.Error("Failed to count member reservations", "member_id", memberID, "error", err)
			errCount = apperrors.StorageFailure("Failed to count reservations", err)
		}
	}()

	go func() {
		defer wg.Done()
		var err error
		reservations, err = s.repo.FindByMember(ctx, memberID, limit, offset)
		if err != nil {
			s.cfg.Log.Error("Failed to list member reservations", "member_id", memberID, "limit", limit, "offset", offset, "error", err)
			errFind = apperrors.StorageFailure("Failed to retrieve reservations", err)
		}
	}()

	wg.Wait()
	if errCount != nil {
		return nil, 0, errCount
	}
	if errFind != nil {
		return nil, 0, errFind
	}
	return reservations, count, nil
}

func (s *reservationService) Upcoming(ctx context.Context, limit int) ([]*model.Reservation, error) {
	limit = config.NormalizePaginationLimit(limit)

	reservations, err := s.repo.FindUpcoming(ctx, s.now().UTC(), limit)
	if err != nil {
		s.cfg.Log.Error("Failed to list upcoming reservations", "error", err)
		return nil, apperrors.StorageFailure("Failed to retrieve upcoming reservations", err)
	}
	return reservations, nil
}

func (s *reservationService) Search(ctx context.Context, search model.ReservationSearch, limit int, offset int64) ([]*model.Reservation, int64, error) {
	if search.ResourceType == "" || search.ResourceID == "" {
		return nil, 0, apperrors.InvalidInput("resource_type and resource_id are required")
	}
	if !model.IsResourceType(search.ResourceType) {
		return nil, 0, apperrors.InvalidInput(fmt.Sprintf("unknown resource_type %q", search.ResourceType))
	}
	if !search.From.IsZero() && !search.To.IsZero() && !search.From.Before(search.To) {
		return nil, 0, apperrors.InvalidInterval("start_time must be before end_time")
	}
	limit = config.NormalizePaginationLimit(limit)
	offset = config.NormalizeOffset(offset)

	var count int64
	var reservations []*model.Reservation
	var errCount, errFind error
	var wg sync.WaitGroup
	wg.Add(2)

	go func() {
		defer wg.Done()
		var err error
		count, err = s.repo.CountSearch(ctx, search)
		if err != nil {
			s.cfg.Log.Error("Failed to count reservations by search",
				"resource_type", search.ResourceType,
				"resource_id", search.ResourceID,
				"error", err,
			)
			errCount = apperrors.StorageFailure("Failed to count reservations", err)
		}
	}()

	go func() {
		defer wg.Done()
		var err error
		reservations, err = s.repo.Search(ctx, search, limit, offset)
		if err != nil {
			s.cfg.Log.Error("Failed to search reservations",
				"resource_type", search.ResourceType,
				"resource_id", search.ResourceID,
				"limit", limit,
				"offset", offset,
				"error", err,
			)
			errFind = apperrors.StorageFailure("Failed to search reservations", err)
		}
	}()

	wg.Wait()
	if errCount != nil {
		return nil, 0, errCount
	}
	if errFind != nil {
		return nil, 0, errFind
	}

	s.cfg.Log.Debug("Reservation search completed",
		"resource_type", search.ResourceType,
		"resource_id", search.ResourceID,
		"count", len(reservations),
		"total_count", count,
	)
	return reservations, count, nil
}

// --- Helpers ---

func (s *reservationService) lookupResource(ctx context.Context, resourceType, id string) (*model.Resource, error) {
	resource, err := s.catalog.FindByTypeAndID(ctx, resourceType, id)
	if err != nil {
		if errors.Is(err, resourceserrors.ErrNotFound) {
			s.cfg.Log.Info("Rejected reservation for unknown resource", "resource_type", resourceType, "resource_id", id)
			return nil, apperrors.UnknownResource(resourceType, id)
		}
		s.cfg.Log.Error("Failed to look up resource", "resource_type", resourceType, "resource_id", id, "error", err)
		return nil, apperrors.StorageFailure("Failed to look up resource", err)
	}
	return resource, nil
}

func (s *reservationService) checkMember(ctx context.Context, memberID string) error {
	member, err := s.members.FindByID(ctx, memberID)
	if err != nil {
		if errors.Is(err, memberserrors.ErrNotFound) {
			return apperrors.NotFoundWithID("Member", memberID)
		}
		s.cfg.Log.Error("Failed to look up member", "member_id", memberID, "error", err)
		return apperrors.StorageFailure("Failed to look up member", err)
	}
	if !member.IsActive() {
		return apperrors.Validation("Member is not active", map[string]any{
			"member_id": memberID,
			"status":    member.Status,
		})
	}
	return nil
}

// acquire enters the critical section for key. The returned context expires
// with the lease, so work done under it cannot outlive the lock. The returned
// func releases the lease and must always be called.
func (s *reservationService) acquire(ctx context.Context, key string) (context.Context, func(), error) {
	lease, err := s.locker.Acquire(ctx, key)
	if err != nil {
		switch {
		case errors.Is(err, lock.ErrBusy):
			s.cfg.Log.Warn("Lock wait expired", "key", key)
			return nil, nil, apperrors.Busy(fmt.Sprintf("%s is busy, retry later", key))
		case errors.Is(err, context.Canceled):
			return nil, nil, err
		default:
			s.cfg.Log.Error("Failed to acquire lock", "key", key, "error", err)
			return nil, nil, apperrors.StorageFailure("Failed to acquire reservation lock", err)
		}
	}

	heldCtx, cancel := ctx, context.CancelFunc(func() {})
	if s.cfg.LockTTL > 0 {
		heldCtx, cancel = context.WithTimeout(ctx, s.cfg.LockTTL)
	}
	return heldCtx, func() {
		cancel()
		if err := lease.Release(context.WithoutCancel(ctx)); err != nil {
			s.cfg.Log.Warn("Failed to release reservation lock", "key", key, "error", err)
		}
	}, nil
}

// transactionError maps a failed critical section to an AppError. Running out
// of lease time while the caller is still waiting is reported as Busy.
func (s *reservationService) transactionError(ctx context.Context, key string, err error, msg string) error {
	switch {
	case apperrors.IsAppError(err):
		return err
	case errors.Is(err, context.DeadlineExceeded) && ctx.Err() == nil:
		s.cfg.Log.Warn("Lock lease expired during transaction", "key", key)
		return apperrors.Busy(fmt.Sprintf("%s is busy, retry later", key))
	default:
		return apperrors.StorageFailure(msg, err)
	}
}

// afterCommit runs side effects whose failure must not undo the reservation.
func (s *reservationService) afterCommit(ctx context.Context, resource *model.Resource, r *model.Reservation) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.cfg.WriteTimeout)
	defer cancel()

	now := s.now().UTC()
	startsSoon := r.StartTime.Before(now.Add(s.cfg.OccupancyWindow)) && r.EndTime.After(now)
	if startsSoon && resource.Occupied != model.UnderMaintenance && resource.Occupied != model.Occupied {
		if err := s.catalog.SetOccupancy(ctx, r.ResourceType, r.ResourceID, model.Occupied); err != nil {
			s.cfg.Log.Warn("Failed to update occupancy", "resource_type", r.ResourceType, "resource_id", r.ResourceID, "error", err)
		}
	}

	if err := s.publisher.PublishReservationCreated(ctx, r); err != nil {
		s.cfg.Log.Warn("Failed to publish reservation event", "id", r.ID, "error", err)
	}
}

func (s *reservationService) mapFindError(id string, err error) error {
	if errors.Is(err, reservationserrors.ErrNotFound) {
		return apperrors.NotFoundWithID("Reservation", id)
	}
	s.cfg.Log.Error("Failed to read reservation", "id", id, "error", err)
	return apperrors.StorageFailure("Failed to retrieve reservation", err)
}

func conflictError(resourceType, resourceID string, existing []*model.Reservation) *apperrors.AppError {
	conflicts := make([]model.ReservationConflict, 0, len(existing))
	for _, r := range existing {
		conflicts = append(conflicts, model.ReservationConflict{
			ReservationID: r.ID,
			StartTime:     r.StartTime,
			EndTime:       r.EndTime,
		})
	}
	return apperrors.Conflict(fmt.Sprintf("%s %s is already reserved for %d overlapping interval(s)", resourceType, resourceID, len(conflicts))).
		WithDetails(map[string]any{
			"resource_type": resourceType,
			"resource_id":   resourceID,
			"conflicts":     conflicts,
		})
}

func validationError(message string, err error) *apperrors.AppError {
	var verrs validation.ValidationErrors
	if errors.As(err, &verrs) {
		return apperrors.Validation(message, verrs.Details())
	}
	return apperrors.Validation(message, map[string]any{"error": err.Error()})
}
