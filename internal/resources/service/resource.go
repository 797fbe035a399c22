package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	resourceserrors "cowork/internal/resources/errors"
	"cowork/internal/resources/repository"
	"cowork/internal/resources/validator"
	"cowork/pkg/config"
	apperrors "cowork/pkg/errors"
	"cowork/pkg/model"
	"cowork/pkg/sanitizer"
	"cowork/pkg/validation"

	"github.com/google/uuid"
)

// ActiveReservations reports reservations overlapping a window. The
// reservations repository satisfies it.
type ActiveReservations interface {
	FindActiveIn(ctx context.Context, interval model.Interval) ([]*model.Reservation, error)
}

type ResourceService interface {
	Create(ctx context.Context, resource *model.Resource) error
	Get(ctx context.Context, resourceType, id string) (*model.Resource, error)
	List(ctx context.Context, filter model.ResourceFilter) ([]*model.Resource, error)
	Available(ctx context.Context, filter model.ResourceFilter) ([]*model.Resource, error)
	SetStatus(ctx context.Context, resourceType, id string, update *model.ResourceStatusUpdate) (*model.Resource, error)
	SyncOccupancy(ctx context.Context) error
}

type resourceService struct {
	repo         repository.ResourceRepository
	reservations ActiveReservations
	validator    *validator.ResourceValidator
	cfg          *config.Config
	now          func() time.Time
}

func NewResourceService(
	repo repository.ResourceRepository,
	reservations ActiveReservations,
	validator *validator.ResourceValidator,
	cfg *config.Config,
) ResourceService {
	return &resourceService{
		repo:         repo,
		reservations: reservations,
		validator:    validator,
		cfg:          cfg,
		now:          time.Now,
	}
}

func (s *resourceService) Create(ctx context.Context, resource *model.Resource) error {
	sanitizer.Resource(resource)
	if resource.ID == "" {
		resource.ID = uuid.NewString()
	}
	if resource.Occupied == "" {
		resource.Occupied = model.NotOccupied
	}
	resource.CreatedAt = s.now().UTC()

	if err := s.validator.Validate(resource); err != nil {
		s.cfg.Log.Warn("Resource validation failed", "type", resource.Type, "name", resource.Name, "error", err)
		var verrs validation.ValidationErrors
		if errors.As(err, &verrs) {
			return apperrors.Validation("Resource validation failed", verrs.Details())
		}
		return apperrors.Validation("Resource validation failed", map[string]any{"error": err.Error()})
	}

	if err := s.repo.Create(ctx, resource); err != nil {
		if errors.Is(err, resourceserrors.ErrAlreadyExists) {
			return apperrors.Conflict(fmt.Sprintf("%s %s already exists", resource.Type, resource.ID))
		}
		s.cfg.Log.Error("Failed to create resource", "type", resource.Type, "id", resource.ID, "error", err)
		return apperrors.StorageFailure("Failed to create resource", err)
	}

	s.cfg.Log.Info("Resource created", "type", resource.Type, "id", resource.ID, "location", resource.Location)
	return nil
}

func (s *resourceService) Get(ctx context.Context, resourceType, id string) (*model.Resource, error) {
	if !model.IsResourceType(resourceType) {
		return nil, apperrors.InvalidInput(fmt.Sprintf("unknown resource type %q", resourceType))
	}
	if id == "" {
		return nil, apperrors.InvalidInput("Resource ID cannot be empty")
	}

	resource, err := s.repo.FindByTypeAndID(ctx, resourceType, id)
	if err != nil {
		if errors.Is(err, resourceserrors.ErrNotFound) {
			return nil, apperrors.UnknownResource(resourceType, id)
		}
		s.cfg.Log.Error("Failed to get resource", "type", resourceType, "id", id, "error", err)
		return nil, apperrors.StorageFailure("Failed to retrieve resource", err)
	}
	return resource, nil
}

func (s *resourceService) List(ctx context.Context, filter model.ResourceFilter) ([]*model.Resource, error) {
	if filter.Type != "" && !model.IsResourceType(filter.Type) {
		return nil, apperrors.InvalidInput(fmt.Sprintf("unknown resource type %q", filter.Type))
	}
	filter.Location = sanitizer.NormalizeLocation(filter.Location)

	resources, err := s.repo.Find(ctx, filter)
	if err != nil {
		s.cfg.Log.Error("Failed to list resources", "type", filter.Type, "location", filter.Location, "error", err)
		return nil, apperrors.StorageFailure("Failed to list resources", err)
	}
	return resources, nil
}

func (s *resourceService) Available(ctx context.Context, filter model.ResourceFilter) ([]*model.Resource, error) {
	filter.Occupied = model.NotOccupied
	return s.List(ctx, filter)
}

func (s *resourceService) SetStatus(ctx context.Context, resourceType, id string, update *model.ResourceStatusUpdate) (*model.Resource, error) {
	if err := s.validator.ValidateStatus(update); err != nil {
		var verrs validation.ValidationErrors
		if errors.As(err, &verrs) {
			return nil, apperrors.Validation("Status validation failed", verrs.Details())
		}
		return nil, apperrors.Validation("Status validation failed", map[string]any{"error": err.Error()})
	}

	resource, err := s.Get(ctx, resourceType, id)
	if err != nil {
		return nil, err
	}

	if err := s.repo.SetOccupancy(ctx, resourceType, id, update.Occupied); err != nil {
		if errors.Is(err, resourceserrors.ErrNotFound) {
			return nil, apperrors.UnknownResource(resourceType, id)
		}
		s.cfg.Log.Error("Failed to update resource status", "type", resourceType, "id", id, "error", err)
		return nil, apperrors.StorageFailure("Failed to update resource status", err)
	}

	s.cfg.Log.Info("Resource status updated", "type", resourceType, "id", id, "from", resource.Occupied, "to", update.Occupied)
	resource.Occupied = update.Occupied
	return resource, nil
}

// SyncOccupancy recomputes the occupied hint from reservations overlapping
// [now, now+OccupancyWindow).
func (s *resourceService) SyncOccupancy(ctx context.Context) error {
	now := s.now().UTC()
	window := model.Interval{Start: now, End: now.Add(s.cfg.OccupancyWindow)}

	active, err := s.reservations.FindActiveIn(ctx, window)
	if err != nil {
		return fmt.Errorf("failed to load active reservations: %w", err)
	}

	busy := make(map[string][]string, len(model.ResourceTypes))
	for _, r := range active {
		busy[r.ResourceType] = append(busy[r.ResourceType], r.ResourceID)
	}

	var changed int64
	for _, t := range model.ResourceTypes {
		n, err := s.repo.SyncOccupancy(ctx, t, busy[t])
		if err != nil {
			return err
		}
		changed += n
	}

	s.cfg.Log.Info("Occupancy synchronized", "active_reservations", len(active), "changed", changed)
	return nil
}
