package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	amenitieserrors "cowork/internal/amenities/errors"
	"cowork/internal/amenities/repository"
	"cowork/internal/amenities/validator"
	memberserrors "cowork/internal/members/errors"
	"cowork/pkg/config"
	apperrors "cowork/pkg/errors"
	"cowork/pkg/model"
	"cowork/pkg/sanitizer"
	"cowork/pkg/validation"

	"github.com/google/uuid"
)

type MemberDirectory interface {
	FindByID(ctx context.Context, id string) (*model.Member, error)
}

type AmenityService interface {
	CreateItem(ctx context.Context, item *model.StockedItem) error
	Purchase(ctx context.Context, req *model.PurchaseRequest) (*model.ServiceUsage, error)
	LowStock(ctx context.Context, threshold int) ([]*model.StockedItem, error)
}

type amenityService struct {
	repo      repository.AmenityRepository
	members   MemberDirectory
	validator *validator.AmenityValidator
	cfg       *config.Config
	now       func() time.Time
}

func NewAmenityService(
	repo repository.AmenityRepository,
	members MemberDirectory,
	validator *validator.AmenityValidator,
	cfg *config.Config,
) AmenityService {
	return &amenityService{
		repo:      repo,
		members:   members,
		validator: validator,
		cfg:       cfg,
		now:       time.Now,
	}
}

func (s *amenityService) CreateItem(ctx context.Context, item *model.StockedItem) error {
	sanitizer.StockedItem(item)
	if item.ID == "" {
		item.ID = uuid.NewString()
	}
	item.CreatedAt = s.now().UTC()

	if err := s.validator.ValidateItem(item); err != nil {
		s.cfg.Log.Warn("Stocked item validation failed", "name", item.Name, "error", err)
		return validationError("Stocked item validation failed", err)
	}

	if err := s.repo.CreateItem(ctx, item); err != nil {
		if errors.Is(err, amenitieserrors.ErrAlreadyExists) {
			return apperrors.Conflict(fmt.Sprintf("Stocked item %s already exists", item.ID))
		}
		s.cfg.Log.Error("Failed to create stocked item", "name", item.Name, "error", err)
		return apperrors.StorageFailure("Failed to create stocked item", err)
	}

	s.cfg.Log.Info("Stocked item created", "id", item.ID, "name", item.Name, "quantity", item.AvailableQuantity)
	return nil
}

// Purchase records a usage and takes the stock in one transaction. Stock is
// only taken when enough is available, so concurrent buyers never drive it
// below zero.
func (s *amenityService) Purchase(ctx context.Context, req *model.PurchaseRequest) (*model.ServiceUsage, error) {
	if err := s.validator.ValidatePurchase(req); err != nil {
		return nil, validationError("Purchase validation failed", err)
	}

	member, err := s.members.FindByID(ctx, req.MemberID)
	if err != nil {
		if errors.Is(err, memberserrors.ErrNotFound) {
			return nil, apperrors.NotFoundWithID("Member", req.MemberID)
		}
		s.cfg.Log.Error("Failed to look up member", "member_id", req.MemberID, "error", err)
		return nil, apperrors.StorageFailure("Failed to look up member", err)
	}
	if !member.IsActive() {
		return nil, apperrors.Validation("Member is not active", map[string]any{"member_id": member.ID, "status": member.Status})
	}

	var usage *model.ServiceUsage
	err = s.repo.ExecuteTransaction(ctx, func(txCtx context.Context) error {
		item, err := s.repo.FindItem(txCtx, req.ItemID)
		if err != nil {
			if errors.Is(err, amenitieserrors.ErrNotFound) {
				return apperrors.NotFoundWithID("Stocked item", req.ItemID)
			}
			return apperrors.StorageFailure("Failed to look up stocked item", err)
		}

		if err := s.repo.DecrementStock(txCtx, item.ID, req.Quantity); err != nil {
			if errors.Is(err, amenitieserrors.ErrInsufficientStock) {
				return apperrors.Conflict(fmt.Sprintf("Only %d of %s left", item.AvailableQuantity, item.Name)).
					WithDetails(map[string]any{
						"item_id":            item.ID,
						"requested_quantity": req.Quantity,
						"available_quantity": item.AvailableQuantity,
					})
			}
			return apperrors.StorageFailure("Failed to update stock", err)
		}

		usage = &model.ServiceUsage{
			ID:          uuid.NewString(),
			ItemID:      item.ID,
			MemberID:    req.MemberID,
			Quantity:    req.Quantity,
			TotalPrice:  req.Quantity * item.UnitPrice,
			PurchasedAt: s.now().UTC(),
		}
		if err := s.repo.CreateUsage(txCtx, usage); err != nil {
			return apperrors.StorageFailure("Failed to record usage", err)
		}
		return nil
	})
	if err != nil {
		if !apperrors.IsAppError(err) {
			err = apperrors.StorageFailure("Purchase transaction failed", err)
		}
		if apperrors.HasCode(err, apperrors.CodeConflict) {
			s.cfg.Log.Info("Purchase rejected: insufficient stock", "item_id", req.ItemID, "quantity", req.Quantity)
		} else {
			s.cfg.Log.Error("Purchase failed", "item_id", req.ItemID, "member_id", req.MemberID, "error", err)
		}
		return nil, err
	}

	s.cfg.Log.Info("Purchase recorded",
		"usage_id", usage.ID,
		"item_id", usage.ItemID,
		"member_id", usage.MemberID,
		"quantity", usage.Quantity,
		"total_price", usage.TotalPrice,
	)
	return usage, nil
}

func (s *amenityService) LowStock(ctx context.Context, threshold int) ([]*model.StockedItem, error) {
	if threshold < 0 {
		return nil, apperrors.InvalidInput("threshold must not be negative")
	}
	if threshold == 0 {
		threshold = s.cfg.LowStockThreshold
	}

	items, err := s.repo.FindLowStock(ctx, int64(threshold))
	if err != nil {
		s.cfg.Log.Error("Failed to list low stock", "threshold", threshold, "error", err)
		return nil, apperrors.StorageFailure("Failed to list low stock", err)
	}
	return items, nil
}

func validationError(message string, err error) *apperrors.AppError {
	var verrs validation.ValidationErrors
	if errors.As(err, &verrs) {
		return apperrors.Validation(message, verrs.Details())
	}
	return apperrors.Validation(message, map[string]any{"error": err.Error()})
}
