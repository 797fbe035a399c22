package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	memberserrors "cowork/internal/members/errors"
	"cowork/internal/members/repository"
	"cowork/internal/members/validator"
	"cowork/pkg/config"
	apperrors "cowork/pkg/errors"
	"cowork/pkg/model"
	"cowork/pkg/sanitizer"
	"cowork/pkg/validation"

	"github.com/google/uuid"
)

type MemberService interface {
	Register(ctx context.Context, req *model.RegisterMemberRequest) (*model.MemberRegistration, error)
	Get(ctx context.Context, id string) (*model.Member, error)
	ByPlan(ctx context.Context, plan string) ([]*model.Member, error)
	SetStatus(ctx context.Context, id string, update *model.MemberStatusUpdate) (*model.Member, error)
}

type memberService struct {
	repo      repository.MemberRepository
	validator *validator.MemberValidator
	cfg       *config.Config
	now       func() time.Time
}

func NewMemberService(
	repo repository.MemberRepository,
	validator *validator.MemberValidator,
	cfg *config.Config,
) MemberService {
	return &memberService{
		repo:      repo,
		validator: validator,
		cfg:       cfg,
		now:       time.Now,
	}
}

// Register stores the member and issues their first access card atomically.
func (s *memberService) Register(ctx context.Context, req *model.RegisterMemberRequest) (*model.MemberRegistration, error) {
	member := req.Member
	sanitizer.Member(&member)

	now := s.now().UTC()
	member.ID = uuid.NewString()
	member.JoinedAt = now
	if member.Status == "" {
		member.Status = model.MemberActive
	}

	if err := s.validator.Validate(&member); err != nil {
		s.cfg.Log.Warn("Member validation failed", "email", member.Email, "error", err)
		return nil, validationError("Member validation failed", err)
	}

	card := &model.AccessCard{
		ID:         uuid.NewString(),
		MemberID:   member.ID,
		AccessType: req.AccessType,
		Active:     member.IsActive(),
		IssuedAt:   now,
	}
	if card.AccessType == "" {
		card.AccessType = model.AccessStandard
	}
	if err := s.validator.ValidateCard(card); err != nil {
		return nil, validationError("Access card validation failed", err)
	}

	err := s.repo.ExecuteTransaction(ctx, func(txCtx context.Context) error {
		if err := s.repo.Create(txCtx, &member); err != nil {
			return err
		}
		return s.repo.CreateCard(txCtx, card)
	})
	if err != nil {
		if errors.Is(err, memberserrors.ErrEmailTaken) {
			return nil, apperrors.Conflict(fmt.Sprintf("A member with email %s already exists", member.Email))
		}
		s.cfg.Log.Error("Failed to register member", "email", member.Email, "error", err)
		return nil, apperrors.StorageFailure("Failed to register member", err)
	}

	s.cfg.Log.Info("Member registered",
		"member_id", member.ID,
		"plan", member.MembershipPlan,
		"card_id", card.ID,
		"access_type", card.AccessType,
	)
	return &model.MemberRegistration{Member: &member, Card: card}, nil
}

func (s *memberService) Get(ctx context.Context, id string) (*model.Member, error) {
	if id == "" {
		return nil, apperrors.InvalidInput("Member ID cannot be empty")
	}

	member, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, memberserrors.ErrNotFound) {
			return nil, apperrors.NotFoundWithID("Member", id)
		}
		s.cfg.Log.Error("Failed to get member", "member_id", id, "error", err)
		return nil, apperrors.StorageFailure("Failed to retrieve member", err)
	}
	return member, nil
}

func (s *memberService) ByPlan(ctx context.Context, plan string) ([]*model.Member, error) {
	switch plan {
	case model.PlanDayPass, model.PlanHotDesk, model.PlanDedicated, model.PlanPrivate:
	default:
		return nil, apperrors.InvalidInput(fmt.Sprintf("unknown membership plan %q", plan))
	}

	members, err := s.repo.FindByPlan(ctx, plan)
	if err != nil {
		s.cfg.Log.Error("Failed to list members by plan", "plan", plan, "error", err)
		return nil, apperrors.StorageFailure("Failed to list members", err)
	}
	return members, nil
}

// SetStatus changes the member status and enables or disables their cards to match.
func (s *memberService) SetStatus(ctx context.Context, id string, update *model.MemberStatusUpdate) (*model.Member, error) {
	if err := s.validator.ValidateStatus(update); err != nil {
		return nil, validationError("Status validation failed", err)
	}

	member, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if member.Status == update.Status {
		return member, nil
	}

	err = s.repo.ExecuteTransaction(ctx, func(txCtx context.Context) error {
		if err := s.repo.UpdateStatus(txCtx, id, update.Status); err != nil {
			return err
		}
		return s.repo.SetCardsActive(txCtx, id, update.Status == model.MemberActive)
	})
	if err != nil {
		if errors.Is(err, memberserrors.ErrNotFound) {
			return nil, apperrors.NotFoundWithID("Member", id)
		}
		s.cfg.Log.Error("Failed to update member status", "member_id", id, "error", err)
		return nil, apperrors.StorageFailure("Failed to update member status", err)
	}

	s.cfg.Log.Info("Member status updated", "member_id", id, "from", member.Status, "to", update.Status)
	member.Status = update.Status
	return member, nil
}

func validationError(message string, err error) *apperrors.AppError {
	var verrs validation.ValidationErrors
	if errors.As(err, &verrs) {
		return apperrors.Validation(message, verrs.Details())
	}
	return apperrors.Validation(message, map[string]any{"error": err.Error()})
}
