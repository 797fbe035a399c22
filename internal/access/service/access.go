package service

import (
	"context"
	"errors"
	"time"

	"cowork/internal/access/repository"
	memberserrors "cowork/internal/members/errors"
	"cowork/internal/members/validator"
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

type AccessService interface {
	Log(ctx context.Context, entry *model.AccessLog) error
	History(ctx context.Context, memberID string, days int) ([]*model.AccessLog, error)
	Today(ctx context.Context) ([]*model.AccessLog, error)
	Stats(ctx context.Context, days int) ([]*model.LocationAccessStats, error)
}

type accessService struct {
	repo      repository.AccessRepository
	members   MemberDirectory
	validator *validator.MemberValidator
	cfg       *config.Config
	now       func() time.Time
}

func NewAccessService(
	repo repository.AccessRepository,
	members MemberDirectory,
	validator *validator.MemberValidator,
	cfg *config.Config,
) AccessService {
	return &accessService{
		repo:      repo,
		members:   members,
		validator: validator,
		cfg:       cfg,
		now:       time.Now,
	}
}

// Log records an entry or exit. Only active members may enter; exits are
// always recorded so a suspended member can still leave.
func (s *accessService) Log(ctx context.Context, entry *model.AccessLog) error {
	entry.ID = uuid.NewString()
	entry.Location = sanitizer.NormalizeLocation(entry.Location)
	entry.Timestamp = s.now().UTC()

	if err := s.validator.ValidateAccessLog(entry); err != nil {
		var verrs validation.ValidationErrors
		if errors.As(err, &verrs) {
			return apperrors.Validation("Access log validation failed", verrs.Details())
		}
		return apperrors.Validation("Access log validation failed", map[string]any{"error": err.Error()})
	}

	member, err := s.members.FindByID(ctx, entry.MemberID)
	if err != nil {
		if errors.Is(err, memberserrors.ErrNotFound) {
			return apperrors.NotFoundWithID("Member", entry.MemberID)
		}
		s.cfg.Log.Error("Failed to look up member", "member_id", entry.MemberID, "error", err)
		return apperrors.StorageFailure("Failed to look up member", err)
	}
	if entry.EntryType == model.EntryIn && !member.IsActive() {
		s.cfg.Log.Warn("Entry denied", "member_id", member.ID, "status", member.Status, "location", entry.Location)
		return apperrors.Validation("Member is not active", map[string]any{
			"member_id": member.ID,
			"status":    member.Status,
		})
	}

	if err := s.repo.Create(ctx, entry); err != nil {
		s.cfg.Log.Error("Failed to record access", "member_id", entry.MemberID, "error", err)
		return apperrors.StorageFailure("Failed to record access", err)
	}

	s.cfg.Log.Debug("Access recorded",
		"member_id", entry.MemberID,
		"device_id", entry.DeviceID,
		"location", entry.Location,
		"entry_type", entry.EntryType,
	)
	return nil
}

func (s *accessService) History(ctx context.Context, memberID string, days int) ([]*model.AccessLog, error) {
	if memberID == "" {
		return nil, apperrors.InvalidInput("Member ID cannot be empty")
	}
	since, err := s.since(days)
	if err != nil {
		return nil, err
	}

	entries, err := s.repo.FindByMemberSince(ctx, memberID, since)
	if err != nil {
		s.cfg.Log.Error("Failed to load access history", "member_id", memberID, "error", err)
		return nil, apperrors.StorageFailure("Failed to load access history", err)
	}
	return entries, nil
}

func (s *accessService) Today(ctx context.Context) ([]*model.AccessLog, error) {
	now := s.now().UTC()
	midnight := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)

	entries, err := s.repo.FindSince(ctx, midnight)
	if err != nil {
		s.cfg.Log.Error("Failed to load today's access logs", "error", err)
		return nil, apperrors.StorageFailure("Failed to load access logs", err)
	}
	return entries, nil
}

func (s *accessService) Stats(ctx context.Context, days int) ([]*model.LocationAccessStats, error) {
	since, err := s.since(days)
	if err != nil {
		return nil, err
	}

	stats, err := s.repo.StatsByLocation(ctx, since)
	if err != nil {
		s.cfg.Log.Error("Failed to aggregate access stats", "error", err)
		return nil, apperrors.StorageFailure("Failed to aggregate access stats", err)
	}
	return stats, nil
}

// since returns the start of a lookback of days, defaulting to AccessHistoryDays.
func (s *accessService) since(days int) (time.Time, error) {
	if days < 0 {
		return time.Time{}, apperrors.InvalidInput("days must not be negative")
	}
	if days == 0 {
		days = s.cfg.AccessHistoryDays
	}
	return s.now().UTC().AddDate(0, 0, -days), nil
}
