package service

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"time"

	amenitieserrors "cowork/internal/amenities/errors"
	billingerrors "cowork/internal/billing/errors"
	"cowork/internal/billing/repository"
	"cowork/internal/billing/validator"
	reservationserrors "cowork/internal/reservations/errors"
	"cowork/pkg/config"
	apperrors "cowork/pkg/errors"
	"cowork/pkg/model"
	"cowork/pkg/validation"

	"github.com/google/uuid"
)

// ReservationLedger is the billing view of stored reservations.
type ReservationLedger interface {
	FindByIDs(ctx context.Context, ids []string) ([]*model.Reservation, error)
	AttachInvoice(ctx context.Context, ids []string, invoiceID string) error
}

// UsageLedger is the billing view of amenity purchases.
type UsageLedger interface {
	FindUsages(ctx context.Context, ids []string) ([]*model.ServiceUsage, error)
	AttachInvoice(ctx context.Context, ids []string, invoiceID string) error
}

type InvoiceService interface {
	Generate(ctx context.Context, req *model.InvoiceRequest) (*model.Invoice, error)
	Pay(ctx context.Context, id string) (*model.Invoice, error)
	ByMember(ctx context.Context, memberID string) ([]*model.Invoice, error)
	Overdue(ctx context.Context) ([]*model.Invoice, error)
	// InvoiceReservation bills a single reservation unless it is already
	// invoiced or cancelled. Safe to call more than once.
	InvoiceReservation(ctx context.Context, reservationID string) error
	ScanOverdue(ctx context.Context) error
}

type invoiceService struct {
	repo         repository.InvoiceRepository
	reservations ReservationLedger
	usages       UsageLedger
	validator    *validator.InvoiceValidator
	cfg          *config.Config
	now          func() time.Time
}

func NewInvoiceService(
	repo repository.InvoiceRepository,
	reservations ReservationLedger,
	usages UsageLedger,
	validator *validator.InvoiceValidator,
	cfg *config.Config,
) InvoiceService {
	return &invoiceService{
		repo:         repo,
		reservations: reservations,
		usages:       usages,
		validator:    validator,
		cfg:          cfg,
		now:          time.Now,
	}
}

func (s *invoiceService) Generate(ctx context.Context, req *model.InvoiceRequest) (*model.Invoice, error) {
	if err := s.validator.Validate(req); err != nil {
		return nil, validationError("Invoice validation failed", err)
	}
	reservationIDs := dedupe(req.ReservationIDs)
	usageIDs := dedupe(req.UsageIDs)
	if len(reservationIDs) == 0 && len(usageIDs) == 0 {
		return nil, apperrors.InvalidInput("At least one reservation or usage id is required")
	}

	var total int64
	if len(reservationIDs) > 0 {
		reservations, err := s.reservations.FindByIDs(ctx, reservationIDs)
		if err != nil {
			s.cfg.Log.Error("Failed to load reservations for invoice", "member_id", req.MemberID, "error", err)
			return nil, apperrors.StorageFailure("Failed to load reservations", err)
		}
		if missing := missingIDs(reservationIDs, reservations, func(r *model.Reservation) string { return r.ID }); len(missing) > 0 {
			return nil, apperrors.NotFound("Reservation").WithDetails(map[string]any{"missing_ids": missing})
		}
		for _, r := range reservations {
			switch {
			case r.MemberID != req.MemberID:
				return nil, apperrors.Validation("Reservation belongs to another member", map[string]any{"reservation_id": r.ID})
			case r.IsCancelled():
				return nil, apperrors.Validation("Cancelled reservations cannot be invoiced", map[string]any{"reservation_id": r.ID})
			case r.InvoiceID != "":
				return nil, apperrors.Conflict(fmt.Sprintf("Reservation %s is already invoiced", r.ID)).
					WithDetails(map[string]any{"reservation_id": r.ID, "invoice_id": r.InvoiceID})
			}
			total += r.TotalPrice
		}
	}

	if len(usageIDs) > 0 {
		usages, err := s.usages.FindUsages(ctx, usageIDs)
		if err != nil {
			s.cfg.Log.Error("Failed to load usages for invoice", "member_id", req.MemberID, "error", err)
			return nil, apperrors.StorageFailure("Failed to load usages", err)
		}
		if missing := missingIDs(usageIDs, usages, func(u *model.ServiceUsage) string { return u.ID }); len(missing) > 0 {
			return nil, apperrors.NotFound("Service usage").WithDetails(map[string]any{"missing_ids": missing})
		}
		for _, u := range usages {
			switch {
			case u.MemberID != req.MemberID:
				return nil, apperrors.Validation("Usage belongs to another member", map[string]any{"usage_id": u.ID})
			case u.InvoiceID != "":
				return nil, apperrors.Conflict(fmt.Sprintf("Usage %s is already invoiced", u.ID)).
					WithDetails(map[string]any{"usage_id": u.ID, "invoice_id": u.InvoiceID})
			}
			total += u.TotalPrice
		}
	}

	now := s.now().UTC()
	invoice := &model.Invoice{
		ID:             uuid.NewString(),
		MemberID:       req.MemberID,
		TotalAmount:    total,
		Status:         model.InvoicePending,
		InvoiceDate:    now,
		DueDate:        now.AddDate(0, 0, s.cfg.InvoiceDueDays),
		ReservationIDs: reservationIDs,
		UsageIDs:       usageIDs,
	}

	err := s.repo.ExecuteTransaction(ctx, func(txCtx context.Context) error {
		if err := s.repo.Create(txCtx, invoice); err != nil {
			return err
		}
		if len(usageIDs) > 0 {
			if err := s.usages.AttachInvoice(txCtx, usageIDs, invoice.ID); err != nil {
				if errors.Is(err, amenitieserrors.ErrUsageAlreadyInvoiced) {
					return apperrors.Conflict("A usage was invoiced concurrently").
						WithDetails(map[string]any{"usage_ids": usageIDs})
				}
				return err
			}
		}
		if len(reservationIDs) > 0 {
			if err := s.reservations.AttachInvoice(txCtx, reservationIDs, invoice.ID); err != nil {
				if errors.Is(err, reservationserrors.ErrAlreadyInvoiced) {
					return apperrors.Conflict("A reservation was invoiced concurrently").
						WithDetails(map[string]any{"reservation_ids": reservationIDs})
				}
				return err
			}
		}
		return nil
	})
	if err != nil {
		var appErr *apperrors.AppError
		if errors.As(err, &appErr) {
			s.cfg.Log.Info("Invoice generation rejected", "member_id", req.MemberID, "error", err)
			return nil, appErr
		}
		s.cfg.Log.Error("Failed to generate invoice", "member_id", req.MemberID, "error", err)
		return nil, apperrors.StorageFailure("Failed to generate invoice", err)
	}

	s.cfg.Log.Info("Invoice generated",
		"invoice_id", invoice.ID,
		"member_id", invoice.MemberID,
		"total_amount", invoice.TotalAmount,
		"reservations", len(reservationIDs),
		"usages", len(usageIDs),
		"due_date", invoice.DueDate,
	)
	return invoice, nil
}

func (s *invoiceService) Pay(ctx context.Context, id string) (*model.Invoice, error) {
	if id == "" {
		return nil, apperrors.InvalidInput("Invoice ID cannot be empty")
	}

	at := s.now().UTC()
	if err := s.repo.MarkPaid(ctx, id, at); err != nil {
		switch {
		case errors.Is(err, billingerrors.ErrNotFound):
			return nil, apperrors.NotFoundWithID("Invoice", id)
		case errors.Is(err, billingerrors.ErrNotPending):
			return nil, apperrors.Conflict(fmt.Sprintf("Invoice %s is not pending", id))
		default:
			s.cfg.Log.Error("Failed to pay invoice", "invoice_id", id, "error", err)
			return nil, apperrors.StorageFailure("Failed to pay invoice", err)
		}
	}

	invoice, err := s.repo.FindByID(ctx, id)
	if err != nil {
		s.cfg.Log.Error("Failed to reload paid invoice", "invoice_id", id, "error", err)
		return nil, apperrors.StorageFailure("Failed to retrieve invoice", err)
	}

	s.cfg.Log.Info("Invoice paid", "invoice_id", id, "member_id", invoice.MemberID, "total_amount", invoice.TotalAmount)
	return invoice, nil
}

func (s *invoiceService) ByMember(ctx context.Context, memberID string) ([]*model.Invoice, error) {
	if memberID == "" {
		return nil, apperrors.InvalidInput("Member ID cannot be empty")
	}

	invoices, err := s.repo.FindByMember(ctx, memberID)
	if err != nil {
		s.cfg.Log.Error("Failed to list member invoices", "member_id", memberID, "error", err)
		return nil, apperrors.StorageFailure("Failed to list invoices", err)
	}
	return invoices, nil
}

func (s *invoiceService) Overdue(ctx context.Context) ([]*model.Invoice, error) {
	invoices, err := s.repo.FindOverdue(ctx, s.now().UTC())
	if err != nil {
		s.cfg.Log.Error("Failed to list overdue invoices", "error", err)
		return nil, apperrors.StorageFailure("Failed to list overdue invoices", err)
	}
	return invoices, nil
}

func (s *invoiceService) InvoiceReservation(ctx context.Context, reservationID string) error {
	found, err := s.reservations.FindByIDs(ctx, []string{reservationID})
	if err != nil {
		return apperrors.StorageFailure("Failed to load reservation", err)
	}
	if len(found) == 0 {
		return apperrors.NotFoundWithID("Reservation", reservationID)
	}

	r := found[0]
	if r.InvoiceID != "" || r.IsCancelled() {
		s.cfg.Log.Debug("Reservation needs no invoice", "reservation_id", r.ID, "invoice_id", r.InvoiceID, "status", r.Status)
		return nil
	}

	_, err = s.Generate(ctx, &model.InvoiceRequest{MemberID: r.MemberID, ReservationIDs: []string{r.ID}})
	if apperrors.HasCode(err, apperrors.CodeConflict) {
		return nil
	}
	return err
}

// ScanOverdue logs the outstanding overdue balance.
func (s *invoiceService) ScanOverdue(ctx context.Context) error {
	invoices, err := s.repo.FindOverdue(ctx, s.now().UTC())
	if err != nil {
		return fmt.Errorf("failed to scan overdue invoices: %w", err)
	}
	if len(invoices) == 0 {
		s.cfg.Log.Debug("No overdue invoices")
		return nil
	}

	var outstanding int64
	members := make(map[string]struct{}, len(invoices))
	for _, inv := range invoices {
		outstanding += inv.TotalAmount
		members[inv.MemberID] = struct{}{}
	}
	s.cfg.Log.Warn("Overdue invoices outstanding",
		"count", len(invoices),
		"members", len(members),
		"outstanding_amount", outstanding,
		"oldest_due_date", invoices[0].DueDate,
	)
	return nil
}

func validationError(message string, err error) *apperrors.AppError {
	var verrs validation.ValidationErrors
	if errors.As(err, &verrs) {
		return apperrors.Validation(message, verrs.Details())
	}
	return apperrors.Validation(message, map[string]any{"error": err.Error()})
}

func dedupe(ids []string) []string {
	if len(ids) == 0 {
		return nil
	}
	out := slices.Clone(ids)
	slices.Sort(out)
	return slices.Compact(out)
}

func missingIDs[T any](want []string, found []T, id func(T) string) []string {
	seen := make(map[string]bool, len(found))
	for _, f := range found {
		seen[id(f)] = true
	}
	var missing []string
	for _, w := range want {
		if !seen[w] {
			missing = append(missing, w)
		}
	}
	return missing
}
