package repository

import (
	"context"
	"fmt"
	"slices"
	"sync"
	"time"

	reservationserrors "cowork/internal/reservations/errors"
	"cowork/pkg/model"
)

// memoryReservationRepository keeps reservations in a map. It has no
// transactional isolation of its own: check-then-insert is only atomic while
// the caller holds the resource lock.
type memoryReservationRepository struct {
	mu           sync.RWMutex
	reservations map[string]model.Reservation
}

func NewMemoryReservationRepository() ReservationRepository {
	return &memoryReservationRepository{
		reservations: make(map[string]model.Reservation),
	}
}

func (r *memoryReservationRepository) ExecuteTransaction(ctx context.Context, _ string, fn TxFunc) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return fn(ctx)
}

func (r *memoryReservationRepository) Create(ctx context.Context, reservation *model.Reservation) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.reservations[reservation.ID]; exists {
		return fmt.Errorf("%w: %s", reservationserrors.ErrDuplicateID, reservation.ID)
	}
	r.reservations[reservation.ID] = *reservation
	return nil
}

func (r *memoryReservationRepository) FindByID(ctx context.Context, id string) (*model.Reservation, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()

	reservation, ok := r.reservations[id]
	if !ok {
		return nil, reservationserrors.ErrNotFound
	}
	return &reservation, nil
}

func (r *memoryReservationRepository) FindByIDs(ctx context.Context, ids []string) ([]*model.Reservation, error) {
	return r.filter(ctx, byStartAsc, 0, 0, func(res *model.Reservation) bool {
		return slices.Contains(ids, res.ID)
	})
}

func (r *memoryReservationRepository) FindOverlapping(ctx context.Context, resourceType, resourceID string, interval model.Interval, limit int) ([]*model.Reservation, error) {
	return r.filter(ctx, byStartAsc, limit, 0, func(res *model.Reservation) bool {
		return res.ResourceType == resourceType &&
			res.ResourceID == resourceID &&
			!res.IsCancelled() &&
			res.Interval().Overlaps(interval)
	})
}

func (r *memoryReservationRepository) FindActiveIn(ctx context.Context, interval model.Interval) ([]*model.Reservation, error) {
	return r.filter(ctx, byStartAsc, 0, 0, func(res *model.Reservation) bool {
		return !res.IsCancelled() && res.Interval().Overlaps(interval)
	})
}

func (r *memoryReservationRepository) MarkCancelled(ctx context.Context, id string, at time.Time) error {
	return r.update(ctx, id, func(res *model.Reservation) {
		res.Status = model.ReservationCancelled
		res.CancelledAt = &at
	})
}

// AttachInvoice links every id or none: a single already invoiced reservation
// leaves all of them untouched.
func (r *memoryReservationRepository) AttachInvoice(ctx context.Context, ids []string, invoiceID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, id := range ids {
		if res, ok := r.reservations[id]; !ok || res.InvoiceID != "" {
			return fmt.Errorf("%w: %s", reservationserrors.ErrAlreadyInvoiced, id)
		}
	}
	for _, id := range ids {
		res := r.reservations[id]
		res.InvoiceID = invoiceID
		r.reservations[id] = res
	}
	return nil
}

func (r *memoryReservationRepository) FindByMember(ctx context.Context, memberID string, limit int, offset int64) ([]*model.Reservation, error) {
	return r.filter(ctx, byStartDesc, limit, offset, func(res *model.Reservation) bool {
		return res.MemberID == memberID
	})
}

func (r *memoryReservationRepository) CountByMember(ctx context.Context, memberID string) (int64, error) {
	found, err := r.FindByMember(ctx, memberID, 0, 0)
	return int64(len(found)), err
}

func (r *memoryReservationRepository) FindUpcoming(ctx context.Context, from time.Time, limit int) ([]*model.Reservation, error) {
	return r.filter(ctx, byStartAsc, limit, 0, func(res *model.Reservation) bool {
		return !res.IsCancelled() && !res.StartTime.Before(from)
	})
}

func (r *memoryReservationRepository) Search(ctx context.Context, search model.ReservationSearch, limit int, offset int64) ([]*model.Reservation, error) {
	return r.filter(ctx, byStartAsc, limit, offset, matchesSearch(search))
}

func (r *memoryReservationRepository) CountSearch(ctx context.Context, search model.ReservationSearch) (int64, error) {
	found, err := r.filter(ctx, byStartAsc, 0, 0, matchesSearch(search))
	return int64(len(found)), err
}

func matchesSearch(search model.ReservationSearch) func(*model.Reservation) bool {
	return func(res *model.Reservation) bool {
		if res.ResourceType != search.ResourceType || res.ResourceID != search.ResourceID {
			return false
		}
		if !search.To.IsZero() && !res.StartTime.Before(search.To) {
			return false
		}
		if !search.From.IsZero() && !res.EndTime.After(search.From) {
			return false
		}
		return true
	}
}

func byStartAsc(a, b *model.Reservation) int {
	return a.StartTime.Compare(b.StartTime)
}

func byStartDesc(a, b *model.Reservation) int {
	return b.StartTime.Compare(a.StartTime)
}

// filter returns copies of matching reservations, sorted, then windowed by
// offset and limit. A zero limit means no limit.
func (r *memoryReservationRepository) filter(ctx context.Context, cmp func(a, b *model.Reservation) int, limit int, offset int64, match func(*model.Reservation) bool) ([]*model.Reservation, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.RLock()
	out := []*model.Reservation{}
	for _, res := range r.reservations {
		if match(&res) {
			c := res
			out = append(out, &c)
		}
	}
	r.mu.RUnlock()

	slices.SortFunc(out, cmp)
	if offset >= int64(len(out)) {
		return []*model.Reservation{}, nil
	}
	out = out[offset:]
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r *memoryReservationRepository) update(ctx context.Context, id string, apply func(*model.Reservation)) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	res, ok := r.reservations[id]
	if !ok {
		return reservationserrors.ErrNotFound
	}
	apply(&res)
	r.reservations[id] = res
	return nil
}
