package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	reservationserrors "cowork/internal/reservations/errors"
	"cowork/pkg/model"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
)

const (
	pgExclusionViolation = "23P01"
	pgUniqueViolation    = "23505"
)

type txKey struct{}

type postgresReservationRepository struct {
	db           *gorm.DB
	readTimeout  time.Duration
	writeTimeout time.Duration
}

func NewPostgresReservationRepository(db *gorm.DB, readTimeout, writeTimeout time.Duration) ReservationRepository {
	return &postgresReservationRepository{
		db:           db,
		readTimeout:  readTimeout,
		writeTimeout: writeTimeout,
	}
}

// ExecuteTransaction serializes writers of the same key with a
// transaction-scoped advisory lock, released on commit or rollback.
func (r *postgresReservationRepository) ExecuteTransaction(ctx context.Context, key string, fn TxFunc) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Exec("SELECT pg_advisory_xact_lock(hashtext(?))", key).Error; err != nil {
			return fmt.Errorf("failed to take advisory lock: %w", err)
		}
		return fn(context.WithValue(ctx, txKey{}, tx))
	})
	return err
}

// conn returns the transaction carried by ctx, or the pool.
func (r *postgresReservationRepository) conn(ctx context.Context, timeout time.Duration) (*gorm.DB, context.CancelFunc) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	if tx, ok := ctx.Value(txKey{}).(*gorm.DB); ok {
		return tx.WithContext(ctx), cancel
	}
	return r.db.WithContext(ctx), cancel
}

func (r *postgresReservationRepository) Create(ctx context.Context, reservation *model.Reservation) error {
	db, cancel := r.conn(ctx, r.writeTimeout)
	defer cancel()

	if err := db.Create(reservation).Error; err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) {
			switch pgErr.Code {
			case pgExclusionViolation:
				return fmt.Errorf("%w: %s", reservationserrors.ErrOverlap, pgErr.ConstraintName)
			case pgUniqueViolation:
				return fmt.Errorf("%w: %s", reservationserrors.ErrDuplicateID, reservation.ID)
			}
		}
		return fmt.Errorf("failed to create reservation: %w", err)
	}
	return nil
}

func (r *postgresReservationRepository) FindByID(ctx context.Context, id string) (*model.Reservation, error) {
	db, cancel := r.conn(ctx, r.readTimeout)
	defer cancel()

	var reservation model.Reservation
	if err := db.Where("id = ?", id).Take(&reservation).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, reservationserrors.ErrNotFound
		}
		return nil, fmt.Errorf("failed to find reservation: %w", err)
	}
	return &reservation, nil
}

func (r *postgresReservationRepository) FindByIDs(ctx context.Context, ids []string) ([]*model.Reservation, error) {
	return r.find(ctx, func(q *gorm.DB) *gorm.DB {
		return q.Where("id IN ?", ids).Order("start_time")
	})
}

func (r *postgresReservationRepository) FindOverlapping(ctx context.Context, resourceType, resourceID string, interval model.Interval, limit int) ([]*model.Reservation, error) {
	return r.find(ctx, func(q *gorm.DB) *gorm.DB {
		return q.
			Where("resource_type = ? AND resource_id = ?", resourceType, resourceID).
			Scopes(overlapping(interval)).
			Order("start_time").
			Limit(limit)
	})
}

func (r *postgresReservationRepository) FindActiveIn(ctx context.Context, interval model.Interval) ([]*model.Reservation, error) {
	return r.find(ctx, func(q *gorm.DB) *gorm.DB {
		return q.Scopes(overlapping(interval))
	})
}

func (r *postgresReservationRepository) MarkCancelled(ctx context.Context, id string, at time.Time) error {
	db, cancel := r.conn(ctx, r.writeTimeout)
	defer cancel()

	result := db.Model(&model.Reservation{}).
		Where("id = ?", id).
		Updates(map[string]any{"status": model.ReservationCancelled, "cancelled_at": at})
	if result.Error != nil {
		return fmt.Errorf("failed to cancel reservation: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return reservationserrors.ErrNotFound
	}
	return nil
}

func (r *postgresReservationRepository) AttachInvoice(ctx context.Context, ids []string, invoiceID string) error {
	db, cancel := r.conn(ctx, r.writeTimeout)
	defer cancel()

	result := db.Model(&model.Reservation{}).
		Where("id IN ? AND (invoice_id IS NULL OR invoice_id = '')", ids).
		Update("invoice_id", invoiceID)
	if result.Error != nil {
		return fmt.Errorf("failed to attach invoice: %w", result.Error)
	}
	if result.RowsAffected != int64(len(ids)) {
		return fmt.Errorf("%w: linked %d of %d", reservationserrors.ErrAlreadyInvoiced, result.RowsAffected, len(ids))
	}
	return nil
}

func (r *postgresReservationRepository) FindByMember(ctx context.Context, memberID string, limit int, offset int64) ([]*model.Reservation, error) {
	return r.find(ctx, func(q *gorm.DB) *gorm.DB {
		return q.Where("member_id = ?", memberID).Order("start_time DESC").Limit(limit).Offset(int(offset))
	})
}

func (r *postgresReservationRepository) CountByMember(ctx context.Context, memberID string) (int64, error) {
	return r.count(ctx, func(q *gorm.DB) *gorm.DB {
		return q.Where("member_id = ?", memberID)
	})
}

func (r *postgresReservationRepository) FindUpcoming(ctx context.Context, from time.Time, limit int) ([]*model.Reservation, error) {
	return r.find(ctx, func(q *gorm.DB) *gorm.DB {
		return q.Where("status <> ? AND start_time >= ?", model.ReservationCancelled, from).Order("start_time").Limit(limit)
	})
}

func (r *postgresReservationRepository) Search(ctx context.Context, search model.ReservationSearch, limit int, offset int64) ([]*model.Reservation, error) {
	return r.find(ctx, func(q *gorm.DB) *gorm.DB {
		return q.Scopes(searchScope(search)).Order("start_time").Limit(limit).Offset(int(offset))
	})
}

func (r *postgresReservationRepository) CountSearch(ctx context.Context, search model.ReservationSearch) (int64, error) {
	return r.count(ctx, searchScope(search))
}

func (r *postgresReservationRepository) find(ctx context.Context, scope func(*gorm.DB) *gorm.DB) ([]*model.Reservation, error) {
	db, cancel := r.conn(ctx, r.readTimeout)
	defer cancel()

	reservations := []*model.Reservation{}
	if err := db.Scopes(scope).Find(&reservations).Error; err != nil {
		return nil, fmt.Errorf("failed to find reservations: %w", err)
	}
	return reservations, nil
}

func (r *postgresReservationRepository) count(ctx context.Context, scope func(*gorm.DB) *gorm.DB) (int64, error) {
	db, cancel := r.conn(ctx, r.readTimeout)
	defer cancel()

	var count int64
	if err := db.Model(&model.Reservation{}).Scopes(scope).Count(&count).Error; err != nil {
		return 0, fmt.Errorf("failed to count reservations: %w", err)
	}
	return count, nil
}

func overlapping(interval model.Interval) func(*gorm.DB) *gorm.DB {
	return func(q *gorm.DB) *gorm.DB {
		return q.Where("status <> ? AND start_time < ? AND end_time > ?", model.ReservationCancelled, interval.End, interval.Start)
	}
}

func searchScope(search model.ReservationSearch) func(*gorm.DB) *gorm.DB {
	return func(q *gorm.DB) *gorm.DB {
		q = q.Where("resource_type = ? AND resource_id = ?", search.ResourceType, search.ResourceID)
		if !search.To.IsZero() {
			q = q.Where("start_time < ?", search.To)
		}
		if !search.From.IsZero() {
			q = q.Where("end_time > ?", search.From)
		}
		return q
	}
}
