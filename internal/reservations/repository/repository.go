package repository

import (
	"context"
	"fmt"
	"time"

	"cowork/pkg/config"
	"cowork/pkg/model"
)

const (
	CollectionName = "Reservations"
	// SlotCollectionName holds one document per resource key, written first
	// by every Mongo reservation transaction on that resource.
	SlotCollectionName = "Reservation_slots"
	TableName      = "reservations"
)

// TxFunc runs inside a storage transaction. Repository calls made with the
// ctx it receives join that transaction.
type TxFunc func(ctx context.Context) error

type ReservationRepository interface {
	// ExecuteTransaction runs fn atomically. key names the resource the
	// transaction works on; stores that can serialize on it do so.
	ExecuteTransaction(ctx context.Context, key string, fn TxFunc) error

	Create(ctx context.Context, reservation *model.Reservation) error
	FindByID(ctx context.Context, id string) (*model.Reservation, error)
	FindByIDs(ctx context.Context, ids []string) ([]*model.Reservation, error)
	// FindOverlapping returns up to limit non-cancelled reservations of the
	// resource whose interval overlaps the given one, earliest first.
	FindOverlapping(ctx context.Context, resourceType, resourceID string, interval model.Interval, limit int) ([]*model.Reservation, error)
	// FindActiveIn returns every non-cancelled reservation overlapping interval.
	FindActiveIn(ctx context.Context, interval model.Interval) ([]*model.Reservation, error)
	MarkCancelled(ctx context.Context, id string, at time.Time) error
	AttachInvoice(ctx context.Context, ids []string, invoiceID string) error

	FindByMember(ctx context.Context, memberID string, limit int, offset int64) ([]*model.Reservation, error)
	CountByMember(ctx context.Context, memberID string) (int64, error)
	FindUpcoming(ctx context.Context, from time.Time, limit int) ([]*model.Reservation, error)
	Search(ctx context.Context, search model.ReservationSearch, limit int, offset int64) ([]*model.Reservation, error)
	CountSearch(ctx context.Context, search model.ReservationSearch) (int64, error)
}

// New builds the repository for the configured storage backend.
func New(cfg *config.Config) (ReservationRepository, error) {
	switch cfg.StorageBackend {
	case config.StorageMongo:
		return NewMongoReservationRepository(cfg), nil
	case config.StoragePostgres:
		if cfg.Client.Postgres == nil {
			return nil, fmt.Errorf("postgres storage selected but no connection is configured")
		}
		return NewPostgresReservationRepository(cfg.Client.Postgres, cfg.ReadTimeout, cfg.WriteTimeout), nil
	case config.StorageMemory:
		return NewMemoryReservationRepository(), nil
	default:
		return nil, fmt.Errorf("unknown storage backend %q", cfg.StorageBackend)
	}
}
