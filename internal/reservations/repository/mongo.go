package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	reservationserrors "cowork/internal/reservations/errors"
	"cowork/pkg/config"
	mongotx "cowork/pkg/db/mongo"
	"cowork/pkg/model"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type mongoReservationRepository struct {
	collection   *mongo.Collection
	slots        *mongo.Collection
	txManager    mongotx.TransactionManager
	readTimeout  time.Duration
	writeTimeout time.Duration
	now          func() time.Time
}

func NewMongoReservationRepository(cfg *config.Config) ReservationRepository {
	return newMongoReservationRepository(
		cfg.Client.Mongo.Database(cfg.MongoDatabaseName),
		mongotx.NewTransactionManager(cfg.Client.Mongo),
		cfg.ReadTimeout,
		cfg.WriteTimeout,
	)
}

func newMongoReservationRepository(db *mongo.Database, tx mongotx.TransactionManager, readTimeout, writeTimeout time.Duration) *mongoReservationRepository {
	return &mongoReservationRepository{
		collection:   db.Collection(CollectionName),
		slots:        db.Collection(SlotCollectionName),
		txManager:    tx,
		readTimeout:  readTimeout,
		writeTimeout: writeTimeout,
		now:          time.Now,
	}
}

// ExecuteTransaction runs fn in a multi-document transaction that first
// writes the slot document for key. Two transactions on the same key then
// write-conflict even when neither lock lease is still valid, and the one
// that retries sees the other's committed reservation.
func (r *mongoReservationRepository) ExecuteTransaction(ctx context.Context, key string, fn TxFunc) error {
	return r.txManager.ExecuteTransaction(ctx, func(sessCtx mongo.SessionContext) error {
		if key != "" {
			if err := r.touchSlot(sessCtx, key); err != nil {
				return err
			}
		}
		return fn(sessCtx)
	})
}

func (r *mongoReservationRepository) touchSlot(ctx context.Context, key string) error {
	ctx, cancel := mongotx.WithTimeout(ctx, r.writeTimeout)
	defer cancel()

	update := bson.M{
		"$inc": bson.M{"version": 1},
		"$set": bson.M{"updated_at": r.now().UTC()},
	}
	if _, err := r.slots.UpdateOne(ctx, bson.M{"_id": key}, update, options.Update().SetUpsert(true)); err != nil {
		return fmt.Errorf("failed to write slot %s: %w", key, err)
	}
	return nil
}

func (r *mongoReservationRepository) Create(ctx context.Context, reservation *model.Reservation) error {
	ctx, cancel := mongotx.WithTimeout(ctx, r.writeTimeout)
	defer cancel()

	if _, err := r.collection.InsertOne(ctx, reservation); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return fmt.Errorf("%w: %s", reservationserrors.ErrDuplicateID, reservation.ID)
		}
		return fmt.Errorf("failed to create reservation: %w", err)
	}
	return nil
}

func (r *mongoReservationRepository) FindByID(ctx context.Context, id string) (*model.Reservation, error) {
	ctx, cancel := mongotx.WithTimeout(ctx, r.readTimeout)
	defer cancel()

	var reservation model.Reservation
	err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&reservation)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, reservationserrors.ErrNotFound
		}
		return nil, fmt.Errorf("failed to find reservation: %w", err)
	}
	return &reservation, nil
}

func (r *mongoReservationRepository) FindByIDs(ctx context.Context, ids []string) ([]*model.Reservation, error) {
	return r.find(ctx, bson.M{"_id": bson.M{"$in": ids}}, options.Find().SetSort(bson.D{{Key: "start_time", Value: 1}}))
}

func (r *mongoReservationRepository) FindOverlapping(ctx context.Context, resourceType, resourceID string, interval model.Interval, limit int) ([]*model.Reservation, error) {
	filter := overlapFilter(interval)
	filter["resource_type"] = resourceType
	filter["resource_id"] = resourceID

	opts := options.Find().
		SetSort(bson.D{{Key: "start_time", Value: 1}}).
		SetLimit(int64(limit))
	return r.find(ctx, filter, opts)
}

func (r *mongoReservationRepository) FindActiveIn(ctx context.Context, interval model.Interval) ([]*model.Reservation, error) {
	return r.find(ctx, overlapFilter(interval), options.Find())
}

func (r *mongoReservationRepository) MarkCancelled(ctx context.Context, id string, at time.Time) error {
	ctx, cancel := mongotx.WithTimeout(ctx, r.writeTimeout)
	defer cancel()

	update := bson.M{"$set": bson.M{
		"status":       model.ReservationCancelled,
		"cancelled_at": at,
	}}
	result, err := r.collection.UpdateOne(ctx, bson.M{"_id": id}, update)
	if err != nil {
		return fmt.Errorf("failed to cancel reservation: %w", err)
	}
	if result.MatchedCount == 0 {
		return reservationserrors.ErrNotFound
	}
	return nil
}

func (r *mongoReservationRepository) AttachInvoice(ctx context.Context, ids []string, invoiceID string) error {
	ctx, cancel := mongotx.WithTimeout(ctx, r.writeTimeout)
	defer cancel()

	result, err := r.collection.UpdateMany(ctx, uninvoiced(ids), bson.M{"$set": bson.M{"invoice_id": invoiceID}})
	if err != nil {
		return fmt.Errorf("failed to attach invoice: %w", err)
	}
	if result.MatchedCount != int64(len(ids)) {
		return fmt.Errorf("%w: linked %d of %d", reservationserrors.ErrAlreadyInvoiced, result.MatchedCount, len(ids))
	}
	return nil
}

// uninvoiced matches ids that have no invoice yet. Inside a transaction a
// short match aborts the whole invoice.
func uninvoiced(ids []string) bson.M {
	return bson.M{
		"_id": bson.M{"$in": ids},
		"$or": bson.A{
			bson.M{"invoice_id": bson.M{"$exists": false}},
			bson.M{"invoice_id": ""},
		},
	}
}

func (r *mongoReservationRepository) FindByMember(ctx context.Context, memberID string, limit int, offset int64) ([]*model.Reservation, error) {
	opts := options.Find().
		SetSort(bson.D{{Key: "start_time", Value: -1}}).
		SetLimit(int64(limit)).
		SetSkip(offset)
	return r.find(ctx, bson.M{"member_id": memberID}, opts)
}

func (r *mongoReservationRepository) CountByMember(ctx context.Context, memberID string) (int64, error) {
	return r.count(ctx, bson.M{"member_id": memberID})
}

func (r *mongoReservationRepository) FindUpcoming(ctx context.Context, from time.Time, limit int) ([]*model.Reservation, error) {
	filter := bson.M{
		"status":     bson.M{"$ne": model.ReservationCancelled},
		"start_time": bson.M{"$gte": from},
	}
	opts := options.Find().
		SetSort(bson.D{{Key: "start_time", Value: 1}}).
		SetLimit(int64(limit))
	return r.find(ctx, filter, opts)
}

func (r *mongoReservationRepository) Search(ctx context.Context, search model.ReservationSearch, limit int, offset int64) ([]*model.Reservation, error) {
	opts := options.Find().
		SetSort(bson.D{{Key: "start_time", Value: 1}}).
		SetLimit(int64(limit)).
		SetSkip(offset)
	return r.find(ctx, buildSearchFilter(search), opts)
}

func (r *mongoReservationRepository) CountSearch(ctx context.Context, search model.ReservationSearch) (int64, error) {
	return r.count(ctx, buildSearchFilter(search))
}

func (r *mongoReservationRepository) find(ctx context.Context, filter bson.M, opts *options.FindOptions) ([]*model.Reservation, error) {
	ctx, cancel := mongotx.WithTimeout(ctx, r.readTimeout)
	defer cancel()

	cursor, err := r.collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to find reservations: %w", err)
	}
	defer cursor.Close(ctx)

	reservations := []*model.Reservation{}
	if err = cursor.All(ctx, &reservations); err != nil {
		return nil, fmt.Errorf("failed to decode reservations: %w", err)
	}
	return reservations, nil
}

func (r *mongoReservationRepository) count(ctx context.Context, filter bson.M) (int64, error) {
	ctx, cancel := mongotx.WithTimeout(ctx, r.readTimeout)
	defer cancel()

	count, err := r.collection.CountDocuments(ctx, filter)
	if err != nil {
		return 0, fmt.Errorf("failed to count reservations: %w", err)
	}
	return count, nil
}

// overlapFilter matches non-cancelled reservations sharing any instant with
// the half-open interval.
func overlapFilter(interval model.Interval) bson.M {
	return bson.M{
		"status":     bson.M{"$ne": model.ReservationCancelled},
		"start_time": bson.M{"$lt": interval.End},
		"end_time":   bson.M{"$gt": interval.Start},
	}
}

func buildSearchFilter(search model.ReservationSearch) bson.M {
	filter := bson.M{
		"resource_type": search.ResourceType,
		"resource_id":   search.ResourceID,
	}
	if !search.To.IsZero() {
		filter["start_time"] = bson.M{"$lt": search.To}
	}
	if !search.From.IsZero() {
		filter["end_time"] = bson.M{"$gt": search.From}
	}
	return filter
}
