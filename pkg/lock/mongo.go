package lock

import (
	"context"
	"fmt"
	"time"

	"cowork/pkg/model"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

const LeaseCollection = "Reservation_locks"

// Mongo stores one lease document per key. A duplicate _id on insert means the
// key is held; a lease past expires_at may be taken over by the next caller.
type Mongo struct {
	collection *mongo.Collection
	opts       Options
	now        func() time.Time
}

func NewMongo(db *mongo.Database, opts Options) *Mongo {
	return &Mongo{
		collection: db.Collection(LeaseCollection),
		opts:       opts.withDefaults(),
		now:        func() time.Time { return time.Now().UTC() },
	}
}

func (m *Mongo) Acquire(ctx context.Context, key string) (Lease, error) {
	token := m.opts.Token()

	err := retry(ctx, m.opts, func(ctx context.Context) (bool, error) {
		return m.try(ctx, key, token)
	})
	if err != nil {
		return nil, err
	}
	return &mongoLease{owner: m, key: key, token: token}, nil
}

func (m *Mongo) try(ctx context.Context, key, token string) (bool, error) {
	now := m.now()
	lease := model.LockLease{
		Key:       key,
		Token:     token,
		ExpiresAt: now.Add(m.opts.TTL),
		CreatedAt: now,
	}

	_, err := m.collection.InsertOne(ctx, lease)
	if err == nil {
		return true, nil
	}
	if !mongo.IsDuplicateKeyError(err) {
		return false, fmt.Errorf("failed to insert lease: %w", err)
	}

	result, err := m.collection.UpdateOne(ctx,
		bson.M{"_id": key, "expires_at": bson.M{"$lt": now}},
		bson.M{"$set": bson.M{
			"token":      token,
			"expires_at": lease.ExpiresAt,
			"created_at": now,
		}},
	)
	if err != nil {
		return false, fmt.Errorf("failed to take over expired lease: %w", err)
	}
	return result.ModifiedCount == 1, nil
}

type mongoLease struct {
	owner *Mongo
	key   string
	token string
}

func (ml *mongoLease) Key() string {
	return ml.key
}

func (ml *mongoLease) Release(ctx context.Context) error {
	result, err := ml.owner.collection.DeleteOne(ctx, bson.M{"_id": ml.key, "token": ml.token})
	if err != nil {
		return fmt.Errorf("failed to delete lease: %w", err)
	}
	if result.DeletedCount == 0 {
		return ErrNotHeld
	}
	return nil
}
