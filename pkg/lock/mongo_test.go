package lock

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo/integration/mtest"
)

var leaseNow = time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)

func newTestMongo(mt *mtest.T, wait, retryEvery time.Duration) *Mongo {
	m := NewMongo(mt.DB, Options{
		WaitTimeout:   wait,
		TTL:           10 * time.Second,
		RetryInterval: retryEvery,
		Token:         func() string { return "token-1" },
	})
	m.now = func() time.Time { return leaseNow }
	return m
}

func duplicateLease() bson.D {
	return mtest.CreateWriteErrorsResponse(mtest.WriteError{
		Index:   0,
		Code:    11000,
		Message: "E11000 duplicate key error",
	})
}

func TestMongo_Lease(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))
	key := ReservationKey("meeting_room", "mr-1")

	mt.Run("insert acquires", func(mt *mtest.T) {
		m := newTestMongo(mt, time.Second, 10*time.Millisecond)
		mt.AddMockResponses(mtest.CreateSuccessResponse(bson.E{Key: "n", Value: 1}))

		lease, err := m.Acquire(context.Background(), key)
		require.NoError(mt, err)
		assert.Equal(mt, key, lease.Key())

		started := mt.GetStartedEvent()
		require.NotNil(mt, started)
		assert.Equal(mt, "insert", started.CommandName)
		assert.Equal(mt, LeaseCollection, started.Command.Lookup("insert").StringValue())
		doc := started.Command.Lookup("documents", "0")
		assert.Equal(mt, key, doc.Document().Lookup("_id").StringValue())
		assert.Equal(mt, "token-1", doc.Document().Lookup("token").StringValue())
		assert.True(mt, leaseNow.Add(10*time.Second).Equal(doc.Document().Lookup("expires_at").Time()))
	})

	mt.Run("live lease is busy", func(mt *mtest.T) {
		m := newTestMongo(mt, 50*time.Millisecond, time.Second)
		mt.AddMockResponses(
			duplicateLease(),
			mtest.CreateSuccessResponse(bson.E{Key: "n", Value: 0}, bson.E{Key: "nModified", Value: 0}),
		)

		_, err := m.Acquire(context.Background(), key)
		assert.ErrorIs(mt, err, ErrBusy)

		mt.GetStartedEvent()
		update := mt.GetStartedEvent()
		require.NotNil(mt, update)
		assert.Equal(mt, "update", update.CommandName)
		filter := update.Command.Lookup("updates", "0", "q").Document()
		assert.Equal(mt, key, filter.Lookup("_id").StringValue())
		assert.True(mt, leaseNow.Equal(filter.Lookup("expires_at", "$lt").Time()))
	})

	mt.Run("expired lease is taken over", func(mt *mtest.T) {
		m := newTestMongo(mt, time.Second, 10*time.Millisecond)
		mt.AddMockResponses(
			duplicateLease(),
			mtest.CreateSuccessResponse(bson.E{Key: "n", Value: 1}, bson.E{Key: "nModified", Value: 1}),
		)

		lease, err := m.Acquire(context.Background(), key)
		require.NoError(mt, err)
		assert.Equal(mt, key, lease.Key())
	})

	mt.Run("release deletes own token", func(mt *mtest.T) {
		m := newTestMongo(mt, time.Second, 10*time.Millisecond)
		mt.AddMockResponses(
			mtest.CreateSuccessResponse(bson.E{Key: "n", Value: 1}),
			mtest.CreateSuccessResponse(bson.E{Key: "n", Value: 1}),
		)

		lease, err := m.Acquire(context.Background(), key)
		require.NoError(mt, err)
		mt.ClearEvents()

		require.NoError(mt, lease.Release(context.Background()))
		deleted := mt.GetStartedEvent()
		require.NotNil(mt, deleted)
		assert.Equal(mt, "delete", deleted.CommandName)
		assert.Equal(mt, "token-1", deleted.Command.Lookup("deletes", "0", "q", "token").StringValue())
	})

	mt.Run("release after takeover is not held", func(mt *mtest.T) {
		m := newTestMongo(mt, time.Second, 10*time.Millisecond)
		mt.AddMockResponses(
			mtest.CreateSuccessResponse(bson.E{Key: "n", Value: 1}),
			mtest.CreateSuccessResponse(bson.E{Key: "n", Value: 0}),
		)

		lease, err := m.Acquire(context.Background(), key)
		require.NoError(mt, err)
		assert.ErrorIs(mt, lease.Release(context.Background()), ErrNotHeld)
	})
}
