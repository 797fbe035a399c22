package lock

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocal_AcquireRelease(t *testing.T) {
	l := NewLocal(Options{WaitTimeout: 50 * time.Millisecond})
	ctx := context.Background()

	lease, err := l.Acquire(ctx, "reservation:meeting_room:1")
	require.NoError(t, err)
	assert.Equal(t, "reservation:meeting_room:1", lease.Key())
	assert.Equal(t, 1, l.held())

	require.NoError(t, lease.Release(ctx))
	assert.Equal(t, 0, l.held())
	assert.ErrorIs(t, lease.Release(ctx), ErrNotHeld)
}

func TestLocal_BoundedWait(t *testing.T) {
	l := NewLocal(Options{WaitTimeout: 30 * time.Millisecond})
	ctx := context.Background()

	first, err := l.Acquire(ctx, "k")
	require.NoError(t, err)
	defer first.Release(ctx)

	start := time.Now()
	_, err = l.Acquire(ctx, "k")
	assert.ErrorIs(t, err, ErrBusy)
	assert.Less(t, time.Since(start), time.Second)
}

func TestLocal_CancelledContextIsNotBusy(t *testing.T) {
	l := NewLocal(Options{WaitTimeout: time.Second})

	first, err := l.Acquire(context.Background(), "k")
	require.NoError(t, err)
	defer first.Release(context.Background())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err = l.Acquire(ctx, "k")
	assert.True(t, errors.Is(err, context.Canceled), "got %v", err)
}

func TestLocal_DifferentKeysDoNotBlock(t *testing.T) {
	l := NewLocal(Options{WaitTimeout: 20 * time.Millisecond})
	ctx := context.Background()

	a, err := l.Acquire(ctx, "a")
	require.NoError(t, err)
	b, err := l.Acquire(ctx, "b")
	require.NoError(t, err)

	require.NoError(t, a.Release(ctx))
	require.NoError(t, b.Release(ctx))
}

func TestLocal_MutualExclusion(t *testing.T) {
	l := NewLocal(Options{WaitTimeout: 5 * time.Second})
	ctx := context.Background()

	var inside, maxInside int32
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			lease, err := l.Acquire(ctx, "shared")
			if err != nil {
				t.Errorf("Acquire() error = %v", err)
				return
			}
			n := atomic.AddInt32(&inside, 1)
			for {
				m := atomic.LoadInt32(&maxInside)
				if n <= m || atomic.CompareAndSwapInt32(&maxInside, m, n) {
					break
				}
			}
			time.Sleep(time.Millisecond)
			atomic.AddInt32(&inside, -1)
			_ = lease.Release(ctx)
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), maxInside)
	assert.Equal(t, 0, l.held())
}

func TestReservationKey(t *testing.T) {
	assert.Equal(t, "reservation:workspace:ws-7", ReservationKey("workspace", "ws-7"))
	assert.NotEqual(t, ReservationKey("workspace", "1"), ReservationKey("equipment", "1"))
}
