package lock

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

var (
	// ErrBusy is returned when the wait bound expires before the key is free.
	ErrBusy = errors.New("lock wait expired")

	// ErrNotHeld is returned by Release when the lease expired and was taken over.
	ErrNotHeld = errors.New("lease is no longer held")
)

// Locker grants exclusive, bounded-wait access to a key.
type Locker interface {
	Acquire(ctx context.Context, key string) (Lease, error)
}

type Lease interface {
	Key() string
	Release(ctx context.Context) error
}

type Options struct {
	// WaitTimeout bounds how long Acquire blocks.
	WaitTimeout time.Duration
	// TTL bounds how long a lease survives a crashed holder. Unused by Local.
	TTL time.Duration
	// RetryInterval is the pause between attempts on a held key.
	RetryInterval time.Duration
	// Token generates lease owner tokens.
	Token func() string
}

func (o Options) withDefaults() Options {
	if o.WaitTimeout <= 0 {
		o.WaitTimeout = 5 * time.Second
	}
	if o.TTL <= 0 {
		o.TTL = 10 * time.Second
	}
	if o.RetryInterval <= 0 {
		o.RetryInterval = 25 * time.Millisecond
	}
	if o.Token == nil {
		o.Token = uuid.NewString
	}
	return o
}

// ReservationKey is the critical-section key for one bookable resource.
func ReservationKey(resourceType, resourceID string) string {
	return "reservation:" + resourceType + ":" + resourceID
}

// retry calls try until it succeeds, fails, or the wait bound expires.
func retry(ctx context.Context, opts Options, try func(ctx context.Context) (bool, error)) error {
	waitCtx, cancel := context.WithTimeout(ctx, opts.WaitTimeout)
	defer cancel()

	for {
		ok, err := try(waitCtx)
		if ok {
			return nil
		}
		if err != nil && waitCtx.Err() == nil {
			return err
		}

		select {
		case <-waitCtx.Done():
			return waitErr(ctx)
		case <-time.After(opts.RetryInterval):
		}
	}
}

// waitErr turns an expired wait into ErrBusy, but keeps an explicit cancel of
// the caller's context visible as such.
func waitErr(parent context.Context) error {
	if errors.Is(parent.Err(), context.Canceled) {
		return parent.Err()
	}
	return ErrBusy
}
