package lock

import (
	"context"
	"sync"
)

// Local is an in-process keyed lock. It serializes callers of a single
// instance only.
type Local struct {
	opts  Options
	mu    sync.Mutex
	slots map[string]*slot
}

type slot struct {
	ch   chan struct{}
	refs int
}

func NewLocal(opts Options) *Local {
	return &Local{
		opts:  opts.withDefaults(),
		slots: make(map[string]*slot),
	}
}

func (l *Local) Acquire(ctx context.Context, key string) (Lease, error) {
	s := l.ref(key)

	waitCtx, cancel := context.WithTimeout(ctx, l.opts.WaitTimeout)
	defer cancel()

	select {
	case s.ch <- struct{}{}:
		return &localLease{owner: l, key: key, slot: s}, nil
	case <-waitCtx.Done():
		l.unref(key, s)
		return nil, waitErr(ctx)
	}
}

func (l *Local) ref(key string) *slot {
	l.mu.Lock()
	defer l.mu.Unlock()

	s, ok := l.slots[key]
	if !ok {
		s = &slot{ch: make(chan struct{}, 1)}
		l.slots[key] = s
	}
	s.refs++
	return s
}

func (l *Local) unref(key string, s *slot) {
	l.mu.Lock()
	defer l.mu.Unlock()

	s.refs--
	if s.refs == 0 {
		delete(l.slots, key)
	}
}

// held reports how many keys have a holder or waiter. Used by tests.
func (l *Local) held() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.slots)
}

type localLease struct {
	owner *Local
	key   string
	slot  *slot
	once  sync.Once
}

func (ll *localLease) Key() string {
	return ll.key
}

func (ll *localLease) Release(context.Context) error {
	released := false
	ll.once.Do(func() {
		<-ll.slot.ch
		ll.owner.unref(ll.key, ll.slot)
		released = true
	})
	if !released {
		return ErrNotHeld
	}
	return nil
}
