package service

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/rand"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	memberserrors "cowork/internal/members/errors"
	"cowork/internal/reservations/repository"
	"cowork/internal/reservations/validator"
	resourceserrors "cowork/internal/resources/errors"
	"cowork/pkg/config"
	apperrors "cowork/pkg/errors"
	"cowork/pkg/lock"
	"cowork/pkg/logger"
	"cowork/pkg/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var base = time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)

func at(hour, minute int) time.Time {
	return base.Add(time.Duration(hour)*time.Hour + time.Duration(minute)*time.Minute)
}

// --- Fakes ---

type fakeCatalog struct {
	mu        sync.Mutex
	resources map[string]*model.Resource
	occupancy []string
	err       error
}

func newFakeCatalog(resources ...*model.Resource) *fakeCatalog {
	c := &fakeCatalog{resources: make(map[string]*model.Resource)}
	for _, r := range resources {
		c.resources[r.Type+":"+r.ID] = r
	}
	return c
}

func (c *fakeCatalog) FindByTypeAndID(_ context.Context, resourceType, id string) (*model.Resource, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.err != nil {
		return nil, c.err
	}
	r, ok := c.resources[resourceType+":"+id]
	if !ok {
		return nil, resourceserrors.ErrNotFound
	}
	cp := *r
	return &cp, nil
}

func (c *fakeCatalog) SetOccupancy(_ context.Context, resourceType, id, status string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.occupancy = append(c.occupancy, resourceType+":"+id+"="+status)
	return nil
}

func (c *fakeCatalog) occupancyCalls() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.occupancy...)
}

type fakeMembers map[string]*model.Member

func (m fakeMembers) FindByID(_ context.Context, id string) (*model.Member, error) {
	member, ok := m[id]
	if !ok {
		return nil, memberserrors.ErrNotFound
	}
	return member, nil
}

type recordingPublisher struct {
	mu        sync.Mutex
	published []string
	err       error
}

func (p *recordingPublisher) PublishReservationCreated(_ context.Context, r *model.Reservation) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.published = append(p.published, r.ID)
	return nil
}

func (p *recordingPublisher) Close() error { return nil }

func (p *recordingPublisher) ids() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.published...)
}

type busyLocker struct{}

func (busyLocker) Acquire(context.Context, string) (lock.Lease, error) {
	return nil, lock.ErrBusy
}

// countingLocker wraps a Locker and counts releases.
type countingLocker struct {
	inner    lock.Locker
	released atomic.Int32
}

func (c *countingLocker) Acquire(ctx context.Context, key string) (lock.Lease, error) {
	lease, err := c.inner.Acquire(ctx, key)
	if err != nil {
		return nil, err
	}
	return &countingLease{Lease: lease, owner: c}, nil
}

type countingLease struct {
	lock.Lease
	owner *countingLocker
}

func (l *countingLease) Release(ctx context.Context) error {
	l.owner.released.Add(1)
	return l.Lease.Release(ctx)
}

// failingRepo fails every overlap query.
type failingRepo struct {
	repository.ReservationRepository
}

func (failingRepo) FindOverlapping(context.Context, string, string, model.Interval, int) ([]*model.Reservation, error) {
	return nil, errors.New("connection reset")
}

// stallingRepo runs transactions until their context ends.
type stallingRepo struct {
	repository.ReservationRepository
	deadline time.Time
	key      string
}

func (r *stallingRepo) ExecuteTransaction(ctx context.Context, key string, _ repository.TxFunc) error {
	r.deadline, _ = ctx.Deadline()
	r.key = key
	<-ctx.Done()
	return fmt.Errorf("transaction aborted: %w", ctx.Err())
}

// --- Harness ---

type harness struct {
	svc       *reservationService
	repo      repository.ReservationRepository
	catalog   *fakeCatalog
	publisher *recordingPublisher
	now       time.Time
}

type option func(*harness, *reservationService)

func withLocker(l lock.Locker) option {
	return func(_ *harness, s *reservationService) { s.locker = l }
}

func withRepo(r repository.ReservationRepository) option {
	return func(h *harness, s *reservationService) {
		h.repo = r
		s.repo = r
	}
}

func newHarness(t *testing.T, opts ...option) *harness {
	t.Helper()

	cfg := &config.Config{
		Log:                  logger.Discard(),
		WriteTimeout:         time.Second,
		MaxConflictsReported: 10,
		OccupancyWindow:      time.Hour,
	}

	h := &harness{
		repo: repository.NewMemoryReservationRepository(),
		catalog: newFakeCatalog(
			&model.Resource{ID: "desk-1", Type: model.ResourceWorkspace, Name: "Desk 1", Location: "Floor 1", PricePerHour: 1200, Occupied: model.NotOccupied},
			&model.Resource{ID: "desk-2", Type: model.ResourceWorkspace, Name: "Desk 2", Location: "Floor 1", PricePerHour: 1200, Occupied: model.NotOccupied},
			&model.Resource{ID: "room-a", Type: model.ResourceMeetingRoom, Name: "Room A", Location: "Floor 2", PricePerHour: 4500, Occupied: model.UnderMaintenance},
		),
		publisher: &recordingPublisher{},
		now:       at(6, 0),
	}
	members := fakeMembers{
		"m-1": {ID: "m-1", Status: model.MemberActive},
		"m-2": {ID: "m-2", Status: model.MemberActive},
		"m-3": {ID: "m-3", Status: model.MemberSuspended},
	}

	svc := NewReservationService(
		h.repo,
		h.catalog,
		members,
		lock.NewLocal(lock.Options{WaitTimeout: 5 * time.Second}),
		h.publisher,
		validator.NewReservationValidator(cfg.Log),
		cfg,
	).(*reservationService)
	svc.now = func() time.Time { return h.now }

	for _, opt := range opts {
		opt(h, svc)
	}
	h.svc = svc
	return h
}

func request(resourceID string, start, end time.Time) *model.ReservationRequest {
	return &model.ReservationRequest{
		ResourceType: model.ResourceWorkspace,
		ResourceID:   resourceID,
		MemberID:     "m-1",
		StartTime:    start,
		EndTime:      end,
	}
}

// --- Tests ---

func TestReserve_Success(t *testing.T) {
	h := newHarness(t)

	r, err := h.svc.Reserve(context.Background(), request("desk-1", at(9, 0), at(10, 30)))
	require.NoError(t, err)

	assert.NotEmpty(t, r.ID)
	assert.Equal(t, model.ReservationConfirmed, r.Status)
	assert.Equal(t, int64(1800), r.TotalPrice)
	assert.Equal(t, at(9, 0), r.StartTime)

	stored, err := h.svc.GetByID(context.Background(), r.ID)
	require.NoError(t, err)
	assert.Equal(t, r.ID, stored.ID)
}

func TestReserve_InvalidInterval(t *testing.T) {
	tests := []struct {
		name  string
		start time.Time
		end   time.Time
	}{
		{"equal bounds", at(9, 0), at(9, 0)},
		{"inverted bounds", at(10, 0), at(9, 0)},
		{"zero start", time.Time{}, at(9, 0)},
		{"zero end", at(9, 0), time.Time{}},
		{"sub-millisecond span", at(9, 0), at(9, 0).Add(500 * time.Microsecond)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t)
			_, err := h.svc.Reserve(context.Background(), request("desk-1", tt.start, tt.end))
			assert.True(t, apperrors.HasCode(err, apperrors.CodeInvalidInterval), "got %v", err)
		})
	}
}

func TestReserve_ValidationError(t *testing.T) {
	h := newHarness(t)
	req := request("desk-1", at(9, 0), at(10, 0))
	req.ResourceType = "parking_spot"

	_, err := h.svc.Reserve(context.Background(), req)
	require.True(t, apperrors.HasCode(err, apperrors.CodeValidation), "got %v", err)

	fields := apperrors.AsAppError(err).Details["fields"].(map[string]string)
	assert.Contains(t, fields, "resource_type")
}

func TestReserve_AdjacentIntervalsDoNotConflict(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	_, err := h.svc.Reserve(ctx, request("desk-1", at(9, 0), at(10, 0)))
	require.NoError(t, err)
	_, err = h.svc.Reserve(ctx, request("desk-1", at(10, 0), at(11, 0)))
	require.NoError(t, err)
	_, err = h.svc.Reserve(ctx, request("desk-1", at(8, 0), at(9, 0)))
	require.NoError(t, err)
}

func TestReserve_OverlapReportsConflicts(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	first, err := h.svc.Reserve(ctx, request("desk-1", at(9, 0), at(10, 0)))
	require.NoError(t, err)

	_, err = h.svc.Reserve(ctx, request("desk-1", at(9, 30), at(11, 0)))
	require.True(t, apperrors.HasCode(err, apperrors.CodeConflict), "got %v", err)

	details := apperrors.AsAppError(err).Details
	conflicts := details["conflicts"].([]model.ReservationConflict)
	require.Len(t, conflicts, 1)
	assert.Equal(t, first.ID, conflicts[0].ReservationID)
	assert.Equal(t, at(9, 0), conflicts[0].StartTime)
	assert.Equal(t, at(10, 0), conflicts[0].EndTime)
	assert.Equal(t, "desk-1", details["resource_id"])
}

func TestReserve_ContainedIntervalConflicts(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	_, err := h.svc.Reserve(ctx, request("desk-1", at(9, 0), at(12, 0)))
	require.NoError(t, err)

	_, err = h.svc.Reserve(ctx, request("desk-1", at(10, 0), at(10, 15)))
	assert.True(t, apperrors.HasCode(err, apperrors.CodeConflict))
}

func TestReserve_DifferentResourcesNeverConflict(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	_, err := h.svc.Reserve(ctx, request("desk-1", at(9, 0), at(10, 0)))
	require.NoError(t, err)
	_, err = h.svc.Reserve(ctx, request("desk-2", at(9, 0), at(10, 0)))
	require.NoError(t, err)
}

func TestReserve_UnknownResource(t *testing.T) {
	h := newHarness(t)

	_, err := h.svc.Reserve(context.Background(), request("desk-99", at(9, 0), at(10, 0)))
	assert.True(t, apperrors.HasCode(err, apperrors.CodeUnknownResource), "got %v", err)
}

func TestReserve_CatalogFailure(t *testing.T) {
	h := newHarness(t)
	h.catalog.err = errors.New("mongo down")

	_, err := h.svc.Reserve(context.Background(), request("desk-1", at(9, 0), at(10, 0)))
	assert.True(t, apperrors.HasCode(err, apperrors.CodeStorageFailure), "got %v", err)
}

func TestReserve_MemberChecks(t *testing.T) {
	tests := []struct {
		name     string
		memberID string
		code     string
	}{
		{"unknown member", "m-404", apperrors.CodeNotFound},
		{"suspended member", "m-3", apperrors.CodeValidation},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t)
			req := request("desk-1", at(9, 0), at(10, 0))
			req.MemberID = tt.memberID

			_, err := h.svc.Reserve(context.Background(), req)
			assert.True(t, apperrors.HasCode(err, tt.code), "got %v", err)
		})
	}
}

func TestReserve_Busy(t *testing.T) {
	h := newHarness(t, withLocker(busyLocker{}))

	_, err := h.svc.Reserve(context.Background(), request("desk-1", at(9, 0), at(10, 0)))
	assert.True(t, apperrors.HasCode(err, apperrors.CodeBusy), "got %v", err)
}

func TestReserve_StorageFailure(t *testing.T) {
	repo := failingRepo{repository.NewMemoryReservationRepository()}
	h := newHarness(t, withRepo(repo))

	_, err := h.svc.Reserve(context.Background(), request("desk-1", at(9, 0), at(10, 0)))
	assert.True(t, apperrors.HasCode(err, apperrors.CodeStorageFailure), "got %v", err)
	assert.Empty(t, h.publisher.ids())
}

func TestReserve_TransactionBoundedByLockTTL(t *testing.T) {
	repo := &stallingRepo{ReservationRepository: repository.NewMemoryReservationRepository()}
	h := newHarness(t, withRepo(repo))
	h.svc.cfg.LockTTL = 50 * time.Millisecond

	started := time.Now()
	_, err := h.svc.Reserve(context.Background(), request("desk-1", at(9, 0), at(10, 0)))
	assert.True(t, apperrors.HasCode(err, apperrors.CodeBusy), "got %v", err)

	require.False(t, repo.deadline.IsZero())
	assert.WithinDuration(t, started.Add(50*time.Millisecond), repo.deadline, 40*time.Millisecond)
	assert.Equal(t, lock.ReservationKey(model.ResourceWorkspace, "desk-1"), repo.key)
}

func TestReserve_CallerCancellationIsNotBusy(t *testing.T) {
	repo := &stallingRepo{ReservationRepository: repository.NewMemoryReservationRepository()}
	h := newHarness(t, withRepo(repo))
	h.svc.cfg.LockTTL = time.Minute

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err := h.svc.Reserve(ctx, request("desk-1", at(9, 0), at(10, 0)))
	assert.True(t, apperrors.HasCode(err, apperrors.CodeStorageFailure), "got %v", err)
}

func TestReserve_LockAlwaysReleased(t *testing.T) {
	locker := &countingLocker{inner: lock.NewLocal(lock.Options{})}
	h := newHarness(t, withLocker(locker))
	ctx := context.Background()

	_, err := h.svc.Reserve(ctx, request("desk-1", at(9, 0), at(10, 0)))
	require.NoError(t, err)
	_, err = h.svc.Reserve(ctx, request("desk-1", at(9, 0), at(10, 0)))
	require.Error(t, err)

	assert.Equal(t, int32(2), locker.released.Load())
}

func TestReserve_CancelledReservationFreesSlot(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	first, err := h.svc.Reserve(ctx, request("desk-1", at(9, 0), at(10, 0)))
	require.NoError(t, err)

	cancelled, err := h.svc.Cancel(ctx, first.ID)
	require.NoError(t, err)
	assert.Equal(t, model.ReservationCancelled, cancelled.Status)
	require.NotNil(t, cancelled.CancelledAt)

	_, err = h.svc.Reserve(ctx, request("desk-1", at(9, 0), at(10, 0)))
	require.NoError(t, err)
}

func TestCancel_Idempotent(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	r, err := h.svc.Reserve(ctx, request("desk-1", at(9, 0), at(10, 0)))
	require.NoError(t, err)

	first, err := h.svc.Cancel(ctx, r.ID)
	require.NoError(t, err)

	h.now = h.now.Add(time.Hour)
	second, err := h.svc.Cancel(ctx, r.ID)
	require.NoError(t, err)
	assert.Equal(t, first.CancelledAt.UTC(), second.CancelledAt.UTC())
}

func TestCancel_NotFound(t *testing.T) {
	h := newHarness(t)

	_, err := h.svc.Cancel(context.Background(), "missing")
	assert.True(t, apperrors.HasCode(err, apperrors.CodeNotFound))
}

func TestReserve_ConcurrentIdenticalRequests(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	const workers = 20
	var wg sync.WaitGroup
	var succeeded, conflicted atomic.Int32

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := h.svc.Reserve(ctx, request("desk-1", at(9, 0), at(10, 0)))
			switch {
			case err == nil:
				succeeded.Add(1)
			case apperrors.HasCode(err, apperrors.CodeConflict):
				conflicted.Add(1)
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), succeeded.Load())
	assert.Equal(t, int32(workers-1), conflicted.Load())
}

func TestReserve_ConcurrentRandomNeverOverlaps(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	rng := rand.New(rand.NewSource(42))

	type slot struct {
		resource string
		start    time.Time
		end      time.Time
	}
	slots := make([]slot, 200)
	for i := range slots {
		start := at(8, 0).Add(time.Duration(rng.Intn(40)) * 15 * time.Minute)
		slots[i] = slot{
			resource: fmt.Sprintf("desk-%d", 1+rng.Intn(2)),
			start:    start,
			end:      start.Add(time.Duration(1+rng.Intn(8)) * 15 * time.Minute),
		}
	}

	var mu sync.Mutex
	var accepted []*model.Reservation
	var wg sync.WaitGroup
	for _, s := range slots {
		wg.Add(1)
		go func(s slot) {
			defer wg.Done()
			r, err := h.svc.Reserve(ctx, request(s.resource, s.start, s.end))
			if err != nil {
				if !apperrors.HasCode(err, apperrors.CodeConflict) {
					t.Errorf("unexpected error: %v", err)
				}
				return
			}
			mu.Lock()
			accepted = append(accepted, r)
			mu.Unlock()
		}(s)
	}
	wg.Wait()

	require.NotEmpty(t, accepted)
	for i, a := range accepted {
		for _, b := range accepted[i+1:] {
			if a.ResourceID != b.ResourceID {
				continue
			}
			assert.False(t, a.Interval().Overlaps(b.Interval()),
				"%s [%s,%s) overlaps %s [%s,%s)", a.ID, a.StartTime, a.EndTime, b.ID, b.StartTime, b.EndTime)
		}
	}
}

func TestPrice(t *testing.T) {
	tests := []struct {
		name     string
		pph      int64
		duration time.Duration
		want     int64
	}{
		{"one hour", 1200, time.Hour, 1200},
		{"half hour", 1200, 30 * time.Minute, 600},
		{"partial minute rounds up", 1200, 61 * time.Second, 40},
		{"uneven minute price rounds up", 1000, time.Minute, 17},
		{"free resource", 0, time.Hour, 0},
		{"zero duration", 1200, 0, 0},
		{"longest duration at max rate", model.MaxPricePerHour, time.Duration(math.MaxInt64), 256204780000000},
		{"overflowing product saturates", math.MaxInt64 / 2, 3 * time.Minute, math.MaxInt64},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Price(tt.pph, tt.duration))
		})
	}
}

func TestReserve_SideEffects(t *testing.T) {
	t.Run("starting soon marks occupied and publishes", func(t *testing.T) {
		h := newHarness(t)
		h.now = at(8, 30)

		r, err := h.svc.Reserve(context.Background(), request("desk-1", at(9, 0), at(10, 0)))
		require.NoError(t, err)

		assert.Equal(t, []string{"workspace:desk-1=occupied"}, h.catalog.occupancyCalls())
		assert.Equal(t, []string{r.ID}, h.publisher.ids())
	})

	t.Run("far future leaves occupancy alone", func(t *testing.T) {
		h := newHarness(t)

		_, err := h.svc.Reserve(context.Background(), request("desk-1", at(20, 0), at(21, 0)))
		require.NoError(t, err)
		assert.Empty(t, h.catalog.occupancyCalls())
		assert.Len(t, h.publisher.ids(), 1)
	})

	t.Run("maintenance resources keep their status", func(t *testing.T) {
		h := newHarness(t)
		h.now = at(8, 30)
		req := request("room-a", at(9, 0), at(10, 0))
		req.ResourceType = model.ResourceMeetingRoom

		_, err := h.svc.Reserve(context.Background(), req)
		require.NoError(t, err)
		assert.Empty(t, h.catalog.occupancyCalls())
	})

	t.Run("publish failure does not fail the reservation", func(t *testing.T) {
		h := newHarness(t)
		h.publisher.err = errors.New("broker unavailable")

		r, err := h.svc.Reserve(context.Background(), request("desk-1", at(9, 0), at(10, 0)))
		require.NoError(t, err)

		_, err = h.svc.GetByID(context.Background(), r.ID)
		require.NoError(t, err)
	})
}

func TestGetByMember(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		_, err := h.svc.Reserve(ctx, request("desk-1", at(9+i, 0), at(10+i, 0)))
		require.NoError(t, err)
	}

	page, total, err := h.svc.GetByMember(ctx, "m-1", 2, 0)
	require.NoError(t, err)
	assert.Equal(t, int64(3), total)
	assert.Len(t, page, 2)

	_, _, err = h.svc.GetByMember(ctx, "", 10, 0)
	assert.True(t, apperrors.HasCode(err, apperrors.CodeInvalidInput))
}

func TestUpcoming(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	_, err := h.svc.Reserve(ctx, request("desk-1", at(4, 0), at(5, 0)))
	require.NoError(t, err)
	future, err := h.svc.Reserve(ctx, request("desk-1", at(9, 0), at(10, 0)))
	require.NoError(t, err)

	upcoming, err := h.svc.Upcoming(ctx, 0)
	require.NoError(t, err)
	require.Len(t, upcoming, 1)
	assert.Equal(t, future.ID, upcoming[0].ID)
}

func TestSearch(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	_, err := h.svc.Reserve(ctx, request("desk-1", at(9, 0), at(10, 0)))
	require.NoError(t, err)
	_, err = h.svc.Reserve(ctx, request("desk-1", at(14, 0), at(15, 0)))
	require.NoError(t, err)

	results, total, err := h.svc.Search(ctx, model.ReservationSearch{
		ResourceType: model.ResourceWorkspace,
		ResourceID:   "desk-1",
		From:         at(8, 0),
		To:           at(12, 0),
	}, 10, 0)
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	require.Len(t, results, 1)
	assert.Equal(t, at(9, 0), results[0].StartTime)

	_, _, err = h.svc.Search(ctx, model.ReservationSearch{ResourceType: model.ResourceWorkspace}, 10, 0)
	assert.True(t, apperrors.HasCode(err, apperrors.CodeInvalidInput))

	_, _, err = h.svc.Search(ctx, model.ReservationSearch{
		ResourceType: model.ResourceWorkspace,
		ResourceID:   "desk-1",
		From:         at(12, 0),
		To:           at(8, 0),
	}, 10, 0)
	assert.True(t, apperrors.HasCode(err, apperrors.CodeInvalidInterval))
}
