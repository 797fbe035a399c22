package scheduler

import (
	"context"
	"fmt"
	"time"

	"cowork/pkg/logger"

	"github.com/go-co-op/gocron/v2"
)

// JobFunc is one run of a periodic job. ctx is cancelled when the run exceeds
// its timeout or the scheduler shuts down.
type JobFunc func(ctx context.Context) error

type Scheduler struct {
	inner  gocron.Scheduler
	log    *logger.Logger
	ctx    context.Context
	cancel context.CancelFunc
}

func New(log *logger.Logger) (*Scheduler, error) {
	inner, err := gocron.NewScheduler()
	if err != nil {
		return nil, fmt.Errorf("failed to create scheduler: %w", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Scheduler{
		inner:  inner,
		log:    log.Component("scheduler"),
		ctx:    ctx,
		cancel: cancel,
	}, nil
}

// Every registers fn to run every interval, starting immediately. Overlapping
// runs of the same job are skipped, not queued.
func (s *Scheduler) Every(name string, interval, timeout time.Duration, fn JobFunc) error {
	j, err := s.inner.NewJob(
		gocron.DurationJob(interval),
		gocron.NewTask(func() { s.run(name, timeout, fn) }),
		gocron.WithName(name),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
		gocron.WithStartAt(gocron.WithStartImmediately()),
	)
	if err != nil {
		return fmt.Errorf("failed to register job %s: %w", name, err)
	}
	s.log.Info("Job registered", "job", name, "job_id", j.ID().String(), "interval", interval)
	return nil
}

func (s *Scheduler) run(name string, timeout time.Duration, fn JobFunc) {
	ctx, cancel := context.WithTimeout(s.ctx, timeout)
	defer cancel()

	start := time.Now()
	if err := fn(ctx); err != nil {
		s.log.Error("Job failed", "job", name, "duration_ms", time.Since(start).Milliseconds(), "error", err)
		return
	}
	s.log.Debug("Job completed", "job", name, "duration_ms", time.Since(start).Milliseconds())
}

func (s *Scheduler) Start() {
	s.inner.Start()
	s.log.Info("Scheduler started", "jobs", len(s.inner.Jobs()))
}

func (s *Scheduler) Shutdown() {
	s.cancel()
	if err := s.inner.Shutdown(); err != nil {
		s.log.Error("Scheduler shutdown failed", "error", err)
		return
	}
	s.log.Info("Scheduler stopped")
}
