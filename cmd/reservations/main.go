package main

import (
	"fmt"

	membersrepo "cowork/internal/members/repository"
	"cowork/internal/reservations/events"
	reservationhandler "cowork/internal/reservations/handler"
	reservationrepo "cowork/internal/reservations/repository"
	reservationservice "cowork/internal/reservations/service"
	reservationvalidator "cowork/internal/reservations/validator"
	resourcehandler "cowork/internal/resources/handler"
	resourcerepo "cowork/internal/resources/repository"
	resourceservice "cowork/internal/resources/service"
	resourcevalidator "cowork/internal/resources/validator"
	"cowork/pkg/app"
	"cowork/pkg/config"
	"cowork/pkg/lock"
	"cowork/pkg/scheduler"
)

const (
	ServiceName      = "reservations"
	OccupancySyncJob = "occupancy-sync"
)

func main() {
	cfg := config.Load(ServiceName)

	cfg.SetStores()

	cfg.Log.Info("Starting Reservations service",
		"storage_backend", cfg.StorageBackend,
		"lock_backend", cfg.LockBackend,
	)

	reservationRepo, err := reservationrepo.New(cfg)
	if err != nil {
		cfg.Log.Fatal("Failed to build reservation repository", "error", err)
	}
	locker, err := newLocker(cfg)
	if err != nil {
		cfg.Log.Fatal("Failed to build locker", "error", err)
	}
	publisher, err := events.New(cfg, ServiceName)
	if err != nil {
		cfg.Log.Fatal("Failed to build event publisher", "error", err)
	}

	resourceRepo := resourcerepo.NewMongoResourceRepository(cfg)
	resourceService := resourceservice.NewResourceService(
		resourceRepo,
		reservationRepo,
		resourcevalidator.NewResourceValidator(cfg.Log),
		cfg,
	)
	reservationService := reservationservice.NewReservationService(
		reservationRepo,
		resourceRepo,
		membersrepo.NewMongoMemberRepository(cfg),
		locker,
		publisher,
		reservationvalidator.NewReservationValidator(cfg.Log),
		cfg,
	)
	cfg.Log.Info("Reservation services initialized", "database", cfg.MongoDatabaseName)

	jobs, err := scheduler.New(cfg.Log)
	if err != nil {
		cfg.Log.Fatal("Failed to create scheduler", "error", err)
	}
	if err := jobs.Every(OccupancySyncJob, cfg.OccupancySweepInterval, cfg.WriteTimeout*3, resourceService.SyncOccupancy); err != nil {
		cfg.Log.Fatal("Failed to schedule occupancy sync", "error", err)
	}
	jobs.Start()

	serverApp := app.NewApplication(cfg)
	serverApp.OnShutdown(func() {
		if err := publisher.Close(); err != nil {
			cfg.Log.Error("Failed to close event publisher", "error", err)
		}
	})
	serverApp.OnShutdown(jobs.Shutdown)
	serverApp.SetApp(
		reservationhandler.NewReservationHandler(reservationService, cfg.Log),
		resourcehandler.NewResourceHandler(resourceService, cfg.Log),
	)
	serverApp.Run()
}

func newLocker(cfg *config.Config) (lock.Locker, error) {
	opts := lock.Options{
		WaitTimeout:   cfg.LockWaitTimeout,
		TTL:           cfg.LockTTL,
		RetryInterval: cfg.LockRetryInterval,
	}

	switch cfg.LockBackend {
	case config.LockLocal:
		return lock.NewLocal(opts), nil
	case config.LockMongo:
		return lock.NewMongo(cfg.Client.Mongo.Database(cfg.MongoDatabaseName), opts), nil
	case config.LockRedis:
		if cfg.Client.Redis == nil {
			return nil, fmt.Errorf("redis lock selected but no connection is configured")
		}
		return lock.NewRedis(cfg.Client.Redis, opts), nil
	default:
		return nil, fmt.Errorf("unknown lock backend %q", cfg.LockBackend)
	}
}
