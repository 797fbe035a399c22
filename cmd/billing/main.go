package main

import (
	"context"
	"errors"

	amenityhandler "cowork/internal/amenities/handler"
	amenityrepo "cowork/internal/amenities/repository"
	amenityservice "cowork/internal/amenities/service"
	amenityvalidator "cowork/internal/amenities/validator"
	"cowork/internal/billing/events"
	invoicehandler "cowork/internal/billing/handler"
	invoicerepo "cowork/internal/billing/repository"
	invoiceservice "cowork/internal/billing/service"
	invoicevalidator "cowork/internal/billing/validator"
	memberrepo "cowork/internal/members/repository"
	reservationrepo "cowork/internal/reservations/repository"
	"cowork/pkg/app"
	"cowork/pkg/config"
	"cowork/pkg/scheduler"
)

const (
	ServiceName    = "billing"
	OverdueScanJob = "overdue-scan"
)

func main() {
	cfg := config.Load(ServiceName)

	cfg.SetStores()

	cfg.Log.Info("Starting Billing service", "events_enabled", cfg.EventsEnabled)

	reservationRepo, err := reservationrepo.New(cfg)
	if err != nil {
		cfg.Log.Fatal("Failed to build reservation repository", "error", err)
	}
	amenityRepo := amenityrepo.NewMongoAmenityRepository(cfg)
	amenityService := amenityservice.NewAmenityService(
		amenityRepo,
		memberrepo.NewMongoMemberRepository(cfg),
		amenityvalidator.NewAmenityValidator(cfg.Log),
		cfg,
	)
	invoiceService := invoiceservice.NewInvoiceService(
		invoicerepo.NewMongoInvoiceRepository(cfg),
		reservationRepo,
		amenityRepo,
		invoicevalidator.NewInvoiceValidator(cfg.Log),
		cfg,
	)
	cfg.Log.Info("Billing services initialized", "database", cfg.MongoDatabaseName)

	serverApp := app.NewApplication(cfg)

	jobs, err := scheduler.New(cfg.Log)
	if err != nil {
		cfg.Log.Fatal("Failed to create scheduler", "error", err)
	}
	if err := jobs.Every(OverdueScanJob, cfg.OverdueScanInterval, cfg.ReadTimeout*3, invoiceService.ScanOverdue); err != nil {
		cfg.Log.Fatal("Failed to schedule overdue scan", "error", err)
	}
	jobs.Start()
	serverApp.OnShutdown(jobs.Shutdown)

	if cfg.EventsEnabled {
		startConsumer(cfg, serverApp, invoiceService)
	}

	serverApp.SetApp(
		invoicehandler.NewInvoiceHandler(invoiceService, cfg.Log),
		amenityhandler.NewAmenityHandler(amenityService, cfg.Log),
	)
	serverApp.Run()
}

func startConsumer(cfg *config.Config, serverApp *app.Application, svc invoiceservice.InvoiceService) {
	consumer, metrics, err := events.NewConsumer(cfg, svc)
	if err != nil {
		cfg.Log.Fatal("Failed to create reservation consumer", "error", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		if err := consumer.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
			cfg.Log.Error("Reservation consumer stopped", "error", err)
		}
	}()

	serverApp.OnShutdown(func() {
		cancel()
		<-done
		if err := consumer.Close(); err != nil {
			cfg.Log.Error("Failed to close reservation consumer", "error", err)
		}
		snapshot := metrics.Snapshot()
		cfg.Log.Info("Reservation consumer closed",
			"consumed", snapshot.Consumed,
			"consume_failed", snapshot.ConsumeFailed,
			"avg_consume_duration", snapshot.AvgConsumeDuration,
		)
	})
	cfg.Log.Info("Reservation consumer started", "topic", cfg.ReservationsTopic, "group_id", cfg.BillingGroupID)
}
