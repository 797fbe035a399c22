package main

import (
	accessrepo "cowork/internal/access/repository"
	amenityrepo "cowork/internal/amenities/repository"
	invoicerepo "cowork/internal/billing/repository"
	"cowork/internal/reports/handler"
	"cowork/internal/reports/repository"
	"cowork/internal/reports/service"
	reservationrepo "cowork/internal/reservations/repository"
	"cowork/pkg/app"
	"cowork/pkg/config"
)

const ServiceName = "reports"

func main() {
	cfg := config.Load(ServiceName)

	cfg.SetStores()

	cfg.Log.Info("Starting Reports service")
	reportService := initServices(cfg)
	serverApp := app.NewApplication(cfg)
	serverApp.SetApp(handler.NewReportHandler(reportService, cfg.Log))
	serverApp.Run()
}

func initServices(cfg *config.Config) service.ReportService {
	reservationRepo, err := reservationrepo.New(cfg)
	if err != nil {
		cfg.Log.Fatal("Failed to build reservation repository", "error", err)
	}

	reportService := service.NewReportService(
		repository.NewMongoReportRepository(cfg),
		service.Sources{
			Access:       accessrepo.NewMongoAccessRepository(cfg),
			Reservations: reservationRepo,
			Stock:        amenityrepo.NewMongoAmenityRepository(cfg),
			Invoices:     invoicerepo.NewMongoInvoiceRepository(cfg),
		},
		cfg,
	)

	cfg.Log.Info("Reports service initialized", "database", cfg.MongoDatabaseName)
	return reportService
}
