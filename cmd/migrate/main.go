package main

import (
	"context"
	"time"

	mongoMigration "cowork/internal/migrations/mongo"
	postgresMigration "cowork/internal/migrations/postgres"
	"cowork/pkg/config"
)

const JobName = "migrate"

func main() {
	ctx, cancel := context.WithTimeout(context.Background(), 120*time.Second)
	defer cancel()

	cfg := config.Load(JobName)
	cfg.SetMongo()
	if cfg.StorageBackend == config.StoragePostgres {
		cfg.SetPostgres()
	}
	defer cfg.GracefulShutdown()

	cfg.Log.Info("Starting migration job", "storage_backend", cfg.StorageBackend)

	db := cfg.Client.Mongo.Database(cfg.MongoDatabaseName)
	if err := mongoMigration.RunMigration(ctx, db, cfg.Log); err != nil {
		cfg.GracefulShutdown()
		cfg.Log.Fatal("Mongo migration failed", "error", err)
	}

	if cfg.Client.Postgres != nil {
		if err := postgresMigration.RunMigration(ctx, cfg.Client.Postgres, cfg.Log); err != nil {
			cfg.GracefulShutdown()
			cfg.Log.Fatal("Postgres migration failed", "error", err)
		}
	}

	cfg.Log.Info("Migration completed successfully")
}
