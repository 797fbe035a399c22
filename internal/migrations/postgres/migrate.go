package postgres

import (
	"context"
	"fmt"

	"cowork/pkg/logger"

	"gorm.io/gorm"
)

// Statements create the reservation table and the exclusion constraint
// that rejects two live reservations of one resource with overlapping
// half-open intervals. Each statement is idempotent.
var Statements = []string{
	`CREATE EXTENSION IF NOT EXISTS btree_gist`,
	`CREATE TABLE IF NOT EXISTS reservations (
		id            text PRIMARY KEY,
		resource_type text NOT NULL,
		resource_id   text NOT NULL,
		member_id     text NOT NULL,
		start_time    timestamptz NOT NULL,
		end_time      timestamptz NOT NULL,
		total_price   bigint NOT NULL CHECK (total_price >= 0),
		status        text NOT NULL,
		invoice_id    text,
		created_at    timestamptz NOT NULL,
		cancelled_at  timestamptz,
		CONSTRAINT reservations_interval_valid CHECK (start_time < end_time)
	)`,
	`CREATE INDEX IF NOT EXISTS idx_reservations_resource ON reservations (resource_type, resource_id, start_time)`,
	`CREATE INDEX IF NOT EXISTS idx_reservations_member ON reservations (member_id, created_at DESC)`,
	`DO $$
	BEGIN
		IF NOT EXISTS (SELECT 1 FROM pg_constraint WHERE conname = 'reservations_no_overlap') THEN
			ALTER TABLE reservations ADD CONSTRAINT reservations_no_overlap EXCLUDE USING gist (
				resource_type WITH =,
				resource_id WITH =,
				tstzrange(start_time, end_time, '[)') WITH &&
			) WHERE (status <> 'cancelled');
		END IF;
	END
	$$`,
}

func RunMigration(ctx context.Context, db *gorm.DB, log *logger.Logger) error {
	log.Info("Running Postgres migrations", "statements", len(Statements))

	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for i, stmt := range Statements {
			if err := tx.Exec(stmt).Error; err != nil {
				return fmt.Errorf("statement %d: %w", i+1, err)
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("postgres migration failed: %w", err)
	}

	log.Info("All Postgres migrations applied")
	return nil
}
