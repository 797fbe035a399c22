package mongo

import (
	"context"
	"fmt"
	"sort"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"cowork/internal/migrations/mongo/validators"
	"cowork/pkg/lock"
	"cowork/pkg/logger"
)

var (
	ResourceIndexes = []mongo.IndexModel{
		{Keys: bson.D{{Key: "location", Value: 1}, {Key: "occupied", Value: 1}}},
		{Keys: bson.D{{Key: "name", Value: 1}}},
	}

	// The first index serves the overlap query: equality on the resource,
	// then a range on start_time bounded by the request's end.
	ReservationIndexes = []mongo.IndexModel{
		{Keys: bson.D{
			{Key: "resource_type", Value: 1},
			{Key: "resource_id", Value: 1},
			{Key: "start_time", Value: 1},
			{Key: "end_time", Value: 1},
		}},
		{Keys: bson.D{{Key: "member_id", Value: 1}, {Key: "created_at", Value: -1}}},
		{Keys: bson.D{{Key: "status", Value: 1}, {Key: "start_time", Value: 1}}},
	}

	MemberIndexes = []mongo.IndexModel{
		{Keys: bson.D{{Key: "email", Value: 1}}, Options: options.Index().SetUnique(true)},
		{Keys: bson.D{{Key: "membership_plan", Value: 1}, {Key: "status", Value: 1}, {Key: "name", Value: 1}}},
	}

	AccessCardIndexes = []mongo.IndexModel{
		{Keys: bson.D{{Key: "member_id", Value: 1}}},
	}

	AccessLogIndexes = []mongo.IndexModel{
		{Keys: bson.D{{Key: "member_id", Value: 1}, {Key: "timestamp", Value: -1}}},
		{Keys: bson.D{{Key: "timestamp", Value: -1}}},
	}

	StockedItemIndexes = []mongo.IndexModel{
		{Keys: bson.D{{Key: "available_quantity", Value: 1}}},
	}

	ServiceUsageIndexes = []mongo.IndexModel{
		{Keys: bson.D{{Key: "member_id", Value: 1}}},
		{Keys: bson.D{{Key: "purchased_at", Value: -1}, {Key: "item_id", Value: 1}}},
	}

	InvoiceIndexes = []mongo.IndexModel{
		{Keys: bson.D{{Key: "member_id", Value: 1}, {Key: "invoice_date", Value: -1}}},
		{Keys: bson.D{{Key: "status", Value: 1}, {Key: "due_date", Value: 1}}},
	}

	// Expired leases are swept by the server; Acquire also takes over
	// expired leases itself, so the sweep delay is harmless.
	LockIndexes = []mongo.IndexModel{
		{Keys: bson.D{{Key: "expires_at", Value: 1}}, Options: options.Index().SetExpireAfterSeconds(0)},
	}
)

type collectionDef struct {
	Indexes   []mongo.IndexModel
	Validator bson.M
}

// Collections maps every collection the services use to its schema.
func Collections() map[string]collectionDef {
	return map[string]collectionDef{
		"Workspaces":         {Indexes: ResourceIndexes, Validator: validators.ResourceValidator},
		"MeetingRooms":       {Indexes: ResourceIndexes, Validator: validators.ResourceValidator},
		"Equipment":          {Indexes: ResourceIndexes, Validator: validators.ResourceValidator},
		"Reservations":       {Indexes: ReservationIndexes, Validator: validators.ReservationValidator},
		"Members":            {Indexes: MemberIndexes, Validator: validators.MemberValidator},
		"AccessCards":        {Indexes: AccessCardIndexes, Validator: validators.AccessCardValidator},
		"AccessLogs":         {Indexes: AccessLogIndexes, Validator: validators.AccessLogValidator},
		"StockedItems":       {Indexes: StockedItemIndexes, Validator: validators.StockedItemValidator},
		"ServiceUsages":      {Indexes: ServiceUsageIndexes, Validator: validators.ServiceUsageValidator},
		"Invoices":           {Indexes: InvoiceIndexes, Validator: validators.InvoiceValidator},
		"Reservation_slots":  {},
		lock.LeaseCollection: {Indexes: LockIndexes},
	}
}

func RunMigration(ctx context.Context, db *mongo.Database, log *logger.Logger) error {
	log.Info("Running Mongo migrations", "database", db.Name())

	defs := Collections()
	names := make([]string, 0, len(defs))
	for name := range defs {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		def := defs[name]
		if err := ensureCollection(ctx, db, name, def.Validator, log); err != nil {
			return fmt.Errorf("failed to ensure collection %s: %w", name, err)
		}
		if err := ensureIndexes(ctx, db, name, def.Indexes, log); err != nil {
			return fmt.Errorf("failed to ensure indexes for %s: %w", name, err)
		}
	}

	log.Info("All Mongo migrations applied", "collections", len(names))
	return nil
}

func ensureCollection(ctx context.Context, db *mongo.Database, name string, validator bson.M, log *logger.Logger) error {
	existing, err := db.ListCollectionNames(ctx, bson.D{{Key: "name", Value: name}})
	if err != nil {
		return err
	}

	if len(existing) == 0 {
		log.Info("Creating collection", "collection", name)
		opts := options.CreateCollection()
		if validator != nil {
			opts.SetValidator(validator)
		}
		if err := db.CreateCollection(ctx, name, opts); err != nil {
			return fmt.Errorf("failed creating %s: %w", name, err)
		}
		return nil
	}

	if validator == nil {
		return nil
	}
	log.Info("Collection exists, updating validator", "collection", name)
	command := bson.D{
		{Key: "collMod", Value: name},
		{Key: "validator", Value: validator},
	}
	if err := db.RunCommand(ctx, command).Err(); err != nil {
		log.Warn("Failed updating validator", "collection", name, "error", err)
	}
	return nil
}

func ensureIndexes(ctx context.Context, db *mongo.Database, name string, models []mongo.IndexModel, log *logger.Logger) error {
	if len(models) == 0 {
		return nil
	}
	if _, err := db.Collection(name).Indexes().CreateMany(ctx, models); err != nil {
		return err
	}
	log.Info("Ensured indexes", "collection", name, "count", len(models))
	return nil
}
