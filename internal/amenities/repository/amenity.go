package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	amenitieserrors "cowork/internal/amenities/errors"
	"cowork/pkg/config"
	mongotx "cowork/pkg/db/mongo"
	"cowork/pkg/model"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	ItemsCollection  = "StockedItems"
	UsagesCollection = "ServiceUsages"
)

type AmenityRepository interface {
	ExecuteTransaction(ctx context.Context, fn func(ctx context.Context) error) error
	CreateItem(ctx context.Context, item *model.StockedItem) error
	FindItem(ctx context.Context, id string) (*model.StockedItem, error)
	FindLowStock(ctx context.Context, threshold int64) ([]*model.StockedItem, error)
	// DecrementStock takes quantity units only if at least that many are available.
	DecrementStock(ctx context.Context, itemID string, quantity int64) error
	CreateUsage(ctx context.Context, usage *model.ServiceUsage) error
	FindUsages(ctx context.Context, ids []string) ([]*model.ServiceUsage, error)
	AttachInvoice(ctx context.Context, usageIDs []string, invoiceID string) error
}

type mongoAmenityRepository struct {
	items        *mongo.Collection
	usages       *mongo.Collection
	txManager    mongotx.TransactionManager
	readTimeout  time.Duration
	writeTimeout time.Duration
}

func NewMongoAmenityRepository(cfg *config.Config) AmenityRepository {
	db := cfg.Client.Mongo.Database(cfg.MongoDatabaseName)
	return &mongoAmenityRepository{
		items:        db.Collection(ItemsCollection),
		usages:       db.Collection(UsagesCollection),
		txManager:    mongotx.NewTransactionManager(cfg.Client.Mongo),
		readTimeout:  cfg.ReadTimeout,
		writeTimeout: cfg.WriteTimeout,
	}
}

func (r *mongoAmenityRepository) ExecuteTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	return r.txManager.ExecuteTransaction(ctx, func(sessCtx mongo.SessionContext) error {
		return fn(sessCtx)
	})
}

func (r *mongoAmenityRepository) CreateItem(ctx context.Context, item *model.StockedItem) error {
	ctx, cancel := mongotx.WithTimeout(ctx, r.writeTimeout)
	defer cancel()

	if _, err := r.items.InsertOne(ctx, item); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return fmt.Errorf("%w: %s", amenitieserrors.ErrAlreadyExists, item.ID)
		}
		return fmt.Errorf("failed to create stocked item: %w", err)
	}
	return nil
}

func (r *mongoAmenityRepository) FindItem(ctx context.Context, id string) (*model.StockedItem, error) {
	ctx, cancel := mongotx.WithTimeout(ctx, r.readTimeout)
	defer cancel()

	var item model.StockedItem
	if err := r.items.FindOne(ctx, bson.M{"_id": id}).Decode(&item); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, amenitieserrors.ErrNotFound
		}
		return nil, fmt.Errorf("failed to find stocked item: %w", err)
	}
	return &item, nil
}

func (r *mongoAmenityRepository) FindLowStock(ctx context.Context, threshold int64) ([]*model.StockedItem, error) {
	ctx, cancel := mongotx.WithTimeout(ctx, r.readTimeout)
	defer cancel()

	opts := options.Find().SetSort(bson.D{{Key: "available_quantity", Value: 1}, {Key: "name", Value: 1}})
	cursor, err := r.items.Find(ctx, bson.M{"available_quantity": bson.M{"$lte": threshold}}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to list low stock: %w", err)
	}
	defer func() { _ = cursor.Close(ctx) }()

	items := []*model.StockedItem{}
	if err := cursor.All(ctx, &items); err != nil {
		return nil, fmt.Errorf("failed to decode stocked items: %w", err)
	}
	return items, nil
}

func (r *mongoAmenityRepository) DecrementStock(ctx context.Context, itemID string, quantity int64) error {
	ctx, cancel := mongotx.WithTimeout(ctx, r.writeTimeout)
	defer cancel()

	filter := bson.M{"_id": itemID, "available_quantity": bson.M{"$gte": quantity}}
	result, err := r.items.UpdateOne(ctx, filter, bson.M{"$inc": bson.M{"available_quantity": -quantity}})
	if err != nil {
		return fmt.Errorf("failed to decrement stock: %w", err)
	}
	if result.MatchedCount == 0 {
		return amenitieserrors.ErrInsufficientStock
	}
	return nil
}

func (r *mongoAmenityRepository) CreateUsage(ctx context.Context, usage *model.ServiceUsage) error {
	ctx, cancel := mongotx.WithTimeout(ctx, r.writeTimeout)
	defer cancel()

	if _, err := r.usages.InsertOne(ctx, usage); err != nil {
		return fmt.Errorf("failed to record usage: %w", err)
	}
	return nil
}

func (r *mongoAmenityRepository) FindUsages(ctx context.Context, ids []string) ([]*model.ServiceUsage, error) {
	ctx, cancel := mongotx.WithTimeout(ctx, r.readTimeout)
	defer cancel()

	cursor, err := r.usages.Find(ctx, bson.M{"_id": bson.M{"$in": ids}})
	if err != nil {
		return nil, fmt.Errorf("failed to find usages: %w", err)
	}
	defer func() { _ = cursor.Close(ctx) }()

	usages := []*model.ServiceUsage{}
	if err := cursor.All(ctx, &usages); err != nil {
		return nil, fmt.Errorf("failed to decode usages: %w", err)
	}
	return usages, nil
}

func (r *mongoAmenityRepository) AttachInvoice(ctx context.Context, usageIDs []string, invoiceID string) error {
	ctx, cancel := mongotx.WithTimeout(ctx, r.writeTimeout)
	defer cancel()

	filter := bson.M{
		"_id": bson.M{"$in": usageIDs},
		"$or": bson.A{
			bson.M{"invoice_id": bson.M{"$exists": false}},
			bson.M{"invoice_id": ""},
		},
	}
	result, err := r.usages.UpdateMany(ctx, filter, bson.M{"$set": bson.M{"invoice_id": invoiceID}})
	if err != nil {
		return fmt.Errorf("failed to attach invoice to usages: %w", err)
	}
	if result.MatchedCount != int64(len(usageIDs)) {
		return fmt.Errorf("%w: linked %d of %d", amenitieserrors.ErrUsageAlreadyInvoiced, result.MatchedCount, len(usageIDs))
	}
	return nil
}
