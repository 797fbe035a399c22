package repository

import (
	"context"
	"fmt"
	"time"

	"cowork/pkg/config"
	mongotx "cowork/pkg/db/mongo"
	"cowork/pkg/model"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const CollectionName = "AccessLogs"

type AccessRepository interface {
	Create(ctx context.Context, entry *model.AccessLog) error
	FindByMemberSince(ctx context.Context, memberID string, since time.Time) ([]*model.AccessLog, error)
	FindSince(ctx context.Context, since time.Time) ([]*model.AccessLog, error)
	StatsByLocation(ctx context.Context, since time.Time) ([]*model.LocationAccessStats, error)
}

type mongoAccessRepository struct {
	collection   *mongo.Collection
	readTimeout  time.Duration
	writeTimeout time.Duration
}

func NewMongoAccessRepository(cfg *config.Config) AccessRepository {
	return &mongoAccessRepository{
		collection:   cfg.Client.Mongo.Database(cfg.MongoDatabaseName).Collection(CollectionName),
		readTimeout:  cfg.ReadTimeout,
		writeTimeout: cfg.WriteTimeout,
	}
}

func (r *mongoAccessRepository) Create(ctx context.Context, entry *model.AccessLog) error {
	ctx, cancel := mongotx.WithTimeout(ctx, r.writeTimeout)
	defer cancel()

	if _, err := r.collection.InsertOne(ctx, entry); err != nil {
		return fmt.Errorf("failed to record access: %w", err)
	}
	return nil
}

func (r *mongoAccessRepository) FindByMemberSince(ctx context.Context, memberID string, since time.Time) ([]*model.AccessLog, error) {
	return r.find(ctx, bson.M{"member_id": memberID, "timestamp": bson.M{"$gte": since}})
}

func (r *mongoAccessRepository) FindSince(ctx context.Context, since time.Time) ([]*model.AccessLog, error) {
	return r.find(ctx, bson.M{"timestamp": bson.M{"$gte": since}})
}

func (r *mongoAccessRepository) find(ctx context.Context, filter bson.M) ([]*model.AccessLog, error) {
	ctx, cancel := mongotx.WithTimeout(ctx, r.readTimeout)
	defer cancel()

	cursor, err := r.collection.Find(ctx, filter, options.Find().SetSort(bson.D{{Key: "timestamp", Value: -1}}))
	if err != nil {
		return nil, fmt.Errorf("failed to list access logs: %w", err)
	}
	defer func() { _ = cursor.Close(ctx) }()

	entries := []*model.AccessLog{}
	if err := cursor.All(ctx, &entries); err != nil {
		return nil, fmt.Errorf("failed to decode access logs: %w", err)
	}
	return entries, nil
}

func (r *mongoAccessRepository) StatsByLocation(ctx context.Context, since time.Time) ([]*model.LocationAccessStats, error) {
	ctx, cancel := mongotx.WithTimeout(ctx, r.readTimeout)
	defer cancel()

	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: bson.M{"timestamp": bson.M{"$gte": since}}}},
		{{Key: "$group", Value: bson.M{
			"_id":     "$location",
			"entries": bson.M{"$sum": bson.M{"$cond": bson.A{bson.M{"$eq": bson.A{"$entry_type", model.EntryIn}}, 1, 0}}},
			"exits":   bson.M{"$sum": bson.M{"$cond": bson.A{bson.M{"$eq": bson.A{"$entry_type", model.EntryOut}}, 1, 0}}},
			"members": bson.M{"$addToSet": "$member_id"},
		}}},
		{{Key: "$project", Value: bson.M{
			"entries":        1,
			"exits":          1,
			"unique_members": bson.M{"$size": "$members"},
		}}},
		{{Key: "$sort", Value: bson.M{"entries": -1}}},
	}

	cursor, err := r.collection.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate access stats: %w", err)
	}
	defer func() { _ = cursor.Close(ctx) }()

	stats := []*model.LocationAccessStats{}
	if err := cursor.All(ctx, &stats); err != nil {
		return nil, fmt.Errorf("failed to decode access stats: %w", err)
	}
	return stats, nil
}
