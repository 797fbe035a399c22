package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	resourceserrors "cowork/internal/resources/errors"
	"cowork/pkg/config"
	mongotx "cowork/pkg/db/mongo"
	"cowork/pkg/model"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Each resource type lives in its own collection, so (type, id) is the key.
var collectionNames = map[string]string{
	model.ResourceWorkspace:   "Workspaces",
	model.ResourceMeetingRoom: "MeetingRooms",
	model.ResourceEquipment:   "Equipment",
}

func CollectionName(resourceType string) (string, bool) {
	name, ok := collectionNames[resourceType]
	return name, ok
}

type ResourceRepository interface {
	Create(ctx context.Context, resource *model.Resource) error
	FindByTypeAndID(ctx context.Context, resourceType, id string) (*model.Resource, error)
	Find(ctx context.Context, filter model.ResourceFilter) ([]*model.Resource, error)
	SetOccupancy(ctx context.Context, resourceType, id, status string) error
	// SyncOccupancy marks busyIDs occupied and every other occupied resource
	// of the type not occupied. Resources under maintenance are untouched.
	SyncOccupancy(ctx context.Context, resourceType string, busyIDs []string) (int64, error)
}

type mongoResourceRepository struct {
	db           *mongo.Database
	readTimeout  time.Duration
	writeTimeout time.Duration
}

func NewMongoResourceRepository(cfg *config.Config) ResourceRepository {
	return &mongoResourceRepository{
		db:           cfg.Client.Mongo.Database(cfg.MongoDatabaseName),
		readTimeout:  cfg.ReadTimeout,
		writeTimeout: cfg.WriteTimeout,
	}
}

func (r *mongoResourceRepository) collection(resourceType string) (*mongo.Collection, error) {
	name, ok := CollectionName(resourceType)
	if !ok {
		return nil, fmt.Errorf("%w: unknown type %q", resourceserrors.ErrNotFound, resourceType)
	}
	return r.db.Collection(name), nil
}

func (r *mongoResourceRepository) Create(ctx context.Context, resource *model.Resource) error {
	coll, err := r.collection(resource.Type)
	if err != nil {
		return err
	}

	ctx, cancel := mongotx.WithTimeout(ctx, r.writeTimeout)
	defer cancel()

	if _, err := coll.InsertOne(ctx, resource); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return fmt.Errorf("%w: %s/%s", resourceserrors.ErrAlreadyExists, resource.Type, resource.ID)
		}
		return fmt.Errorf("failed to create resource: %w", err)
	}
	return nil
}

func (r *mongoResourceRepository) FindByTypeAndID(ctx context.Context, resourceType, id string) (*model.Resource, error) {
	coll, err := r.collection(resourceType)
	if err != nil {
		return nil, err
	}

	ctx, cancel := mongotx.WithTimeout(ctx, r.readTimeout)
	defer cancel()

	var resource model.Resource
	if err := coll.FindOne(ctx, bson.M{"_id": id}).Decode(&resource); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, resourceserrors.ErrNotFound
		}
		return nil, fmt.Errorf("failed to find resource: %w", err)
	}
	resource.Type = resourceType
	return &resource, nil
}

func (r *mongoResourceRepository) Find(ctx context.Context, filter model.ResourceFilter) ([]*model.Resource, error) {
	types := model.ResourceTypes
	if filter.Type != "" {
		types = []string{filter.Type}
	}

	query := bson.M{}
	if filter.Location != "" {
		query["location"] = filter.Location
	}
	if filter.Occupied != "" {
		query["occupied"] = filter.Occupied
	}
	opts := options.Find().SetSort(bson.D{{Key: "name", Value: 1}})

	resources := []*model.Resource{}
	for _, t := range types {
		found, err := r.findIn(ctx, t, query, opts)
		if err != nil {
			return nil, err
		}
		resources = append(resources, found...)
	}
	return resources, nil
}

func (r *mongoResourceRepository) findIn(ctx context.Context, resourceType string, query bson.M, opts *options.FindOptions) ([]*model.Resource, error) {
	coll, err := r.collection(resourceType)
	if err != nil {
		return nil, err
	}

	ctx, cancel := mongotx.WithTimeout(ctx, r.readTimeout)
	defer cancel()

	cursor, err := coll.Find(ctx, query, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to list %s resources: %w", resourceType, err)
	}
	defer func() { _ = cursor.Close(ctx) }()

	var resources []*model.Resource
	if err := cursor.All(ctx, &resources); err != nil {
		return nil, fmt.Errorf("failed to decode %s resources: %w", resourceType, err)
	}
	for _, res := range resources {
		res.Type = resourceType
	}
	return resources, nil
}

func (r *mongoResourceRepository) SetOccupancy(ctx context.Context, resourceType, id, status string) error {
	coll, err := r.collection(resourceType)
	if err != nil {
		return err
	}

	ctx, cancel := mongotx.WithTimeout(ctx, r.writeTimeout)
	defer cancel()

	result, err := coll.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": bson.M{"occupied": status}})
	if err != nil {
		return fmt.Errorf("failed to update occupancy: %w", err)
	}
	if result.MatchedCount == 0 {
		return resourceserrors.ErrNotFound
	}
	return nil
}

func (r *mongoResourceRepository) SyncOccupancy(ctx context.Context, resourceType string, busyIDs []string) (int64, error) {
	coll, err := r.collection(resourceType)
	if err != nil {
		return 0, err
	}
	if busyIDs == nil {
		busyIDs = []string{}
	}

	ctx, cancel := mongotx.WithTimeout(ctx, r.writeTimeout)
	defer cancel()

	occupied, err := coll.UpdateMany(ctx,
		bson.M{"_id": bson.M{"$in": busyIDs}, "occupied": model.NotOccupied},
		bson.M{"$set": bson.M{"occupied": model.Occupied}},
	)
	if err != nil {
		return 0, fmt.Errorf("failed to mark %s resources occupied: %w", resourceType, err)
	}

	freed, err := coll.UpdateMany(ctx,
		bson.M{"_id": bson.M{"$nin": busyIDs}, "occupied": model.Occupied},
		bson.M{"$set": bson.M{"occupied": model.NotOccupied}},
	)
	if err != nil {
		return occupied.ModifiedCount, fmt.Errorf("failed to free %s resources: %w", resourceType, err)
	}
	return occupied.ModifiedCount + freed.ModifiedCount, nil
}
