package repository

import (
	"context"
	"fmt"
	"time"

	amenitiesrepo "cowork/internal/amenities/repository"
	billingrepo "cowork/internal/billing/repository"
	membersrepo "cowork/internal/members/repository"
	reservationsrepo "cowork/internal/reservations/repository"
	resourcesrepo "cowork/internal/resources/repository"
	"cowork/pkg/config"
	mongotx "cowork/pkg/db/mongo"
	"cowork/pkg/model"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

// ReportRepository runs the read-only aggregations behind the reports.
// Reservation reports read the Mongo reservation store.
type ReportRepository interface {
	Utilization(ctx context.Context) ([]*model.LocationUtilization, error)
	MeetingRoomPatterns(ctx context.Context) ([]*model.MeetingRoomPattern, error)
	PeakHours(ctx context.Context, since time.Time) ([]*model.HourUsage, error)
	Revenue(ctx context.Context, since, now time.Time) (*model.RevenueSummary, error)
	PopularAmenities(ctx context.Context, since time.Time, limit int) ([]*model.AmenityPopularity, error)
	Retention(ctx context.Context) (*model.MemberRetention, error)
}

type mongoReportRepository struct {
	db          *mongo.Database
	readTimeout time.Duration
}

func NewMongoReportRepository(cfg *config.Config) ReportRepository {
	return &mongoReportRepository{
		db:          cfg.Client.Mongo.Database(cfg.MongoDatabaseName),
		readTimeout: cfg.ReadTimeout,
	}
}

func countIf(field, value string) bson.M {
	return bson.M{"$sum": bson.M{"$cond": bson.A{bson.M{"$eq": bson.A{"$" + field, value}}, 1, 0}}}
}

func (r *mongoReportRepository) Utilization(ctx context.Context) ([]*model.LocationUtilization, error) {
	out := []*model.LocationUtilization{}
	for _, resourceType := range model.ResourceTypes {
		name, _ := resourcesrepo.CollectionName(resourceType)
		pipeline := mongo.Pipeline{
			{{Key: "$group", Value: bson.M{
				"_id":         "$location",
				"total":       bson.M{"$sum": 1},
				"occupied":    countIf("occupied", model.Occupied),
				"available":   countIf("occupied", model.NotOccupied),
				"maintenance": countIf("occupied", model.UnderMaintenance),
			}}},
			{{Key: "$addFields", Value: bson.M{
				"resource_type":    resourceType,
				"utilization_rate": bson.M{"$multiply": bson.A{bson.M{"$divide": bson.A{"$occupied", "$total"}}, 100}},
			}}},
			{{Key: "$sort", Value: bson.D{{Key: "_id", Value: 1}}}},
		}

		rows := []*model.LocationUtilization{}
		if err := r.aggregate(ctx, name, pipeline, &rows); err != nil {
			return nil, fmt.Errorf("failed to aggregate %s utilization: %w", resourceType, err)
		}
		out = append(out, rows...)
	}
	return out, nil
}

func (r *mongoReportRepository) MeetingRoomPatterns(ctx context.Context) ([]*model.MeetingRoomPattern, error) {
	rooms, _ := resourcesrepo.CollectionName(model.ResourceMeetingRoom)
	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: bson.M{
			"resource_type": model.ResourceMeetingRoom,
			"status":        model.ReservationConfirmed,
		}}},
		{{Key: "$group", Value: bson.M{
			"_id":             "$resource_id",
			"total_bookings":  bson.M{"$sum": 1},
			"avg_duration_ms": bson.M{"$avg": bson.M{"$subtract": bson.A{"$end_time", "$start_time"}}},
			"total_revenue":   bson.M{"$sum": "$total_price"},
		}}},
		{{Key: "$lookup", Value: bson.M{
			"from":         rooms,
			"localField":   "_id",
			"foreignField": "_id",
			"as":           "room",
		}}},
		{{Key: "$unwind", Value: bson.M{"path": "$room", "preserveNullAndEmptyArrays": true}}},
		{{Key: "$project", Value: bson.M{
			"name":               "$room.name",
			"location":           "$room.location",
			"total_bookings":     1,
			"total_revenue":      1,
			"avg_duration_hours": bson.M{"$divide": bson.A{"$avg_duration_ms", 3600000}},
		}}},
		{{Key: "$sort", Value: bson.D{{Key: "total_bookings", Value: -1}, {Key: "_id", Value: 1}}}},
	}

	rows := []*model.MeetingRoomPattern{}
	if err := r.aggregate(ctx, reservationsrepo.CollectionName, pipeline, &rows); err != nil {
		return nil, fmt.Errorf("failed to aggregate meeting room patterns: %w", err)
	}
	return rows, nil
}

func (r *mongoReportRepository) PeakHours(ctx context.Context, since time.Time) ([]*model.HourUsage, error) {
	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: bson.M{
			"status":     model.ReservationConfirmed,
			"start_time": bson.M{"$gte": since},
		}}},
		{{Key: "$group", Value: bson.M{
			"_id":           bson.M{"$hour": "$start_time"},
			"booking_count": bson.M{"$sum": 1},
			"avg_price":     bson.M{"$avg": "$total_price"},
		}}},
		{{Key: "$sort", Value: bson.D{{Key: "booking_count", Value: -1}, {Key: "_id", Value: 1}}}},
	}

	rows := []*model.HourUsage{}
	if err := r.aggregate(ctx, reservationsrepo.CollectionName, pipeline, &rows); err != nil {
		return nil, fmt.Errorf("failed to aggregate peak hours: %w", err)
	}
	return rows, nil
}

func (r *mongoReportRepository) Revenue(ctx context.Context, since, now time.Time) (*model.RevenueSummary, error) {
	paid := bson.M{"$eq": bson.A{"$status", model.InvoicePaid}}
	pending := bson.M{"$and": bson.A{
		bson.M{"$eq": bson.A{"$status", model.InvoicePending}},
		bson.M{"$gte": bson.A{"$due_date", now}},
	}}
	overdue := bson.M{"$and": bson.A{
		bson.M{"$eq": bson.A{"$status", model.InvoicePending}},
		bson.M{"$lt": bson.A{"$due_date", now}},
	}}
	sumIf := func(cond bson.M, value any) bson.M {
		return bson.M{"$sum": bson.M{"$cond": bson.A{cond, value, 0}}}
	}

	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: bson.M{"invoice_date": bson.M{"$gte": since}}}},
		{{Key: "$group", Value: bson.M{
			"_id":              nil,
			"paid_revenue":     sumIf(paid, "$total_amount"),
			"pending_revenue":  sumIf(pending, "$total_amount"),
			"overdue_revenue":  sumIf(overdue, "$total_amount"),
			"paid_invoices":    sumIf(paid, 1),
			"pending_invoices": sumIf(pending, 1),
			"overdue_invoices": sumIf(overdue, 1),
			"avg_paid_invoice": bson.M{"$avg": bson.M{"$cond": bson.A{paid, "$total_amount", nil}}},
		}}},
	}

	rows := []*model.RevenueSummary{}
	if err := r.aggregate(ctx, billingrepo.CollectionName, pipeline, &rows); err != nil {
		return nil, fmt.Errorf("failed to aggregate revenue: %w", err)
	}
	if len(rows) == 0 {
		return &model.RevenueSummary{}, nil
	}
	return rows[0], nil
}

func (r *mongoReportRepository) PopularAmenities(ctx context.Context, since time.Time, limit int) ([]*model.AmenityPopularity, error) {
	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: bson.M{"purchased_at": bson.M{"$gte": since}}}},
		{{Key: "$group", Value: bson.M{
			"_id":           "$item_id",
			"usage_count":   bson.M{"$sum": 1},
			"quantity_used": bson.M{"$sum": "$quantity"},
			"revenue":       bson.M{"$sum": "$total_price"},
		}}},
		{{Key: "$sort", Value: bson.D{{Key: "usage_count", Value: -1}, {Key: "_id", Value: 1}}}},
		{{Key: "$limit", Value: limit}},
		{{Key: "$lookup", Value: bson.M{
			"from":         amenitiesrepo.ItemsCollection,
			"localField":   "_id",
			"foreignField": "_id",
			"as":           "item",
		}}},
		{{Key: "$unwind", Value: bson.M{"path": "$item", "preserveNullAndEmptyArrays": true}}},
		{{Key: "$project", Value: bson.M{
			"name":          "$item.name",
			"category":      "$item.category",
			"usage_count":   1,
			"quantity_used": 1,
			"revenue":       1,
		}}},
		{{Key: "$sort", Value: bson.D{{Key: "usage_count", Value: -1}, {Key: "_id", Value: 1}}}},
	}

	rows := []*model.AmenityPopularity{}
	if err := r.aggregate(ctx, amenitiesrepo.UsagesCollection, pipeline, &rows); err != nil {
		return nil, fmt.Errorf("failed to aggregate amenity usage: %w", err)
	}
	return rows, nil
}

func (r *mongoReportRepository) Retention(ctx context.Context) (*model.MemberRetention, error) {
	pipeline := mongo.Pipeline{
		{{Key: "$group", Value: bson.M{
			"_id":       nil,
			"total":     bson.M{"$sum": 1},
			"active":    countIf("status", model.MemberActive),
			"inactive":  countIf("status", model.MemberInactive),
			"suspended": countIf("status", model.MemberSuspended),
		}}},
	}

	rows := []*model.MemberRetention{}
	if err := r.aggregate(ctx, membersrepo.MembersCollection, pipeline, &rows); err != nil {
		return nil, fmt.Errorf("failed to aggregate member retention: %w", err)
	}
	if len(rows) == 0 {
		return &model.MemberRetention{}, nil
	}
	return rows[0], nil
}

func (r *mongoReportRepository) aggregate(ctx context.Context, collection string, pipeline mongo.Pipeline, out any) error {
	ctx, cancel := mongotx.WithTimeout(ctx, r.readTimeout)
	defer cancel()

	cursor, err := r.db.Collection(collection).Aggregate(ctx, pipeline)
	if err != nil {
		return err
	}
	defer func() { _ = cursor.Close(ctx) }()

	return cursor.All(ctx, out)
}
