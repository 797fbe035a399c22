package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	billingerrors "cowork/internal/billing/errors"
	"cowork/pkg/config"
	mongotx "cowork/pkg/db/mongo"
	"cowork/pkg/model"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const CollectionName = "Invoices"

type InvoiceRepository interface {
	ExecuteTransaction(ctx context.Context, fn func(ctx context.Context) error) error
	Create(ctx context.Context, invoice *model.Invoice) error
	FindByID(ctx context.Context, id string) (*model.Invoice, error)
	// MarkPaid moves a pending invoice to paid. Any other status yields ErrNotPending.
	MarkPaid(ctx context.Context, id string, at time.Time) error
	FindByMember(ctx context.Context, memberID string) ([]*model.Invoice, error)
	FindOverdue(ctx context.Context, now time.Time) ([]*model.Invoice, error)
}

type mongoInvoiceRepository struct {
	collection   *mongo.Collection
	txManager    mongotx.TransactionManager
	readTimeout  time.Duration
	writeTimeout time.Duration
}

func NewMongoInvoiceRepository(cfg *config.Config) InvoiceRepository {
	return &mongoInvoiceRepository{
		collection:   cfg.Client.Mongo.Database(cfg.MongoDatabaseName).Collection(CollectionName),
		txManager:    mongotx.NewTransactionManager(cfg.Client.Mongo),
		readTimeout:  cfg.ReadTimeout,
		writeTimeout: cfg.WriteTimeout,
	}
}

func (r *mongoInvoiceRepository) ExecuteTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	return r.txManager.ExecuteTransaction(ctx, func(sessCtx mongo.SessionContext) error {
		return fn(sessCtx)
	})
}

func (r *mongoInvoiceRepository) Create(ctx context.Context, invoice *model.Invoice) error {
	ctx, cancel := mongotx.WithTimeout(ctx, r.writeTimeout)
	defer cancel()

	if _, err := r.collection.InsertOne(ctx, invoice); err != nil {
		return fmt.Errorf("failed to create invoice: %w", err)
	}
	return nil
}

func (r *mongoInvoiceRepository) FindByID(ctx context.Context, id string) (*model.Invoice, error) {
	ctx, cancel := mongotx.WithTimeout(ctx, r.readTimeout)
	defer cancel()

	var invoice model.Invoice
	if err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&invoice); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, billingerrors.ErrNotFound
		}
		return nil, fmt.Errorf("failed to find invoice: %w", err)
	}
	return &invoice, nil
}

func (r *mongoInvoiceRepository) MarkPaid(ctx context.Context, id string, at time.Time) error {
	ctx, cancel := mongotx.WithTimeout(ctx, r.writeTimeout)
	defer cancel()

	filter := bson.M{"_id": id, "status": model.InvoicePending}
	update := bson.M{"$set": bson.M{"status": model.InvoicePaid, "paid_at": at}}
	result, err := r.collection.UpdateOne(ctx, filter, update)
	if err != nil {
		return fmt.Errorf("failed to mark invoice paid: %w", err)
	}
	if result.MatchedCount > 0 {
		return nil
	}

	count, err := r.collection.CountDocuments(ctx, bson.M{"_id": id})
	if err != nil {
		return fmt.Errorf("failed to check invoice: %w", err)
	}
	if count == 0 {
		return billingerrors.ErrNotFound
	}
	return billingerrors.ErrNotPending
}

func (r *mongoInvoiceRepository) FindByMember(ctx context.Context, memberID string) ([]*model.Invoice, error) {
	return r.find(ctx, bson.M{"member_id": memberID}, bson.D{{Key: "invoice_date", Value: -1}})
}

func (r *mongoInvoiceRepository) FindOverdue(ctx context.Context, now time.Time) ([]*model.Invoice, error) {
	filter := bson.M{"status": model.InvoicePending, "due_date": bson.M{"$lt": now}}
	return r.find(ctx, filter, bson.D{{Key: "due_date", Value: 1}})
}

func (r *mongoInvoiceRepository) find(ctx context.Context, filter bson.M, sort bson.D) ([]*model.Invoice, error) {
	ctx, cancel := mongotx.WithTimeout(ctx, r.readTimeout)
	defer cancel()

	cursor, err := r.collection.Find(ctx, filter, options.Find().SetSort(sort))
	if err != nil {
		return nil, fmt.Errorf("failed to list invoices: %w", err)
	}
	defer func() { _ = cursor.Close(ctx) }()

	invoices := []*model.Invoice{}
	if err := cursor.All(ctx, &invoices); err != nil {
		return nil, fmt.Errorf("failed to decode invoices: %w", err)
	}
	return invoices, nil
}
