package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	memberserrors "cowork/internal/members/errors"
	"cowork/pkg/config"
	mongotx "cowork/pkg/db/mongo"
	"cowork/pkg/model"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	MembersCollection     = "Members"
	AccessCardsCollection = "AccessCards"
)

type MemberRepository interface {
	ExecuteTransaction(ctx context.Context, fn func(ctx context.Context) error) error
	Create(ctx context.Context, member *model.Member) error
	CreateCard(ctx context.Context, card *model.AccessCard) error
	FindByID(ctx context.Context, id string) (*model.Member, error)
	FindByPlan(ctx context.Context, plan string) ([]*model.Member, error)
	FindCards(ctx context.Context, memberID string) ([]*model.AccessCard, error)
	UpdateStatus(ctx context.Context, id, status string) error
	SetCardsActive(ctx context.Context, memberID string, active bool) error
}

type mongoMemberRepository struct {
	members      *mongo.Collection
	cards        *mongo.Collection
	txManager    mongotx.TransactionManager
	readTimeout  time.Duration
	writeTimeout time.Duration
}

func NewMongoMemberRepository(cfg *config.Config) MemberRepository {
	db := cfg.Client.Mongo.Database(cfg.MongoDatabaseName)
	return &mongoMemberRepository{
		members:      db.Collection(MembersCollection),
		cards:        db.Collection(AccessCardsCollection),
		txManager:    mongotx.NewTransactionManager(cfg.Client.Mongo),
		readTimeout:  cfg.ReadTimeout,
		writeTimeout: cfg.WriteTimeout,
	}
}

func (r *mongoMemberRepository) ExecuteTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	return r.txManager.ExecuteTransaction(ctx, func(sessCtx mongo.SessionContext) error {
		return fn(sessCtx)
	})
}

func (r *mongoMemberRepository) Create(ctx context.Context, member *model.Member) error {
	ctx, cancel := mongotx.WithTimeout(ctx, r.writeTimeout)
	defer cancel()

	if _, err := r.members.InsertOne(ctx, member); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return fmt.Errorf("%w: %s", memberserrors.ErrEmailTaken, member.Email)
		}
		return fmt.Errorf("failed to create member: %w", err)
	}
	return nil
}

func (r *mongoMemberRepository) CreateCard(ctx context.Context, card *model.AccessCard) error {
	ctx, cancel := mongotx.WithTimeout(ctx, r.writeTimeout)
	defer cancel()

	if _, err := r.cards.InsertOne(ctx, card); err != nil {
		return fmt.Errorf("failed to create access card: %w", err)
	}
	return nil
}

func (r *mongoMemberRepository) FindByID(ctx context.Context, id string) (*model.Member, error) {
	ctx, cancel := mongotx.WithTimeout(ctx, r.readTimeout)
	defer cancel()

	var member model.Member
	if err := r.members.FindOne(ctx, bson.M{"_id": id}).Decode(&member); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, memberserrors.ErrNotFound
		}
		return nil, fmt.Errorf("failed to find member: %w", err)
	}
	return &member, nil
}

func (r *mongoMemberRepository) FindByPlan(ctx context.Context, plan string) ([]*model.Member, error) {
	ctx, cancel := mongotx.WithTimeout(ctx, r.readTimeout)
	defer cancel()

	filter := bson.M{"membership_plan": plan, "status": model.MemberActive}
	cursor, err := r.members.Find(ctx, filter, options.Find().SetSort(bson.D{{Key: "name", Value: 1}}))
	if err != nil {
		return nil, fmt.Errorf("failed to list members: %w", err)
	}
	defer func() { _ = cursor.Close(ctx) }()

	members := []*model.Member{}
	if err := cursor.All(ctx, &members); err != nil {
		return nil, fmt.Errorf("failed to decode members: %w", err)
	}
	return members, nil
}

func (r *mongoMemberRepository) FindCards(ctx context.Context, memberID string) ([]*model.AccessCard, error) {
	ctx, cancel := mongotx.WithTimeout(ctx, r.readTimeout)
	defer cancel()

	cursor, err := r.cards.Find(ctx, bson.M{"member_id": memberID}, options.Find().SetSort(bson.D{{Key: "issued_at", Value: -1}}))
	if err != nil {
		return nil, fmt.Errorf("failed to list access cards: %w", err)
	}
	defer func() { _ = cursor.Close(ctx) }()

	cards := []*model.AccessCard{}
	if err := cursor.All(ctx, &cards); err != nil {
		return nil, fmt.Errorf("failed to decode access cards: %w", err)
	}
	return cards, nil
}

func (r *mongoMemberRepository) UpdateStatus(ctx context.Context, id, status string) error {
	ctx, cancel := mongotx.WithTimeout(ctx, r.writeTimeout)
	defer cancel()

	result, err := r.members.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": bson.M{"status": status}})
	if err != nil {
		return fmt.Errorf("failed to update member status: %w", err)
	}
	if result.MatchedCount == 0 {
		return memberserrors.ErrNotFound
	}
	return nil
}

func (r *mongoMemberRepository) SetCardsActive(ctx context.Context, memberID string, active bool) error {
	ctx, cancel := mongotx.WithTimeout(ctx, r.writeTimeout)
	defer cancel()

	if _, err := r.cards.UpdateMany(ctx, bson.M{"member_id": memberID}, bson.M{"$set": bson.M{"active": active}}); err != nil {
		return fmt.Errorf("failed to update access cards: %w", err)
	}
	return nil
}
