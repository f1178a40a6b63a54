package repository

import (
	"context"
	"errors"
	"time"

	generationdomain "github.com/smallbiznis/mergematrix/internal/generation/domain"
	"github.com/smallbiznis/mergematrix/internal/storage"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

// CollectionName is shared with the index migration.
const CollectionName = "usage_accounts"

type accountDocument struct {
	Identity         string     `bson:"_id"`
	Generations      int        `bson:"generations"`
	IsPremium        bool       `bson:"is_premium"`
	LastGenerationAt *time.Time `bson:"last_generation_at,omitempty"`
	CreatedAt        time.Time  `bson:"created_at"`
	UpdatedAt        time.Time  `bson:"updated_at"`
}

func (d accountDocument) toDomain() *generationdomain.UsageAccount {
	account := &generationdomain.UsageAccount{
		Identity:    d.Identity,
		Generations: d.Generations,
		IsPremium:   d.IsPremium,
		CreatedAt:   d.CreatedAt.UTC(),
		UpdatedAt:   d.UpdatedAt.UTC(),
	}
	if d.LastGenerationAt != nil {
		last := d.LastGenerationAt.UTC()
		account.LastGenerationAt = &last
	}
	return account
}

type mongoRepo struct {
	col *mongo.Collection
}

func NewMongo(database *mongo.Database) generationdomain.Repository {
	return &mongoRepo{col: database.Collection(CollectionName)}
}

func (r *mongoRepo) Backend() string { return storage.BackendMongo }

func (r *mongoRepo) FindByIdentity(ctx context.Context, identity string) (*generationdomain.UsageAccount, error) {
	var doc accountDocument
	err := r.col.FindOne(ctx, bson.M{"_id": identity}).Decode(&doc)
	if isNoDocuments(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return doc.toDomain(), nil
}

func (r *mongoRepo) EnsureAccount(ctx context.Context, account *generationdomain.UsageAccount) error {
	_, err := r.col.UpdateOne(ctx,
		bson.M{"_id": account.Identity},
		bson.M{"$setOnInsert": bson.M{
			"generations": account.Generations,
			"is_premium":  account.IsPremium,
			"created_at":  account.CreatedAt,
			"updated_at":  account.UpdatedAt,
		}},
		options.UpdateOne().SetUpsert(true),
	)
	// Two concurrent upserts on the same _id: one loses with a duplicate key.
	if mongo.IsDuplicateKeyError(err) {
		return nil
	}
	return err
}

func (r *mongoRepo) IncrementWithinLimit(ctx context.Context, identity string, at time.Time) (*generationdomain.UsageAccount, bool, error) {
	filter := bson.M{"_id": identity, "$or": belowLimitFilter()}
	update := bson.M{
		"$inc": bson.M{"generations": 1},
		"$set": bson.M{"last_generation_at": at, "updated_at": at},
	}

	var doc accountDocument
	err := r.col.FindOneAndUpdate(ctx, filter, update,
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&doc)
	if err == nil {
		return doc.toDomain(), true, nil
	}
	if !isNoDocuments(err) {
		return nil, false, err
	}

	current, err := r.FindByIdentity(ctx, identity)
	if err != nil {
		return nil, false, err
	}
	if current == nil {
		return nil, false, errors.New("usage account disappeared during admission")
	}
	return current, false, nil
}

func (r *mongoRepo) SetPremium(ctx context.Context, identity string, premium bool, at time.Time) (*generationdomain.UsageAccount, error) {
	var doc accountDocument
	err := r.col.FindOneAndUpdate(ctx,
		bson.M{"_id": identity},
		bson.M{"$set": bson.M{"is_premium": premium, "updated_at": at}},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&doc)
	if err != nil {
		return nil, err
	}
	return doc.toDomain(), nil
}

func belowLimitFilter() bson.A {
	tiers := generationdomain.Tiers()
	clauses := make(bson.A, 0, len(tiers))
	for _, tier := range tiers {
		clauses = append(clauses, bson.M{
			"is_premium":  tier.Premium(),
			"generations": bson.M{"$lt": generationdomain.LimitFor(tier)},
		})
	}
	return clauses
}

func isNoDocuments(err error) bool {
	return errors.Is(err, mongo.ErrNoDocuments)
}
