package migration

import (
	"context"
	"fmt"

	generationrepo "github.com/smallbiznis/mergematrix/internal/generation/repository"
	mergerecordrepo "github.com/smallbiznis/mergematrix/internal/mergerecord/repository"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
)

// EnsureIndexes creates the document store indexes. Usage accounts are keyed
// by identity in _id, which is unique already.
func EnsureIndexes(ctx context.Context, database *mongo.Database) error {
	for col, models := range migrationIndexes() {
		if len(models) == 0 {
			continue
		}
		if _, err := database.Collection(col).Indexes().CreateMany(ctx, models); err != nil {
			return fmt.Errorf("migrate %s indexes: %w", col, err)
		}
	}
	return nil
}

func migrationIndexes() map[string][]mongo.IndexModel {
	return map[string][]mongo.IndexModel{
		generationrepo.CollectionName: {},
		mergerecordrepo.CollectionName: {
			{Keys: bson.D{{Key: "user_id", Value: 1}, {Key: "created_at", Value: -1}, {Key: "_id", Value: -1}}},
			{Keys: bson.D{{Key: "user_email", Value: 1}, {Key: "created_at", Value: -1}, {Key: "_id", Value: -1}}},
		},
	}
}
