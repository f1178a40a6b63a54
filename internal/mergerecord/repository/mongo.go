package repository

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	mergerecorddomain "github.com/smallbiznis/mergematrix/internal/mergerecord/domain"
	"github.com/smallbiznis/mergematrix/internal/storage"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
	"gorm.io/datatypes"
)

// CollectionName is shared with the index migration.
const CollectionName = "merge_records"

type recordDocument struct {
	ID          int64                          `bson:"_id"`
	UserID      string                         `bson:"user_id"`
	UserEmail   string                         `bson:"user_email"`
	FileName    string                         `bson:"file_name"`
	FileSize    int64                          `bson:"file_size"`
	MergedFiles []mergerecorddomain.SourceFile `bson:"merged_files"`
	Settings    mergerecorddomain.Settings     `bson:"settings"`
	CreatedAt   time.Time                      `bson:"created_at"`
}

func toRecordDocument(r *mergerecorddomain.MergeRecord) recordDocument {
	return recordDocument{
		ID:          r.ID.Int64(),
		UserID:      r.UserID,
		UserEmail:   r.UserEmail,
		FileName:    r.FileName,
		FileSize:    r.FileSize,
		MergedFiles: []mergerecorddomain.SourceFile(r.MergedFiles),
		Settings:    r.Settings.Data(),
		CreatedAt:   r.CreatedAt,
	}
}

func (d recordDocument) toDomain() mergerecorddomain.MergeRecord {
	return mergerecorddomain.MergeRecord{
		ID:          snowflake.ID(d.ID),
		UserID:      d.UserID,
		UserEmail:   d.UserEmail,
		FileName:    d.FileName,
		FileSize:    d.FileSize,
		MergedFiles: datatypes.JSONSlice[mergerecorddomain.SourceFile](d.MergedFiles),
		Settings:    datatypes.NewJSONType(d.Settings),
		CreatedAt:   d.CreatedAt.UTC(),
	}
}

type mongoRepo struct {
	col *mongo.Collection
}

func NewMongo(database *mongo.Database) mergerecorddomain.Repository {
	return &mongoRepo{col: database.Collection(CollectionName)}
}

func (r *mongoRepo) Backend() string { return storage.BackendMongo }

func (r *mongoRepo) Insert(ctx context.Context, record *mergerecorddomain.MergeRecord) error {
	_, err := r.col.InsertOne(ctx, toRecordDocument(record))
	return err
}

func (r *mongoRepo) ListByOwner(ctx context.Context, filter mergerecorddomain.OwnerFilter, limit int) ([]mergerecorddomain.MergeRecord, error) {
	query := bson.M{"user_email": filter.UserEmail}
	if filter.UserID != "" {
		query = bson.M{"user_id": filter.UserID}
	}

	cursor, err := r.col.Find(ctx, query,
		options.Find().
			SetSort(bson.D{{Key: "created_at", Value: -1}, {Key: "_id", Value: -1}}).
			SetLimit(int64(limit)),
	)
	if err != nil {
		return nil, err
	}

	var docs []recordDocument
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, err
	}

	records := make([]mergerecorddomain.MergeRecord, 0, len(docs))
	for _, doc := range docs {
		records = append(records, doc.toDomain())
	}
	return records, nil
}
