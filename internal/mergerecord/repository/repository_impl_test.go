package repository

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	mergerecorddomain "github.com/smallbiznis/mergematrix/internal/mergerecord/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

var base = time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)

func record(id int64, userID, email string, createdAt time.Time) *mergerecorddomain.MergeRecord {
	return &mergerecorddomain.MergeRecord{
		ID:          snowflake.ID(id),
		UserID:      userID,
		UserEmail:   email,
		FileName:    "merged.pdf",
		FileSize:    10,
		MergedFiles: datatypes.JSONSlice[mergerecorddomain.SourceFile]{{Name: "a.pdf", Size: 10}},
		Settings:    datatypes.NewJSONType(mergerecorddomain.Settings{Quality: "high"}),
		CreatedAt:   createdAt,
	}
}

func TestSQLListByOwnerOrdersAndLimits(t *testing.T) {
	repo := NewSQL(openSQLite(t))
	ctx := context.Background()

	require.NoError(t, repo.Insert(ctx, record(1, "u-1", "a@example.com", base)))
	require.NoError(t, repo.Insert(ctx, record(2, "u-1", "a@example.com", base.Add(time.Minute))))
	require.NoError(t, repo.Insert(ctx, record(3, "u-1", "a@example.com", base.Add(time.Minute))))
	require.NoError(t, repo.Insert(ctx, record(4, "u-2", "b@example.com", base.Add(time.Hour))))

	records, err := repo.ListByOwner(ctx, mergerecorddomain.OwnerFilter{UserID: "u-1"}, 2)
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.EqualValues(t, 3, records[0].ID)
	assert.EqualValues(t, 2, records[1].ID)
	assert.Equal(t, "high", records[0].Settings.Data().Quality)
	assert.Equal(t, "a.pdf", records[0].MergedFiles[0].Name)

	records, err = repo.ListByOwner(ctx, mergerecorddomain.OwnerFilter{UserEmail: "b@example.com"}, 10)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.EqualValues(t, 4, records[0].ID)

	records, err = repo.ListByOwner(ctx, mergerecorddomain.OwnerFilter{UserEmail: "nobody@example.com"}, 10)
	require.NoError(t, err)
	assert.NotNil(t, records)
	assert.Empty(t, records)
}

func TestMongoListByOwnerOrdersAndLimits(t *testing.T) {
	uri := os.Getenv("MONGO_TEST_URI")
	if uri == "" {
		t.Skip("MONGO_TEST_URI not set")
	}

	client, err := mongo.Connect(options.Client().ApplyURI(uri))
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Disconnect(context.Background()) })

	database := client.Database("mergematrix_test")
	ctx := context.Background()
	require.NoError(t, database.Collection(CollectionName).Drop(ctx))

	repo := NewMongo(database)
	require.NoError(t, repo.Insert(ctx, record(1, "u-1", "a@example.com", base)))
	require.NoError(t, repo.Insert(ctx, record(2, "u-1", "a@example.com", base.Add(time.Minute))))
	require.NoError(t, repo.Insert(ctx, record(3, "u-1", "a@example.com", base.Add(time.Minute))))

	records, err := repo.ListByOwner(ctx, mergerecorddomain.OwnerFilter{UserEmail: "a@example.com"}, 2)
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.EqualValues(t, 3, records[0].ID)
	assert.EqualValues(t, 2, records[1].ID)
	assert.True(t, records[0].CreatedAt.Equal(base.Add(time.Minute)))
	assert.Equal(t, "high", records[0].Settings.Data().Quality)
}

func openSQLite(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open("file:"+t.Name()+"?mode=memory&cache=shared"), &gorm.Config{})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })
	require.NoError(t, db.AutoMigrate(&mergerecorddomain.MergeRecord{}))
	return db
}
