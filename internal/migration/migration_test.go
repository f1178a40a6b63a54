package migration

import (
	"context"
	"io/fs"
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
	"gorm.io/gorm"
)

func TestEmbeddedMigrationsPresent(t *testing.T) {
	entries, err := fs.ReadDir(embeddedMigrations, "migrations")
	require.NoError(t, err)

	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		names = append(names, entry.Name())
	}
	assert.Equal(t, []string{"000001_usage_accounts.up.sql", "000002_merge_records.up.sql"}, names)
}

func TestAutoMigrateCreatesTables(t *testing.T) {
	db, err := gorm.Open(sqlite.Open("file:"+t.Name()+"?mode=memory&cache=shared"), &gorm.Config{})
	require.NoError(t, err)

	require.NoError(t, AutoMigrate(context.Background(), db))
	assert.True(t, db.Migrator().HasTable("usage_accounts"))
	assert.True(t, db.Migrator().HasTable("merge_records"))
	assert.True(t, db.Migrator().HasIndex("usage_accounts", "ux_usage_accounts_identity"))
}

func TestRunMigrationsRequiresHandle(t *testing.T) {
	_, err := RunMigrations(nil, zap.NewNop())
	assert.Error(t, err)
}

func TestMigrateLoggerWritesInfo(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	l := migrateLogger{log: zap.New(core)}

	l.Printf("Start buffering %d/u %s\n", 1, "usage_accounts")
	assert.False(t, l.Verbose())
	require.Equal(t, 1, logs.Len())
	assert.Equal(t, "Start buffering 1/u usage_accounts", logs.All()[0].Message)

	migrateLogger{}.Printf("ignored")
}

func TestMongoIndexesCoverOwnerKeys(t *testing.T) {
	indexes := migrationIndexes()
	assert.Len(t, indexes["merge_records"], 2)
}
