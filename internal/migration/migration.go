package migration

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"strings"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	generationdomain "github.com/smallbiznis/mergematrix/internal/generation/domain"
	mergerecorddomain "github.com/smallbiznis/mergematrix/internal/mergerecord/domain"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

//go:embed migrations/*.up.sql
var embeddedMigrations embed.FS

const migrationsTable = "mergematrix_schema_migrations"

// RunMigrations applies the embedded Postgres migrations and returns the
// resulting schema version.
func RunMigrations(db *sql.DB, log *zap.Logger) (uint, error) {
	if db == nil {
		return 0, errors.New("migration database handle is required")
	}

	migrator, err := newMigrator(db)
	if err != nil {
		return 0, err
	}
	migrator.Log = migrateLogger{log: log}

	if err := migrator.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return 0, fmt.Errorf("apply migrations: %w", err)
	}

	// migrator.Close would close the shared *sql.DB.
	version, dirty, err := migrator.Version()
	if err != nil {
		return 0, fmt.Errorf("read schema version: %w", err)
	}
	if dirty {
		return version, fmt.Errorf("schema version %d is dirty", version)
	}
	return version, nil
}

func newMigrator(db *sql.DB) (*migrate.Migrate, error) {
	sub, err := fs.Sub(embeddedMigrations, "migrations")
	if err != nil {
		return nil, fmt.Errorf("open migrations: %w", err)
	}
	source, err := iofs.New(sub, ".")
	if err != nil {
		return nil, fmt.Errorf("create migration source: %w", err)
	}
	driver, err := postgres.WithInstance(db, &postgres.Config{MigrationsTable: migrationsTable})
	if err != nil {
		return nil, fmt.Errorf("create migration driver: %w", err)
	}
	return migrate.NewWithInstance("iofs", source, "postgres", driver)
}

// AutoMigrate creates the schema on MySQL and SQLite from the gorm models.
func AutoMigrate(ctx context.Context, db *gorm.DB) error {
	if err := db.WithContext(ctx).AutoMigrate(
		&generationdomain.UsageAccount{},
		&mergerecorddomain.MergeRecord{},
	); err != nil {
		return fmt.Errorf("auto migrate: %w", err)
	}
	return nil
}

type migrateLogger struct {
	log *zap.Logger
}

func (l migrateLogger) Printf(format string, v ...interface{}) {
	if l.log != nil {
		l.log.Info(strings.TrimSpace(fmt.Sprintf(format, v...)))
	}
}

func (l migrateLogger) Verbose() bool { return false }
