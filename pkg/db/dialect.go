package db

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/smallbiznis/mergematrix/internal/config"
	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

// Dialect picks the gorm driver for DATABASE_TYPE. The document store has no
// dialect.
func Dialect(cfg config.Config) (gorm.Dialector, error) {
	dsn, err := DSN(cfg)
	if err != nil {
		return nil, err
	}

	switch cfg.DBType {
	case config.DBTypeMySQL:
		return mysql.Open(dsn), nil
	case config.DBTypePostgres:
		return postgres.Open(dsn), nil
	default:
		return sqlite.Open(dsn), nil
	}
}

// DSN renders the connection string for the configured SQL backend.
func DSN(cfg config.Config) (string, error) {
	switch cfg.DBType {
	case config.DBTypePostgres:
		return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s TimeZone=UTC",
			cfg.DBHost, cfg.DBPort, cfg.DBUser, cfg.DBPassword, cfg.DBName, cfg.DBSSLMode), nil
	case config.DBTypeMySQL:
		return fmt.Sprintf("%s:%s@tcp(%s:%s)/%s?charset=utf8mb4&parseTime=True&loc=UTC",
			cfg.DBUser, cfg.DBPassword, cfg.DBHost, cfg.DBPort, cfg.DBName), nil
	case config.DBTypeSQLite:
		return sqliteDSN(cfg.DBPath), nil
	default:
		return "", fmt.Errorf("unsupported database type %q", cfg.DBType)
	}
}

// sqliteDSN waits on a locked database instead of failing the conditional
// update outright.
func sqliteDSN(path string) string {
	path = strings.TrimSpace(path)
	if path == "" {
		path = "mergematrix.db"
	}
	if strings.Contains(path, "?") {
		return path
	}
	params := url.Values{}
	params.Set("_busy_timeout", "5000")
	params.Set("_journal_mode", "WAL")
	return path + "?" + params.Encode()
}
