// Package gormdb persists registry users, tokens and WebAuthn credentials
// with gorm on PostgreSQL or SQLite.
package gormdb

import (
	"fmt"

	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Database types accepted by Open
const (
	PostgresDbType = "postgres"
	SqliteDbType   = "sqlite"
)

// Open creates a database connection for dbType. An empty SQLite DSN opens
// an in-memory database.
func Open(dbType, dsn string) (*gorm.DB, error) {
	cfg := &gorm.Config{Logger: logger.Default.LogMode(logger.Warn)}

	switch dbType {
	case PostgresDbType:
		db, err := gorm.Open(postgres.Open(dsn), cfg)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to PostgreSQL: %w", err)
		}
		return db, nil
	case SqliteDbType:
		if dsn == "" {
			dsn = ":memory:"
		}
		db, err := gorm.Open(sqlite.Open(dsn), cfg)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to SQLite: %w", err)
		}
		if dsn == ":memory:" {
			// every connection to :memory: is a separate database
			sqlDB, err := db.DB()
			if err != nil {
				return nil, fmt.Errorf("failed to get database instance: %w", err)
			}
			sqlDB.SetMaxOpenConns(1)
		}
		return db, nil
	default:
		return nil, fmt.Errorf("unsupported database type: %s", dbType)
	}
}

// AutoMigrate creates or updates the user tables. Production schemas are
// managed outside this package; this exists for development and tests.
func AutoMigrate(db *gorm.DB) error {
	if err := db.AutoMigrate(&UserModel{}, &TokenModel{}, &WebauthnCredentialModel{}); err != nil {
		return fmt.Errorf("failed to migrate schema: %w", err)
	}
	return nil
}

// Close closes the underlying connection pool
func Close(db *gorm.DB) error {
	sqlDB, err := db.DB()
	if err != nil {
		return fmt.Errorf("failed to get database instance: %w", err)
	}
	if err := sqlDB.Close(); err != nil {
		return fmt.Errorf("failed to close database connection: %w", err)
	}
	return nil
}
