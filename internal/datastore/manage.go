package datastore

import (
	"time"

	"gorm.io/gorm"

	"github.com/tphakala/platewatch/internal/logger"
)

// performAutoMigration creates or updates the registry tables. Owners are
// migrated first because vehicles reference them.
func performAutoMigration(db *gorm.DB, dbType string) error {
	start := time.Now()
	migrationLogger := GetLogger().With(logger.String("db_type", dbType))
	migrationLogger.Debug("starting database migration")

	if err := db.AutoMigrate(&Owner{}, &Vehicle{}); err != nil {
		return dbError(err, "auto_migrate", "db_type", dbType)
	}

	migrationLogger.Debug("database migration completed",
		logger.Duration("duration", time.Since(start)))
	return nil
}

// closeDB closes the connection pool behind db.
func closeDB(db *gorm.DB, dbType string) error {
	if db == nil {
		return errNotOpen("close")
	}

	sqlDB, err := db.DB()
	if err != nil {
		return dbError(err, "close", "db_type", dbType)
	}
	if err := sqlDB.Close(); err != nil {
		return dbError(err, "close", "db_type", dbType)
	}

	GetLogger().Debug("database connection closed", logger.String("db_type", dbType))
	return nil
}
