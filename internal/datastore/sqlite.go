package datastore

import (
	"os"
	"path/filepath"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/tphakala/platewatch/internal/conf"
	"github.com/tphakala/platewatch/internal/errors"
	"github.com/tphakala/platewatch/internal/logger"
)

// SQLiteStore implements the registry on a SQLite file.
type SQLiteStore struct {
	DataStore
	Settings *conf.Settings
}

// sqliteDSN enables foreign key enforcement on every pooled connection, which
// SQLite leaves off by default.
func sqliteDSN(path string) string {
	return "file:" + path + "?_foreign_keys=on&_busy_timeout=5000"
}

// Open creates the database directory if needed, opens the file and migrates
// the schema.
func (store *SQLiteStore) Open() error {
	path := store.Settings.Output.SQLite.Path

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return errors.New(err).
				Component("datastore").
				Category(errors.CategoryFileIO).
				Context("operation", "create_database_directory").
				Build()
		}
	}

	db, err := gorm.Open(sqlite.Open(sqliteDSN(path)), gormConfig())
	if err != nil {
		GetLogger().Error("failed to open SQLite database",
			logger.String("path", path),
			logger.Error(err))
		return dbError(err, "open", "db_type", "sqlite")
	}

	// SQLite allows one writer at a time.
	if sqlDB, err := db.DB(); err == nil {
		sqlDB.SetMaxOpenConns(1)
	}

	store.DB = db
	return performAutoMigration(db, "sqlite")
}

// Close closes the SQLite database.
func (store *SQLiteStore) Close() error {
	return closeDB(store.DB, "sqlite")
}
