package datastore

import (
	"fmt"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/tphakala/platewatch/internal/conf"
	"github.com/tphakala/platewatch/internal/logger"
)

// PostgresStore implements the registry on PostgreSQL.
type PostgresStore struct {
	DataStore
	Settings *conf.Settings
}

func postgresDSN(s *conf.PostgresSettings) string {
	sslMode := s.SSLMode
	if sslMode == "" {
		sslMode = "disable"
	}
	return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		s.Host, s.Port, s.Username, s.Password, s.Database, sslMode)
}

// Open connects to PostgreSQL and migrates the schema.
func (store *PostgresStore) Open() error {
	s := &store.Settings.Output.Postgres

	db, err := gorm.Open(postgres.Open(postgresDSN(s)), gormConfig())
	if err != nil {
		GetLogger().Error("failed to open PostgreSQL database",
			logger.String("host", s.Host),
			logger.String("database", s.Database),
			logger.Error(err))
		return dbError(err, "open", "db_type", "postgres", "host", s.Host)
	}

	store.DB = db
	return performAutoMigration(db, "postgres")
}

// Close closes the PostgreSQL connection pool.
func (store *PostgresStore) Close() error {
	return closeDB(store.DB, "postgres")
}
