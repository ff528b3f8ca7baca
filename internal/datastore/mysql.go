package datastore

import (
	"net"
	"time"

	"github.com/go-sql-driver/mysql"
	gormmysql "gorm.io/driver/mysql"
	"gorm.io/gorm"

	"github.com/tphakala/platewatch/internal/conf"
	"github.com/tphakala/platewatch/internal/logger"
)

// MySQLStore implements the registry on MySQL, the default backend.
type MySQLStore struct {
	DataStore
	Settings *conf.Settings
}

// mysqlDSN builds the connection string from settings.
func mysqlDSN(s *conf.MySQLSettings) string {
	cfg := mysql.NewConfig()
	cfg.User = s.Username
	cfg.Passwd = s.Password
	cfg.Net = "tcp"
	cfg.Addr = net.JoinHostPort(s.Host, s.Port)
	cfg.DBName = s.Database
	cfg.ParseTime = true
	cfg.Loc = time.Local
	cfg.Params = map[string]string{"charset": "utf8mb4"}
	return cfg.FormatDSN()
}

// Open connects to MySQL and migrates the schema.
func (store *MySQLStore) Open() error {
	s := &store.Settings.Output.MySQL

	db, err := gorm.Open(gormmysql.Open(mysqlDSN(s)), gormConfig())
	if err != nil {
		GetLogger().Error("failed to open MySQL database",
			logger.String("host", s.Host),
			logger.String("port", s.Port),
			logger.String("database", s.Database),
			logger.Error(err))
		return dbError(err, "open", "db_type", "mysql", "host", s.Host)
	}

	store.DB = db
	return performAutoMigration(db, "mysql")
}

// Close closes the MySQL connection pool.
func (store *MySQLStore) Close() error {
	return closeDB(store.DB, "mysql")
}
