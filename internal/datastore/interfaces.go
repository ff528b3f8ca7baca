// Package datastore is the vehicle registry: owners, their vehicles, and the
// plate search that joins them.
package datastore

import (
	"context"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/tphakala/platewatch/internal/conf"
	"github.com/tphakala/platewatch/internal/logger"
	"github.com/tphakala/platewatch/internal/plate"
)

// slowQueryThreshold is the duration above which GORM statements are logged
// as slow.
const slowQueryThreshold = 200 * time.Millisecond

// Interface abstracts the underlying registry implementation.
type Interface interface {
	Open() error
	Close() error
	Ping(ctx context.Context) error
	CreateOwner(ctx context.Context, owner *Owner) error
	FindOwner(ctx context.Context, name, email string) (*Owner, error)
	CreateVehicle(ctx context.Context, vehicle *Vehicle) error
	DeleteOwner(ctx context.Context, id uint) error
	DeleteVehicle(ctx context.Context, plate string) error
	FindByPlate(ctx context.Context, plate string) (*VehicleRecord, error)
	ListVehicles(ctx context.Context) ([]VehicleRecord, error)
}

// DataStore implements the registry operations on top of a GORM handle. The
// backend specific stores embed it and only provide Open and Close.
type DataStore struct {
	DB *gorm.DB
}

// New creates a registry store for the first enabled backend, checked in the
// order SQLite, MySQL, PostgreSQL. It returns nil when none is enabled.
func New(settings *conf.Settings) Interface {
	switch {
	case settings.Output.SQLite.Enabled:
		return &SQLiteStore{Settings: settings}
	case settings.Output.MySQL.Enabled:
		return &MySQLStore{Settings: settings}
	case settings.Output.Postgres.Enabled:
		return &PostgresStore{Settings: settings}
	default:
		return nil
	}
}

// gormConfig returns the GORM configuration shared by every backend.
// TranslateError turns driver specific constraint failures into
// gorm.ErrDuplicatedKey and gorm.ErrForeignKeyViolated.
func gormConfig() *gorm.Config {
	return &gorm.Config{
		Logger:         logger.NewGormLoggerAdapter(GetLogger(), slowQueryThreshold),
		TranslateError: true,
	}
}

// Ping verifies the connection is alive.
func (ds *DataStore) Ping(ctx context.Context) error {
	if ds.DB == nil {
		return errNotOpen("ping")
	}
	sqlDB, err := ds.DB.DB()
	if err != nil {
		return dbError(err, "ping")
	}
	if err := sqlDB.PingContext(ctx); err != nil {
		return dbError(err, "ping")
	}
	return nil
}

// CreateOwner inserts owner and sets its ID.
func (ds *DataStore) CreateOwner(ctx context.Context, owner *Owner) error {
	if ds.DB == nil {
		return errNotOpen("create_owner")
	}
	if owner == nil || owner.Name == "" {
		return validationError("owner name is required", "nombre", "")
	}
	if err := ds.DB.WithContext(ctx).Create(owner).Error; err != nil {
		return writeError(err, "create_owner", "owner", owner.Name)
	}
	return nil
}

// FindOwner returns the first owner registered with exactly name and email,
// or a not found error.
func (ds *DataStore) FindOwner(ctx context.Context, name, email string) (*Owner, error) {
	if ds.DB == nil {
		return nil, errNotOpen("find_owner")
	}

	var owner Owner
	result := ds.DB.WithContext(ctx).
		Where("nombre = ? AND email = ?", name, email).
		Order("id_propietario").
		Limit(1).
		Find(&owner)
	if result.Error != nil {
		return nil, dbError(result.Error, "find_owner", "owner", name)
	}
	if result.RowsAffected == 0 {
		return nil, notFoundError("owner", name)
	}
	return &owner, nil
}

// CreateVehicle normalizes the vehicle plate, inserts the vehicle and sets
// its ID. Inserting a plate that is already registered fails with a
// conflict error, as does referencing an owner that does not exist.
func (ds *DataStore) CreateVehicle(ctx context.Context, vehicle *Vehicle) error {
	if ds.DB == nil {
		return errNotOpen("create_vehicle")
	}
	if vehicle == nil {
		return validationError("vehicle is required", "vehiculo", "")
	}

	normalized := plate.Normalize(vehicle.Plate)
	if normalized == "" {
		return validationError("plate is empty after normalization", "placa", vehicle.Plate)
	}
	vehicle.Plate = normalized

	if err := ds.DB.WithContext(ctx).Omit(clause.Associations).Create(vehicle).Error; err != nil {
		return writeError(err, "create_vehicle", "plate", normalized)
	}
	return nil
}

// DeleteOwner removes an owner. It fails with a conflict error while any
// vehicle still references the owner.
func (ds *DataStore) DeleteOwner(ctx context.Context, id uint) error {
	if ds.DB == nil {
		return errNotOpen("delete_owner")
	}
	result := ds.DB.WithContext(ctx).Delete(&Owner{}, id)
	if result.Error != nil {
		return writeError(result.Error, "delete_owner", "owner_id", id)
	}
	if result.RowsAffected == 0 {
		return notFoundError("owner", id)
	}
	return nil
}

// DeleteVehicle removes the vehicle registered under plate.
func (ds *DataStore) DeleteVehicle(ctx context.Context, raw string) error {
	if ds.DB == nil {
		return errNotOpen("delete_vehicle")
	}
	normalized := plate.Normalize(raw)
	result := ds.DB.WithContext(ctx).Where(plateMatch, normalized).Delete(&Vehicle{})
	if result.Error != nil {
		return writeError(result.Error, "delete_vehicle", "plate", normalized)
	}
	if result.RowsAffected == 0 {
		return notFoundError("vehicle", normalized)
	}
	return nil
}
