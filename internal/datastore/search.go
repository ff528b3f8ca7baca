package datastore

import (
	"context"

	"gorm.io/gorm"

	"github.com/tphakala/platewatch/internal/plate"
)

// plateMatch compares the stored plate in normalized form, so rows written
// with spaces or dashes by older tools still match.
const plateMatch = "REPLACE(REPLACE(UPPER(vehiculos.placa), ' ', ''), '-', '') = ?"

const recordColumns = "vehiculos.id_vehiculo AS vehicle_id, vehiculos.placa AS plate, " +
	"vehiculos.marca AS brand, vehiculos.modelo AS model, vehiculos.anio AS year, " +
	"propietarios.id_propietario AS owner_id, propietarios.nombre AS owner_name, " +
	"propietarios.telefono AS owner_phone, propietarios.email AS owner_email"

// recordQuery selects vehicles joined with their owners.
func (ds *DataStore) recordQuery(ctx context.Context) *gorm.DB {
	return ds.DB.WithContext(ctx).
		Table("vehiculos").
		Select(recordColumns).
		Joins("JOIN propietarios ON propietarios.id_propietario = vehiculos.id_propietario")
}

// FindByPlate returns the vehicle and owner registered under plate. The
// plate is normalized before the query. A plate with no registered vehicle
// yields an error for which errors.IsNotFound reports true.
func (ds *DataStore) FindByPlate(ctx context.Context, raw string) (*VehicleRecord, error) {
	if ds.DB == nil {
		return nil, errNotOpen("find_by_plate")
	}

	normalized := plate.Normalize(raw)
	if normalized == "" {
		return nil, notFoundError("vehicle", raw)
	}

	var record VehicleRecord
	result := ds.recordQuery(ctx).
		Where(plateMatch, normalized).
		Limit(1).
		Scan(&record)
	if result.Error != nil {
		return nil, dbError(result.Error, "find_by_plate", "plate", normalized)
	}
	if result.RowsAffected == 0 {
		return nil, notFoundError("vehicle", normalized)
	}

	return &record, nil
}

// ListVehicles returns every registered vehicle with its owner, ordered by
// plate.
func (ds *DataStore) ListVehicles(ctx context.Context) ([]VehicleRecord, error) {
	if ds.DB == nil {
		return nil, errNotOpen("list_vehicles")
	}

	var records []VehicleRecord
	if err := ds.recordQuery(ctx).Order("vehiculos.placa").Scan(&records).Error; err != nil {
		return nil, dbError(err, "list_vehicles")
	}
	return records, nil
}
