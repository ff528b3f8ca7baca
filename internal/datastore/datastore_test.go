package datastore

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tphakala/platewatch/internal/conf"
	"github.com/tphakala/platewatch/internal/errors"
)

// createDatabase opens a SQLite registry in a temporary directory and closes
// it when the test completes.
func createDatabase(t *testing.T) Interface {
	t.Helper()

	settings := &conf.Settings{}
	settings.Output.SQLite.Enabled = true
	settings.Output.SQLite.Path = filepath.Join(t.TempDir(), "registry.db")

	store := New(settings)
	require.NotNil(t, store)
	require.NoError(t, store.Open(), "failed to open database")

	t.Cleanup(func() {
		assert.NoError(t, store.Close(), "failed to close datastore")
	})

	return store
}

// seedOwnerWithVehicle registers one owner with one vehicle.
func seedOwnerWithVehicle(t *testing.T, store Interface, plate string) (*Owner, *Vehicle) {
	t.Helper()
	ctx := context.Background()

	owner := &Owner{Name: "Ana Pérez", Email: "ana@example.com", Phone: "555-0101"}
	require.NoError(t, store.CreateOwner(ctx, owner))
	require.NotZero(t, owner.ID)

	vehicle := &Vehicle{Plate: plate, Brand: "Toyota", Model: "Corolla", Year: 2019, OwnerID: owner.ID}
	require.NoError(t, store.CreateVehicle(ctx, vehicle))
	require.NotZero(t, vehicle.ID)

	return owner, vehicle
}

func TestNewSelectsBackend(t *testing.T) {
	t.Parallel()

	settings := &conf.Settings{}
	assert.Nil(t, New(settings))

	settings.Output.Postgres.Enabled = true
	assert.IsType(t, &PostgresStore{}, New(settings))

	settings.Output.MySQL.Enabled = true
	assert.IsType(t, &MySQLStore{}, New(settings))

	settings.Output.SQLite.Enabled = true
	assert.IsType(t, &SQLiteStore{}, New(settings))
}

func TestInsertedPlateIsRetrievable(t *testing.T) {
	t.Parallel()
	store := createDatabase(t)
	owner, vehicle := seedOwnerWithVehicle(t, store, "abc-123")

	assert.Equal(t, "ABC123", vehicle.Plate, "plate should be stored normalized")

	record, err := store.FindByPlate(context.Background(), "ABC123")
	require.NoError(t, err)
	require.NotNil(t, record)

	assert.Equal(t, vehicle.ID, record.VehicleID)
	assert.Equal(t, "ABC123", record.Plate)
	assert.Equal(t, "Toyota", record.Brand)
	assert.Equal(t, "Corolla", record.Model)
	assert.Equal(t, 2019, record.Year)
	assert.Equal(t, owner.ID, record.OwnerID)
	assert.Equal(t, "Ana Pérez", record.OwnerName)
	assert.Equal(t, "555-0101", record.OwnerPhone)
	assert.Equal(t, "ana@example.com", record.OwnerEmail)
}

func TestFindByPlateNormalizesInput(t *testing.T) {
	t.Parallel()
	store := createDatabase(t)
	seedOwnerWithVehicle(t, store, "XYZ987")

	for _, query := range []string{"xyz987", " XYZ-987 ", "x y z 9 8 7"} {
		record, err := store.FindByPlate(context.Background(), query)
		require.NoError(t, err, query)
		assert.Equal(t, "XYZ987", record.Plate, query)
	}
}

func TestFindByPlateMatchesLegacyFormattedRows(t *testing.T) {
	t.Parallel()
	store := createDatabase(t)
	owner, _ := seedOwnerWithVehicle(t, store, "AAA111")

	sqliteStore, ok := store.(*SQLiteStore)
	require.True(t, ok)
	require.NoError(t, sqliteStore.DB.Exec(
		"INSERT INTO vehiculos (placa, marca, modelo, anio, id_propietario) VALUES (?, ?, ?, ?, ?)",
		"pqr-45 6", "Mazda", "3", 2015, owner.ID).Error)

	record, err := store.FindByPlate(context.Background(), "PQR456")
	require.NoError(t, err)
	assert.Equal(t, "Mazda", record.Brand)
}

func TestMissingPlateReturnsNotFound(t *testing.T) {
	t.Parallel()
	store := createDatabase(t)
	seedOwnerWithVehicle(t, store, "ABC123")

	for _, query := range []string{"ZZZ999", "", "--"} {
		record, err := store.FindByPlate(context.Background(), query)
		require.Error(t, err, query)
		assert.Nil(t, record, query)
		assert.True(t, errors.IsNotFound(err), "expected not found for %q, got %v", query, err)
	}
}

func TestFindOwnerMatchesNameAndEmail(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	store := createDatabase(t)
	owner, _ := seedOwnerWithVehicle(t, store, "ABC123")

	found, err := store.FindOwner(ctx, "Ana Pérez", "ana@example.com")
	require.NoError(t, err)
	assert.Equal(t, owner.ID, found.ID)
	assert.Equal(t, "555-0101", found.Phone)

	_, err = store.FindOwner(ctx, "Ana Pérez", "otra@example.com")
	assert.True(t, errors.IsNotFound(err))
}

func TestDuplicatePlateInsertFails(t *testing.T) {
	t.Parallel()
	store := createDatabase(t)
	owner, _ := seedOwnerWithVehicle(t, store, "ABC123")

	err := store.CreateVehicle(context.Background(), &Vehicle{Plate: "abc 123", Brand: "Kia", OwnerID: owner.ID})
	require.Error(t, err)
	assert.True(t, errors.IsConflict(err), "expected conflict, got %v", err)

	records, err := store.ListVehicles(context.Background())
	require.NoError(t, err)
	assert.Len(t, records, 1)
}

func TestDeleteReferencedOwnerIsRejected(t *testing.T) {
	t.Parallel()
	store := createDatabase(t)
	owner, _ := seedOwnerWithVehicle(t, store, "ABC123")
	ctx := context.Background()

	err := store.DeleteOwner(ctx, owner.ID)
	require.Error(t, err)
	assert.True(t, errors.IsConflict(err), "expected conflict, got %v", err)

	_, err = store.FindByPlate(ctx, "ABC123")
	require.NoError(t, err, "vehicle and owner must survive the rejected delete")

	require.NoError(t, store.DeleteVehicle(ctx, "abc-123"))
	require.NoError(t, store.DeleteOwner(ctx, owner.ID))
}

func TestVehicleWithUnknownOwnerIsRejected(t *testing.T) {
	t.Parallel()
	store := createDatabase(t)

	err := store.CreateVehicle(context.Background(), &Vehicle{Plate: "NOP000", OwnerID: 4242})
	require.Error(t, err)
	assert.True(t, errors.IsConflict(err), "expected conflict, got %v", err)
}

func TestDeleteMissingRowsReturnNotFound(t *testing.T) {
	t.Parallel()
	store := createDatabase(t)
	ctx := context.Background()

	assert.True(t, errors.IsNotFound(store.DeleteOwner(ctx, 99)))
	assert.True(t, errors.IsNotFound(store.DeleteVehicle(ctx, "NONE01")))
}

func TestCreateRejectsInvalidInput(t *testing.T) {
	t.Parallel()
	store := createDatabase(t)
	ctx := context.Background()

	err := store.CreateOwner(ctx, &Owner{})
	assert.True(t, errors.IsCategory(err, errors.CategoryValidation))

	err = store.CreateVehicle(ctx, &Vehicle{Plate: " - ", OwnerID: 1})
	assert.True(t, errors.IsCategory(err, errors.CategoryValidation))
}

func TestListVehiclesOrderedByPlate(t *testing.T) {
	t.Parallel()
	store := createDatabase(t)
	owner, _ := seedOwnerWithVehicle(t, store, "MMM500")
	ctx := context.Background()

	require.NoError(t, store.CreateVehicle(ctx, &Vehicle{Plate: "AAA100", OwnerID: owner.ID}))
	require.NoError(t, store.CreateVehicle(ctx, &Vehicle{Plate: "ZZZ900", OwnerID: owner.ID}))

	records, err := store.ListVehicles(ctx)
	require.NoError(t, err)
	require.Len(t, records, 3)
	assert.Equal(t, []string{"AAA100", "MMM500", "ZZZ900"},
		[]string{records[0].Plate, records[1].Plate, records[2].Plate})
	assert.Equal(t, "Ana Pérez", records[2].OwnerName)
}

func TestPing(t *testing.T) {
	t.Parallel()
	store := createDatabase(t)
	assert.NoError(t, store.Ping(context.Background()))

	closed := &SQLiteStore{}
	assert.Error(t, closed.Ping(context.Background()))
	assert.Error(t, closed.Close())
}

func TestConflictType(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		err  error
		want string
	}{
		{"sqlite unique", errors.NewStd("UNIQUE constraint failed: vehiculos.placa"), "unique"},
		{"sqlite fk", errors.NewStd("FOREIGN KEY constraint failed"), "foreign_key"},
		{"mysql duplicate", errors.NewStd("Error 1062 (23000): Duplicate entry 'ABC123' for key 'idx_vehiculos_placa'"), "unique"},
		{"postgres fk", errors.NewStd(`update or delete on table "propietarios" violates foreign key constraint`), "foreign_key"},
		{"other", errors.NewStd("connection refused"), ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, conflictType(tt.err))
		})
	}
}

func TestDSNBuilders(t *testing.T) {
	t.Parallel()

	dsn := mysqlDSN(&conf.MySQLSettings{Username: "root", Password: "123", Host: "localhost", Port: "3306", Database: "placas_db"})
	assert.Contains(t, dsn, "root:123@tcp(localhost:3306)/placas_db")
	assert.Contains(t, dsn, "parseTime=true")

	pg := postgresDSN(&conf.PostgresSettings{Username: "u", Password: "p", Host: "db", Port: "5432", Database: "placas_db"})
	assert.Contains(t, pg, "sslmode=disable")
	assert.Contains(t, pg, "dbname=placas_db")

	assert.Contains(t, sqliteDSN("/tmp/x.db"), "_foreign_keys=on")
}
