package analysis

import (
	"context"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/tphakala/platewatch/internal/conf"
	"github.com/tphakala/platewatch/internal/datastore"
	"github.com/tphakala/platewatch/internal/errors"
	"github.com/tphakala/platewatch/internal/logger"
	"github.com/tphakala/platewatch/internal/plate"
)

// Fixtures is the seed file layout: owners with the vehicles they own.
type Fixtures struct {
	Owners []OwnerFixture `yaml:"propietarios"`
}

// OwnerFixture is one owner in a seed file.
type OwnerFixture struct {
	Name     string           `yaml:"nombre"`
	Phone    string           `yaml:"telefono"`
	Email    string           `yaml:"email"`
	Vehicles []VehicleFixture `yaml:"vehiculos"`
}

// VehicleFixture is one vehicle in a seed file.
type VehicleFixture struct {
	Plate string `yaml:"placa"`
	Brand string `yaml:"marca"`
	Model string `yaml:"modelo"`
	Year  int    `yaml:"anio"`
}

// SeedResult counts what a seed run wrote.
type SeedResult struct {
	Owners   int
	Vehicles int
	Skipped  int // plates already registered
}

// SeedFixtures loads the fixture file at settings.Input.Path into the
// registry. Plates that are already registered are skipped, so seeding
// the same file twice is harmless.
func SeedFixtures(settings *conf.Settings) error {
	fixtures, err := LoadFixtures(settings.Input.Path)
	if err != nil {
		return err
	}

	store, err := openStore(settings)
	if err != nil {
		return err
	}
	defer closeStore(store)

	result, err := Seed(context.Background(), store, fixtures)
	if err != nil {
		return err
	}
	printSeedResult(os.Stdout, result)
	return nil
}

// LoadFixtures reads and decodes a fixture file.
func LoadFixtures(path string) (*Fixtures, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.New(err).
			Component("analysis").
			Category(errors.CategoryFileIO).
			FileContext(path, 0).
			Build()
	}

	var fixtures Fixtures
	if err := yaml.Unmarshal(data, &fixtures); err != nil {
		return nil, errors.New(err).
			Component("analysis").
			Category(errors.CategoryValidation).
			FileContext(path, int64(len(data))).
			Build()
	}
	return &fixtures, nil
}

// Seed writes fixtures to store. Owners are matched by name and email, so
// seeding the same fixtures again creates nothing. Plates that are already
// registered are skipped whoever owns them, and an owner listed only with
// such plates is not created.
func Seed(ctx context.Context, store datastore.Interface, fixtures *Fixtures) (SeedResult, error) {
	var result SeedResult
	log := GetLogger()

	for i := range fixtures.Owners {
		of := &fixtures.Owners[i]

		pending, err := pendingVehicles(ctx, store, of.Vehicles)
		if err != nil {
			return result, err
		}
		result.Skipped += len(of.Vehicles) - len(pending)

		owner, err := store.FindOwner(ctx, of.Name, of.Email)
		switch {
		case errors.IsNotFound(err):
			if len(pending) == 0 && len(of.Vehicles) > 0 {
				continue
			}
			owner = &datastore.Owner{Name: of.Name, Phone: of.Phone, Email: of.Email}
			if err := store.CreateOwner(ctx, owner); err != nil {
				return result, err
			}
			result.Owners++
		case err != nil:
			return result, err
		}

		for _, vf := range pending {
			vehicle := &datastore.Vehicle{
				Plate:   vf.Plate,
				Brand:   vf.Brand,
				Model:   vf.Model,
				Year:    vf.Year,
				OwnerID: owner.ID,
			}
			err := store.CreateVehicle(ctx, vehicle)
			switch {
			case errors.IsCategory(err, errors.CategoryConflict):
				result.Skipped++
				log.Debug("plate already registered", logger.String("plate", vf.Plate))
			case err != nil:
				return result, err
			default:
				result.Vehicles++
			}
		}
	}

	log.Info("fixtures seeded",
		logger.Int("owners", result.Owners),
		logger.Int("vehicles", result.Vehicles),
		logger.Int("skipped", result.Skipped))
	return result, nil
}

// pendingVehicles returns the vehicles whose plates are not registered yet.
func pendingVehicles(ctx context.Context, store datastore.Interface, vehicles []VehicleFixture) ([]VehicleFixture, error) {
	var pending []VehicleFixture
	for _, vf := range vehicles {
		if plate.Normalize(vf.Plate) == "" {
			return nil, errors.Newf("fixture plate %q is empty after normalization", vf.Plate).
				Component("analysis").
				Category(errors.CategoryValidation).
				Build()
		}

		record, err := store.FindByPlate(ctx, vf.Plate)
		switch {
		case errors.IsNotFound(err):
			pending = append(pending, vf)
		case err != nil:
			return nil, err
		default:
			GetLogger().Debug("plate already registered",
				logger.String("plate", record.Plate),
				logger.String("owner", record.OwnerName))
		}
	}
	return pending, nil
}

func printSeedResult(w io.Writer, r SeedResult) {
	fmt.Fprintf(w, "Propietarios creados: %d\n", r.Owners)
	fmt.Fprintf(w, "Vehículos creados:    %d\n", r.Vehicles)
	fmt.Fprintf(w, "Placas existentes:    %d\n", r.Skipped)
}
