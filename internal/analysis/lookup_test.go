package analysis

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tphakala/platewatch/internal/datastore"
	"github.com/tphakala/platewatch/internal/errors"
	"github.com/tphakala/platewatch/internal/search"
)

func seededLookup(t *testing.T) *search.Service {
	t.Helper()
	ctx := context.Background()

	store := openTestStore(t, testSettings(t))
	owner := &datastore.Owner{Name: "Juan Perez", Phone: "555-0101"}
	require.NoError(t, store.CreateOwner(ctx, owner))
	require.NoError(t, store.CreateVehicle(ctx, &datastore.Vehicle{
		Plate: "ABC123", Brand: "Toyota", Model: "Corolla", Year: 2020, OwnerID: owner.ID,
	}))
	return search.New(store, 0, nil)
}

func TestLookupPlateText(t *testing.T) {
	t.Parallel()
	svc := seededLookup(t)

	var buf bytes.Buffer
	require.NoError(t, lookupPlate(context.Background(), svc, "abc-123", FormatText, &buf))
	assert.Contains(t, buf.String(), "Placa detectada: ABC123")
	assert.Contains(t, buf.String(), "Propietario: Juan Perez")

	buf.Reset()
	require.NoError(t, lookupPlate(context.Background(), svc, "ZZZ999", "", &buf))
	assert.Contains(t, buf.String(), "no se encontró")
}

func TestLookupPlateJSON(t *testing.T) {
	t.Parallel()
	svc := seededLookup(t)

	var buf bytes.Buffer
	require.NoError(t, lookupPlate(context.Background(), svc, "ABC 123", FormatJSON, &buf))

	var got lookupResult
	require.NoError(t, json.Unmarshal(buf.Bytes(), &got))
	assert.Equal(t, "ABC123", got.Plate)
	assert.True(t, got.Registered)
	require.NotNil(t, got.Vehicle)
	assert.Equal(t, "Juan Perez", got.Vehicle.OwnerName)

	buf.Reset()
	require.NoError(t, lookupPlate(context.Background(), svc, "ZZZ999", FormatJSON, &buf))
	var missing lookupResult
	require.NoError(t, json.Unmarshal(buf.Bytes(), &missing))
	assert.Equal(t, "ZZZ999", missing.Plate)
	assert.False(t, missing.Registered)
	assert.Nil(t, missing.Vehicle)
}

func TestLookupPlateRejectsBadInput(t *testing.T) {
	t.Parallel()
	svc := seededLookup(t)

	err := lookupPlate(context.Background(), svc, "--", FormatText, &bytes.Buffer{})
	require.Error(t, err)
	assert.True(t, errors.IsCategory(err, errors.CategoryValidation))

	err = lookupPlate(context.Background(), svc, "ABC123", "xml", &bytes.Buffer{})
	require.Error(t, err)
	assert.True(t, errors.IsCategory(err, errors.CategoryValidation))
}
