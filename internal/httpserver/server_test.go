package httpserver

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tphakala/platewatch/internal/conf"
	"github.com/tphakala/platewatch/internal/datastore"
	"github.com/tphakala/platewatch/internal/errors"
	"github.com/tphakala/platewatch/internal/observability"
)

type fakeLookup struct {
	records map[string]*datastore.VehicleRecord
	err     error
	queries []string
}

func (f *fakeLookup) Lookup(_ context.Context, p string) (*datastore.VehicleRecord, error) {
	f.queries = append(f.queries, p)
	if f.err != nil {
		return nil, f.err
	}
	if rec, ok := f.records[p]; ok {
		return rec, nil
	}
	return nil, errors.NotFound("search", "vehicle %s not found", p)
}

type fakeRegistry struct {
	pingErr error
	records []datastore.VehicleRecord
}

func (f *fakeRegistry) Ping(context.Context) error { return f.pingErr }
func (f *fakeRegistry) ListVehicles(context.Context) ([]datastore.VehicleRecord, error) {
	return f.records, nil
}

type fakeStatus struct {
	plate  string
	record *datastore.VehicleRecord
}

func (f fakeStatus) LastPlate() (string, *datastore.VehicleRecord) { return f.plate, f.record }

func testSettings() *conf.Settings {
	s := &conf.Settings{Version: "test", BuildDate: "2026-01-01"}
	s.WebServer.Enabled = true
	s.WebServer.Listen = "127.0.0.1:0"
	return s
}

func newTestServer(t *testing.T, opts ...ServerOption) (*Server, *fakeLookup) {
	t.Helper()
	lookup := &fakeLookup{records: map[string]*datastore.VehicleRecord{
		"ABC123": {Plate: "ABC123", Brand: "Ford", OwnerName: "Rosa Díaz"},
	}}
	s, err := New(testSettings(), append([]ServerOption{WithLookup(lookup)}, opts...)...)
	require.NoError(t, err)
	return s, lookup
}

func do(t *testing.T, s *Server, path string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, http.NoBody)
	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, req)
	return rec
}

func TestNewRequiresLookup(t *testing.T) {
	_, err := New(testSettings())
	require.Error(t, err)
	assert.True(t, errors.IsCategory(err, errors.CategoryConfiguration))
}

func TestGetVehicle(t *testing.T) {
	s, lookup := newTestServer(t)

	rec := do(t, s, "/api/v1/vehicles/abc-123")
	require.Equal(t, http.StatusOK, rec.Code)

	var body VehicleResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "ABC123", body.Plate)
	assert.True(t, body.Registered)
	require.NotNil(t, body.Vehicle)
	assert.Equal(t, "Rosa Díaz", body.Vehicle.OwnerName)
	assert.Equal(t, []string{"ABC123"}, lookup.queries)
}

func TestGetVehicleNotFound(t *testing.T) {
	s, _ := newTestServer(t)

	rec := do(t, s, "/api/v1/vehicles/ZZZ999")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	var body ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "ZZZ999", body.Plate)
}

func TestGetVehicleInvalidPlate(t *testing.T) {
	s, lookup := newTestServer(t)

	rec := do(t, s, "/api/v1/vehicles/---")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Empty(t, lookup.queries)
}

func TestGetVehicleLookupError(t *testing.T) {
	s, lookup := newTestServer(t)
	lookup.err = errors.Newf("connection refused").Category(errors.CategoryDatabase).Build()

	rec := do(t, s, "/api/v1/vehicles/ABC123")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.NotContains(t, rec.Body.String(), "connection refused")
}

func TestListVehicles(t *testing.T) {
	t.Run("without registry", func(t *testing.T) {
		s, _ := newTestServer(t)
		assert.Equal(t, http.StatusServiceUnavailable, do(t, s, "/api/v1/vehicles").Code)
	})

	t.Run("empty registry returns empty array", func(t *testing.T) {
		s, _ := newTestServer(t, WithRegistry(&fakeRegistry{}))
		rec := do(t, s, "/api/v1/vehicles")
		require.Equal(t, http.StatusOK, rec.Code)
		assert.JSONEq(t, "[]", rec.Body.String())
	})

	t.Run("records", func(t *testing.T) {
		s, _ := newTestServer(t, WithRegistry(&fakeRegistry{records: []datastore.VehicleRecord{
			{Plate: "AAA111"}, {Plate: "BBB222"},
		}}))
		rec := do(t, s, "/api/v1/vehicles")
		require.Equal(t, http.StatusOK, rec.Code)

		var got []datastore.VehicleRecord
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
		assert.Len(t, got, 2)
	})
}

func TestStatus(t *testing.T) {
	s, _ := newTestServer(t, WithPlateStatus(fakeStatus{
		plate:  "ABC123",
		record: &datastore.VehicleRecord{Plate: "ABC123", OwnerName: "Rosa Díaz"},
	}))

	rec := do(t, s, "/api/v1/status")
	require.Equal(t, http.StatusOK, rec.Code)

	var body StatusResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "ABC123", body.Plate)
	assert.True(t, body.Registered)
}

func TestHealth(t *testing.T) {
	t.Run("healthy", func(t *testing.T) {
		s, _ := newTestServer(t, WithRegistry(&fakeRegistry{}))
		rec := do(t, s, "/health")
		require.Equal(t, http.StatusOK, rec.Code)

		var body map[string]any
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
		assert.Equal(t, "healthy", body["status"])
		assert.Equal(t, "ok", body["database"])
		assert.Equal(t, "test", body["version"])
		assert.Contains(t, body, "system")
	})

	t.Run("database down", func(t *testing.T) {
		s, _ := newTestServer(t, WithRegistry(&fakeRegistry{pingErr: errors.NewStd("gone")}))
		rec := do(t, s, "/health")
		assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
		assert.Contains(t, rec.Body.String(), "degraded")
	})
}

func TestMetricsEndpoint(t *testing.T) {
	m, err := observability.NewMetrics()
	require.NoError(t, err)
	m.Pipeline.FramesTotal.Add(3)

	s, _ := newTestServer(t, WithMetrics(m))
	rec := do(t, s, "/metrics")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "platewatch_frames_total 3")
}

func TestMetricsEndpointDisabled(t *testing.T) {
	s, _ := newTestServer(t)
	assert.Equal(t, http.StatusNotFound, do(t, s, "/metrics").Code)
}

func TestRunStopsOnCancel(t *testing.T) {
	s, _ := newTestServer(t)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not stop")
	}
}
