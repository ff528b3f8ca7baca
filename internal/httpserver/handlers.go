package httpserver

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/tphakala/platewatch/internal/datastore"
	"github.com/tphakala/platewatch/internal/errors"
	"github.com/tphakala/platewatch/internal/logger"
	"github.com/tphakala/platewatch/internal/plate"
)

// ErrorResponse is the body of every non-2xx API response.
type ErrorResponse struct {
	Error string `json:"error"`
	Plate string `json:"plate,omitempty"`
}

// VehicleResponse wraps a lookup result.
type VehicleResponse struct {
	Plate      string                   `json:"plate"`
	Registered bool                     `json:"registered"`
	Vehicle    *datastore.VehicleRecord `json:"vehicle,omitempty"`
}

// StatusResponse describes the plate currently in view.
type StatusResponse struct {
	Plate      string                   `json:"plate,omitempty"`
	Registered bool                     `json:"registered"`
	Vehicle    *datastore.VehicleRecord `json:"vehicle,omitempty"`
}

// getVehicle handles GET /api/v1/vehicles/:plate.
func (s *Server) getVehicle(c echo.Context) error {
	raw := c.Param("plate")
	normalized := plate.Normalize(raw)
	if normalized == "" {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid plate", Plate: raw})
	}

	record, err := s.lookup.Lookup(c.Request().Context(), normalized)
	switch {
	case err == nil:
		return c.JSON(http.StatusOK, VehicleResponse{Plate: normalized, Registered: true, Vehicle: record})
	case errors.IsNotFound(err):
		return c.JSON(http.StatusNotFound, ErrorResponse{Error: "vehicle not found", Plate: normalized})
	default:
		s.log.Error("lookup failed",
			logger.String("plate", normalized),
			logger.Error(err))
		return c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "lookup failed", Plate: normalized})
	}
}

// listVehicles handles GET /api/v1/vehicles.
func (s *Server) listVehicles(c echo.Context) error {
	if s.registry == nil {
		return c.JSON(http.StatusServiceUnavailable, ErrorResponse{Error: "registry not available"})
	}

	records, err := s.registry.ListVehicles(c.Request().Context())
	if err != nil {
		s.log.Error("list vehicles failed", logger.Error(err))
		return c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "list failed"})
	}
	if records == nil {
		records = []datastore.VehicleRecord{}
	}
	return c.JSON(http.StatusOK, records)
}

// currentStatus handles GET /api/v1/status.
func (s *Server) currentStatus(c echo.Context) error {
	if s.status == nil {
		return c.JSON(http.StatusOK, StatusResponse{})
	}
	p, record := s.status.LastPlate()
	return c.JSON(http.StatusOK, StatusResponse{Plate: p, Registered: record != nil, Vehicle: record})
}

// healthCheck handles GET /health. The status is "degraded" with a 503
// when the database does not answer a ping.
func (s *Server) healthCheck(c echo.Context) error {
	uptime := time.Since(s.startTime)

	body := map[string]any{
		"status":         "healthy",
		"version":        s.settings.Version,
		"build_date":     s.settings.BuildDate,
		"uptime":         uptime.String(),
		"uptime_seconds": uptime.Seconds(),
		"timestamp":      time.Now().Format(time.RFC3339),
		"system":         collectSystemStats(),
	}

	code := http.StatusOK
	if s.registry != nil {
		ctx, cancel := context.WithTimeout(c.Request().Context(), pingTimeout)
		defer cancel()
		if err := s.registry.Ping(ctx); err != nil {
			body["status"] = "degraded"
			body["database"] = "unreachable"
			code = http.StatusServiceUnavailable
		} else {
			body["database"] = "ok"
		}
	}

	return c.JSON(code, body)
}
