// Package httpserver exposes the vehicle lookup API, health status and
// Prometheus metrics over HTTP.
package httpserver

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"

	"github.com/tphakala/platewatch/internal/conf"
	"github.com/tphakala/platewatch/internal/datastore"
	"github.com/tphakala/platewatch/internal/errors"
	"github.com/tphakala/platewatch/internal/logger"
	"github.com/tphakala/platewatch/internal/observability"
)

const (
	readTimeout     = 10 * time.Second
	writeTimeout    = 30 * time.Second
	idleTimeout     = 60 * time.Second
	shutdownTimeout = 10 * time.Second
	pingTimeout     = 2 * time.Second
)

// VehicleLookup resolves a plate to its registered vehicle.
type VehicleLookup interface {
	Lookup(ctx context.Context, plate string) (*datastore.VehicleRecord, error)
}

// Registry is the part of the datastore the API reads directly.
type Registry interface {
	Ping(ctx context.Context) error
	ListVehicles(ctx context.Context) ([]datastore.VehicleRecord, error)
}

// PlateStatus reports the plate currently in view.
type PlateStatus interface {
	LastPlate() (string, *datastore.VehicleRecord)
}

// Server is the HTTP server.
type Server struct {
	echo     *echo.Echo
	settings *conf.Settings
	log      logger.Logger

	lookup   VehicleLookup
	registry Registry
	status   PlateStatus
	metrics  *observability.Metrics

	startTime time.Time
	mu        sync.Mutex
	running   bool
}

// ServerOption is a functional option for configuring the Server.
type ServerOption func(*Server)

// WithLookup sets the plate lookup service.
func WithLookup(l VehicleLookup) ServerOption {
	return func(s *Server) { s.lookup = l }
}

// WithRegistry sets the datastore used for listing and health checks.
func WithRegistry(r Registry) ServerOption {
	return func(s *Server) { s.registry = r }
}

// WithPlateStatus sets the source of the current plate.
func WithPlateStatus(p PlateStatus) ServerOption {
	return func(s *Server) { s.status = p }
}

// WithMetrics sets the metrics served on /metrics.
func WithMetrics(m *observability.Metrics) ServerOption {
	return func(s *Server) { s.metrics = m }
}

// New creates the server and registers its routes.
func New(settings *conf.Settings, opts ...ServerOption) (*Server, error) {
	s := &Server{
		settings:  settings,
		log:       GetLogger(),
		startTime: time.Now(),
	}
	for _, opt := range opts {
		opt(s)
	}

	if s.lookup == nil {
		return nil, errors.Newf("http server requires a lookup service").
			Component("httpserver").
			Category(errors.CategoryConfiguration).
			Build()
	}

	s.echo = echo.New()
	s.echo.HideBanner = true
	s.echo.HidePort = true
	s.echo.Server.ReadTimeout = readTimeout
	s.echo.Server.WriteTimeout = writeTimeout
	s.echo.Server.IdleTimeout = idleTimeout

	s.echo.Use(echomw.Recover())
	s.echo.Use(newRequestLogger(s.log))

	s.setupRoutes()
	return s, nil
}

func (s *Server) setupRoutes() {
	s.echo.GET("/health", s.healthCheck)

	if s.metrics != nil {
		s.echo.GET("/metrics", echo.WrapHandler(s.metrics.Handler()))
	}

	api := s.echo.Group("/api/v1")
	api.GET("/vehicles/:plate", s.getVehicle)
	api.GET("/vehicles", s.listVehicles)
	api.GET("/status", s.currentStatus)
}

// Run serves on the configured address until ctx is canceled, then shuts
// down gracefully.
func (s *Server) Run(ctx context.Context) error {
	addr := s.settings.WebServer.Listen

	s.mu.Lock()
	s.running = true
	s.mu.Unlock()

	errCh := make(chan error, 1)
	go func() {
		s.log.Info("HTTP server starting", logger.String("address", addr))
		if err := s.echo.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err, ok := <-errCh:
		if ok {
			return errors.New(err).
				Component("httpserver").
				Category(errors.CategoryHTTP).
				Context("address", addr).
				Build()
		}
		return nil
	case <-ctx.Done():
		err := s.Shutdown()
		for range errCh {
		}
		return err
	}
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.running {
		return nil
	}
	s.running = false

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := s.echo.Shutdown(ctx); err != nil {
		return errors.New(err).
			Component("httpserver").
			Category(errors.CategoryHTTP).
			Build()
	}
	s.log.Info("HTTP server stopped")
	return nil
}

// ServeHTTP lets the server be mounted or exercised without a listener.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.echo.ServeHTTP(w, r)
}
