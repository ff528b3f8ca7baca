// Package search answers "who owns this plate" for the pipeline, the lookup
// command and the HTTP API. Results, including misses, are cached for a
// short time so a plate held in front of the camera is queried once.
package search

import (
	"context"
	"time"

	"github.com/patrickmn/go-cache"

	"github.com/tphakala/platewatch/internal/datastore"
	"github.com/tphakala/platewatch/internal/errors"
	"github.com/tphakala/platewatch/internal/logger"
	"github.com/tphakala/platewatch/internal/observability/metrics"
	"github.com/tphakala/platewatch/internal/plate"
)

// ErrNotFound is wrapped by the error Lookup returns for an unregistered
// plate. errors.IsNotFound also reports true for it.
var ErrNotFound = errors.NewStd("vehicle not found")

// Finder is the registry query the service depends on.
type Finder interface {
	FindByPlate(ctx context.Context, plate string) (*datastore.VehicleRecord, error)
}

// missing marks a cached miss.
type missing struct{}

// Service looks up vehicles by plate.
type Service struct {
	finder  Finder
	cache   *cache.Cache
	metrics *metrics.LookupMetrics
	log     logger.Logger
}

// New creates a lookup service. A ttl of zero or less disables caching.
// m may be nil.
func New(finder Finder, ttl time.Duration, m *metrics.LookupMetrics) *Service {
	s := &Service{
		finder:  finder,
		metrics: m,
		log:     logger.Global().Module("search"),
	}
	if ttl > 0 {
		s.cache = cache.New(ttl, 2*ttl)
	}
	return s
}

// Lookup returns the vehicle and owner registered under raw. The plate is
// normalized first. An unregistered plate yields an error wrapping
// ErrNotFound, never a nil record with a nil error.
func (s *Service) Lookup(ctx context.Context, raw string) (*datastore.VehicleRecord, error) {
	normalized := plate.Normalize(raw)
	if normalized == "" {
		return nil, notFound(raw)
	}

	if record, hit := s.fromCache(normalized); hit {
		if record == nil {
			return nil, notFound(normalized)
		}
		return record, nil
	}

	start := time.Now()
	record, err := s.finder.FindByPlate(ctx, normalized)
	elapsed := time.Since(start)

	switch {
	case errors.IsNotFound(err):
		s.recordQuery(metrics.ResultUnregistered, elapsed)
		s.store(normalized, missing{})
		s.log.Debug("plate not registered",
			logger.String("plate", normalized),
			logger.Duration("duration", elapsed))
		return nil, notFound(normalized)

	case err != nil:
		if s.metrics != nil {
			s.metrics.Errors.Inc()
		}
		return nil, errors.New(err).
			Component("search").
			Category(errors.CategoryDatabase).
			Context("operation", "lookup").
			Context("plate", normalized).
			Build()
	}

	s.recordQuery(metrics.ResultRegistered, elapsed)
	s.store(normalized, *record)
	s.log.Debug("plate found",
		logger.String("plate", normalized),
		logger.String("owner", record.OwnerName),
		logger.Duration("duration", elapsed))

	found := *record
	return &found, nil
}

// Invalidate drops any cached result for raw. Call it after the registry
// changes so the next lookup sees the new row.
func (s *Service) Invalidate(raw string) {
	if s.cache != nil {
		s.cache.Delete(plate.Normalize(raw))
	}
}

// Flush drops every cached result.
func (s *Service) Flush() {
	if s.cache != nil {
		s.cache.Flush()
	}
}

// fromCache returns the cached record for a normalized plate. hit is true
// for cached misses too, in which case the record is nil.
func (s *Service) fromCache(normalized string) (record *datastore.VehicleRecord, hit bool) {
	if s.cache == nil {
		return nil, false
	}

	cached, found := s.cache.Get(normalized)
	if !found {
		if s.metrics != nil {
			s.metrics.CacheMisses.Inc()
		}
		return nil, false
	}
	if s.metrics != nil {
		s.metrics.CacheHits.Inc()
	}

	switch v := cached.(type) {
	case datastore.VehicleRecord:
		return &v, true
	case missing:
		return nil, true
	default:
		s.cache.Delete(normalized)
		return nil, false
	}
}

func (s *Service) store(normalized string, value any) {
	if s.cache != nil {
		s.cache.SetDefault(normalized, value)
	}
}

func (s *Service) recordQuery(result string, elapsed time.Duration) {
	if s.metrics != nil {
		s.metrics.RecordQuery(result, elapsed.Seconds())
	}
}

func notFound(p string) error {
	return errors.New(ErrNotFound).
		Component("search").
		Category(errors.CategoryNotFound).
		Priority(errors.PriorityLow).
		Context("plate", p).
		Build()
}
