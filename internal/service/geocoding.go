package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/UnknownOlympus/meridian/internal/geocoder"
	"github.com/UnknownOlympus/meridian/internal/metrics"
	"github.com/UnknownOlympus/meridian/internal/models"
)

var (
	// ErrInvalidCoordinates is returned for NaN or out of range query coordinates.
	ErrInvalidCoordinates = errors.New("coordinates do not describe a point on earth")
	// ErrNoResult is returned when the served snapshot has nothing to offer.
	ErrNoResult = errors.New("no place found")
	// ErrPlaceNotFound is returned when a position does not resolve in the served snapshot.
	ErrPlaceNotFound = errors.New("place not found")
	// ErrUnavailable is returned while no snapshot has been published. Retry shortly.
	ErrUnavailable = errors.New("geocoder temporarily unavailable, retry shortly")
)

// Source provides the full set of gazetteer records a snapshot is built from.
type Source interface {
	Load(ctx context.Context) ([]models.Place, error)
}

// ReverseGeocodingService serves reverse geocoding queries from an immutable snapshot
// and replaces that snapshot whenever the source changes.
type ReverseGeocodingService struct {
	log             *slog.Logger      // Logger for service activities
	source          Source            // Where snapshots are loaded from
	metrics         *metrics.Metrics  // Metrics for searches and reloads
	refreshInterval time.Duration     // Periodic reload interval, zero disables it
	options         []geocoder.Option // Options applied to every snapshot build

	snapshot atomic.Pointer[geocoder.ReverseGeocoder]
	building sync.Mutex    // held by the single writer during a rebuild
	trigger  chan struct{} // pending rebuild requests, at most one
}

// NewReverseGeocodingService creates a service reading from source. Queries fail with
// ErrUnavailable until Boot succeeds.
func NewReverseGeocodingService(
	log *slog.Logger,
	source Source,
	metrics *metrics.Metrics,
	refreshInterval time.Duration,
	options ...geocoder.Option,
) *ReverseGeocodingService {
	return &ReverseGeocodingService{
		log:             log,
		source:          source,
		metrics:         metrics,
		refreshInterval: refreshInterval,
		options:         options,
		trigger:         make(chan struct{}, 1),
	}
}

// Boot performs the initial load. An error here means the service must not start serving.
func (s *ReverseGeocodingService) Boot(ctx context.Context) error {
	s.log.InfoContext(ctx, "Loading initial snapshot", "source", sourceName(s.source))

	if err := s.rebuild(ctx); err != nil {
		return fmt.Errorf("initial gazetteer load failed: %w", err)
	}

	return nil
}

// Reload builds a new snapshot and publishes it. On failure the previous snapshot keeps serving.
func (s *ReverseGeocodingService) Reload(ctx context.Context) error {
	if err := s.rebuild(ctx); err != nil {
		s.log.ErrorContext(ctx, "Reload failed, keeping the current snapshot", "error", err)
		return fmt.Errorf("reload gazetteer: %w", err)
	}

	return nil
}

func (s *ReverseGeocodingService) rebuild(ctx context.Context) error {
	s.building.Lock()
	defer s.building.Unlock()

	startTime := time.Now()
	places, err := s.source.Load(ctx)
	if err != nil {
		s.metrics.Reloads.WithLabelValues("failure").Inc()
		return err
	}

	next := geocoder.New(places, s.options...)
	previous := s.snapshot.Swap(next)

	s.metrics.ReloadSeconds.Observe(time.Since(startTime).Seconds())
	s.metrics.Reloads.WithLabelValues("success").Inc()
	s.metrics.SnapshotPlaces.Set(float64(next.Len()))
	s.metrics.SnapshotTimestamp.Set(float64(next.BuiltAt().Unix()))

	attrs := []any{"snapshot", next.String(), "duration", time.Since(startTime)}
	if previous != nil {
		attrs = append(attrs, "previous", previous.String())
	}
	s.log.InfoContext(ctx, "Snapshot published", attrs...)

	return nil
}

// Trigger requests a rebuild without waiting for it. Requests made while one is already
// pending are merged into it.
func (s *ReverseGeocodingService) Trigger() {
	select {
	case s.trigger <- struct{}{}:
	default:
	}
}

// Run performs requested and periodic rebuilds until the context is cancelled.
func (s *ReverseGeocodingService) Run(ctx context.Context) {
	var tick <-chan time.Time
	if s.refreshInterval > 0 {
		ticker := time.NewTicker(s.refreshInterval)
		defer ticker.Stop()
		tick = ticker.C
	}

	s.log.InfoContext(ctx, "Reload coordinator started", "refresh_interval", s.refreshInterval)

	for {
		select {
		case <-ctx.Done():
			s.log.InfoContext(ctx, "Reload coordinator stopped.")
			return
		case <-s.trigger:
			s.log.InfoContext(ctx, "Gazetteer changed, rebuilding snapshot...")
			_ = s.Reload(ctx)
		case <-tick:
			s.log.DebugContext(ctx, "Refreshing snapshot...")
			_ = s.Reload(ctx)
		}
	}
}

// Search returns up to n places nearest to (lat, lng), nearest first. n below one means one.
func (s *ReverseGeocodingService) Search(ctx context.Context, lat, lng float64, n int) ([]geocoder.Result, error) {
	if !(models.Coordinates{Latitude: lat, Longitude: lng}).Valid() {
		s.metrics.Searches.WithLabelValues("invalid").Inc()
		return nil, fmt.Errorf("%w: lat=%v lng=%v", ErrInvalidCoordinates, lat, lng)
	}
	if n < 1 {
		n = 1
	}

	snap := s.snapshot.Load()
	if snap == nil {
		s.metrics.Searches.WithLabelValues("unavailable").Inc()
		return nil, ErrUnavailable
	}

	startTime := time.Now()
	results := snap.Search(lat, lng, n)
	s.metrics.SearchSeconds.Observe(time.Since(startTime).Seconds())

	if len(results) == 0 {
		s.metrics.Searches.WithLabelValues("empty").Inc()
		return nil, ErrNoResult
	}

	s.metrics.Searches.WithLabelValues("success").Inc()
	s.log.DebugContext(ctx, "Search answered", "lat", lat, "lng", lng, "results", len(results))

	return results, nil
}

// Get resolves a position reported by Search against the served snapshot.
func (s *ReverseGeocodingService) Get(idx int) (*models.Place, error) {
	snap := s.snapshot.Load()
	if snap == nil {
		return nil, ErrUnavailable
	}

	place, ok := snap.Get(idx)
	if !ok {
		return nil, fmt.Errorf("%w: position %d", ErrPlaceNotFound, idx)
	}

	return place, nil
}

// Snapshot returns the snapshot currently served, or nil before Boot.
func (s *ReverseGeocodingService) Snapshot() *geocoder.ReverseGeocoder {
	return s.snapshot.Load()
}

// Ready reports whether a snapshot has been published.
func (s *ReverseGeocodingService) Ready() bool {
	return s.snapshot.Load() != nil
}

func sourceName(src Source) string {
	if str, ok := src.(fmt.Stringer); ok {
		return str.String()
	}
	return fmt.Sprintf("%T", src)
}
