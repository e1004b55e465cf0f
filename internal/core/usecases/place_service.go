package usecases

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"github.com/samirrijal/placequest/internal/core/domain"
	"github.com/samirrijal/placequest/internal/core/ports"
	"github.com/samirrijal/placequest/internal/pkg/metrics"
	"github.com/samirrijal/placequest/internal/pkg/telemetry"
)

// PlaceOptions tunes limits and caching of a PlaceService.
type PlaceOptions struct {
	DefaultLimit int
	MaxLimit     int
	// TileTTL is the cache lifetime of a bbox result, in seconds.
	TileTTL int
	// FetchUpstreamOnMiss fills an empty bbox from the provider.
	FetchUpstreamOnMiss bool
}

// DefaultPlaceOptions mirrors the config defaults.
func DefaultPlaceOptions() PlaceOptions {
	return PlaceOptions{DefaultLimit: 50, MaxLimit: 200, TileTTL: 300, FetchUpstreamOnMiss: true}
}

// MaxNearbyRadius caps radius queries, in meters.
const MaxNearbyRadius = 50_000

// PlaceService serves places by box, radius or id with read-through caching,
// falling back to the upstream provider for regions not imported yet.
type PlaceService struct {
	places   ports.PlaceRepository
	provider ports.PlaceProvider
	logs     ports.FetchLogRepository
	cache    ports.CacheService
	opts     PlaceOptions
}

// NewPlaceService creates a PlaceService. provider, logs and cache may be nil.
func NewPlaceService(
	places ports.PlaceRepository,
	provider ports.PlaceProvider,
	logs ports.FetchLogRepository,
	cache ports.CacheService,
	opts PlaceOptions,
) *PlaceService {
	return &PlaceService{places: places, provider: provider, logs: logs, cache: cache, opts: opts}
}

func (s *PlaceService) clamp(limit int) int {
	if limit <= 0 {
		return s.opts.DefaultLimit
	}
	if limit > s.opts.MaxLimit {
		return s.opts.MaxLimit
	}
	return limit
}

// BoundsCacheKey is the cache key of a bbox result. An empty category is
// the unfiltered result.
func BoundsCacheKey(b domain.Bounds, category string) string {
	key := "places:bbox:" + b.String()
	if category != "" {
		key += ":" + category
	}
	return key
}

// InBounds returns up to limit places inside b, optionally of one category
// ("" or "all" for every category).
func (s *PlaceService) InBounds(ctx context.Context, b domain.Bounds, category string, limit int) ([]domain.Place, error) {
	if !b.Valid() {
		return nil, fmt.Errorf("%w: bbox is empty or not finite", domain.ErrInvalidInput)
	}
	category, err := domain.NormalizeCategory(category)
	if err != nil {
		return nil, err
	}
	limit = s.clamp(limit)

	ctx, span := telemetry.StartSpan(ctx, "places.in_bounds",
		attribute.String("bbox", b.String()), attribute.String("category", category))
	defer span.End()

	// Results are cached at the maximum limit so one entry serves every page size.
	key := BoundsCacheKey(b, category)
	places, ok := s.cached(ctx, key, "places_bbox")
	if !ok {
		places, err = s.places.FindInBounds(ctx, b, category, s.opts.MaxLimit)
		if err != nil {
			return nil, fmt.Errorf("find places in bounds: %w", err)
		}
		if len(places) == 0 && s.opts.FetchUpstreamOnMiss && s.provider != nil {
			places, err = s.Import(ctx, domain.FeatureQuery{Bounds: &b, Limit: s.opts.MaxLimit, Category: category})
			places = ofCategory(places, category)
		}
		if err != nil {
			// The client sees an empty tile rather than a failure; nothing is
			// cached so the next request retries upstream.
			slog.WarnContext(ctx, "upstream fill failed", "bbox", b.String(), "error", err)
		} else {
			s.store(ctx, key, places, s.opts.TileTTL)
		}
	}

	if len(places) > limit {
		places = places[:limit]
	}
	metrics.PlacesServed.WithLabelValues("bbox").Add(float64(len(places)))
	return places, nil
}

// ofCategory keeps the places whose category or subcategory is category. The
// upstream may ignore the filter, and the whole fill is stored regardless.
func ofCategory(places []domain.Place, category string) []domain.Place {
	if category == "" {
		return places
	}
	var out []domain.Place
	for _, p := range places {
		if strings.EqualFold(p.Category, category) || strings.EqualFold(p.Subcategory, category) {
			out = append(out, p)
		}
	}
	return out
}

// Nearby returns places within radiusMeters of a point, nearest first,
// optionally of one category.
func (s *PlaceService) Nearby(ctx context.Context, lat, lon, radiusMeters float64, category string, limit int) ([]domain.Place, error) {
	if !(domain.GeoPoint{Lat: lat, Lon: lon}).Valid() || lat < -90 || lat > 90 || lon < -180 || lon > 180 {
		return nil, fmt.Errorf("%w: coordinates out of range", domain.ErrInvalidInput)
	}
	if radiusMeters <= 0 || radiusMeters > MaxNearbyRadius {
		return nil, fmt.Errorf("%w: radius must be within (0, %d] meters", domain.ErrInvalidInput, MaxNearbyRadius)
	}
	category, err := domain.NormalizeCategory(category)
	if err != nil {
		return nil, err
	}
	limit = s.clamp(limit)

	ctx, span := telemetry.StartSpan(ctx, "places.nearby")
	defer span.End()

	key := fmt.Sprintf("places:nearby:%.4f:%.4f:%.0f:%s:%d", lat, lon, radiusMeters, category, limit)
	places, ok := s.cached(ctx, key, "places_nearby")
	if !ok {
		places, err = s.places.FindNearby(ctx, lat, lon, radiusMeters, category, limit)
		if err != nil {
			return nil, fmt.Errorf("find nearby places: %w", err)
		}
		s.store(ctx, key, places, s.opts.TileTTL)
	}

	metrics.PlacesServed.WithLabelValues("nearby").Add(float64(len(places)))
	return places, nil
}

// GetByID returns a single place.
func (s *PlaceService) GetByID(ctx context.Context, id string) (*domain.Place, error) {
	if id == "" {
		return nil, fmt.Errorf("%w: id is required", domain.ErrInvalidInput)
	}
	key := "places:id:" + id
	if s.cache != nil {
		if data, err := s.cache.Get(ctx, key); err == nil {
			var p domain.Place
			if err := json.Unmarshal(data, &p); err == nil {
				metrics.CacheHits.WithLabelValues("places_id").Inc()
				return &p, nil
			}
		}
		metrics.CacheMisses.WithLabelValues("places_id").Inc()
	}

	p, err := s.places.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if s.cache != nil {
		if data, err := json.Marshal(p); err == nil {
			_ = s.cache.Set(ctx, key, data, 600)
		}
	}
	metrics.PlacesServed.WithLabelValues("id").Inc()
	return p, nil
}

// Import pulls places for q from the provider, records the exchange and
// stores the result.
func (s *PlaceService) Import(ctx context.Context, q domain.FeatureQuery) ([]domain.Place, error) {
	if s.provider == nil {
		return nil, fmt.Errorf("no upstream provider configured")
	}

	places, raw, err := s.provider.FetchPlaces(ctx, q)
	s.audit(ctx, "places", describeQuery(q), raw, err)
	if err != nil {
		return nil, fmt.Errorf("fetch upstream places: %w", err)
	}
	if len(places) == 0 {
		return nil, nil
	}
	if err := s.places.UpsertBatch(ctx, places); err != nil {
		return nil, fmt.Errorf("store upstream places: %w", err)
	}
	slog.InfoContext(ctx, "imported upstream places", "query", describeQuery(q), "count", len(places))
	return places, nil
}

// Invalidate drops the cached bbox results for b, filtered or not.
func (s *PlaceService) Invalidate(ctx context.Context, b domain.Bounds) error {
	if s.cache == nil {
		return nil
	}
	for _, category := range append([]string{""}, domain.Categories...) {
		if err := s.cache.Delete(ctx, BoundsCacheKey(b, category)); err != nil {
			return fmt.Errorf("invalidate %s: %w", b, err)
		}
	}
	return nil
}

func (s *PlaceService) cached(ctx context.Context, key, op string) ([]domain.Place, bool) {
	if s.cache == nil {
		return nil, false
	}
	if data, err := s.cache.Get(ctx, key); err == nil {
		var places []domain.Place
		if err := json.Unmarshal(data, &places); err == nil {
			metrics.CacheHits.WithLabelValues(op).Inc()
			return places, true
		}
	}
	metrics.CacheMisses.WithLabelValues(op).Inc()
	return nil, false
}

func (s *PlaceService) store(ctx context.Context, key string, places []domain.Place, ttl int) {
	if s.cache == nil || ttl <= 0 {
		return
	}
	if data, err := json.Marshal(places); err == nil {
		_ = s.cache.Set(ctx, key, data, ttl)
	}
}

func (s *PlaceService) audit(ctx context.Context, kind, request string, raw []byte, fetchErr error) {
	if s.logs == nil {
		return
	}
	entry := &domain.FetchLog{Kind: kind, Request: request, Response: raw, Status: 200, CreatedAt: time.Now()}
	if fetchErr != nil {
		entry.Status = 0
	}
	if err := s.logs.Insert(ctx, entry); err != nil {
		slog.WarnContext(ctx, "fetch log insert failed", "kind", kind, "error", err)
	}
}

func describeQuery(q domain.FeatureQuery) string {
	var s string
	switch {
	case q.Bounds != nil:
		s = "bbox=" + q.Bounds.String()
	case q.Center != nil:
		s = fmt.Sprintf("lat=%.5f&lng=%.5f&radius=%.0f", q.Center.Lat, q.Center.Lon, q.RadiusMeters)
	}
	if q.Category != "" {
		s += "&category=" + q.Category
	}
	return s
}
