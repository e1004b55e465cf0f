package usecases

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/samirrijal/placequest/internal/core/domain"
	"github.com/samirrijal/placequest/internal/core/ports"
	"github.com/samirrijal/placequest/internal/pkg/metrics"
	"github.com/samirrijal/placequest/internal/pkg/schema"
)

// CityService geocodes city names, browses countries and starts exploration
// sessions.
type CityService struct {
	provider  ports.PlaceProvider
	logs      ports.FetchLogRepository
	cache     ports.CacheService
	ttl       int
	validator *schema.Validator
	now       func() time.Time
}

// NewCityService creates a CityService. logs and cache may be nil.
func NewCityService(provider ports.PlaceProvider, logs ports.FetchLogRepository, cache ports.CacheService, ttlSeconds int) *CityService {
	return &CityService{
		provider:  provider,
		logs:      logs,
		cache:     cache,
		ttl:       ttlSeconds,
		validator: schema.MustLoad("session"),
		now:       time.Now,
	}
}

// Search returns cities matching query.
func (s *CityService) Search(ctx context.Context, query string, limit int) ([]domain.City, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, fmt.Errorf("%w: search query must not be empty", domain.ErrInvalidInput)
	}
	if limit <= 0 || limit > 10 {
		limit = 5
	}

	key := fmt.Sprintf("cities:search:%s:%d", strings.ToLower(query), limit)
	cities, err := remember(ctx, s, key, "cities", "q="+query, func() ([]domain.City, []byte, error) {
		return s.provider.SearchCities(ctx, query, limit)
	})
	if err != nil {
		return nil, fmt.Errorf("search cities: %w", err)
	}
	return cities, nil
}

// Countries lists the countries the places provider covers.
func (s *CityService) Countries(ctx context.Context) ([]domain.Country, error) {
	countries, err := remember(ctx, s, "countries", "countries", "countries", func() ([]domain.Country, []byte, error) {
		return s.provider.Countries(ctx)
	})
	if err != nil {
		return nil, fmt.Errorf("list countries: %w", err)
	}
	return countries, nil
}

// InCountry lists the cities of a country given by its ISO 3166-1 alpha-2
// code.
func (s *CityService) InCountry(ctx context.Context, isoCode string) ([]domain.City, error) {
	isoCode = strings.ToUpper(strings.TrimSpace(isoCode))
	if !isAlpha2(isoCode) {
		return nil, fmt.Errorf("%w: country must be a two-letter ISO code", domain.ErrInvalidInput)
	}
	cities, err := remember(ctx, s, "cities:country:"+isoCode, "cities_country", "country="+isoCode, func() ([]domain.City, []byte, error) {
		return s.provider.CitiesInCountry(ctx, isoCode)
	})
	if err != nil {
		return nil, fmt.Errorf("list cities of %s: %w", isoCode, err)
	}
	return cities, nil
}

func isAlpha2(code string) bool {
	if len(code) != 2 {
		return false
	}
	for _, r := range code {
		if r < 'A' || r > 'Z' {
			return false
		}
	}
	return true
}

// remember serves key from the cache, or calls fetch, audits the exchange
// and caches a successful result.
func remember[T any](ctx context.Context, s *CityService, key, kind, request string, fetch func() (T, []byte, error)) (T, error) {
	var zero T
	if s.cache != nil {
		if data, err := s.cache.Get(ctx, key); err == nil {
			var v T
			if err := json.Unmarshal(data, &v); err == nil {
				metrics.CacheHits.WithLabelValues(kind).Inc()
				return v, nil
			}
		}
		metrics.CacheMisses.WithLabelValues(kind).Inc()
	}

	if s.provider == nil {
		return zero, fmt.Errorf("no upstream provider configured")
	}
	v, raw, err := fetch()
	if s.logs != nil {
		entry := &domain.FetchLog{Kind: kind, Request: request, Response: raw, Status: 200, CreatedAt: s.now()}
		if err != nil {
			entry.Status = 0
		}
		if err := s.logs.Insert(ctx, entry); err != nil {
			slog.WarnContext(ctx, "fetch log insert failed", "kind", kind, "error", err)
		}
	}
	if err != nil {
		return zero, err
	}

	if s.cache != nil {
		if data, err := json.Marshal(v); err == nil {
			_ = s.cache.Set(ctx, key, data, s.ttl)
		}
	}
	return v, nil
}

// StartSession validates a start request and echoes the session back.
func (s *CityService) StartSession(ctx context.Context, body []byte) (*domain.GameSession, error) {
	if err := s.validator.ValidateBytes(body); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrInvalidInput, err)
	}
	var req struct {
		Name string  `json:"name"`
		Lat  float64 `json:"lat"`
		Lng  float64 `json:"lng"`
	}
	if err := json.Unmarshal(body, &req); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrInvalidInput, err)
	}
	return &domain.GameSession{
		City:      req.Name,
		Lat:       req.Lat,
		Lng:       req.Lng,
		Status:    "started",
		StartedAt: s.now().UTC(),
	}, nil
}
