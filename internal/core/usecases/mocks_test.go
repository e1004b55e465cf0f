package usecases_test

import (
	"context"
	"errors"
	"sync"

	"github.com/samirrijal/placequest/internal/core/domain"
)

// --- Mock PlaceRepository ---

type mockPlaceRepo struct {
	upsertBatchFn  func(ctx context.Context, places []domain.Place) error
	getByIDFn      func(ctx context.Context, id string) (*domain.Place, error)
	findInBoundsFn func(ctx context.Context, b domain.Bounds, category string, limit int) ([]domain.Place, error)
	findNearbyFn   func(ctx context.Context, lat, lon, radius float64, category string, limit int) ([]domain.Place, error)
}

func (m *mockPlaceRepo) UpsertBatch(ctx context.Context, places []domain.Place) error {
	if m.upsertBatchFn != nil {
		return m.upsertBatchFn(ctx, places)
	}
	return nil
}

func (m *mockPlaceRepo) GetByID(ctx context.Context, id string) (*domain.Place, error) {
	if m.getByIDFn != nil {
		return m.getByIDFn(ctx, id)
	}
	return nil, domain.ErrNotFound
}

func (m *mockPlaceRepo) FindInBounds(ctx context.Context, b domain.Bounds, category string, limit int) ([]domain.Place, error) {
	if m.findInBoundsFn != nil {
		return m.findInBoundsFn(ctx, b, category, limit)
	}
	return nil, nil
}

func (m *mockPlaceRepo) FindNearby(ctx context.Context, lat, lon, radius float64, category string, limit int) ([]domain.Place, error) {
	if m.findNearbyFn != nil {
		return m.findNearbyFn(ctx, lat, lon, radius, category, limit)
	}
	return nil, nil
}

// --- Mock VisitRepository ---

type mockVisitRepo struct {
	recordFn func(ctx context.Context, v *domain.Visit) (bool, error)
	listFn   func(ctx context.Context, playerID string, offset, limit int) ([]domain.Visit, int, error)
	scoreFn  func(ctx context.Context, playerID string) (*domain.PlayerScore, error)
}

func (m *mockVisitRepo) Record(ctx context.Context, v *domain.Visit) (bool, error) {
	if m.recordFn != nil {
		return m.recordFn(ctx, v)
	}
	return true, nil
}

func (m *mockVisitRepo) ListByPlayer(ctx context.Context, playerID string, offset, limit int) ([]domain.Visit, int, error) {
	if m.listFn != nil {
		return m.listFn(ctx, playerID, offset, limit)
	}
	return nil, 0, nil
}

func (m *mockVisitRepo) Score(ctx context.Context, playerID string) (*domain.PlayerScore, error) {
	if m.scoreFn != nil {
		return m.scoreFn(ctx, playerID)
	}
	return nil, domain.ErrNotFound
}

// --- Mock FetchLogRepository ---

type mockFetchLogs struct {
	entries []domain.FetchLog
	err     error
}

func (m *mockFetchLogs) Insert(ctx context.Context, e *domain.FetchLog) error {
	m.entries = append(m.entries, *e)
	return nil
}

func (m *mockFetchLogs) Recent(ctx context.Context, n int) ([]domain.FetchLog, error) {
	if m.err != nil {
		return nil, m.err
	}
	var out []domain.FetchLog
	for i := len(m.entries) - 1; i >= 0 && len(out) < n; i-- {
		out = append(out, m.entries[i])
	}
	return out, nil
}

// --- Mock EventPublisher ---

type mockPublisher struct {
	published []*domain.Visit
	err       error
}

func (m *mockPublisher) PublishDiscovery(ctx context.Context, v *domain.Visit) error {
	m.published = append(m.published, v)
	return m.err
}

// --- Mock PlaceProvider ---

type mockProvider struct {
	fetchFn     func(ctx context.Context, q domain.FeatureQuery) ([]domain.Place, []byte, error)
	citiesFn    func(ctx context.Context, query string, limit int) ([]domain.City, []byte, error)
	countriesFn func(ctx context.Context) ([]domain.Country, []byte, error)
	localityFn  func(ctx context.Context, isoCode string) ([]domain.City, []byte, error)
}

func (m *mockProvider) FetchPlaces(ctx context.Context, q domain.FeatureQuery) ([]domain.Place, []byte, error) {
	if m.fetchFn != nil {
		return m.fetchFn(ctx, q)
	}
	return nil, nil, nil
}

func (m *mockProvider) SearchCities(ctx context.Context, query string, limit int) ([]domain.City, []byte, error) {
	if m.citiesFn != nil {
		return m.citiesFn(ctx, query, limit)
	}
	return nil, nil, nil
}

func (m *mockProvider) Countries(ctx context.Context) ([]domain.Country, []byte, error) {
	if m.countriesFn != nil {
		return m.countriesFn(ctx)
	}
	return nil, nil, nil
}

func (m *mockProvider) CitiesInCountry(ctx context.Context, isoCode string) ([]domain.City, []byte, error) {
	if m.localityFn != nil {
		return m.localityFn(ctx, isoCode)
	}
	return nil, nil, nil
}

// --- In-memory CacheService ---

var errMiss = errors.New("cache miss")

type memCache struct {
	mu   sync.Mutex
	data map[string][]byte
	ttls map[string]int
}

func newMemCache() *memCache {
	return &memCache{data: make(map[string][]byte), ttls: make(map[string]int)}
}

func (c *memCache) Get(ctx context.Context, key string) ([]byte, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	v, ok := c.data[key]
	if !ok {
		return nil, errMiss
	}
	return v, nil
}

func (c *memCache) Set(ctx context.Context, key string, value []byte, ttl int) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.data[key] = value
	c.ttls[key] = ttl
	return nil
}

func (c *memCache) Delete(ctx context.Context, key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.data, key)
	return nil
}
