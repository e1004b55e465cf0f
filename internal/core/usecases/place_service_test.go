package usecases_test

import (
	"context"
	"errors"
	"testing"

	"github.com/samirrijal/placequest/internal/core/domain"
	"github.com/samirrijal/placequest/internal/core/usecases"
)

var dubai = domain.Bounds{MinLon: 55.2, MinLat: 25.1, MaxLon: 55.5, MaxLat: 25.4}

func TestPlaceService_InBounds(t *testing.T) {
	repo := &mockPlaceRepo{
		findInBoundsFn: func(ctx context.Context, b domain.Bounds, category string, limit int) ([]domain.Place, error) {
			if limit != 200 {
				t.Errorf("expected repo asked for max limit 200, got %d", limit)
			}
			return []domain.Place{{ID: "1", Name: "Burj Park"}, {ID: "2", Name: "Souk"}, {ID: "3", Name: "Creek"}}, nil
		},
	}

	svc := usecases.NewPlaceService(repo, nil, nil, nil, usecases.DefaultPlaceOptions())
	places, err := svc.InBounds(context.Background(), dubai, "", 2)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(places) != 2 || places[0].Name != "Burj Park" {
		t.Errorf("expected first 2 places, got %+v", places)
	}
}

func TestPlaceService_InBounds_InvalidBox(t *testing.T) {
	svc := usecases.NewPlaceService(&mockPlaceRepo{}, nil, nil, nil, usecases.DefaultPlaceOptions())
	_, err := svc.InBounds(context.Background(), domain.Bounds{MinLon: 1, MaxLon: 0, MinLat: 0, MaxLat: 1}, "", 10)
	if !errors.Is(err, domain.ErrInvalidInput) {
		t.Errorf("expected ErrInvalidInput, got %v", err)
	}
}

func TestPlaceService_InBounds_CachesResult(t *testing.T) {
	calls := 0
	repo := &mockPlaceRepo{
		findInBoundsFn: func(ctx context.Context, b domain.Bounds, category string, limit int) ([]domain.Place, error) {
			calls++
			return []domain.Place{{ID: "1"}}, nil
		},
	}
	cache := newMemCache()
	svc := usecases.NewPlaceService(repo, nil, nil, cache, usecases.DefaultPlaceOptions())

	for i := 0; i < 3; i++ {
		if _, err := svc.InBounds(context.Background(), dubai, "", 10); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if calls != 1 {
		t.Errorf("expected 1 repo call, got %d", calls)
	}
	if ttl := cache.ttls[usecases.BoundsCacheKey(dubai, "")]; ttl != 300 {
		t.Errorf("expected 300s ttl, got %d", ttl)
	}

	if err := svc.Invalidate(context.Background(), dubai); err != nil {
		t.Fatalf("invalidate: %v", err)
	}
	_, _ = svc.InBounds(context.Background(), dubai, "", 10)
	if calls != 2 {
		t.Errorf("expected repo hit after invalidation, got %d calls", calls)
	}
}

func TestPlaceService_InBounds_FillsFromUpstream(t *testing.T) {
	var stored []domain.Place
	repo := &mockPlaceRepo{
		upsertBatchFn: func(ctx context.Context, places []domain.Place) error {
			stored = places
			return nil
		},
	}
	provider := &mockProvider{
		fetchFn: func(ctx context.Context, q domain.FeatureQuery) ([]domain.Place, []byte, error) {
			if q.Bounds == nil || *q.Bounds != dubai {
				t.Errorf("unexpected query %+v", q)
			}
			return []domain.Place{{ID: "up-1", Name: "Upstream"}}, []byte(`{"raw":true}`), nil
		},
	}
	logs := &mockFetchLogs{}

	svc := usecases.NewPlaceService(repo, provider, logs, nil, usecases.DefaultPlaceOptions())
	places, err := svc.InBounds(context.Background(), dubai, "", 10)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(places) != 1 || places[0].ID != "up-1" {
		t.Errorf("expected upstream place, got %+v", places)
	}
	if len(stored) != 1 {
		t.Errorf("upstream places should be stored, got %d", len(stored))
	}
	if len(logs.entries) != 1 || logs.entries[0].Kind != "places" || string(logs.entries[0].Response) != `{"raw":true}` {
		t.Errorf("expected one audit entry, got %+v", logs.entries)
	}
}

func TestPlaceService_InBounds_UpstreamFailureIsNotCached(t *testing.T) {
	provider := &mockProvider{
		fetchFn: func(ctx context.Context, q domain.FeatureQuery) ([]domain.Place, []byte, error) {
			return nil, nil, errors.New("503")
		},
	}
	cache := newMemCache()
	logs := &mockFetchLogs{}
	svc := usecases.NewPlaceService(&mockPlaceRepo{}, provider, logs, cache, usecases.DefaultPlaceOptions())

	places, err := svc.InBounds(context.Background(), dubai, "", 10)
	if err != nil {
		t.Fatalf("upstream failure should not fail the request: %v", err)
	}
	if len(places) != 0 {
		t.Errorf("expected no places, got %d", len(places))
	}
	if _, ok := cache.data[usecases.BoundsCacheKey(dubai, "")]; ok {
		t.Error("failed fill must not be cached")
	}
	if len(logs.entries) != 1 || logs.entries[0].Status != 0 {
		t.Errorf("expected failed audit entry, got %+v", logs.entries)
	}
}

func TestPlaceService_Nearby_Validation(t *testing.T) {
	svc := usecases.NewPlaceService(&mockPlaceRepo{}, nil, nil, nil, usecases.DefaultPlaceOptions())

	for _, tc := range []struct {
		lat, lon, radius float64
	}{
		{91, 0, 100},
		{0, 181, 100},
		{0, 0, 0},
		{0, 0, 60_000},
	} {
		if _, err := svc.Nearby(context.Background(), tc.lat, tc.lon, tc.radius, "", 10); !errors.Is(err, domain.ErrInvalidInput) {
			t.Errorf("Nearby(%v,%v,%v): expected ErrInvalidInput, got %v", tc.lat, tc.lon, tc.radius, err)
		}
	}
}

func TestPlaceService_Nearby_ClampLimit(t *testing.T) {
	called := false
	repo := &mockPlaceRepo{
		findNearbyFn: func(ctx context.Context, lat, lon, radius float64, category string, limit int) ([]domain.Place, error) {
			called = true
			if limit != 200 {
				t.Errorf("expected limit clamped to 200, got %d", limit)
			}
			return nil, nil
		},
	}

	svc := usecases.NewPlaceService(repo, nil, nil, nil, usecases.DefaultPlaceOptions())
	_, _ = svc.Nearby(context.Background(), 25.2, 55.27, 500, "", 999)
	if !called {
		t.Error("repo was not called")
	}
}

func TestPlaceService_CategoryFilter(t *testing.T) {
	var asked []string
	repo := &mockPlaceRepo{
		findInBoundsFn: func(ctx context.Context, b domain.Bounds, category string, limit int) ([]domain.Place, error) {
			asked = append(asked, category)
			return []domain.Place{{ID: category + "-1"}}, nil
		},
	}
	var upstream domain.FeatureQuery
	provider := &mockProvider{
		fetchFn: func(ctx context.Context, q domain.FeatureQuery) ([]domain.Place, []byte, error) {
			upstream = q
			return []domain.Place{
				{ID: "u1", Category: "Park"},
				{ID: "u2", Category: "cafe"},
				{ID: "u3", Category: "garden", Subcategory: "park"},
			}, nil, nil
		},
	}
	cache := newMemCache()
	svc := usecases.NewPlaceService(repo, provider, nil, cache, usecases.DefaultPlaceOptions())
	ctx := context.Background()

	for _, category := range []string{"all", "", " Cafe ", "cafe"} {
		if _, err := svc.InBounds(ctx, dubai, category, 10); err != nil {
			t.Fatalf("InBounds(%q): %v", category, err)
		}
	}
	if len(asked) != 2 || asked[0] != "" || asked[1] != "cafe" {
		t.Errorf("expected one unfiltered and one cafe lookup, got %q", asked)
	}
	if _, ok := cache.data[usecases.BoundsCacheKey(dubai, "cafe")]; !ok {
		t.Error("filtered result should be cached under its own key")
	}

	if err := svc.Invalidate(ctx, dubai); err != nil {
		t.Fatalf("invalidate: %v", err)
	}
	if len(cache.data) != 0 {
		t.Errorf("invalidation should drop every category, left %d entries", len(cache.data))
	}

	if _, err := svc.InBounds(ctx, dubai, "casino", 10); !errors.Is(err, domain.ErrInvalidInput) {
		t.Errorf("expected ErrInvalidInput for an unknown category, got %v", err)
	}
	if _, err := svc.Nearby(ctx, 25.2, 55.27, 500, "casino", 10); !errors.Is(err, domain.ErrInvalidInput) {
		t.Errorf("expected ErrInvalidInput for an unknown category, got %v", err)
	}

	repo.findInBoundsFn = func(ctx context.Context, b domain.Bounds, category string, limit int) ([]domain.Place, error) {
		return nil, nil
	}
	parks, err := svc.InBounds(ctx, dubai, "park", 10)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if upstream.Category != "park" {
		t.Errorf("upstream fill should carry the category, got %+v", upstream)
	}
	if len(parks) != 2 || parks[0].ID != "u1" || parks[1].ID != "u3" {
		t.Errorf("upstream fill should be narrowed to the category, got %+v", parks)
	}
}

func TestPlaceService_GetByID(t *testing.T) {
	repo := &mockPlaceRepo{
		getByIDFn: func(ctx context.Context, id string) (*domain.Place, error) {
			return &domain.Place{ID: id, Name: "Test Place"}, nil
		},
	}

	svc := usecases.NewPlaceService(repo, nil, nil, newMemCache(), usecases.DefaultPlaceOptions())
	p, err := svc.GetByID(context.Background(), "abc-123")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p.ID != "abc-123" {
		t.Errorf("expected id abc-123, got %s", p.ID)
	}
}

func TestPlaceService_GetByID_NotFound(t *testing.T) {
	svc := usecases.NewPlaceService(&mockPlaceRepo{}, nil, nil, nil, usecases.DefaultPlaceOptions())
	if _, err := svc.GetByID(context.Background(), "missing"); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestPlaceService_Import_NoProvider(t *testing.T) {
	svc := usecases.NewPlaceService(&mockPlaceRepo{}, nil, nil, nil, usecases.DefaultPlaceOptions())
	if _, err := svc.Import(context.Background(), domain.FeatureQuery{Bounds: &dubai}); err == nil {
		t.Error("expected error without provider")
	}
}
