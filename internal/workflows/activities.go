package workflows

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/samirrijal/placequest/internal/core/domain"
	"github.com/samirrijal/placequest/internal/core/ports"
)

// Invalidator drops cached tile results.
type Invalidator interface {
	Invalidate(ctx context.Context, b domain.Bounds) error
}

// ImportActivities holds the activity implementations of the region import.
type ImportActivities struct {
	Provider ports.PlaceProvider
	Places   ports.PlaceRepository
	// Cache may be nil when the API runs without valkey.
	Cache Invalidator
}

// FetchUpstreamTile asks the upstream provider for the places in b.
func (a *ImportActivities) FetchUpstreamTile(ctx context.Context, b domain.Bounds, limit int) ([]domain.Place, error) {
	places, _, err := a.Provider.FetchPlaces(ctx, domain.FeatureQuery{Bounds: &b, Limit: limit})
	if err != nil {
		return nil, fmt.Errorf("fetch tile %s: %w", b, err)
	}
	return places, nil
}

// UpsertPlaces stores places and returns how many were written.
func (a *ImportActivities) UpsertPlaces(ctx context.Context, places []domain.Place) (int, error) {
	if len(places) == 0 {
		return 0, nil
	}
	if err := a.Places.UpsertBatch(ctx, places); err != nil {
		return 0, fmt.Errorf("upsert %d places: %w", len(places), err)
	}
	return len(places), nil
}

// InvalidateTileCache drops the cached result of b so clients see the import.
func (a *ImportActivities) InvalidateTileCache(ctx context.Context, b domain.Bounds) error {
	if a.Cache == nil {
		slog.DebugContext(ctx, "no tile cache configured", "bbox", b.String())
		return nil
	}
	return a.Cache.Invalidate(ctx, b)
}
