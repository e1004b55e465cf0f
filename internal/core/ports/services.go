package ports

import (
	"context"

	"github.com/samirrijal/placequest/internal/core/domain"
)

// EventPublisher publishes domain events to a message broker.
type EventPublisher interface {
	PublishDiscovery(ctx context.Context, v *domain.Visit) error
}

// EventSubscriber subscribes to domain events from a message broker.
type EventSubscriber interface {
	SubscribeDiscoveries(ctx context.Context, handler func(ctx context.Context, v *domain.Visit) error) error
}

// CacheService provides read-through caching.
type CacheService interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttlSeconds int) error
	Delete(ctx context.Context, key string) error
}

// PlaceProvider is an upstream source of places and geocoding.
type PlaceProvider interface {
	FetchPlaces(ctx context.Context, q domain.FeatureQuery) ([]domain.Place, []byte, error)
	SearchCities(ctx context.Context, query string, limit int) ([]domain.City, []byte, error)
	Countries(ctx context.Context) ([]domain.Country, []byte, error)
	CitiesInCountry(ctx context.Context, isoCode string) ([]domain.City, []byte, error)
}
