package ports

import (
	"context"

	"github.com/samirrijal/placequest/internal/core/domain"
)

// PlaceRepository persists points of interest.
type PlaceRepository interface {
	UpsertBatch(ctx context.Context, places []domain.Place) error
	GetByID(ctx context.Context, id string) (*domain.Place, error)
	// An empty category matches every place.
	FindInBounds(ctx context.Context, b domain.Bounds, category string, limit int) ([]domain.Place, error)
	FindNearby(ctx context.Context, lat, lon, radiusMeters float64, category string, limit int) ([]domain.Place, error)
}

// VisitRepository persists player discoveries.
type VisitRepository interface {
	// Record stores a visit; created is false when the player already has
	// the place, and v is then replaced by the stored visit.
	Record(ctx context.Context, v *domain.Visit) (created bool, err error)
	ListByPlayer(ctx context.Context, playerID string, offset, limit int) ([]domain.Visit, int, error)
	Score(ctx context.Context, playerID string) (*domain.PlayerScore, error)
}

// FetchLogRepository keeps an audit trail of upstream calls.
type FetchLogRepository interface {
	Insert(ctx context.Context, entry *domain.FetchLog) error
	// Recent returns the newest n entries, newest first.
	Recent(ctx context.Context, n int) ([]domain.FetchLog, error)
}
