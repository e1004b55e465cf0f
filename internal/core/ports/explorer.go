package ports

import (
	"context"

	"github.com/samirrijal/placequest/internal/core/domain"
)

// FeatureFetcher queries the backend for raw features. The payload is decoded
// by the caller so that malformed bodies can be tolerated feature by feature.
type FeatureFetcher interface {
	FetchFeatures(ctx context.Context, q domain.FeatureQuery) ([]byte, error)
}

// MapRenderer draws markers and moves the view.
type MapRenderer interface {
	DrawMarker(f domain.Feature) domain.VisualHandle
	RemoveMarker(h domain.VisualHandle)
	OpenPopup(h domain.VisualHandle)
	PanTo(p domain.Position)
	SetView(p domain.Position, zoom int)
}

// SidebarRenderer lists features next to the map.
type SidebarRenderer interface {
	RenderSidebarEntry(f domain.Feature, onClick func())
	ClearSidebar()
}

// GameNotifier receives discovery and score updates.
type GameNotifier interface {
	OnDiscovery(ev domain.DiscoveryEvent)
	OnScoreChanged(score int)
}
