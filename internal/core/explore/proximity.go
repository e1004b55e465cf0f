package explore

import (
	"time"

	"github.com/samirrijal/placequest/internal/core/domain"
	"github.com/samirrijal/placequest/internal/pkg/geospatial"
)

// ProximityDetector marks features as discovered when the position comes
// within Radius of them.
type ProximityDetector struct {
	radius   float64
	distance geospatial.DistanceFunc
	now      func() time.Time
}

// NewProximityDetector creates a detector. The radius is in the unit of the
// distance function; nil means Euclidean degrees.
func NewProximityDetector(radius float64, distance geospatial.DistanceFunc) *ProximityDetector {
	if distance == nil {
		distance = geospatial.Euclidean
	}
	return &ProximityDetector{radius: radius, distance: distance, now: time.Now}
}

// Scan discovers every undiscovered feature strictly inside the radius and
// returns one event per feature that changed state.
func (d *ProximityDetector) Scan(pos domain.Position, store *FeatureStore) []domain.DiscoveryEvent {
	if !pos.Valid() {
		return nil
	}
	gen := store.Generation()

	var events []domain.DiscoveryEvent
	for _, f := range store.Undiscovered() {
		if d.distance(pos.Lat, pos.Lng, f.Lat, f.Lng) >= d.radius {
			continue
		}
		if !store.MarkDiscovered(f.ID) {
			continue
		}
		events = append(events, domain.DiscoveryEvent{
			Feature:    f,
			Points:     f.Points(),
			Story:      storyFor(f),
			Generation: gen,
			At:         d.now(),
		})
	}
	return events
}

func storyFor(f domain.Feature) string {
	if f.Story != "" {
		return f.Story
	}
	if f.Rare {
		return domain.RareStory
	}
	return domain.CommonStory
}
