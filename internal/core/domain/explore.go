package domain

import "time"

// Position is the tracked player location in degrees.
type Position struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// Point converts the position to a GeoPoint.
func (p Position) Point() GeoPoint {
	return GeoPoint{Lat: p.Lat, Lon: p.Lng}
}

// Valid reports whether both coordinates are finite numbers.
func (p Position) Valid() bool {
	return p.Point().Valid()
}

// Direction is one of the four movement directions.
type Direction string

const (
	North Direction = "north"
	South Direction = "south"
	East  Direction = "east"
	West  Direction = "west"
)

// TileKey identifies one cell of the loading grid.
type TileKey struct {
	X int `json:"x"`
	Y int `json:"y"`
}

// Feature is a point of interest surfaced by the backend.
type Feature struct {
	ID         string         `json:"id"`
	Name       string         `json:"name"`
	Category   string         `json:"category"`
	Lat        float64        `json:"lat"`
	Lng        float64        `json:"lng"`
	Rare       bool           `json:"rare"`
	Story      string         `json:"story,omitempty"`
	Properties map[string]any `json:"properties,omitempty"`
}

// Position returns the feature location.
func (f Feature) Position() Position {
	return Position{Lat: f.Lat, Lng: f.Lng}
}

// Points is the score value of the feature.
func (f Feature) Points() int {
	if f.Rare {
		return RarePoints
	}
	return BasePoints
}

const (
	BasePoints = 10
	RarePoints = 25

	RareStory   = "A rare event occurs here!"
	CommonStory = "You discover a new part of the city."
)

// VisualHandle is the opaque value a renderer returns for a drawn marker.
type VisualHandle any

// DiscoveryEvent is emitted once when a feature is first found by proximity.
type DiscoveryEvent struct {
	Feature    Feature   `json:"feature"`
	Points     int       `json:"points"`
	Story      string    `json:"story"`
	Generation uint64    `json:"generation"`
	At         time.Time `json:"at"`
}

// FeatureQuery is what the engine asks the backend for: either a bounding box
// or a centre plus radius, optionally narrowed to one category.
type FeatureQuery struct {
	Bounds       *Bounds   `json:"bounds,omitempty"`
	Center       *GeoPoint `json:"center,omitempty"`
	RadiusMeters float64   `json:"radius_meters,omitempty"`
	Limit        int       `json:"limit,omitempty"`
	Category     string    `json:"category,omitempty"`
}
