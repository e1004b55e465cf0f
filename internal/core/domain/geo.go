package domain

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// GeoPoint represents a geographic coordinate (WGS 84).
type GeoPoint struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// Valid reports whether both coordinates are finite numbers.
func (p GeoPoint) Valid() bool {
	return isFinite(p.Lat) && isFinite(p.Lon)
}

// Bounds represents a geographic bounding box.
type Bounds struct {
	MinLat float64 `json:"min_lat"`
	MinLon float64 `json:"min_lon"`
	MaxLat float64 `json:"max_lat"`
	MaxLon float64 `json:"max_lon"`
}

// Center returns the midpoint of the box.
func (b Bounds) Center() GeoPoint {
	return GeoPoint{Lat: (b.MinLat + b.MaxLat) / 2, Lon: (b.MinLon + b.MaxLon) / 2}
}

// Contains reports whether p lies in the half-open box [min, max).
func (b Bounds) Contains(p GeoPoint) bool {
	return p.Lat >= b.MinLat && p.Lat < b.MaxLat && p.Lon >= b.MinLon && p.Lon < b.MaxLon
}

// Valid reports whether the box has finite, ordered corners.
func (b Bounds) Valid() bool {
	if !isFinite(b.MinLat) || !isFinite(b.MinLon) || !isFinite(b.MaxLat) || !isFinite(b.MaxLon) {
		return false
	}
	return b.MinLat < b.MaxLat && b.MinLon < b.MaxLon
}

// String renders the box in the "minLon,minLat,maxLon,maxLat" query form.
func (b Bounds) String() string {
	return fmt.Sprintf("%.5f,%.5f,%.5f,%.5f", b.MinLon, b.MinLat, b.MaxLon, b.MaxLat)
}

// ParseBounds parses "minLon,minLat,maxLon,maxLat".
func ParseBounds(s string) (Bounds, error) {
	parts := strings.Split(s, ",")
	if len(parts) != 4 {
		return Bounds{}, fmt.Errorf("bbox must have 4 comma-separated values, got %d", len(parts))
	}
	var v [4]float64
	for i, p := range parts {
		f, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			return Bounds{}, fmt.Errorf("bbox value %d: %w", i, err)
		}
		v[i] = f
	}
	b := Bounds{MinLon: v[0], MinLat: v[1], MaxLon: v[2], MaxLat: v[3]}
	if !b.Valid() {
		return Bounds{}, fmt.Errorf("bbox %q is empty or inverted", s)
	}
	return b, nil
}

func isFinite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}
