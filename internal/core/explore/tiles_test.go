package explore_test

import (
	"math"
	"testing"

	"github.com/samirrijal/placequest/internal/core/domain"
	"github.com/samirrijal/placequest/internal/core/explore"
)

func TestGrid_KeyFor(t *testing.T) {
	g := explore.Grid{Size: 0.1}

	tests := []struct {
		name string
		pos  domain.Position
		want domain.TileKey
	}{
		{"dubai", domain.Position{Lat: 25.25, Lng: 55.30}, domain.TileKey{X: 553, Y: 252}},
		{"start", domain.Position{Lat: 25.2048, Lng: 55.2708}, domain.TileKey{X: 552, Y: 252}},
		{"origin", domain.Position{Lat: 0, Lng: 0}, domain.TileKey{X: 0, Y: 0}},
		{"negative", domain.Position{Lat: -0.05, Lng: -2.935}, domain.TileKey{X: -30, Y: -1}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := g.KeyFor(tt.pos); got != tt.want {
				t.Errorf("KeyFor(%v) = %v, want %v", tt.pos, got, tt.want)
			}
		})
	}
}

func TestGrid_SameCellSameKey(t *testing.T) {
	g := explore.Grid{Size: 0.1}
	k := domain.TileKey{X: 553, Y: 252}
	cell := g.Cell(k)

	for _, p := range []domain.Position{
		{Lat: 25.2001, Lng: 55.3999},
		{Lat: 25.2999, Lng: 55.3001},
		{Lat: 25.25, Lng: 55.35},
	} {
		if !cell.Contains(p.Point()) {
			t.Fatalf("cell %v should contain %v", cell, p)
		}
		if got := g.KeyFor(p); got != k {
			t.Errorf("KeyFor(%v) = %v, want %v", p, got, k)
		}
	}

	// Decimal cell edges belong to the tile they open.
	if got := g.KeyFor(domain.Position{Lat: 25.2, Lng: 55.3}); got != k {
		t.Errorf("lower edge = %v, want %v", got, k)
	}
	if got := g.KeyFor(domain.Position{Lat: 25.3, Lng: 55.35}); got.Y != 253 {
		t.Errorf("upper edge should map to the next row, got %v", got)
	}
}

func TestGrid_Bounds(t *testing.T) {
	g := explore.Grid{Size: 0.1}
	b := g.Bounds(domain.TileKey{X: 553, Y: 252})

	want := domain.Bounds{MinLon: 55.2, MinLat: 25.1, MaxLon: 55.5, MaxLat: 25.4}
	for name, pair := range map[string][2]float64{
		"min_lon": {b.MinLon, want.MinLon},
		"min_lat": {b.MinLat, want.MinLat},
		"max_lon": {b.MaxLon, want.MaxLon},
		"max_lat": {b.MaxLat, want.MaxLat},
	} {
		if math.Abs(pair[0]-pair[1]) > 1e-9 {
			t.Errorf("%s = %f, want %f", name, pair[0], pair[1])
		}
	}
}

func TestGrid_Neighborhood(t *testing.T) {
	g := explore.Grid{Size: 0.1}
	keys := g.Neighborhood(domain.TileKey{X: 10, Y: -3})

	if len(keys) != 9 {
		t.Fatalf("expected 9 keys, got %d", len(keys))
	}
	seen := make(map[domain.TileKey]bool)
	for _, k := range keys {
		if k.X < 9 || k.X > 11 || k.Y < -4 || k.Y > -2 {
			t.Errorf("key %v outside the 3x3 block", k)
		}
		seen[k] = true
	}
	if len(seen) != 9 {
		t.Errorf("expected 9 distinct keys, got %d", len(seen))
	}
	if keys[4] != (domain.TileKey{X: 10, Y: -3}) {
		t.Errorf("centre key should be in the middle, got %v", keys[4])
	}
}
