package explore

import (
	"math"

	"github.com/samirrijal/placequest/internal/core/domain"
)

// snapEpsilon absorbs float error in lng/size so that 55.30/0.1 lands on 553
// rather than 552.9999999999999.
const snapEpsilon = 1e-9

// Grid maps positions onto square tiles of Size degrees.
type Grid struct {
	Size float64
}

// KeyFor returns the tile containing p.
func (g Grid) KeyFor(p domain.Position) domain.TileKey {
	return domain.TileKey{X: cell(p.Lng, g.Size), Y: cell(p.Lat, g.Size)}
}

// Cell returns the half-open cell [x·S, (x+1)·S) × [y·S, (y+1)·S) of k.
func (g Grid) Cell(k domain.TileKey) domain.Bounds {
	return domain.Bounds{
		MinLon: float64(k.X) * g.Size,
		MinLat: float64(k.Y) * g.Size,
		MaxLon: float64(k.X+1) * g.Size,
		MaxLat: float64(k.Y+1) * g.Size,
	}
}

// Bounds returns the fetch box for k: its cell grown by one tile on every
// side so that features near the border are not missed.
func (g Grid) Bounds(k domain.TileKey) domain.Bounds {
	c := g.Cell(k)
	return domain.Bounds{
		MinLon: c.MinLon - g.Size,
		MinLat: c.MinLat - g.Size,
		MaxLon: c.MaxLon + g.Size,
		MaxLat: c.MaxLat + g.Size,
	}
}

// Center returns the middle of k's cell.
func (g Grid) Center(k domain.TileKey) domain.Position {
	return domain.Position{
		Lat: (float64(k.Y) + 0.5) * g.Size,
		Lng: (float64(k.X) + 0.5) * g.Size,
	}
}

// Neighborhood returns the 3×3 block of keys centred on k, column by column.
func (g Grid) Neighborhood(k domain.TileKey) []domain.TileKey {
	keys := make([]domain.TileKey, 0, 9)
	for dx := -1; dx <= 1; dx++ {
		for dy := -1; dy <= 1; dy++ {
			keys = append(keys, domain.TileKey{X: k.X + dx, Y: k.Y + dy})
		}
	}
	return keys
}

func cell(v, size float64) int {
	q := v / size
	if r := math.Round(q); math.Abs(q-r) < snapEpsilon {
		q = r
	}
	return int(math.Floor(q))
}
